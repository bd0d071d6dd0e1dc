package whatsapp

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"go.mau.fi/whatsmeow"
	"go.mau.fi/whatsmeow/proto/waE2E"
	wastore "go.mau.fi/whatsmeow/store"
	"go.mau.fi/whatsmeow/types"
	"google.golang.org/protobuf/proto"

	"github.com/Deneth123456789/My-new-bot/internal/config"
	. "github.com/Deneth123456789/My-new-bot/internal/logging"
	"github.com/Deneth123456789/My-new-bot/internal/media"
	"github.com/Deneth123456789/My-new-bot/internal/transport"
)

const maxWhatsAppMessage = 65536

// Client implements transport.Transport over a whatsmeow client.
type Client struct {
	wa         *whatsmeow.Client
	permitMode string
}

var _ transport.Transport = (*Client)(nil)

// NewClient wraps wa. permitMode selects how ResolveContact decides
// (config.PermitContacts or config.PermitRegistered).
func NewClient(wa *whatsmeow.Client, permitMode string) *Client {
	return &Client{wa: wa, permitMode: permitMode}
}

// SelfID returns the paired account's user JID.
func (c *Client) SelfID() string {
	if c.wa.Store == nil || c.wa.Store.ID == nil {
		return ""
	}
	return c.wa.Store.ID.ToNonAD().String()
}

// SendText sends a text message, split into chunks if it is too long.
func (c *Client) SendText(ctx context.Context, chat, text string) error {
	jid, err := types.ParseJID(chat)
	if err != nil {
		return fmt.Errorf("invalid chat %q: %w", chat, err)
	}
	for _, chunk := range splitMessage(text, maxWhatsAppMessage) {
		if _, err := c.wa.SendMessage(ctx, jid, &waE2E.Message{
			Conversation: proto.String(chunk),
		}); err != nil {
			return fmt.Errorf("send text: %w", err)
		}
	}
	return nil
}

// React sends emoji as a reaction to ref. The reaction goes to chat,
// which differs from ref.Chat for status updates.
func (c *Client) React(ctx context.Context, chat string, ref transport.MessageRef, emoji string) error {
	to, err := types.ParseJID(chat)
	if err != nil {
		return fmt.Errorf("invalid chat %q: %w", chat, err)
	}
	keyChat, err := types.ParseJID(ref.Chat)
	if err != nil {
		return fmt.Errorf("invalid message chat %q: %w", ref.Chat, err)
	}
	var keySender types.JID
	if ref.Sender != "" {
		if keySender, err = types.ParseJID(ref.Sender); err != nil {
			return fmt.Errorf("invalid message sender %q: %w", ref.Sender, err)
		}
	}
	msg := c.wa.BuildReaction(keyChat, keySender, types.MessageID(ref.ID), emoji)
	if _, err := c.wa.SendMessage(ctx, to, msg); err != nil {
		return fmt.Errorf("send reaction: %w", err)
	}
	return nil
}

// MarkRead sends a read receipt for ref.
func (c *Client) MarkRead(ctx context.Context, ref transport.MessageRef) error {
	chat, err := types.ParseJID(ref.Chat)
	if err != nil {
		return fmt.Errorf("invalid chat %q: %w", ref.Chat, err)
	}
	var sender types.JID
	if ref.Sender != "" {
		if sender, err = types.ParseJID(ref.Sender); err != nil {
			return fmt.Errorf("invalid sender %q: %w", ref.Sender, err)
		}
	}
	return c.wa.MarkRead(ctx, []types.MessageID{types.MessageID(ref.ID)}, time.Now(), chat, sender)
}

// ResolveContact reports whether id is known. In contacts mode that means
// present in the device address book; in registered mode, a number that
// is on WhatsApp.
func (c *Client) ResolveContact(ctx context.Context, id string) (bool, error) {
	jid, err := types.ParseJID(id)
	if err != nil {
		return false, fmt.Errorf("invalid contact %q: %w", id, err)
	}
	jid = jid.ToNonAD()

	// Privacy IDs carry no phone number; map back when the store knows it.
	if jid.Server == types.HiddenUserServer {
		alt, err := c.wa.Store.GetAltJID(ctx, jid)
		if err != nil {
			return false, fmt.Errorf("resolve lid %s: %w", jid, err)
		}
		if alt.IsEmpty() {
			L_trace("whatsapp: lid without phone mapping", "jid", jid)
		} else {
			jid = alt.ToNonAD()
		}
	}

	switch c.permitMode {
	case config.PermitRegistered:
		if jid.Server != types.DefaultUserServer {
			return false, nil
		}
		resp, err := c.wa.IsOnWhatsApp(ctx, []string{"+" + jid.User})
		if err != nil {
			return false, fmt.Errorf("registration lookup: %w", err)
		}
		return len(resp) > 0 && resp[0].IsIn, nil
	default:
		return inAddressBook(ctx, c.wa.Store.Contacts, jid)
	}
}

// inAddressBook reports whether jid was synced from the phone's contacts.
// whatsmeow also stores a row for every push name it sees, so Found alone
// is true for strangers who have messaged us.
func inAddressBook(ctx context.Context, contacts wastore.ContactStore, jid types.JID) (bool, error) {
	info, err := contacts.GetContact(ctx, jid)
	if err != nil {
		return false, fmt.Errorf("contact lookup: %w", err)
	}
	return info.Found && (info.FirstName != "" || info.FullName != ""), nil
}

// DownloadMedia fetches and decrypts an inbound attachment.
func (c *Client) DownloadMedia(ctx context.Context, att *transport.Attachment) ([]byte, error) {
	if att == nil {
		return nil, transport.ErrNoMedia
	}
	msg, ok := att.Source.(whatsmeow.DownloadableMessage)
	if !ok || msg == nil {
		return nil, transport.ErrNoMedia
	}
	data, err := c.wa.Download(ctx, msg)
	if err != nil {
		if errors.Is(err, whatsmeow.ErrNoURLPresent) {
			return nil, transport.ErrNoMedia
		}
		return nil, fmt.Errorf("download failed: %w", err)
	}
	L_debug("whatsapp: media downloaded", "kind", att.Kind, "size", len(data), "mime", att.MIME)
	return data, nil
}

// SendAudio uploads data and sends it as an audio message.
func (c *Client) SendAudio(ctx context.Context, chat string, data []byte, mimeType string) error {
	jid, err := types.ParseJID(chat)
	if err != nil {
		return fmt.Errorf("invalid chat %q: %w", chat, err)
	}
	resp, err := c.wa.Upload(ctx, data, whatsmeow.MediaAudio)
	if err != nil {
		return fmt.Errorf("uploading audio: %w", err)
	}
	ptt := strings.Contains(mimeType, "ogg") || strings.Contains(mimeType, "opus")
	_, err = c.wa.SendMessage(ctx, jid, &waE2E.Message{
		AudioMessage: &waE2E.AudioMessage{
			URL:           proto.String(resp.URL),
			Mimetype:      proto.String(mimeType),
			FileSHA256:    resp.FileSHA256,
			FileEncSHA256: resp.FileEncSHA256,
			FileLength:    proto.Uint64(uint64(len(data))),
			MediaKey:      resp.MediaKey,
			DirectPath:    proto.String(resp.DirectPath),
			PTT:           proto.Bool(ptt),
		},
	})
	if err != nil {
		return fmt.Errorf("send audio: %w", err)
	}
	return nil
}

// SendSticker uploads data and sends it as a sticker.
func (c *Client) SendSticker(ctx context.Context, chat string, data []byte, mimeType string) error {
	jid, err := types.ParseJID(chat)
	if err != nil {
		return fmt.Errorf("invalid chat %q: %w", chat, err)
	}
	resp, err := c.wa.Upload(ctx, data, whatsmeow.MediaImage)
	if err != nil {
		return fmt.Errorf("uploading sticker: %w", err)
	}
	_, err = c.wa.SendMessage(ctx, jid, &waE2E.Message{
		StickerMessage: &waE2E.StickerMessage{
			URL:           proto.String(resp.URL),
			Mimetype:      proto.String(mimeType),
			FileSHA256:    resp.FileSHA256,
			FileEncSHA256: resp.FileEncSHA256,
			FileLength:    proto.Uint64(uint64(len(data))),
			MediaKey:      resp.MediaKey,
			DirectPath:    proto.String(resp.DirectPath),
			Width:         proto.Uint32(media.StickerSize),
			Height:        proto.Uint32(media.StickerSize),
		},
	})
	if err != nil {
		return fmt.Errorf("send sticker: %w", err)
	}
	return nil
}

// SendMenu sends menu as a buttons message.
func (c *Client) SendMenu(ctx context.Context, chat string, menu transport.Menu) error {
	jid, err := types.ParseJID(chat)
	if err != nil {
		return fmt.Errorf("invalid chat %q: %w", chat, err)
	}
	if _, err := c.wa.SendMessage(ctx, jid, buildButtons(menu)); err != nil {
		return fmt.Errorf("send menu: %w", err)
	}
	return nil
}

func buildButtons(menu transport.Menu) *waE2E.Message {
	buttons := make([]*waE2E.ButtonsMessage_Button, 0, len(menu.Items))
	for _, item := range menu.Items {
		buttons = append(buttons, &waE2E.ButtonsMessage_Button{
			ButtonID: proto.String(item.ID),
			ButtonText: &waE2E.ButtonsMessage_Button_ButtonText{
				DisplayText: proto.String(item.Label),
			},
			Type: waE2E.ButtonsMessage_Button_RESPONSE.Enum(),
		})
	}

	body := menu.Body
	if menu.Title != "" {
		body = "*" + menu.Title + "*\n\n" + body
	}
	return &waE2E.Message{
		ButtonsMessage: &waE2E.ButtonsMessage{
			ContentText: proto.String(body),
			FooterText:  proto.String(menu.Footer),
			HeaderType:  waE2E.ButtonsMessage_EMPTY.Enum(),
			Buttons:     buttons,
		},
	}
}

// splitMessage splits text into chunks of at most maxLen bytes,
// preferring newline boundaries and never cutting a rune.
func splitMessage(text string, maxLen int) []string {
	if len(text) <= maxLen {
		return []string{text}
	}

	var chunks []string
	for len(text) > 0 {
		end := maxLen
		if end > len(text) {
			end = len(text)
		}
		if end < len(text) {
			if idx := strings.LastIndex(text[:end], "\n"); idx > end/2 {
				end = idx + 1
			} else {
				for end > 0 && !utf8.RuneStart(text[end]) {
					end--
				}
			}
		}
		chunks = append(chunks, text[:end])
		text = text[end:]
	}
	return chunks
}
