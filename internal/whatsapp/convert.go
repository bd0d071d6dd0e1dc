package whatsapp

import (
	"go.mau.fi/whatsmeow/proto/waE2E"
	"go.mau.fi/whatsmeow/types"
	"go.mau.fi/whatsmeow/types/events"

	"github.com/Deneth123456789/My-new-bot/internal/transport"
)

// ToMessageEvent converts a whatsmeow message event.
func ToMessageEvent(evt *events.Message) *transport.MessageEvent {
	info := evt.Info
	chat := info.Chat
	sender := info.Sender.ToNonAD()

	out := &transport.MessageEvent{
		Ref: transport.MessageRef{
			Chat:   chat.String(),
			Sender: sender.String(),
			ID:     string(info.ID),
			FromMe: info.IsFromMe,
		},
		Chat:        chat.String(),
		Sender:      sender.String(),
		PushName:    info.PushName,
		IsFromSelf:  info.IsFromMe,
		IsGroup:     info.IsGroup || chat.Server == types.GroupServer,
		IsBroadcast: chat.Server == types.BroadcastServer,
		IsStatus:    chat == types.StatusBroadcastJID,
		Live:        isLive(evt),
		Text:        extractText(evt.Message),
	}

	if img := evt.Message.GetImageMessage(); img != nil {
		out.Image = &transport.Attachment{
			Kind:    "image",
			MIME:    img.GetMimetype(),
			Caption: img.GetCaption(),
			Size:    img.GetFileLength(),
			Source:  img,
		}
	}
	return out
}

// isLive is false for history sync replays, edits, reactions and protocol
// messages (revokes, key shares, ...).
func isLive(evt *events.Message) bool {
	if evt.SourceWebMsg != nil || evt.IsEdit {
		return false
	}
	msg := evt.Message
	if msg == nil {
		return false
	}
	return msg.GetProtocolMessage() == nil && msg.GetReactionMessage() == nil
}

// extractText returns the first text-bearing field: plain conversation,
// extended text, image caption, then a tapped button's ID.
func extractText(msg *waE2E.Message) string {
	if msg == nil {
		return ""
	}
	if t := msg.GetConversation(); t != "" {
		return t
	}
	if t := msg.GetExtendedTextMessage().GetText(); t != "" {
		return t
	}
	if t := msg.GetImageMessage().GetCaption(); t != "" {
		return t
	}
	if t := msg.GetButtonsResponseMessage().GetSelectedButtonID(); t != "" {
		return t
	}
	return msg.GetTemplateButtonReplyMessage().GetSelectedID()
}
