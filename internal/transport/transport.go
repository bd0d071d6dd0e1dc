// Package transport defines the messaging capability the bot core acts
// through, and the inbound message event it reacts to. The WhatsApp
// implementation lives in internal/whatsapp.
package transport

import (
	"context"
	"errors"
)

// ErrNoMedia is returned by DownloadMedia when the attachment is unusable.
var ErrNoMedia = errors.New("no downloadable media")

// MessageRef identifies one message on the transport.
type MessageRef struct {
	Chat   string // chat JID the message was posted in
	Sender string // author JID
	ID     string
	FromMe bool
}

// Attachment is inbound media that can be fetched with DownloadMedia.
// Source holds the transport's own media descriptor.
type Attachment struct {
	Kind    string // "image"
	MIME    string
	Caption string
	Size    uint64
	Source  any
}

// MessageEvent is one inbound message as seen by the bot.
type MessageEvent struct {
	Ref         MessageRef
	Chat        string
	Sender      string
	PushName    string
	IsFromSelf  bool
	IsGroup     bool
	IsBroadcast bool // broadcast list or status
	IsStatus    bool // status@broadcast update
	Live        bool // false for replays, edits and protocol messages
	Text        string
	Image       *Attachment
}

// MenuItem is one selectable entry of an interactive menu.
// ID is what the user's client sends back when it is tapped.
type MenuItem struct {
	ID    string
	Label string
}

// Menu is an interactive message with selectable items.
type Menu struct {
	Title  string
	Body   string
	Footer string
	Items  []MenuItem
}

// Transport is the set of outbound actions the bot core may take.
// Implementations must be safe for concurrent use.
type Transport interface {
	// SelfID returns the bot's own user JID, or "" before pairing.
	SelfID() string
	SendText(ctx context.Context, chat, text string) error
	React(ctx context.Context, chat string, ref MessageRef, emoji string) error
	MarkRead(ctx context.Context, ref MessageRef) error
	// ResolveContact reports whether id is a known contact.
	ResolveContact(ctx context.Context, id string) (bool, error)
	DownloadMedia(ctx context.Context, att *Attachment) ([]byte, error)
	SendAudio(ctx context.Context, chat string, data []byte, mime string) error
	SendSticker(ctx context.Context, chat string, data []byte, mime string) error
	SendMenu(ctx context.Context, chat string, menu Menu) error
}

// Subscriber consumes inbound message events from a live session.
// Events are delivered one at a time in arrival order.
type Subscriber interface {
	HandleMessage(ctx context.Context, tr Transport, evt *MessageEvent)
}

// SubscriberFunc adapts a function to Subscriber.
type SubscriberFunc func(ctx context.Context, tr Transport, evt *MessageEvent)

// HandleMessage calls f.
func (f SubscriberFunc) HandleMessage(ctx context.Context, tr Transport, evt *MessageEvent) {
	f(ctx, tr, evt)
}
