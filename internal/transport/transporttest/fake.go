// Package transporttest provides an in-memory transport.Transport that
// records every outbound action.
package transporttest

import (
	"context"
	"sync"

	"github.com/Deneth123456789/My-new-bot/internal/transport"
)

// Action kinds recorded by Fake.
const (
	KindText    = "text"
	KindReact   = "react"
	KindRead    = "read"
	KindAudio   = "audio"
	KindSticker = "sticker"
	KindMenu    = "menu"
)

// Action is one recorded outbound call.
type Action struct {
	Kind string
	Chat string
	Text string // text body, emoji, or MIME type for media
	Ref  transport.MessageRef
	Data []byte
	Menu *transport.Menu
}

// Fake records outbound calls. Contacts lists the known senders.
// Setting an *Err field makes the matching call fail.
type Fake struct {
	Self       string
	Contacts   map[string]bool
	Media      []byte
	ResolveErr error
	SendErr    error
	AudioErr   error
	MediaErr   error

	mu      sync.Mutex
	actions []Action
	notify  chan Action
}

// New returns a Fake whose own JID is self.
func New(self string) *Fake {
	return &Fake{
		Self:     self,
		Contacts: map[string]bool{},
		notify:   make(chan Action, 64),
	}
}

func (f *Fake) record(a Action) {
	f.mu.Lock()
	f.actions = append(f.actions, a)
	f.mu.Unlock()
	select {
	case f.notify <- a:
	default:
	}
}

// Actions returns a copy of every action recorded so far.
func (f *Fake) Actions() []Action {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]Action(nil), f.actions...)
}

// OfKind returns the recorded actions of one kind.
func (f *Fake) OfKind(kind string) []Action {
	var out []Action
	for _, a := range f.Actions() {
		if a.Kind == kind {
			out = append(out, a)
		}
	}
	return out
}

// Texts returns the bodies of every SendText call.
func (f *Fake) Texts() []string {
	var out []string
	for _, a := range f.OfKind(KindText) {
		out = append(out, a.Text)
	}
	return out
}

// Notify delivers each action as it is recorded (buffered, lossy when full).
func (f *Fake) Notify() <-chan Action { return f.notify }

// Reset clears the recorded actions.
func (f *Fake) Reset() {
	f.mu.Lock()
	f.actions = nil
	f.mu.Unlock()
}

func (f *Fake) SelfID() string { return f.Self }

func (f *Fake) SendText(_ context.Context, chat, text string) error {
	if f.SendErr != nil {
		return f.SendErr
	}
	f.record(Action{Kind: KindText, Chat: chat, Text: text})
	return nil
}

func (f *Fake) React(_ context.Context, chat string, ref transport.MessageRef, emoji string) error {
	if f.SendErr != nil {
		return f.SendErr
	}
	f.record(Action{Kind: KindReact, Chat: chat, Text: emoji, Ref: ref})
	return nil
}

func (f *Fake) MarkRead(_ context.Context, ref transport.MessageRef) error {
	f.record(Action{Kind: KindRead, Chat: ref.Chat, Ref: ref})
	return nil
}

func (f *Fake) ResolveContact(_ context.Context, id string) (bool, error) {
	if f.ResolveErr != nil {
		return false, f.ResolveErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.Contacts[id], nil
}

func (f *Fake) DownloadMedia(_ context.Context, att *transport.Attachment) ([]byte, error) {
	if f.MediaErr != nil {
		return nil, f.MediaErr
	}
	if att == nil || f.Media == nil {
		return nil, transport.ErrNoMedia
	}
	return f.Media, nil
}

func (f *Fake) SendAudio(_ context.Context, chat string, data []byte, mime string) error {
	if f.AudioErr != nil {
		return f.AudioErr
	}
	f.record(Action{Kind: KindAudio, Chat: chat, Text: mime, Data: data})
	return nil
}

func (f *Fake) SendSticker(_ context.Context, chat string, data []byte, mime string) error {
	if f.SendErr != nil {
		return f.SendErr
	}
	f.record(Action{Kind: KindSticker, Chat: chat, Text: mime, Data: data})
	return nil
}

func (f *Fake) SendMenu(_ context.Context, chat string, menu transport.Menu) error {
	if f.SendErr != nil {
		return f.SendErr
	}
	f.record(Action{Kind: KindMenu, Chat: chat, Text: menu.Body, Menu: &menu})
	return nil
}

var _ transport.Transport = (*Fake)(nil)
