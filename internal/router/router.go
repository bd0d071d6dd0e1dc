// Package router classifies inbound message events, applies the
// unknown-sender permit gate and hands permitted direct messages to the
// rule engine and the command dispatcher.
package router

import (
	"context"
	"strings"
	"sync"

	"github.com/Deneth123456789/My-new-bot/internal/commands"
	. "github.com/Deneth123456789/My-new-bot/internal/logging"
	"github.com/Deneth123456789/My-new-bot/internal/rules"
	"github.com/Deneth123456789/My-new-bot/internal/transport"
)

// Class is the classifier's verdict for one event.
type Class int

const (
	ClassDrop   Class = iota // out of scope: self, group, replay, broadcast list
	ClassStatus              // status update from someone else
	ClassDirect              // live one-to-one message
)

func (c Class) String() string {
	switch c {
	case ClassStatus:
		return "status"
	case ClassDirect:
		return "direct"
	default:
		return "drop"
	}
}

// Classify decides which path an event takes.
func Classify(evt *transport.MessageEvent) Class {
	switch {
	case evt == nil, evt.IsFromSelf, !evt.Live:
		return ClassDrop
	case evt.IsStatus:
		return ClassStatus
	case evt.IsGroup, evt.IsBroadcast:
		return ClassDrop
	default:
		return ClassDirect
	}
}

// NormalizedMessage is a permitted direct message ready for rules and commands.
type NormalizedMessage struct {
	SenderID     string
	ChatID       string
	Text         string // lower-cased, trimmed
	OriginalText string
	Ref          transport.MessageRef
	Image        *transport.Attachment
}

// Normalize lower-cases and trims the text of evt.
func Normalize(evt *transport.MessageEvent) NormalizedMessage {
	return NormalizedMessage{
		SenderID:     evt.Sender,
		ChatID:       evt.Chat,
		Text:         strings.ToLower(strings.TrimSpace(evt.Text)),
		OriginalText: evt.Text,
		Ref:          evt.Ref,
		Image:        evt.Image,
	}
}

// Router is the direct-message subscriber.
type Router struct {
	rules    *rules.Engine
	commands *commands.Manager

	mu     sync.RWMutex
	notice string
}

// New returns a router sending notice to unknown senders.
func New(engine *rules.Engine, cmds *commands.Manager, notice string) *Router {
	return &Router{rules: engine, commands: cmds, notice: notice}
}

// SetNotice replaces the permit notice, e.g. after a config reload.
func (r *Router) SetNotice(notice string) {
	r.mu.Lock()
	r.notice = notice
	r.mu.Unlock()
}

// HandleMessage implements transport.Subscriber.
func (r *Router) HandleMessage(ctx context.Context, tr transport.Transport, evt *transport.MessageEvent) {
	if Classify(evt) != ClassDirect {
		return
	}

	if !r.permitted(ctx, tr, evt) {
		return
	}

	msg := Normalize(evt)
	L_info("message received", "from", msg.SenderID, "name", evt.PushName, "text", truncate(msg.OriginalText, 80))

	r.rules.Evaluate(ctx, tr, rules.Message{Chat: msg.ChatID, Text: msg.Text, Ref: msg.Ref})
	r.commands.Dispatch(ctx, tr, commands.Input{
		Chat:         msg.ChatID,
		Sender:       msg.SenderID,
		Text:         msg.Text,
		OriginalText: msg.OriginalText,
		Ref:          msg.Ref,
		Image:        msg.Image,
	})
}

func truncate(s string, n int) string {
	if len([]rune(s)) <= n {
		return s
	}
	return string([]rune(s)[:n]) + "..."
}
