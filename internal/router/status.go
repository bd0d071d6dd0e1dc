package router

import (
	"context"
	"sync"

	. "github.com/Deneth123456789/My-new-bot/internal/logging"
	"github.com/Deneth123456789/My-new-bot/internal/metrics"
	"github.com/Deneth123456789/My-new-bot/internal/transport"
)

// StatusWatcher views status updates and reacts to their author. It runs
// as its own subscriber, independent of the permit gate.
type StatusWatcher struct {
	mu      sync.RWMutex
	enabled bool
	emoji   string
}

// NewStatusWatcher returns a watcher reacting with emoji.
func NewStatusWatcher(enabled bool, emoji string) *StatusWatcher {
	return &StatusWatcher{enabled: enabled, emoji: emoji}
}

// Configure updates the watcher, e.g. after a config reload.
func (w *StatusWatcher) Configure(enabled bool, emoji string) {
	w.mu.Lock()
	w.enabled, w.emoji = enabled, emoji
	w.mu.Unlock()
}

// HandleMessage implements transport.Subscriber.
func (w *StatusWatcher) HandleMessage(ctx context.Context, tr transport.Transport, evt *transport.MessageEvent) {
	if Classify(evt) != ClassStatus {
		return
	}

	w.mu.RLock()
	enabled, emoji := w.enabled, w.emoji
	w.mu.RUnlock()
	if !enabled {
		return
	}

	if err := tr.MarkRead(ctx, evt.Ref); err != nil {
		L_warn("status: mark read failed", "author", evt.Sender, "error", err)
	} else {
		metrics.MetricInc("router", "status_viewed")
	}
	if emoji == "" {
		return
	}
	if err := tr.React(ctx, evt.Sender, evt.Ref, emoji); err != nil {
		L_warn("status: reaction failed", "author", evt.Sender, "error", err)
		return
	}
	L_debug("status: viewed and reacted", "author", evt.Sender)
}
