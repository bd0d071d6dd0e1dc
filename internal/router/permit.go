package router

import (
	"context"

	. "github.com/Deneth123456789/My-new-bot/internal/logging"
	"github.com/Deneth123456789/My-new-bot/internal/metrics"
	"github.com/Deneth123456789/My-new-bot/internal/transport"
)

// PermitDecision is the outcome of the contact lookup for one message.
type PermitDecision struct {
	Known bool
}

// Decide looks the sender up. A failed lookup counts as unknown.
func Decide(ctx context.Context, tr transport.Transport, sender string) PermitDecision {
	known, err := tr.ResolveContact(ctx, sender)
	if err != nil {
		L_warn("permit: contact lookup failed, treating as unknown", "sender", sender, "error", err)
		return PermitDecision{}
	}
	return PermitDecision{Known: known}
}

// permitted sends the permit notice to unknown senders and reports whether
// processing may continue.
func (r *Router) permitted(ctx context.Context, tr transport.Transport, evt *transport.MessageEvent) bool {
	if Decide(ctx, tr, evt.Sender).Known {
		return true
	}

	r.mu.RLock()
	notice := r.notice
	r.mu.RUnlock()

	L_info("permit: unknown sender", "sender", evt.Sender)
	metrics.MetricInc("router", "permit_notice")
	if err := tr.SendText(ctx, evt.Chat, notice); err != nil {
		L_error("permit: notice not sent", "chat", evt.Chat, "error", err)
	}
	return false
}
