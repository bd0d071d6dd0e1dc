package whatsapp

import (
	"time"
)

// State is the connection state of the manager.
type State int

const (
	StateConnecting State = iota
	StateOpen
	StateClosedReconnectable
	StateClosedTerminal
)

func (s State) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateOpen:
		return "open"
	case StateClosedReconnectable:
		return "closed"
	case StateClosedTerminal:
		return "closed-terminal"
	default:
		return "unknown"
	}
}

// StateChange is published on the bus for every transition.
type StateChange struct {
	State   string    `json:"state"`
	Reason  string    `json:"reason,omitempty"`
	Session uint64    `json:"session"`
	Self    string    `json:"self,omitempty"`
	At      time.Time `json:"at"`
}

// ceilingDelay caps the backoff when no Max is configured.
const ceilingDelay = time.Hour

// Backoff is the reconnect delay policy: Initial doubled per attempt,
// capped at Max (or ceilingDelay when Max is 0). MaxAttempts 0 means
// retry forever.
type Backoff struct {
	Initial     time.Duration
	Max         time.Duration
	MaxAttempts int
}

// Delay returns the wait before reconnect attempt n (1-based).
func (b Backoff) Delay(attempt int) time.Duration {
	if attempt < 1 || b.Initial <= 0 {
		return 0
	}
	limit := b.Max
	if limit <= 0 {
		limit = ceilingDelay
	}
	d := b.Initial
	for i := 1; i < attempt && d < limit; i++ {
		if d > limit/2 {
			d = limit
			break
		}
		d *= 2
	}
	return min(d, limit)
}

// Exhausted reports whether attempt n is past the limit.
func (b Backoff) Exhausted(attempt int) bool {
	return b.MaxAttempts > 0 && attempt > b.MaxAttempts
}
