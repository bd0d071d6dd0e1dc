package whatsapp

import (
	"testing"
	"time"
)

func TestBackoffDelay(t *testing.T) {
	b := Backoff{Initial: 2 * time.Second, Max: 30 * time.Second}
	tests := []struct {
		attempt int
		want    time.Duration
	}{
		{0, 0},
		{1, 2 * time.Second},
		{2, 4 * time.Second},
		{4, 16 * time.Second},
		{5, 30 * time.Second},
		{40, 30 * time.Second},
	}
	for _, tt := range tests {
		if got := b.Delay(tt.attempt); got != tt.want {
			t.Errorf("Delay(%d) = %v, want %v", tt.attempt, got, tt.want)
		}
	}
}

func TestBackoffWithoutMaxStaysPositive(t *testing.T) {
	b := Backoff{Initial: 2 * time.Second}
	if got := b.Delay(3); got != 8*time.Second {
		t.Errorf("Delay(3) = %v", got)
	}
	for _, attempt := range []int{12, 34, 70, 1000} {
		if got := b.Delay(attempt); got != ceilingDelay {
			t.Errorf("Delay(%d) = %v, want %v", attempt, got, ceilingDelay)
		}
	}
}

func TestBackoffExhausted(t *testing.T) {
	unlimited := Backoff{}
	if unlimited.Exhausted(1000) {
		t.Error("MaxAttempts 0 should never exhaust")
	}
	b := Backoff{MaxAttempts: 3}
	if b.Exhausted(3) {
		t.Error("attempt 3 of 3 should be allowed")
	}
	if !b.Exhausted(4) {
		t.Error("attempt 4 of 3 should be exhausted")
	}
}

func TestStateString(t *testing.T) {
	if StateOpen.String() != "open" || StateClosedTerminal.String() != "closed-terminal" {
		t.Errorf("unexpected names: %s %s", StateOpen, StateClosedTerminal)
	}
	if State(99).String() != "unknown" {
		t.Error("out of range state should be unknown")
	}
}
