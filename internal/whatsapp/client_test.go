package whatsapp

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/Deneth123456789/My-new-bot/internal/transport"
)

func TestSplitMessage(t *testing.T) {
	if got := splitMessage("short", 100); len(got) != 1 || got[0] != "short" {
		t.Errorf("short text split: %q", got)
	}

	lines := strings.Repeat("line of text\n", 20)
	chunks := splitMessage(lines, 60)
	if strings.Join(chunks, "") != lines {
		t.Fatal("chunks do not reassemble")
	}
	for _, c := range chunks[:len(chunks)-1] {
		if !strings.HasSuffix(c, "\n") {
			t.Errorf("chunk %q should end at a newline", c)
		}
	}

	sinhala := strings.Repeat("සෙව්", 50)
	for _, c := range splitMessage(sinhala, 31) {
		if len(c) > 31 || !utf8.ValidString(c) {
			t.Errorf("bad chunk %q (%d bytes)", c, len(c))
		}
	}
}

func TestBuildButtons(t *testing.T) {
	msg := buildButtons(transport.Menu{
		Title:  "DANUU-MD",
		Body:   "pick one",
		Footer: "footer",
		Items:  []transport.MenuItem{{ID: ".info", Label: "Info"}, {ID: ".ping", Label: "Ping"}},
	})
	bm := msg.GetButtonsMessage()
	if bm == nil {
		t.Fatal("no buttons message")
	}
	if !strings.Contains(bm.GetContentText(), "*DANUU-MD*") || !strings.Contains(bm.GetContentText(), "pick one") {
		t.Errorf("content = %q", bm.GetContentText())
	}
	if bm.GetFooterText() != "footer" {
		t.Errorf("footer = %q", bm.GetFooterText())
	}
	if len(bm.GetButtons()) != 2 {
		t.Fatalf("buttons = %d", len(bm.GetButtons()))
	}
	b := bm.GetButtons()[1]
	if b.GetButtonID() != ".ping" || b.GetButtonText().GetDisplayText() != "Ping" {
		t.Errorf("button = %v", b)
	}
}
