package rules

import (
	"context"
	"errors"
	"testing"

	"github.com/Deneth123456789/My-new-bot/internal/config"
	"github.com/Deneth123456789/My-new-bot/internal/transport"
	"github.com/Deneth123456789/My-new-bot/internal/transport/transporttest"
)

const chat = "94770000000@s.whatsapp.net"

func msg(text string) Message {
	return Message{
		Chat: chat,
		Text: text,
		Ref:  transport.MessageRef{Chat: chat, Sender: chat, ID: "MSG1"},
	}
}

func TestEngineDefaults(t *testing.T) {
	engine := NewEngine(config.Default().Rules)

	tests := []struct {
		name      string
		text      string
		wantTexts []string
		wantReact string
	}{
		{"hello greeting", "hello", []string{"*Hi! I'm DANUU-MD bot.*"}, ""},
		{"hi greeting", "hi", []string{"*Hello! How can I help you today?*"}, ""},
		{"save keyword", "sv", []string{"HARI OYAWA AUTO SV"}, ""},
		{"sinhala save keyword", "සෙව්", []string{"HARI OYAWA AUTO SV"}, ""},
		{"trigger reaction", "who is danuu?", nil, "👍"},
		{"greeting needs exact match", "hello there", nil, ""},
		{"no match", "random text", nil, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fake := transporttest.New("bot@s.whatsapp.net")
			engine.Evaluate(context.Background(), fake, msg(tt.text))

			texts := fake.Texts()
			if len(texts) != len(tt.wantTexts) {
				t.Fatalf("texts = %q, want %q", texts, tt.wantTexts)
			}
			for i := range texts {
				if texts[i] != tt.wantTexts[i] {
					t.Errorf("text[%d] = %q, want %q", i, texts[i], tt.wantTexts[i])
				}
			}

			reacts := fake.OfKind(transporttest.KindReact)
			if tt.wantReact == "" {
				if len(reacts) != 0 {
					t.Errorf("unexpected reactions %+v", reacts)
				}
				return
			}
			if len(reacts) != 1 || reacts[0].Text != tt.wantReact || reacts[0].Ref.ID != "MSG1" {
				t.Errorf("reactions = %+v", reacts)
			}
		})
	}
}

func TestMultipleRulesFireInOrder(t *testing.T) {
	cfg := config.RulesConfig{
		SaveKeywords: []string{"danuu"},
		SaveReply:    "saved",
		ReactTrigger: "danuu",
		ReactEmoji:   "👍",
	}
	engine := NewEngine(cfg)
	fake := transporttest.New("bot")

	if n := engine.Evaluate(context.Background(), fake, msg("danuu")); n != 2 {
		t.Fatalf("matched = %d, want 2", n)
	}
	actions := fake.Actions()
	if len(actions) != 2 || actions[0].Kind != transporttest.KindText || actions[1].Kind != transporttest.KindReact {
		t.Errorf("actions = %+v", actions)
	}
}

func TestFailureDoesNotStopLaterRules(t *testing.T) {
	engine := &Engine{}
	failing := &failRule{}
	rules := []Rule{failing, NewGreetings(map[string]string{"hey": "yo"})}
	engine.rules.Store(&rules)

	fake := transporttest.New("bot")
	if n := engine.Evaluate(context.Background(), fake, msg("hey")); n != 2 {
		t.Fatalf("matched = %d", n)
	}
	if !failing.called {
		t.Error("failing rule not called")
	}
	if got := fake.Texts(); len(got) != 1 || got[0] != "yo" {
		t.Errorf("texts = %q", got)
	}
}

func TestUpdateReplacesRules(t *testing.T) {
	engine := NewEngine(config.Default().Rules)
	engine.Update(config.RulesConfig{Greetings: map[string]string{" Ayubowan ": "ආයුබෝවන්"}})

	fake := transporttest.New("bot")
	engine.Evaluate(context.Background(), fake, msg("hello"))
	engine.Evaluate(context.Background(), fake, msg("ayubowan"))

	if got := fake.Texts(); len(got) != 1 || got[0] != "ආයුබෝවන්" {
		t.Errorf("texts = %q", got)
	}
}

type failRule struct{ called bool }

func (r *failRule) Name() string       { return "fail" }
func (r *failRule) Match(Message) bool { return true }
func (r *failRule) Apply(context.Context, transport.Transport, Message) error {
	r.called = true
	return errors.New("send failed")
}
