// Package rules implements the stateless keyword and reaction rules that
// run on every permitted message before command parsing.
package rules

import (
	"context"
	"strings"
	"sync/atomic"

	"github.com/Deneth123456789/My-new-bot/internal/config"
	. "github.com/Deneth123456789/My-new-bot/internal/logging"
	"github.com/Deneth123456789/My-new-bot/internal/transport"
)

// Message is the part of a normalized message the rules look at.
type Message struct {
	Chat string
	Text string // lower-cased, trimmed
	Ref  transport.MessageRef
}

// Rule is a single predicate with its action.
type Rule interface {
	Name() string
	Match(msg Message) bool
	Apply(ctx context.Context, tr transport.Transport, msg Message) error
}

// Engine evaluates its rules in order. Every matching rule fires.
type Engine struct {
	rules atomic.Pointer[[]Rule]
}

// NewEngine builds an engine from config.
func NewEngine(cfg config.RulesConfig) *Engine {
	e := &Engine{}
	e.Update(cfg)
	return e
}

// Update swaps in rules built from cfg. Safe while Evaluate runs.
func (e *Engine) Update(cfg config.RulesConfig) {
	built := Build(cfg)
	e.rules.Store(&built)
	L_debug("rules: loaded", "count", len(built))
}

// Build turns config into the ordered rule list:
// save keywords, trigger reaction, greetings.
func Build(cfg config.RulesConfig) []Rule {
	var out []Rule
	if len(cfg.SaveKeywords) > 0 && cfg.SaveReply != "" {
		out = append(out, NewKeywordReply("save", cfg.SaveKeywords, cfg.SaveReply))
	}
	if cfg.ReactTrigger != "" && cfg.ReactEmoji != "" {
		out = append(out, &ContainsReact{Trigger: normalize(cfg.ReactTrigger), Emoji: cfg.ReactEmoji})
	}
	if len(cfg.Greetings) > 0 {
		out = append(out, NewGreetings(cfg.Greetings))
	}
	return out
}

// Evaluate runs every matching rule. Failures are logged and do not stop
// later rules. Returns the number of rules that matched.
func (e *Engine) Evaluate(ctx context.Context, tr transport.Transport, msg Message) int {
	rules := e.rules.Load()
	if rules == nil {
		return 0
	}
	matched := 0
	for _, r := range *rules {
		if !r.Match(msg) {
			continue
		}
		matched++
		if err := r.Apply(ctx, tr, msg); err != nil {
			L_warn("rules: action failed", "rule", r.Name(), "chat", msg.Chat, "error", err)
		}
	}
	return matched
}

func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// KeywordReply answers with a fixed reply when the text equals a keyword.
type KeywordReply struct {
	name     string
	keywords map[string]struct{}
	reply    string
}

// NewKeywordReply normalizes keywords for exact matching.
func NewKeywordReply(name string, keywords []string, reply string) *KeywordReply {
	set := make(map[string]struct{}, len(keywords))
	for _, k := range keywords {
		if k = normalize(k); k != "" {
			set[k] = struct{}{}
		}
	}
	return &KeywordReply{name: name, keywords: set, reply: reply}
}

func (r *KeywordReply) Name() string { return r.name }

func (r *KeywordReply) Match(msg Message) bool {
	_, ok := r.keywords[msg.Text]
	return ok
}

func (r *KeywordReply) Apply(ctx context.Context, tr transport.Transport, msg Message) error {
	return tr.SendText(ctx, msg.Chat, r.reply)
}

// ContainsReact reacts to any message containing Trigger.
type ContainsReact struct {
	Trigger string
	Emoji   string
}

func (r *ContainsReact) Name() string { return "react:" + r.Trigger }

func (r *ContainsReact) Match(msg Message) bool {
	return strings.Contains(msg.Text, r.Trigger)
}

func (r *ContainsReact) Apply(ctx context.Context, tr transport.Transport, msg Message) error {
	return tr.React(ctx, msg.Chat, msg.Ref, r.Emoji)
}

// Greetings maps exact greeting words to their replies.
type Greetings struct {
	replies map[string]string
}

// NewGreetings normalizes the greeting keys.
func NewGreetings(m map[string]string) *Greetings {
	g := &Greetings{replies: make(map[string]string, len(m))}
	for k, v := range m {
		if k = normalize(k); k != "" && v != "" {
			g.replies[k] = v
		}
	}
	return g
}

func (g *Greetings) Name() string { return "greetings" }

func (g *Greetings) Match(msg Message) bool {
	_, ok := g.replies[msg.Text]
	return ok
}

func (g *Greetings) Apply(ctx context.Context, tr transport.Transport, msg Message) error {
	return tr.SendText(ctx, msg.Chat, g.replies[msg.Text])
}
