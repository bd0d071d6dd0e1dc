// Package commands parses prefixed command text and runs the matching
// handlers in a fixed order.
package commands

import (
	"context"
	"strings"
	"sync"
	"unicode"
	"unicode/utf8"

	. "github.com/Deneth123456789/My-new-bot/internal/logging"
	"github.com/Deneth123456789/My-new-bot/internal/metrics"
	"github.com/Deneth123456789/My-new-bot/internal/transport"
)

// Command is one prefixed command.
type Command struct {
	Name        string   // without prefix, e.g. "ping"
	Description string   // shown in help listings
	Usage       string   // argument hint, e.g. "<song name>"
	Aliases     []string // e.g. ["help"]
	TakesArgs   bool     // also matches "<name> <args>"
	Handler     CommandHandler
}

// CommandHandler is the function signature for command handlers
type CommandHandler func(ctx context.Context, args *CommandArgs) *CommandResult

// CommandArgs is passed to a handler
type CommandArgs struct {
	Transport transport.Transport
	Input     Input
	Prefix    string
	RawArgs   string // original-case text after the command name, trimmed
}

// Manager holds commands in evaluation order. Every command whose
// predicate matches runs, not only the first.
type Manager struct {
	mu       sync.RWMutex
	prefix   string
	commands []*Command
}

// NewManager returns an empty manager using prefix.
func NewManager(prefix string) *Manager {
	return &Manager{prefix: strings.ToLower(prefix)}
}

// New returns a manager with the builtin commands registered in order:
// start, ping, menu, info, sticker, quote, song.
func New(prefix string, deps Deps) *Manager {
	m := NewManager(prefix)
	registerBuiltins(m, deps)
	return m
}

// Register appends a command to the evaluation order.
func (m *Manager) Register(cmd *Command) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.commands = append(m.commands, cmd)
}

// List returns the commands in evaluation order.
func (m *Manager) List() []*Command {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]*Command(nil), m.commands...)
}

// Prefix returns the current command prefix.
func (m *Manager) Prefix() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.prefix
}

// SetPrefix changes the prefix, e.g. after a config reload. Message text
// is lower-cased before matching, so the prefix is too.
func (m *Manager) SetPrefix(prefix string) {
	if prefix == "" {
		return
	}
	m.mu.Lock()
	m.prefix = strings.ToLower(prefix)
	m.mu.Unlock()
}

// Dispatch runs every command matching in.Text and sends non-empty
// results to the chat. It returns how many commands matched.
func (m *Manager) Dispatch(ctx context.Context, tr transport.Transport, in Input) int {
	m.mu.RLock()
	prefix := m.prefix
	cmds := append([]*Command(nil), m.commands...)
	m.mu.RUnlock()

	if !strings.HasPrefix(in.Text, prefix) {
		return 0
	}
	body := in.Text[len(prefix):]
	original := strings.TrimSpace(in.OriginalText)
	if strings.HasPrefix(original, prefix) {
		original = original[len(prefix):]
	}

	matched := 0
	for _, cmd := range cmds {
		rawArgs, ok := cmd.match(body, original)
		if !ok {
			continue
		}
		matched++
		L_debug("commands: executing", "command", cmd.Name, "chat", in.Chat)

		result := cmd.Handler(ctx, &CommandArgs{
			Transport: tr,
			Input:     in,
			Prefix:    prefix,
			RawArgs:   rawArgs,
		})
		if result != nil && result.Error != nil {
			metrics.MetricFail("commands", cmd.Name)
		} else {
			metrics.MetricSuccess("commands", cmd.Name)
		}
		if result == nil {
			continue
		}
		if result.Error != nil {
			L_warn("commands: handler failed", "command", cmd.Name, "error", result.Error)
		}
		if result.Text != "" {
			if err := tr.SendText(ctx, in.Chat, result.Text); err != nil {
				L_error("commands: reply failed", "command", cmd.Name, "chat", in.Chat, "error", err)
			}
		}
	}
	return matched
}

// match checks body (normalized text after the prefix) against the
// command name and aliases. Arguments are cut from the original-case text.
func (c *Command) match(body, original string) (string, bool) {
	names := append([]string{c.Name}, c.Aliases...)
	for _, name := range names {
		if body == name {
			return "", true
		}
		if !c.TakesArgs || !strings.HasPrefix(body, name) {
			continue
		}
		next, _ := utf8.DecodeRuneInString(body[len(name):])
		if !unicode.IsSpace(next) {
			continue
		}
		if len(original) < len(name) {
			return strings.TrimSpace(body[len(name):]), true
		}
		return strings.TrimSpace(original[len(name):]), true
	}
	return "", false
}
