package commands

import (
	"context"
	"fmt"
	"math/rand/v2"
	"strings"

	"github.com/Deneth123456789/My-new-bot/internal/transport"
)

// Fixed replies
const (
	PongText = "Pong!"

	InfoText = "Hello, I'm the DANUU-MD bot. I was created to automate tasks on WhatsApp."

	// StartText is formatted with the command prefix.
	StartText = "හලෝ! මම DANUU-MD Bot.\n" +
		"මම මගේ නිර්මාතෘ විසින් විශේෂයෙන් නිර්මාණය කරන ලද්දේ ඔබ වෙනුවෙන් සේවය කිරීමටයි. " +
		"මගේ සියලු විධාන ලැයිස්තුව බැලීමට %smenu ටයිප් කරන්න."

	MenuTitle  = "*DANUU-MD Bot Menu*"
	MenuBody   = "ඔබට අවශ්‍ය විධානය තෝරාගන්න."
	MenuFooter = "Powered by DANUU-MD"

	SongUsage     = "Please provide a song name. Example: %ssong Bossa no.1"
	StickerUsage  = "Send an image with the caption %ssticker to turn it into a sticker."
	StickerFailed = "Sorry, I could not make a sticker from that image."
)

// Quotes is the fixed list the quote command picks from.
var Quotes = []string{
	"The only way to do great work is to love what you do. - Steve Jobs",
	"Success is not final, failure is not fatal: it is the courage to continue that counts. - Winston Churchill",
	"The best way to predict the future is to create it. - Peter Drucker",
	"Do not wait for a perfect time. Take the moment and make it perfect. - Sri Chinmoy",
}

// menuItems declares the interactive menu; ids are command names.
var menuItems = []struct{ name, label string }{
	{"info", "Info"},
	{"ping", "Ping"},
	{"song", "Song Download"},
}

func registerBuiltins(m *Manager, deps Deps) {
	if deps.Intn == nil {
		deps.Intn = rand.IntN
	}

	m.Register(&Command{
		Name:        "start",
		Description: "Introduce the bot",
		Handler: func(_ context.Context, args *CommandArgs) *CommandResult {
			return &CommandResult{Text: fmt.Sprintf(StartText, args.Prefix)}
		},
	})

	m.Register(&Command{
		Name:        "ping",
		Description: "Check the bot is alive",
		Handler: func(context.Context, *CommandArgs) *CommandResult {
			return &CommandResult{Text: PongText}
		},
	})

	m.Register(&Command{
		Name:        "menu",
		Description: "Show the command menu",
		Aliases:     []string{"help"},
		Handler: func(ctx context.Context, args *CommandArgs) *CommandResult {
			menu := BuildMenu(args.Prefix, m.List())
			if err := args.Transport.SendMenu(ctx, args.Input.Chat, menu); err != nil {
				return &CommandResult{Error: fmt.Errorf("send menu: %w", err)}
			}
			return nil
		},
	})

	m.Register(&Command{
		Name:        "info",
		Description: "About this bot",
		Handler: func(context.Context, *CommandArgs) *CommandResult {
			return &CommandResult{Text: InfoText}
		},
	})

	m.Register(&Command{
		Name:        "sticker",
		Description: "Turn the attached image into a sticker",
		Handler: func(ctx context.Context, args *CommandArgs) *CommandResult {
			return handleSticker(ctx, args, deps.Stickers)
		},
	})

	m.Register(&Command{
		Name:        "quote",
		Description: "Send a random quote",
		Handler: func(context.Context, *CommandArgs) *CommandResult {
			return &CommandResult{Text: Quotes[deps.Intn(len(Quotes))]}
		},
	})

	m.Register(&Command{
		Name:        "song",
		Description: "Search and send a song as audio",
		Usage:       "<song name>",
		TakesArgs:   true,
		Handler: func(ctx context.Context, args *CommandArgs) *CommandResult {
			if args.RawArgs == "" {
				return &CommandResult{Text: fmt.Sprintf(SongUsage, args.Prefix)}
			}
			if deps.Songs == nil {
				return &CommandResult{Error: fmt.Errorf("song pipeline not configured")}
			}
			deps.Songs.Request(ctx, args.Transport, args.Input.Chat, args.RawArgs)
			return nil
		},
	})
}

// BuildMenu returns the interactive menu for prefix. The body lists cmds
// so clients that hide buttons still show every command.
func BuildMenu(prefix string, cmds []*Command) transport.Menu {
	menu := transport.Menu{
		Title:  MenuTitle,
		Body:   MenuBody,
		Footer: MenuFooter,
	}
	if listing := commandListing(prefix, cmds); listing != "" {
		menu.Body += "\n\n" + listing
	}
	for _, item := range menuItems {
		menu.Items = append(menu.Items, transport.MenuItem{ID: prefix + item.name, Label: item.label})
	}
	return menu
}

func commandListing(prefix string, cmds []*Command) string {
	var b strings.Builder
	for _, cmd := range cmds {
		if cmd.Description == "" {
			continue
		}
		if b.Len() > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(prefix + cmd.Name)
		if cmd.Usage != "" {
			b.WriteString(" " + cmd.Usage)
		}
		b.WriteString(" - " + cmd.Description)
	}
	return b.String()
}

func handleSticker(ctx context.Context, args *CommandArgs, makeSticker StickerMaker) *CommandResult {
	if args.Input.Image == nil {
		return &CommandResult{Text: fmt.Sprintf(StickerUsage, args.Prefix)}
	}
	if makeSticker == nil {
		return &CommandResult{Error: fmt.Errorf("sticker maker not configured")}
	}

	data, err := args.Transport.DownloadMedia(ctx, args.Input.Image)
	if err != nil {
		return &CommandResult{Text: StickerFailed, Error: fmt.Errorf("download image: %w", err)}
	}
	sticker, mime, err := makeSticker(data)
	if err != nil {
		return &CommandResult{Text: StickerFailed, Error: fmt.Errorf("prepare sticker: %w", err)}
	}
	if err := args.Transport.SendSticker(ctx, args.Input.Chat, sticker, mime); err != nil {
		return &CommandResult{Error: fmt.Errorf("send sticker: %w", err)}
	}
	return nil
}
