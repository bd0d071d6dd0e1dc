package commands

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/Deneth123456789/My-new-bot/internal/transport"
	"github.com/Deneth123456789/My-new-bot/internal/transport/transporttest"
)

const chat = "94771234567@s.whatsapp.net"

type songCall struct{ chat, query string }

type fakeSongs struct {
	mu    sync.Mutex
	calls []songCall
}

func (f *fakeSongs) Request(_ context.Context, _ transport.Transport, chat, query string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, songCall{chat, query})
}

func input(text string) Input {
	return Input{
		Chat:         chat,
		Sender:       chat,
		Text:         strings.ToLower(strings.TrimSpace(text)),
		OriginalText: text,
		Ref:          transport.MessageRef{Chat: chat, Sender: chat, ID: "ABC"},
	}
}

func newTestManager(songs *fakeSongs) *Manager {
	return New(".", Deps{
		Songs: songs,
		Stickers: func(data []byte) ([]byte, string, error) {
			return append([]byte("sticker:"), data...), "image/webp", nil
		},
		Intn: func(int) int { return 2 },
	})
}

func TestBuiltinOrder(t *testing.T) {
	m := newTestManager(&fakeSongs{})
	var names []string
	for _, cmd := range m.List() {
		names = append(names, cmd.Name)
	}
	want := "start,ping,menu,info,sticker,quote,song"
	if got := strings.Join(names, ","); got != want {
		t.Errorf("order = %s, want %s", got, want)
	}
}

func TestTextCommands(t *testing.T) {
	tests := []struct {
		text string
		want string
	}{
		{".ping", "Pong!"},
		{".PING", "Pong!"},
		{"  .ping  ", "Pong!"},
		{".info", InfoText},
		{".quote", Quotes[2]},
		{".start", "හලෝ! මම DANUU-MD Bot."},
		{".song", "Please provide a song name. Example: .song Bossa no.1"},
		{".song    ", "Please provide a song name. Example: .song Bossa no.1"},
		{".sticker", "Send an image with the caption .sticker"},
	}
	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			fake := transporttest.New("bot@s.whatsapp.net")
			songs := &fakeSongs{}
			m := newTestManager(songs)

			if n := m.Dispatch(context.Background(), fake, input(tt.text)); n != 1 {
				t.Fatalf("matched %d commands", n)
			}
			texts := fake.Texts()
			if len(texts) != 1 || !strings.HasPrefix(texts[0], tt.want) {
				t.Errorf("replies = %q, want prefix %q", texts, tt.want)
			}
			if len(fake.OfKind(transporttest.KindReact)) != 0 {
				t.Error("commands must not react")
			}
			if len(songs.calls) != 0 {
				t.Errorf("song job started: %+v", songs.calls)
			}
		})
	}
}

func TestStartMentionsMenu(t *testing.T) {
	fake := transporttest.New("bot")
	m := newTestManager(&fakeSongs{})
	m.SetPrefix("!")
	m.Dispatch(context.Background(), fake, input("!start"))
	if texts := fake.Texts(); len(texts) != 1 || !strings.Contains(texts[0], "!menu") {
		t.Errorf("start reply = %q", texts)
	}
}

func TestNonCommandsIgnored(t *testing.T) {
	for _, text := range []string{"ping", ".pingg", ".ping me", "hello", ".unknown", ". ping", ""} {
		fake := transporttest.New("bot")
		m := newTestManager(&fakeSongs{})
		if n := m.Dispatch(context.Background(), fake, input(text)); n != 0 {
			t.Errorf("%q matched %d commands", text, n)
		}
		if len(fake.Actions()) != 0 {
			t.Errorf("%q produced %+v", text, fake.Actions())
		}
	}
}

func TestSongQueryKeepsCase(t *testing.T) {
	fake := transporttest.New("bot")
	songs := &fakeSongs{}
	m := newTestManager(songs)

	m.Dispatch(context.Background(), fake, input(".song  Bossa No.1 "))

	if len(songs.calls) != 1 {
		t.Fatalf("calls = %+v", songs.calls)
	}
	if songs.calls[0].query != "Bossa No.1" || songs.calls[0].chat != chat {
		t.Errorf("call = %+v", songs.calls[0])
	}
	if len(fake.Actions()) != 0 {
		t.Errorf("dispatcher sent %+v; the pipeline owns song replies", fake.Actions())
	}
}

func TestUpperCasePrefixMatches(t *testing.T) {
	fake := transporttest.New("bot")
	m := New("D", Deps{})
	if n := m.Dispatch(context.Background(), fake, input("DPING")); n != 1 {
		t.Fatalf("matched = %d", n)
	}
	m.SetPrefix("Q")
	if n := m.Dispatch(context.Background(), fake, input("Qping")); n != 1 {
		t.Fatalf("matched after SetPrefix = %d", n)
	}
	if got := strings.Join(fake.Texts(), "|"); got != "Pong!|Pong!" {
		t.Errorf("replies = %s", got)
	}
}

func TestMenu(t *testing.T) {
	for _, text := range []string{".menu", ".help"} {
		fake := transporttest.New("bot")
		m := newTestManager(&fakeSongs{})
		m.Dispatch(context.Background(), fake, input(text))

		menus := fake.OfKind(transporttest.KindMenu)
		if len(menus) != 1 {
			t.Fatalf("%s: menus = %+v", text, fake.Actions())
		}
		menu := menus[0].Menu
		if menu.Footer != MenuFooter || menu.Title != MenuTitle {
			t.Errorf("menu = %+v", menu)
		}
		ids := []string{}
		for _, item := range menu.Items {
			ids = append(ids, item.ID)
		}
		if got := strings.Join(ids, " "); got != ".info .ping .song" {
			t.Errorf("menu ids = %s", got)
		}
		if !strings.HasPrefix(menu.Body, MenuBody+"\n\n.start - Introduce the bot\n") {
			t.Errorf("menu body = %q", menu.Body)
		}
		if !strings.HasSuffix(menu.Body, "\n.song <song name> - Search and send a song as audio") {
			t.Errorf("menu body should end with the song usage, got %q", menu.Body)
		}
	}
}

func TestSticker(t *testing.T) {
	fake := transporttest.New("bot")
	fake.Media = []byte("jpeg")
	m := newTestManager(&fakeSongs{})

	in := input(".sticker")
	in.Image = &transport.Attachment{Kind: "image", MIME: "image/jpeg"}
	m.Dispatch(context.Background(), fake, in)

	stickers := fake.OfKind(transporttest.KindSticker)
	if len(stickers) != 1 {
		t.Fatalf("actions = %+v", fake.Actions())
	}
	if string(stickers[0].Data) != "sticker:jpeg" || stickers[0].Text != "image/webp" {
		t.Errorf("sticker = %+v", stickers[0])
	}
	if len(fake.Texts()) != 0 {
		t.Errorf("unexpected texts %q", fake.Texts())
	}
}

func TestStickerDownloadFailure(t *testing.T) {
	fake := transporttest.New("bot")
	fake.MediaErr = errors.New("expired")
	m := newTestManager(&fakeSongs{})

	in := input(".sticker")
	in.Image = &transport.Attachment{Kind: "image"}
	m.Dispatch(context.Background(), fake, in)

	if texts := fake.Texts(); len(texts) != 1 || texts[0] != StickerFailed {
		t.Errorf("texts = %q", texts)
	}
}

func TestAllMatchingCommandsRun(t *testing.T) {
	fake := transporttest.New("bot")
	m := newTestManager(&fakeSongs{})
	m.Register(&Command{
		Name: "ping",
		Handler: func(context.Context, *CommandArgs) *CommandResult {
			return &CommandResult{Text: "second ping"}
		},
	})

	if n := m.Dispatch(context.Background(), fake, input(".ping")); n != 2 {
		t.Fatalf("matched = %d", n)
	}
	if got := strings.Join(fake.Texts(), "|"); got != "Pong!|second ping" {
		t.Errorf("replies = %s", got)
	}
}

func TestSendFailureIsContained(t *testing.T) {
	fake := transporttest.New("bot")
	fake.SendErr = errors.New("socket closed")
	m := newTestManager(&fakeSongs{})

	if n := m.Dispatch(context.Background(), fake, input(".ping")); n != 1 {
		t.Errorf("matched = %d", n)
	}
}
