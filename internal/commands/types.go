package commands

import (
	"context"

	"github.com/Deneth123456789/My-new-bot/internal/transport"
)

// Input is a permitted direct message offered to the dispatcher.
type Input struct {
	Chat         string
	Sender       string
	Text         string // lower-cased, trimmed
	OriginalText string
	Ref          transport.MessageRef
	Image        *transport.Attachment
}

// CommandResult is what a handler produced. A non-empty Text is sent back
// to the chat; handlers that send their own output return nil.
type CommandResult struct {
	Text  string
	Error error
}

// SongRequester starts a song search-and-send job for a chat.
// It must not block on the download.
type SongRequester interface {
	Request(ctx context.Context, tr transport.Transport, chat, query string)
}

// StickerMaker turns raw image bytes into sticker bytes and their MIME type.
type StickerMaker func(data []byte) ([]byte, string, error)

// Deps are the collaborators the builtin commands need.
type Deps struct {
	Songs    SongRequester
	Stickers StickerMaker
	// Intn picks the quote index; defaults to math/rand.
	Intn func(n int) int
}
