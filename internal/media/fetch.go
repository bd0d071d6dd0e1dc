package media

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/kkdai/youtube/v2"
)

// ErrNoAudio is returned when a video has no audio-only stream.
var ErrNoAudio = errors.New("no audio stream available")

// Fetcher opens the audio stream of a search result.
type Fetcher interface {
	OpenAudio(ctx context.Context, videoURL string) (io.ReadCloser, error)
}

// YouTubeFetcher fetches audio through the YouTube player API.
type YouTubeFetcher struct {
	client *youtube.Client
}

// NewYouTubeFetcher returns a fetcher using httpClient (nil for default).
func NewYouTubeFetcher(httpClient *http.Client) *YouTubeFetcher {
	return &YouTubeFetcher{client: &youtube.Client{HTTPClient: httpClient}}
}

// OpenAudio opens the best audio-only stream, preferring mp4 audio.
func (f *YouTubeFetcher) OpenAudio(ctx context.Context, videoURL string) (io.ReadCloser, error) {
	video, err := f.client.GetVideoContext(ctx, videoURL)
	if err != nil {
		return nil, fmt.Errorf("failed to load video: %w", err)
	}

	format := bestAudio(video.Formats.Type("audio/mp4"))
	if format == nil {
		format = bestAudio(video.Formats.Type("audio/"))
	}
	if format == nil {
		return nil, ErrNoAudio
	}

	stream, _, err := f.client.GetStreamContext(ctx, video, format)
	if err != nil {
		return nil, fmt.Errorf("failed to open audio stream: %w", err)
	}
	return stream, nil
}

func bestAudio(formats youtube.FormatList) *youtube.Format {
	var best *youtube.Format
	for i := range formats {
		if best == nil || formats[i].Bitrate > best.Bitrate {
			best = &formats[i]
		}
	}
	return best
}
