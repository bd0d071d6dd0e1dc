package media

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/itchyny/gojq"

	. "github.com/Deneth123456789/My-new-bot/internal/logging"
)

// ErrNotFound is returned when a search yields no video.
var ErrNotFound = errors.New("no matching video")

// Result is one search hit.
type Result struct {
	ID       string
	Title    string
	Duration string
	URL      string
}

// Searcher finds videos for a free-text query, best match first.
type Searcher interface {
	Search(ctx context.Context, query string) ([]Result, error)
}

const (
	defaultYouTubeURL = "https://www.youtube.com"

	// videos only
	videoFilter = "EgIQAQ%3D%3D"

	maxPageBytes = 8 << 20
)

// videoQuery pulls every videoRenderer out of ytInitialData.
const videoQuery = `.. | objects | .videoRenderer? // empty
	| select(.videoId != null)
	| {id: .videoId,
	   title: ([.title.runs[]?.text] | join("")),
	   duration: (.lengthText.simpleText // "")}`

var compiledVideoQuery = mustCompile(videoQuery)

func mustCompile(src string) *gojq.Code {
	q, err := gojq.Parse(src)
	if err != nil {
		panic(fmt.Sprintf("media: bad jq query: %v", err))
	}
	code, err := gojq.Compile(q)
	if err != nil {
		panic(fmt.Sprintf("media: jq compile: %v", err))
	}
	return code
}

// YouTubeSearcher scrapes the YouTube results page.
type YouTubeSearcher struct {
	BaseURL string
	Client  *http.Client
	Limit   int
}

// NewYouTubeSearcher returns a searcher against youtube.com.
func NewYouTubeSearcher(client *http.Client) *YouTubeSearcher {
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	return &YouTubeSearcher{BaseURL: defaultYouTubeURL, Client: client, Limit: 5}
}

// Search returns up to Limit video results, or ErrNotFound.
func (s *YouTubeSearcher) Search(ctx context.Context, query string) ([]Result, error) {
	endpoint := strings.TrimRight(s.BaseURL, "/") + "/results?search_query=" +
		url.QueryEscape(query) + "&sp=" + videoFilter

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0 Safari/537.36")
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")

	resp, err := s.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("search request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("search failed with status: %d", resp.StatusCode)
	}

	page, err := io.ReadAll(io.LimitReader(resp.Body, maxPageBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to read search page: %w", err)
	}

	results, err := parseResults(ctx, page, s.Limit)
	if err != nil {
		return nil, err
	}
	if len(results) == 0 {
		return nil, ErrNotFound
	}
	for i := range results {
		results[i].URL = strings.TrimRight(s.BaseURL, "/") + "/watch?v=" + results[i].ID
	}
	L_debug("media: search done", "query", query, "results", len(results))
	return results, nil
}

// extractInitialData returns the ytInitialData JSON embedded in a results page.
func extractInitialData(page []byte) ([]byte, error) {
	text := string(page)
	for _, marker := range []string{"var ytInitialData = ", `window["ytInitialData"] = `} {
		start := strings.Index(text, marker)
		if start < 0 {
			continue
		}
		rest := text[start+len(marker):]
		end := strings.Index(rest, ";</script>")
		if end < 0 {
			return nil, errors.New("unterminated ytInitialData")
		}
		return []byte(rest[:end]), nil
	}
	return nil, errors.New("ytInitialData not found in page")
}

func parseResults(ctx context.Context, page []byte, limit int) ([]Result, error) {
	raw, err := extractInitialData(page)
	if err != nil {
		return nil, err
	}

	var doc any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse ytInitialData: %w", err)
	}

	var results []Result
	iter := compiledVideoQuery.RunWithContext(ctx, doc)
	for {
		v, ok := iter.Next()
		if !ok {
			break
		}
		if err, ok := v.(error); ok {
			return nil, fmt.Errorf("jq: %w", err)
		}
		m, ok := v.(map[string]any)
		if !ok {
			continue
		}
		id, _ := m["id"].(string)
		title, _ := m["title"].(string)
		duration, _ := m["duration"].(string)
		results = append(results, Result{ID: id, Title: title, Duration: duration})
		if limit > 0 && len(results) >= limit {
			break
		}
	}
	return results, nil
}
