package media

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/Deneth123456789/My-new-bot/internal/bus"
	. "github.com/Deneth123456789/My-new-bot/internal/logging"
	"github.com/Deneth123456789/My-new-bot/internal/metrics"
	"github.com/Deneth123456789/My-new-bot/internal/transport"
)

// User-facing pipeline messages
const (
	SearchingText = "_Searching for \"%s\"..._"
	NotFoundText  = "Sorry, I could not find that song."
	FailedText    = "Something went wrong while trying to download the song. Please try again."
)

// ErrTooLarge is returned when a download exceeds the store's size limit.
var ErrTooLarge = errors.New("media file too large")

// Status is the lifecycle stage of a Job.
type Status string

const (
	StatusPending   Status = "pending"
	StatusSearching Status = "searching"
	StatusFetching  Status = "fetching"
	StatusReady     Status = "ready"
	StatusFailed    Status = "failed"
)

// Job is one song request. It is only read by others after completion.
type Job struct {
	ID        string
	Chat      string
	Query     string
	Title     string
	ResultURL string
	LocalPath string
	Status    Status
	Err       error
	Started   time.Time
	Finished  time.Time
}

// PipelineConfig configures a Pipeline.
type PipelineConfig struct {
	MIME          string // sent with every audio message
	SearchTimeout time.Duration
	FetchTimeout  time.Duration
	MaxConcurrent int
	Bus           *bus.Bus // optional; receives TopicMediaJobDone
}

// Pipeline runs search -> fetch -> deliver -> cleanup for song requests.
// Only the progress notice is sent on the caller's goroutine. Jobs for the
// same chat run one after another, in request order.
type Pipeline struct {
	searcher Searcher
	fetcher  Fetcher
	store    *Store
	cfg      PipelineConfig
	sem      chan struct{}
	wg       sync.WaitGroup

	mu    sync.Mutex
	tails map[string]chan struct{} // chat -> done signal of its newest job
}

// NewPipeline wires a pipeline.
func NewPipeline(searcher Searcher, fetcher Fetcher, store *Store, cfg PipelineConfig) *Pipeline {
	if cfg.MIME == "" {
		cfg.MIME = "audio/mp4"
	}
	if cfg.SearchTimeout <= 0 {
		cfg.SearchTimeout = 20 * time.Second
	}
	if cfg.FetchTimeout <= 0 {
		cfg.FetchTimeout = 5 * time.Minute
	}
	if cfg.MaxConcurrent <= 0 {
		cfg.MaxConcurrent = 1
	}
	return &Pipeline{
		searcher: searcher,
		fetcher:  fetcher,
		store:    store,
		cfg:      cfg,
		sem:      make(chan struct{}, cfg.MaxConcurrent),
		tails:    make(map[string]chan struct{}),
	}
}

// Request starts a job and does not wait for the download.
func (p *Pipeline) Request(ctx context.Context, tr transport.Transport, chat, query string) {
	p.Submit(ctx, tr, chat, query)
}

// Submit sends the progress notice and runs the job in a goroutine.
// The returned channel receives the finished job exactly once. ctx should
// be the session context: cancelling it aborts in-flight jobs.
func (p *Pipeline) Submit(ctx context.Context, tr transport.Transport, chat, query string) <-chan *Job {
	job := &Job{
		ID:      uuid.NewString(),
		Chat:    chat,
		Query:   query,
		Status:  StatusPending,
		Started: time.Now(),
	}
	done := make(chan *Job, 1)

	if err := tr.SendText(ctx, chat, fmt.Sprintf(SearchingText, query)); err != nil {
		L_warn("media: progress notice failed", "job", job.ID, "error", err)
	}

	prev, mine := p.enqueue(chat)
	p.wg.Add(1)
	go p.run(ctx, tr, job, done, prev, mine)
	return done
}

// enqueue returns the signal to wait on before this chat's new job may
// start, and the signal the new job closes when it is finished.
func (p *Pipeline) enqueue(chat string) (prev <-chan struct{}, mine chan struct{}) {
	mine = make(chan struct{})
	p.mu.Lock()
	defer p.mu.Unlock()
	prev = p.tails[chat]
	p.tails[chat] = mine
	return prev, mine
}

func (p *Pipeline) dequeue(chat string, mine chan struct{}) {
	p.mu.Lock()
	if p.tails[chat] == mine {
		delete(p.tails, chat)
	}
	p.mu.Unlock()
	close(mine)
}

// Wait blocks until every background job has completed.
func (p *Pipeline) Wait() {
	p.wg.Wait()
}

func (p *Pipeline) search(ctx context.Context, query string) (*Result, error) {
	sctx, cancel := context.WithTimeout(ctx, p.cfg.SearchTimeout)
	defer cancel()

	start := time.Now()
	results, err := p.searcher.Search(sctx, query)
	metrics.MetricDuration("media", "search", time.Since(start))
	if err != nil {
		return nil, err
	}
	if len(results) == 0 {
		return nil, ErrNotFound
	}
	return &results[0], nil
}

func (p *Pipeline) run(ctx context.Context, tr transport.Transport, job *Job, done chan<- *Job, prev <-chan struct{}, mine chan struct{}) {
	defer p.wg.Done()
	defer p.dequeue(job.Chat, mine)

	var err error
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("media: job panic: %v", r)
		}
		p.finish(ctx, tr, job, done, err)
	}()

	if prev != nil {
		select {
		case <-prev:
		case <-ctx.Done():
			err = ctx.Err()
			return
		}
	}
	if err = ctx.Err(); err != nil {
		return
	}

	job.Status = StatusSearching
	result, err := p.search(ctx, job.Query)
	if err != nil {
		return
	}
	job.Title = result.Title
	job.ResultURL = result.URL
	L_info("media: song found", "job", job.ID, "title", result.Title, "url", result.URL)

	select {
	case p.sem <- struct{}{}:
		defer func() { <-p.sem }()
	case <-ctx.Done():
		err = ctx.Err()
		return
	}

	start := time.Now()
	err = p.fetchAndDeliver(ctx, tr, job)
	metrics.MetricDuration("media", "fetch", time.Since(start))
}

// fetchAndDeliver streams the audio into a per-job temp file and sends it.
// The file is removed before this returns, on every path.
func (p *Pipeline) fetchAndDeliver(ctx context.Context, tr transport.Transport, job *Job) error {
	job.Status = StatusFetching

	fctx, cancel := context.WithTimeout(ctx, p.cfg.FetchTimeout)
	defer cancel()

	stream, err := p.fetcher.OpenAudio(fctx, job.ResultURL)
	if err != nil {
		return err
	}
	defer stream.Close()

	f, err := p.store.Create("songs", ExtensionFor(p.cfg.MIME))
	if err != nil {
		return err
	}
	job.LocalPath = f.Name()
	defer p.store.Remove(job.LocalPath)

	limit := p.store.MaxBytes()
	n, err := io.Copy(f, io.LimitReader(stream, limit+1))
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return fmt.Errorf("failed to download audio: %w", err)
	}
	if n > limit {
		return fmt.Errorf("%w: over %d bytes", ErrTooLarge, limit)
	}

	data, err := os.ReadFile(job.LocalPath)
	if err != nil {
		return fmt.Errorf("failed to read audio: %w", err)
	}
	if err := tr.SendAudio(fctx, job.Chat, data, p.cfg.MIME); err != nil {
		return fmt.Errorf("failed to send audio: %w", err)
	}
	return nil
}

func (p *Pipeline) finish(ctx context.Context, tr transport.Transport, job *Job, done chan<- *Job, err error) {
	job.Finished = time.Now()
	recordOutcome(ctx, err)
	if err == nil {
		job.Status = StatusReady
		L_info("media: song delivered", "job", job.ID, "title", job.Title, "elapsed", job.Finished.Sub(job.Started).String())
	} else {
		job.Status = StatusFailed
		job.Err = err

		msg := FailedText
		if errors.Is(err, ErrNotFound) {
			msg = NotFoundText
		}
		if ctx.Err() != nil {
			L_warn("media: job abandoned, session closed", "job", job.ID, "error", err)
		} else {
			L_warn("media: job failed", "job", job.ID, "query", job.Query, "error", err)
			if serr := tr.SendText(ctx, job.Chat, msg); serr != nil {
				L_error("media: failure notice not sent", "job", job.ID, "error", serr)
			}
		}
	}

	if p.cfg.Bus != nil {
		p.cfg.Bus.Publish(bus.TopicMediaJobDone, "media", *job)
	}
	done <- job
	close(done)
}

func recordOutcome(ctx context.Context, err error) {
	switch {
	case err == nil:
		metrics.MetricSuccess("media", "song")
	case errors.Is(err, ErrNotFound):
		metrics.MetricFailWithReason("media", "song", "not_found")
	case ctx.Err() != nil:
		metrics.MetricFailWithReason("media", "song", "abandoned")
	case errors.Is(err, ErrTooLarge):
		metrics.MetricFailWithReason("media", "song", "too_large")
	default:
		metrics.MetricFailWithReason("media", "song", "error")
	}
}
