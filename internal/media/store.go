package media

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"

	. "github.com/Deneth123456789/My-new-bot/internal/logging"
)

const (
	// DefaultTTL is how long a stray temp file may live before the sweep removes it.
	DefaultTTL = 30 * time.Minute

	// DefaultMaxBytes caps a single downloaded file.
	DefaultMaxBytes = 60 << 20

	// DefaultSweepSchedule is the cron spec for the orphan sweep.
	DefaultSweepSchedule = "@every 10m"
)

// StoreConfig configures a Store.
type StoreConfig struct {
	Dir           string
	TTL           time.Duration
	MaxBytes      int64
	SweepSchedule string
}

// Store hands out uniquely named temp files for media jobs.
// Jobs remove their own files; the scheduled sweep only catches files left
// behind by a crash.
type Store struct {
	baseDir  string
	ttl      time.Duration
	maxBytes int64
	schedule string

	mu   sync.Mutex
	cron *cron.Cron
}

// NewStore creates the base directory (0700) and returns the store.
func NewStore(cfg StoreConfig) (*Store, error) {
	if cfg.Dir == "" {
		return nil, fmt.Errorf("media: store directory not set")
	}
	if cfg.TTL <= 0 {
		cfg.TTL = DefaultTTL
	}
	if cfg.MaxBytes <= 0 {
		cfg.MaxBytes = DefaultMaxBytes
	}
	if cfg.SweepSchedule == "" {
		cfg.SweepSchedule = DefaultSweepSchedule
	}

	dir := filepath.Clean(cfg.Dir)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, fmt.Errorf("failed to create media directory: %w", err)
	}

	L_debug("media: store initialized", "dir", dir, "ttl", cfg.TTL.String(), "maxBytes", cfg.MaxBytes)
	return &Store{
		baseDir:  dir,
		ttl:      cfg.TTL,
		maxBytes: cfg.MaxBytes,
		schedule: cfg.SweepSchedule,
	}, nil
}

// Start runs one sweep now and schedules the rest.
func (s *Store) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cron != nil {
		return nil
	}

	c := cron.New()
	if _, err := c.AddFunc(s.schedule, s.sweepLogged); err != nil {
		return fmt.Errorf("invalid sweep schedule %q: %w", s.schedule, err)
	}
	s.sweepLogged()
	c.Start()
	s.cron = c
	return nil
}

// Close stops the sweep schedule and waits for a running sweep.
func (s *Store) Close() {
	s.mu.Lock()
	c := s.cron
	s.cron = nil
	s.mu.Unlock()
	if c != nil {
		<-c.Stop().Done()
	}
}

// BaseDir returns the store directory.
func (s *Store) BaseDir() string { return s.baseDir }

// MaxBytes returns the per-file size limit.
func (s *Store) MaxBytes() int64 { return s.maxBytes }

// Create opens a new, uniquely named file under subdir.
func (s *Store) Create(subdir, ext string) (*os.File, error) {
	dir := filepath.Join(s.baseDir, subdir)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, fmt.Errorf("failed to create subdirectory: %w", err)
	}
	path := filepath.Join(dir, uuid.NewString()+ext)
	f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0600)
	if err != nil {
		return nil, fmt.Errorf("failed to create media file: %w", err)
	}
	L_trace("media: created file", "path", path)
	return f, nil
}

// Remove deletes a file created by Create. Missing files are not an error.
func (s *Store) Remove(path string) {
	if path == "" {
		return
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		L_warn("media: failed to remove file", "path", path, "error", err)
		return
	}
	L_trace("media: removed file", "path", path)
}

// Files lists every regular file currently in the store.
func (s *Store) Files() ([]string, error) {
	var files []string
	err := filepath.Walk(s.baseDir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return nil
		}
		if info.Mode().IsRegular() {
			files = append(files, path)
		}
		return nil
	})
	return files, err
}

func (s *Store) sweepLogged() {
	if n, err := s.Sweep(time.Now()); err != nil {
		L_warn("media: sweep error", "error", err)
	} else if n > 0 {
		L_info("media: removed stale files", "count", n)
	}
}

// Sweep removes files older than the TTL relative to now.
func (s *Store) Sweep(now time.Time) (int, error) {
	cutoff := now.Add(-s.ttl)
	removed := 0
	err := filepath.Walk(s.baseDir, func(path string, info os.FileInfo, err error) error {
		if err != nil || info.IsDir() {
			return nil
		}
		if info.ModTime().Before(cutoff) {
			if err := os.Remove(path); err == nil {
				removed++
			}
		}
		return nil
	})
	return removed, err
}
