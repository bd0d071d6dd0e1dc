package metrics

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"time"

	_ "github.com/mattn/go-sqlite3"

	. "github.com/Deneth123456789/My-new-bot/internal/logging"
	"github.com/Deneth123456789/My-new-bot/internal/paths"
)

const (
	saveInterval = time.Minute
	pruneMaxAge  = 14 * 24 * time.Hour
	dbOptions    = "?_busy_timeout=5000"
)

const schemaSQL = `CREATE TABLE IF NOT EXISTS metrics (
	path       TEXT PRIMARY KEY,
	type       TEXT NOT NULL,
	data       BLOB NOT NULL,
	updated_at INTEGER NOT NULL
)`

// DefaultPath returns ~/.danuu/metrics.db (or under DANUU_HOME).
func DefaultPath() (string, error) {
	return paths.DataPath("metrics.db")
}

// Open attaches the manager to the sqlite file at path, restores what was
// saved there and saves periodically until Close.
func (m *Manager) Open(path string) error {
	if m.db != nil {
		return fmt.Errorf("metrics: already open")
	}
	if err := paths.EnsureParentDir(path); err != nil {
		return err
	}
	db, err := openDB(path)
	if err != nil {
		return err
	}

	if n, err := m.load(db); err != nil {
		L_warn("metrics: failed to load saved metrics", "error", err)
	} else if n > 0 {
		L_debug("metrics: restored", "count", n)
	}
	if res, err := db.Exec("DELETE FROM metrics WHERE updated_at < ?", time.Now().Add(-pruneMaxAge).Unix()); err != nil {
		L_warn("metrics: prune failed", "error", err)
	} else if n, _ := res.RowsAffected(); n > 0 {
		L_debug("metrics: pruned stale rows", "count", n)
	}

	m.db = db
	m.stopSave = make(chan struct{})
	m.saveDone = make(chan struct{})
	go m.saveLoop()
	return nil
}

func openDB(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite3", path+dbOptions)
	if err != nil {
		return nil, fmt.Errorf("failed to open metrics db: %w", err)
	}
	if _, err := db.Exec(schemaSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create metrics schema: %w", err)
	}
	return db, nil
}

func (m *Manager) saveLoop() {
	defer close(m.saveDone)
	ticker := time.NewTicker(saveInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if err := m.save(); err != nil {
				L_warn("metrics: periodic save failed", "error", err)
			}
		case <-m.stopSave:
			return
		}
	}
}

// Close saves once more and detaches the database. It is a no-op when
// Open was never called.
func (m *Manager) Close() error {
	if m.db == nil {
		return nil
	}
	close(m.stopSave)
	<-m.saveDone

	if err := m.save(); err != nil {
		L_warn("metrics: final save failed", "error", err)
	}
	err := m.db.Close()
	m.db = nil
	return err
}

func (m *Manager) save() error {
	tx, err := m.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback() //nolint:errcheck

	stmt, err := tx.Prepare(`INSERT INTO metrics (path, type, data, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(path) DO UPDATE SET data = excluded.data, updated_at = excluded.updated_at`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	now := time.Now().Unix()
	put := func(path string, typ MetricType, v interface{}) error {
		data, err := json.Marshal(v)
		if err != nil {
			return err
		}
		_, err = stmt.Exec(path, string(typ), data, now)
		return err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	for path, t := range m.timings {
		t.mu.RLock()
		rec := savedTiming{Count: t.Count, Total: t.Total, Min: t.Min, Max: t.Max, Last: t.Last}
		t.mu.RUnlock()
		if err := put(path, TypeTiming, rec); err != nil {
			return err
		}
	}
	for path, c := range m.counters {
		c.mu.RLock()
		rec := savedCounter{Value: c.Value, Last: c.Last}
		c.mu.RUnlock()
		if err := put(path, TypeCounter, rec); err != nil {
			return err
		}
	}
	for path, sf := range m.successFail {
		sf.mu.RLock()
		rec := savedSuccessFail{
			Success:     sf.Success,
			Failures:    sf.Failures,
			LastSuccess: sf.LastSuccess,
			LastFailure: sf.LastFailure,
			Reasons:     make(map[string]int64, len(sf.FailureReasons)),
		}
		for k, v := range sf.FailureReasons {
			rec.Reasons[k] = v
		}
		sf.mu.RUnlock()
		if err := put(path, TypeSuccessFail, rec); err != nil {
			return err
		}
	}
	return tx.Commit()
}

func (m *Manager) load(db *sql.DB) (int, error) {
	rows, err := db.Query("SELECT path, type, data FROM metrics")
	if err != nil {
		return 0, err
	}
	defer rows.Close()

	m.mu.Lock()
	defer m.mu.Unlock()

	count := 0
	for rows.Next() {
		var path, typ string
		var data []byte
		if err := rows.Scan(&path, &typ, &data); err != nil {
			return count, err
		}
		if err := m.restore(path, MetricType(typ), data); err != nil {
			L_warn("metrics: skipping unreadable row", "path", path, "error", err)
			continue
		}
		count++
	}
	return count, rows.Err()
}

// restore must be called with m.mu held.
func (m *Manager) restore(path string, typ MetricType, data []byte) error {
	switch typ {
	case TypeTiming:
		var rec savedTiming
		if err := json.Unmarshal(data, &rec); err != nil {
			return err
		}
		m.timings[path] = &TimingMetric{Count: rec.Count, Total: rec.Total, Min: rec.Min, Max: rec.Max, Last: rec.Last}
	case TypeCounter:
		var rec savedCounter
		if err := json.Unmarshal(data, &rec); err != nil {
			return err
		}
		m.counters[path] = &CounterMetric{Value: rec.Value, Last: rec.Last}
	case TypeSuccessFail:
		var rec savedSuccessFail
		if err := json.Unmarshal(data, &rec); err != nil {
			return err
		}
		if rec.Reasons == nil {
			rec.Reasons = make(map[string]int64)
		}
		m.successFail[path] = &SuccessFailMetric{
			Success:        rec.Success,
			Failures:       rec.Failures,
			LastSuccess:    rec.LastSuccess,
			LastFailure:    rec.LastFailure,
			FailureReasons: rec.Reasons,
		}
	default:
		return fmt.Errorf("unknown metric type %q", typ)
	}
	return nil
}

// ReadSnapshot loads the metrics saved at path without attaching to it.
// A missing file yields os.ErrNotExist.
func ReadSnapshot(path string) ([]Snapshot, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, err
	}
	db, err := openDB(path)
	if err != nil {
		return nil, err
	}
	defer db.Close()

	m := newManager()
	if _, err := m.load(db); err != nil {
		return nil, err
	}
	return m.Snapshot(), nil
}

type savedTiming struct {
	Count int64         `json:"count"`
	Total time.Duration `json:"total"`
	Min   time.Duration `json:"min"`
	Max   time.Duration `json:"max"`
	Last  time.Duration `json:"last"`
}

type savedCounter struct {
	Value int64     `json:"value"`
	Last  time.Time `json:"last"`
}

type savedSuccessFail struct {
	Success     int64            `json:"success"`
	Failures    int64            `json:"failures"`
	LastSuccess time.Time        `json:"last_success"`
	LastFailure time.Time        `json:"last_failure"`
	Reasons     map[string]int64 `json:"reasons,omitempty"`
}
