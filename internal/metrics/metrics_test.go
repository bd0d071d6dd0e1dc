package metrics

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func find(t *testing.T, snaps []Snapshot, path string) Snapshot {
	t.Helper()
	for _, s := range snaps {
		if s.Path == path {
			return s
		}
	}
	t.Fatalf("no metric %q in %+v", path, snaps)
	return Snapshot{}
}

func TestRecordAndSnapshot(t *testing.T) {
	m := newManager()
	m.AddCounter("whatsapp", "reconnect", 1)
	m.AddCounter("whatsapp", "reconnect", 1)
	m.RecordDuration("media", "search", 100*time.Millisecond)
	m.RecordDuration("media", "search", 300*time.Millisecond)
	m.RecordSuccess("media", "song")
	m.RecordFailure("media", "song", "not_found")
	m.RecordFailure("media", "song", "not_found")
	m.RecordFailure("media", "song", "")

	snaps := m.Snapshot()
	for i := 1; i < len(snaps); i++ {
		if snaps[i-1].Path > snaps[i].Path {
			t.Fatalf("snapshot not sorted: %s before %s", snaps[i-1].Path, snaps[i].Path)
		}
	}

	if c := find(t, snaps, "whatsapp/reconnect").Data.(CounterSnapshot); c.Value != 2 {
		t.Errorf("reconnect = %d", c.Value)
	}
	timing := find(t, snaps, "media/search").Data.(TimingSnapshot)
	if timing.Count != 2 || timing.AvgMs != 200 || timing.MaxMs != 300 || timing.LastMs != 300 {
		t.Errorf("search timing = %+v", timing)
	}
	song := find(t, snaps, "media/song")
	sf := song.Data.(SuccessFailSnapshot)
	if sf.Success != 1 || sf.Failures != 3 || sf.FailureReasons["not_found"] != 2 {
		t.Errorf("song = %+v", sf)
	}
	if got := song.Summary(); got != "1 ok, 3 failed (25%) not_found=2" {
		t.Errorf("Summary = %q", got)
	}
}

func TestPersistAcrossOpen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "metrics.db")

	m := newManager()
	if err := m.Open(path); err != nil {
		t.Fatalf("Open: %v", err)
	}
	m.AddCounter("router", "permit_notice", 3)
	m.RecordDuration("media", "fetch", 2*time.Second)
	m.RecordFailure("media", "song", "error")
	if err := m.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if err := m.Close(); err != nil {
		t.Errorf("second Close: %v", err)
	}

	snaps, err := ReadSnapshot(path)
	if err != nil {
		t.Fatalf("ReadSnapshot: %v", err)
	}
	if c := find(t, snaps, "router/permit_notice").Data.(CounterSnapshot); c.Value != 3 {
		t.Errorf("permit_notice = %d", c.Value)
	}
	if ft := find(t, snaps, "media/fetch").Data.(TimingSnapshot); ft.Count != 1 || ft.MaxMs != 2000 {
		t.Errorf("fetch = %+v", ft)
	}

	// A reopened manager keeps counting from the saved values.
	again := newManager()
	if err := again.Open(path); err != nil {
		t.Fatalf("reopen: %v", err)
	}
	again.AddCounter("router", "permit_notice", 1)
	again.Close()

	snaps, err = ReadSnapshot(path)
	if err != nil {
		t.Fatalf("ReadSnapshot: %v", err)
	}
	if c := find(t, snaps, "router/permit_notice").Data.(CounterSnapshot); c.Value != 4 {
		t.Errorf("permit_notice after reopen = %d", c.Value)
	}
}

func TestReadSnapshotMissingFile(t *testing.T) {
	_, err := ReadSnapshot(filepath.Join(t.TempDir(), "none.db"))
	if !errors.Is(err, os.ErrNotExist) {
		t.Errorf("err = %v", err)
	}
}

func TestSummaryForms(t *testing.T) {
	if got := (Snapshot{Data: CounterSnapshot{Value: 7}}).Summary(); got != "7" {
		t.Errorf("counter = %q", got)
	}
	got := (Snapshot{Data: TimingSnapshot{Count: 2, AvgMs: 12.4, P95Ms: 20, MaxMs: 20}}).Summary()
	if !strings.HasPrefix(got, "2 runs, avg 12ms") {
		t.Errorf("timing = %q", got)
	}
}
