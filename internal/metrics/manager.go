// Package metrics keeps in-process counters and timings for the bot and
// persists them to sqlite so `danuu status` can show them after a restart.
package metrics

import (
	"database/sql"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"
)

const maxSamples = 500

// Manager holds every metric, keyed by "topic/function".
type Manager struct {
	mu          sync.RWMutex
	timings     map[string]*TimingMetric
	counters    map[string]*CounterMetric
	successFail map[string]*SuccessFailMetric

	db       *sql.DB
	stopSave chan struct{}
	saveDone chan struct{}
}

var (
	instance *Manager
	once     sync.Once
)

// GetInstance returns the process-wide manager.
func GetInstance() *Manager {
	once.Do(func() {
		instance = newManager()
	})
	return instance
}

func newManager() *Manager {
	return &Manager{
		timings:     make(map[string]*TimingMetric),
		counters:    make(map[string]*CounterMetric),
		successFail: make(map[string]*SuccessFailMetric),
	}
}

func buildPath(topic, function string) string {
	if function == "" {
		return topic
	}
	return topic + "/" + function
}

// RecordDuration adds one timing sample.
func (m *Manager) RecordDuration(topic, function string, d time.Duration) {
	path := buildPath(topic, function)

	m.mu.Lock()
	metric, ok := m.timings[path]
	if !ok {
		metric = &TimingMetric{Min: d, Max: d}
		m.timings[path] = metric
	}
	m.mu.Unlock()

	metric.mu.Lock()
	defer metric.mu.Unlock()
	metric.Count++
	metric.Total += d
	metric.Last = d
	if d < metric.Min {
		metric.Min = d
	}
	if d > metric.Max {
		metric.Max = d
	}
	if len(metric.samples) < maxSamples {
		metric.samples = append(metric.samples, d)
	} else {
		metric.samples[metric.sampleIdx] = d
		metric.sampleIdx = (metric.sampleIdx + 1) % maxSamples
	}
}

// AddCounter adds delta to a counter.
func (m *Manager) AddCounter(topic, function string, delta int64) {
	path := buildPath(topic, function)

	m.mu.Lock()
	metric, ok := m.counters[path]
	if !ok {
		metric = &CounterMetric{}
		m.counters[path] = metric
	}
	m.mu.Unlock()

	metric.mu.Lock()
	metric.Value += delta
	metric.Last = time.Now()
	metric.mu.Unlock()
}

func (m *Manager) successFailFor(path string) *SuccessFailMetric {
	m.mu.Lock()
	defer m.mu.Unlock()
	metric, ok := m.successFail[path]
	if !ok {
		metric = &SuccessFailMetric{FailureReasons: make(map[string]int64)}
		m.successFail[path] = metric
	}
	return metric
}

// RecordSuccess counts a successful operation.
func (m *Manager) RecordSuccess(topic, function string) {
	metric := m.successFailFor(buildPath(topic, function))
	metric.mu.Lock()
	metric.Success++
	metric.LastSuccess = time.Now()
	metric.mu.Unlock()
}

// RecordFailure counts a failed operation; reason may be empty.
func (m *Manager) RecordFailure(topic, function, reason string) {
	metric := m.successFailFor(buildPath(topic, function))
	metric.mu.Lock()
	metric.Failures++
	metric.LastFailure = time.Now()
	if reason != "" {
		metric.FailureReasons[reason]++
	}
	metric.mu.Unlock()
}

// Snapshot returns every metric sorted by path.
func (m *Manager) Snapshot() []Snapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]Snapshot, 0, len(m.timings)+len(m.counters)+len(m.successFail))
	for path, t := range m.timings {
		t.mu.RLock()
		snap := TimingSnapshot{
			Count:  t.Count,
			MaxMs:  ms(t.Max),
			LastMs: ms(t.Last),
			P95Ms:  percentile(t.samples, 95),
		}
		if t.Count > 0 {
			snap.AvgMs = ms(t.Total) / float64(t.Count)
		}
		t.mu.RUnlock()
		out = append(out, Snapshot{Path: path, Type: TypeTiming, Data: snap})
	}
	for path, c := range m.counters {
		c.mu.RLock()
		out = append(out, Snapshot{Path: path, Type: TypeCounter, Data: CounterSnapshot{Value: c.Value}})
		c.mu.RUnlock()
	}
	for path, sf := range m.successFail {
		sf.mu.RLock()
		snap := SuccessFailSnapshot{Success: sf.Success, Failures: sf.Failures}
		if total := sf.Success + sf.Failures; total > 0 {
			snap.SuccessRate = float64(sf.Success) / float64(total) * 100
		}
		if len(sf.FailureReasons) > 0 {
			snap.FailureReasons = make(map[string]int64, len(sf.FailureReasons))
			for k, v := range sf.FailureReasons {
				snap.FailureReasons[k] = v
			}
		}
		sf.mu.RUnlock()
		out = append(out, Snapshot{Path: path, Type: TypeSuccessFail, Data: snap})
	}

	sort.Slice(out, func(i, j int) bool { return out[i].Path < out[j].Path })
	return out
}

// Summary renders the snapshot as one short line.
func (s Snapshot) Summary() string {
	switch d := s.Data.(type) {
	case TimingSnapshot:
		return fmt.Sprintf("%d runs, avg %.0fms, p95 %.0fms, max %.0fms", d.Count, d.AvgMs, d.P95Ms, d.MaxMs)
	case CounterSnapshot:
		return fmt.Sprintf("%d", d.Value)
	case SuccessFailSnapshot:
		line := fmt.Sprintf("%d ok, %d failed (%.0f%%)", d.Success, d.Failures, d.SuccessRate)
		if len(d.FailureReasons) > 0 {
			reasons := make([]string, 0, len(d.FailureReasons))
			for k, v := range d.FailureReasons {
				reasons = append(reasons, fmt.Sprintf("%s=%d", k, v))
			}
			sort.Strings(reasons)
			line += " " + strings.Join(reasons, " ")
		}
		return line
	}
	return ""
}

func ms(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}

func percentile(samples []time.Duration, p int) float64 {
	if len(samples) == 0 {
		return 0
	}
	sorted := make([]time.Duration, len(samples))
	copy(sorted, samples)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })

	idx := len(sorted) * p / 100
	if idx >= len(sorted) {
		idx = len(sorted) - 1
	}
	return ms(sorted[idx])
}
