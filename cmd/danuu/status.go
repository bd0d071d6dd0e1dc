package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/Deneth123456789/My-new-bot/internal/bus"
	"github.com/Deneth123456789/My-new-bot/internal/config"
	. "github.com/Deneth123456789/My-new-bot/internal/logging"
	"github.com/Deneth123456789/My-new-bot/internal/media"
	"github.com/Deneth123456789/My-new-bot/internal/metrics"
	"github.com/Deneth123456789/My-new-bot/internal/paths"
	"github.com/Deneth123456789/My-new-bot/internal/whatsapp"
)

// statusFile is what `danuu run` leaves in ~/.danuu/status.json.
type statusFile struct {
	PID         int       `json:"pid"`
	Version     string    `json:"version"`
	Config      string    `json:"config,omitempty"`
	Session     string    `json:"session"`
	State       string    `json:"state"`
	Reason      string    `json:"reason,omitempty"`
	Self        string    `json:"self,omitempty"`
	Since       time.Time `json:"since"`
	SongsSent   int       `json:"songsSent"`
	SongsFailed int       `json:"songsFailed"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

type statusRecorder struct {
	path string

	mu         sync.Mutex
	status     statusFile
	lastChange time.Time
}

func newStatusRecorder(path, cfgPath, dbPath string) *statusRecorder {
	return &statusRecorder{
		path: path,
		status: statusFile{
			PID:     os.Getpid(),
			Version: version,
			Config:  cfgPath,
			Session: dbPath,
			State:   whatsapp.StateConnecting.String(),
			Since:   time.Now(),
		},
	}
}

func (r *statusRecorder) onState(e bus.Event) {
	change, ok := e.Data.(whatsapp.StateChange)
	if !ok {
		return
	}
	r.mu.Lock()
	// Bus delivery is concurrent; keep the newest transition.
	if change.At.Before(r.lastChange) {
		r.mu.Unlock()
		return
	}
	r.lastChange = change.At
	if change.State != r.status.State {
		r.status.Since = change.At
	}
	r.status.State = change.State
	r.status.Reason = change.Reason
	if change.Self != "" {
		r.status.Self = change.Self
	}
	r.writeLocked()
	r.mu.Unlock()
}

func (r *statusRecorder) onJob(e bus.Event) {
	job, ok := e.Data.(media.Job)
	if !ok {
		return
	}
	r.mu.Lock()
	if job.Status == media.StatusReady {
		r.status.SongsSent++
	} else {
		r.status.SongsFailed++
	}
	r.writeLocked()
	r.mu.Unlock()
}

func (r *statusRecorder) writeLocked() {
	r.status.UpdatedAt = time.Now()
	if err := config.AtomicWriteJSON(r.path, r.status, 0600); err != nil {
		L_warn("danuu: status file not written", "path", r.path, "error", err)
	}
}

func readStatus(path string) (*statusFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var s statusFile
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	return &s, nil
}

var (
	labelStyle = lipgloss.NewStyle().Bold(true).Width(14)
	titleStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("10")).MarginBottom(1)
	okStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	warnStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("11"))
	badStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	dimStyle   = lipgloss.NewStyle().Faint(true)

	metricStyle = lipgloss.NewStyle().Faint(true).Width(26).PaddingLeft(2)
)

func stateStyle(state string) lipgloss.Style {
	switch state {
	case "open":
		return okStyle
	case "connecting", "closed":
		return warnStyle
	default:
		return badStyle
	}
}

func row(label, value string) string {
	return lipgloss.JoinHorizontal(lipgloss.Top, labelStyle.Render(label), value)
}

// StatusCmd shows the stored device and the last state written by run.
type StatusCmd struct{}

func (c *StatusCmd) Run(g *Globals) error {
	cfg, _, err := g.load()
	if err != nil {
		return err
	}
	initLogging(config.LoggingConfig{Level: "warn"})

	ctx := context.Background()
	st, err := whatsapp.OpenStore(ctx, cfg.Session.DBPath)
	if err != nil {
		return err
	}
	defer st.Close()

	devices, err := st.Devices(ctx)
	if err != nil {
		return err
	}

	lines := []string{titleStyle.Render("DANUU-MD")}
	lines = append(lines, row("Session", cfg.Session.DBPath))
	if len(devices) == 0 {
		lines = append(lines, row("Device", warnStyle.Render("not linked")))
	}
	for _, d := range devices {
		name := d.JID
		if d.PushName != "" {
			name = fmt.Sprintf("%s (%s)", d.JID, d.PushName)
		}
		lines = append(lines, row("Device", okStyle.Render(name)))
	}

	statusPath, err := paths.StatusPath()
	if err != nil {
		return err
	}
	s, err := readStatus(statusPath)
	switch {
	case errors.Is(err, os.ErrNotExist):
		lines = append(lines, row("State", dimStyle.Render("bot has not run yet")))
	case err != nil:
		return err
	default:
		state := stateStyle(s.State).Render(s.State)
		if s.Reason != "" {
			state += dimStyle.Render(" (" + s.Reason + ")")
		}
		lines = append(lines,
			row("State", state),
			row("Since", s.Since.Local().Format(time.DateTime)),
			row("PID", fmt.Sprintf("%d", s.PID)),
			row("Songs", fmt.Sprintf("%d sent, %d failed", s.SongsSent, s.SongsFailed)),
		)
	}

	if metricsPath, err := metrics.DefaultPath(); err == nil {
		lines = append(lines, metricLines(metricsPath)...)
	}

	fmt.Println(lipgloss.JoinVertical(lipgloss.Left, lines...))
	return nil
}

// metricLines renders the metrics saved by run; nothing when none exist.
func metricLines(path string) []string {
	snaps, err := metrics.ReadSnapshot(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return []string{row("Metrics", warnStyle.Render(err.Error()))}
	}
	if len(snaps) == 0 {
		return nil
	}
	lines := []string{"", labelStyle.Render("Metrics")}
	for _, snap := range snaps {
		lines = append(lines, lipgloss.JoinHorizontal(lipgloss.Top, metricStyle.Render(snap.Path), snap.Summary()))
	}
	return lines
}

// UnlinkCmd deletes the stored session.
type UnlinkCmd struct{}

func (c *UnlinkCmd) Run(g *Globals) error {
	cfg, _, err := g.load()
	if err != nil {
		return err
	}
	initLogging(cfg.Logging)

	ctx := context.Background()
	st, err := whatsapp.OpenStore(ctx, cfg.Session.DBPath)
	if err != nil {
		return err
	}
	defer st.Close()

	n, err := st.Unlink(ctx)
	if err != nil {
		return err
	}
	if n == 0 {
		fmt.Println("No linked device.")
		return nil
	}
	fmt.Printf("Removed %d device(s). The next `danuu run` will show a new QR code.\n", n)
	return nil
}

// InitCmd writes the default configuration file.
type InitCmd struct {
	Force bool   `help:"Overwrite an existing file (a backup is kept)"`
	Path  string `arg:"" optional:"" type:"path" help:"Where to write (default ~/.danuu/danuu.json)"`
}

func (c *InitCmd) Run(g *Globals) error {
	initLogging(config.LoggingConfig{Level: g.LogLevel})

	path := c.Path
	if path == "" {
		var err error
		if path, err = paths.DefaultConfigPath(); err != nil {
			return err
		}
	}
	if _, err := os.Stat(path); err == nil && !c.Force {
		return fmt.Errorf("%s already exists (use --force to overwrite)", path)
	}
	if err := config.WriteFile(path, config.Default(), config.DefaultBackupCount); err != nil {
		return err
	}
	fmt.Printf("Wrote %s\n", path)
	return nil
}
