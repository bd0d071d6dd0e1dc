package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Deneth123456789/My-new-bot/internal/bus"
	"github.com/Deneth123456789/My-new-bot/internal/commands"
	"github.com/Deneth123456789/My-new-bot/internal/config"
	. "github.com/Deneth123456789/My-new-bot/internal/logging"
	"github.com/Deneth123456789/My-new-bot/internal/media"
	"github.com/Deneth123456789/My-new-bot/internal/metrics"
	"github.com/Deneth123456789/My-new-bot/internal/paths"
	"github.com/Deneth123456789/My-new-bot/internal/router"
	"github.com/Deneth123456789/My-new-bot/internal/rules"
	"github.com/Deneth123456789/My-new-bot/internal/whatsapp"
)

// RunCmd connects and serves until interrupted or logged out.
type RunCmd struct {
	NoWatch bool `help:"Do not reload danuu.json when it changes" name:"no-watch"`
}

func (c *RunCmd) Run(g *Globals) error {
	cfg, cfgPath, err := g.load()
	if err != nil {
		return err
	}
	initLogging(cfg.Logging)
	if cfgPath == "" {
		L_info("danuu: starting with built-in defaults", "version", version)
	} else {
		L_info("danuu: starting", "version", version, "config", cfgPath)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	eventBus := bus.Default()

	whatsapp.SetDeviceName(cfg.Session.DeviceName)
	st, err := whatsapp.OpenStore(ctx, cfg.Session.DBPath)
	if err != nil {
		return err
	}
	defer st.Close()

	mediaStore, err := media.NewStore(media.StoreConfig{
		Dir:           cfg.Media.Dir,
		TTL:           cfg.Media.TTL.Std(),
		MaxBytes:      cfg.Media.MaxBytes,
		SweepSchedule: cfg.Media.SweepSchedule,
	})
	if err != nil {
		return err
	}
	if err := mediaStore.Start(); err != nil {
		return err
	}
	defer mediaStore.Close()

	// Metrics stay in memory when the database cannot be opened.
	stats := metrics.GetInstance()
	if metricsPath, err := metrics.DefaultPath(); err != nil {
		L_warn("danuu: metrics not persisted", "error", err)
	} else if err := stats.Open(metricsPath); err != nil {
		L_warn("danuu: metrics not persisted", "path", metricsPath, "error", err)
	}
	defer stats.Close()

	httpClient := &http.Client{}
	pipeline := media.NewPipeline(
		media.NewYouTubeSearcher(httpClient),
		media.NewYouTubeFetcher(httpClient),
		mediaStore,
		media.PipelineConfig{
			MIME:          cfg.Media.MIME,
			SearchTimeout: cfg.Media.SearchTimeout.Std(),
			FetchTimeout:  cfg.Media.FetchTimeout.Std(),
			MaxConcurrent: cfg.Media.MaxConcurrent,
			Bus:           eventBus,
		},
	)
	defer pipeline.Wait()

	cmds := commands.New(cfg.Prefix, commands.Deps{
		Songs:    pipeline,
		Stickers: media.PrepareSticker,
	})
	engine := rules.NewEngine(cfg.Rules)
	rt := router.New(engine, cmds, cfg.Permit.Notice)
	statusWatcher := router.NewStatusWatcher(cfg.Status.AutoView, cfg.Status.ReactEmoji)

	mgr := whatsapp.NewManager(
		whatsapp.NewDialer(st, cfg.Permit.Mode),
		whatsapp.ManagerConfig{
			Reconnect:       cfg.Reconnect,
			ConnectedNotice: cfg.Session.ConnectedNotice,
			Bus:             eventBus,
		},
		statusWatcher,
		rt,
	)

	statusPath, err := paths.StatusPath()
	if err != nil {
		return err
	}
	recorder := newStatusRecorder(statusPath, cfgPath, cfg.Session.DBPath)
	eventBus.Subscribe(bus.TopicSessionState, recorder.onState)
	eventBus.Subscribe(bus.TopicMediaJobDone, recorder.onJob)

	// Hot reload: the watcher publishes, subscribers apply.
	eventBus.Subscribe(bus.TopicConfigApplied, func(e bus.Event) {
		next, ok := e.Data.(*config.Config)
		if !ok {
			return
		}
		SetLevel(ParseLevel(next.Logging.Level))
		cmds.SetPrefix(next.Prefix)
		engine.Update(next.Rules)
		rt.SetNotice(next.Permit.Notice)
		statusWatcher.Configure(next.Status.AutoView, next.Status.ReactEmoji)
		mgr.Configure(next.Reconnect, next.Session.ConnectedNotice)
		L_info("danuu: config applied", "prefix", next.Prefix)
	})

	if cfgPath != "" && !c.NoWatch {
		watcher, err := config.NewWatcher(cfgPath, 500*time.Millisecond, g.overrides(), func(next *config.Config) {
			eventBus.Publish(bus.TopicConfigApplied, "config", next)
		})
		if err != nil {
			L_warn("danuu: config watch unavailable", "error", err)
		} else {
			watcher.Start()
			defer watcher.Stop()
		}
	}

	err = mgr.Run(ctx)
	SetShuttingDown()
	eventBus.Wait()

	switch {
	case errors.Is(err, context.Canceled):
		L_info("danuu: shutting down")
		return nil
	case errors.Is(err, whatsapp.ErrLoggedOut):
		L_error("danuu: this device was unlinked from WhatsApp; run `danuu unlink` and start again to pair")
		return err
	default:
		return err
	}
}
