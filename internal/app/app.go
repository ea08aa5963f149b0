package app

import (
	"context"
	"fmt"
	"sync"
	"time"

	"xuibot/internal/bot"
	"xuibot/internal/config"
	"xuibot/internal/digest"
	"xuibot/internal/flow"
	"xuibot/internal/monitor"
	"xuibot/internal/notify"
	"xuibot/internal/panel"
	"xuibot/internal/transport"
	"xuibot/internal/transport/telegram"
	logx "xuibot/pkg/logx"
)

type App struct {
	cfgm *config.Manager
	logs *logx.Service
	log  logx.Logger

	adapter transport.Adapter
	store   panel.Store
	admins  *notify.AdminSet

	mon    *monitor.Service
	dig    *digest.Service
	router *bot.Router

	updates chan transport.Update

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New wires the whole bot from the config at cfgPath. Configuration problems
// are fatal here by design: better to refuse to start than to run without a
// token or a panel database.
func New(cfgPath string) (*App, error) {
	cfgm := config.NewManager(cfgPath)
	cfg, err := cfgm.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	logSvc, log := logx.New(logx.Config{
		Level:   cfg.Logging.Level,
		Console: cfg.Logging.Console,
		File: logx.FileConfig{
			Enabled: cfg.Logging.File.Enabled,
			Path:    cfg.Logging.File.Path,
		},
	})
	log = log.With(logx.String("comp", "app"))
	cfgm.SetLogger(logSvc.Logger().With(logx.String("comp", "config")))

	pollTimeout, err := config.ParseDurationOrDefault("telegram.poll_timeout", cfg.Telegram.PollTimeout, 10*time.Second)
	if err != nil {
		return nil, err
	}
	adapter, err := telegram.New(telegram.Config{
		Token:       cfg.Telegram.Token,
		PollTimeout: pollTimeout,
	}, logSvc.Logger().With(logx.String("comp", "telegram")))
	if err != nil {
		return nil, err
	}

	busyTimeout, err := config.ParseDurationField("panel.busy_timeout", cfg.Panel.BusyTimeout)
	if err != nil {
		return nil, err
	}
	store, err := panel.Open(panel.Config{
		DBPath:      cfg.Panel.DBPath,
		BusyTimeout: busyTimeout,
	}, logSvc.Logger().With(logx.String("comp", "panel")))
	if err != nil {
		return nil, fmt.Errorf("open panel db: %w", err)
	}

	admins := notify.NewAdminSet(cfg.Telegram.AdminUserIDs)
	disp := notify.NewDispatcher(notify.Config{}, adapter, admins,
		logSvc.Logger().With(logx.String("comp", "notify")))
	dir := notify.NewPanelDirectory(store)

	engine := flow.NewEngine(adapter, disp, dir, admins,
		logSvc.Logger().With(logx.String("comp", "flow")))
	router := bot.NewRouter(adapter, engine, store, admins,
		logSvc.Logger().With(logx.String("comp", "bot")))

	interval, err := config.ParseDurationOrDefault("monitor.interval", cfg.Monitor.Interval, 30*time.Second)
	if err != nil {
		return nil, err
	}
	backoff, err := config.ParseDurationOrDefault("monitor.err_backoff", cfg.Monitor.ErrBackoff, time.Minute)
	if err != nil {
		return nil, err
	}
	mon := monitor.New(monitor.Config{
		Enabled:    cfg.MonitorEnabled(),
		Interval:   interval,
		ErrBackoff: backoff,
	}, store, disp, logSvc.Logger().With(logx.String("comp", "monitor")))

	var dig *digest.Service
	if cfg.Digest != nil {
		dig = digest.New(digest.Config{
			Enabled:  cfg.Digest.Enabled,
			Schedule: cfg.Digest.Schedule,
		}, store, adapter, logSvc.Logger().With(logx.String("comp", "digest")))
	}

	return &App{
		cfgm:    cfgm,
		logs:    logSvc,
		log:     log,
		adapter: adapter,
		store:   store,
		admins:  admins,
		mon:     mon,
		dig:     dig,
		router:  router,
		updates: make(chan transport.Update, 256),
	}, nil
}

func (a *App) Start(ctx context.Context) error {
	runCtx, cancel := context.WithCancel(ctx)
	a.cancel = cancel

	if err := a.adapter.Start(runCtx, a.updates); err != nil {
		return err
	}

	if a.mon.Enabled() {
		a.mon.Start(runCtx)
	}
	if a.dig != nil && a.dig.Enabled() {
		if err := a.dig.Start(runCtx); err != nil {
			return err
		}
	}

	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		if err := a.router.DispatchLoop(runCtx, a.updates); err != nil {
			a.log.Error("dispatch loop failed", logx.Err(err))
		}
	}()

	// Hot reload: only the settings that are safe to swap live are applied.
	// The monitor cadence and the panel path require a restart.
	sub := a.cfgm.Subscribe(8)
	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		defer a.cfgm.Unsubscribe(sub)
		for {
			select {
			case <-runCtx.Done():
				return
			case newCfg, ok := <-sub:
				if !ok {
					return
				}
				a.logs.Apply(logx.Config{
					Level:   newCfg.Logging.Level,
					Console: newCfg.Logging.Console,
					File: logx.FileConfig{
						Enabled: newCfg.Logging.File.Enabled,
						Path:    newCfg.Logging.File.Path,
					},
				})
				a.admins.Set(newCfg.Telegram.AdminUserIDs)
				a.log.Info("config applied", logx.Int("admins", len(newCfg.Telegram.AdminUserIDs)))
			}
		}
	}()

	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		if err := a.cfgm.Watch(runCtx); err != nil {
			a.log.Warn("config watch stopped", logx.Err(err))
		}
	}()

	a.log.Info("app started")
	return nil
}

func (a *App) Stop(ctx context.Context) error {
	a.log.Info("stopping")
	if a.cancel != nil {
		a.cancel()
	}

	// Run a shutdown step with an upper bound so one component can't stall
	// the whole stop.
	step := func(name string, max time.Duration, fn func(context.Context) error) {
		stepCtx, cancel := context.WithTimeout(ctx, max)
		defer cancel()
		done := make(chan error, 1)
		go func() { done <- fn(stepCtx) }()
		select {
		case err := <-done:
			if err != nil {
				a.log.Warn("stop step error", logx.String("name", name), logx.Err(err))
			}
		case <-stepCtx.Done():
			a.log.Warn("stop step deadline reached (continuing)", logx.String("name", name))
		}
	}

	step("monitor", 2*time.Second, func(c context.Context) error { a.mon.Stop(c); return nil })
	if a.dig != nil {
		step("digest", 2*time.Second, func(c context.Context) error { a.dig.Stop(c); return nil })
	}
	step("adapter", 2*time.Second, func(c context.Context) error { return a.adapter.Stop(c) })
	step("handlers", 2*time.Second, func(c context.Context) error {
		done := make(chan struct{})
		go func() { a.wg.Wait(); close(done) }()
		select {
		case <-done:
			return nil
		case <-c.Done():
			return c.Err()
		}
	})
	step("panel", 1*time.Second, func(c context.Context) error { return a.store.Close() })

	a.log.Info("stopped")
	a.logs.Close()
	return nil
}
