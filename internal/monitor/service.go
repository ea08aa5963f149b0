package monitor

import (
	"context"
	"sync"
	"time"

	"xuibot/internal/panel"
	logx "xuibot/pkg/logx"
)

// Dispatcher is the sink for observed changes.
type Dispatcher interface {
	DispatchChange(ctx context.Context, ch Change)
}

type Config struct {
	Enabled    bool
	Interval   time.Duration // sleep after a clean pass; default 30s
	ErrBackoff time.Duration // sleep after a failed pass; default 1m
}

// Service is the poll loop. It owns the retained baselines: they are read and
// replaced only inside the loop goroutine, so they need no locking as long as
// a single Service instance runs (enforced by the running guard).
type Service struct {
	cfg   Config
	store panel.Store
	disp  Dispatcher
	log   logx.Logger

	runMu   sync.Mutex
	running bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup

	baselineConfigs  ConfigSnapshot
	baselineAccounts AccountSnapshot
}

func New(cfg Config, store panel.Store, disp Dispatcher, log logx.Logger) *Service {
	if cfg.Interval <= 0 {
		cfg.Interval = 30 * time.Second
	}
	if cfg.ErrBackoff <= 0 {
		cfg.ErrBackoff = time.Minute
	}
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Service{cfg: cfg, store: store, disp: disp, log: log}
}

func (s *Service) Enabled() bool { return s.cfg.Enabled }

func (s *Service) Start(ctx context.Context) {
	s.runMu.Lock()
	if s.running {
		s.runMu.Unlock()
		return
	}
	s.running = true
	runCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.runMu.Unlock()

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.run(runCtx)
	}()
}

func (s *Service) Stop(ctx context.Context) {
	s.runMu.Lock()
	cancel := s.cancel
	s.cancel = nil
	s.running = false
	s.runMu.Unlock()

	if cancel == nil {
		return
	}
	cancel()

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		s.log.Warn("monitor stop timed out", logx.Err(ctx.Err()))
	}
}

func (s *Service) run(ctx context.Context) {
	s.log.Info("change monitor started",
		logx.Duration("interval", s.cfg.Interval),
		logx.Duration("err_backoff", s.cfg.ErrBackoff),
	)
	defer s.log.Info("change monitor stopped")

	// Seed the baselines before reporting anything; everything present at
	// startup is the status quo, not a change.
	for s.baselineConfigs == nil {
		if ctx.Err() != nil {
			return
		}
		configs, accounts, err := BuildSnapshots(ctx, s.store)
		if err != nil {
			s.log.Error("baseline read failed", logx.Err(err))
			if !sleep(ctx, s.cfg.ErrBackoff) {
				return
			}
			continue
		}
		s.baselineConfigs = configs
		s.baselineAccounts = accounts
		s.log.Info("baseline initialized",
			logx.Int("owners", len(configs)),
			logx.Int("accounts", len(accounts)),
		)
	}

	for {
		delay := s.cfg.Interval
		if err := s.tick(ctx); err != nil {
			if ctx.Err() != nil {
				return
			}
			// Skip the baseline advance and back off; the loop never dies.
			s.log.Error("poll pass failed", logx.Err(err))
			delay = s.cfg.ErrBackoff
		}
		if !sleep(ctx, delay) {
			return
		}
	}
}

// tick runs one poll pass. A baseline advances only when its diff was
// non-empty: a no-op pass keeps the old baseline, which is equivalent since
// nothing changed, and means the same delta can never fire twice.
func (s *Service) tick(ctx context.Context) error {
	configs, accounts, err := BuildSnapshots(ctx, s.store)
	if err != nil {
		return err
	}

	configChanges := DiffConfigs(s.baselineConfigs, configs)
	accountChanges := DiffAccounts(s.baselineAccounts, accounts)

	for _, ch := range configChanges {
		s.disp.DispatchChange(ctx, ch)
	}
	for _, ch := range accountChanges {
		s.disp.DispatchChange(ctx, ch)
	}

	if len(configChanges) > 0 {
		s.baselineConfigs = configs
		s.log.Info("config drift detected", logx.Int("changes", len(configChanges)))
	}
	if len(accountChanges) > 0 {
		s.baselineAccounts = accounts
		s.log.Info("new accounts detected", logx.Int("count", len(accountChanges)))
	}
	return nil
}

// sleep waits for d or until ctx is done; returns false when ctx won.
func sleep(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
