// Package digest sends an optional scheduled traffic summary to every
// subscriber: one message per user covering all their accounts.
package digest

import (
	"context"
	"fmt"
	"math"
	"strings"
	"sync"

	"github.com/robfig/cron/v3"

	"xuibot/internal/panel"
	"xuibot/internal/transport"
	logx "xuibot/pkg/logx"
)

const defaultSchedule = "0 9 * * *"

type Config struct {
	Enabled  bool
	Schedule string // standard 5-field cron spec
}

type Sender interface {
	SendText(ctx context.Context, to transport.ChatTarget, text string, opt *transport.SendOptions) (transport.MessageRef, error)
}

type Service struct {
	cfg    Config
	store  panel.Store
	sender Sender
	log    logx.Logger

	runMu sync.Mutex
	cron  *cron.Cron
}

func New(cfg Config, store panel.Store, sender Sender, log logx.Logger) *Service {
	if strings.TrimSpace(cfg.Schedule) == "" {
		cfg.Schedule = defaultSchedule
	}
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Service{cfg: cfg, store: store, sender: sender, log: log}
}

func (s *Service) Enabled() bool { return s.cfg.Enabled }

func (s *Service) Start(ctx context.Context) error {
	s.runMu.Lock()
	defer s.runMu.Unlock()
	if s.cron != nil {
		return nil
	}
	c := cron.New()
	_, err := c.AddFunc(s.cfg.Schedule, func() { s.run(ctx) })
	if err != nil {
		return fmt.Errorf("digest schedule %q: %w", s.cfg.Schedule, err)
	}
	c.Start()
	s.cron = c
	s.log.Info("traffic digest scheduled", logx.String("spec", s.cfg.Schedule))
	return nil
}

func (s *Service) Stop(ctx context.Context) {
	s.runMu.Lock()
	c := s.cron
	s.cron = nil
	s.runMu.Unlock()
	if c == nil {
		return
	}
	stopCtx := c.Stop()
	select {
	case <-stopCtx.Done():
	case <-ctx.Done():
		s.log.Warn("digest stop timed out", logx.Err(ctx.Err()))
	}
}

func (s *Service) run(ctx context.Context) {
	clients, err := s.store.Clients(ctx)
	if err != nil {
		s.log.Error("digest panel read failed", logx.Err(err))
		return
	}

	byOwner := make(map[int64][]panel.Client)
	for _, c := range clients {
		if c.TgID > 0 {
			byOwner[c.TgID] = append(byOwner[c.TgID], c)
		}
	}

	sent, failed := 0, 0
	for owner, owned := range byOwner {
		text := s.compose(ctx, owned)
		_, err := s.sender.SendText(ctx, transport.ChatTarget{ChatID: owner}, text,
			&transport.SendOptions{ParseMode: "Markdown"})
		if err != nil {
			// One stale chat must not starve the rest of the digest run.
			failed++
			s.log.Warn("digest delivery failed", logx.Int64("owner", owner), logx.Err(err))
			continue
		}
		sent++
	}
	s.log.Info("traffic digest sent", logx.Int("delivered", sent), logx.Int("failed", failed))
}

func (s *Service) compose(ctx context.Context, owned []panel.Client) string {
	var b strings.Builder
	b.WriteString("📊 Daily traffic digest\n")
	for _, c := range owned {
		t, ok, err := s.store.Traffic(ctx, c.Email)
		if err != nil || !ok {
			fmt.Fprintf(&b, "\n👤 %s: stats unavailable", c.Email)
			continue
		}
		up := gb(t.Up)
		down := gb(t.Down)
		fmt.Fprintf(&b, "\n👤 %s: ↑%.2f GB  ↓%.2f GB  (total %.2f GB)", c.Email, up, down, up+down)
	}
	return b.String()
}

func gb(b int64) float64 {
	return math.Round(float64(b)/(1<<30)*100) / 100
}
