package digest

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"xuibot/internal/panel"
	"xuibot/internal/transport"
	logx "xuibot/pkg/logx"
)

type stubStore struct {
	clients []panel.Client
	traffic map[string]panel.Traffic
	err     error
}

func (s *stubStore) Inbound(ctx context.Context) (panel.InboundMeta, error) {
	return panel.InboundMeta{}, nil
}

func (s *stubStore) Clients(ctx context.Context) ([]panel.Client, error) {
	return s.clients, s.err
}

func (s *stubStore) Traffic(ctx context.Context, email string) (panel.Traffic, bool, error) {
	t, ok := s.traffic[email]
	return t, ok, nil
}

func (s *stubStore) Close() error { return nil }

type recordingSender struct {
	mu      sync.Mutex
	sent    map[int64]string
	failFor map[int64]error
}

func (r *recordingSender) SendText(ctx context.Context, to transport.ChatTarget, text string, opt *transport.SendOptions) (transport.MessageRef, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.failFor[to.ChatID]; err != nil {
		return transport.MessageRef{}, err
	}
	if r.sent == nil {
		r.sent = make(map[int64]string)
	}
	r.sent[to.ChatID] = text
	return transport.MessageRef{ChatID: to.ChatID, MessageID: 1}, nil
}

func TestRunSendsOneDigestPerOwner(t *testing.T) {
	t.Parallel()
	store := &stubStore{
		clients: []panel.Client{
			{ID: "1", Email: "alice", TgID: 100},
			{ID: "2", Email: "alice2", TgID: 100},
			{ID: "3", Email: "bob", TgID: 200},
			{ID: "4", Email: "orphan", TgID: 0},
		},
		traffic: map[string]panel.Traffic{
			"alice": {Email: "alice", Up: 1 << 30, Down: 2 << 30},
			"bob":   {Email: "bob", Up: 0, Down: 512 << 20},
		},
	}
	sender := &recordingSender{}
	s := New(Config{Enabled: true}, store, sender, logx.Nop())

	s.run(context.Background())

	if len(sender.sent) != 2 {
		t.Fatalf("sent to %d owners, want 2", len(sender.sent))
	}
	alice := sender.sent[100]
	if !strings.Contains(alice, "alice") || !strings.Contains(alice, "alice2") {
		t.Fatalf("owner 100 digest missing an account: %q", alice)
	}
	if !strings.Contains(alice, "↑1.00 GB") || !strings.Contains(alice, "↓2.00 GB") {
		t.Fatalf("owner 100 digest missing traffic: %q", alice)
	}
	if !strings.Contains(alice, "stats unavailable") {
		t.Fatalf("account without a traffic row must say unavailable: %q", alice)
	}
	if bob := sender.sent[200]; !strings.Contains(bob, "↓0.50 GB") {
		t.Fatalf("owner 200 digest: %q", bob)
	}
}

func TestRunIsolatesDeliveryFailures(t *testing.T) {
	t.Parallel()
	store := &stubStore{
		clients: []panel.Client{
			{ID: "1", Email: "alice", TgID: 100},
			{ID: "2", Email: "bob", TgID: 200},
		},
	}
	sender := &recordingSender{failFor: map[int64]error{100: errors.New("blocked")}}
	s := New(Config{Enabled: true}, store, sender, logx.Nop())

	s.run(context.Background())

	if _, ok := sender.sent[200]; !ok {
		t.Fatal("failure for one owner starved another")
	}
}

func TestNewDefaultsSchedule(t *testing.T) {
	t.Parallel()
	s := New(Config{Enabled: true}, &stubStore{}, &recordingSender{}, logx.Nop())
	if s.cfg.Schedule != defaultSchedule {
		t.Fatalf("schedule = %q, want %q", s.cfg.Schedule, defaultSchedule)
	}
}

func TestStartRejectsBadSchedule(t *testing.T) {
	t.Parallel()
	s := New(Config{Enabled: true, Schedule: "not a cron spec"}, &stubStore{}, &recordingSender{}, logx.Nop())
	if err := s.Start(context.Background()); err == nil {
		t.Fatal("expected error for invalid schedule")
	}
}
