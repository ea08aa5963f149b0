package notify

import (
	"context"
	"errors"
	"testing"

	"xuibot/internal/panel"
)

type stubStore struct {
	clients []panel.Client
	err     error
}

func (s *stubStore) Inbound(ctx context.Context) (panel.InboundMeta, error) {
	return panel.InboundMeta{}, nil
}

func (s *stubStore) Clients(ctx context.Context) ([]panel.Client, error) {
	return s.clients, s.err
}

func (s *stubStore) Traffic(ctx context.Context, email string) (panel.Traffic, bool, error) {
	return panel.Traffic{}, false, nil
}

func (s *stubStore) Close() error { return nil }

func TestSubscribersDistinctAndSorted(t *testing.T) {
	t.Parallel()
	dir := NewPanelDirectory(&stubStore{clients: []panel.Client{
		{ID: "1", Email: "a", TgID: 300},
		{ID: "2", Email: "b", TgID: 100},
		{ID: "3", Email: "c", TgID: 300}, // second account, same owner
		{ID: "4", Email: "d", TgID: 0},   // unowned
	}})

	got, err := dir.Subscribers(context.Background())
	if err != nil {
		t.Fatalf("Subscribers: %v", err)
	}
	if len(got) != 2 || got[0] != 100 || got[1] != 300 {
		t.Fatalf("Subscribers = %v, want [100 300]", got)
	}
}

func TestIsSubscriber(t *testing.T) {
	t.Parallel()
	dir := NewPanelDirectory(&stubStore{clients: []panel.Client{
		{ID: "1", Email: "a", TgID: 100},
	}})

	ok, err := dir.IsSubscriber(context.Background(), 100)
	if err != nil || !ok {
		t.Fatalf("IsSubscriber(100) = %v, %v", ok, err)
	}
	ok, err = dir.IsSubscriber(context.Background(), 999)
	if err != nil || ok {
		t.Fatalf("IsSubscriber(999) = %v, %v", ok, err)
	}
}

func TestSubscribersPropagatesStoreError(t *testing.T) {
	t.Parallel()
	dir := NewPanelDirectory(&stubStore{err: errors.New("locked")})
	if _, err := dir.Subscribers(context.Background()); err == nil {
		t.Fatal("expected store error")
	}
}
