package notify

import (
	"context"
	"sort"

	"xuibot/internal/panel"
)

// PanelDirectory resolves recipient identities from the panel's client list.
// It reads fresh on every call; the panel DB is the single source of truth
// for who owns an account.
type PanelDirectory struct {
	store panel.Store
}

func NewPanelDirectory(store panel.Store) *PanelDirectory {
	return &PanelDirectory{store: store}
}

// Subscribers returns the distinct Telegram ids owning at least one client,
// in stable order.
func (d *PanelDirectory) Subscribers(ctx context.Context) ([]int64, error) {
	clients, err := d.store.Clients(ctx)
	if err != nil {
		return nil, err
	}
	seen := make(map[int64]struct{}, len(clients))
	for _, c := range clients {
		if c.TgID > 0 {
			seen[c.TgID] = struct{}{}
		}
	}
	out := make([]int64, 0, len(seen))
	for id := range seen {
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out, nil
}

// IsSubscriber reports whether the user owns at least one client.
func (d *PanelDirectory) IsSubscriber(ctx context.Context, userID int64) (bool, error) {
	clients, err := d.store.Clients(ctx)
	if err != nil {
		return false, err
	}
	for _, c := range clients {
		if c.TgID == userID {
			return true, nil
		}
	}
	return false, nil
}
