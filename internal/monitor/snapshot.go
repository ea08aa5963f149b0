package monitor

import (
	"context"

	"xuibot/internal/panel"
)

// OwnedConfig is one rendered link belonging to an owner.
type OwnedConfig struct {
	Email  string
	Config string
}

// ConfigSnapshot maps owner Telegram id to that owner's rendered links.
// Snapshots are built fresh each poll and never mutated afterwards.
type ConfigSnapshot map[int64][]OwnedConfig

// AccountSnapshot is the set of client records keyed by client id.
type AccountSnapshot map[string]panel.Client

// BuildSnapshots reads the panel once and produces both snapshot kinds.
// Unowned clients (TgID == 0) appear in the account snapshot but not in the
// config snapshot: drift on them has no notification target.
func BuildSnapshots(ctx context.Context, store panel.Store) (ConfigSnapshot, AccountSnapshot, error) {
	meta, err := store.Inbound(ctx)
	if err != nil {
		return nil, nil, err
	}
	clients, err := store.Clients(ctx)
	if err != nil {
		return nil, nil, err
	}

	configs := make(ConfigSnapshot)
	accounts := make(AccountSnapshot, len(clients))
	for _, c := range clients {
		if c.ID != "" {
			accounts[c.ID] = c
		}
		if c.TgID == 0 {
			continue
		}
		configs[c.TgID] = append(configs[c.TgID], OwnedConfig{
			Email:  c.Email,
			Config: panel.Render(meta, c),
		})
	}
	return configs, accounts, nil
}
