package monitor

import "xuibot/internal/panel"

type ChangeKind int

const (
	// ChangeConfig fires when an owner's rendered link for an email appears
	// or differs from the baseline.
	ChangeConfig ChangeKind = iota + 1
	// ChangeNewAccount fires when a client id appears that the baseline
	// did not contain.
	ChangeNewAccount
)

type Change struct {
	Kind ChangeKind

	// ChangeConfig fields
	OwnerID int64
	Email   string
	Config  string

	// ChangeNewAccount field
	Client panel.Client
}

// DiffConfigs compares two config snapshots and reports every (owner, email)
// pair whose rendered link is new or changed. Pairs present only in old are
// deliberately silent: the panel's settings blob gives no way to distinguish
// a removed client from one the panel simply stopped listing, so deletions
// are out of scope for notification.
//
// Pure function; inputs are never mutated. DiffConfigs(x, x) is empty.
func DiffConfigs(old, new ConfigSnapshot) []Change {
	var out []Change
	for owner, cur := range new {
		prev := old[owner]
		prevByEmail := make(map[string]string, len(prev))
		for _, oc := range prev {
			prevByEmail[oc.Email] = oc.Config
		}
		for _, oc := range cur {
			if before, ok := prevByEmail[oc.Email]; ok && before == oc.Config {
				continue
			}
			out = append(out, Change{
				Kind:    ChangeConfig,
				OwnerID: owner,
				Email:   oc.Email,
				Config:  oc.Config,
			})
		}
	}
	return out
}

// DiffAccounts reports every client id present in new but not in old.
// There is no modified-account event: value drift on an existing account is
// covered by the config diff instead.
func DiffAccounts(old, new AccountSnapshot) []Change {
	var out []Change
	for id, c := range new {
		if _, ok := old[id]; ok {
			continue
		}
		out = append(out, Change{Kind: ChangeNewAccount, Client: c})
	}
	return out
}
