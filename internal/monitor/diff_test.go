package monitor

import "testing"

func TestDiffConfigsIdenticalIsEmpty(t *testing.T) {
	t.Parallel()
	snap := ConfigSnapshot{
		100: {{Email: "alice", Config: "vless://a"}},
		200: {{Email: "bob", Config: "vless://b"}, {Email: "bob2", Config: "vless://b2"}},
	}
	if got := DiffConfigs(snap, snap); len(got) != 0 {
		t.Fatalf("DiffConfigs(x, x) = %v, want empty", got)
	}
}

func TestDiffConfigsReportsChangedAndNewPairs(t *testing.T) {
	t.Parallel()
	old := ConfigSnapshot{
		100: {{Email: "alice", Config: "vless://old"}},
	}
	cur := ConfigSnapshot{
		100: {{Email: "alice", Config: "vless://new"}},
		200: {{Email: "bob", Config: "vless://b"}},
	}

	got := DiffConfigs(old, cur)
	if len(got) != 2 {
		t.Fatalf("got %d changes, want 2: %v", len(got), got)
	}
	byEmail := make(map[string]Change, len(got))
	for _, ch := range got {
		if ch.Kind != ChangeConfig {
			t.Fatalf("kind = %v, want ChangeConfig", ch.Kind)
		}
		byEmail[ch.Email] = ch
	}
	if ch := byEmail["alice"]; ch.OwnerID != 100 || ch.Config != "vless://new" {
		t.Fatalf("alice change = %+v", ch)
	}
	if ch := byEmail["bob"]; ch.OwnerID != 200 || ch.Config != "vless://b" {
		t.Fatalf("bob change = %+v", ch)
	}
}

func TestDiffConfigsSingleChangeFiresExactlyOnce(t *testing.T) {
	t.Parallel()
	old := ConfigSnapshot{
		100: {{Email: "alice", Config: "vless://a"}, {Email: "alice2", Config: "vless://a2"}},
	}
	cur := ConfigSnapshot{
		100: {{Email: "alice", Config: "vless://a"}, {Email: "alice2", Config: "vless://changed"}},
	}

	got := DiffConfigs(old, cur)
	if len(got) != 1 {
		t.Fatalf("got %d changes, want exactly 1: %v", len(got), got)
	}
	if got[0].Email != "alice2" || got[0].Config != "vless://changed" {
		t.Fatalf("change = %+v", got[0])
	}
}

func TestDiffConfigsRemovedPairIsSilent(t *testing.T) {
	t.Parallel()
	old := ConfigSnapshot{
		100: {{Email: "alice", Config: "vless://a"}, {Email: "gone", Config: "vless://g"}},
		300: {{Email: "whole-owner-gone", Config: "vless://w"}},
	}
	cur := ConfigSnapshot{
		100: {{Email: "alice", Config: "vless://a"}},
	}
	if got := DiffConfigs(old, cur); len(got) != 0 {
		t.Fatalf("removed pairs must not be reported, got %v", got)
	}
}

func TestDiffAccountsReportsOnlyNewIDs(t *testing.T) {
	t.Parallel()
	old := AccountSnapshot{
		"id-1": {ID: "id-1", Email: "alice"},
	}
	cur := AccountSnapshot{
		"id-1": {ID: "id-1", Email: "alice-renamed", TotalGB: 42},
		"id-2": {ID: "id-2", Email: "bob"},
	}

	got := DiffAccounts(old, cur)
	if len(got) != 1 {
		t.Fatalf("got %d changes, want 1: %v", len(got), got)
	}
	if got[0].Kind != ChangeNewAccount || got[0].Client.ID != "id-2" {
		t.Fatalf("change = %+v", got[0])
	}
}

func TestDiffAccountsIdenticalIsEmpty(t *testing.T) {
	t.Parallel()
	snap := AccountSnapshot{
		"id-1": {ID: "id-1"},
		"id-2": {ID: "id-2"},
	}
	if got := DiffAccounts(snap, snap); len(got) != 0 {
		t.Fatalf("DiffAccounts(x, x) = %v, want empty", got)
	}
}

func TestDiffConfigsDoesNotMutateInputs(t *testing.T) {
	t.Parallel()
	old := ConfigSnapshot{100: {{Email: "a", Config: "1"}}}
	cur := ConfigSnapshot{100: {{Email: "a", Config: "2"}}}
	_ = DiffConfigs(old, cur)
	if old[100][0].Config != "1" || cur[100][0].Config != "2" {
		t.Fatal("inputs were mutated")
	}
}
