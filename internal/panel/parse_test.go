package panel

import (
	"testing"

	logx "xuibot/pkg/logx"
)

func TestParseClients(t *testing.T) {
	t.Parallel()
	settings := []byte(`{
		"clients": [
			{"id": "id-1", "email": "alice", "tgId": 100, "totalGB": 10737418240, "enable": true},
			{"id": "id-2", "email": "bob", "enable": false, "comment": "trial"}
		]
	}`)

	got, err := parseClients(settings, logx.Nop())
	if err != nil {
		t.Fatalf("parseClients: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("got %d clients, want 2", len(got))
	}
	if got[0].Email != "alice" || got[0].TgID != 100 || !got[0].Enable {
		t.Fatalf("alice = %+v", got[0])
	}
	if got[1].Comment != "trial" || got[1].Enable {
		t.Fatalf("bob = %+v", got[1])
	}
}

func TestParseClientsSkipsMalformedRecord(t *testing.T) {
	t.Parallel()
	settings := []byte(`{
		"clients": [
			{"id": "id-1", "email": "alice"},
			{"id": 42, "email": true},
			{"id": "id-3", "email": "carol"}
		]
	}`)

	got, err := parseClients(settings, logx.Nop())
	if err != nil {
		t.Fatalf("parseClients: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("got %d clients, want 2 (malformed one skipped)", len(got))
	}
	if got[0].Email != "alice" || got[1].Email != "carol" {
		t.Fatalf("clients = %+v", got)
	}
}

func TestParseClientsEmptyInput(t *testing.T) {
	t.Parallel()
	got, err := parseClients(nil, logx.Nop())
	if err != nil {
		t.Fatalf("parseClients(nil): %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("got %d clients, want 0", len(got))
	}
}

func TestParseClientsRejectsBrokenSettings(t *testing.T) {
	t.Parallel()
	if _, err := parseClients([]byte(`{"clients": `), logx.Nop()); err == nil {
		t.Fatal("expected error for truncated settings JSON")
	}
}

func TestParseStreamMeta(t *testing.T) {
	t.Parallel()
	stream := []byte(`{
		"network": "tcp",
		"security": "reality",
		"settings": {"publicKey": "pbk", "fingerprint": "chrome"},
		"realitySettings": {"serverNames": ["yahoo.com", "alt.com"], "shortIds": ["ab12", "cd34"]}
	}`)

	meta, err := parseStreamMeta("vpn.example.com", 443, "main", stream)
	if err != nil {
		t.Fatalf("parseStreamMeta: %v", err)
	}
	if meta.Listen != "vpn.example.com" || meta.Port != 443 || meta.Remark != "main" {
		t.Fatalf("row fields: %+v", meta)
	}
	if meta.Security != "reality" || meta.PublicKey != "pbk" || meta.Fingerprint != "chrome" {
		t.Fatalf("security fields: %+v", meta)
	}
	if meta.ServerName != "yahoo.com" || meta.ShortID != "ab12" {
		t.Fatalf("first-entry fields: %+v", meta)
	}
}

func TestParseStreamMetaDefaults(t *testing.T) {
	t.Parallel()
	meta, err := parseStreamMeta("h", 1, "r", nil)
	if err != nil {
		t.Fatalf("parseStreamMeta: %v", err)
	}
	if meta.Network != "tcp" {
		t.Fatalf("Network = %q, want tcp", meta.Network)
	}

	meta, err = parseStreamMeta("h", 1, "r", []byte(`{}`))
	if err != nil {
		t.Fatalf("parseStreamMeta({}): %v", err)
	}
	if meta.Network != "tcp" || meta.Security != "none" {
		t.Fatalf("defaults: %+v", meta)
	}
}
