package bot

import (
	"strings"
	"testing"
)

func TestParseCommand(t *testing.T) {
	t.Parallel()
	tests := []struct {
		text string
		cmd  string
		ok   bool
	}{
		{text: "/start", cmd: "start", ok: true},
		{text: "/menu extra args", cmd: "menu", ok: true},
		{text: "/Broadcast", cmd: "broadcast", ok: true},
		{text: "/report@xuibot now", cmd: "report", ok: true},
		{text: "  /cancel  ", cmd: "cancel", ok: true},
		{text: "hello", ok: false},
		{text: "/", ok: false},
		{text: "/@bot", ok: false},
		{text: "", ok: false},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.text, func(t *testing.T) {
			cmd, ok := parseCommand(tt.text)
			if ok != tt.ok || cmd != tt.cmd {
				t.Fatalf("parseCommand(%q) = (%q, %v), want (%q, %v)", tt.text, cmd, ok, tt.cmd, tt.ok)
			}
		})
	}
}

func TestHelpTextHidesAdminCommands(t *testing.T) {
	t.Parallel()
	if strings.Contains(helpText(false), "/broadcast") {
		t.Fatal("non-admin help lists /broadcast")
	}
	if !strings.Contains(helpText(true), "/broadcast") {
		t.Fatal("admin help is missing /broadcast")
	}
}

func TestBytesToGB(t *testing.T) {
	t.Parallel()
	if got := bytesToGB(1 << 30); got != 1.00 {
		t.Fatalf("bytesToGB(1GiB) = %v", got)
	}
	if got := bytesToGB(0); got != 0 {
		t.Fatalf("bytesToGB(0) = %v", got)
	}
	if got := bytesToGB(1610612736); got != 1.5 {
		t.Fatalf("bytesToGB(1.5GiB) = %v", got)
	}
}
