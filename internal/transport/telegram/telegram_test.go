package telegram

import (
	"strings"
	"testing"
)

func TestSplitTextShortPassthrough(t *testing.T) {
	t.Parallel()
	got := splitText("hello", 100)
	if len(got) != 1 || got[0] != "hello" {
		t.Fatalf("splitText = %v", got)
	}
}

func TestSplitTextPrefersNewlines(t *testing.T) {
	t.Parallel()
	text := strings.Repeat("line one\n", 10) + "tail"
	got := splitText(text, 40)
	if len(got) < 2 {
		t.Fatalf("expected multiple chunks, got %d", len(got))
	}
	for i, chunk := range got {
		if len([]rune(chunk)) > 40 {
			t.Fatalf("chunk %d exceeds limit: %q", i, chunk)
		}
		if strings.HasSuffix(chunk, "\n") {
			t.Fatalf("chunk %d keeps trailing newline: %q", i, chunk)
		}
	}
	// Nothing lost: rejoining covers every line.
	joined := strings.Join(got, "\n")
	if !strings.Contains(joined, "tail") {
		t.Fatal("tail chunk missing")
	}
}

func TestSplitTextHardBreakWithoutNewlines(t *testing.T) {
	t.Parallel()
	text := strings.Repeat("x", 95)
	got := splitText(text, 40)
	if len(got) != 3 {
		t.Fatalf("chunks = %d, want 3", len(got))
	}
	total := 0
	for _, chunk := range got {
		total += len(chunk)
	}
	if total != 95 {
		t.Fatalf("characters lost: %d of 95", total)
	}
}

func TestSplitTextUnicodeSafe(t *testing.T) {
	t.Parallel()
	text := strings.Repeat("日本語テキスト", 20)
	for _, chunk := range splitText(text, 30) {
		if !strings.HasPrefix(chunk, "日") && !strings.HasPrefix(chunk, "本") &&
			!strings.HasPrefix(chunk, "語") && !strings.HasPrefix(chunk, "テ") &&
			!strings.HasPrefix(chunk, "キ") && !strings.HasPrefix(chunk, "ス") &&
			!strings.HasPrefix(chunk, "ト") {
			t.Fatalf("chunk starts mid-rune: %q", chunk)
		}
	}
}
