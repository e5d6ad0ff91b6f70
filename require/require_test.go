package require

import (
	"strings"
	"testing"
)

func TestTextDiff(t *testing.T) {
	if d := TextDiff("a\nb\n", "a\nb\n"); d != "" {
		t.Fatalf("expected no diff, got:\n%s", d)
	}
	d := TextDiff("a\nb\n", "a\nc\n")
	if !strings.Contains(d, "-b") || !strings.Contains(d, "+c") {
		t.Fatalf("unexpected diff:\n%s", d)
	}
}
