package cmd

import (
	"context"
	"io"
	"strings"
	"testing"
	"time"
)

func TestAskReadsLines(t *testing.T) {
	input := newLineReader(strings.NewReader("  y  \nexample.com\n"))

	for _, want := range []string{"y", "example.com"} {
		got, ok := input.ask(context.Background(), "> ")
		if !ok || got != want {
			t.Fatalf("ask = %q, %v; want %q, true", got, ok, want)
		}
	}
}

func TestAskEndOfInput(t *testing.T) {
	input := newLineReader(strings.NewReader(""))

	if _, ok := input.ask(context.Background(), "> "); ok {
		t.Error("ask should report end of input")
	}
	// Further calls keep reporting it
	if _, ok := input.ask(context.Background(), "> "); ok {
		t.Error("ask after end of input should report end of input")
	}
}

func TestAskCancelled(t *testing.T) {
	r, w := io.Pipe()
	defer w.Close()
	input := newLineReader(r)

	ctx, cancel := context.WithCancel(context.Background())
	time.AfterFunc(10*time.Millisecond, cancel)

	if _, ok := input.ask(ctx, "> "); ok {
		t.Error("ask should stop when the context is cancelled")
	}
}

func TestConfirm(t *testing.T) {
	tests := []struct {
		input string
		want  bool
	}{
		{"y\n", true},
		{"YES\n", true},
		{"n\n", false},
		{"\n", false},
		{"", false},
	}

	for _, tt := range tests {
		input := newLineReader(strings.NewReader(tt.input))
		if got := input.confirm(context.Background(), "save?"); got != tt.want {
			t.Errorf("confirm(%q) = %v, want %v", tt.input, got, tt.want)
		}
	}
}
