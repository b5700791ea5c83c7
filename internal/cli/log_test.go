package cli

import (
	"context"
	"io"
	"testing"

	"github.com/charmbracelet/log"
)

func TestLoggerContextRoundTrip(t *testing.T) {
	l := newLogger(io.Discard, log.DebugLevel)
	ctx := withLogger(context.Background(), l)

	if got := loggerFromContext(ctx); got != l {
		t.Error("logger from context is not the one attached")
	}
}

func TestLoggerFromContextFallback(t *testing.T) {
	if loggerFromContext(context.Background()) == nil {
		t.Error("expected the default logger, got nil")
	}
}

func TestFormatGain(t *testing.T) {
	cases := []struct {
		n    int
		want string
	}{
		{12, "+12"},
		{0, "0"},
		{-4, "-4"},
	}
	for _, tc := range cases {
		if got := formatGain(tc.n); got != tc.want {
			t.Errorf("formatGain(%d) = %q, want %q", tc.n, got, tc.want)
		}
	}
}
