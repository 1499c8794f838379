package helpers

import (
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"terminal-bridge/src/logger"
)

func TestTypedErrorsMatchSentinels(t *testing.T) {
	err := NewSourceUnavailable("positions", io.EOF)
	if !errors.Is(err, ErrSourceUnavailable) {
		t.Fatalf("expected source unavailable sentinel to match")
	}
	if !errors.Is(err, io.EOF) {
		t.Fatalf("expected cause to be unwrapped")
	}
	if errors.Is(err, ErrMalformedBar) {
		t.Fatalf("did not expect malformed bar match")
	}

	bad := NewMalformedBar("bar has %d fields", 3)
	var mb *MalformedBarError
	if !errors.As(bad, &mb) || !errors.Is(bad, ErrMalformedBar) {
		t.Fatalf("expected malformed bar error, got %v", bad)
	}
}

func TestRetryWithBackoffStopsOnSuccess(t *testing.T) {
	calls := 0
	err := RetryWithBackoff(nil, "op", 3, time.Millisecond, func() error {
		calls++
		if calls < 2 {
			return errors.New("transient")
		}
		return nil
	})
	if err != nil || calls != 2 {
		t.Fatalf("expected success on 2nd call, got err=%v calls=%d", err, calls)
	}
}

func TestRunCycleRecoversPanics(t *testing.T) {
	h := NewErrorHandler(logger.NewLoggerTo(io.Discard, nil, "test"))

	err := h.RunCycle("price", func() error { panic("boom") })
	if err == nil || !strings.Contains(err.Error(), "boom") {
		t.Fatalf("expected recovered panic, got %v", err)
	}
	_ = h.RunCycle("price", func() error { return errors.New("again") })
	if got := h.ConsecutiveFailures("price"); got != 2 {
		t.Fatalf("expected 2 failures, got %d", got)
	}
	if err := h.RunCycle("price", func() error { return nil }); err != nil {
		t.Fatalf("expected nil, got %v", err)
	}
	if got := h.ConsecutiveFailures("price"); got != 0 {
		t.Fatalf("expected streak reset, got %d", got)
	}
}
