package cli

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"
)

func TestSpinnerBasic(t *testing.T) {
	var buf bytes.Buffer
	s := startSpinnerTo(context.Background(), &buf, "Testing...")
	time.Sleep(200 * time.Millisecond)
	s.Stop()

	if !strings.Contains(buf.String(), "Testing...") {
		t.Errorf("spinner output = %q", buf.String())
	}
	if s.Cancelled() {
		t.Error("Stop should not count as cancellation")
	}
}

func TestSpinnerWithContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	var buf bytes.Buffer
	s := startSpinnerTo(ctx, &buf, "Testing with context...")
	cancel()
	s.Stop()

	if !s.Cancelled() {
		t.Error("spinner should be cancelled after context cancellation")
	}
}

func TestSpinnerWithTimeout(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	var buf bytes.Buffer
	s := startSpinnerTo(ctx, &buf, "Testing with timeout...")
	time.Sleep(100 * time.Millisecond)
	s.Stop()

	if !s.Cancelled() {
		t.Error("spinner should be cancelled after context timeout")
	}
}

func TestSpinnerStopIsIdempotent(t *testing.T) {
	var buf bytes.Buffer
	s := startSpinnerTo(context.Background(), &buf, "Testing idempotent stop...")

	s.Stop()
	s.Stop()
	s.Stop()
}
