// Package cli implements the overlaybx command-line interface.
//
// The CLI drives overlay runs over event files and offers tooling around
// them. It is built using cobra and logs through charmbracelet/log.
//
// # Commands
//
// The main commands are:
//   - run: Overlay background onto a primary event file
//   - windows: Print the per-layer overlay window table
//   - check: Run the hit diagnostics over an event file
//   - generate: Write a file of synthetic events
//   - particles: Render the particle graph of one event
//
// # Logging
//
// All commands support --verbose (-v) for debug-level logging. At debug
// level every background draw, stream reopen and overlaid event is traced.
//
// # Example
//
//	c := cli.New(os.Stderr, cli.LogInfo)
//	if err := c.RootCommand().ExecuteContext(ctx); err != nil {
//	    os.Exit(1)
//	}
package cli

import (
	"context"
	"io"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/overlaybx/pkg/observability"
)

// newLogger creates a new logger with timestamp formatting.
// Timestamps are formatted as "HH:MM:SS.ms" (e.g., "14:32:01.45").
func newLogger(w io.Writer, level log.Level) *log.Logger {
	return log.NewWithOptions(w, log.Options{
		ReportTimestamp: true,
		TimeFormat:      "15:04:05.00",
		Level:           level,
	})
}

// progress tracks the start time of an operation and logs completion with elapsed duration.
type progress struct {
	logger *log.Logger
	start  time.Time
}

func newProgress(l *log.Logger) *progress {
	return &progress{logger: l, start: time.Now()}
}

// done logs msg along with the elapsed time since progress was created.
// Example output: "Overlaid 100 events (1.234s)"
func (p *progress) done(msg string) {
	p.logger.Infof("%s (%s)", msg, time.Since(p.start).Round(time.Millisecond))
}

// =============================================================================
// Hook Tracing
// =============================================================================

// logHooks traces overlay and stream events at debug level.
type logHooks struct {
	logger *log.Logger
}

var (
	_ observability.OverlayHooks = (*logHooks)(nil)
	_ observability.SourceHooks  = (*logHooks)(nil)
)

func (h *logHooks) OnEventStart(_ context.Context, run, evt int) {
	h.logger.Debug("overlay start", "run", run, "event", evt)
}

func (h *logHooks) OnEventComplete(_ context.Context, run, evt, transferred int, d time.Duration, err error) {
	if err != nil {
		h.logger.Debug("overlay failed", "run", run, "event", evt, "err", err)
		return
	}
	h.logger.Debug("overlay done", "run", run, "event", evt, "hits", transferred, "took", d.Round(time.Microsecond))
}

func (h *logHooks) OnEventSkipped(_ context.Context, run, evt int, reason string) {
	h.logger.Debug("overlay skipped", "run", run, "event", evt, "reason", reason)
}

func (h *logHooks) OnDraw(_ context.Context, stream int, location string) {
	h.logger.Debug("draw", "stream", stream, "location", location)
}

func (h *logHooks) OnReopen(_ context.Context, stream int, location string) {
	h.logger.Debug("reopen", "stream", stream, "location", location)
}

func (h *logHooks) OnExhausted(_ context.Context, stream int, location string) {
	h.logger.Debug("exhausted", "stream", stream, "location", location)
}
