package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"
)

var spinnerFrames = []string{"⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏"}

// spinner animates a status line on a terminal while a long step runs.
// It stops when Stop is called or ctx is done.
type spinner struct {
	w       io.Writer
	message string
	parent  context.Context
	ctx     context.Context
	cancel  context.CancelFunc
	stopped chan struct{}
	once    sync.Once
	mu      sync.Mutex
}

// startSpinner starts a spinner on stderr.
func startSpinner(ctx context.Context, message string) *spinner {
	return startSpinnerTo(ctx, os.Stderr, message)
}

func startSpinnerTo(ctx context.Context, w io.Writer, message string) *spinner {
	sctx, cancel := context.WithCancel(ctx)
	s := &spinner{
		w:       w,
		message: message,
		parent:  ctx,
		ctx:     sctx,
		cancel:  cancel,
		stopped: make(chan struct{}),
	}
	go s.loop()
	return s
}

func (s *spinner) loop() {
	defer close(s.stopped)
	ticker := time.NewTicker(80 * time.Millisecond)
	defer ticker.Stop()

	for i := 0; ; i++ {
		select {
		case <-s.ctx.Done():
			s.clear()
			return
		case <-ticker.C:
			frame := spinnerFrames[i%len(spinnerFrames)]
			s.mu.Lock()
			fmt.Fprintf(s.w, "\r%s %s", styleIconSpinner.Render(frame), StyleDim.Render(s.message))
			s.mu.Unlock()
		}
	}
}

func (s *spinner) clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	fmt.Fprintf(s.w, "\r%s\r", strings.Repeat(" ", len(s.message)+4))
}

// Stop stops the animation and clears the line. It is safe to call more
// than once.
func (s *spinner) Stop() {
	s.once.Do(s.cancel)
	<-s.stopped
}

// Cancelled reports whether the parent context ended the spinner.
func (s *spinner) Cancelled() bool {
	return s.parent.Err() != nil
}
