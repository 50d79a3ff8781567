// Package source provides the pool of background event streams that overlay
// samples are drawn from.
//
// A [Pool] holds one open [Stream] per configured location for the whole run.
// Every draw picks a stream uniformly at random through an explicit
// [Selector]. A stream that reaches its end is closed, reopened at the same
// location and read once more; if that yields nothing the draw fails with a
// STREAM_EXHAUSTED coded error.
package source

import (
	"context"
	stderrors "errors"
	"fmt"
	"io"

	"github.com/charmbracelet/log"
	"golang.org/x/sync/errgroup"

	"github.com/matzehuels/overlaybx/pkg/errors"
	"github.com/matzehuels/overlaybx/pkg/event"
	"github.com/matzehuels/overlaybx/pkg/observability"
)

// Stream is a sequential reader of events. ReadNext returns io.EOF once the
// stream has no more events.
type Stream interface {
	ReadNext(ctx context.Context) (*event.Event, error)
	Close() error
}

// Opener opens a stream for a location. Open may be called from several
// goroutines at once.
type Opener interface {
	Open(ctx context.Context, location string) (Stream, error)
}

// OpenerFunc adapts a function to the Opener interface.
type OpenerFunc func(ctx context.Context, location string) (Stream, error)

// Open implements Opener.
func (f OpenerFunc) Open(ctx context.Context, location string) (Stream, error) {
	return f(ctx, location)
}

// StreamStats reports per-stream access counts.
type StreamStats struct {
	Location  string
	Draws     int // Samples returned
	Reopens   int // Times the stream was rewound
	Exhausted int // Draws that failed because the stream stayed empty
}

type stream struct {
	id       int
	location string
	handle   Stream
	stats    StreamStats
}

// Pool is the set of background streams. It is not safe for concurrent use.
type Pool struct {
	opener  Opener
	sel     Selector
	logger  *log.Logger
	streams []*stream
}

// maxConcurrentOpens bounds the number of locations opened at once.
const maxConcurrentOpens = 8

// NewPool opens every location, several at a time. If any open fails, the
// streams opened so far are closed and the error is returned.
func NewPool(ctx context.Context, opener Opener, locations []string, sel Selector, logger *log.Logger) (*Pool, error) {
	if logger == nil {
		logger = log.Default()
	}
	if opener == nil {
		return nil, errors.New(errors.ErrCodeInternal, "source pool requires an opener")
	}
	if sel == nil {
		return nil, errors.New(errors.ErrCodeInternal, "source pool requires a selector")
	}
	if len(locations) == 0 {
		return nil, errors.New(errors.ErrCodeInvalidConfig, "no background input files configured")
	}
	for _, loc := range locations {
		if err := errors.ValidateLocation(loc); err != nil {
			return nil, err
		}
	}

	handles := make([]Stream, len(locations))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxConcurrentOpens)
	for i, loc := range locations {
		g.Go(func() error {
			h, err := opener.Open(gctx, loc)
			if err != nil {
				return fmt.Errorf("open background stream %s: %w", loc, err)
			}
			handles[i] = h
			return nil
		})
	}
	err := g.Wait()

	p := &Pool{opener: opener, sel: sel, logger: logger}
	for i, h := range handles {
		if h == nil {
			continue
		}
		p.streams = append(p.streams, &stream{
			id:       i,
			location: locations[i],
			handle:   h,
			stats:    StreamStats{Location: locations[i]},
		})
	}
	if err != nil {
		return nil, stderrors.Join(err, p.Close())
	}
	for _, s := range p.streams {
		logger.Debug("opened background stream", "id", s.id, "location", s.location)
	}
	return p, nil
}

// Len returns the number of streams in the pool.
func (p *Pool) Len() int { return len(p.streams) }

// DrawNext returns the next event of a uniformly chosen stream. The caller
// owns the returned event.
func (p *Pool) DrawNext(ctx context.Context) (*event.Event, error) {
	if len(p.streams) == 0 {
		return nil, errors.New(errors.ErrCodeInternal, "draw from a closed source pool")
	}
	s := p.streams[p.sel.IntN(len(p.streams))]

	evt, err := s.handle.ReadNext(ctx)
	switch {
	case stderrors.Is(err, io.EOF):
		evt, err = p.reopen(ctx, s)
	case err != nil:
		err = errors.Wrap(errors.ErrCodeStreamRead, err, "read %s", s.location)
	}
	if err != nil {
		return nil, err
	}

	s.stats.Draws++
	observability.Source().OnDraw(ctx, s.id, s.location)
	return evt, nil
}

// reopen rewinds s and retries the read once.
func (p *Pool) reopen(ctx context.Context, s *stream) (*event.Event, error) {
	p.logger.Debug("reopening background stream", "id", s.id, "location", s.location)
	if err := s.handle.Close(); err != nil {
		p.logger.Warn("close exhausted stream", "location", s.location, "err", err)
	}
	h, err := p.opener.Open(ctx, s.location)
	if err != nil {
		// Keep a handle that reports EOF so the pool stays consistent.
		s.handle = closedStream{}
		return nil, errors.Wrap(errors.ErrCodeStreamRead, err, "reopen %s", s.location)
	}
	s.handle = h
	s.stats.Reopens++
	observability.Source().OnReopen(ctx, s.id, s.location)

	evt, err := h.ReadNext(ctx)
	switch {
	case stderrors.Is(err, io.EOF):
		s.stats.Exhausted++
		observability.Source().OnExhausted(ctx, s.id, s.location)
		return nil, errors.New(errors.ErrCodeStreamExhausted, "background stream %s yields no events", s.location)
	case err != nil:
		return nil, errors.Wrap(errors.ErrCodeStreamRead, err, "read %s", s.location)
	}
	return evt, nil
}

// Stats returns a snapshot of per-stream counters in configuration order.
func (p *Pool) Stats() []StreamStats {
	out := make([]StreamStats, len(p.streams))
	for i, s := range p.streams {
		out[i] = s.stats
	}
	return out
}

// Close closes every stream. Errors are joined.
func (p *Pool) Close() error {
	var errs []error
	for _, s := range p.streams {
		if err := s.handle.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close %s: %w", s.location, err))
		}
	}
	p.streams = nil
	return stderrors.Join(errs...)
}

type closedStream struct{}

func (closedStream) ReadNext(context.Context) (*event.Event, error) { return nil, io.EOF }
func (closedStream) Close() error                                    { return nil }
