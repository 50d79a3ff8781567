// Package overlay superimposes background bunch crossings onto primary
// events.
//
// For each primary event an [Overlayer] walks bunch crossing depths
// 0..MaxDepth-1 and, at every depth, draws EventsPerBX background samples.
// Each sample is routed through the merge engine:
//
//  1. tracker hits of the layered collection are transferred if their layer
//     still integrates the current depth,
//  2. the sample's particles are appended to the event's particles,
//  3. at depth 0 only, the named collections are append-merged.
//
// [Processor] wraps an Overlayer with the run lifecycle: setup, per-event
// processing, a diagnostic pass and teardown.
package overlay

import (
	"context"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/overlaybx/pkg/config"
	"github.com/matzehuels/overlaybx/pkg/errors"
	"github.com/matzehuels/overlaybx/pkg/event"
	"github.com/matzehuels/overlaybx/pkg/merge"
	"github.com/matzehuels/overlaybx/pkg/observability"
)

// Drawer supplies background samples.
type Drawer interface {
	DrawNext(ctx context.Context) (*event.Event, error)
}

// Options configures an Overlayer.
type Options struct {
	MaxDepth           int // Bunch crossings to walk; values below 1 are treated as 1
	EventsPerBX        int
	ParticleCollection string
	LayeredCollection  string
	NameMapping        merge.NameMapping
	ExhaustedPolicy    config.ExhaustedPolicy
}

// Result counts what one overlay did.
type Result struct {
	Skipped bool // The event had no particle collection and was left untouched

	BXs        int // Depth levels walked
	Draws      int // Samples merged
	Exhausted  int // Samples missing because a stream stayed empty
	ReadErrors int // Samples missing because of read errors

	LayeredExamined int
	Kept            int // Layered records transferred into the event
	Discarded       int
	OutOfRange      int

	ParticlesAppended int
	LinksDropped      int
	NamedAppended     int
}

// Add accumulates o into r. Skipped is not accumulated.
func (r *Result) Add(o Result) {
	r.BXs += o.BXs
	r.Draws += o.Draws
	r.Exhausted += o.Exhausted
	r.ReadErrors += o.ReadErrors
	r.LayeredExamined += o.LayeredExamined
	r.Kept += o.Kept
	r.Discarded += o.Discarded
	r.OutOfRange += o.OutOfRange
	r.ParticlesAppended += o.ParticlesAppended
	r.LinksDropped += o.LinksDropped
	r.NamedAppended += o.NamedAppended
}

// Overlayer overlays background samples onto primary events.
type Overlayer struct {
	drawer Drawer
	engine *merge.Engine
	opts   Options
	logger *log.Logger
}

// New creates an Overlayer. If logger is nil, log.Default() is used.
func New(drawer Drawer, engine *merge.Engine, opts Options, logger *log.Logger) *Overlayer {
	if logger == nil {
		logger = log.Default()
	}
	if opts.MaxDepth < 1 {
		opts.MaxDepth = 1
	}
	if opts.ExhaustedPolicy == "" {
		opts.ExhaustedPolicy = config.ExhaustedSkip
	}
	return &Overlayer{drawer: drawer, engine: engine, opts: opts, logger: logger}
}

// Overlay merges background into evt.
//
// An event without the particle collection is left unmodified and reported
// as skipped with a nil error. The returned error is non-nil only if ctx is
// canceled or a stream is exhausted under the fail policy; the event is then
// partially overlaid.
func (o *Overlayer) Overlay(ctx context.Context, evt *event.Event) (res Result, err error) {
	hooks := observability.Overlay()
	run, num := evt.RunNumber, evt.EventNumber

	particles, ok := evt.Particles(o.opts.ParticleCollection)
	if !ok {
		o.logger.Error("no particle collection in event, can't overlay background",
			"collection", o.opts.ParticleCollection,
			"run", run,
			"event", num)
		hooks.OnEventSkipped(ctx, run, num, "missing particle collection")
		return Result{Skipped: true}, nil
	}

	dest, ok := evt.Collection(o.opts.LayeredCollection)
	if !ok {
		dest = &event.TrackerHits{}
		if err := evt.AddCollection(o.opts.LayeredCollection, dest); err != nil {
			return Result{}, errors.Wrap(errors.ErrCodeInternal, err, "create %s", o.opts.LayeredCollection)
		}
		o.logger.Debug("created layered hit collection", "collection", o.opts.LayeredCollection)
	}

	start := time.Now()
	hooks.OnEventStart(ctx, run, num)
	defer func() {
		hooks.OnEventComplete(ctx, run, num, res.Kept, time.Since(start), err)
	}()

	o.logger.Debug("processing event",
		"event", num,
		"bx", o.opts.MaxDepth,
		"events_per_bx", o.opts.EventsPerBX)

	for depth := range o.opts.MaxDepth {
		res.BXs++
		for range o.opts.EventsPerBX {
			if err := ctx.Err(); err != nil {
				return res, err
			}

			bg, err := o.drawer.DrawNext(ctx)
			switch {
			case errors.Is(err, errors.ErrCodeStreamExhausted):
				res.Exhausted++
				if o.opts.ExhaustedPolicy == config.ExhaustedFail {
					return res, err
				}
				o.logger.Debug("no background sample", "bx", depth, "err", err)
				continue
			case err != nil:
				if cerr := ctx.Err(); cerr != nil {
					return res, cerr
				}
				res.ReadErrors++
				o.logger.Error("read background sample", "bx", depth, "err", err)
				continue
			}

			o.logger.Debug("merge background event",
				"bx", depth,
				"bg_run", bg.RunNumber,
				"bg_event", bg.EventNumber)
			res.Draws++
			o.mergeSample(evt, dest, particles, bg, depth, &res)
		}
	}

	o.logger.Debug("total number of layered background hits",
		"examined", res.LayeredExamined,
		"kept", res.Kept)
	return res, nil
}

func (o *Overlayer) mergeSample(evt *event.Event, dest event.Collection, particles *event.Particles, bg *event.Event, depth int, res *Result) {
	if src, ok := bg.Collection(o.opts.LayeredCollection); ok {
		r := o.engine.MergeLayered(dest, src, depth)
		res.LayeredExamined += r.Examined
		res.Kept += r.Kept
		res.Discarded += r.Discarded
		res.OutOfRange += r.OutOfRange
	} else {
		o.logger.Debug("background sample has no layered collection", "collection", o.opts.LayeredCollection)
	}

	if src, ok := bg.Collection(o.opts.ParticleCollection); ok {
		r := o.engine.MergeAppend(particles, src)
		res.ParticlesAppended += r.Appended
		res.LinksDropped += r.LinksDropped
	}

	if depth == 0 {
		r := o.engine.MergeNamed(evt, bg, o.opts.NameMapping)
		res.NamedAppended += r.Appended
		res.LinksDropped += r.LinksDropped
	}
}
