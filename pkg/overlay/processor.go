package overlay

import (
	"context"
	stderrors "errors"
	"fmt"
	"strconv"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"

	"github.com/matzehuels/overlaybx/pkg/buildinfo"
	"github.com/matzehuels/overlaybx/pkg/config"
	"github.com/matzehuels/overlaybx/pkg/diagnostics"
	"github.com/matzehuels/overlaybx/pkg/errors"
	"github.com/matzehuels/overlaybx/pkg/event"
	"github.com/matzehuels/overlaybx/pkg/geometry"
	"github.com/matzehuels/overlaybx/pkg/merge"
	"github.com/matzehuels/overlaybx/pkg/source"
)

// Event parameters stamped on every overlaid event.
const (
	ParamRunID     = "overlaybx.run_id"
	ParamBXs       = "overlaybx.bx"
	ParamProcessor = "overlaybx.processor"
)

// Summary is the end-of-run report.
type Summary struct {
	RunID   string
	Runs    int
	Events  int
	Skipped int
	Totals  Result
	Layers  []diagnostics.LayerSummary
	Streams []source.StreamStats
	Plots   []string
}

// Processor drives an overlay run through its lifecycle:
//
//	p := overlay.NewProcessor(cfg, geo, eventio.FileOpener{}, logger)
//	if err := p.Init(ctx); err != nil { ... }
//	for each event {
//	    p.ProcessEvent(ctx, evt)
//	    p.Check(evt)
//	}
//	summary, err := p.End()
type Processor struct {
	cfg    config.Config
	geo    geometry.Provider
	opener source.Opener
	logger *log.Logger

	runID     string
	windows   geometry.WindowTable
	pool      *source.Pool
	overlayer *Overlayer
	diag      *diagnostics.Collector

	runs, events, skipped int
	totals                Result
}

// NewProcessor creates a processor. Nothing is opened until Init.
func NewProcessor(cfg config.Config, geo geometry.Provider, opener source.Opener, logger *log.Logger) *Processor {
	if logger == nil {
		logger = log.Default()
	}
	return &Processor{cfg: cfg, geo: geo, opener: opener, logger: logger}
}

// Init validates the configuration, computes the overlay windows and opens
// the background streams. Any error is fatal for the run.
func (p *Processor) Init(ctx context.Context) error {
	if p.pool != nil {
		return errors.New(errors.ErrCodeInternal, "processor already initialized")
	}
	if err := p.cfg.Validate(); err != nil {
		return err
	}
	if p.geo == nil {
		return errors.New(errors.ErrCodeInvalidGeometry, "no geometry provider")
	}

	windows, err := geometry.ComputeWindows(p.geo, p.cfg.LayerReadoutTimes, p.cfg.BunchCrossingTime, p.logger)
	if err != nil {
		return err
	}
	for _, w := range windows.Layers {
		p.logger.Info("pair background in VXD detector", "layer", w.LayerID, "bx", w.OverlayDepth)
	}

	mapping := merge.ParsePairs(p.cfg.MergeCollections, p.logger)

	pool, err := source.NewPool(ctx, p.opener, p.cfg.InputFiles, source.NewSelector(p.cfg.RandomSeed), p.logger)
	if err != nil {
		return err
	}

	p.windows = windows
	p.pool = pool
	p.runID = uuid.NewString()
	p.overlayer = New(pool, merge.NewEngine(windows, p.logger), Options{
		MaxDepth:           windows.MaxDepth(),
		EventsPerBX:        p.cfg.EventsPerBX,
		ParticleCollection: p.cfg.ParticleCollection,
		LayeredCollection:  p.cfg.VXDCollection,
		NameMapping:        mapping,
		ExhaustedPolicy:    p.cfg.ExhaustedPolicy,
	}, p.logger)
	p.diag = diagnostics.NewCollector(windows, p.cfg.VXDCollection, p.logger)

	p.logger.Info("overlay initialized",
		"run_id", p.runID,
		"streams", pool.Len(),
		"bx", windows.MaxDepth(),
		"events_per_bx", p.cfg.EventsPerBX)
	return nil
}

// Windows returns the window table computed by Init.
func (p *Processor) Windows() geometry.WindowTable { return p.windows }

// RunID returns the identifier stamped on overlaid events.
func (p *Processor) RunID() string { return p.runID }

// ProcessRunHeader records a run boundary.
func (p *Processor) ProcessRunHeader(h *event.RunHeader) {
	p.runs++
	if h != nil {
		p.logger.Debug("run header", "run", h.RunNumber, "detector", h.Detector)
	}
}

// ProcessEvent overlays background onto evt. Overlaid events are stamped
// with the run ID, the number of bunch crossings and the processor version.
func (p *Processor) ProcessEvent(ctx context.Context, evt *event.Event) (Result, error) {
	if p.overlayer == nil {
		return Result{}, errors.New(errors.ErrCodeInternal, "processor not initialized")
	}
	res, err := p.overlayer.Overlay(ctx, evt)
	p.events++
	p.totals.Add(res)
	if res.Skipped {
		p.skipped++
		return res, err
	}

	evt.SetParameter(ParamRunID, p.runID)
	evt.SetParameter(ParamBXs, strconv.Itoa(res.BXs))
	evt.SetParameter(ParamProcessor, buildinfo.Processor())
	if err != nil {
		return res, fmt.Errorf("event %d: %w", evt.EventNumber, err)
	}
	return res, nil
}

// Check runs the diagnostic pass over an event. It is called for every event,
// including skipped ones, which count as events without hits. Particle
// relations that leave the particle collection are logged.
func (p *Processor) Check(evt *event.Event) diagnostics.EventStats {
	if pc, ok := evt.Particles(p.cfg.ParticleCollection); ok {
		if err := pc.Validate(); err != nil {
			code := errors.ErrCodeInternal
			if stderrors.Is(err, event.ErrDanglingRelation) {
				code = errors.ErrCodeDanglingRelation
			}
			err = errors.Wrap(code, err, "event %d: collection %s", evt.EventNumber, p.cfg.ParticleCollection)
			p.logger.Error("particle relations broken", "code", errors.GetCode(err), "err", err)
		}
	}
	if p.diag == nil {
		return diagnostics.EventStats{EventNumber: evt.EventNumber}
	}
	return p.diag.Observe(evt)
}

// End closes the background streams and reports the run. If a plot
// directory is configured, per-layer histograms are written there.
func (p *Processor) End() (Summary, error) {
	s := Summary{
		RunID:   p.runID,
		Runs:    p.runs,
		Events:  p.events,
		Skipped: p.skipped,
		Totals:  p.totals,
	}
	if p.pool == nil {
		return s, nil
	}

	var errs []error
	s.Streams = p.pool.Stats()
	if err := p.pool.Close(); err != nil {
		errs = append(errs, err)
	}
	p.pool = nil

	s.Layers = p.diag.Summary()
	p.diag.Log()

	if p.cfg.PlotDir != "" {
		paths, err := p.diag.WritePlots(p.cfg.PlotDir)
		s.Plots = paths
		if err != nil {
			errs = append(errs, err)
		}
	}
	if s.Totals.Exhausted > 0 {
		p.logger.Warn("background samples missing after stream exhaustion", "samples", s.Totals.Exhausted)
	}
	return s, stderrors.Join(errs...)
}
