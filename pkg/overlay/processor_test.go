package overlay

import (
	"bytes"
	"context"
	"path/filepath"
	"strings"
	"testing"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/overlaybx/pkg/buildinfo"
	"github.com/matzehuels/overlaybx/pkg/config"
	"github.com/matzehuels/overlaybx/pkg/errors"
	"github.com/matzehuels/overlaybx/pkg/event"
	"github.com/matzehuels/overlaybx/pkg/eventio"
	"github.com/matzehuels/overlaybx/pkg/geometry"
)

// twoLayers is a small geometry with 1 µs and 0.5 µs readout giving 3 and 1
// bunch crossings at 300 ns.
func twoLayers() *geometry.Layout {
	l := geometry.DefaultLayout()
	l.LayerLayout = l.LayerLayout[:2]
	return l
}

func writeBackground(t *testing.T, dir string, n int) string {
	t.Helper()
	var events []*event.Event
	for i := range n {
		e := event.New(100, i+1)
		p := &event.MCParticle{PDG: 11}
		_ = e.AddCollection("MCParticle", &event.Particles{Particles: []*event.MCParticle{p}})
		_ = e.AddCollection("VXDCollection", &event.TrackerHits{Hits: []*event.SimTrackerHit{
			{CellID: event.EncodeCellID(1, 1), MCParticle: p},
			{CellID: event.EncodeCellID(2, 1), MCParticle: p},
		}})
		events = append(events, e)
	}
	path := filepath.Join(dir, "bg.evz")
	if err := eventio.WriteAll(path, events); err != nil {
		t.Fatal(err)
	}
	return path
}

func testConfig(inputs ...string) config.Config {
	cfg := config.Default()
	cfg.InputFiles = inputs
	cfg.EventsPerBX = 1
	cfg.LayerReadoutTimes = []float64{1.0, 0.5}
	cfg.MergeCollections = nil
	return cfg
}

func TestProcessorLifecycle(t *testing.T) {
	dir := t.TempDir()
	bg := writeBackground(t, dir, 2)

	cfg := testConfig(bg)
	cfg.PlotDir = filepath.Join(dir, "plots")
	p := NewProcessor(cfg, twoLayers(), eventio.FileOpener{}, quietLogger())
	ctx := context.Background()

	if err := p.Init(ctx); err != nil {
		t.Fatalf("Init: %v", err)
	}
	if got := p.Windows().MaxDepth(); got != 3 {
		t.Fatalf("MaxDepth = %d, want 3", got)
	}
	p.ProcessRunHeader(&event.RunHeader{RunNumber: 1})

	evt := event.New(1, 1)
	_ = evt.AddCollection("MCParticle", &event.Particles{})
	res, err := p.ProcessEvent(ctx, evt)
	if err != nil {
		t.Fatalf("ProcessEvent: %v", err)
	}
	// 3 draws; layer 1 keeps at depths 0..2, layer 2 only at depth 0.
	if res.Draws != 3 || res.Kept != 4 || res.Discarded != 2 {
		t.Errorf("res = %+v", res)
	}
	if evt.Parameters[ParamRunID] != p.RunID() || p.RunID() == "" {
		t.Errorf("run id parameter = %q", evt.Parameters[ParamRunID])
	}
	if evt.Parameters[ParamBXs] != "3" {
		t.Errorf("bx parameter = %q", evt.Parameters[ParamBXs])
	}
	if evt.Parameters[ParamProcessor] != buildinfo.Processor() {
		t.Errorf("processor parameter = %q", evt.Parameters[ParamProcessor])
	}

	st := p.Check(evt)
	if st.HitsPerLayer[0] != 3 || st.HitsPerLayer[1] != 1 || st.Linked != 4 {
		t.Errorf("check = %+v", st)
	}

	skipped := event.New(1, 2)
	if res, err := p.ProcessEvent(ctx, skipped); err != nil || !res.Skipped {
		t.Errorf("event without particles: res = %+v, err = %v", res, err)
	}
	if _, ok := skipped.Parameters[ParamRunID]; ok {
		t.Error("skipped event was stamped")
	}
	if st := p.Check(skipped); st.Present || st.Hits != 0 {
		t.Errorf("check of skipped event = %+v", st)
	}

	sum, err := p.End()
	if err != nil {
		t.Fatalf("End: %v", err)
	}
	if sum.Runs != 1 || sum.Events != 2 || sum.Skipped != 1 {
		t.Errorf("summary counts = %d runs, %d events, %d skipped", sum.Runs, sum.Events, sum.Skipped)
	}
	if len(sum.Streams) != 1 || sum.Streams[0].Draws != 3 || sum.Streams[0].Reopens != 1 {
		t.Errorf("streams = %+v", sum.Streams)
	}
	// The skipped event enters the statistics with zero hits.
	if len(sum.Layers) != 2 || sum.Layers[0].Events != 2 || sum.Layers[0].MeanHits != 1.5 {
		t.Errorf("layers = %+v", sum.Layers)
	}
	if len(sum.Plots) != 2 {
		t.Errorf("plots = %v", sum.Plots)
	}
}

func TestProcessorCheckDanglingRelation(t *testing.T) {
	var buf bytes.Buffer
	p := NewProcessor(testConfig(), twoLayers(), eventio.FileOpener{}, log.New(&buf))

	outside := &event.MCParticle{PDG: 22}
	child := &event.MCParticle{PDG: 11}
	outside.AddChild(child)

	evt := event.New(1, 7)
	_ = evt.AddCollection("MCParticle", &event.Particles{Particles: []*event.MCParticle{child}})
	p.Check(evt)
	if !strings.Contains(buf.String(), string(errors.ErrCodeDanglingRelation)) {
		t.Errorf("missing dangling relation error in log:\n%s", buf.String())
	}

	buf.Reset()
	valid := event.New(1, 8)
	_ = valid.AddCollection("MCParticle", &event.Particles{Particles: []*event.MCParticle{outside, child}})
	p.Check(valid)
	if buf.Len() != 0 {
		t.Errorf("valid event logged:\n%s", buf.String())
	}
}

func TestProcessorInitErrors(t *testing.T) {
	dir := t.TempDir()
	bg := writeBackground(t, dir, 1)

	tests := []struct {
		name string
		cfg  config.Config
		code errors.Code
	}{
		{"missing background", testConfig(filepath.Join(dir, "missing.evz")), errors.ErrCodeFileNotFound},
		{"bad config", func() config.Config { c := testConfig(bg); c.BunchCrossingTime = 0; return c }(), errors.ErrCodeInvalidConfig},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := NewProcessor(tt.cfg, twoLayers(), eventio.FileOpener{}, quietLogger())
			if err := p.Init(context.Background()); !errors.Is(err, tt.code) {
				t.Errorf("err = %v, want %s", err, tt.code)
			}
		})
	}
}

func TestProcessorNotInitialized(t *testing.T) {
	p := NewProcessor(config.Default(), twoLayers(), eventio.FileOpener{}, quietLogger())
	if _, err := p.ProcessEvent(context.Background(), event.New(1, 1)); !errors.Is(err, errors.ErrCodeInternal) {
		t.Errorf("err = %v, want INTERNAL_ERROR", err)
	}
	if _, err := p.End(); err != nil {
		t.Errorf("End without Init: %v", err)
	}
}
