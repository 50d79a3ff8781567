package eventgen

import (
	"math"
	"testing"

	"github.com/matzehuels/overlaybx/pkg/errors"
	"github.com/matzehuels/overlaybx/pkg/geometry"
)

func TestGenerate(t *testing.T) {
	opts := DefaultOptions()
	opts.HitsPerLayer = 3
	opts.Particles = 5
	g, err := New(geometry.DefaultLayout(), opts)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	events := g.Generate(4)
	if len(events) != 4 {
		t.Fatalf("got %d events, want 4", len(events))
	}
	for i, e := range events {
		if e.EventNumber != opts.FirstEvent+i {
			t.Errorf("event %d number = %d", i, e.EventNumber)
		}

		pc, ok := e.Particles("MCParticle")
		if !ok || pc.Len() != 5 {
			t.Fatalf("event %d particles missing", i)
		}
		if err := pc.Validate(); err != nil {
			t.Errorf("event %d particle graph: %v", i, err)
		}
		idx := pc.Index()

		th, ok := e.TrackerHits("VXDCollection")
		if !ok || th.Len() != 6*3 {
			t.Fatalf("event %d hits = %v", i, th)
		}
		perLayer := map[int]int{}
		for _, h := range th.Hits {
			perLayer[h.Layer()]++
			if _, ok := idx[h.MCParticle]; !ok {
				t.Errorf("hit particle not in collection")
			}
		}
		for layer := 1; layer <= 6; layer++ {
			if perLayer[layer] != 3 {
				t.Errorf("layer %d has %d hits, want 3", layer, perLayer[layer])
			}
		}
	}
}

func TestHitsOnSensitiveSurface(t *testing.T) {
	layout := geometry.DefaultLayout()
	g, err := New(layout, DefaultOptions())
	if err != nil {
		t.Fatal(err)
	}
	th, _ := g.Next().TrackerHits("VXDCollection")
	for _, h := range th.Hits {
		ly := layout.LayerLayout[h.Layer()-1]
		r := math.Hypot(h.Position[0], h.Position[1])
		// Ladders are flat, so corners sit slightly further out than the
		// sensor distance.
		maxR := math.Hypot(ly.SensitiveDistance+ly.SensitiveThickness, ly.SensitiveWidth+math.Abs(ly.SensitiveOffset))
		if r < ly.SensitiveDistance || r > maxR {
			t.Errorf("layer %d hit at r=%g outside [%g, %g]", h.Layer(), r, ly.SensitiveDistance, maxR)
		}
		if math.Abs(h.Position[2]) > ly.SensitiveLength {
			t.Errorf("layer %d hit at z=%g beyond half length", h.Layer(), h.Position[2])
		}
	}
}

func TestDeterministic(t *testing.T) {
	a, _ := New(geometry.DefaultLayout(), DefaultOptions())
	b, _ := New(geometry.DefaultLayout(), DefaultOptions())
	ha, _ := a.Next().TrackerHits("VXDCollection")
	hb, _ := b.Next().TrackerHits("VXDCollection")
	for i := range ha.Hits {
		if ha.Hits[i].CellID != hb.Hits[i].CellID || ha.Hits[i].Position != hb.Hits[i].Position {
			t.Fatalf("hit %d differs between generators with equal seeds", i)
		}
	}
}

func TestNewInvalid(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*Options)
	}{
		{"negative hits", func(o *Options) { o.HitsPerLayer = -1 }},
		{"no particles", func(o *Options) { o.Particles = 0 }},
		{"bad collection", func(o *Options) { o.LayeredCollection = "" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opts := DefaultOptions()
			tt.modify(&opts)
			if _, err := New(geometry.DefaultLayout(), opts); !errors.Is(err, errors.ErrCodeInvalidConfig) {
				t.Errorf("err = %v, want INVALID_CONFIG", err)
			}
		})
	}
}
