// Package diagnostics collects per-layer hit statistics of overlaid events.
//
// A [Collector] observes each event after overlay, counting the hits of the
// layered collection per layer and checking that every hit links to a
// particle. At the end of the run [Collector.Summary] reports the mean hit
// count, hit density and occupancy per layer, and [Collector.WritePlots]
// renders one hit-count histogram per layer.
package diagnostics

import (
	"math"

	"github.com/charmbracelet/log"
	"gonum.org/v1/gonum/stat"

	"github.com/matzehuels/overlaybx/pkg/event"
	"github.com/matzehuels/overlaybx/pkg/geometry"
)

// OccupancyDivisor converts hits/mm² into the occupancy of a 25 µm pixel
// readout.
const OccupancyDivisor = 160.0

// EventStats is the result of checking one event.
type EventStats struct {
	EventNumber  int
	Present      bool  // Whether the event holds the layered collection
	Hits         int   // Hits in the layered collection
	Linked       int   // Hits with a particle reference
	HitsPerLayer []int // Indexed by layer-1
	OutOfRange   int   // Hits whose layer is not in the window table
}

// LayerSummary aggregates one layer over all observed events.
type LayerSummary struct {
	LayerID      int
	OverlayDepth int
	Events       int
	MeanHits     float64
	StdDevHits   float64
	Area         float64 // Sensitive area of the whole layer in mm²
	HitsPerMM2   float64
	Occupancy    float64
}

// Collector accumulates per-event hit counts.
type Collector struct {
	windows    geometry.WindowTable
	collection string
	logger     *log.Logger

	perLayer [][]float64 // hit counts per event, indexed by layer-1
}

// NewCollector creates a collector for the named tracker hit collection.
func NewCollector(windows geometry.WindowTable, collection string, logger *log.Logger) *Collector {
	if logger == nil {
		logger = log.Default()
	}
	return &Collector{
		windows:    windows,
		collection: collection,
		logger:     logger,
		perLayer:   make([][]float64, windows.Len()),
	}
}

// Observe counts the hits of evt per layer. An event without the collection
// is recorded with zero hits in every layer.
func (c *Collector) Observe(evt *event.Event) EventStats {
	st := EventStats{
		EventNumber:  evt.EventNumber,
		HitsPerLayer: make([]int, c.windows.Len()),
	}

	if hits, ok := evt.TrackerHits(c.collection); ok {
		st.Present = true
		st.Hits = len(hits.Hits)
		for _, h := range hits.Hits {
			layer := h.Layer()
			if layer < 1 || layer > len(st.HitsPerLayer) {
				st.OutOfRange++
			} else {
				st.HitsPerLayer[layer-1]++
			}
			if h.MCParticle != nil {
				st.Linked++
			}
		}
		if st.Linked != st.Hits {
			c.logger.Error("hits without particle link",
				"event", evt.EventNumber,
				"linked", st.Linked,
				"hits", st.Hits)
		} else {
			c.logger.Debug("particle links ok", "event", evt.EventNumber, "hits", st.Hits)
		}
	}

	for i, n := range st.HitsPerLayer {
		c.perLayer[i] = append(c.perLayer[i], float64(n))
	}
	return st
}

// Events returns the number of observed events.
func (c *Collector) Events() int {
	if len(c.perLayer) == 0 {
		return 0
	}
	return len(c.perLayer[0])
}

// Summary reports every layer. Layers of an empty run have zero means.
func (c *Collector) Summary() []LayerSummary {
	out := make([]LayerSummary, c.windows.Len())
	for i, w := range c.windows.Layers {
		counts := c.perLayer[i]
		s := LayerSummary{
			LayerID:      w.LayerID,
			OverlayDepth: w.OverlayDepth,
			Events:       len(counts),
			Area:         w.TotalArea(),
		}
		if len(counts) > 0 {
			s.MeanHits = stat.Mean(counts, nil)
		}
		if len(counts) > 1 {
			s.StdDevHits = stat.StdDev(counts, nil)
		}
		if s.Area > 0 {
			s.HitsPerMM2 = s.MeanHits / s.Area
			s.Occupancy = s.HitsPerMM2 / OccupancyDivisor
		}
		out[i] = s
	}
	return out
}

// Log writes the summary at info level.
func (c *Collector) Log() {
	for _, s := range c.Summary() {
		c.logger.Info("overlaid pair background",
			"layer", s.LayerID,
			"bx", s.OverlayDepth,
			"mean_hits", round(s.MeanHits),
			"hits_per_mm2", s.HitsPerMM2,
			"occupancy", s.Occupancy)
	}
}

func round(x float64) float64 { return math.Round(x*100) / 100 }
