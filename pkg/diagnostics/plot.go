package diagnostics

import (
	"fmt"
	"image/color"
	"os"
	"path/filepath"
	"slices"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
)

// Histogram binning of per-event layer hit counts.
const (
	HistBins = 100
	HistMax  = 100000.0
)

// LayerHistogram bins the per-event hit counts of a 1-based layer into
// HistBins equal bins over [0, HistMax). Counts at or above HistMax are
// returned as overflow.
func (c *Collector) LayerHistogram(layer int) (counts []float64, overflow int) {
	if layer < 1 || layer > len(c.perLayer) {
		return make([]float64, HistBins), 0
	}
	var x []float64
	for _, v := range c.perLayer[layer-1] {
		if v >= HistMax {
			overflow++
			continue
		}
		x = append(x, v)
	}
	slices.Sort(x)

	dividers := floats.Span(make([]float64, HistBins+1), 0, HistMax)
	return stat.Histogram(nil, dividers, x, nil), overflow
}

// WritePlots renders one PNG histogram per layer into dir and returns the
// written paths.
func (c *Collector) WritePlots(dir string) ([]string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create plot dir: %w", err)
	}

	const width = HistMax / HistBins
	var paths []string
	for _, w := range c.windows.Layers {
		counts, overflow := c.LayerHistogram(w.LayerID)

		bins := make([]plotter.HistogramBin, len(counts))
		for i, n := range counts {
			lo := float64(i) * width
			bins[i] = plotter.HistogramBin{Min: lo, Max: lo + width, Weight: n}
		}
		h := &plotter.Histogram{
			Bins:      bins,
			Width:     width,
			FillColor: color.Gray{Y: 180},
			LineStyle: plotter.DefaultLineStyle,
		}

		p := plot.New()
		p.Title.Text = fmt.Sprintf("hits Layer %d (%d BX)", w.LayerID, w.OverlayDepth)
		p.X.Label.Text = "hits per event"
		p.Y.Label.Text = "events"
		p.Add(h)
		if overflow > 0 {
			p.Legend.Add(fmt.Sprintf("overflow: %d", overflow))
		}

		path := filepath.Join(dir, fmt.Sprintf("hitsLayer%d.png", w.LayerID))
		if err := p.Save(6*vg.Inch, 4*vg.Inch, path); err != nil {
			return paths, fmt.Errorf("save layer %d plot: %w", w.LayerID, err)
		}
		paths = append(paths, path)
	}
	return paths, nil
}
