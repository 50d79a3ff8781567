package geometry

import (
	"math"

	"github.com/charmbracelet/log"
	"gonum.org/v1/gonum/spatial/r2"

	"github.com/matzehuels/overlaybx/pkg/errors"
)

// LayerWindow is the overlay window of one layer. It is created once at
// start-up and never modified.
type LayerWindow struct {
	LayerID      int     // 1-based layer number, as encoded in hit cell IDs
	OverlayDepth int     // Number of bunch crossings integrated by the layer
	ReadoutTime  float64 // Readout integration time in µs
	SensorWidth  float64 // Sensor width in mm
	SensorArea   float64 // Area of one ladder's sensor in mm²
	LadderCount  int
	Ladders      []Ladder // Ladder placement, used for diagnostics only
}

// TotalArea returns the sensitive area of the whole layer in mm².
func (w LayerWindow) TotalArea() float64 {
	return w.SensorArea * float64(w.LadderCount)
}

// Ladder is the r-phi placement of one ladder's sensitive surface.
type Ladder struct {
	Phi float64 // Azimuth of the ladder normal
	P0  r2.Vec  // Lower left corner of the sensitive surface, seen from outside
	P1  r2.Vec  // Opposite end of the sensitive surface along r-phi
	U   r2.Vec  // Unit vector from P0 to P1
}

// WindowTable maps layer numbers to overlay depths.
type WindowTable struct {
	Layers []LayerWindow
}

// Len returns the number of layers in the table.
func (t WindowTable) Len() int { return len(t.Layers) }

// Depth returns the overlay depth for a 1-based layer number. The boolean is
// false if the layer is outside the table.
func (t WindowTable) Depth(layer int) (int, bool) {
	if layer < 1 || layer > len(t.Layers) {
		return 0, false
	}
	return t.Layers[layer-1].OverlayDepth, true
}

// MaxDepth returns the deepest overlay window of all layers, and at least 1
// so that one bunch crossing is always overlaid.
func (t WindowTable) MaxDepth() int {
	n := 1
	for _, w := range t.Layers {
		n = max(n, w.OverlayDepth)
	}
	return n
}

// OverlayDepth returns floor(readoutTimeUS * 1e-6 / bxPeriodS).
func OverlayDepth(readoutTimeUS, bxPeriodS float64) int {
	return int(math.Floor(readoutTimeUS * 1e-6 / bxPeriodS))
}

// ComputeWindows builds the window table for every layer reported by p.
//
// readoutTimesUS should hold one entry per layer. A count mismatch is logged
// as a warning and processing continues: layer i uses readoutTimesUS[i] when
// present and gets depth 0 otherwise; surplus readout times are ignored.
func ComputeWindows(p Provider, readoutTimesUS []float64, bxPeriodS float64, logger *log.Logger) (WindowTable, error) {
	if logger == nil {
		logger = log.Default()
	}
	if !(bxPeriodS > 0) {
		return WindowTable{}, errors.New(errors.ErrCodeInvalidConfig, "bunch crossing time must be positive, got %g", bxPeriodS)
	}
	for i, t := range readoutTimesUS {
		if t < 0 || math.IsNaN(t) || math.IsInf(t, 0) {
			return WindowTable{}, errors.New(errors.ErrCodeInvalidConfig, "readout time %d must be a non-negative number, got %g", i+1, t)
		}
	}

	layers := p.Layers()
	if len(layers) != len(readoutTimesUS) {
		logger.Warn("wrong number of readout times",
			"readout_times", len(readoutTimesUS),
			"layers", len(layers))
	}

	logger.Debug("initializing vertex ladder geometry", "layers", len(layers))

	table := WindowTable{Layers: make([]LayerWindow, len(layers))}
	for i, ly := range layers {
		w := LayerWindow{
			LayerID:     i + 1,
			SensorWidth: ly.SensitiveWidth,
			SensorArea:  ly.SensitiveWidth * ly.Length(),
			LadderCount: ly.Ladders,
			Ladders:     PlaceLadders(ly),
		}
		if i < len(readoutTimesUS) {
			w.ReadoutTime = readoutTimesUS[i]
			w.OverlayDepth = OverlayDepth(readoutTimesUS[i], bxPeriodS)
		}
		table.Layers[i] = w

		logger.Debug("layer window",
			"layer", w.LayerID,
			"phi0", ly.Phi0,
			"offset", ly.SensitiveOffset,
			"width", w.SensorWidth,
			"bx", w.OverlayDepth)
	}
	return table, nil
}

// PlaceLadders computes the sensitive surface of every ladder in a layer.
func PlaceLadders(ly LayerLayout) []Ladder {
	if ly.Ladders <= 0 {
		return nil
	}
	ladders := make([]Ladder, ly.Ladders)
	for j := range ladders {
		phi := ly.Phi0 + float64(j)*2*math.Pi/float64(ly.Ladders)

		// middle of the sensitive surface, without offset
		mid := polar(ly.SensitiveDistance+ly.SensitiveThickness/2, phi)
		p0 := r2.Add(mid, polar(ly.SensitiveWidth/2+ly.SensitiveOffset, phi+math.Pi/2))

		along := polar(ly.SensitiveWidth, phi-math.Pi/2)
		ladders[j] = Ladder{
			Phi: phi,
			P0:  p0,
			P1:  r2.Add(p0, along),
			U:   r2.Unit(along),
		}
	}
	return ladders
}

func polar(r, phi float64) r2.Vec {
	return r2.Vec{X: r * math.Cos(phi), Y: r * math.Sin(phi)}
}
