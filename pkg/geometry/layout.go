// Package geometry computes per-layer overlay windows from vertex detector
// geometry and readout timing.
//
// A [Provider] supplies the layer layout (what a geometry service would
// report). [ComputeWindows] turns that layout plus per-layer readout times
// into a [WindowTable]: for each layer, the number of bunch crossings whose
// background the layer integrates.
package geometry

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/matzehuels/overlaybx/pkg/errors"
)

// LayerLayout describes one vertex detector layer as reported by the
// geometry service.
type LayerLayout struct {
	Ladders            int     `yaml:"ladders"`             // Number of ladders around the layer
	Phi0               float64 `yaml:"phi0"`                // Azimuth of the first ladder in rad
	SensitiveDistance  float64 `yaml:"sensitive_distance"`  // Distance of the sensor from the beam axis in mm
	SensitiveThickness float64 `yaml:"sensitive_thickness"` // Sensor thickness in mm
	SensitiveOffset    float64 `yaml:"sensitive_offset"`    // Sensor offset along r-phi in mm
	SensitiveWidth     float64 `yaml:"sensitive_width"`     // Sensor width in mm
	SensitiveLength    float64 `yaml:"sensitive_length"`    // Sensor half length in mm
}

// Length returns the full sensor length. The geometry service reports half
// lengths.
func (l LayerLayout) Length() float64 { return 2 * l.SensitiveLength }

// Provider supplies the vertex detector layout.
type Provider interface {
	Layers() []LayerLayout
}

// Layout is a Provider backed by a YAML geometry file:
//
//	detector: VXD05
//	layers:
//	  - ladders: 10
//	    phi0: 0
//	    sensitive_distance: 15.95
//	    ...
type Layout struct {
	Detector    string        `yaml:"detector"`
	LayerLayout []LayerLayout `yaml:"layers"`
}

// Layers implements Provider.
func (l *Layout) Layers() []LayerLayout { return l.LayerLayout }

// Validate checks that every layer has a usable shape.
func (l *Layout) Validate() error {
	if len(l.LayerLayout) == 0 {
		return errors.New(errors.ErrCodeInvalidGeometry, "geometry has no layers")
	}
	for i, ly := range l.LayerLayout {
		if ly.Ladders <= 0 {
			return errors.New(errors.ErrCodeInvalidGeometry, "layer %d: ladder count must be positive, got %d", i+1, ly.Ladders)
		}
		if ly.SensitiveWidth <= 0 || ly.SensitiveLength <= 0 {
			return errors.New(errors.ErrCodeInvalidGeometry, "layer %d: sensor width and length must be positive", i+1)
		}
		if ly.SensitiveDistance < 0 || ly.SensitiveThickness < 0 {
			return errors.New(errors.ErrCodeInvalidGeometry, "layer %d: distance and thickness must not be negative", i+1)
		}
	}
	return nil
}

// LoadLayout reads and validates a YAML geometry file.
func LoadLayout(path string) (*Layout, error) {
	data, err := os.ReadFile(filepath.Clean(path))
	if os.IsNotExist(err) {
		return nil, errors.Wrap(errors.ErrCodeFileNotFound, err, "geometry file %s", path)
	}
	if err != nil {
		return nil, fmt.Errorf("read geometry: %w", err)
	}

	var l Layout
	if err := yaml.Unmarshal(data, &l); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidGeometry, err, "parse %s", path)
	}
	if err := l.Validate(); err != nil {
		return nil, err
	}
	return &l, nil
}

// DefaultLayout returns a six-layer vertex detector made of three double
// layers, used when no geometry file is configured.
func DefaultLayout() *Layout {
	layer := func(ladders int, dist, width, halfLength float64) LayerLayout {
		return LayerLayout{
			Ladders:            ladders,
			SensitiveDistance:  dist,
			SensitiveThickness: 0.05,
			SensitiveOffset:    -1.46,
			SensitiveWidth:     width,
			SensitiveLength:    halfLength,
		}
	}
	return &Layout{
		Detector: "VXD05",
		LayerLayout: []LayerLayout{
			layer(10, 15.95, 11.0, 62.5),
			layer(10, 18.05, 11.0, 62.5),
			layer(11, 36.95, 22.0, 125.0),
			layer(11, 39.05, 22.0, 125.0),
			layer(17, 57.95, 22.0, 125.0),
			layer(17, 60.05, 22.0, 125.0),
		},
	}
}
