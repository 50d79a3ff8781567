// Package config holds the steering parameters of an overlay run.
//
// Parameters are read from a TOML steering file layered over [Default]:
//
//	input_files             = ["pairs_001.evz", "pairs_002.evz"]
//	events_per_bx           = 1
//	bunch_crossing_time     = 3.0e-7
//	vxd_layer_readout_times = [50, 50, 200, 200, 200, 200]
//	vxd_collection          = "VXDCollection"
//	merge_collections       = ["mcParticles mcParticlesBG"]
//
// Keys not listed in [Config] are rejected.
package config

import (
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/matzehuels/overlaybx/pkg/errors"
)

// ExhaustedPolicy decides what happens when a background stream stays empty
// after being reopened.
type ExhaustedPolicy string

const (
	// ExhaustedSkip skips the bunch crossing sample and keeps going.
	ExhaustedSkip ExhaustedPolicy = "skip"
	// ExhaustedFail fails the event.
	ExhaustedFail ExhaustedPolicy = "fail"
)

// Config is the steering of an overlay run.
type Config struct {
	InputFiles         []string        `toml:"input_files"`
	EventsPerBX        int             `toml:"events_per_bx"`
	BunchCrossingTime  float64         `toml:"bunch_crossing_time"`     // seconds
	LayerReadoutTimes  []float64       `toml:"vxd_layer_readout_times"` // µs per layer
	VXDCollection      string          `toml:"vxd_collection"`
	ParticleCollection string          `toml:"particle_collection"`
	RandomSeed         uint64          `toml:"random_seed"`
	MergeCollections   []string        `toml:"merge_collections"`
	ExhaustedPolicy    ExhaustedPolicy `toml:"exhausted_policy"`
	GeometryFile       string          `toml:"geometry_file"`
	PlotDir            string          `toml:"plot_dir"`
}

// Default returns the built-in steering.
func Default() Config {
	return Config{
		InputFiles:         []string{"overlay.evz"},
		EventsPerBX:        0,
		BunchCrossingTime:  3.0e-7,
		LayerReadoutTimes:  []float64{50, 50, 200, 200, 200, 200},
		VXDCollection:      "VXDCollection",
		ParticleCollection: "MCParticle",
		RandomSeed:         42,
		MergeCollections:   []string{"mcParticles mcParticlesBG"},
		ExhaustedPolicy:    ExhaustedSkip,
	}
}

// Load reads a steering file over the defaults and validates the result.
// Relative input, geometry and plot paths are resolved against the
// directory of the steering file.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(filepath.Clean(path))
	if os.IsNotExist(err) {
		return Config{}, errors.Wrap(errors.ErrCodeFileNotFound, err, "steering file %s", path)
	}
	if err != nil {
		return Config{}, fmt.Errorf("read steering: %w", err)
	}

	cfg, err := Parse(string(data))
	if err != nil {
		return Config{}, fmt.Errorf("%s: %w", path, err)
	}
	cfg.resolvePaths(filepath.Dir(path))
	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// Parse decodes TOML steering over the defaults without validating it.
func Parse(data string) (Config, error) {
	cfg := Default()
	md, err := toml.Decode(data, &cfg)
	if err != nil {
		return Config{}, errors.Wrap(errors.ErrCodeInvalidConfig, err, "parse steering")
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return Config{}, errors.New(errors.ErrCodeInvalidConfig, "unknown steering keys: %s", strings.Join(keys, ", "))
	}
	return cfg, nil
}

func (c *Config) resolvePaths(dir string) {
	abs := func(p string) string {
		if p == "" || filepath.IsAbs(p) {
			return p
		}
		return filepath.Join(dir, p)
	}
	for i, f := range c.InputFiles {
		c.InputFiles[i] = abs(f)
	}
	c.GeometryFile = abs(c.GeometryFile)
	c.PlotDir = abs(c.PlotDir)
}

// Validate checks the steering for values the overlay cannot run with.
func (c Config) Validate() error {
	if len(c.InputFiles) == 0 {
		return errors.New(errors.ErrCodeInvalidConfig, "input_files must list at least one background file")
	}
	for _, f := range c.InputFiles {
		if err := errors.ValidateLocation(f); err != nil {
			return err
		}
	}
	if c.EventsPerBX < 0 {
		return errors.New(errors.ErrCodeInvalidConfig, "events_per_bx must not be negative, got %d", c.EventsPerBX)
	}
	if !(c.BunchCrossingTime > 0) || math.IsInf(c.BunchCrossingTime, 0) {
		return errors.New(errors.ErrCodeInvalidConfig, "bunch_crossing_time must be positive, got %g", c.BunchCrossingTime)
	}
	for i, t := range c.LayerReadoutTimes {
		if t < 0 || math.IsNaN(t) || math.IsInf(t, 0) {
			return errors.New(errors.ErrCodeInvalidConfig, "vxd_layer_readout_times[%d] must be a non-negative number, got %g", i, t)
		}
	}
	if err := errors.ValidateCollectionName(c.VXDCollection); err != nil {
		return fmt.Errorf("vxd_collection: %w", err)
	}
	if err := errors.ValidateCollectionName(c.ParticleCollection); err != nil {
		return fmt.Errorf("particle_collection: %w", err)
	}
	for _, entry := range c.MergeCollections {
		for _, name := range strings.Fields(entry) {
			if err := errors.ValidateCollectionName(name); err != nil {
				return fmt.Errorf("merge_collections: %w", err)
			}
		}
	}
	switch c.ExhaustedPolicy {
	case ExhaustedSkip, ExhaustedFail:
	default:
		return errors.New(errors.ErrCodeInvalidConfig, "exhausted_policy must be %q or %q, got %q", ExhaustedSkip, ExhaustedFail, c.ExhaustedPolicy)
	}
	return nil
}
