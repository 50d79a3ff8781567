// Package eventgen produces synthetic events for testing overlay runs.
//
// Generated events carry a particle collection with a shallow decay tree and
// a tracker hit collection with a fixed number of hits per vertex detector
// layer. Hit positions lie on the sensitive surface of a random ladder of
// the layer. Output is deterministic for a given seed.
package eventgen

import (
	"math"
	"math/rand/v2"

	"gonum.org/v1/gonum/spatial/r2"

	"github.com/matzehuels/overlaybx/pkg/errors"
	"github.com/matzehuels/overlaybx/pkg/event"
	"github.com/matzehuels/overlaybx/pkg/geometry"
)

// Options configures a Generator.
type Options struct {
	Run                int
	FirstEvent         int
	HitsPerLayer       int
	Particles          int // Particles per event; at least 1
	Seed               uint64
	ParticleCollection string
	LayeredCollection  string
}

// DefaultOptions returns options matching the default steering names.
func DefaultOptions() Options {
	return Options{
		Run:                1,
		FirstEvent:         1,
		HitsPerLayer:       5,
		Particles:          4,
		Seed:               1,
		ParticleCollection: "MCParticle",
		LayeredCollection:  "VXDCollection",
	}
}

// Generator produces events one at a time.
type Generator struct {
	opts    Options
	layers  []geometry.LayerLayout
	ladders [][]geometry.Ladder
	rng     *rand.Rand
	next    int
}

// New creates a generator for the layers reported by p.
func New(p geometry.Provider, opts Options) (*Generator, error) {
	if opts.HitsPerLayer < 0 {
		return nil, errors.New(errors.ErrCodeInvalidConfig, "hits per layer must not be negative, got %d", opts.HitsPerLayer)
	}
	if opts.Particles < 1 {
		return nil, errors.New(errors.ErrCodeInvalidConfig, "need at least one particle per event, got %d", opts.Particles)
	}
	if err := errors.ValidateCollectionName(opts.ParticleCollection); err != nil {
		return nil, err
	}
	if err := errors.ValidateCollectionName(opts.LayeredCollection); err != nil {
		return nil, err
	}

	layers := p.Layers()
	if len(layers) > event.MaxLayer {
		return nil, errors.New(errors.ErrCodeInvalidGeometry, "%d layers do not fit the cell ID encoding", len(layers))
	}
	ladders := make([][]geometry.Ladder, len(layers))
	for i, ly := range layers {
		ladders[i] = geometry.PlaceLadders(ly)
	}

	return &Generator{
		opts:    opts,
		layers:  layers,
		ladders: ladders,
		rng:     rand.New(rand.NewPCG(opts.Seed, opts.Seed+1)),
		next:    opts.FirstEvent,
	}, nil
}

// Next returns a new event.
func (g *Generator) Next() *event.Event {
	e := event.New(g.opts.Run, g.next)
	g.next++

	particles := g.particles()
	_ = e.AddCollection(g.opts.ParticleCollection, &event.Particles{Particles: particles})

	var hits []*event.SimTrackerHit
	for i := range g.layers {
		for range g.opts.HitsPerLayer {
			hits = append(hits, g.hit(i, particles[g.rng.IntN(len(particles))]))
		}
	}
	_ = e.AddCollection(g.opts.LayeredCollection, &event.TrackerHits{Hits: hits})
	return e
}

// Generate returns n new events.
func (g *Generator) Generate(n int) []*event.Event {
	out := make([]*event.Event, 0, n)
	for range n {
		out = append(out, g.Next())
	}
	return out
}

// particles builds a photon that converts into e+e- pairs, each daughter
// attached to a random earlier particle.
func (g *Generator) particles() []*event.MCParticle {
	root := &event.MCParticle{
		PDG:             22,
		GeneratorStatus: 1,
		Momentum:        [3]float64{0, 0, g.rng.ExpFloat64()},
	}
	ps := []*event.MCParticle{root}
	for i := 1; i < g.opts.Particles; i++ {
		pdg, charge := int32(11), float32(-1)
		if i%2 == 0 {
			pdg, charge = -11, 1
		}
		p := &event.MCParticle{
			PDG:             pdg,
			GeneratorStatus: 1,
			SimulatorStatus: 1,
			Mass:            0.000511,
			Charge:          charge,
			Time:            float32(g.rng.Float64()),
			Momentum: [3]float64{
				g.rng.NormFloat64() * 0.01,
				g.rng.NormFloat64() * 0.01,
				g.rng.NormFloat64() * 0.1,
			},
		}
		ps[g.rng.IntN(len(ps))].AddChild(p)
		ps = append(ps, p)
	}
	return ps
}

func (g *Generator) hit(layer int, mc *event.MCParticle) *event.SimTrackerHit {
	ly := g.layers[layer]
	var pos r2.Vec
	if lad := g.ladders[layer]; len(lad) > 0 {
		l := lad[g.rng.IntN(len(lad))]
		pos = r2.Add(l.P0, r2.Scale(g.rng.Float64()*ly.SensitiveWidth, l.U))
	}
	z := (2*g.rng.Float64() - 1) * ly.SensitiveLength

	return &event.SimTrackerHit{
		CellID:     event.EncodeCellID(layer+1, int32(g.rng.IntN(1<<16))),
		Position:   [3]float64{pos.X, pos.Y, z},
		EDep:       float32(g.rng.ExpFloat64() * 1e-5),
		Time:       float32(math.Hypot(pos.X, pos.Y) / 299.792458),
		Momentum:   [3]float32{float32(mc.Momentum[0]), float32(mc.Momentum[1]), float32(mc.Momentum[2])},
		PathLength: float32(ly.SensitiveThickness),
		MCParticle: mc,
	}
}
