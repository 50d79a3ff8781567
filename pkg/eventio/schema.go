package eventio

import (
	"github.com/matzehuels/overlaybx/pkg/errors"
	"github.com/matzehuels/overlaybx/pkg/event"
)

// Format identification written in every file header.
const (
	FormatName = "overlaybx-events"

	// FormatVersion is the version written by this package.
	FormatVersion = 2

	// MinFormatVersion is the oldest version this package can read. Version 1
	// files stored particle relations by generator index and cannot be
	// resolved into a relation graph.
	MinFormatVersion = 2
)

type fileHeader struct {
	Format  string `json:"format"`
	Version int    `json:"version"`
}

type eventJSON struct {
	Run         int               `json:"run"`
	Event       int               `json:"event"`
	Params      map[string]string `json:"params,omitempty"`
	Collections []collectionJSON  `json:"collections"`
}

type collectionJSON struct {
	Name        string           `json:"name"`
	Type        event.TypeName   `json:"type"`
	TrackerHits []trackerHitJSON `json:"tracker_hits,omitempty"`
	CaloHits    []caloHitJSON    `json:"calo_hits,omitempty"`
	Particles   []particleJSON   `json:"particles,omitempty"`
}

type ref struct {
	C string `json:"c"`
	I int    `json:"i"`
}

type trackerHitJSON struct {
	CellID     int32      `json:"cell_id"`
	Pos        [3]float64 `json:"pos"`
	EDep       float32    `json:"edep,omitempty"`
	Time       float32    `json:"time,omitempty"`
	P          [3]float32 `json:"p"`
	PathLength float32    `json:"path_length,omitempty"`
	MC         *ref       `json:"mc"`
}

type contributionJSON struct {
	MC     *ref    `json:"mc"`
	Energy float32 `json:"e"`
	Time   float32 `json:"t,omitempty"`
	PDG    int32   `json:"pdg,omitempty"`
}

type caloHitJSON struct {
	CellID0       int32              `json:"cell_id0"`
	CellID1       int32              `json:"cell_id1,omitempty"`
	Energy        float32            `json:"energy"`
	Pos           [3]float32         `json:"pos"`
	Contributions []contributionJSON `json:"contributions,omitempty"`
}

type particleJSON struct {
	PDG             int32      `json:"pdg"`
	GeneratorStatus int32      `json:"gen_status,omitempty"`
	SimulatorStatus int32      `json:"sim_status,omitempty"`
	Vertex          [3]float64 `json:"vertex"`
	Endpoint        [3]float64 `json:"endpoint"`
	Momentum        [3]float64 `json:"p"`
	Mass            float64    `json:"mass,omitempty"`
	Charge          float32    `json:"charge,omitempty"`
	Time            float32    `json:"time,omitempty"`
	Parents         []int      `json:"parents,omitempty"`
	Children        []int      `json:"children,omitempty"`
}

// =============================================================================
// Encoding
// =============================================================================

// particleRefs maps every particle of every particle collection to its
// serialized reference.
type particleRefs map[*event.MCParticle]ref

func collectRefs(e *event.Event) particleRefs {
	refs := particleRefs{}
	for _, name := range e.CollectionNames() {
		pc, ok := e.Particles(name)
		if !ok {
			continue
		}
		for i, p := range pc.Particles {
			if _, seen := refs[p]; !seen {
				refs[p] = ref{C: name, I: i}
			}
		}
	}
	return refs
}

func (r particleRefs) lookup(p *event.MCParticle) *ref {
	if p == nil {
		return nil
	}
	rf, ok := r[p]
	if !ok {
		return nil
	}
	return &rf
}

func encodeEvent(e *event.Event) eventJSON {
	refs := collectRefs(e)
	out := eventJSON{
		Run:    e.RunNumber,
		Event:  e.EventNumber,
		Params: e.Parameters,
	}
	for _, name := range e.CollectionNames() {
		c, _ := e.Collection(name)
		cj := collectionJSON{Name: name, Type: c.TypeName()}
		switch c := c.(type) {
		case *event.TrackerHits:
			cj.TrackerHits = make([]trackerHitJSON, len(c.Hits))
			for i, h := range c.Hits {
				cj.TrackerHits[i] = trackerHitJSON{
					CellID:     h.CellID,
					Pos:        h.Position,
					EDep:       h.EDep,
					Time:       h.Time,
					P:          h.Momentum,
					PathLength: h.PathLength,
					MC:         refs.lookup(h.MCParticle),
				}
			}
		case *event.CalorimeterHits:
			cj.CaloHits = make([]caloHitJSON, len(c.Hits))
			for i, h := range c.Hits {
				hj := caloHitJSON{CellID0: h.CellID0, CellID1: h.CellID1, Energy: h.Energy, Pos: h.Position}
				for _, con := range h.Contributions {
					hj.Contributions = append(hj.Contributions, contributionJSON{
						MC:     refs.lookup(con.Particle),
						Energy: con.Energy,
						Time:   con.Time,
						PDG:    con.PDG,
					})
				}
				cj.CaloHits[i] = hj
			}
		case *event.Particles:
			idx := c.Index()
			cj.Particles = make([]particleJSON, len(c.Particles))
			for i, p := range c.Particles {
				cj.Particles[i] = particleJSON{
					PDG:             p.PDG,
					GeneratorStatus: p.GeneratorStatus,
					SimulatorStatus: p.SimulatorStatus,
					Vertex:          p.Vertex,
					Endpoint:        p.Endpoint,
					Momentum:        p.Momentum,
					Mass:            p.Mass,
					Charge:          p.Charge,
					Time:            p.Time,
					Parents:         indices(idx, p.Parents),
					Children:        indices(idx, p.Children),
				}
			}
		}
		out.Collections = append(out.Collections, cj)
	}
	return out
}

// indices converts relations to positions, dropping relations that leave the
// collection.
func indices(idx map[*event.MCParticle]int, ps []*event.MCParticle) []int {
	if len(ps) == 0 {
		return nil
	}
	out := make([]int, 0, len(ps))
	for _, p := range ps {
		if i, ok := idx[p]; ok {
			out = append(out, i)
		}
	}
	return out
}

// =============================================================================
// Decoding
// =============================================================================

func decodeEvent(ej eventJSON) (*event.Event, error) {
	e := event.New(ej.Run, ej.Event)
	for k, v := range ej.Params {
		e.SetParameter(k, v)
	}

	// Particles first so that hits can resolve their references.
	particles := make(map[string][]*event.MCParticle)
	for _, cj := range ej.Collections {
		if cj.Type != event.TypeMCParticle {
			continue
		}
		ps := make([]*event.MCParticle, len(cj.Particles))
		for i, pj := range cj.Particles {
			ps[i] = &event.MCParticle{
				PDG:             pj.PDG,
				GeneratorStatus: pj.GeneratorStatus,
				SimulatorStatus: pj.SimulatorStatus,
				Vertex:          pj.Vertex,
				Endpoint:        pj.Endpoint,
				Momentum:        pj.Momentum,
				Mass:            pj.Mass,
				Charge:          pj.Charge,
				Time:            pj.Time,
			}
		}
		for i, pj := range cj.Particles {
			for _, c := range pj.Children {
				if c < 0 || c >= len(ps) {
					return nil, errors.New(errors.ErrCodeInvalidFormat, "event %d: %s particle %d: child index %d out of range", ej.Event, cj.Name, i, c)
				}
				ps[i].AddChild(ps[c])
			}
			for _, m := range pj.Parents {
				if m < 0 || m >= len(ps) {
					return nil, errors.New(errors.ErrCodeInvalidFormat, "event %d: %s particle %d: parent index %d out of range", ej.Event, cj.Name, i, m)
				}
				ps[m].AddChild(ps[i])
			}
		}
		particles[cj.Name] = ps
	}

	resolve := func(r *ref) (*event.MCParticle, error) {
		if r == nil {
			return nil, nil
		}
		ps, ok := particles[r.C]
		if !ok || r.I < 0 || r.I >= len(ps) {
			return nil, errors.New(errors.ErrCodeInvalidFormat, "event %d: particle reference %s[%d] does not resolve", ej.Event, r.C, r.I)
		}
		return ps[r.I], nil
	}

	for _, cj := range ej.Collections {
		var c event.Collection
		switch cj.Type {
		case event.TypeMCParticle:
			c = &event.Particles{Particles: particles[cj.Name]}
		case event.TypeSimTrackerHit:
			hits := make([]*event.SimTrackerHit, len(cj.TrackerHits))
			for i, hj := range cj.TrackerHits {
				mc, err := resolve(hj.MC)
				if err != nil {
					return nil, err
				}
				hits[i] = &event.SimTrackerHit{
					CellID:     hj.CellID,
					Position:   hj.Pos,
					EDep:       hj.EDep,
					Time:       hj.Time,
					Momentum:   hj.P,
					PathLength: hj.PathLength,
					MCParticle: mc,
				}
			}
			c = &event.TrackerHits{Hits: hits}
		case event.TypeSimCalorimeterHit:
			hits := make([]*event.SimCalorimeterHit, len(cj.CaloHits))
			for i, hj := range cj.CaloHits {
				h := &event.SimCalorimeterHit{CellID0: hj.CellID0, CellID1: hj.CellID1, Energy: hj.Energy, Position: hj.Pos}
				for _, con := range hj.Contributions {
					mc, err := resolve(con.MC)
					if err != nil {
						return nil, err
					}
					h.Contributions = append(h.Contributions, event.Contribution{
						Particle: mc,
						Energy:   con.Energy,
						Time:     con.Time,
						PDG:      con.PDG,
					})
				}
				hits[i] = h
			}
			c = &event.CalorimeterHits{Hits: hits}
		default:
			return nil, errors.New(errors.ErrCodeInvalidFormat, "event %d: collection %s has unknown type %q", ej.Event, cj.Name, cj.Type)
		}
		if err := e.AddCollection(cj.Name, c); err != nil {
			return nil, errors.Wrap(errors.ErrCodeInvalidFormat, err, "event %d: collection %q", ej.Event, cj.Name)
		}
	}
	return e, nil
}
