package event

import (
	"errors"
	"fmt"
	"slices"
)

var (
	// ErrDanglingRelation is returned by [Particles.Validate] when a parent or
	// child link points to a particle outside the collection.
	ErrDanglingRelation = errors.New("relation points outside collection")

	// ErrAsymmetricRelation is returned by [Particles.Validate] when a child
	// does not list its parent (or the reverse).
	ErrAsymmetricRelation = errors.New("asymmetric parent/child relation")
)

// TypeName tags the record variant held by a collection. Two collections are
// merge-compatible only if their type names are equal.
type TypeName string

// Record variant type names.
const (
	TypeSimTrackerHit     TypeName = "SimTrackerHit"
	TypeSimCalorimeterHit TypeName = "SimCalorimeterHit"
	TypeMCParticle        TypeName = "MCParticle"
)

// Collection is a homogeneously typed, ordered sequence of records.
// The set of implementations is closed: [*TrackerHits], [*CalorimeterHits]
// and [*Particles].
type Collection interface {
	// TypeName returns the record variant held by the collection.
	TypeName() TypeName
	// Len returns the number of records.
	Len() int

	sealed()
}

// NewCollection returns an empty collection for the given type name.
// It returns false for unknown type names.
func NewCollection(t TypeName) (Collection, bool) {
	switch t {
	case TypeSimTrackerHit:
		return &TrackerHits{}, true
	case TypeSimCalorimeterHit:
		return &CalorimeterHits{}, true
	case TypeMCParticle:
		return &Particles{}, true
	}
	return nil, false
}

// TrackerHits is a collection of tracker hits.
type TrackerHits struct {
	Hits []*SimTrackerHit
}

func (*TrackerHits) TypeName() TypeName { return TypeSimTrackerHit }
func (c *TrackerHits) Len() int         { return len(c.Hits) }
func (*TrackerHits) sealed()            {}

// CalorimeterHits is a collection of calorimeter hits.
type CalorimeterHits struct {
	Hits []*SimCalorimeterHit
}

func (*CalorimeterHits) TypeName() TypeName { return TypeSimCalorimeterHit }
func (c *CalorimeterHits) Len() int         { return len(c.Hits) }
func (*CalorimeterHits) sealed()            {}

// Particles is a collection of MC particles whose relations stay inside the
// collection.
type Particles struct {
	Particles []*MCParticle
}

func (*Particles) TypeName() TypeName { return TypeMCParticle }
func (c *Particles) Len() int         { return len(c.Particles) }
func (*Particles) sealed()            {}

// Index returns a lookup from particle pointer to its position in c.
func (c *Particles) Index() map[*MCParticle]int {
	idx := make(map[*MCParticle]int, len(c.Particles))
	for i, p := range c.Particles {
		idx[p] = i
	}
	return idx
}

// Validate checks that every relation of every particle resolves inside c
// and that parent/child links are symmetric.
func (c *Particles) Validate() error {
	idx := c.Index()
	for i, p := range c.Particles {
		for _, d := range p.Children {
			if _, ok := idx[d]; !ok {
				return fmt.Errorf("particle %d child: %w", i, ErrDanglingRelation)
			}
			if !slices.Contains(d.Parents, p) {
				return fmt.Errorf("particle %d child %d: %w", i, idx[d], ErrAsymmetricRelation)
			}
		}
		for _, m := range p.Parents {
			if _, ok := idx[m]; !ok {
				return fmt.Errorf("particle %d parent: %w", i, ErrDanglingRelation)
			}
			if !slices.Contains(m.Children, p) {
				return fmt.Errorf("particle %d parent %d: %w", i, idx[m], ErrAsymmetricRelation)
			}
		}
	}
	return nil
}

// Ensure the variants implement Collection.
var (
	_ Collection = (*TrackerHits)(nil)
	_ Collection = (*CalorimeterHits)(nil)
	_ Collection = (*Particles)(nil)
)
