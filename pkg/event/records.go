package event

import "slices"

// SimTrackerHit is a simulated hit in a tracking detector layer.
type SimTrackerHit struct {
	CellID     int32      // Composite cell ID; the low 8 bits hold the layer number
	Position   [3]float64 // Hit position in mm
	EDep       float32    // Deposited energy in GeV
	Time       float32    // Hit time in ns
	Momentum   [3]float32 // Particle momentum at the hit in GeV
	PathLength float32    // Path length in the sensitive volume in mm

	// MCParticle is the particle that produced the hit, or nil.
	MCParticle *MCParticle
}

// Layer returns the decoded 1-based layer number of the hit.
func (h *SimTrackerHit) Layer() int { return LayerOf(h.CellID) }

// Contribution is one particle's share of a calorimeter hit.
type Contribution struct {
	Particle *MCParticle
	Energy   float32
	Time     float32
	PDG      int32
}

// SimCalorimeterHit is a simulated calorimeter cell deposit.
type SimCalorimeterHit struct {
	CellID0       int32
	CellID1       int32
	Energy        float32
	Position      [3]float32
	Contributions []Contribution
}

// MCParticle is a generated or simulated particle.
//
// Parents and Children form a graph: for every child c of p, p appears in
// c.Parents. The graph may span several particles in one collection but
// must never reference a particle outside it.
type MCParticle struct {
	PDG             int32
	GeneratorStatus int32
	SimulatorStatus int32
	Vertex          [3]float64 // Production vertex in mm
	Endpoint        [3]float64 // End point in mm
	Momentum        [3]float64 // Momentum at production in GeV
	Mass            float64
	Charge          float32
	Time            float32

	Parents  []*MCParticle
	Children []*MCParticle
}

// AddChild links c as a daughter of p and p as a parent of c.
// Linking the same pair twice is a no-op.
func (p *MCParticle) AddChild(c *MCParticle) {
	if !slices.Contains(p.Children, c) {
		p.Children = append(p.Children, c)
	}
	if !slices.Contains(c.Parents, p) {
		c.Parents = append(c.Parents, p)
	}
}

// Unlink removes every relation between p and the particles rejected by keep.
// It returns the number of links removed.
func (p *MCParticle) Unlink(keep func(*MCParticle) bool) int {
	before := len(p.Parents) + len(p.Children)
	p.Parents = slices.DeleteFunc(p.Parents, func(q *MCParticle) bool { return !keep(q) })
	p.Children = slices.DeleteFunc(p.Children, func(q *MCParticle) bool { return !keep(q) })
	return before - len(p.Parents) - len(p.Children)
}
