// Package event defines the in-memory event model that overlaybx reads,
// merges and writes.
//
// # Overview
//
// An [Event] is a primary or background bunch-crossing record holding named
// collections. Every collection has a type name and holds one record variant:
//
//   - [TrackerHits] holds [SimTrackerHit] records (vertex detector hits)
//   - [CalorimeterHits] holds [SimCalorimeterHit] records
//   - [Particles] holds [MCParticle] records linked by parent/child relations
//
// [Collection] is a sealed interface: the set of variants is closed, so code
// that needs a concrete variant type-switches once on the collection rather
// than asserting every element.
//
// # Ownership
//
// Records are referenced by pointer. A record belongs to exactly one
// collection at a time; the merge package moves records between collections
// and drops discarded ones. Hits reference the particle that produced them,
// and particles reference each other, so moving a particle collection moves
// the whole relation graph with it.
//
// # Layer encoding
//
// A tracker hit's layer number is stored in the low 8 bits of its cell ID:
//
//	layer := cellID & LayerMask
//
// Layer numbers are 1-based (layer 1 is the innermost vertex layer). Use
// [LayerOf] to decode and [EncodeCellID] to encode; this bit layout is shared
// with every producer of event files.
package event
