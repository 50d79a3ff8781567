// Package merge moves background records into a primary event.
//
// Three operations are provided:
//
//   - [Engine.MergeLayered] transfers tracker hits whose layer still
//     integrates the current bunch crossing and discards the rest.
//   - [Engine.MergeAppend] appends a whole collection, keeping particle
//     relations valid inside the destination.
//   - [Engine.MergeNamed] append-merges the collections listed in a
//     [NameMapping] from a background event into the primary event.
//
// Every operation requires the source and destination to be distinct
// collections holding the same record variant. Otherwise the destination is
// left untouched, a warning is logged and the reported counts are zero. Source collections are always
// emptied by a successful merge: records are moved, never copied.
package merge

import (
	"github.com/charmbracelet/log"

	"github.com/matzehuels/overlaybx/pkg/errors"
	"github.com/matzehuels/overlaybx/pkg/event"
)

// Windows looks up the overlay depth of a 1-based layer number.
// The boolean is false when the layer is outside the table.
type Windows interface {
	Depth(layer int) (int, bool)
}

// Engine performs merges against a fixed window table.
type Engine struct {
	windows Windows
	logger  *log.Logger
}

// NewEngine creates an engine. If logger is nil, log.Default() is used.
func NewEngine(windows Windows, logger *log.Logger) *Engine {
	if logger == nil {
		logger = log.Default()
	}
	return &Engine{windows: windows, logger: logger}
}

// LayeredResult reports what a layered merge did with the source records.
type LayeredResult struct {
	Examined   int // Records taken from the source
	Kept       int // Records transferred to the destination
	Discarded  int // Records dropped, including OutOfRange
	OutOfRange int // Records whose layer is not in the window table
}

// MergeLayered transfers the hits of src into dest if their layer integrates
// bunch crossing depth, i.e. depth < OverlayDepth(layer). All other hits are
// dropped. Kept hits keep their source order. src is empty afterwards.
//
// Both collections must hold tracker hits.
func (e *Engine) MergeLayered(dest, src event.Collection, depth int) LayeredResult {
	if !e.compatible(dest, src) {
		return LayeredResult{}
	}
	d, ok := dest.(*event.TrackerHits)
	if !ok {
		e.logger.Error("layered merge needs tracker hits", "type", dest.TypeName())
		return LayeredResult{}
	}
	s := src.(*event.TrackerHits)

	var res LayeredResult
	res.Examined = len(s.Hits)
	for _, h := range s.Hits {
		window, ok := e.windows.Depth(h.Layer())
		switch {
		case !ok:
			res.OutOfRange++
			res.Discarded++
			h.MCParticle = nil
		case depth < window:
			d.Hits = append(d.Hits, h)
			res.Kept++
		default:
			res.Discarded++
			h.MCParticle = nil
		}
	}
	clear(s.Hits)
	s.Hits = s.Hits[:0]

	if res.OutOfRange > 0 {
		err := errors.New(errors.ErrCodeLayerOutOfRange, "discarded %d hits outside the window table", res.OutOfRange)
		e.logger.Warn(err.Message, "code", err.Code, "depth", depth)
	}
	return res
}

// AppendResult reports an append merge.
type AppendResult struct {
	Appended     int // Records moved to the destination
	LinksDropped int // Particle relations removed because they left the destination
}

// MergeAppend moves every record of src to the end of dest. For particle
// collections, relations of the moved particles that would not resolve
// inside dest are removed from both ends. src is empty afterwards.
func (e *Engine) MergeAppend(dest, src event.Collection) AppendResult {
	if !e.compatible(dest, src) {
		return AppendResult{}
	}
	if src.Len() == 0 {
		return AppendResult{}
	}

	switch d := dest.(type) {
	case *event.TrackerHits:
		s := src.(*event.TrackerHits)
		d.Hits = append(d.Hits, s.Hits...)
		n := len(s.Hits)
		s.Hits = nil
		return AppendResult{Appended: n}
	case *event.CalorimeterHits:
		s := src.(*event.CalorimeterHits)
		d.Hits = append(d.Hits, s.Hits...)
		n := len(s.Hits)
		s.Hits = nil
		return AppendResult{Appended: n}
	case *event.Particles:
		return appendParticles(d, src.(*event.Particles))
	}
	e.logger.Error("append merge: unsupported collection type", "type", dest.TypeName())
	return AppendResult{}
}

// appendParticles moves the particles of s to d. Membership is checked
// against the moved particles first; the previous destination is indexed only
// if a relation points outside them.
func appendParticles(d, s *event.Particles) AppendResult {
	moved := s.Particles
	s.Particles = nil
	prior := d.Particles
	d.Particles = append(d.Particles, moved...)

	own := make(map[*event.MCParticle]struct{}, len(moved))
	for _, p := range moved {
		own[p] = struct{}{}
	}
	var existing map[*event.MCParticle]struct{}
	inDest := func(q *event.MCParticle) bool {
		if _, ok := own[q]; ok {
			return true
		}
		if existing == nil {
			existing = make(map[*event.MCParticle]struct{}, len(prior))
			for _, p := range prior {
				existing[p] = struct{}{}
			}
		}
		_, ok := existing[q]
		return ok
	}

	res := AppendResult{Appended: len(moved)}
	for _, p := range moved {
		// Remove the reverse side first so the pair is dropped symmetrically.
		for _, q := range p.Parents {
			if !inDest(q) {
				q.Unlink(func(r *event.MCParticle) bool { return r != p })
			}
		}
		for _, q := range p.Children {
			if !inDest(q) {
				q.Unlink(func(r *event.MCParticle) bool { return r != p })
			}
		}
		res.LinksDropped += p.Unlink(inDest)
	}
	return res
}

// NamedResult reports a named merge.
type NamedResult struct {
	Pairs        int // Pairs for which both collections existed
	Appended     int
	LinksDropped int
}

// MergeNamed append-merges, for every pair in m, the background collection
// Src into the primary collection Dest. Pairs whose source is missing from
// background or whose destination is missing from primary are skipped.
func (e *Engine) MergeNamed(primary, background *event.Event, m NameMapping) NamedResult {
	var res NamedResult
	for _, pair := range m {
		src, ok := background.Collection(pair.Src)
		if !ok {
			e.logger.Debug("named merge: source collection not in background", "collection", pair.Src)
			continue
		}
		dest, ok := primary.Collection(pair.Dest)
		if !ok {
			e.logger.Debug("named merge: destination collection not in event", "collection", pair.Dest)
			continue
		}
		if !e.compatible(dest, src) {
			continue
		}
		r := e.MergeAppend(dest, src)
		res.Pairs++
		res.Appended += r.Appended
		res.LinksDropped += r.LinksDropped
	}
	return res
}

// compatible reports whether dest and src can be merged and logs a warning
// if they cannot.
func (e *Engine) compatible(dest, src event.Collection) bool {
	var err *errors.Error
	switch {
	case dest == nil || src == nil:
		err = errors.New(errors.ErrCodeCollectionNotFound, "merge not possible, missing collection")
	case dest == src:
		err = errors.New(errors.ErrCodeInternal, "merge not possible, collection merged into itself")
	case dest.TypeName() != src.TypeName():
		err = errors.New(errors.ErrCodeTypeMismatch, "merge not possible, collections of different type")
	default:
		return true
	}
	kv := []any{"code", err.Code}
	if dest != nil && src != nil {
		kv = append(kv, "dest", dest.TypeName(), "src", src.TypeName())
	}
	e.logger.Warn(err.Message, kv...)
	return false
}
