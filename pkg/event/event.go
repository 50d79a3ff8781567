package event

import (
	"errors"
	"slices"
)

var (
	// ErrDuplicateCollection is returned by [Event.AddCollection] when a
	// collection with the same name already exists in the event.
	ErrDuplicateCollection = errors.New("duplicate collection name")

	// ErrInvalidCollectionName is returned by [Event.AddCollection] for an
	// empty collection name.
	ErrInvalidCollectionName = errors.New("collection name must not be empty")

	// ErrNilCollection is returned by [Event.AddCollection] for a nil collection.
	ErrNilCollection = errors.New("collection must not be nil")
)

// RunHeader describes a run of events.
type RunHeader struct {
	RunNumber   int
	Detector    string
	Description string
}

// Event is one bunch crossing worth of detector records.
//
// The zero value is usable. Collections keep their insertion order, which is
// also the order they are written in.
type Event struct {
	RunNumber   int
	EventNumber int
	Parameters  map[string]string

	names       []string
	collections map[string]Collection
}

// New creates an empty event.
func New(run, number int) *Event {
	return &Event{RunNumber: run, EventNumber: number}
}

// Collection returns the collection with the given name. The boolean reports
// whether it exists.
func (e *Event) Collection(name string) (Collection, bool) {
	c, ok := e.collections[name]
	return c, ok
}

// AddCollection adds a collection under name.
// Returns ErrDuplicateCollection if name is already taken.
func (e *Event) AddCollection(name string, c Collection) error {
	if name == "" {
		return ErrInvalidCollectionName
	}
	if c == nil {
		return ErrNilCollection
	}
	if _, exists := e.collections[name]; exists {
		return ErrDuplicateCollection
	}
	if e.collections == nil {
		e.collections = make(map[string]Collection)
	}
	e.collections[name] = c
	e.names = append(e.names, name)
	return nil
}

// RemoveCollection removes and returns the named collection.
func (e *Event) RemoveCollection(name string) (Collection, bool) {
	c, ok := e.collections[name]
	if !ok {
		return nil, false
	}
	delete(e.collections, name)
	e.names = slices.DeleteFunc(e.names, func(n string) bool { return n == name })
	return c, true
}

// CollectionNames returns the collection names in insertion order.
func (e *Event) CollectionNames() []string { return slices.Clone(e.names) }

// TrackerHits returns the named collection if it holds tracker hits.
func (e *Event) TrackerHits(name string) (*TrackerHits, bool) {
	c, ok := e.collections[name].(*TrackerHits)
	return c, ok
}

// Particles returns the named collection if it holds MC particles.
func (e *Event) Particles(name string) (*Particles, bool) {
	c, ok := e.collections[name].(*Particles)
	return c, ok
}

// SetParameter sets an event-level string parameter.
func (e *Event) SetParameter(key, value string) {
	if e.Parameters == nil {
		e.Parameters = make(map[string]string)
	}
	e.Parameters[key] = value
}
