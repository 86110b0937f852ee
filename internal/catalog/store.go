// Package catalog holds the read-only, in-memory reference catalog of parts,
// colors and elements served by the query server.
package catalog

import (
	"errors"
	"iter"
	"maps"

	"brickcat/internal/types"
)

var (
	ErrDuplicateKey  = errors.New("catalog: duplicate key")
	ErrMissingColumn = errors.New("catalog: missing column")
	ErrMissingFile   = errors.New("catalog: missing file")
)

// Reader is the lookup surface shared by the local Store and remote clients.
type Reader interface {
	PartFromID(id types.PartID) (types.Part, bool)
	PartFromName(name types.PartName) (types.Part, bool)
	ColorFromID(id types.ColorID) (types.Color, bool)
	ColorFromName(name types.ColorName) (types.Color, bool)
	ElementFromID(id types.ElementID) (types.Element, bool)
}

// Enumerator lists every key of one kind, in no particular order.
type Enumerator interface {
	PartIDs() iter.Seq[types.PartID]
	PartNames() iter.Seq[types.PartName]
	ColorIDs() iter.Seq[types.ColorID]
	ColorNames() iter.Seq[types.ColorName]
	ElementIDs() iter.Seq[types.ElementID]
}

// Catalog is a complete read-only catalog view.
type Catalog interface {
	Reader
	Enumerator
}

var _ Catalog = (*Store)(nil)

// Store is built once and never mutated afterwards, so it is safe for
// concurrent use without locking. Records are returned by value; their maps
// and slices are shared with the store and must not be modified.
type Store struct {
	parts    map[types.PartID]types.Part
	colors   map[types.ColorID]types.Color
	elements map[types.ElementID]types.Element

	partByName  map[types.PartName]types.PartID
	colorByName map[types.ColorName]types.ColorID

	fingerprint string
}

// Stats summarizes a store's contents.
type Stats struct {
	Parts    int
	Colors   int
	Elements int
}

func (s *Store) Stats() Stats {
	return Stats{Parts: len(s.parts), Colors: len(s.colors), Elements: len(s.elements)}
}

// Fingerprint is a BLAKE3 digest of the source files the store was loaded
// from, or empty for stores assembled in memory.
func (s *Store) Fingerprint() string {
	return s.fingerprint
}

func (s *Store) PartFromID(id types.PartID) (types.Part, bool) {
	p, ok := s.parts[id]
	return p, ok
}

func (s *Store) PartFromName(name types.PartName) (types.Part, bool) {
	id, ok := s.partByName[name]
	if !ok {
		return types.Part{}, false
	}
	return s.PartFromID(id)
}

func (s *Store) ColorFromID(id types.ColorID) (types.Color, bool) {
	c, ok := s.colors[id]
	return c, ok
}

func (s *Store) ColorFromName(name types.ColorName) (types.Color, bool) {
	id, ok := s.colorByName[name]
	if !ok {
		return types.Color{}, false
	}
	return s.ColorFromID(id)
}

func (s *Store) ElementFromID(id types.ElementID) (types.Element, bool) {
	e, ok := s.elements[id]
	return e, ok
}

func (s *Store) PartIDs() iter.Seq[types.PartID] {
	return maps.Keys(s.parts)
}

func (s *Store) PartNames() iter.Seq[types.PartName] {
	return maps.Keys(s.partByName)
}

func (s *Store) ColorIDs() iter.Seq[types.ColorID] {
	return maps.Keys(s.colors)
}

func (s *Store) ColorNames() iter.Seq[types.ColorName] {
	return maps.Keys(s.colorByName)
}

func (s *Store) ElementIDs() iter.Seq[types.ElementID] {
	return maps.Keys(s.elements)
}
