package catalog

import (
	"fmt"
	"slices"

	"brickcat/internal/logger"
	"brickcat/internal/types"
)

type partRecord struct {
	id         types.PartID
	name       types.PartName
	categoryID types.CategoryID
	material   string
}

type relationship struct {
	rel    types.RelationshipType
	child  types.PartID
	parent types.PartID
}

// Builder accumulates catalog records and resolves cross references in Build.
// It is not safe for concurrent use.
type Builder struct {
	categories map[types.CategoryID]types.CategoryName
	parts      []partRecord
	partIDs    map[types.PartID]struct{}
	colors     map[types.ColorID]types.Color
	elements   map[types.ElementID]types.Element
	rels       []relationship
}

func NewBuilder() *Builder {
	return &Builder{
		categories: make(map[types.CategoryID]types.CategoryName),
		partIDs:    make(map[types.PartID]struct{}),
		colors:     make(map[types.ColorID]types.Color),
		elements:   make(map[types.ElementID]types.Element),
	}
}

func (b *Builder) AddCategory(id types.CategoryID, name types.CategoryName) error {
	if _, ok := b.categories[id]; ok {
		return fmt.Errorf("%w: category %d", ErrDuplicateKey, id)
	}
	b.categories[id] = name
	return nil
}

func (b *Builder) AddPart(id types.PartID, name types.PartName, category types.CategoryID, material string) error {
	if _, ok := b.partIDs[id]; ok {
		return fmt.Errorf("%w: part %q", ErrDuplicateKey, id)
	}
	b.partIDs[id] = struct{}{}
	b.parts = append(b.parts, partRecord{id: id, name: name, categoryID: category, material: material})
	return nil
}

func (b *Builder) AddColor(c types.Color) error {
	if _, ok := b.colors[c.ID]; ok {
		return fmt.Errorf("%w: color %d", ErrDuplicateKey, c.ID)
	}
	b.colors[c.ID] = c
	return nil
}

func (b *Builder) AddElement(e types.Element) error {
	if _, ok := b.elements[e.ID]; ok {
		return fmt.Errorf("%w: element %d", ErrDuplicateKey, e.ID)
	}
	b.elements[e.ID] = e
	return nil
}

// AddRelationship records that child relates to parent by rel.
func (b *Builder) AddRelationship(rel types.RelationshipType, child, parent types.PartID) {
	b.rels = append(b.rels, relationship{rel: rel, child: child, parent: parent})
}

// Build resolves category names, per-part color maps and relationships.
// Elements and relationships that reference unknown parts or colors are kept
// out of the part records and logged.
func (b *Builder) Build() *Store {
	s := &Store{
		parts:       make(map[types.PartID]types.Part, len(b.parts)),
		colors:      make(map[types.ColorID]types.Color, len(b.colors)),
		elements:    make(map[types.ElementID]types.Element, len(b.elements)),
		partByName:  make(map[types.PartName]types.PartID, len(b.parts)),
		colorByName: make(map[types.ColorName]types.ColorID, len(b.colors)),
	}

	for _, rec := range b.parts {
		s.parts[rec.id] = types.Part{
			ID:           rec.id,
			Name:         rec.name,
			CategoryID:   rec.categoryID,
			CategoryName: b.categories[rec.categoryID],
			Material:     rec.material,
			Colors:       make(map[types.ColorName][]types.ElementID),
			ParentRels:   make(map[types.PartID][]types.RelationshipType),
			ChildRels:    make(map[types.PartID][]types.RelationshipType),
		}
		// First part wins on a name collision.
		if _, ok := s.partByName[rec.name]; !ok {
			s.partByName[rec.name] = rec.id
		}
	}

	for id, c := range b.colors {
		s.colors[id] = c
		if _, ok := s.colorByName[c.Name]; !ok {
			s.colorByName[c.Name] = id
		}
	}

	var orphans int
	for id, e := range b.elements {
		s.elements[id] = e
		part, okPart := s.parts[e.PartID]
		color, okColor := s.colors[e.ColorID]
		if !okPart || !okColor {
			orphans++
			continue
		}
		part.Colors[color.Name] = append(part.Colors[color.Name], id)
	}
	if orphans > 0 {
		logger.Warn("catalog: %d elements reference unknown parts or colors", orphans)
	}

	var dangling int
	for _, r := range b.rels {
		child, okChild := s.parts[r.child]
		parent, okParent := s.parts[r.parent]
		if !okChild || !okParent {
			dangling++
			continue
		}
		child.ParentRels[r.parent] = append(child.ParentRels[r.parent], r.rel)
		parent.ChildRels[r.child] = append(parent.ChildRels[r.child], r.rel)
	}
	if dangling > 0 {
		logger.Warn("catalog: %d relationships reference unknown parts", dangling)
	}

	for _, p := range s.parts {
		for name, ids := range p.Colors {
			slices.Sort(ids)
			p.Colors[name] = ids
		}
		normalizeRels(p.ParentRels)
		normalizeRels(p.ChildRels)
	}
	return s
}

// normalizeRels turns each relationship list into a sorted set.
func normalizeRels(rels map[types.PartID][]types.RelationshipType) {
	for id, list := range rels {
		slices.Sort(list)
		rels[id] = slices.Compact(list)
	}
}
