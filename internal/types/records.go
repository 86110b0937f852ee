package types

import (
	"fmt"
	"slices"
	"strings"
)

// Part is an immutable snapshot of one catalog part.
type Part struct {
	ID           PartID
	Name         PartName
	CategoryID   CategoryID
	CategoryName CategoryName
	Material     string
	// Colors maps each color the part is produced in to its sorted element ids.
	Colors map[ColorName][]ElementID
	// ParentRels and ChildRels map related part ids to their sorted relationship types.
	ParentRels map[PartID][]RelationshipType
	ChildRels  map[PartID][]RelationshipType
}

// Color is an immutable snapshot of one catalog color.
type Color struct {
	ID          ColorID
	Name        ColorName
	RGB         string
	Transparent bool
	NumParts    uint64
	NumSets     uint64
	// YearFrom and YearTo are nil when the catalog has no production years.
	YearFrom *uint32
	YearTo   *uint32
}

// Element is one part in one color.
type Element struct {
	ID       ElementID
	PartID   PartID
	ColorID  ColorID
	DesignID *uint64
}

func (p Part) String() string {
	var b strings.Builder
	p.writeHeader(&b)
	b.WriteString("\nChild parts:")
	writeRels(&b, p.ChildRels)
	b.WriteString("\nParent parts:")
	writeRels(&b, p.ParentRels)
	fmt.Fprintf(&b, "\nColor variations: %d unique colors:", len(p.Colors))
	for _, name := range sortedKeys(p.Colors) {
		fmt.Fprintf(&b, "\n    %s, %v", name, p.Colors[name])
	}
	return b.String()
}

// Short renders the identifying fields only.
func (p Part) Short() string {
	var b strings.Builder
	p.writeHeader(&b)
	return b.String()
}

func (p Part) writeHeader(b *strings.Builder) {
	fmt.Fprintf(b, "Part Name: %s\n", p.Name)
	fmt.Fprintf(b, "Id: %s\n", p.ID)
	fmt.Fprintf(b, "Category: %s (%d)\n", p.CategoryName, p.CategoryID)
	fmt.Fprintf(b, "Material: %s", p.Material)
}

func writeRels(b *strings.Builder, rels map[PartID][]RelationshipType) {
	for _, id := range sortedKeys(rels) {
		fmt.Fprintf(b, "\n    %s, %v", id, rels[id])
	}
}

func (c Color) String() string {
	var b strings.Builder
	b.WriteString(c.Short())
	trans := "No"
	if c.Transparent {
		trans = "Yes"
	}
	fmt.Fprintf(&b, "\nTransparent: %s", trans)
	fmt.Fprintf(&b, "\nNumber of parts: %d", c.NumParts)
	fmt.Fprintf(&b, "\nNumber of sets: %d", c.NumSets)
	fmt.Fprintf(&b, "\nYears active: %s - %s", optional(c.YearFrom), optional(c.YearTo))
	return b.String()
}

// Short renders the identifying fields only.
func (c Color) Short() string {
	return fmt.Sprintf("Color Name: %s\nId: %d\nRGB value: %s", c.Name, c.ID, c.RGB)
}

func (e Element) String() string {
	return fmt.Sprintf("Element Id: %d\nPart Id: %s\nColor Id: %d\nDesign Id: %s",
		e.ID, e.PartID, e.ColorID, optional(e.DesignID))
}

// Short is identical to String; elements have no long form.
func (e Element) Short() string { return e.String() }

func optional[T uint32 | uint64](v *T) string {
	if v == nil {
		return "-"
	}
	return fmt.Sprint(*v)
}

func sortedKeys[K ~string, V any](m map[K]V) []K {
	keys := make([]K, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}
