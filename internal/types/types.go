package types

import (
	"fmt"
	"strconv"
)

// PartID identifies a part, e.g. "3001" or "3626cpr0001".
type PartID string

// PartName is the catalog display name of a part.
type PartName string

// ColorID identifies a color. Negative ids are valid ("[Unknown]" is -1).
type ColorID int64

// ColorName is the catalog display name of a color.
type ColorName string

// ElementID identifies one part molded in one color.
type ElementID uint64

// CategoryID identifies a part category.
type CategoryID uint64

// CategoryName is the display name of a part category.
type CategoryName string

func (id PartID) String() string      { return string(id) }
func (n PartName) String() string     { return string(n) }
func (id ColorID) String() string     { return strconv.FormatInt(int64(id), 10) }
func (n ColorName) String() string    { return string(n) }
func (id ElementID) String() string   { return strconv.FormatUint(uint64(id), 10) }
func (id CategoryID) String() string  { return strconv.FormatUint(uint64(id), 10) }
func (n CategoryName) String() string { return string(n) }

// TrimID returns the leading run of digits of id, when id starts with a
// digit and continues with something else ("3626cpr0001" -> "3626").
func (id PartID) TrimID() (PartID, bool) {
	s := string(id)
	if s == "" || !isDigit(s[0]) {
		return "", false
	}
	for i := 1; i < len(s); i++ {
		if !isDigit(s[i]) {
			return PartID(s[:i]), true
		}
	}
	return "", false
}

func isDigit(b byte) bool { return b >= '0' && b <= '9' }

// ParseColorID parses the decimal form of a color id.
func ParseColorID(s string) (ColorID, error) {
	v, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid color id %q: %w", s, err)
	}
	return ColorID(v), nil
}

// ParseElementID parses the decimal form of an element id.
func ParseElementID(s string) (ElementID, error) {
	v, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid element id %q: %w", s, err)
	}
	return ElementID(v), nil
}

// RelationshipType describes how two parts relate.
type RelationshipType uint8

const (
	RelPrint RelationshipType = iota
	RelPair
	RelSubPart
	RelMold
	RelPattern
	RelAlternate
)

var relationshipCodes = [...]string{
	RelPrint:     "P",
	RelPair:      "R",
	RelSubPart:   "B",
	RelMold:      "M",
	RelPattern:   "T",
	RelAlternate: "A",
}

var relationshipNames = [...]string{
	RelPrint:     "Print",
	RelPair:      "Pair",
	RelSubPart:   "SubPart",
	RelMold:      "Mold",
	RelPattern:   "Pattern",
	RelAlternate: "Alternate",
}

// Valid reports whether r is one of the known relationship types.
func (r RelationshipType) Valid() bool {
	return int(r) < len(relationshipCodes)
}

func (r RelationshipType) String() string {
	if !r.Valid() {
		return fmt.Sprintf("RelationshipType(%d)", uint8(r))
	}
	return relationshipNames[r]
}

// Code returns the single-letter code used in part_relationships.csv.
func (r RelationshipType) Code() string {
	if !r.Valid() {
		return "?"
	}
	return relationshipCodes[r]
}

// ParseRelationshipType maps a single-letter relationship code to its type.
func ParseRelationshipType(code string) (RelationshipType, error) {
	for i, c := range relationshipCodes {
		if c == code {
			return RelationshipType(i), nil
		}
	}
	return 0, fmt.Errorf("invalid relationship type %q: should be P, R, B, M, T, or A", code)
}
