package protocol

import (
	"fmt"

	"brickcat/internal/types"
	"brickcat/internal/wire"
)

// FindKind names the key space a Find query enumerates.
type FindKind uint8

const (
	FindPartIDs FindKind = iota + 1
	FindPartNames
	FindColorIDs
	FindColorNames
	FindElementIDs
)

var findKindNames = map[FindKind]string{
	FindPartIDs:    "part-ids",
	FindPartNames:  "part-names",
	FindColorIDs:   "color-ids",
	FindColorNames: "color-names",
	FindElementIDs: "element-ids",
}

func (k FindKind) Valid() bool {
	_, ok := findKindNames[k]
	return ok
}

func (k FindKind) String() string {
	if name, ok := findKindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("FindKind(%d)", uint8(k))
}

// ParseFindKind is the inverse of FindKind.String.
func ParseFindKind(s string) (FindKind, error) {
	for k, name := range findKindNames {
		if name == s {
			return k, nil
		}
	}
	return 0, fmt.Errorf("%w: find kind %q", ErrUnknownVariant, s)
}

// GetItem selects a single catalog record.
// Implemented by PartFromID, PartFromName, ColorFromID, ColorFromName and ElementFromID.
type GetItem interface {
	isGetItem()
}

type PartFromID struct{ ID types.PartID }
type PartFromName struct{ Name types.PartName }
type ColorFromID struct{ ID types.ColorID }
type ColorFromName struct{ Name types.ColorName }
type ElementFromID struct{ ID types.ElementID }

func (PartFromID) isGetItem()    {}
func (PartFromName) isGetItem()  {}
func (ColorFromID) isGetItem()   {}
func (ColorFromName) isGetItem() {}
func (ElementFromID) isGetItem() {}

// Query is a client request. Implemented by Get and Find.
type Query interface {
	wire.Marshaler
	isQuery()
}

// Get asks for one record.
type Get struct {
	Item GetItem
}

// Find asks for every key of one kind.
type Find struct {
	Kind FindKind
}

func (Get) isQuery()  {}
func (Find) isQuery() {}

func (q Get) MarshalWire() ([]byte, error) {
	item, err := appendSelector(nil, q.Item)
	if err != nil {
		return nil, err
	}
	return appendMessage(nil, fieldQueryGet, item), nil
}

func (q Find) MarshalWire() ([]byte, error) {
	if !q.Kind.Valid() {
		return nil, fmt.Errorf("%w: %v", ErrUnknownVariant, q.Kind)
	}
	return appendUint(nil, fieldQueryFind, uint64(q.Kind)), nil
}

// DecodeQuery parses one Query payload.
func DecodeQuery(b []byte) (Query, error) {
	fields, err := parseFields(b)
	if err != nil {
		return nil, err
	}
	var q Query
	for _, f := range fields {
		switch f.num {
		case fieldQueryGet:
			raw, err := f.message()
			if err != nil {
				return nil, err
			}
			item, err := decodeGetItem(raw)
			if err != nil {
				return nil, err
			}
			q = Get{Item: item}
		case fieldQueryFind:
			v, err := f.uint()
			if err != nil {
				return nil, err
			}
			kind := FindKind(v)
			if v > 255 || !kind.Valid() {
				return nil, fmt.Errorf("%w: find kind %d", ErrUnknownVariant, v)
			}
			q = Find{Kind: kind}
		}
	}
	if q == nil {
		return nil, fmt.Errorf("%w: empty query", ErrMalformed)
	}
	return q, nil
}

func decodeGetItem(b []byte) (GetItem, error) {
	sel, err := decodeSelector(b)
	if err != nil {
		return nil, err
	}
	switch sel.num {
	case fieldSelPartID:
		return PartFromID{ID: types.PartID(sel.text)}, nil
	case fieldSelPartName:
		return PartFromName{Name: types.PartName(sel.text)}, nil
	case fieldSelColorID:
		return ColorFromID{ID: types.ColorID(sel.signed)}, nil
	case fieldSelColorName:
		return ColorFromName{Name: types.ColorName(sel.text)}, nil
	default:
		return ElementFromID{ID: types.ElementID(sel.unsigned)}, nil
	}
}
