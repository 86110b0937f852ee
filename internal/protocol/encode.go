package protocol

import (
	"fmt"
	"slices"

	"brickcat/internal/types"

	"google.golang.org/protobuf/encoding/protowire"
)

// Field numbers. Changing any of them breaks wire compatibility.
const (
	fieldQueryGet  protowire.Number = 1
	fieldQueryFind protowire.Number = 2

	fieldResponseGetItem  protowire.Number = 1
	fieldResponseIterItem protowire.Number = 2
	fieldResponseIterEnd  protowire.Number = 3

	fieldResultPart     protowire.Number = 1
	fieldResultColor    protowire.Number = 2
	fieldResultElement  protowire.Number = 3
	fieldResultNotFound protowire.Number = 4
	fieldResultQuery    protowire.Number = 5

	// Shared by GetItem selectors and Find keys.
	fieldSelPartID    protowire.Number = 1
	fieldSelPartName  protowire.Number = 2
	fieldSelColorID   protowire.Number = 3
	fieldSelColorName protowire.Number = 4
	fieldSelElementID protowire.Number = 5

	fieldPartID           protowire.Number = 1
	fieldPartName         protowire.Number = 2
	fieldPartCategoryID   protowire.Number = 3
	fieldPartCategoryName protowire.Number = 4
	fieldPartMaterial     protowire.Number = 5
	fieldPartColors       protowire.Number = 6
	fieldPartParentRels   protowire.Number = 7
	fieldPartChildRels    protowire.Number = 8

	fieldEntryKey    protowire.Number = 1
	fieldEntryValues protowire.Number = 2

	fieldColorID          protowire.Number = 1
	fieldColorName        protowire.Number = 2
	fieldColorRGB         protowire.Number = 3
	fieldColorTransparent protowire.Number = 4
	fieldColorNumParts    protowire.Number = 5
	fieldColorNumSets     protowire.Number = 6
	fieldColorYearFrom    protowire.Number = 7
	fieldColorYearTo      protowire.Number = 8

	fieldElementID       protowire.Number = 1
	fieldElementPartID   protowire.Number = 2
	fieldElementColorID  protowire.Number = 3
	fieldElementDesignID protowire.Number = 4
)

func appendString(b []byte, num protowire.Number, s string) []byte {
	b = protowire.AppendTag(b, num, protowire.BytesType)
	return protowire.AppendString(b, s)
}

func appendMessage(b []byte, num protowire.Number, msg []byte) []byte {
	b = protowire.AppendTag(b, num, protowire.BytesType)
	return protowire.AppendBytes(b, msg)
}

func appendUint(b []byte, num protowire.Number, v uint64) []byte {
	b = protowire.AppendTag(b, num, protowire.VarintType)
	return protowire.AppendVarint(b, v)
}

func appendSint(b []byte, num protowire.Number, v int64) []byte {
	return appendUint(b, num, protowire.EncodeZigZag(v))
}

func appendBool(b []byte, num protowire.Number, v bool) []byte {
	return appendUint(b, num, protowire.EncodeBool(v))
}

func appendPacked[T ~uint8 | ~uint64](b []byte, num protowire.Number, vs []T) []byte {
	if len(vs) == 0 {
		return b
	}
	var packed []byte
	for _, v := range vs {
		packed = protowire.AppendVarint(packed, uint64(v))
	}
	return appendMessage(b, num, packed)
}

// appendSelector encodes a GetItem or a Key; both use the same one-of layout.
func appendSelector(b []byte, v any) ([]byte, error) {
	switch s := v.(type) {
	case PartFromID:
		return appendString(b, fieldSelPartID, string(s.ID)), nil
	case PartIDKey:
		return appendString(b, fieldSelPartID, string(s.ID)), nil
	case PartFromName:
		return appendString(b, fieldSelPartName, string(s.Name)), nil
	case PartNameKey:
		return appendString(b, fieldSelPartName, string(s.Name)), nil
	case ColorFromID:
		return appendSint(b, fieldSelColorID, int64(s.ID)), nil
	case ColorIDKey:
		return appendSint(b, fieldSelColorID, int64(s.ID)), nil
	case ColorFromName:
		return appendString(b, fieldSelColorName, string(s.Name)), nil
	case ColorNameKey:
		return appendString(b, fieldSelColorName, string(s.Name)), nil
	case ElementFromID:
		return appendUint(b, fieldSelElementID, uint64(s.ID)), nil
	case ElementIDKey:
		return appendUint(b, fieldSelElementID, uint64(s.ID)), nil
	default:
		return nil, fmt.Errorf("%w: selector %T", ErrUnknownVariant, v)
	}
}

func appendPart(b []byte, p types.Part) []byte {
	b = appendString(b, fieldPartID, string(p.ID))
	b = appendString(b, fieldPartName, string(p.Name))
	b = appendUint(b, fieldPartCategoryID, uint64(p.CategoryID))
	b = appendString(b, fieldPartCategoryName, string(p.CategoryName))
	b = appendString(b, fieldPartMaterial, p.Material)
	for _, name := range sortedKeys(p.Colors) {
		entry := appendString(nil, fieldEntryKey, string(name))
		entry = appendPacked(entry, fieldEntryValues, p.Colors[name])
		b = appendMessage(b, fieldPartColors, entry)
	}
	b = appendRels(b, fieldPartParentRels, p.ParentRels)
	b = appendRels(b, fieldPartChildRels, p.ChildRels)
	return b
}

func appendRels(b []byte, num protowire.Number, rels map[types.PartID][]types.RelationshipType) []byte {
	for _, id := range sortedKeys(rels) {
		entry := appendString(nil, fieldEntryKey, string(id))
		entry = appendPacked(entry, fieldEntryValues, rels[id])
		b = appendMessage(b, num, entry)
	}
	return b
}

func appendColor(b []byte, c types.Color) []byte {
	b = appendSint(b, fieldColorID, int64(c.ID))
	b = appendString(b, fieldColorName, string(c.Name))
	b = appendString(b, fieldColorRGB, c.RGB)
	b = appendBool(b, fieldColorTransparent, c.Transparent)
	b = appendUint(b, fieldColorNumParts, c.NumParts)
	b = appendUint(b, fieldColorNumSets, c.NumSets)
	if c.YearFrom != nil {
		b = appendUint(b, fieldColorYearFrom, uint64(*c.YearFrom))
	}
	if c.YearTo != nil {
		b = appendUint(b, fieldColorYearTo, uint64(*c.YearTo))
	}
	return b
}

func appendElement(b []byte, e types.Element) []byte {
	b = appendUint(b, fieldElementID, uint64(e.ID))
	b = appendString(b, fieldElementPartID, string(e.PartID))
	b = appendSint(b, fieldElementColorID, int64(e.ColorID))
	if e.DesignID != nil {
		b = appendUint(b, fieldElementDesignID, *e.DesignID)
	}
	return b
}

func sortedKeys[K ~string, V any](m map[K]V) []K {
	keys := make([]K, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}
