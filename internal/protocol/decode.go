package protocol

import (
	"fmt"

	"brickcat/internal/types"

	"google.golang.org/protobuf/encoding/protowire"
)

// field is one decoded top-level field of a message. Unknown wire types are
// consumed and kept with an empty value so they can be skipped.
type field struct {
	num protowire.Number
	typ protowire.Type
	v   uint64
	raw []byte
}

func parseFields(b []byte) ([]field, error) {
	var out []field
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return nil, parseError(n)
		}
		b = b[n:]
		f := field{num: num, typ: typ}
		switch typ {
		case protowire.VarintType:
			f.v, n = protowire.ConsumeVarint(b)
		case protowire.BytesType:
			f.raw, n = protowire.ConsumeBytes(b)
		default:
			n = protowire.ConsumeFieldValue(num, typ, b)
		}
		if n < 0 {
			return nil, parseError(n)
		}
		b = b[n:]
		out = append(out, f)
	}
	return out, nil
}

func parseError(n int) error {
	return fmt.Errorf("%w: %v", ErrMalformed, protowire.ParseError(n))
}

func (f field) want(typ protowire.Type) error {
	if f.typ != typ {
		return fmt.Errorf("%w: field %d has wire type %d, want %d", ErrMalformed, f.num, f.typ, typ)
	}
	return nil
}

func (f field) uint() (uint64, error) {
	if err := f.want(protowire.VarintType); err != nil {
		return 0, err
	}
	return f.v, nil
}

func (f field) sint() (int64, error) {
	v, err := f.uint()
	return protowire.DecodeZigZag(v), err
}

func (f field) boolean() (bool, error) {
	v, err := f.uint()
	return protowire.DecodeBool(v), err
}

func (f field) text() (string, error) {
	if err := f.want(protowire.BytesType); err != nil {
		return "", err
	}
	return string(f.raw), nil
}

func (f field) message() ([]byte, error) {
	if err := f.want(protowire.BytesType); err != nil {
		return nil, err
	}
	return f.raw, nil
}

// packed accepts both packed and unpacked repeated varints.
func (f field) packed() ([]uint64, error) {
	if f.typ == protowire.VarintType {
		return []uint64{f.v}, nil
	}
	raw, err := f.message()
	if err != nil {
		return nil, err
	}
	var out []uint64
	for len(raw) > 0 {
		v, n := protowire.ConsumeVarint(raw)
		if n < 0 {
			return nil, parseError(n)
		}
		out = append(out, v)
		raw = raw[n:]
	}
	return out, nil
}

type selector struct {
	num      protowire.Number
	text     string
	signed   int64
	unsigned uint64
}

func decodeSelector(b []byte) (selector, error) {
	fields, err := parseFields(b)
	if err != nil {
		return selector{}, err
	}
	var sel selector
	found := 0
	for _, f := range fields {
		var err error
		switch f.num {
		case fieldSelPartID, fieldSelPartName, fieldSelColorName:
			sel = selector{num: f.num}
			sel.text, err = f.text()
		case fieldSelColorID:
			sel = selector{num: f.num}
			sel.signed, err = f.sint()
		case fieldSelElementID:
			sel = selector{num: f.num}
			sel.unsigned, err = f.uint()
		default:
			continue
		}
		if err != nil {
			return selector{}, err
		}
		found++
	}
	if found != 1 {
		return selector{}, fmt.Errorf("%w: selector holds %d keys, want 1", ErrMalformed, found)
	}
	return sel, nil
}

func decodeEntry(b []byte) (string, []uint64, error) {
	fields, err := parseFields(b)
	if err != nil {
		return "", nil, err
	}
	var (
		key    string
		values []uint64
	)
	for _, f := range fields {
		switch f.num {
		case fieldEntryKey:
			if key, err = f.text(); err != nil {
				return "", nil, err
			}
		case fieldEntryValues:
			vs, err := f.packed()
			if err != nil {
				return "", nil, err
			}
			values = append(values, vs...)
		}
	}
	return key, values, nil
}

func decodeRels(raw []byte, into map[types.PartID][]types.RelationshipType) error {
	key, values, err := decodeEntry(raw)
	if err != nil {
		return err
	}
	rels := make([]types.RelationshipType, 0, len(values))
	for _, v := range values {
		rel := types.RelationshipType(v)
		if v > 255 || !rel.Valid() {
			return fmt.Errorf("%w: relationship type %d", ErrUnknownVariant, v)
		}
		rels = append(rels, rel)
	}
	into[types.PartID(key)] = rels
	return nil
}

func decodePart(b []byte) (types.Part, error) {
	fields, err := parseFields(b)
	if err != nil {
		return types.Part{}, err
	}
	p := types.Part{
		Colors:     make(map[types.ColorName][]types.ElementID),
		ParentRels: make(map[types.PartID][]types.RelationshipType),
		ChildRels:  make(map[types.PartID][]types.RelationshipType),
	}
	for _, f := range fields {
		var (
			s   string
			v   uint64
			raw []byte
			err error
		)
		switch f.num {
		case fieldPartID:
			s, err = f.text()
			p.ID = types.PartID(s)
		case fieldPartName:
			s, err = f.text()
			p.Name = types.PartName(s)
		case fieldPartCategoryID:
			v, err = f.uint()
			p.CategoryID = types.CategoryID(v)
		case fieldPartCategoryName:
			s, err = f.text()
			p.CategoryName = types.CategoryName(s)
		case fieldPartMaterial:
			p.Material, err = f.text()
		case fieldPartColors:
			if raw, err = f.message(); err == nil {
				var key string
				var values []uint64
				key, values, err = decodeEntry(raw)
				ids := make([]types.ElementID, 0, len(values))
				for _, v := range values {
					ids = append(ids, types.ElementID(v))
				}
				p.Colors[types.ColorName(key)] = ids
			}
		case fieldPartParentRels:
			if raw, err = f.message(); err == nil {
				err = decodeRels(raw, p.ParentRels)
			}
		case fieldPartChildRels:
			if raw, err = f.message(); err == nil {
				err = decodeRels(raw, p.ChildRels)
			}
		}
		if err != nil {
			return types.Part{}, err
		}
	}
	return p, nil
}

func decodeColor(b []byte) (types.Color, error) {
	fields, err := parseFields(b)
	if err != nil {
		return types.Color{}, err
	}
	var c types.Color
	for _, f := range fields {
		var (
			s   string
			v   uint64
			i   int64
			err error
		)
		switch f.num {
		case fieldColorID:
			i, err = f.sint()
			c.ID = types.ColorID(i)
		case fieldColorName:
			s, err = f.text()
			c.Name = types.ColorName(s)
		case fieldColorRGB:
			c.RGB, err = f.text()
		case fieldColorTransparent:
			c.Transparent, err = f.boolean()
		case fieldColorNumParts:
			c.NumParts, err = f.uint()
		case fieldColorNumSets:
			c.NumSets, err = f.uint()
		case fieldColorYearFrom:
			v, err = f.uint()
			year := uint32(v)
			c.YearFrom = &year
		case fieldColorYearTo:
			v, err = f.uint()
			year := uint32(v)
			c.YearTo = &year
		}
		if err != nil {
			return types.Color{}, err
		}
	}
	return c, nil
}

func decodeElement(b []byte) (types.Element, error) {
	fields, err := parseFields(b)
	if err != nil {
		return types.Element{}, err
	}
	var e types.Element
	for _, f := range fields {
		var (
			s   string
			v   uint64
			i   int64
			err error
		)
		switch f.num {
		case fieldElementID:
			v, err = f.uint()
			e.ID = types.ElementID(v)
		case fieldElementPartID:
			s, err = f.text()
			e.PartID = types.PartID(s)
		case fieldElementColorID:
			i, err = f.sint()
			e.ColorID = types.ColorID(i)
		case fieldElementDesignID:
			v, err = f.uint()
			design := v
			e.DesignID = &design
		}
		if err != nil {
			return types.Element{}, err
		}
	}
	return e, nil
}
