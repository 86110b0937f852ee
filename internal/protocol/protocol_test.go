package protocol

import (
	"testing"

	"brickcat/internal/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/protobuf/encoding/protowire"
)

func year(v uint32) *uint32 { return &v }

func design(v uint64) *uint64 { return &v }

func samplePart() types.Part {
	return types.Part{
		ID:           "4070",
		Name:         "Brick Special 1 x 1 with Headlight",
		CategoryID:   5,
		CategoryName: "Bricks Special",
		Material:     "Plastic",
		Colors: map[types.ColorName][]types.ElementID{
			"Blue": {407023, 407028},
			"Red":  {407021},
		},
		ParentRels: map[types.PartID][]types.RelationshipType{},
		ChildRels: map[types.PartID][]types.RelationshipType{
			"4070pr0001": {types.RelPrint, types.RelPattern},
		},
	}
}

func TestQueryRoundTrip(t *testing.T) {
	t.Parallel()

	queries := []Query{
		Get{Item: PartFromID{ID: "4070"}},
		Get{Item: PartFromID{ID: ""}},
		Get{Item: PartFromName{Name: "Plate 2 x 3"}},
		Get{Item: ColorFromID{ID: -1}},
		Get{Item: ColorFromName{Name: "Trans-Clear"}},
		Get{Item: ElementFromID{ID: 6284070}},
		Find{Kind: FindPartIDs},
		Find{Kind: FindElementIDs},
	}
	for _, q := range queries {
		b, err := q.MarshalWire()
		require.NoError(t, err)
		got, err := DecodeQuery(b)
		require.NoError(t, err)
		assert.Equal(t, q, got)
	}
}

func TestResponseRoundTrip(t *testing.T) {
	t.Parallel()

	responses := []Response{
		GetItemResponse{Result: PartResult{Part: samplePart()}, Query: PartFromID{ID: "4070"}},
		GetItemResponse{
			Result: ColorResult{Color: types.Color{
				ID: 1, Name: "Blue", RGB: "0055BF", NumParts: 193056, NumSets: 46595,
				YearFrom: year(1949), YearTo: year(2025),
			}},
			Query: ColorFromName{Name: "Blue"},
		},
		GetItemResponse{
			Result: ColorResult{Color: types.Color{ID: -1, Name: "[Unknown]", RGB: "0033B2", Transparent: true}},
			Query:  ColorFromID{ID: -1},
		},
		GetItemResponse{
			Result: ElementResult{Element: types.Element{ID: 302123, PartID: "3021", ColorID: 1, DesignID: design(3021)}},
			Query:  ElementFromID{ID: 302123},
		},
		GetItemResponse{Result: NotFound{}, Query: PartFromID{ID: "does-not-exist"}},
		IterItem{Key: PartIDKey{ID: "3001"}},
		IterItem{Key: PartNameKey{Name: "Brick 2 x 4"}},
		IterItem{Key: ColorIDKey{ID: -1}},
		IterItem{Key: ColorNameKey{Name: "Black"}},
		IterItem{Key: ElementIDKey{ID: 300121}},
		IterEnd{},
	}
	for _, r := range responses {
		b, err := r.MarshalWire()
		require.NoError(t, err)
		got, err := DecodeResponse(b)
		require.NoError(t, err)
		assert.Equal(t, r, got)
	}
}

func TestMarshalRejectsIncompleteValues(t *testing.T) {
	t.Parallel()

	_, err := Get{}.MarshalWire()
	assert.ErrorIs(t, err, ErrUnknownVariant)

	_, err = Find{Kind: 42}.MarshalWire()
	assert.ErrorIs(t, err, ErrUnknownVariant)

	_, err = GetItemResponse{Query: PartFromID{ID: "1"}}.MarshalWire()
	assert.ErrorIs(t, err, ErrUnknownVariant)
}

func TestDecodeMalformed(t *testing.T) {
	t.Parallel()

	t.Run("empty payload", func(t *testing.T) {
		t.Parallel()
		_, err := DecodeQuery(nil)
		assert.ErrorIs(t, err, ErrMalformed)
		_, err = DecodeResponse(nil)
		assert.ErrorIs(t, err, ErrMalformed)
	})

	t.Run("truncated field", func(t *testing.T) {
		t.Parallel()
		b, err := Get{Item: PartFromName{Name: "Plate 1 x 1"}}.MarshalWire()
		require.NoError(t, err)
		_, err = DecodeQuery(b[:len(b)-3])
		assert.ErrorIs(t, err, ErrMalformed)
	})

	t.Run("wrong wire type", func(t *testing.T) {
		t.Parallel()
		b := protowire.AppendTag(nil, fieldQueryGet, protowire.VarintType)
		b = protowire.AppendVarint(b, 7)
		_, err := DecodeQuery(b)
		assert.ErrorIs(t, err, ErrMalformed)
	})

	t.Run("selector with two keys", func(t *testing.T) {
		t.Parallel()
		sel := appendString(nil, fieldSelPartID, "3001")
		sel = appendUint(sel, fieldSelElementID, 1)
		_, err := DecodeQuery(appendMessage(nil, fieldQueryGet, sel))
		assert.ErrorIs(t, err, ErrMalformed)
	})

	t.Run("unknown find kind", func(t *testing.T) {
		t.Parallel()
		_, err := DecodeQuery(appendUint(nil, fieldQueryFind, 257))
		assert.ErrorIs(t, err, ErrUnknownVariant)
	})
}

func TestDecodeSkipsUnknownFields(t *testing.T) {
	t.Parallel()

	b, err := Find{Kind: FindColorNames}.MarshalWire()
	require.NoError(t, err)
	b = appendString(b, 99, "added later")
	b = protowire.AppendTag(b, 100, protowire.Fixed32Type)
	b = protowire.AppendFixed32(b, 7)

	got, err := DecodeQuery(b)
	require.NoError(t, err)
	assert.Equal(t, Find{Kind: FindColorNames}, got)
}

func TestFindKindNames(t *testing.T) {
	t.Parallel()

	for _, k := range []FindKind{FindPartIDs, FindPartNames, FindColorIDs, FindColorNames, FindElementIDs} {
		parsed, err := ParseFindKind(k.String())
		require.NoError(t, err)
		assert.Equal(t, k, parsed)
	}
	_, err := ParseFindKind("sets")
	assert.ErrorIs(t, err, ErrUnknownVariant)
}
