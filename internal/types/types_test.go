package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTrimID(t *testing.T) {
	t.Parallel()

	tests := []struct {
		id   PartID
		want PartID
		ok   bool
	}{
		{"3626cpr0001", "3626", true},
		{"3794b", "3794", true},
		{"3001", "", false},
		{"x123", "", false},
		{"", "", false},
	}
	for _, tt := range tests {
		got, ok := tt.id.TrimID()
		assert.Equal(t, tt.ok, ok, tt.id)
		assert.Equal(t, tt.want, got, tt.id)
	}
}

func TestParseIDs(t *testing.T) {
	t.Parallel()

	c, err := ParseColorID("-1")
	require.NoError(t, err)
	assert.Equal(t, ColorID(-1), c)
	assert.Equal(t, "-1", c.String())

	e, err := ParseElementID("4211385")
	require.NoError(t, err)
	assert.Equal(t, "4211385", e.String())

	_, err = ParseColorID("blue")
	assert.Error(t, err)
	_, err = ParseElementID("-5")
	assert.Error(t, err)
}

func TestRelationshipType(t *testing.T) {
	t.Parallel()

	for _, code := range []string{"P", "R", "B", "M", "T", "A"} {
		r, err := ParseRelationshipType(code)
		require.NoError(t, err)
		assert.True(t, r.Valid())
		assert.Equal(t, code, r.Code())
	}

	r, err := ParseRelationshipType("T")
	require.NoError(t, err)
	assert.Equal(t, RelPattern, r)
	assert.Equal(t, "Pattern", r.String())

	_, err = ParseRelationshipType("X")
	assert.Error(t, err)
	assert.False(t, RelationshipType(42).Valid())
	assert.Equal(t, "RelationshipType(42)", RelationshipType(42).String())
}

func TestRecordRendering(t *testing.T) {
	t.Parallel()

	design := uint64(3001)
	from, to := uint32(1949), uint32(2025)

	part := Part{
		ID:           "3001",
		Name:         "Brick 2 x 4",
		CategoryID:   11,
		CategoryName: "Bricks",
		Material:     "Plastic",
		Colors: map[ColorName][]ElementID{
			"Red":   {300121},
			"Black": {300126, 4211385},
		},
		ChildRels:  map[PartID][]RelationshipType{"3001pr0001": {RelPrint}},
		ParentRels: map[PartID][]RelationshipType{},
	}
	assert.Equal(t, "Part Name: Brick 2 x 4\nId: 3001\nCategory: Bricks (11)\nMaterial: Plastic", part.Short())
	assert.Equal(t, part.Short()+
		"\nChild parts:\n    3001pr0001, [Print]"+
		"\nParent parts:"+
		"\nColor variations: 2 unique colors:\n    Black, [300126 4211385]\n    Red, [300121]",
		part.String())

	color := Color{ID: 4, Name: "Red", RGB: "C91A09", NumParts: 10, NumSets: 2, YearFrom: &from, YearTo: &to}
	assert.Equal(t, "Color Name: Red\nId: 4\nRGB value: C91A09", color.Short())
	assert.Contains(t, color.String(), "Transparent: No")
	assert.Contains(t, color.String(), "Years active: 1949 - 2025")

	e := Element{ID: 300121, PartID: "3001", ColorID: 4, DesignID: &design}
	assert.Equal(t, "Element Id: 300121\nPart Id: 3001\nColor Id: 4\nDesign Id: 3001", e.String())
	e.DesignID = nil
	assert.Contains(t, e.Short(), "Design Id: -")
}
