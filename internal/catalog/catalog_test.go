package catalog

import (
	"io"
	"os"
	"path/filepath"
	"slices"
	"testing"

	"brickcat/internal/types"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testdata = "testdata"

func loadTestdata(t *testing.T) *Store {
	t.Helper()
	store, err := LoadDir(testdata)
	require.NoError(t, err)
	return store
}

func TestLoadDir(t *testing.T) {
	t.Parallel()

	store := loadTestdata(t)
	assert.Equal(t, Stats{Parts: 4, Colors: 4, Elements: 11}, store.Stats())
	assert.Len(t, store.Fingerprint(), 64)
}

func TestStoreParts(t *testing.T) {
	t.Parallel()

	store := loadTestdata(t)

	part, ok := store.PartFromID("4070")
	require.True(t, ok)
	assert.Equal(t, types.PartName("Brick Special 1 x 1 with Headlight"), part.Name)
	assert.Equal(t, types.CategoryID(5), part.CategoryID)
	assert.Equal(t, types.CategoryName("Bricks Special"), part.CategoryName)
	assert.Equal(t, "Plastic", part.Material)
	assert.Equal(t, map[types.ColorName][]types.ElementID{
		"Blue":        {407023, 407028},
		"Red":         {407021},
		"Trans-Clear": {407040},
		"[Unknown]":   {407001},
	}, part.Colors)
	assert.Equal(t, []types.RelationshipType{types.RelPrint, types.RelPattern}, part.ChildRels["4070pr0001"])
	assert.Empty(t, part.ParentRels)

	printed, ok := store.PartFromID("4070pr0001")
	require.True(t, ok)
	assert.Equal(t, "Brick Special 1 x 1 with Headlight, Eyes Print", string(printed.Name))
	assert.Equal(t, []types.RelationshipType{types.RelPrint, types.RelPattern}, printed.ParentRels["4070"])
	assert.Empty(t, printed.Colors)

	byName, ok := store.PartFromName("Plate 2 x 3")
	require.True(t, ok)
	assert.Equal(t, types.PartID("3021"), byName.ID)
	assert.Equal(t, []types.RelationshipType{types.RelPair}, byName.ChildRels["3794b"])

	_, ok = store.PartFromID("does-not-exist")
	assert.False(t, ok)
	_, ok = store.PartFromName("Plate 2 x 2")
	assert.False(t, ok)
}

func TestStoreColors(t *testing.T) {
	t.Parallel()

	store := loadTestdata(t)

	unknown, ok := store.ColorFromID(-1)
	require.True(t, ok)
	assert.Equal(t, types.ColorName("[Unknown]"), unknown.Name)
	assert.Equal(t, "0033B2", unknown.RGB)
	assert.False(t, unknown.Transparent)
	assert.Equal(t, uint64(20), unknown.NumParts)
	assert.Equal(t, uint64(5), unknown.NumSets)
	require.NotNil(t, unknown.YearFrom)
	require.NotNil(t, unknown.YearTo)
	assert.Equal(t, uint32(2000), *unknown.YearFrom)
	assert.Equal(t, uint32(2012), *unknown.YearTo)

	transClear, ok := store.ColorFromName("Trans-Clear")
	require.True(t, ok)
	assert.Equal(t, types.ColorID(47), transClear.ID)
	assert.True(t, transClear.Transparent)
	assert.Nil(t, transClear.YearFrom)
	assert.Nil(t, transClear.YearTo)

	_, ok = store.ColorFromName("Chartreuse")
	assert.False(t, ok)
}

func TestStoreElements(t *testing.T) {
	t.Parallel()

	store := loadTestdata(t)

	e, ok := store.ElementFromID(302123)
	require.True(t, ok)
	assert.Equal(t, types.PartID("3021"), e.PartID)
	assert.Equal(t, types.ColorID(1), e.ColorID)
	require.NotNil(t, e.DesignID)
	assert.Equal(t, uint64(3021), *e.DesignID)

	e, ok = store.ElementFromID(302126)
	require.True(t, ok)
	assert.Equal(t, types.ColorID(-1), e.ColorID)
	assert.Nil(t, e.DesignID)

	_, ok = store.ElementFromID(1)
	assert.False(t, ok)
}

func TestStoreEnumeration(t *testing.T) {
	t.Parallel()

	store := loadTestdata(t)

	assert.ElementsMatch(t, []types.PartID{"3021", "3794b", "4070", "4070pr0001"}, slices.Collect(store.PartIDs()))
	assert.ElementsMatch(t, []types.ColorID{-1, 1, 4, 47}, slices.Collect(store.ColorIDs()))
	assert.ElementsMatch(t, []types.ColorName{"[Unknown]", "Blue", "Red", "Trans-Clear"}, slices.Collect(store.ColorNames()))
	assert.Len(t, slices.Collect(store.PartNames()), 4)
	assert.Len(t, slices.Collect(store.ElementIDs()), 11)
}

func writeCompressed(t *testing.T, src, dst string, wrap func(io.Writer) (io.WriteCloser, error)) {
	t.Helper()
	data, err := os.ReadFile(src)
	require.NoError(t, err)
	f, err := os.Create(dst)
	require.NoError(t, err)
	defer f.Close()
	w, err := wrap(f)
	require.NoError(t, err)
	_, err = w.Write(data)
	require.NoError(t, err)
	require.NoError(t, w.Close())
}

func TestLoadCompressedExports(t *testing.T) {
	t.Parallel()

	plain := loadTestdata(t)

	encodings := map[string]func(io.Writer) (io.WriteCloser, error){
		".csv.gz": func(w io.Writer) (io.WriteCloser, error) { return gzip.NewWriter(w), nil },
		".csv.zst": func(w io.Writer) (io.WriteCloser, error) {
			return zstd.NewWriter(w)
		},
	}
	for ext, wrap := range encodings {
		t.Run(ext, func(t *testing.T) {
			t.Parallel()

			dir := t.TempDir()
			for _, base := range []string{PartsFile, ColorsFile, ElementsFile, RelationshipsFile, CategoriesFile} {
				writeCompressed(t, filepath.Join(testdata, base+".csv"), filepath.Join(dir, base+ext), wrap)
			}

			files, err := FilesIn(dir)
			require.NoError(t, err)
			assert.Equal(t, filepath.Join(dir, PartsFile+ext), files.Parts)

			store, err := Load(files)
			require.NoError(t, err)
			assert.Equal(t, plain.Stats(), store.Stats())
			assert.Equal(t, plain.Fingerprint(), store.Fingerprint())

			part, ok := store.PartFromID("4070")
			require.True(t, ok)
			want, _ := plain.PartFromID("4070")
			assert.Equal(t, want, part)
		})
	}
}

func TestLoadErrors(t *testing.T) {
	t.Parallel()

	copyTestdata := func(t *testing.T, skip string) string {
		t.Helper()
		dir := t.TempDir()
		for _, base := range []string{PartsFile, ColorsFile, ElementsFile} {
			if base == skip {
				continue
			}
			data, err := os.ReadFile(filepath.Join(testdata, base+".csv"))
			require.NoError(t, err)
			require.NoError(t, os.WriteFile(filepath.Join(dir, base+".csv"), data, 0o644))
		}
		return dir
	}

	t.Run("missing required file", func(t *testing.T) {
		t.Parallel()
		_, err := LoadDir(copyTestdata(t, ElementsFile))
		assert.ErrorIs(t, err, ErrMissingFile)
	})

	t.Run("optional files absent", func(t *testing.T) {
		t.Parallel()
		store, err := LoadDir(copyTestdata(t, ""))
		require.NoError(t, err)
		part, ok := store.PartFromID("4070")
		require.True(t, ok)
		assert.Empty(t, part.CategoryName)
		assert.Empty(t, part.ChildRels)
	})

	t.Run("missing column", func(t *testing.T) {
		t.Parallel()
		dir := copyTestdata(t, "")
		require.NoError(t, os.WriteFile(filepath.Join(dir, "colors.csv"), []byte("id,name\n1,Blue\n"), 0o644))
		_, err := LoadDir(dir)
		assert.ErrorIs(t, err, ErrMissingColumn)
	})

	t.Run("duplicate part", func(t *testing.T) {
		t.Parallel()
		dir := copyTestdata(t, "")
		parts := "part_num,name,part_cat_id,part_material\n3001,Brick 2 x 4,11,Plastic\n3001,Brick 2 x 4 again,11,Plastic\n"
		require.NoError(t, os.WriteFile(filepath.Join(dir, "parts.csv"), []byte(parts), 0o644))
		_, err := LoadDir(dir)
		assert.ErrorIs(t, err, ErrDuplicateKey)
	})

	t.Run("bad number", func(t *testing.T) {
		t.Parallel()
		dir := copyTestdata(t, "")
		elements := "element_id,part_num,color_id,design_id\nabc,3021,1,\n"
		require.NoError(t, os.WriteFile(filepath.Join(dir, "elements.csv"), []byte(elements), 0o644))
		_, err := LoadDir(dir)
		assert.ErrorContains(t, err, "elements.csv:2")
	})
}

func TestBuilderSkipsOrphans(t *testing.T) {
	t.Parallel()

	b := NewBuilder()
	require.NoError(t, b.AddPart("3001", "Brick 2 x 4", 11, "Plastic"))
	require.NoError(t, b.AddColor(types.Color{ID: 0, Name: "Black"}))
	require.NoError(t, b.AddElement(types.Element{ID: 300126, PartID: "3001", ColorID: 0}))
	require.NoError(t, b.AddElement(types.Element{ID: 1, PartID: "missing", ColorID: 0}))
	require.NoError(t, b.AddElement(types.Element{ID: 2, PartID: "3001", ColorID: 99}))
	assert.ErrorIs(t, b.AddColor(types.Color{ID: 0, Name: "Black again"}), ErrDuplicateKey)

	store := b.Build()
	part, ok := store.PartFromID("3001")
	require.True(t, ok)
	assert.Equal(t, map[types.ColorName][]types.ElementID{"Black": {300126}}, part.Colors)

	_, ok = store.ElementFromID(1)
	assert.True(t, ok, "orphaned elements stay addressable")
	assert.Empty(t, store.Fingerprint())
}
