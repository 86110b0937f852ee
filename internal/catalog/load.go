package catalog

import (
	"encoding/csv"
	"encoding/hex"
	"errors"
	"fmt"
	"hash"
	"io"
	"strconv"
	"strings"

	"brickcat/internal/logger"
	"brickcat/internal/types"

	"github.com/zeebo/blake3"
)

// Base names of the Rebrickable CSV exports.
const (
	PartsFile         = "parts"
	ColorsFile        = "colors"
	ElementsFile      = "elements"
	RelationshipsFile = "part_relationships"
	CategoriesFile    = "part_categories"
)

// Files names the CSV exports a catalog is loaded from. Relationships and
// Categories are optional.
type Files struct {
	Parts         string
	Colors        string
	Elements      string
	Relationships string
	Categories    string
}

// FilesIn locates the catalog exports in dir. Each may be plain, gzip or zstd compressed.
func FilesIn(dir string) (Files, error) {
	var files Files
	required := []struct {
		base string
		dst  *string
	}{
		{PartsFile, &files.Parts},
		{ColorsFile, &files.Colors},
		{ElementsFile, &files.Elements},
	}
	for _, r := range required {
		path, ok := resolveCatalogFile(dir, r.base)
		if !ok {
			return Files{}, fmt.Errorf("%w: %s.csv in %s", ErrMissingFile, r.base, dir)
		}
		*r.dst = path
	}
	files.Relationships, _ = resolveCatalogFile(dir, RelationshipsFile)
	files.Categories, _ = resolveCatalogFile(dir, CategoriesFile)
	return files, nil
}

// LoadDir loads the catalog exports found in dir.
func LoadDir(dir string) (*Store, error) {
	files, err := FilesIn(dir)
	if err != nil {
		return nil, err
	}
	return Load(files)
}

// Load reads every file in files and builds a Store.
func Load(files Files) (*Store, error) {
	b := NewBuilder()
	h := blake3.New()

	steps := []struct {
		path     string
		optional bool
		load     func(*csvTable) error
	}{
		{files.Categories, true, b.loadCategories},
		{files.Parts, false, b.loadParts},
		{files.Colors, false, b.loadColors},
		{files.Elements, false, b.loadElements},
		{files.Relationships, true, b.loadRelationships},
	}
	for _, step := range steps {
		if step.path == "" {
			if step.optional {
				continue
			}
			return nil, fmt.Errorf("%w: required catalog file not set", ErrMissingFile)
		}
		if err := readTable(step.path, h, step.load); err != nil {
			return nil, err
		}
	}

	store := b.Build()
	store.fingerprint = hex.EncodeToString(h.Sum(nil))
	stats := store.Stats()
	logger.Info("catalog: loaded %d parts, %d colors, %d elements (fingerprint %.16s)",
		stats.Parts, stats.Colors, stats.Elements, store.fingerprint)
	return store, nil
}

// csvTable is a CSV file addressed by header name.
type csvTable struct {
	path    string
	r       *csv.Reader
	columns map[string]int
	line    int
}

func readTable(path string, h hash.Hash, load func(*csvTable) error) error {
	rc, err := openCatalogFile(path)
	if err != nil {
		return fmt.Errorf("catalog: open %s: %w", path, err)
	}
	defer rc.Close()

	// The fingerprint covers the decompressed bytes, so the same export hashes
	// identically whether it ships as .csv, .csv.gz or .csv.zst.
	io.WriteString(h, "\x00"+catalogBase(path)+"\x00")
	r := csv.NewReader(io.TeeReader(rc, h))
	r.ReuseRecord = true

	header, err := r.Read()
	if err != nil {
		return fmt.Errorf("catalog: %s: read header: %w", path, err)
	}
	t := &csvTable{path: path, r: r, columns: make(map[string]int, len(header)), line: 1}
	for i, name := range header {
		t.columns[strings.TrimSpace(strings.TrimPrefix(name, "\ufeff"))] = i
	}
	return load(t)
}

// require returns the indexes of the named columns.
func (t *csvTable) require(names ...string) ([]int, error) {
	idx := make([]int, len(names))
	for i, name := range names {
		col, ok := t.columns[name]
		if !ok {
			return nil, fmt.Errorf("%w: %s in %s", ErrMissingColumn, name, t.path)
		}
		idx[i] = col
	}
	return idx, nil
}

// rows calls fn for each data row.
func (t *csvTable) rows(fn func(row []string) error) error {
	for {
		row, err := t.r.Read()
		if errors.Is(err, io.EOF) {
			return nil
		}
		t.line++
		if err != nil {
			return fmt.Errorf("catalog: %s:%d: %w", t.path, t.line, err)
		}
		if err := fn(row); err != nil {
			return fmt.Errorf("catalog: %s:%d: %w", t.path, t.line, err)
		}
	}
}

func (b *Builder) loadCategories(t *csvTable) error {
	col, err := t.require("id", "name")
	if err != nil {
		return err
	}
	return t.rows(func(row []string) error {
		id, err := strconv.ParseUint(row[col[0]], 10, 64)
		if err != nil {
			return fmt.Errorf("category id: %w", err)
		}
		return b.AddCategory(types.CategoryID(id), types.CategoryName(row[col[1]]))
	})
}

func (b *Builder) loadParts(t *csvTable) error {
	col, err := t.require("part_num", "name", "part_cat_id", "part_material")
	if err != nil {
		return err
	}
	return t.rows(func(row []string) error {
		cat, err := strconv.ParseUint(row[col[2]], 10, 64)
		if err != nil {
			return fmt.Errorf("part_cat_id: %w", err)
		}
		return b.AddPart(types.PartID(row[col[0]]), types.PartName(row[col[1]]), types.CategoryID(cat), row[col[3]])
	})
}

func (b *Builder) loadColors(t *csvTable) error {
	col, err := t.require("id", "name", "rgb", "is_trans")
	if err != nil {
		return err
	}
	optional := func(name string) int {
		if i, ok := t.columns[name]; ok {
			return i
		}
		return -1
	}
	numParts, numSets := optional("num_parts"), optional("num_sets")
	y1, y2 := optional("y1"), optional("y2")

	return t.rows(func(row []string) error {
		id, err := types.ParseColorID(row[col[0]])
		if err != nil {
			return err
		}
		trans, err := strconv.ParseBool(strings.ToLower(row[col[3]]))
		if err != nil {
			return fmt.Errorf("is_trans: %w", err)
		}
		c := types.Color{ID: id, Name: types.ColorName(row[col[1]]), RGB: row[col[2]], Transparent: trans}
		if c.NumParts, err = uintCell(row, numParts); err != nil {
			return fmt.Errorf("num_parts: %w", err)
		}
		if c.NumSets, err = uintCell(row, numSets); err != nil {
			return fmt.Errorf("num_sets: %w", err)
		}
		if c.YearFrom, err = yearCell(row, y1); err != nil {
			return fmt.Errorf("y1: %w", err)
		}
		if c.YearTo, err = yearCell(row, y2); err != nil {
			return fmt.Errorf("y2: %w", err)
		}
		return b.AddColor(c)
	})
}

func (b *Builder) loadElements(t *csvTable) error {
	col, err := t.require("element_id", "part_num", "color_id")
	if err != nil {
		return err
	}
	design := -1
	if i, ok := t.columns["design_id"]; ok {
		design = i
	}
	return t.rows(func(row []string) error {
		id, err := types.ParseElementID(row[col[0]])
		if err != nil {
			return err
		}
		color, err := types.ParseColorID(row[col[2]])
		if err != nil {
			return err
		}
		e := types.Element{ID: id, PartID: types.PartID(row[col[1]]), ColorID: color}
		if design >= 0 && row[design] != "" {
			v, err := strconv.ParseUint(row[design], 10, 64)
			if err != nil {
				return fmt.Errorf("design_id: %w", err)
			}
			e.DesignID = &v
		}
		return b.AddElement(e)
	})
}

func (b *Builder) loadRelationships(t *csvTable) error {
	col, err := t.require("rel_type", "child_part_num", "parent_part_num")
	if err != nil {
		return err
	}
	return t.rows(func(row []string) error {
		rel, err := types.ParseRelationshipType(row[col[0]])
		if err != nil {
			return err
		}
		b.AddRelationship(rel, types.PartID(row[col[1]]), types.PartID(row[col[2]]))
		return nil
	})
}

func uintCell(row []string, i int) (uint64, error) {
	if i < 0 || row[i] == "" {
		return 0, nil
	}
	return strconv.ParseUint(row[i], 10, 64)
}

func yearCell(row []string, i int) (*uint32, error) {
	if i < 0 || row[i] == "" {
		return nil, nil
	}
	v, err := strconv.ParseUint(row[i], 10, 32)
	if err != nil {
		return nil, err
	}
	year := uint32(v)
	return &year, nil
}
