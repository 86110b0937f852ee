package catalog

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
)

// catalogExtensions lists the accepted encodings of one CSV export, in lookup order.
var catalogExtensions = []string{".csv", ".csv.gz", ".csv.zst"}

type decompressedFile struct {
	io.Reader
	closers []func() error
}

func (f *decompressedFile) Close() error {
	var first error
	for _, c := range f.closers {
		if err := c(); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// openCatalogFile opens path and transparently decompresses gzip (.gz) and
// zstd (.zst) files.
func openCatalogFile(path string) (io.ReadCloser, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}

	switch {
	case strings.HasSuffix(path, ".gz"):
		gz, err := gzip.NewReader(f)
		if err != nil {
			f.Close()
			return nil, fmt.Errorf("gzip %s: %w", path, err)
		}
		return &decompressedFile{Reader: gz, closers: []func() error{gz.Close, f.Close}}, nil
	case strings.HasSuffix(path, ".zst"):
		dec, err := zstd.NewReader(f, zstd.WithDecoderConcurrency(1))
		if err != nil {
			f.Close()
			return nil, fmt.Errorf("zstd %s: %w", path, err)
		}
		return &decompressedFile{Reader: dec, closers: []func() error{
			func() error { dec.Close(); return nil },
			f.Close,
		}}, nil
	default:
		return f, nil
	}
}

// resolveCatalogFile finds base (without extension) in dir under any accepted encoding.
func resolveCatalogFile(dir, base string) (string, bool) {
	for _, ext := range catalogExtensions {
		path := filepath.Join(dir, base+ext)
		if st, err := os.Stat(path); err == nil && !st.IsDir() {
			return path, true
		}
	}
	return "", false
}

// catalogBase strips the directory and any accepted extension from path.
func catalogBase(path string) string {
	name := filepath.Base(path)
	for _, ext := range []string{".csv.gz", ".csv.zst", ".csv"} {
		if strings.HasSuffix(name, ext) {
			return strings.TrimSuffix(name, ext)
		}
	}
	return name
}
