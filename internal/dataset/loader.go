// Package dataset reads TempleOS dataset dumps from disk.
//
// Each version lives in its own directory holding Who.DD (the symbol table
// dump) and Paths.DD (the file listing). Both files are Latin-1 encoded.
package dataset

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"

	"github.com/bmatcuk/doublestar/v4"
	"golang.org/x/sync/errgroup"
	"golang.org/x/text/encoding/charmap"

	"github.com/rendello/TTD2-Bot/internal/index"
)

const (
	SymbolsFile = "Who.DD"
	PathsFile   = "Paths.DD"
)

// Discover returns the names of all version directories under dir that
// contain a symbol dump, sorted.
func Discover(dir string) ([]string, error) {
	matches, err := doublestar.Glob(os.DirFS(dir), "*/"+SymbolsFile)
	if err != nil {
		return nil, fmt.Errorf("glob %s: %w", dir, err)
	}
	versions := make([]string, 0, len(matches))
	for _, m := range matches {
		versions = append(versions, filepath.Dir(filepath.FromSlash(m)))
	}
	sort.Strings(versions)
	return versions, nil
}

// Load reads the raw datasets of the given versions concurrently.
// The result is in the order of versions.
func Load(ctx context.Context, dir string, versions []string) ([]index.RawDataset, error) {
	out := make([]index.RawDataset, len(versions))
	g, _ := errgroup.WithContext(ctx)
	for i, v := range versions {
		g.Go(func() error {
			ds, err := LoadVersion(dir, v)
			if err != nil {
				return err
			}
			out[i] = ds
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

// LoadVersion reads the dumps of a single version.
func LoadVersion(dir, version string) (index.RawDataset, error) {
	ds := index.RawDataset{Version: version}
	base := filepath.Join(dir, version)

	var err error
	if ds.SymbolLines, err = readLatin1Lines(filepath.Join(base, SymbolsFile)); err != nil {
		return ds, err
	}
	if ds.PathLines, err = readLatin1Lines(filepath.Join(base, PathsFile)); err != nil {
		return ds, err
	}
	return ds, nil
}

func readLatin1Lines(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open dataset: %w", err)
	}
	defer f.Close()

	lines, err := ReadLines(charmap.ISO8859_1.NewDecoder().Reader(f))
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return lines, nil
}

// ReadLines splits r into lines without their terminators.
func ReadLines(r io.Reader) ([]string, error) {
	var lines []string
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for sc.Scan() {
		lines = append(lines, sc.Text())
	}
	return lines, sc.Err()
}
