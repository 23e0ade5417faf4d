package index

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"slices"
	"strings"
	"sync"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	_ "modernc.org/sqlite"
)

// RawDataset is the unparsed source data of one dataset version.
type RawDataset struct {
	Version     string
	PathLines   []string
	SymbolLines []string
}

// Candidates holds the names the fuzzy matcher scores against.
type Candidates struct {
	Symbols   []string
	Basenames []string
	FullPaths []string
}

// VersionStats summarizes the tables of one version.
type VersionStats struct {
	Version string `json:"version"`
	Paths   int    `json:"paths"`
	Symbols int    `json:"symbols"`
}

// Handle is an immutable, fully built index over one or more dataset
// versions. All query methods are safe for concurrent use.
type Handle struct {
	db   *sql.DB
	pin  *sql.Conn // keeps the shared in-memory database alive
	name string

	versions       []string
	defaultVersion string
	candidates     map[string]Candidates

	refMu   sync.Mutex
	refs    int
	retired bool
	closed  bool
}

type parsedVersion struct {
	version string
	paths   []PathEntry
	symbols []SymbolEntry
}

// Build parses every dataset and loads it into a fresh in-memory index.
// Any malformed record aborts the build; no partially built handle is
// ever returned.
func Build(ctx context.Context, datasets []RawDataset, defaultVersion string) (*Handle, error) {
	if len(datasets) == 0 {
		return nil, ErrNoVersions
	}

	versions := make([]string, 0, len(datasets))
	for _, ds := range datasets {
		if ds.Version == "" {
			return nil, fmt.Errorf("dataset with empty version name")
		}
		if slices.ContainsFunc(versions, func(v string) bool { return strings.EqualFold(v, ds.Version) }) {
			return nil, fmt.Errorf("duplicate dataset version %q", ds.Version)
		}
		versions = append(versions, ds.Version)
	}
	if !slices.Contains(versions, defaultVersion) {
		return nil, fmt.Errorf("default version %q: %w", defaultVersion, ErrUnknownVersion)
	}

	parsed := make([]parsedVersion, len(datasets))
	g, gctx := errgroup.WithContext(ctx)
	for i, ds := range datasets {
		g.Go(func() error {
			pv, err := parseDataset(gctx, ds)
			if err != nil {
				return err
			}
			parsed[i] = pv
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	h, err := open(ctx)
	if err != nil {
		return nil, err
	}
	h.versions = versions
	h.defaultVersion = defaultVersion

	if err := h.load(ctx, parsed); err != nil {
		h.close()
		return nil, err
	}

	for _, pv := range parsed {
		slog.Info("index version loaded", "version", pv.version, "paths", len(pv.paths), "symbols", len(pv.symbols))
	}
	return h, nil
}

func parseDataset(ctx context.Context, ds RawDataset) (parsedVersion, error) {
	pv := parsedVersion{version: ds.Version}

	rawPaths := make([]string, 0, len(ds.PathLines))
	for i, line := range ds.PathLines {
		if strings.TrimSpace(line) == "" {
			continue
		}
		p, err := ParsePathLine(line)
		if err != nil {
			return pv, &ParseError{Version: ds.Version, Kind: "paths", Line: i + 1, Text: line, Err: err}
		}
		rawPaths = append(rawPaths, p)
	}
	if err := ctx.Err(); err != nil {
		return pv, err
	}
	pv.paths = ExpandPaths(ds.Version, rawPaths)

	pv.symbols = make([]SymbolEntry, 0, len(ds.SymbolLines))
	for i, line := range ds.SymbolLines {
		if strings.TrimSpace(line) == "" {
			continue
		}
		sym, err := ParseSymbolLine(line)
		if err != nil {
			return pv, &ParseError{Version: ds.Version, Kind: "symbols", Line: i + 1, Text: line, Err: err}
		}
		sym.Version = ds.Version
		pv.symbols = append(pv.symbols, sym)
	}
	return pv, ctx.Err()
}

func open(ctx context.Context) (*Handle, error) {
	name := "ttd2-" + uuid.NewString()
	db, err := sql.Open("sqlite", "file:"+name+"?mode=memory&cache=shared")
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	db.SetConnMaxLifetime(0)
	db.SetConnMaxIdleTime(0)

	pin, err := db.Conn(ctx)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("pin sqlite conn: %w", err)
	}

	h := &Handle{db: db, pin: pin, name: name, candidates: make(map[string]Candidates)}
	if err := h.migrate(ctx); err != nil {
		h.close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return h, nil
}

func (h *Handle) migrate(ctx context.Context) error {
	stmts := []string{
		`CREATE TABLE paths (
			version       TEXT NOT NULL,
			full_path     TEXT NOT NULL COLLATE NOCASE,
			basename      TEXT NOT NULL COLLATE NOCASE,
			type          TEXT NOT NULL,
			is_compressed INTEGER NOT NULL
		)`,
		`CREATE INDEX idx_paths_full_path ON paths(full_path COLLATE NOCASE, version)`,
		`CREATE INDEX idx_paths_basename ON paths(basename COLLATE NOCASE, version)`,
		`CREATE TABLE symbols (
			version TEXT NOT NULL,
			name    TEXT NOT NULL COLLATE NOCASE,
			file    TEXT,
			line    INTEGER,
			type    TEXT NOT NULL
		)`,
		`CREATE INDEX idx_symbols_name ON symbols(name COLLATE NOCASE, version)`,
	}

	for _, stmt := range stmts {
		if _, err := h.pin.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("exec %q: %w", stmt[:min(len(stmt), 60)], err)
		}
	}
	return nil
}

func (h *Handle) load(ctx context.Context, parsed []parsedVersion) error {
	tx, err := h.pin.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	insPath, err := tx.PrepareContext(ctx, `INSERT INTO paths (version, full_path, basename, type, is_compressed) VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare paths: %w", err)
	}
	defer insPath.Close()

	insSym, err := tx.PrepareContext(ctx, `INSERT INTO symbols (version, name, file, line, type) VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare symbols: %w", err)
	}
	defer insSym.Close()

	for _, pv := range parsed {
		var cand Candidates
		for _, p := range pv.paths {
			if _, err := insPath.ExecContext(ctx, pv.version, p.FullPath, p.Basename, p.Type, p.IsCompressed); err != nil {
				return fmt.Errorf("insert path %q: %w", p.FullPath, err)
			}
			cand.FullPaths = append(cand.FullPaths, p.FullPath)
			cand.Basenames = append(cand.Basenames, p.Basename)
		}
		for _, s := range pv.symbols {
			var file sql.NullString
			var line sql.NullInt64
			if s.Location != nil {
				file = sql.NullString{String: s.Location.File, Valid: true}
				line = sql.NullInt64{Int64: int64(s.Location.Line), Valid: true}
			}
			if _, err := insSym.ExecContext(ctx, pv.version, s.Name, file, line, s.Type); err != nil {
				return fmt.Errorf("insert symbol %q: %w", s.Name, err)
			}
			cand.Symbols = append(cand.Symbols, s.Name)
		}
		h.candidates[pv.version] = cand
	}

	return tx.Commit()
}

// Versions returns the version names in dataset order.
func (h *Handle) Versions() []string {
	return slices.Clone(h.versions)
}

// DefaultVersion returns the version used for unqualified lookups.
func (h *Handle) DefaultVersion() string {
	return h.defaultVersion
}

// ResolveVersion maps a user-supplied qualifier to its canonical version
// name, ignoring case.
func (h *Handle) ResolveVersion(name string) (string, bool) {
	for _, v := range h.versions {
		if strings.EqualFold(v, name) {
			return v, true
		}
	}
	return "", false
}

// Candidates returns the fuzzy-matching candidate names of a version.
// The returned slices are shared and must not be modified.
func (h *Handle) Candidates(version string) Candidates {
	return h.candidates[version]
}

// Query selects rows whose key equals Exact (case-insensitively) or matches
// any of the LIKE Patterns, which use '\' as escape character.
type Query struct {
	Version  string
	Exact    string
	Patterns []string
	Limit    int // <= 0 means unlimited
}

// FindPathsByFullPath matches q against full paths.
func (h *Handle) FindPathsByFullPath(ctx context.Context, q Query) ([]PathEntry, error) {
	return h.findPaths(ctx, "full_path", q)
}

// FindPathsByBasename matches q against the last path segment.
func (h *Handle) FindPathsByBasename(ctx context.Context, q Query) ([]PathEntry, error) {
	return h.findPaths(ctx, "basename", q)
}

func (h *Handle) findPaths(ctx context.Context, column string, q Query) ([]PathEntry, error) {
	where, args := q.clause(column)
	rows, err := h.db.QueryContext(ctx,
		`SELECT full_path, basename, type, is_compressed, version FROM paths WHERE `+where, args...)
	if err != nil {
		return nil, fmt.Errorf("query paths: %w", err)
	}
	defer rows.Close()

	var out []PathEntry
	for rows.Next() {
		var p PathEntry
		if err := rows.Scan(&p.FullPath, &p.Basename, &p.Type, &p.IsCompressed, &p.Version); err != nil {
			return nil, fmt.Errorf("scan path: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// FindSymbols matches q against symbol names. Duplicate names are all
// returned, in dataset order.
func (h *Handle) FindSymbols(ctx context.Context, q Query) ([]SymbolEntry, error) {
	where, args := q.clause("name")
	rows, err := h.db.QueryContext(ctx,
		`SELECT name, file, line, type, version FROM symbols WHERE `+where, args...)
	if err != nil {
		return nil, fmt.Errorf("query symbols: %w", err)
	}
	defer rows.Close()

	var out []SymbolEntry
	for rows.Next() {
		var s SymbolEntry
		var file sql.NullString
		var line sql.NullInt64
		if err := rows.Scan(&s.Name, &file, &line, &s.Type, &s.Version); err != nil {
			return nil, fmt.Errorf("scan symbol: %w", err)
		}
		if file.Valid {
			s.Location = &Location{File: file.String, Line: int(line.Int64)}
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

func (q Query) clause(column string) (string, []any) {
	var b strings.Builder
	args := []any{q.Version, q.Exact}
	b.WriteString("version = ? AND (" + column + " = ?")
	for _, p := range q.Patterns {
		b.WriteString(" OR " + column + ` LIKE ? ESCAPE '\'`)
		args = append(args, p)
	}
	b.WriteString(") ORDER BY rowid")
	if q.Limit > 0 {
		b.WriteString(" LIMIT ?")
		args = append(args, q.Limit)
	}
	return b.String(), args
}

// Random returns a random symbol name, basename or full path of version.
func (h *Handle) Random(ctx context.Context, version string) (string, error) {
	if _, ok := h.candidates[version]; !ok {
		return "", fmt.Errorf("%q: %w", version, ErrUnknownVersion)
	}
	queries := []string{
		`SELECT name FROM symbols WHERE version = ? ORDER BY RANDOM() LIMIT 1`,
		`SELECT basename FROM paths WHERE version = ? ORDER BY RANDOM() LIMIT 1`,
		`SELECT full_path FROM paths WHERE version = ? ORDER BY RANDOM() LIMIT 1`,
	}
	var out string
	err := h.db.QueryRowContext(ctx, queries[rand.IntN(len(queries))], version).Scan(&out)
	if errors.Is(err, sql.ErrNoRows) {
		// Versions always hold at least the root path.
		return "/", nil
	}
	return out, err
}

// Stats returns the table sizes of every version, in dataset order.
func (h *Handle) Stats(ctx context.Context) ([]VersionStats, error) {
	out := make([]VersionStats, 0, len(h.versions))
	for _, v := range h.versions {
		st := VersionStats{Version: v}
		if err := h.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM paths WHERE version = ?`, v).Scan(&st.Paths); err != nil {
			return nil, fmt.Errorf("count paths: %w", err)
		}
		if err := h.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM symbols WHERE version = ?`, v).Scan(&st.Symbols); err != nil {
			return nil, fmt.Errorf("count symbols: %w", err)
		}
		out = append(out, st)
	}
	return out, nil
}

// DuplicateSymbols lists symbol names that occur more than once in version,
// compared case-insensitively.
func (h *Handle) DuplicateSymbols(ctx context.Context, version string) (map[string]int, error) {
	rows, err := h.db.QueryContext(ctx,
		`SELECT MIN(name), COUNT(*) FROM symbols WHERE version = ? GROUP BY name HAVING COUNT(*) > 1 ORDER BY MIN(name)`, version)
	if err != nil {
		return nil, fmt.Errorf("query duplicates: %w", err)
	}
	defer rows.Close()

	out := make(map[string]int)
	for rows.Next() {
		var name string
		var n int
		if err := rows.Scan(&name, &n); err != nil {
			return nil, err
		}
		out[name] = n
	}
	return out, rows.Err()
}

// Close releases the index. Handles obtained from a Holder are closed by
// the holder once retired and no longer in use.
func (h *Handle) Close() error {
	h.refMu.Lock()
	defer h.refMu.Unlock()
	return h.close()
}

func (h *Handle) close() error {
	if h.closed {
		return nil
	}
	h.closed = true
	if h.pin != nil {
		h.pin.Close()
	}
	return h.db.Close()
}
