// Package query is the read-facing layer over the store: symbol
// search, dependency/blast-radius lookups, and health-warning
// aggregation, per spec.md §4.6.
package query

import (
	"bufio"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"ctxengine/internal/graph"
	"ctxengine/internal/storage"
)

// Engine answers queries against one project's store.
type Engine struct {
	db   *storage.DB
	root string
}

// New wraps a store connection for querying. root is the project's
// canonical root, needed by SearchSymbols's file-content fallback.
func New(db *storage.DB, root string) *Engine {
	return &Engine{db: db, root: root}
}

// SearchResult is one ranked match: either a symbol (Name/Kind/Signature
// populated, Line zero) or, for the file-content fallback, a single
// matching line (Line > 0, Name holds the line's trimmed text).
type SearchResult struct {
	Name      string
	Kind      string
	Signature string
	Path      string
	Line      int
	MatchType string
}

// SearchSymbols ranks symbol matches for term via the store's FTS
// exact-then-prefix cascade. If that yields nothing, it falls back to a
// literal substring scan of tracked files' contents read fresh from
// disk, per spec.md §4.6, returning file/line matches instead of symbol
// rows.
func (e *Engine) SearchSymbols(term string, limit int) ([]SearchResult, error) {
	rows, err := e.db.SearchSymbols(term, limit)
	if err != nil {
		return nil, err
	}
	if len(rows) > 0 {
		out := make([]SearchResult, 0, len(rows))
		for _, r := range rows {
			out = append(out, SearchResult{
				Name:      r.Name,
				Kind:      r.Kind,
				Signature: r.Signature,
				Path:      r.Path,
				MatchType: r.MatchType,
			})
		}
		return out, nil
	}
	return e.searchFileContents(term, limit)
}

// searchFileContents scans every tracked file's content on disk for a
// literal (case-sensitive) substring match, in lexicographic path order,
// stopping once limit matches accumulate. Used only when the FTS cascade
// in SearchSymbols finds no symbol match.
func (e *Engine) searchFileContents(term string, limit int) ([]SearchResult, error) {
	if term == "" || limit <= 0 {
		return nil, nil
	}

	files, err := e.db.AllFiles()
	if err != nil {
		return nil, err
	}
	sort.Slice(files, func(i, j int) bool { return files[i].Path < files[j].Path })

	var out []SearchResult
	for _, f := range files {
		if len(out) >= limit {
			break
		}
		matches, err := grepFile(filepath.Join(e.root, f.Path), f.Path, term, limit-len(out))
		if err != nil {
			continue
		}
		out = append(out, matches...)
	}
	return out, nil
}

// grepFile scans one file line by line for a literal substring match,
// returning at most limit results.
func grepFile(fullPath, relPath, term string, limit int) ([]SearchResult, error) {
	f, err := os.Open(fullPath)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var out []SearchResult
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := scanner.Text()
		if strings.Contains(line, term) {
			out = append(out, SearchResult{
				Name:      strings.TrimSpace(line),
				Path:      relPath,
				Line:      lineNo,
				MatchType: "file",
			})
			if len(out) >= limit {
				break
			}
		}
	}
	return out, nil
}

// GrepSymbols runs the literal-substring path directly against tracked
// symbol names and signatures, bypassing the FTS ranking cascade
// SearchSymbols applies.
func (e *Engine) GrepSymbols(term string, limit int) ([]SearchResult, error) {
	rows, err := e.db.GrepSymbols(term, limit)
	if err != nil {
		return nil, err
	}
	out := make([]SearchResult, 0, len(rows))
	for _, r := range rows {
		out = append(out, SearchResult{
			Name:      r.Name,
			Kind:      r.Kind,
			Signature: r.Signature,
			Path:      r.Path,
			MatchType: r.MatchType,
		})
	}
	return out, nil
}

// DependentsResult bundles direct and transitive dependents for one
// file.
type DependentsResult struct {
	Direct     []graph.FileRef
	Transitive []graph.BlastNode
	MaxDepth   int
}

// DependentsOf returns files that import fileID, both directly and
// transitively (via the import graph).
func (e *Engine) DependentsOf(fileID int64) (*DependentsResult, error) {
	direct, err := e.db.DependentsOf(fileID)
	if err != nil {
		return nil, err
	}
	directRefs := toFileRefs(direct)

	transitive, maxDepth, err := graph.TransitiveDependents(fileID, e.dependentsFunc())
	if err != nil {
		return nil, err
	}

	return &DependentsResult{
		Direct:     directRefs,
		Transitive: transitive,
		MaxDepth:   maxDepth,
	}, nil
}

// BlastRadius computes the full blast-radius result for fileID: direct
// dependents, transitive closure, and a risk classification per
// spec.md §4.4.
func (e *Engine) BlastRadius(fileID int64, churnScore float64) (*graph.BlastRadius, error) {
	direct, err := e.db.DependentsOf(fileID)
	if err != nil {
		return nil, err
	}
	return graph.BlastRadiusOf(fileID, toFileRefs(direct), churnScore, e.dependentsFunc())
}

// ImportsOf returns the raw (resolved or not) dependency edges leaving
// fileID.
func (e *Engine) ImportsOf(fileID int64) ([]storage.Dependency, error) {
	return e.db.ImportsOf(fileID)
}

// Stats returns the project-wide summary counts.
func (e *Engine) Stats() (*storage.AggregateStats, error) {
	return e.db.AggregateStats()
}

// DirStat is one directory's aggregated file and symbol counts.
type DirStat struct {
	Path    string
	Files   int
	Symbols int
}

// DirectoryMap groups every tracked file by its containing directory,
// for a structural overview coarser than the per-file listing.
func (e *Engine) DirectoryMap() ([]DirStat, error) {
	files, err := e.db.AllFiles()
	if err != nil {
		return nil, err
	}
	symbolCounts, err := e.db.SymbolCounts()
	if err != nil {
		return nil, err
	}

	byDir := make(map[string]*DirStat)
	for _, f := range files {
		dir := filepath.Dir(f.Path)
		if dir == "." {
			dir = "(root)"
		}
		d, ok := byDir[dir]
		if !ok {
			d = &DirStat{Path: dir}
			byDir[dir] = d
		}
		d.Files++
		d.Symbols += symbolCounts[f.ID]
	}

	out := make([]DirStat, 0, len(byDir))
	for _, d := range byDir {
		out = append(out, *d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Path < out[j].Path })
	return out, nil
}

// Decisions returns every recorded decision, newest first.
func (e *Engine) Decisions() ([]storage.Decision, error) {
	return e.db.Decisions()
}

// Learn records a manual knowledge note, optionally anchored to a
// tracked file path.
func (e *Engine) Learn(body string, relatedFile *string) (*storage.Note, error) {
	return e.db.InsertNote(body, relatedFile)
}

// FileByPath looks up a tracked file's row by its project-relative
// path, used by commands that take a file argument (blast-radius).
func (e *Engine) FileByPath(path string) (*storage.File, error) {
	return e.db.FileByPath(path)
}

// fragileChurnThreshold and largeLineThreshold are spec.md §4.6's
// fixed health-warning thresholds.
const (
	fragileChurnThreshold = 5.0
	fragileDependentFloor = 3
	largeLineThreshold    = 500
)

// entryPointBasenames recognizes conventional entry-point filenames across
// languages, so they're excluded from the "dead code" category even
// with zero dependents: nothing imports an entry point by design.
var entryPointBasenames = map[string]bool{
	"mod.rs":      true,
	"lib.rs":      true,
	"__init__.py": true,
}

var entryPointStems = map[string]bool{
	"main":  true,
	"index": true,
}

func isEntryPoint(path string) bool {
	base := filepath.Base(path)
	if entryPointBasenames[base] {
		return true
	}
	stem := strings.TrimSuffix(base, filepath.Ext(base))
	return entryPointStems[stem]
}

// HealthWarnings computes the three spec.md §4.6 categories: fragile
// (high churn with meaningful blast radius), large, and dead.
func (e *Engine) HealthWarnings() (*storage.HealthWarnings, error) {
	raw, err := e.db.HealthWarnings(fragileChurnThreshold, largeLineThreshold)
	if err != nil {
		return nil, err
	}

	fragile := make([]storage.File, 0, len(raw.Fragile))
	for _, f := range raw.Fragile {
		dependents, err := e.db.DependentsOf(f.ID)
		if err != nil {
			return nil, err
		}
		if len(dependents) > fragileDependentFloor {
			fragile = append(fragile, f)
		}
	}

	dead := make([]storage.File, 0, len(raw.Dead))
	for _, f := range raw.Dead {
		if f.CommitCount != 0 {
			continue
		}
		if isEntryPoint(f.Path) {
			continue
		}
		dead = append(dead, f)
	}

	sort.SliceStable(fragile, func(i, j int) bool { return fragile[i].ChurnScore > fragile[j].ChurnScore })

	return &storage.HealthWarnings{
		Fragile: fragile,
		Large:   raw.Large,
		Dead:    dead,
	}, nil
}

func (e *Engine) dependentsFunc() graph.DependentsFunc {
	return func(fileID int64) ([]graph.FileRef, error) {
		files, err := e.db.DependentsOf(fileID)
		if err != nil {
			return nil, err
		}
		return toFileRefs(files), nil
	}
}

func toFileRefs(files []storage.File) []graph.FileRef {
	out := make([]graph.FileRef, 0, len(files))
	for _, f := range files {
		out = append(out, graph.FileRef{ID: f.ID, Path: f.Path})
	}
	return out
}
