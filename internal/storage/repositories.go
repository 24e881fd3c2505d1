package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"
)

// File is one row of the files table: a tracked file and its derived
// git/content state.
type File struct {
	ID                 int64
	Path               string
	Language           string
	SizeBytes          int64
	Hash               string
	LineCount          int
	CommitCount        int
	ChurnScore         float64
	LastSeenGeneration int64
	LastAnalyzed       time.Time
}

// Symbol is one row of the symbols table.
type Symbol struct {
	ID             int64
	FileID         int64
	Name           string
	Kind           string
	StartLine      int
	EndLine        int
	Signature      string
	ParentSymbolID *int64
}

// Dependency is one row of the dependencies table: a raw import from a
// file, resolved or not.
type Dependency struct {
	ID            int64
	FromFileID    int64
	ToPath        string
	ToFileID      *int64
	Kind          string
	ImportedNames []string
}

// Resolved reports whether this dependency has been bound to a file.
func (d Dependency) Resolved() bool {
	return d.ToFileID != nil
}

// Decision is one row of the decisions table.
type Decision struct {
	ID        int64
	Timestamp time.Time
	Source    string // "commit" | "manual"
	Reference *string
	Kind      string // "feat" | "fix" | "refactor" | "breaking" | "note"
	Subject   string
	Body      *string
}

// Note is one row of the notes table: a manually captured knowledge
// note, optionally anchored to a file.
type Note struct {
	ID          int64
	Timestamp   time.Time
	Body        string
	RelatedFile *string
}

// GitStat is the per-file commit count and churn score computed by the
// git analyzer for one BulkUpdateGitStats call.
type GitStat struct {
	CommitCount int
	ChurnScore  float64
}

// AggregateStats summarizes a project's indexed state.
type AggregateStats struct {
	Files           int
	Lines           int
	Symbols         int
	Dependencies    int
	UnresolvedEdges int
	Decisions       int
	Notes           int
	ByLanguage      map[string]int
}

// HealthWarnings categorizes files needing attention.
type HealthWarnings struct {
	Fragile []File // high churn_score
	Large   []File // line_count above threshold
	Dead    []File // no incoming resolved dependency
}

// fileRef is the minimal projection of a files row used by import
// resolution.
type fileRef struct {
	id   int64
	path string
}

// UpsertFile inserts or updates a file row, keyed by path. Returns the
// row id.
func (db *DB) UpsertFile(f *File) (int64, error) {
	_, err := db.Exec(`
		INSERT INTO files (path, language, size_bytes, hash, line_count, last_seen_generation, last_analyzed)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(path) DO UPDATE SET
			language = excluded.language,
			size_bytes = excluded.size_bytes,
			hash = excluded.hash,
			line_count = excluded.line_count,
			last_seen_generation = excluded.last_seen_generation,
			last_analyzed = excluded.last_analyzed
	`, f.Path, f.Language, f.SizeBytes, f.Hash, f.LineCount, f.LastSeenGeneration, f.LastAnalyzed.UTC().Format(time.RFC3339))
	if err != nil {
		return 0, fmt.Errorf("upsert file %s: %w", f.Path, err)
	}

	var id int64
	if err := db.QueryRow("SELECT id FROM files WHERE path = ?", f.Path).Scan(&id); err != nil {
		return 0, fmt.Errorf("lookup file id for %s: %w", f.Path, err)
	}
	return id, nil
}

// FileByPath looks up a tracked file by its relative path. Returns nil
// (no error) if not found.
func (db *DB) FileByPath(path string) (*File, error) {
	row := db.QueryRow(`
		SELECT id, path, language, size_bytes, hash, line_count, commit_count,
		       churn_score, last_seen_generation, last_analyzed
		FROM files WHERE path = ?
	`, path)

	var f File
	var lastAnalyzed string
	err := row.Scan(&f.ID, &f.Path, &f.Language, &f.SizeBytes, &f.Hash, &f.LineCount,
		&f.CommitCount, &f.ChurnScore, &f.LastSeenGeneration, &lastAnalyzed)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if t, err := time.Parse(time.RFC3339, lastAnalyzed); err == nil {
		f.LastAnalyzed = t
	}
	return &f, nil
}

// AllFiles returns every tracked file, used by reconciliation to find
// stale rows not visited by the current scan.
func (db *DB) AllFiles() ([]File, error) {
	rows, err := db.Query(`
		SELECT id, path, language, size_bytes, hash, line_count, commit_count,
		       churn_score, last_seen_generation, last_analyzed
		FROM files
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanFiles(rows)
}

// DeleteFile removes a file row together with its symbols' FTS shadow
// content rows. Foreign keys cascade its symbols and outgoing
// dependencies, and set incoming edges' to_file_id to NULL (unresolved,
// retried on the next resolution pass) rather than leaving them
// dangling.
func (db *DB) DeleteFile(fileID int64) error {
	err := db.WithTx(func(tx *sql.Tx) error {
		if _, err := tx.Exec("DELETE FROM symbols_fts_content WHERE rowid IN (SELECT id FROM symbols WHERE file_id = ?)", fileID); err != nil {
			return err
		}
		_, err := tx.Exec("DELETE FROM files WHERE id = ?", fileID)
		return err
	})
	if err != nil {
		return fmt.Errorf("delete file: %w", err)
	}
	return nil
}

// ReplaceSymbolsForFile atomically replaces every symbol belonging to
// fileID, and keeps the FTS shadow content table in lockstep so the
// index never observes a half-updated file.
func (db *DB) ReplaceSymbolsForFile(fileID int64, filePath string, symbols []Symbol) error {
	return db.WithTx(func(tx *sql.Tx) error {
		rows, err := tx.Query("SELECT id FROM symbols WHERE file_id = ?", fileID)
		if err != nil {
			return fmt.Errorf("select existing symbols: %w", err)
		}
		var oldIDs []int64
		for rows.Next() {
			var id int64
			if err := rows.Scan(&id); err != nil {
				rows.Close()
				return err
			}
			oldIDs = append(oldIDs, id)
		}
		rows.Close()
		if err := rows.Err(); err != nil {
			return err
		}

		for _, id := range oldIDs {
			if _, err := tx.Exec("DELETE FROM symbols_fts_content WHERE rowid = ?", id); err != nil {
				return fmt.Errorf("delete fts content: %w", err)
			}
		}
		if _, err := tx.Exec("DELETE FROM symbols WHERE file_id = ?", fileID); err != nil {
			return fmt.Errorf("delete symbols: %w", err)
		}

		for _, s := range symbols {
			var parentID interface{}
			if s.ParentSymbolID != nil {
				parentID = *s.ParentSymbolID
			}
			res, err := tx.Exec(`
				INSERT INTO symbols (file_id, name, kind, start_line, end_line, signature, parent_symbol_id)
				VALUES (?, ?, ?, ?, ?, ?, ?)
			`, fileID, s.Name, s.Kind, s.StartLine, s.EndLine, s.Signature, parentID)
			if err != nil {
				return fmt.Errorf("insert symbol %s: %w", s.Name, err)
			}
			id, err := res.LastInsertId()
			if err != nil {
				return err
			}

			if _, err := tx.Exec(`
				INSERT INTO symbols_fts_content (rowid, name, signature, path, kind)
				VALUES (?, ?, ?, ?, ?)
			`, id, s.Name, s.Signature, filePath, s.Kind); err != nil {
				return fmt.Errorf("insert fts content: %w", err)
			}
		}

		return nil
	})
}

// ReplaceImportsForFile atomically replaces every outgoing dependency
// edge from fileID with raw (unresolved) import references.
func (db *DB) ReplaceImportsForFile(fileID int64, imports []Dependency) error {
	return db.WithTx(func(tx *sql.Tx) error {
		if _, err := tx.Exec("DELETE FROM dependencies WHERE from_file_id = ?", fileID); err != nil {
			return fmt.Errorf("delete dependencies: %w", err)
		}
		for _, d := range imports {
			names, err := json.Marshal(d.ImportedNames)
			if err != nil {
				return err
			}
			kind := d.Kind
			if kind == "" {
				kind = "import"
			}
			if _, err := tx.Exec(`
				INSERT INTO dependencies (from_file_id, to_path, to_file_id, kind, imported_names)
				VALUES (?, ?, ?, ?, ?)
			`, fileID, d.ToPath, d.ToFileID, kind, string(names)); err != nil {
				return fmt.Errorf("insert dependency %s: %w", d.ToPath, err)
			}
		}
		return nil
	})
}

// ResolveImports re-runs resolution for every unresolved edge against
// the current file set, per the path-suffix-then-basename algorithm in
// spec §4.4. Returns the number of edges newly resolved.
func (db *DB) ResolveImports() (int, error) {
	rows, err := db.Query("SELECT id, path FROM files")
	if err != nil {
		return 0, err
	}
	var files []fileRef
	for rows.Next() {
		var f fileRef
		if err := rows.Scan(&f.id, &f.path); err != nil {
			rows.Close()
			return 0, err
		}
		files = append(files, f)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return 0, err
	}

	type edgeRow struct {
		id         int64
		toPath     string
		fromFileID int64
	}
	rows, err = db.Query("SELECT id, to_path, from_file_id FROM dependencies WHERE to_file_id IS NULL")
	if err != nil {
		return 0, err
	}
	var edges []edgeRow
	for rows.Next() {
		var e edgeRow
		if err := rows.Scan(&e.id, &e.toPath, &e.fromFileID); err != nil {
			rows.Close()
			return 0, err
		}
		edges = append(edges, e)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return 0, err
	}

	pathByFileID := make(map[int64]string, len(files))
	for _, f := range files {
		pathByFileID[f.id] = f.path
	}

	resolved := 0
	err = db.WithTx(func(tx *sql.Tx) error {
		for _, e := range edges {
			target := resolveImport(e.toPath, pathByFileID[e.fromFileID], files)
			if target == 0 {
				continue
			}
			if _, err := tx.Exec("UPDATE dependencies SET to_file_id = ? WHERE id = ?", target, e.id); err != nil {
				return fmt.Errorf("resolve dependency %d: %w", e.id, err)
			}
			resolved++
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return resolved, nil
}

// resolveImport implements spec §4.4: path-suffix match first, then
// basename match tie-broken by longest common relative-path prefix with
// the importer, then lexicographic order. Returns 0 if no file binds.
func resolveImport(rawImport string, importerPath string, files []fileRef) int64 {
	raw := strings.TrimSuffix(rawImport, "/")

	for _, f := range files {
		if f.path == raw || strings.HasSuffix(f.path, "/"+raw) {
			return f.id
		}
	}

	targetBase := basenameNoExt(raw)
	var candidates []fileRef
	for _, f := range files {
		if basenameNoExt(f.path) == targetBase {
			candidates = append(candidates, f)
		}
	}

	switch len(candidates) {
	case 0:
		return 0
	case 1:
		return candidates[0].id
	default:
		sort.Slice(candidates, func(i, j int) bool {
			pi := commonPrefixLen(candidates[i].path, importerPath)
			pj := commonPrefixLen(candidates[j].path, importerPath)
			if pi != pj {
				return pi > pj
			}
			return candidates[i].path < candidates[j].path
		})
		return candidates[0].id
	}
}

func basenameNoExt(path string) string {
	base := path
	if idx := strings.LastIndexByte(path, '/'); idx >= 0 {
		base = path[idx+1:]
	}
	if idx := strings.LastIndexByte(base, '.'); idx > 0 {
		base = base[:idx]
	}
	return base
}

func commonPrefixLen(a, b string) int {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	i := 0
	for i < n && a[i] == b[i] {
		i++
	}
	return i
}

// BulkUpdateGitStats updates commit_count and churn_score for every
// file path present in stats, inside one transaction.
func (db *DB) BulkUpdateGitStats(stats map[string]GitStat) error {
	return db.WithTx(func(tx *sql.Tx) error {
		stmt, err := tx.Prepare("UPDATE files SET commit_count = ?, churn_score = ? WHERE path = ?")
		if err != nil {
			return err
		}
		defer stmt.Close()

		for path, s := range stats {
			if _, err := stmt.Exec(s.CommitCount, s.ChurnScore, path); err != nil {
				return fmt.Errorf("update git stats for %s: %w", path, err)
			}
		}
		return nil
	})
}

// InsertDecision inserts a decision row. Commit-derived decisions are
// deduplicated by (source, reference); a duplicate insert is a no-op,
// not an error.
func (db *DB) InsertDecision(d *Decision) (int64, error) {
	res, err := db.Exec(`
		INSERT INTO decisions (timestamp, source, reference, kind, subject, body)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(source, reference) WHERE reference IS NOT NULL DO NOTHING
	`, d.Timestamp.UTC().Format(time.RFC3339), d.Source, d.Reference, d.Kind, d.Subject, d.Body)
	if err != nil {
		return 0, fmt.Errorf("insert decision: %w", err)
	}
	return res.LastInsertId()
}

// InsertNote inserts a knowledge note. Returns the inserted row.
func (db *DB) InsertNote(body string, relatedFile *string) (*Note, error) {
	now := time.Now().UTC()
	res, err := db.Exec(`
		INSERT INTO notes (timestamp, body, related_file) VALUES (?, ?, ?)
	`, now.Format(time.RFC3339), body, relatedFile)
	if err != nil {
		return nil, fmt.Errorf("insert note: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, err
	}
	return &Note{ID: id, Timestamp: now, Body: body, RelatedFile: relatedFile}, nil
}

// Decisions returns every recorded decision, newest first.
func (db *DB) Decisions() ([]Decision, error) {
	rows, err := db.Query(`
		SELECT id, timestamp, source, reference, kind, subject, body
		FROM decisions ORDER BY timestamp DESC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Decision
	for rows.Next() {
		var d Decision
		var ts string
		if err := rows.Scan(&d.ID, &ts, &d.Source, &d.Reference, &d.Kind, &d.Subject, &d.Body); err != nil {
			return nil, err
		}
		if t, err := time.Parse(time.RFC3339, ts); err == nil {
			d.Timestamp = t
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

// SymbolCounts returns the number of symbol rows per file id, for
// directory-aggregated views.
func (db *DB) SymbolCounts() (map[int64]int, error) {
	rows, err := db.Query("SELECT file_id, COUNT(*) FROM symbols GROUP BY file_id")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[int64]int)
	for rows.Next() {
		var id int64
		var n int
		if err := rows.Scan(&id, &n); err != nil {
			return nil, err
		}
		out[id] = n
	}
	return out, rows.Err()
}

// SearchSymbols ranks symbol matches for term via the FTS index (exact
// phrase first, then prefix). It has no literal-substring fallback;
// query.Engine adds that on top.
func (db *DB) SearchSymbols(term string, limit int) ([]FTSSearchResult, error) {
	return searchFTS(context.Background(), db.conn, term, limit)
}

// DependentsOf returns every file that (via a resolved edge) imports
// fileID, directly.
func (db *DB) DependentsOf(fileID int64) ([]File, error) {
	rows, err := db.Query(`
		SELECT f.id, f.path, f.language, f.size_bytes, f.hash, f.line_count,
		       f.commit_count, f.churn_score, f.last_seen_generation, f.last_analyzed
		FROM dependencies d
		JOIN files f ON f.id = d.from_file_id
		WHERE d.to_file_id = ?
	`, fileID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanFiles(rows)
}

// ImportsOf returns every dependency edge originating from fileID.
func (db *DB) ImportsOf(fileID int64) ([]Dependency, error) {
	rows, err := db.Query(`
		SELECT id, from_file_id, to_path, to_file_id, kind, imported_names
		FROM dependencies WHERE from_file_id = ?
	`, fileID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanDependencies(rows)
}

// AggregateStats computes project-wide summary counts.
func (db *DB) AggregateStats() (*AggregateStats, error) {
	stats := &AggregateStats{ByLanguage: make(map[string]int)}

	if err := db.QueryRow("SELECT COUNT(*), COALESCE(SUM(line_count), 0) FROM files").Scan(&stats.Files, &stats.Lines); err != nil {
		return nil, err
	}
	if err := db.QueryRow("SELECT COUNT(*) FROM symbols").Scan(&stats.Symbols); err != nil {
		return nil, err
	}
	if err := db.QueryRow("SELECT COUNT(*) FROM dependencies").Scan(&stats.Dependencies); err != nil {
		return nil, err
	}
	if err := db.QueryRow("SELECT COUNT(*) FROM dependencies WHERE to_file_id IS NULL").Scan(&stats.UnresolvedEdges); err != nil {
		return nil, err
	}
	if err := db.QueryRow("SELECT COUNT(*) FROM decisions").Scan(&stats.Decisions); err != nil {
		return nil, err
	}
	if err := db.QueryRow("SELECT COUNT(*) FROM notes").Scan(&stats.Notes); err != nil {
		return nil, err
	}

	rows, err := db.Query("SELECT language, COUNT(*) FROM files GROUP BY language")
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var lang string
		var count int
		if err := rows.Scan(&lang, &count); err != nil {
			return nil, err
		}
		stats.ByLanguage[lang] = count
	}

	return stats, rows.Err()
}

// HealthWarnings categorizes files as fragile (high churn), large, or
// dead (no resolved incoming dependency).
func (db *DB) HealthWarnings(churnThreshold float64, largeLineThreshold int) (*HealthWarnings, error) {
	w := &HealthWarnings{}

	fragileRows, err := db.Query(`
		SELECT id, path, language, size_bytes, hash, line_count, commit_count,
		       churn_score, last_seen_generation, last_analyzed
		FROM files WHERE churn_score > ? ORDER BY churn_score DESC
	`, churnThreshold)
	if err != nil {
		return nil, err
	}
	w.Fragile, err = scanFiles(fragileRows)
	fragileRows.Close()
	if err != nil {
		return nil, err
	}

	largeRows, err := db.Query(`
		SELECT id, path, language, size_bytes, hash, line_count, commit_count,
		       churn_score, last_seen_generation, last_analyzed
		FROM files WHERE line_count > ? ORDER BY line_count DESC
	`, largeLineThreshold)
	if err != nil {
		return nil, err
	}
	w.Large, err = scanFiles(largeRows)
	largeRows.Close()
	if err != nil {
		return nil, err
	}

	deadRows, err := db.Query(`
		SELECT id, path, language, size_bytes, hash, line_count, commit_count,
		       churn_score, last_seen_generation, last_analyzed
		FROM files f
		WHERE NOT EXISTS (
			SELECT 1 FROM dependencies d WHERE d.to_file_id = f.id
		)
	`)
	if err != nil {
		return nil, err
	}
	w.Dead, err = scanFiles(deadRows)
	deadRows.Close()
	if err != nil {
		return nil, err
	}

	return w, nil
}

func scanFiles(rows *sql.Rows) ([]File, error) {
	var out []File
	for rows.Next() {
		var f File
		var lastAnalyzed string
		if err := rows.Scan(&f.ID, &f.Path, &f.Language, &f.SizeBytes, &f.Hash, &f.LineCount,
			&f.CommitCount, &f.ChurnScore, &f.LastSeenGeneration, &lastAnalyzed); err != nil {
			return nil, err
		}
		if t, err := time.Parse(time.RFC3339, lastAnalyzed); err == nil {
			f.LastAnalyzed = t
		}
		out = append(out, f)
	}
	return out, rows.Err()
}

func scanDependencies(rows *sql.Rows) ([]Dependency, error) {
	var out []Dependency
	for rows.Next() {
		var d Dependency
		var namesJSON string
		if err := rows.Scan(&d.ID, &d.FromFileID, &d.ToPath, &d.ToFileID, &d.Kind, &namesJSON); err != nil {
			return nil, err
		}
		_ = json.Unmarshal([]byte(namesJSON), &d.ImportedNames)
		out = append(out, d)
	}
	return out, rows.Err()
}
