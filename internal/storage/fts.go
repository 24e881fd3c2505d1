package storage

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
)

// SymbolFTSRecord is a symbol projected into the FTS shadow content
// table. Rowid is the owning symbols.id so the content table and the
// symbols table never drift.
type SymbolFTSRecord struct {
	SymbolID  int64
	Name      string
	Signature string
	Path      string
	Kind      string
}

// FTSSearchResult is one ranked match from the FTS index.
type FTSSearchResult struct {
	SymbolID  int64
	Name      string
	Signature string
	Path      string
	Kind      string
	MatchType string // "exact", "prefix", "substring"
}

// initFTSSchema creates the symbols_fts virtual table, its shadow
// content table, and the triggers that keep them synchronized whenever
// the content table is written directly (ReplaceSymbolsForFile writes
// both tables inside one transaction; see repositories.go).
func initFTSSchema(tx *sql.Tx) error {
	if _, err := tx.Exec(`
		CREATE TABLE IF NOT EXISTS symbols_fts_content (
			rowid     INTEGER PRIMARY KEY,
			name      TEXT NOT NULL,
			signature TEXT NOT NULL DEFAULT '',
			path      TEXT NOT NULL,
			kind      TEXT NOT NULL
		)
	`); err != nil {
		return fmt.Errorf("create symbols_fts_content table: %w", err)
	}

	if _, err := tx.Exec(`
		CREATE VIRTUAL TABLE IF NOT EXISTS symbols_fts USING fts5(
			name,
			signature,
			path,
			content='symbols_fts_content',
			content_rowid='rowid',
			tokenize='porter unicode61'
		)
	`); err != nil {
		return fmt.Errorf("create symbols_fts table: %w", err)
	}

	triggers := []string{
		`CREATE TRIGGER IF NOT EXISTS symbols_fts_ai AFTER INSERT ON symbols_fts_content BEGIN
			INSERT INTO symbols_fts(rowid, name, signature, path)
			VALUES (new.rowid, new.name, new.signature, new.path);
		END`,
		`CREATE TRIGGER IF NOT EXISTS symbols_fts_au AFTER UPDATE ON symbols_fts_content BEGIN
			INSERT INTO symbols_fts(symbols_fts, rowid, name, signature, path)
			VALUES ('delete', old.rowid, old.name, old.signature, old.path);
			INSERT INTO symbols_fts(rowid, name, signature, path)
			VALUES (new.rowid, new.name, new.signature, new.path);
		END`,
		`CREATE TRIGGER IF NOT EXISTS symbols_fts_ad AFTER DELETE ON symbols_fts_content BEGIN
			INSERT INTO symbols_fts(symbols_fts, rowid, name, signature, path)
			VALUES ('delete', old.rowid, old.name, old.signature, old.path);
		END`,
	}
	for _, stmt := range triggers {
		if _, err := tx.Exec(stmt); err != nil {
			return fmt.Errorf("create fts trigger: %w", err)
		}
	}

	return nil
}

// searchFTS runs an FTS5 phrase query, then (if still short of limit) a
// prefix query. It does not fall back to a substring scan of the symbol
// index itself: per spec.md §4.6, when FTS returns nothing the fallback
// scans tracked file contents on disk, which needs the project root and
// so lives one layer up, in internal/query.Engine.SearchSymbols.
func searchFTS(ctx context.Context, conn *sql.DB, query string, limit int) ([]FTSSearchResult, error) {
	query = strings.TrimSpace(query)
	if query == "" || limit <= 0 {
		return nil, nil
	}

	var results []FTSSearchResult
	seen := make(map[int64]bool)

	add := func(rows []FTSSearchResult) {
		for _, r := range rows {
			if !seen[r.SymbolID] {
				seen[r.SymbolID] = true
				results = append(results, r)
			}
		}
	}

	if exact, err := ftsQuery(ctx, conn, fmt.Sprintf(`"%s"`, escapeFTS5(query)), limit, "exact"); err == nil {
		add(exact)
	}

	if len(results) < limit {
		if prefix, err := ftsQuery(ctx, conn, escapeFTS5(query)+"*", limit-len(results), "prefix"); err == nil {
			add(prefix)
		}
	}

	if len(results) > limit {
		results = results[:limit]
	}
	return results, nil
}

// GrepSymbols runs the literal-substring path directly, skipping the
// FTS phrase/prefix stages, for callers that want an unranked scan
// over text that FTS5's tokenizer might not surface as a match (e.g.
// punctuation-heavy signatures).
func (db *DB) GrepSymbols(term string, limit int) ([]FTSSearchResult, error) {
	term = strings.TrimSpace(term)
	if term == "" || limit <= 0 {
		return nil, nil
	}
	return likeQuery(context.Background(), db.conn, term, limit)
}

// kindPriorityCase ranks function/method matches first, class/struct
// matches next, and everything else last, per spec.md §4.6's ranking
// rule: "FTS score then symbol kind priority (function > class/struct >
// others) then file path lexicographically".
const kindPriorityCase = `
	CASE c.kind
		WHEN 'function' THEN 0
		WHEN 'method' THEN 0
		WHEN 'class' THEN 1
		WHEN 'struct' THEN 1
		ELSE 2
	END`

func ftsQuery(ctx context.Context, conn *sql.DB, matchExpr string, limit int, matchType string) ([]FTSSearchResult, error) {
	rows, err := conn.QueryContext(ctx, `
		SELECT c.rowid, c.name, c.signature, c.path, c.kind
		FROM symbols_fts f
		JOIN symbols_fts_content c ON f.rowid = c.rowid
		WHERE symbols_fts MATCH ?
		ORDER BY bm25(symbols_fts), `+kindPriorityCase+`, c.path
		LIMIT ?
	`, matchExpr, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []FTSSearchResult
	for rows.Next() {
		var r FTSSearchResult
		if err := rows.Scan(&r.SymbolID, &r.Name, &r.Signature, &r.Path, &r.Kind); err != nil {
			return nil, err
		}
		r.MatchType = matchType
		out = append(out, r)
	}
	return out, rows.Err()
}

func likeQuery(ctx context.Context, conn *sql.DB, query string, limit int) ([]FTSSearchResult, error) {
	pattern := "%" + query + "%"
	rows, err := conn.QueryContext(ctx, `
		SELECT rowid, name, signature, path, kind
		FROM symbols_fts_content
		WHERE name LIKE ? OR signature LIKE ?
		LIMIT ?
	`, pattern, pattern, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []FTSSearchResult
	for rows.Next() {
		var r FTSSearchResult
		if err := rows.Scan(&r.SymbolID, &r.Name, &r.Signature, &r.Path, &r.Kind); err != nil {
			return nil, err
		}
		r.MatchType = "substring"
		out = append(out, r)
	}
	return out, rows.Err()
}

// escapeFTS5 escapes characters with special meaning in an FTS5 MATCH
// expression.
func escapeFTS5(query string) string {
	replacer := strings.NewReplacer(
		`"`, `""`,
		`*`, `\*`,
		`(`, `\(`,
		`)`, `\)`,
	)
	return replacer.Replace(query)
}
