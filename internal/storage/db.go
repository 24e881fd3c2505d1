package storage

import (
	"database/sql"
	"fmt"
	"os"
	"strings"

	_ "modernc.org/sqlite" // pure Go SQLite driver, no cgo

	"ctxengine/internal/errors"
	"ctxengine/internal/logging"
	"ctxengine/internal/paths"
)

// DB wraps a SQLite connection opened against a project's data
// directory, with transaction and busy-handling helpers.
type DB struct {
	conn   *sql.DB
	logger *logging.Logger
	dbPath string
}

// Open opens or creates the store database for a project, keyed by
// projectHash (see internal/project). busyTimeoutMs sizes SQLite's
// internal lock wait before it reports SQLITE_BUSY; callers that need
// a longer retry-with-backoff loop wrap Open at a higher layer (see
// internal/index's lock acquisition).
func Open(projectHash string, busyTimeoutMs int, logger *logging.Logger) (*DB, error) {
	dataDir, err := paths.DataDir(projectHash)
	if err != nil {
		return nil, errors.Wrap(errors.Io, "resolve data directory", err)
	}

	dbPath := paths.StorePath(dataDir)
	dbExists := fileExists(dbPath)

	conn, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, errors.Wrap(errors.Io, "open database", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA foreign_keys=ON",
		fmt.Sprintf("PRAGMA busy_timeout=%d", busyTimeoutMs),
		"PRAGMA cache_size=-64000",
		"PRAGMA temp_store=MEMORY",
	}
	for _, pragma := range pragmas {
		if _, err := conn.Exec(pragma); err != nil {
			conn.Close()
			return nil, errors.Wrap(errors.Io, "set pragma "+pragma, err)
		}
	}

	db := &DB{conn: conn, logger: logger, dbPath: dbPath}

	if !dbExists {
		logger.Info("creating new store", map[string]interface{}{"path": dbPath})
		if err := db.initializeSchema(); err != nil {
			conn.Close()
			return nil, errors.Wrap(errors.Io, "initialize schema", err)
		}
	} else {
		logger.Debug("opening existing store", map[string]interface{}{"path": dbPath})
		if err := db.runMigrations(); err != nil {
			conn.Close()
			if strings.Contains(err.Error(), "newer than this binary supports") {
				return nil, errors.Wrap(errors.Schema, "schema version ahead of binary", err)
			}
			return nil, errors.Wrap(errors.Io, "run migrations", err)
		}
	}

	return db, nil
}

// Close closes the underlying connection.
func (db *DB) Close() error {
	if db.conn != nil {
		return db.conn.Close()
	}
	return nil
}

// Conn returns the underlying *sql.DB, for callers (e.g. FTS search)
// that need direct access.
func (db *DB) Conn() *sql.DB {
	return db.conn
}

// Path returns the on-disk database file path.
func (db *DB) Path() string {
	return db.dbPath
}

// BeginTx starts a new transaction.
func (db *DB) BeginTx() (*sql.Tx, error) {
	return db.conn.Begin()
}

// WithTx runs fn inside a transaction, committing on success and
// rolling back on error or panic.
func (db *DB) WithTx(fn func(*sql.Tx) error) error {
	tx, err := db.BeginTx()
	if err != nil {
		return classifyBusy(err, "begin transaction")
	}

	defer func() {
		if p := recover(); p != nil {
			tx.Rollback()
			panic(p)
		}
	}()

	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			db.logger.Error("rollback failed", map[string]interface{}{
				"error":          err.Error(),
				"rollback_error": rbErr.Error(),
			})
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return classifyBusy(err, "commit transaction")
	}
	return nil
}

// Exec executes a statement that returns no rows.
func (db *DB) Exec(query string, args ...interface{}) (sql.Result, error) {
	res, err := db.conn.Exec(query, args...)
	if err != nil {
		return nil, classifyBusy(err, "exec")
	}
	return res, nil
}

// Query executes a statement that returns rows.
func (db *DB) Query(query string, args ...interface{}) (*sql.Rows, error) {
	return db.conn.Query(query, args...)
}

// QueryRow executes a statement that returns at most one row.
func (db *DB) QueryRow(query string, args ...interface{}) *sql.Row {
	return db.conn.QueryRow(query, args...)
}

// classifyBusy maps a SQLite lock-contention error onto errors.Busy so
// callers (and cmd/ctxengine's exit-code mapping) can distinguish it
// from a generic I/O failure.
func classifyBusy(err error, op string) error {
	if err == nil {
		return nil
	}
	msg := strings.ToLower(err.Error())
	if strings.Contains(msg, "database is locked") || strings.Contains(msg, "busy") {
		return errors.Wrap(errors.Busy, op, err)
	}
	return errors.Wrap(errors.Io, op, err)
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
