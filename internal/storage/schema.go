package storage

import (
	"database/sql"
	"fmt"
)

// currentSchemaVersion is the schema version this binary knows how to
// read and write. A database stamped with a higher version fails Open
// with errors.Schema rather than risk silent data loss.
const currentSchemaVersion = 1

// initializeSchema creates all tables for a new database.
func (db *DB) initializeSchema() error {
	return db.WithTx(func(tx *sql.Tx) error {
		if err := createSchemaVersionTable(tx); err != nil {
			return err
		}
		if err := createFilesTable(tx); err != nil {
			return err
		}
		if err := createSymbolsTable(tx); err != nil {
			return err
		}
		if err := createDependenciesTable(tx); err != nil {
			return err
		}
		if err := createDecisionsTable(tx); err != nil {
			return err
		}
		if err := createNotesTable(tx); err != nil {
			return err
		}
		if err := initFTSSchema(tx); err != nil {
			return err
		}

		if err := setSchemaVersion(tx, currentSchemaVersion); err != nil {
			return err
		}

		db.logger.Info("database schema initialized", map[string]interface{}{
			"version": currentSchemaVersion,
		})

		return nil
	})
}

// runMigrations runs any pending schema migrations on an existing
// database, or reports Schema if the database is newer than this
// binary understands.
func (db *DB) runMigrations() error {
	version, err := db.getSchemaVersion()
	if err != nil {
		return err
	}

	if version > currentSchemaVersion {
		return fmt.Errorf("database schema version %d is newer than this binary supports (%d)", version, currentSchemaVersion)
	}

	if version == currentSchemaVersion {
		db.logger.Debug("database schema is up to date", map[string]interface{}{
			"version": version,
		})
		return nil
	}

	db.logger.Info("running database migrations", map[string]interface{}{
		"from_version": version,
		"to_version":   currentSchemaVersion,
	})

	// Future migrations go here, e.g.:
	// if version < 2 {
	//     if err := db.migrateToV2(); err != nil {
	//         return err
	//     }
	// }

	return nil
}

func (db *DB) getSchemaVersion() (int, error) {
	var tableName string
	err := db.QueryRow(`
		SELECT name FROM sqlite_master
		WHERE type='table' AND name='schema_version'
	`).Scan(&tableName)

	if err == sql.ErrNoRows {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}

	var version int
	err = db.QueryRow("SELECT version FROM schema_version LIMIT 1").Scan(&version)
	if err == sql.ErrNoRows {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}

	return version, nil
}

func setSchemaVersion(tx *sql.Tx, version int) error {
	if _, err := tx.Exec("DELETE FROM schema_version"); err != nil {
		return err
	}
	_, err := tx.Exec("INSERT INTO schema_version (version) VALUES (?)", version)
	return err
}

func createSchemaVersionTable(tx *sql.Tx) error {
	_, err := tx.Exec(`
		CREATE TABLE IF NOT EXISTS schema_version (
			version INTEGER NOT NULL
		)
	`)
	return err
}

// createFilesTable creates the files table: one row per tracked file.
func createFilesTable(tx *sql.Tx) error {
	_, err := tx.Exec(`
		CREATE TABLE IF NOT EXISTS files (
			id                   INTEGER PRIMARY KEY AUTOINCREMENT,
			path                 TEXT NOT NULL UNIQUE,
			language             TEXT NOT NULL DEFAULT 'unknown',
			size_bytes           INTEGER NOT NULL DEFAULT 0,
			hash                 TEXT NOT NULL DEFAULT '',
			line_count           INTEGER NOT NULL DEFAULT 0,
			commit_count         INTEGER NOT NULL DEFAULT 0,
			churn_score          REAL NOT NULL DEFAULT 0.0,
			last_seen_generation INTEGER NOT NULL DEFAULT 0,
			last_analyzed        DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		)
	`)
	if err != nil {
		return fmt.Errorf("create files table: %w", err)
	}
	if _, err := tx.Exec("CREATE INDEX IF NOT EXISTS idx_files_language ON files(language)"); err != nil {
		return fmt.Errorf("create files index: %w", err)
	}
	return nil
}

// createSymbolsTable creates the symbols table: name/kind/span per file,
// with an optional self-FK so methods can nest inside their enclosing
// class or struct.
func createSymbolsTable(tx *sql.Tx) error {
	_, err := tx.Exec(`
		CREATE TABLE IF NOT EXISTS symbols (
			id               INTEGER PRIMARY KEY AUTOINCREMENT,
			file_id          INTEGER NOT NULL REFERENCES files(id) ON DELETE CASCADE,
			name             TEXT NOT NULL,
			kind             TEXT NOT NULL,
			start_line       INTEGER NOT NULL,
			end_line         INTEGER NOT NULL,
			signature        TEXT NOT NULL DEFAULT '',
			parent_symbol_id INTEGER REFERENCES symbols(id) ON DELETE SET NULL
		)
	`)
	if err != nil {
		return fmt.Errorf("create symbols table: %w", err)
	}

	indexes := []string{
		"CREATE INDEX IF NOT EXISTS idx_symbols_file_id ON symbols(file_id)",
		"CREATE INDEX IF NOT EXISTS idx_symbols_name ON symbols(name)",
		"CREATE INDEX IF NOT EXISTS idx_symbols_kind ON symbols(kind)",
		"CREATE INDEX IF NOT EXISTS idx_symbols_parent_symbol_id ON symbols(parent_symbol_id)",
	}
	for _, stmt := range indexes {
		if _, err := tx.Exec(stmt); err != nil {
			return fmt.Errorf("create symbols index: %w", err)
		}
	}
	return nil
}

// createDependenciesTable creates the dependencies table: raw import
// references, resolved lazily by the graph module.
func createDependenciesTable(tx *sql.Tx) error {
	_, err := tx.Exec(`
		CREATE TABLE IF NOT EXISTS dependencies (
			id             INTEGER PRIMARY KEY AUTOINCREMENT,
			from_file_id   INTEGER NOT NULL REFERENCES files(id) ON DELETE CASCADE,
			to_path        TEXT NOT NULL,
			to_file_id     INTEGER REFERENCES files(id) ON DELETE SET NULL,
			kind           TEXT NOT NULL DEFAULT 'import',
			imported_names TEXT NOT NULL DEFAULT '[]'
		)
	`)
	if err != nil {
		return fmt.Errorf("create dependencies table: %w", err)
	}

	indexes := []string{
		"CREATE INDEX IF NOT EXISTS idx_deps_from ON dependencies(from_file_id)",
		"CREATE INDEX IF NOT EXISTS idx_deps_to ON dependencies(to_file_id)",
	}
	for _, stmt := range indexes {
		if _, err := tx.Exec(stmt); err != nil {
			return fmt.Errorf("create dependencies index: %w", err)
		}
	}
	return nil
}

// createDecisionsTable creates the decisions table. A commit-derived
// decision is unique per commit hash so rescans don't duplicate it,
// following the original implementation's partial unique index.
func createDecisionsTable(tx *sql.Tx) error {
	_, err := tx.Exec(`
		CREATE TABLE IF NOT EXISTS decisions (
			id            INTEGER PRIMARY KEY AUTOINCREMENT,
			timestamp     DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			source        TEXT NOT NULL DEFAULT 'manual',
			reference     TEXT,
			kind          TEXT NOT NULL DEFAULT 'note',
			subject       TEXT NOT NULL,
			body          TEXT
		)
	`)
	if err != nil {
		return fmt.Errorf("create decisions table: %w", err)
	}

	if _, err := tx.Exec(`
		CREATE UNIQUE INDEX IF NOT EXISTS idx_decisions_reference_unique
			ON decisions(source, reference)
			WHERE reference IS NOT NULL
	`); err != nil {
		return fmt.Errorf("create decisions unique index: %w", err)
	}
	if _, err := tx.Exec("CREATE INDEX IF NOT EXISTS idx_decisions_timestamp ON decisions(timestamp)"); err != nil {
		return fmt.Errorf("create decisions index: %w", err)
	}
	return nil
}

// createNotesTable creates the notes table: manually captured knowledge,
// optionally anchored to a file.
func createNotesTable(tx *sql.Tx) error {
	_, err := tx.Exec(`
		CREATE TABLE IF NOT EXISTS notes (
			id           INTEGER PRIMARY KEY AUTOINCREMENT,
			timestamp    DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			body         TEXT NOT NULL,
			related_file TEXT
		)
	`)
	if err != nil {
		return fmt.Errorf("create notes table: %w", err)
	}
	if _, err := tx.Exec("CREATE INDEX IF NOT EXISTS idx_notes_related_file ON notes(related_file)"); err != nil {
		return fmt.Errorf("create notes index: %w", err)
	}
	return nil
}
