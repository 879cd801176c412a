package repository

import (
	"database/sql"
	"fmt"

	"github.com/rotisserie/eris"
	"github.com/rs/zerolog"

	_ "modernc.org/sqlite" // Pure Go SQLite driver - no CGO required
)

var sqliteDialect = dialect{
	name: "sqlite",
	schema: []string{`
	CREATE TABLE IF NOT EXISTS economy_records (
		collection TEXT NOT NULL,
		id TEXT NOT NULL,
		data TEXT NOT NULL,
		saved_at DATETIME NOT NULL,
		PRIMARY KEY (collection, id)
	);
	CREATE INDEX IF NOT EXISTS idx_records_saved_at ON economy_records(saved_at);
	`},
	get: `SELECT data FROM economy_records WHERE collection = ? AND id = ?`,
	upsert: `
		INSERT INTO economy_records (collection, id, data, saved_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(collection, id) DO UPDATE SET
			data = excluded.data,
			saved_at = excluded.saved_at`,
	del:     `DELETE FROM economy_records WHERE collection = ? AND id = ?`,
	getAll:  `SELECT data FROM economy_records WHERE collection = ? ORDER BY id`,
	count:   `SELECT COUNT(*) FROM economy_records`,
	lastSet: `SELECT CAST(MAX(saved_at) AS TEXT) FROM economy_records`,
}

// NewSQLiteDatabase opens (or creates) the SQLite database at dbPath,
// e.g. "./data/economy.db". ":memory:" works for tests.
func NewSQLiteDatabase(dbPath string, logger zerolog.Logger) (*SQLDatabase, error) {
	// Open with WAL mode and other optimizations
	dsn := fmt.Sprintf("%s?_pragma=journal_mode(WAL)&_pragma=synchronous(NORMAL)&_pragma=busy_timeout(5000)", dbPath)

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "failed to open SQLite")
	}

	// SQLite only supports 1 writer; a single connection also keeps
	// ":memory:" databases alive for the life of the pool.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	store, err := newSQLDatabase(db, sqliteDialect, true, logger)
	if err != nil {
		db.Close()
		return nil, err
	}

	logger.Info().Str("path", dbPath).Msg("SQLite database initialized")
	return store, nil
}
