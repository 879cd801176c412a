package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/rotisserie/eris"
	"github.com/rs/zerolog"

	_ "github.com/go-sql-driver/mysql"
)

var mysqlDialect = dialect{
	name: "mysql",
	schema: []string{`
	CREATE TABLE IF NOT EXISTS economy_records (
		collection VARCHAR(64) NOT NULL,
		id VARCHAR(191) NOT NULL,
		data LONGTEXT NOT NULL,
		saved_at DATETIME NOT NULL,
		PRIMARY KEY (collection, id),
		INDEX idx_records_saved_at (saved_at)
	)`},
	get: `SELECT data FROM economy_records WHERE collection = ? AND id = ?`,
	upsert: `
		INSERT INTO economy_records (collection, id, data, saved_at)
		VALUES (?, ?, ?, ?)
		ON DUPLICATE KEY UPDATE
			data = VALUES(data),
			saved_at = VALUES(saved_at)`,
	del:     `DELETE FROM economy_records WHERE collection = ? AND id = ?`,
	getAll:  `SELECT data FROM economy_records WHERE collection = ? ORDER BY id`,
	count:   `SELECT COUNT(*) FROM economy_records`,
	lastSet: `SELECT CAST(MAX(saved_at) AS CHAR) FROM economy_records`,
}

// NewMySQLDatabase connects to MySQL. dsn must include parseTime=true.
func NewMySQLDatabase(dsn string, logger zerolog.Logger) (*SQLDatabase, error) {
	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "failed to open MySQL")
	}

	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, eris.Wrap(err, "failed to ping MySQL")
	}

	store, err := newSQLDatabase(db, mysqlDialect, false, logger)
	if err != nil {
		db.Close()
		return nil, err
	}

	logger.Info().Msg("MySQL database initialized")
	return store, nil
}
