package repository

import (
	"context"
	"database/sql"
	"sync"
	"time"

	"github.com/rotisserie/eris"
	"github.com/rs/zerolog"
)

// dialect holds the statements that differ between SQL engines. All engines
// share one table keyed by (collection, id).
type dialect struct {
	name    string
	schema  []string
	get     string
	upsert  string
	del     string
	getAll  string
	count   string
	lastSet string
}

// SQLDatabase implements Database on top of database/sql.
type SQLDatabase struct {
	db      *sql.DB
	dialect dialect
	log     zerolog.Logger

	// serialize guards writers for engines with a single writer (SQLite).
	serialize bool
	mu        sync.RWMutex
}

func newSQLDatabase(db *sql.DB, d dialect, serialize bool, logger zerolog.Logger) (*SQLDatabase, error) {
	for _, stmt := range d.schema {
		if _, err := db.Exec(stmt); err != nil {
			return nil, eris.Wrapf(err, "failed to create %s tables", d.name)
		}
	}
	return &SQLDatabase{db: db, dialect: d, log: logger, serialize: serialize}, nil
}

// Collection returns the store for the named collection.
func (s *SQLDatabase) Collection(name string) Store {
	return &SQLStore{parent: s, collection: name}
}

// Ping verifies the connection.
func (s *SQLDatabase) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// GetStats returns statistics about the records table.
func (s *SQLDatabase) GetStats(ctx context.Context) (map[string]interface{}, error) {
	s.rlock()
	defer s.runlock()

	stats := make(map[string]interface{})
	stats["driver"] = s.dialect.name

	var count int64
	if err := s.db.QueryRowContext(ctx, s.dialect.count).Scan(&count); err != nil {
		return nil, eris.Wrap(err, "failed to count records")
	}
	stats["total_records"] = count

	var last sql.NullString
	if err := s.db.QueryRowContext(ctx, s.dialect.lastSet).Scan(&last); err == nil && last.Valid {
		stats["last_save"] = last.String
	}

	return stats, nil
}

// Close closes the database connection.
func (s *SQLDatabase) Close() error {
	return s.db.Close()
}

func (s *SQLDatabase) lock() {
	if s.serialize {
		s.mu.Lock()
	}
}

func (s *SQLDatabase) unlock() {
	if s.serialize {
		s.mu.Unlock()
	}
}

func (s *SQLDatabase) rlock() {
	if s.serialize {
		s.mu.RLock()
	}
}

func (s *SQLDatabase) runlock() {
	if s.serialize {
		s.mu.RUnlock()
	}
}

// SQLStore is one collection inside an SQLDatabase.
type SQLStore struct {
	parent     *SQLDatabase
	collection string
}

// Get retrieves the record for id.
func (r *SQLStore) Get(ctx context.Context, id string) ([]byte, error) {
	r.parent.rlock()
	defer r.parent.runlock()

	var record string
	err := r.parent.db.QueryRowContext(ctx, r.parent.dialect.get, r.collection, id).Scan(&record)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, eris.Wrapf(err, "failed to get %s record", r.collection)
	}
	return []byte(record), nil
}

// Save inserts or updates the record for id.
func (r *SQLStore) Save(ctx context.Context, id string, record []byte) error {
	r.parent.lock()
	defer r.parent.unlock()

	_, err := r.parent.db.ExecContext(ctx, r.parent.dialect.upsert, r.collection, id, string(record), time.Now().UTC())
	if err != nil {
		return eris.Wrapf(err, "failed to upsert %s record", r.collection)
	}
	return nil
}

// Delete removes the record for id.
func (r *SQLStore) Delete(ctx context.Context, id string) error {
	r.parent.lock()
	defer r.parent.unlock()

	if _, err := r.parent.db.ExecContext(ctx, r.parent.dialect.del, r.collection, id); err != nil {
		return eris.Wrapf(err, "failed to delete %s record", r.collection)
	}
	return nil
}

// GetAll returns every record of the collection ordered by id.
func (r *SQLStore) GetAll(ctx context.Context) ([][]byte, error) {
	r.parent.rlock()
	defer r.parent.runlock()

	rows, err := r.parent.db.QueryContext(ctx, r.parent.dialect.getAll, r.collection)
	if err != nil {
		return nil, eris.Wrapf(err, "failed to list %s records", r.collection)
	}
	defer rows.Close()

	var out [][]byte
	for rows.Next() {
		var record string
		if err := rows.Scan(&record); err != nil {
			return nil, eris.Wrapf(err, "failed to scan %s record", r.collection)
		}
		out = append(out, []byte(record))
	}
	return out, rows.Err()
}

var (
	_ Database = (*SQLDatabase)(nil)
	_ Store    = (*SQLStore)(nil)
)
