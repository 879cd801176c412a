package repository

import (
	"context"
)

// Store is a key→record collection for one entity kind. Records are JSON
// documents produced by the entity codecs.
type Store interface {
	// Get returns the record for id, or nil and no error when id is absent.
	Get(ctx context.Context, id string) ([]byte, error)

	// Save inserts or replaces the record for id.
	Save(ctx context.Context, id string, record []byte) error

	// Delete removes id. Deleting an absent id is not an error.
	Delete(ctx context.Context, id string) error

	// GetAll returns every record in the collection, used at startup to
	// rehydrate long-lived collections.
	GetAll(ctx context.Context) ([][]byte, error)
}

// Database hands out collections of one backing technology.
type Database interface {
	// Collection returns the store for the named collection.
	Collection(name string) Store

	// Ping verifies the backend is reachable.
	Ping(ctx context.Context) error

	// GetStats returns statistics about the database.
	GetStats(ctx context.Context) (map[string]interface{}, error)

	// Close closes the database connection.
	Close() error
}

// Collection names used by the economy.
const (
	CollectionAccounts = "accounts"
	CollectionPlants   = "plants"
	CollectionBees     = "bees"
	CollectionPets     = "pets"
	CollectionShop     = "shop"
)
