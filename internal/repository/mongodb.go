package repository

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"github.com/rs/zerolog"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoDatabase implements Database using MongoDB, one Mongo collection per
// economy collection.
type MongoDatabase struct {
	client *mongo.Client
	db     *mongo.Database
	log    zerolog.Logger
}

// NewMongoDatabase connects to MongoDB and selects database.
func NewMongoDatabase(uri, database string, logger zerolog.Logger) (*MongoDatabase, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	clientOpts := options.Client().
		ApplyURI(uri).
		SetMaxPoolSize(50).
		SetMinPoolSize(5).
		SetMaxConnIdleTime(5 * time.Minute).
		SetRetryWrites(true)

	client, err := mongo.Connect(ctx, clientOpts)
	if err != nil {
		return nil, eris.Wrap(err, "failed to connect to MongoDB")
	}

	if err := client.Ping(ctx, nil); err != nil {
		return nil, eris.Wrap(err, "failed to ping MongoDB")
	}

	logger.Info().Str("database", database).Msg("MongoDB connected")
	return &MongoDatabase{
		client: client,
		db:     client.Database(database),
		log:    logger,
	}, nil
}

// Collection returns the store for the named collection, making sure the id
// index exists.
func (m *MongoDatabase) Collection(name string) Store {
	coll := m.db.Collection(name)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	indexModel := mongo.IndexModel{
		Keys:    bson.D{{Key: "id", Value: 1}},
		Options: options.Index().SetUnique(true),
	}
	if _, err := coll.Indexes().CreateOne(ctx, indexModel); err != nil {
		m.log.Warn().Err(err).Str("collection", name).Msg("failed to create index")
	}

	return &MongoStore{collection: coll}
}

func (m *MongoDatabase) Ping(ctx context.Context) error {
	return m.client.Ping(ctx, nil)
}

// GetStats returns document counts per collection.
func (m *MongoDatabase) GetStats(ctx context.Context) (map[string]interface{}, error) {
	stats := make(map[string]interface{})
	stats["driver"] = "mongodb"

	names, err := m.db.ListCollectionNames(ctx, bson.M{})
	if err != nil {
		return stats, eris.Wrap(err, "failed to list collections")
	}
	counts := make(map[string]interface{}, len(names))
	for _, name := range names {
		n, err := m.db.Collection(name).CountDocuments(ctx, bson.M{})
		if err != nil {
			return stats, eris.Wrapf(err, "failed to count %s", name)
		}
		counts[name] = n
	}
	stats["collections"] = counts
	return stats, nil
}

// Close closes the MongoDB connection.
func (m *MongoDatabase) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return m.client.Disconnect(ctx)
}

// recordDocument is the stored shape: the record is kept as a nested
// document so it stays queryable from the Mongo shell.
type recordDocument struct {
	ID      string    `bson:"id"`
	Record  bson.Raw  `bson:"record"`
	SavedAt time.Time `bson:"saved_at"`
}

// MongoStore is one MongoDB collection.
type MongoStore struct {
	collection *mongo.Collection
}

// Get retrieves the record for id as JSON.
func (s *MongoStore) Get(ctx context.Context, id string) ([]byte, error) {
	var doc recordDocument
	err := s.collection.FindOne(ctx, bson.M{"id": id}).Decode(&doc)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrap(err, "failed to get record")
	}
	return recordToJSON(doc.Record)
}

// Save upserts the record for id.
func (s *MongoStore) Save(ctx context.Context, id string, record []byte) error {
	var parsed bson.Raw
	if err := bson.UnmarshalExtJSON(record, false, &parsed); err != nil {
		return eris.Wrap(err, "failed to parse record JSON")
	}

	doc := recordDocument{ID: id, Record: parsed, SavedAt: time.Now().UTC()}
	opts := options.Replace().SetUpsert(true)
	if _, err := s.collection.ReplaceOne(ctx, bson.M{"id": id}, doc, opts); err != nil {
		return eris.Wrap(err, "failed to upsert record")
	}
	return nil
}

// Delete removes the record for id.
func (s *MongoStore) Delete(ctx context.Context, id string) error {
	if _, err := s.collection.DeleteOne(ctx, bson.M{"id": id}); err != nil {
		return eris.Wrap(err, "failed to delete record")
	}
	return nil
}

// GetAll returns every record ordered by id.
func (s *MongoStore) GetAll(ctx context.Context) ([][]byte, error) {
	opts := options.Find().SetSort(bson.D{{Key: "id", Value: 1}})
	cursor, err := s.collection.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, eris.Wrap(err, "failed to list records")
	}
	defer cursor.Close(ctx)

	var out [][]byte
	for cursor.Next(ctx) {
		var doc recordDocument
		if err := cursor.Decode(&doc); err != nil {
			return nil, eris.Wrap(err, "failed to decode record")
		}
		record, err := recordToJSON(doc.Record)
		if err != nil {
			return nil, err
		}
		out = append(out, record)
	}
	return out, cursor.Err()
}

func recordToJSON(raw bson.Raw) ([]byte, error) {
	data, err := bson.MarshalExtJSON(raw, false, false)
	if err != nil {
		return nil, eris.Wrap(err, "failed to marshal record to JSON")
	}
	return data, nil
}

var (
	_ Database = (*MongoDatabase)(nil)
	_ Store    = (*MongoStore)(nil)
)
