package repository

import (
	"context"
	"sort"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rotisserie/eris"
	"github.com/rs/zerolog"
)

// RedisConfig holds configuration for the Redis database.
type RedisConfig struct {
	Addr      string
	Password  string
	DB        int
	KeyPrefix string
}

// RedisDatabase stores each collection as a Redis hash of id → record, plus a
// sorted set of save times used for stats.
type RedisDatabase struct {
	client    *redis.Client
	keyPrefix string
	log       zerolog.Logger
}

// NewRedisDatabase connects to Redis.
func NewRedisDatabase(cfg RedisConfig, logger zerolog.Logger) (*RedisDatabase, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		PoolSize:     20,
		MinIdleConns: 5,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, eris.Wrap(err, "failed to ping Redis")
	}

	db := NewRedisDatabaseFromClient(client, cfg.KeyPrefix, logger)
	logger.Info().Int("db", cfg.DB).Str("prefix", db.keyPrefix).Msg("Redis database initialized")
	return db, nil
}

// NewRedisDatabaseFromClient wraps an existing client.
func NewRedisDatabaseFromClient(client *redis.Client, keyPrefix string, logger zerolog.Logger) *RedisDatabase {
	if keyPrefix == "" {
		keyPrefix = "arrodes:economy"
	}
	return &RedisDatabase{client: client, keyPrefix: keyPrefix, log: logger}
}

// Collection returns the store for the named collection.
func (d *RedisDatabase) Collection(name string) Store {
	return &RedisStore{
		client:   d.client,
		dataKey:  d.keyPrefix + ":" + name,
		savedKey: d.keyPrefix + ":" + name + ":saved",
	}
}

func (d *RedisDatabase) Ping(ctx context.Context) error {
	return d.client.Ping(ctx).Err()
}

// GetStats returns per-collection record counts.
func (d *RedisDatabase) GetStats(ctx context.Context) (map[string]interface{}, error) {
	stats := make(map[string]interface{})
	stats["driver"] = "redis"

	counts := make(map[string]interface{})
	var lastSave int64
	for _, name := range []string{CollectionAccounts, CollectionPlants, CollectionBees, CollectionPets, CollectionShop} {
		n, err := d.client.HLen(ctx, d.keyPrefix+":"+name).Result()
		if err != nil {
			return stats, eris.Wrapf(err, "failed to count %s", name)
		}
		counts[name] = n

		last, err := d.client.ZRevRangeWithScores(ctx, d.keyPrefix+":"+name+":saved", 0, 0).Result()
		if err != nil {
			return stats, eris.Wrapf(err, "failed to read save times of %s", name)
		}
		if len(last) == 1 && int64(last[0].Score) > lastSave {
			lastSave = int64(last[0].Score)
		}
	}
	stats["collections"] = counts
	if lastSave > 0 {
		stats["last_save"] = time.Unix(lastSave, 0).UTC().Format(time.RFC3339)
	}
	return stats, nil
}

// Close closes the Redis client.
func (d *RedisDatabase) Close() error {
	return d.client.Close()
}

// RedisStore is one collection hash.
type RedisStore struct {
	client   *redis.Client
	dataKey  string
	savedKey string
}

// Get retrieves the record for id.
func (s *RedisStore) Get(ctx context.Context, id string) ([]byte, error) {
	data, err := s.client.HGet(ctx, s.dataKey, id).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrap(err, "failed to get record")
	}
	return data, nil
}

// Save stores the record and its save time in one pipeline.
func (s *RedisStore) Save(ctx context.Context, id string, record []byte) error {
	pipe := s.client.TxPipeline()
	pipe.HSet(ctx, s.dataKey, id, record)
	pipe.ZAdd(ctx, s.savedKey, redis.Z{Score: float64(time.Now().Unix()), Member: id})
	if _, err := pipe.Exec(ctx); err != nil {
		return eris.Wrap(err, "failed to save record")
	}
	return nil
}

// Delete removes the record for id.
func (s *RedisStore) Delete(ctx context.Context, id string) error {
	pipe := s.client.TxPipeline()
	pipe.HDel(ctx, s.dataKey, id)
	pipe.ZRem(ctx, s.savedKey, id)
	if _, err := pipe.Exec(ctx); err != nil {
		return eris.Wrap(err, "failed to delete record")
	}
	return nil
}

// GetAll returns every record ordered by id.
func (s *RedisStore) GetAll(ctx context.Context) ([][]byte, error) {
	all, err := s.client.HGetAll(ctx, s.dataKey).Result()
	if err != nil {
		return nil, eris.Wrap(err, "failed to list records")
	}

	ids := make([]string, 0, len(all))
	for id := range all {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	out := make([][]byte, 0, len(ids))
	for _, id := range ids {
		out = append(out, []byte(all[id]))
	}
	return out, nil
}

var (
	_ Database = (*RedisDatabase)(nil)
	_ Store    = (*RedisStore)(nil)
)
