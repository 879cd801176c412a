package cache

import (
	"context"
	"errors"
	"sort"
	"sync"

	"arrodes-economy/internal/logging"
	"arrodes-economy/internal/repository"
	"arrodes-economy/pkg/gameerr"

	"github.com/rotisserie/eris"
	"github.com/rs/zerolog"
)

// entry is the identity-map slot for one id. It outlives flushes: only the
// loaded value is dropped on eviction.
type entry[T Entity] struct {
	id     string
	value  T
	loaded bool
}

// Cache is a write-back identity map for one entity kind. At most one live
// instance exists per id; Get hands every caller the same pointer until the
// next flush evicts it.
//
// The cache guards its own map. Mutation of the entities it returns must be
// serialized by the caller (see service.Economy), and flushes must run under
// the same discipline so an entity is never evicted while a command holds it.
type Cache[T Entity] struct {
	kind  string
	store repository.Store
	codec Codec[T]
	log   zerolog.Logger

	mu      sync.Mutex
	entries map[string]*entry[T]
}

// Option configures a Cache.
type Option func(*options)

type options struct {
	logger zerolog.Logger
}

// WithLogger sets the parent logger.
func WithLogger(l zerolog.Logger) Option {
	return func(o *options) { o.logger = l }
}

// New creates a cache for kind backed by store.
func New[T Entity](kind string, store repository.Store, codec Codec[T], opts ...Option) *Cache[T] {
	o := options{logger: logging.Nop()}
	for _, opt := range opts {
		opt(&o)
	}
	return &Cache[T]{
		kind:    kind,
		store:   store,
		codec:   codec,
		log:     logging.Component(o.logger, "cache").With().Str("kind", kind).Logger(),
		entries: make(map[string]*entry[T]),
	}
}

// Kind returns the entity kind this cache serves.
func (c *Cache[T]) Kind() string {
	return c.kind
}

// Get returns the live entity for id, loading it on first use. An id absent
// from the store yields a freshly seeded entity. A store failure leaves the
// entry unloaded and returns an error wrapping gameerr.ErrStoreUnavailable.
func (c *Cache[T]) Get(ctx context.Context, id string) (T, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[id]
	if !ok {
		e = &entry[T]{id: id}
		c.entries[id] = e
	}
	if e.loaded {
		return e.value, nil
	}

	var zero T
	record, err := c.store.Get(ctx, id)
	if err != nil {
		return zero, gameerr.Unavailable(err, "load %s %s", c.kind, id)
	}

	var value T
	if record == nil {
		value = c.codec.New(id)
		c.log.Debug().Str("id", id).Msg("seeded new entity")
	} else {
		value, err = c.codec.Decode(id, record)
		if err != nil {
			return zero, eris.Wrapf(err, "decode %s %s", c.kind, id)
		}
	}
	value.ClearDirty()

	e.value = value
	e.loaded = true
	return value, nil
}

// Loaded reports whether id currently has a live instance.
func (c *Cache[T]) Loaded(id string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[id]
	return ok && e.loaded
}

// Flush writes back every dirty loaded entity and evicts every loaded entity.
// An entity whose save fails stays loaded and dirty so the next flush retries
// it. The returned error joins every save failure.
func (c *Cache[T]) Flush(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	ids := make([]string, 0, len(c.entries))
	for id, e := range c.entries {
		if e.loaded {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)

	var errs []error
	saved := 0
	for _, id := range ids {
		wrote, err := c.flushEntry(ctx, c.entries[id])
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if wrote {
			saved++
		}
	}

	if len(ids) > 0 {
		c.log.Debug().Int("evicted", len(ids)-len(errs)).Int("saved", saved).Int("failed", len(errs)).Msg("flushed")
	}
	return errors.Join(errs...)
}

// FlushID writes back and evicts a single id.
func (c *Cache[T]) FlushID(ctx context.Context, id string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[id]
	if !ok || !e.loaded {
		return nil
	}
	_, err := c.flushEntry(ctx, e)
	return err
}

// Persist writes back id if it is loaded and dirty, keeping it loaded. It
// makes a mutation durable before the caller acts on it.
func (c *Cache[T]) Persist(ctx context.Context, id string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[id]
	if !ok || !e.loaded {
		return nil
	}
	_, err := c.writeBack(ctx, e)
	return err
}

func (c *Cache[T]) flushEntry(ctx context.Context, e *entry[T]) (bool, error) {
	wrote, err := c.writeBack(ctx, e)
	if err != nil {
		return false, err
	}
	c.evict(e)
	return wrote, nil
}

// writeBack saves a dirty entity and clears its flag. A failed save leaves
// it dirty.
func (c *Cache[T]) writeBack(ctx context.Context, e *entry[T]) (bool, error) {
	if !e.value.IsDirty() {
		return false, nil
	}
	record, err := c.codec.Encode(e.value)
	if err != nil {
		c.log.Error().Err(err).Str("id", e.id).Msg("encode failed, keeping entity loaded")
		return false, eris.Wrapf(err, "encode %s %s", c.kind, e.id)
	}
	if err := c.store.Save(ctx, e.id, record); err != nil {
		c.log.Warn().Err(err).Str("id", e.id).Msg("save failed, will retry on next flush")
		return false, gameerr.Unavailable(err, "save %s %s", c.kind, e.id)
	}
	e.value.ClearDirty()
	return true, nil
}

// Evict drops the live instance of id without saving it.
func (c *Cache[T]) Evict(id string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if e, ok := c.entries[id]; ok {
		c.evict(e)
	}
}

func (c *Cache[T]) evict(e *entry[T]) {
	var zero T
	e.value = zero
	e.loaded = false
}

// Delete evicts id without saving, forgets it, and deletes it from the store.
func (c *Cache[T]) Delete(ctx context.Context, id string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if e, ok := c.entries[id]; ok {
		c.evict(e)
		delete(c.entries, id)
	}
	if err := c.store.Delete(ctx, id); err != nil {
		return gameerr.Unavailable(err, "delete %s %s", c.kind, id)
	}
	c.log.Info().Str("id", id).Msg("deleted")
	return nil
}

// Stats describes the identity map.
type Stats struct {
	Kind    string `json:"kind"`
	Entries int    `json:"entries"`
	Loaded  int    `json:"loaded"`
	Dirty   int    `json:"dirty"`
}

// Stats returns a snapshot of the identity map counters.
func (c *Cache[T]) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()

	s := Stats{Kind: c.kind, Entries: len(c.entries)}
	for _, e := range c.entries {
		if !e.loaded {
			continue
		}
		s.Loaded++
		if e.value.IsDirty() {
			s.Dirty++
		}
	}
	return s
}
