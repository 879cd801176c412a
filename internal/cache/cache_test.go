package cache

import (
	"context"
	"encoding/json"
	"strconv"
	"testing"

	"arrodes-economy/internal/repository"
	"arrodes-economy/pkg/gameerr"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type counter struct {
	DirtyFlag
	Value int
}

func (c *counter) Inc() {
	c.Value++
	c.MarkDirty()
}

type counterCodec struct{ start int }

func (cc counterCodec) New(id string) *counter { return &counter{Value: cc.start} }

func (counterCodec) Decode(id string, record []byte) (*counter, error) {
	var c counter
	if err := json.Unmarshal(record, &c); err != nil {
		return nil, err
	}
	return &c, nil
}

func (counterCodec) Encode(c *counter) ([]byte, error) {
	return json.Marshal(c)
}

// flakyStore fails every Save while failing is set and every Get while
// unreachable is set.
type flakyStore struct {
	*repository.MemoryStore
	failing     bool
	unreachable bool
	saves       int
}

func (s *flakyStore) Get(ctx context.Context, id string) ([]byte, error) {
	if s.unreachable {
		return nil, eris.New("connection refused")
	}
	return s.MemoryStore.Get(ctx, id)
}

func (s *flakyStore) Save(ctx context.Context, id string, record []byte) error {
	if s.failing {
		return eris.New("connection reset")
	}
	s.saves++
	return s.MemoryStore.Save(ctx, id, record)
}

func newTestCache(t *testing.T, start int) (*Cache[*counter], *flakyStore) {
	t.Helper()
	store := &flakyStore{MemoryStore: repository.NewMemoryStore()}
	return New[*counter]("counters", store, counterCodec{start: start}), store
}

func stored(t *testing.T, store repository.Store, id string) int {
	t.Helper()
	record, err := store.Get(context.Background(), id)
	require.NoError(t, err)
	require.NotNil(t, record, "no record for %s", id)
	var c counter
	require.NoError(t, json.Unmarshal(record, &c))
	return c.Value
}

func TestGetReturnsSameInstance(t *testing.T) {
	ctx := context.Background()
	c, _ := newTestCache(t, 0)

	a, err := c.Get(ctx, "alice")
	require.NoError(t, err)
	b, err := c.Get(ctx, "alice")
	require.NoError(t, err)

	assert.Same(t, a, b)
	assert.True(t, c.Loaded("alice"))
}

func TestNewEntitySeededAndClean(t *testing.T) {
	ctx := context.Background()
	c, store := newTestCache(t, 100)

	v, err := c.Get(ctx, "bob")
	require.NoError(t, err)
	assert.Equal(t, 100, v.Value)
	assert.False(t, v.IsDirty())

	// A clean seeded entity is not written back.
	require.NoError(t, c.Flush(ctx))
	assert.Equal(t, 0, store.saves)
	assert.False(t, c.Loaded("bob"))
}

func TestFlushWritesDirtyAndEvicts(t *testing.T) {
	ctx := context.Background()
	c, store := newTestCache(t, 0)

	v, err := c.Get(ctx, "alice")
	require.NoError(t, err)
	v.Inc()
	v.Inc()

	require.NoError(t, c.Flush(ctx))
	assert.Equal(t, 2, stored(t, store, "alice"))
	assert.False(t, c.Loaded("alice"))

	reloaded, err := c.Get(ctx, "alice")
	require.NoError(t, err)
	assert.NotSame(t, v, reloaded)
	assert.Equal(t, 2, reloaded.Value)
}

func TestOutOfBandEditVisibleAfterFlush(t *testing.T) {
	ctx := context.Background()
	c, store := newTestCache(t, 0)

	_, err := c.Get(ctx, "alice")
	require.NoError(t, err)
	require.NoError(t, store.MemoryStore.Save(ctx, "alice", []byte(`{"Value":42}`)))

	// Still served from memory until the next flush.
	v, err := c.Get(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, 0, v.Value)

	require.NoError(t, c.Flush(ctx))
	v, err = c.Get(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, 42, v.Value)
}

func TestFailedSaveStaysLoadedAndDirty(t *testing.T) {
	ctx := context.Background()
	c, store := newTestCache(t, 0)

	v, err := c.Get(ctx, "alice")
	require.NoError(t, err)
	v.Inc()

	store.failing = true
	err = c.Flush(ctx)
	require.Error(t, err)
	assert.ErrorIs(t, err, gameerr.ErrStoreUnavailable)
	assert.True(t, c.Loaded("alice"))
	assert.True(t, v.IsDirty())

	same, err := c.Get(ctx, "alice")
	require.NoError(t, err)
	assert.Same(t, v, same)

	store.failing = false
	require.NoError(t, c.Flush(ctx))
	assert.Equal(t, 1, stored(t, store, "alice"))
	assert.False(t, c.Loaded("alice"))
}

func TestFlushIsolatesFailures(t *testing.T) {
	ctx := context.Background()
	c, store := newTestCache(t, 0)

	for i := 0; i < 3; i++ {
		v, err := c.Get(ctx, "user"+strconv.Itoa(i))
		require.NoError(t, err)
		v.Inc()
	}

	store.failing = true
	require.Error(t, c.Flush(ctx))
	stats := c.Stats()
	assert.Equal(t, 3, stats.Loaded)
	assert.Equal(t, 3, stats.Dirty)
}

func TestDeleteForgetsEntity(t *testing.T) {
	ctx := context.Background()
	c, store := newTestCache(t, 5)

	v, err := c.Get(ctx, "alice")
	require.NoError(t, err)
	v.Inc()
	require.NoError(t, c.Flush(ctx))

	require.NoError(t, c.Delete(ctx, "alice"))
	record, err := store.Get(ctx, "alice")
	require.NoError(t, err)
	assert.Nil(t, record)

	fresh, err := c.Get(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, 5, fresh.Value)
}

func TestEvictDropsUnsavedChanges(t *testing.T) {
	ctx := context.Background()
	c, store := newTestCache(t, 0)

	v, err := c.Get(ctx, "alice")
	require.NoError(t, err)
	v.Inc()
	c.Evict("alice")

	assert.False(t, c.Loaded("alice"))
	assert.Equal(t, 0, store.Len())
}

func TestFlushIDOnlyTouchesOneEntry(t *testing.T) {
	ctx := context.Background()
	c, store := newTestCache(t, 0)

	a, err := c.Get(ctx, "alice")
	require.NoError(t, err)
	a.Inc()
	b, err := c.Get(ctx, "bob")
	require.NoError(t, err)
	b.Inc()

	require.NoError(t, c.FlushID(ctx, "alice"))
	assert.False(t, c.Loaded("alice"))
	assert.True(t, c.Loaded("bob"))
	assert.Equal(t, 1, store.saves)
}

func TestStats(t *testing.T) {
	ctx := context.Background()
	c, _ := newTestCache(t, 0)

	a, err := c.Get(ctx, "alice")
	require.NoError(t, err)
	a.Inc()
	_, err = c.Get(ctx, "bob")
	require.NoError(t, err)

	assert.Equal(t, Stats{Kind: "counters", Entries: 2, Loaded: 2, Dirty: 1}, c.Stats())
}

func TestGetStoreFailureLeavesEntryUnloaded(t *testing.T) {
	ctx := context.Background()
	c, store := newTestCache(t, 0)
	require.NoError(t, store.MemoryStore.Save(ctx, "alice", []byte(`{"Value":7}`)))

	store.unreachable = true
	_, err := c.Get(ctx, "alice")
	assert.ErrorIs(t, err, gameerr.ErrStoreUnavailable)
	assert.False(t, c.Loaded("alice"))

	store.unreachable = false
	got, err := c.Get(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, 7, got.Value, "the stored record is loaded, not a fresh seed")
	assert.True(t, c.Loaded("alice"))
}

func TestPersistWritesWithoutEvicting(t *testing.T) {
	ctx := context.Background()
	c, store := newTestCache(t, 0)

	a, err := c.Get(ctx, "alice")
	require.NoError(t, err)
	a.Inc()

	store.failing = true
	assert.ErrorIs(t, c.Persist(ctx, "alice"), gameerr.ErrStoreUnavailable)
	assert.True(t, a.IsDirty())

	store.failing = false
	require.NoError(t, c.Persist(ctx, "alice"))
	assert.False(t, a.IsDirty())
	assert.True(t, c.Loaded("alice"))
	assert.Equal(t, 1, stored(t, store, "alice"))

	same, err := c.Get(ctx, "alice")
	require.NoError(t, err)
	assert.Same(t, a, same)

	require.NoError(t, c.Persist(ctx, "alice"))
	assert.Equal(t, 1, store.saves, "a clean entity is not written again")
	assert.NoError(t, c.Persist(ctx, "nobody"))
}
