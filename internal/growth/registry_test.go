package growth

import (
	"context"
	"errors"
	"math/rand/v2"
	"testing"
	"time"

	"arrodes-economy/internal/cache"
	"arrodes-economy/internal/catalog"
	"arrodes-economy/internal/inventory"
	"arrodes-economy/internal/model"
	"arrodes-economy/internal/repository"
	"arrodes-economy/pkg/gameerr"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var epoch = time.Unix(1_700_000_000, 0)

type fixture struct {
	registry *Registry
	accounts *cache.Cache[*model.Account]
	storages *cache.Cache[*model.GrowthStorage]
	db       *repository.MemoryDatabase
	now      time.Time
}

func (f *fixture) account(t *testing.T, id string) *model.Account {
	t.Helper()
	a, err := f.accounts.Get(context.Background(), id)
	require.NoError(t, err)
	return a
}

// fixedKind rewards a fixed item list so harvests are predictable.
func fixedKind(tag string, d time.Duration, items ...string) Kind {
	return Kind{
		Tag:      tag,
		Name:     tag,
		Duration: d,
		Produce:  func(model.TimedAsset) Reward { return Reward{Items: items} },
	}
}

func newFixture(t *testing.T, kinds ...Kind) *fixture {
	t.Helper()
	f := &fixture{db: repository.NewMemoryDatabase(), now: epoch}
	f.accounts = cache.New[*model.Account]("accounts", f.db.Collection(repository.CollectionAccounts), model.AccountCodec{})
	f.storages = cache.New[*model.GrowthStorage]("plants", f.db.Collection(repository.CollectionPlants), model.GrowthCodec{})
	f.registry = NewRegistry(Plants, f.storages, f.accounts, kinds, WithClock(func() time.Time { return f.now }))
	return f
}

func TestCompletionBoundary(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, fixedKind("x", 0, "apple"))

	asset, err := f.registry.StartAsset(ctx, "alice", 600*time.Second, "x")
	require.NoError(t, err)
	assert.Equal(t, epoch.Add(600*time.Second), asset.FinishingTime)

	harvests, err := f.registry.CheckForCompletion(ctx, "alice", epoch.Add(599*time.Second))
	require.NoError(t, err)
	assert.Empty(t, harvests)
	assert.Equal(t, 0, f.account(t, "alice").Inventory().Count("apple"))

	harvests, err = f.registry.CheckForCompletion(ctx, "alice", epoch.Add(601*time.Second))
	require.NoError(t, err)
	require.Len(t, harvests, 1)
	assert.Equal(t, asset.Slot, harvests[0].Asset.Slot)
	assert.Equal(t, Plants, harvests[0].Registry)
	assert.Equal(t, 1, f.account(t, "alice").Inventory().Count("apple"))
}

func TestCompletionIsIdempotent(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, fixedKind("x", 0, "apple", "apple"))

	_, err := f.registry.StartAsset(ctx, "alice", time.Minute, "x")
	require.NoError(t, err)

	later := epoch.Add(time.Hour)
	first, err := f.registry.CheckForCompletion(ctx, "alice", later)
	require.NoError(t, err)
	require.Len(t, first, 1)

	second, err := f.registry.CheckForCompletion(ctx, "alice", later)
	require.NoError(t, err)
	assert.Empty(t, second)
	assert.Equal(t, 2, f.account(t, "alice").Inventory().Count("apple"))
}

func TestCompletionOrderAndPartial(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, fixedKind("x", 0, "apple"))

	_, err := f.registry.StartAsset(ctx, "alice", 3*time.Minute, "x")
	require.NoError(t, err)
	_, err = f.registry.StartAsset(ctx, "alice", time.Minute, "x")
	require.NoError(t, err)
	_, err = f.registry.StartAsset(ctx, "alice", time.Hour, "x")
	require.NoError(t, err)

	harvests, err := f.registry.CheckForCompletion(ctx, "alice", epoch.Add(5*time.Minute))
	require.NoError(t, err)
	require.Len(t, harvests, 2)
	assert.Equal(t, uint64(0), harvests[0].Asset.Slot)
	assert.Equal(t, uint64(1), harvests[1].Asset.Slot)

	left, err := f.registry.List(ctx, "alice")
	require.NoError(t, err)
	require.Len(t, left, 1)
	assert.Equal(t, uint64(2), left[0].Slot)
	assert.Equal(t, time.Hour, left[0].TimeLeft)
}

func TestStartChargesCost(t *testing.T) {
	ctx := context.Background()
	kind := fixedKind("x", 10*time.Minute, "apple")
	kind.Cost = inventory.Items{catalog.XSeed: 1, catalog.WaterDroplet: 1}
	f := newFixture(t, kind)

	_, err := f.registry.Start(ctx, "alice", "x")
	assert.ErrorIs(t, err, gameerr.ErrInsufficientResource)
	list, err := f.registry.List(ctx, "alice")
	require.NoError(t, err)
	assert.Empty(t, list)

	f.account(t, "alice").Inventory().AddItems(inventory.Items{catalog.XSeed: 1, catalog.WaterDroplet: 2})
	asset, err := f.registry.Start(ctx, "alice", "x")
	require.NoError(t, err)
	assert.Equal(t, epoch.Add(10*time.Minute), asset.FinishingTime)

	inv := f.account(t, "alice").Inventory()
	assert.Equal(t, 0, inv.Count(catalog.XSeed))
	assert.Equal(t, 1, inv.Count(catalog.WaterDroplet))
}

func TestStartUnknownKind(t *testing.T) {
	f := newFixture(t, fixedKind("x", 0))

	_, err := f.registry.Start(context.Background(), "alice", "banana")
	assert.ErrorIs(t, err, gameerr.ErrNotFound)

	_, err = f.registry.StartAsset(context.Background(), "alice", -time.Second, "x")
	assert.ErrorIs(t, err, gameerr.ErrValidation)
}

func TestRetainedKindStaysCompleted(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, PetKinds(DefaultDurations())...)
	f.account(t, "alice").Inventory().Add(catalog.Egg, 1)

	_, err := f.registry.Start(ctx, "alice", "egg")
	require.NoError(t, err)

	harvests, err := f.registry.CheckForCompletion(ctx, "alice", epoch.Add(2*time.Hour))
	require.NoError(t, err)
	require.Len(t, harvests, 1)
	assert.Empty(t, harvests[0].Reward.Items)
	assert.True(t, harvests[0].Asset.Completed)

	list, err := f.registry.List(ctx, "alice")
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.True(t, list[0].Completed)

	again, err := f.registry.CheckForCompletion(ctx, "alice", epoch.Add(3*time.Hour))
	require.NoError(t, err)
	assert.Empty(t, again)
}

func TestUnknownStoredKindLeftInPlace(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, fixedKind("x", 0, "apple"))
	require.NoError(t, f.db.Collection(repository.CollectionPlants).Save(ctx, "alice",
		[]byte(`{"id":"alice","next_slot":1,"storage":{"0":{"kind":"retired","name":"Old","finishing_time":0}}}`)))

	harvests, err := f.registry.CheckForCompletion(ctx, "alice", epoch)
	require.NoError(t, err)
	assert.Empty(t, harvests)

	list, err := f.registry.List(ctx, "alice")
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

func TestSurvivesFlush(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, fixedKind("x", 0, "apple"))

	_, err := f.registry.StartAsset(ctx, "alice", 10*time.Minute, "x")
	require.NoError(t, err)
	require.NoError(t, f.registry.Flush(ctx))
	require.NoError(t, f.accounts.Flush(ctx))
	assert.False(t, f.storages.Loaded("alice"))

	harvests, err := f.registry.CheckForCompletion(ctx, "alice", epoch.Add(11*time.Minute))
	require.NoError(t, err)
	assert.Len(t, harvests, 1)
}

func TestStockKindRewards(t *testing.T) {
	cat := catalog.Default(catalog.WithRand(rand.New(rand.NewPCG(3, 4))))
	asset := model.TimedAsset{}

	for _, k := range PlantKinds(cat, DefaultDurations()) {
		for range 50 {
			reward := k.Produce(asset)
			for _, id := range reward.Items {
				_, ok := cat.Lookup(id)
				require.True(t, ok, "%s produced unknown item %s", k.Tag, id)
			}
		}
	}

	bee := BeeKinds(cat, DefaultDurations())[0]
	for range 50 {
		items := bee.Produce(asset).Items
		require.GreaterOrEqual(t, len(items), 2)
		assert.Equal(t, catalog.Bee, items[len(items)-1], "the bee comes back")
	}
}

// unreliableStore fails every Save while down is set.
type unreliableStore struct {
	*repository.MemoryStore
	down bool
}

func (s *unreliableStore) Save(ctx context.Context, id string, record []byte) error {
	if s.down {
		return errors.New("store unavailable")
	}
	return s.MemoryStore.Save(ctx, id, record)
}

func TestCompletionRecordedBeforeReward(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, fixedKind("x", 0, "apple"))
	plants := &unreliableStore{MemoryStore: repository.NewMemoryStore()}
	f.storages = cache.New[*model.GrowthStorage]("plants", plants, model.GrowthCodec{})
	f.registry = NewRegistry(Plants, f.storages, f.accounts, []Kind{fixedKind("x", 0, "apple")}, WithClock(func() time.Time { return f.now }))

	_, err := f.registry.StartAsset(ctx, "alice", time.Minute, "x")
	require.NoError(t, err)
	require.NoError(t, f.registry.Flush(ctx))

	plants.down = true
	harvests, err := f.registry.CheckForCompletion(ctx, "alice", epoch.Add(time.Hour))
	assert.ErrorIs(t, err, gameerr.ErrStoreUnavailable)
	assert.Empty(t, harvests)
	assert.Equal(t, 0, f.account(t, "alice").Inventory().Count("apple"), "nothing granted while the removal is not stored")

	list, err := f.registry.List(ctx, "alice")
	require.NoError(t, err)
	assert.Len(t, list, 1, "the asset is kept for a later check")

	plants.down = false
	harvests, err = f.registry.CheckForCompletion(ctx, "alice", epoch.Add(time.Hour))
	require.NoError(t, err)
	require.Len(t, harvests, 1)
	assert.Equal(t, 1, f.account(t, "alice").Inventory().Count("apple"))

	// The removal is already in the store, without waiting for a flush.
	record, err := plants.Get(ctx, "alice")
	require.NoError(t, err)
	assert.JSONEq(t, `{"id":"alice","next_slot":1,"storage":{}}`, string(record))
}

func TestEggCarriesPetState(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, PetKinds(DefaultDurations())...)
	f.account(t, "alice").Inventory().Add(catalog.Egg, 1)

	asset, err := f.registry.Start(ctx, "alice", "egg")
	require.NoError(t, err)
	require.NotNil(t, asset.Pet)
	assert.Equal(t, model.PetState{Species: "egg", Level: 1, ExperienceCap: 100}, *asset.Pet)

	_, err = f.registry.CheckForCompletion(ctx, "alice", epoch.Add(2*time.Hour))
	require.NoError(t, err)
	require.NoError(t, f.registry.Flush(ctx))

	list, err := f.registry.List(ctx, "alice")
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.True(t, list[0].Completed)
	require.NotNil(t, list[0].Pet, "the hatched pet keeps its progression across a reload")
	assert.Equal(t, 1, list[0].Pet.Level)
}
