// Package growth manages assets that are started now and resolved later.
//
// Resolution is pull-based: nothing happens when an asset's finishing time
// passes. CheckForCompletion resolves every ready asset of one owner, and the
// service calls it when the owner asks for their status.
package growth

import (
	"context"
	"sort"
	"time"

	"arrodes-economy/internal/cache"
	"arrodes-economy/internal/inventory"
	"arrodes-economy/internal/logging"
	"arrodes-economy/internal/model"
	"arrodes-economy/pkg/gameerr"

	"github.com/rs/zerolog"
)

// Reward is what a resolved asset grants. Items is in presentation order and
// may repeat ids.
type Reward struct {
	Items   []string `json:"items"`
	Balance int64    `json:"balance,omitempty"`
}

// Quantities collapses the item list into a quantity map.
func (r Reward) Quantities() inventory.Items {
	return inventory.FromList(r.Items)
}

// Producer computes the reward for a detached asset. It must not mutate
// anything; the registry applies the result.
type Producer func(asset model.TimedAsset) Reward

// Kind describes one sort of asset a registry can grow.
type Kind struct {
	Tag      string
	Name     string
	Duration time.Duration
	// Cost is taken from the owner's inventory by Start.
	Cost    inventory.Items
	Produce Producer
	// Retain keeps resolved assets in storage, flagged completed.
	Retain bool
	// Species, when set, gives each started asset pet progression.
	Species string
}

// Harvest records one resolved asset and the reward already applied for it.
type Harvest struct {
	Registry string           `json:"registry"`
	Asset    model.TimedAsset `json:"asset"`
	Reward   Reward           `json:"reward"`
}

// Status is an asset with its remaining time.
type Status struct {
	model.TimedAsset
	TimeLeft time.Duration `json:"time_left"`
}

// Registry is the growth area for one asset family (plants, bees, pets).
// Storages and accounts come from injected caches. Callers serialize access.
type Registry struct {
	name     string
	storages *cache.Cache[*model.GrowthStorage]
	accounts *cache.Cache[*model.Account]
	kinds    map[string]Kind
	now      func() time.Time
	log      zerolog.Logger
}

// Option configures a Registry.
type Option func(*Registry)

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(r *Registry) { r.now = now }
}

// WithLogger sets the parent logger.
func WithLogger(l zerolog.Logger) Option {
	return func(r *Registry) { r.log = logging.Component(l, "growth").With().Str("registry", r.name).Logger() }
}

// NewRegistry creates a registry named name growing kinds.
func NewRegistry(
	name string,
	storages *cache.Cache[*model.GrowthStorage],
	accounts *cache.Cache[*model.Account],
	kinds []Kind,
	opts ...Option,
) *Registry {
	r := &Registry{
		name:     name,
		storages: storages,
		accounts: accounts,
		kinds:    make(map[string]Kind, len(kinds)),
		now:      time.Now,
		log:      logging.Nop(),
	}
	for _, k := range kinds {
		r.kinds[k.Tag] = k
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *Registry) Name() string { return r.name }

// Kind returns the registered kind for tag.
func (r *Registry) Kind(tag string) (Kind, bool) {
	k, ok := r.kinds[tag]
	return k, ok
}

// Kinds returns the registered kinds ordered by tag.
func (r *Registry) Kinds() []Kind {
	out := make([]Kind, 0, len(r.kinds))
	for _, k := range r.kinds {
		out = append(out, k)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Tag < out[j].Tag })
	return out
}

func (r *Registry) kind(tag string) (Kind, error) {
	k, ok := r.kinds[tag]
	if !ok {
		return Kind{}, gameerr.NotFound("%s cannot grow %q", r.name, tag)
	}
	return k, nil
}

// Start pays the kind's cost from the owner's inventory and starts growing it
// for the kind's duration.
func (r *Registry) Start(ctx context.Context, owner, tag string) (model.TimedAsset, error) {
	k, err := r.kind(tag)
	if err != nil {
		return model.TimedAsset{}, err
	}

	account, err := r.accounts.Get(ctx, owner)
	if err != nil {
		return model.TimedAsset{}, err
	}
	if len(k.Cost) > 0 {
		if err := account.Inventory().Covers(k.Cost); err != nil {
			return model.TimedAsset{}, err
		}
	}
	storage, err := r.storages.Get(ctx, owner)
	if err != nil {
		return model.TimedAsset{}, err
	}

	account.Inventory().RemoveItems(k.Cost)
	return r.append(storage, k, k.Duration), nil
}

// StartAsset starts growing an asset of kind for an explicit duration without
// charging its cost.
func (r *Registry) StartAsset(ctx context.Context, owner string, duration time.Duration, tag string) (model.TimedAsset, error) {
	if duration < 0 {
		return model.TimedAsset{}, gameerr.Invalid("duration %s must not be negative", duration)
	}
	k, err := r.kind(tag)
	if err != nil {
		return model.TimedAsset{}, err
	}
	storage, err := r.storages.Get(ctx, owner)
	if err != nil {
		return model.TimedAsset{}, err
	}
	return r.append(storage, k, duration), nil
}

func (r *Registry) append(storage *model.GrowthStorage, k Kind, d time.Duration) model.TimedAsset {
	// Stored with second precision.
	finish := time.Unix(r.now().Add(d).Unix(), 0)
	asset := model.TimedAsset{
		Kind:          k.Tag,
		Name:          k.Name,
		FinishingTime: finish,
	}
	if k.Species != "" {
		asset.Pet = model.NewPetState(k.Species)
	}
	asset = storage.Append(asset)
	r.log.Debug().Str("owner", storage.ID()).Uint64("slot", asset.Slot).Str("kind", k.Tag).Time("finishing_time", finish).Msg("started")
	return asset
}

// CheckForCompletion resolves every asset of owner that is ready at now, in
// slot order. Ready assets leave storage (or are flagged completed for
// retained kinds) and that change is written to the store before any reward
// is produced, so a crash after the grant can never resolve them again. If
// the write fails the assets are put back and nothing is granted.
func (r *Registry) CheckForCompletion(ctx context.Context, owner string, now time.Time) ([]Harvest, error) {
	storage, err := r.storages.Get(ctx, owner)
	if err != nil {
		return nil, err
	}
	account, err := r.accounts.Get(ctx, owner)
	if err != nil {
		return nil, err
	}

	type resolved struct {
		before   model.TimedAsset
		detached model.TimedAsset
		kind     Kind
	}
	var ready []resolved
	for _, asset := range storage.Snapshot() {
		if !asset.Ready(now) {
			continue
		}
		k, ok := r.kinds[asset.Kind]
		if !ok {
			r.log.Warn().Str("owner", owner).Uint64("slot", asset.Slot).Str("kind", asset.Kind).Msg("unknown kind, leaving asset in place")
			continue
		}

		var detached model.TimedAsset
		if k.Retain {
			detached, _ = storage.MarkCompleted(asset.Slot)
		} else {
			detached, _ = storage.Remove(asset.Slot)
		}
		ready = append(ready, resolved{before: asset, detached: detached, kind: k})
	}
	if len(ready) == 0 {
		return nil, nil
	}

	if err := r.storages.Persist(ctx, owner); err != nil {
		for _, res := range ready {
			storage.Restore(res.before)
		}
		r.log.Warn().Err(err).Str("owner", owner).Int("ready", len(ready)).Msg("could not record resolution, assets kept")
		return nil, err
	}

	harvests := make([]Harvest, 0, len(ready))
	for _, res := range ready {
		var reward Reward
		if res.kind.Produce != nil {
			reward = res.kind.Produce(res.detached)
		}
		account.Inventory().AddItems(reward.Quantities())
		account.AddBalance(reward.Balance)

		harvests = append(harvests, Harvest{Registry: r.name, Asset: res.detached, Reward: reward})
	}

	r.log.Info().Str("owner", owner).Int("resolved", len(harvests)).Msg("assets resolved")
	return harvests, nil
}

// List returns the owner's assets in slot order with their remaining time.
func (r *Registry) List(ctx context.Context, owner string) ([]Status, error) {
	storage, err := r.storages.Get(ctx, owner)
	if err != nil {
		return nil, err
	}
	now := r.now()
	assets := storage.Snapshot()
	out := make([]Status, 0, len(assets))
	for _, a := range assets {
		out = append(out, Status{TimedAsset: a, TimeLeft: a.TimeLeft(now)})
	}
	return out, nil
}

// DeleteStorage removes the owner's storage from the cache and the store.
func (r *Registry) DeleteStorage(ctx context.Context, owner string) error {
	return r.storages.Delete(ctx, owner)
}

// Flush writes back and evicts the registry's storages.
func (r *Registry) Flush(ctx context.Context) error {
	return r.storages.Flush(ctx)
}

// Stats describes the registry's storage cache.
func (r *Registry) Stats() cache.Stats {
	return r.storages.Stats()
}
