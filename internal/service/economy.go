package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"arrodes-economy/internal/announce"
	"arrodes-economy/internal/cache"
	"arrodes-economy/internal/catalog"
	"arrodes-economy/internal/escrow"
	"arrodes-economy/internal/growth"
	"arrodes-economy/internal/inventory"
	"arrodes-economy/internal/logging"
	"arrodes-economy/internal/model"
	"arrodes-economy/internal/shop"
	"arrodes-economy/pkg/gameerr"

	"github.com/rs/zerolog"
)

// Lootbox contents.
const (
	LootboxMinItems = 1
	LootboxMaxItems = 5
)

// Economy is the entry point for every game command. It is the single writer:
// each command, and every flush, runs under one lock, so an entity obtained
// from a cache is never evicted while a command is using it.
type Economy struct {
	mu sync.Mutex

	accounts   *cache.Cache[*model.Account]
	registries []*growth.Registry
	escrow     *escrow.Protocol
	shop       *shop.Shop
	catalog    *catalog.Catalog
	announcer  announce.Announcer
	now        func() time.Time
	log        zerolog.Logger

	revealCtx    context.Context
	revealCancel context.CancelFunc
	reveals      sync.WaitGroup
}

// Deps are the components an Economy drives.
type Deps struct {
	Accounts   *cache.Cache[*model.Account]
	Registries []*growth.Registry
	Escrow     *escrow.Protocol
	Shop       *shop.Shop
	Catalog    *catalog.Catalog
	Announcer  announce.Announcer
	Logger     zerolog.Logger
	Now        func() time.Time
}

// NewEconomy wires the components together.
func NewEconomy(d Deps) *Economy {
	if d.Now == nil {
		d.Now = time.Now
	}
	if d.Announcer == nil {
		d.Announcer = announce.NewLogAnnouncer(d.Logger, 0)
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Economy{
		accounts:     d.Accounts,
		registries:   d.Registries,
		escrow:       d.Escrow,
		shop:         d.Shop,
		catalog:      d.Catalog,
		announcer:    d.Announcer,
		now:          d.Now,
		log:          logging.Component(d.Logger, "economy"),
		revealCtx:    ctx,
		revealCancel: cancel,
	}
}

// Catalog returns the item catalog.
func (e *Economy) Catalog() *catalog.Catalog {
	return e.catalog
}

// Registry returns the growth registry called name.
func (e *Economy) Registry(name string) (*growth.Registry, error) {
	for _, r := range e.registries {
		if r.Name() == name {
			return r, nil
		}
	}
	return nil, gameerr.NotFound("unknown growth registry %q", name)
}

// Account returns a snapshot of the account, creating it on first use.
func (e *Economy) Account(ctx context.Context, id string) (model.AccountView, error) {
	if err := requireID(id); err != nil {
		return model.AccountView{}, err
	}
	e.mu.Lock()
	defer e.mu.Unlock()

	a, err := e.accounts.Get(ctx, id)
	if err != nil {
		return model.AccountView{}, err
	}
	return a.View(), nil
}

// Gift moves items from one account to another. Every line is checked
// before anything moves.
func (e *Economy) Gift(ctx context.Context, from, to string, items inventory.Items) error {
	if err := requireID(from); err != nil {
		return err
	}
	if err := requireID(to); err != nil {
		return err
	}
	if from == to {
		return gameerr.Conflict("cannot gift items to yourself")
	}
	if err := inventory.Validate(items, 0); err != nil {
		return err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	sender, err := e.accounts.Get(ctx, from)
	if err != nil {
		return err
	}
	recipient, err := e.accounts.Get(ctx, to)
	if err != nil {
		return err
	}
	if err := sender.Inventory().Covers(items); err != nil {
		return err
	}

	sender.Inventory().RemoveItems(items)
	recipient.Inventory().AddItems(items)

	e.log.Info().Str("from", from).Str("to", to).Int("items", items.Total()).Msg("gift")
	return nil
}

// OpenLootboxes opens n lootboxes. All contents are granted before the
// reveal starts; the returned list is the reveal order.
func (e *Economy) OpenLootboxes(ctx context.Context, user string, n int) ([]string, error) {
	if err := requireID(user); err != nil {
		return nil, err
	}
	if n <= 0 {
		return nil, gameerr.Invalid("amount must be greater than 0")
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	a, err := e.accounts.Get(ctx, user)
	if err != nil {
		return nil, err
	}
	if !a.Inventory().HasAmount(catalog.Lootbox, n) {
		return nil, gameerr.Insufficient("you do not have x%d of %s", n, catalog.Lootbox)
	}

	var items []string
	for range n {
		items = append(items, e.catalog.Random(e.catalog.Between(LootboxMinItems, LootboxMaxItems))...)
	}
	a.Inventory().Remove(catalog.Lootbox, n)
	a.Inventory().AddItems(inventory.FromList(items))

	e.present(user, "Opening Lootboxes", items)
	return items, nil
}

// Discard destroys items from the user's inventory.
func (e *Economy) Discard(ctx context.Context, user string, items inventory.Items) error {
	if err := requireID(user); err != nil {
		return err
	}
	if err := inventory.Validate(items, 0); err != nil {
		return err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	a, err := e.accounts.Get(ctx, user)
	if err != nil {
		return err
	}
	if err := a.Inventory().Covers(items); err != nil {
		return err
	}
	a.Inventory().RemoveItems(items)
	return nil
}

// StartGrowth starts an asset of kind in the named registry, paying its cost.
func (e *Economy) StartGrowth(ctx context.Context, registry, user, kind string) (model.TimedAsset, error) {
	if err := requireID(user); err != nil {
		return model.TimedAsset{}, err
	}
	r, err := e.Registry(registry)
	if err != nil {
		return model.TimedAsset{}, err
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	return r.Start(ctx, user, kind)
}

// Plant plants a seed of kind.
func (e *Economy) Plant(ctx context.Context, user, kind string) (model.TimedAsset, error) {
	return e.StartGrowth(ctx, growth.Plants, user, kind)
}

// GrowBee starts raising a bee of kind.
func (e *Economy) GrowBee(ctx context.Context, user, kind string) (model.TimedAsset, error) {
	return e.StartGrowth(ctx, growth.Bees, user, kind)
}

// HatchEgg starts hatching an egg.
func (e *Economy) HatchEgg(ctx context.Context, user string) (model.TimedAsset, error) {
	return e.StartGrowth(ctx, growth.Pets, user, "egg")
}

// CheckGrowth resolves every ready asset of user across all registries and
// announces the harvests.
func (e *Economy) CheckGrowth(ctx context.Context, user string) ([]growth.Harvest, error) {
	if err := requireID(user); err != nil {
		return nil, err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	now := e.now()
	var (
		all []growth.Harvest
		err error
	)
	for _, r := range e.registries {
		var harvests []growth.Harvest
		harvests, err = r.CheckForCompletion(ctx, user, now)
		all = append(all, harvests...)
		if err != nil {
			break
		}
	}

	// Harvests already applied are announced even if a later registry failed.
	for _, h := range all {
		if len(h.Reward.Items) > 0 {
			e.present(user, "Harvesting "+h.Asset.Name, h.Reward.Items)
		}
	}
	return all, err
}

// Growth lists the user's assets per registry.
func (e *Economy) Growth(ctx context.Context, user string) (map[string][]growth.Status, error) {
	if err := requireID(user); err != nil {
		return nil, err
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	return e.growthStatus(ctx, user)
}

func (e *Economy) growthStatus(ctx context.Context, user string) (map[string][]growth.Status, error) {
	out := make(map[string][]growth.Status, len(e.registries))
	for _, r := range e.registries {
		list, err := r.List(ctx, user)
		if err != nil {
			return nil, err
		}
		out[r.Name()] = list
	}
	return out, nil
}

// CreateOffer posts a trade offer.
func (e *Economy) CreateOffer(ctx context.Context, id, seller string, items inventory.Items, allowList []string) (escrow.View, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.escrow.CreateOffer(ctx, id, seller, items, allowList)
}

// AcceptOffer accepts a posted offer.
func (e *Economy) AcceptOffer(ctx context.Context, id, trader string, items inventory.Items) (escrow.View, error) {
	if err := requireID(trader); err != nil {
		return escrow.View{}, err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.escrow.AcceptOffer(ctx, id, trader, items)
}

// ConfirmTrade completes an accepted trade.
func (e *Economy) ConfirmTrade(ctx context.Context, id, caller string) (escrow.View, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.escrow.Confirm(ctx, id, caller)
}

// CancelTrade cancels an offer or trade. A non-empty caller must be one of
// its parties.
func (e *Economy) CancelTrade(ctx context.Context, id, caller string) (escrow.View, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if caller != "" {
		v, err := e.escrow.Get(id)
		if err != nil {
			return escrow.View{}, err
		}
		if caller != v.Seller && caller != v.Trader {
			return escrow.View{}, gameerr.Conflict("%s is not part of trade %s", caller, id)
		}
	}
	return e.escrow.Cancel(ctx, id)
}

// Trade returns the offer or trade with id.
func (e *Economy) Trade(id string) (escrow.View, error) {
	return e.escrow.Get(id)
}

// IsTrading reports whether user has an open offer or trade.
func (e *Economy) IsTrading(user string) bool {
	return e.escrow.IsTrading(user)
}

// Sell lists items in the shop.
func (e *Economy) Sell(ctx context.Context, seller, item string, amount int, price int64) (model.Sale, error) {
	if err := requireID(seller); err != nil {
		return model.Sale{}, err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.shop.Sell(ctx, seller, item, amount, price)
}

// Buy buys a listing.
func (e *Economy) Buy(ctx context.Context, saleID, buyer string) (model.Sale, error) {
	if err := requireID(buyer); err != nil {
		return model.Sale{}, err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.shop.Buy(ctx, saleID, buyer)
}

// CancelSale withdraws a listing.
func (e *Economy) CancelSale(ctx context.Context, saleID, caller string) (model.Sale, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.shop.CancelSale(ctx, saleID, caller)
}

// Sales lists the shop, optionally only one seller's listings.
func (e *Economy) Sales(seller string) []model.Sale {
	if seller != "" {
		return e.shop.ListBy(seller)
	}
	return e.shop.List()
}

// DeleteAccount cancels the user's trade and listings, then removes their
// account and growth storages from the caches and the store.
func (e *Economy) DeleteAccount(ctx context.Context, id string) error {
	if err := requireID(id); err != nil {
		return err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if _, _, err := e.escrow.CancelFor(ctx, id); err != nil {
		return err
	}
	if _, err := e.shop.CancelAllFor(ctx, id); err != nil {
		return err
	}
	// Cancelling may have refunded the counterparty; only this user's
	// records go.
	var errs []error
	for _, r := range e.registries {
		if err := r.DeleteStorage(ctx, id); err != nil {
			errs = append(errs, err)
		}
	}
	if err := e.accounts.Delete(ctx, id); err != nil {
		errs = append(errs, err)
	}
	if err := errors.Join(errs...); err != nil {
		return err
	}

	e.log.Info().Str("id", id).Msg("account deleted")
	return nil
}

// Flush writes back and evicts every cache.
func (e *Economy) Flush(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.flush(ctx)
}

// flush writes growth storages before accounts: a resolved asset must be
// gone from the store before the reward it paid becomes durable.
func (e *Economy) flush(ctx context.Context) error {
	var errs []error
	for _, r := range e.registries {
		errs = append(errs, r.Flush(ctx))
	}
	errs = append(errs, e.accounts.Flush(ctx))
	return errors.Join(errs...)
}

// Shutdown returns escrowed items to their owners, stops pending reveals and
// flushes everything.
func (e *Economy) Shutdown(ctx context.Context) error {
	e.mu.Lock()
	n, cancelErr := e.escrow.CancelAll(ctx)
	flushErr := e.flush(ctx)
	e.mu.Unlock()

	e.revealCancel()
	e.reveals.Wait()

	e.log.Info().Int("trades_cancelled", n).Msg("economy shut down")
	return errors.Join(cancelErr, flushErr)
}

// Stats describes caches, escrow and shop.
type Stats struct {
	Caches []cache.Stats  `json:"caches"`
	Escrow map[string]int `json:"escrow"`
	Sales  int            `json:"sales"`
}

// Stats returns current counters. It reads entity state, so it runs under
// the writer lock like any command.
func (e *Economy) Stats() Stats {
	e.mu.Lock()
	defer e.mu.Unlock()

	s := Stats{
		Caches: []cache.Stats{e.accounts.Stats()},
		Escrow: e.escrow.Stats(),
		Sales:  e.shop.Len(),
	}
	for _, r := range e.registries {
		s.Caches = append(s.Caches, r.Stats())
	}
	return s
}

// present runs the reveal in the background. The grant it describes has
// already been applied.
func (e *Economy) present(user, title string, items []string) {
	a := announce.Announcement{User: user, Title: title, Items: append([]string(nil), items...)}
	e.reveals.Add(1)
	go func() {
		defer e.reveals.Done()
		if err := e.announcer.Announce(e.revealCtx, a); err != nil && !errors.Is(err, context.Canceled) {
			e.log.Warn().Err(err).Str("user", user).Msg("reveal failed")
		}
	}()
}

func requireID(id string) error {
	if id == "" {
		return gameerr.Invalid("user id is required")
	}
	return nil
}
