// Package shop is the player marketplace. A listed item leaves the seller's
// inventory and is held by the sale until it is bought or cancelled.
// Listings are persisted one record per sale and reloaded at startup.
package shop

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"arrodes-economy/internal/cache"
	"arrodes-economy/internal/logging"
	"arrodes-economy/internal/model"
	"arrodes-economy/internal/repository"
	"arrodes-economy/pkg/gameerr"

	"github.com/goccy/go-json"
	"github.com/rotisserie/eris"
	"github.com/rs/zerolog"
)

// Shop holds the active sale listings.
type Shop struct {
	store    repository.Store
	accounts *cache.Cache[*model.Account]
	ids      *IDGenerator
	now      func() time.Time
	log      zerolog.Logger

	mu    sync.Mutex
	sales map[string]*model.Sale
}

// Option configures a Shop.
type Option func(*Shop)

// WithIDGenerator replaces the sale id generator.
func WithIDGenerator(g *IDGenerator) Option {
	return func(s *Shop) { s.ids = g }
}

// WithLogger sets the parent logger.
func WithLogger(l zerolog.Logger) Option {
	return func(s *Shop) { s.log = logging.Component(l, "shop") }
}

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *Shop) { s.now = now }
}

// New creates an empty shop persisting listings to store.
func New(store repository.Store, accounts *cache.Cache[*model.Account], opts ...Option) *Shop {
	s := &Shop{
		store:    store,
		accounts: accounts,
		ids:      NewIDGenerator(nil),
		now:      time.Now,
		log:      logging.Nop(),
		sales:    make(map[string]*model.Sale),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// LoadAll replaces the in-memory listings with every stored sale.
func (s *Shop) LoadAll(ctx context.Context) (int, error) {
	records, err := s.store.GetAll(ctx)
	if err != nil {
		return 0, gameerr.Unavailable(err, "load sales")
	}

	sales := make(map[string]*model.Sale, len(records))
	for _, rec := range records {
		var sale model.Sale
		if err := json.Unmarshal(rec, &sale); err != nil {
			return 0, eris.Wrap(err, "decode sale")
		}
		if sale.ID == "" {
			s.log.Warn().Str("seller", sale.Seller).Msg("skipping stored sale without id")
			continue
		}
		sales[sale.ID] = &sale
	}

	s.mu.Lock()
	s.sales = sales
	s.mu.Unlock()

	s.log.Info().Int("sales", len(sales)).Msg("listings loaded")
	return len(sales), nil
}

// Sell lists amount of item from seller's inventory at price.
func (s *Shop) Sell(ctx context.Context, seller, item string, amount int, price int64) (model.Sale, error) {
	if item == "" {
		return model.Sale{}, gameerr.Invalid("item is required")
	}
	if amount <= 0 {
		return model.Sale{}, gameerr.Invalid("amount must be greater than 0")
	}
	if price < 0 {
		return model.Sale{}, gameerr.Invalid("price must not be negative")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	account, err := s.accounts.Get(ctx, seller)
	if err != nil {
		return model.Sale{}, err
	}
	if !account.Inventory().HasAmount(item, amount) {
		return model.Sale{}, gameerr.Insufficient("you do not have x%d of %s", amount, item)
	}

	sale := &model.Sale{
		ID:       s.ids.Next(s.taken),
		Seller:   seller,
		Item:     item,
		Amount:   amount,
		Price:    price,
		ListedAt: s.now().UTC(),
	}
	if err := s.save(ctx, sale); err != nil {
		return model.Sale{}, err
	}

	account.Inventory().Remove(item, amount)
	s.sales[sale.ID] = sale
	s.persist(ctx, seller)

	s.log.Info().Str("sale_id", sale.ID).Str("seller", seller).Str("item", item).Int("amount", amount).Int64("price", price).Msg("listed")
	return *sale, nil
}

// Buy transfers the sale's items to buyer and the price to the seller.
func (s *Shop) Buy(ctx context.Context, saleID, buyer string) (model.Sale, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sale, ok := s.sales[saleID]
	if !ok {
		return model.Sale{}, gameerr.NotFound("cannot find sale with id %s", saleID)
	}
	if sale.Seller == buyer {
		return model.Sale{}, gameerr.Conflict("cannot buy your own sale, cancel it instead")
	}

	client, err := s.accounts.Get(ctx, buyer)
	if err != nil {
		return model.Sale{}, err
	}
	if !client.CanAfford(sale.Price) {
		return model.Sale{}, gameerr.Insufficient("you need %d to buy sale %s, you have %d", sale.Price, saleID, client.Balance())
	}
	seller, err := s.accounts.Get(ctx, sale.Seller)
	if err != nil {
		return model.Sale{}, err
	}
	if err := s.remove(ctx, sale); err != nil {
		return model.Sale{}, err
	}

	client.AddBalance(-sale.Price)
	seller.AddBalance(sale.Price)
	client.Inventory().Add(sale.Item, sale.Amount)
	s.persist(ctx, buyer, sale.Seller)

	s.log.Info().Str("sale_id", saleID).Str("seller", sale.Seller).Str("buyer", buyer).Msg("sold")
	return *sale, nil
}

// CancelSale returns the listed items to the seller. Only the seller may
// cancel.
func (s *Shop) CancelSale(ctx context.Context, saleID, caller string) (model.Sale, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sale, ok := s.sales[saleID]
	if !ok {
		return model.Sale{}, gameerr.NotFound("cannot find sale with id %s", saleID)
	}
	if sale.Seller != caller {
		return model.Sale{}, gameerr.Conflict("only the seller can cancel sale %s", saleID)
	}
	if err := s.cancel(ctx, sale); err != nil {
		return model.Sale{}, err
	}
	return *sale, nil
}

// CancelAllFor withdraws every listing of seller and returns how many went.
// Listings that fail to cancel stay listed and are reported in the error.
func (s *Shop) CancelAllFor(ctx context.Context, seller string) (int, error) {
	return s.cancelWhere(ctx, func(sale *model.Sale) bool { return sale.Seller == seller })
}

// CancelAll withdraws every listing in the shop.
func (s *Shop) CancelAll(ctx context.Context) (int, error) {
	return s.cancelWhere(ctx, func(*model.Sale) bool { return true })
}

func (s *Shop) cancelWhere(ctx context.Context, match func(*model.Sale) bool) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ids := make([]string, 0, len(s.sales))
	for id, sale := range s.sales {
		if match(sale) {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)

	var errs []error
	n := 0
	for _, id := range ids {
		if err := s.cancel(ctx, s.sales[id]); err != nil {
			errs = append(errs, err)
			continue
		}
		n++
	}
	return n, errors.Join(errs...)
}

func (s *Shop) cancel(ctx context.Context, sale *model.Sale) error {
	seller, err := s.accounts.Get(ctx, sale.Seller)
	if err != nil {
		return err
	}
	if err := s.remove(ctx, sale); err != nil {
		return err
	}
	seller.Inventory().Add(sale.Item, sale.Amount)
	s.persist(ctx, sale.Seller)

	s.log.Info().Str("sale_id", sale.ID).Str("seller", sale.Seller).Msg("sale cancelled")
	return nil
}

// Get returns the sale with id.
func (s *Shop) Get(saleID string) (model.Sale, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sale, ok := s.sales[saleID]
	if !ok {
		return model.Sale{}, gameerr.NotFound("cannot find sale with id %s", saleID)
	}
	return *sale, nil
}

// List returns every listing ordered by listing time, then id.
func (s *Shop) List() []model.Sale {
	return s.filter(func(*model.Sale) bool { return true })
}

// ListBy returns the listings of seller.
func (s *Shop) ListBy(seller string) []model.Sale {
	return s.filter(func(sale *model.Sale) bool { return sale.Seller == seller })
}

// Len returns the number of listings.
func (s *Shop) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sales)
}

func (s *Shop) filter(keep func(*model.Sale) bool) []model.Sale {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]model.Sale, 0, len(s.sales))
	for _, sale := range s.sales {
		if keep(sale) {
			out = append(out, *sale)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].ListedAt.Equal(out[j].ListedAt) {
			return out[i].ListedAt.Before(out[j].ListedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out
}

func (s *Shop) taken(id string) bool {
	_, ok := s.sales[id]
	return ok
}

func (s *Shop) save(ctx context.Context, sale *model.Sale) error {
	record, err := json.Marshal(sale)
	if err != nil {
		return eris.Wrapf(err, "encode sale %s", sale.ID)
	}
	if err := s.store.Save(ctx, sale.ID, record); err != nil {
		return gameerr.Unavailable(err, "save sale %s", sale.ID)
	}
	return nil
}

func (s *Shop) remove(ctx context.Context, sale *model.Sale) error {
	if err := s.store.Delete(ctx, sale.ID); err != nil {
		return gameerr.Unavailable(err, "delete sale %s", sale.ID)
	}
	delete(s.sales, sale.ID)
	return nil
}

// persist writes the touched accounts right away so the stored listings and
// inventories agree. A failure is left to the next flush.
func (s *Shop) persist(ctx context.Context, ids ...string) {
	for _, id := range ids {
		if err := s.accounts.Persist(ctx, id); err != nil {
			s.log.Warn().Err(err).Str("account", id).Msg("account write deferred to next flush")
		}
	}
}
