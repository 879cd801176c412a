// Package escrow implements bilateral item trades. Offered items leave the
// seller's inventory when the offer is posted and the trader's when it is
// accepted; they only come back out through Confirm or Cancel.
//
// Offers and trades live in memory only. Cancel everything before shutdown
// so escrowed items return to inventories that are then flushed.
package escrow

import (
	"context"
	"errors"
	"slices"
	"sort"
	"sync"
	"time"

	"arrodes-economy/internal/cache"
	"arrodes-economy/internal/inventory"
	"arrodes-economy/internal/logging"
	"arrodes-economy/internal/model"
	"arrodes-economy/pkg/gameerr"

	"github.com/rs/zerolog"
)

// DefaultItemLimit caps the number of item lines on each side of a trade.
const DefaultItemLimit = 10

// State of an offer or trade.
type State string

const (
	StatePending   State = "PENDING"
	StateConfirmed State = "CONFIRMED"
	StateCompleted State = "COMPLETED"
	StateCancelled State = "CANCELLED"
)

// Offer is a posted trade proposal that no counterparty has accepted yet.
type Offer struct {
	ID        string
	Seller    string
	Items     inventory.Items
	AllowList []string
	CreatedAt time.Time
}

// Permits reports whether trader may accept the offer.
func (o *Offer) Permits(trader string) bool {
	return len(o.AllowList) == 0 || slices.Contains(o.AllowList, trader)
}

// Trade is an accepted offer waiting for the seller's confirmation.
type Trade struct {
	ID          string
	Seller      string
	Trader      string
	SellerItems inventory.Items
	TraderItems inventory.Items
	CreatedAt   time.Time
}

// View is a detached snapshot of an offer or trade.
type View struct {
	ID          string          `json:"id"`
	State       State           `json:"state"`
	Seller      string          `json:"seller"`
	Trader      string          `json:"trader,omitempty"`
	SellerItems inventory.Items `json:"seller_items"`
	TraderItems inventory.Items `json:"trader_items,omitempty"`
	AllowList   []string        `json:"allow_list,omitempty"`
	CreatedAt   time.Time       `json:"created_at"`
}

func (v View) with(s State) View {
	v.State = s
	return v
}

func (o *Offer) view() View {
	return View{
		ID:          o.ID,
		State:       StatePending,
		Seller:      o.Seller,
		SellerItems: o.Items.Clone(),
		AllowList:   slices.Clone(o.AllowList),
		CreatedAt:   o.CreatedAt,
	}
}

func (t *Trade) view() View {
	return View{
		ID:          t.ID,
		State:       StateConfirmed,
		Seller:      t.Seller,
		Trader:      t.Trader,
		SellerItems: t.SellerItems.Clone(),
		TraderItems: t.TraderItems.Clone(),
		CreatedAt:   t.CreatedAt,
	}
}

// Protocol owns every open offer and trade.
type Protocol struct {
	accounts  *cache.Cache[*model.Account]
	itemLimit int
	now       func() time.Time
	log       zerolog.Logger

	mu      sync.Mutex
	offers  map[string]*Offer
	trades  map[string]*Trade
	trading map[string]string // user id -> offer or trade id
}

// Option configures a Protocol.
type Option func(*Protocol)

// WithItemLimit sets the maximum item lines per side.
func WithItemLimit(n int) Option {
	return func(p *Protocol) { p.itemLimit = n }
}

// WithLogger sets the parent logger.
func WithLogger(l zerolog.Logger) Option {
	return func(p *Protocol) { p.log = logging.Component(l, "escrow") }
}

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(p *Protocol) { p.now = now }
}

// New creates a protocol moving items between accounts from the cache.
func New(accounts *cache.Cache[*model.Account], opts ...Option) *Protocol {
	p := &Protocol{
		accounts:  accounts,
		itemLimit: DefaultItemLimit,
		now:       time.Now,
		log:       logging.Nop(),
		offers:    make(map[string]*Offer),
		trades:    make(map[string]*Trade),
		trading:   make(map[string]string),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// IsTrading reports whether user is the seller of an offer or a party of a trade.
func (p *Protocol) IsTrading(user string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	_, ok := p.trading[user]
	return ok
}

// Get returns the offer or trade with id.
func (p *Protocol) Get(id string) (View, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if o, ok := p.offers[id]; ok {
		return o.view(), nil
	}
	if t, ok := p.trades[id]; ok {
		return t.view(), nil
	}
	return View{}, gameerr.NotFound("no trade with id %s", id)
}

// Involving returns the offer or trade user takes part in.
func (p *Protocol) Involving(user string) (View, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	id, ok := p.trading[user]
	if !ok {
		return View{}, false
	}
	if o, ok := p.offers[id]; ok {
		return o.view(), true
	}
	return p.trades[id].view(), true
}

// List returns every open offer and trade ordered by id.
func (p *Protocol) List() []View {
	p.mu.Lock()
	defer p.mu.Unlock()

	out := make([]View, 0, len(p.offers)+len(p.trades))
	for _, o := range p.offers {
		out = append(out, o.view())
	}
	for _, t := range p.trades {
		out = append(out, t.view())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// CreateOffer moves items out of the seller's inventory into a new offer
// keyed by id. Nothing changes unless every check passes.
func (p *Protocol) CreateOffer(ctx context.Context, id, seller string, items inventory.Items, allowList []string) (View, error) {
	if id == "" || seller == "" {
		return View{}, gameerr.Invalid("trade id and seller are required")
	}
	if err := inventory.Validate(items, p.itemLimit); err != nil {
		return View{}, err
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if _, busy := p.trading[seller]; busy {
		return View{}, gameerr.Conflict("%s is already trading", seller)
	}
	if p.inUse(id) {
		return View{}, gameerr.Conflict("trade id %s is already in use", id)
	}

	account, err := p.accounts.Get(ctx, seller)
	if err != nil {
		return View{}, err
	}
	if err := account.Inventory().Covers(items); err != nil {
		return View{}, err
	}

	locked := items.Clone()
	account.Inventory().RemoveItems(locked)

	o := &Offer{
		ID:        id,
		Seller:    seller,
		Items:     locked,
		AllowList: slices.Clone(allowList),
		CreatedAt: p.now(),
	}
	p.offers[id] = o
	p.trading[seller] = id

	p.log.Info().Str("trade_id", id).Str("seller", seller).Int("items", locked.Total()).Msg("offer created")
	return o.view(), nil
}

// AcceptOffer moves the trader's items into escrow and turns the offer into
// a trade with the same id. The trader may offer nothing in return.
func (p *Protocol) AcceptOffer(ctx context.Context, offerID, trader string, items inventory.Items) (View, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	o, ok := p.offers[offerID]
	if !ok {
		return View{}, gameerr.NotFound("no pending offer with id %s", offerID)
	}
	if trader == o.Seller {
		return View{}, gameerr.Conflict("cannot accept your own offer")
	}
	if _, busy := p.trading[trader]; busy {
		return View{}, gameerr.Conflict("%s is already trading", trader)
	}
	if !o.Permits(trader) {
		return View{}, gameerr.Conflict("%s is not allowed to accept offer %s", trader, offerID)
	}
	if len(items) > 0 {
		if err := inventory.Validate(items, p.itemLimit); err != nil {
			return View{}, err
		}
	}

	account, err := p.accounts.Get(ctx, trader)
	if err != nil {
		return View{}, err
	}
	if err := account.Inventory().Covers(items); err != nil {
		return View{}, err
	}

	locked := items.Clone()
	account.Inventory().RemoveItems(locked)

	t := &Trade{
		ID:          o.ID,
		Seller:      o.Seller,
		Trader:      trader,
		SellerItems: o.Items,
		TraderItems: locked,
		CreatedAt:   p.now(),
	}
	delete(p.offers, o.ID)
	p.trades[t.ID] = t
	p.trading[trader] = t.ID

	p.log.Info().Str("trade_id", t.ID).Str("seller", t.Seller).Str("trader", trader).Msg("offer accepted")
	return t.view(), nil
}

// Confirm completes a trade: each party receives the other's escrowed items.
// Only the seller may confirm.
func (p *Protocol) Confirm(ctx context.Context, tradeID, caller string) (View, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	t, ok := p.trades[tradeID]
	if !ok {
		if _, pending := p.offers[tradeID]; pending {
			return View{}, gameerr.Conflict("trade %s has not been accepted yet", tradeID)
		}
		return View{}, gameerr.NotFound("no trade with id %s", tradeID)
	}
	if caller != t.Seller {
		return View{}, gameerr.Conflict("only the seller can confirm trade %s", tradeID)
	}

	// Load both parties before touching either.
	seller, err := p.accounts.Get(ctx, t.Seller)
	if err != nil {
		return View{}, err
	}
	trader, err := p.accounts.Get(ctx, t.Trader)
	if err != nil {
		return View{}, err
	}

	seller.Inventory().AddItems(t.TraderItems)
	trader.Inventory().AddItems(t.SellerItems)
	p.forgetTrade(t)

	p.log.Info().Str("trade_id", t.ID).Str("seller", t.Seller).Str("trader", t.Trader).Msg("trade completed")
	return t.view().with(StateCompleted), nil
}

// Cancel returns escrowed items to their owners and drops the offer or trade.
func (p *Protocol) Cancel(ctx context.Context, id string) (View, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.cancel(ctx, id)
}

// CancelFor cancels whatever user takes part in. It reports false when the
// user is not trading.
func (p *Protocol) CancelFor(ctx context.Context, user string) (View, bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	id, ok := p.trading[user]
	if !ok {
		return View{}, false, nil
	}
	v, err := p.cancel(ctx, id)
	return v, err == nil, err
}

// CancelAll cancels every open offer and trade, returning how many were
// cancelled and the joined failures.
func (p *Protocol) CancelAll(ctx context.Context) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	ids := make([]string, 0, len(p.offers)+len(p.trades))
	for id := range p.offers {
		ids = append(ids, id)
	}
	for id := range p.trades {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	var errs []error
	n := 0
	for _, id := range ids {
		if _, err := p.cancel(ctx, id); err != nil {
			errs = append(errs, err)
			continue
		}
		n++
	}
	if n > 0 {
		p.log.Info().Int("cancelled", n).Msg("cancelled all trades")
	}
	return n, errors.Join(errs...)
}

func (p *Protocol) cancel(ctx context.Context, id string) (View, error) {
	if o, ok := p.offers[id]; ok {
		seller, err := p.accounts.Get(ctx, o.Seller)
		if err != nil {
			return View{}, err
		}
		seller.Inventory().AddItems(o.Items)
		delete(p.offers, id)
		delete(p.trading, o.Seller)

		p.log.Info().Str("trade_id", id).Str("seller", o.Seller).Msg("offer cancelled")
		return o.view().with(StateCancelled), nil
	}

	if t, ok := p.trades[id]; ok {
		seller, err := p.accounts.Get(ctx, t.Seller)
		if err != nil {
			return View{}, err
		}
		trader, err := p.accounts.Get(ctx, t.Trader)
		if err != nil {
			return View{}, err
		}
		seller.Inventory().AddItems(t.SellerItems)
		trader.Inventory().AddItems(t.TraderItems)
		p.forgetTrade(t)

		p.log.Info().Str("trade_id", id).Str("seller", t.Seller).Str("trader", t.Trader).Msg("trade cancelled")
		return t.view().with(StateCancelled), nil
	}

	return View{}, gameerr.NotFound("no trade with id %s", id)
}

func (p *Protocol) forgetTrade(t *Trade) {
	delete(p.trades, t.ID)
	delete(p.trading, t.Seller)
	delete(p.trading, t.Trader)
}

func (p *Protocol) inUse(id string) bool {
	_, offer := p.offers[id]
	_, trade := p.trades[id]
	return offer || trade
}

// Stats counts open offers and trades.
func (p *Protocol) Stats() map[string]int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return map[string]int{
		"pending_offers": len(p.offers),
		"trades":         len(p.trades),
	}
}
