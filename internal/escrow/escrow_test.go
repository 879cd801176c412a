package escrow

import (
	"context"
	"testing"
	"time"

	"arrodes-economy/internal/cache"
	"arrodes-economy/internal/inventory"
	"arrodes-economy/internal/model"
	"arrodes-economy/internal/repository"
	"arrodes-economy/pkg/gameerr"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newProtocol(t *testing.T, opts ...Option) (*Protocol, *cache.Cache[*model.Account]) {
	t.Helper()
	accounts := cache.New[*model.Account]("accounts", repository.NewMemoryStore(), model.AccountCodec{})
	opts = append([]Option{WithClock(func() time.Time { return time.Unix(1_700_000_000, 0) })}, opts...)
	return New(accounts, opts...), accounts
}

func give(t *testing.T, accounts *cache.Cache[*model.Account], user string, items inventory.Items) *inventory.Inventory {
	t.Helper()
	a, err := accounts.Get(context.Background(), user)
	require.NoError(t, err)
	a.Inventory().AddItems(items)
	return a.Inventory()
}

func holdings(t *testing.T, accounts *cache.Cache[*model.Account], users ...string) inventory.Items {
	t.Helper()
	total := inventory.Items{}
	for _, u := range users {
		a, err := accounts.Get(context.Background(), u)
		require.NoError(t, err)
		total.Merge(a.Inventory().Items())
	}
	return total
}

func TestHoneyTradeCompletes(t *testing.T) {
	ctx := context.Background()
	p, accounts := newProtocol(t)
	seller := give(t, accounts, "seller", inventory.Items{"honey": 2})
	trader := give(t, accounts, "trader", inventory.Items{"apple": 3, "lemon": 2})
	a, err := accounts.Get(ctx, "seller")
	require.NoError(t, err)
	balance := a.Balance()

	offer, err := p.CreateOffer(ctx, "post-1", "seller", inventory.Items{"honey": 2}, nil)
	require.NoError(t, err)
	assert.Equal(t, StatePending, offer.State)
	assert.Equal(t, 0, seller.Count("honey"), "offered items leave the seller at once")
	assert.Equal(t, balance, a.Balance())

	trade, err := p.AcceptOffer(ctx, "post-1", "trader", inventory.Items{"apple": 3, "lemon": 2})
	require.NoError(t, err)
	assert.Equal(t, StateConfirmed, trade.State)
	assert.Equal(t, 0, trader.Total())

	done, err := p.Confirm(ctx, "post-1", "seller")
	require.NoError(t, err)
	assert.Equal(t, StateCompleted, done.State)

	assert.Equal(t, inventory.Items{"apple": 3, "lemon": 2}, seller.Items())
	assert.Equal(t, inventory.Items{"honey": 2}, trader.Items())
	assert.False(t, p.IsTrading("seller"))
	assert.False(t, p.IsTrading("trader"))

	_, err = p.Get("post-1")
	assert.ErrorIs(t, err, gameerr.ErrNotFound)
}

func TestItemsConservedThroughEveryPath(t *testing.T) {
	ctx := context.Background()
	p, accounts := newProtocol(t)
	give(t, accounts, "a", inventory.Items{"honey": 5, "bee": 1})
	give(t, accounts, "b", inventory.Items{"apple": 4})
	give(t, accounts, "c", inventory.Items{"lemon": 1})
	want := holdings(t, accounts, "a", "b", "c")

	escrowed := func() inventory.Items {
		total := holdings(t, accounts, "a", "b", "c")
		for _, v := range p.List() {
			total.Merge(v.SellerItems)
			total.Merge(v.TraderItems)
		}
		return total
	}

	_, err := p.CreateOffer(ctx, "t1", "a", inventory.Items{"honey": 3}, nil)
	require.NoError(t, err)
	assert.Equal(t, want, escrowed())

	_, err = p.AcceptOffer(ctx, "t1", "b", inventory.Items{"apple": 2})
	require.NoError(t, err)
	assert.Equal(t, want, escrowed())

	_, err = p.CreateOffer(ctx, "t2", "c", inventory.Items{"lemon": 1}, nil)
	require.NoError(t, err)
	assert.Equal(t, want, escrowed())

	_, err = p.Cancel(ctx, "t1")
	require.NoError(t, err)
	assert.Equal(t, want, escrowed())

	_, err = p.Cancel(ctx, "t2")
	require.NoError(t, err)
	assert.Equal(t, want, holdings(t, accounts, "a", "b", "c"))
}

func TestOneActiveTradePerUser(t *testing.T) {
	ctx := context.Background()
	p, accounts := newProtocol(t)
	give(t, accounts, "a", inventory.Items{"honey": 5})
	give(t, accounts, "b", inventory.Items{"apple": 5})

	_, err := p.CreateOffer(ctx, "t1", "a", inventory.Items{"honey": 1}, nil)
	require.NoError(t, err)

	_, err = p.CreateOffer(ctx, "t2", "a", inventory.Items{"honey": 1}, nil)
	assert.ErrorIs(t, err, gameerr.ErrStateConflict)

	_, err = p.CreateOffer(ctx, "t1", "b", inventory.Items{"apple": 1}, nil)
	assert.ErrorIs(t, err, gameerr.ErrStateConflict, "ids are unique")

	_, err = p.CreateOffer(ctx, "t3", "b", inventory.Items{"apple": 1}, nil)
	require.NoError(t, err)
	_, err = p.AcceptOffer(ctx, "t1", "b", nil)
	assert.ErrorIs(t, err, gameerr.ErrStateConflict, "b is busy with its own offer")

	_, err = p.AcceptOffer(ctx, "t1", "a", nil)
	assert.ErrorIs(t, err, gameerr.ErrStateConflict, "no self trades")
}

func TestAllowList(t *testing.T) {
	ctx := context.Background()
	p, accounts := newProtocol(t)
	give(t, accounts, "a", inventory.Items{"honey": 1})

	_, err := p.CreateOffer(ctx, "t1", "a", inventory.Items{"honey": 1}, []string{"friend"})
	require.NoError(t, err)

	_, err = p.AcceptOffer(ctx, "t1", "stranger", nil)
	assert.ErrorIs(t, err, gameerr.ErrStateConflict)

	v, err := p.AcceptOffer(ctx, "t1", "friend", nil)
	require.NoError(t, err)
	assert.Equal(t, "friend", v.Trader)
	assert.Empty(t, v.TraderItems)
}

func TestCreateOfferValidation(t *testing.T) {
	ctx := context.Background()
	p, accounts := newProtocol(t, WithItemLimit(2))
	inv := give(t, accounts, "a", inventory.Items{"honey": 1, "bee": 1, "apple": 1})

	tests := []struct {
		name  string
		items inventory.Items
		want  error
	}{
		{"empty", inventory.Items{}, gameerr.ErrValidation},
		{"zero amount", inventory.Items{"honey": 0}, gameerr.ErrValidation},
		{"over limit", inventory.Items{"honey": 1, "bee": 1, "apple": 1}, gameerr.ErrValidation},
		{"not owned", inventory.Items{"honey": 2}, gameerr.ErrInsufficientResource},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := p.CreateOffer(ctx, "t1", "a", tt.items, nil)
			assert.ErrorIs(t, err, tt.want)
			assert.False(t, p.IsTrading("a"))
			assert.Equal(t, 3, inv.Total(), "a failed offer changes nothing")
		})
	}
}

func TestAcceptInsufficientLeavesOfferPending(t *testing.T) {
	ctx := context.Background()
	p, accounts := newProtocol(t)
	give(t, accounts, "a", inventory.Items{"honey": 1})
	trader := give(t, accounts, "b", inventory.Items{"apple": 1})

	_, err := p.CreateOffer(ctx, "t1", "a", inventory.Items{"honey": 1}, nil)
	require.NoError(t, err)

	_, err = p.AcceptOffer(ctx, "t1", "b", inventory.Items{"apple": 2})
	assert.ErrorIs(t, err, gameerr.ErrInsufficientResource)
	assert.Equal(t, 1, trader.Count("apple"))

	v, err := p.Get("t1")
	require.NoError(t, err)
	assert.Equal(t, StatePending, v.State)
	assert.False(t, p.IsTrading("b"))
}

func TestConfirmRules(t *testing.T) {
	ctx := context.Background()
	p, accounts := newProtocol(t)
	give(t, accounts, "a", inventory.Items{"honey": 1})

	_, err := p.Confirm(ctx, "missing", "a")
	assert.ErrorIs(t, err, gameerr.ErrNotFound)

	_, err = p.CreateOffer(ctx, "t1", "a", inventory.Items{"honey": 1}, nil)
	require.NoError(t, err)
	_, err = p.Confirm(ctx, "t1", "a")
	assert.ErrorIs(t, err, gameerr.ErrStateConflict, "not accepted yet")

	_, err = p.AcceptOffer(ctx, "t1", "b", nil)
	require.NoError(t, err)
	_, err = p.Confirm(ctx, "t1", "b")
	assert.ErrorIs(t, err, gameerr.ErrStateConflict, "only the seller confirms")
}

func TestCancelForAndCancelAll(t *testing.T) {
	ctx := context.Background()
	p, accounts := newProtocol(t)
	a := give(t, accounts, "a", inventory.Items{"honey": 2})
	b := give(t, accounts, "b", inventory.Items{"apple": 1})
	c := give(t, accounts, "c", inventory.Items{"lemon": 1})

	_, ok, err := p.CancelFor(ctx, "nobody")
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = p.CreateOffer(ctx, "t1", "a", inventory.Items{"honey": 2}, nil)
	require.NoError(t, err)
	_, err = p.AcceptOffer(ctx, "t1", "b", inventory.Items{"apple": 1})
	require.NoError(t, err)
	_, err = p.CreateOffer(ctx, "t2", "c", inventory.Items{"lemon": 1}, nil)
	require.NoError(t, err)

	v, ok, err := p.CancelFor(ctx, "b")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, StateCancelled, v.State)
	assert.Equal(t, 2, a.Count("honey"))
	assert.Equal(t, 1, b.Count("apple"))

	n, err := p.CancelAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, 1, c.Count("lemon"))
	assert.Empty(t, p.List())
	assert.Equal(t, map[string]int{"pending_offers": 0, "trades": 0}, p.Stats())
}

func TestEscrowSurvivesCacheFlush(t *testing.T) {
	ctx := context.Background()
	p, accounts := newProtocol(t)
	give(t, accounts, "a", inventory.Items{"honey": 1})

	_, err := p.CreateOffer(ctx, "t1", "a", inventory.Items{"honey": 1}, nil)
	require.NoError(t, err)
	require.NoError(t, accounts.Flush(ctx))

	_, err = p.Cancel(ctx, "t1")
	require.NoError(t, err)

	a, err := accounts.Get(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, 1, a.Inventory().Count("honey"))
}
