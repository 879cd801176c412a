package service

import (
	"context"
	"testing"

	"arrodes-economy/internal/catalog"
	"arrodes-economy/internal/escrow"
	"arrodes-economy/internal/inventory"
	"arrodes-economy/pkg/gameerr"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGrantAndRevokeItems(t *testing.T) {
	ctx := context.Background()
	e := newEconomy(t, nil, nil)

	view, err := e.GrantItems(ctx, "alice", inventory.Items{"Honey": 2, catalog.Lootbox: 1})
	require.NoError(t, err)
	assert.Equal(t, 2, view.Inventory[catalog.Honey], "display names resolve to ids")
	assert.Equal(t, 3, view.Inventory[catalog.Lootbox])

	view, err = e.RevokeItems(ctx, "alice", inventory.Items{catalog.Honey: 5})
	require.NoError(t, err)
	assert.Zero(t, view.Inventory[catalog.Honey], "revoking more than held clamps at zero")

	_, err = e.GrantItems(ctx, "alice", inventory.Items{"no such thing": 1})
	assert.ErrorIs(t, err, gameerr.ErrNotFound)
	_, err = e.GrantItems(ctx, "alice", inventory.Items{catalog.Honey: 0})
	assert.ErrorIs(t, err, gameerr.ErrValidation)

	alice, err := e.Account(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, inventory.Items{catalog.Lootbox: 3}, alice.Inventory)
}

func TestAdjustBalance(t *testing.T) {
	ctx := context.Background()
	e := newEconomy(t, nil, nil)

	view, err := e.AdjustBalance(ctx, "alice", 30)
	require.NoError(t, err)
	assert.Equal(t, int64(50), view.Balance)

	view, err = e.AdjustBalance(ctx, "alice", -50)
	require.NoError(t, err)
	assert.Zero(t, view.Balance)

	_, err = e.AdjustBalance(ctx, "alice", -1)
	assert.ErrorIs(t, err, gameerr.ErrInsufficientResource)
	_, err = e.AdjustBalance(ctx, "alice", 0)
	assert.ErrorIs(t, err, gameerr.ErrValidation)
}

func TestClearInventory(t *testing.T) {
	ctx := context.Background()
	e := newEconomy(t, nil, nil)
	give(t, e, "alice", inventory.Items{catalog.Honey: 3})

	removed, err := e.ClearInventory(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, inventory.Items{catalog.Honey: 3, catalog.Lootbox: 2}, removed)

	alice, err := e.Account(ctx, "alice")
	require.NoError(t, err)
	assert.Empty(t, alice.Inventory)
}

func TestOperatorCancelsSales(t *testing.T) {
	ctx := context.Background()
	e := newEconomy(t, nil, nil)

	_, err := e.Sell(ctx, "alice", catalog.Lootbox, 1, 10)
	require.NoError(t, err)
	_, err = e.Sell(ctx, "alice", catalog.Lootbox, 1, 12)
	require.NoError(t, err)
	_, err = e.Sell(ctx, "bob", catalog.Lootbox, 2, 5)
	require.NoError(t, err)

	n, err := e.CancelSalesFor(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Empty(t, e.Sales("alice"))
	assert.Len(t, e.Sales("bob"), 1)

	alice, err := e.Account(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, 2, alice.Inventory[catalog.Lootbox])

	n, err = e.CancelAllSales(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Empty(t, e.Sales(""))
}

func TestReloadShopKeepsStoredSales(t *testing.T) {
	ctx := context.Background()
	e := newEconomy(t, nil, nil)

	sale, err := e.Sell(ctx, "alice", catalog.Lootbox, 1, 10)
	require.NoError(t, err)

	n, err := e.ReloadShop(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	require.Len(t, e.Sales(""), 1)
	assert.Equal(t, sale.ID, e.Sales("")[0].ID)
}

func TestOperatorCancelsTrades(t *testing.T) {
	ctx := context.Background()
	e := newEconomy(t, nil, nil)
	give(t, e, "alice", inventory.Items{catalog.Honey: 1})
	give(t, e, "carol", inventory.Items{catalog.Honey: 1})

	_, err := e.CreateOffer(ctx, "one", "alice", inventory.Items{catalog.Honey: 1}, nil)
	require.NoError(t, err)
	_, err = e.CreateOffer(ctx, "two", "carol", inventory.Items{catalog.Honey: 1}, nil)
	require.NoError(t, err)
	_, err = e.AcceptOffer(ctx, "two", "bob", inventory.Items{catalog.Lootbox: 1})
	require.NoError(t, err)
	assert.Len(t, e.Trades(), 2)

	n, err := e.CancelAllTrades(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Empty(t, e.Trades())

	for user, want := range map[string]inventory.Items{
		"alice": {catalog.Honey: 1, catalog.Lootbox: 2},
		"bob":   {catalog.Lootbox: 2},
		"carol": {catalog.Honey: 1, catalog.Lootbox: 2},
	} {
		view, err := e.Account(ctx, user)
		require.NoError(t, err)
		assert.Equal(t, want, view.Inventory, user)
	}
}

func TestPeek(t *testing.T) {
	ctx := context.Background()
	e := newEconomy(t, nil, nil)
	give(t, e, "alice", inventory.Items{catalog.Honey: 1})

	_, err := e.Sell(ctx, "alice", catalog.Lootbox, 1, 10)
	require.NoError(t, err)
	_, err = e.CreateOffer(ctx, "post", "alice", inventory.Items{catalog.Honey: 1}, nil)
	require.NoError(t, err)

	peek, err := e.Peek(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, 1, peek.Account.Inventory[catalog.Lootbox])
	assert.Len(t, peek.Sales, 1)
	require.NotNil(t, peek.Trade)
	assert.Equal(t, "post", peek.Trade.ID)
	assert.Equal(t, escrow.StatePending, peek.Trade.State)
	assert.Len(t, peek.Growth, len(e.registries))

	peek, err = e.Peek(ctx, "bob")
	require.NoError(t, err)
	assert.Nil(t, peek.Trade)
	assert.Empty(t, peek.Sales)
}

func TestDeleteAccountWithdrawsSales(t *testing.T) {
	ctx := context.Background()
	e := newEconomy(t, nil, nil)

	_, err := e.Sell(ctx, "alice", catalog.Lootbox, 1, 10)
	require.NoError(t, err)
	require.NoError(t, e.DeleteAccount(ctx, "alice"))
	assert.Empty(t, e.Sales(""))
}
