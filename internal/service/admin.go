package service

import (
	"context"

	"arrodes-economy/internal/escrow"
	"arrodes-economy/internal/growth"
	"arrodes-economy/internal/inventory"
	"arrodes-economy/internal/model"
	"arrodes-economy/pkg/gameerr"
)

// Operator commands. They skip player rules such as needing a sender for
// granted items, but every input is checked before anything changes and each
// runs under the writer lock like a player command.

// Peek is an operator's view of one user.
type Peek struct {
	Account model.AccountView          `json:"account"`
	Sales   []model.Sale               `json:"sales"`
	Trade   *escrow.View               `json:"trade,omitempty"`
	Growth  map[string][]growth.Status `json:"growth"`
}

// GrantItems adds items, named by id or display name, to user's inventory.
func (e *Economy) GrantItems(ctx context.Context, user string, items inventory.Items) (model.AccountView, error) {
	return e.adjustItems(ctx, user, items, (*inventory.Inventory).AddItems)
}

// RevokeItems takes items from user's inventory. Quantities beyond what the
// user holds clamp at zero.
func (e *Economy) RevokeItems(ctx context.Context, user string, items inventory.Items) (model.AccountView, error) {
	return e.adjustItems(ctx, user, items, (*inventory.Inventory).RemoveItems)
}

func (e *Economy) adjustItems(ctx context.Context, user string, items inventory.Items, apply func(*inventory.Inventory, inventory.Items)) (model.AccountView, error) {
	if err := requireID(user); err != nil {
		return model.AccountView{}, err
	}
	resolved, err := e.resolveItems(items)
	if err != nil {
		return model.AccountView{}, err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	a, err := e.accounts.Get(ctx, user)
	if err != nil {
		return model.AccountView{}, err
	}
	apply(a.Inventory(), resolved)

	e.log.Info().Str("user", user).Interface("items", resolved).Msg("operator adjusted items")
	return a.View(), nil
}

// AdjustBalance adds delta to user's balance; a negative delta takes money.
// The balance never goes below zero.
func (e *Economy) AdjustBalance(ctx context.Context, user string, delta int64) (model.AccountView, error) {
	if err := requireID(user); err != nil {
		return model.AccountView{}, err
	}
	if delta == 0 {
		return model.AccountView{}, gameerr.Invalid("amount must not be 0")
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	a, err := e.accounts.Get(ctx, user)
	if err != nil {
		return model.AccountView{}, err
	}
	if delta < 0 && !a.CanAfford(-delta) {
		return model.AccountView{}, gameerr.Insufficient("%s only has %d", user, a.Balance())
	}
	a.AddBalance(delta)

	e.log.Info().Str("user", user).Int64("delta", delta).Int64("balance", a.Balance()).Msg("operator adjusted balance")
	return a.View(), nil
}

// ClearInventory empties user's inventory and returns what it held.
func (e *Economy) ClearInventory(ctx context.Context, user string) (inventory.Items, error) {
	if err := requireID(user); err != nil {
		return nil, err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	a, err := e.accounts.Get(ctx, user)
	if err != nil {
		return nil, err
	}
	removed := a.Inventory().Clear()
	e.log.Info().Str("user", user).Int("items", removed.Total()).Msg("operator cleared inventory")
	return removed, nil
}

// CancelSalesFor withdraws every listing of user, returning the items.
func (e *Economy) CancelSalesFor(ctx context.Context, user string) (int, error) {
	if err := requireID(user); err != nil {
		return 0, err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.shop.CancelAllFor(ctx, user)
}

// CancelAllSales withdraws every listing in the shop.
func (e *Economy) CancelAllSales(ctx context.Context) (int, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.shop.CancelAll(ctx)
}

// CancelAllTrades returns every escrowed item to its owner.
func (e *Economy) CancelAllTrades(ctx context.Context) (int, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.escrow.CancelAll(ctx)
}

// Trades lists every open offer and trade.
func (e *Economy) Trades() []escrow.View {
	return e.escrow.List()
}

// Peek gathers everything the economy holds for user.
func (e *Economy) Peek(ctx context.Context, user string) (Peek, error) {
	if err := requireID(user); err != nil {
		return Peek{}, err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	a, err := e.accounts.Get(ctx, user)
	if err != nil {
		return Peek{}, err
	}
	status, err := e.growthStatus(ctx, user)
	if err != nil {
		return Peek{}, err
	}
	p := Peek{
		Account: a.View(),
		Sales:   e.shop.ListBy(user),
		Growth:  status,
	}
	if v, ok := e.escrow.Involving(user); ok {
		p.Trade = &v
	}
	return p, nil
}

// ReloadShop replaces the in-memory listings with the stored ones.
func (e *Economy) ReloadShop(ctx context.Context) (int, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.shop.LoadAll(ctx)
}

func (e *Economy) resolveItems(items inventory.Items) (inventory.Items, error) {
	if err := inventory.Validate(items, 0); err != nil {
		return nil, err
	}
	out := make(inventory.Items, len(items))
	for key, n := range items {
		item, err := e.catalog.Resolve(key)
		if err != nil {
			return nil, err
		}
		out[item.ID] += n
	}
	return out, nil
}
