package model

import (
	"arrodes-economy/internal/cache"
	"arrodes-economy/internal/inventory"

	"github.com/goccy/go-json"
)

// Account is a player's balance and inventory. Every mutating method marks
// the account dirty, including mutations made through Inventory().
type Account struct {
	cache.DirtyFlag

	id        string
	balance   int64
	inventory *inventory.Inventory
	extra     map[string]any
}

// NewAccount returns an empty account.
func NewAccount(id string) *Account {
	a := &Account{id: id, extra: make(map[string]any)}
	a.inventory = inventory.New(a.MarkDirty)
	return a
}

func (a *Account) ID() string { return a.id }

func (a *Account) Balance() int64 { return a.balance }

// Inventory returns the live inventory. Mutating it marks the account dirty.
func (a *Account) Inventory() *inventory.Inventory { return a.inventory }

// AddBalance changes the balance by delta.
func (a *Account) AddBalance(delta int64) {
	if delta == 0 {
		return
	}
	a.balance += delta
	a.MarkDirty()
}

// CanAfford reports whether the balance covers amount.
func (a *Account) CanAfford(amount int64) bool {
	return a.balance >= amount
}

// Extra returns a loosely-typed field.
func (a *Account) Extra(key string) (any, bool) {
	v, ok := a.extra[key]
	return v, ok
}

// SetExtra stores a loosely-typed field.
func (a *Account) SetExtra(key string, value any) {
	a.extra[key] = value
	a.MarkDirty()
}

// AccountView is a detached copy of an account for presentation.
type AccountView struct {
	ID         string          `json:"id"`
	Balance    int64           `json:"balance"`
	Inventory  inventory.Items `json:"inventory"`
	TotalItems int             `json:"total_items"`
}

// View snapshots the account.
func (a *Account) View() AccountView {
	return AccountView{
		ID:         a.id,
		Balance:    a.balance,
		Inventory:  a.inventory.Items(),
		TotalItems: a.inventory.Total(),
	}
}

type accountRecord struct {
	ID        string          `json:"id"`
	Balance   int64           `json:"balance"`
	Inventory inventory.Items `json:"inventory"`
	Extra     map[string]any  `json:"extra,omitempty"`
}

func (a *Account) MarshalJSON() ([]byte, error) {
	return json.Marshal(accountRecord{
		ID:        a.id,
		Balance:   a.balance,
		Inventory: a.inventory.Items(),
		Extra:     a.extra,
	})
}

func (a *Account) UnmarshalJSON(data []byte) error {
	var rec accountRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return err
	}
	a.id = rec.ID
	a.balance = rec.Balance
	a.inventory = inventory.FromItems(rec.Inventory, a.MarkDirty)
	a.extra = rec.Extra
	if a.extra == nil {
		a.extra = make(map[string]any)
	}
	return nil
}

// AccountCodec stores accounts as JSON and seeds new players with a starting
// balance and items.
type AccountCodec struct {
	StartingBalance int64
	StartingItems   inventory.Items
}

func (c AccountCodec) New(id string) *Account {
	a := NewAccount(id)
	a.balance = c.StartingBalance
	a.inventory.AddItems(c.StartingItems)
	return a
}

func (c AccountCodec) Decode(id string, record []byte) (*Account, error) {
	a := NewAccount(id)
	if err := json.Unmarshal(record, a); err != nil {
		return nil, err
	}
	if a.id == "" {
		a.id = id
	}
	return a, nil
}

func (c AccountCodec) Encode(a *Account) ([]byte, error) {
	return json.Marshal(a)
}

var _ cache.Codec[*Account] = AccountCodec{}
