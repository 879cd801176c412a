package inventory

import (
	"sort"

	"arrodes-economy/pkg/gameerr"

	"github.com/goccy/go-json"
)

// Items is a quantity map keyed by item id.
type Items map[string]int

// Total returns the sum of all quantities.
func (it Items) Total() int {
	total := 0
	for _, n := range it {
		total += n
	}
	return total
}

// Clone returns an independent copy.
func (it Items) Clone() Items {
	out := make(Items, len(it))
	for id, n := range it {
		out[id] = n
	}
	return out
}

// Merge adds every line of other into it.
func (it Items) Merge(other Items) Items {
	for id, n := range other {
		it[id] += n
	}
	return it
}

// IDs returns the item ids in lexical order.
func (it Items) IDs() []string {
	ids := make([]string, 0, len(it))
	for id := range it {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// FromList collapses a list of item ids into a quantity map.
func FromList(ids []string) Items {
	out := make(Items, len(ids))
	for _, id := range ids {
		out[id]++
	}
	return out
}

// Validate checks a requested quantity map: at least one line, no empty ids,
// every amount positive, and no more than maxLines lines when maxLines > 0.
func Validate(items Items, maxLines int) error {
	if len(items) == 0 {
		return gameerr.Invalid("no items given")
	}
	if maxLines > 0 && len(items) > maxLines {
		return gameerr.Invalid("too many items: %d lines, maximum is %d", len(items), maxLines)
	}
	for _, id := range items.IDs() {
		if id == "" {
			return gameerr.Invalid("empty item id")
		}
		if n := items[id]; n <= 0 {
			return gameerr.Invalid("amount x%d of %s must be greater than 0", n, id)
		}
	}
	return nil
}

// Inventory holds positive item quantities. A quantity that reaches zero is
// removed from the map. onChange, when set, runs after every mutation so the
// owning entity can mark itself dirty.
type Inventory struct {
	items    Items
	onChange func()
}

// New returns an empty inventory reporting mutations to onChange.
func New(onChange func()) *Inventory {
	return &Inventory{items: make(Items), onChange: onChange}
}

// FromItems builds an inventory from stored quantities, dropping
// non-positive lines.
func FromItems(items Items, onChange func()) *Inventory {
	inv := &Inventory{items: make(Items, len(items)), onChange: onChange}
	for id, n := range items {
		if n > 0 {
			inv.items[id] = n
		}
	}
	return inv
}

// SetOnChange replaces the mutation callback.
func (inv *Inventory) SetOnChange(fn func()) {
	inv.onChange = fn
}

func (inv *Inventory) changed() {
	if inv.onChange != nil {
		inv.onChange()
	}
}

// Add changes the quantity of item by amount, clamping at zero. A negative
// amount is a bounded decrement.
func (inv *Inventory) Add(item string, amount int) {
	if amount == 0 {
		return
	}
	q := inv.items[item] + amount
	if q <= 0 {
		delete(inv.items, item)
	} else {
		inv.items[item] = q
	}
	inv.changed()
}

// Remove is Add with the amount negated.
func (inv *Inventory) Remove(item string, amount int) {
	inv.Add(item, -amount)
}

// AddItems applies Add line by line.
func (inv *Inventory) AddItems(items Items) {
	for id, n := range items {
		inv.Add(id, n)
	}
}

// RemoveItems applies Remove line by line. It does not pre-validate; callers
// that need atomicity check Covers first.
func (inv *Inventory) RemoveItems(items Items) {
	for id, n := range items {
		inv.Remove(id, n)
	}
}

// Count returns the quantity held of item.
func (inv *Inventory) Count(item string) int {
	return inv.items[item]
}

func (inv *Inventory) HasItem(item string) bool {
	return inv.items[item] > 0
}

func (inv *Inventory) HasAmount(item string, amount int) bool {
	return inv.items[item] >= amount
}

// Covers reports the first line of items this inventory cannot supply.
func (inv *Inventory) Covers(items Items) error {
	for _, id := range items.IDs() {
		if !inv.HasAmount(id, items[id]) {
			return gameerr.Insufficient("you do not have x%d of %s", items[id], id)
		}
	}
	return nil
}

// Total returns the number of items held.
func (inv *Inventory) Total() int {
	return inv.items.Total()
}

// Len returns the number of distinct items held.
func (inv *Inventory) Len() int {
	return len(inv.items)
}

// Items returns a copy of the quantity map.
func (inv *Inventory) Items() Items {
	return inv.items.Clone()
}

// Clear empties the inventory and returns what it held.
func (inv *Inventory) Clear() Items {
	old := inv.items
	inv.items = make(Items)
	if len(old) > 0 {
		inv.changed()
	}
	return old
}

func (inv *Inventory) MarshalJSON() ([]byte, error) {
	return json.Marshal(inv.items)
}

func (inv *Inventory) UnmarshalJSON(data []byte) error {
	var items Items
	if err := json.Unmarshal(data, &items); err != nil {
		return err
	}
	*inv = *FromItems(items, inv.onChange)
	return nil
}
