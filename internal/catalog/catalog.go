// Package catalog holds the item definitions rewards are drawn from and the
// random pickers used by reward producers.
package catalog

import (
	"math/rand/v2"
	"sort"
	"strings"
	"sync"

	"arrodes-economy/pkg/gameerr"
)

// Categories used by the default reward producers.
const (
	CategoryPlants  = "plants"
	CategoryWooden  = "wooden"
	CategoryArctic  = "arctic"
	CategoryBees    = "bees"
	CategoryLootbox = "lootbox"
)

// Item ids referenced by game rules.
const (
	Lootbox      = "lootbox"
	Honey        = "honey"
	Bee          = "bee"
	WaterDroplet = "water_droplet"
	XSeed        = "x_seed"
	WoodenSeed   = "wooden_seed"
	ArcticSeed   = "arctic_seed"
	Egg          = "egg"
)

// Item is a catalog entry.
type Item struct {
	ID         string   `json:"id"`
	Name       string   `json:"name"`
	Icon       string   `json:"icon"`
	Categories []string `json:"categories,omitempty"`
}

// Catalog indexes items by id, name and category. Random picks are safe for
// concurrent use.
type Catalog struct {
	items      map[string]Item
	byName     map[string]string
	categories map[string][]string
	ids        []string

	mu  sync.Mutex
	rng *rand.Rand
}

// Option configures a Catalog.
type Option func(*Catalog)

// WithRand replaces the random source, mostly for tests.
func WithRand(r *rand.Rand) Option {
	return func(c *Catalog) { c.rng = r }
}

// New builds a catalog from items. Later duplicates replace earlier ones.
func New(items []Item, opts ...Option) *Catalog {
	c := &Catalog{
		items:      make(map[string]Item, len(items)),
		byName:     make(map[string]string, len(items)),
		categories: make(map[string][]string),
		rng:        rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64())),
	}
	for _, opt := range opts {
		opt(c)
	}

	for _, it := range items {
		if _, dup := c.items[it.ID]; !dup {
			c.ids = append(c.ids, it.ID)
		}
		c.items[it.ID] = it
		c.byName[strings.ToLower(it.Name)] = it.ID
		for _, cat := range it.Categories {
			cat = strings.ToLower(cat)
			c.categories[cat] = append(c.categories[cat], it.ID)
		}
	}
	sort.Strings(c.ids)
	return c
}

// Lookup returns the item with id.
func (c *Catalog) Lookup(id string) (Item, bool) {
	it, ok := c.items[id]
	return it, ok
}

// Resolve finds an item by id or by case-insensitive name.
func (c *Catalog) Resolve(idOrName string) (Item, error) {
	if it, ok := c.items[idOrName]; ok {
		return it, nil
	}
	if id, ok := c.byName[strings.ToLower(strings.TrimSpace(idOrName))]; ok {
		return c.items[id], nil
	}
	return Item{}, gameerr.NotFound("cannot find item %q", idOrName)
}

// Items returns every item ordered by id.
func (c *Catalog) Items() []Item {
	out := make([]Item, 0, len(c.ids))
	for _, id := range c.ids {
		out = append(out, c.items[id])
	}
	return out
}

// Category returns the ids in category.
func (c *Catalog) Category(name string) []string {
	ids := c.categories[strings.ToLower(name)]
	return append([]string(nil), ids...)
}

// Between returns a random integer in [lo, hi].
func (c *Catalog) Between(lo, hi int) int {
	if hi <= lo {
		return lo
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return lo + c.rng.IntN(hi-lo+1)
}

// Random returns n item ids drawn uniformly from the whole catalog.
func (c *Catalog) Random(n int) []string {
	return c.pick(c.ids, n)
}

// RandomFrom returns n item ids drawn uniformly from category.
func (c *Catalog) RandomFrom(category string, n int) ([]string, error) {
	ids, ok := c.categories[strings.ToLower(category)]
	if !ok || len(ids) == 0 {
		return nil, gameerr.NotFound("cannot find category %q", category)
	}
	return c.pick(ids, n), nil
}

func (c *Catalog) pick(from []string, n int) []string {
	if n <= 0 || len(from) == 0 {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	out := make([]string, n)
	for i := range out {
		out[i] = from[c.rng.IntN(len(from))]
	}
	return out
}
