package growth

import (
	"time"

	"arrodes-economy/internal/catalog"
	"arrodes-economy/internal/inventory"
	"arrodes-economy/internal/model"
)

// Registry names.
const (
	Plants = "plants"
	Bees   = "bees"
	Pets   = "pets"
)

// Durations holds the growth time of each stock kind.
type Durations struct {
	Seed   time.Duration
	Wooden time.Duration
	Arctic time.Duration
	Bee    time.Duration
	Egg    time.Duration
}

// DefaultDurations matches the game's stock tuning.
func DefaultDurations() Durations {
	return Durations{
		Seed:   15 * time.Minute,
		Wooden: 30 * time.Minute,
		Arctic: 45 * time.Minute,
		Bee:    10 * time.Minute,
		Egg:    time.Hour,
	}
}

// PlantKinds returns the plants that can be grown.
func PlantKinds(cat *catalog.Catalog, d Durations) []Kind {
	return []Kind{
		{
			Tag:      "x",
			Name:     "X Plant",
			Duration: d.Seed,
			Cost:     inventory.Items{catalog.XSeed: 1, catalog.WaterDroplet: 1},
			Produce: func(model.TimedAsset) Reward {
				return Reward{Items: cat.Random(cat.Between(2, 8))}
			},
		},
		{
			Tag:      "wooden",
			Name:     "Wooden Plant",
			Duration: d.Wooden,
			Cost:     inventory.Items{catalog.WoodenSeed: 1, catalog.WaterDroplet: 1},
			Produce: func(model.TimedAsset) Reward {
				items, _ := cat.RandomFrom(catalog.CategoryWooden, cat.Between(1, 2))
				return Reward{Items: append(items, cat.Random(cat.Between(1, 3))...)}
			},
		},
		{
			Tag:      "arctic",
			Name:     "Arctic Parasite",
			Duration: d.Arctic,
			Cost:     inventory.Items{catalog.ArcticSeed: 1, catalog.WaterDroplet: 1},
			Produce: func(model.TimedAsset) Reward {
				items, _ := cat.RandomFrom(catalog.CategoryArctic, cat.Between(0, 2))
				return Reward{Items: append(items, cat.Random(cat.Between(2, 5))...)}
			},
		},
	}
}

// BeeKinds returns the bees that can be raised. A finished bee comes back
// along with its harvest.
func BeeKinds(cat *catalog.Catalog, d Durations) []Kind {
	return []Kind{
		{
			Tag:      "normal",
			Name:     "Bee",
			Duration: d.Bee,
			Cost:     inventory.Items{catalog.Bee: 1, catalog.Honey: 1},
			Produce: func(model.TimedAsset) Reward {
				items := make([]string, 0, 5)
				for range cat.Between(0, 2) {
					items = append(items, catalog.Honey)
				}
				items = append(items, cat.Random(cat.Between(1, 2))...)
				return Reward{Items: append(items, catalog.Bee)}
			},
		},
	}
}

// PetKinds returns the eggs that can be hatched. An egg carries its pet's
// progression from the start; once hatched it stays in storage marked
// completed and grants nothing.
func PetKinds(d Durations) []Kind {
	return []Kind{
		{
			Tag:      "egg",
			Name:     "Egg",
			Duration: d.Egg,
			Cost:     inventory.Items{catalog.Egg: 1},
			Retain:   true,
			Species:  "egg",
		},
	}
}
