package service

import (
	"context"

	"arrodes-economy/internal/announce"
	"arrodes-economy/internal/cache"
	"arrodes-economy/internal/catalog"
	"arrodes-economy/internal/config"
	"arrodes-economy/internal/escrow"
	"arrodes-economy/internal/growth"
	"arrodes-economy/internal/inventory"
	"arrodes-economy/internal/model"
	"arrodes-economy/internal/repository"
	"arrodes-economy/internal/shop"

	"github.com/rs/zerolog"
)

// Build assembles an Economy over db using the game settings in cfg and
// loads the stored shop listings.
func Build(ctx context.Context, cfg config.GameConfig, db repository.Database, cat *catalog.Catalog, announcer announce.Announcer, logger zerolog.Logger) (*Economy, error) {
	if cat == nil {
		cat = catalog.Default()
	}

	accounts := cache.New[*model.Account](
		repository.CollectionAccounts,
		db.Collection(repository.CollectionAccounts),
		model.AccountCodec{
			StartingBalance: cfg.StartingBalance,
			StartingItems:   inventory.Items{catalog.Lootbox: cfg.StartingLootboxes},
		},
		cache.WithLogger(logger),
	)

	durations := growth.Durations{
		Seed:   cfg.SeedDuration,
		Wooden: cfg.WoodenDuration,
		Arctic: cfg.ArcticDuration,
		Bee:    cfg.BeeDuration,
		Egg:    cfg.EggDuration,
	}
	registry := func(name string, kinds []growth.Kind) *growth.Registry {
		storages := cache.New[*model.GrowthStorage](name, db.Collection(name), model.GrowthCodec{}, cache.WithLogger(logger))
		return growth.NewRegistry(name, storages, accounts, kinds, growth.WithLogger(logger))
	}

	sh := shop.New(db.Collection(repository.CollectionShop), accounts, shop.WithLogger(logger))
	if _, err := sh.LoadAll(ctx); err != nil {
		return nil, err
	}

	return NewEconomy(Deps{
		Accounts: accounts,
		Registries: []*growth.Registry{
			registry(repository.CollectionPlants, growth.PlantKinds(cat, durations)),
			registry(repository.CollectionBees, growth.BeeKinds(cat, durations)),
			registry(repository.CollectionPets, growth.PetKinds(durations)),
		},
		Escrow:    escrow.New(accounts, escrow.WithItemLimit(cfg.TradeItemLimit), escrow.WithLogger(logger)),
		Shop:      sh,
		Catalog:   cat,
		Announcer: announcer,
		Logger:    logger,
	}), nil
}
