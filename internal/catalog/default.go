package catalog

// DefaultItems is the stock item list. Catalog content is game data; this
// set exists so reward producers have something to draw from.
var DefaultItems = []Item{
	{ID: "ticket_to_hell", Name: "Ticket to Hell", Icon: "🎟️"},
	{ID: "sagittarius", Name: "Sagittarius", Icon: "♐"},
	{ID: "infinity", Name: "Infinity", Icon: "♾️"},
	{ID: "fire", Name: "Fire", Icon: "🔥"},
	{ID: "extinguisher", Name: "Extinguisher", Icon: "🧯"},
	{ID: "ant", Name: "Ant", Icon: "🐜"},
	{ID: "purse", Name: "Purse", Icon: "👛"},
	{ID: "syringe", Name: "Syringe", Icon: "💉"},
	{ID: "the_world", Name: "The World", Icon: "🌍"},
	{ID: "comet", Name: "Comet", Icon: "☄️"},
	{ID: "shooting_star", Name: "Shooting Star", Icon: "🌠"},
	{ID: "cake", Name: "Cake", Icon: "🍰"},
	{ID: "confetti", Name: "Confetti", Icon: "🎊"},
	{ID: "candle", Name: "Candle", Icon: "🕯️"},
	{ID: "rocket", Name: "Rocket", Icon: "🚀"},
	{ID: "teddy_bear", Name: "Teddy bear", Icon: "🧸"},
	{ID: "pumpkin", Name: "Pumpkin", Icon: "🎃"},

	{ID: WaterDroplet, Name: "Water Droplet", Icon: "💧", Categories: []string{CategoryPlants}},
	{ID: XSeed, Name: "X Seed", Icon: "🌱", Categories: []string{CategoryPlants}},
	{ID: "grapes", Name: "Grapes", Icon: "🍇", Categories: []string{CategoryPlants}},
	{ID: "watermelon", Name: "Watermelon", Icon: "🍉", Categories: []string{CategoryPlants}},
	{ID: "lemon", Name: "Lemon", Icon: "🍋", Categories: []string{CategoryPlants}},
	{ID: "apple", Name: "Apple", Icon: "🍎", Categories: []string{CategoryPlants}},
	{ID: "cherries", Name: "Cherries", Icon: "🍒", Categories: []string{CategoryPlants}},

	{ID: WoodenSeed, Name: "Wooden Seed", Icon: "🌰", Categories: []string{CategoryWooden}},
	{ID: "log", Name: "Log", Icon: "🪵", Categories: []string{CategoryWooden}},
	{ID: "acorn", Name: "Acorn", Icon: "🥜", Categories: []string{CategoryWooden}},

	{ID: ArcticSeed, Name: "Arctic Seed", Icon: "❄️", Categories: []string{CategoryArctic}},
	{ID: "ice_cube", Name: "Ice Cube", Icon: "🧊", Categories: []string{CategoryArctic}},
	{ID: "snowman", Name: "Snowman", Icon: "☃️", Categories: []string{CategoryArctic}},

	{ID: Bee, Name: "Bee", Icon: "🐝", Categories: []string{CategoryBees}},
	{ID: Honey, Name: "Honey", Icon: "🍯", Categories: []string{CategoryBees}},
	{ID: Egg, Name: "Egg", Icon: "🥚"},
	{ID: Lootbox, Name: "Lootbox", Icon: "📦", Categories: []string{CategoryLootbox}},
}

// Default returns a catalog over DefaultItems.
func Default(opts ...Option) *Catalog {
	return New(DefaultItems, opts...)
}
