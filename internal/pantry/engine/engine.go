// Package engine contains the ingredient planning business logic:
// requirement resolution, surplus calculation, exchange plan building, and
// recursive synthesis planning. All functions are synchronous and perform no
// remote I/O; collaborators that do (inventory snapshots, exchange and
// purchase calls) are injected by the caller.
package engine

import (
	"github.com/rs/zerolog"

	"github.com/oxleyt/pantrybot/internal/pantry/catalog"
	"github.com/oxleyt/pantrybot/internal/pantry/db"
)

// Engine is the planning engine over the reference-data stores.
type Engine struct {
	catalog *catalog.Catalog
	recipes *db.RecipeStore
	costs   *db.CostStore
	log     zerolog.Logger
}

// New creates an Engine with the given database handle and logger.
func New(database *db.DB, cat *catalog.Catalog, log zerolog.Logger) *Engine {
	return &Engine{
		catalog: cat,
		recipes: db.NewRecipeStore(database),
		costs:   db.NewCostStore(database),
		log:     log,
	}
}

// MaxPurchasableTier converts a restaurant star rating into the highest tier
// the player may buy raw ingredients at: one above the rating, capped at the
// catalog's purchasable ceiling.
func MaxPurchasableTier(restaurantStar int) int {
	tier := restaurantStar + 1
	if tier > catalog.MaxPurchasableTier {
		tier = catalog.MaxPurchasableTier
	}
	if tier < catalog.BaseTier {
		tier = catalog.BaseTier
	}
	return tier
}
