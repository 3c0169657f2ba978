package engine

import (
	"context"
	"fmt"

	"github.com/oxleyt/pantrybot/internal/pantry/catalog"
	"github.com/oxleyt/pantrybot/pkg/pantry"
)

// fallbackBasket is the synthetic estimate used when a recipe has no
// requirement rows: a small basket of base ingredients scaled by the target
// tier. Codes follow the catalog's base-tier numbering (vinegar, cabbage,
// pork, lettuce in the shipped data set). The estimator keeps planning total:
// it never fails and never returns an empty map.
var fallbackBasket = []string{"1", "3", "4", "5"}

// Resolve returns the ingredient quantities needed to learn a recipe at the
// target tier. The requirement table is keyed by name and tier; a category
// mismatch between the caller and the recorded row is logged and tolerated.
// Missing rows fall back to a synthetic estimate.
func (e *Engine) Resolve(ctx context.Context, recipe string, tier int, category string) (pantry.RequirementMap, error) {
	quantities, recorded, err := e.recipes.Requirements(ctx, recipe, tier)
	if err != nil {
		return nil, fmt.Errorf("resolving %s tier %d: %w", recipe, tier, err)
	}

	if len(quantities) == 0 {
		e.log.Warn().Str("recipe", recipe).Int("tier", tier).
			Msg("no requirement rows, using synthetic estimate")
		return syntheticRequirements(tier), nil
	}

	if category != "" && recorded != "" {
		if canonical := catalog.CanonicalCategory(category); canonical != recorded {
			// Recipes occasionally appear outside their recorded district;
			// the table row still applies.
			e.log.Info().Str("recipe", recipe).
				Str("caller_category", canonical).
				Str("recorded_category", recorded).
				Msg("category mismatch, using table row anyway")
		}
	}

	req := make(pantry.RequirementMap, len(quantities))
	for code, n := range quantities {
		req[code] = n
	}
	return req, nil
}

// ResolveMany sums the requirements of a batch of recipe selections. A
// selection contributes nothing when its category matches neither the active
// category nor the universal starter category.
func (e *Engine) ResolveMany(ctx context.Context, selections []pantry.RecipeSelection, activeCategory string) (pantry.RequirementMap, error) {
	total := make(pantry.RequirementMap)

	for _, sel := range selections {
		if !categoryAccepts(activeCategory, sel.Category) {
			e.log.Debug().Str("recipe", sel.Name).Str("category", sel.Category).
				Str("active", activeCategory).Msg("skipping out-of-category recipe")
			continue
		}

		req, err := e.Resolve(ctx, sel.Name, sel.Tier, sel.Category)
		if err != nil {
			return nil, err
		}
		for code, n := range req {
			total[code] += n
		}
	}

	return total, nil
}

// categoryAccepts reports whether a recipe in recipeCategory is learnable
// under the caller's active category.
func categoryAccepts(active, recipeCategory string) bool {
	if active == catalog.CategoryAll || active == "" {
		return true
	}
	if recipeCategory == catalog.CategoryStarter {
		return true
	}
	return catalog.CanonicalCategory(recipeCategory) == catalog.CanonicalCategory(active)
}

// MaxLearnableTier returns the highest tier of the recipe whose requirements
// contain no mystery-class ingredient. With excludeMystery false it returns
// the recipe's recorded ceiling directly. Scanning stops at the first tier
// that needs a mystery ingredient.
func (e *Engine) MaxLearnableTier(ctx context.Context, recipe, category string, excludeMystery bool) (int, error) {
	ceiling, err := e.recipes.MaxTierFor(ctx, recipe)
	if err != nil {
		return 0, err
	}
	if ceiling == 0 {
		maxTier, err := e.catalog.MaxTier(ctx)
		if err != nil {
			return 0, err
		}
		return maxTier, nil
	}
	if !excludeMystery {
		return ceiling, nil
	}

	maxSafe := 1
	for tier := 1; tier <= ceiling; tier++ {
		req, err := e.Resolve(ctx, recipe, tier, category)
		if err != nil {
			return 0, err
		}

		hasMystery := false
		for code := range req {
			class, err := e.catalog.Classify(ctx, code)
			if err != nil {
				return 0, err
			}
			if class == pantry.ClassMystery {
				hasMystery = true
				break
			}
		}
		if hasMystery {
			break
		}
		maxSafe = tier
	}
	return maxSafe, nil
}

// StaticExchangeCost returns the total gold cost of acquiring quantity units
// at the tier through the shop exchange, or 0 when the tier is not
// exchangeable.
func (e *Engine) StaticExchangeCost(ctx context.Context, tier, quantity int) (int, error) {
	rate, err := e.costs.ExchangeRate(ctx, tier)
	if err != nil {
		return 0, err
	}
	return rate * quantity, nil
}

func syntheticRequirements(tier int) pantry.RequirementMap {
	if tier < 1 {
		tier = 1
	}
	req := make(pantry.RequirementMap, len(fallbackBasket))
	for _, code := range fallbackBasket {
		req[code] = tier
	}
	return req
}
