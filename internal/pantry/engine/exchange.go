package engine

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/oxleyt/pantrybot/pkg/pantry"
)

// ErrNoInventory is returned when the inventory snapshot is empty; planning
// against it would turn every requirement into a purchase, so the caller is
// asked to refresh the snapshot instead.
var ErrNoInventory = errors.New("inventory snapshot is empty")

// BuildExchangePlan produces the ordered exchange steps that cover every
// requirement deficit from same-tier surplus at the fixed 2:1 ratio, falling
// back to a single buy-then-exchange step per ingredient when surplus runs
// out. The surplus pool is shared across the whole plan: units a step
// consumes are gone for later deficits. Deterministic: deficits are processed
// in ascending code order, candidates in descending surplus order with ties
// broken by code.
func (e *Engine) BuildExchangePlan(ctx context.Context, requirement pantry.RequirementMap, inventory pantry.InventoryMap) ([]pantry.ExchangeStep, error) {
	if len(inventory) == 0 {
		return nil, ErrNoInventory
	}

	// Call-local working pool; never shared across planning calls.
	pool := Surplus(inventory, requirement)

	deficits := make([]string, 0, len(requirement))
	for code, needed := range requirement {
		if needed-inventory[code] > 0 {
			deficits = append(deficits, code)
		}
	}
	sort.Strings(deficits)

	var plan []pantry.ExchangeStep
	for _, code := range deficits {
		want, err := e.catalog.Lookup(ctx, code)
		if err != nil {
			return nil, fmt.Errorf("looking up %s: %w", code, err)
		}
		if want == nil {
			want = &pantry.IngredientRef{Code: code, Tier: 1}
		}

		remaining := requirement[code] - inventory[code]
		e.log.Debug().Str("want", want.Code).Int("tier", want.Tier).
			Int("deficit", remaining).Msg("covering deficit")

		candidates, err := e.sameTierCandidates(ctx, pool, want.Tier, code)
		if err != nil {
			return nil, err
		}

		for _, give := range candidates {
			if remaining == 0 {
				break
			}
			pairs := pool[give.Code] / pantry.ExchangeRatio
			actual := min(pairs, remaining)
			if actual == 0 {
				continue
			}

			plan = append(plan, pantry.ExchangeStep{
				Give:         give,
				GiveQuantity: actual * pantry.ExchangeRatio,
				Want:         *want,
				WantQuantity: actual,
			})
			remaining -= actual
			pool[give.Code] -= actual * pantry.ExchangeRatio
		}

		if remaining > 0 {
			// Buy same-tier filler, then exchange it in.
			filler, err := e.catalog.FillerForTier(ctx, want.Tier, code)
			if err != nil {
				return nil, err
			}
			plan = append(plan, pantry.ExchangeStep{
				Give:             filler,
				GiveQuantity:     remaining * pantry.ExchangeRatio,
				Want:             *want,
				WantQuantity:     remaining,
				RequiresPurchase: true,
				PurchaseTier:     want.Tier,
			})
			e.log.Debug().Str("want", want.Code).Int("quantity", remaining).
				Int("tier", want.Tier).Msg("surplus exhausted, planned purchase")
		}
	}

	return plan, nil
}

// PlanExchangeFor builds the surplus-only exchange steps for a single target
// ingredient, with no purchase fallback. Used by the targeted exchange flow
// where the caller picks what to chase.
func (e *Engine) PlanExchangeFor(ctx context.Context, targetCode string, needed int, surplus pantry.SurplusMap) ([]pantry.ExchangeStep, error) {
	if needed <= 0 {
		return nil, nil
	}
	target, err := e.catalog.Lookup(ctx, targetCode)
	if err != nil {
		return nil, err
	}
	if target == nil {
		return nil, fmt.Errorf("unknown ingredient %s", targetCode)
	}

	pool := make(pantry.SurplusMap, len(surplus))
	for code, n := range surplus {
		pool[code] = n
	}

	candidates, err := e.sameTierCandidates(ctx, pool, target.Tier, targetCode)
	if err != nil {
		return nil, err
	}

	var plan []pantry.ExchangeStep
	remaining := needed
	for _, give := range candidates {
		if remaining == 0 {
			break
		}
		actual := min(pool[give.Code]/pantry.ExchangeRatio, remaining)
		if actual == 0 {
			continue
		}
		plan = append(plan, pantry.ExchangeStep{
			Give:         give,
			GiveQuantity: actual * pantry.ExchangeRatio,
			Want:         *target,
			WantQuantity: actual,
		})
		remaining -= actual
		pool[give.Code] -= actual * pantry.ExchangeRatio
	}
	return plan, nil
}

// sameTierCandidates returns the surplus ingredients at the tier that can
// fund at least one full pair, largest pile first, excluding the wanted
// ingredient itself.
func (e *Engine) sameTierCandidates(ctx context.Context, pool pantry.SurplusMap, tier int, excludeCode string) ([]pantry.IngredientRef, error) {
	var candidates []pantry.IngredientRef
	for code, available := range pool {
		if code == excludeCode || available < pantry.ExchangeRatio {
			continue
		}
		ref, err := e.catalog.Lookup(ctx, code)
		if err != nil {
			return nil, fmt.Errorf("looking up %s: %w", code, err)
		}
		if ref == nil || ref.Tier != tier {
			continue
		}
		candidates = append(candidates, *ref)
	}

	sort.Slice(candidates, func(i, j int) bool {
		if pool[candidates[i].Code] != pool[candidates[j].Code] {
			return pool[candidates[i].Code] > pool[candidates[j].Code]
		}
		return candidates[i].Code < candidates[j].Code
	})
	return candidates, nil
}
