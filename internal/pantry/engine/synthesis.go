package engine

import (
	"context"
	"fmt"
	"sort"

	"github.com/oxleyt/pantrybot/internal/pantry/catalog"
	"github.com/oxleyt/pantrybot/pkg/pantry"
)

// PlanSynthesis computes how to obtain targetQuantity ingredients at
// targetTier by tier-up synthesis (two source units per target unit),
// descending one tier at a time. At each tier it spends same-tier surplus
// first, then buys raw filler when the source tier is within the purchase
// cap, otherwise doubles the outstanding demand and recurses one tier lower.
// Running out of options at the base tier proves infeasibility, which is
// returned as a value.
func (e *Engine) PlanSynthesis(ctx context.Context, targetTier, targetQuantity int, surplus pantry.SurplusMap, maxPurchasableTier int) (*pantry.SynthesisPlan, error) {
	if targetTier <= catalog.BaseTier {
		return &pantry.SynthesisPlan{
			Feasible: false,
			Reason:   fmt.Sprintf("tier %d is the base tier and cannot be synthesized", targetTier),
		}, nil
	}
	if targetQuantity <= 0 {
		return &pantry.SynthesisPlan{Feasible: true, FinalQuantity: 0}, nil
	}

	byTier, err := e.surplusByTier(ctx, surplus)
	if err != nil {
		return nil, err
	}

	var steps []pantry.SynthesisStep
	totalCost := 0
	remaining := targetQuantity

	for synthTarget := targetTier; synthTarget > catalog.BaseTier && remaining > 0; synthTarget-- {
		sourceTier := synthTarget - 1
		tierPool := byTier[sourceTier]
		available := tierPool.Total()
		neededSource := remaining * pantry.ExchangeRatio

		if available >= neededSource {
			steps = append(steps, pantry.SynthesisStep{
				Kind:           pantry.UseSurplus,
				SourceTier:     sourceTier,
				TargetTier:     synthTarget,
				SourceQuantity: neededSource,
				ResultQuantity: remaining,
				Sources:        allocateSources(tierPool, neededSource),
			})
			remaining = 0
			break
		}

		if available > 0 {
			produced := available / pantry.ExchangeRatio
			used := produced * pantry.ExchangeRatio
			steps = append(steps, pantry.SynthesisStep{
				Kind:           pantry.UseSurplus,
				SourceTier:     sourceTier,
				TargetTier:     synthTarget,
				SourceQuantity: used,
				ResultQuantity: produced,
				Sources:        allocateSources(tierPool, used),
			})
			remaining -= produced
		}

		if remaining <= 0 {
			break
		}

		if sourceTier <= maxPurchasableTier {
			buyQty := remaining * pantry.ExchangeRatio
			unitCost, err := e.costs.UnitCost(ctx, sourceTier)
			if err != nil {
				return nil, err
			}
			cost := unitCost * buyQty
			steps = append(steps, pantry.SynthesisStep{
				Kind:           pantry.BuyAndSynthesize,
				SourceTier:     sourceTier,
				TargetTier:     synthTarget,
				SourceQuantity: buyQty,
				ResultQuantity: remaining,
				Cost:           cost,
			})
			totalCost += cost
			remaining = 0
			break
		}

		// Source tier is above the purchase cap: express the shortfall as
		// demand one tier lower and keep descending.
		remaining *= pantry.ExchangeRatio
	}

	if remaining > 0 {
		return &pantry.SynthesisPlan{
			Feasible: false,
			Reason: fmt.Sprintf("insufficient tier-%d materials given purchase cap at tier %d",
				targetTier-1, maxPurchasableTier),
		}, nil
	}

	return &pantry.SynthesisPlan{
		Feasible:      true,
		Steps:         steps,
		FinalQuantity: targetQuantity,
		TotalCost:     totalCost,
	}, nil
}

// surplusByTier groups surplus by ingredient tier. Only piles holding at
// least one full pair can fund synthesis; smaller piles are ignored.
func (e *Engine) surplusByTier(ctx context.Context, surplus pantry.SurplusMap) (map[int]pantry.SurplusMap, error) {
	byTier := make(map[int]pantry.SurplusMap)
	for code, count := range surplus {
		if count < pantry.ExchangeRatio {
			continue
		}
		tier, err := e.catalog.TierOf(ctx, code)
		if err != nil {
			return nil, fmt.Errorf("looking up tier for %s: %w", code, err)
		}
		if byTier[tier] == nil {
			byTier[tier] = make(pantry.SurplusMap)
		}
		byTier[tier][code] = count
	}
	return byTier, nil
}

// allocateSources picks which surplus piles fund a UseSurplus step, largest
// pile first with ties broken by code, and removes the consumed units from
// the pool so later tiers see the reduced amounts.
func allocateSources(pool pantry.SurplusMap, quantity int) map[string]int {
	codes := make([]string, 0, len(pool))
	for code := range pool {
		codes = append(codes, code)
	}
	sort.Slice(codes, func(i, j int) bool {
		if pool[codes[i]] != pool[codes[j]] {
			return pool[codes[i]] > pool[codes[j]]
		}
		return codes[i] < codes[j]
	})

	sources := make(map[string]int)
	remaining := quantity
	for _, code := range codes {
		if remaining == 0 {
			break
		}
		take := min(pool[code], remaining)
		sources[code] = take
		pool[code] -= take
		if pool[code] == 0 {
			delete(pool, code)
		}
		remaining -= take
	}
	return sources
}
