package engine

import "github.com/oxleyt/pantrybot/pkg/pantry"

// Surplus computes the per-ingredient excess of inventory over requirement,
// floored at zero. Ingredients only on one side are handled naturally:
// inventory-only entries are fully surplus, requirement-only entries
// contribute nothing.
func Surplus(inventory pantry.InventoryMap, requirement pantry.RequirementMap) pantry.SurplusMap {
	surplus := make(pantry.SurplusMap)
	for code, have := range inventory {
		extra := have - requirement[code]
		if extra > 0 {
			surplus[code] = extra
		}
	}
	return surplus
}
