// Package pantry contains the core types for the ingredient planning engine.
package pantry

// ExchangeRatio is the fixed give:want ratio the game applies to peer
// exchanges and to tier-up synthesis: two units in, one unit out.
const ExchangeRatio = 2

// ============================================
// CATALOG TYPES
// ============================================

// IngredientRef identifies one ingredient in the static catalog.
type IngredientRef struct {
	Code string `json:"code"`
	Name string `json:"name"`
	Tier int    `json:"tier"`
}

// IsZero reports whether the ref carries no identity.
func (r IngredientRef) IsZero() bool {
	return r.Code == "" && r.Name == ""
}

// IngredientClass buckets ingredients for learn-tier policy decisions.
type IngredientClass string

const (
	ClassBasic    IngredientClass = "basic"
	ClassSharkfin IngredientClass = "sharkfin"
	ClassAbalone  IngredientClass = "abalone"
	ClassMystery  IngredientClass = "mystery"
)

// ============================================
// QUANTITY MAPS
// ============================================

// RequirementMap maps ingredient code to the quantity a plan must provide.
// Built fresh per planning call, never persisted.
type RequirementMap map[string]int

// InventoryMap maps ingredient code to the quantity currently on hand.
// It is a point-in-time snapshot; staleness is tolerated and surfaces as
// execution-time failures, not planning errors.
type InventoryMap map[string]int

// SurplusMap maps ingredient code to max(0, on hand - required).
type SurplusMap map[string]int

// Total returns the sum of all quantities in the map.
func (s SurplusMap) Total() int {
	n := 0
	for _, q := range s {
		n += q
	}
	return n
}

// RecipeSelection names one recipe the caller wants to learn to a tier.
type RecipeSelection struct {
	Name     string `json:"name"`
	Tier     int    `json:"tier"`
	Category string `json:"category"`
}

// ============================================
// EXCHANGE PLAN TYPES
// ============================================

// ExchangeStep is one planned trade: give GiveQuantity of Give for
// WantQuantity of Want at the fixed 2:1 ratio. When RequiresPurchase is set
// the give ingredient is a same-tier filler that must be bought (at
// PurchaseTier) before the exchange can run. Steps are created by the plan
// builder, consumed exactly once by the executor, and never mutated.
type ExchangeStep struct {
	Give             IngredientRef `json:"give"`
	GiveQuantity     int           `json:"give_quantity"`
	Want             IngredientRef `json:"want"`
	WantQuantity     int           `json:"want_quantity"`
	RequiresPurchase bool          `json:"requires_purchase,omitempty"`
	PurchaseTier     int           `json:"purchase_tier,omitempty"`
}

// StepResult echoes one executed step with its outcome.
type StepResult struct {
	Step           ExchangeStep `json:"step"`
	Success        bool         `json:"success"`
	UnitsCompleted int          `json:"units_completed"`
	Purchases      int          `json:"purchases"`
	Message        string       `json:"message"`
}

// ExecutionResult aggregates the outcome of one plan execution.
type ExecutionResult struct {
	Attempts  int          `json:"attempts"`
	Successes int          `json:"successes"`
	Failures  int          `json:"failures"`
	Purchases int          `json:"purchases"`
	Steps     []StepResult `json:"steps"`
}

// ============================================
// SYNTHESIS PLAN TYPES
// ============================================

// SynthesisKind tags the two kinds of synthesis step.
type SynthesisKind string

const (
	// UseSurplus converts surplus source-tier ingredients, two per unit
	// produced.
	UseSurplus SynthesisKind = "use_surplus"
	// BuyAndSynthesize purchases source-tier filler first, then converts it.
	BuyAndSynthesize SynthesisKind = "buy_and_synthesize"
)

// SynthesisStep is one tier-up conversion in a synthesis plan.
// SourceQuantity units at SourceTier become ResultQuantity units at
// TargetTier. Sources records which surplus ingredients fund a UseSurplus
// step; Cost is the purchase cost of a BuyAndSynthesize step.
type SynthesisStep struct {
	Kind           SynthesisKind  `json:"kind"`
	SourceTier     int            `json:"source_tier"`
	TargetTier     int            `json:"target_tier"`
	SourceQuantity int            `json:"source_quantity"`
	ResultQuantity int            `json:"result_quantity"`
	Sources        map[string]int `json:"sources,omitempty"`
	Cost           int            `json:"cost,omitempty"`
}

// SynthesisPlan is the planner's answer: either a feasible ordered step list
// or an explanation of why no plan exists. Infeasibility is a value, not an
// error.
type SynthesisPlan struct {
	Feasible      bool            `json:"feasible"`
	Steps         []SynthesisStep `json:"steps,omitempty"`
	FinalQuantity int             `json:"final_quantity,omitempty"`
	TotalCost     int             `json:"total_cost,omitempty"`
	Reason        string          `json:"reason,omitempty"`
}

// SynthesisResult aggregates the outcome of running a synthesis plan.
type SynthesisResult struct {
	Attempts  int      `json:"attempts"`
	Successes int      `json:"successes"`
	Failures  int      `json:"failures"`
	Messages  []string `json:"messages,omitempty"`
}
