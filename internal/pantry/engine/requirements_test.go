package engine

import (
	"testing"

	"github.com/oxleyt/pantrybot/pkg/pantry"
)

func TestResolve(t *testing.T) {
	eng, ctx := newTestEngine(t)

	req, err := eng.Resolve(ctx, "braised pork", 1, "starter")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if req["101"] != 2 || req["102"] != 1 {
		t.Errorf("requirements = %v, want {101:2, 102:1}", req)
	}
}

func TestResolveCategoryMismatchTolerated(t *testing.T) {
	eng, ctx := newTestEngine(t)

	// The row records starter; asking from another district still works.
	req, err := eng.Resolve(ctx, "braised pork", 1, "sichuan")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if req["101"] != 2 {
		t.Errorf("requirements = %v, want {101:2, 102:1}", req)
	}
}

func TestResolveFallsBackToEstimate(t *testing.T) {
	eng, ctx := newTestEngine(t)

	req, err := eng.Resolve(ctx, "unknown dish", 3, "starter")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(req) == 0 {
		t.Fatal("synthetic estimate must not be empty")
	}
	for code, n := range req {
		if n != 3 {
			t.Errorf("estimate[%s] = %d, want tier-scaled 3", code, n)
		}
	}
}

func TestResolveManyAggregates(t *testing.T) {
	eng, ctx := newTestEngine(t)

	selections := []pantry.RecipeSelection{
		{Name: "hot pot", Tier: 1, Category: "sichuan-street"},
		{Name: "mapo tofu", Tier: 1, Category: "sichuan-street"},
	}
	req, err := eng.ResolveMany(ctx, selections, "sichuan")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if req["101"] != 4 {
		t.Errorf("aggregated requirement[101] = %d, want 4", req["101"])
	}
}

func TestResolveManySkipsOtherCategories(t *testing.T) {
	eng, ctx := newTestEngine(t)

	selections := []pantry.RecipeSelection{
		{Name: "hot pot", Tier: 1, Category: "sichuan-street"},
		{Name: "imperial feast", Tier: 1, Category: "canton-street"},
		// Starter recipes are learnable from any district.
		{Name: "braised pork", Tier: 1, Category: "starter"},
	}
	req, err := eng.ResolveMany(ctx, selections, "sichuan")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// hot pot (2) + braised pork (2); the cantonese dish is skipped.
	if req["101"] != 4 {
		t.Errorf("requirement[101] = %d, want 4", req["101"])
	}
	if req["102"] != 1 {
		t.Errorf("requirement[102] = %d, want 1 (braised pork only)", req["102"])
	}
}

func TestMaxLearnableTier(t *testing.T) {
	eng, ctx := newTestEngine(t)

	tests := []struct {
		name           string
		recipe         string
		excludeMystery bool
		want           int
	}{
		{"mystery excluded stops below first mystery tier", "imperial feast", true, 1},
		{"mystery allowed reaches recorded ceiling", "imperial feast", false, 3},
		{"plain recipe unaffected", "braised pork", true, 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := eng.MaxLearnableTier(ctx, tt.recipe, "all", tt.excludeMystery)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("MaxLearnableTier = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestStaticExchangeCost(t *testing.T) {
	eng, ctx := newTestEngine(t)

	// Seeded rates: tier 1 is not exchangeable, tier 2 costs 2400 per unit.
	cost, err := eng.StaticExchangeCost(ctx, 2, 3)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cost != 7200 {
		t.Errorf("cost = %d, want 7200", cost)
	}

	cost, err = eng.StaticExchangeCost(ctx, 1, 3)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cost != 0 {
		t.Errorf("tier-1 cost = %d, want 0", cost)
	}
}
