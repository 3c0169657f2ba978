package db

import (
	"context"
	"testing"
)

func newTestDB(t *testing.T) (*DB, context.Context) {
	t.Helper()
	ctx := context.Background()

	database, err := OpenAndInit(ctx, ":memory:")
	if err != nil {
		t.Fatalf("opening test database: %v", err)
	}
	t.Cleanup(func() { _ = database.Close() })
	return database, ctx
}

func TestSyncMetadataRoundTrip(t *testing.T) {
	database, ctx := newTestDB(t)

	value, err := database.GetSyncMetadata(ctx, "missing")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if value != "" {
		t.Errorf("missing key = %q, want empty", value)
	}

	if err := database.SetSyncMetadata(ctx, "last_sync", "2026-01-01"); err != nil {
		t.Fatalf("setting metadata: %v", err)
	}
	if err := database.SetSyncMetadata(ctx, "last_sync", "2026-02-01"); err != nil {
		t.Fatalf("updating metadata: %v", err)
	}

	value, err = database.GetSyncMetadata(ctx, "last_sync")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if value != "2026-02-01" {
		t.Errorf("value = %q, want the updated stamp", value)
	}
}

func TestRecipeRequirementsAggregation(t *testing.T) {
	database, ctx := newTestDB(t)
	store := NewRecipeStore(database)

	err := store.BulkInsert(ctx, []RequirementRow{
		{Recipe: "hot pot", Tier: 1, Category: "sichuan-street", Ingredient: "101"},
		{Recipe: "hot pot", Tier: 1, Category: "sichuan-street", Ingredient: "101"},
		{Recipe: "hot pot", Tier: 1, Category: "sichuan-street", Ingredient: "102"},
		{Recipe: "hot pot", Tier: 2, Category: "sichuan-street", Ingredient: "201"},
	})
	if err != nil {
		t.Fatalf("seeding: %v", err)
	}

	quantities, category, err := store.Requirements(ctx, "hot pot", 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if quantities["101"] != 2 || quantities["102"] != 1 {
		t.Errorf("quantities = %v, want {101:2, 102:1}", quantities)
	}
	if category != "sichuan-street" {
		t.Errorf("category = %s", category)
	}

	maxTier, err := store.MaxTierFor(ctx, "hot pot")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if maxTier != 2 {
		t.Errorf("max tier = %d, want 2", maxTier)
	}
}

func TestCostDefaults(t *testing.T) {
	database, ctx := newTestDB(t)
	store := NewCostStore(database)

	// The schema seeds tiers 1..5; an unknown tier falls back to the default
	// unit cost and a zero exchange rate.
	unit, err := store.UnitCost(ctx, 9)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if unit != defaultUnitCost {
		t.Errorf("unit cost = %d, want default %d", unit, defaultUnitCost)
	}

	rate, err := store.ExchangeRate(ctx, 9)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rate != 0 {
		t.Errorf("rate = %d, want 0", rate)
	}

	seeded, err := store.UnitCost(ctx, 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if seeded != 100 {
		t.Errorf("tier-1 unit cost = %d, want seeded 100", seeded)
	}
}
