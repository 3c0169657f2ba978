package sync

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"

	"github.com/oxleyt/pantrybot/internal/pantry/db"
)

func newTestSyncer(t *testing.T) (*Syncer, *db.DB, context.Context) {
	t.Helper()
	ctx := context.Background()

	database, err := db.OpenAndInit(ctx, ":memory:")
	if err != nil {
		t.Fatalf("opening test database: %v", err)
	}
	t.Cleanup(func() { _ = database.Close() })

	return NewSyncer(database, zerolog.Nop()), database, ctx
}

func writeTempFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("writing fixture: %v", err)
	}
	return path
}

func TestImportIngredients(t *testing.T) {
	syncer, database, ctx := newTestSyncer(t)

	path := writeTempFile(t, "foods.json", `{"RECORDS":[
		{"code":"101","name":"radish","level":"1"},
		{"code":"201","name":"dried shrimp","level":"2"},
		{"code":"501","name":"mystery spice","level":"5","class":"mystery"},
		{"code":"bad","name":"broken","level":"n/a"}]}`)

	n, err := syncer.ImportIngredientsFromFile(ctx, path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if n != 3 {
		t.Errorf("imported = %d, want 3 (broken row skipped)", n)
	}

	store := db.NewIngredientStore(database)
	row, err := store.Get(ctx, "501")
	if err != nil {
		t.Fatalf("reading back: %v", err)
	}
	if row == nil || row.Tier != 5 || row.Class != "mystery" {
		t.Errorf("row = %+v, want tier 5 mystery", row)
	}

	stamp, err := database.GetSyncMetadata(ctx, "last_ingredients_sync")
	if err != nil {
		t.Fatalf("reading stamp: %v", err)
	}
	if stamp == "" {
		t.Error("sync stamp not recorded")
	}
}

func TestImportIngredientsIdempotent(t *testing.T) {
	syncer, database, ctx := newTestSyncer(t)

	path := writeTempFile(t, "foods.json", `{"RECORDS":[
		{"code":"101","name":"radish","level":"1"}]}`)

	for i := 0; i < 2; i++ {
		if _, err := syncer.ImportIngredientsFromFile(ctx, path); err != nil {
			t.Fatalf("import %d: %v", i, err)
		}
	}

	count, err := db.NewIngredientStore(database).Count(ctx)
	if err != nil {
		t.Fatalf("counting: %v", err)
	}
	if count != 1 {
		t.Errorf("count = %d, want 1 after re-import", count)
	}
}

func TestImportRecipesReplacesPrevious(t *testing.T) {
	syncer, database, ctx := newTestSyncer(t)

	first := writeTempFile(t, "recipes1.json", `[
		{"recipe":"braised pork","tier":1,"category":"starter","ingredient":"101"},
		{"recipe":"braised pork","tier":1,"category":"starter","ingredient":"101"}]`)
	second := writeTempFile(t, "recipes2.json", `[
		{"recipe":"hot pot","tier":1,"category":"sichuan-street","ingredient":"102"}]`)

	if _, err := syncer.ImportRecipesFromFile(ctx, first); err != nil {
		t.Fatalf("first import: %v", err)
	}
	if _, err := syncer.ImportRecipesFromFile(ctx, second); err != nil {
		t.Fatalf("second import: %v", err)
	}

	store := db.NewRecipeStore(database)
	gone, _, err := store.Requirements(ctx, "braised pork", 1)
	if err != nil {
		t.Fatalf("reading back: %v", err)
	}
	if len(gone) != 0 {
		t.Errorf("old recipe rows survived the re-import: %v", gone)
	}

	kept, _, err := store.Requirements(ctx, "hot pot", 1)
	if err != nil {
		t.Fatalf("reading back: %v", err)
	}
	if kept["102"] != 1 {
		t.Errorf("requirements = %v, want {102:1}", kept)
	}
}

func TestImportCosts(t *testing.T) {
	syncer, database, ctx := newTestSyncer(t)

	path := writeTempFile(t, "costs.json", `[
		{"tier":2,"unit_cost":600,"exchange_rate":2500}]`)

	if _, err := syncer.ImportCostsFromFile(ctx, path); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	costs := db.NewCostStore(database)
	unit, err := costs.UnitCost(ctx, 2)
	if err != nil {
		t.Fatalf("reading back: %v", err)
	}
	if unit != 600 {
		t.Errorf("unit cost = %d, want 600 after import", unit)
	}
}

func TestImportMissingFile(t *testing.T) {
	syncer, _, ctx := newTestSyncer(t)

	if _, err := syncer.ImportIngredientsFromFile(ctx, "/nonexistent/foods.json"); err == nil {
		t.Fatal("expected error for missing file")
	}
}
