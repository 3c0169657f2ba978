// Package sync imports the game's data dumps into the local SQLite catalog.
package sync

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/rs/zerolog"

	"github.com/oxleyt/pantrybot/internal/pantry/db"
	"github.com/oxleyt/pantrybot/pkg/pantry"
)

// Syncer imports local JSON dumps into the stores and stamps sync_metadata
// so the CLI can report data freshness.
type Syncer struct {
	db          *db.DB
	ingredients *db.IngredientStore
	recipes     *db.RecipeStore
	costs       *db.CostStore
	log         zerolog.Logger
}

// NewSyncer creates a new Syncer.
func NewSyncer(database *db.DB, log zerolog.Logger) *Syncer {
	return &Syncer{
		db:          database,
		ingredients: db.NewIngredientStore(database),
		recipes:     db.NewRecipeStore(database),
		costs:       db.NewCostStore(database),
		log:         log,
	}
}

// IngredientImport is one entry of the game's ingredient dump. The dump is a
// database export: {"RECORDS": [...]} with string-typed numeric fields.
type IngredientImport struct {
	Code  string `json:"code"`
	Name  string `json:"name"`
	Level string `json:"level"`
	Class string `json:"class,omitempty"`
}

// RequirementImport is one recipe requirement row: the recipe at the tier
// needs one unit of the ingredient.
type RequirementImport struct {
	Recipe     string `json:"recipe"`
	Tier       int    `json:"tier"`
	Category   string `json:"category"`
	Ingredient string `json:"ingredient"`
}

// CostImport is one tier's pricing entry.
type CostImport struct {
	Tier         int `json:"tier"`
	UnitCost     int `json:"unit_cost"`
	ExchangeRate int `json:"exchange_rate"`
}

// ImportIngredientsFromFile loads the ingredient catalog dump and replaces
// the ingredients table contents, keyed by code.
func (s *Syncer) ImportIngredientsFromFile(ctx context.Context, path string) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, fmt.Errorf("reading ingredients file: %w", err)
	}

	var dump struct {
		Records []IngredientImport `json:"RECORDS"`
	}
	if err := json.Unmarshal(data, &dump); err != nil {
		return 0, fmt.Errorf("parsing ingredients file: %w", err)
	}

	rows := make([]db.IngredientRow, 0, len(dump.Records))
	for _, rec := range dump.Records {
		tier, err := strconv.Atoi(rec.Level)
		if err != nil {
			s.log.Warn().Str("code", rec.Code).Str("level", rec.Level).
				Msg("skipping ingredient with non-numeric level")
			continue
		}
		rows = append(rows, db.IngredientRow{
			Code:  rec.Code,
			Name:  rec.Name,
			Tier:  tier,
			Class: pantry.IngredientClass(rec.Class),
		})
	}

	if err := s.ingredients.BulkInsert(ctx, rows); err != nil {
		return 0, fmt.Errorf("importing ingredients: %w", err)
	}
	if err := s.stamp(ctx, "ingredients", len(rows)); err != nil {
		return 0, err
	}

	s.log.Info().Int("count", len(rows)).Msg("ingredients imported")
	return len(rows), nil
}

// ImportRecipesFromFile loads the recipe requirement rows, replacing the
// previous requirement set wholesale so removed recipes disappear.
func (s *Syncer) ImportRecipesFromFile(ctx context.Context, path string) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, fmt.Errorf("reading recipes file: %w", err)
	}

	var imports []RequirementImport
	if err := json.Unmarshal(data, &imports); err != nil {
		return 0, fmt.Errorf("parsing recipes file: %w", err)
	}

	rows := make([]db.RequirementRow, 0, len(imports))
	for _, rec := range imports {
		rows = append(rows, db.RequirementRow{
			Recipe:     rec.Recipe,
			Tier:       rec.Tier,
			Category:   rec.Category,
			Ingredient: rec.Ingredient,
		})
	}

	if err := s.recipes.Clear(ctx); err != nil {
		return 0, fmt.Errorf("clearing recipes: %w", err)
	}
	if err := s.recipes.BulkInsert(ctx, rows); err != nil {
		return 0, fmt.Errorf("importing recipes: %w", err)
	}
	if err := s.stamp(ctx, "recipes", len(rows)); err != nil {
		return 0, err
	}

	s.log.Info().Int("count", len(rows)).Msg("recipe requirements imported")
	return len(rows), nil
}

// ImportCostsFromFile loads per-tier pricing, replacing matching tiers.
func (s *Syncer) ImportCostsFromFile(ctx context.Context, path string) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, fmt.Errorf("reading costs file: %w", err)
	}

	var imports []CostImport
	if err := json.Unmarshal(data, &imports); err != nil {
		return 0, fmt.Errorf("parsing costs file: %w", err)
	}

	rows := make([]db.CostRow, 0, len(imports))
	for _, rec := range imports {
		rows = append(rows, db.CostRow{
			Tier:         rec.Tier,
			UnitCost:     rec.UnitCost,
			ExchangeRate: rec.ExchangeRate,
		})
	}

	if err := s.costs.BulkInsert(ctx, rows); err != nil {
		return 0, fmt.Errorf("importing costs: %w", err)
	}
	if err := s.stamp(ctx, "costs", len(rows)); err != nil {
		return 0, err
	}

	s.log.Info().Int("count", len(rows)).Msg("tier costs imported")
	return len(rows), nil
}

func (s *Syncer) stamp(ctx context.Context, what string, count int) error {
	now := time.Now().UTC().Format(time.RFC3339)
	if err := s.db.SetSyncMetadata(ctx, "last_"+what+"_sync", now); err != nil {
		return err
	}
	return s.db.SetSyncMetadata(ctx, what+"_count", strconv.Itoa(count))
}
