package db

import (
	"context"
	"database/sql"
	"fmt"
)

// RecipeStore handles recipe requirement data access.
type RecipeStore struct {
	db *DB
}

// NewRecipeStore creates a new RecipeStore.
func NewRecipeStore(db *DB) *RecipeStore {
	return &RecipeStore{db: db}
}

// RequirementRow is one spreadsheet-style row: the recipe at a tier needs one
// unit of the ingredient.
type RequirementRow struct {
	Recipe     string
	Tier       int
	Category   string
	Ingredient string
}

// Requirements returns the aggregated ingredient quantities for a recipe at a
// tier, plus the category recorded for that row set. A recipe with no rows
// returns an empty map and empty category, not an error.
func (s *RecipeStore) Requirements(ctx context.Context, recipe string, tier int) (map[string]int, string, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT ingredient_code, category
		FROM recipe_ingredients
		WHERE recipe = ? AND tier = ?
		ORDER BY id
	`, recipe, tier)
	if err != nil {
		return nil, "", fmt.Errorf("querying recipe requirements: %w", err)
	}
	defer func() { _ = rows.Close() }()

	quantities := make(map[string]int)
	var category string
	for rows.Next() {
		var code, cat string
		if err := rows.Scan(&code, &cat); err != nil {
			return nil, "", fmt.Errorf("scanning requirement row: %w", err)
		}
		quantities[code]++
		if category == "" {
			category = cat
		}
	}
	return quantities, category, rows.Err()
}

// RecipeSearchHit is a lightweight recipe match for search results.
type RecipeSearchHit struct {
	Recipe   string
	Tier     int
	Category string
}

// Search finds recipes by name (case-insensitive partial match).
func (s *RecipeStore) Search(ctx context.Context, term string, limit int) ([]RecipeSearchHit, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT DISTINCT recipe, tier, category
		FROM recipe_ingredients
		WHERE recipe LIKE ?
		ORDER BY recipe, tier
		LIMIT ?
	`, "%"+term+"%", limit)
	if err != nil {
		return nil, fmt.Errorf("searching recipes: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var hits []RecipeSearchHit
	for rows.Next() {
		var h RecipeSearchHit
		if err := rows.Scan(&h.Recipe, &h.Tier, &h.Category); err != nil {
			return nil, fmt.Errorf("scanning search hit: %w", err)
		}
		hits = append(hits, h)
	}
	return hits, rows.Err()
}

// Categories returns the distinct categories present in the recipe table.
func (s *RecipeStore) Categories(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT DISTINCT category FROM recipe_ingredients ORDER BY category
	`)
	if err != nil {
		return nil, fmt.Errorf("listing categories: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var cats []string
	for rows.Next() {
		var c string
		if err := rows.Scan(&c); err != nil {
			return nil, fmt.Errorf("scanning category: %w", err)
		}
		cats = append(cats, c)
	}
	return cats, rows.Err()
}

// MaxTierFor returns the highest tier recorded for a recipe, or 0 when the
// recipe is unknown.
func (s *RecipeStore) MaxTierFor(ctx context.Context, recipe string) (int, error) {
	var tier sql.NullInt64
	err := s.db.QueryRowContext(ctx, `
		SELECT MAX(tier) FROM recipe_ingredients WHERE recipe = ?
	`, recipe).Scan(&tier)
	if err != nil {
		return 0, fmt.Errorf("querying recipe max tier: %w", err)
	}
	return int(tier.Int64), nil
}

// BulkInsert inserts requirement rows in a transaction.
func (s *RecipeStore) BulkInsert(ctx context.Context, rows []RequirementRow) error {
	return s.db.InTransaction(ctx, func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx, `
			INSERT INTO recipe_ingredients (recipe, tier, category, ingredient_code)
			VALUES (?, ?, ?, ?)
		`)
		if err != nil {
			return fmt.Errorf("preparing requirement statement: %w", err)
		}
		defer func() { _ = stmt.Close() }()

		for _, r := range rows {
			if _, err := stmt.ExecContext(ctx, r.Recipe, r.Tier, r.Category, r.Ingredient); err != nil {
				return fmt.Errorf("inserting requirement for %s: %w", r.Recipe, err)
			}
		}
		return nil
	})
}

// Clear removes all requirement rows (for re-sync).
func (s *RecipeStore) Clear(ctx context.Context) error {
	return s.db.InTransaction(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `DELETE FROM recipe_ingredients`)
		return err
	})
}
