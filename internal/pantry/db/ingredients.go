package db

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/oxleyt/pantrybot/pkg/pantry"
)

// IngredientStore handles ingredient catalog access.
type IngredientStore struct {
	db *DB
}

// NewIngredientStore creates a new IngredientStore.
func NewIngredientStore(db *DB) *IngredientStore {
	return &IngredientStore{db: db}
}

// IngredientRow is one catalog entry.
type IngredientRow struct {
	Code  string
	Name  string
	Tier  int
	Class pantry.IngredientClass
}

// Get retrieves a single ingredient by code. Missing rows return nil, not an
// error.
func (s *IngredientStore) Get(ctx context.Context, code string) (*IngredientRow, error) {
	row := &IngredientRow{Code: code}
	err := s.db.QueryRowContext(ctx, `
		SELECT name, tier, class FROM ingredients WHERE code = ?
	`, code).Scan(&row.Name, &row.Tier, &row.Class)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("querying ingredient: %w", err)
	}
	return row, nil
}

// GetByName retrieves a single ingredient by display name.
func (s *IngredientStore) GetByName(ctx context.Context, name string) (*IngredientRow, error) {
	row := &IngredientRow{Name: name}
	err := s.db.QueryRowContext(ctx, `
		SELECT code, tier, class FROM ingredients WHERE name = ?
	`, name).Scan(&row.Code, &row.Tier, &row.Class)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("querying ingredient by name: %w", err)
	}
	return row, nil
}

// ListByTier returns all ingredients at a tier, ordered by code for
// deterministic consumers.
func (s *IngredientStore) ListByTier(ctx context.Context, tier int) ([]IngredientRow, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT code, name, tier, class FROM ingredients
		WHERE tier = ? ORDER BY code
	`, tier)
	if err != nil {
		return nil, fmt.Errorf("listing ingredients by tier: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []IngredientRow
	for rows.Next() {
		var r IngredientRow
		if err := rows.Scan(&r.Code, &r.Name, &r.Tier, &r.Class); err != nil {
			return nil, fmt.Errorf("scanning ingredient: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// MaxTier returns the highest tier present in the catalog, or 0 when the
// catalog is empty.
func (s *IngredientStore) MaxTier(ctx context.Context) (int, error) {
	var tier sql.NullInt64
	err := s.db.QueryRowContext(ctx, `SELECT MAX(tier) FROM ingredients`).Scan(&tier)
	if err != nil {
		return 0, fmt.Errorf("querying max tier: %w", err)
	}
	return int(tier.Int64), nil
}

// Count returns the total number of catalog entries.
func (s *IngredientStore) Count(ctx context.Context) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM ingredients`).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("counting ingredients: %w", err)
	}
	return count, nil
}

// BulkInsert inserts catalog rows in a transaction, replacing existing codes.
func (s *IngredientStore) BulkInsert(ctx context.Context, ingredients []IngredientRow) error {
	return s.db.InTransaction(ctx, func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx, `
			INSERT OR REPLACE INTO ingredients (code, name, tier, class)
			VALUES (?, ?, ?, ?)
		`)
		if err != nil {
			return fmt.Errorf("preparing ingredient statement: %w", err)
		}
		defer func() { _ = stmt.Close() }()

		for _, r := range ingredients {
			if r.Class == "" {
				r.Class = pantry.ClassBasic
			}
			if _, err := stmt.ExecContext(ctx, r.Code, r.Name, r.Tier, r.Class); err != nil {
				return fmt.Errorf("inserting ingredient %s: %w", r.Code, err)
			}
		}
		return nil
	})
}

// Clear removes all catalog rows (for re-sync).
func (s *IngredientStore) Clear(ctx context.Context) error {
	return s.db.InTransaction(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `DELETE FROM ingredients`)
		return err
	})
}
