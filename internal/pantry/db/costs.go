package db

import (
	"context"
	"database/sql"
	"fmt"
)

// Fallbacks used when a tier has no cost row. The unit-cost default matches
// the game's mid-tier pricing; an unknown exchange rate means "not
// exchangeable via the shop" and stays zero.
const defaultUnitCost = 1000

// CostStore handles per-tier gold cost lookups.
type CostStore struct {
	db *DB
}

// NewCostStore creates a new CostStore.
func NewCostStore(db *DB) *CostStore {
	return &CostStore{db: db}
}

// CostRow is one tier's cost entry.
type CostRow struct {
	Tier         int
	UnitCost     int
	ExchangeRate int
}

// UnitCost returns the gold price of one ingredient at the tier.
func (s *CostStore) UnitCost(ctx context.Context, tier int) (int, error) {
	var cost int
	err := s.db.QueryRowContext(ctx, `
		SELECT unit_cost FROM tier_costs WHERE tier = ?
	`, tier).Scan(&cost)
	if err == sql.ErrNoRows {
		return defaultUnitCost, nil
	}
	if err != nil {
		return 0, fmt.Errorf("querying unit cost: %w", err)
	}
	return cost, nil
}

// ExchangeRate returns the gold cost per unit for the shop exchange at the
// tier, or 0 when the tier is not exchangeable.
func (s *CostStore) ExchangeRate(ctx context.Context, tier int) (int, error) {
	var rate int
	err := s.db.QueryRowContext(ctx, `
		SELECT exchange_rate FROM tier_costs WHERE tier = ?
	`, tier).Scan(&rate)
	if err == sql.ErrNoRows {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("querying exchange rate: %w", err)
	}
	return rate, nil
}

// BulkInsert replaces cost rows in a transaction.
func (s *CostStore) BulkInsert(ctx context.Context, rows []CostRow) error {
	return s.db.InTransaction(ctx, func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx, `
			INSERT OR REPLACE INTO tier_costs (tier, unit_cost, exchange_rate)
			VALUES (?, ?, ?)
		`)
		if err != nil {
			return fmt.Errorf("preparing cost statement: %w", err)
		}
		defer func() { _ = stmt.Close() }()

		for _, r := range rows {
			if _, err := stmt.ExecContext(ctx, r.Tier, r.UnitCost, r.ExchangeRate); err != nil {
				return fmt.Errorf("inserting cost for tier %d: %w", r.Tier, err)
			}
		}
		return nil
	})
}
