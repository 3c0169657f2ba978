// Package catalog provides memoized read-only access to the ingredient
// catalog. It is constructed once at startup and injected into the planning
// engine; "not found" is a legitimate outcome, not an error.
package catalog

import (
	"context"
	"fmt"
	"time"

	gocache "github.com/patrickmn/go-cache"

	"github.com/oxleyt/pantrybot/internal/pantry/db"
	"github.com/oxleyt/pantrybot/pkg/pantry"
)

// BaseTier is the lowest ingredient tier. Tier-1 ingredients cannot be
// synthesized; unknown ingredients are treated as base tier.
const BaseTier = 1

// MaxPurchasableTier caps random cupboard purchases regardless of restaurant
// rating.
const MaxPurchasableTier = 5

// The game's recipe listing reports cuisine names while the requirement table
// records district names. The starter district is universal: its recipes are
// learnable from any district.
const (
	CategoryStarter = "starter"
	CategoryAll     = "all"
)

var categoryAliases = map[string]string{
	"hunan":     "hunan-street",
	"sichuan":   "sichuan-street",
	"cantonese": "canton-street",
	"fujian":    "fujian-street",
	"anhui":     "anhui-street",
	"shandong":  "shandong-street",
	"zhejiang":  "zhejiang-street",
	"jiangsu":   "jiangsu-street",
	"homestyle": CategoryStarter,
	"mixed-1":   "mixed-street-1",
	"mixed-2":   "mixed-street-2",
}

// Catalog caches ingredient rows on top of the SQLite store.
type Catalog struct {
	store *db.IngredientStore
	cache *gocache.Cache
}

// New creates a Catalog over the given store.
func New(store *db.IngredientStore) *Catalog {
	return &Catalog{
		store: store,
		cache: gocache.New(gocache.NoExpiration, 10*time.Minute),
	}
}

// Lookup returns the catalog entry for a code, or nil when unknown.
func (c *Catalog) Lookup(ctx context.Context, code string) (*pantry.IngredientRef, error) {
	if cached, ok := c.cache.Get("code:" + code); ok {
		ref := cached.(pantry.IngredientRef)
		if ref.IsZero() {
			return nil, nil
		}
		return &ref, nil
	}

	row, err := c.store.Get(ctx, code)
	if err != nil {
		return nil, err
	}
	if row == nil {
		// Negative entries are cached too; misses dominate fallback paths.
		c.cache.SetDefault("code:"+code, pantry.IngredientRef{})
		return nil, nil
	}

	ref := pantry.IngredientRef{Code: row.Code, Name: row.Name, Tier: row.Tier}
	c.cache.SetDefault("code:"+code, ref)
	c.cache.SetDefault("name:"+row.Name, ref)
	return &ref, nil
}

// ByName returns the catalog entry for a display name, or nil when unknown.
func (c *Catalog) ByName(ctx context.Context, name string) (*pantry.IngredientRef, error) {
	if cached, ok := c.cache.Get("name:" + name); ok {
		ref := cached.(pantry.IngredientRef)
		if ref.IsZero() {
			return nil, nil
		}
		return &ref, nil
	}

	row, err := c.store.GetByName(ctx, name)
	if err != nil {
		return nil, err
	}
	if row == nil {
		c.cache.SetDefault("name:"+name, pantry.IngredientRef{})
		return nil, nil
	}

	ref := pantry.IngredientRef{Code: row.Code, Name: row.Name, Tier: row.Tier}
	c.cache.SetDefault("name:"+name, ref)
	c.cache.SetDefault("code:"+row.Code, ref)
	return &ref, nil
}

// TierOf returns the tier of a code, defaulting to BaseTier for unknown
// codes so downstream planning stays total.
func (c *Catalog) TierOf(ctx context.Context, code string) (int, error) {
	ref, err := c.Lookup(ctx, code)
	if err != nil {
		return 0, err
	}
	if ref == nil {
		return BaseTier, nil
	}
	return ref.Tier, nil
}

// Classify returns the ingredient's class, defaulting to basic for unknown
// codes.
func (c *Catalog) Classify(ctx context.Context, code string) (pantry.IngredientClass, error) {
	if cached, ok := c.cache.Get("class:" + code); ok {
		return cached.(pantry.IngredientClass), nil
	}
	row, err := c.store.Get(ctx, code)
	if err != nil {
		return "", err
	}
	class := pantry.ClassBasic
	if row != nil && row.Class != "" {
		class = row.Class
	}
	c.cache.SetDefault("class:"+code, class)
	return class, nil
}

// MaxTier returns the highest tier present in the catalog.
func (c *Catalog) MaxTier(ctx context.Context) (int, error) {
	if cached, ok := c.cache.Get("max_tier"); ok {
		return cached.(int), nil
	}
	tier, err := c.store.MaxTier(ctx)
	if err != nil {
		return 0, err
	}
	if tier == 0 {
		return 0, fmt.Errorf("ingredient catalog is empty")
	}
	c.cache.SetDefault("max_tier", tier)
	return tier, nil
}

// FillerForTier returns the deterministic placeholder ingredient used by
// purchase steps: the lowest-coded ingredient at the tier, excluding the
// given code. Returns a zero ref when the tier has no other ingredient.
func (c *Catalog) FillerForTier(ctx context.Context, tier int, excludeCode string) (pantry.IngredientRef, error) {
	rows, err := c.store.ListByTier(ctx, tier)
	if err != nil {
		return pantry.IngredientRef{}, err
	}
	for _, row := range rows {
		if row.Code == excludeCode {
			continue
		}
		return pantry.IngredientRef{Code: row.Code, Name: row.Name, Tier: row.Tier}, nil
	}
	return pantry.IngredientRef{Tier: tier}, nil
}

// ListTier returns all refs at a tier, ordered by code.
func (c *Catalog) ListTier(ctx context.Context, tier int) ([]pantry.IngredientRef, error) {
	rows, err := c.store.ListByTier(ctx, tier)
	if err != nil {
		return nil, err
	}
	refs := make([]pantry.IngredientRef, 0, len(rows))
	for _, row := range rows {
		refs = append(refs, pantry.IngredientRef{Code: row.Code, Name: row.Name, Tier: row.Tier})
	}
	return refs, nil
}

// CanonicalCategory maps a cuisine name from the recipe listing API to the
// district name the requirement table records. Unmapped names pass through.
func CanonicalCategory(apiName string) string {
	if mapped, ok := categoryAliases[apiName]; ok {
		return mapped
	}
	return apiName
}
