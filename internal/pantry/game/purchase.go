package game

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/oxleyt/pantrybot/pkg/pantry"
)

// buyBatchSize is the largest random-buy the cupboard endpoint accepts in
// one call.
const buyBatchSize = 10

// Purchaser buys raw ingredients for plan execution. Base-tier buys go
// through the shop, which sells by code and so reveals what was bought;
// higher tiers only have the random cupboard buy, whose result identity
// stays unknown.
type Purchaser struct {
	market   *Market
	cupboard *Cupboard
	log      zerolog.Logger
}

// NewPurchaser creates a Purchaser over the shop and cupboard services.
func NewPurchaser(market *Market, cupboard *Cupboard, log zerolog.Logger) *Purchaser {
	return &Purchaser{market: market, cupboard: cupboard, log: log}
}

// Purchase buys quantity ingredients at the tier. The returned ref is zero
// when the game does not report what arrived. Business rejections come back
// as ok=false; only transport failures are errors.
func (p *Purchaser) Purchase(ctx context.Context, tier, quantity int) (pantry.IngredientRef, bool, error) {
	if quantity <= 0 {
		return pantry.IngredientRef{}, true, nil
	}

	if tier <= 1 {
		ref, err := p.market.BuyFirst(ctx, quantity)
		if err != nil {
			if IsBusiness(err) {
				p.log.Warn().Err(err).Msg("shop purchase rejected")
				return pantry.IngredientRef{}, false, nil
			}
			return pantry.IngredientRef{}, false, err
		}
		return ref, true, nil
	}

	remaining := quantity
	for remaining > 0 {
		batch := remaining
		if batch > buyBatchSize {
			batch = buyBatchSize
		}
		if _, err := p.cupboard.BuyRandom(ctx, tier, batch); err != nil {
			if IsBusiness(err) {
				p.log.Warn().Int("tier", tier).Err(err).Msg("random buy rejected")
				return pantry.IngredientRef{}, false, nil
			}
			return pantry.IngredientRef{}, false, err
		}
		remaining -= batch
	}

	return pantry.IngredientRef{}, true, nil
}
