package game

import (
	"context"
	"fmt"
	"net/url"
	"strconv"

	"github.com/rs/zerolog"

	"github.com/oxleyt/pantrybot/pkg/pantry"
)

// MarketFood is one purchasable listing in the base-tier food shop.
type MarketFood struct {
	Code  string
	Name  string
	Price int
}

// Market wraps the gold shop that sells base-tier ingredients by code.
type Market struct {
	client *Client
	log    zerolog.Logger
}

// NewMarket creates a Market over the client.
func NewMarket(client *Client, log zerolog.Logger) *Market {
	return &Market{client: client, log: log}
}

// Foods lists what the shop currently sells.
func (m *Market) Foods(ctx context.Context) ([]MarketFood, error) {
	body, err := m.client.Post(ctx, "m=Food&a=get_food", nil)
	if err != nil {
		return nil, fmt.Errorf("listing shop foods: %w", err)
	}

	var foods []MarketFood
	for _, row := range body.Get("data").Array() {
		foods = append(foods, MarketFood{
			Code:  row.Get("code").String(),
			Name:  row.Get("name").String(),
			Price: int(row.Get("price").Int()),
		})
	}
	return foods, nil
}

// Buy purchases n units of the listed ingredient code.
func (m *Market) Buy(ctx context.Context, code string, n int) (string, error) {
	form := url.Values{}
	form.Set("code", code)
	form.Set("num", strconv.Itoa(n))

	body, err := m.client.Post(ctx, "m=Food&a=buy_food", form)
	if err != nil {
		return "", err
	}
	msg := CleanMessage(body.Get("msg").String())
	m.log.Info().Str("code", code).Int("num", n).Str("msg", msg).Msg("bought shop food")
	return msg, nil
}

// BuyFirst buys n units of the first listed food and returns its identity,
// so the buyer knows exactly what landed in the cupboard.
func (m *Market) BuyFirst(ctx context.Context, n int) (pantry.IngredientRef, error) {
	foods, err := m.Foods(ctx)
	if err != nil {
		return pantry.IngredientRef{}, err
	}
	if len(foods) == 0 {
		return pantry.IngredientRef{}, fmt.Errorf("shop has nothing for sale")
	}

	first := foods[0]
	if _, err := m.Buy(ctx, first.Code, n); err != nil {
		return pantry.IngredientRef{}, err
	}
	return pantry.IngredientRef{Code: first.Code, Name: first.Name, Tier: 1}, nil
}
