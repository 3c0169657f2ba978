package game

import (
	"context"
	"fmt"
	"net/url"
	"strconv"

	"github.com/rs/zerolog"

	"github.com/oxleyt/pantrybot/pkg/pantry"
)

const (
	minCupboardTier = 1
	maxCupboardTier = 5
	maxSynthTier    = 5
)

// TierLookup resolves an ingredient code to its tier.
type TierLookup interface {
	TierOf(ctx context.Context, code string) (int, error)
}

// CupboardItem is one pile in the player's cupboard.
type CupboardItem struct {
	Code   string
	Name   string
	Count  int
	Locked bool
}

// Cupboard wraps the personal storage operations: listing, locking, tier-up
// synthesis, resolving back down and gold purchases of random ingredients.
type Cupboard struct {
	client *Client
	tiers  TierLookup
	log    zerolog.Logger
}

// NewCupboard creates a Cupboard over the client. tiers may be nil, in which
// case Synthesize skips its local tier check and lets the game decide.
func NewCupboard(client *Client, tiers TierLookup, log zerolog.Logger) *Cupboard {
	return &Cupboard{client: client, tiers: tiers, log: log}
}

// Items lists the cupboard piles at one tier, following the page parameter
// until an empty or repeated page.
func (c *Cupboard) Items(ctx context.Context, tier int) ([]CupboardItem, error) {
	var items []CupboardItem
	prevFirst := ""

	for page := 1; ; page++ {
		form := url.Values{}
		form.Set("page", strconv.Itoa(page))
		form.Set("type", strconv.Itoa(tier))

		body, err := c.client.Post(ctx, "m=Food&a=get_cupboard", form)
		if err != nil {
			return nil, fmt.Errorf("listing cupboard tier %d page %d: %w", tier, page, err)
		}

		rows := body.Get("data").Array()
		if len(rows) == 0 {
			break
		}
		// Some deployments serve the last page again instead of an empty one.
		first := rows[0].Get("food_code").String()
		if page > 1 && first == prevFirst {
			break
		}
		prevFirst = first

		for _, row := range rows {
			items = append(items, CupboardItem{
				Code:   row.Get("food_code").String(),
				Name:   row.Get("food_name").String(),
				Count:  int(row.Get("num").Int()),
				Locked: row.Get("is_lock").String() == "1",
			})
		}
	}

	return items, nil
}

// Snapshot aggregates every tier's piles into a code-to-count inventory.
func (c *Cupboard) Snapshot(ctx context.Context) (pantry.InventoryMap, error) {
	inventory := make(pantry.InventoryMap)
	for tier := minCupboardTier; tier <= maxCupboardTier; tier++ {
		items, err := c.Items(ctx, tier)
		if err != nil {
			return nil, err
		}
		for _, item := range items {
			inventory[item.Code] += item.Count
		}
	}
	c.log.Debug().Int("distinct", len(inventory)).Msg("cupboard snapshot taken")
	return inventory, nil
}

// BuyRandom buys n random ingredients at the tier with gold. The game does
// not report which ingredients arrived.
func (c *Cupboard) BuyRandom(ctx context.Context, tier, n int) (string, error) {
	form := url.Values{}
	form.Set("level", strconv.Itoa(tier))
	form.Set("num", strconv.Itoa(n))

	body, err := c.client.Post(ctx, "m=Food&a=buy_rand_food", form)
	if err != nil {
		return "", err
	}
	msg := CleanMessage(body.Get("msg").String())
	c.log.Info().Int("tier", tier).Int("num", n).Str("msg", msg).Msg("bought random ingredients")
	return msg, nil
}

// Synthesize combines num units of code into the next tier. Top-tier
// ingredients cannot be synthesized further.
func (c *Cupboard) Synthesize(ctx context.Context, code string, num int) (string, error) {
	if c.tiers != nil {
		tier, err := c.tiers.TierOf(ctx, code)
		if err != nil {
			return "", err
		}
		if tier >= maxSynthTier {
			return "", &BusinessError{Msg: fmt.Sprintf("ingredient %s is already at tier %d", code, tier)}
		}
	}

	return c.postWithUnlock(ctx, "m=Food&a=exchange", code, num)
}

// Resolve breaks num units of code down into the tier below.
func (c *Cupboard) Resolve(ctx context.Context, code string, num int) (string, error) {
	return c.postWithUnlock(ctx, "m=Food&a=resolve", code, num)
}

// ToggleLock flips the lock flag protecting a pile from batch operations.
func (c *Cupboard) ToggleLock(ctx context.Context, code string) (string, error) {
	form := url.Values{}
	form.Set("code", code)

	body, err := c.client.Post(ctx, "m=Food&a=lock", form)
	if err != nil {
		return "", err
	}
	return CleanMessage(body.Get("msg").String()), nil
}

// postWithUnlock runs a code+num operation, temporarily unlocking the pile
// when the cupboard has it locked and restoring the lock afterwards.
func (c *Cupboard) postWithUnlock(ctx context.Context, action, code string, num int) (string, error) {
	relock, err := c.unlockIfNeeded(ctx, code)
	if err != nil {
		return "", err
	}
	if relock {
		defer func() {
			if _, lockErr := c.ToggleLock(ctx, code); lockErr != nil {
				c.log.Warn().Str("code", code).Err(lockErr).Msg("failed to restore lock")
			}
		}()
	}

	form := url.Values{}
	form.Set("code", code)
	form.Set("num", strconv.Itoa(num))

	body, err := c.client.Post(ctx, action, form)
	if err != nil {
		return "", err
	}
	return CleanMessage(body.Get("msg").String()), nil
}

// unlockIfNeeded unlocks a locked pile and reports whether the caller must
// relock it. An item missing from the cupboard listing is not an error; the
// operation itself will surface whatever the game thinks.
func (c *Cupboard) unlockIfNeeded(ctx context.Context, code string) (bool, error) {
	if c.tiers == nil {
		return false, nil
	}
	tier, err := c.tiers.TierOf(ctx, code)
	if err != nil {
		return false, err
	}

	items, err := c.Items(ctx, tier)
	if err != nil {
		return false, err
	}
	for _, item := range items {
		if item.Code != code {
			continue
		}
		if !item.Locked {
			return false, nil
		}
		if _, err := c.ToggleLock(ctx, code); err != nil {
			return false, err
		}
		return true, nil
	}
	return false, nil
}
