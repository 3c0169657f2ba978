// Package executor runs exchange and synthesis plans against the remote
// game, one call at a time. Business rejections become recorded step
// failures; only transport errors propagate.
package executor

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/oxleyt/pantrybot/pkg/pantry"
)

// ExchangeFunc performs one 1:1 exchange of giveCode for wantCode. The
// remote interface supports only 1:1 trades; planned 2:1 economics is
// achieved by issuing two separate calls. ok=false with a message is a
// business rejection; err is transport-level only.
type ExchangeFunc func(ctx context.Context, wantCode, giveCode string) (ok bool, msg string, err error)

// PurchaseFunc buys quantity raw ingredients at the tier. got identifies the
// purchased ingredient when the remote reports it; a zero ref means the
// identity is unknown (random cupboard buys).
type PurchaseFunc func(ctx context.Context, tier, quantity int) (got pantry.IngredientRef, ok bool, err error)

// SynthesizeFunc converts units of sourceCode into the next tier, two per
// result unit.
type SynthesizeFunc func(ctx context.Context, sourceCode string, units int) (ok bool, msg string, err error)

// Executor runs plans sequentially with paced remote calls.
type Executor struct {
	exchange     ExchangeFunc
	purchase     PurchaseFunc
	limiter      *rate.Limiter
	insufficient func(msg string) bool
	log          zerolog.Logger
}

// Option configures an Executor.
type Option func(*Executor)

// WithPacing spaces remote calls at least interval apart, to stay under the
// remote service's anti-automation radar.
func WithPacing(interval time.Duration) Option {
	return func(e *Executor) {
		if interval > 0 {
			e.limiter = rate.NewLimiter(rate.Every(interval), 1)
		}
	}
}

// WithInsufficientMatcher overrides how "insufficient source quantity"
// rejections are recognized in remote messages.
func WithInsufficientMatcher(match func(msg string) bool) Option {
	return func(e *Executor) { e.insufficient = match }
}

// WithLogger sets the executor's logger.
func WithLogger(log zerolog.Logger) Option {
	return func(e *Executor) { e.log = log }
}

// New creates an Executor over the given remote operations.
func New(exchange ExchangeFunc, purchase PurchaseFunc, opts ...Option) *Executor {
	e := &Executor{
		exchange:     exchange,
		purchase:     purchase,
		limiter:      rate.NewLimiter(rate.Inf, 1),
		insufficient: defaultInsufficientMatcher,
		log:          zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

func defaultInsufficientMatcher(msg string) bool {
	return strings.Contains(strings.ToLower(msg), "insufficient")
}

// ExecutePlan runs each step in order. Purchase steps buy their filler first
// and are skipped on purchase failure. Each wanted unit is one 1:1 exchange;
// a rejection recognized as insufficient stock earns exactly one on-demand
// purchase and retry, any other rejection (or a failed retry) aborts the
// rest of the step. A step succeeds only when every unit completed. The
// returned error is transport-level only and comes with the partial result.
func (e *Executor) ExecutePlan(ctx context.Context, plan []pantry.ExchangeStep) (*pantry.ExecutionResult, error) {
	result := &pantry.ExecutionResult{}

	for _, step := range plan {
		result.Attempts++

		stepResult, err := e.runStep(ctx, step, result)
		if err != nil {
			result.Failures++
			result.Steps = append(result.Steps, stepResult)
			return result, err
		}

		if stepResult.Success {
			result.Successes++
		} else {
			result.Failures++
		}
		result.Steps = append(result.Steps, stepResult)
	}

	return result, nil
}

func (e *Executor) runStep(ctx context.Context, step pantry.ExchangeStep, agg *pantry.ExecutionResult) (pantry.StepResult, error) {
	sr := pantry.StepResult{Step: step}
	giveCode := step.Give.Code

	if step.RequiresPurchase {
		got, ok, err := e.pacedPurchase(ctx, step.PurchaseTier, step.GiveQuantity)
		if err != nil {
			sr.Message = fmt.Sprintf("purchase failed: %v", err)
			return sr, err
		}
		if !ok {
			e.log.Warn().Int("tier", step.PurchaseTier).Int("quantity", step.GiveQuantity).
				Msg("filler purchase rejected, skipping step")
			sr.Message = "filler purchase rejected"
			return sr, nil
		}
		sr.Purchases++
		agg.Purchases++
		if !got.IsZero() {
			giveCode = got.Code
		}
	}

	// The remote interface only supports 1:1 exchanges, so a planned 2:1
	// step runs as WantQuantity separate trades of the same pair.
	for unit := 0; unit < step.WantQuantity; unit++ {
		if err := ctx.Err(); err != nil {
			sr.Message = fmt.Sprintf("canceled after %d/%d exchanges", sr.UnitsCompleted, step.WantQuantity)
			return sr, err
		}

		ok, msg, err := e.pacedExchange(ctx, step.Want.Code, giveCode)
		if err != nil {
			sr.Message = fmt.Sprintf("exchange failed: %v", err)
			return sr, err
		}
		if ok {
			sr.UnitsCompleted++
			continue
		}

		if !e.insufficient(msg) {
			e.log.Warn().Str("want", step.Want.Code).Str("give", giveCode).
				Str("msg", msg).Msg("exchange rejected, aborting step")
			break
		}

		// One on-demand purchase, one retry. A second failure ends the step.
		e.log.Info().Str("give", giveCode).Msg("source stock ran out, buying replacement")
		got, purchased, err := e.pacedPurchase(ctx, step.Want.Tier, step.GiveQuantity)
		if err != nil {
			sr.Message = fmt.Sprintf("replacement purchase failed: %v", err)
			return sr, err
		}
		if !purchased {
			break
		}
		sr.Purchases++
		agg.Purchases++
		if !got.IsZero() {
			giveCode = got.Code
		}

		ok, msg, err = e.pacedExchange(ctx, step.Want.Code, giveCode)
		if err != nil {
			sr.Message = fmt.Sprintf("exchange failed: %v", err)
			return sr, err
		}
		if !ok {
			e.log.Warn().Str("want", step.Want.Code).Str("msg", msg).
				Msg("retry after purchase still rejected, aborting step")
			break
		}
		sr.UnitsCompleted++
	}

	sr.Success = sr.UnitsCompleted >= step.WantQuantity
	sr.Message = fmt.Sprintf("completed %d/%d exchanges", sr.UnitsCompleted, step.WantQuantity)
	return sr, nil
}

// ExecuteSynthesis runs a feasible synthesis plan top-down. UseSurplus steps
// convert each recorded source pile; BuyAndSynthesize steps buy the filler
// first and need the remote to report what was bought before it can be fed
// back in.
func (e *Executor) ExecuteSynthesis(ctx context.Context, plan *pantry.SynthesisPlan, synthesize SynthesizeFunc) (*pantry.SynthesisResult, error) {
	result := &pantry.SynthesisResult{}
	if plan == nil || !plan.Feasible {
		return result, nil
	}

	for _, step := range plan.Steps {
		switch step.Kind {
		case pantry.UseSurplus:
			for _, code := range sortedCodes(step.Sources) {
				units := step.Sources[code]
				result.Attempts++
				ok, msg, err := e.pacedSynthesize(ctx, synthesize, code, units)
				if err != nil {
					return result, err
				}
				if ok {
					result.Successes++
				} else {
					result.Failures++
				}
				result.Messages = append(result.Messages,
					fmt.Sprintf("synthesize %dx %s -> tier %d: %s", units, code, step.TargetTier, msg))
			}

		case pantry.BuyAndSynthesize:
			result.Attempts++
			got, ok, err := e.pacedPurchase(ctx, step.SourceTier, step.SourceQuantity)
			if err != nil {
				return result, err
			}
			if !ok {
				result.Failures++
				result.Messages = append(result.Messages,
					fmt.Sprintf("buy %d at tier %d: rejected", step.SourceQuantity, step.SourceTier))
				continue
			}
			if got.IsZero() {
				result.Failures++
				result.Messages = append(result.Messages,
					fmt.Sprintf("bought %d at tier %d but identity unknown, synthesize manually", step.SourceQuantity, step.SourceTier))
				continue
			}
			ok, msg, err := e.pacedSynthesize(ctx, synthesize, got.Code, step.SourceQuantity)
			if err != nil {
				return result, err
			}
			if ok {
				result.Successes++
			} else {
				result.Failures++
			}
			result.Messages = append(result.Messages,
				fmt.Sprintf("buy and synthesize %dx %s -> tier %d: %s", step.SourceQuantity, got.Code, step.TargetTier, msg))
		}
	}

	return result, nil
}

func (e *Executor) pacedExchange(ctx context.Context, wantCode, giveCode string) (bool, string, error) {
	if err := e.limiter.Wait(ctx); err != nil {
		return false, "", err
	}
	return e.exchange(ctx, wantCode, giveCode)
}

func (e *Executor) pacedPurchase(ctx context.Context, tier, quantity int) (pantry.IngredientRef, bool, error) {
	if err := e.limiter.Wait(ctx); err != nil {
		return pantry.IngredientRef{}, false, err
	}
	return e.purchase(ctx, tier, quantity)
}

func (e *Executor) pacedSynthesize(ctx context.Context, synthesize SynthesizeFunc, code string, units int) (bool, string, error) {
	if err := e.limiter.Wait(ctx); err != nil {
		return false, "", err
	}
	return synthesize(ctx, code, units)
}

// sortedCodes orders a step's source piles largest first, matching the
// planner's allocation order.
func sortedCodes(m map[string]int) []string {
	codes := make([]string, 0, len(m))
	for code := range m {
		codes = append(codes, code)
	}
	sort.Slice(codes, func(i, j int) bool {
		if m[codes[i]] != m[codes[j]] {
			return m[codes[i]] > m[codes[j]]
		}
		return codes[i] < codes[j]
	})
	return codes
}
