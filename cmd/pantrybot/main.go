// Command pantrybot plans and executes ingredient exchanges for the
// restaurant game: it resolves recipe requirements against the local
// catalog, snapshots the cupboard, and trades surplus for deficits through
// the friend exchange at the fixed two-for-one rate.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sort"

	"github.com/rs/zerolog"
	"github.com/urfave/cli/v2"

	"github.com/oxleyt/pantrybot/internal/pantry/catalog"
	"github.com/oxleyt/pantrybot/internal/pantry/config"
	"github.com/oxleyt/pantrybot/internal/pantry/db"
	"github.com/oxleyt/pantrybot/internal/pantry/engine"
	"github.com/oxleyt/pantrybot/internal/pantry/executor"
	"github.com/oxleyt/pantrybot/internal/pantry/game"
	"github.com/oxleyt/pantrybot/internal/pantry/sync"
	"github.com/oxleyt/pantrybot/pkg/pantry"
)

func main() {
	app := &cli.App{
		Name:  "pantrybot",
		Usage: "ingredient exchange planner for the restaurant game",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "config", Value: "pantrybot.yaml", Usage: "config file path"},
			&cli.StringFlag{Name: "account", Usage: "account name (default: first configured)"},
			&cli.BoolFlag{Name: "verbose", Aliases: []string{"v"}, Usage: "debug logging"},
		},
		Commands: []*cli.Command{
			importCommand(),
			planCommand(),
			exchangeCommand(),
			synthesizeCommand(),
			inventoryCommand(),
		},
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

// app bundles the wired services a command needs.
type app struct {
	cfg      *config.Config
	log      zerolog.Logger
	db       *db.DB
	catalog  *catalog.Catalog
	engine   *engine.Engine
	cupboard *game.Cupboard
	friends  *game.Friends
	market   *game.Market
	buyer    *game.Purchaser
}

func newLogger(c *cli.Context) zerolog.Logger {
	level := zerolog.InfoLevel
	if c.Bool("verbose") {
		level = zerolog.DebugLevel
	}
	return zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).
		Level(level).With().Timestamp().Logger()
}

// setupLocal wires the offline half: config, database, catalog and engine.
func setupLocal(c *cli.Context) (*app, error) {
	log := newLogger(c)

	cfg, err := config.Load(c.String("config"))
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) || c.IsSet("config") {
			return nil, err
		}
		cfg = config.Default()
		log.Debug().Msg("no config file, using defaults")
	}

	database, err := db.OpenAndInit(c.Context, cfg.DBPath)
	if err != nil {
		return nil, err
	}

	cat := catalog.New(db.NewIngredientStore(database))
	return &app{
		cfg:     cfg,
		log:     log,
		db:      database,
		catalog: cat,
		engine:  engine.New(database, cat, log),
	}, nil
}

// setupGame adds the remote half on top of setupLocal for commands that talk
// to the game.
func setupGame(c *cli.Context) (*app, error) {
	a, err := setupLocal(c)
	if err != nil {
		return nil, err
	}

	acct, err := a.cfg.Account(c.String("account"))
	if err != nil {
		a.Close()
		return nil, err
	}

	client := game.NewClient(a.cfg.BaseURL, acct.Key,
		game.WithSessionCookie(acct.SessionID),
		game.WithInterval(a.cfg.RequestInterval),
		game.WithMaxRetries(a.cfg.MaxRetries),
		game.WithClientLogger(a.log),
	)
	a.cupboard = game.NewCupboard(client, a.catalog, a.log)
	a.friends = game.NewFriends(client, a.log)
	a.market = game.NewMarket(client, a.log)
	a.buyer = game.NewPurchaser(a.market, a.cupboard, a.log)
	return a, nil
}

func (a *app) Close() {
	if a.db != nil {
		_ = a.db.Close()
	}
}

func importCommand() *cli.Command {
	return &cli.Command{
		Name:  "import",
		Usage: "import game data dumps into the local catalog",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "ingredients", Usage: "ingredient dump JSON file"},
			&cli.StringFlag{Name: "recipes", Usage: "recipe requirement JSON file"},
			&cli.StringFlag{Name: "costs", Usage: "tier cost JSON file"},
		},
		Action: func(c *cli.Context) error {
			a, err := setupLocal(c)
			if err != nil {
				return err
			}
			defer a.Close()

			syncer := sync.NewSyncer(a.db, a.log)
			imported := false

			if path := c.String("ingredients"); path != "" {
				n, err := syncer.ImportIngredientsFromFile(c.Context, path)
				if err != nil {
					return err
				}
				fmt.Printf("imported %d ingredients\n", n)
				imported = true
			}
			if path := c.String("recipes"); path != "" {
				n, err := syncer.ImportRecipesFromFile(c.Context, path)
				if err != nil {
					return err
				}
				fmt.Printf("imported %d recipe requirement rows\n", n)
				imported = true
			}
			if path := c.String("costs"); path != "" {
				n, err := syncer.ImportCostsFromFile(c.Context, path)
				if err != nil {
					return err
				}
				fmt.Printf("imported %d tier cost rows\n", n)
				imported = true
			}

			if !imported {
				return fmt.Errorf("nothing to import: pass --ingredients, --recipes or --costs")
			}
			return nil
		},
	}
}

func planCommand() *cli.Command {
	return &cli.Command{
		Name:      "plan",
		Usage:     "resolve recipe requirements and print the exchange plan",
		ArgsUsage: "recipe...",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "category", Value: catalog.CategoryAll, Usage: "active cuisine category"},
			&cli.IntFlag{Name: "tier", Value: 1, Usage: "recipe tier to learn"},
		},
		Action: func(c *cli.Context) error {
			if c.NArg() == 0 {
				return fmt.Errorf("at least one recipe name is required")
			}
			a, err := setupGame(c)
			if err != nil {
				return err
			}
			defer a.Close()

			plan, requirement, inventory, err := buildPlan(c.Context, a, c.Args().Slice(), c.Int("tier"), c.String("category"))
			if err != nil {
				return err
			}

			printDeficits(requirement, inventory)
			printPlan(plan)
			return nil
		},
	}
}

func exchangeCommand() *cli.Command {
	return &cli.Command{
		Name:      "exchange",
		Usage:     "plan and execute exchanges against a friend",
		ArgsUsage: "recipe...",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "category", Value: catalog.CategoryAll, Usage: "active cuisine category"},
			&cli.IntFlag{Name: "tier", Value: 1, Usage: "recipe tier to learn"},
		},
		Action: func(c *cli.Context) error {
			if c.NArg() == 0 {
				return fmt.Errorf("at least one recipe name is required")
			}
			a, err := setupGame(c)
			if err != nil {
				return err
			}
			defer a.Close()

			plan, _, _, err := buildPlan(c.Context, a, c.Args().Slice(), c.Int("tier"), c.String("category"))
			if err != nil {
				return err
			}
			if len(plan) == 0 {
				fmt.Println("nothing to exchange")
				return nil
			}

			partner, err := a.friends.FindPartner(c.Context, a.cfg.PreferredPartners)
			if err != nil {
				return err
			}
			a.log.Info().Str("partner", partner.Name).Str("res_id", partner.RestaurantID).
				Msg("trading with partner")

			exec := executor.New(
				func(ctx context.Context, wantCode, giveCode string) (bool, string, error) {
					return a.friends.Exchange(ctx, partner.RestaurantID, wantCode, giveCode)
				},
				a.buyer.Purchase,
				executor.WithInsufficientMatcher(game.IsInsufficientStock),
				executor.WithLogger(a.log),
			)

			result, err := exec.ExecutePlan(c.Context, plan)
			if result != nil {
				printResult(result)
			}
			return err
		},
	}
}

func synthesizeCommand() *cli.Command {
	return &cli.Command{
		Name:  "synthesize",
		Usage: "plan tier-up synthesis from current surplus",
		Flags: []cli.Flag{
			&cli.IntFlag{Name: "tier", Required: true, Usage: "target tier"},
			&cli.IntFlag{Name: "quantity", Value: 1, Usage: "target quantity"},
			&cli.IntFlag{Name: "star", Value: 1, Usage: "restaurant star rating"},
			&cli.BoolFlag{Name: "run", Usage: "execute the plan instead of printing it"},
		},
		Action: func(c *cli.Context) error {
			a, err := setupGame(c)
			if err != nil {
				return err
			}
			defer a.Close()

			inventory, err := a.cupboard.Snapshot(c.Context)
			if err != nil {
				return err
			}
			// With no recipe in play the whole cupboard is surplus.
			surplus := engine.Surplus(inventory, nil)

			tierCap := engine.MaxPurchasableTier(c.Int("star"))
			plan, err := a.engine.PlanSynthesis(c.Context, c.Int("tier"), c.Int("quantity"), surplus, tierCap)
			if err != nil {
				return err
			}

			printSynthesisPlan(plan)
			if !plan.Feasible || !c.Bool("run") {
				return nil
			}

			exec := executor.New(nil, a.buyer.Purchase,
				executor.WithInsufficientMatcher(game.IsInsufficientStock),
				executor.WithLogger(a.log),
			)
			result, err := exec.ExecuteSynthesis(c.Context, plan,
				func(ctx context.Context, code string, units int) (bool, string, error) {
					msg, err := a.cupboard.Synthesize(ctx, code, units)
					if err != nil {
						if game.IsBusiness(err) {
							return false, err.Error(), nil
						}
						return false, "", err
					}
					return true, msg, nil
				})
			if result != nil {
				for _, msg := range result.Messages {
					fmt.Println(msg)
				}
				fmt.Printf("synthesis: %d attempted, %d ok, %d failed\n",
					result.Attempts, result.Successes, result.Failures)
			}
			return err
		},
	}
}

func inventoryCommand() *cli.Command {
	return &cli.Command{
		Name:  "inventory",
		Usage: "print the cupboard snapshot grouped by tier",
		Action: func(c *cli.Context) error {
			a, err := setupGame(c)
			if err != nil {
				return err
			}
			defer a.Close()

			inventory, err := a.cupboard.Snapshot(c.Context)
			if err != nil {
				return err
			}

			byTier := make(map[int][]string)
			for code := range inventory {
				tier, err := a.catalog.TierOf(c.Context, code)
				if err != nil {
					return err
				}
				byTier[tier] = append(byTier[tier], code)
			}

			tiers := make([]int, 0, len(byTier))
			for tier := range byTier {
				tiers = append(tiers, tier)
			}
			sort.Ints(tiers)

			for _, tier := range tiers {
				codes := byTier[tier]
				sort.Strings(codes)
				fmt.Printf("tier %d:\n", tier)
				for _, code := range codes {
					name := code
					if ref, err := a.catalog.Lookup(c.Context, code); err == nil && ref != nil {
						name = ref.Name
					}
					fmt.Printf("  %-20s %d\n", name, inventory[code])
				}
			}
			return nil
		},
	}
}

// buildPlan resolves the requested recipes, snapshots the cupboard and
// builds the exchange plan covering the deficits.
func buildPlan(ctx context.Context, a *app, recipes []string, tier int, category string) ([]pantry.ExchangeStep, pantry.RequirementMap, pantry.InventoryMap, error) {
	selections := make([]pantry.RecipeSelection, 0, len(recipes))
	for _, name := range recipes {
		selections = append(selections, pantry.RecipeSelection{
			Name:     name,
			Tier:     tier,
			Category: category,
		})
	}

	requirement, err := a.engine.ResolveMany(ctx, selections, category)
	if err != nil {
		return nil, nil, nil, err
	}
	inventory, err := a.cupboard.Snapshot(ctx)
	if err != nil {
		return nil, nil, nil, err
	}
	plan, err := a.engine.BuildExchangePlan(ctx, requirement, inventory)
	if err != nil {
		return nil, nil, nil, err
	}
	return plan, requirement, inventory, nil
}

func printDeficits(requirement pantry.RequirementMap, inventory pantry.InventoryMap) {
	codes := make([]string, 0, len(requirement))
	for code := range requirement {
		codes = append(codes, code)
	}
	sort.Strings(codes)

	fmt.Println("requirements:")
	for _, code := range codes {
		have := inventory[code]
		need := requirement[code]
		marker := ""
		if have < need {
			marker = fmt.Sprintf("  (short %d)", need-have)
		}
		fmt.Printf("  %-10s need %d, have %d%s\n", code, need, have, marker)
	}
}

func printPlan(plan []pantry.ExchangeStep) {
	if len(plan) == 0 {
		fmt.Println("plan: nothing to do")
		return
	}
	fmt.Println("plan:")
	for i, step := range plan {
		src := step.Give.Name
		if src == "" {
			src = step.Give.Code
		}
		if step.RequiresPurchase {
			fmt.Printf("  %d. buy %d tier-%d filler, then trade for %dx %s\n",
				i+1, step.GiveQuantity, step.PurchaseTier, step.WantQuantity, step.Want.Name)
			continue
		}
		fmt.Printf("  %d. give %dx %s for %dx %s\n",
			i+1, step.GiveQuantity, src, step.WantQuantity, step.Want.Name)
	}
}

func printResult(result *pantry.ExecutionResult) {
	for _, sr := range result.Steps {
		status := "ok"
		if !sr.Success {
			status = "failed"
		}
		fmt.Printf("  %s -> %s: %s (%s)\n",
			sr.Step.Give.Code, sr.Step.Want.Code, sr.Message, status)
	}
	fmt.Printf("exchanges: %d steps, %d ok, %d failed, %d purchases\n",
		result.Attempts, result.Successes, result.Failures, result.Purchases)
}

func printSynthesisPlan(plan *pantry.SynthesisPlan) {
	if !plan.Feasible {
		fmt.Printf("synthesis not feasible: %s\n", plan.Reason)
		return
	}
	fmt.Println("synthesis plan:")
	for i, step := range plan.Steps {
		switch step.Kind {
		case pantry.UseSurplus:
			fmt.Printf("  %d. combine %d tier-%d surplus into %d tier-%d\n",
				i+1, step.SourceQuantity, step.SourceTier, step.ResultQuantity, step.TargetTier)
		case pantry.BuyAndSynthesize:
			fmt.Printf("  %d. buy %d tier-%d (%d gold) and combine into %d tier-%d\n",
				i+1, step.SourceQuantity, step.SourceTier, step.Cost, step.ResultQuantity, step.TargetTier)
		}
	}
	fmt.Printf("yield: %d, total cost: %d gold\n", plan.FinalQuantity, plan.TotalCost)
}
