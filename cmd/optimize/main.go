// Package main provides the one-shot optimization CLI.
package main

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/yourusername/wager-engine/internal/combo"
	"github.com/yourusername/wager-engine/internal/config"
	"github.com/yourusername/wager-engine/internal/feed"
	"github.com/yourusername/wager-engine/internal/kelly"
	"github.com/yourusername/wager-engine/internal/ledger"
	"github.com/yourusername/wager-engine/internal/logger"
	"github.com/yourusername/wager-engine/internal/models"
	"github.com/yourusername/wager-engine/internal/optimizer"
	"github.com/yourusername/wager-engine/internal/pricing"
	"github.com/yourusername/wager-engine/internal/probability"
	"github.com/yourusername/wager-engine/internal/store"
)

// Build information - set via ldflags
var (
	Version   = "dev"
	GitCommit = "unknown"
)

var (
	configFile string
	appLog     *logrus.Logger
	cfg        *config.Config

	contestID  string
	budget     float64
	structures []string
	riskDial   float64
	record     bool
	strategyID string
)

func init() {
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "./config/config.yaml", "Path to configuration file")

	optimizeCmd.Flags().StringVar(&contestID, "contest", "", "Contest id to optimize (required)")
	optimizeCmd.Flags().Float64Var(&budget, "budget", 10000, "Total budget for this contest")
	optimizeCmd.Flags().StringSliceVar(&structures, "structures", []string{"single", "exacta", "trifecta"}, "Wager structures to evaluate")
	optimizeCmd.Flags().Float64Var(&riskDial, "risk", 0, "Fractional Kelly override in (0,1]; 0 uses the configured value")
	optimizeCmd.Flags().BoolVar(&record, "record", false, "Record recommendations into the ledger")
	optimizeCmd.Flags().StringVar(&strategyID, "strategy", "", "Strategy id for recorded bets (default from config)")
	optimizeCmd.MarkFlagRequired("contest")

	settleCmd.Flags().StringVar(&contestID, "contest", "", "Contest id to settle (required)")
	settleCmd.MarkFlagRequired("contest")

	rootCmd.AddCommand(optimizeCmd, settleCmd, summaryCmd)
}

var rootCmd = &cobra.Command{
	Use:   "optimize",
	Short: "Wager engine optimization CLI",
	Long:  `Runs a one-shot optimization for a contest against the configured feeds, settles contests and prints ledger summaries.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.LoadWithDefaults(configFile)
		if err != nil {
			return fmt.Errorf("failed to load configuration: %w", err)
		}
		appLog = logger.NewLogger(cfg.App.LogLevel)
		return nil
	},
}

var optimizeCmd = &cobra.Command{
	Use:   "run",
	Short: "Optimize a single contest and print ranked recommendations",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		return runOptimize(ctx)
	},
}

var settleCmd = &cobra.Command{
	Use:   "settle",
	Short: "Fetch results for a contest and settle its pending transactions",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		lg, closeStore, err := openLedger(ctx)
		if err != nil {
			return err
		}
		defer closeStore()

		resultsClient := feed.NewResultsClient(&cfg.Feeds.Results, appLog)
		defer resultsClient.Close()

		results, err := resultsClient.Results(ctx, contestID)
		if err != nil {
			return err
		}
		settled, err := lg.Settle(ctx, contestID, results)
		if err != nil {
			return err
		}
		fmt.Printf("Settled %d transactions for contest %s\n", settled, contestID)
		return nil
	},
}

var summaryCmd = &cobra.Command{
	Use:   "summary",
	Short: "Print the ledger balance and performance summary",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		lg, closeStore, err := openLedger(ctx)
		if err != nil {
			return err
		}
		defer closeStore()

		summary, err := lg.Summarize(ctx)
		if err != nil {
			return err
		}
		printSummary(summary)
		return nil
	},
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		log.Fatalf("Error: %v", err)
	}
}

func openLedger(ctx context.Context) (*ledger.Ledger, func(), error) {
	openingBalance := decimal.NewFromFloat(cfg.Ledger.OpeningBalance)
	pg, err := store.NewPostgresStore(ctx, cfg.GetDatabaseDSN(), cfg.Database.MaxConnections, openingBalance)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	return ledger.New(pg, appLog), pg.Close, nil
}

func buildOptimizer() *optimizer.Optimizer {
	estimator := probability.NewEstimator()
	estimator.Position2Cap = cfg.Optimizer.Position2Cap
	estimator.Position3Cap = cfg.Optimizer.Position3Cap

	generator := combo.NewGenerator()
	generator.MaxTrifecta = cfg.Optimizer.MaxTrifectaCandidates

	evaluator := pricing.NewEvaluator(estimator, appLog)

	sizer := kelly.NewSizer()
	sizer.FractionalKelly = cfg.Kelly.FractionalKelly
	sizer.MaxBetFraction = cfg.Kelly.MaxBetFraction
	sizer.Unit = decimal.NewFromFloat(cfg.Kelly.BetUnit)
	sizer.MinBet = decimal.NewFromFloat(cfg.Kelly.MinBet)

	optCfg := optimizer.DefaultConfig()
	optCfg.EVThresholdSingle = cfg.Optimizer.SingleEVThreshold
	optCfg.EVThresholdExacta = cfg.Optimizer.ExactaEVThreshold
	optCfg.EVThresholdTrifecta = cfg.Optimizer.TrifectaEVThreshold
	optCfg.TopSingles = cfg.Optimizer.SingleTopN
	optCfg.TopExactas = cfg.Optimizer.ExactaTopN
	optCfg.TopTrifectas = cfg.Optimizer.TrifectaTopN
	optCfg.FallbackOdds = cfg.Optimizer.FallbackOdds
	optCfg.FormationBudgetDivisor = cfg.Optimizer.FormationBudgetDivisor

	return optimizer.New(optCfg, generator, evaluator, sizer, appLog)
}

func runOptimize(ctx context.Context) error {
	predictor := feed.NewPredictorClient(&cfg.Feeds.Predictor, appLog)
	defer predictor.Close()
	oddsClient := feed.NewOddsClient(&cfg.Feeds.Odds, appLog)
	defer oddsClient.Close()

	entrants, err := predictor.Probabilities(ctx, contestID)
	if err != nil {
		return fmt.Errorf("fetching probabilities: %w", err)
	}
	quotes, err := oddsClient.Quotes(ctx, contestID)
	if err != nil {
		return fmt.Errorf("fetching odds: %w", err)
	}

	wagerStructures := make([]models.WagerStructure, 0, len(structures))
	for _, s := range structures {
		wagerStructures = append(wagerStructures, models.WagerStructure(strings.ToLower(s)))
	}

	req := optimizer.Request{
		ContestID:  contestID,
		Entrants:   entrants,
		Budget:     decimal.NewFromFloat(budget),
		Structures: wagerStructures,
		RiskDial:   riskDial,
	}

	result, err := buildOptimizer().Optimize(ctx, req, quotes)
	if err != nil {
		return err
	}

	printResult(result)

	if record {
		return recordRecommendations(ctx, result)
	}
	return nil
}

func recordRecommendations(ctx context.Context, result *optimizer.Result) error {
	lg, closeStore, err := openLedger(ctx)
	if err != nil {
		return err
	}
	defer closeStore()

	strategy := strategyID
	if strategy == "" {
		strategy = cfg.Ledger.DefaultStrategyID
	}

	recorded := 0
	for _, rec := range result.Recommendations {
		accepted, err := lg.Record(ctx, strategy, result.ContestID, rec.RecommendedAmount, rec.Structure, rec.Combination, rec.Odds)
		if err != nil {
			return fmt.Errorf("recording %s: %w", rec.Combination.Key(), err)
		}
		if accepted {
			recorded++
		}
	}
	fmt.Printf("\nRecorded %d of %d recommendations under strategy %q\n", recorded, len(result.Recommendations), strategy)
	return nil
}

func printResult(result *optimizer.Result) {
	fmt.Printf("Contest %s — %d recommendations\n\n", result.ContestID, len(result.Recommendations))

	if len(result.Recommendations) == 0 {
		fmt.Println("No wager clears the expected value thresholds.")
	}
	for i, rec := range result.Recommendations {
		quoteNote := ""
		if rec.FallbackQuote {
			quoteNote = " (fallback quote)"
		}
		fmt.Printf("%2d. %-8s %-12s p=%.4f odds=%.2f%s EV=%.3f kelly=%.4f stake=%s risk=%s\n",
			i+1, rec.Structure, rec.Combination.Key(), rec.Probability, rec.Odds, quoteNote,
			rec.ExpectedValue, rec.KellyFraction, rec.RecommendedAmount.StringFixed(0), rec.RiskLevel)
	}

	if result.Formation != nil {
		f := result.Formation
		fmt.Printf("\nFormation: %v / %v / %v — %d combinations, cost %s, EV %.3f\n",
			f.Spec.Firsts, f.Spec.Seconds, f.Spec.Thirds, f.Combinations, f.TotalCost.StringFixed(0), f.ExpectedValue)
	}
	if result.Box != nil {
		b := result.Box
		fmt.Printf("Box: %v — %d combinations, cost %s, EV %.3f\n",
			b.IDs, b.Combinations, b.TotalCost.StringFixed(0), b.ExpectedValue)
	}

	fmt.Printf("\nTotal stake: %s  Expected return: %s\n",
		result.TotalStake.StringFixed(0), result.ExpectedReturn.StringFixed(0))
}

func printSummary(s *ledger.Summary) {
	fmt.Printf("Balance:   %s\n", s.Balance.StringFixed(0))
	fmt.Printf("Bets:      %d (%d pending)\n", s.TotalBets, s.PendingBets)
	fmt.Printf("Wins:      %d (%.1f%% of settled)\n", s.Wins, s.WinRate)
	fmt.Printf("Invested:  %s\n", s.Invested.StringFixed(0))
	fmt.Printf("Returned:  %s\n", s.Returned.StringFixed(0))
	fmt.Printf("ROI:       %.1f%%\n", s.ROI)

	if len(s.Recent) > 0 {
		fmt.Printf("\nRecent transactions (%d):\n", len(s.Recent))
		for _, tx := range s.Recent {
			settled := "-"
			if tx.SettledAt != nil {
				settled = tx.SettledAt.Format(time.RFC3339)
			}
			fmt.Printf("  %-10s %-8s %-12s %8s @%.2f  %-7s ret=%s  %s\n",
				tx.ContestID, tx.Structure, tx.Combination.Key(), tx.Amount.StringFixed(0),
				tx.OddsAtPurchase, tx.Status, tx.ReturnAmount.StringFixed(0), settled)
		}
	}
}
