// Package optimizer orchestrates combination generation, pricing and sizing
// into ranked betting recommendations for a contest.
package optimizer

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/yourusername/wager-engine/internal/combo"
	"github.com/yourusername/wager-engine/internal/kelly"
	"github.com/yourusername/wager-engine/internal/metrics"
	"github.com/yourusername/wager-engine/internal/models"
	"github.com/yourusername/wager-engine/internal/pricing"
	"github.com/yourusername/wager-engine/internal/probability"
)

// Config holds the optimizer's tunable dials. The thresholds and caps are
// empirically chosen, not derived; change them through configuration only.
type Config struct {
	EVThresholdSingle   float64
	EVThresholdExacta   float64
	EVThresholdTrifecta float64

	TopSingles   int
	TopExactas   int
	TopTrifectas int

	// Per-structure damping: stricter per-bet caps and a halved Kelly dial
	// reflect the higher estimation uncertainty of multi-leg wagers.
	ExactaCapScale     float64
	TrifectaCapScale   float64
	TrifectaKellyScale float64

	// FallbackOdds prices unquoted legs in the formation and box searches.
	FallbackOdds float64
	// FormationBudgetDivisor bounds the formation search at budget/divisor.
	FormationBudgetDivisor int
	BoxSize                int

	RiskBands models.RiskBands
}

// DefaultConfig returns the dials the engine ships with.
func DefaultConfig() Config {
	return Config{
		EVThresholdSingle:      1.0,
		EVThresholdExacta:      1.0,
		EVThresholdTrifecta:    1.2,
		TopSingles:             2,
		TopExactas:             3,
		TopTrifectas:           3,
		ExactaCapScale:         0.5,
		TrifectaCapScale:       0.3,
		TrifectaKellyScale:     0.5,
		FallbackOdds:           10.0,
		FormationBudgetDivisor: 3,
		BoxSize:                3,
		RiskBands:              models.RiskBands{Low: 0.3, Medium: 0.15},
	}
}

// Request is one optimization call for a single contest.
type Request struct {
	ContestID  string
	Entrants   []models.Entrant
	Budget     decimal.Decimal
	Structures []models.WagerStructure
	// RiskDial overrides the fractional Kelly multiplier when in (0, 1].
	RiskDial float64
	// Formation supplies explicit position sets; when nil the formation
	// search runs over fixed head/second/third count patterns.
	Formation *models.FormationSpec
	// BoxIDs supplies an explicit box set; when empty the box search scans
	// subsets of the ranked entrants.
	BoxIDs []string
}

// FormationPlan is the best formation configuration found under the cost cap.
type FormationPlan struct {
	Spec           models.FormationSpec `json:"spec"`
	Combinations   int                  `json:"combinations"`
	TotalCost      decimal.Decimal      `json:"total_cost"`
	ExpectedReturn decimal.Decimal      `json:"expected_return"`
	ExpectedValue  float64              `json:"expected_value"`
}

// BoxPlan is the best box set found.
type BoxPlan struct {
	IDs            []string        `json:"ids"`
	Combinations   int             `json:"combinations"`
	TotalCost      decimal.Decimal `json:"total_cost"`
	ExpectedReturn decimal.Decimal `json:"expected_return"`
	ExpectedValue  float64         `json:"expected_value"`
}

// Result is the full output of one optimization pass.
type Result struct {
	ContestID       string                  `json:"contest_id"`
	Recommendations []models.Recommendation `json:"recommendations"`
	Formation       *FormationPlan          `json:"formation,omitempty"`
	Box             *BoxPlan                `json:"box,omitempty"`
	TotalStake      decimal.Decimal         `json:"total_stake"`
	ExpectedReturn  decimal.Decimal         `json:"expected_return"`
}

// Optimizer produces ranked recommendations per contest. It is stateless:
// concurrent Optimize calls are independent and nothing is persisted until a
// recommendation is explicitly recorded in the ledger.
type Optimizer struct {
	cfg       Config
	generator *combo.Generator
	evaluator *pricing.Evaluator
	sizer     *kelly.Sizer
	logger    *logrus.Logger
}

// New creates an optimizer.
func New(cfg Config, generator *combo.Generator, evaluator *pricing.Evaluator, sizer *kelly.Sizer, logger *logrus.Logger) *Optimizer {
	return &Optimizer{
		cfg:       cfg,
		generator: generator,
		evaluator: evaluator,
		sizer:     sizer,
		logger:    logger,
	}
}

// Optimize validates the request wholesale, evaluates each requested wager
// structure in parallel and returns recommendations ranked by expected value.
// An empty recommendation list is the correct answer when nothing clears the
// thresholds; it is not an error.
func (o *Optimizer) Optimize(ctx context.Context, req Request, quotes pricing.QuoteBook) (*Result, error) {
	start := time.Now()
	defer func() {
		metrics.OptimizationDuration.Observe(time.Since(start).Seconds())
	}()

	if err := o.validate(req); err != nil {
		metrics.OptimizationsTotal.WithLabelValues("invalid").Inc()
		return nil, err
	}

	book := probability.NewBook(req.Entrants)
	sizer := o.sizerFor(req.RiskDial)

	result := &Result{
		ContestID:      req.ContestID,
		TotalStake:     decimal.Zero,
		ExpectedReturn: decimal.Zero,
	}

	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		recs []models.Recommendation
	)

	for _, structure := range req.Structures {
		structure := structure
		wg.Add(1)
		go func() {
			defer wg.Done()
			if ctx.Err() != nil {
				return
			}
			switch structure {
			case models.StructureSingle, models.StructureExacta, models.StructureTrifecta:
				ranked := o.rankedRecommendations(book, structure, quotes, sizer, req.Budget)
				mu.Lock()
				recs = append(recs, ranked...)
				mu.Unlock()
			case models.StructureFormation:
				plan := o.bestFormation(book, req, quotes)
				mu.Lock()
				result.Formation = plan
				mu.Unlock()
			case models.StructureBox:
				plan := o.bestBox(book, req, quotes)
				mu.Lock()
				result.Box = plan
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	if err := ctx.Err(); err != nil {
		metrics.OptimizationsTotal.WithLabelValues("cancelled").Inc()
		return nil, err
	}

	sort.SliceStable(recs, func(i, j int) bool {
		return recs[i].ExpectedValue > recs[j].ExpectedValue
	})
	result.Recommendations = recs

	for _, rec := range recs {
		result.TotalStake = result.TotalStake.Add(rec.RecommendedAmount)
		result.ExpectedReturn = result.ExpectedReturn.Add(
			rec.RecommendedAmount.Mul(decimal.NewFromFloat(rec.ExpectedValue)))
		metrics.RecommendationsTotal.WithLabelValues(string(rec.Structure)).Inc()
	}

	if len(recs) == 0 && result.Formation == nil && result.Box == nil {
		metrics.OptimizationsTotal.WithLabelValues("empty").Inc()
		o.logger.WithField("contest_id", req.ContestID).Info("No combination clears the expected value thresholds")
	} else {
		metrics.OptimizationsTotal.WithLabelValues("ok").Inc()
	}

	return result, nil
}

func (o *Optimizer) validate(req Request) error {
	if req.ContestID == "" {
		return fmt.Errorf("%w: contest id is required", models.ErrInvalidInput)
	}
	if len(req.Entrants) == 0 {
		return fmt.Errorf("%w: entrant list is empty", models.ErrInvalidInput)
	}
	seen := make(map[string]struct{}, len(req.Entrants))
	for _, e := range req.Entrants {
		if e.ID == "" || e.WinProbability < 0 || e.WinProbability > 1 {
			return fmt.Errorf("%w: malformed entrant %+v", models.ErrInvalidInput, e)
		}
		if _, dup := seen[e.ID]; dup {
			return fmt.Errorf("%w: duplicate entrant id %q", models.ErrInvalidInput, e.ID)
		}
		seen[e.ID] = struct{}{}
	}
	if req.Budget.Sign() < 0 {
		return fmt.Errorf("%w: negative budget", models.ErrInvalidInput)
	}
	if len(req.Structures) == 0 {
		return fmt.Errorf("%w: no wager structures requested", models.ErrInvalidInput)
	}
	for _, s := range req.Structures {
		if !s.Valid() {
			return fmt.Errorf("%w: unknown wager structure %q", models.ErrInvalidInput, s)
		}
	}
	if req.RiskDial < 0 || req.RiskDial > 1 {
		return fmt.Errorf("%w: risk dial %.3f outside (0,1]", models.ErrInvalidInput, req.RiskDial)
	}
	return nil
}

func (o *Optimizer) sizerFor(riskDial float64) *kelly.Sizer {
	if riskDial <= 0 {
		return o.sizer
	}
	sized := *o.sizer
	sized.FractionalKelly = riskDial
	return &sized
}

func (o *Optimizer) rankedRecommendations(book *probability.Book, structure models.WagerStructure, quotes pricing.QuoteBook, sizer *kelly.Sizer, budget decimal.Decimal) []models.Recommendation {
	var combos []models.Combination
	switch structure {
	case models.StructureSingle:
		combos = o.generator.Singles(book)
	case models.StructureExacta:
		combos = o.generator.Exactas(book)
	case models.StructureTrifecta:
		combos = o.generator.Trifectas(book)
	}
	if len(combos) == 0 {
		return nil
	}

	threshold, topN, capScale, kellyScale := o.structureDials(structure)
	priced := o.evaluator.Evaluate(book, structure, combos, quotes)

	var recs []models.Recommendation
	for _, pc := range priced {
		if pc.ExpectedValue <= threshold {
			continue
		}
		fraction := sizer.FractionScaled(pc.Probability, pc.Odds, kellyScale)
		if fraction <= 0 {
			continue
		}
		amount := sizer.AmountCapped(budget, fraction, sizer.MaxBetFraction*capScale)
		if amount.Sign() <= 0 {
			continue
		}
		recs = append(recs, models.Recommendation{
			PricedCombination: pc,
			KellyFraction:     fraction,
			RecommendedAmount: amount,
			RiskLevel:         o.cfg.RiskBands.Classify(pc.Probability),
		})
	}

	sort.SliceStable(recs, func(i, j int) bool {
		return recs[i].ExpectedValue > recs[j].ExpectedValue
	})
	if len(recs) > topN {
		recs = recs[:topN]
	}
	return recs
}

func (o *Optimizer) structureDials(structure models.WagerStructure) (threshold float64, topN int, capScale, kellyScale float64) {
	switch structure {
	case models.StructureSingle:
		return o.cfg.EVThresholdSingle, o.cfg.TopSingles, 1.0, 1.0
	case models.StructureExacta:
		return o.cfg.EVThresholdExacta, o.cfg.TopExactas, o.cfg.ExactaCapScale, 1.0
	default:
		return o.cfg.EVThresholdTrifecta, o.cfg.TopTrifectas, o.cfg.TrifectaCapScale, o.cfg.TrifectaKellyScale
	}
}

// formationPatterns are the head/second/third candidate counts the automatic
// formation search tries, smallest spread first.
var formationPatterns = [][3]int{
	{1, 2, 3},
	{1, 2, 4},
	{1, 3, 4},
	{2, 2, 3},
	{2, 3, 4},
}

func (o *Optimizer) bestFormation(book *probability.Book, req Request, quotes pricing.QuoteBook) *FormationPlan {
	maxCost := req.Budget
	if o.cfg.FormationBudgetDivisor > 1 {
		maxCost = req.Budget.Div(decimal.NewFromInt(int64(o.cfg.FormationBudgetDivisor))).Floor()
	}

	var specs []models.FormationSpec
	if req.Formation != nil {
		specs = []models.FormationSpec{*req.Formation}
	} else {
		ranked := book.Ranked()
		for _, pattern := range formationPatterns {
			h, s, t := pattern[0], pattern[1], pattern[2]
			if t > len(ranked) {
				continue
			}
			specs = append(specs, models.FormationSpec{
				Firsts:  entrantIDs(ranked[:h]),
				Seconds: entrantIDs(ranked[:s]),
				Thirds:  entrantIDs(ranked[:t]),
			})
		}
	}

	var best *FormationPlan
	for _, spec := range specs {
		combos := o.generator.Formation(spec)
		if len(combos) == 0 {
			continue
		}
		cost := combo.Cost(o.sizer.Unit, len(combos))
		if cost.GreaterThan(maxCost) {
			continue
		}
		expectedReturn, ev := o.planValue(book, combos, quotes, cost)
		if ev <= 1.0 {
			continue
		}
		if best == nil || ev > best.ExpectedValue {
			best = &FormationPlan{
				Spec:           spec,
				Combinations:   len(combos),
				TotalCost:      cost,
				ExpectedReturn: expectedReturn,
				ExpectedValue:  ev,
			}
		}
	}
	return best
}

func (o *Optimizer) bestBox(book *probability.Book, req Request, quotes pricing.QuoteBook) *BoxPlan {
	var candidates [][]string
	if len(req.BoxIDs) > 0 {
		candidates = [][]string{req.BoxIDs}
	} else {
		candidates = subsetsOf(entrantIDs(book.Ranked()), o.cfg.BoxSize)
	}

	var best *BoxPlan
	for _, ids := range candidates {
		combos := o.generator.Box(ids)
		if len(combos) == 0 {
			continue
		}
		cost := combo.Cost(o.sizer.Unit, len(combos))
		if cost.GreaterThan(req.Budget) {
			continue
		}
		expectedReturn, ev := o.planValue(book, combos, quotes, cost)
		if ev <= 1.0 {
			continue
		}
		if best == nil || ev > best.ExpectedValue {
			best = &BoxPlan{
				IDs:            ids,
				Combinations:   len(combos),
				TotalCost:      cost,
				ExpectedReturn: expectedReturn,
				ExpectedValue:  ev,
			}
		}
	}
	return best
}

// planValue sums expected return over a plan's combinations at one unit per
// leg and reports expected value per unit cost.
func (o *Optimizer) planValue(book *probability.Book, combos []models.Combination, quotes pricing.QuoteBook, cost decimal.Decimal) (decimal.Decimal, float64) {
	priced := o.evaluator.EvaluateWithFallback(book, models.StructureTrifecta, combos, quotes, o.cfg.FallbackOdds)
	expected := decimal.Zero
	for _, pc := range priced {
		expected = expected.Add(o.sizer.Unit.Mul(decimal.NewFromFloat(pc.ExpectedValue)))
	}
	if cost.Sign() <= 0 {
		return expected, 0
	}
	ev, _ := expected.Div(cost).Float64()
	return expected, ev
}

func entrantIDs(entrants []models.Entrant) []string {
	ids := make([]string, 0, len(entrants))
	for _, e := range entrants {
		ids = append(ids, e.ID)
	}
	return ids
}

// subsetsOf enumerates all size-k subsets preserving rank order.
func subsetsOf(ids []string, k int) [][]string {
	if k <= 0 || k > len(ids) {
		return nil
	}
	var out [][]string
	subset := make([]string, k)
	var walk func(start, depth int)
	walk = func(start, depth int) {
		if depth == k {
			picked := make([]string, k)
			copy(picked, subset)
			out = append(out, picked)
			return
		}
		for i := start; i <= len(ids)-(k-depth); i++ {
			subset[depth] = ids[i]
			walk(i+1, depth+1)
		}
	}
	walk(0, 0)
	return out
}
