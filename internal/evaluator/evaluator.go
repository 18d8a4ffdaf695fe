// Package evaluator turns a TradingParams chromosome into a fitness score
// by backtesting it over every configured symbol and combining the
// per-symbol statistic with a configurable aggregation function.
package evaluator

import (
	"encoding/json"
	"fmt"
	"math"
	"runtime"

	"github.com/sourcegraph/conc/pool"
	"go.uber.org/atomic"

	"backtestopt/internal/candle"
	"backtestopt/internal/filters"
	"backtestopt/internal/performance"
	"backtestopt/internal/primitives"
	"backtestopt/internal/trading"
)

// StatsInterval is the bucket granularity every equity curve and
// risk-adjusted statistic is computed at. A day, like the source system,
// independent of whatever interval the strategy itself trades on.
const StatsInterval = primitives.DayMs

// Statistic selects which summary statistic a chromosome is scored on.
type Statistic int

const (
	Profit Statistic = iota
	ReturnOverMaxDrawdown
	SharpeRatio
	SortinoRatio
)

var statisticNames = map[Statistic]string{
	Profit:                "profit",
	ReturnOverMaxDrawdown: "return_over_max_drawdown",
	SharpeRatio:           "sharpe_ratio",
	SortinoRatio:          "sortino_ratio",
}

func (s Statistic) String() string { return statisticNames[s] }

// MarshalJSON renders Statistic as its lowercase_snake_case name.
func (s Statistic) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.String())
}

// UnmarshalJSON parses a lowercase_snake_case Statistic name.
func (s *Statistic) UnmarshalJSON(data []byte) error {
	var name string
	if err := json.Unmarshal(data, &name); err != nil {
		return err
	}
	for stat, n := range statisticNames {
		if n == name {
			*s = stat
			return nil
		}
	}
	return fmt.Errorf("evaluator: unknown statistic %q", name)
}

// Aggregation selects how per-symbol statistic values are folded into one
// fitness score.
type Aggregation int

const (
	Linear Aggregation = iota
	Log10
	Log10Factored
)

var aggregationNames = map[Aggregation]string{
	Linear:        "linear",
	Log10:         "log10",
	Log10Factored: "log10_factored",
}

func (a Aggregation) String() string { return aggregationNames[a] }

// MarshalJSON renders Aggregation as its lowercase_snake_case name.
func (a Aggregation) MarshalJSON() ([]byte, error) {
	return json.Marshal(a.String())
}

// UnmarshalJSON parses a lowercase_snake_case Aggregation name.
func (a *Aggregation) UnmarshalJSON(data []byte) error {
	var name string
	if err := json.Unmarshal(data, &name); err != nil {
		return err
	}
	for agg, n := range aggregationNames {
		if n == name {
			*a = agg
			return nil
		}
	}
	return fmt.Errorf("evaluator: unknown aggregation %q", name)
}

func (a Aggregation) fold(acc, val float64) float64 {
	switch a {
	case Log10:
		return sumLog10(acc, val)
	case Log10Factored:
		return sumLog10Factored(acc, val)
	default:
		return acc + val
	}
}

const logShiftFactor = 1.0

func sumLog10(acc, val float64) float64 {
	if val >= 0 {
		return acc + math.Log10(val+logShiftFactor)
	}
	return acc - math.Pow(10, -val+logShiftFactor)
}

func sumLog10Factored(acc, val float64) float64 {
	const factor = 10.0
	return sumLog10(acc, val*factor)
}

// SymbolContext bundles the per-symbol, per-interval candle series and
// exchange facts a chromosome is backtested against, plus the benchmark
// price series (base asset, in quote, at StatsInterval granularity,
// aligned with the evaluation window) its equity curve and risk-adjusted
// statistics are derived from. Prices may be nil when the evaluator will
// only ever be asked for Profit, which needs no price series.
type SymbolContext struct {
	Symbol           string
	IntervalCandles  map[primitives.Interval][]candle.Candle
	Fees             filters.Fees
	Filters          filters.Filters
	BorrowInfo       filters.BorrowInfo
	MarginMultiplier uint32
	Prices           []float64
}

// BasicEvaluation scores a TradingParams chromosome by backtesting it
// independently against every configured symbol and aggregating the
// resulting statistic.
type BasicEvaluation struct {
	symbols     []SymbolContext
	quote       float64
	statistic   Statistic
	aggregation Aggregation
	maxWorkers  int

	evaluated atomic.Uint64
}

// New constructs a BasicEvaluation. maxWorkers bounds the number of
// symbols backtested concurrently per chromosome; 0 uses GOMAXPROCS.
func New(symbols []SymbolContext, quote float64, statistic Statistic, aggregation Aggregation, maxWorkers int) *BasicEvaluation {
	return &BasicEvaluation{
		symbols:     symbols,
		quote:       quote,
		statistic:   statistic,
		aggregation: aggregation,
		maxWorkers:  maxWorkers,
	}
}

// Evaluate backtests params against every configured symbol concurrently
// and folds the per-symbol statistics, in symbol order, into one fitness
// score with the configured aggregation. A symbol whose backtest returns an
// error scores math.Inf(-1).
func (e *BasicEvaluation) Evaluate(params trading.TradingParams) float64 {
	defer e.evaluated.Inc()

	results := make([]float64, len(e.symbols))

	p := pool.New().WithMaxGoroutines(workerCount(e.maxWorkers))
	for i, ctx := range e.symbols {
		i, ctx := i, ctx
		p.Go(func() {
			results[i] = e.evaluateSymbol(ctx, params)
		})
	}
	p.Wait()

	acc := 0.0
	for _, v := range results {
		acc = e.aggregation.fold(acc, v)
	}
	return acc
}

func (e *BasicEvaluation) evaluateSymbol(ctx SymbolContext, params trading.TradingParams) float64 {
	summary, err := trading.Trade(params, trading.Input{
		Candles:          ctx.IntervalCandles[params.Trader.Interval],
		Fees:             ctx.Fees,
		Filters:          ctx.Filters,
		BorrowInfo:       ctx.BorrowInfo,
		MarginMultiplier: ctx.MarginMultiplier,
		Quote:            e.quote,
		Long:             true,
		Short:            true,
	})
	if err != nil {
		return math.Inf(-1)
	}

	switch e.statistic {
	case Profit:
		return performance.ComposeCoreStatistics(summary).Profit
	case ReturnOverMaxDrawdown:
		core := performance.ComposeCoreStatistics(summary)
		ext := performance.ComposeExtendedStatistics(summary, ctx.Prices, StatsInterval)
		if ext.MaxDrawdown == 0 {
			return core.ROI
		}
		return core.ROI / ext.MaxDrawdown
	case SharpeRatio:
		return performance.ComposeExtendedStatistics(summary, ctx.Prices, StatsInterval).SharpeRatio
	case SortinoRatio:
		return performance.ComposeExtendedStatistics(summary, ctx.Prices, StatsInterval).SortinoRatio
	default:
		return 0
	}
}

// EvaluatedCount returns the number of chromosomes evaluated so far.
func (e *BasicEvaluation) EvaluatedCount() uint64 {
	return e.evaluated.Load()
}

// workerCount resolves maxWorkers the same way the standard library's
// worker-pool idioms treat a non-positive limit: 0 (or negative) means "use
// every available core", via runtime.GOMAXPROCS(0), not "run serially".
func workerCount(max int) int {
	if max <= 0 {
		return runtime.GOMAXPROCS(0)
	}
	return max
}
