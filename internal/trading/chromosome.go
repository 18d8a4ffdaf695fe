package trading

import (
	"math/rand"

	"backtestopt/internal/genetic"
	"backtestopt/internal/primitives"
	"backtestopt/internal/stoploss"
	"backtestopt/internal/strategy"
	"backtestopt/internal/takeprofit"
)

// IntRange is an inclusive [Min, Max] bound a gene is generated and mutated
// within.
type IntRange struct {
	Min, Max uint32
}

func (r IntRange) pick(rng *rand.Rand) uint32 {
	if r.Max <= r.Min {
		return r.Min
	}
	return r.Min + uint32(rng.Intn(int(r.Max-r.Min+1)))
}

// FloatRange is a half-open [Min, Max) bound a float gene is generated
// within.
type FloatRange struct {
	Min, Max float64
}

func (r FloatRange) pick(rng *rand.Rand) float64 {
	if r.Max <= r.Min {
		return r.Min
	}
	return r.Min + rng.Float64()*(r.Max-r.Min)
}

// TradingParamsContext bounds the search space a TradingParams chromosome is
// generated and mutated within: the candle intervals available for the
// trader gene, and the numeric ranges for each strategy/stop-loss/
// take-profit variant's fields. This mirrors TraderParamsContext's role of
// supplying the candidate interval pool, generalized to every gene.
type TradingParamsContext struct {
	Intervals []primitives.Interval

	MAPeriod        IntRange
	FourWeekPeriod  IntRange
	PriceThreshold  FloatRange
	ThresholdFactor FloatRange

	// StrategyWeights is carried with the context but not read: Generate
	// and Mutate pick every strategy variant with equal probability.
	StrategyWeights map[string]int
}

// DefaultTradingParamsContext returns a context spanning a modest but varied
// search space, suitable when the caller has no stronger prior.
func DefaultTradingParamsContext(intervals []primitives.Interval) TradingParamsContext {
	return TradingParamsContext{
		Intervals:       intervals,
		MAPeriod:        IntRange{Min: 2, Max: 100},
		FourWeekPeriod:  IntRange{Min: 14, Max: 56},
		PriceThreshold:  FloatRange{Min: 0, Max: 0.1},
		ThresholdFactor: FloatRange{Min: 0, Max: 0.5},
	}
}

func (ctx TradingParamsContext) pickInterval(rng *rand.Rand) primitives.Interval {
	if len(ctx.Intervals) == 1 {
		return ctx.Intervals[0]
	}
	return ctx.Intervals[rng.Intn(len(ctx.Intervals))]
}

var strategyVariantNames = []string{"single_ma", "double_ma", "triple_ma", "four_week_rule"}

func (ctx TradingParamsContext) pickStrategyVariant(rng *rand.Rand) string {
	return strategyVariantNames[rng.Intn(len(strategyVariantNames))]
}

func (ctx TradingParamsContext) generateStrategy(rng *rand.Rand) StrategyParams {
	switch ctx.pickStrategyVariant(rng) {
	case "double_ma":
		short := ctx.MAPeriod.pick(rng)
		long := short + 1 + ctx.MAPeriod.pick(rng)
		return StrategyParams{DoubleMA: &strategy.DoubleMAParams{ShortPeriod: short, LongPeriod: long}}
	case "triple_ma":
		short := ctx.MAPeriod.pick(rng)
		medium := short + 1 + ctx.MAPeriod.pick(rng)
		long := medium + 1 + ctx.MAPeriod.pick(rng)
		return StrategyParams{TripleMA: &strategy.TripleMAParams{ShortPeriod: short, MediumPeriod: medium, LongPeriod: long}}
	case "four_week_rule":
		return StrategyParams{FourWeekRule: &strategy.FourWeekRuleParams{
			Period:           ctx.FourWeekPeriod.pick(rng),
			MAPeriod:         ctx.MAPeriod.pick(rng),
			MAPriceThreshold: ctx.PriceThreshold.pick(rng),
		}}
	default:
		return StrategyParams{SingleMA: &strategy.SingleMAParams{Period: ctx.MAPeriod.pick(rng)}}
	}
}

func (ctx TradingParamsContext) generateStopLoss(rng *rand.Rand) StopLossParams {
	if rng.Float64() < 0.5 {
		return StopLossParams{}
	}
	return StopLossParams{Basic: &stoploss.BasicParams{
		UpThreshold:   ctx.ThresholdFactor.pick(rng),
		DownThreshold: ctx.ThresholdFactor.pick(rng),
	}}
}

func (ctx TradingParamsContext) generateTakeProfit(rng *rand.Rand) TakeProfitParams {
	if rng.Float64() < 0.5 {
		return TakeProfitParams{}
	}
	return TakeProfitParams{Basic: &takeprofit.BasicParams{
		UpThreshold:   ctx.ThresholdFactor.pick(rng),
		DownThreshold: ctx.ThresholdFactor.pick(rng),
	}}
}

// GenerateTradingParams builds a random chromosome within ctx's bounds, the
// Go analogue of TraderParamsContext's Chromosome::generate.
func GenerateTradingParams(rng *rand.Rand, ctx TradingParamsContext) TradingParams {
	return TradingParams{
		Strategy:   ctx.generateStrategy(rng),
		Trader:     TraderParams{Interval: ctx.pickInterval(rng)},
		StopLoss:   ctx.generateStopLoss(rng),
		TakeProfit: ctx.generateTakeProfit(rng),
	}
}

// Chromosome adapts a TradingParams to the genetic package's Chromosome
// interface. It carries its own generation context so Mutate can redraw a
// gene without a caller threading the context through every call, the
// Go equivalent of the Rust generate/mutate pair both receiving &Context.
//
// Genes are the four top-level fragments (strategy, trader interval,
// stop-loss, take-profit) rather than individual struct fields: crossing or
// mutating half of a SingleMAParams would produce a value no variant's
// Construct expects, so each fragment is swapped or regenerated whole.
type Chromosome struct {
	Params TradingParams
	Ctx    TradingParamsContext
}

// NewChromosome wraps params for genetic operation within ctx.
func NewChromosome(params TradingParams, ctx TradingParamsContext) *Chromosome {
	return &Chromosome{Params: params, Ctx: ctx}
}

// Clone returns an independent copy: TradingParams is a plain value struct,
// so crossover and mutation on the clone never touch the original.
func (c *Chromosome) Clone() genetic.Chromosome {
	return &Chromosome{Params: c.Params, Ctx: c.Ctx}
}

// Len reports the four genes: strategy, trader, stop-loss, take-profit.
func (c *Chromosome) Len() int { return 4 }

// Cross swaps gene i with other's gene i. other must be a *Chromosome; a
// mismatched type is a programmer error in the calling genetic.Algorithm
// wiring, not a runtime input, so it panics rather than erroring silently.
func (c *Chromosome) Cross(other genetic.Chromosome, i int) {
	o, ok := other.(*Chromosome)
	if !ok {
		panic("trading: Chromosome.Cross called with a non-*Chromosome peer")
	}
	switch i {
	case 0:
		c.Params.Strategy, o.Params.Strategy = o.Params.Strategy, c.Params.Strategy
	case 1:
		c.Params.Trader, o.Params.Trader = o.Params.Trader, c.Params.Trader
	case 2:
		c.Params.StopLoss, o.Params.StopLoss = o.Params.StopLoss, c.Params.StopLoss
	case 3:
		c.Params.TakeProfit, o.Params.TakeProfit = o.Params.TakeProfit, c.Params.TakeProfit
	default:
		panic("trading: Chromosome.Cross gene index out of range")
	}
}

// Mutate redraws gene i from c.Ctx.
func (c *Chromosome) Mutate(rng *rand.Rand, i int) {
	switch i {
	case 0:
		c.Params.Strategy = c.Ctx.generateStrategy(rng)
	case 1:
		c.Params.Trader = TraderParams{Interval: c.Ctx.pickInterval(rng)}
	case 2:
		c.Params.StopLoss = c.Ctx.generateStopLoss(rng)
	case 3:
		c.Params.TakeProfit = c.Ctx.generateTakeProfit(rng)
	default:
		panic("trading: Chromosome.Mutate gene index out of range")
	}
}
