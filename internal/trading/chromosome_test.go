package trading

import (
	"math/rand"
	"testing"

	"backtestopt/internal/primitives"
	"backtestopt/internal/strategy"
)

func testContext() TradingParamsContext {
	return DefaultTradingParamsContext([]primitives.Interval{1000, 60_000})
}

func TestGenerateTradingParamsProducesConstructibleChromosome(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	ctx := testContext()
	for i := 0; i < 20; i++ {
		params := GenerateTradingParams(rng, ctx)
		if params.Trader.Interval != 1000 && params.Trader.Interval != 60_000 {
			t.Fatalf("interval %v not in context pool", params.Trader.Interval)
		}
		// Construct must not panic for any generated variant.
		params.Strategy.Construct(strategy.Meta{Interval: params.Trader.Interval})
	}
}

func TestChromosomeCrossSwapsGenes(t *testing.T) {
	rng := rand.New(rand.NewSource(2))
	ctx := testContext()
	a := NewChromosome(GenerateTradingParams(rng, ctx), ctx)
	b := NewChromosome(GenerateTradingParams(rng, ctx), ctx)

	origATrader := a.Params.Trader
	origBTrader := b.Params.Trader

	a.Cross(b, 1)

	if a.Params.Trader != origBTrader || b.Params.Trader != origATrader {
		t.Error("Cross(1) should swap the trader gene")
	}
}

func TestChromosomeMutateStaysInRange(t *testing.T) {
	rng := rand.New(rand.NewSource(3))
	ctx := testContext()
	c := NewChromosome(GenerateTradingParams(rng, ctx), ctx)

	c.Mutate(rng, 1)
	if c.Params.Trader.Interval != 1000 && c.Params.Trader.Interval != 60_000 {
		t.Fatalf("mutated interval %v not in context pool", c.Params.Trader.Interval)
	}
}

func TestChromosomeLen(t *testing.T) {
	c := NewChromosome(TradingParams{}, testContext())
	if c.Len() != 4 {
		t.Errorf("Len() = %d, want 4", c.Len())
	}
}
