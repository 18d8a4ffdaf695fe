package trading

import (
	"testing"

	"backtestopt/internal/candle"
	"backtestopt/internal/filters"
	"backtestopt/internal/primitives"
	"backtestopt/internal/strategy"
)

func basicFilters() filters.Filters {
	return filters.Filters{
		Price:          filters.Price{Min: 0, Max: 0, Step: 0.01},
		Size:           filters.Size{Min: 0, Max: 0, Step: 0.001},
		BasePrecision:  8,
		QuotePrecision: 8,
	}
}

func basicFees() filters.Fees { return filters.Fees{Maker: 0.001, Taker: 0.001} }

func cs(closes ...float64) []candle.Candle {
	out := make([]candle.Candle, len(closes))
	for i, c := range closes {
		out[i] = candle.Candle{
			Time:  primitives.Timestamp(uint64(i) * 1000),
			Open:  c,
			High:  c,
			Low:   c,
			Close: c,
		}
	}
	return out
}

func singleMAParams(period uint32) TradingParams {
	return TradingParams{
		Strategy: StrategyParams{SingleMA: &strategy.SingleMAParams{Period: period}},
		Trader:   TraderParams{Interval: 1000},
	}
}

func TestTradeOpensAndCancelsAtEnd(t *testing.T) {
	params := singleMAParams(2)
	input := Input{
		Candles: cs(10, 10, 20, 20, 20),
		Fees:    basicFees(),
		Filters: basicFilters(),
		Quote:   1000,
		Long:    true,
	}
	summary, err := Trade(params, input)
	if err != nil {
		t.Fatalf("Trade returned error: %v", err)
	}
	if len(summary.Positions) == 0 {
		t.Fatal("expected at least one position")
	}
	last := summary.Positions[len(summary.Positions)-1]
	if last.Long.CloseReason != CloseCancelled {
		t.Errorf("expected last position to close as Cancelled, got %v", last.Long.CloseReason)
	}
}

func TestTradeNoCandlesProducesEmptySummary(t *testing.T) {
	params := singleMAParams(2)
	input := Input{Fees: basicFees(), Filters: basicFilters(), Quote: 1000, Long: true}
	summary, err := Trade(params, input)
	if err != nil {
		t.Fatalf("Trade returned error: %v", err)
	}
	if len(summary.Positions) != 0 {
		t.Errorf("expected no positions, got %d", len(summary.Positions))
	}
}

func TestTradeQuoteNeverNegative(t *testing.T) {
	params := singleMAParams(2)
	input := Input{
		Candles: cs(10, 10, 5, 5, 20, 20, 1, 1, 30, 30),
		Fees:    basicFees(),
		Filters: basicFilters(),
		Quote:   100,
		Long:    true,
		Short:   true,
	}
	summary, err := Trade(params, input)
	if err != nil {
		t.Fatalf("Trade returned error: %v", err)
	}
	if summary.Quote < 0 {
		t.Errorf("quote went negative: %v", summary.Quote)
	}
}

func TestTradeNoConcurrentPositions(t *testing.T) {
	params := singleMAParams(2)
	input := Input{
		Candles: cs(10, 10, 20, 20, 5, 5, 25, 25),
		Fees:    basicFees(),
		Filters: basicFilters(),
		Quote:   1000,
		Long:    true,
		Short:   true,
	}
	summary, err := Trade(params, input)
	if err != nil {
		t.Fatalf("Trade returned error: %v", err)
	}
	for i := 1; i < len(summary.Positions); i++ {
		prev, cur := summary.Positions[i-1], summary.Positions[i]
		if uint64(cur.OpenTime()) < uint64(prev.CloseTime()) {
			t.Errorf("position %d opens before position %d closes", i, i-1)
		}
	}
}
