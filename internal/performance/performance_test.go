package performance

import (
	"testing"

	"backtestopt/internal/primitives"
	"backtestopt/internal/trading"
)

// populatedSummary mirrors the fixture used upstream to exercise the
// statistics pipeline: two long positions over a ten-tick window.
func populatedSummary() trading.TradingSummary {
	summary := trading.NewTradingSummary(0, 10, 1.0)
	summary.Positions = append(summary.Positions,
		trading.Position{Long: &trading.LongPosition{
			OpenTime:    2,
			OpenFill:    trading.Fill{Price: 0.5, Size: 2.0, Quote: 1.0, Fee: 0.2},
			CloseTime:   4,
			CloseFill:   trading.Fill{Price: 0.5, Size: 1.8, Quote: 0.9, Fee: 0.09},
			CloseReason: trading.CloseStrategy,
		}},
		trading.Position{Long: &trading.LongPosition{
			OpenTime:    6,
			OpenFill:    trading.Fill{Price: 0.5, Size: 1.62, Quote: 0.81, Fee: 0.02},
			CloseTime:   8,
			CloseFill:   trading.Fill{Price: 0.75, Size: 1.6, Quote: 1.2, Fee: 0.1},
			CloseReason: trading.CloseStrategy,
		}},
	)
	return summary
}

func almostEqual(a, b float64) bool {
	d := a - b
	if d < 0 {
		d = -d
	}
	return d < 1e-9
}

func TestComposeCoreStatistics(t *testing.T) {
	summary := populatedSummary()
	core := ComposeCoreStatistics(summary)

	if core.NumPositions != 2 {
		t.Fatalf("NumPositions = %d, want 2", core.NumPositions)
	}

	// Cost/Gain are the starting and ending quote balance, not a sum of
	// per-position cost/gain: the same dollar of capital is reused across
	// both sequential positions here.
	if !almostEqual(core.Cost, summary.Quote) {
		t.Errorf("Cost = %v, want %v (summary.Quote)", core.Cost, summary.Quote)
	}

	wantProfit := summary.Positions[0].Profit() + summary.Positions[1].Profit()
	if !almostEqual(core.Profit, wantProfit) {
		t.Errorf("Profit = %v, want %v", core.Profit, wantProfit)
	}

	wantGain := summary.Quote + wantProfit
	if !almostEqual(core.Gain, wantGain) {
		t.Errorf("Gain = %v, want %v (summary.Quote + Profit)", core.Gain, wantGain)
	}
}

// flatPriceSeries returns a bucket-aligned price series of constant price
// spanning summary.Start..summary.End at statsInterval granularity.
func flatPriceSeries(summary trading.TradingSummary, statsInterval primitives.Interval, price float64) []float64 {
	numBuckets := int((uint64(summary.End)-uint64(summary.Start))/uint64(statsInterval)) + 1
	prices := make([]float64, numBuckets)
	for i := range prices {
		prices[i] = price
	}
	return prices
}

func TestComposeExtendedStatisticsEquityCurveLength(t *testing.T) {
	summary := populatedSummary()
	prices := flatPriceSeries(summary, 1, 0.5)
	ext := ComposeExtendedStatistics(summary, prices, 1)
	if len(ext.EquityCurve) != len(prices) {
		t.Fatalf("EquityCurve length = %d, want %d (one per bucket)", len(ext.EquityCurve), len(prices))
	}
	last := ext.EquityCurve[len(ext.EquityCurve)-1]
	wantQuote := summary.Quote + summary.Positions[0].Profit() + summary.Positions[1].Profit()
	if !almostEqual(last.Quote, wantQuote) {
		t.Errorf("final equity = %v, want %v", last.Quote, wantQuote)
	}
}

func TestComposePositionStatistics(t *testing.T) {
	summary := populatedSummary()
	ps := ComposePositionStatistics(summary.Positions[0])
	if !ps.Long {
		t.Error("expected a long position")
	}
	if ps.DurationMs != 2 {
		t.Errorf("DurationMs = %d, want 2", ps.DurationMs)
	}
}

func TestMaxDrawdownNonNegative(t *testing.T) {
	summary := populatedSummary()
	prices := flatPriceSeries(summary, 1, 0.5)
	ext := ComposeExtendedStatistics(summary, prices, 1)
	if ext.MaxDrawdown < 0 {
		t.Errorf("MaxDrawdown = %v, want >= 0", ext.MaxDrawdown)
	}
}

func TestComposeExtendedStatisticsShortMarkToMarket(t *testing.T) {
	summary := trading.NewTradingSummary(0, 4, 100)
	summary.Positions = append(summary.Positions, trading.Position{Short: &trading.ShortPosition{
		OpenTime:    0,
		Collateral:  100,
		Borrowed:    10,
		OpenFill:    trading.Fill{Price: 10, Size: 10, Quote: 100, Fee: 0},
		CloseTime:   4,
		CloseFill:   trading.Fill{Price: 8, Size: 10, Quote: 80, Fee: 0},
		CloseReason: trading.CloseStrategy,
	}})

	prices := []float64{10, 9, 8.5, 8, 8}
	ext := ComposeExtendedStatistics(summary, prices, 1)

	// At bucket 1 the short is still open: equity = collateral + openQuote
	// - buyback at the bucket's price = 100 + 100 - 10*9 = 110.
	got := ext.EquityCurve[1].Quote
	want := 100.0 + 100.0 - 10*9.0
	if !almostEqual(got, want) {
		t.Errorf("mark-to-market equity at bucket 1 = %v, want %v", got, want)
	}
}
