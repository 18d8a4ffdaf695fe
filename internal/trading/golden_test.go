package trading

import (
	"math"
	"os"
	"testing"

	"github.com/gocarina/gocsv"

	"backtestopt/internal/candle"
	"backtestopt/internal/filters"
	"backtestopt/internal/performance"
	"backtestopt/internal/primitives"
	"backtestopt/internal/stoploss"
	"backtestopt/internal/strategy"
	"backtestopt/internal/takeprofit"
)

// goldenRow mirrors internal/store's CSV candle row shape, kept separate
// here since internal/trading cannot import internal/store (store imports
// trading for its hall-of-fame persistence).
type goldenRow struct {
	Time   int64   `csv:"time"`
	Open   float64 `csv:"open"`
	High   float64 `csv:"high"`
	Low    float64 `csv:"low"`
	Close  float64 `csv:"close"`
	Volume float64 `csv:"volume"`
}

func loadGoldenCandles(t *testing.T, path string) []candle.Candle {
	t.Helper()
	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("opening fixture: %v", err)
	}
	defer f.Close()

	var rows []goldenRow
	if err := gocsv.Unmarshal(f, &rows); err != nil {
		t.Fatalf("unmarshalling fixture: %v", err)
	}

	out := make([]candle.Candle, len(rows))
	for i, r := range rows {
		out[i] = candle.Candle{
			Time:   primitives.Timestamp(r.Time),
			Open:   r.Open,
			High:   r.High,
			Low:    r.Low,
			Close:  r.Close,
			Volume: r.Volume,
		}
	}
	return out
}

// TestTradeAgainstGoldenFixture replays a small, hand-traced candle fixture
// through DoubleMA(2,4) with Basic stop-loss/take-profit disabled and checks
// the resulting ledger against values worked out by hand from the EMA
// recurrence: a single long opened at the first crossover, closed and
// flipped into a short at the second, and the short carried to the end of
// the series and cancelled there.
//
// The fixture's daily candle series is flat except for one up-and-down
// swing (100,100,100,100,110,120,130,120,110,100), chosen so that both
// positions trade at the same round price, 110, and the long position's
// open and close fills are bit-identical: Profit() for it is exactly 0,
// not merely close to it, which lets this test assert exact equality
// instead of tolerating drift nobody can verify without running the code.
func TestTradeAgainstGoldenFixture(t *testing.T) {
	candles := loadGoldenCandles(t, "testdata/golden_engine_fixture.csv")
	if len(candles) != 10 {
		t.Fatalf("fixture row count = %d, want 10", len(candles))
	}

	params := TradingParams{
		Strategy: StrategyParams{
			DoubleMA: &strategy.DoubleMAParams{ShortPeriod: 2, LongPeriod: 4},
		},
		StopLoss:   StopLossParams{},
		TakeProfit: TakeProfitParams{},
		Trader:     TraderParams{Interval: primitives.Interval(86_400_000)},
	}
	// Confirm the empty StopLoss/TakeProfit fragments really do construct
	// to Noop, since a stray stop-loss hit would shift the close points
	// this test's numbers were traced against.
	if _, ok := params.StopLoss.Construct().(stoploss.Noop); !ok {
		t.Fatalf("expected StopLossParams{} to construct Noop")
	}
	if _, ok := params.TakeProfit.Construct().(takeprofit.Noop); !ok {
		t.Fatalf("expected TakeProfitParams{} to construct Noop")
	}

	flt := filters.Filters{
		Price:          filters.Price{Min: 0, Max: 0, Step: 0.01},
		Size:           filters.Size{Min: 0, Max: 0, Step: 0.0001},
		BasePrecision:  8,
		QuotePrecision: 8,
	}
	fees := filters.Fees{Maker: 0, Taker: 0}
	borrowInfo := filters.BorrowInfo{InterestIntervalMs: 3_600_000, InterestRate: 0, Limit: 100}

	summary, err := Trade(params, Input{
		Candles:          candles,
		Fees:             fees,
		Filters:          flt,
		BorrowInfo:       borrowInfo,
		MarginMultiplier: 2,
		Quote:            1000,
		Long:             true,
		Short:            true,
	})
	if err != nil {
		t.Fatalf("Trade: %v", err)
	}

	if len(summary.Positions) != 2 {
		t.Fatalf("len(Positions) = %d, want 2", len(summary.Positions))
	}

	long := summary.Positions[0]
	short := summary.Positions[1]

	if !long.IsLong() {
		t.Fatalf("Positions[0] is not a long position")
	}
	if long.IsLong() == short.IsLong() {
		t.Fatalf("Positions[1] is not a short position")
	}

	wantOpen := primitives.Timestamp(5 * 86_400_000)
	wantFlip := primitives.Timestamp(9 * 86_400_000)
	wantEnd := primitives.Timestamp(10 * 86_400_000)

	if long.OpenTime() != wantOpen {
		t.Errorf("long open time = %d, want %d", long.OpenTime(), wantOpen)
	}
	if long.CloseTime() != wantFlip {
		t.Errorf("long close time = %d, want %d", long.CloseTime(), wantFlip)
	}
	if long.Long.CloseReason != CloseStrategy {
		t.Errorf("long close reason = %v, want strategy", long.Long.CloseReason)
	}
	if got := long.Profit(); got != 0 {
		t.Errorf("long profit = %v, want exactly 0 (open and close fills trade at the same price)", got)
	}

	if short.OpenTime() != wantFlip {
		t.Errorf("short open time = %d, want %d", short.OpenTime(), wantFlip)
	}
	if short.CloseTime() != wantEnd {
		t.Errorf("short close time = %d, want %d", short.CloseTime(), wantEnd)
	}
	if short.Short.CloseReason != CloseCancelled {
		t.Errorf("short close reason = %v, want cancelled", short.Short.CloseReason)
	}

	const wantShortProfit = 90.909
	if got := short.Profit(); math.Abs(got-wantShortProfit) > 1e-3 {
		t.Errorf("short profit = %v, want within 1e-3 of %v", got, wantShortProfit)
	}

	core := performance.ComposeCoreStatistics(summary)
	if core.NumPositions != 2 {
		t.Errorf("NumPositions = %d, want 2", core.NumPositions)
	}
	if core.NumPositionsInProfit != 1 {
		t.Errorf("NumPositionsInProfit = %d, want 1", core.NumPositionsInProfit)
	}
	if core.NumPositionsInLoss != 0 {
		t.Errorf("NumPositionsInLoss = %d, want 0", core.NumPositionsInLoss)
	}
	if core.NumStopLosses != 0 || core.NumTakeProfits != 0 {
		t.Errorf("expected no stop-loss/take-profit closes, got %d/%d", core.NumStopLosses, core.NumTakeProfits)
	}
	if math.Abs(core.Profit-wantShortProfit) > 1e-3 {
		t.Errorf("CoreStatistics.Profit = %v, want within 1e-3 of %v", core.Profit, wantShortProfit)
	}
}
