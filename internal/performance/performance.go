// Package performance reconstructs the equity curve behind a
// TradingSummary and derives the core and risk-adjusted statistics used to
// score and report a run.
package performance

import (
	"math"

	"backtestopt/internal/primitives"
	"backtestopt/internal/trading"
	"backtestopt/pkg/mathutil"
)

// sqrt365 annualizes a statistic computed from daily-scale returns onto a
// 365-day year.
const sqrt365 = 19.1049731745428

// PositionStatistics is the per-position breakdown composed from a single
// closed trading.Position.
type PositionStatistics struct {
	Long           bool
	OpenTime       uint64
	CloseTime      uint64
	Cost           float64
	Gain           float64
	Profit         float64
	DurationMs     uint64
	ROI            float64
	AnnualizedROI  float64
	CloseReason    trading.CloseReason
}

// ComposePositionStatistics derives per-position statistics from pos.
func ComposePositionStatistics(pos trading.Position) PositionStatistics {
	cost := pos.Cost()
	profit := pos.Profit()
	roi := 0.0
	if cost != 0 {
		roi = profit / cost
	}
	duration := uint64(pos.Duration())
	return PositionStatistics{
		Long:          pos.IsLong(),
		OpenTime:      uint64(pos.OpenTime()),
		CloseTime:     uint64(pos.CloseTime()),
		Cost:          cost,
		Gain:          pos.Gain(),
		Profit:        profit,
		DurationMs:    duration,
		ROI:           roi,
		AnnualizedROI: mathutil.Annualized(duration, roi),
		CloseReason:   closeReasonOf(pos),
	}
}

func closeReasonOf(pos trading.Position) trading.CloseReason {
	if pos.Long != nil {
		return pos.Long.CloseReason
	}
	return pos.Short.CloseReason
}

// CoreStatistics aggregates the position ledger into headline numbers: how
// much was made, how it compares to the starting balance, and the basic
// win/loss breakdown.
type CoreStatistics struct {
	Start                primitives.Timestamp
	End                  primitives.Timestamp
	Cost                 float64
	Gain                 float64
	Profit               float64
	ROI                  float64
	AnnualizedROI        float64
	MeanPositionProfit   float64
	MeanPositionDuration uint64
	NumPositions         int
	NumPositionsInProfit int
	NumPositionsInLoss   int
	NumStopLosses        int
	NumTakeProfits       int
}

// ComposeCoreStatistics aggregates summary into its headline statistics.
// Cost and Gain are the starting and ending quote balance, not a sum of
// per-position cost/gain: capital is reused across sequential positions, so
// summing would overstate both by roughly the number of round-trips taken.
func ComposeCoreStatistics(summary trading.TradingSummary) CoreStatistics {
	stats := CoreStatistics{
		Start: summary.Start,
		End:   summary.End,
		Cost:  summary.Quote,
	}

	var totalDuration uint64
	for _, pos := range summary.Positions {
		profit := pos.Profit()
		stats.Profit += profit
		totalDuration += uint64(pos.Duration())
		stats.NumPositions++

		switch {
		case profit > 0:
			stats.NumPositionsInProfit++
		case profit < 0:
			stats.NumPositionsInLoss++
		}

		switch closeReasonOf(pos) {
		case trading.CloseStopLoss:
			stats.NumStopLosses++
		case trading.CloseTakeProfit:
			stats.NumTakeProfits++
		}
	}
	stats.Gain = stats.Cost + stats.Profit

	if summary.Quote != 0 {
		stats.ROI = stats.Profit / summary.Quote
	}
	duration := uint64(summary.End) - uint64(summary.Start)
	stats.AnnualizedROI = mathutil.Annualized(duration, stats.ROI)

	if stats.NumPositions > 0 {
		stats.MeanPositionProfit = stats.Profit / float64(stats.NumPositions)
		stats.MeanPositionDuration = totalDuration / uint64(stats.NumPositions)
	}

	return stats
}

// EquityPoint is one sample of the reconstructed equity curve: the mark-
// to-market value of the account, in quote, at one stats_interval bucket.
type EquityPoint struct {
	Time   uint64
	Quote  float64
	Return float64
}

// ExtendedStatistics carries the equity curve and the risk-adjusted ratios
// derived from it.
type ExtendedStatistics struct {
	EquityCurve  []EquityPoint
	MaxDrawdown  float64
	SharpeRatio  float64
	SortinoRatio float64
}

// ComposeExtendedStatistics reconstructs the equity curve implied by
// summary's positions against prices, a base-asset price series sampled at
// statsInterval granularity and aligned with summary.Start..summary.End
// (one entry per bucket). Between positions the account is cash; during a
// long hold, equity is marked to market in base; during a short hold,
// equity is collateral plus the quote value of the borrowed size minus
// what it would cost to buy it back at the bucket's price. Drawdown and
// the risk-adjusted ratios are derived from the resulting per-bucket
// log-returns.
func ComposeExtendedStatistics(summary trading.TradingSummary, prices []float64, statsInterval primitives.Interval) ExtendedStatistics {
	curve := make([]EquityPoint, 0, len(prices))
	cash := summary.Quote
	posIdx := 0
	peak := cash
	maxDrawdown := 0.0
	prevEquity := cash
	returns := make([]float64, 0, len(prices))

	for i, price := range prices {
		t := summary.Start + primitives.Timestamp(uint64(i)*uint64(statsInterval))

		for posIdx < len(summary.Positions) && uint64(summary.Positions[posIdx].CloseTime()) <= uint64(t) {
			cash += summary.Positions[posIdx].Profit()
			posIdx++
		}

		equity := cash
		if posIdx < len(summary.Positions) {
			pos := summary.Positions[posIdx]
			if uint64(pos.OpenTime()) <= uint64(t) && uint64(t) < uint64(pos.CloseTime()) {
				equity = markToMarket(pos, price)
			}
		}

		ret := 0.0
		if i > 0 && prevEquity > 0 && equity > 0 {
			ret = math.Log(equity / prevEquity)
			returns = append(returns, ret)
		}
		prevEquity = equity

		curve = append(curve, EquityPoint{Time: uint64(t), Quote: equity, Return: ret})

		if equity > peak {
			peak = equity
		} else if peak > 0 {
			drawdown := (peak - equity) / peak
			if drawdown > maxDrawdown {
				maxDrawdown = drawdown
			}
		}
	}

	return ExtendedStatistics{
		EquityCurve:  curve,
		MaxDrawdown:  maxDrawdown,
		SharpeRatio:  sharpeRatio(returns),
		SortinoRatio: sortinoRatio(returns),
	}
}

// markToMarket values an open position at price, the base-asset price at
// the current bucket. A long position's equity is its base gain priced at
// the market; a short position's is the collateral plus the quote raised
// opening it, minus what it would cost to buy back the borrowed size now.
// Interest accrued during the hold is not estimated here: it's only known
// once the position actually closes, at which point it's already folded
// into the realized profit added to cash.
func markToMarket(pos trading.Position, price float64) float64 {
	if pos.Long != nil {
		return pos.Long.BaseGain() * price
	}
	short := pos.Short
	buybackCost := short.Borrowed * price
	return short.Collateral + short.OpenFill.Quote - short.OpenFill.Fee - buybackCost
}

func mean(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	var sum float64
	for _, x := range xs {
		sum += x
	}
	return sum / float64(len(xs))
}

func stddev(xs []float64, m float64) float64 {
	if len(xs) < 2 {
		return 0
	}
	var sumSq float64
	for _, x := range xs {
		d := x - m
		sumSq += d * d
	}
	return math.Sqrt(sumSq / float64(len(xs)-1))
}

// sharpeRatio scales the mean-over-stddev of per-bucket equity log-returns
// by sqrt365, annualizing a statistic sampled at stats_interval (= one day)
// granularity.
func sharpeRatio(returns []float64) float64 {
	if len(returns) < 2 {
		return 0
	}
	m := mean(returns)
	sd := stddev(returns, m)
	if sd == 0 {
		return 0
	}
	return m / sd * sqrt365
}

// sortinoRatio is the Sharpe-style ratio using only the downside deviation
// (the standard deviation of below-zero returns) as its denominator.
func sortinoRatio(returns []float64) float64 {
	if len(returns) < 2 {
		return 0
	}
	m := mean(returns)

	var downside []float64
	for _, r := range returns {
		if r < 0 {
			downside = append(downside, r)
		}
	}
	if len(downside) < 2 {
		return 0
	}
	dd := stddev(downside, 0)
	if dd == 0 {
		return 0
	}
	return m / dd * sqrt365
}
