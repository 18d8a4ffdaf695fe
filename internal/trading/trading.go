// Package trading implements the deterministic, event-driven position
// engine: it replays a candle stream through a strategy/stop-loss/
// take-profit policy and produces a TradingSummary describing every
// position opened and closed along the way.
package trading

import (
	"backtestopt/internal/primitives"
)

// Fill records one side of a position's open or close: the price and size
// traded, the resulting quote amount and the fee paid on it.
type Fill struct {
	Price float64 `json:"price"`
	Size  float64 `json:"size"`
	Quote float64 `json:"quote"`
	Fee   float64 `json:"fee"`
}

// TotalSize sums the size across fills.
func TotalSize(fills []Fill) float64 {
	var total float64
	for _, f := range fills {
		total += f.Size
	}
	return total
}

// TotalQuote sums the quote amount across fills.
func TotalQuote(fills []Fill) float64 {
	var total float64
	for _, f := range fills {
		total += f.Quote
	}
	return total
}

// TotalFee sums the fee across fills.
func TotalFee(fills []Fill) float64 {
	var total float64
	for _, f := range fills {
		total += f.Fee
	}
	return total
}

// CloseReason records why a position was closed.
type CloseReason int

const (
	CloseStrategy CloseReason = iota
	CloseStopLoss
	CloseTakeProfit
	CloseCancelled
)

func (r CloseReason) String() string {
	switch r {
	case CloseStrategy:
		return "strategy"
	case CloseStopLoss:
		return "stop_loss"
	case CloseTakeProfit:
		return "take_profit"
	case CloseCancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

// openLongPosition is a long position not yet closed.
type openLongPosition struct {
	time primitives.Timestamp
	fill Fill
}

func (p openLongPosition) cost() float64 { return p.fill.Quote }

// baseGain is the amount of base asset available to sell when closing,
// after the opening fee has been deducted.
func (p openLongPosition) baseGain() float64 { return p.fill.Size - p.fill.Fee }

func (p openLongPosition) close(time primitives.Timestamp, fill Fill, reason CloseReason) LongPosition {
	return LongPosition{
		OpenTime:    p.time,
		OpenFill:    p.fill,
		CloseTime:   time,
		CloseFill:   fill,
		CloseReason: reason,
	}
}

// openShortPosition is a short position not yet closed.
type openShortPosition struct {
	time       primitives.Timestamp
	collateral float64
	borrowed   float64
	fill       Fill
}

func (p openShortPosition) close(time primitives.Timestamp, fill Fill, reason CloseReason) ShortPosition {
	return ShortPosition{
		OpenTime:    p.time,
		Collateral:  p.collateral,
		Borrowed:    p.borrowed,
		OpenFill:    p.fill,
		CloseTime:   time,
		CloseFill:   fill,
		CloseReason: reason,
	}
}

// LongPosition is a fully closed long position.
type LongPosition struct {
	OpenTime    primitives.Timestamp `json:"open_time"`
	OpenFill    Fill                 `json:"open_fill"`
	CloseTime   primitives.Timestamp `json:"close_time"`
	CloseFill   Fill                 `json:"close_fill"`
	CloseReason CloseReason          `json:"close_reason"`
}

func (p LongPosition) Cost() float64     { return p.OpenFill.Quote }
func (p LongPosition) BaseGain() float64 { return p.OpenFill.Size - p.OpenFill.Fee }
func (p LongPosition) BaseCost() float64 { return p.CloseFill.Size }
func (p LongPosition) Gain() float64     { return p.CloseFill.Quote - p.CloseFill.Fee }
func (p LongPosition) Profit() float64   { return p.Gain() - p.Cost() }
func (p LongPosition) Duration() primitives.Interval {
	return primitives.Interval(uint64(p.CloseTime) - uint64(p.OpenTime))
}
func (p LongPosition) IsLong() bool { return true }

// ShortPosition is a fully closed short position, financed by a margin
// borrow that is repaid (with interest) out of the close proceeds.
type ShortPosition struct {
	OpenTime    primitives.Timestamp `json:"open_time"`
	Collateral  float64              `json:"collateral"`
	Borrowed    float64              `json:"borrowed"`
	OpenFill    Fill                 `json:"open_fill"`
	CloseTime   primitives.Timestamp `json:"close_time"`
	CloseFill   Fill                 `json:"close_fill"`
	CloseReason CloseReason          `json:"close_reason"`
}

func (p ShortPosition) Cost() float64     { return p.Collateral }
func (p ShortPosition) BaseGain() float64 { return p.Borrowed }
func (p ShortPosition) BaseCost() float64 { return p.Borrowed }
func (p ShortPosition) Gain() float64 {
	return p.OpenFill.Quote - p.OpenFill.Fee + p.Collateral - p.CloseFill.Quote
}
func (p ShortPosition) Profit() float64 { return p.Gain() - p.Cost() }
func (p ShortPosition) Duration() primitives.Interval {
	return primitives.Interval(uint64(p.CloseTime) - uint64(p.OpenTime))
}
func (p ShortPosition) IsLong() bool { return false }

// Position is the union of a closed LongPosition or ShortPosition, exactly
// one of which is non-nil.
type Position struct {
	Long  *LongPosition  `json:"long,omitempty"`
	Short *ShortPosition `json:"short,omitempty"`
}

// Cost, Gain, Profit, Duration, OpenTime and CloseTime dispatch to whichever
// side of Position is populated.
func (p Position) Cost() float64 {
	if p.Long != nil {
		return p.Long.Cost()
	}
	return p.Short.Cost()
}

func (p Position) Gain() float64 {
	if p.Long != nil {
		return p.Long.Gain()
	}
	return p.Short.Gain()
}

func (p Position) Profit() float64 {
	if p.Long != nil {
		return p.Long.Profit()
	}
	return p.Short.Profit()
}

func (p Position) Duration() primitives.Interval {
	if p.Long != nil {
		return p.Long.Duration()
	}
	return p.Short.Duration()
}

func (p Position) OpenTime() primitives.Timestamp {
	if p.Long != nil {
		return p.Long.OpenTime
	}
	return p.Short.OpenTime
}

func (p Position) CloseTime() primitives.Timestamp {
	if p.Long != nil {
		return p.Long.CloseTime
	}
	return p.Short.CloseTime
}

func (p Position) IsLong() bool { return p.Long != nil }

// TradingSummary is the full ledger produced by a Trade run: every closed
// position in execution order, the simulated interval and the starting
// quote balance.
type TradingSummary struct {
	Positions []Position           `json:"positions"`
	Start     primitives.Timestamp `json:"start"`
	End       primitives.Timestamp `json:"end"`
	Quote     float64              `json:"quote"`
}

// NewTradingSummary constructs an empty summary over [start, end) with the
// given starting quote balance.
func NewTradingSummary(start, end primitives.Timestamp, quote float64) TradingSummary {
	return TradingSummary{Start: start, End: end, Quote: quote}
}
