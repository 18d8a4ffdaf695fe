// Package stoploss implements the StopLoss policies a trading run attaches
// to an open position to bound its downside.
package stoploss

import "backtestopt/internal/candle"

// StopLoss tracks an open position's close price against thresholds set at
// entry and reports whether either side has been breached.
//
// UpsideHit answers "has the position that profits when price rises been
// stopped out" (i.e. price fell too far) and DownsideHit the symmetric
// question for a position that profits when price falls. The engine calls
// UpsideHit for long positions and DownsideHit for short positions.
type StopLoss interface {
	UpsideHit() bool
	DownsideHit() bool
	// Clear resets the policy's reference price to candle's close. The
	// engine calls it on every tick that has no position open at its open
	// step, so the reference ends up at the close of the opening candle.
	Clear(c candle.Candle)
	// Update feeds the latest candle's close in, called on every tick.
	Update(c candle.Candle)
}

// Noop never triggers; it is the chromosome default for "no stop-loss".
type Noop struct{}

func (Noop) UpsideHit() bool          { return false }
func (Noop) DownsideHit() bool        { return false }
func (Noop) Clear(candle.Candle)      {}
func (Noop) Update(candle.Candle)     {}

// BasicParams is the chromosome fragment controlling Basic's thresholds.
type BasicParams struct {
	UpThreshold   float64 `json:"up_threshold" yaml:"up_threshold"`
	DownThreshold float64 `json:"down_threshold" yaml:"down_threshold"`
}

// Basic closes a position once its close price has moved by a fixed
// fraction against the entry close.
type Basic struct {
	upFactor        float64
	downFactor      float64
	closeAtPosition float64
	close           float64
}

// NewBasic constructs a Basic stop-loss from its chromosome parameters.
func NewBasic(p BasicParams) *Basic {
	return &Basic{
		upFactor:   1 - p.UpThreshold,
		downFactor: 1 + p.DownThreshold,
	}
}

func (b *Basic) UpsideHit() bool   { return b.close <= b.closeAtPosition*b.upFactor }
func (b *Basic) DownsideHit() bool { return b.close >= b.closeAtPosition*b.downFactor }

func (b *Basic) Clear(c candle.Candle) { b.closeAtPosition = c.Close }
func (b *Basic) Update(c candle.Candle) { b.close = c.Close }
