// Package candle defines the OHLCV candle type and a buffer that
// re-aggregates a stream of candles onto a coarser interval.
package candle

import (
	"fmt"

	"backtestopt/internal/primitives"
)

// Candle is a single OHLCV bar.
type Candle struct {
	Time   primitives.Timestamp `json:"time"`
	Open   float64              `json:"open"`
	High   float64              `json:"high"`
	Low    float64              `json:"low"`
	Close  float64              `json:"close"`
	Volume float64              `json:"volume"`
}

// Merge folds other into c in place, the way two adjacent candles combine
// into one covering both intervals: the open and time stay put, high/low
// widen and volume accumulates, close takes the later value.
func (c *Candle) Merge(other *Candle) {
	c.High = max(c.High, other.High)
	c.Low = min(c.Low, other.Low)
	c.Close = other.Close
	c.Volume += other.Volume
}

// Buffer re-aggregates a stream of fixed-interval candles onto a coarser
// bufferInterval, emitting one merged candle per completed bucket.
//
// When bufferInterval is zero or equal to interval, buffering is disabled
// and every candle passes through unchanged.
type Buffer struct {
	interval       primitives.Interval
	bufferInterval primitives.Interval
	buffered       *Candle
	enabled        bool
}

// NewBuffer constructs a Buffer. It panics if interval is zero or exceeds
// bufferInterval, mirroring the upstream invariant violations these
// conditions represent (a malformed pipeline configuration, not a runtime
// data error).
func NewBuffer(interval primitives.Interval, bufferInterval primitives.Interval) *Buffer {
	if interval == 0 {
		panic("candle: interval 0")
	}
	if bufferInterval != 0 && interval > bufferInterval {
		panic("candle: interval larger than buffer interval")
	}
	return &Buffer{
		interval:       interval,
		bufferInterval: bufferInterval,
		enabled:        bufferInterval > interval,
	}
}

// Add feeds the next candle (in time order, at the configured interval)
// into the buffer. It returns the completed merged candle once its bucket
// closes, or ok=false while the bucket is still accumulating.
//
// Add panics with a "too many missing candles" message if a bucket closes
// on the same tick that would also need to emit a just-started candle,
// which can only happen when more candles are missing from the input
// stream than the buffer interval can absorb.
func (b *Buffer) Add(c Candle) (out Candle, ok bool) {
	if !b.enabled {
		return c, true
	}

	var ready *Candle
	if b.buffered == nil {
		start := c
		start.Time = c.Time.Floor(b.bufferInterval)
		b.buffered = &start
	} else if uint64(c.Time) >= uint64(b.buffered.Time)+uint64(b.bufferInterval) {
		done := *b.buffered
		ready = &done
	} else {
		b.buffered.Merge(&c)
	}

	isLast := (uint64(c.Time)+uint64(b.interval))%uint64(b.bufferInterval) == 0

	switch {
	case ready != nil:
		if isLast {
			panic(fmt.Sprintf("candle: too many missing candles at %s", c.Time))
		}
		b.buffered = &c
		return *ready, true
	case isLast:
		out = *b.buffered
		b.buffered = nil
		return out, true
	default:
		return Candle{}, false
	}
}
