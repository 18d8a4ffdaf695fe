// Package strategy implements the Signal policies that turn a candle
// stream into directional Advice: the moving-average crossover family
// (SingleMA, DoubleMA, TripleMA), the calendar-based FourWeekRule, and the
// Sig wrapper that adds buffering, mid-trend suppression and persistence
// confirmation around any of them.
package strategy

import (
	"backtestopt/internal/advice"
	"backtestopt/internal/candle"
	"backtestopt/internal/indicators"
	"backtestopt/internal/primitives"
)

// Meta carries the context a Signal needs to construct itself that is not
// part of its own chromosome, namely the candle interval it will be fed at.
type Meta struct {
	Interval primitives.Interval
}

// Signal is a strategy that consumes one candle per Update and exposes its
// current directional Advice once mature.
type Signal interface {
	Maturity() uint32
	Mature() bool
	Update(c candle.Candle)
	Advice() advice.Advice
}

// crossoverAdvice turns a fast/slow moving-average pair into an Advice: Long
// when fast is above slow, Short when below, None while they are equal.
func crossoverAdvice(fast, slow float64) advice.Advice {
	switch {
	case fast > slow:
		return advice.Long
	case fast < slow:
		return advice.Short
	default:
		return advice.None
	}
}

// SingleMAParams is the chromosome fragment for SingleMA.
type SingleMAParams struct {
	Period uint32 `json:"period" yaml:"period"`
}

// SingleMA goes long while price trades above its moving average and short
// while below.
type SingleMA struct {
	ma  *indicators.SMA[float64]
	adv advice.Advice
}

// NewSingleMA constructs a SingleMA signal.
func NewSingleMA(p SingleMAParams, _ Meta) *SingleMA {
	return &SingleMA{ma: indicators.NewSMA[float64](p.Period)}
}

func (s *SingleMA) Maturity() uint32 { return s.ma.Maturity() }
func (s *SingleMA) Mature() bool     { return s.ma.Mature() }
func (s *SingleMA) Advice() advice.Advice { return s.adv }

func (s *SingleMA) Update(c candle.Candle) {
	s.ma.Update(c.Close)
	if s.ma.Mature() {
		s.adv = crossoverAdvice(c.Close, s.ma.Value())
	}
}

// DoubleMAParams is the chromosome fragment for DoubleMA.
type DoubleMAParams struct {
	ShortPeriod uint32 `json:"short_period" yaml:"short_period"`
	LongPeriod  uint32 `json:"long_period" yaml:"long_period"`
}

// DoubleMA goes long when its short-period average crosses above its
// long-period average, short when it crosses below.
type DoubleMA struct {
	short *indicators.EMA[float64]
	long  *indicators.EMA[float64]
	adv   advice.Advice
}

// NewDoubleMA constructs a DoubleMA signal.
func NewDoubleMA(p DoubleMAParams, _ Meta) *DoubleMA {
	return &DoubleMA{
		short: indicators.NewEMA[float64](p.ShortPeriod),
		long:  indicators.NewEMA[float64](p.LongPeriod),
	}
}

func (d *DoubleMA) Maturity() uint32 {
	return max(d.short.Maturity(), d.long.Maturity())
}
func (d *DoubleMA) Mature() bool         { return d.short.Mature() && d.long.Mature() }
func (d *DoubleMA) Advice() advice.Advice { return d.adv }

func (d *DoubleMA) Update(c candle.Candle) {
	d.short.Update(c.Close)
	d.long.Update(c.Close)
	if d.Mature() {
		d.adv = crossoverAdvice(d.short.Value(), d.long.Value())
	}
}

// TripleMAParams is the chromosome fragment for TripleMA.
type TripleMAParams struct {
	ShortPeriod  uint32 `json:"short_period" yaml:"short_period"`
	MediumPeriod uint32 `json:"medium_period" yaml:"medium_period"`
	LongPeriod   uint32 `json:"long_period" yaml:"long_period"`
}

// TripleMA requires the short, medium and long averages to be in strict
// ascending (long) or descending (short) order before emitting an advice,
// a stricter confirmation than DoubleMA's two-line crossover.
type TripleMA struct {
	short  *indicators.EMA[float64]
	medium *indicators.EMA[float64]
	long   *indicators.EMA[float64]
	adv    advice.Advice
}

// NewTripleMA constructs a TripleMA signal.
func NewTripleMA(p TripleMAParams, _ Meta) *TripleMA {
	return &TripleMA{
		short:  indicators.NewEMA[float64](p.ShortPeriod),
		medium: indicators.NewEMA[float64](p.MediumPeriod),
		long:   indicators.NewEMA[float64](p.LongPeriod),
	}
}

func (t *TripleMA) Maturity() uint32 {
	return max(t.short.Maturity(), max(t.medium.Maturity(), t.long.Maturity()))
}
func (t *TripleMA) Mature() bool {
	return t.short.Mature() && t.medium.Mature() && t.long.Mature()
}
func (t *TripleMA) Advice() advice.Advice { return t.adv }

func (t *TripleMA) Update(c candle.Candle) {
	t.short.Update(c.Close)
	t.medium.Update(c.Close)
	t.long.Update(c.Close)
	if t.Mature() {
		s, m, l := t.short.Value(), t.medium.Value(), t.long.Value()
		switch {
		case s > m && m > l:
			t.adv = advice.Long
		case s < m && m < l:
			t.adv = advice.Short
		default:
			t.adv = advice.None
		}
	}
}

// FourWeekRuleParams is the chromosome fragment for FourWeekRule.
type FourWeekRuleParams struct {
	Period        uint32  `json:"period" yaml:"period"`
	MAPeriod      uint32  `json:"ma_period" yaml:"ma_period"`
	MAPriceThreshold float64 `json:"ma_price_threshold" yaml:"ma_price_threshold"`
}

// FourWeekRule is Richard Donchian's channel breakout rule: go long on a new
// Period-candle high, short on a new Period-candle low, filtered by
// requiring price to also clear a moving average by MAPriceThreshold.
type FourWeekRule struct {
	period    uint32
	window    []candle.Candle
	pos       int
	filled    bool
	t         uint32
	ma        *indicators.SMA[float64]
	threshold float64
	adv       advice.Advice
}

// NewFourWeekRule constructs a FourWeekRule signal.
func NewFourWeekRule(p FourWeekRuleParams, _ Meta) *FourWeekRule {
	return &FourWeekRule{
		period:    p.Period,
		window:    make([]candle.Candle, p.Period),
		ma:        indicators.NewSMA[float64](p.MAPeriod),
		threshold: p.MAPriceThreshold,
	}
}

func (f *FourWeekRule) Maturity() uint32 {
	return max(f.period, f.ma.Maturity())
}
func (f *FourWeekRule) Mature() bool { return f.t >= f.period && f.ma.Mature() }
func (f *FourWeekRule) Advice() advice.Advice { return f.adv }

func (f *FourWeekRule) Update(c candle.Candle) {
	f.ma.Update(c.Close)

	if f.t < uint32(len(f.window)) {
		f.t++
	}
	f.window[f.pos] = c
	f.pos = (f.pos + 1) % len(f.window)
	if f.pos == 0 {
		f.filled = true
	}

	if !f.Mature() {
		return
	}

	highest, lowest := f.window[0].High, f.window[0].Low
	for _, w := range f.window {
		if w.High > highest {
			highest = w.High
		}
		if w.Low < lowest {
			lowest = w.Low
		}
	}

	maValue := f.ma.Value()
	switch {
	case c.Close >= highest && c.Close > maValue*(1+f.threshold):
		f.adv = advice.Long
	case c.Close <= lowest && c.Close < maValue*(1-f.threshold):
		f.adv = advice.Short
	default:
		f.adv = advice.None
	}
}
