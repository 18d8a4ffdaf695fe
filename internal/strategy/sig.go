package strategy

import (
	"backtestopt/internal/advice"
	"backtestopt/internal/candle"
	"backtestopt/internal/primitives"
)

// SigParams is the chromosome fragment wrapping an inner Signal with
// buffering, mid-trend suppression and persistence confirmation.
type SigParams struct {
	Persistence      uint32                `json:"persistence" yaml:"persistence"`
	MidTrendPolicy   advice.MidTrendPolicy `json:"mid_trend_policy" yaml:"mid_trend_policy"`
	BufferInterval   primitives.Interval   `json:"buffer_interval" yaml:"buffer_interval"`
}

// Sig wraps an inner Signal, buffering candles onto a coarser interval if
// configured, then filtering the inner signal's raw advice through
// MidTrend and Persistence before combining the two into a final advice.
type Sig struct {
	inner       Signal
	midTrend    *advice.MidTrend
	persistence *advice.Persistence
	buffer      *candle.Buffer
	adv         advice.Advice
	t           uint32
	t1          uint32
}

// NewSig constructs a Sig wrapper around inner, using meta.Interval as the
// raw candle interval and params.BufferInterval (if non-zero) as the
// coarser interval the inner signal actually observes.
func NewSig(inner Signal, params SigParams, meta Meta) *Sig {
	midTrend := advice.NewMidTrend(params.MidTrendPolicy)
	persistence := advice.NewPersistence(params.Persistence, false)

	t1 := inner.Maturity() + max(midTrend.Maturity(), persistence.Maturity())
	if t1 > 0 {
		t1--
	}

	bufferInterval := params.BufferInterval
	if bufferInterval == 0 {
		bufferInterval = meta.Interval
	}

	return &Sig{
		inner:       inner,
		midTrend:    midTrend,
		persistence: persistence,
		buffer:      candle.NewBuffer(meta.Interval, bufferInterval),
		t1:          t1,
	}
}

func (s *Sig) Maturity() uint32   { return s.t1 }
func (s *Sig) Mature() bool       { return s.t >= s.t1 }
func (s *Sig) Advice() advice.Advice { return s.adv }

// Update feeds the next raw candle in. Candles absorbed into an incomplete
// buffer bucket do not advance the inner signal.
func (s *Sig) Update(c candle.Candle) {
	merged, ok := s.buffer.Add(c)
	if !ok {
		return
	}

	if s.t < s.t1 {
		s.t++
	}

	s.inner.Update(merged)
	if s.inner.Mature() {
		s.adv = advice.Combine(
			s.midTrend.Update(s.inner.Advice()),
			s.persistence.Update(s.inner.Advice()),
		)
	}
}
