package trading

import (
	"fmt"

	"backtestopt/internal/advice"
	"backtestopt/internal/apperrors"
	"backtestopt/internal/candle"
	"backtestopt/internal/filters"
	"backtestopt/internal/primitives"
	"backtestopt/internal/stoploss"
	"backtestopt/internal/strategy"
	"backtestopt/internal/takeprofit"
	"backtestopt/pkg/mathutil"
)

// TraderParams is the chromosome fragment selecting the candle interval a
// run replays at.
type TraderParams struct {
	Interval primitives.Interval `json:"interval" yaml:"interval"`
}

// TradingParams is the full chromosome a genetic run evolves: the strategy,
// the candle interval, and the stop-loss/take-profit policies attached to
// every position it opens.
type TradingParams struct {
	Strategy   StrategyParams          `json:"strategy"`
	Trader     TraderParams            `json:"trader"`
	StopLoss   StopLossParams          `json:"stop_loss"`
	TakeProfit TakeProfitParams        `json:"take_profit"`
}

// StrategyParams, StopLossParams and TakeProfitParams are tagged-variant
// constructors: exactly one of their fields is set, selecting which
// concrete implementation Construct builds. They live here rather than in
// internal/strategy/internal/stoploss/internal/takeprofit to avoid an
// import cycle, since the engine must reference all three kinds of
// chromosome fragment together to build a State.
type StrategyParams struct {
	SingleMA     *strategy.SingleMAParams     `json:"single_ma,omitempty" yaml:"single_ma,omitempty"`
	DoubleMA     *strategy.DoubleMAParams     `json:"double_ma,omitempty" yaml:"double_ma,omitempty"`
	TripleMA     *strategy.TripleMAParams     `json:"triple_ma,omitempty" yaml:"triple_ma,omitempty"`
	FourWeekRule *strategy.FourWeekRuleParams `json:"four_week_rule,omitempty" yaml:"four_week_rule,omitempty"`
	Sig          *SigVariantParams            `json:"sig,omitempty" yaml:"sig,omitempty"`
}

// SigVariantParams wraps another StrategyParams variant with the Sig
// buffering/mid-trend/persistence envelope. It is a pointer field inside
// StrategyParams rather than StrategyParams embedding Sig directly, since
// Sig wraps an arbitrary inner variant recursively.
type SigVariantParams struct {
	Inner StrategyParams    `json:"inner"`
	Sig   strategy.SigParams `json:"sig"`
}

// Construct builds the concrete strategy.Signal this variant selects.
func (p StrategyParams) Construct(meta strategy.Meta) strategy.Signal {
	switch {
	case p.SingleMA != nil:
		return strategy.NewSingleMA(*p.SingleMA, meta)
	case p.DoubleMA != nil:
		return strategy.NewDoubleMA(*p.DoubleMA, meta)
	case p.TripleMA != nil:
		return strategy.NewTripleMA(*p.TripleMA, meta)
	case p.FourWeekRule != nil:
		return strategy.NewFourWeekRule(*p.FourWeekRule, meta)
	case p.Sig != nil:
		inner := p.Sig.Inner.Construct(meta)
		return strategy.NewSig(inner, p.Sig.Sig, meta)
	default:
		panic("trading: empty StrategyParams")
	}
}

// StopLossParams is a tagged-variant chromosome fragment selecting the
// stop-loss policy. A nil Basic means Noop.
type StopLossParams struct {
	Basic *stoploss.BasicParams `json:"basic,omitempty" yaml:"basic,omitempty"`
}

// Construct builds the concrete stoploss.StopLoss this variant selects.
func (p StopLossParams) Construct() stoploss.StopLoss {
	if p.Basic != nil {
		return stoploss.NewBasic(*p.Basic)
	}
	return stoploss.Noop{}
}

// TakeProfitParams is a tagged-variant chromosome fragment selecting the
// take-profit policy. A nil Basic means Noop.
type TakeProfitParams struct {
	Basic *takeprofit.BasicParams `json:"basic,omitempty" yaml:"basic,omitempty"`
}

// Construct builds the concrete takeprofit.TakeProfit this variant selects.
func (p TakeProfitParams) Construct() takeprofit.TakeProfit {
	if p.Basic != nil {
		return takeprofit.NewBasic(*p.Basic)
	}
	return takeprofit.Noop{}
}

// Input bundles everything a Trade run needs beyond the chromosome: the
// candle series to replay and the exchange-specific facts (fees, filters,
// margin terms) the engine rounds and charges against.
type Input struct {
	Candles          []candle.Candle
	Fees             filters.Fees
	Filters          filters.Filters
	BorrowInfo       filters.BorrowInfo
	MarginMultiplier uint32
	Quote            float64
	Long             bool
	Short            bool
}

type state struct {
	strategy    strategy.Signal
	stopLoss    stoploss.StopLoss
	takeProfit  takeprofit.TakeProfit
	changed     *advice.Changed
	quote       float64
	openLong    *openLongPosition
	openShort   *openShortPosition
	lastCandle  *candle.Candle
}

// Trade replays input.Candles through params, producing the full position
// ledger. It never mutates its inputs and performs no I/O: callers feed it
// an already-fetched candle slice and read back a TradingSummary.
//
// An error is returned only if the engine reaches a state its own
// bookkeeping guarantees should not occur (an InvariantViolationError); this
// recovers a panic raised deep in the close-position helpers rather than
// threading an unreachable error case through every call in the chain.
func Trade(params TradingParams, input Input) (summary TradingSummary, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &apperrors.InvariantViolationError{Detail: fmt.Sprint(r)}
		}
	}()

	interval := params.Trader.Interval

	var start, end primitives.Timestamp
	if len(input.Candles) == 0 {
		end = primitives.Timestamp(interval)
	} else {
		start = input.Candles[0].Time
		end = primitives.Timestamp(uint64(input.Candles[len(input.Candles)-1].Time) + uint64(interval))
	}

	summary = NewTradingSummary(start, end, input.Quote)
	st := &state{
		strategy:   params.Strategy.Construct(strategy.Meta{Interval: interval}),
		stopLoss:   params.StopLoss.Construct(),
		takeProfit: params.TakeProfit.Construct(),
		changed:    advice.NewChanged(true),
		quote:      input.Quote,
	}

	for i := range input.Candles {
		c := input.Candles[i]
		if err := tick(st, &summary, input.Fees, input.Filters, input.BorrowInfo, input.MarginMultiplier, interval, input.Long, input.Short, c); err != nil {
			break
		}
	}

	if st.lastCandle != nil {
		closeTime := primitives.Timestamp(uint64(st.lastCandle.Time) + uint64(interval))
		switch {
		case st.openLong != nil:
			closeLongPosition(st, &summary, input.Fees, input.Filters, closeTime, st.lastCandle.Close, CloseCancelled)
		case st.openShort != nil:
			closeShortPosition(st, &summary, input.Fees, input.Filters, input.BorrowInfo, closeTime, st.lastCandle.Close, CloseCancelled)
		}
	}

	return summary, nil
}

func tick(
	st *state,
	summary *TradingSummary,
	fees filters.Fees,
	flt filters.Filters,
	borrowInfo filters.BorrowInfo,
	marginMultiplier uint32,
	interval primitives.Interval,
	long, short bool,
	c candle.Candle,
) error {
	st.stopLoss.Update(c)
	st.takeProfit.Update(c)
	st.strategy.Update(c)
	adv := st.changed.Update(st.strategy.Advice())

	closeTime := primitives.Timestamp(uint64(c.Time) + uint64(interval))

	switch {
	case st.openLong != nil:
		switch {
		case adv == advice.Short || adv == advice.Liquidate:
			closeLongPosition(st, summary, fees, flt, closeTime, c.Close, CloseStrategy)
		case st.stopLoss.UpsideHit():
			closeLongPosition(st, summary, fees, flt, closeTime, c.Close, CloseStopLoss)
		case st.takeProfit.UpsideHit():
			closeLongPosition(st, summary, fees, flt, closeTime, c.Close, CloseTakeProfit)
		}
	case st.openShort != nil:
		switch {
		case adv == advice.Long || adv == advice.Liquidate:
			closeShortPosition(st, summary, fees, flt, borrowInfo, closeTime, c.Close, CloseStrategy)
		case st.stopLoss.DownsideHit():
			closeShortPosition(st, summary, fees, flt, borrowInfo, closeTime, c.Close, CloseStopLoss)
		case st.takeProfit.DownsideHit():
			closeShortPosition(st, summary, fees, flt, borrowInfo, closeTime, c.Close, CloseTakeProfit)
		}
	}

	if st.openLong == nil && st.openShort == nil {
		var err error
		switch {
		case long && adv == advice.Long:
			err = tryOpenLongPosition(st, fees, flt, closeTime, c.Close)
		case short && adv == advice.Short:
			err = tryOpenShortPosition(st, fees, flt, borrowInfo, marginMultiplier, closeTime, c.Close)
		}
		if err != nil {
			return err
		}
		st.stopLoss.Clear(c)
		st.takeProfit.Clear(c)
	}

	st.lastCandle = &c
	return nil
}

func tryOpenLongPosition(st *state, fees filters.Fees, flt filters.Filters, time primitives.Timestamp, price float64) error {
	size := flt.Size.RoundDown(st.quote / price)
	if size == 0 {
		return apperrors.ErrOpenPositionSizeZero
	}

	quote := mathutil.RoundDown(price*size, flt.QuotePrecision)
	fee := mathutil.RoundHalfUp(size*fees.Taker, flt.BasePrecision)

	st.openLong = &openLongPosition{
		time: time,
		fill: Fill{Price: price, Size: size, Quote: quote, Fee: fee},
	}
	st.quote -= quote

	return nil
}

func closeLongPosition(st *state, summary *TradingSummary, fees filters.Fees, flt filters.Filters, time primitives.Timestamp, price float64, reason CloseReason) {
	if st.openLong == nil {
		panic("trading: close_long_position called with no open long position")
	}
	pos := st.openLong
	st.openLong = nil

	size := flt.Size.RoundDown(pos.baseGain())
	quote := mathutil.RoundDown(price*size, flt.QuotePrecision)
	fee := mathutil.RoundHalfUp(quote*fees.Taker, flt.QuotePrecision)

	closed := pos.close(time, Fill{Price: price, Size: size, Quote: quote, Fee: fee}, reason)
	summary.Positions = append(summary.Positions, Position{Long: &closed})

	st.quote += quote - fee
}

func tryOpenShortPosition(st *state, fees filters.Fees, flt filters.Filters, borrowInfo filters.BorrowInfo, marginMultiplier uint32, time primitives.Timestamp, price float64) error {
	collateralSize := flt.Size.RoundDown(st.quote / price)
	if collateralSize == 0 {
		return apperrors.ErrOpenPositionSizeZero
	}
	borrowed := min(collateralSize*float64(marginMultiplier-1), borrowInfo.Limit)

	quote := mathutil.RoundDown(price*borrowed, flt.QuotePrecision)
	fee := mathutil.RoundHalfUp(quote*fees.Taker, flt.QuotePrecision)

	st.openShort = &openShortPosition{
		time:       time,
		collateral: st.quote,
		borrowed:   borrowed,
		fill:       Fill{Price: price, Size: borrowed, Quote: quote, Fee: fee},
	}
	st.quote += quote - fee

	return nil
}

func closeShortPosition(st *state, summary *TradingSummary, fees filters.Fees, flt filters.Filters, borrowInfo filters.BorrowInfo, time primitives.Timestamp, price float64, reason CloseReason) {
	if st.openShort == nil {
		panic("trading: close_short_position called with no open short position")
	}
	pos := st.openShort
	st.openShort = nil

	borrowed := pos.borrowed

	duration := mathutil.CeilMultiple(uint64(time)-uint64(pos.time), borrowInfo.InterestIntervalMs) / borrowInfo.InterestIntervalMs
	interest := mathutil.RoundHalfUp(borrowed*float64(duration)*borrowInfo.InterestRate, flt.BasePrecision)

	size := borrowed + interest
	fee := mathutil.RoundHalfUp(size*fees.Taker, flt.BasePrecision)
	size += fee
	quote := mathutil.RoundDown(price*size, flt.QuotePrecision)

	closed := pos.close(time, Fill{Price: price, Size: size, Quote: quote, Fee: fee}, reason)
	summary.Positions = append(summary.Positions, Position{Short: &closed})

	st.quote -= quote
}
