package httpapi

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/sourcegraph/conc/pool"
	"go.uber.org/multierr"

	"backtestopt/internal/client"
	"backtestopt/internal/evaluator"
	"backtestopt/internal/logging"
	"backtestopt/internal/metrics"
	"backtestopt/internal/performance"
	"backtestopt/internal/primitives"
	"backtestopt/internal/trading"
)

type backtestParams struct {
	Exchange string                 `json:"exchange"`
	Symbols  []string               `json:"symbols"`
	Start    primitives.Timestamp   `json:"start"`
	End      primitives.Timestamp   `json:"end"`
	Quote    float64                `json:"quote"`
	Trading  trading.TradingParams  `json:"trading"`
}

type backtestResult struct {
	SymbolStats map[string]symbolStats `json:"symbol_stats"`
}

type symbolStats struct {
	Core     performance.CoreStatistics     `json:"core"`
	Extended performance.ExtendedStatistics `json:"extended"`
}

func (s *Server) handleBacktest(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	defer metrics.ObserveDuration(metrics.BacktestDuration, start)

	var params backtestParams
	if err := json.NewDecoder(r.Body).Decode(&params); err != nil {
		metrics.BacktestRequestsTotal.WithLabelValues("bad_request").Inc()
		writeError(w, http.StatusBadRequest, fmt.Errorf("decoding request body: %w", err))
		return
	}

	symbolSummaries, err := s.backtestSymbols(r.Context(), &params)
	if err != nil {
		metrics.BacktestRequestsTotal.WithLabelValues("error").Inc()
		writeError(w, http.StatusInternalServerError, err)
		return
	}

	allPrices, err := s.gatherPrices(r.Context(), params.Exchange, params.Symbols, params.Start, params.End)
	if err != nil {
		metrics.BacktestRequestsTotal.WithLabelValues("error").Inc()
		writeError(w, http.StatusInternalServerError, err)
		return
	}

	result := backtestResult{SymbolStats: make(map[string]symbolStats, len(symbolSummaries))}
	logger := logging.FromContext(r.Context())
	for symbol, summary := range symbolSummaries {
		result.SymbolStats[symbol] = symbolStats{
			Core:     performance.ComposeCoreStatistics(summary),
			Extended: performance.ComposeExtendedStatistics(summary, allPrices[symbol], evaluator.StatsInterval),
		}
		logging.LogBacktest(logger, symbol, len(summary.Positions), result.SymbolStats[symbol].Core.Profit, time.Since(start))
	}

	metrics.BacktestRequestsTotal.WithLabelValues("ok").Inc()
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) backtestSymbols(ctx context.Context, params *backtestParams) (map[string]trading.TradingSummary, error) {
	type outcome struct {
		symbol  string
		summary trading.TradingSummary
		err     error
	}

	outcomes := make([]outcome, len(params.Symbols))
	p := pool.New().WithMaxGoroutines(8)
	for i, symbol := range params.Symbols {
		i, symbol := i, symbol
		p.Go(func() {
			summary, err := s.backtestOne(ctx, params, symbol)
			outcomes[i] = outcome{symbol: symbol, summary: summary, err: err}
		})
	}
	p.Wait()

	var errs error
	results := make(map[string]trading.TradingSummary, len(outcomes))
	for _, o := range outcomes {
		if o.err != nil {
			errs = multierr.Append(errs, fmt.Errorf("backtesting %s: %w", o.symbol, o.err))
			continue
		}
		results[o.symbol] = o.summary
	}
	if errs != nil {
		return nil, errs
	}
	return results, nil
}

func (s *Server) backtestOne(ctx context.Context, params *backtestParams, symbol string) (trading.TradingSummary, error) {
	exchangeInfo, err := s.client.GetExchangeInfo(ctx, params.Exchange)
	if err != nil {
		return trading.TradingSummary{}, err
	}
	candles, err := s.client.ListCandles(ctx, params.Exchange, symbol, params.Trading.Trader.Interval, params.Start, params.End, client.CandleTypeRegular)
	if err != nil {
		return trading.TradingSummary{}, err
	}

	summary, err := trading.Trade(params.Trading, trading.Input{
		Candles:          candles,
		Fees:             exchangeInfo.Fees[symbol],
		Filters:          exchangeInfo.Filters[symbol],
		BorrowInfo:       exchangeInfo.BorrowInfo[symbol][baseAsset(symbol)],
		MarginMultiplier: 2,
		Quote:            params.Quote,
		Long:             true,
		Short:            true,
	})
	if err != nil {
		return trading.TradingSummary{}, err
	}
	return summary, nil
}
