package httpapi

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"math/rand"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/sourcegraph/conc/pool"
	"go.uber.org/multierr"

	"backtestopt/internal/candle"
	"backtestopt/internal/client"
	"backtestopt/internal/evaluator"
	"backtestopt/internal/filters"
	"backtestopt/internal/genetic"
	"backtestopt/internal/logging"
	"backtestopt/internal/metrics"
	"backtestopt/internal/performance"
	"backtestopt/internal/primitives"
	"backtestopt/internal/trading"
)

type optimizeParams struct {
	PopulationSize    int      `json:"population_size"`
	Generations       int      `json:"generations"`
	HallOfFameSize    int      `json:"hall_of_fame_size"`
	Seed              *int64   `json:"seed"`
	Exchange          string   `json:"exchange"`
	Start             primitives.Timestamp `json:"start"`
	End               primitives.Timestamp `json:"end"`
	Quote             float64  `json:"quote"`
	TrainingSymbols   []string `json:"training_symbols"`
	ValidationSymbols []string `json:"validation_symbols"`

	EvaluationStatistic   evaluator.Statistic   `json:"evaluation_statistic"`
	EvaluationAggregation evaluator.Aggregation `json:"evaluation_aggregation"`

	Intervals []string `json:"intervals"`
}

func (p *optimizeParams) allSymbols() []string {
	seen := make(map[string]bool)
	var out []string
	for _, s := range append(append([]string{}, p.TrainingSymbols...), p.ValidationSymbols...) {
		if !seen[s] {
			seen[s] = true
			out = append(out, s)
		}
	}
	return out
}

type optimizeInfo struct {
	EvaluationStatistics  []string `json:"evaluation_statistics"`
	EvaluationAggregations []string `json:"evaluation_aggregations"`
}

func (s *Server) handleOptimizeInfo(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, optimizeInfo{
		EvaluationStatistics:   []string{"profit", "return_over_max_drawdown", "sharpe_ratio", "sortino_ratio"},
		EvaluationAggregations: []string{"linear", "log10", "log10_factored"},
	})
}

type individualStats struct {
	Fitness     float64                `json:"fitness"`
	Trading     trading.TradingParams  `json:"trading"`
	SymbolStats map[string]symbolStats `json:"symbol_stats"`
}

type generationOutput struct {
	Nr         int               `json:"nr"`
	HallOfFame []individualStats `json:"hall_of_fame"`
}

type optimizeResult struct {
	Generations []generationOutput `json:"generations"`
	Seed        int64              `json:"seed"`
}

func (s *Server) handleOptimize(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	metrics.ActiveOptimizeRuns.Inc()
	defer metrics.ActiveOptimizeRuns.Dec()
	defer metrics.ObserveDuration(metrics.OptimizeDuration, start)

	var params optimizeParams
	if err := json.NewDecoder(r.Body).Decode(&params); err != nil {
		metrics.OptimizeRequestsTotal.WithLabelValues("bad_request").Inc()
		writeError(w, http.StatusBadRequest, fmt.Errorf("decoding request body: %w", err))
		return
	}

	result, err := s.optimize(r.Context(), &params)
	if err != nil {
		metrics.OptimizeRequestsTotal.WithLabelValues("error").Inc()
		writeError(w, http.StatusInternalServerError, err)
		return
	}

	metrics.OptimizeRequestsTotal.WithLabelValues("ok").Inc()
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) optimize(ctx context.Context, params *optimizeParams) (*optimizeResult, error) {
	intervals, err := parseIntervals(params.Intervals)
	if err != nil {
		return nil, err
	}

	exchangeInfo, err := s.client.GetExchangeInfo(ctx, params.Exchange)
	if err != nil {
		return nil, fmt.Errorf("fetching exchange info: %w", err)
	}

	allCandles, err := s.gatherCandles(ctx, params.Exchange, params.allSymbols(), intervals, params.Start, params.End)
	if err != nil {
		return nil, err
	}

	allPrices, err := s.gatherPrices(ctx, params.Exchange, params.allSymbols(), params.Start, params.End)
	if err != nil {
		return nil, err
	}

	trainingCtxs := make([]evaluator.SymbolContext, 0, len(params.TrainingSymbols))
	for _, symbol := range params.TrainingSymbols {
		trainingCtxs = append(trainingCtxs, evaluator.SymbolContext{
			Symbol:           symbol,
			IntervalCandles:  allCandles[symbol],
			Fees:             exchangeInfo.Fees[symbol],
			Filters:          exchangeInfo.Filters[symbol],
			BorrowInfo:       exchangeInfo.BorrowInfo[symbol][baseAsset(symbol)],
			MarginMultiplier: 2,
			Prices:           allPrices[symbol],
		})
	}

	eval := evaluator.New(trainingCtxs, params.Quote, params.EvaluationStatistic, params.EvaluationAggregation, 0)
	tradingCtx := trading.DefaultTradingParamsContext(intervals)

	seed := int64(0)
	if params.Seed != nil {
		seed = *params.Seed
	} else {
		seed = rand.New(rand.NewSource(time.Now().UnixNano())).Int63()
	}

	cfg := genetic.DefaultConfig()
	cfg.PopulationSize = params.PopulationSize
	cfg.HallOfFameSize = params.HallOfFameSize

	algo := genetic.New[*trading.Chromosome](
		cfg,
		func(rng *rand.Rand) *trading.Chromosome {
			return trading.NewChromosome(trading.GenerateTradingParams(rng, tradingCtx), tradingCtx)
		},
		func(c *trading.Chromosome) float64 { return eval.Evaluate(c.Params) },
		seed,
	)

	gen := algo.InitialGeneration()
	bestFitnesses := make([]float64, params.HallOfFameSize)
	for i := range bestFitnesses {
		bestFitnesses[i] = math.NaN()
	}

	var kept []generationOutput
	allSymbols := params.allSymbols()

	// recordIfImproved mirrors the upstream filter: a generation is only
	// reported if at least one hall-of-fame slot beat its best fitness so
	// far, since most generations leave the hall of fame unchanged.
	recordIfImproved := func(nr int, hof []genetic.Individual[*trading.Chromosome]) {
		improved := false
		for i, ind := range hof {
			if i >= len(bestFitnesses) {
				break
			}
			if math.IsNaN(bestFitnesses[i]) || ind.Fitness > bestFitnesses[i] {
				bestFitnesses[i] = ind.Fitness
				improved = true
			}
		}
		if !improved {
			return
		}
		kept = append(kept, generationOutput{
			Nr:         nr,
			HallOfFame: s.statsForHallOfFame(hof, allSymbols, allCandles, allPrices, exchangeInfo.Fees, exchangeInfo.Filters, exchangeInfo.BorrowInfo, params.Quote),
		})
	}

	logger := logging.FromContext(ctx)
	runID := uuid.NewString()
	if s.store != nil {
		if persistedID, err := s.store.InsertOptimizeRun(seed, params.Generations, params); err == nil {
			runID = persistedID
		} else {
			logger.Error().Err(err).Msg("recording optimize run")
		}
	}

	recordIfImproved(0, algo.HallOfFame())
	logging.LogGeneration(logger, runID, 0, algo.HallOfFame()[0].Fitness, eval.EvaluatedCount())
	for i := 1; i < params.Generations; i++ {
		gen = algo.Next(gen)
		recordIfImproved(i, algo.HallOfFame())
		logging.LogGeneration(logger, runID, i, algo.HallOfFame()[0].Fitness, eval.EvaluatedCount())
	}

	metrics.ChromosomesEvaluatedTotal.Add(float64(eval.EvaluatedCount()))

	if s.store != nil {
		hof := algo.HallOfFame()
		hofParams := make([]trading.TradingParams, len(hof))
		hofFitnesses := make([]float64, len(hof))
		for i, ind := range hof {
			hofParams[i] = ind.Chromosome.Params
			hofFitnesses[i] = ind.Fitness
		}
		if err := s.store.InsertHallOfFame(runID, params.Generations-1, hofParams, hofFitnesses); err != nil {
			logger.Error().Err(err).Msg("recording hall of fame")
		}
		if err := s.store.FinishOptimizeRun(runID); err != nil {
			logger.Error().Err(err).Msg("finishing optimize run")
		}
	}

	return &optimizeResult{Generations: kept, Seed: seed}, nil
}

func (s *Server) statsForHallOfFame(
	hof []genetic.Individual[*trading.Chromosome],
	symbols []string,
	allCandles map[string]map[primitives.Interval][]candle.Candle,
	allPrices map[string][]float64,
	fees map[string]filters.Fees,
	flt map[string]filters.Filters,
	borrowInfo map[string]map[string]filters.BorrowInfo,
	quote float64,
) []individualStats {
	out := make([]individualStats, len(hof))
	for i, ind := range hof {
		stats := make(map[string]symbolStats, len(symbols))
		for _, symbol := range symbols {
			summary, err := trading.Trade(ind.Chromosome.Params, trading.Input{
				Candles:          allCandles[symbol][ind.Chromosome.Params.Trader.Interval],
				Fees:             fees[symbol],
				Filters:          flt[symbol],
				BorrowInfo:       borrowInfo[symbol][baseAsset(symbol)],
				MarginMultiplier: 2,
				Quote:            quote,
				Long:             true,
				Short:            true,
			})
			if err != nil {
				continue
			}
			stats[symbol] = symbolStats{
				Core:     performance.ComposeCoreStatistics(summary),
				Extended: performance.ComposeExtendedStatistics(summary, allPrices[symbol], evaluator.StatsInterval),
			}
		}
		out[i] = individualStats{Fitness: ind.Fitness, Trading: ind.Chromosome.Params, SymbolStats: stats}
	}
	return out
}

func parseIntervals(raw []string) ([]primitives.Interval, error) {
	if len(raw) == 0 {
		return []primitives.Interval{primitives.HourMs}, nil
	}
	out := make([]primitives.Interval, 0, len(raw))
	for _, s := range raw {
		iv, err := primitives.ParseInterval(s)
		if err != nil {
			return nil, fmt.Errorf("parsing interval %q: %w", s, err)
		}
		out = append(out, iv)
	}
	return out, nil
}

func (s *Server) gatherCandles(ctx context.Context, exchange string, symbols []string, intervals []primitives.Interval, start, end primitives.Timestamp) (map[string]map[primitives.Interval][]candle.Candle, error) {
	type fetch struct {
		symbol   string
		interval primitives.Interval
	}
	fetches := make([]fetch, 0, len(symbols)*len(intervals))
	for _, symbol := range symbols {
		for _, interval := range intervals {
			fetches = append(fetches, fetch{symbol: symbol, interval: interval})
		}
	}

	type result struct {
		fetch   fetch
		candles []candle.Candle
		err     error
	}
	results := make([]result, len(fetches))

	p := pool.New().WithMaxGoroutines(8)
	for i, f := range fetches {
		i, f := i, f
		p.Go(func() {
			candles, err := s.client.ListCandles(ctx, exchange, f.symbol, f.interval, start, end, client.CandleTypeRegular)
			results[i] = result{fetch: f, candles: candles, err: err}
		})
	}
	p.Wait()

	var errs error
	out := make(map[string]map[primitives.Interval][]candle.Candle, len(symbols))
	for _, r := range results {
		if r.err != nil {
			errs = multierr.Append(errs, fmt.Errorf("fetching candles for %s at %s: %w", r.fetch.symbol, r.fetch.interval, r.err))
			continue
		}
		byInterval, ok := out[r.fetch.symbol]
		if !ok {
			byInterval = make(map[primitives.Interval][]candle.Candle, len(intervals))
			out[r.fetch.symbol] = byInterval
		}
		byInterval[r.fetch.interval] = r.candles
	}
	if errs != nil {
		return nil, errs
	}
	return out, nil
}

// gatherPrices fetches each symbol's base-asset price series, in its own
// quote asset, at evaluator.StatsInterval granularity - the benchmark
// series the equity curve and Sharpe/Sortino statistics are computed
// against. Fetched with the same bounded fan-out as gatherCandles.
func (s *Server) gatherPrices(ctx context.Context, exchange string, symbols []string, start, end primitives.Timestamp) (map[string][]float64, error) {
	type result struct {
		symbol string
		prices []float64
		err    error
	}
	results := make([]result, len(symbols))

	p := pool.New().WithMaxGoroutines(8)
	for i, symbol := range symbols {
		i, symbol := i, symbol
		p.Go(func() {
			byAsset, err := s.client.MapAssetPrices(ctx, exchange, []string{baseAsset(symbol)}, evaluator.StatsInterval, start, end, quoteAsset(symbol))
			results[i] = result{symbol: symbol, prices: byAsset[baseAsset(symbol)], err: err}
		})
	}
	p.Wait()

	var errs error
	out := make(map[string][]float64, len(symbols))
	for _, r := range results {
		if r.err != nil {
			errs = multierr.Append(errs, fmt.Errorf("fetching prices for %s: %w", r.symbol, r.err))
			continue
		}
		out[r.symbol] = r.prices
	}
	if errs != nil {
		return nil, errs
	}
	return out, nil
}
