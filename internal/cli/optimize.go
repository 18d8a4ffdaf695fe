package cli

import (
	"encoding/json"
	"fmt"
	"math/rand"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"backtestopt/internal/candle"
	"backtestopt/internal/client"
	"backtestopt/internal/config"
	"backtestopt/internal/evaluator"
	"backtestopt/internal/genetic"
	"backtestopt/internal/primitives"
	"backtestopt/internal/trading"
)

// hallOfFameParamsAndFitnesses splits a genetic.Individual slice into the
// parallel slices internal/store.InsertHallOfFame persists.
func hallOfFameParamsAndFitnesses(hof []genetic.Individual[*trading.Chromosome]) ([]trading.TradingParams, []float64) {
	params := make([]trading.TradingParams, len(hof))
	fitnesses := make([]float64, len(hof))
	for i, ind := range hof {
		params[i] = ind.Chromosome.Params
		fitnesses[i] = ind.Fitness
	}
	return params, fitnesses
}

func newOptimizeCmd(app *App) *cobra.Command {
	var (
		exchange        string
		symbolsCSV      string
		start, end      int64
		quote           float64
		generations     int
		statisticName   string
		aggregationName string
		seed            int64
		hasSeed         bool
		ctxPath         string
	)

	cmd := &cobra.Command{
		Use:   "optimize",
		Short: "Evolve a trading-params chromosome against historical candles",
		RunE: func(cmd *cobra.Command, args []string) error {
			symbols := strings.Split(symbolsCSV, ",")
			ctx := cmd.Context()

			statistic, err := parseStatisticName(statisticName)
			if err != nil {
				return err
			}
			aggregation, err := parseAggregationName(aggregationName)
			if err != nil {
				return err
			}

			tradingCtx, err := config.LoadTradingParamsContext(ctxPath)
			if err != nil {
				return err
			}

			exchangeInfo, err := app.Client.GetExchangeInfo(ctx, exchange)
			if err != nil {
				return fmt.Errorf("fetching exchange info: %w", err)
			}

			symbolCtxs := make([]evaluator.SymbolContext, 0, len(symbols))
			for _, symbol := range symbols {
				byInterval := make(map[primitives.Interval][]candle.Candle, len(tradingCtx.Intervals))
				for _, interval := range tradingCtx.Intervals {
					candles, err := app.Client.ListCandles(ctx, exchange, symbol, interval, primitives.Timestamp(start), primitives.Timestamp(end), client.CandleTypeRegular)
					if err != nil {
						return fmt.Errorf("fetching candles for %s: %w", symbol, err)
					}
					byInterval[interval] = candles
				}
				priceSeries, err := app.Client.MapAssetPrices(ctx, exchange, []string{baseAsset(symbol)}, evaluator.StatsInterval, primitives.Timestamp(start), primitives.Timestamp(end), quoteAsset(symbol))
				if err != nil {
					return fmt.Errorf("fetching prices for %s: %w", symbol, err)
				}
				symbolCtxs = append(symbolCtxs, evaluator.SymbolContext{
					Symbol:           symbol,
					IntervalCandles:  byInterval,
					Fees:             exchangeInfo.Fees[symbol],
					Filters:          exchangeInfo.Filters[symbol],
					BorrowInfo:       exchangeInfo.BorrowInfo[symbol][baseAsset(symbol)],
					MarginMultiplier: 2,
					Prices:           priceSeries[baseAsset(symbol)],
				})
			}

			eval := evaluator.New(symbolCtxs, quote, statistic, aggregation, 0)

			if !hasSeed {
				seed = rand.New(rand.NewSource(time.Now().UnixNano())).Int63()
			}

			cfg := genetic.DefaultConfig()
			algo := genetic.New[*trading.Chromosome](
				cfg,
				func(rng *rand.Rand) *trading.Chromosome {
					return trading.NewChromosome(trading.GenerateTradingParams(rng, tradingCtx), tradingCtx)
				},
				func(c *trading.Chromosome) float64 { return eval.Evaluate(c.Params) },
				seed,
			)

			store, err := app.openStore()
			if err != nil {
				return fmt.Errorf("opening store: %w", err)
			}
			runID, err := store.InsertOptimizeRun(seed, generations, tradingCtx)
			if err != nil {
				return fmt.Errorf("recording optimize run: %w", err)
			}

			gen := algo.InitialGeneration()
			for i := 1; i < generations; i++ {
				gen = algo.Next(gen)
			}

			hofParams, hofFitnesses := hallOfFameParamsAndFitnesses(algo.HallOfFame())
			if err := store.InsertHallOfFame(runID, generations-1, hofParams, hofFitnesses); err != nil {
				return fmt.Errorf("recording hall of fame: %w", err)
			}
			if err := store.FinishOptimizeRun(runID); err != nil {
				return fmt.Errorf("finishing optimize run: %w", err)
			}

			output := NewOutput(cmd)
			best := gen.Best()
			if output.IsJSON() {
				return output.JSON(struct {
					Seed    int64                 `json:"seed"`
					Fitness float64               `json:"fitness"`
					Trading trading.TradingParams `json:"trading"`
				}{Seed: seed, Fitness: best.Fitness, Trading: best.Chromosome.Params})
			}
			output.Printf("seed: %d\n", seed)
			output.Printf("best fitness: %.6f\n", best.Fitness)
			enc, _ := json.MarshalIndent(best.Chromosome.Params, "", "  ")
			output.Println(string(enc))
			return nil
		},
	}

	cmd.Flags().StringVar(&exchange, "exchange", "", "exchange name")
	cmd.Flags().StringVar(&symbolsCSV, "symbols", "", "comma-separated training symbols")
	cmd.Flags().Int64Var(&start, "start", 0, "start time, unix ms")
	cmd.Flags().Int64Var(&end, "end", 0, "end time, unix ms")
	cmd.Flags().Float64Var(&quote, "quote", 1, "starting quote balance")
	cmd.Flags().IntVar(&generations, "generations", 30, "number of generations to evolve")
	cmd.Flags().StringVar(&statisticName, "statistic", "profit", "evaluation statistic")
	cmd.Flags().StringVar(&aggregationName, "aggregation", "linear", "evaluation aggregation")
	cmd.Flags().Int64Var(&seed, "seed", 0, "RNG seed, used only with --has-seed (random otherwise)")
	cmd.Flags().StringVar(&ctxPath, "context", "", "path to a trading params context YAML file")
	cmd.Flags().BoolVar(&hasSeed, "has-seed", false, "treat --seed as explicitly set")
	cmd.MarkFlagRequired("exchange")
	cmd.MarkFlagRequired("symbols")

	return cmd
}

func parseStatisticName(name string) (evaluator.Statistic, error) {
	var s evaluator.Statistic
	if err := json.Unmarshal([]byte(`"`+name+`"`), &s); err != nil {
		return 0, fmt.Errorf("unknown evaluation statistic %q", name)
	}
	return s, nil
}

func parseAggregationName(name string) (evaluator.Aggregation, error) {
	var a evaluator.Aggregation
	if err := json.Unmarshal([]byte(`"`+name+`"`), &a); err != nil {
		return 0, fmt.Errorf("unknown evaluation aggregation %q", name)
	}
	return a, nil
}
