package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"backtestopt/internal/client"
	"backtestopt/internal/evaluator"
	"backtestopt/internal/performance"
	"backtestopt/internal/primitives"
	"backtestopt/internal/trading"
)

func newBacktestCmd(app *App) *cobra.Command {
	var (
		exchange     string
		symbol       string
		start, end   int64
		quote        float64
		paramsPath   string
	)

	cmd := &cobra.Command{
		Use:   "backtest",
		Short: "Replay a trading-params chromosome over one symbol's history",
		RunE: func(cmd *cobra.Command, args []string) error {
			raw, err := os.ReadFile(paramsPath)
			if err != nil {
				return fmt.Errorf("reading trading params: %w", err)
			}
			var params trading.TradingParams
			if err := json.Unmarshal(raw, &params); err != nil {
				return fmt.Errorf("parsing trading params: %w", err)
			}

			ctx := cmd.Context()
			exchangeInfo, err := app.Client.GetExchangeInfo(ctx, exchange)
			if err != nil {
				return fmt.Errorf("fetching exchange info: %w", err)
			}
			candles, err := app.Client.ListCandles(ctx, exchange, symbol, params.Trader.Interval, primitives.Timestamp(start), primitives.Timestamp(end), client.CandleTypeRegular)
			if err != nil {
				return fmt.Errorf("fetching candles: %w", err)
			}

			summary, err := trading.Trade(params, trading.Input{
				Candles:          candles,
				Fees:             exchangeInfo.Fees[symbol],
				Filters:          exchangeInfo.Filters[symbol],
				BorrowInfo:       exchangeInfo.BorrowInfo[symbol][baseAsset(symbol)],
				MarginMultiplier: 2,
				Quote:            quote,
				Long:             true,
				Short:            true,
			})
			if err != nil {
				return fmt.Errorf("backtesting: %w", err)
			}

			priceSeries, err := app.Client.MapAssetPrices(ctx, exchange, []string{baseAsset(symbol)}, evaluator.StatsInterval, primitives.Timestamp(start), primitives.Timestamp(end), quoteAsset(symbol))
			if err != nil {
				return fmt.Errorf("fetching prices: %w", err)
			}

			output := NewOutput(cmd)
			result := struct {
				Core     performance.CoreStatistics     `json:"core"`
				Extended performance.ExtendedStatistics `json:"extended"`
			}{
				Core:     performance.ComposeCoreStatistics(summary),
				Extended: performance.ComposeExtendedStatistics(summary, priceSeries[baseAsset(symbol)], evaluator.StatsInterval),
			}
			if output.IsJSON() {
				return output.JSON(result)
			}
			output.Printf("positions: %d\n", len(summary.Positions))
			output.Printf("profit: %.4f\n", result.Core.Profit)
			return nil
		},
	}

	cmd.Flags().StringVar(&exchange, "exchange", "", "exchange name")
	cmd.Flags().StringVar(&symbol, "symbol", "", "symbol, e.g. eth-btc")
	cmd.Flags().Int64Var(&start, "start", 0, "start time, unix ms")
	cmd.Flags().Int64Var(&end, "end", 0, "end time, unix ms")
	cmd.Flags().Float64Var(&quote, "quote", 1, "starting quote balance")
	cmd.Flags().StringVar(&paramsPath, "params", "", "path to a trading params JSON file")
	cmd.MarkFlagRequired("exchange")
	cmd.MarkFlagRequired("symbol")
	cmd.MarkFlagRequired("params")

	return cmd
}

// baseAsset mirrors internal/httpapi's helper: the base half of a
// "base-quote" symbol.
func baseAsset(symbol string) string {
	base, _, _ := strings.Cut(symbol, "-")
	return base
}

// quoteAsset mirrors internal/httpapi's helper: the quote half of a
// "base-quote" symbol.
func quoteAsset(symbol string) string {
	_, quote, _ := strings.Cut(symbol, "-")
	return quote
}
