package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"backtestopt/internal/primitives"
)

func newCandlesCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "candles",
		Short: "Manage locally-stored candle history",
	}
	cmd.AddCommand(newCandlesImportCmd(app))
	return cmd
}

func newCandlesImportCmd(app *App) *cobra.Command {
	var exchange, symbol, interval, path string

	cmd := &cobra.Command{
		Use:   "import",
		Short: "Import candles from a CSV file into the local store",
		RunE: func(cmd *cobra.Command, args []string) error {
			iv, err := primitives.ParseInterval(interval)
			if err != nil {
				return err
			}

			f, err := os.Open(path)
			if err != nil {
				return fmt.Errorf("opening csv: %w", err)
			}
			defer f.Close()

			s, err := app.openStore()
			if err != nil {
				return fmt.Errorf("opening store: %w", err)
			}

			n, err := s.ImportCandlesCSV(f, exchange, symbol, iv)
			if err != nil {
				return fmt.Errorf("importing candles: %w", err)
			}

			output := NewOutput(cmd)
			if output.IsJSON() {
				return output.JSON(map[string]int{"imported": n})
			}
			output.Success("imported %d candles", n)
			return nil
		},
	}

	cmd.Flags().StringVar(&exchange, "exchange", "", "exchange name")
	cmd.Flags().StringVar(&symbol, "symbol", "", "symbol, e.g. eth-btc")
	cmd.Flags().StringVar(&interval, "interval", "1h", "candle interval")
	cmd.Flags().StringVar(&path, "file", "", "path to a CSV file")
	cmd.MarkFlagRequired("exchange")
	cmd.MarkFlagRequired("symbol")
	cmd.MarkFlagRequired("file")

	return cmd
}
