package cli

import (
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"backtestopt/internal/client"
	"backtestopt/internal/config"
	"backtestopt/internal/store"
)

// Version information, bumped on release.
const Version = "0.1.0"

// App holds the dependencies every subcommand needs.
type App struct {
	Config *config.Config
	Logger zerolog.Logger
	Client *client.Client
	Store  *store.SQLiteStore
}

// NewRootCmd builds the root backtestopt command and wires every
// subcommand group to a shared App.
func NewRootCmd(cfg *config.Config, logger zerolog.Logger) *cobra.Command {
	app := &App{
		Config: cfg,
		Logger: logger,
		Client: client.New(cfg.DataFeed.BaseURL, cfg.DataFeed.Timeout),
	}

	rootCmd := &cobra.Command{
		Use:           "backtestopt",
		Short:         "Backtest and optimize trading strategies over historical candles",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			debug, _ := cmd.Flags().GetBool("debug")
			if debug {
				app.Logger = app.Logger.Level(zerolog.DebugLevel)
			}
			return nil
		},
	}

	rootCmd.PersistentFlags().String("config", "", "config directory; not read, the directory comes from BACKTESTOPT_CONFIG_DIR (default: ~/.config/backtestopt)")
	rootCmd.PersistentFlags().Bool("json", false, "output in JSON format")
	rootCmd.PersistentFlags().Bool("debug", false, "enable debug logging")

	rootCmd.AddCommand(newVersionCmd())
	rootCmd.AddCommand(newServeCmd(app))
	rootCmd.AddCommand(newBacktestCmd(app))
	rootCmd.AddCommand(newOptimizeCmd(app))
	rootCmd.AddCommand(newCandlesCmd(app))

	return rootCmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			output := NewOutput(cmd)
			if output.IsJSON() {
				output.JSON(map[string]string{"version": Version})
				return
			}
			output.Printf("backtestopt v%s\n", Version)
		},
	}
}

// openStore lazily opens app's SQLite store, reusing it across commands
// within a single process.
func (a *App) openStore() (*store.SQLiteStore, error) {
	if a.Store != nil {
		return a.Store, nil
	}
	s, err := store.NewSQLiteStore(a.Config.Store.SQLitePath)
	if err != nil {
		return nil, err
	}
	a.Store = s
	return s, nil
}
