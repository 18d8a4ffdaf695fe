package cli

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"backtestopt/internal/httpapi"
)

func newServeCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the backtest/optimize HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(app)
		},
	}
}

func runServe(app *App) error {
	s, err := app.openStore()
	if err != nil {
		return fmt.Errorf("opening store: %w", err)
	}
	server := httpapi.NewServer(app.Client, app.Logger, s)
	srv := &http.Server{Addr: app.Config.Server.Addr, Handler: httpapi.NewRouter(server)}

	app.Logger.Info().Str("addr", app.Config.Server.Addr).Msg("server listening")

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-stop:
	}

	ctx, cancel := context.WithTimeout(context.Background(), app.Config.Server.ShutdownGrace)
	defer cancel()
	app.Logger.Info().Msg("shutting down")
	return srv.Shutdown(ctx)
}
