package commands

import (
	"context"
	"errors"
	"net/http"

	"github.com/spf13/cobra"

	"github.com/spherical/pdf-diff/internal/api"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the diff engine over HTTP",
	Long: `Start an HTTP server that diffs token streams posted as JSON to
/v1/diff. When history is enabled, runs are recorded and served under /v1/runs.`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().IntVarP(&servePort, "port", "p", 0, "listen port (default from config)")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	cfg := appCfg
	if servePort > 0 {
		cfg.Server.Port = servePort
	}

	a := &app{cfg: cfg, logger: logger}
	defer a.Close()

	var runs api.RunStore
	history, err := a.openHistory(ctx)
	if err != nil {
		logger.Warn().Err(err).Msg("comparison history disabled")
	} else if history != nil {
		runs = history
	}

	router := api.NewRouter(logger, api.Config{
		RequestTimeout:    cfg.Server.RequestTimeout,
		MaxBodyBytes:      cfg.Server.MaxBodyBytes,
		Strategy:          cfg.Diff.Strategy,
		ExemptBoilerplate: cfg.Diff.ExemptBoilerplate,
	}, runs)

	addr := cfg.ServerAddr()
	srv := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	serverErrors := make(chan error, 1)
	go func() {
		logger.Info().Str("addr", addr).Bool("history", runs != nil).Msg("HTTP server listening")
		serverErrors <- srv.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
		logger.Info().Msg("Shutdown signal received")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.GracefulShutdown)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("Graceful shutdown failed")
		if err := srv.Close(); err != nil {
			logger.Error().Err(err).Msg("Forced shutdown failed")
		}
	}

	logger.Info().Msg("Server stopped")
	return nil
}
