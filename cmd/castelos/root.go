package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/pjpmarques/Castelos/internal/app"
	"github.com/pjpmarques/Castelos/internal/config"
	"github.com/pjpmarques/Castelos/internal/logging"
	"github.com/pjpmarques/Castelos/internal/pipeline"
)

const shutdownTimeout = 10 * time.Second

// runFunc executes one build. It is a parameter so tests can avoid the network.
type runFunc func(ctx context.Context, cfg config.Config, logger *zap.Logger) (pipeline.Result, error)

func runApp(ctx context.Context, cfg config.Config, logger *zap.Logger) (pipeline.Result, error) {
	a, err := app.New(ctx, cfg, logger)
	if err != nil {
		return pipeline.Result{}, fmt.Errorf("failed to initialize application services: %w", err)
	}
	res, runErr := a.Run(ctx)

	// The run context may already be canceled; shutdown gets its own deadline.
	closeCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return res, errors.Join(runErr, a.Close(closeCtx))
}

func newRootCmd(run runFunc) *cobra.Command {
	var cfgFile string
	cmd := &cobra.Command{
		Use:   "castelos",
		Short: "Build the Portuguese fortifications dataset from Wikipedia and Wikidata.",
		Long: `castelos reads the Portuguese Wikipedia list of fortifications, keeps the
links that look like castles, forts, towers or walls, looks up each article's
Wikidata coordinates, and writes the result as CSV (plus optional GeoJSON and
Postgres copies).`,
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(cfgFile)
			if err != nil {
				return err
			}
			logger, err := logging.New(logging.Options{
				Development: cfg.Logging.Development,
				Level:       cfg.Logging.Level,
			})
			if err != nil {
				return err
			}
			defer func() { _ = logger.Sync() }()

			res, err := run(cmd.Context(), cfg, logger)
			if err != nil {
				logger.Error("run failed", zap.Error(err))
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "wrote %d fortifications to %s (%d candidates, %d rows before de-duplication)\n",
				res.RowsWritten, res.FinalURI, res.Candidates, res.RowsCollected)
			return nil
		},
	}
	cmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (YAML, TOML or JSON); CASTELOS_* env vars override it")
	return cmd
}
