package main

import (
	"context"
	"fmt"
	"time"

	"github.com/kroma-labs/sentinel-neo4j/internal/app"
	"github.com/spf13/cobra"
)

// closeTimeout bounds driver close and telemetry flush on exit.
const closeTimeout = 10 * time.Second

func newServeCommand(c *cli) *cobra.Command {
	var seed bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the API and metrics listeners",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if cmd.Flags().Changed("seed") {
				c.cfg.Seed.OnStart = seed
			}
			return withApp(cmd.Context(), c, func(ctx context.Context, a *app.App) error {
				c.logger.Info().
					Str("api_addr", c.cfg.API.Addr).
					Str("metrics_addr", c.cfg.Metrics.Addr).
					Msg("friendsapi starting")
				return a.Run(ctx)
			})
		},
	}

	cmd.Flags().BoolVar(&seed, "seed", false, "seed the sample graph before serving")
	return cmd
}

func newSeedCommand(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "seed",
		Short: "Load the sample graph and exit",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd.Context(), c, func(ctx context.Context, a *app.App) error {
				return a.Seed(ctx)
			})
		},
	}
}

// withApp builds the application, runs fn and closes the application.
func withApp(ctx context.Context, c *cli, fn func(context.Context, *app.App) error) (err error) {
	a, err := app.New(ctx, c.cfg, c.src, c.logger)
	if err != nil {
		return err
	}

	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), closeTimeout)
		defer cancel()
		if closeErr := a.Close(closeCtx); closeErr != nil {
			c.logger.Error().Err(closeErr).Msg("shutdown incomplete")
			if err == nil {
				err = fmt.Errorf("close: %w", closeErr)
			}
		}
	}()

	return fn(ctx, a)
}
