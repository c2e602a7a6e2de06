package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/locktivity/ghas-metrics/internal/cache"
	"github.com/locktivity/ghas-metrics/internal/collector"
	"github.com/locktivity/ghas-metrics/internal/server"
)

// serveCommand creates the "serve" command.
func (c *CLI) serveCommand() *cobra.Command {
	var listen string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the metrics HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := c.loadConfig()
			if err != nil {
				return err
			}
			if listen != "" {
				cfg.Server.Listen = listen
			}

			ctx := cmd.Context()
			shared, err := openSharedCache(ctx, cfg.CacheConfig())
			if err != nil {
				return fmt.Errorf("open cache: %w", err)
			}
			if shared != nil {
				defer func() {
					if err := shared.Close(); err != nil {
						c.Logger.Warn("closing cache", "err", err)
					}
				}()
			}

			ccfg, err := c.collectorConfig(cfg, shared)
			if err != nil {
				return err
			}
			metrics, err := collector.New(ccfg)
			if err != nil {
				return fmt.Errorf("create collector: %w", err)
			}

			srv := server.New(metrics, c.Logger, server.Options{
				BasePath:        cfg.Server.BasePath,
				ReadTimeout:     cfg.Server.ReadTimeout,
				WriteTimeout:    cfg.Server.WriteTimeout,
				ShutdownTimeout: cfg.Server.ShutdownTimeout,
			})
			c.Logger.Debug("cache", "backend", cfg.Cache.Backend, "ttl", cfg.Cache.TTL)
			return srv.ListenAndServe(ctx, cfg.Server.Listen)
		},
	}

	cmd.Flags().StringVarP(&listen, "listen", "l", "", "listen address (overrides config)")

	return cmd
}

// openSharedCache opens the backend shared by all aggregators. The memory
// backend returns nil so each aggregator keeps its own store.
func openSharedCache(ctx context.Context, cfg cache.Config) (cache.Cache, error) {
	switch cfg.Backend {
	case "", cache.BackendMemory:
		return nil, nil
	default:
		return cache.Open(ctx, cfg)
	}
}
