// Package cli implements the ghas-metrics command-line interface.
package cli

import (
	"fmt"
	"io"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/locktivity/ghas-metrics/internal/cache"
	"github.com/locktivity/ghas-metrics/internal/collector"
	"github.com/locktivity/ghas-metrics/internal/config"
	"github.com/locktivity/ghas-metrics/internal/logging"
)

// Version is set at build time via -ldflags.
var Version = "dev"

// CLI holds shared state for all commands.
type CLI struct {
	Logger *log.Logger
	Out    io.Writer

	configPath string
	verbose    bool
}

// New creates a CLI that writes results to out and logs to logw.
func New(out, logw io.Writer) *CLI {
	return &CLI{
		Logger: logging.New(logw, log.InfoLevel),
		Out:    out,
	}
}

// RootCommand creates the root cobra command with all subcommands registered.
func (c *CLI) RootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:          "ghas-metrics",
		Short:        "Aggregate GitHub Advanced Security metrics for an organization",
		Version:      Version,
		SilenceUsage: true,
	}

	root.PersistentFlags().StringVarP(&c.configPath, "config", "c", "", "path to a TOML config file")
	root.PersistentFlags().BoolVarP(&c.verbose, "verbose", "v", false, "enable debug logging")

	root.AddCommand(c.serveCommand())
	root.AddCommand(c.reportCommand())

	return root
}

// loadConfig reads the configuration and applies its log level, unless
// --verbose already asked for debug output.
func (c *CLI) loadConfig() (*config.Config, error) {
	cfg, err := config.Load(c.configPath)
	if err != nil {
		return nil, err
	}

	level, err := logging.ParseLevel(cfg.Log.Level)
	if err != nil {
		return nil, fmt.Errorf("log.level: %w", err)
	}
	if c.verbose {
		level = log.DebugLevel
	}
	c.Logger.SetLevel(level)
	return cfg, nil
}

// collectorConfig maps cfg onto a collector configuration backed by the
// given cache.
func (c *CLI) collectorConfig(cfg *config.Config, shared cache.Cache) (collector.Config, error) {
	key, err := cfg.PrivateKey()
	if err != nil {
		return collector.Config{}, err
	}
	return collector.Config{
		Organization:    cfg.GitHub.Organization,
		GitHubToken:     cfg.GitHub.Token,
		AppID:           cfg.GitHub.AppID,
		InstallationID:  cfg.GitHub.InstallationID,
		PrivateKey:      key,
		BaseURL:         cfg.GitHub.BaseURL,
		RepoSource:      cfg.GitHub.RepoSource,
		IncludePatterns: cfg.GitHub.IncludePatterns,
		ExcludePatterns: cfg.GitHub.ExcludePatterns,
		CacheTTL:        cfg.Cache.TTL,
		RateThreshold:   cfg.RateLimit.Threshold,
		MaxRateWait:     cfg.RateLimit.MaxWait,
		Cache:           shared,
		Logger:          c.Logger,
		OnStatus:        func(msg string) { c.Logger.Info(msg) },
		OnProgress: func(current, total int64, msg string) {
			c.Logger.Debug(msg, "current", current, "total", total)
		},
	}, nil
}
