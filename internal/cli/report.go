package cli

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/locktivity/ghas-metrics/internal/cache"
	"github.com/locktivity/ghas-metrics/internal/collector"
)

// reportCommand creates the "report" command, which collects a full
// snapshot once and prints it as JSON.
func (c *CLI) reportCommand() *cobra.Command {
	var (
		org   string
		since string
	)

	cmd := &cobra.Command{
		Use:   "report",
		Short: "Collect a one-off metrics snapshot for an organization",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := c.loadConfig()
			if err != nil {
				return err
			}
			if org != "" {
				cfg.GitHub.Organization = org
			}
			if cfg.GitHub.Organization == "" {
				return errors.New("organization is required: pass --org or set github.organization")
			}

			ccfg, err := c.collectorConfig(cfg, cache.NewNull())
			if err != nil {
				return err
			}
			ccfg.Since = since

			col, err := collector.New(ccfg)
			if err != nil {
				return fmt.Errorf("create collector: %w", err)
			}

			metrics, err := col.Collect(cmd.Context())
			if err != nil {
				return fmt.Errorf("collect %s: %w", cfg.GitHub.Organization, err)
			}

			enc := json.NewEncoder(c.Out)
			enc.SetIndent("", "  ")
			return enc.Encode(metrics)
		},
	}

	cmd.Flags().StringVarP(&org, "org", "o", "", "organization to report on (overrides config)")
	cmd.Flags().StringVar(&since, "since", "", "only count alerts resolved after this date (YYYY-MM-DD or RFC 3339)")

	return cmd
}
