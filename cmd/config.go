package cmd

import (
	"fmt"
	"os"
	"strconv"

	"github.com/b13-niass/esign/config"
	"github.com/b13-niass/esign/pkg/clierr"
	"github.com/spf13/cobra"
)

func configCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:         "config",
		Short:       "Show or create the configuration file",
		Annotations: offline(),
	}
	cmd.AddCommand(configShowCmd(a), configInitCmd(a))
	return cmd
}

func configShowCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Show the effective configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c := a.cfg
			rateLimit := "unlimited"
			if c.Download.RateLimit > 0 {
				rateLimit = formatBytes(c.Download.RateLimit) + "/s"
			}
			table := newTable(cmd.OutOrStdout(), "Key", "Value")
			table.AppendBulk([][]string{
				{"api_prefix", c.APIPrefix},
				{"access_token_persist_strategy", c.AccessTokenPersistStrategy},
				{"timeout", c.Timeout.String()},
				{"refresh_timeout", c.RefreshTimeout.String()},
				{"refresh_on_network_error", strconv.FormatBool(c.RefreshOnNetworkError)},
				{"ordered_replay", strconv.FormatBool(c.OrderedReplay)},
				{"workers", strconv.Itoa(c.Workers)},
				{"database.path", c.Database.Path},
				{"download.dir", c.Download.Dir},
				{"download.rate_limit", rateLimit},
			})
			table.Render()
			return nil
		},
	}
}

// configInitCmd writes the effective configuration, defaults included, to
// the config file.
func configInitCmd(a *app) *cobra.Command {
	var force bool
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write a config file with the current settings",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			path := a.configPath
			if path == "" {
				path = config.DefaultPath()
			}
			if _, err := os.Stat(path); err == nil && !force {
				return clierr.New(clierr.Validation, fmt.Sprintf("%s already exists (use --force to overwrite)", path), nil)
			}
			if err := config.Save(a.cfg, path); err != nil {
				return fmt.Errorf("failed to write %s: %w", path, err)
			}
			cmd.Printf("Config written to %s\n", path)
			return nil
		},
	}
	cmd.Flags().BoolVarP(&force, "force", "f", false, "Overwrite an existing config file")
	return cmd
}
