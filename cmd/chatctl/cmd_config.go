package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func configCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Show or change the chatctl configuration",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Print the configuration with secrets masked",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := currentConfig()
			if err != nil {
				return err
			}
			return printOut(cmd.OutOrStdout(), cfg.masked())
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "set <section.field> [value]",
		Short: "Set a configuration value",
		Long: "Set a configuration value using dot notation, e.g. server.base_url.\n" +
			"Secrets (server.api_key, user.signature, user.signing_key) are prompted for when no value is given.",
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := resolvedConfigPath()
			if err != nil {
				return err
			}
			cfg, err := loadConfig(path)
			if err != nil {
				return err
			}
			key := args[0]
			var value string
			switch {
			case len(args) == 2:
				value = args[1]
			case secretFields[key]:
				if value, err = readSecret(key); err != nil {
					return err
				}
			default:
				return fmt.Errorf("a value is required for %s", key)
			}
			if err := setConfigValue(cfg, key, value); err != nil {
				return err
			}
			if err := saveConfig(path, cfg); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "saved %s to %s\n", key, path)
			return nil
		},
	})
	return cmd
}
