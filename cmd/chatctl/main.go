package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"alumnichat/pkg/client"
	"alumnichat/pkg/logger"
)

var (
	flagConfig  string
	flagUser    string
	flagBaseURL string
	flagOutput  string
	flagVerbose bool
)

var rootCmd = &cobra.Command{
	Use:           "chatctl",
	Short:         "Alumni chat command-line client",
	Long:          "Command-line client for the alumni chat server.\nManage connections, send messages and follow a conversation live.",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		level := "error"
		if flagVerbose {
			level = "debug"
		}
		logger.InitWithWriter(level, os.Stderr)
		switch flagOutput {
		case "yaml", "json":
			return nil
		default:
			return fmt.Errorf("unknown output format %q (valid: yaml, json)", flagOutput)
		}
	},
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&flagConfig, "config", "", "config file (default ~/.alumnichat/config.toml)")
	pf.StringVarP(&flagUser, "user", "u", "", "act as this user (overrides user.name)")
	pf.StringVar(&flagBaseURL, "base-url", "", "server base url (overrides server.base_url)")
	pf.StringVarP(&flagOutput, "output", "o", "yaml", "output format: yaml or json")
	pf.BoolVarP(&flagVerbose, "verbose", "v", false, "log sync activity to stderr")

	rootCmd.AddCommand(configCmd(), connectCmd(), watchCmd(), benchCmd())
	rootCmd.AddCommand(messageCmds()...)
}

func resolvedConfigPath() (string, error) {
	if flagConfig != "" {
		return flagConfig, nil
	}
	return configPath()
}

// currentConfig loads the config file and applies flag overrides.
func currentConfig() (*Config, error) {
	path, err := resolvedConfigPath()
	if err != nil {
		return nil, err
	}
	cfg, err := loadConfig(path)
	if err != nil {
		return nil, err
	}
	if flagUser != "" && flagUser != cfg.User.Name {
		cfg.User.Name = flagUser
		// a stored signature belongs to the configured user only
		cfg.User.Signature = ""
	}
	if flagBaseURL != "" {
		cfg.Server.BaseURL = flagBaseURL
	}
	return cfg, nil
}

func newClient() (*client.Client, error) {
	cfg, err := currentConfig()
	if err != nil {
		return nil, err
	}
	cc, err := cfg.clientConfig()
	if err != nil {
		return nil, err
	}
	return client.New(cc)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
