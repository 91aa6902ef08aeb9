package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/memohai/supportdesk/internal/config"
)

var (
	configPath string
	envFiles   []string
)

var rootCmd = &cobra.Command{
	Use:           "supportdesk",
	Short:         "Customer-support sales chat agent",
	Long:          "Serves the sales chat agent over HTTP and manages the Feishu table that stores chat records.",
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServe()
	},
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP server (default)",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServe()
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Config file path (default: $CONFIG_PATH or config.toml)")
	rootCmd.PersistentFlags().StringSliceVar(&envFiles, "env-file", nil, "Env files to load before reading config (default: .env)")
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(newTableCmd())
}

// loadConfig reads env files, the TOML config and env overrides, then validates.
func loadConfig() (config.Config, error) {
	if err := config.LoadEnvFile(envFiles...); err != nil {
		return config.Config{}, err
	}
	path := configPath
	if path == "" {
		path = os.Getenv("CONFIG_PATH")
	}
	cfg, err := config.Load(path)
	if err != nil {
		return config.Config{}, fmt.Errorf("load config: %w", err)
	}
	config.ApplyEnv(&cfg)
	if err := cfg.Validate(); err != nil {
		return config.Config{}, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}
