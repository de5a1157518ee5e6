package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"aicentral-hq/gateway/pkg/cli"
)

// defaultEnvFile is loaded when present and --env-file is not given.
const defaultEnvFile = ".env"

var (
	// Global flags
	cfgFile string
	envFile string
)

var rootCmd = newRootCmd()

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "aicentral",
		Short: "AI Central - a gateway for OpenAI and Azure OpenAI traffic",
		Long: `AI Central is a reverse proxy for OpenAI and Azure OpenAI APIs.

Every inbound host is bound to a pipeline that:
  - Authenticates callers (API keys, Entra ID passthrough, or anonymous)
  - Applies fixed-window rate limits and concurrency caps
  - Chooses a downstream endpoint (single, random pool, or priority tiers)
  - Retries, fails over and circuit-breaks unhealthy endpoints

Secrets can be referenced from the configuration file as ${VAR} and supplied
through the environment or a .env file.`,
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return loadEnvFile(envFile)
		},
	}

	cmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "config.yaml", "config file path")
	cmd.PersistentFlags().StringVar(&envFile, "env-file", "", "load environment variables from this file (default: .env when present)")
	return cmd
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(cli.ExitCode(err))
	}
}

// loadEnvFile loads path into the process environment without overriding
// variables that are already set. An empty path loads .env if it exists.
func loadEnvFile(path string) error {
	if path == "" {
		if err := godotenv.Load(defaultEnvFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("failed to load %s: %w", defaultEnvFile, err)
		}
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("failed to load env file %s: %w", path, err)
	}
	return nil
}
