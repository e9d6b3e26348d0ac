package cmd

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/mselser95/swap-arb/pkg/config"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

//nolint:gochecknoglobals // Cobra boilerplate
var rootCmd = &cobra.Command{
	Use:   "swap-arb",
	Short: "Token swap arbitrage engine",
	Long: `Token swap arbitrage engine that periodically prices a fixed set of
direct, triangular and hot swap routes, ranks the profitable ones net of
fees, and executes the best one in paper or dry-run mode.

Configuration comes from environment variables, optionally loaded from a
.env file.`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

//nolint:gochecknoinits // Cobra boilerplate
func init() {
	rootCmd.PersistentFlags().String("env-file", ".env", "Environment file to load before reading config")
	rootCmd.PersistentFlags().String("routes", "", "Route book YAML (defaults to ROUTES_FILE or the built-in book)")
}

// loadConfig reads the env file (if present), the environment, and builds the logger.
func loadConfig(cmd *cobra.Command) (*config.Config, *zap.Logger, error) {
	envFile, _ := cmd.Flags().GetString("env-file")
	if err := godotenv.Load(envFile); err != nil && cmd.Flags().Changed("env-file") {
		return nil, nil, fmt.Errorf("load env file %s: %w", envFile, err)
	}

	cfg, err := config.LoadFromEnv()
	if err != nil {
		return nil, nil, fmt.Errorf("load config: %w", err)
	}

	if routes, _ := cmd.Flags().GetString("routes"); routes != "" {
		cfg.RoutesFile = routes
	}

	logger, err := config.NewLogger(cfg.LogLevel)
	if err != nil {
		return nil, nil, fmt.Errorf("create logger: %w", err)
	}

	return cfg, logger, nil
}
