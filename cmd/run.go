package cmd

import (
	"fmt"

	"github.com/mselser95/swap-arb/internal/app"
	"github.com/spf13/cobra"
)

//nolint:gochecknoglobals // Cobra boilerplate
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Start the arbitrage engine",
	Long: `Starts the arbitrage engine and its HTTP control surface, which will:
1. Price every active route on a randomized cycle
2. Select the most profitable opportunity net of fees
3. Execute it in paper or dry-run mode and record the outcome
4. Stream snapshots over /api/stream (and Redis when REDIS_ADDR is set)

The engine starts paused unless AUTO_START=true and WALLET_ADDRESS is set;
otherwise connect a wallet and start it through the HTTP API.`,
	RunE: runEngine,
}

//nolint:gochecknoinits // Cobra boilerplate
func init() {
	rootCmd.AddCommand(runCmd)
	runCmd.Flags().Bool("auto-start", false, "Start cycling immediately (requires WALLET_ADDRESS)")
	runCmd.Flags().String("wallet", "", "Wallet address to connect at startup")
}

func runEngine(cmd *cobra.Command, _ []string) error {
	cfg, logger, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	defer func() {
		_ = logger.Sync()
	}()

	if autoStart, _ := cmd.Flags().GetBool("auto-start"); autoStart {
		cfg.AutoStart = true
	}
	if wallet, _ := cmd.Flags().GetString("wallet"); wallet != "" {
		cfg.WalletAddress = wallet
	}

	application, err := app.New(cfg, logger, nil)
	if err != nil {
		return fmt.Errorf("create app: %w", err)
	}

	err = application.Run()
	if err != nil {
		return fmt.Errorf("run app: %w", err)
	}

	return nil
}
