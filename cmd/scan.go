package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"text/tabwriter"
	"time"

	"github.com/mselser95/swap-arb/internal/app"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
)

//nolint:gochecknoglobals // Cobra boilerplate
var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "Price every route once and print the ranking",
	Long: `Runs a single scan over the active routes without executing anything.
Useful to check quote source connectivity and the current profit landscape.`,
	RunE: runScan,
}

//nolint:gochecknoinits // Cobra boilerplate
func init() {
	rootCmd.AddCommand(scanCmd)
	scanCmd.Flags().StringP("amount", "a", "", "Trade amount in the reference token (overrides TRADE_AMOUNT)")
	scanCmd.Flags().StringP("filter", "f", "", "Strategy filter: all, direct, triangular, hot (overrides STRATEGY_FILTER)")
}

func runScan(cmd *cobra.Command, _ []string) error {
	cfg, logger, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	defer func() {
		_ = logger.Sync()
	}()

	if s, _ := cmd.Flags().GetString("amount"); s != "" {
		amount, parseErr := decimal.NewFromString(s)
		if parseErr != nil || !amount.IsPositive() {
			return fmt.Errorf("invalid amount %q", s)
		}
		cfg.TradeAmount = amount
	}
	if f, _ := cmd.Flags().GetString("filter"); f != "" {
		cfg.StrategyFilter = f
	}

	application, err := app.New(cfg, logger, &app.Options{SkipHTTP: true})
	if err != nil {
		return fmt.Errorf("create app: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.ScanTimeout+5*time.Second)
	defer cancel()

	fmt.Printf("Scanning %d routes with %s %s...\n\n",
		len(application.RouteBook().Routes), cfg.TradeAmount, application.RouteBook().Tokens.Reference())

	return scanAndClose(ctx, application, os.Stdout)
}

// scanner is the slice of *app.App the scan command drives.
type scanner interface {
	ScanOnce(ctx context.Context) (app.ScanReport, error)
	Shutdown() error
}

// scanAndClose runs one scan and always shuts the app down, so caches and
// Redis clients are released even when the scan fails.
func scanAndClose(ctx context.Context, application scanner, out io.Writer) (err error) {
	defer func() {
		shutdownErr := application.Shutdown()
		if err == nil && shutdownErr != nil {
			err = fmt.Errorf("shutdown: %w", shutdownErr)
		}
	}()

	report, err := application.ScanOnce(ctx)
	if err != nil {
		return fmt.Errorf("scan: %w", err)
	}

	printScanReport(out, report)
	return nil
}

func printScanReport(out io.Writer, report app.ScanReport) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "RANK\tROUTE\tKIND\tOUTPUT\tNET PROFIT\tBPS\tLATENCY\n")
	fmt.Fprintf(w, "----\t-----\t----\t------\t----------\t---\t-------\n")

	for i, opp := range report.Ranked {
		marker := ""
		if report.Best != nil && report.Best.ID == opp.ID {
			marker = " *"
		}
		fmt.Fprintf(w, "%d%s\t%s\t%s\t%s\t%s\t%d\t%s\n",
			i+1, marker, opp.Route, opp.Kind, opp.OutputAmount.StringFixed(6),
			opp.NetProfit.StringFixed(6), opp.ProfitBps, opp.EstimatedLatency.Round(time.Millisecond))
	}
	w.Flush()

	if len(report.Result.Failures) > 0 {
		fmt.Fprintf(out, "\nFailed routes:\n")
		for _, f := range report.Result.Failures {
			fmt.Fprintf(out, "  %s (%s): %v\n", f.Route, f.Kind, f.Err)
		}
	}

	if report.Best == nil {
		fmt.Fprintf(out, "\nNo actionable opportunity (scan took %s).\n", report.Result.Duration.Round(time.Millisecond))
		return
	}
	fmt.Fprintf(out, "\nBest: %s, net %s (scan took %s).\n",
		report.Best.Route, report.Best.NetProfit.StringFixed(6), report.Result.Duration.Round(time.Millisecond))
}
