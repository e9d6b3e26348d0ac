package cmd

import (
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"text/tabwriter"

	"github.com/mselser95/swap-arb/pkg/config"
	"github.com/spf13/cobra"
)

//nolint:gochecknoglobals // Cobra boilerplate
var routesCmd = &cobra.Command{
	Use:   "routes",
	Short: "List configured tokens and routes",
	Long:  `Loads and validates the route book and prints its tokens and routes.`,
	RunE:  runRoutes,
}

//nolint:gochecknoinits // Cobra boilerplate
func init() {
	rootCmd.AddCommand(routesCmd)
}

func runRoutes(cmd *cobra.Command, _ []string) error {
	path, _ := cmd.Flags().GetString("routes")
	if path == "" {
		path = os.Getenv("ROUTES_FILE")
	}

	book, err := config.LoadRouteBook(path)
	if err != nil {
		return fmt.Errorf("load route book: %w", err)
	}

	printRouteBook(os.Stdout, book)
	return nil
}

func printRouteBook(out io.Writer, book *config.RouteBook) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "TOKEN\tDECIMALS\tREF PRICE\n")
	fmt.Fprintf(w, "-----\t--------\t---------\n")
	symbols := book.Tokens.Symbols()
	sort.Strings(symbols)
	for _, sym := range symbols {
		tok, _ := book.Tokens.Get(sym)
		fmt.Fprintf(w, "%s\t%d\t%s\n", tok.Symbol, tok.Decimals, tok.RefPrice)
	}
	w.Flush()

	fmt.Fprintln(out)

	w = tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "ROUTE\tKIND\tLEGS\tVENUES\n")
	fmt.Fprintf(w, "-----\t----\t----\t------\n")
	for _, r := range book.Routes {
		fmt.Fprintf(w, "%s\t%s\t%d\t%s\n", r.Label, r.Kind, len(r.Legs()), strings.Join(r.Venues, ", "))
	}
	w.Flush()

	fmt.Fprintf(out, "\nReference token: %s. Total: %d routes.\n", book.Tokens.Reference(), len(book.Routes))
}
