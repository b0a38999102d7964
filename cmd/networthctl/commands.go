package main

import (
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"networth/internal/config"
	"networth/pkg/networth"
)

func noop(*cobra.Command, []string) error { return nil }

func newInitCmd(a *app) *cobra.Command {
	var existing, dbName string
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Record where the database lives",
		Args:  cobra.NoArgs,
		// init runs before any database exists.
		PersistentPreRunE:  noop,
		PersistentPostRunE: noop,
		RunE: func(cmd *cobra.Command, _ []string) error {
			dir, err := config.CompleteSetup(a.dataDir, existing, dbName)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "data directory: %s\n", dir)
			return nil
		},
	}
	cmd.Flags().StringVar(&existing, "existing-db", "", "Existing database to adopt")
	cmd.Flags().StringVar(&dbName, "db-name", "", "Database file name")
	return cmd
}

func newImportCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "import <balances.csv>",
		Short: "Import balance rows from a CSV export",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			file, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer file.Close()

			result, err := a.core.ImportBalancesCSV(cmd.Context(), file)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if a.asJSON {
				return a.printJSON(out, result)
			}
			fmt.Fprintf(out, "imported %d rows, skipped %d\n", result.Imported, result.Skipped)
			printIssues(out, result.Issues)
			return nil
		},
	}
}

func newImportFXCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "import-fx <valet.json>",
		Short: "Import a Bank of Canada Valet exchange rate document",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			file, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer file.Close()

			result, err := a.core.ImportValetJSON(cmd.Context(), file)
			if err != nil {
				return err
			}
			return a.printValet(cmd, result)
		},
	}
}

func newRefreshFXCmd(a *app) *cobra.Command {
	var since string
	cmd := &cobra.Command{
		Use:   "refresh-fx",
		Short: "Download recent Bank of Canada exchange rates",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			start, err := optionalDate(since)
			if err != nil {
				return err
			}
			result, err := a.core.RefreshExchangeRates(cmd.Context(), start)
			if err != nil {
				return err
			}
			return a.printValet(cmd, result)
		},
	}
	cmd.Flags().StringVar(&since, "since", "", "First date to fetch (default: day after the latest stored rate)")
	return cmd
}

func (a *app) printValet(cmd *cobra.Command, result *networth.ValetImportResult) error {
	out := cmd.OutOrStdout()
	if a.asJSON {
		return a.printJSON(out, result)
	}
	fmt.Fprintf(out, "imported %d rates for %s", result.Imported, strings.Join(result.Pairs, ", "))
	if result.From != "" {
		fmt.Fprintf(out, " (%s to %s)", result.From, result.To)
	}
	fmt.Fprintln(out)
	printIssues(out, result.Issues)
	return nil
}

func newFetchPricesCmd(a *app) *cobra.Command {
	var symbol, currency, since string
	cmd := &cobra.Command{
		Use:   "fetch-prices",
		Short: "Download daily closes for held tickers",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			out := cmd.OutOrStdout()
			if symbol == "" {
				results, failures, err := a.core.IngestAllPrices(cmd.Context())
				if err != nil {
					return err
				}
				if a.asJSON {
					return a.printJSON(out, map[string]any{"results": results, "failures": failures})
				}
				for _, res := range results {
					printIngest(out, res)
				}
				for _, failure := range failures {
					fmt.Fprintf(out, "failed: %s\n", failure)
				}
				return nil
			}

			start, err := optionalDate(since)
			if err != nil {
				return err
			}
			res, err := a.core.IngestPrices(cmd.Context(), symbol, currency, start)
			if err != nil {
				return err
			}
			if a.asJSON {
				return a.printJSON(out, res)
			}
			printIngest(out, res)
			return nil
		},
	}
	cmd.Flags().StringVar(&symbol, "symbol", "", "Only fetch this ticker")
	cmd.Flags().StringVar(&currency, "currency", "", "Currency of the ticker's prices (default: quote currency)")
	cmd.Flags().StringVar(&since, "since", "", "First date to fetch")
	return cmd
}

func printIngest(w io.Writer, res *networth.IngestResult) {
	fmt.Fprintf(w, "%s: %d prices in %s", res.Symbol, res.Imported, res.Currency)
	if res.From != "" {
		fmt.Fprintf(w, " (%s to %s)", res.From, res.To)
	}
	fmt.Fprintln(w)
}

func newSeriesCmd(a *app) *cobra.Command {
	var names []string
	var timeframe, now, currency string
	cmd := &cobra.Command{
		Use:   "series",
		Short: "Build and print normalized series",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			tf, err := networth.ParseTimeframe(timeframe)
			if err != nil {
				return err
			}
			at, err := optionalDate(now)
			if err != nil {
				return err
			}
			if at.IsZero() {
				at = networth.Today()
			}
			result, err := a.core.BuildSeriesIn(cmd.Context(), at, currency)
			if err != nil {
				return err
			}
			window := result.Window(names, tf)

			out := cmd.OutOrStdout()
			if a.asJSON {
				return a.printJSON(out, map[string]any{
					"currency": result.DisplayCurrency,
					"window":   window,
					"issues":   result.Issues,
				})
			}
			tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
			for _, name := range window.Series.Names() {
				s := window.Series[name]
				if len(s) == 0 {
					continue
				}
				last := s[len(s)-1]
				fmt.Fprintf(tw, "%s\t%d points\t%s\n", name, len(s), last.Display(result.DisplayCurrency))
			}
			if err := tw.Flush(); err != nil {
				return err
			}
			if window.Start != "" {
				fmt.Fprintf(out, "changed %s between %s and %s\n",
					networth.FormatAmount(window.AmountChanged, result.DisplayCurrency), window.Start, window.End)
			}
			for _, name := range window.Empty {
				fmt.Fprintf(out, "no data: %s\n", name)
			}
			if len(result.Issues) > 0 {
				fmt.Fprintf(out, "%d issues\n", len(result.Issues))
				printIssues(out, result.Issues)
			}
			return nil
		},
	}
	cmd.Flags().StringSliceVar(&names, "names", nil, "Series to print (default: all)")
	cmd.Flags().StringVar(&timeframe, "timeframe", "all", "all, 1y, 6m, 3m or 1m")
	cmd.Flags().StringVar(&now, "now", "", "Build as of this date (default: today)")
	cmd.Flags().StringVar(&currency, "currency", "", "Report in this currency (default: configured display currency)")
	return cmd
}

func newBreakdownCmd(a *app) *cobra.Command {
	var date, currency string
	cmd := &cobra.Command{
		Use:   "breakdown <category>",
		Short: "Show how a category splits across its accounts",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cat, err := networth.ParseCategory(args[0])
			if err != nil {
				return err
			}
			at, err := optionalDate(date)
			if err != nil {
				return err
			}
			now := networth.Today()
			if at.IsZero() {
				at = now
			}
			result, err := a.core.BuildSeriesIn(cmd.Context(), now, currency)
			if err != nil {
				return err
			}
			breakdown, err := result.Breakdown(cat, at)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if a.asJSON {
				return a.printJSON(out, breakdown)
			}
			tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', tabwriter.AlignRight)
			for _, entry := range breakdown.Entries {
				fmt.Fprintf(tw, "%s\t%s\t\n", entry.Name, networth.FormatAmount(entry.Value, breakdown.Currency))
			}
			fmt.Fprintf(tw, "total\t%s\t\n", networth.FormatAmount(breakdown.Total, breakdown.Currency))
			return tw.Flush()
		},
	}
	cmd.Flags().StringVar(&date, "date", "", "Date of the breakdown (default: today)")
	cmd.Flags().StringVar(&currency, "currency", "", "Report in this currency (default: configured display currency)")
	return cmd
}

func newConvertCmd(a *app) *cobra.Command {
	var date string
	cmd := &cobra.Command{
		Use:   "convert <amount> <from> [to]",
		Short: "Convert an amount between currencies",
		Args:  cobra.RangeArgs(2, 3),
		RunE: func(cmd *cobra.Command, args []string) error {
			value, err := decimal.NewFromString(args[0])
			if err != nil {
				return fmt.Errorf("invalid amount %q", args[0])
			}
			to := a.core.DisplayCurrency()
			if len(args) == 3 {
				to = strings.ToUpper(args[2])
			}
			at, err := optionalDate(date)
			if err != nil {
				return err
			}
			if at.IsZero() {
				at = networth.Today()
			}
			converted, err := a.core.Convert(cmd.Context(), networth.NewAmount(value), strings.ToUpper(args[1]), to, at)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), networth.FormatAmount(converted, to))
			return nil
		},
	}
	cmd.Flags().StringVar(&date, "date", "", "Date of the rates to use (default: today)")
	return cmd
}

func optionalDate(value string) (time.Time, error) {
	if strings.TrimSpace(value) == "" {
		return time.Time{}, nil
	}
	return networth.ParseDate(value)
}
