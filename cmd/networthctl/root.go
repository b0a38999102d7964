package main

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"networth/internal/config"
	"networth/internal/logging"
	"networth/pkg/networth"
)

type app struct {
	dataDir  string
	dbPath   string
	logLevel string
	asJSON   bool

	settings config.Settings
	logger   *slog.Logger
	core     *networth.Core
}

func newRootCmd() *cobra.Command {
	a := &app{}
	root := &cobra.Command{
		Use:                "networthctl",
		Short:              "Load balances, rates and prices and inspect net worth series",
		SilenceUsage:       true,
		PersistentPreRunE:  a.open,
		PersistentPostRunE: a.close,
	}
	flags := root.PersistentFlags()
	flags.StringVar(&a.dataDir, "data-dir", "", "Directory holding the database and category lists")
	flags.StringVar(&a.dbPath, "db", "", "Database path (overrides the data dir)")
	flags.StringVar(&a.logLevel, "log-level", "warn", "Log level (debug, info, warn, error)")
	flags.BoolVar(&a.asJSON, "json", false, "Print results as JSON")

	root.AddCommand(
		newInitCmd(a),
		newImportCmd(a),
		newImportFXCmd(a),
		newRefreshFXCmd(a),
		newFetchPricesCmd(a),
		newSeriesCmd(a),
		newBreakdownCmd(a),
		newConvertCmd(a),
	)
	return root
}

func (a *app) open(cmd *cobra.Command, _ []string) error {
	if a.dataDir != "" {
		config.SetRuntimeDataDir(a.dataDir)
	}
	settings, err := config.Load()
	if err != nil {
		return fmt.Errorf("resolve configuration: %w", err)
	}
	if a.dbPath != "" {
		settings.DBPath = a.dbPath
	}
	level, ok := logging.ParseLevel(a.logLevel)
	if !ok {
		return fmt.Errorf("unknown log level %q", a.logLevel)
	}
	a.settings = settings
	a.logger = logging.New(cmd.ErrOrStderr(), level)

	core, err := networth.OpenWithOptions(settings.CoreOptions(a.logger))
	if err != nil {
		return err
	}
	a.core = core
	return nil
}

func (a *app) close(*cobra.Command, []string) error {
	if a.core == nil {
		return nil
	}
	err := a.core.Close()
	a.core = nil
	return err
}

func (a *app) printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func printIssues(w io.Writer, issues []networth.Issue) {
	for _, issue := range issues {
		fmt.Fprintf(w, "  %s", issue.Kind)
		if issue.Row > 0 {
			fmt.Fprintf(w, " row=%d", issue.Row)
		}
		for _, kv := range [][2]string{
			{"account", issue.Account},
			{"date", issue.Date},
			{"currency", issue.Currency},
			{"ticker", issue.Ticker},
		} {
			if kv[1] != "" {
				fmt.Fprintf(w, " %s=%s", kv[0], kv[1])
			}
		}
		if issue.Detail != "" {
			fmt.Fprintf(w, ": %s", issue.Detail)
		}
		fmt.Fprintln(w)
	}
}
