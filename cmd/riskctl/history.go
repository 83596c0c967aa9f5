package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"mercator-hq/riskctl/pkg/cli"
	"mercator-hq/riskctl/pkg/history"
	"mercator-hq/riskctl/pkg/history/retention"
)

type historyFilter struct {
	system string
	model  string
	since  string
	until  string
	limit  int
	offset int
}

func (f *historyFilter) register(cmd *cobra.Command, defaultLimit int) {
	cmd.Flags().StringVarP(&f.system, "system", "s", "", "only records for this system")
	cmd.Flags().StringVarP(&f.model, "model", "m", "", "only records evaluated against this model reference")
	cmd.Flags().StringVar(&f.since, "since", "", "only records evaluated at or after this time (RFC3339)")
	cmd.Flags().StringVar(&f.until, "until", "", "only records evaluated at or before this time (RFC3339)")
	cmd.Flags().IntVarP(&f.limit, "limit", "n", defaultLimit, "maximum number of records (0 for all)")
	cmd.Flags().IntVar(&f.offset, "offset", 0, "skip this many records")
}

func (f *historyFilter) query() (*history.Query, error) {
	q := &history.Query{SystemID: f.system, ModelRef: f.model, Limit: f.limit, Offset: f.offset}
	for _, b := range []struct {
		name  string
		value string
		dst   **time.Time
	}{
		{"since", f.since, &q.Since},
		{"until", f.until, &q.Until},
	} {
		if b.value == "" {
			continue
		}
		t, err := time.Parse(time.RFC3339, b.value)
		if err != nil {
			return nil, cli.NewConfigError(b.name, fmt.Sprintf("invalid time %q: use RFC3339", b.value))
		}
		*b.dst = &t
	}
	if err := q.Validate(); err != nil {
		return nil, cli.NewConfigError("query", err.Error())
	}
	return q, nil
}

func newHistoryCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Query the evaluation history",
		Long: `Query, export and prune recorded evaluations.

Evaluations are recorded when a portfolio system is evaluated with history
enabled (history.enabled in the config file).

Subcommands:
  list    - List recorded evaluations
  export  - Export recorded evaluations as JSON or CSV
  prune   - Delete records older than the retention period`,
	}
	cmd.AddCommand(newHistoryListCmd(a), newHistoryExportCmd(a), newHistoryPruneCmd(a))
	return cmd
}

// withHistory opens the store for one command and closes it afterwards.
func (a *app) withHistory(command string, fn func(history.Store) error) error {
	store, err := a.openHistory()
	if err != nil {
		return cli.NewCommandError(command, err)
	}
	if store == nil {
		return cli.NewConfigError("history.enabled", "history is disabled")
	}
	defer store.Close()
	return fn(store)
}

func newHistoryListCmd(a *app) *cobra.Command {
	var filter historyFilter
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List recorded evaluations, newest first",
		Long: `List recorded evaluations, newest first.

Examples:
  riskctl history list --system payments-api
  riskctl history list --since 2026-01-01T00:00:00Z --format csv`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			q, err := filter.query()
			if err != nil {
				return err
			}
			return a.withHistory("history list", func(store history.Store) error {
				records, err := store.Query(cmd.Context(), q)
				if err != nil {
					return cli.NewCommandError("history list", err)
				}
				if records == nil {
					records = []*history.Record{}
				}
				return a.print(records)
			})
		},
	}
	filter.register(cmd, 50)
	return cmd
}

func newHistoryExportCmd(a *app) *cobra.Command {
	var (
		hf     historyFilter
		format string
		output string
	)
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export recorded evaluations as JSON or CSV",
		Long: `Export recorded evaluations. JSON exports include the full result of each
evaluation; CSV exports carry the summary columns only.

Examples:
  riskctl history export --export-format csv --output history.csv
  riskctl history export --system payments-api`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			q, err := hf.query()
			if err != nil {
				return err
			}
			if format != history.FormatJSON && format != history.FormatCSV {
				return cli.NewConfigError("export-format", fmt.Sprintf("unknown export format %q (use json or csv)", format))
			}
			return a.withHistory("history export", func(store history.Store) error {
				records, err := store.Query(cmd.Context(), q)
				if err != nil {
					return cli.NewCommandError("history export", err)
				}

				w := a.stdout
				if output != "" {
					file, err := os.Create(output)
					if err != nil {
						return cli.NewCommandError("history export", err)
					}
					defer file.Close()
					w = file
				}
				if err := history.Export(format, records, w); err != nil {
					return cli.NewCommandError("history export", err)
				}
				if output != "" {
					fmt.Fprintf(a.stderr, "Exported %d record(s) to %s\n", len(records), output)
				}
				return nil
			})
		},
	}
	hf.register(cmd, 0)
	cmd.Flags().StringVar(&format, "export-format", history.FormatJSON, "export format (json, csv)")
	cmd.Flags().StringVarP(&output, "output", "o", "", "write to this file instead of stdout")
	return cmd
}

func newHistoryPruneCmd(a *app) *cobra.Command {
	var days int
	cmd := &cobra.Command{
		Use:   "prune",
		Short: "Delete records older than the retention period",
		Long: `Delete records older than history.retention_days, or --days when given.
A retention of 0 keeps records forever.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := retention.FromConfig(a.cfg.History)
			if cmd.Flags().Changed("days") {
				cfg.RetentionDays = days
			}
			return a.withHistory("history prune", func(store history.Store) error {
				deleted, err := retention.NewPruner(store, cfg, a.logger).Prune(cmd.Context())
				if err != nil {
					return cli.NewCommandError("history prune", err)
				}
				fmt.Fprintf(a.stdout, "Pruned %d record(s)\n", deleted)
				return nil
			})
		},
	}
	cmd.Flags().IntVar(&days, "days", 0, "retention period in days, overriding the config")
	return cmd
}
