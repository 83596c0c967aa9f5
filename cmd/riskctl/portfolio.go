package main

import (
	"context"

	"github.com/spf13/cobra"

	"mercator-hq/riskctl/pkg/assessment"
	"mercator-hq/riskctl/pkg/cli"
)

func newPortfolioCmd(a *app) *cobra.Command {
	var (
		modelDir string
		record   bool
	)

	cmd := &cobra.Command{
		Use:   "portfolio",
		Short: "Summarise every system in the portfolio",
		Long: `Evaluate every system listed in the portfolio manifest and print one row
per system: derived controls, missing answers and activated domains.
Systems whose facts cannot be read are reported and skipped.

With --record each system's evaluation is stored in the history.

Examples:
  riskctl portfolio
  riskctl portfolio --model-dir git:v1.3.0 --format csv
  riskctl portfolio --record`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, closeFn, err := a.service(record)
			if err != nil {
				return cli.NewCommandError("portfolio", err)
			}
			defer closeFn()

			if record {
				if err := a.recordPortfolio(cmd.Context(), svc, modelDir); err != nil {
					return err
				}
			}

			pf, err := svc.Portfolio(cmd.Context(), modelDir)
			if err != nil {
				return cli.NewCommandError("portfolio", err)
			}
			for _, s := range pf.Skipped {
				a.logger.Warn("system skipped", "system", s.ID, "error", s.Error)
			}
			return a.print(pf)
		},
	}

	cmd.Flags().StringVarP(&modelDir, "model-dir", "m", "", "model directory or git:<rev>[:<subdir>] (default from config)")
	cmd.Flags().BoolVar(&record, "record", false, "store each system's evaluation in the history")
	return cmd
}

// recordPortfolio evaluates and records each system in turn, reporting
// progress on stderr. A system that fails to evaluate is logged and skipped.
func (a *app) recordPortfolio(ctx context.Context, svc *assessment.Service, ref string) error {
	if !a.cfg.History.Enabled {
		return cli.NewConfigError("history.enabled", "--record needs history enabled")
	}
	ids := svc.Workspace().List()

	progress := cli.NewProgressReporter(a.stderr)
	progress.Start(int64(len(ids)))
	for i, id := range ids {
		if _, err := svc.EvaluateSystem(ctx, id, ref); err != nil {
			a.logger.Warn("failed to evaluate system", "system", id, "error", err)
		}
		progress.Update(int64(i + 1))
	}
	progress.Finish()
	return nil
}
