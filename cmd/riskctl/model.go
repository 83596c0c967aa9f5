package main

import (
	"github.com/spf13/cobra"

	"mercator-hq/riskctl/pkg/cli"
	"mercator-hq/riskctl/pkg/model"
)

func newModelCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "model",
		Short: "Inspect knowledge models",
		Long: `Inspect the knowledge model: its questions, domains and triggers, and the
commits that changed it in the model repository.

Subcommands:
  info     - Describe a model
  history  - List the commits that changed the model`,
	}
	cmd.AddCommand(newModelInfoCmd(a), newModelHistoryCmd(a))
	return cmd
}

func newModelInfoCmd(a *app) *cobra.Command {
	var modelDir string
	cmd := &cobra.Command{
		Use:   "info",
		Short: "Describe a model",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, closeFn, err := a.service(false)
			if err != nil {
				return cli.NewCommandError("model info", err)
			}
			defer closeFn()

			info, err := svc.ModelInfo(cmd.Context(), modelDir)
			if err != nil {
				return cli.NewCommandError("model info", err)
			}
			return a.print(info)
		},
	}
	cmd.Flags().StringVarP(&modelDir, "model-dir", "m", "", "model directory or git:<rev>[:<subdir>] (default from config)")
	return cmd
}

func newModelHistoryCmd(a *app) *cobra.Command {
	var (
		revision string
		limit    int
	)
	cmd := &cobra.Command{
		Use:   "history",
		Short: "List the commits that changed the model",
		Long: `List the commits reachable from a revision that touched the model
directory, newest first. Any listed commit can be used as a model
reference: git:<commit>.

Examples:
  riskctl model history --limit 10
  riskctl model history --rev v1.3.0`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			repoPath := a.cfg.Model.Repository
			if repoPath == "" {
				repoPath = "."
			}
			repo, err := model.OpenRepository(repoPath)
			if err != nil {
				return cli.NewCommandError("model history", err)
			}
			revs, err := model.History(cmd.Context(), repo, revision, a.cfg.Model.Subdir, limit)
			if err != nil {
				return cli.NewCommandError("model history", err)
			}
			if revs == nil {
				revs = []model.Revision{}
			}
			return a.print(revs)
		},
	}
	cmd.Flags().StringVar(&revision, "rev", "HEAD", "revision to start from")
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "maximum number of commits (0 for all)")
	return cmd
}
