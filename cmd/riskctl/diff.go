package main

import (
	"github.com/spf13/cobra"

	"mercator-hq/riskctl/pkg/cli"
)

func newDiffCmd(a *app) *cobra.Command {
	var oldRef, newRef string

	cmd := &cobra.Command{
		Use:   "diff <facts-file>",
		Short: "Compare outcomes between two model versions for the same facts",
		Long: `Evaluate one facts document against two models and report what changed:
controls added or removed, questions newly missing or no longer missing, and
the activated domains on each side.

Examples:
  # Compare two model directories
  riskctl diff systems/payments.yaml --old model-v1 --new model

  # Compare the working model with a tagged release
  riskctl diff systems/payments.yaml --old git:v1.3.0 --new model`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := readFactsFile(args[0])
			if err != nil {
				return err
			}
			svc, closeFn, err := a.service(false)
			if err != nil {
				return cli.NewCommandError("diff", err)
			}
			defer closeFn()

			cmp, err := svc.Diff(cmd.Context(), f, oldRef, newRef)
			if err != nil {
				return cli.NewCommandError("diff", err)
			}
			return a.print(cmp)
		},
	}

	cmd.Flags().StringVar(&oldRef, "old", "", "old model directory or git:<rev>[:<subdir>]")
	cmd.Flags().StringVar(&newRef, "new", "", "new model directory or git:<rev>[:<subdir>]")
	_ = cmd.MarkFlagRequired("old")
	_ = cmd.MarkFlagRequired("new")
	return cmd
}
