package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"mercator-hq/riskctl/pkg/cli"
	"mercator-hq/riskctl/pkg/facts"
	"mercator-hq/riskctl/pkg/model"
)

func newValidateCmd(a *app) *cobra.Command {
	var (
		modelDir  string
		factsFile string
		strict    bool
	)

	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Check a model, and optionally a facts file, for authoring problems",
		Long: `Validate the knowledge model documents: schema headers, question types,
duplicate ids, catalog fields and rules that reference unknown controls.
With --facts the facts document is checked against the model as well.

Warnings never block evaluation. Use --strict to exit non-zero when any
are reported, for example in CI.

Examples:
  riskctl validate
  riskctl validate --model-dir git:main --facts systems/payments.yaml --strict`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var f *facts.Facts
			if factsFile != "" {
				parsed, err := readFactsFile(factsFile)
				if err != nil {
					return err
				}
				f = &parsed
			}

			svc, closeFn, err := a.service(false)
			if err != nil {
				return cli.NewCommandError("validate", err)
			}
			defer closeFn()

			warnings, err := svc.Validate(cmd.Context(), modelDir, f)
			if err != nil {
				return cli.NewCommandError("validate", err)
			}
			if warnings == nil {
				warnings = []model.Warning{}
			}
			if err := a.print(warnings); err != nil {
				return err
			}
			if strict && len(warnings) > 0 {
				return cli.NewCommandError("validate", fmt.Errorf("%d warning(s)", len(warnings)))
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&modelDir, "model-dir", "m", "", "model directory or git:<rev>[:<subdir>] (default from config)")
	cmd.Flags().StringVar(&factsFile, "facts", "", "facts file to check against the model")
	cmd.Flags().BoolVar(&strict, "strict", false, "exit non-zero when warnings are reported")
	return cmd
}
