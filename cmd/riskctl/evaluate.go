package main

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"mercator-hq/riskctl/pkg/assessment"
	"mercator-hq/riskctl/pkg/cli"
	"mercator-hq/riskctl/pkg/model"
	"mercator-hq/riskctl/pkg/report"
	"mercator-hq/riskctl/pkg/watch"
)

type evaluateOptions struct {
	modelDir string
	system   string
	watch    bool
}

func newEvaluateCmd(a *app) *cobra.Command {
	var opts evaluateOptions

	cmd := &cobra.Command{
		Use:   "evaluate [facts-file]",
		Short: "Evaluate a facts file or a portfolio system against a model",
		Long: `Evaluate a facts document against the knowledge model.

The report lists the activated domains, the required questions (answered or
missing) and the derived controls with the conditions that caused them.
Facts warnings are printed to stderr and never change the result.

Evaluating a portfolio system with --system records the result in the
evaluation history when history is enabled.

Examples:
  # Evaluate a facts file against the default model
  riskctl evaluate systems/payments.yaml

  # Evaluate against a tagged model version
  riskctl evaluate systems/payments.yaml --model-dir git:v1.3.0

  # Evaluate a portfolio system and print JSON
  riskctl evaluate --system payments-api --format json

  # Re-evaluate whenever the facts or the model change
  riskctl evaluate systems/payments.yaml --watch`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var path string
			if len(args) == 1 {
				path = args[0]
			}
			return runEvaluate(cmd.Context(), a, path, opts)
		},
	}

	cmd.Flags().StringVarP(&opts.modelDir, "model-dir", "m", "", "model directory or git:<rev>[:<subdir>] (default from config)")
	cmd.Flags().StringVarP(&opts.system, "system", "s", "", "evaluate a portfolio system instead of a file")
	cmd.Flags().BoolVarP(&opts.watch, "watch", "w", false, "re-evaluate when the facts file or model changes")
	return cmd
}

func runEvaluate(ctx context.Context, a *app, path string, opts evaluateOptions) error {
	if (path == "") == (opts.system == "") {
		return cli.NewConfigError("facts-file", "give either a facts file or --system")
	}
	if opts.watch && path == "" {
		return cli.NewConfigError("watch", "--watch needs a facts file")
	}

	svc, closeFn, err := a.service(opts.system != "")
	if err != nil {
		return cli.NewCommandError("evaluate", err)
	}
	defer closeFn()

	if opts.system != "" {
		ev, err := svc.EvaluateSystem(ctx, opts.system, opts.modelDir)
		if err != nil {
			return cli.NewCommandError("evaluate", err)
		}
		return a.printEvaluation(ev)
	}

	if err := a.evaluateFile(ctx, svc, path, opts.modelDir); err != nil {
		return err
	}
	if !opts.watch {
		return nil
	}
	return a.watchEvaluate(ctx, svc, path, opts.modelDir)
}

func (a *app) evaluateFile(ctx context.Context, svc *assessment.Service, path, ref string) error {
	f, err := readFactsFile(path)
	if err != nil {
		return err
	}
	ev, err := svc.Evaluate(ctx, f, ref)
	if err != nil {
		return cli.NewCommandError("evaluate", err)
	}
	return a.printEvaluation(ev)
}

// printEvaluation writes facts warnings to stderr in text mode, where they
// would otherwise be lost; structured formats carry them in the document.
func (a *app) printEvaluation(ev *assessment.Evaluation) error {
	if a.textOutput() && len(ev.Warnings) > 0 {
		if err := report.Warnings(a.stderr, ev.Warnings); err != nil {
			return err
		}
	}
	return a.print(ev)
}

// watchEvaluate re-runs the evaluation on every change to the facts file or
// the local model directory until ctx is cancelled.
func (a *app) watchEvaluate(ctx context.Context, svc *assessment.Service, path, ref string) error {
	ctx, stop := cli.SignalContext(ctx)
	defer stop()

	factsPath, err := filepath.Abs(path)
	if err != nil {
		return cli.NewInputError(path, err)
	}

	var mu sync.Mutex
	rerun := func() {
		mu.Lock()
		defer mu.Unlock()
		fmt.Fprintln(a.stderr, "--- change detected, re-evaluating ---")
		if err := a.evaluateFile(ctx, svc, path, ref); err != nil {
			fmt.Fprintln(a.stderr, "Error:", err)
		}
	}

	factsWatcher, err := watch.New(watch.Config{Path: factsPath, Debounce: a.cfg.Model.Debounce}, a.logger)
	if err != nil {
		return cli.NewCommandError("evaluate", err)
	}
	var modelWatcher *watch.Watcher
	if dir := localModelDir(ref, a.cfg.Model.Dir); dir != "" {
		modelWatcher, err = watch.New(watch.Config{Path: dir, Debounce: a.cfg.Model.Debounce}, a.logger)
		if err != nil {
			factsWatcher.Close()
			return cli.NewCommandError("evaluate", err)
		}
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return factsWatcher.Run(gctx, func([]string) { rerun() })
	})
	if modelWatcher != nil {
		g.Go(func() error {
			return modelWatcher.Run(gctx, func([]string) {
				svc.Invalidate()
				rerun()
			})
		})
	}

	fmt.Fprintln(a.stderr, "Watching for changes. Press Ctrl+C to stop.")
	return g.Wait()
}

// localModelDir returns the directory behind ref, or "" for git references.
func localModelDir(ref, defaultDir string) string {
	if ref == "" {
		ref = defaultDir
	}
	parsed, err := model.ParseRef(ref)
	if err != nil || parsed.IsGit() {
		return ""
	}
	return parsed.Dir
}
