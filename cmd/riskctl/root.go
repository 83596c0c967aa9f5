package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"mercator-hq/riskctl/pkg/assessment"
	"mercator-hq/riskctl/pkg/cli"
	"mercator-hq/riskctl/pkg/config"
	"mercator-hq/riskctl/pkg/facts"
	"mercator-hq/riskctl/pkg/history"
	"mercator-hq/riskctl/pkg/model"
	"mercator-hq/riskctl/pkg/telemetry/logging"
	"mercator-hq/riskctl/pkg/workspace"
)

// app carries the global flags and the streams every command writes to.
type app struct {
	cfgFile string
	verbose bool
	format  string

	stdout io.Writer
	stderr io.Writer

	cfg    *config.Config
	logger *slog.Logger
}

// newRootCmd builds the command tree. Output goes to stdout, logs and
// diagnostics to stderr.
func newRootCmd(stdout, stderr io.Writer) *cobra.Command {
	a := &app{stdout: stdout, stderr: stderr}

	root := &cobra.Command{
		Use:   "riskctl",
		Short: "riskctl - risk and compliance evaluation for system facts",
		Long: `riskctl evaluates a system's facts against a versioned knowledge model.

It activates question domains from base answers, lists the questions that
must be answered, and derives the controls a system needs, each with the
conditions that caused it ("because").

Models are directories of YAML documents, or "git:<revision>[:<subdir>]"
references into the configured model repository.`,
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup(cmd)
		},
	}
	root.SetOut(stdout)
	root.SetErr(stderr)

	root.PersistentFlags().StringVarP(&a.cfgFile, "config", "c", "riskctl.yaml", "config file path (missing file uses defaults)")
	root.PersistentFlags().BoolVarP(&a.verbose, "verbose", "v", false, "verbose output")
	root.PersistentFlags().StringVarP(&a.format, "format", "f", "text", "output format (text, json, yaml, csv)")

	root.AddCommand(
		newEvaluateCmd(a),
		newDiffCmd(a),
		newValidateCmd(a),
		newServeCmd(a),
		newPortfolioCmd(a),
		newSystemCmd(a),
		newModelCmd(a),
		newHistoryCmd(a),
		newVersionCmd(a),
	)
	return root
}

// Execute runs the root command and returns the process exit code.
func Execute() int {
	return run(os.Args[1:], os.Stdout, os.Stderr)
}

func run(args []string, stdout, stderr io.Writer) int {
	root := newRootCmd(stdout, stderr)
	root.SetArgs(args)
	if err := root.Execute(); err != nil {
		fmt.Fprintln(stderr, "Error:", err)
		return cli.ExitCode(err)
	}
	return cli.ExitOK
}

// setup loads the configuration and builds the command logger. Commands
// other than serve log at warn unless --verbose is set.
func (a *app) setup(cmd *cobra.Command) error {
	if _, err := cli.ParseFormat(a.format); err != nil {
		return err
	}

	cfg, err := config.Load(a.cfgFile)
	if err != nil {
		return cli.NewConfigError("", err.Error())
	}
	config.SetConfig(cfg)
	a.cfg = cfg

	lc := logging.FromConfig(cfg.Telemetry.Logging)
	lc.Writer = a.stderr
	if cmd.Name() != "serve" {
		lc.Level = "warn"
		lc.Format = string(logging.FormatConsole)
	}
	if a.verbose {
		lc.Level = "debug"
	}
	logger, err := logging.New(lc)
	if err != nil {
		return cli.NewConfigError("telemetry.logging", err.Error())
	}
	a.logger = logger
	return nil
}

// print writes data to stdout in the selected format.
func (a *app) print(data any) error {
	format, err := cli.ParseFormat(a.format)
	if err != nil {
		return err
	}
	return cli.NewFormatter(format).FormatTo(a.stdout, data)
}

func (a *app) textOutput() bool {
	format, _ := cli.ParseFormat(a.format)
	return format == cli.FormatText
}

func (a *app) resolver() model.Resolver {
	return model.Resolver{
		DefaultDir: a.cfg.Model.Dir,
		Repository: a.cfg.Model.Repository,
		Subdir:     a.cfg.Model.Subdir,
	}
}

func (a *app) workspace() *workspace.Store {
	return workspace.New(workspace.Config{
		Root:          a.cfg.Workspace.Root,
		PortfolioFile: a.cfg.Workspace.PortfolioFile,
		SystemsDir:    a.cfg.Workspace.SystemsDir,
	}, a.logger)
}

// openHistory opens the configured history store, or returns nil when
// history is disabled.
func (a *app) openHistory() (history.Store, error) {
	if !a.cfg.History.Enabled {
		return nil, nil
	}
	store, err := history.Open(a.cfg.History, a.logger)
	if err != nil {
		return nil, fmt.Errorf("open history: %w", err)
	}
	return store, nil
}

// service builds an assessment service over the workspace. The returned
// close function releases the history store.
func (a *app) service(withHistory bool) (*assessment.Service, func(), error) {
	opts := assessment.Options{
		Sources:     a.resolver(),
		Workspace:   a.workspace(),
		Logger:      a.logger,
		Concurrency: a.cfg.Workspace.Concurrency,
	}
	closeFn := func() {}
	if withHistory {
		store, err := a.openHistory()
		if err != nil {
			return nil, nil, err
		}
		if store != nil {
			opts.History = store
			closeFn = func() {
				if err := store.Close(); err != nil {
					a.logger.Warn("failed to close history store", "error", err)
				}
			}
		}
	}
	return assessment.New(opts), closeFn, nil
}

// readFactsFile loads a facts document. Missing or malformed files are
// input errors.
func readFactsFile(path string) (facts.Facts, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return facts.Facts{}, cli.NewInputError(path, fmt.Errorf("facts file not found"))
		}
		return facts.Facts{}, cli.NewInputError(path, err)
	}
	f, err := facts.Parse(data)
	if err != nil {
		return facts.Facts{}, cli.NewInputError(path, err)
	}
	return f, nil
}
