/*
Package cli provides command-line utilities shared by the riskctl commands.

Output Formatting:

Every command that prints results accepts --format text|json|yaml|csv:

	format, err := cli.ParseFormat(flagValue)
	if err != nil {
		return err
	}
	if err := cli.NewFormatter(format).FormatTo(os.Stdout, evaluation); err != nil {
		return err
	}

The text formatter renders assessment types with the report package. CSV is
available for tabular results only (portfolios and history records).

Progress Reporting:

For runs over many systems, report progress on stderr:

	progress := cli.NewProgressReporter(os.Stderr)
	progress.Start(int64(len(ids)))
	for i, id := range ids {
		// evaluate id
		progress.Update(int64(i + 1))
	}
	progress.Finish()

Signal Handling:

For graceful shutdown on SIGINT/SIGTERM:

	ctx, stop := cli.SignalContext(context.Background())
	defer stop()

Exit codes follow ExitCode: 0 on success, 2 for unusable input or
configuration, 1 for every other failure.
*/
package cli
