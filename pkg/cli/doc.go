/*
Package cli provides command-line interface utilities for the aicentral
command.

Output Formatting:

Command results are printed as text or JSON:

	formatter := cli.NewFormatter(cli.FormatJSON)
	if err := formatter.FormatTo(os.Stdout, summary); err != nil {
		return err
	}

The text formatter prints values with %v, so result types implement
fmt.Stringer to control their text rendering.

Errors and Exit Codes:

Commands wrap failures in ConfigError or CommandError; ExitCode maps them to
the process exit status.

	if err := rootCmd.Execute(); err != nil {
		os.Exit(cli.ExitCode(err))
	}

Signal Handling:

For graceful shutdown on SIGINT/SIGTERM:

	ctx, stop := cli.SetupSignalHandler()
	defer stop()
*/
package cli
