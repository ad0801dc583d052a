package main

import (
	"io"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

type rootOptions struct {
	verbose bool
	logJSON bool
	log     zerolog.Logger
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{log: zerolog.Nop()}

	cmd := &cobra.Command{
		Use:   "bumpc",
		Short: "Compile-time counter preprocessor",
		Long: `bumpc expands counter macros in source files before they are compiled.

  counter_create!(name)     start name at 0 (resets an existing counter)
  counter_bump!(name)       expand to the current value, then add one
  counter_peek!(name)       expand to the current value
  counter_set!(name, 12)    overwrite the value
  counter_next!(name)       add one, expand to nothing`,
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			opts.log = newLogger(cmd.ErrOrStderr(), opts.verbose, opts.logJSON)
		},
		Run: func(cmd *cobra.Command, args []string) {
			// fall back on default help if no args/flags are passed.
			cmd.HelpFunc()(cmd, args)
		},
	}

	cmd.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "Log every expanded invocation.")
	cmd.PersistentFlags().BoolVar(&opts.logJSON, "log-json", false, "Write logs as JSON lines instead of console text.")

	cmd.AddCommand(newExpandCmd(opts))
	cmd.AddCommand(newTokensCmd())
	return cmd
}

func newLogger(w io.Writer, verbose, asJSON bool) zerolog.Logger {
	level := zerolog.WarnLevel
	if verbose {
		level = zerolog.DebugLevel
	}
	out := w
	if !asJSON {
		out = zerolog.ConsoleWriter{Out: w, TimeFormat: time.Kitchen}
	}
	return zerolog.New(out).Level(level).With().Timestamp().Logger()
}
