package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"bumpcount/pkg/counter"
	"bumpcount/pkg/macro"
	"bumpcount/pkg/utils"
)

type expandOptions struct {
	outDir   string
	suffix   string
	toStdout bool
	scope    string
	policy   string
	prefix   string
	jobs     int
	dump     string
}

func newExpandCmd(root *rootOptions) *cobra.Command {
	opts := &expandOptions{}

	cmd := &cobra.Command{
		Use:   "expand [files...]",
		Short: "Expands counter macros and writes the results.",
		Long: `Expands every counter macro in the given files. With no files the source is
read from stdin and written to stdout. Counters never outlive one run.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runExpand(cmd, root, opts, args)
		},
	}

	cmd.Flags().StringVarP(&opts.outDir, "out-dir", "o", "", "Directory for expanded files (default: next to each input).")
	cmd.Flags().StringVar(&opts.suffix, "suffix", ".out", "Inserted before the extension of each output file name.")
	cmd.Flags().BoolVar(&opts.toStdout, "stdout", false, "Print expanded files to stdout instead of writing them.")
	cmd.Flags().StringVar(&opts.scope, "scope", macro.ScopeSession.String(), "Counter visibility: session (shared by all files) or file.")
	cmd.Flags().StringVar(&opts.policy, "policy", counter.Shared.String(), "Store locking: shared (mutex) or confined (single goroutine).")
	cmd.Flags().StringVar(&opts.prefix, "prefix", macro.DefaultPrefix, "Macro name prefix.")
	cmd.Flags().IntVarP(&opts.jobs, "jobs", "j", 1, "Files expanded at once.")
	cmd.Flags().StringVar(&opts.dump, "dump", "", "Write the final counter values as JSON to this file (- for stdout).")
	return cmd
}

func runExpand(cmd *cobra.Command, root *rootOptions, opts *expandOptions, args []string) error {
	scope, err := macro.ParseScope(opts.scope)
	if err != nil {
		return err
	}
	policy, err := counter.ParsePolicy(opts.policy)
	if err != nil {
		return err
	}

	s := macro.NewSession(
		macro.WithScope(scope),
		macro.WithPolicy(policy),
		macro.WithPrefix(opts.prefix),
		macro.WithJobs(opts.jobs),
		macro.WithLogger(root.log),
	)
	root.log.Debug().
		Str("session", s.ID.String()).
		Stringer("scope", scope).
		Stringer("policy", policy).
		Int("files", len(args)).
		Msg("starting expansion")

	stdout := cmd.OutOrStdout()
	if len(args) == 0 {
		src, err := io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return errors.Wrap(err, "failed to read stdin")
		}
		out, err := s.Expand(string(src), "")
		if err != nil {
			return err
		}
		if _, err := io.WriteString(stdout, out); err != nil {
			return err
		}
		return writeDump(s, opts.dump, stdout)
	}

	results, err := s.ExpandFiles(cmd.Context(), args)
	if err != nil {
		return err
	}

	for _, r := range results {
		if opts.toStdout {
			if _, err := io.WriteString(stdout, r.Output); err != nil {
				return err
			}
			continue
		}
		if err := writeOutput(r, opts); err != nil {
			return err
		}
		root.log.Info().Str("in", r.Path).Str("out", utils.OutputPath(r.Path, opts.outDir, opts.suffix)).Msg("wrote")
	}
	return writeDump(s, opts.dump, stdout)
}

func writeOutput(r macro.Result, opts *expandOptions) error {
	path := utils.OutputPath(r.Path, opts.outDir, opts.suffix)
	inAbs, _, err := utils.GetPathInfo(r.Path)
	if err != nil {
		return err
	}
	outAbs, outDir, err := utils.GetPathInfo(path)
	if err != nil {
		return err
	}
	if inAbs == outAbs {
		return fmt.Errorf("refusing to overwrite input %s; set --suffix or --out-dir", r.Path)
	}
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return errors.Wrapf(err, "failed to create %s", outDir)
	}
	if err := os.WriteFile(outAbs, []byte(r.Output), 0o644); err != nil {
		return errors.Wrapf(err, "failed to write %s", filepath.Base(outAbs))
	}
	return nil
}

func writeDump(s *macro.Session, dest string, stdout io.Writer) error {
	switch dest {
	case "":
		return nil
	case "-":
		return s.Report().WriteJSON(stdout)
	}
	f, err := os.Create(dest)
	if err != nil {
		return errors.Wrapf(err, "failed to create dump %s", dest)
	}
	if err := s.Report().WriteJSON(f); err != nil {
		f.Close()
		return errors.Wrapf(err, "failed to write dump %s", dest)
	}
	return f.Close()
}
