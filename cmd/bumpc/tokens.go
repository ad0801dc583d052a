package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"bumpcount/pkg/macro"
)

func newTokensCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "tokens [argument-list...]",
		Short: "Prints how macro arguments are tokenised.",
		Long: `Lexes each argument list (the text between the parentheses of an invocation,
e.g. "count, -4") and prints its tokens. Reads stdin when no lists are given.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 {
				src, err := io.ReadAll(cmd.InOrStdin())
				if err != nil {
					return err
				}
				args = []string{strings.TrimSpace(string(src))}
			}
			out := cmd.OutOrStdout()
			for _, src := range args {
				tokens, err := macro.Lex(src)
				if err != nil {
					return fmt.Errorf("lex error in %q: %v", src, err)
				}
				fmt.Fprintf(out, "Tokens (%d) for %q\n", len(tokens), src)
				for _, tok := range tokens {
					fmt.Fprintln(out, " ", tok)
				}
			}
			return nil
		},
	}
}
