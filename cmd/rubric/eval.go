package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

func newEvalCmd(o *options) *cobra.Command {
	var (
		requires []string
		quiet    bool
	)
	cmd := &cobra.Command{
		Use:   "eval CODE",
		Short: "Evaluate a snippet and print the inspected result",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			v, err := o.newVM(cmd.OutOrStdout())
			if err != nil {
				return err
			}
			if err := requireAll(v, requires); err != nil {
				return err
			}
			result, err := v.EvalString(strings.Join(args, " "), "-e")
			if err != nil {
				return err
			}
			if quiet {
				return nil
			}
			s, err := v.Inspect(result)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), s)
			return nil
		},
	}
	cmd.Flags().StringArrayVarP(&requires, "require", "r", nil, "require `LIB` first (repeatable)")
	cmd.Flags().BoolVarP(&quiet, "quiet", "q", false, "do not print the result")
	return cmd
}
