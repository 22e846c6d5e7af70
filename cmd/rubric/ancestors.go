package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/chazu/rubric/vm"
)

func newAncestorsCmd(o *options) *cobra.Command {
	var requires []string
	cmd := &cobra.Command{
		Use:   "ancestors TYPE",
		Short: "Print the method resolution order of a class or module",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			v, err := o.newVM(cmd.OutOrStdout())
			if err != nil {
				return err
			}
			if err := requireAll(v, requires); err != nil {
				return err
			}
			c := v.Classes.Lookup(args[0])
			if c == nil {
				return vm.Errorf(vm.NameError, "uninitialized constant %s", args[0])
			}
			for _, a := range c.Ancestors() {
				fmt.Fprintln(cmd.OutOrStdout(), a.FullName())
			}
			return nil
		},
	}
	cmd.Flags().StringArrayVarP(&requires, "require", "r", nil, "require `LIB` first (repeatable)")
	return cmd
}
