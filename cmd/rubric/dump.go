package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/chazu/rubric/vm/snapshot"
)

func newDumpCmd(o *options) *cobra.Command {
	var (
		requires []string
		output   string
	)
	cmd := &cobra.Command{
		Use:   "dump",
		Short: "Write the class registry as a CBOR image",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			v, err := o.newVM(cmd.OutOrStdout())
			if err != nil {
				return err
			}
			if err := requireAll(v, requires); err != nil {
				return err
			}
			img, err := snapshot.Capture(v)
			if err != nil {
				return err
			}
			data, err := snapshot.Marshal(img)
			if err != nil {
				return err
			}
			if err := os.WriteFile(output, data, 0644); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s: %d types, %d bytes, %x\n", output, len(img.Types), len(data), img.Hash[:8])
			return nil
		},
	}
	cmd.Flags().StringArrayVarP(&requires, "require", "r", nil, "require `LIB` first (repeatable)")
	cmd.Flags().StringVarP(&output, "output", "o", "rubric.image", "image `FILE` to write")
	return cmd
}
