package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
)

func newRunCmd(o *options) *cobra.Command {
	var requires []string
	cmd := &cobra.Command{
		Use:   "run [FILE...]",
		Short: "Evaluate files in order; defaults to the manifest's run entry",
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 {
				if o.manifest == nil || o.manifest.EntryPath() == "" {
					return errors.New("no file given and no [run] entry in rubric.toml")
				}
				args = []string{o.manifest.EntryPath()}
			}

			v, err := o.newVM(cmd.OutOrStdout())
			if err != nil {
				return err
			}
			if err := requireAll(v, requires); err != nil {
				return err
			}
			for _, file := range args {
				src, err := os.ReadFile(file)
				if err != nil {
					return err
				}
				abs, err := filepath.Abs(file)
				if err != nil {
					return err
				}
				log.Infof("run %s", abs)
				if _, err := v.EvalString(string(src), abs); err != nil {
					return fmt.Errorf("%s: %w", file, err)
				}
			}
			return nil
		},
	}
	cmd.Flags().StringArrayVarP(&requires, "require", "r", nil, "require `LIB` before running (repeatable)")
	return cmd
}
