package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/peterh/liner"
	"github.com/spf13/cobra"

	"github.com/chazu/rubric/compiler"
	"github.com/chazu/rubric/vm"
)

const (
	historyFile = ".rubric_history"
	promptMain  = "rubric> "
	promptCont  = "rubric* "
)

func newReplCmd(o *options) *cobra.Command {
	return &cobra.Command{
		Use:   "repl",
		Short: "Start an interactive session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			v, err := o.newVM(cmd.OutOrStdout())
			if err != nil {
				return err
			}
			return repl(v)
		},
	}
}

// repl reads statements until EOF. Locals and methods persist between
// inputs because every input runs in the same top-level binding.
func repl(v *vm.VM) error {
	home, _ := os.UserHomeDir()
	histPath := filepath.Join(home, historyFile)

	ln := liner.NewLiner()
	defer ln.Close()
	ln.SetCtrlCAborts(true)

	if f, err := os.Open(histPath); err == nil {
		_, _ = ln.ReadHistory(f)
		_ = f.Close()
	}
	defer func() {
		if f, err := os.Create(histPath); err == nil {
			_, _ = ln.WriteHistory(f)
			_ = f.Close()
		}
	}()

	b := v.TopBinding("(repl)")
	for {
		code, ok := readStatement(ln, b)
		if !ok {
			fmt.Println()
			return nil
		}
		if strings.TrimSpace(code) == "" {
			continue
		}
		if strings.TrimSpace(code) == ":quit" {
			return nil
		}
		ln.AppendHistory(strings.ReplaceAll(code, "\n", " "))

		result, err := compiler.Eval(v, code, b)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			continue
		}
		s, err := v.Inspect(result)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			continue
		}
		fmt.Println("=> " + s)
	}
}

// readStatement keeps prompting while the input so far parses as
// incomplete.
func readStatement(ln *liner.State, b *vm.Binding) (string, bool) {
	var sb strings.Builder
	for {
		prompt := promptMain
		if sb.Len() > 0 {
			prompt = promptCont
		}
		line, err := ln.Prompt(prompt)
		if errors.Is(err, io.EOF) {
			return "", false
		}
		if err != nil {
			// Ctrl-C drops the pending input.
			return "", true
		}

		if sb.Len() > 0 {
			sb.WriteByte('\n')
		}
		sb.WriteString(line)

		src := sb.String()
		if _, err := compiler.Parse(src, b.File, b.Scope.Names()...); compiler.IsIncomplete(err) {
			continue
		}
		return src, true
	}
}
