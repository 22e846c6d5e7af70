// Package prelude holds the core library methods that are written in Rubric
// source rather than as Go primitives.
package prelude

import (
	_ "embed"
	"fmt"

	"github.com/chazu/rubric/vm"
)

// File is the name the prelude is evaluated under.
const File = "<prelude>"

//go:embed builtin.rb
var Source string

// Load evaluates the prelude into v. The VM needs an evaluator installed.
func Load(v *vm.VM) error {
	if _, err := v.EvalString(Source, File); err != nil {
		return fmt.Errorf("loading prelude: %w", err)
	}
	return nil
}
