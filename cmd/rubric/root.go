package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"github.com/tliron/commonlog"
	_ "github.com/tliron/commonlog/simple"

	"github.com/chazu/rubric/compiler"
	"github.com/chazu/rubric/manifest"
	"github.com/chazu/rubric/prelude"
	"github.com/chazu/rubric/vm"
)

var log = commonlog.GetLogger("rubric.cli")

// options are the global flags shared by every subcommand.
type options struct {
	includes  []string
	verbose   int
	noPrelude bool
	logFile   string

	manifest *manifest.Manifest
	env      *manifest.Env
}

func newRootCmd() *cobra.Command {
	o := &options{}
	cmd := &cobra.Command{
		Use:           "rubric",
		Short:         "Run Rubric programs",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return o.setup()
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Usage()
		},
	}
	cmd.CompletionOptions.HiddenDefaultCmd = true

	flags := cmd.PersistentFlags()
	flags.StringArrayVarP(&o.includes, "include", "I", nil, "prepend `DIR` to the search path (repeatable)")
	flags.CountVarP(&o.verbose, "verbose", "v", "increase log verbosity (repeatable)")
	flags.BoolVar(&o.noPrelude, "no-prelude", false, "do not load the built-in prelude")
	flags.StringVar(&o.logFile, "log-file", "", "write logs to `FILE` instead of stderr")

	cmd.AddCommand(
		newRunCmd(o),
		newEvalCmd(o),
		newReplCmd(o),
		newAncestorsCmd(o),
		newDumpCmd(o),
	)
	return cmd
}

// setup reads rubric.toml and .env and configures logging. Flags win over
// the environment, which wins over the manifest.
func (o *options) setup() error {
	wd, err := os.Getwd()
	if err != nil {
		return err
	}
	if o.manifest, err = manifest.FindAndLoad(wd); err != nil {
		return err
	}

	envDir := wd
	if o.manifest != nil {
		envDir = o.manifest.Dir
	}
	if o.env, err = manifest.LoadEnv(envDir); err != nil {
		return err
	}

	verbosity := o.verbose
	logFile := o.logFile
	if verbosity == 0 {
		verbosity = o.env.Log
	}
	if o.manifest != nil {
		if verbosity == 0 {
			verbosity = o.manifest.Log.Level
		}
		if logFile == "" {
			logFile = o.manifest.Log.File
		}
	}
	var path *string
	if logFile != "" {
		path = &logFile
	}
	commonlog.Configure(verbosity, path)

	if o.manifest != nil {
		log.Debugf("using %s", o.manifest.Dir)
	}
	return nil
}

// newVM builds a VM writing to out, with the evaluator installed, the search path assembled
// from flags, environment, manifest and dependencies, and the prelude
// loaded unless disabled.
func (o *options) newVM(out io.Writer) (*vm.VM, error) {
	v := compiler.NewVM()
	v.Stdout = out

	var extra []string
	extra = append(extra, o.includes...)
	loadPrelude := !o.noPrelude
	if m := o.manifest; m != nil {
		extra = append(extra, m.LoadPaths()...)
		deps, err := manifest.NewResolver(m).SearchPaths()
		if err != nil {
			return nil, fmt.Errorf("dependencies: %w", err)
		}
		extra = append(extra, deps...)
		v.Loader.Extension = m.Load.Extension
		loadPrelude = loadPrelude && m.PreludeEnabled()
	}
	if o.env != nil {
		extra = append(extra, o.env.Path...)
	}
	v.Loader.PrependPath(extra...)
	log.Debugf("search path %v", v.Loader.SearchPath())

	if loadPrelude {
		if err := prelude.Load(v); err != nil {
			return nil, err
		}
	}
	return v, nil
}

// requireAll requires each library in order.
func requireAll(v *vm.VM, libs []string) error {
	for _, lib := range libs {
		if _, err := v.Loader.Require(lib); err != nil {
			return err
		}
	}
	return nil
}
