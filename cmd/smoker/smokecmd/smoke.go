package smokecmd

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"smoker.run/internal/config"
	"smoker.run/internal/orchestrator"
)

var ErrSmokeFailed = errors.New("smoke test failed")

type Smoker interface {
	Smoke(ctx context.Context) (orchestrator.Result, error)
}

// Params describe one smoke run.
type Params struct {
	Dir      string
	Settings config.Settings
	Out      io.Writer
	Err      io.Writer
}

type SmokerFactory interface {
	Smoker(p Params) Smoker
}

func NewCmd(factory SmokerFactory) *cobra.Command {
	const (
		smokeUse   = "smoke [flags] [script...]"
		smokeShort = "pack, install and test a package with one or more package managers"
		smokeLong  = "Packs every selected workspace, installs the tarballs into a scratch " +
			"project per package manager, then runs the given scripts and lint rules " +
			"against the installed packages."
	)

	cmd := &cobra.Command{
		Use:   smokeUse,
		Short: smokeShort,
		Long:  smokeLong,
	}

	var opts options

	opts.AddFlags(cmd.Flags())

	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		settings, err := config.LoadSettings(opts.Dir, opts.Config, opts.Overrides(cmd.Flags(), args))
		if err != nil {
			return fmt.Errorf("loading config: %w", err)
		}

		s := factory.Smoker(Params{
			Dir:      opts.Dir,
			Settings: settings,
			Out:      cmd.OutOrStdout(),
			Err:      cmd.ErrOrStderr(),
		})
		res, err := s.Smoke(cmd.Context())
		if err != nil {
			return err
		}
		if res.Err != nil {
			return fmt.Errorf("%w: %w", ErrSmokeFailed, res.Err)
		}

		return nil
	}

	return cmd
}

type options struct {
	Dir         string
	Config      string
	PkgManagers []string
	Workspaces  []string
	All         bool
	IncludeRoot bool
	Add         []string
	Bail        bool
	Lint        bool
	NoLint      bool
	Reporters   []string
	JSONFile    string
	MetricsFile string
}

func (o *options) AddFlags(flags *pflag.FlagSet) {
	flags.StringVar(&o.Dir, "dir", ".", "project directory")
	flags.StringVarP(&o.Config, "config", "c", "", "config file, searched in the project directory if unset")
	flags.StringArrayVarP(&o.PkgManagers, "pm", "p", nil,
		"package manager to test with, like npm@9 or yarn@1 (repeatable, default npm)")
	flags.StringArrayVarP(&o.Workspaces, "workspace", "w", nil, "workspace to test, by name or path (repeatable)")
	flags.BoolVar(&o.All, "all", false, "test every non-private workspace")
	flags.BoolVar(&o.IncludeRoot, "include-root", false, "test the project root in addition to the workspaces")
	flags.StringArrayVarP(&o.Add, "add", "a", nil, "additional dependency to install next to the package (repeatable)")
	flags.BoolVarP(&o.Bail, "bail", "b", false, "stop running scripts after the first failure")
	flags.BoolVar(&o.Lint, "lint", true, "check the installed packages with the lint rules")
	flags.BoolVar(&o.NoLint, "no-lint", false, "skip the lint rules")
	flags.StringArrayVarP(&o.Reporters, "reporter", "r", nil, "reporter to use (repeatable, default console)")
	flags.StringVar(&o.JSONFile, "json-file", "", "write the json reporter summary to this file instead of stdout")
	flags.StringVar(&o.MetricsFile, "metrics-file", "", "write the metrics reporter output to this file")
}

// Overrides returns the values set on the command line.
func (o *options) Overrides(flags *pflag.FlagSet, scripts []string) config.Overrides {
	ov := config.Overrides{
		PkgManagers: o.PkgManagers,
		Workspaces:  o.Workspaces,
		Add:         o.Add,
		Scripts:     scripts,
		Reporters:   o.Reporters,
		JSONFile:    o.JSONFile,
		MetricsFile: o.MetricsFile,
	}
	if flags.Changed("all") {
		ov.All = &o.All
	}
	if flags.Changed("include-root") {
		ov.IncludeRoot = &o.IncludeRoot
	}
	if flags.Changed("bail") {
		ov.Bail = &o.Bail
	}
	switch {
	case flags.Changed("no-lint"):
		lint := !o.NoLint
		ov.Lint = &lint
	case flags.Changed("lint"):
		ov.Lint = &o.Lint
	}
	return ov
}
