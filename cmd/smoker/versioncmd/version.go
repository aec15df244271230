package versioncmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"smoker.run/internal/cli"
	"smoker.run/internal/version"
)

const develVersion = "devel"

func NewCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "version",
		Short: "print the smoker version and optionally the embedded build info",
		Args:  cobra.NoArgs,
	}

	var opts options

	opts.AddFlags(cmd.Flags())

	cmd.RunE = func(cmd *cobra.Command, _ []string) error {
		info := version.Get()

		printer := cli.NewPrinter(
			cli.WithOut{Out: cmd.OutOrStdout()},
			cli.WithErr{Err: cmd.ErrOrStderr()},
			cli.WithPlain(opts.Plain),
		)

		v := info.ApplicationVersion
		if v == "" {
			v = develVersion
		}
		if err := printer.PrintfOut("smoker %s %s\n", v, info.GoVersion); err != nil {
			return err
		}
		if !opts.Embedded {
			return nil
		}

		return printer.PrintTable(buildInfoTable(info))
	}

	return cmd
}

func buildInfoTable(info version.Info) *cli.Table {
	t := cli.NewTable("Kind", "Name", "Value")
	if info.Path != "" {
		t.AddRow("path", info.Path, "")
	}
	if info.Main.Path != "" {
		t.AddRow("mod", info.Main.Path, info.Main.Version)
	}
	for _, dep := range info.Deps {
		if dep.Replace != nil {
			t.AddRow("dep", dep.Path, fmt.Sprintf("%s => %s %s", dep.Version, dep.Replace.Path, dep.Replace.Version))
			continue
		}
		t.AddRow("dep", dep.Path, dep.Version)
	}
	for _, setting := range info.Settings {
		t.AddRow("build", setting.Key, setting.Value)
	}

	return t
}

type options struct {
	Embedded bool
	Plain    bool
}

func (o *options) AddFlags(flags *pflag.FlagSet) {
	flags.BoolVar(&o.Embedded, "embedded", o.Embedded, "also print the modules and build settings embedded in the binary")
	flags.BoolVar(&o.Plain, "plain", o.Plain, "print build info as tab separated rows without a header")
}
