package listcmd

import (
	"context"
	"fmt"
	"sort"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"smoker.run/internal/cli"
	"smoker.run/internal/config"
	"smoker.run/internal/plugin"
	"smoker.run/internal/rules"
)

// Catalog lists the components contributed by every plugin.
type Catalog interface {
	Components(ctx context.Context) (plugin.Components, error)
	RuleConfig(r rules.Rule) rules.Config
}

type CatalogFactory interface {
	Catalog(dir string, settings config.Settings) Catalog
}

func NewCmd(factory CatalogFactory) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "list the available package managers, reporters or rules",
		Args:  cobra.NoArgs,
	}

	var opts options

	opts.AddFlags(cmd.PersistentFlags())

	for _, sub := range []struct {
		use, short string
		aliases    []string
		table      func(Catalog, plugin.Components) *cli.Table
	}{
		{"pkg-managers", "list package managers", []string{"pm", "pms"}, pkgManagerTable},
		{"reporters", "list reporters", nil, reporterTable},
		{"rules", "list lint rules with their effective severity", nil, ruleTable},
	} {
		sub := sub
		cmd.AddCommand(&cobra.Command{
			Use:     sub.use,
			Short:   sub.short,
			Aliases: sub.aliases,
			Args:    cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				settings, err := config.LoadSettings(opts.Dir, opts.Config, config.Overrides{})
				if err != nil {
					return fmt.Errorf("loading config: %w", err)
				}
				catalog := factory.Catalog(opts.Dir, settings)
				comps, err := catalog.Components(cmd.Context())
				if err != nil {
					return fmt.Errorf("loading plugins: %w", err)
				}

				printer := cli.NewPrinter(
					cli.WithOut{Out: cmd.OutOrStdout()},
					cli.WithErr{Err: cmd.ErrOrStderr()},
					cli.WithPlain(opts.Plain),
				)
				return printer.PrintTable(sub.table(catalog, comps))
			},
		})
	}

	return cmd
}

func pkgManagerTable(_ Catalog, comps plugin.Components) *cli.Table {
	t := cli.NewTable("Name", "Description")
	for _, d := range comps.PkgManagers {
		t.AddRow(d.Name, d.Description)
	}
	return t
}

func reporterTable(_ Catalog, comps plugin.Components) *cli.Table {
	t := cli.NewTable("Name", "Description")
	for _, d := range comps.Reporters {
		t.AddRow(d.Name, d.Description)
	}
	return t
}

func ruleTable(c Catalog, comps plugin.Components) *cli.Table {
	rs := append([]rules.Rule(nil), comps.Rules...)
	sort.Slice(rs, func(i, j int) bool { return rs[i].ID() < rs[j].ID() })

	t := cli.NewTable("Rule", "Severity", "Description")
	for _, r := range rs {
		t.AddRow(r.ID(), c.RuleConfig(r).Severity, r.Description())
	}
	return t
}

type options struct {
	Dir    string
	Config string
	Plain  bool
}

func (o *options) AddFlags(flags *pflag.FlagSet) {
	flags.StringVar(&o.Dir, "dir", ".", "project directory")
	flags.StringVarP(&o.Config, "config", "c", "", "config file, searched in the project directory if unset")
	flags.BoolVar(&o.Plain, "plain", false, "print tab separated rows without a header")
}
