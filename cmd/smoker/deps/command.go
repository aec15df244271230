package deps

import (
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/dig"

	"smoker.run/cmd/smoker/listcmd"
	"smoker.run/cmd/smoker/rootcmd"
	"smoker.run/cmd/smoker/smokecmd"
	"smoker.run/cmd/smoker/versioncmd"
	"smoker.run/internal/config"
	"smoker.run/internal/pkgmanager"
	"smoker.run/internal/reporter"
	"smoker.run/internal/smoker"
)

func ProvideIOStreams() rootcmd.IOStreams {
	return rootcmd.IOStreams{
		In:     os.Stdin,
		Out:    os.Stdout,
		ErrOut: os.Stderr,
	}
}

func ProvideArgs() []string {
	return os.Args[1:]
}

type RootSubCommandResult struct {
	dig.Out

	SubCommand *cobra.Command `group:"rootSubCommands"`
}

func ProvideSmokeCmd(factory smokecmd.SmokerFactory) RootSubCommandResult {
	return RootSubCommandResult{
		SubCommand: smokecmd.NewCmd(factory),
	}
}

func ProvideListCmd(factory listcmd.CatalogFactory) RootSubCommandResult {
	return RootSubCommandResult{
		SubCommand: listcmd.NewCmd(factory),
	}
}

func ProvideVersionCmd() RootSubCommandResult {
	return RootSubCommandResult{
		SubCommand: versioncmd.NewCmd(),
	}
}

func ProvideSmokerFactory(f LogFactory) *SmokerFactory {
	return &SmokerFactory{logFactory: f}
}

func ProvideSmokerFactoryForSmoke(f *SmokerFactory) smokecmd.SmokerFactory { return f }

func ProvideSmokerFactoryForList(f *SmokerFactory) listcmd.CatalogFactory { return f }

// SmokerFactory builds smoker.Smoker instances for the commands.
type SmokerFactory struct {
	logFactory LogFactory
}

func (f *SmokerFactory) Smoker(p smokecmd.Params) smokecmd.Smoker {
	log := f.logFactory.Logger()

	return smoker.New(
		smoker.WithLog{Log: log},
		smoker.WithDir(p.Dir),
		smoker.WithSettings(p.Settings),
		smoker.WithPkgManagerOptions{pkgmanager.WithLog{Log: log}},
		smoker.WithReporterEnv(reporter.Env{
			Out:         p.Out,
			Err:         p.Err,
			Log:         log,
			JSONFile:    p.Settings.JSONFile,
			MetricsFile: p.Settings.MetricsFile,
		}),
	)
}

func (f *SmokerFactory) Catalog(dir string, settings config.Settings) listcmd.Catalog {
	return smoker.New(
		smoker.WithLog{Log: f.logFactory.Logger()},
		smoker.WithDir(dir),
		smoker.WithSettings(settings),
	)
}
