package rootcmd

import (
	"io"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"go.uber.org/dig"

	"smoker.run/internal/version"
)

type Params struct {
	dig.In

	Streams     IOStreams
	Args        []string
	SubCommands []*cobra.Command `group:"rootSubCommands"`
	Flags       []FlagBinder     `group:"rootFlags"`
}

type IOStreams struct {
	In     io.Reader
	Out    io.Writer
	ErrOut io.Writer
}

// FlagBinder adds persistent flags to the root command.
type FlagBinder interface {
	AddFlags(flags *pflag.FlagSet)
}

func ProvideRootCmd(params Params) *cobra.Command {
	cmd := &cobra.Command{
		Use:          "smoker",
		Short:        "Smoke test npm packages the way your users install them",
		Version:      version.Get().ApplicationVersion,
		SilenceUsage: true,
	}
	cmd.SetIn(params.Streams.In)
	cmd.SetOut(params.Streams.Out)
	cmd.SetErr(params.Streams.ErrOut)
	cmd.SetArgs(params.Args)

	for _, f := range params.Flags {
		f.AddFlags(cmd.PersistentFlags())
	}
	for _, sub := range params.SubCommands {
		cmd.AddCommand(sub)
	}

	return cmd
}
