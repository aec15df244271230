package deps

import (
	"github.com/go-logr/logr"
	"github.com/go-logr/zapr"
	"github.com/spf13/pflag"
	"go.uber.org/dig"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"smoker.run/cmd/smoker/rootcmd"
)

type LogFactory interface {
	Logger() logr.Logger
}

func ProvideZapLogFactory(streams rootcmd.IOStreams) *ZapLogFactory {
	return &ZapLogFactory{streams: streams}
}

func ProvideLogFactory(f *ZapLogFactory) LogFactory { return f }

type RootFlagsResult struct {
	dig.Out

	Flags rootcmd.FlagBinder `group:"rootFlags"`
}

func ProvideLogFlags(f *ZapLogFactory) RootFlagsResult {
	return RootFlagsResult{Flags: f}
}

// ZapLogFactory writes development formatted logs to the error stream.
// Without -v only warnings and errors are shown, every -v lowers the level.
type ZapLogFactory struct {
	streams   rootcmd.IOStreams
	verbosity int
}

func (f *ZapLogFactory) AddFlags(flags *pflag.FlagSet) {
	flags.CountVarP(&f.verbosity, "verbose", "v", "increase log verbosity (repeatable)")
}

func (f *ZapLogFactory) Level() zapcore.Level {
	if f.verbosity == 0 {
		return zapcore.WarnLevel
	}
	// logr V(n) maps to zap level -n
	return zapcore.Level(1 - f.verbosity)
}

func (f *ZapLogFactory) Logger() logr.Logger {
	encoderCfg := zap.NewDevelopmentEncoderConfig()
	core := zapcore.NewCore(
		zapcore.NewConsoleEncoder(encoderCfg),
		zapcore.AddSync(f.streams.ErrOut),
		zap.NewAtomicLevelAt(f.Level()),
	)

	return zapr.NewLogger(zap.New(core, zap.AddStacktrace(zapcore.ErrorLevel)))
}
