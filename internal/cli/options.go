package cli

import "io"

// WithOut sets the stream tables and messages are written to.
type WithOut struct{ Out io.Writer }

func (w WithOut) ConfigurePrinter(c *PrinterConfig) {
	c.Out = w.Out
}

// WithErr sets the stream for diagnostics.
type WithErr struct{ Err io.Writer }

func (w WithErr) ConfigurePrinter(c *PrinterConfig) {
	c.Err = w.Err
}

// WithPlain drops header rows and styling so output can be piped into
// other tools.
type WithPlain bool

func (w WithPlain) ConfigurePrinter(c *PrinterConfig) {
	c.Plain = bool(w)
}
