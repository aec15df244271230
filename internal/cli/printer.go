// Package cli contains output helpers shared by the smoker commands.
package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/pterm/pterm"
)

// NewPrinter takes a variadic slice of PrinterOptions
// and returns a configured Printer instance.
func NewPrinter(opts ...PrinterOption) *Printer {
	var cfg PrinterConfig

	cfg.Option(opts...)
	cfg.Default()

	return &Printer{
		cfg: cfg,
	}
}

type Printer struct {
	cfg PrinterConfig
}

func (p *Printer) PrintfOut(s string, args ...any) error {
	if _, err := fmt.Fprintf(p.cfg.Out, s, args...); err != nil {
		return fmt.Errorf("printing to out stream: %w", err)
	}

	return nil
}

func (p *Printer) PrintfErr(s string, args ...any) error {
	if _, err := fmt.Fprintf(p.cfg.Err, s, args...); err != nil {
		return fmt.Errorf("printing to err stream: %w", err)
	}

	return nil
}

// PrintTable renders t to the out stream. Empty tables print nothing.
func (p *Printer) PrintTable(t *Table) error {
	if t.Len() == 0 {
		return nil
	}

	hasHeader := len(t.Headers()) > 0 && !p.cfg.Plain

	data := make([][]string, 0, t.Len()+1)
	if hasHeader {
		data = append(data, t.Headers())
	}
	data = append(data, t.Rows()...)

	table := pterm.DefaultTable.WithData(data).WithSeparator("  ")
	if hasHeader {
		table = table.WithHasHeader()
	}
	if p.cfg.Plain {
		table = table.WithSeparator("\t").
			WithStyle(pterm.NewStyle()).
			WithSeparatorStyle(pterm.NewStyle())
	}

	output, err := table.Srender()
	if err != nil {
		return fmt.Errorf("rendering table: %w", err)
	}

	if err := p.PrintfOut("%s\n", output); err != nil {
		return fmt.Errorf("printing table: %w", err)
	}

	return nil
}

type PrinterConfig struct {
	Out   io.Writer
	Err   io.Writer
	Plain bool
}

func (c *PrinterConfig) Option(opts ...PrinterOption) {
	for _, opt := range opts {
		opt.ConfigurePrinter(c)
	}
}

func (c *PrinterConfig) Default() {
	if c.Out == nil {
		c.Out = os.Stdout
	}
	if c.Err == nil {
		c.Err = os.Stderr
	}
}

type PrinterOption interface {
	ConfigurePrinter(*PrinterConfig)
}
