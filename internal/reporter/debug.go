package reporter

import (
	"context"

	"github.com/davecgh/go-spew/spew"
	"github.com/go-logr/logr"

	"smoker.run/internal/events"
)

var debugDumper = spew.ConfigState{
	Indent:                  "  ",
	DisablePointerAddresses: true,
	DisableCapacities:       true,
	SortKeys:                true,
}

// Debug dumps every event to the logger.
type Debug struct {
	log logr.Logger
}

func NewDebug(log logr.Logger) *Debug {
	return &Debug{log: log.WithName("debug-reporter")}
}

func (d *Debug) Name() string { return "debug" }

func (d *Debug) OnEvent(_ context.Context, ev events.Event) error {
	d.log.Info(string(ev.Name()), "event", debugDumper.Sdump(ev))
	return nil
}
