package testutil

import (
	"context"

	"github.com/stretchr/testify/mock"

	"smoker.run/internal/events"
)

// custom testify/mock matchers
var (
	IsContext = mock.MatchedBy(func(context.Context) bool { return true })
)

// EventNamed matches events with the given name.
func EventNamed(name events.Name) any {
	return mock.MatchedBy(func(ev events.Event) bool {
		return ev != nil && ev.Name() == name
	})
}
