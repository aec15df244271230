package rules

import "errors"

var (
	// ErrDuplicateRule is returned when two rules share an id.
	ErrDuplicateRule = errors.New("duplicate rule id")
	// ErrInvalidExpression is returned for expression rules that do not compile to a bool.
	ErrInvalidExpression = errors.New("invalid rule expression")
)
