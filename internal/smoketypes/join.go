// Partially: Copyright 2022 The Go Authors. All rights reserved.
// Slightly modified errors.Join implementation.

package smoketypes

import (
	"strings"
)

// joinErrorsReadable returns an error that wraps the given errors.
// Any nil error values are discarded.
// The error formats as the `-`-prefixed messages of all errors, one per line,
// optionally starting with a newline so it can be appended to a summary.
func joinErrorsReadable(prefixNewline bool, errs ...error) error {
	n := 0
	for _, err := range errs {
		if err != nil {
			n++
		}
	}
	if n == 0 {
		return readableJoinError{}
	}
	e := readableJoinError{
		prefixNewline: prefixNewline,
		errs:          make([]error, 0, n),
	}
	for _, err := range errs {
		if err != nil {
			e.errs = append(e.errs, err)
		}
	}
	return e
}

type readableJoinError struct {
	prefixNewline bool
	errs          []error
}

func (e readableJoinError) Error() string {
	if len(e.errs) == 0 {
		return ""
	}
	sb := strings.Builder{}
	if e.prefixNewline {
		sb.WriteByte('\n')
	}
	sb.WriteString("- " + e.errs[0].Error())

	for _, err := range e.errs[1:] {
		sb.WriteByte('\n')
		sb.WriteString("- " + err.Error())
	}
	return sb.String()
}

func (e readableJoinError) Unwrap() []error {
	return e.errs
}
