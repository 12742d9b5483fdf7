// Package errx provides small helpers for attaching causes and context
// to sentinel errors while keeping errors.Is matching intact.
package errx

import "fmt"

// Wrap combines a sentinel error with its underlying cause. Both are
// wrapped, so errors.Is matches either one.
func Wrap(sentinel, cause error) error {
	return fmt.Errorf("%w: %w", sentinel, cause)
}

// With annotates a sentinel error with formatted detail. The format
// string is appended verbatim, so callers typically start it with ": ".
func With(sentinel error, format string, args ...any) error {
	return fmt.Errorf("%w"+format, append([]any{sentinel}, args...)...)
}
