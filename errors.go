package kmedoids

import (
	"errors"
	"fmt"
)

// ErrInvalidConfig is returned when an unknown algorithm or loss name is
// supplied. It is raised synchronously at option-apply time; a Fit call
// never begins with an invalid config, since New returns the error before
// producing a usable *Engine.
var ErrInvalidConfig = errors.New("kmedoids: invalid config")

// ErrDimensionMismatch indicates k > n, or an empty dataset, at Fit entry.
type ErrDimensionMismatch struct {
	N, D, K int
	Reason  string
}

func (e *ErrDimensionMismatch) Error() string {
	return fmt.Sprintf("kmedoids: dimension mismatch (n=%d, d=%d, k=%d): %s", e.N, e.D, e.K, e.Reason)
}

func invalidConfig(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidConfig, fmt.Sprintf(format, args...))
}
