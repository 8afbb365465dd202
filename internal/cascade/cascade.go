// Package cascade runs ordered fallback strategies: each one is attempted
// in turn and the first success wins.
package cascade

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/TobiSchelling/PostGenerator/internal/logger"
)

// ErrNoResult is returned by a strategy that ran cleanly but produced
// nothing usable.
var ErrNoResult = errors.New("no usable result")

// Strategy is one named attempt.
type Strategy[T any] struct {
	Name    string
	Attempt func(ctx context.Context) (T, error)
}

// Failure is one failed attempt.
type Failure struct {
	Strategy string
	Err      error
}

// ExhaustedError is returned when every strategy failed.
type ExhaustedError struct {
	Failures []Failure
}

func (e *ExhaustedError) Error() string {
	parts := make([]string, len(e.Failures))
	for i, f := range e.Failures {
		parts[i] = fmt.Sprintf("%s: %v", f.Strategy, f.Err)
	}
	return "all strategies failed: " + strings.Join(parts, "; ")
}

// Unwrap exposes the individual failures to errors.Is and errors.As.
func (e *ExhaustedError) Unwrap() []error {
	errs := make([]error, len(e.Failures))
	for i, f := range e.Failures {
		errs[i] = f.Err
	}
	return errs
}

// OnlyNoResult reports whether every failure was ErrNoResult.
func (e *ExhaustedError) OnlyNoResult() bool {
	for _, f := range e.Failures {
		if !errors.Is(f.Err, ErrNoResult) {
			return false
		}
	}
	return true
}

// Run attempts the strategies in order and returns the first success
// together with the name of the strategy that produced it.
func Run[T any](ctx context.Context, log *logger.Logger, strategies ...Strategy[T]) (T, string, error) {
	var zero T
	exhausted := &ExhaustedError{}

	for _, s := range strategies {
		v, err := s.Attempt(ctx)
		if err == nil {
			return v, s.Name, nil
		}
		log.Debug("Strategy failed, trying next", "strategy", s.Name, "error", err)
		exhausted.Failures = append(exhausted.Failures, Failure{Strategy: s.Name, Err: err})
	}

	if len(strategies) == 0 {
		return zero, "", errors.New("no strategies given")
	}
	return zero, "", exhausted
}
