// Package options implements the functional options accepted by tape
// stores, replayers, message builders and subscribers.
package options

import (
	"fmt"

	"github.com/arloliu/mdwire/errs"
)

// Option configures a *T during construction.
type Option[T any] func(T) error

// New wraps a validating setter.
func New[T any](fn func(T) error) Option[T] {
	return fn
}

// NoError wraps a setter that cannot fail.
func NoError[T any](fn func(T)) Option[T] {
	return func(target T) error {
		fn(target)
		return nil
	}
}

// Apply runs opts against target in order and stops at the first failure.
// Nil options are skipped so callers can build option lists conditionally.
// Failures wrap errs.ErrInvalidOption.
func Apply[T any](target T, opts ...Option[T]) error {
	for i, opt := range opts {
		if opt == nil {
			continue
		}
		if err := opt(target); err != nil {
			return fmt.Errorf("%w #%d: %w", errs.ErrInvalidOption, i, err)
		}
	}

	return nil
}
