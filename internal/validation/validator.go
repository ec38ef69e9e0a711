package validation

import (
	"github.com/vk/mammoth/pkg/diagnostics"
)

// Validator checks a value of type T, logging findings to logger.
type Validator[T any] interface {
	Validate(logger diagnostics.Logger, v T) error
}

// Func adapts a function to the Validator interface.
type Func[T any] func(logger diagnostics.Logger, v T) error

// Validate calls f(logger, v).
func (f Func[T]) Validate(logger diagnostics.Logger, v T) error {
	return f(logger, v)
}

// All runs validators in order and returns the first error.
func All[T any](validators ...Validator[T]) Validator[T] {
	return Func[T](func(logger diagnostics.Logger, v T) error {
		for _, validator := range validators {
			if err := validator.Validate(logger, v); err != nil {
				return err
			}
		}
		return nil
	})
}

// Optional skips inner when v is the zero value. An unset optional field is
// never an error on its own.
func Optional[T comparable](inner Validator[T]) Validator[T] {
	return Func[T](func(logger diagnostics.Logger, v T) error {
		var zero T
		if v == zero {
			return nil
		}
		return inner.Validate(logger, v)
	})
}

// Each applies inner to every element of a slice, stopping at the first
// error.
func Each[T any](inner Validator[T]) Validator[[]T] {
	return Func[[]T](func(logger diagnostics.Logger, items []T) error {
		for _, item := range items {
			if err := inner.Validate(logger, item); err != nil {
				return err
			}
		}
		return nil
	})
}

// Report logs msg at sev and returns a *diagnostics.Failure of the given
// kind when sev is fatal, nil otherwise.
func Report(logger diagnostics.Logger, sev diagnostics.Severity, kind diagnostics.Kind, subject, msg string) error {
	logger.Log(sev, msg)
	if !sev.Fatal() {
		return nil
	}
	return diagnostics.NewError(kind, subject, nil)
}
