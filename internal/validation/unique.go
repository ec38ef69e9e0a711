package validation

import (
	"fmt"

	"github.com/vk/mammoth/pkg/diagnostics"
)

// Identified is implemented by configuration entities that carry a
// comparable identity.
type Identified[K comparable] interface {
	ID() K
}

// Unique validates a sequence of identified items in order. A repeated
// identity is logged at Severity and fails with ErrDuplicateItem; every
// item seen before the duplicate is handed to Inner first.
type Unique[T Identified[K], K comparable] struct {
	Severity diagnostics.Severity
	Inner    Validator[T]
}

// Validate implements Validator.
func (u Unique[T, K]) Validate(logger diagnostics.Logger, items []T) error {
	seen := make(map[K]struct{}, len(items))
	for _, item := range items {
		id := item.ID()
		if _, dup := seen[id]; dup {
			diagnostics.Logf(logger, u.Severity, "Duplicate item %v.", id)
			return diagnostics.NewError(diagnostics.ErrDuplicateItem, fmt.Sprint(id), nil)
		}
		seen[id] = struct{}{}

		if u.Inner == nil {
			continue
		}
		if err := u.Inner.Validate(logger, item); err != nil {
			return err
		}
	}
	return nil
}
