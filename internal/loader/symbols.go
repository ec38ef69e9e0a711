package loader

import (
	"fmt"

	"github.com/vk/mammoth/pkg/diagnostics"
	"github.com/vk/mammoth/pkg/mammoth"
)

// Plugin lookups return functions as values and package-level variables
// as pointers, so both shapes are accepted.

func asVersionFunc(sym any) (mammoth.VersionFunc, bool) {
	switch f := sym.(type) {
	case mammoth.VersionFunc:
		return f, f != nil
	case *mammoth.VersionFunc:
		if f == nil || *f == nil {
			return nil, false
		}
		return *f, true
	}
	return nil, false
}

func asConstructFunc(sym any) (mammoth.ConstructFunc, bool) {
	switch f := sym.(type) {
	case mammoth.ConstructFunc:
		return f, f != nil
	case *mammoth.ConstructFunc:
		if f == nil || *f == nil {
			return nil, false
		}
		return *f, true
	}
	return nil, false
}

func asDestroyFunc(sym any) (mammoth.DestroyFunc, bool) {
	switch f := sym.(type) {
	case mammoth.DestroyFunc:
		return f, f != nil
	case *mammoth.DestroyFunc:
		if f == nil || *f == nil {
			return nil, false
		}
		return *f, true
	}
	return nil, false
}

// guard runs fn and converts a panic inside module code into an
// ErrConstruction failure.
func guard(module, hook string, fn func()) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = diagnostics.NewError(diagnostics.ErrConstruction, module, fmt.Errorf("%s panicked: %v", hook, r))
		}
	}()
	fn()
	return nil
}
