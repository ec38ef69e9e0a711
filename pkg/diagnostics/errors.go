package diagnostics

import (
	"errors"
	"fmt"
)

// Kind classifies a failure. Kinds are themselves errors so they can be
// used as sentinels with errors.Is.
type Kind string

func (k Kind) Error() string { return string(k) }

const (
	ErrDuplicateItem        Kind = "duplicate item"
	ErrFileNotFound         Kind = "file not found"
	ErrInvalidDirectory     Kind = "invalid directory"
	ErrInvalidFilePath      Kind = "invalid file path"
	ErrInvalidHostname      Kind = "invalid hostname"
	ErrInvalidModuleVersion Kind = "invalid module version"
	ErrNoHost               Kind = "no host specified"
	ErrNoModsDir            Kind = "no modules directory specified"
	ErrSecureBindOnInsecure Kind = "secure binding requested on insecure binding"
	ErrIO                   Kind = "i/o failure"
	ErrTLS                  Kind = "tls failure"
	ErrLibrary              Kind = "library failure"
	ErrMissingSymbol        Kind = "missing exported symbol"
	ErrConstruction         Kind = "module construction failed"
	ErrUnknown              Kind = "unknown failure"
)

// Failure attaches a Kind and the offending subject (a path, a hostname, a
// module name) to an optional underlying cause.
type Failure struct {
	Kind    Kind
	Subject string
	Err     error
}

// NewError builds a *Failure. err may be nil.
func NewError(kind Kind, subject string, err error) error {
	return &Failure{Kind: kind, Subject: subject, Err: err}
}

func (f *Failure) Error() string {
	msg := string(f.Kind)
	if f.Subject != "" {
		msg = fmt.Sprintf("%s: %s", msg, f.Subject)
	}
	if f.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, f.Err)
	}
	return msg
}

// Unwrap exposes both the kind and the cause to errors.Is and errors.As.
func (f *Failure) Unwrap() []error {
	if f.Err == nil {
		return []error{f.Kind}
	}
	return []error{f.Kind, f.Err}
}

// VersionError reports a module whose declared version does not satisfy
// the host's compatibility requirement.
type VersionError struct {
	Module   string
	Found    string
	Required string
}

func (e *VersionError) Error() string {
	if e.Module == "" {
		return fmt.Sprintf("%s: found %s, required %s", ErrInvalidModuleVersion, e.Found, e.Required)
	}
	return fmt.Sprintf("%s for module %q: found %s, required %s", ErrInvalidModuleVersion, e.Module, e.Found, e.Required)
}

func (e *VersionError) Unwrap() error { return ErrInvalidModuleVersion }

// KindOf returns the first Kind found in err's chain, or ErrUnknown.
func KindOf(err error) Kind {
	if err == nil {
		return ""
	}
	var k Kind
	if errors.As(err, &k) {
		return k
	}
	return ErrUnknown
}
