// Package validation provides the generic Validator abstraction used to
// check configuration before anything is loaded, together with the path
// and uniqueness validators that the configuration model composes.
//
// Every validator reports what it finds through a diagnostics.Logger and
// turns a finding into an error only when the configured severity is
// fatal. Composite validators stop at the first error.
package validation
