// Package mammoth is the contract between the host and module libraries.
//
// A module is a Go plugin built with -buildmode=plugin from a main package
// that exports two symbols:
//
//	func MammothVersion() string
//	func MammothConstruct(config cty.Value) (mammoth.Interface, error)
//
// and optionally
//
//	func MammothDestroy(mammoth.Interface)
//
// Package-level variables of the same function types are accepted too.
// Because a Go package cannot declare the same identifier twice, a library
// carries at most one constructor and one version symbol.
package mammoth
