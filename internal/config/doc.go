// Package config defines the format-agnostic configuration model of the
// host (Mammoth, Host, Binding, Module and the top-level File), the Loader
// interface that format adapters implement, and the validators that check
// a File before any module library is touched.
//
// Concrete loaders, such as for HCL or YAML, live in separate packages.
package config
