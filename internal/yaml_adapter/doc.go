// Package yaml_adapter implements config.Loader for YAML documents. The
// document mirrors the HCL layout: a `mammoth` mapping, a `host` list whose
// entries carry their own `mod` list, a global `mod` list and a free-form
// `environment` value.
package yaml_adapter
