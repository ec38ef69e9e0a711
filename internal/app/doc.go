// Package app contains the core application logic. It defines the main App
// struct, its configuration, and the host lifecycle: load and validate the
// configuration, load every module, serve the admin endpoints and shut the
// modules down again, decoupled from any specific entrypoint like a CLI.
package app
