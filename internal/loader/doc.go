// Package loader turns module descriptors into live module instances.
//
// A Set opens each library at most once per canonical path, performs the
// version handshake against the host's compatibility requirement, calls the
// library's constructor and keeps every instance registered until
// Shutdown. Go plugins cannot be unloaded, so a Library stays mapped for
// the life of the process; its reference count only tracks how many
// instances still depend on it.
package loader
