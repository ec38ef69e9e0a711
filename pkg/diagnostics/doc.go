// Package diagnostics defines the severity scale, diagnostic events, the
// Logger sink interface and the error kinds shared by the host and by
// module authors.
//
// Anything that reports a configuration or loading problem logs an Event
// first and only then decides whether the problem is fatal, using
// Severity.Fatal. The two steps are kept separate so that warnings still
// reach the sink without aborting validation.
package diagnostics
