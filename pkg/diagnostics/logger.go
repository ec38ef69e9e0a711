package diagnostics

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"
)

// Logger is the sink every validator, the loader and every module reports
// through.
type Logger interface {
	Log(sev Severity, msg string)
}

// LoggerFunc adapts an ordinary function to the Logger interface.
type LoggerFunc func(sev Severity, msg string)

// Log calls f(sev, msg).
func (f LoggerFunc) Log(sev Severity, msg string) {
	f(sev, msg)
}

// Discard drops every message.
var Discard Logger = LoggerFunc(func(Severity, string) {})

// Logf formats msg and logs it through l.
func Logf(l Logger, sev Severity, format string, args ...any) {
	l.Log(sev, fmt.Sprintf(format, args...))
}

// EventLog collects events in memory. It is safe for concurrent use.
type EventLog struct {
	mu     sync.Mutex
	events []Event
}

// Log implements Logger.
func (l *EventLog) Log(sev Severity, msg string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.events = append(l.events, NewEvent(sev, msg))
}

// Events returns a copy of the recorded events in logging order.
func (l *EventLog) Events() []Event {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]Event, len(l.events))
	copy(out, l.events)
	return out
}

// Len returns the number of recorded events.
func (l *EventLog) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.events)
}

// Count returns how many events were logged at exactly sev.
func (l *EventLog) Count(sev Severity) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	n := 0
	for _, e := range l.events {
		if e.Severity == sev {
			n++
		}
	}
	return n
}

// Worst returns the highest severity recorded so far.
func (l *EventLog) Worst() (Severity, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if len(l.events) == 0 {
		return 0, false
	}
	worst := l.events[0].Severity
	for _, e := range l.events[1:] {
		if e.Severity > worst {
			worst = e.Severity
		}
	}
	return worst, true
}

// Shared serializes calls into an underlying Logger. The lock is held for
// the duration of one Log call only.
type Shared struct {
	mu    sync.Mutex
	inner Logger
}

// NewShared wraps inner for use from several goroutines.
func NewShared(inner Logger) *Shared {
	return &Shared{inner: inner}
}

// Log implements Logger.
func (s *Shared) Log(sev Severity, msg string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.inner.Log(sev, msg)
}

// Multi fans every message out to all of its loggers in order.
type Multi []Logger

// Log implements Logger.
func (m Multi) Log(sev Severity, msg string) {
	for _, l := range m {
		l.Log(sev, msg)
	}
}

// SlogLogger forwards diagnostics to a structured slog.Logger.
type SlogLogger struct {
	logger *slog.Logger
	attrs  []any
}

// NewSlogLogger returns a Logger writing to l. Extra key/value pairs are
// attached to every record.
func NewSlogLogger(l *slog.Logger, args ...any) *SlogLogger {
	return &SlogLogger{logger: l, attrs: args}
}

// Log implements Logger.
func (s *SlogLogger) Log(sev Severity, msg string) {
	args := append([]any{"severity", sev.Name()}, s.attrs...)
	s.logger.Log(context.Background(), sev.Level(), msg, args...)
}

// WriterLogger writes events at or above a threshold as plain text lines.
// It backs the log_file setting.
type WriterLogger struct {
	mu        sync.Mutex
	w         io.Writer
	threshold Severity
	now       func() time.Time
}

// NewWriterLogger returns a line sink writing to w.
func NewWriterLogger(w io.Writer, threshold Severity) *WriterLogger {
	return &WriterLogger{w: w, threshold: threshold, now: time.Now}
}

// Threshold returns the lowest severity that is written.
func (l *WriterLogger) Threshold() Severity {
	return l.threshold
}

// Log implements Logger.
func (l *WriterLogger) Log(sev Severity, msg string) {
	if sev < l.threshold {
		return
	}
	e := Event{Timestamp: l.now(), Description: msg, Severity: sev}
	l.mu.Lock()
	defer l.mu.Unlock()
	fmt.Fprintln(l.w, e.String())
}
