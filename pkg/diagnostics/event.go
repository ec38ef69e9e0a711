package diagnostics

import (
	"fmt"
	"time"
)

// TimeLayout is the timestamp format of rendered events.
const TimeLayout = "2006-01-02 15:04:05"

// Event is a single timestamped diagnostic record.
type Event struct {
	Timestamp   time.Time
	Description string
	Severity    Severity
}

// NewEvent stamps a new event with the current local time.
func NewEvent(sev Severity, description string) Event {
	return Event{
		Timestamp:   time.Now(),
		Description: description,
		Severity:    sev,
	}
}

// String renders e as a log line without the trailing newline.
func (e Event) String() string {
	return fmt.Sprintf("%s [%s]: %s", e.Timestamp.Format(TimeLayout), e.Severity, e.Description)
}
