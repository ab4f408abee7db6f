package caldav

import "time"

// Calendar is a calendar discovered on the CalDAV server.
type Calendar struct {
	Path        string
	DisplayName string
}

// Event is a calendar event to publish. RRule carries the recurrence rule for
// repeating schedules (e.g. "FREQ=DAILY;INTERVAL=3").
type Event struct {
	UID         string
	Summary     string
	Description string
	StartTime   time.Time
	RRule       string
}
