package domain

import (
	"time"
)

// ActionKind identifies which bill-payment API a schedule targets.
type ActionKind string

const (
	ActionAirtime     ActionKind = "airtime"
	ActionData        ActionKind = "data"
	ActionElectricity ActionKind = "electricity"
	ActionTV          ActionKind = "tv"
)

// Actions lists all schedulable bill-payment actions.
var Actions = []ActionKind{ActionAirtime, ActionData, ActionElectricity, ActionTV}

func (a ActionKind) Valid() bool {
	switch a {
	case ActionAirtime, ActionData, ActionElectricity, ActionTV:
		return true
	}
	return false
}

// RecipientLabel returns the user-facing name of the recipient field. The
// recipient is overloaded: phone number for airtime/data, meter number for
// electricity, smart card number for TV.
func (a ActionKind) RecipientLabel() string {
	switch a {
	case ActionElectricity:
		return "Meter number"
	case ActionTV:
		return "Smart card number"
	default:
		return "Phone number"
	}
}

// FreeAmount reports whether the action takes a free-form amount instead of a
// provider-defined variation (plan).
func (a ActionKind) FreeAmount() bool {
	return a == ActionAirtime || a == ActionElectricity
}

// Frequency tells the server whether a schedule fires once (after a single
// interval delay) or re-fires every interval until paused or deleted.
type Frequency string

const (
	FrequencyOnce   Frequency = "once"
	FrequencyRepeat Frequency = "repeat"
)

// Status is a schedule's execution state. Only running and pause take part in
// the toggle cycle; anything else the server reports (completed, error, ...)
// is display-only and must never be written back.
type Status string

const (
	StatusRunning Status = "running"
	StatusPause   Status = "pause"
)

// Togglable reports whether the status participates in the running/pause cycle.
func (s Status) Togglable() bool {
	return s == StatusRunning || s == StatusPause
}

// Toggled returns the other end of the two-state cycle. This is the only
// transition; callers must check Togglable first.
func (s Status) Toggled() Status {
	if s == StatusRunning {
		return StatusPause
	}
	return StatusRunning
}

// Schedule is a recurring or one-time scheduled bill payment. The reference is
// server-issued and immutable; Data carries the action-specific payload
// (service_id, phone, amount, variation_code) plus whatever else the server
// stores there, which the client must preserve on partial updates.
type Schedule struct {
	Reference string         `json:"reference"`
	Title     string         `json:"title"`
	Action    ActionKind     `json:"action"`
	Interval  int64          `json:"interval"`
	Frequency Frequency      `json:"frequency"`
	Status    Status         `json:"status"`
	Data      map[string]any `json:"data"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
}

// DataString returns a string field from the action payload.
func (s *Schedule) DataString(key string) string {
	if s.Data == nil {
		return ""
	}
	if v, ok := s.Data[key].(string); ok {
		return v
	}
	return ""
}

func (s *Schedule) ServiceID() string { return s.DataString("service_id") }
func (s *Schedule) Recipient() string { return s.DataString("phone") }
func (s *Schedule) Amount() string    { return s.DataString("amount") }

// CurrentStatus resolves the effective status, preferring the mirror inside
// Data when the top-level field is empty.
func (s *Schedule) CurrentStatus() Status {
	if s.Status != "" {
		return s.Status
	}
	return Status(s.DataString("status"))
}

// IntervalLabel renders the interval for display, e.g. "65 DAYS".
func (s *Schedule) IntervalLabel() string {
	return IntervalLabel(s.Interval)
}

// NextRun estimates the next firing time as the last server touch plus the
// interval. Execution is server-side; this is for reminders and calendar
// display only.
func (s *Schedule) NextRun() time.Time {
	base := s.UpdatedAt
	if base.IsZero() {
		base = s.CreatedAt
	}
	return base.Add(time.Duration(s.Interval) * time.Second)
}

// MergeData shallow-merges patch into existing at the data key, preserving
// every sibling field not named in patch. Neither input map is mutated.
func MergeData(existing, patch map[string]any) map[string]any {
	merged := make(map[string]any, len(existing)+len(patch))
	for k, v := range existing {
		merged[k] = v
	}
	for k, v := range patch {
		merged[k] = v
	}
	return merged
}

// HistoryEntry is a read-only record of a past firing of a schedule.
type HistoryEntry struct {
	Reference string    `json:"reference"`
	Status    string    `json:"status"`
	Message   string    `json:"message"`
	Amount    string    `json:"amount"`
	CreatedAt time.Time `json:"created_at"`
}
