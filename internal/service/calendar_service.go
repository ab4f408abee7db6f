package service

import (
	"context"
	"fmt"

	"github.com/abdegenius/cashley-bot/internal/clients/caldav"
	"github.com/abdegenius/cashley-bot/internal/domain"
)

// CalendarService exports scheduled payments to a CalDAV calendar so they
// show up next to the user's other appointments. One VEVENT per schedule at
// its next estimated run; repeat schedules get a recurrence rule derived from
// the interval.
type CalendarService struct {
	client *caldav.Client
}

func NewCalendarService(client *caldav.Client) *CalendarService {
	return &CalendarService{client: client}
}

// IsConfigured returns true if the CalDAV client has credentials.
func (s *CalendarService) IsConfigured() bool {
	return s.client != nil && s.client.IsConfigured()
}

// DiscoverCalendars lists the calendars available on the server.
func (s *CalendarService) DiscoverCalendars(ctx context.Context) ([]caldav.Calendar, error) {
	if !s.IsConfigured() {
		return nil, fmt.Errorf("CalDAV not configured")
	}
	return s.client.DiscoverCalendars(ctx)
}

// ExportResult summarizes a calendar export.
type ExportResult struct {
	Exported int
	Skipped  int
	Errors   []string
}

// Export publishes the given schedules to the calendar. Paused and completed
// schedules are skipped; the event UID is derived from the schedule reference
// so re-exporting updates in place.
func (s *CalendarService) Export(ctx context.Context, calendarPath string, schedules []domain.Schedule) (*ExportResult, error) {
	if !s.IsConfigured() {
		return nil, fmt.Errorf("CalDAV not configured")
	}
	if calendarPath == "" {
		return nil, fmt.Errorf("calendar path not set")
	}

	result := &ExportResult{}
	for i := range schedules {
		sched := &schedules[i]
		if sched.CurrentStatus() != domain.StatusRunning {
			result.Skipped++
			continue
		}

		event := &caldav.Event{
			UID:         "schedule-" + sched.Reference + "@cashley-bot",
			Summary:     "💸 " + sched.Title,
			Description: fmt.Sprintf("%s · every %s · %s", sched.Action, sched.IntervalLabel(), sched.Recipient()),
			StartTime:   sched.NextRun(),
		}
		if sched.Frequency == domain.FrequencyRepeat {
			event.RRule = RecurrenceRule(sched.Interval)
		}

		if err := s.client.PutEvent(ctx, calendarPath, event); err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("%s: %v", sched.Title, err))
			continue
		}
		result.Exported++
	}

	return result, nil
}

// RemoveSchedule deletes the exported event for a schedule, if any.
func (s *CalendarService) RemoveSchedule(ctx context.Context, calendarPath, reference string) error {
	if !s.IsConfigured() || calendarPath == "" {
		return nil
	}
	return s.client.DeleteEvent(ctx, calendarPath, "schedule-"+reference+"@cashley-bot")
}

// RecurrenceRule maps a canonical interval onto an iCalendar RRULE, using the
// largest calendar unit that divides it evenly. The 30-day month
// approximation maps to FREQ=MONTHLY, which drifts against real months the
// same way the interval itself does.
func RecurrenceRule(intervalSeconds int64) string {
	steps := []struct {
		scale int64
		freq  string
	}{
		{2592000, "MONTHLY"},
		{604800, "WEEKLY"},
		{86400, "DAILY"},
		{3600, "HOURLY"},
		{60, "MINUTELY"},
	}
	for _, step := range steps {
		if intervalSeconds >= step.scale && intervalSeconds%step.scale == 0 {
			n := intervalSeconds / step.scale
			if n == 1 {
				return "FREQ=" + step.freq
			}
			return fmt.Sprintf("FREQ=%s;INTERVAL=%d", step.freq, n)
		}
	}
	if intervalSeconds <= 0 {
		return ""
	}
	return fmt.Sprintf("FREQ=SECONDLY;INTERVAL=%d", intervalSeconds)
}
