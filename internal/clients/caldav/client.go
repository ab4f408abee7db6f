// Package caldav publishes wallet schedule events to a CalDAV calendar.
package caldav

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/emersion/go-ical"
	"github.com/emersion/go-webdav/caldav"
	"github.com/google/uuid"
)

// Client is a thin CalDAV client used for exporting scheduled payments.
type Client struct {
	baseURL  string
	username string
	password string
	client   *caldav.Client
}

// NewClient creates a new CalDAV client.
func NewClient(baseURL, username, password string) *Client {
	return &Client{
		baseURL:  baseURL,
		username: username,
		password: password,
	}
}

// IsConfigured returns true if the client has credentials
func (c *Client) IsConfigured() bool {
	return c.baseURL != "" && c.username != "" && c.password != ""
}

// connect establishes connection to the CalDAV server
func (c *Client) connect() (*caldav.Client, error) {
	if c.client != nil {
		return c.client, nil
	}

	httpClient := &http.Client{
		Transport: &basicAuthTransport{
			username: c.username,
			password: c.password,
		},
		Timeout: 30 * time.Second,
	}

	client, err := caldav.NewClient(httpClient, c.baseURL)
	if err != nil {
		return nil, fmt.Errorf("connect to CalDAV: %w", err)
	}

	c.client = client
	return client, nil
}

// basicAuthTransport adds Basic Auth to HTTP requests
type basicAuthTransport struct {
	username string
	password string
}

func (t *basicAuthTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	req.SetBasicAuth(t.username, t.password)
	return http.DefaultTransport.RoundTrip(req)
}

// DiscoverCalendars returns all calendars for the user.
func (c *Client) DiscoverCalendars(ctx context.Context) ([]Calendar, error) {
	client, err := c.connect()
	if err != nil {
		return nil, err
	}

	principal, err := client.FindCurrentUserPrincipal(ctx)
	if err != nil {
		return nil, fmt.Errorf("find principal: %w", err)
	}

	homeSet, err := client.FindCalendarHomeSet(ctx, principal)
	if err != nil {
		return nil, fmt.Errorf("find home set: %w", err)
	}

	cals, err := client.FindCalendars(ctx, homeSet)
	if err != nil {
		return nil, fmt.Errorf("find calendars: %w", err)
	}

	var result []Calendar
	for _, cal := range cals {
		result = append(result, Calendar{
			Path:        cal.Path,
			DisplayName: cal.Name,
		})
	}

	return result, nil
}

// PutEvent creates or replaces an event in the calendar (CalDAV PUT is an
// upsert).
func (c *Client) PutEvent(ctx context.Context, calendarPath string, event *Event) error {
	client, err := c.connect()
	if err != nil {
		return err
	}

	if calendarPath == "" {
		return fmt.Errorf("calendar path not specified")
	}
	if event.UID == "" {
		event.UID = uuid.NewString() + "@cashley-bot"
	}

	cal := eventToICS(event)

	if _, err := client.PutCalendarObject(ctx, eventPath(calendarPath, event.UID), cal); err != nil {
		return fmt.Errorf("put event: %w", err)
	}

	return nil
}

// DeleteEvent deletes an event by UID.
func (c *Client) DeleteEvent(ctx context.Context, calendarPath, eventUID string) error {
	client, err := c.connect()
	if err != nil {
		return err
	}

	if err := client.RemoveAll(ctx, eventPath(calendarPath, eventUID)); err != nil {
		return fmt.Errorf("delete event: %w", err)
	}

	return nil
}

func eventPath(calendarPath, uid string) string {
	if !strings.HasSuffix(calendarPath, "/") {
		calendarPath += "/"
	}
	return calendarPath + uid + ".ics"
}

// eventToICS converts an Event to iCalendar format
func eventToICS(event *Event) *ical.Calendar {
	cal := ical.NewCalendar()
	cal.Props.SetText(ical.PropVersion, "2.0")
	cal.Props.SetText(ical.PropProductID, "-//CashleyBot//Schedules//EN")

	vevent := ical.NewEvent()
	vevent.Props.SetText(ical.PropUID, event.UID)
	vevent.Props.SetText(ical.PropSummary, event.Summary)

	if event.Description != "" {
		vevent.Props.SetText(ical.PropDescription, event.Description)
	}

	// UTC times so the encoder emits the Z suffix
	vevent.Props.SetDateTime(ical.PropDateTimeStart, event.StartTime.UTC())
	vevent.Props.SetDateTime(ical.PropDateTimeStamp, time.Now().UTC())

	if event.RRule != "" {
		vevent.Props.SetText(ical.PropRecurrenceRule, event.RRule)
	}

	cal.Children = append(cal.Children, vevent.Component)
	return cal
}
