package cashley

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"

	"github.com/abdegenius/cashley-bot/internal/domain"
)

// CreateScheduleRequest is the body for POST /schedules. Status is always
// "running" for new schedules; the interval is the canonical seconds encoding.
type CreateScheduleRequest struct {
	Title     string            `json:"title"`
	Action    domain.ActionKind `json:"action"`
	Interval  int64             `json:"interval"`
	Frequency domain.Frequency  `json:"frequency"`
	Status    domain.Status     `json:"status"`
	Data      map[string]any    `json:"data"`
}

// UpdateScheduleRequest is the body for PUT /schedules/{reference}. Data is a
// full replacement of the nested payload, so callers must merge before
// sending.
type UpdateScheduleRequest struct {
	Title string         `json:"title,omitempty"`
	Data  map[string]any `json:"data,omitempty"`
}

// The API nests paginated lists one level deeper inside the envelope.
type schedulesPayload struct {
	Data []domain.Schedule `json:"data"`
}

type historyPayload struct {
	Data []domain.HistoryEntry `json:"data"`
}

// ListSchedules returns the user's schedules, optionally filtered by action.
func (c *Client) ListSchedules(action domain.ActionKind) ([]domain.Schedule, error) {
	path := "/schedules"
	if action != "" {
		path += "?action=" + url.QueryEscape(string(action))
	}

	data, err := c.doRequest(http.MethodGet, path, nil)
	if err != nil {
		return nil, err
	}

	var payload schedulesPayload
	if err := json.Unmarshal(data, &payload); err != nil {
		return nil, fmt.Errorf("unmarshal schedules: %w", err)
	}

	return payload.Data, nil
}

// CreateSchedule creates a new schedule and returns the server record,
// including the issued reference.
func (c *Client) CreateSchedule(req CreateScheduleRequest) (*domain.Schedule, error) {
	data, err := c.doRequest(http.MethodPost, "/schedules", req)
	if err != nil {
		return nil, err
	}

	var schedule domain.Schedule
	if err := json.Unmarshal(data, &schedule); err != nil {
		return nil, fmt.Errorf("unmarshal schedule: %w", err)
	}

	return &schedule, nil
}

// GetSchedule returns a single schedule by reference.
func (c *Client) GetSchedule(reference string) (*domain.Schedule, error) {
	data, err := c.doRequest(http.MethodGet, "/schedules/"+url.PathEscape(reference), nil)
	if err != nil {
		return nil, err
	}

	var schedule domain.Schedule
	if err := json.Unmarshal(data, &schedule); err != nil {
		return nil, fmt.Errorf("unmarshal schedule: %w", err)
	}

	return &schedule, nil
}

// UpdateSchedule applies a partial update and returns the updated record.
func (c *Client) UpdateSchedule(reference string, req UpdateScheduleRequest) (*domain.Schedule, error) {
	data, err := c.doRequest(http.MethodPut, "/schedules/"+url.PathEscape(reference), req)
	if err != nil {
		return nil, err
	}

	var schedule domain.Schedule
	if err := json.Unmarshal(data, &schedule); err != nil {
		return nil, fmt.Errorf("unmarshal schedule: %w", err)
	}

	return &schedule, nil
}

// DeleteSchedule deletes a schedule by reference.
func (c *Client) DeleteSchedule(reference string) error {
	_, err := c.doRequest(http.MethodDelete, "/schedules/"+url.PathEscape(reference), nil)
	return err
}

// ScheduleHistory returns the past firings of a schedule, newest first.
func (c *Client) ScheduleHistory(reference string) ([]domain.HistoryEntry, error) {
	data, err := c.doRequest(http.MethodGet, "/schedules/history/"+url.PathEscape(reference), nil)
	if err != nil {
		return nil, err
	}

	var payload historyPayload
	if err := json.Unmarshal(data, &payload); err != nil {
		return nil, fmt.Errorf("unmarshal schedule history: %w", err)
	}

	return payload.Data, nil
}
