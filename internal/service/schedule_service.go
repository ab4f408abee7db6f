package service

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"

	"github.com/abdegenius/cashley-bot/internal/clients/cashley"
	"github.com/abdegenius/cashley-bot/internal/domain"
)

var ErrInvalidStatus = errors.New("invalid schedule status")

// ValidationError carries the per-field messages from draft validation. The
// draft is never submitted while any field fails.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	return e.First()
}

// First returns the first failing field's message in canonical field order.
func (e *ValidationError) First() string {
	for _, field := range domain.DraftFields {
		if msg, ok := e.Fields[field]; ok {
			return msg
		}
	}
	return "invalid schedule"
}

// ScheduleGateway is the remote API surface the schedule service depends on.
// *cashley.Client satisfies it; tests substitute a fake.
type ScheduleGateway interface {
	ListSchedules(action domain.ActionKind) ([]domain.Schedule, error)
	CreateSchedule(req cashley.CreateScheduleRequest) (*domain.Schedule, error)
	GetSchedule(reference string) (*domain.Schedule, error)
	UpdateSchedule(reference string, req cashley.UpdateScheduleRequest) (*domain.Schedule, error)
	DeleteSchedule(reference string) error
	ScheduleHistory(reference string) ([]domain.HistoryEntry, error)
}

// ScheduleService owns the cached list of one user's schedules and mediates
// every schedule operation through the gateway. The server stays the source
// of truth: the cache is only mutated after the gateway confirms a change, so
// a failed call always leaves the last-known-good state intact.
//
// The mutex serializes the service's own operations; concurrent toggles are
// applied in arrival order and the server's last write wins. There is no
// per-reference queuing.
type ScheduleService struct {
	gateway ScheduleGateway

	mu sync.Mutex
	// keyed by action filter ("" = unfiltered); a missing key means never
	// loaded, a present empty slice means loaded-and-empty
	cache map[domain.ActionKind][]domain.Schedule
}

func NewScheduleService(gateway ScheduleGateway) *ScheduleService {
	return &ScheduleService{
		gateway: gateway,
		cache:   make(map[domain.ActionKind][]domain.Schedule),
	}
}

// List returns the user's schedules for the given action filter, fetching
// from the gateway only the first time a filter is requested. Insertion order
// is preserved for display.
func (s *ScheduleService) List(action domain.ActionKind) ([]domain.Schedule, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if cached, ok := s.cache[action]; ok {
		return cached, nil
	}

	schedules, err := s.gateway.ListSchedules(action)
	if err != nil {
		return nil, normalize(err, "failed to fetch schedules")
	}
	if schedules == nil {
		schedules = []domain.Schedule{}
	}

	s.cache[action] = schedules
	return schedules, nil
}

// Refresh drops the cache for a filter and fetches it again.
func (s *ScheduleService) Refresh(action domain.ActionKind) ([]domain.Schedule, error) {
	s.mu.Lock()
	delete(s.cache, action)
	s.mu.Unlock()
	return s.List(action)
}

// Get returns a single schedule, from cache when present.
func (s *ScheduleService) Get(reference string) (*domain.Schedule, error) {
	s.mu.Lock()
	if cached, ok := s.lookup(reference); ok {
		s.mu.Unlock()
		return &cached, nil
	}
	s.mu.Unlock()

	schedule, err := s.gateway.GetSchedule(reference)
	if err != nil {
		return nil, normalize(err, "failed to fetch schedule")
	}
	return schedule, nil
}

// Create validates the draft, submits it and appends the server record to the
// cache. A draft with any failing field is rejected before anything is sent;
// a gateway failure leaves the cache untouched.
func (s *ScheduleService) Create(draft domain.ScheduleDraft) (*domain.Schedule, error) {
	if fields := draft.Validate(); len(fields) > 0 {
		return nil, &ValidationError{Fields: fields}
	}

	// fields are validated above, so these cannot fail
	amount, _ := strconv.ParseFloat(strings.TrimSpace(draft.Duration), 64)
	interval, err := domain.ToSeconds(amount, draft.DurationUnit)
	if err != nil {
		return nil, err
	}

	frequency := draft.Frequency
	if frequency == "" {
		frequency = domain.FrequencyRepeat
	}

	data := map[string]any{
		"service_id": strings.TrimSpace(draft.Provider),
		"phone":      draft.CleanRecipient(),
	}
	if draft.Action.FreeAmount() {
		data["amount"] = strings.TrimSpace(draft.Amount)
	} else {
		data["variation_code"] = strings.TrimSpace(draft.Variation)
	}

	created, err := s.gateway.CreateSchedule(cashley.CreateScheduleRequest{
		Title:     strings.TrimSpace(draft.Title),
		Action:    draft.Action,
		Interval:  interval,
		Frequency: frequency,
		Status:    domain.StatusRunning,
		Data:      data,
	})
	if err != nil {
		return nil, normalize(err, "failed to create schedule")
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for key, list := range s.cache {
		if key == "" || key == created.Action {
			s.cache[key] = append(list, *created)
		}
	}

	return created, nil
}

// Remove deletes a schedule by reference and drops it from the cache only
// after the server confirms the deletion.
func (s *ScheduleService) Remove(reference string) error {
	if err := s.gateway.DeleteSchedule(reference); err != nil {
		return normalize(err, "failed to delete schedule")
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for key, list := range s.cache {
		kept := make([]domain.Schedule, 0, len(list))
		for _, sched := range list {
			if sched.Reference != reference {
				kept = append(kept, sched)
			}
		}
		s.cache[key] = kept
	}

	return nil
}

// Toggle flips a schedule between running and pause. Only those two states
// are togglable; anything else (completed, error, ...) is rejected before any
// network call. The update preserves every other field in the schedule's data
// payload, and the cache is reconciled only on success.
func (s *ScheduleService) Toggle(reference string) (*domain.Schedule, error) {
	current, err := s.Get(reference)
	if err != nil {
		return nil, err
	}

	status := current.CurrentStatus()
	if !status.Togglable() {
		return nil, ErrInvalidStatus
	}
	next := status.Toggled()

	data := domain.MergeData(current.Data, map[string]any{"status": string(next)})
	updated, err := s.gateway.UpdateSchedule(reference, cashley.UpdateScheduleRequest{Data: data})
	if err != nil {
		return nil, normalize(err, "failed to update schedule")
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	result := *current
	result.Status = next
	result.Data = data
	if updated != nil {
		result.UpdatedAt = updated.UpdatedAt
	}
	// replace the cached lists rather than writing into their backing
	// arrays, so slices handed out earlier keep their snapshot
	for key, list := range s.cache {
		copied := make([]domain.Schedule, len(list))
		copy(copied, list)
		for i := range copied {
			if copied[i].Reference == reference {
				copied[i] = result
			}
		}
		s.cache[key] = copied
	}

	return &result, nil
}

// History returns the past firings of a schedule. On failure it returns an
// empty slice together with the error so rendering never deals with nil.
func (s *ScheduleService) History(reference string) ([]domain.HistoryEntry, error) {
	entries, err := s.gateway.ScheduleHistory(reference)
	if err != nil {
		return []domain.HistoryEntry{}, normalize(err, "failed to fetch schedule history")
	}
	if entries == nil {
		entries = []domain.HistoryEntry{}
	}
	return entries, nil
}

// lookup finds a schedule in any cached list. Caller holds the mutex.
func (s *ScheduleService) lookup(reference string) (domain.Schedule, bool) {
	for _, list := range s.cache {
		for _, sched := range list {
			if sched.Reference == reference {
				return sched, true
			}
		}
	}
	return domain.Schedule{}, false
}

// normalize keeps server-reported business messages verbatim and folds
// transport failures into a generic caller-facing message.
func normalize(err error, fallback string) error {
	var apiErr *cashley.APIError
	if errors.As(err, &apiErr) {
		return apiErr
	}
	return fmt.Errorf("%s: %w", fallback, err)
}
