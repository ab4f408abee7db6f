package service

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abdegenius/cashley-bot/internal/clients/cashley"
	"github.com/abdegenius/cashley-bot/internal/domain"
)

// fakeGateway implements ScheduleGateway with per-call function hooks.
type fakeGateway struct {
	listFn    func(action domain.ActionKind) ([]domain.Schedule, error)
	createFn  func(req cashley.CreateScheduleRequest) (*domain.Schedule, error)
	getFn     func(reference string) (*domain.Schedule, error)
	updateFn  func(reference string, req cashley.UpdateScheduleRequest) (*domain.Schedule, error)
	deleteFn  func(reference string) error
	historyFn func(reference string) ([]domain.HistoryEntry, error)

	listCalls   int
	updateCalls int
}

func (f *fakeGateway) ListSchedules(action domain.ActionKind) ([]domain.Schedule, error) {
	f.listCalls++
	if f.listFn == nil {
		return nil, nil
	}
	return f.listFn(action)
}

func (f *fakeGateway) CreateSchedule(req cashley.CreateScheduleRequest) (*domain.Schedule, error) {
	return f.createFn(req)
}

func (f *fakeGateway) GetSchedule(reference string) (*domain.Schedule, error) {
	return f.getFn(reference)
}

func (f *fakeGateway) UpdateSchedule(reference string, req cashley.UpdateScheduleRequest) (*domain.Schedule, error) {
	f.updateCalls++
	return f.updateFn(reference, req)
}

func (f *fakeGateway) DeleteSchedule(reference string) error {
	return f.deleteFn(reference)
}

func (f *fakeGateway) ScheduleHistory(reference string) ([]domain.HistoryEntry, error) {
	return f.historyFn(reference)
}

func runningSchedule(ref string) domain.Schedule {
	return domain.Schedule{
		Reference: ref,
		Title:     "Weekly data",
		Action:    domain.ActionData,
		Interval:  604800,
		Frequency: domain.FrequencyRepeat,
		Status:    domain.StatusRunning,
		Data: map[string]any{
			"service_id":     "mtn-data",
			"phone":          "08031234567",
			"variation_code": "mtn-2gb",
			"status":         "running",
		},
	}
}

func TestList_FetchesOncePerFilter(t *testing.T) {
	gw := &fakeGateway{
		listFn: func(action domain.ActionKind) ([]domain.Schedule, error) {
			return []domain.Schedule{runningSchedule("ref-1")}, nil
		},
	}
	svc := NewScheduleService(gw)

	first, err := svc.List(domain.ActionData)
	require.NoError(t, err)
	require.Len(t, first, 1)

	second, err := svc.List(domain.ActionData)
	require.NoError(t, err)
	assert.Equal(t, first, second)
	assert.Equal(t, 1, gw.listCalls)

	// a different filter is a separate cache entry
	_, err = svc.List("")
	require.NoError(t, err)
	assert.Equal(t, 2, gw.listCalls)
}

func TestList_EmptyIsCached(t *testing.T) {
	gw := &fakeGateway{
		listFn: func(action domain.ActionKind) ([]domain.Schedule, error) {
			return nil, nil
		},
	}
	svc := NewScheduleService(gw)

	schedules, err := svc.List(domain.ActionAirtime)
	require.NoError(t, err)
	require.NotNil(t, schedules)
	assert.Empty(t, schedules)

	// loaded-and-empty must not trigger a refetch
	_, err = svc.List(domain.ActionAirtime)
	require.NoError(t, err)
	assert.Equal(t, 1, gw.listCalls)
}

func TestList_FailureIsNotCached(t *testing.T) {
	calls := 0
	gw := &fakeGateway{
		listFn: func(action domain.ActionKind) ([]domain.Schedule, error) {
			calls++
			if calls == 1 {
				return nil, errors.New("connection refused")
			}
			return []domain.Schedule{runningSchedule("ref-1")}, nil
		},
	}
	svc := NewScheduleService(gw)

	_, err := svc.List("")
	require.Error(t, err)

	schedules, err := svc.List("")
	require.NoError(t, err)
	assert.Len(t, schedules, 1)
}

func TestRefresh_DropsCache(t *testing.T) {
	gw := &fakeGateway{
		listFn: func(action domain.ActionKind) ([]domain.Schedule, error) {
			return []domain.Schedule{runningSchedule("ref-1")}, nil
		},
	}
	svc := NewScheduleService(gw)

	_, err := svc.List("")
	require.NoError(t, err)
	_, err = svc.Refresh("")
	require.NoError(t, err)
	assert.Equal(t, 2, gw.listCalls)
}

func TestCreate_SubmitsCanonicalForm(t *testing.T) {
	var got cashley.CreateScheduleRequest
	gw := &fakeGateway{
		createFn: func(req cashley.CreateScheduleRequest) (*domain.Schedule, error) {
			got = req
			created := runningSchedule("srv-ref-9")
			created.Action = req.Action
			return &created, nil
		},
	}
	svc := NewScheduleService(gw)

	created, err := svc.Create(domain.ScheduleDraft{
		Provider:     "mtn",
		Recipient:    " 0803 123 4567 ",
		Duration:     "1",
		DurationUnit: "Months",
		Amount:       "500",
		Title:        "Mum's airtime",
		Action:       domain.ActionAirtime,
		Frequency:    domain.FrequencyRepeat,
	})
	require.NoError(t, err)
	assert.Equal(t, "srv-ref-9", created.Reference)

	assert.Equal(t, "Mum's airtime", got.Title)
	assert.Equal(t, domain.ActionAirtime, got.Action)
	assert.Equal(t, int64(2592000), got.Interval)
	assert.Equal(t, domain.FrequencyRepeat, got.Frequency)
	assert.Equal(t, domain.StatusRunning, got.Status)
	assert.Equal(t, "mtn", got.Data["service_id"])
	assert.Equal(t, "08031234567", got.Data["phone"])
	assert.Equal(t, "500", got.Data["amount"])
	assert.NotContains(t, got.Data, "variation_code")
}

func TestCreate_InvalidDraftNeverReachesGateway(t *testing.T) {
	gw := &fakeGateway{
		createFn: func(req cashley.CreateScheduleRequest) (*domain.Schedule, error) {
			t.Fatal("gateway must not be called for an invalid draft")
			return nil, nil
		},
	}
	svc := NewScheduleService(gw)

	_, err := svc.Create(domain.ScheduleDraft{Action: domain.ActionAirtime})
	require.Error(t, err)

	var vErr *ValidationError
	require.ErrorAs(t, err, &vErr)
	assert.Equal(t, "Please select a service provider", vErr.First())
	assert.Contains(t, vErr.Fields, "recipient")
}

func TestCreate_GatewayFailureLeavesCacheIntact(t *testing.T) {
	gw := &fakeGateway{
		listFn: func(action domain.ActionKind) ([]domain.Schedule, error) {
			return []domain.Schedule{runningSchedule("ref-1")}, nil
		},
		createFn: func(req cashley.CreateScheduleRequest) (*domain.Schedule, error) {
			return nil, &cashley.APIError{Message: "Insufficient balance"}
		},
	}
	svc := NewScheduleService(gw)

	before, err := svc.List("")
	require.NoError(t, err)

	_, err = svc.Create(domain.ScheduleDraft{
		Provider:     "mtn",
		Recipient:    "08031234567",
		Duration:     "2",
		DurationUnit: "Weeks",
		Amount:       "500",
		Title:        "Top-up",
		Action:       domain.ActionAirtime,
	})
	require.Error(t, err)
	assert.EqualError(t, err, "Insufficient balance")

	after, err := svc.List("")
	require.NoError(t, err)
	assert.Equal(t, before, after)
}

func TestCreate_AppendsToMatchingCaches(t *testing.T) {
	gw := &fakeGateway{
		listFn: func(action domain.ActionKind) ([]domain.Schedule, error) {
			return nil, nil
		},
		createFn: func(req cashley.CreateScheduleRequest) (*domain.Schedule, error) {
			created := runningSchedule("new-ref")
			created.Action = req.Action
			return &created, nil
		},
	}
	svc := NewScheduleService(gw)

	// prime three filters
	for _, action := range []domain.ActionKind{"", domain.ActionData, domain.ActionAirtime} {
		_, err := svc.List(action)
		require.NoError(t, err)
	}

	_, err := svc.Create(domain.ScheduleDraft{
		Provider:     "mtn-data",
		Recipient:    "08031234567",
		Duration:     "1",
		DurationUnit: "Weeks",
		Variation:    "mtn-2gb",
		Title:        "Weekly data",
		Action:       domain.ActionData,
	})
	require.NoError(t, err)

	all, _ := svc.List("")
	data, _ := svc.List(domain.ActionData)
	airtime, _ := svc.List(domain.ActionAirtime)
	assert.Len(t, all, 1)
	assert.Len(t, data, 1)
	assert.Empty(t, airtime)
	assert.Equal(t, 3, gw.listCalls, "cache updates must not refetch")
}

func TestRemove_DropsFromCacheOnSuccessOnly(t *testing.T) {
	deleteErr := errors.New("timeout")
	gw := &fakeGateway{
		listFn: func(action domain.ActionKind) ([]domain.Schedule, error) {
			return []domain.Schedule{runningSchedule("ref-1"), runningSchedule("ref-2")}, nil
		},
		deleteFn: func(reference string) error { return deleteErr },
	}
	svc := NewScheduleService(gw)

	_, err := svc.List("")
	require.NoError(t, err)

	err = svc.Remove("ref-1")
	require.Error(t, err)
	assert.ErrorIs(t, err, deleteErr)

	schedules, _ := svc.List("")
	assert.Len(t, schedules, 2, "failed delete must not touch the cache")

	gw.deleteFn = func(reference string) error { return nil }
	require.NoError(t, svc.Remove("ref-1"))

	schedules, _ = svc.List("")
	require.Len(t, schedules, 1)
	assert.Equal(t, "ref-2", schedules[0].Reference)
}

func TestToggle_RunningToPause(t *testing.T) {
	var got cashley.UpdateScheduleRequest
	gw := &fakeGateway{
		listFn: func(action domain.ActionKind) ([]domain.Schedule, error) {
			return []domain.Schedule{runningSchedule("ref-1")}, nil
		},
		updateFn: func(reference string, req cashley.UpdateScheduleRequest) (*domain.Schedule, error) {
			got = req
			updated := runningSchedule(reference)
			updated.Status = domain.StatusPause
			updated.UpdatedAt = time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)
			return &updated, nil
		},
	}
	svc := NewScheduleService(gw)

	_, err := svc.List("")
	require.NoError(t, err)

	updated, err := svc.Toggle("ref-1")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusPause, updated.CurrentStatus())

	// the patch must carry the whole merged payload, not only the status
	assert.Equal(t, "pause", got.Data["status"])
	assert.Equal(t, "mtn-data", got.Data["service_id"])
	assert.Equal(t, "08031234567", got.Data["phone"])
	assert.Equal(t, "mtn-2gb", got.Data["variation_code"])

	// cache was reconciled; toggling again flips back
	updated, err = svc.Toggle("ref-1")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusRunning, updated.CurrentStatus())
}

func TestToggle_LeavesEarlierSnapshotsUntouched(t *testing.T) {
	gw := &fakeGateway{
		listFn: func(action domain.ActionKind) ([]domain.Schedule, error) {
			return []domain.Schedule{runningSchedule("ref-1")}, nil
		},
		updateFn: func(reference string, req cashley.UpdateScheduleRequest) (*domain.Schedule, error) {
			updated := runningSchedule(reference)
			updated.Status = domain.StatusPause
			return &updated, nil
		},
	}
	svc := NewScheduleService(gw)

	snapshot, err := svc.List("")
	require.NoError(t, err)
	require.Len(t, snapshot, 1)

	_, err = svc.Toggle("ref-1")
	require.NoError(t, err)

	// the slice handed out before the toggle still shows the old state
	assert.Equal(t, domain.StatusRunning, snapshot[0].CurrentStatus())

	current, err := svc.List("")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusPause, current[0].CurrentStatus())
}

func TestToggle_NonTogglableStatusRejectedBeforeNetwork(t *testing.T) {
	completed := runningSchedule("ref-done")
	completed.Status = "completed"
	completed.Data["status"] = "completed"

	gw := &fakeGateway{
		listFn: func(action domain.ActionKind) ([]domain.Schedule, error) {
			return []domain.Schedule{completed}, nil
		},
		updateFn: func(reference string, req cashley.UpdateScheduleRequest) (*domain.Schedule, error) {
			t.Fatal("update must not be called for a non-togglable status")
			return nil, nil
		},
	}
	svc := NewScheduleService(gw)

	_, err := svc.List("")
	require.NoError(t, err)

	_, err = svc.Toggle("ref-done")
	assert.ErrorIs(t, err, ErrInvalidStatus)
	assert.EqualError(t, err, "invalid schedule status")
	assert.Equal(t, 0, gw.updateCalls)
}

func TestToggle_GatewayFailureLeavesCacheIntact(t *testing.T) {
	gw := &fakeGateway{
		listFn: func(action domain.ActionKind) ([]domain.Schedule, error) {
			return []domain.Schedule{runningSchedule("ref-1")}, nil
		},
		updateFn: func(reference string, req cashley.UpdateScheduleRequest) (*domain.Schedule, error) {
			return nil, &cashley.APIError{Message: "Schedule not found"}
		},
	}
	svc := NewScheduleService(gw)

	_, err := svc.List("")
	require.NoError(t, err)

	_, err = svc.Toggle("ref-1")
	require.EqualError(t, err, "Schedule not found")

	schedules, _ := svc.List("")
	require.Len(t, schedules, 1)
	assert.Equal(t, domain.StatusRunning, schedules[0].CurrentStatus())
}

func TestGet_FallsBackToGateway(t *testing.T) {
	remote := runningSchedule("remote-ref")
	gw := &fakeGateway{
		getFn: func(reference string) (*domain.Schedule, error) {
			if reference == "remote-ref" {
				return &remote, nil
			}
			return nil, &cashley.APIError{Message: "Schedule not found"}
		},
	}
	svc := NewScheduleService(gw)

	got, err := svc.Get("remote-ref")
	require.NoError(t, err)
	assert.Equal(t, "remote-ref", got.Reference)

	_, err = svc.Get("missing")
	assert.EqualError(t, err, "Schedule not found")
}

func TestHistory_EmptySliceOnFailure(t *testing.T) {
	gw := &fakeGateway{
		historyFn: func(reference string) ([]domain.HistoryEntry, error) {
			return nil, errors.New("timeout")
		},
	}
	svc := NewScheduleService(gw)

	entries, err := svc.History("ref-1")
	require.Error(t, err)
	require.NotNil(t, entries)
	assert.Empty(t, entries)
}

func TestHistory_NilBecomesEmpty(t *testing.T) {
	gw := &fakeGateway{
		historyFn: func(reference string) ([]domain.HistoryEntry, error) {
			return nil, nil
		},
	}
	svc := NewScheduleService(gw)

	entries, err := svc.History("ref-1")
	require.NoError(t, err)
	require.NotNil(t, entries)
	assert.Empty(t, entries)
}

func TestValidationErrorFirst_FollowsFieldOrder(t *testing.T) {
	err := &ValidationError{Fields: map[string]string{
		"title":     "Title must be between 3 and 100 characters",
		"recipient": "Phone number is too short",
	}}
	assert.Equal(t, "Phone number is too short", err.First())
	assert.Equal(t, err.First(), err.Error())
}
