package storage

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abdegenius/cashley-bot/internal/domain"
)

func newTestStorage(t *testing.T) *Storage {
	t.Helper()
	store, err := New(filepath.Join(t.TempDir(), "cashley.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func TestUserLifecycle(t *testing.T) {
	store := newTestStorage(t)

	missing, err := store.GetUserByTelegramID(42)
	require.NoError(t, err)
	assert.Nil(t, missing)

	user := &domain.User{TelegramID: 42, Name: "Ada", ReminderLead: 30}
	require.NoError(t, store.CreateUser(user))
	assert.NotZero(t, user.ID)

	got, err := store.GetUserByTelegramID(42)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "Ada", got.Name)
	assert.Equal(t, 30, got.ReminderLead)
	assert.False(t, got.Linked())

	require.NoError(t, store.UpdateUserToken(user.ID, "tok-1"))
	got, err = store.GetUserByID(user.ID)
	require.NoError(t, err)
	assert.True(t, got.Linked())

	require.NoError(t, store.UpdateUserReminderLead(user.ID, 60))
	require.NoError(t, store.UpdateUserCalendarPath(user.ID, "/calendars/ada/bills/"))
	got, err = store.GetUserByID(user.ID)
	require.NoError(t, err)
	assert.Equal(t, 60, got.ReminderLead)
	assert.Equal(t, "/calendars/ada/bills/", got.CalendarPath)
}

func TestListLinkedUsers(t *testing.T) {
	store := newTestStorage(t)

	linked := &domain.User{TelegramID: 1, Name: "Linked", APIToken: "tok-1"}
	unlinked := &domain.User{TelegramID: 2, Name: "Unlinked"}
	require.NoError(t, store.CreateUser(linked))
	require.NoError(t, store.CreateUser(unlinked))

	users, err := store.ListLinkedUsers()
	require.NoError(t, err)
	require.Len(t, users, 1)
	assert.Equal(t, "Linked", users[0].Name)
}

func TestReminderDedupe(t *testing.T) {
	store := newTestStorage(t)

	user := &domain.User{TelegramID: 7, Name: "Ada", APIToken: "tok-1"}
	require.NoError(t, store.CreateUser(user))

	runAt := time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)

	sent, err := store.WasReminderSent(user.ID, "ref-1", runAt)
	require.NoError(t, err)
	assert.False(t, sent)

	require.NoError(t, store.MarkReminderSent(user.ID, "ref-1", runAt))
	sent, err = store.WasReminderSent(user.ID, "ref-1", runAt)
	require.NoError(t, err)
	assert.True(t, sent)

	// marking the same run twice is a no-op
	require.NoError(t, store.MarkReminderSent(user.ID, "ref-1", runAt))

	// a different run of the same schedule is tracked separately
	sent, err = store.WasReminderSent(user.ID, "ref-1", runAt.Add(7*24*time.Hour))
	require.NoError(t, err)
	assert.False(t, sent)
}

func TestPruneSentReminders(t *testing.T) {
	store := newTestStorage(t)

	user := &domain.User{TelegramID: 7, Name: "Ada", APIToken: "tok-1"}
	require.NoError(t, store.CreateUser(user))

	runAt := time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)
	require.NoError(t, store.MarkReminderSent(user.ID, "ref-1", runAt))

	// cutoff in the past keeps the fresh row
	require.NoError(t, store.PruneSentReminders(time.Now().Add(-time.Hour)))
	sent, err := store.WasReminderSent(user.ID, "ref-1", runAt)
	require.NoError(t, err)
	assert.True(t, sent)

	// cutoff in the future drops it
	require.NoError(t, store.PruneSentReminders(time.Now().Add(time.Hour)))
	sent, err = store.WasReminderSent(user.ID, "ref-1", runAt)
	require.NoError(t, err)
	assert.False(t, sent)
}
