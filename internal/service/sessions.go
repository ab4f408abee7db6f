package service

import (
	"sync"

	"github.com/abdegenius/cashley-bot/internal/clients/cashley"
	"github.com/abdegenius/cashley-bot/internal/domain"
)

// Session bundles the per-user services. Each linked user gets exactly one
// logical session; its schedule cache is the single shared mutable resource
// for that user and all mutations go through the services.
type Session struct {
	Schedules *ScheduleService
	Billing   *BillingService
	Wallet    *WalletService
}

// Sessions hands out per-user sessions backed by a shared base API client.
type Sessions struct {
	api *cashley.Client

	mu       sync.Mutex
	sessions map[int64]*Session // by storage user ID
}

func NewSessions(api *cashley.Client) *Sessions {
	return &Sessions{
		api:      api,
		sessions: make(map[int64]*Session),
	}
}

// For returns the user's session, creating it on first use.
func (m *Sessions) For(user *domain.User) *Session {
	m.mu.Lock()
	defer m.mu.Unlock()

	if sess, ok := m.sessions[user.ID]; ok {
		return sess
	}

	client := m.api.WithToken(user.APIToken)
	sess := &Session{
		Schedules: NewScheduleService(client),
		Billing:   NewBillingService(client),
		Wallet:    NewWalletService(client),
	}
	m.sessions[user.ID] = sess
	return sess
}

// Drop discards a user's session, e.g. after /link rebinds the API token.
func (m *Sessions) Drop(userID int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, userID)
}
