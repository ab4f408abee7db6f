package scheduler

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/abdegenius/cashley-bot/config"
	"github.com/abdegenius/cashley-bot/internal/domain"
	"github.com/abdegenius/cashley-bot/internal/service"
	"github.com/abdegenius/cashley-bot/internal/storage"
)

type MessageSender interface {
	SendMessage(chatID int64, text string) error
}

// Scheduler drives the client-side notifications: a morning summary and a
// per-minute check for payments about to fire. Execution of the schedules
// themselves is server-side; this only tells the user what is coming.
type Scheduler struct {
	cron     *cron.Cron
	cfg      *config.Config
	storage  *storage.Storage
	sessions *service.Sessions
	sender   MessageSender
}

func New(cfg *config.Config, storage *storage.Storage, sessions *service.Sessions) *Scheduler {
	c := cron.New(cron.WithLocation(cfg.Timezone))

	return &Scheduler{
		cron:     c,
		cfg:      cfg,
		storage:  storage,
		sessions: sessions,
	}
}

func (s *Scheduler) SetSender(sender MessageSender) {
	s.sender = sender
}

func (s *Scheduler) Start(ctx context.Context) error {
	morningSpec := fmt.Sprintf("0 %s * * *", minutesFirst(s.cfg.MorningTime))
	if _, err := s.cron.AddFunc(morningSpec, s.morningSummary); err != nil {
		return fmt.Errorf("add morning summary: %w", err)
	}

	if _, err := s.cron.AddFunc("* * * * *", s.checkUpcoming); err != nil {
		return fmt.Errorf("add upcoming check: %w", err)
	}

	// weekly housekeeping of the sent-reminder log
	if _, err := s.cron.AddFunc("0 3 * * 1", s.pruneLog); err != nil {
		return fmt.Errorf("add prune: %w", err)
	}

	s.cron.Start()
	log.Printf("Scheduler started (TZ: %s, morning: %s)", s.cfg.Timezone, s.cfg.MorningTime)

	<-ctx.Done()
	return nil
}

func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	log.Println("Scheduler stopped")
}

// minutesFirst turns "08:30" into "30 8" for a cron spec.
func minutesFirst(hhmm string) string {
	parts := strings.SplitN(hhmm, ":", 2)
	if len(parts) != 2 {
		return "0 8"
	}
	return strings.TrimPrefix(parts[1], "0") + " " + strings.TrimPrefix(parts[0], "0")
}

func (s *Scheduler) morningSummary() {
	if s.sender == nil {
		return
	}

	users, err := s.storage.ListLinkedUsers()
	if err != nil {
		log.Printf("Error listing users: %v", err)
		return
	}

	for _, user := range users {
		s.sendSummaryTo(user)
	}
}

func (s *Scheduler) sendSummaryTo(user *domain.User) {
	sess := s.sessions.For(user)

	// fresh data once a day; the per-minute check reads the cache
	schedules, err := sess.Schedules.Refresh("")
	if err != nil {
		log.Printf("Error refreshing schedules for user %d: %v", user.ID, err)
		return
	}

	now := time.Now().In(s.cfg.Timezone)
	endOfDay := time.Date(now.Year(), now.Month(), now.Day(), 23, 59, 59, 0, s.cfg.Timezone)

	var today []domain.Schedule
	for _, sched := range schedules {
		next := sched.NextRun()
		if sched.CurrentStatus() == domain.StatusRunning && next.After(now) && next.Before(endOfDay) {
			today = append(today, sched)
		}
	}

	text := "☀️ <b>Good morning!</b>\n\n"
	if wallet, err := sess.Wallet.Balance(); err == nil {
		text += fmt.Sprintf("Balance: <b>%s</b>\n\n", service.FormatAmount(wallet.Balance, wallet.Currency))
	}

	if len(today) == 0 {
		text += "No scheduled payments today."
	} else {
		text += fmt.Sprintf("<b>%d scheduled payment(s) today:</b>\n", len(today))
		for _, sched := range today {
			text += fmt.Sprintf("  💸 %s — %s\n", sched.NextRun().In(s.cfg.Timezone).Format("15:04"), sched.Title)
		}
	}

	if err := s.sender.SendMessage(user.TelegramID, text); err != nil {
		log.Printf("Error sending morning summary to %d: %v", user.TelegramID, err)
	}
}

func (s *Scheduler) checkUpcoming() {
	if s.sender == nil {
		return
	}

	users, err := s.storage.ListLinkedUsers()
	if err != nil {
		log.Printf("Error listing users: %v", err)
		return
	}

	now := time.Now()
	for _, user := range users {
		lead := time.Duration(user.ReminderLead) * time.Minute
		if lead <= 0 {
			continue
		}

		schedules, err := s.sessions.For(user).Schedules.List("")
		if err != nil {
			log.Printf("Error listing schedules for user %d: %v", user.ID, err)
			continue
		}

		for _, sched := range schedules {
			runAt, due := DueForReminder(sched, now, lead)
			if !due {
				continue
			}

			sent, err := s.storage.WasReminderSent(user.ID, sched.Reference, runAt)
			if err != nil {
				log.Printf("Error checking sent reminders: %v", err)
				continue
			}
			if sent {
				continue
			}

			text := fmt.Sprintf("🔔 <b>Upcoming payment</b>\n\n%s fires at %s",
				sched.Title, runAt.In(s.cfg.Timezone).Format("15:04"))
			if err := s.sender.SendMessage(user.TelegramID, text); err != nil {
				log.Printf("Error sending reminder to %d: %v", user.TelegramID, err)
				continue
			}

			if err := s.storage.MarkReminderSent(user.ID, sched.Reference, runAt); err != nil {
				log.Printf("Error marking reminder sent: %v", err)
			}
		}
	}
}

func (s *Scheduler) pruneLog() {
	if err := s.storage.PruneSentReminders(time.Now().AddDate(0, 0, -30)); err != nil {
		log.Printf("Error pruning sent reminders: %v", err)
	}
}

// DueForReminder reports whether the schedule's next estimated run falls
// inside the reminder window (now, now+lead], and returns that run time.
// Paused and non-togglable schedules never remind.
func DueForReminder(sched domain.Schedule, now time.Time, lead time.Duration) (time.Time, bool) {
	if sched.CurrentStatus() != domain.StatusRunning {
		return time.Time{}, false
	}
	next := sched.NextRun()
	if next.After(now) && next.Sub(now) <= lead {
		return next, true
	}
	return time.Time{}, false
}
