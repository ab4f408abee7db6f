package bot

import (
	"context"
	"fmt"
	"log"
	"strconv"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/abdegenius/cashley-bot/internal/domain"
)

func (b *Bot) handleUpdate(update tgbotapi.Update) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("Recovered from panic in update handler: %v", r)
		}
	}()

	if update.CallbackQuery != nil {
		b.handleCallback(update.CallbackQuery)
		return
	}
	if update.Message != nil {
		b.handleMessage(update.Message)
	}
}

func (b *Bot) handleMessage(message *tgbotapi.Message) {
	chatID := message.Chat.ID
	defer b.lockChat(chatID)()

	user := b.resolveUser(message)
	if user == nil {
		return
	}

	if message.IsCommand() {
		b.setFlow(chatID, nil)
		b.handleCommand(chatID, user, message.Command(), message.CommandArguments())
		return
	}

	if b.getFlow(chatID) != nil {
		b.flowText(chatID, user, strings.TrimSpace(message.Text))
		return
	}

	b.SendMessage(chatID, "Use /help to see what I can do.")
}

// resolveUser loads or lazily registers the Telegram account.
func (b *Bot) resolveUser(message *tgbotapi.Message) *domain.User {
	from := message.From
	if from == nil {
		return nil
	}

	user, err := b.storage.GetUserByTelegramID(from.ID)
	if err != nil {
		log.Printf("Failed to look up user %d: %v", from.ID, err)
		return nil
	}
	if user != nil {
		return user
	}

	name := strings.TrimSpace(from.FirstName + " " + from.LastName)
	user = &domain.User{TelegramID: from.ID, Name: name, ReminderLead: b.cfg.ReminderLead}
	if err := b.storage.CreateUser(user); err != nil {
		log.Printf("Failed to register user %d: %v", from.ID, err)
		return nil
	}
	log.Printf("Registered new user %s (telegram %d)", name, from.ID)
	return user
}

func (b *Bot) handleCallback(callback *tgbotapi.CallbackQuery) {
	// Ack first so the client stops showing the spinner.
	if _, err := b.api.Request(tgbotapi.NewCallback(callback.ID, "")); err != nil {
		log.Printf("Failed to answer callback: %v", err)
	}
	if callback.Message == nil || callback.From == nil {
		return
	}

	chatID := callback.Message.Chat.ID
	defer b.lockChat(chatID)()

	user, err := b.storage.GetUserByTelegramID(callback.From.ID)
	if err != nil || user == nil {
		return
	}

	data := callback.Data
	switch {
	case strings.HasPrefix(data, "fact:"):
		b.flowPickAction(chatID, user, domain.ActionKind(strings.TrimPrefix(data, "fact:")))
	case strings.HasPrefix(data, "fprov:"):
		b.flowPickProvider(chatID, user, strings.TrimPrefix(data, "fprov:"))
	case strings.HasPrefix(data, "fvar:"):
		b.flowPickVariation(chatID, user, strings.TrimPrefix(data, "fvar:"))
	case strings.HasPrefix(data, "funit:"):
		b.flowPickUnit(chatID, user, strings.TrimPrefix(data, "funit:"))
	case strings.HasPrefix(data, "ffreq:"):
		b.flowPickFrequency(chatID, user, domain.Frequency(strings.TrimPrefix(data, "ffreq:")))
	case data == "fok":
		b.flowConfirm(chatID, user)
	case data == "fcancel":
		b.cancelFlow(chatID)
	case strings.HasPrefix(data, "stoggle:"):
		b.toggleSchedule(chatID, user, strings.TrimPrefix(data, "stoggle:"))
	case strings.HasPrefix(data, "shist:"):
		b.showHistory(chatID, user, strings.TrimPrefix(data, "shist:"))
	case strings.HasPrefix(data, "sdel:"):
		b.confirmDelete(chatID, strings.TrimPrefix(data, "sdel:"))
	case strings.HasPrefix(data, "sdelok:"):
		b.deleteSchedule(chatID, user, strings.TrimPrefix(data, "sdelok:"))
	case strings.HasPrefix(data, "calpick:"):
		b.exportToCalendar(chatID, user, strings.TrimPrefix(data, "calpick:"))
	}
}

// toggleSchedule flips a schedule between running and pause.
func (b *Bot) toggleSchedule(chatID int64, user *domain.User, reference string) {
	sess := b.session(chatID, user)
	if sess == nil {
		return
	}

	updated, err := sess.Schedules.Toggle(reference)
	if err != nil {
		b.SendMessage(chatID, "❌ "+err.Error())
		return
	}

	verb := "▶️ Resumed"
	if updated.CurrentStatus() == domain.StatusPause {
		verb = "⏸ Paused"
	}
	b.SendMessage(chatID, fmt.Sprintf("%s <b>%s</b>", verb, updated.Title))
}

// showHistory prints the payment attempts recorded for one schedule.
func (b *Bot) showHistory(chatID int64, user *domain.User, reference string) {
	sess := b.session(chatID, user)
	if sess == nil {
		return
	}

	entries, err := sess.Schedules.History(reference)
	if err != nil {
		b.SendMessage(chatID, "❌ "+err.Error())
		return
	}
	if len(entries) == 0 {
		b.SendMessage(chatID, "No payment history for this schedule yet.")
		return
	}

	var sb strings.Builder
	sb.WriteString("<b>Payment history</b>\n\n")
	for i, e := range entries {
		if i >= 15 {
			sb.WriteString(fmt.Sprintf("… and %d more\n", len(entries)-i))
			break
		}
		icon := "✅"
		if !strings.EqualFold(e.Status, "success") {
			icon = "⚠️"
		}
		sb.WriteString(fmt.Sprintf("%s %s · %s", icon, e.CreatedAt.Format("2 Jan 15:04"), e.Status))
		if e.Amount != "" {
			sb.WriteString(" · ₦" + e.Amount)
		}
		if e.Message != "" {
			sb.WriteString("\n   " + truncate(e.Message, 80))
		}
		sb.WriteString("\n")
	}
	b.SendMessage(chatID, sb.String())
}

func (b *Bot) confirmDelete(chatID int64, reference string) {
	b.SendMessageWithKeyboard(chatID, "Delete this schedule? This cannot be undone.", deleteConfirmKeyboard(reference))
}

func (b *Bot) deleteSchedule(chatID int64, user *domain.User, reference string) {
	sess := b.session(chatID, user)
	if sess == nil {
		return
	}

	if err := sess.Schedules.Remove(reference); err != nil {
		b.SendMessage(chatID, "❌ "+err.Error())
		return
	}
	log.Printf("Schedule %s deleted by chat %d", reference, chatID)
	b.SendMessage(chatID, "🗑 Schedule deleted.")
}

// exportToCalendar pushes the user's running schedules into the picked
// CalDAV calendar. The index points into the list cached by cmdCalendar,
// because calendar paths do not fit in callback data.
func (b *Bot) exportToCalendar(chatID int64, user *domain.User, rawIndex string) {
	sess := b.session(chatID, user)
	if sess == nil {
		return
	}

	b.mu.Lock()
	calendars := b.calendars[chatID]
	b.mu.Unlock()

	idx, err := strconv.Atoi(rawIndex)
	if err != nil || idx < 0 || idx >= len(calendars) {
		b.SendMessage(chatID, "That calendar list has expired; run /calendar again.")
		return
	}
	calendar := calendars[idx]

	schedules, err := sess.Schedules.List("")
	if err != nil {
		b.SendMessage(chatID, "❌ "+err.Error())
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	result, err := b.calendar.Export(ctx, calendar.Path, schedules)
	if err != nil {
		b.SendMessage(chatID, "❌ Export failed: "+err.Error())
		return
	}

	if err := b.storage.UpdateUserCalendarPath(user.ID, calendar.Path); err != nil {
		log.Printf("Failed to remember calendar for user %d: %v", user.ID, err)
	}

	msg := fmt.Sprintf("📅 Exported %d schedule(s) to <b>%s</b>", result.Exported, calendar.DisplayName)
	if result.Skipped > 0 {
		msg += fmt.Sprintf("\nSkipped %d paused or completed", result.Skipped)
	}
	if len(result.Errors) > 0 {
		msg += fmt.Sprintf("\n⚠️ %d failed", len(result.Errors))
	}
	b.SendMessage(chatID, msg)
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen-3] + "..."
}
