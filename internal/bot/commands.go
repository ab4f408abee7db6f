package bot

import (
	"context"
	"fmt"
	"log"
	"strconv"
	"strings"
	"time"

	"github.com/abdegenius/cashley-bot/internal/domain"
	"github.com/abdegenius/cashley-bot/internal/service"
)

func (b *Bot) handleCommand(chatID int64, user *domain.User, command, args string) {
	switch command {
	case "start":
		b.cmdStart(chatID, user)
	case "help":
		b.cmdHelp(chatID)
	case "link":
		b.cmdLink(chatID, user, args)
	case "unlink":
		b.cmdUnlink(chatID, user)
	case "balance":
		b.cmdBalance(chatID, user)
	case "send":
		b.cmdSend(chatID, user, args)
	case "buy":
		b.startFlow(chatID, user, flowPurchase, "")
	case "airtime":
		b.startFlow(chatID, user, flowPurchase, domain.ActionAirtime)
	case "data":
		b.startFlow(chatID, user, flowPurchase, domain.ActionData)
	case "electricity":
		b.startFlow(chatID, user, flowPurchase, domain.ActionElectricity)
	case "tv":
		b.startFlow(chatID, user, flowPurchase, domain.ActionTV)
	case "schedules":
		b.cmdSchedules(chatID, user, args)
	case "addschedule":
		b.startFlow(chatID, user, flowSchedule, "")
	case "transactions":
		b.cmdTransactions(chatID, user)
	case "calendar":
		b.cmdCalendar(chatID, user)
	case "reminders":
		b.cmdReminders(chatID, user, args)
	case "refresh":
		b.cmdRefresh(chatID, user)
	case "cancel":
		b.cancelFlow(chatID)
	default:
		b.SendMessage(chatID, "Unknown command. Use /help to see what I can do.")
	}
}

func (b *Bot) cmdStart(chatID int64, user *domain.User) {
	msg := fmt.Sprintf("👋 Hi %s!\n\nI manage your Cashley wallet: buy airtime, data, electricity and TV, "+
		"move money, and keep recurring bill payments on schedule.", user.Name)
	if !user.Linked() {
		msg += "\n\nFirst, link your account:\n<code>/link YOUR_API_TOKEN</code>\n\nYou can find the token in the Cashley app under Settings → API."
	} else {
		msg += "\n\nYou're all set. Try /balance or /schedules."
	}
	b.SendMessage(chatID, msg)
}

func (b *Bot) cmdHelp(chatID int64) {
	b.SendMessage(chatID, `<b>Wallet</b>
/balance - wallet balance
/send @tag amount [note] - transfer to another user
/transactions - recent activity

<b>Bills</b>
/buy - guided purchase
/airtime /data /electricity /tv - jump straight to one service

<b>Schedules</b>
/schedules [airtime|data|electricity|tv] - list and manage
/addschedule - create a recurring payment
/calendar - export schedules to your calendar
/reminders &lt;minutes&gt; - how early to remind you before a run
/refresh - re-fetch schedules from the server

<b>Account</b>
/link &lt;token&gt; - connect your Cashley account
/unlink - disconnect
/cancel - abort the current flow`)
}

func (b *Bot) cmdLink(chatID int64, user *domain.User, args string) {
	token := strings.TrimSpace(args)
	if token == "" {
		b.SendMessage(chatID, "Usage: <code>/link YOUR_API_TOKEN</code>")
		return
	}

	if err := b.storage.UpdateUserToken(user.ID, token); err != nil {
		log.Printf("Failed to store token for user %d: %v", user.ID, err)
		b.SendMessage(chatID, "❌ Could not save your token, try again.")
		return
	}
	b.sessions.Drop(user.ID)
	user.APIToken = token

	// Verify the token right away so a typo fails loudly.
	sess := b.sessions.For(user)
	wallet, err := sess.Wallet.Balance()
	if err != nil {
		b.SendMessage(chatID, "⚠️ Token saved, but it was rejected by the server: "+err.Error())
		return
	}
	log.Printf("User %d linked account @%s", user.ID, wallet.Tag)
	b.SendMessage(chatID, fmt.Sprintf("✅ Linked as <b>@%s</b>. Try /balance or /schedules.", wallet.Tag))
}

func (b *Bot) cmdUnlink(chatID int64, user *domain.User) {
	if err := b.storage.UpdateUserToken(user.ID, ""); err != nil {
		b.SendMessage(chatID, "❌ Could not unlink, try again.")
		return
	}
	b.sessions.Drop(user.ID)
	b.SendMessage(chatID, "Your account has been disconnected.")
}

func (b *Bot) cmdBalance(chatID int64, user *domain.User) {
	sess := b.session(chatID, user)
	if sess == nil {
		return
	}

	wallet, err := sess.Wallet.Balance()
	if err != nil {
		b.SendMessage(chatID, "❌ "+err.Error())
		return
	}
	b.SendMessage(chatID, fmt.Sprintf("💰 <b>%s</b>\n@%s", service.FormatAmount(wallet.Balance, wallet.Currency), wallet.Tag))
}

func (b *Bot) cmdSend(chatID int64, user *domain.User, args string) {
	sess := b.session(chatID, user)
	if sess == nil {
		return
	}

	parts := strings.Fields(args)
	if len(parts) < 2 {
		b.SendMessage(chatID, "Usage: <code>/send @tag amount [note]</code>")
		return
	}
	tag, amount := parts[0], parts[1]
	narration := strings.Join(parts[2:], " ")

	tx, err := sess.Wallet.Send(tag, amount, narration)
	if err != nil {
		b.SendMessage(chatID, "❌ "+err.Error())
		return
	}
	b.SendMessage(chatID, fmt.Sprintf("✅ Sent to <b>%s</b>\nReference: <code>%s</code>", tag, tx.Reference))
}

func (b *Bot) cmdSchedules(chatID int64, user *domain.User, args string) {
	sess := b.session(chatID, user)
	if sess == nil {
		return
	}

	action := domain.ActionKind(strings.ToLower(strings.TrimSpace(args)))
	if action != "" && !action.Valid() {
		b.SendMessage(chatID, "Usage: <code>/schedules [airtime|data|electricity|tv]</code>")
		return
	}

	schedules, err := sess.Schedules.List(action)
	if err != nil {
		b.SendMessage(chatID, "❌ "+err.Error())
		return
	}
	if len(schedules) == 0 {
		b.SendMessage(chatID, "No schedules yet. Create one with /addschedule.")
		return
	}

	b.SendMessage(chatID, fmt.Sprintf("📋 <b>Your schedules</b> (%d)", len(schedules)))
	for _, sched := range schedules {
		b.SendMessageWithKeyboard(chatID, formatSchedule(sched), scheduleKeyboard(sched))
	}
}

func formatSchedule(sched domain.Schedule) string {
	status := "▶️ running"
	switch sched.CurrentStatus() {
	case domain.StatusPause:
		status = "⏸ paused"
	case domain.StatusRunning:
	default:
		status = string(sched.CurrentStatus())
	}

	msg := fmt.Sprintf("%s <b>%s</b>\nEvery %s · %s · %s",
		actionEmoji(sched.Action), sched.Title, sched.IntervalLabel(), sched.Frequency, status)
	if r := sched.Recipient(); r != "" {
		msg += fmt.Sprintf("\n%s: %s", sched.Action.RecipientLabel(), r)
	}
	if a := sched.Amount(); a != "" {
		msg += "\nAmount: ₦" + a
	}
	if next := sched.NextRun(); !next.IsZero() && sched.CurrentStatus() == domain.StatusRunning {
		msg += "\nNext run: " + next.Format("Mon, 2 Jan 15:04")
	}
	return msg
}

func (b *Bot) cmdTransactions(chatID int64, user *domain.User) {
	sess := b.session(chatID, user)
	if sess == nil {
		return
	}

	txs, err := sess.Wallet.RecentTransactions(10)
	if err != nil {
		b.SendMessage(chatID, "❌ "+err.Error())
		return
	}
	if len(txs) == 0 {
		b.SendMessage(chatID, "No transactions yet.")
		return
	}

	var sb strings.Builder
	sb.WriteString("🧾 <b>Recent transactions</b>\n\n")
	for _, tx := range txs {
		icon := "➖"
		if strings.EqualFold(tx.Type, "credit") {
			icon = "➕"
		}
		sb.WriteString(fmt.Sprintf("%s ₦%s · %s", icon, tx.Amount, tx.Status))
		if tx.Narration != "" {
			sb.WriteString(" · " + truncate(tx.Narration, 40))
		}
		sb.WriteString("\n")
	}
	b.SendMessage(chatID, sb.String())
}

func (b *Bot) cmdCalendar(chatID int64, user *domain.User) {
	if b.session(chatID, user) == nil {
		return
	}
	if !b.calendar.IsConfigured() {
		b.SendMessage(chatID, "Calendar export is not configured on this bot. Set CALDAV_URL, CALDAV_USERNAME and CALDAV_PASSWORD.")
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	calendars, err := b.calendar.DiscoverCalendars(ctx)
	if err != nil {
		b.SendMessage(chatID, "❌ Could not reach the calendar server: "+err.Error())
		return
	}
	if len(calendars) == 0 {
		b.SendMessage(chatID, "No calendars found on the server.")
		return
	}

	b.mu.Lock()
	b.calendars[chatID] = calendars
	b.mu.Unlock()

	b.SendMessageWithKeyboard(chatID, "Which calendar should hold your schedules?", calendarKeyboard(calendars))
}

func (b *Bot) cmdReminders(chatID int64, user *domain.User, args string) {
	args = strings.TrimSpace(args)
	if args == "" {
		b.SendMessage(chatID, fmt.Sprintf("I remind you <b>%d minutes</b> before a schedule runs.\nChange it: <code>/reminders 60</code>", user.ReminderLead))
		return
	}

	minutes, err := strconv.Atoi(args)
	if err != nil || minutes < 1 || minutes > 1440 {
		b.SendMessage(chatID, "Give me a number of minutes between 1 and 1440.")
		return
	}

	if err := b.storage.UpdateUserReminderLead(user.ID, minutes); err != nil {
		b.SendMessage(chatID, "❌ Could not save that, try again.")
		return
	}
	b.SendMessage(chatID, fmt.Sprintf("⏰ I'll remind you %d minutes before each run.", minutes))
}

func (b *Bot) cmdRefresh(chatID int64, user *domain.User) {
	sess := b.session(chatID, user)
	if sess == nil {
		return
	}

	schedules, err := sess.Schedules.Refresh("")
	if err != nil {
		b.SendMessage(chatID, "❌ "+err.Error())
		return
	}
	b.SendMessage(chatID, fmt.Sprintf("🔄 Refreshed, %d schedule(s) on the server.", len(schedules)))
}
