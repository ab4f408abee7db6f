package bot

import (
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/abdegenius/cashley-bot/internal/clients/caldav"
	"github.com/abdegenius/cashley-bot/internal/clients/cashley"
	"github.com/abdegenius/cashley-bot/internal/domain"
)

func actionEmoji(action domain.ActionKind) string {
	switch action {
	case domain.ActionAirtime:
		return "📱"
	case domain.ActionData:
		return "🌐"
	case domain.ActionElectricity:
		return "⚡️"
	case domain.ActionTV:
		return "📺"
	}
	return "💳"
}

func actionKeyboard() tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("📱 Airtime", "fact:airtime"),
			tgbotapi.NewInlineKeyboardButtonData("🌐 Data", "fact:data"),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("⚡️ Electricity", "fact:electricity"),
			tgbotapi.NewInlineKeyboardButtonData("📺 TV", "fact:tv"),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("✖️ Cancel", "fcancel"),
		),
	)
}

func providerKeyboard(providers []cashley.BillService) tgbotapi.InlineKeyboardMarkup {
	var rows [][]tgbotapi.InlineKeyboardButton
	for _, p := range providers {
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(truncate(p.Name, 40), "fprov:"+p.ServiceID),
		))
	}
	rows = append(rows, tgbotapi.NewInlineKeyboardRow(
		tgbotapi.NewInlineKeyboardButtonData("✖️ Cancel", "fcancel"),
	))
	return tgbotapi.NewInlineKeyboardMarkup(rows...)
}

func variationKeyboard(variations []cashley.Variation) tgbotapi.InlineKeyboardMarkup {
	var rows [][]tgbotapi.InlineKeyboardButton
	for _, v := range variations {
		label := fmt.Sprintf("%s · ₦%s", truncate(v.Name, 30), v.VariationAmount)
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(label, "fvar:"+v.VariationCode),
		))
	}
	rows = append(rows, tgbotapi.NewInlineKeyboardRow(
		tgbotapi.NewInlineKeyboardButtonData("✖️ Cancel", "fcancel"),
	))
	return tgbotapi.NewInlineKeyboardMarkup(rows...)
}

func unitKeyboard() tgbotapi.InlineKeyboardMarkup {
	var rows [][]tgbotapi.InlineKeyboardButton
	var row []tgbotapi.InlineKeyboardButton
	for _, unit := range domain.IntervalUnits {
		row = append(row, tgbotapi.NewInlineKeyboardButtonData(unit, "funit:"+unit))
		if len(row) == 3 {
			rows = append(rows, tgbotapi.NewInlineKeyboardRow(row...))
			row = nil
		}
	}
	if len(row) > 0 {
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(row...))
	}
	return tgbotapi.NewInlineKeyboardMarkup(rows...)
}

func frequencyKeyboard() tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("🔁 Repeat", "ffreq:repeat"),
			tgbotapi.NewInlineKeyboardButtonData("1️⃣ Once", "ffreq:once"),
		),
	)
}

func confirmKeyboard() tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("✅ Confirm", "fok"),
			tgbotapi.NewInlineKeyboardButtonData("✖️ Cancel", "fcancel"),
		),
	)
}

// scheduleKeyboard offers a pause/resume button only for states the server
// lets the client flip.
func scheduleKeyboard(sched domain.Schedule) tgbotapi.InlineKeyboardMarkup {
	var row []tgbotapi.InlineKeyboardButton
	if status := sched.CurrentStatus(); status.Togglable() {
		label := "⏸ Pause"
		if status == domain.StatusPause {
			label = "▶️ Resume"
		}
		row = append(row, tgbotapi.NewInlineKeyboardButtonData(label, "stoggle:"+sched.Reference))
	}
	row = append(row,
		tgbotapi.NewInlineKeyboardButtonData("🧾 History", "shist:"+sched.Reference),
		tgbotapi.NewInlineKeyboardButtonData("🗑 Delete", "sdel:"+sched.Reference),
	)
	return tgbotapi.NewInlineKeyboardMarkup(tgbotapi.NewInlineKeyboardRow(row...))
}

func deleteConfirmKeyboard(reference string) tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("🗑 Yes, delete", "sdelok:"+reference),
			tgbotapi.NewInlineKeyboardButtonData("✖️ Keep it", "fcancel"),
		),
	)
}

// Calendar paths exceed Telegram's 64-byte callback limit, so buttons carry
// an index into the list cached on the bot.
func calendarKeyboard(calendars []caldav.Calendar) tgbotapi.InlineKeyboardMarkup {
	var rows [][]tgbotapi.InlineKeyboardButton
	for i, c := range calendars {
		name := c.DisplayName
		if name == "" {
			name = c.Path
		}
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("📅 "+truncate(name, 40), fmt.Sprintf("calpick:%d", i)),
		))
	}
	return tgbotapi.NewInlineKeyboardMarkup(rows...)
}
