package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	TelegramToken string
	APIBaseURL    string
	DatabasePath  string
	Timezone      *time.Location
	MorningTime   string
	WebhookURL    string
	ServerPort    string
	ReminderLead  int // default minutes before a scheduled payment to notify
	CalDAVURL     string
	CalDAVUser    string
	CalDAVPass    string
}

func Load() (*Config, error) {
	// Optional .env for local runs; deployments set the environment directly
	_ = godotenv.Load()

	token := os.Getenv("TELEGRAM_BOT_TOKEN")
	if token == "" {
		return nil, fmt.Errorf("TELEGRAM_BOT_TOKEN is required")
	}

	apiURL := os.Getenv("CASHLEY_API_URL")
	if apiURL == "" {
		apiURL = "https://api.cashley.app/api"
	}

	dbPath := os.Getenv("DATABASE_PATH")
	if dbPath == "" {
		dbPath = "./data/cashleybot.db"
	}

	tzName := os.Getenv("TIMEZONE")
	if tzName == "" {
		tzName = "Africa/Lagos"
	}
	tz, err := time.LoadLocation(tzName)
	if err != nil {
		return nil, fmt.Errorf("invalid TIMEZONE: %w", err)
	}

	morningTime := os.Getenv("MORNING_TIME")
	if morningTime == "" {
		morningTime = "08:00"
	}

	serverPort := os.Getenv("SERVER_PORT")
	if serverPort == "" {
		serverPort = "8080"
	}

	reminderLead := 30
	if v := os.Getenv("REMINDER_LEAD_MINUTES"); v != "" {
		lead, err := strconv.Atoi(v)
		if err != nil || lead < 0 {
			return nil, fmt.Errorf("REMINDER_LEAD_MINUTES must be a non-negative number")
		}
		reminderLead = lead
	}

	return &Config{
		TelegramToken: token,
		APIBaseURL:    apiURL,
		DatabasePath:  dbPath,
		Timezone:      tz,
		MorningTime:   morningTime,
		WebhookURL:    os.Getenv("WEBHOOK_URL"),
		ServerPort:    serverPort,
		ReminderLead:  reminderLead,
		CalDAVURL:     os.Getenv("CALDAV_URL"),
		CalDAVUser:    os.Getenv("CALDAV_USERNAME"),
		CalDAVPass:    os.Getenv("CALDAV_PASSWORD"),
	}, nil
}

// UseWebhook reports whether the bot should receive updates via webhook
// instead of long polling.
func (c *Config) UseWebhook() bool {
	return c.WebhookURL != ""
}
