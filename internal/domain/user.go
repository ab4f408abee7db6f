package domain

import "time"

// User is a Telegram user known to the bot. APIToken is the bearer token for
// the wallet API, supplied via /link; an empty token means the account is not
// linked yet.
type User struct {
	ID           int64
	TelegramID   int64
	Name         string
	APIToken     string
	ReminderLead int    // minutes before a scheduled payment to notify (0 = off)
	CalendarPath string // CalDAV calendar used for schedule export
	CreatedAt    time.Time
}

// Linked reports whether the user has a wallet API token.
func (u *User) Linked() bool {
	return u.APIToken != ""
}
