package storage

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/abdegenius/cashley-bot/internal/domain"

	_ "github.com/mattn/go-sqlite3"
)

// Storage is the bot's local sqlite database. It holds only what is genuinely
// client-local: Telegram users and their wallet API tokens, per-user
// settings, and the sent-reminder log. Schedules themselves are never
// persisted here; the wallet API is their source of truth.
type Storage struct {
	db *sql.DB
}

func New(dbPath string) (*Storage, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create db dir: %w", err)
	}

	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("ping db: %w", err)
	}

	s := &Storage{db: db}
	if err := s.migrate(); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}

	return s, nil
}

func (s *Storage) Close() error {
	return s.db.Close()
}

func (s *Storage) migrate() error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS users (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			telegram_id INTEGER UNIQUE NOT NULL,
			name TEXT NOT NULL,
			api_token TEXT NOT NULL DEFAULT '',
			reminder_lead INTEGER NOT NULL DEFAULT 30,
			calendar_path TEXT NOT NULL DEFAULT '',
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE TABLE IF NOT EXISTS sent_reminders (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			user_id INTEGER NOT NULL,
			reference TEXT NOT NULL,
			run_at DATETIME NOT NULL,
			sent_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			FOREIGN KEY (user_id) REFERENCES users(id),
			UNIQUE (user_id, reference, run_at)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_sent_reminders_user_id ON sent_reminders(user_id)`,
	}

	for _, m := range migrations {
		if _, err := s.db.Exec(m); err != nil {
			return fmt.Errorf("exec migration: %w", err)
		}
	}
	return nil
}

func (s *Storage) CreateUser(user *domain.User) error {
	res, err := s.db.Exec(
		`INSERT INTO users (telegram_id, name, api_token, reminder_lead) VALUES (?, ?, ?, ?)`,
		user.TelegramID, user.Name, user.APIToken, user.ReminderLead,
	)
	if err != nil {
		return fmt.Errorf("insert user: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("last insert id: %w", err)
	}
	user.ID = id
	return nil
}

func (s *Storage) GetUserByTelegramID(telegramID int64) (*domain.User, error) {
	row := s.db.QueryRow(
		`SELECT id, telegram_id, name, api_token, reminder_lead, calendar_path, created_at
		 FROM users WHERE telegram_id = ?`, telegramID)
	return scanUser(row)
}

func (s *Storage) GetUserByID(id int64) (*domain.User, error) {
	row := s.db.QueryRow(
		`SELECT id, telegram_id, name, api_token, reminder_lead, calendar_path, created_at
		 FROM users WHERE id = ?`, id)
	return scanUser(row)
}

// ListLinkedUsers returns every user with a wallet API token.
func (s *Storage) ListLinkedUsers() ([]*domain.User, error) {
	rows, err := s.db.Query(
		`SELECT id, telegram_id, name, api_token, reminder_lead, calendar_path, created_at
		 FROM users WHERE api_token != '' ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("query users: %w", err)
	}
	defer rows.Close()

	var users []*domain.User
	for rows.Next() {
		user, err := scanUserRows(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, user)
	}
	return users, rows.Err()
}

func (s *Storage) UpdateUserToken(id int64, token string) error {
	_, err := s.db.Exec(`UPDATE users SET api_token = ? WHERE id = ?`, token, id)
	if err != nil {
		return fmt.Errorf("update token: %w", err)
	}
	return nil
}

func (s *Storage) UpdateUserReminderLead(id int64, minutes int) error {
	_, err := s.db.Exec(`UPDATE users SET reminder_lead = ? WHERE id = ?`, minutes, id)
	if err != nil {
		return fmt.Errorf("update reminder lead: %w", err)
	}
	return nil
}

func (s *Storage) UpdateUserCalendarPath(id int64, path string) error {
	_, err := s.db.Exec(`UPDATE users SET calendar_path = ? WHERE id = ?`, path, id)
	if err != nil {
		return fmt.Errorf("update calendar path: %w", err)
	}
	return nil
}

// WasReminderSent reports whether a reminder for this run of the schedule was
// already delivered.
func (s *Storage) WasReminderSent(userID int64, reference string, runAt time.Time) (bool, error) {
	var count int
	err := s.db.QueryRow(
		`SELECT COUNT(*) FROM sent_reminders WHERE user_id = ? AND reference = ? AND run_at = ?`,
		userID, reference, runAt.UTC(),
	).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("query sent reminders: %w", err)
	}
	return count > 0, nil
}

func (s *Storage) MarkReminderSent(userID int64, reference string, runAt time.Time) error {
	_, err := s.db.Exec(
		`INSERT OR IGNORE INTO sent_reminders (user_id, reference, run_at) VALUES (?, ?, ?)`,
		userID, reference, runAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("insert sent reminder: %w", err)
	}
	return nil
}

// PruneSentReminders drops reminder rows older than the cutoff.
func (s *Storage) PruneSentReminders(before time.Time) error {
	_, err := s.db.Exec(`DELETE FROM sent_reminders WHERE sent_at < ?`, before.UTC())
	if err != nil {
		return fmt.Errorf("prune sent reminders: %w", err)
	}
	return nil
}

func scanUser(row *sql.Row) (*domain.User, error) {
	var user domain.User
	err := row.Scan(&user.ID, &user.TelegramID, &user.Name, &user.APIToken,
		&user.ReminderLead, &user.CalendarPath, &user.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scan user: %w", err)
	}
	return &user, nil
}

func scanUserRows(rows *sql.Rows) (*domain.User, error) {
	var user domain.User
	err := rows.Scan(&user.ID, &user.TelegramID, &user.Name, &user.APIToken,
		&user.ReminderLead, &user.CalendarPath, &user.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("scan user: %w", err)
	}
	return &user, nil
}
