package bot

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"sync"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/abdegenius/cashley-bot/config"
	"github.com/abdegenius/cashley-bot/internal/clients/caldav"
	"github.com/abdegenius/cashley-bot/internal/domain"
	"github.com/abdegenius/cashley-bot/internal/service"
	"github.com/abdegenius/cashley-bot/internal/storage"
)

type Bot struct {
	api      *tgbotapi.BotAPI
	cfg      *config.Config
	storage  *storage.Storage
	sessions *service.Sessions
	calendar *service.CalendarService
	server   *http.Server

	mu        sync.Mutex
	flows     map[int64]*flow             // active guided flows by chat ID
	calendars map[int64][]caldav.Calendar // last discovered calendars by chat ID
	chatLocks map[int64]*sync.Mutex       // per-chat update serialization
}

func New(cfg *config.Config, store *storage.Storage, sessions *service.Sessions, calendarSvc *service.CalendarService) (*Bot, error) {
	api, err := tgbotapi.NewBotAPI(cfg.TelegramToken)
	if err != nil {
		return nil, fmt.Errorf("create bot api: %w", err)
	}

	log.Printf("Authorized as @%s", api.Self.UserName)

	bot := &Bot{
		api:       api,
		cfg:       cfg,
		storage:   store,
		sessions:  sessions,
		calendar:  calendarSvc,
		flows:     make(map[int64]*flow),
		calendars: make(map[int64][]caldav.Calendar),
		chatLocks: make(map[int64]*sync.Mutex),
	}

	bot.setCommands()

	return bot, nil
}

func (b *Bot) setCommands() {
	commands := []tgbotapi.BotCommand{
		{Command: "balance", Description: "💰 Wallet balance"},
		{Command: "send", Description: "💸 Send money"},
		{Command: "buy", Description: "🛒 Buy airtime/data/electricity/TV"},
		{Command: "schedules", Description: "🗓 Recurring payments"},
		{Command: "addschedule", Description: "➕ New recurring payment"},
		{Command: "transactions", Description: "📋 Recent transactions"},
		{Command: "calendar", Description: "📆 Export schedules to calendar"},
		{Command: "help", Description: "❓ Help"},
	}

	cfg := tgbotapi.NewSetMyCommands(commands...)
	if _, err := b.api.Request(cfg); err != nil {
		log.Printf("Failed to set commands: %v", err)
	}
}

func (b *Bot) SetupWebhook() error {
	if !b.cfg.UseWebhook() {
		return nil
	}

	webhookURL := b.cfg.WebhookURL + "/bot"

	wh, err := tgbotapi.NewWebhook(webhookURL)
	if err != nil {
		return fmt.Errorf("create webhook: %w", err)
	}

	if _, err := b.api.Request(wh); err != nil {
		return fmt.Errorf("set webhook: %w", err)
	}

	info, err := b.api.GetWebhookInfo()
	if err != nil {
		return fmt.Errorf("get webhook info: %w", err)
	}
	if info.LastErrorDate != 0 {
		log.Printf("Webhook last error: %s", info.LastErrorMessage)
	}

	log.Printf("Webhook set to: %s", webhookURL)
	return nil
}

func (b *Bot) Start(ctx context.Context) error {
	var updates tgbotapi.UpdatesChannel

	if b.cfg.UseWebhook() {
		updates = b.api.ListenForWebhook("/bot")

		http.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
			w.Write([]byte("ok"))
		})

		b.server = &http.Server{
			Addr:    ":" + b.cfg.ServerPort,
			Handler: nil, // DefaultServeMux
		}

		go func() {
			log.Printf("Starting webhook server on :%s", b.cfg.ServerPort)
			if err := b.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Printf("HTTP server error: %v", err)
			}
		}()
	} else {
		u := tgbotapi.NewUpdate(0)
		u.Timeout = 30
		updates = b.api.GetUpdatesChan(u)
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case update := <-updates:
			go b.handleUpdate(update)
		}
	}
}

func (b *Bot) Stop(ctx context.Context) error {
	if b.server != nil {
		return b.server.Shutdown(ctx)
	}
	b.api.StopReceivingUpdates()
	return nil
}

func (b *Bot) SendMessage(chatID int64, text string) error {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = "HTML"
	_, err := b.api.Send(msg)
	return err
}

func (b *Bot) SendMessageWithKeyboard(chatID int64, text string, keyboard tgbotapi.InlineKeyboardMarkup) error {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = "HTML"
	msg.ReplyMarkup = keyboard
	_, err := b.api.Send(msg)
	return err
}

// lockChat serializes update handling within one chat. Updates run on a
// goroutine each; without this, rapid messages from the same chat would race
// on the chat's flow state.
func (b *Bot) lockChat(chatID int64) func() {
	b.mu.Lock()
	l, ok := b.chatLocks[chatID]
	if !ok {
		l = &sync.Mutex{}
		b.chatLocks[chatID] = l
	}
	b.mu.Unlock()

	l.Lock()
	return l.Unlock
}

// session returns the wallet session for a linked user, or nil plus a prompt
// sent to the chat when the account is not linked yet.
func (b *Bot) session(chatID int64, user *domain.User) *service.Session {
	if user == nil || !user.Linked() {
		b.SendMessage(chatID, "🔗 Link your wallet first: /link YOUR_API_TOKEN")
		return nil
	}
	return b.sessions.For(user)
}
