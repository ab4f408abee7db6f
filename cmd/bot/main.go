package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/abdegenius/cashley-bot/config"
	"github.com/abdegenius/cashley-bot/internal/bot"
	"github.com/abdegenius/cashley-bot/internal/clients/caldav"
	"github.com/abdegenius/cashley-bot/internal/clients/cashley"
	"github.com/abdegenius/cashley-bot/internal/scheduler"
	"github.com/abdegenius/cashley-bot/internal/service"
	"github.com/abdegenius/cashley-bot/internal/storage"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	store, err := storage.New(cfg.DatabasePath)
	if err != nil {
		log.Fatalf("Failed to init storage: %v", err)
	}
	defer store.Close()

	// One unauthenticated base client; sessions clone it per user token.
	api := cashley.NewClient(cfg.APIBaseURL, "")
	sessions := service.NewSessions(api)

	calendarClient := caldav.NewClient(cfg.CalDAVURL, cfg.CalDAVUser, cfg.CalDAVPass)
	calendarSvc := service.NewCalendarService(calendarClient)

	tgBot, err := bot.New(cfg, store, sessions, calendarSvc)
	if err != nil {
		log.Fatalf("Failed to init bot: %v", err)
	}

	if err := tgBot.SetupWebhook(); err != nil {
		log.Fatalf("Failed to setup webhook: %v", err)
	}

	sched := scheduler.New(cfg, store, sessions)
	sched.SetSender(tgBot)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		if err := sched.Start(ctx); err != nil {
			log.Printf("Scheduler error: %v", err)
		}
	}()

	go func() {
		if err := tgBot.Start(ctx); err != nil {
			log.Printf("Bot error: %v", err)
		}
	}()

	log.Println("CashleyBot started")

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	log.Println("Shutting down...")

	cancel()
	sched.Stop()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := tgBot.Stop(shutdownCtx); err != nil {
		log.Printf("Error stopping bot: %v", err)
	}

	log.Println("CashleyBot stopped")
}
