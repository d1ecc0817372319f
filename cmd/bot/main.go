package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"
	_ "time/tzdata" // DAILY_BROADCAST_TIMEZONE must resolve on minimal images

	"friend_broadcast_bot/internal/app"
	"friend_broadcast_bot/internal/infra/config"
	idb "friend_broadcast_bot/internal/infra/database"
	"friend_broadcast_bot/internal/infra/logger"
	"friend_broadcast_bot/internal/infra/scheduler"
	"friend_broadcast_bot/internal/infra/telegram"

	"github.com/sirupsen/logrus"
	"gopkg.in/telebot.v3"
)

const shutdownTimeout = 30 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		logrus.Fatalf("Could not load application configuration: %v", err)
	}
	logger.Init(cfg)
	mainLogger := logger.Component("main")

	mainLogger.WithFields(logrus.Fields{
		"log_level":   cfg.LogLevel,
		"environment": cfg.Environment,
		"admin_id":    cfg.AdminTelegramID,
	}).Info("Configuration loaded")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Database
	db, err := idb.NewPostgresConnection(cfg.DatabaseURL)
	if err != nil {
		mainLogger.WithError(err).Fatal("Could not connect to database")
	}
	defer db.Close()
	if err := idb.EnsureSchema(ctx, db); err != nil {
		mainLogger.WithError(err).Fatal("Could not prepare database schema")
	}
	mainLogger.Info("Database connection established successfully.")

	friendRepo := idb.NewPostgresFriendRepository(db)
	adminService := app.NewAdminService(friendRepo, cfg.AdminTelegramID)
	subscriptionService := app.NewSubscriptionService(friendRepo)

	// Telegram bot
	pref := telebot.Settings{
		Token:  cfg.TelegramToken,
		Poller: &telebot.LongPoller{Timeout: 10 * time.Second},
		OnError: func(err error, c telebot.Context) {
			entry := logger.Component("telebot").WithError(err)
			if c != nil && c.Sender() != nil && c.Chat() != nil {
				entry = entry.WithFields(logrus.Fields{
					"text":      c.Text(),
					"sender_id": c.Sender().ID,
					"chat_id":   c.Chat().ID,
				})
			}
			entry.Error("Telegram handler error")
		},
	}
	bot, err := telebot.NewBot(pref)
	if err != nil {
		mainLogger.WithError(err).Fatal("Could not create Telegram bot")
	}
	telegramClient := telegram.NewTelebotAdapter(bot, cfg.TelegramSendRate)

	// Broadcasts
	message, err := buildMessage(cfg)
	if err != nil {
		mainLogger.WithError(err).Fatal("Invalid BROADCAST_MESSAGE")
	}
	schedulers, err := buildSchedulers(cfg, friendRepo, telegramClient, message)
	if err != nil {
		mainLogger.WithError(err).Fatal("Invalid broadcast configuration")
	}
	if len(schedulers) == 0 {
		mainLogger.Warn("No broadcast is enabled; the bot will only manage subscriptions")
	}

	reporters := make([]telegram.StatusReporter, 0, len(schedulers))
	for _, s := range schedulers {
		reporters = append(reporters, s)
	}

	// Handlers
	handlerLogger := logger.Component("telegram")
	telegram.RegisterSubscriptionHandlers(ctx, bot, subscriptionService, handlerLogger)
	telegram.RegisterAdminHandlers(ctx, bot, adminService, reporters, handlerLogger)
	telegram.RegisterBotCommands(ctx, bot, adminService, subscriptionService, handlerLogger)
	mainLogger.Info("Command handlers registered.")

	for _, s := range schedulers {
		s.Start()
	}
	go bot.Start()
	mainLogger.Info("Application setup complete. Bot and broadcasts are running.")

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	mainLogger.Info("Shutting down application...")
	for _, s := range schedulers {
		go s.Stop()
	}
	// A hanging send keeps its loop alive; do not wait for it forever.
	stopCtx, stopCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	for _, s := range schedulers {
		select {
		case <-s.Done():
		case <-stopCtx.Done():
			mainLogger.Warn("Broadcast did not stop in time, exiting anyway")
		}
	}
	stopCancel()
	bot.Stop()
	cancel()
	mainLogger.Info("Application shut down gracefully.")
}

func buildMessage(cfg *config.AppConfig) (app.Message, error) {
	text := cfg.MessageTemplate
	if text == "" {
		text = app.DefaultMessageTemplate
	}
	return app.NewTemplateMessage(text, cfg.Daily.Location)
}

func buildSchedulers(cfg *config.AppConfig, repo *idb.PostgresFriendRepository, client *telegram.TelebotAdapter, message app.Message) ([]*scheduler.BroadcastScheduler, error) {
	var schedulers []*scheduler.BroadcastScheduler
	clock := app.RealClock()
	broadcastLogger := logger.Component("broadcast")

	if cfg.Daily.Enabled {
		policy, err := scheduler.NewTimeOfDay(cfg.Daily.Time, cfg.Daily.Location, cfg.Daily.PollInterval, cfg.Daily.Cooldown)
		if err != nil {
			return nil, err
		}
		dispatcher := app.NewDispatcher("daily", repo, client, message, cfg.FriendDelay, clock, broadcastLogger)
		schedulers = append(schedulers, scheduler.NewBroadcastScheduler("daily", dispatcher, policy, clock, broadcastLogger))
	}

	if cfg.Interval.Enabled {
		policy, err := scheduler.NewFixedInterval(cfg.Interval.Every)
		if err != nil {
			return nil, err
		}
		dispatcher := app.NewDispatcher("interval", repo, client, message, cfg.FriendDelay, clock, broadcastLogger)
		schedulers = append(schedulers, scheduler.NewBroadcastScheduler("interval", dispatcher, policy, clock, broadcastLogger))
	}

	return schedulers, nil
}
