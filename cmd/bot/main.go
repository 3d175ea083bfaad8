package main

import (
	"context"
	"errors"
	"log"
	"os/signal"
	"syscall"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/velvetlab/nightwhisper/internal/admin"
	"github.com/velvetlab/nightwhisper/internal/config"
	"github.com/velvetlab/nightwhisper/internal/database"
	"github.com/velvetlab/nightwhisper/internal/groq"
	"github.com/velvetlab/nightwhisper/internal/repository"
	"github.com/velvetlab/nightwhisper/internal/service"
	"github.com/velvetlab/nightwhisper/internal/session"
	"github.com/velvetlab/nightwhisper/internal/telegram"
	"github.com/velvetlab/nightwhisper/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	logr := logger.New()

	db, err := database.Connect(cfg.SQLitePath)
	if err != nil {
		log.Fatalf("database connect: %v", err)
	}
	defer db.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := database.Migrate(ctx, db); err != nil {
		log.Fatalf("database migrate: %v", err)
	}

	botAPI, err := tgbotapi.NewBotAPI(cfg.BotToken)
	if err != nil {
		log.Fatalf("telegram bot: %v", err)
	}

	groqClient := groq.NewClient(cfg, logr)

	userRepo := repository.NewUserRepository(db)
	sessionRepo := repository.NewSessionRepository(db)
	conversationRepo := repository.NewConversationRepository(db)
	referralRepo := repository.NewReferralRepository(db)
	paymentRepo := repository.NewPaymentRepository(db)
	eventRepo := repository.NewEventRepository(db)

	sessions := session.NewManager(cfg.SessionDuration, cfg.HistoryDepth)

	userService := service.NewUserService(userRepo, cfg.TrialDays)
	accessService := service.NewAccessService(userRepo, sessions)
	quotaService := service.NewQuotaService(userRepo, cfg.FreeMessagesPerDay)
	chatService := service.NewChatService(logr, groqClient, sessions, conversationRepo, eventRepo)
	referralService := service.NewReferralService(referralRepo, userRepo, cfg.BotUsername, cfg.ReferralBonus)
	paymentService := service.NewPaymentService(cfg, paymentRepo, userRepo, sessionRepo, sessions, referralService, eventRepo)
	statsService := service.NewStatsService(eventRepo)

	bot := telegram.NewBot(cfg, botAPI, logr, userService, accessService, quotaService, chatService, referralService, paymentService, statsService, sessions, sessionRepo)

	adminServer := admin.NewServer(cfg.AdminListenAddr, cfg.AdminUsername, cfg.AdminPassword, logr, userService, statsService, bot)
	go func() {
		if err := adminServer.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			logr.Error("admin server stopped", "err", err)
		}
	}()

	if err := bot.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logr.Error("bot stopped", "err", err)
	}
}
