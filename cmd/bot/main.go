package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/dkravchuk/classroom-deadline-bot/internal/authserver"
	"github.com/dkravchuk/classroom-deadline-bot/internal/config"
	"github.com/dkravchuk/classroom-deadline-bot/internal/handler"
	"github.com/dkravchuk/classroom-deadline-bot/internal/repository"
	"github.com/dkravchuk/classroom-deadline-bot/internal/scheduler"
	"github.com/dkravchuk/classroom-deadline-bot/internal/service"
	"github.com/dkravchuk/classroom-deadline-bot/pkg/classroom"
)

func main() {
	logConfig := zap.NewDevelopmentConfig()
	logConfig.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	logConfig.EncoderConfig.TimeKey = "timestamp"

	logger, err := logConfig.Build()
	if err != nil {
		panic(fmt.Errorf("init logger: %w", err))
	}
	defer logger.Sync()

	zap.ReplaceGlobals(logger)

	if err := godotenv.Load(); err != nil {
		zap.L().Debug("load .env file", zap.Error(err))
	}

	cfg, err := config.Load()
	if err != nil {
		zap.L().Fatal("load config", zap.Error(err))
	}

	repo, err := repository.NewDB(cfg.PostgresDSN(), 10, 20)
	if err != nil {
		zap.L().Error("connect to PostgreSQL", zap.Error(err), zap.String("host", cfg.PostgresHost))
		os.Exit(1)
	}
	defer repo.Close()

	if err = repo.Up(cfg.MigrationsDir); err != nil {
		zap.L().Error("run migrations", zap.Error(err))
		os.Exit(1)
	}

	authService := classroom.NewAuthService(cfg.GoogleClientID, cfg.GoogleClientSecret, cfg.GoogleRedirectURI)
	classroomClient := classroom.NewClient(authService)

	svc := service.NewService(repo, authService, classroomClient)

	bot, err := handler.NewTelegramHandler(cfg.TelegramToken, svc)
	if err != nil {
		zap.L().Error("create telegram handler", zap.Error(err))
		os.Exit(1)
	}

	oauthServer := authserver.New(cfg.OAuthListenAddr, svc)
	go func() {
		if err := oauthServer.Start(); err != nil {
			zap.L().Fatal("oauth callback server", zap.Error(err))
		}
	}()

	sched := scheduler.New(svc, bot, cfg.AutoSyncInterval, cfg.ReminderInterval)
	if err := sched.Start(); err != nil {
		zap.L().Error("start scheduler", zap.Error(err))
		os.Exit(1)
	}
	defer sched.Stop()

	bot.Start()
}
