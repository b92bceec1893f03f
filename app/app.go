// Package app assembles the bot from its parts.
package app

import (
	"context"
	"fmt"
	"net/http"

	"github.com/ydb-platform/ydb-go-sdk/v3"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/StartupEmbassy/AgencyAtlas/bot"
	"github.com/StartupEmbassy/AgencyAtlas/config"
	"github.com/StartupEmbassy/AgencyAtlas/logger"
	"github.com/StartupEmbassy/AgencyAtlas/repository"
	ydbdriver "github.com/StartupEmbassy/AgencyAtlas/repository/ydb"
	"github.com/StartupEmbassy/AgencyAtlas/session"
	"github.com/StartupEmbassy/AgencyAtlas/storage"
	"github.com/StartupEmbassy/AgencyAtlas/urlcheck"
	"github.com/StartupEmbassy/AgencyAtlas/vision"
)

type App struct {
	db  *ydb.Driver
	Bot *bot.TBot
	Log *zap.Logger
}

func New(ctx context.Context) (*App, error) {
	log, err := logger.New()
	if err != nil {
		return nil, err
	}
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}

	driver, err := ydbdriver.NewDriver(ctx, cfg.YDB.Endpoint, log)
	if err != nil {
		return nil, fmt.Errorf("ydb: %w", err)
	}
	users := repository.NewUserRepository(driver, log.Named("users"))
	estates := repository.NewRealEstateRepository(driver, log.Named("realEstate"))

	httpClient := &http.Client{Timeout: cfg.Rules.HTTPTimeout}
	photos := storage.NewClient(cfg.Storage.URL, cfg.Storage.Key, cfg.Storage.Bucket, httpClient, log.Named("storage"))

	gemini := vision.NewGemini(cfg.Vision.GeminiAPIKey, httpClient)
	groq := vision.NewGroq(cfg.Vision.GroqAPIKey, httpClient)
	analyzer := vision.NewAnalyzer(gemini, groq, log.Named("vision"))
	checker := urlcheck.New(httpClient, groq, cfg.Rules.QRMinLength, log.Named("urlcheck"))

	tBot, err := bot.New(cfg, log, users, estates, photos, analyzer, checker, session.NewStore())
	if err != nil {
		return nil, fmt.Errorf("bot: %w", err)
	}

	// mirror errors into the admin chat once the bot can send
	if cfg.Telegram.AdminLogChatID != 0 {
		mirror := logger.NewTelegramCore(zapcore.ErrorLevel, tBot.Bot, cfg.Telegram.AdminLogChatID)
		log = log.WithOptions(zap.WrapCore(func(core zapcore.Core) zapcore.Core {
			return zapcore.NewTee(core, mirror)
		}))
	}
	log.Info("application wired")
	return &App{db: driver, Bot: tBot, Log: log}, nil
}

func (a *App) Close(ctx context.Context) {
	if err := a.db.Close(ctx); err != nil {
		a.Log.Warn("closing ydb", zap.Error(err))
	}
	_ = a.Log.Sync()
}
