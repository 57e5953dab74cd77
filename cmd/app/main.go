// File: cmd/app/main.go
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"

	"negotiation-agent/internal/application"
	"negotiation-agent/internal/config"
	"negotiation-agent/internal/domain/ports/repository"
	tele "negotiation-agent/internal/infra/adapters/telegram"
	"negotiation-agent/internal/infra/api"
	"negotiation-agent/internal/infra/db/memory"
	pg "negotiation-agent/internal/infra/db/postgres"
	"negotiation-agent/internal/infra/i18n"
	"negotiation-agent/internal/infra/logging"
	"negotiation-agent/internal/infra/metrics"
	red "negotiation-agent/internal/infra/redis"
	"negotiation-agent/internal/infra/scheduler"
	"negotiation-agent/internal/infra/worker"
	"negotiation-agent/internal/usecase"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	// ---- CLI flags ----
	cfgPath := flag.String("config", "config.yaml", "path to YAML config file")
	devMode := flag.Bool("dev", false, "developer mode: console logs, unredacted message text")
	flag.Parse()

	cfg, err := config.LoadConfig(*cfgPath, *devMode)
	if err != nil {
		logging.New(config.LogConfig{Level: "info"}, true).Fatal().Err(err).Msg("config")
	}
	logger := logging.New(cfg.Log, cfg.Runtime.Dev)
	metrics.MustRegister()

	// ---- Storage ----
	var (
		sessions  repository.SessionRepository
		decisions repository.DecisionLogRepository
		txm       repository.TransactionManager
	)
	if cfg.Database.URL != "" {
		pool, err := pg.Connect(ctx, cfg.Database)
		if err != nil {
			logger.Fatal().Err(err).Msg("postgres")
		}
		defer pool.Close()
		sessions = pg.NewSessionRepo(pool)
		decisions = pg.NewDecisionLogRepo(pool)
		txm = pg.NewTxManager(pool)
	} else {
		logger.Warn().Msg("database.url not set, using in-memory storage")
		sessions = memory.NewSessionRepo()
		decisions = memory.NewDecisionLogRepo()
	}

	// ---- Redis (optional) ----
	var (
		redisClient *red.Client
		locker      usecase.SessionLocker
		limiter     *red.RateLimiter
	)
	if cfg.Redis.URL != "" {
		redisClient, err = red.NewClient(ctx, &cfg.Redis)
		if err != nil {
			logger.Fatal().Err(err).Msg("redis")
		}
		defer redisClient.Close()
		locker = red.NewSessionLocker(red.NewLocker(redisClient), cfg.Redis.LockTTL, logger)
		limiter = red.NewRateLimiter(redisClient)
		sessions = pg.NewSessionRepoCacheDecorator(sessions, red.NewSessionCache(redisClient, cfg.Redis.TTL), logger)
	}

	// ---- Decision core ----
	aiAdapter, err := application.NewAIAdapter(ctx, cfg.AI, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("ai adapters")
	}
	deps := application.EngineDeps{AI: aiAdapter, Decisions: decisions, Observer: metrics.NegotiationObserver{}, Logger: logger}
	if redisClient != nil {
		deps.Cache = redisClient
	}
	engine, err := application.NewEngine(cfg, deps)
	if err != nil {
		logger.Fatal().Err(err).Msg("negotiation engine")
	}
	catalog, err := application.NewCatalog(cfg.Negotiation, engine.Categories, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("catalog")
	}

	// ---- Telegram (optional) ----
	botAPI := newBotAPI(cfg.Telegram, logger)
	ucDeps := usecase.Deps{
		Sessions:     sessions,
		DecisionLog:  decisions,
		Tx:           txm,
		Catalog:      catalog,
		Orchestrator: engine.Orchestrator,
		Renderer:     engine.Renderer,
		Handoff:      engine.Handoff,
		Locker:       locker,
		Observer:     metrics.NegotiationObserver{},
		Logger:       logger,
	}
	if botAPI != nil {
		ucDeps.Transport = tele.NewTransport(botAPI, sessions)
	}
	uc := usecase.NewNegotiationUseCase(ucDeps, usecase.Options{
		MaxMessages: cfg.Negotiation.MaxMessages,
		Dev:         cfg.Runtime.Dev,
	})

	sweeper := scheduler.NewScheduler(cfg.Negotiation.SweepInterval, cfg.Negotiation.IdleTimeout, uc, logger)
	sweeper.Start(ctx)
	defer sweeper.Stop()

	if botAPI != nil {
		pool := worker.NewPool(cfg.Telegram.Workers, logger)
		pool.Start(ctx)
		defer pool.Stop()

		var botLimiter tele.RateLimiter
		if limiter != nil {
			botLimiter = limiter
		}
		texts, err := i18n.NewTranslator(i18n.LocalesFS, cfg.Telegram.Language)
		if err != nil {
			logger.Fatal().Err(err).Msg("telegram texts")
		}
		bot := tele.NewBot(botAPI, uc, pool, botLimiter, tele.BotOptions{
			Currency:   cfg.Negotiation.Currency,
			RateLimit:  cfg.HTTP.RateLimit,
			RateWindow: cfg.HTTP.RateLimitWindow,
			Texts:      texts,
		}, logger)
		go func() {
			if err := bot.StartPolling(ctx); err != nil && ctx.Err() == nil {
				logger.Error().Err(err).Msg("telegram polling stopped")
			}
		}()
	}

	// ---- HTTP ----
	var apiLimiter api.RateLimiter
	if limiter != nil {
		apiLimiter = limiter
	}
	server := api.NewServer(cfg.HTTP, api.NewRouter(cfg.HTTP, uc, apiLimiter, logger), logger)
	go func() {
		if err := server.Start(); err != nil {
			logger.Error().Err(err).Msg("http server")
			cancel()
		}
	}()

	// ---- Graceful shutdown ----
	<-ctx.Done()
	logger.Info().Msg("shutdown requested")
	shutdownCtx, stop := context.WithTimeout(context.Background(), 10*time.Second)
	defer stop()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Warn().Err(err).Msg("http shutdown")
	}
}

func newBotAPI(cfg config.TelegramConfig, logger *zerolog.Logger) *tgbotapi.BotAPI {
	if cfg.Token == "" {
		logger.Info().Msg("telegram.token not set, bot disabled")
		return nil
	}
	botAPI, err := tele.NewBotAPI(cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("telegram")
	}
	return botAPI
}
