package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"referral_contest/internal/api"
	"referral_contest/internal/bot"
	"referral_contest/internal/events"
	"referral_contest/internal/middleware"
	"referral_contest/internal/observability"
	"referral_contest/internal/repository"
	"referral_contest/internal/service"
	"referral_contest/pkg/auth"
	"referral_contest/pkg/logger"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func main() {
	cfg, notes, err := LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	err = logger.Initialize(cfg.LogLevel)
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer logger.Sync()
	zapLogger := logger.Logger()
	if len(notes) > 0 {
		zapLogger.Info("Config loaded", notes...)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	repo, err := repository.New(cfg.Database)
	if err != nil {
		zapLogger.Fatal("Failed to initialize repository", zap.Error(err))
	}
	defer repo.Close()

	if cfg.Migrate {
		if err := repo.Migrate(); err != nil {
			zapLogger.Fatal("Failed to migrate database", zap.Error(err))
		}
	}

	hub := api.NewLiveHub()
	defer hub.Close()
	publishers := []events.Publisher{hub}

	if cfg.Metrics.Enabled {
		metrics, err := observability.NewMetrics(cfg.Metrics)
		if err != nil {
			zapLogger.Fatal("Failed to initialize metrics", zap.Error(err))
		}
		defer shutdownMetrics(metrics)
		publishers = append(publishers, metrics)
	}

	if cfg.NATS.Enabled {
		natsPublisher, err := events.NewNATSPublisher(cfg.NATS.Config)
		if err != nil {
			zapLogger.Fatal("Failed to connect to NATS", zap.Error(err))
		}
		defer natsPublisher.Close()
		publishers = append(publishers, natsPublisher)
	}

	publisher := events.NewMulti(publishers...)

	botAPI, err := bot.NewAPI(cfg.Telegram)
	if err != nil {
		zapLogger.Fatal("Failed to authorize bot", zap.Error(err))
	}
	messenger := bot.NewMessenger(botAPI, cfg.Telegram.ChannelUsername)

	scheduler := service.NewScheduler()
	defer scheduler.Stop()

	dispatcher := service.NewDispatcher(repo, messenger, publisher)
	antiCheat := service.NewAntiCheatService(repo, repo, dispatcher, publisher, service.AntiCheatConfig{
		MaxJoinAttempts: cfg.Contest.MaxJoinAttempts,
		AdminIDs:        cfg.Telegram.AdminIDs,
	})
	ledger := service.NewLedgerService(repo, antiCheat, messenger, dispatcher, publisher, service.LedgerConfig{
		PointsPerReferral: cfg.Contest.PointsPerReferral,
		BotUsername:       cfg.Telegram.BotUsername,
	})
	contests := service.NewContestService(repo, repo, ledger, dispatcher, scheduler, publisher, cfg.Telegram.AdminIDs)
	svc := service.NewService(ledger, contests, antiCheat, dispatcher)

	if _, err := contests.RestoreSchedules(ctx); err != nil {
		zapLogger.Fatal("Failed to restore contest schedules", zap.Error(err))
	}

	telegramBot := bot.New(botAPI, svc, cfg.Telegram)
	botDone := make(chan struct{})
	go func() {
		defer close(botDone)
		if err := telegramBot.Run(ctx); err != nil {
			zapLogger.Error("Bot stopped", zap.Error(err))
		}
	}()

	server := &http.Server{
		Addr:    fmt.Sprintf("%s:%s", cfg.Server.Host, cfg.Server.Port),
		Handler: newRouter(cfg, svc, hub),
	}

	go func() {
		zapLogger.Info("Starting server", zap.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zapLogger.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	<-ctx.Done()
	zapLogger.Info("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		zapLogger.Error("Failed to shut down server", zap.Error(err))
	}

	select {
	case <-botDone:
	case <-shutdownCtx.Done():
		zapLogger.Warn("Shutdown timeout exceeded")
	}
}

func newRouter(cfg *Config, svc *service.Service, hub *api.LiveHub) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())

	config := cors.DefaultConfig()
	config.AllowAllOrigins = true
	config.AllowMethods = []string{
		http.MethodHead,
		http.MethodGet,
		http.MethodPost,
		http.MethodPut,
		http.MethodPatch,
		http.MethodDelete,
	}
	config.AllowHeaders = []string{"*"}
	config.MaxAge = 12 * time.Hour

	router.Use(cors.New(config))

	telegramAuth := auth.NewTelegramAuth(cfg.Telegram.Token, cfg.Server.DebugAuth)
	authz := middleware.NewAuthorization(cfg.Telegram.AdminIDs)

	a := router.Group("/api/v1")
	api.NewUserRoutes(a, svc, telegramAuth, authz)
	api.NewContestRoutes(a, svc, telegramAuth)
	api.NewAdminRoutes(a, svc, telegramAuth, authz)
	api.NewLiveRoutes(a, hub, telegramAuth)

	return router
}

func shutdownMetrics(metrics *observability.Metrics) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := metrics.Shutdown(ctx); err != nil {
		logger.Logger().Error("Failed to shut down metrics", zap.Error(err))
	}
}
