package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/ignatzorin/feedback-escalation/internal/config"
	"github.com/ignatzorin/feedback-escalation/internal/db"
	httpHandlers "github.com/ignatzorin/feedback-escalation/internal/http/handlers"
	"github.com/ignatzorin/feedback-escalation/internal/http/middleware"
	httpRouter "github.com/ignatzorin/feedback-escalation/internal/http/router"
	"github.com/ignatzorin/feedback-escalation/internal/infrastructure/notify"
	"github.com/ignatzorin/feedback-escalation/internal/infrastructure/persistence"
	"github.com/ignatzorin/feedback-escalation/internal/interface/http/handler"
	"github.com/ignatzorin/feedback-escalation/internal/logger"
	"github.com/ignatzorin/feedback-escalation/internal/service"
	"github.com/ignatzorin/feedback-escalation/internal/usecase/escalation"
	"github.com/ignatzorin/feedback-escalation/internal/ws"
)

func main() {
	// Готовим контекст для graceful shutdown.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		logrus.Fatalf("main: ошибка загрузки конфигурации: %v", err)
	}

	logger.Init(cfg.LogLevel)
	if !cfg.IsProduction() {
		logger.SetTextFormatter()
	}
	log := logger.Get()

	// Подключение к базе и миграции.
	dbConn, err := db.Open(ctx, cfg.DBDriver, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("main: ошибка подключения к базе: %v", err)
	}
	defer safeClose(dbConn)

	if err := db.RunMigrations(ctx, dbConn, db.MigrationsDir(cfg.MigrationsPath, cfg.DBDriver)); err != nil {
		log.Fatalf("main: ошибка миграций: %v", err)
	}

	// Лимиты запросов: redis, если задан REDIS_URL, иначе память процесса.
	var redisClient *redis.Client
	if cfg.RedisURL != "" {
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			log.Fatalf("main: некорректный REDIS_URL: %v", err)
		}
		redisClient = redis.NewClient(opts)
		defer func() {
			if err := redisClient.Close(); err != nil {
				log.Warnf("main: ошибка закрытия redis: %v", err)
			}
		}()
	}
	limiterStore, err := middleware.NewRateLimitStore(redisClient)
	if err != nil {
		log.Fatalf("main: %v", err)
	}

	tokenManager := service.NewTokenManager(cfg.JWTSecret, cfg.AccessTokenTTL)

	// Вебсокеты.
	// Хаб живёт дольше сигнала: уведомления в полёте доставляются до его остановки.
	hubCtx, stopHub := context.WithCancel(context.Background())
	defer stopHub()
	hub := ws.NewHub()
	go hub.Run(hubCtx)

	// Уведомления: лог всегда, WebSocket для подключённых ролей, Slack при наличии токена.
	sinks := []notify.Sink{notify.NewLogSink(), notify.NewHubSink(hub)}
	if slack := notify.NewSlackSink(cfg.SlackBotToken, cfg.SlackChannelID, cfg.NotifyTimeout); slack.IsConfigured() {
		sinks = append(sinks, slack)
	} else {
		log.Info("main: Slack не настроен, уведомления идут только в лог и WebSocket")
	}
	dispatcher := notify.NewDispatcher(cfg.NotifyTimeout, sinks...)

	// Репозитории.
	feedbackRepo := persistence.NewFeedbackRepositoryAdapter(dbConn)
	approvalRepo := persistence.NewApprovalRepositoryAdapter(dbConn)
	logRepo := persistence.NewEscalationLogRepositoryAdapter(dbConn)

	// Use cases.
	tracker := escalation.NewQuorumTracker(approvalRepo)
	feedbackHandler := handler.NewFeedbackHandler(
		escalation.NewRegisterFeedbackUseCase(feedbackRepo, dispatcher),
		escalation.NewGetCaseUseCase(feedbackRepo, tracker),
		escalation.NewMarkViewedUseCase(feedbackRepo, tracker),
		escalation.NewOnCategoryChangedUseCase(feedbackRepo, tracker, dispatcher),
		escalation.NewOnApproveUseCase(feedbackRepo, tracker, dispatcher),
		escalation.NewConfirmArchiveUseCase(feedbackRepo, tracker, dispatcher),
		escalation.NewListEscalationLogUseCase(feedbackRepo, logRepo),
	)

	healthHandler := httpHandlers.NewHealthHandler(dbConn, dispatcher.Pending)
	wsHandler := httpHandlers.NewWSHandler(hub, cfg.AllowedOrigins)

	engine := httpRouter.SetupRouter(cfg, tokenManager, limiterStore, healthHandler, wsHandler, feedbackHandler)

	server := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Завершаем сервер при получении сигнала и дожидаемся уведомлений в полёте.
	stopped := make(chan struct{})
	go func() {
		defer close(stopped)
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Errorf("main: ошибка остановки http сервера: %v", err)
		}
		if err := dispatcher.Wait(shutdownCtx); err != nil {
			log.WithField("pending", dispatcher.Pending()).Warn("main: не все уведомления доставлены до остановки")
		}
		stopHub()
	}()

	log.WithFields(logrus.Fields{
		"port":   cfg.HTTPPort,
		"driver": cfg.DBDriver,
		"env":    cfg.Env,
	}).Info("main: HTTP сервер запущен")

	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatalf("main: сервер завершился с ошибкой: %v", err)
	}

	<-stopped
}

// safeClose закрывает соединение с базой.
func safeClose(conn *sqlx.DB) {
	if err := conn.Close(); err != nil {
		logger.Get().Warnf("main: ошибка закрытия базы: %v", err)
	}
}
