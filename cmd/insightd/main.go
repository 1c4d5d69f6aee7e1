package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"lym-insights/internal/config"
	"lym-insights/internal/handler"
	"lym-insights/internal/insight"
	"lym-insights/internal/kvstore"
	"lym-insights/internal/llm"
	"lym-insights/internal/repository"
	"lym-insights/pkg/db"
	"lym-insights/pkg/logger"
	"lym-insights/pkg/mq"
	"lym-insights/pkg/redis"

	"go.uber.org/zap"
)

func main() {
	cfg := config.Load()

	log := logger.NewLogger()
	defer log.Sync()

	log.Info("Starting insightd...",
		zap.String("db_host", cfg.DB.Host),
		zap.Int("db_port", cfg.DB.Port),
		zap.String("redis_addr", cfg.Redis.Addr),
		zap.String("mq_url", cfg.MQ.URL),
	)

	// DB
	log.Info("Initializing database connection...")
	dbConn, err := db.NewConnection(cfg.DB, log)
	if err != nil {
		log.Fatal("Failed to init DB", zap.Error(err))
	}
	defer dbConn.Close()

	// Redis
	rdb := redis.NewRedisClient(cfg.Redis)
	kv := kvstore.NewRedis(rdb)

	// MQ Publisher
	publisher, err := mq.NewPublisher(cfg.MQ.URL)
	if err != nil {
		log.Fatal("Failed to init MQ publisher", zap.Error(err))
	}
	defer publisher.Close()

	// Repositories
	profileRepo := repository.NewProfileRepository(dbConn, log)
	mealRepo := repository.NewMealRepository(dbConn, log)
	wellnessRepo := repository.NewWellnessRepository(dbConn, log)
	gamificationRepo := repository.NewGamificationRepository(dbConn, log)
	auditRepo := repository.NewNotificationLogRepository(dbConn)

	// Inference layer
	llmClient := llm.NewClient(cfg.LLM)
	executor := llm.NewExecutor(llmClient, kv, cfg.LLM, logger.WithComponent(log, "llm"))

	// Pipeline
	builder := insight.NewContextBuilder(profileRepo, mealRepo, wellnessRepo, gamificationRepo,
		logger.WithComponent(log, "context_builder"))
	orchestrator := insight.NewOrchestrator(insight.NewAnalyzers(executor),
		time.Duration(cfg.Pipeline.AgentTimeoutSeconds)*time.Second,
		logger.WithComponent(log, "orchestrator"))
	scheduler := insight.NewScheduler(kv, builder, orchestrator,
		logger.WithComponent(log, "scheduler"))
	notifier := insight.NewPushNotifier(logger.WithComponent(log, "notifier"))
	dispatcher := insight.NewDispatcher(kv, notifier, auditRepo, publisher,
		logger.WithComponent(log, "dispatcher"))

	// Daily delivery loop: generation and dispatch are both idempotent per
	// calendar day, so a short ticker interval only costs cache reads.
	deliveryCtx, deliveryCancel := context.WithCancel(context.Background())
	defer deliveryCancel()

	go func() {
		ticker := time.NewTicker(10 * time.Minute)
		defer ticker.Stop()

		for {
			select {
			case <-deliveryCtx.Done():
				log.Info("Delivery loop stopped")
				return
			case <-ticker.C:
				if time.Now().Hour() < cfg.Pipeline.DeliveryHour {
					continue
				}
				runDeliveryCycle(deliveryCtx, profileRepo, scheduler, dispatcher, log)
			}
		}
	}()

	// HTTP Server
	insightHandler := handler.NewInsightHandler(scheduler, dispatcher, log)
	router := handler.NewRouter(insightHandler, cfg.JWT.Secret, dbConn, rdb)

	port := cfg.Server.Port
	if port == "" {
		port = "8086"
	}
	srv := &http.Server{
		Addr:    ":" + port,
		Handler: router.Mux,
	}

	go func() {
		log.Info("HTTP server starting", zap.String("port", port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("HTTP server failed", zap.Error(err))
		}
	}()

	log.Info("insightd is fully initialized and running")

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down insightd gracefully...")

	deliveryCancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("HTTP server shutdown error", zap.Error(err))
	} else {
		log.Info("HTTP server stopped")
	}

	publisher.Close()
	dbConn.Close()

	log.Info("insightd shutdown complete")
}

// runDeliveryCycle generates and dispatches today's insight for every active
// user. Per-user failures are logged and skipped.
func runDeliveryCycle(
	ctx context.Context,
	profiles *repository.ProfileRepository,
	scheduler *insight.Scheduler,
	dispatcher *insight.Dispatcher,
	log *zap.Logger,
) {
	userIDs, err := profiles.ListActiveUserIDs(ctx)
	if err != nil {
		log.Error("Failed to list users for delivery cycle", zap.Error(err))
		return
	}

	sent := 0
	for _, userID := range userIDs {
		ins := scheduler.TodayInsight(ctx, userID)

		ok, err := dispatcher.Dispatch(ctx, userID, ins)
		if err != nil {
			log.Error("Dispatch failed", zap.Int("user_id", userID), zap.Error(err))
			continue
		}
		if ok {
			sent++
		}

		if _, err := dispatcher.PublishToFeed(ctx, userID, ins); err != nil {
			log.Warn("Feed publish failed", zap.Int("user_id", userID), zap.Error(err))
		}
	}

	log.Info("Delivery cycle completed",
		zap.Int("users", len(userIDs)),
		zap.Int("sent", sent),
	)
}
