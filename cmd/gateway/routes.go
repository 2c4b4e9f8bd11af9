package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"supplies-pos/config"
	"supplies-pos/internal/database"
	"supplies-pos/internal/format"
	"supplies-pos/internal/gateway"
	"supplies-pos/internal/gateway/clients"
	"supplies-pos/internal/gateway/handlers"
	"supplies-pos/internal/logging"
	"supplies-pos/internal/services/health"
	posHandler "supplies-pos/internal/services/pos/handler"
	"supplies-pos/internal/services/reports"
	userHandler "supplies-pos/internal/services/user/handler"
	"supplies-pos/internal/utils"
)

func main() {
	cfg := config.LoadConfig()
	config.MustNonEmpty(cfg.DB.DSN, "POS_DSN")
	config.MustNonEmpty(string(cfg.Auth.JWTSecret), "JWT_SECRET")

	logger := logging.New(cfg.LogLevel)
	gin.SetMode(gin.ReleaseMode)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := database.NewConnection(ctx, cfg.DB.DSN)
	if err != nil {
		log.Fatalf("Failed to connect to db: %v", err)
	}
	if err := database.MigratePOSDB(db); err != nil {
		log.Fatalf("Failed to migrate POS database: %v", err)
	}

	redisClient, err := config.NewRedisClient(ctx, cfg.Redis)
	if err != nil {
		log.Fatalf("Failed to connect to redis: %v", err)
	}
	defer redisClient.Close()

	var events posHandler.Publisher
	if len(cfg.Kafka.Brokers) > 0 {
		events = posHandler.NewKafkaPublisher(cfg.Kafka.Brokers, cfg.Kafka.Topic)
		logger.Info("publishing order events to kafka", "brokers", cfg.Kafka.Brokers, "topic", cfg.Kafka.Topic)
	} else {
		events = posHandler.NewRedisPublisher(redisClient)
	}
	defer events.Close()

	loc := format.Location(cfg.POS.Timezone)
	users := userHandler.NewUserHandler(db, redisClient, utils.NewTokenIssuer(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL))
	pos := posHandler.NewPOSHandler(db, redisClient, events, cfg.POS.CartTTL)
	reportService := reports.NewService(db, loc, cfg.POS.LowStockThreshold)

	var checker handlers.HealthChecker
	healthClient, err := clients.NewHealthClient(cfg.POS.GRPCAddr)
	if err != nil {
		logger.Warn("POS health client unavailable", "error", err)
	} else {
		defer healthClient.Close()
		checker = healthClient
	}

	r, err := gateway.NewRouter(gateway.Deps{
		Users:             users,
		POS:               pos,
		Reports:           reportService,
		Health:            checker,
		Logger:            logger,
		StoreName:         cfg.POS.StoreName,
		HealthService:     health.SERVICE_NAME,
		LowStockThreshold: cfg.POS.LowStockThreshold,
		CORSOrigins:       cfg.HTTP.CORSOrigins,
		LoginRateLimit:    cfg.Auth.LoginRateLimit,
	})
	if err != nil {
		log.Fatalf("Failed to build router: %v", err)
	}

	srv := &http.Server{
		Addr:              ":" + cfg.HTTP.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("starting server", "addr", srv.Addr, "timezone", loc.String())
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", "error", err)
	}
}
