package main

import (
	"context"
	"log"
	"net"
	"os"
	"os/signal"
	"syscall"

	"google.golang.org/grpc"
	grpchealth "google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"

	"supplies-pos/config"
	"supplies-pos/internal/database"
	"supplies-pos/internal/logging"
	"supplies-pos/internal/services/health"
)

func main() {
	cfg := config.LoadConfig()
	config.MustNonEmpty(cfg.DB.DSN, "POS_DSN")
	logger := logging.New(cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	redisClient, err := config.NewRedisClient(ctx, cfg.Redis)
	if err != nil {
		log.Fatalf("Failed to connect to redis: %v", err)
	}
	defer redisClient.Close()

	db, err := database.NewConnection(ctx, cfg.DB.DSN)
	if err != nil {
		log.Fatalf("Failed to connect to db: %v", err)
	}

	_, port, err := net.SplitHostPort(cfg.POS.GRPCAddr)
	if err != nil {
		log.Fatalf("Invalid POS_GRPC_ADDR %q: %v", cfg.POS.GRPCAddr, err)
	}
	lis, err := net.Listen("tcp", ":"+port)
	if err != nil {
		log.Fatalf("Failed to listen: %v", err)
	}

	s := grpc.NewServer()

	healthServer := grpchealth.NewServer()
	healthpb.RegisterHealthServer(s, healthServer)
	reflection.Register(s)

	prober := health.NewProber(healthServer, cfg.POS.HealthInterval, logger,
		health.Check{Name: "postgres", Probe: func(ctx context.Context) error { return database.Ping(ctx, db) }},
		health.Check{Name: "redis", Probe: func(ctx context.Context) error { return redisClient.Ping(ctx).Err() }},
	)
	go prober.Run(ctx)

	go func() {
		<-ctx.Done()
		s.GracefulStop()
	}()

	log.Printf("POS health service listening on :%s", port)
	if err := s.Serve(lis); err != nil {
		log.Fatalf("Failed to serve: %v", err)
	}
}
