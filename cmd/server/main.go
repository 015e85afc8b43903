package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/mesaops/identity-api/internal/api"
	"github.com/mesaops/identity-api/internal/core/ports"
	"github.com/mesaops/identity-api/internal/core/service"
	"github.com/mesaops/identity-api/internal/infrastructure/config"
	mongodb "github.com/mesaops/identity-api/internal/infrastructure/db/mongo"
	redisdb "github.com/mesaops/identity-api/internal/infrastructure/db/redis"
	"github.com/mesaops/identity-api/internal/infrastructure/queue"
	"github.com/mesaops/identity-api/pkg/logger"
)

func main() {
	cfg := config.Load()

	log := logger.Init(logger.Options{
		Level:  cfg.LogLevel,
		Pretty: cfg.Env == "development",
	})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	client, db, err := mongodb.Connect(ctx, cfg.Mongo.URI, cfg.Mongo.Database)
	if err != nil {
		log.Fatal().Err(err).Msg("mongo connection failed")
	}
	defer func() {
		_ = client.Disconnect(context.Background())
	}()

	rdb, err := redisdb.Connect(ctx, cfg.Redis.Addr, cfg.Redis.DB)
	if err != nil {
		log.Fatal().Err(err).Msg("redis connection failed")
	}
	defer func() {
		_ = rdb.Close()
	}()

	sessionRepo := mongodb.NewSessionRepository(db)
	otpRepo := mongodb.NewOTPRepository(db)
	auditRepo := mongodb.NewAuditRepository(db)
	for name, ensure := range map[string]func(context.Context) error{
		"sessions":       sessionRepo.EnsureIndexes,
		"otp_challenges": otpRepo.EnsureIndexes,
		"login_audit":    auditRepo.EnsureIndexes,
	} {
		if err := ensure(ctx); err != nil {
			log.Fatal().Err(err).Str("collection", name).Msg("index creation failed")
		}
	}

	dispatcher := queue.NewAuditDispatcher(0, auditRepo, log)
	dispatcher.Start(ctx)

	sweeper := service.NewSweeper(sessionRepo, otpRepo, ports.SystemClock(), cfg.Auth.SweepInterval, log)
	sweeper.Start(ctx)

	e := api.NewRouter(db, rdb, cfg, dispatcher, log)

	go func() {
		addr := ":" + cfg.Port
		log.Info().Str("addr", addr).Str("env", cfg.Env).Msg("identity api listening")
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("server stopped")
		}
	}()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("graceful shutdown failed")
	}
}
