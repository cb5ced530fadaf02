package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/Modoufinance/healthyimc-sub001/internal/config"
	domainService "github.com/Modoufinance/healthyimc-sub001/internal/domain/service"
	"github.com/Modoufinance/healthyimc-sub001/internal/events"
	httpHandler "github.com/Modoufinance/healthyimc-sub001/internal/handler/http"
	"github.com/Modoufinance/healthyimc-sub001/internal/infrastructure/captcha"
	"github.com/Modoufinance/healthyimc-sub001/internal/infrastructure/database"
	infraPostgres "github.com/Modoufinance/healthyimc-sub001/internal/infrastructure/database/postgres"
	"github.com/Modoufinance/healthyimc-sub001/internal/infrastructure/ratelimit"
	"github.com/Modoufinance/healthyimc-sub001/internal/infrastructure/security"
	"github.com/Modoufinance/healthyimc-sub001/internal/service"
	"github.com/Modoufinance/healthyimc-sub001/internal/utils/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.NewLogger(cfg.Logging.Level, cfg.Logging.Format)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	if cfg.Database.AutoMigrate {
		log.Info("running database migrations")
		m, err := migrate.New("file://migrations", cfg.Database.DSN())
		if err != nil {
			log.Fatal("failed to create migration instance", zap.Error(err))
		}
		if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
			log.Fatal("failed to apply migrations", zap.Error(err))
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	dbPool, err := infraPostgres.NewDBPool(ctx, cfg.Database)
	if err != nil {
		log.Fatal("failed to connect to postgres", zap.Error(err))
	}
	defer dbPool.Close()

	redisClient, err := ratelimit.NewRedisClient(ctx, cfg.Redis)
	if err != nil {
		log.Fatal("failed to connect to redis", zap.Error(err))
	}
	defer redisClient.Close()

	var publisher events.Publisher = events.NopPublisher{}
	if cfg.Events.Enabled {
		publisher = events.NewKafkaPublisher(cfg.Events, log)
	}
	defer publisher.Close()

	adminRepo := database.NewPgxAdminRepository(dbPool)
	sessionRepo := database.NewPgxSessionRepository(dbPool)

	passwordService, err := security.NewArgon2idPasswordService(cfg.Security.PasswordHash)
	if err != nil {
		log.Fatal("failed to initialize password service", zap.Error(err))
	}
	totpService := security.NewPquernaTOTPService(cfg.MFA.Issuer, cfg.MFA.Skew)
	cipher, err := security.NewAESGCMSecretCipher(cfg.MFA.EncryptionKey)
	if err != nil {
		log.Fatal("failed to initialize secret cipher", zap.Error(err))
	}

	var challengeProvider domainService.ChallengeProvider
	if cfg.Captcha.Enabled {
		challengeProvider = captcha.NewRecaptchaProvider(cfg.Captcha, log)
	} else {
		challengeProvider = captcha.NewStubProvider(log)
	}
	challengeRegistry := ratelimit.NewRedisChallengeRegistry(redisClient, 10*time.Minute)
	anonBucket := ratelimit.NewRedisAnonFailureBucket(redisClient, cfg.Security.AnonWindow)

	sessionService := service.NewSessionService(log, cfg, sessionRepo, adminRepo, publisher, nil)
	authService, err := service.NewAuthService(log, cfg, adminRepo, sessionService,
		passwordService, totpService, cipher, challengeProvider, challengeRegistry, anonBucket, publisher)
	if err != nil {
		log.Fatal("failed to initialize auth service", zap.Error(err))
	}
	enrollmentService := service.NewEnrollmentService(log, cfg, adminRepo, totpService, cipher, publisher)

	sessionService.StartJanitor(ctx, cfg.Security.JanitorInterval)

	handler := httpHandler.NewAuthHandler(log, authService, sessionService, enrollmentService)
	router := httpHandler.NewRouter(log, cfg, handler, sessionService)

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	var metricsServer *http.Server
	if cfg.Metrics.Enabled {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.Handler())
		metricsServer = &http.Server{Addr: fmt.Sprintf(":%d", cfg.Metrics.Port), Handler: mux}
		go func() {
			if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Error("metrics server failed", zap.Error(err))
			}
		}()
	}

	go func() {
		log.Info("starting back-office auth server", zap.Int("port", cfg.Server.Port))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("server failed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	log.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("server shutdown failed", zap.Error(err))
	}
	if metricsServer != nil {
		if err := metricsServer.Shutdown(shutdownCtx); err != nil {
			log.Error("metrics server shutdown failed", zap.Error(err))
		}
	}
}
