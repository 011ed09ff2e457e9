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

	"account-svc/internal/config"
	"account-svc/internal/db"
	"account-svc/internal/domain"
	"account-svc/internal/email"
	apihttp "account-svc/internal/http"
	"account-svc/internal/metrics"
	"account-svc/internal/repository"
	"account-svc/internal/security"
	"account-svc/internal/service"
	"account-svc/internal/worker/cleanup"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := godotenv.Load(); err != nil {
		log.Printf("warning: loading .env: %v", err)
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		panic(err)
	}

	logger := newLogger(cfg)
	defer logger.Sync()

	pool, err := db.NewPool(ctx, cfg)
	if err != nil {
		logger.Fatal("db connect", zap.Error(err))
	}
	defer pool.Close()

	if cfg.RunMigrations {
		if err := db.Migrate(ctx, pool); err != nil {
			logger.Fatal("db migrate", zap.Error(err))
		}
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	collector := metrics.NewCollector(registry)

	accountRepo := repository.NewPgAccountRepository(pool)
	var verificationRepo repository.VerificationRepository = repository.NewPgVerificationRepository(pool)
	if cfg.VerificationStore == config.StoreRedis {
		redisClient := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		defer redisClient.Close()
		ctxPing, cancel := context.WithTimeout(ctx, 2*time.Second)
		if err := redisClient.Ping(ctxPing).Err(); err != nil {
			logger.Fatal("redis ping failed", zap.Error(err))
		}
		cancel()
		verificationRepo = repository.NewRedisVerificationRepository(redisClient, cfg.CleanupGrace)
	}

	hasher := security.NewBcryptHasher(cfg.BcryptCost)
	verifySvc := service.NewVerificationService(logger, accountRepo, verificationRepo, hasher, newSender(cfg, logger), collector, service.VerificationPolicy{
		BaseURL:           cfg.AppBaseURL,
		LinkTTL:           cfg.LinkTTL,
		OTPTTL:            cfg.OTPTTL,
		PurgeOnLinkExpiry: cfg.PurgeOnLinkExpiry,
		PurgeOnOTPExpiry:  cfg.PurgeOnOTPExpiry,
	})
	accountSvc := service.NewAccountService(logger, accountRepo, hasher, verifySvc, domain.VerificationKind(cfg.VerificationMode), collector)

	router := apihttp.NewRouter(
		logger,
		apihttp.NewAccountHandler(logger, accountSvc),
		apihttp.NewVerificationHandler(logger, verifySvc),
		apihttp.NewHealthHandler(logger, pool),
		metrics.Handler(registry),
	)

	job := cleanup.NewJob(verificationRepo, accountRepo, logger, collector, cfg.CleanupGrace, cfg.PurgeOnLinkExpiry)
	go job.Start(ctx, cfg.CleanupInterval)

	server := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      15 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("server shutdown", zap.Error(err))
		}
	}()

	logger.Info("starting server",
		zap.String("port", cfg.HTTPPort),
		zap.String("verification_mode", cfg.VerificationMode),
		zap.String("verification_store", cfg.VerificationStore),
	)

	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Fatal("server error", zap.Error(err))
	}
	logger.Info("server stopped")
}

func newLogger(cfg *config.Config) *zap.Logger {
	var (
		logger *zap.Logger
		err    error
	)
	if cfg.IsDevelopment() {
		logger, err = zap.NewDevelopment()
	} else {
		logger, err = zap.NewProduction()
	}
	if err != nil {
		log.Fatalf("init logger: %v", err)
	}
	return logger
}

func newSender(cfg *config.Config, logger *zap.Logger) email.Sender {
	if cfg.EmailLogOnly {
		logger.Warn("email delivery in log-only mode")
		return email.NewLogSender(logger)
	}
	if cfg.SMTPHost == "" {
		logger.Warn("email sender not configured")
		return email.NewDisabledSender("email sender not configured")
	}
	sender, err := email.NewSMTPSender(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUser, cfg.SMTPPass, cfg.SMTPFrom, cfg.SMTPFromName, cfg.SMTPUseTLS)
	if err != nil {
		logger.Warn("smtp sender init failed", zap.Error(err))
		return email.NewDisabledSender("email sender not configured")
	}
	return sender
}
