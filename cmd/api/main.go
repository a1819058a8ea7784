package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"outreach-dashboard/internal/audit"
	"outreach-dashboard/internal/auth"
	"outreach-dashboard/internal/config"
	"outreach-dashboard/internal/contacts"
	"outreach-dashboard/internal/dialer"
	"outreach-dashboard/internal/httpapi"
	"outreach-dashboard/internal/lifecycle"
	"outreach-dashboard/internal/outcome"
	"outreach-dashboard/internal/rbac"
	"outreach-dashboard/internal/reporting"
	"outreach-dashboard/internal/retell"
	"outreach-dashboard/internal/schema"
	"outreach-dashboard/internal/webhook"
	"outreach-dashboard/pkg/logger"
	"outreach-dashboard/pkg/utils"

	"github.com/gin-gonic/gin"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/redis/go-redis/v9"
)

func main() {
	// Root context that cancels on shutdown
	rootCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("config load failed", "err", err)
		os.Exit(1)
	}

	log := logger.New(cfg.App.Env)
	slog.SetDefault(log)

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	authManager, err := auth.NewManager(cfg.Auth)
	if err != nil {
		log.Error("auth init failed", "err", err)
		os.Exit(1)
	}
	directory, err := auth.NewDirectory(
		auth.Credential{Username: cfg.Operators.AdminUsername, Role: rbac.RoleAdmin, PasswordHash: cfg.Operators.AdminPasswordHash},
		auth.Credential{Username: cfg.Operators.OperatorUsername, Role: rbac.RoleOperator, PasswordHash: cfg.Operators.OperatorPasswordHash},
	)
	if err != nil {
		log.Error("operator directory init failed", "err", err)
		os.Exit(1)
	}

	db, err := utils.OpenPostgres(rootCtx, utils.DriverPgx, cfg.PostgresDSN(), utils.PostgresPoolConfig{})
	if err != nil {
		log.Error("postgres init failed", "err", err)
		os.Exit(1)
	}
	defer db.Close()

	if cfg.DB.AutoMigrate {
		if err := schema.Migrate(rootCtx, db); err != nil {
			log.Error("schema migration failed", "err", err)
			os.Exit(1)
		}
		log.Info("schema applied")
	}

	// Redis only backs the outbound call cap.
	var slots dialer.Slots
	if cfg.Calls.MaxConcurrent > 0 {
		rdb, err := utils.OpenRedis(rootCtx, utils.RedisConfig{Addr: cfg.RedisAddr(), Password: cfg.Redis.Password, DB: cfg.Redis.DB})
		if err != nil {
			log.Error("redis init failed", "err", err)
			os.Exit(1)
		}
		defer func(rdb *redis.Client) { _ = rdb.Close() }(rdb)

		rs, err := dialer.NewRedisSlots(rdb, cfg.Calls.MaxConcurrent, cfg.Calls.SlotTTL)
		if err != nil {
			log.Error("call slots init failed", "err", err)
			os.Exit(1)
		}
		slots = rs
	}

	contactRepo := contacts.NewPostgresRepo(db)
	auditSvc := audit.NewService(audit.NewPostgresRepo(db))
	contactSvc := contacts.NewService(contactRepo, auditSvc)

	var calls dialer.CallCreator
	if cfg.Retell.Enabled() {
		client, err := retell.NewClient(cfg.Retell)
		if err != nil {
			log.Error("retell client init failed", "err", err)
			os.Exit(1)
		}
		calls = client
	} else {
		log.Warn("retell not configured; outbound calls disabled")
	}
	dialerSvc := dialer.NewService(contactSvc, calls, slots)

	handlers := httpapi.Handlers{
		Auth:      authManager,
		Directory: directory,
		Contacts:  contactSvc,
		Dialer:    dialerSvc,
		Reports:   reporting.NewService(contactRepo),
	}
	outcomeHook := webhook.Handler{
		Normalizer: outcome.NewNormalizer(outcome.Policy{
			MinTranscriptChars: cfg.Outcome.MinTranscriptChars,
			MinDurationSeconds: cfg.Outcome.MinDurationSeconds,
		}),
		Updater: lifecycle.NewUpdater(contactRepo),
		Calls:   dialerSvc,
		Token:   cfg.Webhook.Token,
	}

	// Gin router
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(logger.Middleware(log))

	registerPublicRoutes(r, db, outcomeHook)
	registerAuthRoutes(r, handlers)
	registerProtectedRoutes(r, auth.RequireAccessToken(authManager), handlers)

	srv := &http.Server{
		Addr:              cfg.HTTPAddr(),
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		log.Info("api listening", "addr", srv.Addr, "env", cfg.App.Env, "outbound_calls", cfg.Retell.Enabled())
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("http server failed", "err", err)
			stop()
		}
	}()

	<-rootCtx.Done()
	log.Info("shutdown initiated")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("http shutdown failed", "err", err)
	}
}
