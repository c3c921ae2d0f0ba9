package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Abhijeet1005/SartiaProject/internal/accounts"
	"github.com/Abhijeet1005/SartiaProject/internal/app"
	"github.com/Abhijeet1005/SartiaProject/internal/mail"
	"github.com/Abhijeet1005/SartiaProject/internal/observability"
	"github.com/Abhijeet1005/SartiaProject/internal/platform/cache"
	"github.com/Abhijeet1005/SartiaProject/internal/platform/db"
	"github.com/Abhijeet1005/SartiaProject/internal/token"
	"github.com/Abhijeet1005/SartiaProject/internal/view"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping runtime startup")
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := app.NewLogger(cfg)

	if err := db.Migrate(ctx, cfg.PGDSN); err != nil {
		logger.Error("run migrations", slog.Any("error", err))
		os.Exit(1)
	}

	dbpool, err := db.New(ctx, cfg.PGDSN)
	if err != nil {
		logger.Error("connect postgres", slog.Any("error", err))
		os.Exit(1)
	}
	defer dbpool.Close()

	redisClient, err := cache.New(ctx, cfg.RedisAddr)
	if err != nil {
		logger.Error("connect redis", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	templates, err := view.NewEngine()
	if err != nil {
		logger.Error("parse templates", slog.Any("error", err))
		os.Exit(1)
	}

	codec := token.NewCodec(cfg.TokenSecret, "sartia")
	revocations := token.NewRevocationStore(redisClient)
	mailer := mail.NewSMTPSender(mail.Config{
		Host:     cfg.SMTPHost,
		Port:     cfg.SMTPPort,
		From:     cfg.SMTPFrom,
		Username: cfg.SMTPUsername,
		Password: cfg.SMTPPassword,
	})

	accountsRepo := accounts.NewRepository(dbpool)
	accountsService := accounts.NewService(accountsRepo, codec, revocations, mailer, logger, accounts.ServiceConfig{
		SessionTTL: cfg.SessionTTL,
		ResetTTL:   cfg.ResetTTL,
		PublicURL:  cfg.PublicURL,
	})
	sessionMiddleware := accounts.NewMiddleware(logger, codec, revocations, accountsService, cfg.SessionCookie)
	accountsHandler := accounts.NewHandler(logger, accountsService, sessionMiddleware, templates, accounts.HandlerConfig{
		CookieName:   cfg.SessionCookie,
		SecureCookie: cfg.IsProduction(),
		SessionTTL:   cfg.SessionTTL,
	})
	pagesHandler := accounts.NewPagesHandler(logger, accountsService, sessionMiddleware, templates)

	metrics := observability.NewMetrics()

	router := app.NewRouter(app.RouterParams{
		Logger:          logger,
		Config:          cfg,
		AccountsHandler: accountsHandler,
		PagesHandler:    pagesHandler,
		Metrics:         metrics,
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	go func() {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("http server", slog.Any("error", err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown", slog.Any("error", err))
	}
}
