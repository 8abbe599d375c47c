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

	"chilljobs-api/config"
	"chilljobs-api/database"
	"chilljobs-api/internal/api/admin"
	authapi "chilljobs-api/internal/api/auth"
	"chilljobs-api/internal/api/billing"
	"chilljobs-api/internal/api/jobs"
	stripewebhooks "chilljobs-api/internal/api/stripewebhook"
	"chilljobs-api/internal/api/users"
	routes "chilljobs-api/internal/app/http"
	"chilljobs-api/internal/app/http/middleware"
	"chilljobs-api/internal/infra/jobsapi"
	"chilljobs-api/internal/infra/logger"
	"chilljobs-api/internal/infra/notify"
	"chilljobs-api/internal/infra/payments"
	"chilljobs-api/internal/infra/ratelimit"
	"chilljobs-api/internal/session"
	"chilljobs-api/internal/store"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	lg, err := logger.New(cfg.LogLevel, cfg.LogDev)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to init logger: %v\n", err)
		os.Exit(1)
	}
	defer lg.Sync()
	log := lg.Sugar()

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	db, err := database.Open(cfg.DBURL, cfg.UsersDBPath)
	if err != nil {
		log.Fatalw("database", "error", err)
	}
	if sqlDB, err := db.DB(); err == nil {
		defer sqlDB.Close()
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	limiter, err := ratelimit.Connect(ctx, cfg.RedisURL, "chilljobs:rate_limit")
	if err != nil {
		log.Warnw("redis unavailable, checkout rate limiting disabled", "error", err)
		limiter = ratelimit.New(nil, "")
	}
	defer limiter.Close()

	publisher := notify.Open(cfg.AMQPURL, cfg.EntitlementExchange, log)
	defer publisher.Close()

	st := store.New(db, cfg.ProDuration)
	sessions := session.NewIssuer(cfg.AuthSecret, cfg.SessionTTL, cfg.EnforceProExpiry)
	if !sessions.Configured() {
		log.Warnw("AUTH_SECRET is not set, authenticated routes will answer 500")
	}

	var google authapi.IdentityProvider
	if cfg.GoogleEnabled() {
		google = authapi.NewGoogleProvider(cfg.GoogleClientID, cfg.GoogleClientSecret, cfg.GoogleRedirectURL)
	}

	deps := routes.Deps{
		Store:         st,
		Sessions:      sessions,
		Limiter:       limiter,
		Log:           log,
		InternalToken: cfg.InternalServiceToken,
		EnforceExpiry: cfg.EnforceProExpiry,
		Debug:         !cfg.IsProduction(),
		CheckoutLimit: cfg.CheckoutRateLimit,

		Auth: authapi.NewHandler(st, sessions, log, authapi.Options{
			Google:           google,
			FrontendRedirect: cfg.GoogleFrontendRedirect,
			SecureCookies:    cfg.IsProduction(),
		}),
		Billing: billing.NewHandler(st, payments.NewStripe(cfg.StripeSecretKey), sessions, billing.Settings{
			SecretKey:     cfg.StripeSecretKey,
			PriceID:       cfg.StripePriceID,
			WebhookSecret: cfg.StripeWebhookSecret,
			AppURL:        cfg.AppURL,
		}, log),
		Webhook: stripewebhooks.NewHandler(st, publisher, cfg.StripeWebhookSecret, log),
		Users:   users.NewHandler(st, cfg.EnforceProExpiry, log),
		Jobs:    jobs.NewHandler(jobsapi.New(cfg.JobsAPIURL, jobsapi.DefaultTimeout), log),
		Admin:   admin.NewHandler(st, publisher, log),
	}

	r := gin.New()
	r.Use(gin.Recovery(), middleware.RequestLogger(log))
	r.Use(cors.New(cors.Config{
		AllowOrigins:     []string{cfg.CORSOrigin},
		AllowMethods:     []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", middleware.RequestIDHeader},
		ExposeHeaders:    []string{"Content-Length", middleware.RequestIDHeader},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))
	routes.RegisterRoutes(r, deps)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	go func() {
		log.Infow("listening", "addr", srv.Addr, "env", cfg.AppEnv)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Errorw("server stopped", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	log.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Warnw("graceful shutdown failed", "error", err)
	}
	log.Info("goodbye")
}
