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

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"mailforge/config"
	"mailforge/database"
	adminapi "mailforge/internal/api/admin"
	authapi "mailforge/internal/api/auth"
	backendhandler "mailforge/internal/api/backend"
	betaapi "mailforge/internal/api/beta"
	billingapi "mailforge/internal/api/billing"
	emailsapi "mailforge/internal/api/emails"
	plansapi "mailforge/internal/api/plans"
	stripewebhooks "mailforge/internal/api/stripewebhook"
	uploadsapi "mailforge/internal/api/uploads"
	usersapi "mailforge/internal/api/users"
	routes "mailforge/internal/app/http"
	"mailforge/internal/app/http/middleware"
	"mailforge/internal/domain/beta"
	"mailforge/internal/domain/billing"
	"mailforge/internal/domain/plans"
	"mailforge/internal/domain/users"
	"mailforge/internal/infra/backendapi"
	"mailforge/internal/infra/devicecache"
	"mailforge/internal/infra/logger"
	"mailforge/internal/infra/mailer"
	"mailforge/internal/infra/storage"
	"mailforge/internal/infra/stripe"
)

func main() {
	cfg := config.MustLoad()

	log := logger.New(cfg.LogLevel, cfg.LogFormat, os.Stdout)
	slog.SetDefault(log)

	if cfg.AppEnv == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := database.Connect(cfg.DBURL)
	if err != nil {
		fatal("connect database", err)
	}
	if err := database.Migrate(db); err != nil {
		fatal("migrate database", err)
	}

	userRepo := users.NewRepository(db)
	planRepo := plans.NewRepository(db)
	betaRepo := beta.NewRepository(db)
	paymentRepo := billing.NewRepository(db)

	if err := planRepo.EnsureFree(ctx); err != nil {
		fatal("seed free plan", err)
	}

	mail, err := mailer.New(cfg.Mail)
	if err != nil {
		fatal("init mailer", err)
	}
	devices, err := devicecache.New(cfg.Device)
	if err != nil {
		fatal("init device cache", err)
	}

	var gateway stripe.Gateway
	if sc, err := stripe.New(cfg.Stripe); err == nil {
		gateway = sc
	} else {
		slog.Warn("stripe disabled, billing endpoints answer 503", slog.Any("error", err))
	}

	authCfg := authapi.Config{
		JWTSecret:     cfg.JWTSecret,
		JWTTTL:        cfg.JWTTTL,
		PublicURL:     cfg.PublicURL,
		FrontendURL:   cfg.FrontendURL,
		DeviceTTL:     cfg.Device.TTL,
		SecureCookies: cfg.AppEnv == "production",
	}

	h := routes.Handlers{
		Auth:    authapi.NewHandler(userRepo, mail, devices, authCfg),
		Beta:    betaapi.NewHandler(betaRepo, mail, cfg.BetaEnabled, cfg.FrontendURL),
		Emails:  emailsapi.NewHandler(mail),
		Backend: backendhandler.NewHandler(backendapi.New(cfg.Backend), cfg.BetaEnabled),
		Billing: billingapi.NewHandler(userRepo, planRepo, paymentRepo, gateway, cfg.FrontendURL, cfg.AppEnv),
		Webhook: stripewebhooks.NewHandler(userRepo, planRepo, paymentRepo, gateway),
		Plans:   plansapi.NewHandler(planRepo, gateway),
		Users:   usersapi.NewHandler(cfg.BetaEnabled),
		Admin:   adminapi.NewHandler(userRepo, paymentRepo, betaRepo, cfg.BetaEnabled),
	}

	if cfg.OIDC.Enabled() {
		h.OIDC, err = authapi.NewOIDC(ctx, cfg.OIDC, userRepo, devices, authCfg)
		if err != nil {
			fatal("init oidc", err)
		}
	}

	if cfg.Storage.Bucket != "" {
		presigner, err := storage.New(ctx, cfg.Storage)
		if err != nil {
			fatal("init storage", err)
		}
		h.Uploads = uploadsapi.NewHandler(presigner, cfg.Storage.UploadTTL, cfg.Storage.PublicURL)
	} else {
		slog.Warn("STORAGE_BUCKET not set, uploads disabled")
	}

	r := gin.New()
	r.Use(gin.Recovery(), middleware.RequestLogger(log))
	r.Use(cors.New(cors.Config{
		AllowOrigins:     []string{cfg.CORSOrigin},
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", "Stripe-Signature"},
		ExposeHeaders:    []string{"Content-Length", "Content-Disposition"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	routes.RegisterRoutes(r, h, routes.Options{
		JWTSecret:   cfg.JWTSecret,
		BetaEnabled: cfg.BetaEnabled,
		Users:       userRepo,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		slog.Info("listening", slog.String("addr", srv.Addr), slog.String("env", cfg.AppEnv))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			fatal("http server", err)
		}
	}()

	<-ctx.Done()
	slog.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("graceful shutdown", slog.Any("error", err))
	}
	if closer, ok := devices.(interface{ Close() error }); ok {
		_ = closer.Close()
	}
}

func fatal(msg string, err error) {
	slog.Error(msg, slog.Any("error", err))
	os.Exit(1)
}
