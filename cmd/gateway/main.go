// Command gateway runs the AI agent gateway HTTP server.
package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/chi/v5"

	gwhttp "github.com/openclaw/gateway/internal/adapter/http"
	"github.com/openclaw/gateway/internal/adapter/postgres"
	"github.com/openclaw/gateway/internal/adapter/vaultproxy"
	"github.com/openclaw/gateway/internal/config"
	"github.com/openclaw/gateway/internal/cryptoutil"
	"github.com/openclaw/gateway/internal/logger"
	"github.com/openclaw/gateway/internal/middleware"
	"github.com/openclaw/gateway/internal/resilience"
	"github.com/openclaw/gateway/internal/service"
	"github.com/openclaw/gateway/internal/tokenauth"
)

func main() {
	if err := run(); err != nil {
		slog.Error("gateway exited with error", "error", err)
		os.Exit(1)
	}
}

func run() error {
	flags, err := config.ParseFlags(os.Args[1:])
	if err != nil {
		return err
	}
	cfg, yamlPath, err := config.LoadWithCLI(flags)
	if err != nil {
		return err
	}
	holder := config.NewHolder(cfg, yamlPath)

	log, closer := logger.New(cfg.Logging)
	slog.SetDefault(log)
	defer closer.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pool, err := postgres.NewPool(ctx, cfg.Database)
	if err != nil {
		return err
	}
	defer pool.Close()

	if err := postgres.RunMigrations(ctx, cfg.Database.DSN); err != nil {
		return err
	}

	store := postgres.NewStore(pool)

	vaultKey, err := cryptoutil.KeyFromHex(cfg.Vault.KeyHex)
	if err != nil {
		return err
	}

	signer := tokenauth.NewSigner([]byte(cfg.Auth.SessionSecret))

	auditSvc := service.NewAuditService(store)
	authSvc := service.NewAuthService(store, signer, auditSvc, cfg.Auth)
	orchestratorSvc := service.NewOrchestratorService(store, auditSvc, cfg.Breaker)
	rateLimiterSvc := service.NewRateLimiterService(store)

	vaultClient := vaultproxy.New(cfg.Vault.CompletionTimeout)
	vaultClient.SetBreaker(resilience.NewBreaker(cfg.Breaker.MaxFailures, cfg.Breaker.Timeout))
	vaultSvc := service.NewVaultService(store, vaultClient, vaultKey)

	if err := authSvc.BootstrapAdmin(ctx); err != nil {
		return err
	}

	orchestratorSvc.StartHealthProbeLoop(ctx, cfg.Orchestrator.HealthProbeInterval)

	handlers := &gwhttp.Handlers{
		Auth:         authSvc,
		Orchestrator: orchestratorSvc,
		AuditSvc:     auditSvc,
		RateLimiter:  rateLimiterSvc,
		Vault:        vaultSvc,
		Signer:       signer,
		AuthCfg:      cfg.Auth,
		StartedAt:    time.Now().UTC(),
	}

	r := chi.NewRouter()
	r.Use(
		gwhttp.SecurityHeaders,
		gwhttp.CORS(holder.Get().Server.CORSOrigin),
		middleware.RequestID,
		gwhttp.Logger,
		chimw.RealIP,
		chimw.Recoverer,
		chimw.Timeout(30*time.Second),
	)
	gwhttp.MountRoutes(r, handlers)

	srv := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("gateway listening", "port", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		slog.Info("shutting down")
	case err := <-errCh:
		return err
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
