package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/PietroNozella/PetWalker/internal/app/bootstrap"
	"github.com/PietroNozella/PetWalker/internal/app/migrate"
	httpx "github.com/PietroNozella/PetWalker/internal/http"
	"github.com/PietroNozella/PetWalker/internal/repository/postgres"
	"github.com/PietroNozella/PetWalker/internal/service/activity"
	"github.com/PietroNozella/PetWalker/internal/service/auth"
	"github.com/PietroNozella/PetWalker/internal/service/dog"
	"github.com/PietroNozella/PetWalker/internal/service/media"
	"github.com/PietroNozella/PetWalker/internal/service/schedule"
	"github.com/PietroNozella/PetWalker/internal/service/stats"
	"github.com/PietroNozella/PetWalker/internal/storage"
	"github.com/PietroNozella/PetWalker/internal/ws"
	"github.com/PietroNozella/PetWalker/pkg/config"
	"github.com/PietroNozella/PetWalker/pkg/crypto"
	"github.com/PietroNozella/PetWalker/pkg/jwt"
	"github.com/PietroNozella/PetWalker/pkg/logger"
)

func main() {
	config.LoadDotEnv()
	cfg := config.LoadAPIConfig()
	log := logger.New("api", logger.ParseLevel(cfg.LogLevel))
	if err := cfg.Validate(); err != nil {
		log.Error("invalid configuration", "error", err, "env", cfg.Environment)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	runner, err := migrate.New(pool, cfg.DatabaseURL, cfg.MigrationsDir, log)
	if err != nil {
		log.Error("failed to configure migrations", "error", err)
		os.Exit(1)
	}
	defer runner.Close()
	if err := runner.Ping(ctx); err != nil {
		log.Error("database ping failed", "error", err)
		os.Exit(1)
	}
	if err := runner.Ensure(ctx); err != nil {
		log.Error("migrations failed", "error", err)
		os.Exit(1)
	}

	repo := postgres.New(pool)
	hasher := crypto.NewHasher(cfg.BcryptCost)
	if err := bootstrap.EnsureAdmin(ctx, repo, hasher, cfg.DefaultAdmin, log); err != nil {
		log.Error("default admin bootstrap failed", "error", err)
		os.Exit(1)
	}

	issuer, err := jwt.NewIssuer(cfg.JWTSecret, cfg.JWTIssuer, cfg.TokenLeeway)
	if err != nil {
		log.Error("failed to configure token issuer", "error", err)
		os.Exit(1)
	}

	store, uploadsDir, err := openStore(ctx, cfg.Media)
	if err != nil {
		log.Error("failed to configure media storage", "error", err, "backend", cfg.Media.Backend)
		os.Exit(1)
	}

	hub := ws.NewHub()
	defer hub.Close()

	activitySvc := activity.New(repo, hub, log)
	services := httpx.Services{
		Auth: auth.New(repo, issuer, hasher, log, cfg),
		Dogs: dog.New(dog.Repositories{
			Dogs:      repo,
			Users:     repo,
			Walks:     repo,
			Trainings: repo,
			Media:     repo,
		}, store, activitySvc, log, cfg),
		Schedule: schedule.New(repo, repo, repo, activitySvc, log),
		Media:    media.New(repo, repo, store, activitySvc, log),
		Stats:    stats.New(repo, log),
		Activity: activitySvc,
	}

	limiter := httpx.NewMemoryRateLimiter()
	if addr := strings.TrimSpace(cfg.RateLimitRedis.Addr); addr != "" {
		redisLimiter, err := httpx.NewRedisRateLimiter(addr, cfg.RateLimitRedis.Password, cfg.RateLimitRedis.DB, log)
		if err != nil {
			log.Warn("redis rate limiter unavailable", "error", err)
		} else {
			limiter.Close()
			limiter = redisLimiter
		}
	}

	router := httpx.NewRouter(log, services, httpx.Options{
		Limiter:        limiter,
		DBHealth:       pool.Ping,
		CORSOrigins:    cfg.CORSOrigins,
		StaticDir:      cfg.StaticDir,
		UploadsDir:     uploadsDir,
		MaxUploadBytes: cfg.Media.MaxUploadBytes,
		MetricsEnabled: cfg.MetricsEnabled,
	})
	defer router.Close()

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           router,
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
	}

	errorCh := make(chan error, 1)
	go func() {
		log.Info("api server starting", "addr", cfg.Addr, "env", cfg.Environment, "media_backend", cfg.Media.Backend)
		errorCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Error("graceful shutdown failed", "error", err)
		}
		log.Info("api server stopped")
	case err := <-errorCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server error", "error", err)
			os.Exit(1)
		}
	}
}

// openStore builds the configured media backend. The returned directory is
// served under /uploads/ and is empty for remote backends.
func openStore(ctx context.Context, cfg config.MediaConfig) (storage.Store, string, error) {
	switch cfg.Backend {
	case "", "local":
		local, err := storage.NewLocal(cfg.UploadsDir, "/uploads")
		if err != nil {
			return nil, "", err
		}
		return local, local.Root(), nil
	case "s3":
		s3Store, err := storage.NewS3(ctx, storage.S3Options{
			Endpoint:  cfg.S3.Endpoint,
			Region:    cfg.S3.Region,
			Bucket:    cfg.S3.Bucket,
			AccessKey: cfg.S3.AccessKey,
			SecretKey: cfg.S3.SecretKey,
			PublicURL: cfg.S3.PublicURL,
		})
		if err != nil {
			return nil, "", err
		}
		return s3Store, "", nil
	}
	return nil, "", fmt.Errorf("unknown media backend %q", cfg.Backend)
}
