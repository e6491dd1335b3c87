package main

import (
	"context"
	"flag"
	"os"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/PietroNozella/PetWalker/internal/app/bootstrap"
	"github.com/PietroNozella/PetWalker/internal/app/migrate"
	"github.com/PietroNozella/PetWalker/internal/repository/postgres"
	"github.com/PietroNozella/PetWalker/pkg/config"
	"github.com/PietroNozella/PetWalker/pkg/crypto"
	"github.com/PietroNozella/PetWalker/pkg/logger"
)

func main() {
	command := flag.String("command", "up", "migrate command (up|status|down|seed)")
	timeout := flag.Duration("timeout", time.Minute, "command timeout")
	target := flag.Int64("target", 0, "target version for down command (optional)")
	envFile := flag.String("env", ".env", "dotenv file loaded before reading configuration")
	flag.Parse()

	config.LoadDotEnv(*envFile)
	cfg := config.LoadAPIConfig()
	log := logger.New("migrate", logger.ParseLevel(cfg.LogLevel))

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}

	runner, err := migrate.New(pool, cfg.DatabaseURL, cfg.MigrationsDir, log)
	if err != nil {
		log.Error("failed to configure migration runner", "error", err)
		os.Exit(1)
	}
	defer runner.Close()

	switch *command {
	case "up":
		if err := runner.Ensure(ctx); err != nil {
			log.Error("failed to apply migrations", "error", err)
			os.Exit(1)
		}
	case "status":
		if err := runner.Status(ctx); err != nil {
			log.Error("failed to fetch migration status", "error", err)
			os.Exit(1)
		}
	case "down":
		if err := runner.Down(ctx, *target); err != nil {
			log.Error("failed to roll back migrations", "error", err)
			os.Exit(1)
		}
	case "seed":
		if err := runner.Ensure(ctx); err != nil {
			log.Error("failed to apply migrations", "error", err)
			os.Exit(1)
		}
		admin := cfg.DefaultAdmin
		admin.Enabled = true
		if err := bootstrap.EnsureAdmin(ctx, postgres.New(pool), crypto.NewHasher(cfg.BcryptCost), admin, log); err != nil {
			log.Error("failed to seed default admin", "error", err)
			os.Exit(1)
		}
	default:
		log.Error("unsupported command", "command", *command)
		os.Exit(1)
	}

	log.Info("migration command completed", "command", *command)
}
