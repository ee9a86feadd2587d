package main

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/oksasatya/user-account-service/config"
	"github.com/oksasatya/user-account-service/internal/application"
	"github.com/oksasatya/user-account-service/internal/container"
	pginfra "github.com/oksasatya/user-account-service/internal/infrastructure/postgres"
	"github.com/oksasatya/user-account-service/pkg/helpers"
	"github.com/oksasatya/user-account-service/pkg/validation"
)

// seed creates the first Active admin from SEED_ADMIN_EMAIL and SEED_ADMIN_PASSWORD.
func main() {
	config.LoadEnvFile()
	cfg := config.Load()
	logger := helpers.NewLogger(cfg.AppName+"-seed", cfg.Env)
	if err := cfg.Validate(); err != nil {
		logger.WithError(err).Fatal("invalid configuration")
	}

	if cfg.SeedAdminEmail == "" || cfg.SeedAdminPassword == "" {
		logger.Fatal("SEED_ADMIN_EMAIL and SEED_ADMIN_PASSWORD are required")
	}
	if cfg.StorageBackend == config.StorageMemory {
		logger.Fatal("seeding the memory backend has no effect; pick a persistent STORAGE_BACKEND")
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	closeClients, err := container.Connect(ctx, cfg, logger)
	if err != nil {
		logger.WithError(err).Fatal("failed to connect storage")
	}
	defer closeClients()

	if cfg.StorageBackend == config.StoragePostgres {
		if err := pginfra.Migrate(cfg.PostgresDSN(), cfg.MigrationsDir, logger); err != nil {
			logger.WithError(err).Fatal("migration failed")
		}
	}

	repo, err := container.NewUserRepository(ctx)
	if err != nil {
		logger.WithError(err).Fatal("failed to build user repository")
	}
	hasher, err := container.NewPasswordHasher()
	if err != nil {
		logger.WithError(err).Fatal("failed to build password hasher")
	}

	register := application.NewRegisterUser(repo, validation.NewEmailValidator(), container.NewPasswordPolicy(), hasher, nil, logger)
	rec, created, err := application.NewBootstrapAdmin(register).Execute(ctx, cfg.SeedAdminEmail, cfg.SeedAdminPassword)
	if err != nil {
		logger.WithError(err).Fatal("failed to seed admin")
	}

	entry := logger.WithFields(logrus.Fields{
		"user_id": rec.ID,
		"email":   helpers.MaskEmail(rec.Email),
		"backend": cfg.StorageBackend,
	})
	if created {
		entry.Info("admin created")
		return
	}
	entry.Info("admin already exists")
}
