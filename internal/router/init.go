package router

import (
	"context"

	"github.com/oksasatya/user-account-service/internal/application"
	"github.com/oksasatya/user-account-service/internal/container"
	"github.com/oksasatya/user-account-service/internal/domain/repository"
	handlers "github.com/oksasatya/user-account-service/internal/interface/http"
	"github.com/oksasatya/user-account-service/internal/interface/middleware"
	"github.com/oksasatya/user-account-service/internal/router/modules"
	"github.com/oksasatya/user-account-service/pkg/helpers"
	"github.com/oksasatya/user-account-service/pkg/validation"
)

type UserModuleDeps struct {
	Repo        repository.UserRepository
	UserHandler *handlers.UserHandler
	AuthHandler *handlers.AuthHandler
}

func buildUserDeps(ctx context.Context) (UserModuleDeps, error) {
	cfg := container.GetConfig()
	logger := container.GetLogger()

	repo, err := container.NewUserRepository(ctx)
	if err != nil {
		return UserModuleDeps{}, err
	}
	hasher, err := container.NewPasswordHasher()
	if err != nil {
		return UserModuleDeps{}, err
	}
	emails := validation.NewEmailValidator()
	passwords := container.NewPasswordPolicy()
	notifier := container.NewNotifier()

	userHandler := handlers.NewUserHandler(
		application.NewRegisterUser(repo, emails, passwords, hasher, notifier, logger),
		application.NewGetUser(repo),
		application.NewChangeUser(repo, emails, passwords, hasher, notifier, logger),
		logger,
	)
	authHandler := handlers.NewAuthHandler(
		application.NewAuthenticate(repo, hasher, logger),
		container.GetJWT(),
		logger,
		cfg.CookieDomain,
		cfg.CookieSecure,
	)

	return UserModuleDeps{Repo: repo, UserHandler: userHandler, AuthHandler: authHandler}, nil
}

// healthChecks pings whatever the configured backend talks to.
func healthChecks() map[string]handlers.HealthCheck {
	checks := map[string]handlers.HealthCheck{}
	if rdb := container.GetRedis(); rdb != nil {
		checks["redis"] = func(ctx context.Context) error { return rdb.Ping(ctx).Err() }
	}
	if pool := container.GetPGPool(); pool != nil {
		checks["postgres"] = pool.Ping
	}
	if es := container.GetES(); es != nil {
		checks["elasticsearch"] = func(ctx context.Context) error { return helpers.PingES(ctx, es) }
	}
	return checks
}

// InitModules initializes all application modules and registers them with the router registry
// This function should be called once during application startup to wire up all modules
func InitModules(ctx context.Context, r *Registry) error {
	deps, err := buildUserDeps(ctx)
	if err != nil {
		return err
	}
	cfg := container.GetConfig()
	limiter := middleware.NewLimiter(container.GetRedis(), cfg.RedisKeyPrefix, container.GetLogger())
	limit := middleware.Limit{Requests: cfg.RateLimitRequests, Window: cfg.RateLimitWindow}

	r.Add(modules.NewHealthModule(handlers.NewHealthHandler(healthChecks())))
	r.Add(modules.NewAuthModule(deps.AuthHandler, container.GetJWT(), limiter, limit))
	r.Add(modules.NewUserModule(deps.UserHandler, container.GetJWT(), limiter, limit))
	if cfg.DebugMetricsEnabled {
		r.Add(modules.NewDebugModule(limiter))
	}
	return nil
}
