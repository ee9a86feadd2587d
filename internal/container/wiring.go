package container

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/oksasatya/user-account-service/config"
	"github.com/oksasatya/user-account-service/internal/application"
	"github.com/oksasatya/user-account-service/internal/domain/repository"
	"github.com/oksasatya/user-account-service/internal/domain/service"
	esinfra "github.com/oksasatya/user-account-service/internal/infrastructure/elasticsearch"
	"github.com/oksasatya/user-account-service/internal/infrastructure/memory"
	"github.com/oksasatya/user-account-service/internal/infrastructure/notify"
	pginfra "github.com/oksasatya/user-account-service/internal/infrastructure/postgres"
	redisinfra "github.com/oksasatya/user-account-service/internal/infrastructure/redis"
	"github.com/oksasatya/user-account-service/pkg/helpers"
	mailtpl "github.com/oksasatya/user-account-service/pkg/mailer/templates"
	"github.com/oksasatya/user-account-service/pkg/validation"
)

// Connect stores c and l and opens the clients the configured backends need.
// Redis is always created for rate limiting; the client connects lazily.
// The returned func closes everything that was opened.
func Connect(ctx context.Context, c *config.Config, l *logrus.Logger) (func(), error) {
	SetConfig(c)
	SetLogger(l)
	SetJWT(helpers.NewJWTManager(c.JWTAccessSecret, c.AccessTTL))

	var closers []func()
	closeAll := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	rdb := helpers.NewRedisClient(c.RedisAddr, c.RedisPassword, c.RedisDB)
	SetRedis(rdb)
	closers = append(closers, func() { _ = rdb.Close() })

	switch c.StorageBackend {
	case config.StoragePostgres:
		pool, err := pginfra.NewPool(ctx, c.PostgresDSN(), c.DBMaxConns, c.DBMinConns, c.DBMaxConnLife)
		if err != nil {
			closeAll()
			return nil, err
		}
		SetPGPool(pool)
		closers = append(closers, pool.Close)
	case config.StorageElasticsearch:
		es, err := helpers.NewESClient(c.ESAddrs(), c.ElasticsearchUser, c.ElasticsearchPass)
		if err != nil {
			closeAll()
			return nil, fmt.Errorf("elasticsearch client: %w", err)
		}
		SetES(es)
	}
	return closeAll, nil
}

// ConnectNotifications opens the RabbitMQ publisher when notifications are enabled.
// Notifications are best effort, so a broker that is down only disables them.
func ConnectNotifications(c *config.Config, l *logrus.Logger) func() {
	if !c.NotifyEnabled {
		return func() {}
	}
	pub, err := helpers.NewRabbitPublisher(c.RabbitMQURL, c.RabbitMQEmailQueue)
	if err != nil {
		l.WithError(err).Warn("rabbitmq unavailable; account notifications disabled")
		return func() {}
	}
	SetRabbitPub(pub)
	return pub.Close
}

// NewUserRepository returns the repository for the configured storage backend.
func NewUserRepository(ctx context.Context) (repository.UserRepository, error) {
	switch cfg.StorageBackend {
	case config.StorageMemory:
		return memory.NewUserRepository(), nil
	case config.StoragePostgres:
		if pgPool == nil {
			return nil, fmt.Errorf("postgres backend selected but no pool is connected")
		}
		return pginfra.NewUserRepository(pgPool), nil
	case config.StorageRedis:
		if redisClient == nil {
			return nil, fmt.Errorf("redis backend selected but no client is connected")
		}
		return redisinfra.NewUserRepository(redisClient, cfg.RedisKeyPrefix), nil
	case config.StorageElasticsearch:
		if esClient == nil {
			return nil, fmt.Errorf("elasticsearch backend selected but no client is connected")
		}
		repo := esinfra.NewUserRepository(esClient, cfg.ESUsersIndex)
		if err := repo.EnsureIndex(ctx); err != nil {
			return nil, err
		}
		return repo, nil
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.StorageBackend)
	}
}

// NewPasswordHasher returns the configured hasher.
func NewPasswordHasher() (service.PasswordHasher, error) {
	switch cfg.PasswordHasher {
	case config.HasherBcrypt:
		return helpers.NewBcryptHasher(cfg.BcryptCost), nil
	case config.HasherArgon2:
		p := helpers.DefaultArgon2Params()
		p.Iterations = uint32(cfg.Argon2Time)
		p.Memory = uint32(cfg.Argon2MemoryKiB)
		p.Parallelism = uint8(cfg.Argon2Threads)
		return helpers.NewArgon2Hasher(p)
	default:
		return nil, fmt.Errorf("unknown password hasher %q", cfg.PasswordHasher)
	}
}

func NewPasswordPolicy() *validation.PasswordPolicy {
	return validation.DefaultPasswordPolicy(cfg.PasswordMinLength, cfg.PasswordMinScore)
}

// NewNotifier returns the email notifier, or nil when no publisher is connected.
func NewNotifier() application.AccountNotifier {
	if rabbitPub == nil {
		return nil
	}
	return notify.NewEmailNotifier(rabbitPub, mailtpl.Branding{
		AppName:     cfg.AppName,
		CompanyName: cfg.CompanyName,
		SupportURL:  cfg.SupportURL,
	})
}
