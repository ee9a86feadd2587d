package redis

import (
	"context"
	"testing"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	red "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oksasatya/user-account-service/internal/domain/apperr"
	"github.com/oksasatya/user-account-service/internal/domain/repository"
	"github.com/oksasatya/user-account-service/internal/domain/repository/repositorytest"
)

func newTestRedis(t *testing.T) (*red.Client, *miniredis.Miniredis) {
	t.Helper()

	server, err := miniredis.Run()
	if err != nil {
		t.Fatalf("failed to start miniredis: %v", err)
	}

	client := red.NewClient(&red.Options{Addr: server.Addr()})

	t.Cleanup(func() {
		_ = client.Close()
		server.Close()
	})

	return client, server
}

func TestUserRepositoryContract(t *testing.T) {
	repositorytest.Run(t, func(t *testing.T) repository.UserRepository {
		client, _ := newTestRedis(t)
		return NewUserRepository(client, "users")
	})
}

func TestUserRepositoryKeyLayout(t *testing.T) {
	client, server := newTestRedis(t)
	repo := NewUserRepository(client, "acct")
	rec := repositorytest.Record(uuid.New(), "a@x.com")

	require.NoError(t, repo.Save(context.Background(), rec))

	owner, err := server.Get("acct:email:a@x.com")
	require.NoError(t, err)
	assert.Equal(t, rec.ID.String(), owner)
	assert.True(t, server.Exists("acct:id:"+rec.ID.String()))
}

func TestFindByIDCorruptValue(t *testing.T) {
	client, server := newTestRedis(t)
	repo := NewUserRepository(client, "")
	id := uuid.New()
	require.NoError(t, server.Set("users:id:"+id.String(), "{not json"))

	_, err := repo.FindByID(context.Background(), id)
	assert.ErrorIs(t, err, apperr.ErrInternal)
}

func TestUnavailableServerIsInternal(t *testing.T) {
	client, server := newTestRedis(t)
	repo := NewUserRepository(client, "users")
	server.Close()

	_, err := repo.ExistsByEmail(context.Background(), "a@x.com")
	assert.ErrorIs(t, err, apperr.ErrInternal)

	err = repo.Save(context.Background(), repositorytest.Record(uuid.New(), "a@x.com"))
	assert.ErrorIs(t, err, apperr.ErrInternal)
}
