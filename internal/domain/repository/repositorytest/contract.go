// Package repositorytest holds the behaviour every repository.UserRepository must share.
package repositorytest

import (
	"context"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oksasatya/user-account-service/internal/domain/apperr"
	"github.com/oksasatya/user-account-service/internal/domain/repository"
)

// Record returns an unsaved-yet-valid version 1 record.
func Record(id uuid.UUID, email string) repository.UserRecord {
	return repository.UserRecord{
		ID:           id,
		Email:        email,
		State:        "active",
		Status:       "user",
		PasswordHash: "hash",
		Version:      1,
	}
}

// Run exercises repo against the UserRepository contract. newRepo must return an empty store.
func Run(t *testing.T, newRepo func(t *testing.T) repository.UserRepository) {
	t.Run("allocate id is unique", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()
		seen := map[uuid.UUID]bool{}
		for i := 0; i < 50; i++ {
			id, err := repo.AllocateID(ctx)
			require.NoError(t, err)
			assert.False(t, seen[id])
			seen[id] = true
		}
	})

	t.Run("missing user", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()
		id := uuid.New()

		ok, err := repo.ExistsByID(ctx, id)
		require.NoError(t, err)
		assert.False(t, ok)

		ok, err = repo.ExistsByEmail(ctx, "nobody@x.com")
		require.NoError(t, err)
		assert.False(t, ok)

		_, err = repo.FindByID(ctx, id)
		assert.ErrorIs(t, err, apperr.ErrNotFound)
		assert.Contains(t, err.Error(), id.String())

		_, err = repo.FindByEmail(ctx, "nobody@x.com")
		assert.ErrorIs(t, err, apperr.ErrNotFound)
		assert.Contains(t, err.Error(), "nobody@x.com")
	})

	t.Run("insert and find", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()
		rec := Record(uuid.New(), "a@x.com")
		require.NoError(t, repo.Save(ctx, rec))

		got, err := repo.FindByID(ctx, rec.ID)
		require.NoError(t, err)
		assert.Equal(t, rec, got)

		got, err = repo.FindByEmail(ctx, "a@x.com")
		require.NoError(t, err)
		assert.Equal(t, rec, got)

		ok, err := repo.ExistsByID(ctx, rec.ID)
		require.NoError(t, err)
		assert.True(t, ok)

		ok, err = repo.ExistsByEmail(ctx, "a@x.com")
		require.NoError(t, err)
		assert.True(t, ok)
	})

	t.Run("update moves email index", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()
		rec := Record(uuid.New(), "a@x.com")
		require.NoError(t, repo.Save(ctx, rec))

		rec.Email = "b@x.com"
		rec.State = "frozen"
		rec.Version = 2
		require.NoError(t, repo.Save(ctx, rec))

		got, err := repo.FindByEmail(ctx, "b@x.com")
		require.NoError(t, err)
		assert.Equal(t, rec, got)

		_, err = repo.FindByEmail(ctx, "a@x.com")
		assert.ErrorIs(t, err, apperr.ErrNotFound)
	})

	t.Run("stale version conflicts", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()
		rec := Record(uuid.New(), "a@x.com")
		require.NoError(t, repo.Save(ctx, rec))

		assert.ErrorIs(t, repo.Save(ctx, rec), apperr.ErrConflict)

		skipped := rec
		skipped.Version = 3
		assert.ErrorIs(t, repo.Save(ctx, skipped), apperr.ErrConflict)

		got, err := repo.FindByID(ctx, rec.ID)
		require.NoError(t, err)
		assert.Equal(t, uint64(1), got.Version)
	})

	t.Run("update of missing user conflicts", func(t *testing.T) {
		repo := newRepo(t)
		rec := Record(uuid.New(), "a@x.com")
		rec.Version = 2
		assert.ErrorIs(t, repo.Save(context.Background(), rec), apperr.ErrConflict)
	})

	t.Run("duplicate email conflicts", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()
		require.NoError(t, repo.Save(ctx, Record(uuid.New(), "a@x.com")))

		other := Record(uuid.New(), "a@x.com")
		assert.ErrorIs(t, repo.Save(ctx, other), apperr.ErrConflict)

		ok, err := repo.ExistsByID(ctx, other.ID)
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("concurrent updates of one version", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()
		rec := Record(uuid.New(), "a@x.com")
		require.NoError(t, repo.Save(ctx, rec))

		const writers = 8
		var wg sync.WaitGroup
		errs := make(chan error, writers)
		for i := 0; i < writers; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				next := rec
				next.Version = 2
				next.Status = "admin"
				errs <- repo.Save(ctx, next)
			}()
		}
		wg.Wait()
		close(errs)

		succeeded := 0
		for err := range errs {
			if err == nil {
				succeeded++
				continue
			}
			assert.ErrorIs(t, err, apperr.ErrConflict)
		}
		assert.Equal(t, 1, succeeded)
	})
}
