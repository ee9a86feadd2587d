package redis

import (
	"context"
	"errors"

	"github.com/google/uuid"
	red "github.com/redis/go-redis/v9"

	"github.com/oksasatya/user-account-service/internal/domain/apperr"
	"github.com/oksasatya/user-account-service/internal/domain/repository"
	"github.com/oksasatya/user-account-service/pkg/helpers"
)

// UserRepository stores each user as a JSON value under <prefix>:id:<uuid> and keeps
// an index <prefix>:email:<email> -> uuid. Save runs inside WATCH/MULTI on both keys.
type UserRepository struct {
	rdb    *red.Client
	prefix string
}

func NewUserRepository(rdb *red.Client, prefix string) *UserRepository {
	if prefix == "" {
		prefix = "users"
	}
	return &UserRepository{rdb: rdb, prefix: prefix}
}

func (r *UserRepository) idKey(id uuid.UUID) string    { return r.prefix + ":id:" + id.String() }
func (r *UserRepository) emailKey(email string) string { return r.prefix + ":email:" + email }

func (r *UserRepository) AllocateID(ctx context.Context) (uuid.UUID, error) {
	for {
		id := uuid.New()
		ok, err := r.ExistsByID(ctx, id)
		if err != nil {
			return uuid.Nil, err
		}
		if !ok {
			return id, nil
		}
	}
}

func (r *UserRepository) ExistsByID(ctx context.Context, id uuid.UUID) (bool, error) {
	n, err := r.rdb.Exists(ctx, r.idKey(id)).Result()
	if err != nil {
		return false, apperr.Internal("check user id", err)
	}
	return n > 0, nil
}

func (r *UserRepository) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	n, err := r.rdb.Exists(ctx, r.emailKey(email)).Result()
	if err != nil {
		return false, apperr.Internal("check user email", err)
	}
	return n > 0, nil
}

func (r *UserRepository) FindByID(ctx context.Context, id uuid.UUID) (repository.UserRecord, error) {
	var rec repository.UserRecord
	found, err := helpers.RedisGetJSON(ctx, r.rdb, r.idKey(id), &rec)
	if err != nil {
		return repository.UserRecord{}, apperr.Internal("find user by id", err)
	}
	if !found {
		return repository.UserRecord{}, apperr.NotFound("user with id %s not found", id)
	}
	return rec, nil
}

func (r *UserRepository) FindByEmail(ctx context.Context, email string) (repository.UserRecord, error) {
	raw, err := r.rdb.Get(ctx, r.emailKey(email)).Result()
	if errors.Is(err, red.Nil) {
		return repository.UserRecord{}, apperr.NotFound("user with email %s not found", email)
	}
	if err != nil {
		return repository.UserRecord{}, apperr.Internal("find user by email", err)
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return repository.UserRecord{}, apperr.Internal("corrupt email index for "+email, err)
	}
	rec, err := r.FindByID(ctx, id)
	if errors.Is(err, apperr.ErrNotFound) {
		return repository.UserRecord{}, apperr.NotFound("user with email %s not found", email)
	}
	return rec, err
}

func (r *UserRepository) Save(ctx context.Context, rec repository.UserRecord) error {
	idKey, emailKey := r.idKey(rec.ID), r.emailKey(rec.Email)

	txf := func(tx *red.Tx) error {
		var stored repository.UserRecord
		exists, err := helpers.RedisGetJSON(ctx, tx, idKey, &stored)
		if err != nil {
			return apperr.Internal("load user for save", err)
		}
		if err := repository.CheckVersion(rec, stored.Version, exists); err != nil {
			return err
		}
		owner, err := tx.Get(ctx, emailKey).Result()
		if err != nil && !errors.Is(err, red.Nil) {
			return apperr.Internal("load email index", err)
		}
		if err == nil && owner != rec.ID.String() {
			return apperr.Conflict("email %s is already taken", rec.Email)
		}

		_, err = tx.TxPipelined(ctx, func(pipe red.Pipeliner) error {
			if err := helpers.RedisSetJSON(ctx, pipe, idKey, rec, 0); err != nil {
				return err
			}
			pipe.Set(ctx, emailKey, rec.ID.String(), 0)
			if exists && stored.Email != rec.Email {
				pipe.Del(ctx, r.emailKey(stored.Email))
			}
			return nil
		})
		return err
	}

	err := r.rdb.Watch(ctx, txf, idKey, emailKey)
	if errors.Is(err, red.TxFailedErr) {
		return apperr.Conflict("user %s was modified concurrently", rec.ID)
	}
	var appErr *apperr.Error
	if err == nil || errors.As(err, &appErr) {
		return err
	}
	return apperr.Internal("save user", err)
}

var _ repository.UserRepository = (*UserRepository)(nil)
