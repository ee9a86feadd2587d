package postgres

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/oksasatya/user-account-service/internal/domain/apperr"
	"github.com/oksasatya/user-account-service/internal/domain/repository"
)

const uniqueViolation = "23505"

// querier is the subset of *pgxpool.Pool the repository needs.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type UserRepository struct {
	db querier
}

func NewUserRepository(db querier) *UserRepository {
	return &UserRepository{db: db}
}

const selectUser = `
	SELECT id, email, state, status, password_hash, version
	FROM users
`

func (r *UserRepository) AllocateID(ctx context.Context) (uuid.UUID, error) {
	return uuid.New(), nil
}

func (r *UserRepository) ExistsByID(ctx context.Context, id uuid.UUID) (bool, error) {
	var ok bool
	if err := r.db.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM users WHERE id = $1)`, id).Scan(&ok); err != nil {
		return false, apperr.Internal("check user id", err)
	}
	return ok, nil
}

func (r *UserRepository) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	var ok bool
	if err := r.db.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM users WHERE email = $1)`, email).Scan(&ok); err != nil {
		return false, apperr.Internal("check user email", err)
	}
	return ok, nil
}

func (r *UserRepository) FindByID(ctx context.Context, id uuid.UUID) (repository.UserRecord, error) {
	rec, err := scanUser(r.db.QueryRow(ctx, selectUser+`WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return repository.UserRecord{}, apperr.NotFound("user with id %s not found", id)
	}
	if err != nil {
		return repository.UserRecord{}, apperr.Internal("find user by id", err)
	}
	return rec, nil
}

func (r *UserRepository) FindByEmail(ctx context.Context, email string) (repository.UserRecord, error) {
	rec, err := scanUser(r.db.QueryRow(ctx, selectUser+`WHERE email = $1`, email))
	if errors.Is(err, pgx.ErrNoRows) {
		return repository.UserRecord{}, apperr.NotFound("user with email %s not found", email)
	}
	if err != nil {
		return repository.UserRecord{}, apperr.Internal("find user by email", err)
	}
	return rec, nil
}

// Save inserts version 1 records and otherwise updates the row only while it still
// holds the previous version.
func (r *UserRepository) Save(ctx context.Context, rec repository.UserRecord) error {
	if rec.Version == 0 {
		return repository.CheckVersion(rec, 0, false)
	}

	var (
		tag pgconn.CommandTag
		err error
	)
	if rec.Version == 1 {
		tag, err = r.db.Exec(ctx, `
			INSERT INTO users (id, email, state, status, password_hash, version)
			VALUES ($1, $2, $3, $4, $5, $6)
			ON CONFLICT (id) DO NOTHING
		`, rec.ID, rec.Email, rec.State, rec.Status, rec.PasswordHash, int64(rec.Version))
	} else {
		tag, err = r.db.Exec(ctx, `
			UPDATE users
			SET email = $2, state = $3, status = $4, password_hash = $5, version = $6, updated_at = now()
			WHERE id = $1 AND version = $7
		`, rec.ID, rec.Email, rec.State, rec.Status, rec.PasswordHash, int64(rec.Version), int64(rec.Version-1))
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return apperr.Conflict("email %s is already taken", rec.Email)
	}
	if err != nil {
		return apperr.Internal("save user", err)
	}
	if tag.RowsAffected() == 0 {
		return apperr.Conflict("user %s was modified concurrently", rec.ID)
	}
	return nil
}

func scanUser(row pgx.Row) (repository.UserRecord, error) {
	var (
		rec     repository.UserRecord
		id      string
		version int64
	)
	if err := row.Scan(&id, &rec.Email, &rec.State, &rec.Status, &rec.PasswordHash, &version); err != nil {
		return repository.UserRecord{}, err
	}
	parsed, err := uuid.Parse(id)
	if err != nil {
		return repository.UserRecord{}, err
	}
	rec.ID = parsed
	rec.Version = uint64(version)
	return rec, nil
}

var _ repository.UserRepository = (*UserRepository)(nil)
