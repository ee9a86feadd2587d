package memory

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/oksasatya/user-account-service/internal/domain/apperr"
	"github.com/oksasatya/user-account-service/internal/domain/repository"
)

// UserRepository keeps users in process memory. One mutex guards both maps and is
// held for the whole of every call.
type UserRepository struct {
	mu      sync.Mutex
	users   map[uuid.UUID]repository.UserRecord
	byEmail map[string]uuid.UUID
}

func NewUserRepository() *UserRepository {
	return &UserRepository{
		users:   make(map[uuid.UUID]repository.UserRecord),
		byEmail: make(map[string]uuid.UUID),
	}
}

func (r *UserRepository) AllocateID(ctx context.Context) (uuid.UUID, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for {
		id := uuid.New()
		if _, taken := r.users[id]; !taken {
			return id, nil
		}
	}
}

func (r *UserRepository) ExistsByID(ctx context.Context, id uuid.UUID) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.users[id]
	return ok, nil
}

func (r *UserRepository) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.byEmail[email]
	return ok, nil
}

func (r *UserRepository) FindByID(ctx context.Context, id uuid.UUID) (repository.UserRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec, ok := r.users[id]
	if !ok {
		return repository.UserRecord{}, apperr.NotFound("user with id %s not found", id)
	}
	return rec, nil
}

func (r *UserRepository) FindByEmail(ctx context.Context, email string) (repository.UserRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	id, ok := r.byEmail[email]
	if !ok {
		return repository.UserRecord{}, apperr.NotFound("user with email %s not found", email)
	}
	return r.users[id], nil
}

func (r *UserRepository) Save(ctx context.Context, rec repository.UserRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	stored, exists := r.users[rec.ID]
	if err := repository.CheckVersion(rec, stored.Version, exists); err != nil {
		return err
	}
	if owner, taken := r.byEmail[rec.Email]; taken && owner != rec.ID {
		return apperr.Conflict("email %s is already taken", rec.Email)
	}
	if exists && stored.Email != rec.Email {
		delete(r.byEmail, stored.Email)
	}
	r.users[rec.ID] = rec
	r.byEmail[rec.Email] = rec.ID
	return nil
}

var _ repository.UserRepository = (*UserRepository)(nil)
