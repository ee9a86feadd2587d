package repository

import (
	"context"

	"github.com/google/uuid"

	"github.com/oksasatya/user-account-service/internal/domain/apperr"
	"github.com/oksasatya/user-account-service/internal/domain/entity"
)

// UserRecord is the flattened, storable form of entity.User.
// State and Status hold the lowercase tokens ("active", "admin", ...).
type UserRecord struct {
	ID           uuid.UUID `json:"id"`
	Email        string    `json:"email"`
	State        string    `json:"state"`
	Status       string    `json:"status"`
	PasswordHash string    `json:"password_hash"`
	Version      uint64    `json:"version"`
}

// RecordFromUser flattens a user for storage.
func RecordFromUser(u *entity.User) UserRecord {
	return UserRecord{
		ID:           u.ID(),
		Email:        u.Email(),
		State:        u.State().String(),
		Status:       u.Status().String(),
		PasswordHash: u.PasswordHash(),
		Version:      u.Version(),
	}
}

// ToUser decodes the record. Unknown tokens are InvalidData, version 0 is Internal.
func (r UserRecord) ToUser() (*entity.User, error) {
	state, err := entity.ParseState(r.State)
	if err != nil {
		return nil, err
	}
	status, err := entity.ParseStatus(r.Status)
	if err != nil {
		return nil, err
	}
	return entity.RestoreUser(r.ID, r.Email, state, status, r.PasswordHash, r.Version)
}

// UserRepository defines the storage contract for users.
//
// Save upserts by ID using the record version as an optimistic lock: a record with
// version v replaces a stored record only if the stored version is v-1, and is inserted
// only if nothing is stored under its ID and v is 1. Any other case fails with a
// Conflict error and leaves the store untouched.
type UserRepository interface {
	AllocateID(ctx context.Context) (uuid.UUID, error)
	ExistsByID(ctx context.Context, id uuid.UUID) (bool, error)
	ExistsByEmail(ctx context.Context, email string) (bool, error)
	FindByID(ctx context.Context, id uuid.UUID) (UserRecord, error)
	FindByEmail(ctx context.Context, email string) (UserRecord, error)
	Save(ctx context.Context, rec UserRecord) error
}

// CheckVersion applies the Save locking rule. stored is the version currently
// kept under rec.ID and exists reports whether there is one.
func CheckVersion(rec UserRecord, stored uint64, exists bool) error {
	if rec.Version == 0 {
		return apperr.Internal("save user "+rec.ID.String()+": record version is 0", nil)
	}
	if !exists {
		if rec.Version != 1 {
			return apperr.Conflict("user %s no longer exists", rec.ID)
		}
		return nil
	}
	if stored != rec.Version-1 {
		return apperr.Conflict("user %s was modified concurrently (stored version %d, saving %d)", rec.ID, stored, rec.Version)
	}
	return nil
}
