package application

import (
	"context"
	"errors"

	"github.com/oksasatya/user-account-service/internal/domain/apperr"
	"github.com/oksasatya/user-account-service/internal/domain/entity"
	"github.com/oksasatya/user-account-service/internal/domain/repository"
)

// BootstrapAdmin makes sure the first administrator exists. Admins can only be made
// by other admins, so the first one is created outside the ChangeUser path.
type BootstrapAdmin struct {
	Register *RegisterUser
}

func NewBootstrapAdmin(register *RegisterUser) *BootstrapAdmin {
	return &BootstrapAdmin{Register: register}
}

// Execute returns the admin registered under email and whether it was created now.
// An existing account that is not an Active admin is a Conflict.
func (uc *BootstrapAdmin) Execute(ctx context.Context, email, password string) (repository.UserRecord, bool, error) {
	repo := uc.Register.Repo

	rec, err := repo.FindByEmail(ctx, email)
	if err == nil {
		u, err := rec.ToUser()
		if err != nil {
			return repository.UserRecord{}, false, err
		}
		if !u.CanEditOthers() {
			return repository.UserRecord{}, false, apperr.Conflict("user %s exists but is not an active admin", email)
		}
		return rec, false, nil
	}
	if !errors.Is(err, apperr.ErrNotFound) {
		return repository.UserRecord{}, false, err
	}

	rec, err = uc.Register.Execute(ctx, RegisterUserCommand{Email: email, Password: password})
	if err != nil {
		return repository.UserRecord{}, false, err
	}
	u, err := rec.ToUser()
	if err != nil {
		return repository.UserRecord{}, false, err
	}
	if err := u.SetStatus(entity.StatusAdmin); err != nil {
		return repository.UserRecord{}, false, err
	}
	u.NextVersion()
	rec = repository.RecordFromUser(u)
	if err := repo.Save(ctx, rec); err != nil {
		return repository.UserRecord{}, false, err
	}
	return rec, true, nil
}
