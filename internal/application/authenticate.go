package application

import (
	"context"
	"errors"

	"github.com/sirupsen/logrus"

	"github.com/oksasatya/user-account-service/internal/domain/apperr"
	"github.com/oksasatya/user-account-service/internal/domain/repository"
	"github.com/oksasatya/user-account-service/internal/domain/service"
	"github.com/oksasatya/user-account-service/pkg/helpers"
)

var errInvalidCredentials = apperr.NotAllowed("invalid credentials")

// Authenticate checks an email and password pair. Unknown emails and wrong passwords
// give the same NotAllowed error; a correct password on a non-Active account gives NotActive.
type Authenticate struct {
	Repo   repository.UserRepository
	Hasher service.PasswordHasher
	Logger *logrus.Logger
}

func NewAuthenticate(repo repository.UserRepository, hasher service.PasswordHasher, logger *logrus.Logger) *Authenticate {
	return &Authenticate{Repo: repo, Hasher: hasher, Logger: logger}
}

func (uc *Authenticate) Execute(ctx context.Context, email, password string) (repository.UserRecord, error) {
	fields := logrus.Fields{"email": helpers.MaskEmail(email)}

	rec, err := uc.Repo.FindByEmail(ctx, email)
	if errors.Is(err, apperr.ErrNotFound) {
		return repository.UserRecord{}, errInvalidCredentials
	}
	if err != nil {
		logFailure(uc.Logger, fields, "authenticate: lookup failed", err)
		return repository.UserRecord{}, err
	}

	ok, err := uc.Hasher.Compare(ctx, password, rec.PasswordHash)
	if err != nil {
		err = asAppError("compare password", err)
		logFailure(uc.Logger, fields, "authenticate: compare failed", err)
		return repository.UserRecord{}, err
	}
	if !ok {
		return repository.UserRecord{}, errInvalidCredentials
	}

	u, err := rec.ToUser()
	if err != nil {
		return repository.UserRecord{}, err
	}
	if !u.IsActive() {
		return repository.UserRecord{}, apperr.NotActive("user %s is %s", u.ID(), u.State())
	}
	return rec, nil
}
