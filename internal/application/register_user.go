package application

import (
	"context"

	"github.com/sirupsen/logrus"

	"github.com/oksasatya/user-account-service/internal/domain/apperr"
	"github.com/oksasatya/user-account-service/internal/domain/entity"
	"github.com/oksasatya/user-account-service/internal/domain/repository"
	"github.com/oksasatya/user-account-service/internal/domain/service"
	"github.com/oksasatya/user-account-service/pkg/helpers"
)

type RegisterUserCommand struct {
	Email    string
	Password string
}

// RegisterUser creates an Active account with the plain User status.
type RegisterUser struct {
	Repo      repository.UserRepository
	Emails    service.EmailValidator
	Passwords service.PasswordValidator
	Hasher    service.PasswordHasher
	Notifier  AccountNotifier
	Logger    *logrus.Logger
}

func NewRegisterUser(repo repository.UserRepository, emails service.EmailValidator, passwords service.PasswordValidator, hasher service.PasswordHasher, notifier AccountNotifier, logger *logrus.Logger) *RegisterUser {
	if notifier == nil {
		notifier = noopNotifier{}
	}
	return &RegisterUser{Repo: repo, Emails: emails, Passwords: passwords, Hasher: hasher, Notifier: notifier, Logger: logger}
}

func (uc *RegisterUser) Execute(ctx context.Context, cmd RegisterUserCommand) (repository.UserRecord, error) {
	fields := logrus.Fields{"email": helpers.MaskEmail(cmd.Email)}

	if err := uc.Emails.ValidateEmail(cmd.Email); err != nil {
		return repository.UserRecord{}, err
	}
	taken, err := uc.Repo.ExistsByEmail(ctx, cmd.Email)
	if err != nil {
		logFailure(uc.Logger, fields, "register user: email lookup failed", err)
		return repository.UserRecord{}, err
	}
	if taken {
		return repository.UserRecord{}, apperr.Conflict("email %s is already registered", cmd.Email)
	}
	if err := uc.Passwords.ValidatePassword(cmd.Password, cmd.Email); err != nil {
		return repository.UserRecord{}, err
	}
	hash, err := uc.Hasher.Hash(ctx, cmd.Password)
	if err != nil {
		err = asAppError("hash password", err)
		logFailure(uc.Logger, fields, "register user: hash failed", err)
		return repository.UserRecord{}, err
	}
	id, err := uc.Repo.AllocateID(ctx)
	if err != nil {
		logFailure(uc.Logger, fields, "register user: allocate id failed", err)
		return repository.UserRecord{}, err
	}

	u := entity.NewUser(id, cmd.Email, hash)
	u.NextVersion()
	rec := repository.RecordFromUser(u)
	if err := uc.Repo.Save(ctx, rec); err != nil {
		logFailure(uc.Logger, fields, "register user: save failed", err)
		return repository.UserRecord{}, err
	}

	if uc.Logger != nil {
		uc.Logger.WithFields(fields).WithField("user_id", id).Info("user registered")
	}
	if err := uc.Notifier.AccountRegistered(ctx, AccountEvent{UserID: id, Email: cmd.Email}); err != nil && uc.Logger != nil {
		uc.Logger.WithError(err).WithField("user_id", id).Warn("registration notification failed")
	}
	return rec, nil
}
