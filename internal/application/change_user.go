package application

import (
	"context"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/oksasatya/user-account-service/internal/domain/apperr"
	"github.com/oksasatya/user-account-service/internal/domain/entity"
	"github.com/oksasatya/user-account-service/internal/domain/repository"
	"github.com/oksasatya/user-account-service/internal/domain/service"
	"github.com/oksasatya/user-account-service/pkg/helpers"
)

// ChangeUserCommand asks InitiatorID to edit UserID. Nil fields are left untouched.
type ChangeUserCommand struct {
	InitiatorID uuid.UUID
	UserID      uuid.UUID
	Email       *string
	Password    *string
	State       *string
	Status      *string
}

// ChangeUser applies an admin's edits to a user account.
type ChangeUser struct {
	Repo      repository.UserRepository
	Emails    service.EmailValidator
	Passwords service.PasswordValidator
	Hasher    service.PasswordHasher
	Notifier  AccountNotifier
	Logger    *logrus.Logger
}

func NewChangeUser(repo repository.UserRepository, emails service.EmailValidator, passwords service.PasswordValidator, hasher service.PasswordHasher, notifier AccountNotifier, logger *logrus.Logger) *ChangeUser {
	if notifier == nil {
		notifier = noopNotifier{}
	}
	return &ChangeUser{Repo: repo, Emails: emails, Passwords: passwords, Hasher: hasher, Notifier: notifier, Logger: logger}
}

// Execute loads the initiator, checks that it may edit users (this applies to
// self-edits too), applies the present fields in the order email, password, state,
// status and saves the target. The first failing field aborts the command and
// nothing is saved. A command without fields saves nothing.
func (uc *ChangeUser) Execute(ctx context.Context, cmd ChangeUserCommand) error {
	fields := logrus.Fields{"initiator_id": cmd.InitiatorID, "user_id": cmd.UserID}

	initiator, err := loadUser(ctx, uc.Repo, cmd.InitiatorID)
	if err != nil {
		logFailure(uc.Logger, fields, "change user: load initiator failed", err)
		return err
	}
	if !initiator.CanEditOthers() {
		err := apperr.NotAllowed("user %s is not allowed to edit users", cmd.InitiatorID)
		logFailure(uc.Logger, fields, "change user: initiator rejected", err)
		return err
	}

	target := initiator
	if cmd.UserID != cmd.InitiatorID {
		target, err = loadUser(ctx, uc.Repo, cmd.UserID)
		if err != nil {
			logFailure(uc.Logger, fields, "change user: load target failed", err)
			return err
		}
	}
	previousEmail := target.Email()

	changed, err := uc.apply(ctx, target, cmd)
	if err != nil {
		logFailure(uc.Logger, fields, "change user: field rejected", err)
		return err
	}
	if len(changed) == 0 {
		return nil
	}

	if err := ctx.Err(); err != nil {
		return apperr.Internal("change user cancelled", err)
	}
	target.NextVersion()
	if err := uc.Repo.Save(ctx, repository.RecordFromUser(target)); err != nil {
		logFailure(uc.Logger, fields, "change user: save failed", err)
		return err
	}

	if uc.Logger != nil {
		uc.Logger.WithFields(fields).WithFields(logrus.Fields{
			"changed": changed,
			"version": target.Version(),
		}).Info("user changed")
	}

	ev := AccountEvent{UserID: target.ID(), Email: target.Email(), PreviousEmail: previousEmail, Fields: changed}
	if err := uc.Notifier.AccountChanged(ctx, ev); err != nil && uc.Logger != nil {
		uc.Logger.WithError(err).WithField("user_id", target.ID()).
			WithField("email", helpers.MaskEmail(target.Email())).Warn("account change notification failed")
	}
	return nil
}

func (uc *ChangeUser) apply(ctx context.Context, u *entity.User, cmd ChangeUserCommand) ([]string, error) {
	var changed []string

	if cmd.Email != nil {
		if err := uc.Emails.ValidateEmail(*cmd.Email); err != nil {
			return nil, err
		}
		if err := u.SetEmail(*cmd.Email); err != nil {
			return nil, err
		}
		changed = append(changed, "email")
	}

	if cmd.Password != nil {
		if err := uc.Passwords.ValidatePassword(*cmd.Password, u.Email()); err != nil {
			return nil, err
		}
		hash, err := uc.Hasher.Hash(ctx, *cmd.Password)
		if err != nil {
			return nil, asAppError("hash password", err)
		}
		if err := u.SetPasswordHash(hash); err != nil {
			return nil, err
		}
		changed = append(changed, "password")
	}

	if cmd.State != nil {
		state, err := entity.ParseState(*cmd.State)
		if err != nil {
			return nil, err
		}
		if err := u.SetState(state); err != nil {
			return nil, err
		}
		changed = append(changed, "state")
	}

	if cmd.Status != nil {
		status, err := entity.ParseStatus(*cmd.Status)
		if err != nil {
			return nil, err
		}
		if err := u.SetStatus(status); err != nil {
			return nil, err
		}
		changed = append(changed, "status")
	}

	return changed, nil
}

func loadUser(ctx context.Context, repo repository.UserRepository, id uuid.UUID) (*entity.User, error) {
	rec, err := repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return rec.ToUser()
}
