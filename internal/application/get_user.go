package application

import (
	"context"

	"github.com/google/uuid"

	"github.com/oksasatya/user-account-service/internal/domain/apperr"
	"github.com/oksasatya/user-account-service/internal/domain/repository"
)

// GetUser returns a user to itself or to an Active admin.
type GetUser struct {
	Repo repository.UserRepository
}

func NewGetUser(repo repository.UserRepository) *GetUser {
	return &GetUser{Repo: repo}
}

func (uc *GetUser) Execute(ctx context.Context, requesterID, userID uuid.UUID) (repository.UserRecord, error) {
	if requesterID != userID {
		requester, err := loadUser(ctx, uc.Repo, requesterID)
		if err != nil {
			return repository.UserRecord{}, err
		}
		if !requester.CanEditOthers() {
			return repository.UserRecord{}, apperr.NotAllowed("user %s is not allowed to view other users", requesterID)
		}
	}
	rec, err := uc.Repo.FindByID(ctx, userID)
	if err != nil {
		return repository.UserRecord{}, err
	}
	if _, err := rec.ToUser(); err != nil {
		return repository.UserRecord{}, err
	}
	return rec, nil
}
