package users

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/angelmondragon/recurly-gateway/internal/accounts"
	"github.com/angelmondragon/recurly-gateway/pkg/db"
	"github.com/angelmondragon/recurly-gateway/pkg/db/models"
	pkgerrors "github.com/angelmondragon/recurly-gateway/pkg/errors"
)

type userStore interface {
	FindByID(ctx context.Context, id int64) (*models.User, error)
	Update(ctx context.Context, user *models.User) error
	Delete(ctx context.Context, id int64) error
}

type ownerHooks interface {
	SyncOwner(ctx context.Context, owner accounts.Owner, profile accounts.Profile) error
	CloseOwner(ctx context.Context, owner accounts.Owner) error
}

// Service handles owner profile changes that must be mirrored to billing.
type Service interface {
	Get(ctx context.Context, id int64) (*UserDTO, error)
	UpdateProfile(ctx context.Context, id int64, input UpdateProfileInput) (*UserDTO, error)
	Delete(ctx context.Context, id int64) error
}

// ServiceParams groups dependencies for the users service.
type ServiceParams struct {
	Repo     userStore
	Accounts ownerHooks
}

type service struct {
	repo     userStore
	accounts ownerHooks
}

// NewService builds the users service.
func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("user repo required")
	}
	if params.Accounts == nil {
		return nil, fmt.Errorf("accounts service required")
	}
	return &service{repo: params.Repo, accounts: params.Accounts}, nil
}

func (s *service) Get(ctx context.Context, id int64) (*UserDTO, error) {
	user, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	return FromModel(user), nil
}

// UpdateProfile saves the profile and pushes it to the owner's billing account.
func (s *service) UpdateProfile(ctx context.Context, id int64, input UpdateProfileInput) (*UserDTO, error) {
	user, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if input.Email != nil && strings.TrimSpace(*input.Email) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "email cannot be blank")
	}
	if !input.apply(user) {
		return FromModel(user), nil
	}

	if err := s.repo.Update(ctx, user); err != nil {
		if db.IsUniqueViolation(err, "") {
			return nil, pkgerrors.Wrap(pkgerrors.CodeConflict, err, "email already in use")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update user")
	}

	if err := s.accounts.SyncOwner(ctx, ownerFor(user.ID), accounts.Profile{
		Email:     user.Email,
		Username:  user.Username,
		FirstName: user.FirstName,
		LastName:  user.LastName,
		Company:   user.Company,
	}); err != nil {
		return nil, err
	}
	return FromModel(user), nil
}

// Delete closes the owner's billing account before removing the user.
func (s *service) Delete(ctx context.Context, id int64) error {
	if _, err := s.load(ctx, id); err != nil {
		return err
	}
	if err := s.accounts.CloseOwner(ctx, ownerFor(id)); err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete user")
	}
	return nil
}

func (s *service) load(ctx context.Context, id int64) (*models.User, error) {
	if id <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id must be positive")
	}
	user, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load user")
	}
	if user == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "user not found")
	}
	return user, nil
}

func ownerFor(id int64) accounts.Owner {
	return accounts.Owner{Type: accounts.OwnerTypeUser, ID: strconv.FormatInt(id, 10)}
}
