package accounts

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/angelmondragon/recurly-gateway/pkg/db/models"
	"github.com/angelmondragon/recurly-gateway/pkg/enums"
	pkgerrors "github.com/angelmondragon/recurly-gateway/pkg/errors"
	"github.com/angelmondragon/recurly-gateway/pkg/logger"
	"github.com/angelmondragon/recurly-gateway/pkg/recurly"
)

// OwnerDirectory answers whether local owners exist. Discovery uses it to
// accept account codes and e-mail matches.
type OwnerDirectory interface {
	OwnerExists(ctx context.Context, ownerType, ownerID string) (bool, error)
	FindUserIDByEmail(ctx context.Context, email string) (int64, bool, error)
}

// Gateway is the remote account surface used by owner hooks.
type Gateway interface {
	GetAccount(ctx context.Context, code string) (*recurly.Account, error)
	UpdateAccount(ctx context.Context, code string, input recurly.AccountInput) (*recurly.Account, error)
	DeactivateAccount(ctx context.Context, code string) error
}

// Profile carries the owner fields mirrored onto the remote account.
type Profile struct {
	Email     string
	Username  string
	FirstName string
	LastName  string
	Company   string
}

// Service exposes the local account index to the rest of the gateway.
type Service interface {
	Lookup(ctx context.Context, owner Owner) (*models.AccountRecord, error)
	Register(ctx context.Context, owner Owner, account recurly.Account) (*models.AccountRecord, error)
	Resolve(ctx context.Context, account recurly.Account) (*models.AccountRecord, error)
	SyncOwner(ctx context.Context, owner Owner, profile Profile) error
	CloseOwner(ctx context.Context, owner Owner) error
	ListStale(ctx context.Context, syncedBefore time.Time, limit int) ([]models.AccountRecord, error)
	Refresh(ctx context.Context, record models.AccountRecord) (*models.AccountRecord, error)
}

// ServiceParams groups dependencies for the accounts service.
type ServiceParams struct {
	Repo       Repository
	Directory  OwnerDirectory
	Gateway    Gateway
	EntityType string
	Logger     *logger.Logger
}

type service struct {
	repo       Repository
	directory  OwnerDirectory
	gateway    Gateway
	entityType string
	logg       *logger.Logger
}

// NewService builds the accounts service.
func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("account repo required")
	}
	if params.Directory == nil {
		return nil, fmt.Errorf("owner directory required")
	}
	if params.Gateway == nil {
		return nil, fmt.Errorf("billing gateway required")
	}
	entityType := strings.TrimSpace(params.EntityType)
	if entityType == "" {
		return nil, fmt.Errorf("entity type required")
	}
	return &service{
		repo:       params.Repo,
		directory:  params.Directory,
		gateway:    params.Gateway,
		entityType: entityType,
		logg:       params.Logger,
	}, nil
}

func (s *service) Lookup(ctx context.Context, owner Owner) (*models.AccountRecord, error) {
	record, err := s.repo.FindByOwner(ctx, owner)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load account record")
	}
	return record, nil
}

// Register records the account created for owner during signup.
func (s *service) Register(ctx context.Context, owner Owner, account recurly.Account) (*models.AccountRecord, error) {
	if strings.TrimSpace(account.Code) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "account code is required")
	}
	return s.save(ctx, owner, account)
}

// Resolve links a remote account to a local owner. The first rule that matches wins:
// an existing record for the code, an "{owner_type}-{owner_id}" code for a known
// owner, then (for user entities) an e-mail match. No match returns nil.
func (s *service) Resolve(ctx context.Context, account recurly.Account) (*models.AccountRecord, error) {
	code := strings.TrimSpace(account.Code)
	if code == "" {
		return nil, nil
	}

	existing, err := s.repo.FindByAccountCode(ctx, code)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load account record")
	}
	if existing != nil {
		return s.save(ctx, Owner{Type: existing.OwnerType, ID: existing.OwnerID}, account)
	}

	if owner, ok := ParseAccountCode(code); ok && owner.Type == s.entityType {
		if _, numeric := owner.NumericID(); numeric {
			exists, err := s.directory.OwnerExists(ctx, owner.Type, owner.ID)
			if err != nil {
				return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "look up owner")
			}
			if exists {
				return s.save(ctx, owner, account)
			}
		}
	}

	if s.entityType == OwnerTypeUser && strings.TrimSpace(account.Email) != "" {
		userID, found, err := s.directory.FindUserIDByEmail(ctx, strings.TrimSpace(account.Email))
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "look up user by email")
		}
		if found {
			return s.save(ctx, Owner{Type: OwnerTypeUser, ID: strconv.FormatInt(userID, 10)}, account)
		}
	}

	return nil, nil
}

// SyncOwner pushes changed owner fields to the remote account. Gateway failures
// are logged and swallowed; the local update has already happened.
func (s *service) SyncOwner(ctx context.Context, owner Owner, profile Profile) error {
	record, err := s.Lookup(ctx, owner)
	if err != nil || record == nil {
		return err
	}

	input := recurly.AccountInput{
		Email:     profile.Email,
		Username:  profile.Username,
		FirstName: profile.FirstName,
		LastName:  profile.LastName,
		Company:   profile.Company,
	}
	if _, err := s.gateway.UpdateAccount(ctx, record.AccountCode, input); err != nil {
		if s.logg != nil {
			logCtx := s.logg.WithAccountCode(ctx, record.AccountCode)
			s.logg.Warn(s.logg.WithField(logCtx, "error", err.Error()), "accounts.sync_owner.gateway_failed")
		}
	}
	return nil
}

// CloseOwner closes the remote account of a deleted owner and drops the record.
func (s *service) CloseOwner(ctx context.Context, owner Owner) error {
	record, err := s.Lookup(ctx, owner)
	if err != nil || record == nil {
		return err
	}

	if err := s.gateway.DeactivateAccount(ctx, record.AccountCode); err != nil && !recurly.IsNotFound(err) {
		return err
	}
	if err := s.repo.DeleteByOwner(ctx, owner); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete account record")
	}
	if s.logg != nil {
		s.logg.Info(s.logg.WithAccountCode(ctx, record.AccountCode), "accounts.owner_closed")
	}
	return nil
}

// ListStale returns active records not synced since syncedBefore, oldest first.
func (s *service) ListStale(ctx context.Context, syncedBefore time.Time, limit int) ([]models.AccountRecord, error) {
	records, err := s.repo.ListStale(ctx, syncedBefore, limit)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list stale account records")
	}
	return records, nil
}

// Refresh re-reads the remote account behind record and stores its state.
// A remote 404 marks the record closed.
func (s *service) Refresh(ctx context.Context, record models.AccountRecord) (*models.AccountRecord, error) {
	owner := Owner{Type: record.OwnerType, ID: record.OwnerID}
	account, err := s.gateway.GetAccount(ctx, record.AccountCode)
	switch {
	case recurly.IsNotFound(err):
		account = &recurly.Account{Code: record.AccountCode, State: string(enums.AccountStatusClosed)}
	case err != nil:
		return nil, err
	case account == nil:
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "gateway returned no account")
	}

	refreshed, err := s.save(ctx, owner, *account)
	if err != nil {
		return nil, err
	}
	if s.logg != nil && refreshed.Status != record.Status {
		logCtx := s.logg.WithAccountCode(ctx, record.AccountCode)
		s.logg.Info(s.logg.WithField(logCtx, "status", refreshed.Status.String()), "accounts.status_changed")
	}
	return refreshed, nil
}

func (s *service) save(ctx context.Context, owner Owner, account recurly.Account) (*models.AccountRecord, error) {
	record := &models.AccountRecord{
		OwnerType:   owner.Type,
		OwnerID:     owner.ID,
		AccountCode: strings.TrimSpace(account.Code),
		Status:      enums.NormalizeAccountStatus(account.State),
	}
	if err := s.repo.Upsert(ctx, record); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "save account record")
	}
	return record, nil
}
