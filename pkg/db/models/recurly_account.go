package models

import (
	"time"

	"github.com/angelmondragon/recurly-gateway/pkg/enums"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// AccountRecord links a local owner to its remote billing account.
type AccountRecord struct {
	ID          uuid.UUID           `gorm:"type:uuid;primaryKey"`
	OwnerType   string              `gorm:"column:owner_type;not null;uniqueIndex:idx_recurly_accounts_owner"`
	OwnerID     string              `gorm:"column:owner_id;not null;uniqueIndex:idx_recurly_accounts_owner"`
	AccountCode string              `gorm:"column:account_code;not null;uniqueIndex"`
	Status      enums.AccountStatus `gorm:"column:status;not null;default:'active'"`
	CreatedAt   time.Time           `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time           `gorm:"column:updated_at;autoUpdateTime"`
}

func (AccountRecord) TableName() string {
	return "recurly_accounts"
}

func (a *AccountRecord) BeforeCreate(*gorm.DB) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	if a.Status == "" {
		a.Status = enums.AccountStatusActive
	}
	return nil
}

// IsClosed reports whether the remote account was closed.
func (a AccountRecord) IsClosed() bool {
	return a.Status == enums.AccountStatusClosed
}
