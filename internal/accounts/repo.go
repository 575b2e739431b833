package accounts

import (
	"context"
	"errors"
	"time"

	"github.com/angelmondragon/recurly-gateway/pkg/db/models"
	"github.com/angelmondragon/recurly-gateway/pkg/enums"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Repository persists the owner to account-code index.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	FindByOwner(ctx context.Context, owner Owner) (*models.AccountRecord, error)
	FindByAccountCode(ctx context.Context, code string) (*models.AccountRecord, error)
	Upsert(ctx context.Context, record *models.AccountRecord) error
	DeleteByOwner(ctx context.Context, owner Owner) error
	ListStale(ctx context.Context, syncedBefore time.Time, limit int) ([]models.AccountRecord, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns an account index repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) FindByOwner(ctx context.Context, owner Owner) (*models.AccountRecord, error) {
	var record models.AccountRecord
	err := r.db.WithContext(ctx).
		Where("owner_type = ? AND owner_id = ?", owner.Type, owner.ID).
		First(&record).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &record, nil
}

func (r *repository) FindByAccountCode(ctx context.Context, code string) (*models.AccountRecord, error) {
	var record models.AccountRecord
	err := r.db.WithContext(ctx).Where("account_code = ?", code).First(&record).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &record, nil
}

// Upsert writes the record keyed on (owner_type, owner_id). A record holding the
// same account code under another owner is removed first so codes stay unique.
func (r *repository) Upsert(ctx context.Context, record *models.AccountRecord) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.
			Where("account_code = ? AND NOT (owner_type = ? AND owner_id = ?)", record.AccountCode, record.OwnerType, record.OwnerID).
			Delete(&models.AccountRecord{}).Error; err != nil {
			return err
		}

		if err := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "owner_type"}, {Name: "owner_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"account_code", "status", "updated_at"}),
		}).Create(record).Error; err != nil {
			return err
		}

		var stored models.AccountRecord
		if err := tx.
			Where("owner_type = ? AND owner_id = ?", record.OwnerType, record.OwnerID).
			First(&stored).Error; err != nil {
			return err
		}
		*record = stored
		return nil
	})
}

func (r *repository) DeleteByOwner(ctx context.Context, owner Owner) error {
	return r.db.WithContext(ctx).
		Where("owner_type = ? AND owner_id = ?", owner.Type, owner.ID).
		Delete(&models.AccountRecord{}).Error
}

func (r *repository) ListStale(ctx context.Context, syncedBefore time.Time, limit int) ([]models.AccountRecord, error) {
	var records []models.AccountRecord
	query := r.db.WithContext(ctx).
		Where("status = ? AND updated_at < ?", enums.AccountStatusActive, syncedBefore).
		Order("updated_at ASC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	if err := query.Find(&records).Error; err != nil {
		return nil, err
	}
	return records, nil
}
