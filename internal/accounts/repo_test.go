package accounts

import (
	"context"
	"testing"
	"time"

	"github.com/angelmondragon/recurly-gateway/pkg/db/models"
	"github.com/angelmondragon/recurly-gateway/pkg/enums"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func setupAccountsTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := "file:" + uuid.NewString() + "?mode=memory&cache=shared"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)

	schema := `
CREATE TABLE IF NOT EXISTS recurly_accounts (
  id TEXT PRIMARY KEY,
  owner_type TEXT NOT NULL,
  owner_id TEXT NOT NULL,
  account_code TEXT NOT NULL UNIQUE,
  status TEXT NOT NULL DEFAULT 'active',
  created_at DATETIME,
  updated_at DATETIME,
  UNIQUE (owner_type, owner_id)
);`
	require.NoError(t, db.Exec(schema).Error)
	return db
}

func TestRepositoryFindReturnsNilWhenAbsent(t *testing.T) {
	repo := NewRepository(setupAccountsTestDB(t))
	ctx := context.Background()

	record, err := repo.FindByOwner(ctx, Owner{Type: "user", ID: "1"})
	require.NoError(t, err)
	assert.Nil(t, record)

	record, err = repo.FindByAccountCode(ctx, "user-1")
	require.NoError(t, err)
	assert.Nil(t, record)
}

func TestRepositoryUpsertInsertsThenUpdates(t *testing.T) {
	repo := NewRepository(setupAccountsTestDB(t))
	ctx := context.Background()
	owner := Owner{Type: "user", ID: "42"}

	first := &models.AccountRecord{OwnerType: owner.Type, OwnerID: owner.ID, AccountCode: "user-42"}
	require.NoError(t, repo.Upsert(ctx, first))
	assert.Equal(t, enums.AccountStatusActive, first.Status)
	originalID := first.ID

	second := &models.AccountRecord{OwnerType: owner.Type, OwnerID: owner.ID, AccountCode: "legacy-42", Status: enums.AccountStatusClosed}
	require.NoError(t, repo.Upsert(ctx, second))
	assert.Equal(t, originalID, second.ID, "upsert should keep the existing row")

	stored, err := repo.FindByOwner(ctx, owner)
	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.Equal(t, "legacy-42", stored.AccountCode)
	assert.True(t, stored.IsClosed())

	gone, err := repo.FindByAccountCode(ctx, "user-42")
	require.NoError(t, err)
	assert.Nil(t, gone)
}

func TestRepositoryUpsertMovesAccountCodeBetweenOwners(t *testing.T) {
	repo := NewRepository(setupAccountsTestDB(t))
	ctx := context.Background()

	require.NoError(t, repo.Upsert(ctx, &models.AccountRecord{OwnerType: "user", OwnerID: "1", AccountCode: "shared"}))
	require.NoError(t, repo.Upsert(ctx, &models.AccountRecord{OwnerType: "user", OwnerID: "2", AccountCode: "shared"}))

	old, err := repo.FindByOwner(ctx, Owner{Type: "user", ID: "1"})
	require.NoError(t, err)
	assert.Nil(t, old, "the previous holder of the code should be dropped")

	current, err := repo.FindByAccountCode(ctx, "shared")
	require.NoError(t, err)
	require.NotNil(t, current)
	assert.Equal(t, "2", current.OwnerID)
}

func TestRepositoryDeleteByOwnerIsIdempotent(t *testing.T) {
	repo := NewRepository(setupAccountsTestDB(t))
	ctx := context.Background()
	owner := Owner{Type: "user", ID: "9"}

	require.NoError(t, repo.Upsert(ctx, &models.AccountRecord{OwnerType: owner.Type, OwnerID: owner.ID, AccountCode: "user-9"}))
	require.NoError(t, repo.DeleteByOwner(ctx, owner))
	require.NoError(t, repo.DeleteByOwner(ctx, owner))

	record, err := repo.FindByOwner(ctx, owner)
	require.NoError(t, err)
	assert.Nil(t, record)
}

func TestRepositoryListStaleSkipsFreshAndClosed(t *testing.T) {
	db := setupAccountsTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()
	now := time.Now().UTC()

	require.NoError(t, repo.Upsert(ctx, &models.AccountRecord{OwnerType: "user", OwnerID: "1", AccountCode: "user-1"}))
	require.NoError(t, repo.Upsert(ctx, &models.AccountRecord{OwnerType: "user", OwnerID: "2", AccountCode: "user-2"}))
	require.NoError(t, repo.Upsert(ctx, &models.AccountRecord{OwnerType: "user", OwnerID: "3", AccountCode: "user-3", Status: enums.AccountStatusClosed}))
	require.NoError(t, repo.Upsert(ctx, &models.AccountRecord{OwnerType: "user", OwnerID: "4", AccountCode: "user-4"}))

	setUpdated := func(ownerID string, at time.Time) {
		require.NoError(t, db.Model(&models.AccountRecord{}).Where("owner_id = ?", ownerID).UpdateColumn("updated_at", at).Error)
	}
	setUpdated("1", now.Add(-48*time.Hour))
	setUpdated("2", now.Add(-72*time.Hour))
	setUpdated("3", now.Add(-96*time.Hour))
	setUpdated("4", now)

	stale, err := repo.ListStale(ctx, now.Add(-24*time.Hour), 10)
	require.NoError(t, err)
	require.Len(t, stale, 2)
	assert.Equal(t, "user-2", stale[0].AccountCode, "oldest first")
	assert.Equal(t, "user-1", stale[1].AccountCode)

	limited, err := repo.ListStale(ctx, now.Add(-24*time.Hour), 1)
	require.NoError(t, err)
	require.Len(t, limited, 1)
}
