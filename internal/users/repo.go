package users

import (
	"context"
	"errors"
	"strconv"
	"strings"

	"github.com/angelmondragon/recurly-gateway/pkg/db/models"
	"gorm.io/gorm"
)

// Repository exposes user-related persistence operations.
type Repository struct {
	db *gorm.DB
}

// NewRepository constructs a users repo bound to the provided GORM DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// Create inserts a new user and returns the persisted model.
func (r *Repository) Create(ctx context.Context, dto CreateUserDTO) (*models.User, error) {
	user := dto.ToModel()
	if err := r.db.WithContext(ctx).Create(user).Error; err != nil {
		return nil, err
	}
	return user, nil
}

// FindByEmail retrieves the user matching the provided email, or nil.
func (r *Repository) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	err := r.db.WithContext(ctx).Where("LOWER(email) = ?", strings.ToLower(strings.TrimSpace(email))).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// FindByID loads a user by id, or nil.
func (r *Repository) FindByID(ctx context.Context, id int64) (*models.User, error) {
	var user models.User
	err := r.db.WithContext(ctx).First(&user, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// Update saves the profile columns of user.
func (r *Repository) Update(ctx context.Context, user *models.User) error {
	return r.db.WithContext(ctx).
		Model(&models.User{}).
		Where("id = ?", user.ID).
		Updates(map[string]any{
			"email":      user.Email,
			"username":   user.Username,
			"first_name": user.FirstName,
			"last_name":  user.LastName,
			"company":    user.Company,
		}).Error
}

// Delete removes the user row.
func (r *Repository) Delete(ctx context.Context, id int64) error {
	return r.db.WithContext(ctx).Delete(&models.User{}, "id = ?", id).Error
}

// OwnerExists reports whether a local owner exists. Users are the only owners
// stored locally, so other owner types never resolve.
func (r *Repository) OwnerExists(ctx context.Context, ownerType, ownerID string) (bool, error) {
	if ownerType != "user" {
		return false, nil
	}
	id, err := strconv.ParseInt(ownerID, 10, 64)
	if err != nil {
		return false, nil
	}
	user, err := r.FindByID(ctx, id)
	if err != nil {
		return false, err
	}
	return user != nil, nil
}

// FindUserIDByEmail returns the id of the user with email.
func (r *Repository) FindUserIDByEmail(ctx context.Context, email string) (int64, bool, error) {
	user, err := r.FindByEmail(ctx, email)
	if err != nil || user == nil {
		return 0, false, err
	}
	return user.ID, true, nil
}
