package users

import (
	"strings"
	"time"

	"github.com/angelmondragon/recurly-gateway/pkg/db/models"
)

// UserDTO is the transport shape of a user.
type UserDTO struct {
	ID        int64     `json:"id"`
	Email     string    `json:"email"`
	Username  string    `json:"username"`
	FirstName string    `json:"first_name"`
	LastName  string    `json:"last_name"`
	Company   string    `json:"company,omitempty"`
	IsActive  bool      `json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// CreateUserDTO holds the data required by the repo to persist a new user.
type CreateUserDTO struct {
	Email     string
	Username  string
	FirstName string
	LastName  string
	Company   string
}

// UpdateProfileInput is the owner profile update request.
type UpdateProfileInput struct {
	Email     *string `json:"email" validate:"omitempty,email"`
	Username  *string `json:"username" validate:"omitempty,max=255"`
	FirstName *string `json:"first_name" validate:"omitempty,max=255"`
	LastName  *string `json:"last_name" validate:"omitempty,max=255"`
	Company   *string `json:"company" validate:"omitempty,max=255"`
}

func FromModel(u *models.User) *UserDTO {
	if u == nil {
		return nil
	}
	return &UserDTO{
		ID:        u.ID,
		Email:     u.Email,
		Username:  u.Username,
		FirstName: u.FirstName,
		LastName:  u.LastName,
		Company:   u.Company,
		IsActive:  u.IsActive,
		CreatedAt: u.CreatedAt,
		UpdatedAt: u.UpdatedAt,
	}
}

func (c CreateUserDTO) ToModel() *models.User {
	return &models.User{
		Email:     strings.TrimSpace(c.Email),
		Username:  strings.TrimSpace(c.Username),
		FirstName: strings.TrimSpace(c.FirstName),
		LastName:  strings.TrimSpace(c.LastName),
		Company:   strings.TrimSpace(c.Company),
		IsActive:  true,
	}
}

// apply copies the set fields onto user and reports whether anything changed.
func (in UpdateProfileInput) apply(user *models.User) bool {
	changed := false
	set := func(dst *string, src *string) {
		if src == nil {
			return
		}
		value := strings.TrimSpace(*src)
		if *dst != value {
			*dst = value
			changed = true
		}
	}
	set(&user.Email, in.Email)
	set(&user.Username, in.Username)
	set(&user.FirstName, in.FirstName)
	set(&user.LastName, in.LastName)
	set(&user.Company, in.Company)
	return changed
}
