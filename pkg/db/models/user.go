package models

import "time"

// User is a locally known identity that may own a billing account.
type User struct {
	ID        int64     `gorm:"primaryKey;autoIncrement"`
	Email     string    `gorm:"type:text;not null;uniqueIndex"`
	Username  string    `gorm:"column:username;not null;default:''"`
	FirstName string    `gorm:"column:first_name;not null;default:''"`
	LastName  string    `gorm:"column:last_name;not null;default:''"`
	Company   string    `gorm:"column:company;not null;default:''"`
	IsActive  bool      `gorm:"column:is_active;not null;default:true"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}
