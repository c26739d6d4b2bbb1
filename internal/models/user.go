package models

import "time"

// User is an account. The service only reads it, apart from the seed tool.
type User struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Username  string    `gorm:"uniqueIndex;size:64;not null" json:"username"`
	Email     string    `gorm:"uniqueIndex;size:255;not null" json:"-"`
	Password  string    `gorm:"not null" json:"-"`
	AvatarURL string    `json:"avatar_url"`
	Role      Role      `gorm:"type:varchar(16);not null;default:'user'" json:"role"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"-"`
}
