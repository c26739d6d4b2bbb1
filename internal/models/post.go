package models

import "time"

// Post is the slice of a blog post this service reads. Post management owns
// every column except LikesCount.
type Post struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	Title       string    `gorm:"not null" json:"title"`
	Slug        string    `gorm:"uniqueIndex;size:255" json:"slug"`
	Content     string    `gorm:"type:text" json:"content,omitempty"`
	UserID      uint      `gorm:"index" json:"user_id"`
	IsPublished bool      `gorm:"not null;default:true" json:"is_published"`
	LikesCount  int64     `gorm:"not null;default:0" json:"likes_count"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}
