// Package models contains data structures for the engagement domain.
package models

import "time"

// Comment is one entry of a post's discussion. A nil ParentID marks a
// top-level comment; otherwise ParentID points at a comment of the same post.
type Comment struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	Content    string    `gorm:"type:text;not null" json:"content"`
	UserID     uint      `gorm:"not null;index" json:"user_id"`
	PostID     uint      `gorm:"not null;index:idx_comments_post_created,priority:1" json:"post_id"`
	ParentID   *uint     `gorm:"index" json:"parent_id"`
	IsApproved bool      `gorm:"not null;default:true" json:"is_approved"`
	User       User      `gorm:"foreignKey:UserID" json:"user"`
	Post       *Post     `gorm:"foreignKey:PostID;constraint:OnDelete:CASCADE" json:"post,omitempty"`
	CreatedAt  time.Time `gorm:"index:idx_comments_post_created,priority:2" json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}
