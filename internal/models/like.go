package models

import (
	"errors"
	"time"

	"gorm.io/gorm"
)

// UnknownCountry is stored when the client address cannot be located.
const UnknownCountry = "Unknown"

// Like is one row of the like ledger. Exactly one of UserID and VisitorToken
// is set; uniqueness per post is enforced by partial unique indexes created
// alongside the table.
type Like struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	UserID       *uint     `gorm:"index" json:"user_id,omitempty"`
	VisitorToken *string   `gorm:"size:64" json:"-"`
	PostID       uint      `gorm:"not null;index" json:"post_id"`
	IP           string    `gorm:"size:64" json:"-"`
	Country      string    `gorm:"size:64;not null;default:'Unknown'" json:"country"`
	CreatedAt    time.Time `json:"created_at"`

	Post *Post `gorm:"foreignKey:PostID;constraint:OnDelete:CASCADE" json:"post,omitempty"`
}

var errLikeIdentity = errors.New("like must carry exactly one of user_id or visitor_token")

// BeforeCreate rejects rows that would break the single-identity rule.
func (l *Like) BeforeCreate(_ *gorm.DB) error {
	hasUser := l.UserID != nil
	hasVisitor := l.VisitorToken != nil && *l.VisitorToken != ""
	if hasUser == hasVisitor {
		return errLikeIdentity
	}
	if l.Country == "" {
		l.Country = UnknownCountry
	}
	return nil
}

// NewLike builds a ledger row for the given identity.
func NewLike(id Identity, postID uint, ip, country string) *Like {
	l := &Like{PostID: postID, IP: ip, Country: country}
	switch v := id.(type) {
	case Principal:
		uid := v.UserID
		l.UserID = &uid
	case Visitor:
		token := v.Token
		l.VisitorToken = &token
	}
	return l
}
