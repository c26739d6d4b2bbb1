package models

import "fmt"

// Identity is who performs a like: an authenticated account or an
// anonymous visitor carrying a cookie token. The set of variants is closed.
type Identity interface {
	// Key is a stable string used for logs, cache keys and rate limiting.
	Key() string
	isIdentity()
}

// Principal is an authenticated account.
type Principal struct {
	UserID uint
}

// Visitor is an anonymous browser identified by its cookie token.
type Visitor struct {
	Token string
}

func (p Principal) Key() string { return fmt.Sprintf("user:%d", p.UserID) }
func (v Visitor) Key() string { return "visitor:" + v.Token }

func (Principal) isIdentity() {}
func (Visitor) isIdentity() {}
