// Package identity decides who is acting on a request: an authenticated
// principal or an anonymous visitor tracked by a cookie token.
package identity

import (
	"time"

	"inkpost/internal/models"

	"github.com/google/uuid"
)

// DefaultCookieName is the visitor cookie name used when none is configured.
const DefaultCookieName = "visitorId"

// DefaultCookieMaxAge is how long a freshly minted visitor cookie lives.
const DefaultCookieMaxAge = 365 * 24 * time.Hour

// Request is the normalized per-request context handed to the core by the
// HTTP boundary.
type Request struct {
	PrincipalID  *uint
	Role         models.Role
	VisitorToken string
	ClientIP     string
}

// Resolution is the outcome of resolving a request's identity. When Minted is
// true the caller must persist Identity's token back to the client.
type Resolution struct {
	Identity     models.Identity
	Minted       bool
	CookieMaxAge time.Duration
}

// Resolver maps request credentials to an Identity. It never touches storage.
type Resolver struct {
	cookieMaxAge time.Duration
	newToken     func() string
}

// NewResolver returns a Resolver minting cookies valid for maxAge.
func NewResolver(maxAge time.Duration) *Resolver {
	if maxAge <= 0 {
		maxAge = DefaultCookieMaxAge
	}
	return &Resolver{
		cookieMaxAge: maxAge,
		newToken:     func() string { return uuid.NewString() },
	}
}

// Resolve applies the precedence rule: an authenticated principal always
// wins, then a well-formed visitor token, then a freshly minted token.
func (r *Resolver) Resolve(principalID *uint, visitorToken string) Resolution {
	if principalID != nil && *principalID != 0 {
		return Resolution{Identity: models.Principal{UserID: *principalID}}
	}
	if ValidToken(visitorToken) {
		return Resolution{Identity: models.Visitor{Token: visitorToken}}
	}
	return Resolution{
		Identity:     models.Visitor{Token: r.newToken()},
		Minted:       true,
		CookieMaxAge: r.cookieMaxAge,
	}
}

// ResolveRequest is Resolve over a normalized Request.
func (r *Resolver) ResolveRequest(req Request) Resolution {
	return r.Resolve(req.PrincipalID, req.VisitorToken)
}

// ValidToken reports whether token looks like a token this service issued.
func ValidToken(token string) bool {
	if token == "" {
		return false
	}
	_, err := uuid.Parse(token)
	return err == nil
}
