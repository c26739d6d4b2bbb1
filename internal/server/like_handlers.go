package server

import (
	"context"
	"time"

	"inkpost/internal/featureflags"
	"inkpost/internal/identity"
	"inkpost/internal/middleware"
	"inkpost/internal/models"
	"inkpost/internal/service"

	"github.com/gofiber/fiber/v2"
)

// LikePost records a like by the authenticated user or the visitor cookie
func (s *Server) LikePost(c *fiber.Ctx) error {
	postID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	id, err := s.resolveIdentity(c, true)
	if err != nil {
		return nil
	}

	result, err := s.likeService.Like(c.UserContext(), service.LikeInput{
		PostID:   postID,
		Identity: id,
		IP:       c.IP(),
	})
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(result)
}

// UnlikePost removes the caller's like
func (s *Server) UnlikePost(c *fiber.Ctx) error {
	postID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	id, err := s.resolveIdentity(c, false)
	if err != nil {
		return nil
	}

	result, err := s.likeService.Unlike(c.UserContext(), service.UnlikeInput{
		PostID:   postID,
		Identity: id,
	})
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(result)
}

// GetUserLikes lists the likes of a user (the user themself or an elevated role)
func (s *Server) GetUserLikes(c *fiber.Ctx) error {
	userID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	actor, err := s.actor(c)
	if err != nil {
		return respondError(c, err)
	}

	page := parsePagination(c, 20)
	likes, err := s.likeService.ListUserLikes(c.UserContext(), actor, userID, page.Limit, page.Offset)
	if err != nil {
		return respondError(c, err)
	}
	if likes == nil {
		likes = []*models.Like{}
	}
	return c.JSON(likes)
}

// resolveIdentity determines who is liking. Visitors are refused unless the
// anonymous_likes flag is on. With mint set, a visitor without a usable token
// gets a fresh one written back as a cookie; without it such a visitor has
// nothing to act on and is answered with NotLiked. On failure the response is
// already written.
func (s *Server) resolveIdentity(c *fiber.Ctx, mint bool) (models.Identity, error) {
	var principal *uint
	if uid, ok := middleware.UserID(c); ok {
		principal = &uid
	}

	res := s.resolver.ResolveRequest(identity.Request{
		PrincipalID:  principal,
		VisitorToken: c.Cookies(s.visitorCookieName()),
		ClientIP:     c.IP(),
	})

	visitor, isVisitor := res.Identity.(models.Visitor)
	if !isVisitor {
		return res.Identity, nil
	}

	if !s.featureFlags.Enabled(featureflags.AnonymousLikes, res.Identity.Key()) {
		_ = models.RespondWithError(c, fiber.StatusUnauthorized,
			models.NewUnauthorizedError("Sign in to like posts."))
		return nil, errResponseWritten
	}

	if res.Minted && !mint {
		_ = respondError(c, models.ErrNotLiked)
		return nil, errResponseWritten
	}
	if res.Minted {
		c.Cookie(&fiber.Cookie{
			Name:     s.visitorCookieName(),
			Value:    visitor.Token,
			Path:     "/",
			Expires:  time.Now().Add(res.CookieMaxAge),
			MaxAge:   int(res.CookieMaxAge.Seconds()),
			HTTPOnly: true,
			Secure:   s.config.VisitorCookieSecure,
			SameSite: fiber.CookieSameSiteLaxMode,
		})
	}
	c.SetUserContext(context.WithValue(c.UserContext(), middleware.VisitorKey, visitor.Token))
	return res.Identity, nil
}

func (s *Server) visitorCookieName() string {
	if s.config.VisitorCookieName != "" {
		return s.config.VisitorCookieName
	}
	return identity.DefaultCookieName
}
