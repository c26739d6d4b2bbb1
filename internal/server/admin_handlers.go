package server

import (
	"inkpost/internal/models"

	"github.com/gofiber/fiber/v2"
)

// GetAllComments lists comments across every post, newest first
func (s *Server) GetAllComments(c *fiber.Ctx) error {
	actor, err := s.actor(c)
	if err != nil {
		return respondError(c, err)
	}

	page := parsePagination(c, 50)
	comments, err := s.commentService.ListAllComments(c.UserContext(), actor, page.Limit, page.Offset)
	if err != nil {
		return respondError(c, err)
	}
	if comments == nil {
		comments = []*models.Comment{}
	}
	return c.JSON(comments)
}

// ReconcilePostLikes recomputes a post's likes_count from the like ledger
func (s *Server) ReconcilePostLikes(c *fiber.Ctx) error {
	postID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	actor, err := s.actor(c)
	if err != nil {
		return respondError(c, err)
	}

	result, err := s.likeService.ReconcilePost(c.UserContext(), actor, postID)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(result)
}

// GetFeatureFlags returns the flags as evaluated for the caller
func (s *Server) GetFeatureFlags(c *fiber.Ctx) error {
	subject := ""
	if uid, ok := c.Locals("userID").(uint); ok && uid != 0 {
		subject = models.Principal{UserID: uid}.Key()
	} else if token := c.Cookies(s.visitorCookieName()); token != "" {
		subject = models.Visitor{Token: token}.Key()
	}
	return c.JSON(fiber.Map{
		"evaluated": s.featureFlags.Snapshot(subject),
	})
}
