package server

import (
	"errors"
	"log/slog"
	"strings"
	"unicode"

	"inkpost/internal/authz"
	"inkpost/internal/cache"
	"inkpost/internal/middleware"
	"inkpost/internal/models"

	"github.com/gofiber/fiber/v2"
)

// errResponseWritten is a sentinel indicating the HTTP response was already
// committed by a helper. Handlers must return nil (not this error) to avoid
// Fiber's ErrorHandler overwriting the response.
var errResponseWritten = errors.New("response already written")

// Pagination holds parsed limit/offset query parameters.
type Pagination struct {
	Limit  int
	Offset int
}

const maxPaginationLimit = 100

// parsePagination extracts limit and offset query parameters with the given default limit.
func parsePagination(c *fiber.Ctx, defaultLimit int) Pagination {
	limit := c.QueryInt("limit", defaultLimit)
	if limit <= 0 {
		limit = defaultLimit
	}
	if limit > maxPaginationLimit {
		limit = maxPaginationLimit
	}

	offset := c.QueryInt("offset", 0)
	if offset < 0 {
		offset = 0
	}

	return Pagination{Limit: limit, Offset: offset}
}

// parseID extracts a route parameter by name as a positive uint.
// On failure it writes a 400 JSON response and returns errResponseWritten.
// Callers should check: if err != nil { return nil }
func (s *Server) parseID(c *fiber.Ctx, param string) (uint, error) {
	id, err := c.ParamsInt(param)
	if err != nil || id <= 0 {
		_ = models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid "+humanizeParam(param)))
		return 0, errResponseWritten
	}
	return uint(id), nil
}

// humanizeParam converts a route param name into a human-readable label.
// Examples: "id" -> "ID", "commentId" -> "comment ID".
func humanizeParam(param string) string {
	if param == "id" {
		return "ID"
	}
	if strings.HasSuffix(param, "Id") {
		words := splitCamel(param[:len(param)-2])
		return strings.ToLower(strings.Join(words, " ")) + " ID"
	}
	return param
}

// splitCamel splits a camelCase string into words.
func splitCamel(s string) []string {
	var words []string
	start := 0
	for i, r := range s {
		if i > 0 && unicode.IsUpper(r) {
			words = append(words, s[start:i])
			start = i
		}
	}
	words = append(words, s[start:])
	return words
}

// actor loads the authenticated account and its role. The role is cached in
// Redis for a few minutes. A token for a deleted account is unauthorized.
func (s *Server) actor(c *fiber.Ctx) (authz.Actor, error) {
	userID, ok := middleware.UserID(c)
	if !ok {
		return authz.Actor{}, models.NewUnauthorizedError("Authorization required")
	}

	ctx := c.UserContext()
	var role models.Role
	err := s.cache.CacheAside(ctx, cache.UserRoleKey(userID), &role, cache.UserRoleTTL, func() error {
		var lookupErr error
		role, lookupErr = s.userRepo.GetRole(ctx, userID)
		return lookupErr
	})
	if err != nil {
		if models.HasCode(err, models.CodeNotFound) {
			return authz.Actor{}, models.NewUnauthorizedError("Account no longer exists")
		}
		return authz.Actor{}, err
	}
	return authz.Actor{UserID: userID, Role: role}, nil
}

// respondError writes err with the status derived from its code and logs
// infrastructure failures.
func respondError(c *fiber.Ctx, err error) error {
	status := models.HTTPStatus(err)
	if status >= fiber.StatusInternalServerError {
		middleware.Logger.ErrorContext(c.UserContext(), "request failed",
			slog.String("path", c.Path()),
			slog.String("error", err.Error()),
		)
	}
	return models.RespondWithError(c, status, err)
}
