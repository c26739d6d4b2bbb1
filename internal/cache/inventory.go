package cache

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"inkpost/internal/middleware"

	"github.com/redis/go-redis/v9"
)

const (
	CommentTreeKeyPrefix        = "post:%d:comments:tree:%d"
	CommentTreeVersionKeyPrefix = "post:%d:comments:tree:version"
	UserRoleKeyPrefix    = "user:%d:role"
	GeoCountryKeyPrefix  = "geo:%s"
)

const (
	UserRoleTTL   = 5 * time.Minute
	GeoCountryTTL = 24 * time.Hour
)

// CommentTreeKey names the forest of postID built at the given generation.
func CommentTreeKey(postID uint, version int64) string {
	return fmt.Sprintf(CommentTreeKeyPrefix, postID, version)
}

func CommentTreeVersionKey(postID uint) string {
	return fmt.Sprintf(CommentTreeVersionKeyPrefix, postID)
}

func UserRoleKey(userID uint) string {
	return fmt.Sprintf(UserRoleKeyPrefix, userID)
}

func GeoCountryKey(ip string) string {
	return fmt.Sprintf(GeoCountryKeyPrefix, ip)
}

// CommentTreeVersion returns the current tree generation of a post, zero
// when no write has happened yet. Read it before loading comments: a forest
// built from rows older than a write is then stored under a generation that
// no later read asks for.
func (s *Store) CommentTreeVersion(ctx context.Context, postID uint) (int64, error) {
	if !s.Enabled() {
		return 0, nil
	}
	v, err := s.rdb.Get(ctx, CommentTreeVersionKey(postID)).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	return v, err
}

// InvalidateCommentTree moves a post to the next tree generation. Forests
// cached under older generations are never read again and age out by TTL.
func (s *Store) InvalidateCommentTree(ctx context.Context, postID uint) {
	if !s.Enabled() {
		return
	}
	key := CommentTreeVersionKey(postID)
	if err := s.rdb.Incr(ctx, key).Err(); err != nil {
		middleware.Logger.WarnContext(ctx, "cache invalidation failed", slog.String("key", key), slog.String("error", err.Error()))
	}
}

// InvalidateUserRole drops a cached role lookup.
func (s *Store) InvalidateUserRole(ctx context.Context, userID uint) {
	s.Invalidate(ctx, UserRoleKey(userID))
}
