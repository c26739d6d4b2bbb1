package repository

import (
	"context"

	"inkpost/internal/models"
	"inkpost/internal/observability"

	"gorm.io/gorm"
)

// LikeLedger stores likes and keeps posts.likes_count in step with them.
// Every mutation writes the ledger row and the counter in one transaction.
type LikeLedger interface {
	Exists(ctx context.Context, id models.Identity, postID uint) (bool, error)
	// Add inserts like and increments the post counter. A second like by the
	// same identity fails with models.ErrAlreadyLiked.
	Add(ctx context.Context, like *models.Like) error
	// Remove deletes the identity's like and decrements the counter. Without
	// a like it fails with models.ErrNotLiked and changes nothing.
	Remove(ctx context.Context, id models.Identity, postID uint) error
	Count(ctx context.Context, postID uint) (int64, error)
	ListByUser(ctx context.Context, userID uint, limit, offset int) ([]*models.Like, error)
	// Reconcile recomputes one post's counter from the ledger and reports
	// whether it had drifted.
	Reconcile(ctx context.Context, postID uint) (bool, error)
	// ReconcileAll repairs every drifted counter and returns how many changed.
	ReconcileAll(ctx context.Context) (int64, error)
}

type likeLedger struct {
	db *gorm.DB
}

// NewLikeLedger creates a new LikeLedger
func NewLikeLedger(db *gorm.DB) LikeLedger {
	return &likeLedger{db: db}
}

const (
	incrementLikes = "likes_count + 1"
	decrementLikes = "CASE WHEN likes_count > 0 THEN likes_count - 1 ELSE 0 END"
	ledgerCount    = "(SELECT COUNT(*) FROM likes WHERE likes.post_id = posts.id)"
)

func (r *likeLedger) Exists(ctx context.Context, id models.Identity, postID uint) (bool, error) {
	scope, err := identityScope(id)
	if err != nil {
		return false, internal(err)
	}
	var count int64
	err = r.db.WithContext(ctx).
		Model(&models.Like{}).
		Scopes(scope).
		Where("post_id = ?", postID).
		Count(&count).Error
	return count > 0, internal(err)
}

func (r *likeLedger) Add(ctx context.Context, like *models.Like) error {
	defer observability.TrackQuery("add", "likes")()

	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit("Post").Create(like).Error; err != nil {
			if isUniqueViolation(err) {
				return models.ErrAlreadyLiked
			}
			if isForeignKeyViolation(err) {
				return models.NewNotFoundError("Post", like.PostID)
			}
			return internal(err)
		}

		result := tx.Model(&models.Post{}).
			Where("id = ?", like.PostID).
			UpdateColumn("likes_count", gorm.Expr(incrementLikes))
		if result.Error != nil {
			return internal(result.Error)
		}
		if result.RowsAffected == 0 {
			return models.NewNotFoundError("Post", like.PostID)
		}
		return nil
	})
}

func (r *likeLedger) Remove(ctx context.Context, id models.Identity, postID uint) error {
	defer observability.TrackQuery("remove", "likes")()

	scope, err := identityScope(id)
	if err != nil {
		return internal(err)
	}

	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Scopes(scope).Where("post_id = ?", postID).Delete(&models.Like{})
		if result.Error != nil {
			return internal(result.Error)
		}
		if result.RowsAffected == 0 {
			return models.ErrNotLiked
		}

		return internal(tx.Model(&models.Post{}).
			Where("id = ?", postID).
			UpdateColumn("likes_count", gorm.Expr(decrementLikes)).Error)
	})
}

func (r *likeLedger) Count(ctx context.Context, postID uint) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Like{}).Where("post_id = ?", postID).Count(&count).Error
	return count, internal(err)
}

func (r *likeLedger) ListByUser(ctx context.Context, userID uint, limit, offset int) ([]*models.Like, error) {
	var likes []*models.Like
	err := r.db.WithContext(ctx).
		Preload("Post", func(db *gorm.DB) *gorm.DB { return db.Select("id", "title", "slug", "likes_count") }).
		Where("user_id = ?", userID).
		Order("created_at desc, id desc").
		Limit(limit).
		Offset(offset).
		Find(&likes).Error
	return likes, internal(err)
}

func (r *likeLedger) Reconcile(ctx context.Context, postID uint) (bool, error) {
	var exists int64
	if err := r.db.WithContext(ctx).Model(&models.Post{}).Where("id = ?", postID).Count(&exists).Error; err != nil {
		return false, internal(err)
	}
	if exists == 0 {
		return false, models.NewNotFoundError("Post", postID)
	}

	result := r.db.WithContext(ctx).
		Model(&models.Post{}).
		Where("id = ?", postID).
		Where("likes_count <> " + ledgerCount).
		UpdateColumn("likes_count", gorm.Expr(ledgerCount))
	if result.Error != nil {
		return false, internal(result.Error)
	}
	return result.RowsAffected > 0, nil
}

func (r *likeLedger) ReconcileAll(ctx context.Context) (int64, error) {
	defer observability.TrackQuery("reconcile_all", "posts")()

	result := r.db.WithContext(ctx).
		Model(&models.Post{}).
		Where("likes_count <> " + ledgerCount).
		UpdateColumn("likes_count", gorm.Expr(ledgerCount))
	if result.Error != nil {
		return 0, internal(result.Error)
	}
	return result.RowsAffected, nil
}
