package service

import (
	"context"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"inkpost/internal/authz"
	"inkpost/internal/cache"
	"inkpost/internal/commenttree"
	"inkpost/internal/featureflags"
	"inkpost/internal/middleware"
	"inkpost/internal/models"
	"inkpost/internal/moderation"
	"inkpost/internal/notifications"
	"inkpost/internal/observability"
	"inkpost/internal/repository"

	"go.opentelemetry.io/otel/attribute"
)

const defaultMaxCommentLength = 10000

type CommentService struct {
	commentRepo repository.CommentRepository
	postRepo    repository.PostRepository
	gate        *moderation.Gate
	cache       *cache.Store
	events      EventPublisher
	flags       *featureflags.Manager
	opts        CommentOptions
}

// CommentOptions tunes comment validation and tree reads.
type CommentOptions struct {
	MaxLength    int
	OrphanPolicy commenttree.OrphanPolicy
	TreeCacheTTL time.Duration
}

// CommentServiceDeps wires a CommentService. Cache, Events and Flags may be nil.
type CommentServiceDeps struct {
	Comments repository.CommentRepository
	Posts    repository.PostRepository
	Gate     *moderation.Gate
	Cache    *cache.Store
	Events   EventPublisher
	Flags    *featureflags.Manager
	Options  CommentOptions
}

type CreateCommentInput struct {
	UserID   uint
	PostID   uint
	ParentID *uint
	Content  string
}

type UpdateCommentInput struct {
	Actor     authz.Actor
	PostID    uint
	CommentID uint
	Content   string
}

type DeleteCommentInput struct {
	Actor     authz.Actor
	PostID    uint
	CommentID uint
}

func NewCommentService(deps CommentServiceDeps) *CommentService {
	opts := deps.Options
	if opts.MaxLength <= 0 {
		opts.MaxLength = defaultMaxCommentLength
	}
	if opts.OrphanPolicy == "" {
		opts.OrphanPolicy = commenttree.OrphanPromote
	}
	store := deps.Cache
	if store == nil {
		store = cache.NewStore(nil)
	}
	return &CommentService{
		commentRepo: deps.Comments,
		postRepo:    deps.Posts,
		gate:        deps.Gate,
		cache:       store,
		events:      deps.Events,
		flags:       deps.Flags,
		opts:        opts,
	}
}

func (s *CommentService) CreateComment(ctx context.Context, in CreateCommentInput) (_ *models.Comment, err error) {
	ctx, span := observability.StartSpan(ctx, "comment_service", "CreateComment",
		attribute.Int64("post.id", int64(in.PostID)),
		attribute.Bool("comment.reply", in.ParentID != nil),
	)
	defer func() {
		observability.CommentOperations.WithLabelValues("create", observability.OutcomeOf(err, isRejection)).Inc()
		span.End(err)
	}()

	if in.UserID == 0 {
		return nil, models.NewUnauthorizedError("Authentication required.")
	}
	if err := s.requirePost(ctx, in.PostID); err != nil {
		return nil, err
	}
	if err := s.checkContent(in.Content); err != nil {
		return nil, err
	}
	if in.ParentID != nil {
		if err := s.checkParent(ctx, in.PostID, *in.ParentID); err != nil {
			return nil, err
		}
	}

	comment := &models.Comment{
		Content:    in.Content,
		UserID:     in.UserID,
		PostID:     in.PostID,
		ParentID:   in.ParentID,
		IsApproved: true,
	}
	if err := s.commentRepo.Create(ctx, comment); err != nil {
		return nil, err
	}
	s.cache.InvalidateCommentTree(ctx, in.PostID)

	created, err := s.commentRepo.GetByID(ctx, comment.ID)
	if err != nil {
		return nil, err
	}

	publish(ctx, s.events, notifications.Event{
		Type:      notifications.EventCommentCreated,
		PostID:    created.PostID,
		CommentID: created.ID,
		ParentID:  created.ParentID,
		UserID:    created.UserID,
	})
	return created, nil
}

func (s *CommentService) UpdateComment(ctx context.Context, in UpdateCommentInput) (_ *models.Comment, err error) {
	ctx, span := observability.StartSpan(ctx, "comment_service", "UpdateComment",
		attribute.Int64("comment.id", int64(in.CommentID)),
	)
	defer func() {
		observability.CommentOperations.WithLabelValues("update", observability.OutcomeOf(err, isRejection)).Inc()
		span.End(err)
	}()

	comment, err := s.loadForMutation(ctx, in.PostID, in.CommentID)
	if err != nil {
		return nil, err
	}
	if err := authz.CanMutateComment(comment, in.Actor, models.CapEditAnyComment); err != nil {
		return nil, err
	}
	if err := s.checkContent(in.Content); err != nil {
		return nil, err
	}

	if err := s.commentRepo.UpdateContent(ctx, comment.ID, in.Content); err != nil {
		return nil, err
	}
	s.cache.InvalidateCommentTree(ctx, comment.PostID)

	updated, err := s.commentRepo.GetByID(ctx, comment.ID)
	if err != nil {
		return nil, err
	}

	publish(ctx, s.events, notifications.Event{
		Type:      notifications.EventCommentUpdated,
		PostID:    updated.PostID,
		CommentID: updated.ID,
		UserID:    in.Actor.UserID,
	})
	return updated, nil
}

// DeleteComment hard-deletes a comment. Replies are kept; how they are shown
// afterwards is decided by the orphan policy.
func (s *CommentService) DeleteComment(ctx context.Context, in DeleteCommentInput) (_ *models.Comment, err error) {
	ctx, span := observability.StartSpan(ctx, "comment_service", "DeleteComment",
		attribute.Int64("comment.id", int64(in.CommentID)),
	)
	defer func() {
		observability.CommentOperations.WithLabelValues("delete", observability.OutcomeOf(err, isRejection)).Inc()
		span.End(err)
	}()

	comment, err := s.loadForMutation(ctx, in.PostID, in.CommentID)
	if err != nil {
		return nil, err
	}
	if err := authz.CanMutateComment(comment, in.Actor, models.CapDeleteAnyComment); err != nil {
		return nil, err
	}

	if err := s.commentRepo.Delete(ctx, comment.ID); err != nil {
		return nil, err
	}
	s.cache.InvalidateCommentTree(ctx, comment.PostID)

	publish(ctx, s.events, notifications.Event{
		Type:      notifications.EventCommentDeleted,
		PostID:    comment.PostID,
		CommentID: comment.ID,
		UserID:    in.Actor.UserID,
	})
	return comment, nil
}

// GetCommentTree returns the post's discussion as an ordered forest.
func (s *CommentService) GetCommentTree(ctx context.Context, postID uint) (_ []*commenttree.Node, err error) {
	ctx, span := observability.StartSpan(ctx, "comment_service", "GetCommentTree",
		attribute.Int64("post.id", int64(postID)),
	)
	defer func() { span.End(err) }()

	if err := s.requirePost(ctx, postID); err != nil {
		return nil, err
	}

	build := func() ([]*commenttree.Node, error) {
		comments, err := s.commentRepo.ListByPost(ctx, postID)
		if err != nil {
			return nil, err
		}
		return commenttree.Build(comments, s.opts.OrphanPolicy), nil
	}

	if !s.flags.Enabled(featureflags.CommentTreeCache, "") || s.opts.TreeCacheTTL <= 0 {
		return build()
	}

	version, err := s.cache.CommentTreeVersion(ctx, postID)
	if err != nil {
		middleware.Logger.WarnContext(ctx, "comment tree version lookup failed",
			slog.Uint64("post_id", uint64(postID)),
			slog.String("error", err.Error()),
		)
		return build()
	}

	var forest []*commenttree.Node
	err = s.cache.CacheAside(ctx, cache.CommentTreeKey(postID, version), &forest, s.opts.TreeCacheTTL, func() error {
		var buildErr error
		forest, buildErr = build()
		return buildErr
	})
	if err != nil {
		return nil, err
	}
	if forest == nil {
		forest = []*commenttree.Node{}
	}
	span.AddAttributes(attribute.Int("comment.count", commenttree.Count(forest)))
	return forest, nil
}

// ListApprovedComments returns the post's approved comments, newest first.
func (s *CommentService) ListApprovedComments(ctx context.Context, postID uint) ([]*models.Comment, error) {
	if err := s.requirePost(ctx, postID); err != nil {
		return nil, err
	}
	return s.commentRepo.ListApprovedByPost(ctx, postID)
}

// ListAllComments returns comments across every post for moderators.
func (s *CommentService) ListAllComments(ctx context.Context, actor authz.Actor, limit, offset int) ([]*models.Comment, error) {
	if err := authz.Require(actor, models.CapListAllComments); err != nil {
		return nil, err
	}
	limit, offset = clampPage(limit, offset)
	return s.commentRepo.ListAll(ctx, limit, offset)
}

func (s *CommentService) requirePost(ctx context.Context, postID uint) error {
	exists, err := s.postRepo.Exists(ctx, postID)
	if err != nil {
		return err
	}
	if !exists {
		return models.NewNotFoundError("Post", postID)
	}
	return nil
}

// checkContent validates the full new text; moderation always sees the
// whole content, never a diff.
func (s *CommentService) checkContent(content string) error {
	if strings.TrimSpace(content) == "" {
		return models.NewValidationError("Content is required.").WithRule("content.required")
	}
	if utf8.RuneCountInString(content) > s.opts.MaxLength {
		return models.NewValidationError("Comment is too long.").WithRule("content.too_long")
	}
	if s.gate != nil {
		return s.gate.Check(content)
	}
	return nil
}

func (s *CommentService) checkParent(ctx context.Context, postID, parentID uint) error {
	invalid := models.NewValidationError("Invalid parent comment.").WithRule("parent.invalid")

	parent, err := s.commentRepo.GetByID(ctx, parentID)
	if err != nil {
		if models.HasCode(err, models.CodeNotFound) {
			return invalid
		}
		return err
	}
	if parent.PostID != postID {
		return invalid
	}
	return nil
}

// loadForMutation fetches a comment and, when postID is set, requires it to
// belong to that post.
func (s *CommentService) loadForMutation(ctx context.Context, postID, commentID uint) (*models.Comment, error) {
	comment, err := s.commentRepo.GetByID(ctx, commentID)
	if err != nil {
		return nil, err
	}
	if postID != 0 && comment.PostID != postID {
		return nil, models.NewNotFoundError("Comment", commentID)
	}
	return comment, nil
}
