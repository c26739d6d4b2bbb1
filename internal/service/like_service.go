package service

import (
	"context"
	"log/slog"

	"inkpost/internal/authz"
	"inkpost/internal/featureflags"
	"inkpost/internal/geo"
	"inkpost/internal/middleware"
	"inkpost/internal/models"
	"inkpost/internal/notifications"
	"inkpost/internal/observability"
	"inkpost/internal/repository"

	"go.opentelemetry.io/otel/attribute"
)

type LikeService struct {
	ledger   repository.LikeLedger
	postRepo repository.PostRepository
	locator  geo.Locator
	events   EventPublisher
	flags    *featureflags.Manager
}

// LikeServiceDeps wires a LikeService. Locator, Events and Flags may be nil.
type LikeServiceDeps struct {
	Ledger  repository.LikeLedger
	Posts   repository.PostRepository
	Locator geo.Locator
	Events  EventPublisher
	Flags   *featureflags.Manager
}

type LikeInput struct {
	PostID   uint
	Identity models.Identity
	IP       string
}

type UnlikeInput struct {
	PostID   uint
	Identity models.Identity
}

// LikeResult is the state of a post after a like or unlike.
type LikeResult struct {
	PostID     uint  `json:"post_id"`
	Liked      bool  `json:"liked"`
	LikesCount int64 `json:"likes_count"`
}

// ReconcileResult reports the outcome of recomputing one post's counter.
type ReconcileResult struct {
	PostID     uint  `json:"post_id"`
	Repaired   bool  `json:"repaired"`
	LikesCount int64 `json:"likes_count"`
}

func NewLikeService(deps LikeServiceDeps) *LikeService {
	locator := deps.Locator
	if locator == nil {
		locator = geo.Unknown{}
	}
	return &LikeService{
		ledger:   deps.Ledger,
		postRepo: deps.Posts,
		locator:  locator,
		events:   deps.Events,
		flags:    deps.Flags,
	}
}

// Like records one like for the identity. A second like by the same
// identity is a CONFLICT and leaves the counter untouched.
func (s *LikeService) Like(ctx context.Context, in LikeInput) (_ *LikeResult, err error) {
	kind := identityKind(in.Identity)
	ctx, span := observability.StartSpan(ctx, "like_service", "Like",
		attribute.Int64("post.id", int64(in.PostID)),
		attribute.String("identity.kind", kind),
	)
	defer func() {
		observability.LikeOperations.WithLabelValues("like", kind, observability.OutcomeOf(err, isRejection)).Inc()
		span.End(err)
	}()

	if in.Identity == nil {
		return nil, errIdentityRequired()
	}
	if err := s.requirePost(ctx, in.PostID); err != nil {
		return nil, err
	}

	liked, err := s.ledger.Exists(ctx, in.Identity, in.PostID)
	if err != nil {
		return nil, err
	}
	if liked {
		return nil, models.ErrAlreadyLiked
	}

	country := models.UnknownCountry
	if s.flags.Enabled(featureflags.LikeGeoLookup, in.Identity.Key()) {
		country = s.locator.Country(ctx, in.IP)
	}

	if err := s.ledger.Add(ctx, models.NewLike(in.Identity, in.PostID, in.IP, country)); err != nil {
		return nil, err
	}

	result, err := s.result(ctx, in.PostID, true)
	if err != nil {
		return nil, err
	}
	s.publishLike(ctx, notifications.EventPostLiked, in.Identity, result)
	return result, nil
}

// Unlike removes the identity's like. Without one it is a STATE_ERROR and
// the counter is unchanged.
func (s *LikeService) Unlike(ctx context.Context, in UnlikeInput) (_ *LikeResult, err error) {
	kind := identityKind(in.Identity)
	ctx, span := observability.StartSpan(ctx, "like_service", "Unlike",
		attribute.Int64("post.id", int64(in.PostID)),
		attribute.String("identity.kind", kind),
	)
	defer func() {
		observability.LikeOperations.WithLabelValues("unlike", kind, observability.OutcomeOf(err, isRejection)).Inc()
		span.End(err)
	}()

	if in.Identity == nil {
		return nil, errIdentityRequired()
	}
	if err := s.requirePost(ctx, in.PostID); err != nil {
		return nil, err
	}
	if err := s.ledger.Remove(ctx, in.Identity, in.PostID); err != nil {
		return nil, err
	}

	result, err := s.result(ctx, in.PostID, false)
	if err != nil {
		return nil, err
	}
	s.publishLike(ctx, notifications.EventPostUnliked, in.Identity, result)
	return result, nil
}

// ListUserLikes returns an account's likes, newest first.
func (s *LikeService) ListUserLikes(ctx context.Context, actor authz.Actor, userID uint, limit, offset int) ([]*models.Like, error) {
	if err := authz.SelfOr(actor, userID, models.CapViewAnyUserLikes); err != nil {
		return nil, err
	}
	limit, offset = clampPage(limit, offset)
	return s.ledger.ListByUser(ctx, userID, limit, offset)
}

// ReconcilePost recomputes one post's likes_count from the ledger.
func (s *LikeService) ReconcilePost(ctx context.Context, actor authz.Actor, postID uint) (*ReconcileResult, error) {
	if err := authz.Require(actor, models.CapReconcileLikes); err != nil {
		return nil, err
	}

	repaired, err := s.ledger.Reconcile(ctx, postID)
	if err != nil {
		return nil, err
	}
	if repaired {
		observability.LikeCounterRepairs.Inc()
		middleware.Logger.InfoContext(ctx, "repaired like counter", slog.Uint64("post_id", uint64(postID)))
	}

	count, err := s.ledger.Count(ctx, postID)
	if err != nil {
		return nil, err
	}
	return &ReconcileResult{PostID: postID, Repaired: repaired, LikesCount: count}, nil
}

// ReconcileAll repairs every drifted counter and returns how many changed.
func (s *LikeService) ReconcileAll(ctx context.Context) (_ int64, err error) {
	ctx, span := observability.StartSpan(ctx, "like_service", "ReconcileAll")
	defer func() { span.End(err) }()

	repaired, err := s.ledger.ReconcileAll(ctx)
	if err != nil {
		return 0, err
	}
	if repaired > 0 {
		observability.LikeCounterRepairs.Add(float64(repaired))
		middleware.Logger.WarnContext(ctx, "repaired drifted like counters", slog.Int64("posts", repaired))
	}
	span.AddAttributes(attribute.Int64("posts.repaired", repaired))
	return repaired, nil
}

func (s *LikeService) requirePost(ctx context.Context, postID uint) error {
	exists, err := s.postRepo.Exists(ctx, postID)
	if err != nil {
		return err
	}
	if !exists {
		return models.NewNotFoundError("Post", postID)
	}
	return nil
}

func (s *LikeService) result(ctx context.Context, postID uint, liked bool) (*LikeResult, error) {
	post, err := s.postRepo.GetByID(ctx, postID)
	if err != nil {
		return nil, err
	}
	return &LikeResult{PostID: postID, Liked: liked, LikesCount: post.LikesCount}, nil
}

func (s *LikeService) publishLike(ctx context.Context, eventType string, id models.Identity, result *LikeResult) {
	event := notifications.Event{
		Type:       eventType,
		PostID:     result.PostID,
		LikesCount: &result.LikesCount,
	}
	if p, ok := id.(models.Principal); ok {
		event.UserID = p.UserID
	}
	publish(ctx, s.events, event)
}

func identityKind(id models.Identity) string {
	switch id.(type) {
	case models.Principal:
		return "principal"
	case models.Visitor:
		return "visitor"
	default:
		return "none"
	}
}

func errIdentityRequired() error {
	return models.NewValidationError("A resolved identity is required.").WithRule("identity.required")
}
