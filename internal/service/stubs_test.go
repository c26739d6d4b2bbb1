package service

import (
	"context"
	"errors"
	"sync"
	"testing"

	"inkpost/internal/models"
	"inkpost/internal/notifications"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// commentRepoStub is a stub for repository.CommentRepository.
type commentRepoStub struct {
	createFn             func(context.Context, *models.Comment) error
	getByIDFn            func(context.Context, uint) (*models.Comment, error)
	listByPostFn         func(context.Context, uint) ([]*models.Comment, error)
	listApprovedByPostFn func(context.Context, uint) ([]*models.Comment, error)
	listAllFn            func(context.Context, int, int) ([]*models.Comment, error)
	updateContentFn      func(context.Context, uint, string) error
	deleteFn             func(context.Context, uint) error
}

func (s *commentRepoStub) Create(ctx context.Context, comment *models.Comment) error {
	return s.createFn(ctx, comment)
}
func (s *commentRepoStub) GetByID(ctx context.Context, id uint) (*models.Comment, error) {
	return s.getByIDFn(ctx, id)
}
func (s *commentRepoStub) ListByPost(ctx context.Context, postID uint) ([]*models.Comment, error) {
	return s.listByPostFn(ctx, postID)
}
func (s *commentRepoStub) ListApprovedByPost(ctx context.Context, postID uint) ([]*models.Comment, error) {
	return s.listApprovedByPostFn(ctx, postID)
}
func (s *commentRepoStub) ListAll(ctx context.Context, limit, offset int) ([]*models.Comment, error) {
	return s.listAllFn(ctx, limit, offset)
}
func (s *commentRepoStub) UpdateContent(ctx context.Context, id uint, content string) error {
	return s.updateContentFn(ctx, id, content)
}
func (s *commentRepoStub) Delete(ctx context.Context, id uint) error {
	return s.deleteFn(ctx, id)
}

func noopCommentRepo() *commentRepoStub {
	return &commentRepoStub{
		createFn:  func(_ context.Context, _ *models.Comment) error { return nil },
		getByIDFn: func(_ context.Context, id uint) (*models.Comment, error) { return &models.Comment{ID: id, PostID: 1}, nil },
		listByPostFn: func(_ context.Context, _ uint) ([]*models.Comment, error) {
			return nil, nil
		},
		listApprovedByPostFn: func(_ context.Context, _ uint) ([]*models.Comment, error) { return nil, nil },
		listAllFn:            func(_ context.Context, _, _ int) ([]*models.Comment, error) { return nil, nil },
		updateContentFn:      func(_ context.Context, _ uint, _ string) error { return nil },
		deleteFn:             func(_ context.Context, _ uint) error { return nil },
	}
}

// postRepoStub is a stub for repository.PostRepository.
type postRepoStub struct {
	getByIDFn func(context.Context, uint) (*models.Post, error)
	existsFn  func(context.Context, uint) (bool, error)
}

func (s *postRepoStub) GetByID(ctx context.Context, id uint) (*models.Post, error) {
	return s.getByIDFn(ctx, id)
}
func (s *postRepoStub) Exists(ctx context.Context, id uint) (bool, error) {
	return s.existsFn(ctx, id)
}

func noopPostRepo() *postRepoStub {
	return &postRepoStub{
		getByIDFn: func(_ context.Context, id uint) (*models.Post, error) { return &models.Post{ID: id}, nil },
		existsFn:  func(_ context.Context, _ uint) (bool, error) { return true, nil },
	}
}

func missingPostRepo() *postRepoStub {
	repo := noopPostRepo()
	repo.existsFn = func(_ context.Context, _ uint) (bool, error) { return false, nil }
	return repo
}

// ledgerStub is a stub for repository.LikeLedger.
type ledgerStub struct {
	existsFn       func(context.Context, models.Identity, uint) (bool, error)
	addFn          func(context.Context, *models.Like) error
	removeFn       func(context.Context, models.Identity, uint) error
	countFn        func(context.Context, uint) (int64, error)
	listByUserFn   func(context.Context, uint, int, int) ([]*models.Like, error)
	reconcileFn    func(context.Context, uint) (bool, error)
	reconcileAllFn func(context.Context) (int64, error)
}

func (s *ledgerStub) Exists(ctx context.Context, id models.Identity, postID uint) (bool, error) {
	return s.existsFn(ctx, id, postID)
}
func (s *ledgerStub) Add(ctx context.Context, like *models.Like) error {
	return s.addFn(ctx, like)
}
func (s *ledgerStub) Remove(ctx context.Context, id models.Identity, postID uint) error {
	return s.removeFn(ctx, id, postID)
}
func (s *ledgerStub) Count(ctx context.Context, postID uint) (int64, error) {
	return s.countFn(ctx, postID)
}
func (s *ledgerStub) ListByUser(ctx context.Context, userID uint, limit, offset int) ([]*models.Like, error) {
	return s.listByUserFn(ctx, userID, limit, offset)
}
func (s *ledgerStub) Reconcile(ctx context.Context, postID uint) (bool, error) {
	return s.reconcileFn(ctx, postID)
}
func (s *ledgerStub) ReconcileAll(ctx context.Context) (int64, error) {
	return s.reconcileAllFn(ctx)
}

func noopLedger() *ledgerStub {
	return &ledgerStub{
		existsFn:       func(_ context.Context, _ models.Identity, _ uint) (bool, error) { return false, nil },
		addFn:          func(_ context.Context, _ *models.Like) error { return nil },
		removeFn:       func(_ context.Context, _ models.Identity, _ uint) error { return nil },
		countFn:        func(_ context.Context, _ uint) (int64, error) { return 0, nil },
		listByUserFn:   func(_ context.Context, _ uint, _, _ int) ([]*models.Like, error) { return nil, nil },
		reconcileFn:    func(_ context.Context, _ uint) (bool, error) { return false, nil },
		reconcileAllFn: func(_ context.Context) (int64, error) { return 0, nil },
	}
}

// eventRecorder captures published events.
type eventRecorder struct {
	mu     sync.Mutex
	events []notifications.Event
	err    error
}

func (r *eventRecorder) Publish(_ context.Context, event notifications.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
	return r.err
}

func (r *eventRecorder) types() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.events))
	for _, e := range r.events {
		out = append(out, e.Type)
	}
	return out
}

// assertAppError asserts that err is an AppError with the given code and,
// when rule is non-empty, the given rule.
func assertAppError(t *testing.T, err error, code, rule string) {
	t.Helper()
	require.Error(t, err)
	var appErr *models.AppError
	require.True(t, errors.As(err, &appErr), "expected AppError, got %T: %v", err, err)
	assert.Equal(t, code, appErr.Code)
	if rule != "" {
		assert.Equal(t, rule, appErr.Rule)
	}
}

// assertValidationError asserts that err is an AppError with code VALIDATION_ERROR.
func assertValidationError(t *testing.T, err error) {
	t.Helper()
	assertAppError(t, err, models.CodeValidation, "")
}

func uintPtr(v uint) *uint { return &v }
