package repository

import (
	"context"
	"errors"
	"regexp"
	"sync"
	"testing"

	"inkpost/internal/models"
	"inkpost/internal/testutil"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

const visitorToken = "0b6f4c1e-2d7a-4f3e-9a51-8c2b7d9e4f10"

func newLedgerFixture(t *testing.T) (*gorm.DB, LikeLedger, *models.Post) {
	t.Helper()
	db := testutil.NewSQLiteDB(t)
	author := testutil.CreateUser(t, db, models.RoleUser)
	return db, NewLikeLedger(db), testutil.CreatePost(t, db, author.ID)
}

func TestLikeLedger_DoubleLikeConflicts(t *testing.T) {
	db, ledger, post := newLedgerFixture(t)
	ctx := context.Background()
	alice := models.Principal{UserID: 1}

	require.NoError(t, ledger.Add(ctx, models.NewLike(alice, post.ID, "10.0.0.1", "")))
	err := ledger.Add(ctx, models.NewLike(alice, post.ID, "10.0.0.1", ""))
	assert.ErrorIs(t, err, models.ErrAlreadyLiked)

	assert.Equal(t, int64(1), testutil.LikesCount(t, db, post.ID))
	count, err := ledger.Count(ctx, post.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
}

func TestLikeLedger_UnlikeWithoutLike(t *testing.T) {
	db, ledger, post := newLedgerFixture(t)

	err := ledger.Remove(context.Background(), models.Principal{UserID: 7}, post.ID)
	assert.ErrorIs(t, err, models.ErrNotLiked)
	assert.True(t, models.HasCode(err, models.CodeState))
	assert.Equal(t, int64(0), testutil.LikesCount(t, db, post.ID))
}

func TestLikeLedger_LikeUnlikeLike(t *testing.T) {
	db, ledger, post := newLedgerFixture(t)
	ctx := context.Background()
	alice := models.Principal{UserID: 1}

	require.NoError(t, ledger.Add(ctx, models.NewLike(alice, post.ID, "", "")))
	require.NoError(t, ledger.Remove(ctx, alice, post.ID))
	require.NoError(t, ledger.Add(ctx, models.NewLike(alice, post.ID, "", "")))

	assert.Equal(t, int64(1), testutil.LikesCount(t, db, post.ID))
	liked, err := ledger.Exists(ctx, alice, post.ID)
	require.NoError(t, err)
	assert.True(t, liked)
}

func TestLikeLedger_IdentitiesAreIndependent(t *testing.T) {
	db, ledger, post := newLedgerFixture(t)
	ctx := context.Background()
	user := models.Principal{UserID: 1}
	visitor := models.Visitor{Token: visitorToken}

	require.NoError(t, ledger.Add(ctx, models.NewLike(visitor, post.ID, "", "TR")))
	require.NoError(t, ledger.Add(ctx, models.NewLike(user, post.ID, "", "")))
	assert.Equal(t, int64(2), testutil.LikesCount(t, db, post.ID))

	require.NoError(t, ledger.Remove(ctx, visitor, post.ID))
	liked, err := ledger.Exists(ctx, user, post.ID)
	require.NoError(t, err)
	assert.True(t, liked, "removing the visitor like leaves the account like")

	liked, err = ledger.Exists(ctx, visitor, post.ID)
	require.NoError(t, err)
	assert.False(t, liked)
	assert.Equal(t, int64(1), testutil.LikesCount(t, db, post.ID))
}

func TestLikeLedger_ConcurrentLikesKeepOneRow(t *testing.T) {
	db, ledger, post := newLedgerFixture(t)
	ctx := context.Background()
	visitor := models.Visitor{Token: visitorToken}

	const attempts = 8
	var wg sync.WaitGroup
	errs := make(chan error, attempts)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs <- ledger.Add(ctx, models.NewLike(visitor, post.ID, "", ""))
		}()
	}
	wg.Wait()
	close(errs)

	var ok, conflicts int
	for err := range errs {
		switch {
		case err == nil:
			ok++
		case errors.Is(err, models.ErrAlreadyLiked):
			conflicts++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	assert.Equal(t, 1, ok)
	assert.Equal(t, attempts-1, conflicts)
	assert.Equal(t, int64(1), testutil.LikesCount(t, db, post.ID))
}

func TestLikeLedger_MissingPost(t *testing.T) {
	db, ledger, _ := newLedgerFixture(t)

	err := ledger.Add(context.Background(), models.NewLike(models.Principal{UserID: 1}, 9999, "", ""))
	assert.True(t, models.HasCode(err, models.CodeNotFound))

	var rows int64
	require.NoError(t, db.Model(&models.Like{}).Count(&rows).Error)
	assert.Zero(t, rows, "the ledger row is rolled back with the counter")
}

func TestLikeLedger_ListByUser(t *testing.T) {
	db, ledger, post := newLedgerFixture(t)
	ctx := context.Background()
	second := testutil.CreatePost(t, db, post.UserID)

	require.NoError(t, ledger.Add(ctx, models.NewLike(models.Principal{UserID: 3}, post.ID, "", "")))
	require.NoError(t, ledger.Add(ctx, models.NewLike(models.Principal{UserID: 3}, second.ID, "", "")))
	require.NoError(t, ledger.Add(ctx, models.NewLike(models.Principal{UserID: 4}, post.ID, "", "")))

	likes, err := ledger.ListByUser(ctx, 3, 10, 0)
	require.NoError(t, err)
	require.Len(t, likes, 2)
	for _, l := range likes {
		require.NotNil(t, l.Post)
		assert.Equal(t, models.UnknownCountry, l.Country)
	}
}

func TestLikeLedger_Reconcile(t *testing.T) {
	db, ledger, post := newLedgerFixture(t)
	ctx := context.Background()
	other := testutil.CreatePost(t, db, post.UserID)

	require.NoError(t, ledger.Add(ctx, models.NewLike(models.Principal{UserID: 1}, post.ID, "", "")))
	require.NoError(t, ledger.Add(ctx, models.NewLike(models.Principal{UserID: 2}, post.ID, "", "")))
	require.NoError(t, db.Model(&models.Post{}).Where("id IN ?", []uint{post.ID, other.ID}).
		UpdateColumn("likes_count", 40).Error)

	fixed, err := ledger.Reconcile(ctx, post.ID)
	require.NoError(t, err)
	assert.True(t, fixed)
	assert.Equal(t, int64(2), testutil.LikesCount(t, db, post.ID))

	fixed, err = ledger.Reconcile(ctx, post.ID)
	require.NoError(t, err)
	assert.False(t, fixed, "a consistent counter is left alone")

	_, err = ledger.Reconcile(ctx, 9999)
	assert.True(t, models.HasCode(err, models.CodeNotFound))

	repaired, err := ledger.ReconcileAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), repaired)
	assert.Equal(t, int64(0), testutil.LikesCount(t, db, other.ID))
}

func TestLikeLedger_UnlikeFloorsCounter(t *testing.T) {
	db, ledger, post := newLedgerFixture(t)
	ctx := context.Background()
	alice := models.Principal{UserID: 1}

	require.NoError(t, ledger.Add(ctx, models.NewLike(alice, post.ID, "", "")))
	require.NoError(t, db.Model(&models.Post{}).Where("id = ?", post.ID).UpdateColumn("likes_count", 0).Error)

	require.NoError(t, ledger.Remove(ctx, alice, post.ID))
	assert.Equal(t, int64(0), testutil.LikesCount(t, db, post.ID))
}

func TestLikeLedger_PostgresUniqueViolation(t *testing.T) {
	db, mock := setupMockDB(t)
	ledger := NewLikeLedger(db)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO "likes"`)).
		WillReturnError(&pgconn.PgError{Code: "23505", Message: "duplicate key value violates unique constraint \"idx_likes_user_post\""})
	mock.ExpectRollback()

	err := ledger.Add(context.Background(), models.NewLike(models.Principal{UserID: 1}, 1, "", ""))
	assert.ErrorIs(t, err, models.ErrAlreadyLiked)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLikeLedger_UnknownIdentity(t *testing.T) {
	_, ledger, post := newLedgerFixture(t)

	_, err := ledger.Exists(context.Background(), nil, post.ID)
	assert.True(t, models.HasCode(err, models.CodeInternal))
}

func TestIsUniqueViolation(t *testing.T) {
	assert.False(t, isUniqueViolation(nil))
	assert.True(t, isUniqueViolation(gorm.ErrDuplicatedKey))
	assert.True(t, isUniqueViolation(&pgconn.PgError{Code: "23505"}))
	assert.True(t, isUniqueViolation(errors.New("UNIQUE constraint failed: likes.user_id, likes.post_id")))
	assert.False(t, isUniqueViolation(&pgconn.PgError{Code: "23503"}))
	assert.True(t, isForeignKeyViolation(&pgconn.PgError{Code: "23503"}))
	assert.True(t, isForeignKeyViolation(gorm.ErrForeignKeyViolated))
}
