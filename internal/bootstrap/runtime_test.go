package bootstrap

import (
	"context"
	"testing"

	"inkpost/internal/cache"
	"inkpost/internal/config"
	"inkpost/internal/models"
	"inkpost/internal/testutil"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func devConfig() *config.Config {
	return &config.Config{
		Env:              "development",
		DevBootstrapRoot: true,
		DevRootUsername:  "root",
		DevRootEmail:     "Root@Example.com",
		DevRootPassword:  "correct horse",
	}
}

func TestEnsureDevRootAdmin_CreatesRoot(t *testing.T) {
	db := testutil.NewSQLiteDB(t)

	require.NoError(t, ensureDevRootAdmin(context.Background(), devConfig(), db, cache.NewStore(nil)))

	var root models.User
	require.NoError(t, db.First(&root, 1).Error)
	assert.Equal(t, "root", root.Username)
	assert.Equal(t, "root@example.com", root.Email)
	assert.Equal(t, models.RoleSuperAdmin, root.Role)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(root.Password), []byte("correct horse")))
}

func TestEnsureDevRootAdmin_PromotesExisting(t *testing.T) {
	db := testutil.NewSQLiteDB(t)
	existing := testutil.CreateUser(t, db, models.RoleUser)
	require.Equal(t, uint(1), existing.ID)

	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	require.NoError(t, mr.Set(cache.UserRoleKey(1), `"user"`))

	require.NoError(t, ensureDevRootAdmin(context.Background(), devConfig(), db, cache.NewStore(rdb)))
	assert.False(t, mr.Exists(cache.UserRoleKey(1)), "the stale cached role is dropped")

	var root models.User
	require.NoError(t, db.First(&root, 1).Error)
	assert.Equal(t, existing.Username, root.Username, "credentials are left alone")
	assert.Equal(t, models.RoleSuperAdmin, root.Role)
}

func TestEnsureDevRootAdmin_Skipped(t *testing.T) {
	db := testutil.NewSQLiteDB(t)

	staging := devConfig()
	staging.Env = "staging"
	require.NoError(t, ensureDevRootAdmin(context.Background(), staging, db, nil))

	disabled := devConfig()
	disabled.DevBootstrapRoot = false
	require.NoError(t, ensureDevRootAdmin(context.Background(), disabled, db, nil))

	var count int64
	require.NoError(t, db.Model(&models.User{}).Count(&count).Error)
	assert.Zero(t, count)
}

func TestEnsureDevRootAdmin_RequiresPassword(t *testing.T) {
	db := testutil.NewSQLiteDB(t)
	cfg := devConfig()
	cfg.DevRootPassword = ""
	assert.Error(t, ensureDevRootAdmin(context.Background(), cfg, db, nil))
}
