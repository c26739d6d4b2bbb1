package server

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"inkpost/internal/config"
	"inkpost/internal/models"
	"inkpost/internal/testutil"

	"github.com/alicebob/miniredis/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

const testJWTSecret = "test-secret-for-handlers"

func testConfig() *config.Config {
	return &config.Config{
		Env:                       "test",
		JWTSecret:                 testJWTSecret,
		FeatureFlags:              "anonymous_likes=on,comment_tree_cache=on,like_geo_lookup=on",
		VisitorCookieName:         "visitorId",
		VisitorCookieMaxAgeDays:   365,
		CommentMaxLength:          10000,
		CommentOrphanPolicy:       "promote",
		CommentRateLimitPerMinute: 1,
		CommentTreeCacheSeconds:   60,
	}
}

// testEnv is a fully wired server over in-memory SQLite and miniredis.
type testEnv struct {
	t      *testing.T
	db     *gorm.DB
	mr     *miniredis.Miniredis
	server *Server
	app    *fiber.App
}

func newTestEnv(t *testing.T, mutate ...func(*config.Config)) *testEnv {
	t.Helper()
	cfg := testConfig()
	for _, fn := range mutate {
		fn(cfg)
	}

	db := testutil.NewSQLiteDB(t)
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	s, err := NewServerWithDeps(cfg, db, rdb)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	app := fiber.New()
	s.SetupMiddleware(app)
	s.SetupRoutes(app)

	return &testEnv{t: t, db: db, mr: mr, server: s, app: app}
}

func signToken(t *testing.T, userID uint) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   strconv.FormatUint(uint64(userID), 10),
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	})
	signed, err := token.SignedString([]byte(testJWTSecret))
	require.NoError(t, err)
	return signed
}

type request struct {
	method string
	path   string
	body   any
	userID uint
	cookie *http.Cookie
}

func (e *testEnv) do(r request) *http.Response {
	e.t.Helper()
	var body io.Reader
	if r.body != nil {
		raw, err := json.Marshal(r.body)
		require.NoError(e.t, err)
		body = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(r.method, r.path, body)
	if r.body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if r.userID != 0 {
		req.Header.Set("Authorization", "Bearer "+signToken(e.t, r.userID))
	}
	if r.cookie != nil {
		req.AddCookie(r.cookie)
	}
	resp, err := e.app.Test(req, -1)
	require.NoError(e.t, err)
	e.t.Cleanup(func() { _ = resp.Body.Close() })
	return resp
}

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	var v T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&v))
	return v
}

func decodeError(t *testing.T, resp *http.Response) models.ErrorResponse {
	t.Helper()
	return decode[models.ErrorResponse](t, resp)
}

func findCookie(resp *http.Response, name string) *http.Cookie {
	for _, c := range resp.Cookies() {
		if c.Name == name {
			return c
		}
	}
	return nil
}

func (e *testEnv) user(role models.Role) *models.User {
	return testutil.CreateUser(e.t, e.db, role)
}

func (e *testEnv) post(authorID uint) *models.Post {
	return testutil.CreatePost(e.t, e.db, authorID)
}

func postPath(postID uint, suffix string) string {
	return "/api/posts/" + strconv.FormatUint(uint64(postID), 10) + suffix
}
