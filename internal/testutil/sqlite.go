// Package testutil provides shared database fixtures for tests.
package testutil

import (
	"fmt"
	"sync/atomic"
	"testing"

	"inkpost/internal/database"
	"inkpost/internal/models"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

var seq atomic.Uint64

// NewSQLiteDB opens a private in-memory database with the full schema,
// including the like ledger's unique indexes. The pool is pinned to one
// connection so every query sees the same in-memory database.
func NewSQLiteDB(t testing.TB) *gorm.DB {
	t.Helper()

	db, err := database.Open(sqlite.Open("file::memory:"))
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("sqlite handle: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	if err := database.Migrate(db); err != nil {
		t.Fatalf("migrate sqlite: %v", err)
	}
	return db
}

// CreateUser inserts a user with a unique username and the given role.
func CreateUser(t testing.TB, db *gorm.DB, role models.Role) *models.User {
	t.Helper()
	n := seq.Add(1)
	u := &models.User{
		Username: fmt.Sprintf("user%d", n),
		Email:    fmt.Sprintf("user%d@example.com", n),
		Password: "x",
		Role:     role,
	}
	if err := db.Create(u).Error; err != nil {
		t.Fatalf("create user: %v", err)
	}
	return u
}

// CreatePost inserts a published post owned by authorID.
func CreatePost(t testing.TB, db *gorm.DB, authorID uint) *models.Post {
	t.Helper()
	n := seq.Add(1)
	p := &models.Post{
		Title:       fmt.Sprintf("Post %d", n),
		Slug:        fmt.Sprintf("post-%d", n),
		Content:     "body",
		UserID:      authorID,
		IsPublished: true,
	}
	if err := db.Create(p).Error; err != nil {
		t.Fatalf("create post: %v", err)
	}
	return p
}

// LikesCount reads the stored counter of a post.
func LikesCount(t testing.TB, db *gorm.DB, postID uint) int64 {
	t.Helper()
	var post models.Post
	if err := db.Select("likes_count").First(&post, postID).Error; err != nil {
		t.Fatalf("read likes_count: %v", err)
	}
	return post.LikesCount
}
