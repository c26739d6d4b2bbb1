package database

import (
	"fmt"

	"inkpost/internal/models"

	"gorm.io/gorm"
)

// PersistentModels lists every table the service migrates.
func PersistentModels() []any {
	return []any{
		&models.User{},
		&models.Post{},
		&models.Comment{},
		&models.Like{},
	}
}

// ledgerIndexes enforce one like per identity per post. They are partial so
// that the NULL column of the other identity kind never collides. Postgres
// and SQLite share this syntax.
var ledgerIndexes = []string{
	`CREATE UNIQUE INDEX IF NOT EXISTS idx_likes_user_post ON likes (user_id, post_id) WHERE user_id IS NOT NULL`,
	`CREATE UNIQUE INDEX IF NOT EXISTS idx_likes_visitor_post ON likes (visitor_token, post_id) WHERE visitor_token IS NOT NULL`,
}

// Migrate creates or updates tables and the ledger's unique indexes.
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(PersistentModels()...); err != nil {
		return err
	}
	for _, stmt := range ledgerIndexes {
		if err := db.Exec(stmt).Error; err != nil {
			return fmt.Errorf("create ledger index: %w", err)
		}
	}
	return nil
}
