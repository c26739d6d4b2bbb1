// Package repository provides data access layer implementations for the application.
package repository

import (
	"errors"
	"fmt"
	"strings"

	"inkpost/internal/models"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

const (
	pgUniqueViolation     = "23505"
	pgForeignKeyViolation = "23503"
)

// isUniqueViolation recognizes duplicate-key failures from every dialect
// the repositories run on.
func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
		return true
	}
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}

// isForeignKeyViolation recognizes writes that reference a missing row.
func isForeignKeyViolation(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrForeignKeyViolated) {
		return true
	}
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgForeignKeyViolation
}

// notFoundOr maps gorm.ErrRecordNotFound to a NOT_FOUND AppError and wraps
// everything else as an internal error.
func notFoundOr(err error, resource string, id any) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return models.NewNotFoundError(resource, id)
	}
	return internal(err)
}

func internal(err error) error {
	if err == nil {
		return nil
	}
	var appErr *models.AppError
	if errors.As(err, &appErr) {
		return err
	}
	return models.NewInternalError(err)
}

var errUnknownIdentity = errors.New("unknown identity kind")

// identityScope restricts a likes query to the rows owned by id.
func identityScope(id models.Identity) (func(*gorm.DB) *gorm.DB, error) {
	switch v := id.(type) {
	case models.Principal:
		return func(db *gorm.DB) *gorm.DB { return db.Where("user_id = ?", v.UserID) }, nil
	case models.Visitor:
		return func(db *gorm.DB) *gorm.DB { return db.Where("visitor_token = ?", v.Token) }, nil
	default:
		return nil, fmt.Errorf("%w: %T", errUnknownIdentity, id)
	}
}
