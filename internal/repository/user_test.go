package repository

import (
	"context"
	"regexp"
	"testing"

	"inkpost/internal/models"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
)

func TestUserRepository_GetByID(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewUserRepository(db)

	rows := sqlmock.NewRows([]string{"id", "username", "role"}).AddRow(1, "alice", "admin")
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "users" WHERE "users"."id" = $1`)).
		WillReturnRows(rows)

	user, err := repo.GetByID(context.Background(), 1)
	assert.NoError(t, err)
	assert.Equal(t, "alice", user.Username)
	assert.Equal(t, models.RoleAdmin, user.Role)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepository_GetRole(t *testing.T) {
	t.Run("legacy alias", func(t *testing.T) {
		db, mock := setupMockDB(t)
		repo := NewUserRepository(db)

		mock.ExpectQuery(regexp.QuoteMeta(`SELECT "id","role" FROM "users" WHERE "users"."id" = $1`)).
			WillReturnRows(sqlmock.NewRows([]string{"id", "role"}).AddRow(3, "super"))

		role, err := repo.GetRole(context.Background(), 3)
		assert.NoError(t, err)
		assert.Equal(t, models.RoleSuperAdmin, role)
	})

	t.Run("missing user", func(t *testing.T) {
		db, mock := setupMockDB(t)
		repo := NewUserRepository(db)

		mock.ExpectQuery(regexp.QuoteMeta(`SELECT "id","role" FROM "users"`)).
			WillReturnRows(sqlmock.NewRows([]string{"id", "role"}))

		_, err := repo.GetRole(context.Background(), 9)
		assert.True(t, models.HasCode(err, models.CodeNotFound))
	})
}
