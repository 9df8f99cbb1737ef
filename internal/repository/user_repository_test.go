package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pharmetric/fieldops-api/internal/models"
)

func TestUserRepositoryFindByEmail(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewUserRepository(db)

	rows := sqlmock.NewRows([]string{"id", "email", "password_hash", "full_name", "role", "supervisor_id", "active", "last_login", "created_at", "updated_at"}).
		AddRow("u1", "tech@example.com", "hash", "Alice Durand", "TECHNICIAN", "sup1", true, nil, time.Now(), time.Now())
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, email, password_hash, full_name, role, supervisor_id, active, last_login, created_at, updated_at FROM users WHERE LOWER(email) = LOWER($1) LIMIT 1")).
		WithArgs("tech@example.com").
		WillReturnRows(rows)

	user, err := repo.FindByEmail(context.Background(), "tech@example.com")
	require.NoError(t, err)
	assert.Equal(t, models.RoleTechnician, user.Role)
	require.NotNil(t, user.SupervisorID)
	assert.Equal(t, "sup1", *user.SupervisorID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepositoryListSupervisedTechnicianIDs(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewUserRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT id FROM users WHERE role = $1 AND supervisor_id = $2")).
		WithArgs("TECHNICIAN", "sup1").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("tech1").AddRow("tech2"))

	ids, err := repo.ListSupervisedTechnicianIDs(context.Background(), "sup1")
	require.NoError(t, err)
	assert.Equal(t, []string{"tech1", "tech2"}, ids)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepositoryCreate(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewUserRepository(db)

	mock.ExpectExec("INSERT INTO users").
		WithArgs(sqlmock.AnyArg(), "tech@example.com", "hash", "Alice Durand", "TECHNICIAN", nil, true, sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))

	user := &models.User{
		Email:        "tech@example.com",
		PasswordHash: "hash",
		FullName:     "Alice Durand",
		Role:         models.RoleTechnician,
		Active:       true,
	}
	require.NoError(t, repo.Create(context.Background(), user))
	assert.NotEmpty(t, user.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}
