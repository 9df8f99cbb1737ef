package repository

import (
	"context"
	"database/sql"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pharmetric/fieldops-api/internal/models"
)

var interventionRows = []string{
	"id", "client_id", "type_id", "technician_id", "status",
	"started_at", "ended_at", "comment", "closure_comment", "created_at", "updated_at",
	"client_name", "type_name", "type_color", "technician_name",
}

func TestInterventionRepositoryListAll(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewInterventionRepository(db)

	now := time.Now()
	rows := sqlmock.NewRows(interventionRows).
		AddRow("i1", "c1", "ty1", "tech1", "urgent", now, nil, "serveur hors ligne", nil, now, now,
			"Pharmacie Centrale", "Installation", "#3b82f6", "Alice Durand")
	mock.ExpectQuery("SELECT i.id, i.client_id, .+ FROM interventions i").
		WillReturnRows(rows)

	items, err := repo.ListAll(context.Background())
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, models.StatusUrgent, items[0].Status)
	assert.Equal(t, "Pharmacie Centrale", items[0].ClientName)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestInterventionRepositoryCreate(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewInterventionRepository(db)

	mock.ExpectExec("INSERT INTO interventions").
		WithArgs(sqlmock.AnyArg(), "c1", "ty1", "tech1", "in_progress", sqlmock.AnyArg(), nil, "mise a jour", nil, sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))

	item := &models.Intervention{
		ClientID:     "c1",
		TypeID:       "ty1",
		TechnicianID: "tech1",
		Status:       models.StatusInProgress,
		Comment:      "mise a jour",
	}
	require.NoError(t, repo.Create(context.Background(), item))
	assert.NotEmpty(t, item.ID)
	assert.False(t, item.StartedAt.IsZero())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestInterventionRepositoryClose(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewInterventionRepository(db)

	mock.ExpectExec("UPDATE interventions SET status = ").
		WithArgs("i1", "closed", sqlmock.AnyArg(), "remplacement alim", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.Close(context.Background(), "i1", time.Now(), "remplacement alim"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestInterventionRepositoryCloseAlreadyClosed(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewInterventionRepository(db)

	mock.ExpectExec("UPDATE interventions SET status = ").
		WithArgs("i1", "closed", sqlmock.AnyArg(), "", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.Close(context.Background(), "i1", time.Now(), "")
	assert.ErrorIs(t, err, sql.ErrNoRows)
	assert.NoError(t, mock.ExpectationsWereMet())
}
