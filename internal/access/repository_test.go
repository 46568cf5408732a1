package access

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMockDB(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return sqlx.NewDb(db, "sqlmock"), mock
}

func TestStaffRoleAt(t *testing.T) {
	dbx, mock := newMockDB(t)
	repo := NewRepository(dbx)

	t.Run("Active assignment", func(t *testing.T) {
		mock.ExpectQuery(`SELECT role FROM staff_assignments.*`).
			WithArgs(5, 2).
			WillReturnRows(sqlmock.NewRows([]string{"role"}).AddRow("manager"))

		role, err := repo.StaffRoleAt(context.Background(), 5, 2)
		require.NoError(t, err)
		assert.Equal(t, RoleManager, role)
	})

	t.Run("No assignment", func(t *testing.T) {
		mock.ExpectQuery(`SELECT role FROM staff_assignments.*`).
			WithArgs(5, 3).
			WillReturnRows(sqlmock.NewRows([]string{"role"}))

		_, err := repo.StaffRoleAt(context.Background(), 5, 3)
		assert.ErrorIs(t, err, ErrNotStaffAtLocation)
	})

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestListActiveGrants(t *testing.T) {
	dbx, mock := newMockDB(t)
	repo := NewRepository(dbx)

	mock.ExpectQuery(`SELECT id, member_id, location_id, access_type, status, created_at FROM access_grants.*`).
		WithArgs(11).
		WillReturnRows(sqlmock.NewRows([]string{"id", "member_id", "location_id", "access_type", "status", "created_at"}).
			AddRow(1, 11, 2, "HOME", "ACTIVE", time.Now()).
			AddRow(2, 11, nil, "ALL_ACCESS", "ACTIVE", time.Now()))

	grants, err := repo.ListActiveGrants(context.Background(), 11)
	require.NoError(t, err)
	require.Len(t, grants, 2)
	assert.Equal(t, TypeHome, grants[0].AccessType)
	assert.Nil(t, grants[1].LocationID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestHomeLocationID_NoGrant(t *testing.T) {
	dbx, mock := newMockDB(t)
	repo := NewRepository(dbx)

	mock.ExpectQuery(`SELECT location_id FROM access_grants.*`).
		WithArgs(11).
		WillReturnRows(sqlmock.NewRows([]string{"location_id"}))

	id, err := repo.HomeLocationID(context.Background(), 11)
	require.NoError(t, err)
	assert.Nil(t, id)
}

func TestUpdateGrantStatus_NotFound(t *testing.T) {
	dbx, mock := newMockDB(t)
	repo := NewRepository(dbx)

	mock.ExpectExec(`UPDATE access_grants.*`).
		WithArgs("SUSPENDED", 99).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.UpdateGrantStatus(context.Background(), 99, GrantSuspended)
	assert.ErrorIs(t, err, ErrGrantNotFound)
}
