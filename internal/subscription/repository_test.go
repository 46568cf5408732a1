package subscription

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

func subscriptionRows(id int) *sqlmock.Rows {
	return sqlmock.NewRows([]string{
		"id", "member_id", "plan_id", "location_id", "status",
		"delinquency_state", "grace_period_until", "created_at", "updated_at",
	}).AddRow(id, 9, 2, 3, "active", "current", nil, time.Now(), time.Now())
}

func locationCheckRows(active, sameChain bool) *sqlmock.Rows {
	return sqlmock.NewRows([]string{"active", "same_chain"}).AddRow(active, sameChain)
}

func TestCreateWithAdmission_HardLimitBlocks(t *testing.T) {
	dbx, mock := newMockDB(t)
	repo := NewRepository(dbx)

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT l\.active, \(l\.chain_id = m\.chain_id\) AS same_chain`).
		WithArgs(3, 9).
		WillReturnRows(locationCheckRows(true, true))
	mock.ExpectQuery(`SELECT location_id, max_active_members.*FOR UPDATE`).
		WithArgs(3).
		WillReturnRows(sqlmock.NewRows([]string{"location_id", "max_active_members", "soft_limit_threshold", "hard_limit_enforced", "updated_at"}).
			AddRow(3, 40, 0.8, true, time.Now()))
	mock.ExpectQuery(`SELECT COUNT\(DISTINCT m\.id\)`).
		WithArgs(3).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(40))
	mock.ExpectRollback()

	_, err := repo.CreateWithAdmission(context.Background(), 9, 2, 3)
	assert.ErrorIs(t, err, ErrCapacityBlocked)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateWithAdmission_FirstSubscriptionCreatesHomeGrant(t *testing.T) {
	dbx, mock := newMockDB(t)
	repo := NewRepository(dbx)

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT l\.active, \(l\.chain_id = m\.chain_id\) AS same_chain`).
		WithArgs(3, 9).
		WillReturnRows(locationCheckRows(true, true))
	mock.ExpectQuery(`SELECT location_id, max_active_members.*FOR UPDATE`).
		WithArgs(3).
		WillReturnRows(sqlmock.NewRows([]string{"location_id", "max_active_members", "soft_limit_threshold", "hard_limit_enforced", "updated_at"}))
	mock.ExpectQuery(`INSERT INTO subscriptions`).
		WithArgs(9, 2, 3).
		WillReturnRows(subscriptionRows(5))
	mock.ExpectQuery(`SELECT EXISTS`).
		WithArgs(9, 3).
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))
	mock.ExpectQuery(`SELECT EXISTS`).
		WithArgs(9).
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))
	mock.ExpectExec(`INSERT INTO access_grants`).
		WithArgs(9, 3, "HOME").
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	sub, err := repo.CreateWithAdmission(context.Background(), 9, 2, 3)
	require.NoError(t, err)
	assert.Equal(t, 5, sub.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateWithAdmission_InactiveLocation(t *testing.T) {
	dbx, mock := newMockDB(t)
	repo := NewRepository(dbx)

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT l\.active, \(l\.chain_id = m\.chain_id\) AS same_chain`).
		WithArgs(3, 9).
		WillReturnRows(locationCheckRows(false, true))
	mock.ExpectRollback()

	_, err := repo.CreateWithAdmission(context.Background(), 9, 2, 3)
	assert.ErrorIs(t, err, ErrLocationUnavailable)
}

func TestCreateWithAdmission_CrossChainRejected(t *testing.T) {
	dbx, mock := newMockDB(t)
	repo := NewRepository(dbx)

	// A member admitted outside their chain would never show up in the
	// location's active-member count, so the sign-up must not proceed to
	// the capacity check at all.
	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT l\.active, \(l\.chain_id = m\.chain_id\) AS same_chain`).
		WithArgs(3, 9).
		WillReturnRows(locationCheckRows(true, false))
	mock.ExpectRollback()

	_, err := repo.CreateWithAdmission(context.Background(), 9, 2, 3)
	assert.ErrorIs(t, err, ErrLocationOutsideChain)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMarkPaymentSucceeded_NoSubscription(t *testing.T) {
	dbx, mock := newMockDB(t)
	repo := NewRepository(dbx)

	at := time.Now()
	mock.ExpectExec(`UPDATE subscriptions`).
		WithArgs(9, at).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.MarkPaymentSucceeded(context.Background(), 9, at)
	assert.ErrorIs(t, err, ErrSubscriptionNotFound)
}

func TestClearRecovered_AlreadyCleared(t *testing.T) {
	dbx, mock := newMockDB(t)
	repo := NewRepository(dbx)

	mock.ExpectExec(`UPDATE subscriptions.*delinquency_state = 'recovered'`).
		WithArgs(7).
		WillReturnResult(sqlmock.NewResult(0, 0))

	// Losing the one-shot race is not an error, just not a win.
	cleared, err := repo.ClearRecovered(context.Background(), 7)
	assert.NoError(t, err)
	assert.False(t, cleared)
}

func TestGetCurrentByMember_NoneIsNil(t *testing.T) {
	dbx, mock := newMockDB(t)
	repo := NewRepository(dbx)

	mock.ExpectQuery(`SELECT id, member_id, plan_id, location_id, status`).
		WithArgs(9).
		WillReturnRows(subscriptionRows(1).RowError(0, nil))

	sub, err := repo.GetCurrentByMember(context.Background(), 9)
	require.NoError(t, err)
	assert.Equal(t, 1, sub.ID)

	mock.ExpectQuery(`SELECT id, member_id, plan_id, location_id, status`).
		WithArgs(10).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	sub, err = repo.GetCurrentByMember(context.Background(), 10)
	require.NoError(t, err)
	assert.Nil(t, sub)
}
