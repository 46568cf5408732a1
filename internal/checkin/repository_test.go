package checkin

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

func tokenRows(memberID int, expiresAt time.Time, consumedAt *time.Time) *sqlmock.Rows {
	return sqlmock.NewRows([]string{"id", "member_id", "value", "issued_at", "expires_at", "consumed_at"}).
		AddRow(1, memberID, "abc", expiresAt.Add(-2*time.Minute), expiresAt, consumedAt)
}

func currentSubscriptionRows(memberID int) *sqlmock.Rows {
	return sqlmock.NewRows([]string{
		"id", "member_id", "plan_id", "location_id", "status",
		"delinquency_state", "grace_period_until", "created_at", "updated_at",
	}).AddRow(5, memberID, 2, 3, "active", "current", nil, time.Now(), time.Now())
}

func eventRows(id, memberID, locationID int, source string, recordedBy int, at time.Time) *sqlmock.Rows {
	return sqlmock.NewRows([]string{"id", "member_id", "member_name", "location_id", "source", "recorded_by", "occurred_at"}).
		AddRow(id, memberID, "Sam Carter", locationID, source, recordedBy, at)
}

func TestIssueToken_ConsumesPreviousLiveToken(t *testing.T) {
	dbx, mock := newMockDB(t)
	repo := NewRepository(dbx)

	now := time.Now()
	expires := now.Add(2 * time.Minute)

	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE checkin_tokens.*consumed_at IS NULL`).
		WithArgs(9, now).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(`INSERT INTO checkin_tokens`).
		WithArgs(9, "abc", now, expires).
		WillReturnRows(tokenRows(9, expires, nil))
	mock.ExpectCommit()

	token, err := repo.IssueToken(context.Background(), 9, "abc", now, expires)
	require.NoError(t, err)
	assert.Equal(t, "abc", token.Value)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestConsumeToken_Success(t *testing.T) {
	dbx, mock := newMockDB(t)
	repo := NewRepository(dbx)

	now := time.Now()

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT id, member_id, value, issued_at, expires_at, consumed_at.*FOR UPDATE`).
		WithArgs("abc").
		WillReturnRows(tokenRows(9, now.Add(time.Minute), nil))
	mock.ExpectQuery(`SELECT id, member_id, plan_id, location_id, status`).
		WithArgs(9).
		WillReturnRows(currentSubscriptionRows(9))
	mock.ExpectQuery(`SELECT EXISTS`).
		WithArgs(9, 3).
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))
	mock.ExpectExec(`UPDATE checkin_tokens.*WHERE id = \$1 AND consumed_at IS NULL`).
		WithArgs(1, now).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(`INSERT INTO checkin_events`).
		WithArgs(9, 3, SourceQR, 5, now).
		WillReturnRows(eventRows(11, 9, 3, SourceQR, 5, now))
	mock.ExpectCommit()

	event, err := repo.ConsumeToken(context.Background(), "abc", 3, 5, now)
	require.NoError(t, err)
	assert.Equal(t, 11, event.ID)
	assert.Equal(t, "Sam Carter", event.MemberName)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestConsumeToken_Unknown(t *testing.T) {
	dbx, mock := newMockDB(t)
	repo := NewRepository(dbx)

	mock.ExpectBegin()
	mock.ExpectQuery(`FOR UPDATE`).
		WithArgs("nope").
		WillReturnRows(sqlmock.NewRows([]string{"id"}))
	mock.ExpectRollback()

	_, err := repo.ConsumeToken(context.Background(), "nope", 3, 5, time.Now())
	assert.ErrorIs(t, err, ErrTokenNotFound)
}

func TestConsumeToken_Expired(t *testing.T) {
	dbx, mock := newMockDB(t)
	repo := NewRepository(dbx)

	now := time.Now()

	mock.ExpectBegin()
	mock.ExpectQuery(`FOR UPDATE`).
		WithArgs("abc").
		WillReturnRows(tokenRows(9, now.Add(-time.Second), nil))
	mock.ExpectRollback()

	_, err := repo.ConsumeToken(context.Background(), "abc", 3, 5, now)
	assert.ErrorIs(t, err, ErrTokenExpired)
}

func TestConsumeToken_AlreadyUsed(t *testing.T) {
	dbx, mock := newMockDB(t)
	repo := NewRepository(dbx)

	now := time.Now()
	used := now.Add(-30 * time.Second)

	mock.ExpectBegin()
	mock.ExpectQuery(`FOR UPDATE`).
		WithArgs("abc").
		WillReturnRows(tokenRows(9, now.Add(time.Minute), &used))
	mock.ExpectRollback()

	_, err := repo.ConsumeToken(context.Background(), "abc", 3, 5, now)
	assert.ErrorIs(t, err, ErrTokenAlreadyUsed)
}

func TestConsumeToken_ConcurrentLoser(t *testing.T) {
	dbx, mock := newMockDB(t)
	repo := NewRepository(dbx)

	now := time.Now()

	// The token read saw consumed_at as NULL, but another scan commits the
	// consumption first. The conditional update hits zero rows and this
	// transaction loses.
	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT id, member_id, value, issued_at, expires_at, consumed_at.*FOR UPDATE`).
		WithArgs("abc").
		WillReturnRows(tokenRows(9, now.Add(time.Minute), nil))
	mock.ExpectQuery(`SELECT id, member_id, plan_id, location_id, status`).
		WithArgs(9).
		WillReturnRows(currentSubscriptionRows(9))
	mock.ExpectQuery(`SELECT EXISTS`).
		WithArgs(9, 3).
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))
	mock.ExpectExec(`UPDATE checkin_tokens.*WHERE id = \$1 AND consumed_at IS NULL`).
		WithArgs(1, now).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	_, err := repo.ConsumeToken(context.Background(), "abc", 3, 5, now)
	assert.ErrorIs(t, err, ErrTokenAlreadyUsed)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestConsumeToken_RestrictedMemberDenied(t *testing.T) {
	dbx, mock := newMockDB(t)
	repo := NewRepository(dbx)

	now := time.Now()

	restricted := sqlmock.NewRows([]string{
		"id", "member_id", "plan_id", "location_id", "status",
		"delinquency_state", "grace_period_until", "created_at", "updated_at",
	}).AddRow(5, 9, 2, 3, "past_due", "restricted", nil, time.Now(), time.Now())

	mock.ExpectBegin()
	mock.ExpectQuery(`FOR UPDATE`).
		WithArgs("abc").
		WillReturnRows(tokenRows(9, now.Add(time.Minute), nil))
	mock.ExpectQuery(`SELECT id, member_id, plan_id, location_id, status`).
		WithArgs(9).
		WillReturnRows(restricted)
	mock.ExpectRollback()

	_, err := repo.ConsumeToken(context.Background(), "abc", 3, 5, now)
	assert.ErrorIs(t, err, ErrAccessRestricted)
}

func TestRecordManual_NoGrantAtLocation(t *testing.T) {
	dbx, mock := newMockDB(t)
	repo := NewRepository(dbx)

	now := time.Now()

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT id, member_id, plan_id, location_id, status`).
		WithArgs(9).
		WillReturnRows(currentSubscriptionRows(9))
	mock.ExpectQuery(`SELECT EXISTS`).
		WithArgs(9, 4).
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))
	mock.ExpectRollback()

	_, err := repo.RecordManual(context.Background(), 9, 4, 5, now)
	assert.ErrorIs(t, err, ErrNoAccessAtLocation)
}
