package store

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"
	"time"

	"pointlist/internal/domain"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStore_LastWriterWins(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore(0)

	require.NoError(t, s.Put(ctx, "s1", []byte("first")))
	require.NoError(t, s.Put(ctx, "s1", []byte("second")))
	require.NoError(t, s.Put(ctx, "s2", []byte("other")))

	got, err := s.Get(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, "second", string(got))

	got, err = s.Get(ctx, "s2")
	require.NoError(t, err)
	assert.Equal(t, "other", string(got), "sessions are isolated")

	require.NoError(t, s.Delete(ctx, "s1"))
	_, err = s.Get(ctx, "s1")
	assert.True(t, errors.Is(err, domain.ErrSessionNotFound))
}

func TestMemoryStore_Expires(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	s := NewMemoryStore(time.Minute)
	s.now = func() time.Time { return now }

	require.NoError(t, s.Put(ctx, "s1", []byte("x")))
	_, err := s.Get(ctx, "s1")
	require.NoError(t, err)

	now = now.Add(2 * time.Minute)
	_, err = s.Get(ctx, "s1")
	assert.ErrorIs(t, err, ErrMiss)
}

func TestRedisStore(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	ctx := context.Background()
	s := NewRedisStore(client, time.Hour)

	_, err := s.Get(ctx, "missing")
	assert.ErrorIs(t, err, ErrMiss)

	payload := []byte{0x50, 0x4b, 0x03, 0x04, 0x00, 0xff}
	require.NoError(t, s.Put(ctx, "s1", payload))
	assert.True(t, mr.Exists(DefaultKeyPrefix+"s1"))

	got, err := s.Get(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, payload, got)

	mr.FastForward(2 * time.Hour)
	_, err = s.Get(ctx, "s1")
	assert.ErrorIs(t, err, ErrMiss)

	require.NoError(t, s.Put(ctx, "s2", payload))
	require.NoError(t, s.Delete(ctx, "s2"))
	assert.False(t, mr.Exists(DefaultKeyPrefix+"s2"))
}

func TestPostgresStore_PutGet(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	now := time.Date(2026, 1, 1, 8, 0, 0, 0, time.UTC)
	s := NewPostgresStore(db, time.Hour)
	s.now = func() time.Time { return now }
	ctx := context.Background()

	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO staged_workbooks`)).
		WithArgs("s1", []byte("xlsx"), now).
		WillReturnResult(sqlmock.NewResult(0, 1))
	require.NoError(t, s.Put(ctx, "s1", []byte("xlsx")))

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT data, updated_at FROM staged_workbooks WHERE session_id = $1`)).
		WithArgs("s1").
		WillReturnRows(sqlmock.NewRows([]string{"data", "updated_at"}).AddRow([]byte("xlsx"), now))
	got, err := s.Get(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, "xlsx", string(got))

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT data, updated_at FROM staged_workbooks`)).
		WithArgs("nope").
		WillReturnError(sql.ErrNoRows)
	_, err = s.Get(ctx, "nope")
	assert.ErrorIs(t, err, ErrMiss)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_ExpiredAndPurge(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	now := time.Date(2026, 1, 1, 8, 0, 0, 0, time.UTC)
	s := NewPostgresStore(db, time.Hour)
	s.now = func() time.Time { return now }
	ctx := context.Background()

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT data, updated_at FROM staged_workbooks`)).
		WithArgs("old").
		WillReturnRows(sqlmock.NewRows([]string{"data", "updated_at"}).AddRow([]byte("x"), now.Add(-2*time.Hour)))
	_, err = s.Get(ctx, "old")
	assert.ErrorIs(t, err, ErrMiss)

	mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM staged_workbooks WHERE updated_at < $1`)).
		WithArgs(now.Add(-time.Hour)).
		WillReturnResult(sqlmock.NewResult(0, 3))
	n, err := s.PurgeExpired(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)

	mock.ExpectExec(regexp.QuoteMeta(`CREATE TABLE IF NOT EXISTS staged_workbooks`)).
		WillReturnResult(sqlmock.NewResult(0, 0))
	require.NoError(t, s.EnsureSchema(ctx))

	mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM staged_workbooks WHERE session_id = $1`)).
		WithArgs("old").
		WillReturnResult(sqlmock.NewResult(0, 1))
	require.NoError(t, s.Delete(ctx, "old"))

	require.NoError(t, mock.ExpectationsWereMet())
}
