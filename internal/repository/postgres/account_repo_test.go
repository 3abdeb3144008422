package postgres

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/gofrs/uuid/v5"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	pgxmock "github.com/pashagolub/pgxmock/v3"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/and161185/bookshelf/internal/crypto"
	"github.com/and161185/bookshelf/internal/errs"
)

var (
	reInsUser    = regexp.QuoteMeta(`INSERT INTO users (id, username, name, pwd_hash, salt)`)
	reSelectUser = regexp.QuoteMeta(`FROM users WHERE username=$1`)
)

type fakeLimiter struct {
	allow     bool
	wait      time.Duration
	successes int
	failures  int
}

func (f *fakeLimiter) Allow(context.Context, string, []byte) (bool, time.Duration, error) {
	return f.allow, f.wait, nil
}

func (f *fakeLimiter) Success(context.Context, string, []byte) error {
	f.successes++
	return nil
}

func (f *fakeLimiter) Failure(context.Context, string, []byte) (bool, time.Duration, error) {
	f.failures++
	return false, 0, nil
}

func accountRows() *pgxmock.Rows {
	return pgxmock.NewRows([]string{"id", "username", "name", "pwd_hash", "salt", "created_at"})
}

func TestAccountRepo_Create(t *testing.T) {
	db, mock := newDB(t)
	defer mock.Close()
	r := NewAccountRepo(db, nil, "host", zaptest.NewLogger(t))
	ctx := context.Background()
	created := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	mock.ExpectQuery(reInsUser).
		WithArgs(pgxmock.AnyArg(), "alice", "Alice", pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnRows(pgxmock.NewRows([]string{"created_at"}).AddRow(created))
	a, err := r.Create(ctx, "alice", "Alice", "pw")
	require.NoError(t, err)
	require.Equal(t, created, a.CreatedAt)
	require.True(t, crypto.VerifyPassword("pw", a.Salt, a.PwdHash))

	mock.ExpectQuery(reInsUser).
		WithArgs(pgxmock.AnyArg(), "alice", "Alice", pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnError(&pgconn.PgError{Code: "23505"})
	_, err = r.Create(ctx, "alice", "Alice", "pw")
	require.ErrorIs(t, err, errs.ErrBadRequest)
}

func TestAccountRepo_GetByUsername_NotFound(t *testing.T) {
	db, mock := newDB(t)
	defer mock.Close()

	mock.ExpectQuery(reSelectUser).WithArgs("bob").WillReturnError(pgx.ErrNoRows)
	_, err := NewAccountRepo(db, nil, "host", nil).GetByUsername(context.Background(), "bob")
	require.ErrorIs(t, err, errs.ErrNotFound)
}

func TestAccountRepo_SignIn(t *testing.T) {
	hash, salt, err := crypto.HashPassword("secret")
	require.NoError(t, err)
	id := uuid.Must(uuid.NewV4())
	now := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)

	t.Run("ok", func(t *testing.T) {
		db, mock := newDB(t)
		defer mock.Close()
		lim := &fakeLimiter{allow: true}
		r := NewAccountRepo(db, lim, "host", zaptest.NewLogger(t))
		r.now = func() time.Time { return now }

		mock.ExpectQuery(reSelectUser).WithArgs("alice").
			WillReturnRows(accountRows().AddRow(id, "alice", "Alice", hash, salt, now))

		tok, err := r.SignIn(context.Background(), "alice", "secret")
		require.NoError(t, err)
		require.Len(t, tok.Token, 64)
		require.Equal(t, id, tok.User.ID)
		require.Equal(t, "Alice", tok.User.Name)
		require.Equal(t, now.Add(SessionTTL), tok.ExpiresAt)
		require.Equal(t, 1, lim.successes)
	})

	t.Run("wrong password", func(t *testing.T) {
		db, mock := newDB(t)
		defer mock.Close()
		lim := &fakeLimiter{allow: true}
		r := NewAccountRepo(db, lim, "host", zaptest.NewLogger(t))

		mock.ExpectQuery(reSelectUser).WithArgs("alice").
			WillReturnRows(accountRows().AddRow(id, "alice", "Alice", hash, salt, now))

		_, err := r.SignIn(context.Background(), "alice", "nope")
		require.ErrorIs(t, err, errs.ErrBadRequest)
		require.Equal(t, 1, lim.failures)
	})

	t.Run("unknown user", func(t *testing.T) {
		db, mock := newDB(t)
		defer mock.Close()
		lim := &fakeLimiter{allow: true}
		r := NewAccountRepo(db, lim, "host", zaptest.NewLogger(t))

		mock.ExpectQuery(reSelectUser).WithArgs("ghost").WillReturnError(pgx.ErrNoRows)

		_, err := r.SignIn(context.Background(), "ghost", "x")
		require.ErrorIs(t, err, errs.ErrBadRequest)
		require.Equal(t, 1, lim.failures)
	})

	t.Run("locked", func(t *testing.T) {
		db, mock := newDB(t)
		defer mock.Close()
		r := NewAccountRepo(db, &fakeLimiter{wait: time.Minute}, "host", zaptest.NewLogger(t))

		_, err := r.SignIn(context.Background(), "alice", "secret")
		require.ErrorIs(t, err, errs.ErrBadRequest)
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("db error", func(t *testing.T) {
		db, mock := newDB(t)
		defer mock.Close()
		r := NewAccountRepo(db, nil, "host", zaptest.NewLogger(t))
		boom := errors.New("boom")

		mock.ExpectQuery(reSelectUser).WithArgs("alice").WillReturnError(boom)

		_, err := r.SignIn(context.Background(), "alice", "secret")
		require.ErrorIs(t, err, boom)
	})
}
