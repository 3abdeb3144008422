package postgres

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/gofrs/uuid/v5"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	pgxmock "github.com/pashagolub/pgxmock/v3"
	"github.com/stretchr/testify/require"

	"github.com/and161185/bookshelf/internal/errs"
	"github.com/and161185/bookshelf/internal/model"
)

func newDB(t *testing.T) (*DB, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	return &DB{Pool: mock}, mock
}

var (
	reSelectBook = regexp.QuoteMeta(`FROM books b WHERE b.isbn13 = $1`)
	reSelectTags = regexp.QuoteMeta(`FROM book_tags bt JOIN tags t`)
	reInsBook    = regexp.QuoteMeta(`INSERT INTO books (id, isbn13, title, publisher, published_at)`)
	reInsAuthor  = regexp.QuoteMeta(`INSERT INTO book_authors (book_id, position, name)`)
)

func TestBookRepo_FindByISBN13_OK(t *testing.T) {
	db, mock := newDB(t)
	defer mock.Close()
	r := NewBookRepo(db)

	id := uuid.Must(uuid.NewV4())
	tagID := uuid.Must(uuid.NewV4())
	pub := time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)

	mock.ExpectQuery(reSelectBook).
		WithArgs("9784000000000").
		WillReturnRows(pgxmock.NewRows([]string{"id", "isbn13", "title", "publisher", "published_at", "authors"}).
			AddRow(id, "9784000000000", "T", "P", &pub, []string{"A", "B"}))
	mock.ExpectQuery(reSelectTags).
		WithArgs([]string{id.String()}).
		WillReturnRows(pgxmock.NewRows([]string{"book_id", "id", "name"}).AddRow(id, tagID, "sf"))

	b, err := r.FindByISBN13(context.Background(), "9784000000000")
	require.NoError(t, err)
	require.Equal(t, id, b.ID)
	require.Equal(t, []string{"A", "B"}, b.Authors)
	require.True(t, pub.Equal(b.PublishedAt))
	require.Equal(t, []model.BookTag{{ID: tagID, Name: "sf"}}, b.Tags)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestBookRepo_FindByISBN13_NotFound(t *testing.T) {
	db, mock := newDB(t)
	defer mock.Close()

	mock.ExpectQuery(reSelectBook).WithArgs("9784000000000").WillReturnError(pgx.ErrNoRows)

	_, err := NewBookRepo(db).FindByISBN13(context.Background(), "9784000000000")
	require.ErrorIs(t, err, errs.ErrNotFound)
}

func TestBookRepo_Create_OK(t *testing.T) {
	db, mock := newDB(t)
	defer mock.Close()

	mock.ExpectBegin()
	mock.ExpectExec(reInsBook).
		WithArgs(pgxmock.AnyArg(), "9784000000000", "T", "P", (*time.Time)(nil)).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectExec(reInsAuthor).
		WithArgs(pgxmock.AnyArg(), 0, "A").
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectExec(reInsAuthor).
		WithArgs(pgxmock.AnyArg(), 1, "B").
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectCommit()

	b, err := NewBookRepo(db).Create(context.Background(), model.BookCreate{
		ISBN13: "9784000000000", Title: "T", Publisher: "P", Authors: []string{"A", "B"},
	})
	require.NoError(t, err)
	require.NotEqual(t, uuid.Nil, b.ID)
	require.Equal(t, []string{"A", "B"}, b.Authors)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestBookRepo_Create_Duplicate(t *testing.T) {
	db, mock := newDB(t)
	defer mock.Close()

	mock.ExpectBegin()
	mock.ExpectExec(reInsBook).
		WithArgs(pgxmock.AnyArg(), "9784000000000", "T", "", (*time.Time)(nil)).
		WillReturnError(&pgconn.PgError{Code: "23505"})
	mock.ExpectRollback()

	_, err := NewBookRepo(db).Create(context.Background(), model.BookCreate{ISBN13: "9784000000000", Title: "T"})
	require.ErrorIs(t, err, errs.ErrBadRequest)
	require.NoError(t, mock.ExpectationsWereMet())
}
