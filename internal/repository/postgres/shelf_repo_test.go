package postgres

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/gofrs/uuid/v5"
	pgxmock "github.com/pashagolub/pgxmock/v3"
	"github.com/stretchr/testify/require"

	"github.com/and161185/bookshelf/internal/errs"
	"github.com/and161185/bookshelf/internal/model"
)

var (
	reByUser = regexp.QuoteMeta(`WHERE r.user_id = $1 AND NOT r.is_draft`)
	reLatest = regexp.QuoteMeta(`WITH recent AS`)
)

func shelfRows() *pgxmock.Rows {
	return pgxmock.NewRows([]string{
		"b_id", "isbn13", "title", "publisher", "published_at", "authors",
		"r_id", "content", "is_draft", "state", "completed_at", "last_modified_at", "u_id", "u_name",
	})
}

func TestShelfRepo_Mine_GroupsByBook(t *testing.T) {
	db, mock := newDB(t)
	defer mock.Close()

	userID := uuid.Must(uuid.NewV4())
	b1, b2 := uuid.Must(uuid.NewV4()), uuid.Must(uuid.NewV4())
	r1, r2, r3 := uuid.Must(uuid.NewV4()), uuid.Must(uuid.NewV4()), uuid.Must(uuid.NewV4())
	done := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)
	mod := done.Add(time.Hour)
	var noDate *time.Time

	mock.ExpectQuery(reByUser).
		WithArgs(userID).
		WillReturnRows(shelfRows().
			AddRow(b1, "9784000000000", "A", "P", noDate, []string{"x"}, r1, "", false, int16(2), &done, mod, userID, "me").
			AddRow(b1, "9784000000000", "A", "P", noDate, []string{"x"}, r2, "", false, int16(1), noDate, mod, userID, "me").
			AddRow(b2, "9784000000017", "B", "P", noDate, []string{}, r3, "", false, int16(0), noDate, mod, userID, "me"))
	mock.ExpectQuery(reSelectTags).
		WithArgs([]string{b1.String(), b2.String()}).
		WillReturnRows(pgxmock.NewRows([]string{"book_id", "id", "name"}))

	got, err := NewShelfRepo(db, userID).Mine(context.Background())
	require.NoError(t, err)
	require.Len(t, got, 2)
	require.Equal(t, b1, got[0].ID)
	require.Len(t, got[0].Reviews, 2)
	require.Equal(t, model.Completed, got[0].Reviews[0].State)
	require.Equal(t, b1, got[0].Reviews[1].BookID)
	require.Equal(t, b2, got[1].ID)
	require.True(t, got[1].PublishedAt.IsZero())
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestShelfRepo_Latest(t *testing.T) {
	db, mock := newDB(t)
	defer mock.Close()

	mock.ExpectQuery(reLatest).
		WithArgs(100).
		WillReturnRows(shelfRows())

	got, err := NewShelfRepo(db, uuid.Nil).Latest(context.Background(), 100)
	require.NoError(t, err)
	require.Empty(t, got)
	require.NoError(t, mock.ExpectationsWereMet())

	_, err = NewShelfRepo(db, uuid.Nil).Latest(context.Background(), 0)
	require.ErrorIs(t, err, errs.ErrInvalidInput)
}
