package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/gofrs/uuid/v5"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/and161185/bookshelf/internal/errs"
	"github.com/and161185/bookshelf/internal/model"
	"github.com/and161185/bookshelf/internal/repository"
)

type fakeShelf struct {
	books []model.BookWithReviews
	err   error

	latestIn int
	userIn   uuid.UUID
}

var _ repository.ShelfRepository = (*fakeShelf)(nil)

func (f *fakeShelf) Mine(context.Context) ([]model.BookWithReviews, error) { return f.books, f.err }
func (f *fakeShelf) Latest(_ context.Context, n int) ([]model.BookWithReviews, error) {
	f.latestIn = n
	return f.books, f.err
}
func (f *fakeShelf) ByUser(_ context.Context, id uuid.UUID) ([]model.BookWithReviews, error) {
	f.userIn = id
	return f.books, f.err
}

func shelfFixture() []model.BookWithReviews {
	done := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	return []model.BookWithReviews{
		{Book: model.Book{ID: uuid.Must(uuid.NewV4())}, Reviews: []model.Review{
			{State: model.Completed, CompletedAt: &done}, {State: model.Completed, CompletedAt: &done},
		}},
		{Book: model.Book{ID: uuid.Must(uuid.NewV4())}, Reviews: []model.Review{{State: model.InProgress}}},
	}
}

func TestShelfService_Mine(t *testing.T) {
	repo := &fakeShelf{books: shelfFixture()}
	s := NewShelfService(repo, zaptest.NewLogger(t))

	got, err := s.Mine(context.Background(), model.OnlyCompleted)
	require.NoError(t, err)
	require.Len(t, got.Filtered, 1)
	require.Equal(t, repo.books[0].ID, got.Filtered[0].ID)

	got, err = s.Mine(context.Background(), model.OnlyNotYet)
	require.NoError(t, err)
	require.Empty(t, got.Filtered)
	require.Len(t, got.Originals, 2)
}

func TestShelfService_LatestDefaultsCount(t *testing.T) {
	repo := &fakeShelf{}
	s := NewShelfService(repo, nil)

	_, err := s.Latest(context.Background(), 0, model.All)
	require.NoError(t, err)
	require.Equal(t, DefaultLatestCount, repo.latestIn)

	_, err = s.Latest(context.Background(), 7, model.All)
	require.NoError(t, err)
	require.Equal(t, 7, repo.latestIn)
}

func TestShelfService_ByUser(t *testing.T) {
	repo := &fakeShelf{books: shelfFixture()}
	s := NewShelfService(repo, nil)

	_, err := s.ByUser(context.Background(), uuid.Nil, model.All)
	require.ErrorIs(t, err, errs.ErrInvalidInput)

	id := uuid.Must(uuid.NewV4())
	got, err := s.ByUser(context.Background(), id, model.OnlyInProgress)
	require.NoError(t, err)
	require.Equal(t, id, repo.userIn)
	require.Len(t, got.Filtered, 1)

	repo.err = errors.New("boom")
	_, err = s.ByUser(context.Background(), id, model.All)
	require.Error(t, err)
}
