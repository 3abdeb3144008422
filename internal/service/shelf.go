package service

import (
	"context"
	"fmt"

	"github.com/gofrs/uuid/v5"
	"go.uber.org/zap"

	"github.com/and161185/bookshelf/internal/aggregate"
	"github.com/and161185/bookshelf/internal/errs"
	"github.com/and161185/bookshelf/internal/model"
	"github.com/and161185/bookshelf/internal/repository"
)

// DefaultLatestCount is used when Latest is asked for a non-positive count.
const DefaultLatestCount = 100

// ShelfService loads book lists and derives their display state.
type ShelfService interface {
	// Mine lists the current user's books filtered by cond.
	Mine(ctx context.Context, cond model.FilterCondition) (model.FilteredReviews, error)
	// Latest lists books with the most recently modified reviews.
	Latest(ctx context.Context, maxCount int, cond model.FilterCondition) (model.FilteredReviews, error)
	// ByUser lists another user's books filtered by cond.
	ByUser(ctx context.Context, userID uuid.UUID, cond model.FilterCondition) (model.FilteredReviews, error)
}

type ShelfServiceImpl struct {
	repo repository.ShelfRepository
	log  *zap.Logger
}

// NewShelfService constructs ShelfService.
func NewShelfService(repo repository.ShelfRepository, log *zap.Logger) *ShelfServiceImpl {
	if log == nil {
		log = zap.NewNop()
	}
	return &ShelfServiceImpl{repo: repo, log: log}
}

func (s *ShelfServiceImpl) Mine(ctx context.Context, cond model.FilterCondition) (model.FilteredReviews, error) {
	books, err := s.repo.Mine(ctx)
	if err != nil {
		return model.FilteredReviews{}, fmt.Errorf("load my shelf: %w", err)
	}
	return s.filter(books, cond), nil
}

func (s *ShelfServiceImpl) Latest(ctx context.Context, maxCount int, cond model.FilterCondition) (model.FilteredReviews, error) {
	if maxCount <= 0 {
		maxCount = DefaultLatestCount
	}
	books, err := s.repo.Latest(ctx, maxCount)
	if err != nil {
		return model.FilteredReviews{}, fmt.Errorf("load latest: %w", err)
	}
	return s.filter(books, cond), nil
}

func (s *ShelfServiceImpl) ByUser(ctx context.Context, userID uuid.UUID, cond model.FilterCondition) (model.FilteredReviews, error) {
	if userID == uuid.Nil {
		return model.FilteredReviews{}, fmt.Errorf("%w: empty user id", errs.ErrInvalidInput)
	}
	books, err := s.repo.ByUser(ctx, userID)
	if err != nil {
		return model.FilteredReviews{}, fmt.Errorf("load shelf of %s: %w", userID, err)
	}
	return s.filter(books, cond), nil
}

func (s *ShelfServiceImpl) filter(books []model.BookWithReviews, cond model.FilterCondition) model.FilteredReviews {
	out := aggregate.Filter(books, cond)
	s.log.Debug("shelf filtered",
		zap.Stringer("condition", cond),
		zap.Int("books", len(books)),
		zap.Int("shown", len(out.Filtered)),
	)
	return out
}
