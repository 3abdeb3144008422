// Package service contains the client-side workflows: review creation and
// update guarded by the reading-state invariant, shelf listing and sign-in.
package service

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/gofrs/uuid/v5"
	"go.uber.org/zap"

	"github.com/and161185/bookshelf/internal/errs"
	"github.com/and161185/bookshelf/internal/model"
	"github.com/and161185/bookshelf/internal/repository"
	"github.com/and161185/bookshelf/internal/validation"
)

// ReviewWorkflow orchestrates multi-call review operations.
//
// The invariant check reads the existing reviews and then writes; the two
// steps are not atomic against the store. Two concurrent requests for the
// same (user, book) may both pass the check.
type ReviewWorkflow interface {
	// ResolveBookID maps isbn13 to a local book ID. found is false on a catalog miss.
	ResolveBookID(ctx context.Context, isbn13 string) (id uuid.UUID, found bool, err error)
	// CreateBookAndReview registers the book if unseen and attaches a new review.
	CreateBookAndReview(ctx context.Context, book model.BookCreate, in model.ReviewInput) (model.Review, error)
	// CreateReview attaches a new review to an existing book.
	CreateReview(ctx context.Context, bookID uuid.UUID, in model.ReviewInput) (model.Review, error)
	// UpdateReview replaces the editable fields of one of the user's reviews.
	UpdateReview(ctx context.Context, bookID, reviewID uuid.UUID, in model.ReviewInput) error
	// DeleteReview removes a review.
	DeleteReview(ctx context.Context, reviewID uuid.UUID) error
}

// ReviewWorkflowImpl implements ReviewWorkflow over the catalog and review repositories.
type ReviewWorkflowImpl struct {
	catalog repository.CatalogRepository
	reviews repository.ReviewRepository
	valid   *validation.Validator
	log     *zap.Logger
	now     func() time.Time
}

// NewReviewWorkflow constructs ReviewWorkflow. A nil logger disables logging.
func NewReviewWorkflow(catalog repository.CatalogRepository, reviews repository.ReviewRepository, log *zap.Logger) *ReviewWorkflowImpl {
	if log == nil {
		log = zap.NewNop()
	}
	return &ReviewWorkflowImpl{
		catalog: catalog,
		reviews: reviews,
		valid:   validation.New(),
		log:     log,
		now:     time.Now,
	}
}

// ResolveBookID looks the book up in the catalog. A miss is not an error.
func (s *ReviewWorkflowImpl) ResolveBookID(ctx context.Context, isbn13 string) (uuid.UUID, bool, error) {
	b, err := s.catalog.FindByISBN13(ctx, isbn13)
	if errors.Is(err, errs.ErrNotFound) {
		return uuid.Nil, false, nil
	}
	if err != nil {
		return uuid.Nil, false, fmt.Errorf("find book %s: %w", isbn13, err)
	}
	return b.ID, true, nil
}

// CreateBookAndReview resolves or creates the book, then creates the review.
// A book created here is kept even when the review is rejected: the
// isbn13 mapping is shared by all users.
func (s *ReviewWorkflowImpl) CreateBookAndReview(ctx context.Context, book model.BookCreate, in model.ReviewInput) (model.Review, error) {
	if err := s.valid.Validate(book); err != nil {
		return model.Review{}, err
	}
	if err := s.valid.Validate(in); err != nil {
		return model.Review{}, err
	}

	bookID, found, err := s.ResolveBookID(ctx, book.ISBN13)
	if err != nil {
		return model.Review{}, err
	}
	if !found {
		created, err := s.catalog.Create(ctx, book)
		if err != nil {
			return model.Review{}, fmt.Errorf("create book %s: %w", book.ISBN13, err)
		}
		bookID = created.ID
		s.log.Info("book created", zap.String("isbn13", book.ISBN13), zap.String("book_id", bookID.String()))
	}
	return s.createReview(ctx, bookID, in)
}

// CreateReview validates the new review against the user's other reviews of
// the book and stores it.
func (s *ReviewWorkflowImpl) CreateReview(ctx context.Context, bookID uuid.UUID, in model.ReviewInput) (model.Review, error) {
	if bookID == uuid.Nil {
		return model.Review{}, fmt.Errorf("%w: empty book id", errs.ErrInvalidInput)
	}
	if err := s.valid.Validate(in); err != nil {
		return model.Review{}, err
	}
	return s.createReview(ctx, bookID, in)
}

func (s *ReviewWorkflowImpl) createReview(ctx context.Context, bookID uuid.UUID, in model.ReviewInput) (model.Review, error) {
	in = in.Normalize(s.now())

	existing, err := s.reviews.ListForBook(ctx, bookID)
	if err != nil {
		return model.Review{}, fmt.Errorf("list reviews of %s: %w", bookID, err)
	}
	if verr := ValidateAgainst(in.State, existing); verr != nil {
		s.log.Debug("review rejected",
			zap.String("book_id", bookID.String()),
			zap.Stringer("state", in.State),
			zap.String("reason", verr.Message),
		)
		return model.Review{}, verr
	}

	r, err := s.reviews.Create(ctx, bookID, in)
	if err != nil {
		return model.Review{}, fmt.Errorf("create review: %w", err)
	}
	s.log.Info("review created",
		zap.String("book_id", bookID.String()),
		zap.String("review_id", r.ID.String()),
		zap.Stringer("state", in.State),
	)
	return r, nil
}

// UpdateReview validates against the user's other reviews of the book, the
// updated review itself excluded, and stores the change. The review must be
// one of the book's reviews.
func (s *ReviewWorkflowImpl) UpdateReview(ctx context.Context, bookID, reviewID uuid.UUID, in model.ReviewInput) error {
	if bookID == uuid.Nil || reviewID == uuid.Nil {
		return fmt.Errorf("%w: empty book/review id", errs.ErrInvalidInput)
	}
	if err := s.valid.Validate(in); err != nil {
		return err
	}
	in = in.Normalize(s.now())

	existing, err := s.reviews.ListForBook(ctx, bookID)
	if err != nil {
		return fmt.Errorf("list reviews of %s: %w", bookID, err)
	}
	if !slices.ContainsFunc(existing, func(r model.Review) bool { return r.ID == reviewID }) {
		return fmt.Errorf("review %s of book %s: %w", reviewID, bookID, errs.ErrNotFound)
	}
	if verr := ValidateAgainst(in.State, excluding(existing, reviewID)); verr != nil {
		s.log.Debug("review update rejected",
			zap.String("review_id", reviewID.String()),
			zap.Stringer("state", in.State),
			zap.String("reason", verr.Message),
		)
		return verr
	}

	if err := s.reviews.Update(ctx, reviewID, in); err != nil {
		return fmt.Errorf("update review %s: %w", reviewID, err)
	}
	s.log.Info("review updated", zap.String("review_id", reviewID.String()), zap.Stringer("state", in.State))
	return nil
}

// DeleteReview removes a review. Deleting can only lower the number of
// non-completed reviews, so no invariant check is made.
func (s *ReviewWorkflowImpl) DeleteReview(ctx context.Context, reviewID uuid.UUID) error {
	if reviewID == uuid.Nil {
		return fmt.Errorf("%w: empty review id", errs.ErrInvalidInput)
	}
	if err := s.reviews.Delete(ctx, reviewID); err != nil {
		return fmt.Errorf("delete review %s: %w", reviewID, err)
	}
	s.log.Info("review deleted", zap.String("review_id", reviewID.String()))
	return nil
}
