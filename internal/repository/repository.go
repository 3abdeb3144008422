// Package repository defines the collaborator contracts consumed by services.
// Concrete backends live in the rest and postgres subpackages.
package repository

import (
	"context"

	"github.com/gofrs/uuid/v5"

	"github.com/and161185/bookshelf/internal/model"
)

// CatalogRepository looks up and registers books by ISBN-13.
type CatalogRepository interface {
	// FindByISBN13 returns the book registered for isbn13 or errs.ErrNotFound.
	FindByISBN13(ctx context.Context, isbn13 string) (model.Book, error)
	// Create registers a new book.
	Create(ctx context.Context, in model.BookCreate) (model.Book, error)
}

// ReviewRepository provides CRUD over the current user's reviews.
type ReviewRepository interface {
	// ListForBook returns the current user's reviews of bookID, drafts included.
	ListForBook(ctx context.Context, bookID uuid.UUID) ([]model.Review, error)
	// Create stores a new review bound to bookID.
	Create(ctx context.Context, bookID uuid.UUID, in model.ReviewInput) (model.Review, error)
	// Update replaces the editable fields of a review.
	Update(ctx context.Context, reviewID uuid.UUID, in model.ReviewInput) error
	// Delete removes a review.
	Delete(ctx context.Context, reviewID uuid.UUID) error
}

// ShelfRepository is the read side used by list screens.
type ShelfRepository interface {
	// Mine returns the current user's books with their non-draft reviews.
	Mine(ctx context.Context) ([]model.BookWithReviews, error)
	// Latest returns books with the most recently modified public reviews.
	Latest(ctx context.Context, maxCount int) ([]model.BookWithReviews, error)
	// ByUser returns another user's books with their non-draft reviews.
	ByUser(ctx context.Context, userID uuid.UUID) ([]model.BookWithReviews, error)
}

// AuthRepository exchanges credentials for an access token.
type AuthRepository interface {
	SignIn(ctx context.Context, username, password string) (model.UserToken, error)
}
