package rest

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/gofrs/uuid/v5"

	"github.com/and161185/bookshelf/internal/convert"
	"github.com/and161185/bookshelf/internal/errs"
	"github.com/and161185/bookshelf/internal/model"
)

// Books implements repository.CatalogRepository.
type Books struct {
	find   endpoint[convert.BookFindDTO, []model.Book]
	create endpoint[convert.BookDTO, model.Book]
}

// NewBooks binds the catalog resource to c.
func NewBooks(c *Client) *Books {
	return &Books{
		find: endpoint[convert.BookFindDTO, []model.Book]{c: c, convert: func(w convert.BookFindDTO) ([]model.Book, error) {
			out := make([]model.Book, 0, len(w.Books))
			for _, d := range w.Books {
				b, err := convert.BookFromDTO(d)
				if err != nil {
					return nil, err
				}
				out = append(out, b)
			}
			return out, nil
		}},
		create: endpoint[convert.BookDTO, model.Book]{c: c, convert: convert.BookFromDTO},
	}
}

// FindByISBN13 returns the first registered book with the given ISBN.
func (b *Books) FindByISBN13(ctx context.Context, isbn13 string) (model.Book, error) {
	books, err := b.find.get(ctx, "/books/isbn13/"+url.PathEscape(isbn13))
	if err != nil {
		return model.Book{}, err
	}
	if len(books) == 0 {
		return model.Book{}, errs.ErrNotFound
	}
	return books[0], nil
}

// Create registers a book.
func (b *Books) Create(ctx context.Context, in model.BookCreate) (model.Book, error) {
	return b.create.send(ctx, http.MethodPost, "/books", convert.ToBookCreateDTO(in))
}

// Reviews implements repository.ReviewRepository for the signed-in user.
type Reviews struct {
	c       *Client
	forEdit endpoint[convert.BookWithReviewsDTO, model.BookWithReviews]
	create  endpoint[convert.ReviewDTO, model.Review]
}

// NewReviews binds the review resource to c.
func NewReviews(c *Client) *Reviews {
	return &Reviews{
		c:       c,
		forEdit: endpoint[convert.BookWithReviewsDTO, model.BookWithReviews]{c: c, convert: convert.BookWithReviewsFromDTO},
		create:  endpoint[convert.ReviewDTO, model.Review]{c: c, convert: func(w convert.ReviewDTO) (model.Review, error) { return convert.ReviewFromDTO(w, uuid.Nil) }},
	}
}

// ListForBook returns the user's reviews of bookID, drafts included. The API
// answers 404 when the user has not reviewed the book yet.
func (r *Reviews) ListForBook(ctx context.Context, bookID uuid.UUID) ([]model.Review, error) {
	b, err := r.forEdit.get(ctx, "/book_with_reviews/for_edit/book_id/"+bookID.String())
	if errors.Is(err, errs.ErrNotFound) {
		return []model.Review{}, nil
	}
	if err != nil {
		return nil, err
	}
	return b.Reviews, nil
}

// Create stores a review of bookID.
func (r *Reviews) Create(ctx context.Context, bookID uuid.UUID, in model.ReviewInput) (model.Review, error) {
	rev, err := r.create.send(ctx, http.MethodPost, "/reviews", convert.ToReviewWriteDTO(bookID, in))
	if err != nil {
		return model.Review{}, err
	}
	if rev.BookID == uuid.Nil {
		rev.BookID = bookID
	}
	return rev, nil
}

// Update replaces the editable fields of reviewID.
func (r *Reviews) Update(ctx context.Context, reviewID uuid.UUID, in model.ReviewInput) error {
	_, err := r.c.sendJSON(ctx, http.MethodPut, "/reviews/"+reviewID.String(), convert.ToReviewWriteDTO(uuid.Nil, in))
	return err
}

// Delete removes reviewID.
func (r *Reviews) Delete(ctx context.Context, reviewID uuid.UUID) error {
	_, err := r.c.sendJSON(ctx, http.MethodDelete, "/reviews/"+reviewID.String(), nil)
	return err
}

// Shelf implements repository.ShelfRepository.
type Shelf struct {
	list endpoint[convert.BooksWithReviewsDTO, []model.BookWithReviews]
}

// NewShelf binds the shelf listings to c.
func NewShelf(c *Client) *Shelf {
	return &Shelf{list: endpoint[convert.BooksWithReviewsDTO, []model.BookWithReviews]{c: c, convert: convert.BooksWithReviewsFromDTO}}
}

// Mine lists the signed-in user's books with their reviews.
func (s *Shelf) Mine(ctx context.Context) ([]model.BookWithReviews, error) {
	return s.list.get(ctx, "/book_with_reviews/me")
}

// Latest lists the books with the most recently modified public reviews.
func (s *Shelf) Latest(ctx context.Context, maxCount int) ([]model.BookWithReviews, error) {
	if maxCount <= 0 {
		return nil, fmt.Errorf("%w: max count must be positive", errs.ErrInvalidInput)
	}
	return s.list.get(ctx, "/book_with_reviews/latest/"+strconv.Itoa(maxCount))
}

// ByUser lists the books reviewed by userID.
func (s *Shelf) ByUser(ctx context.Context, userID uuid.UUID) ([]model.BookWithReviews, error) {
	return s.list.get(ctx, "/book_with_reviews/user_id/"+userID.String())
}

// Auth implements repository.AuthRepository with the OAuth2 password grant.
type Auth struct {
	c *Client
}

// NewAuth binds the token endpoint to c.
func NewAuth(c *Client) *Auth { return &Auth{c: c} }

// SignIn exchanges credentials for an access token.
func (a *Auth) SignIn(ctx context.Context, username, password string) (model.UserToken, error) {
	form := url.Values{}
	form.Set("grant_type", "password")
	form.Set("username", username)
	form.Set("password", password)
	data, err := a.c.sendForm(ctx, "/auth/token", form)
	if err != nil {
		return model.UserToken{}, err
	}
	return endpoint[convert.TokenDTO, model.UserToken]{c: a.c, convert: convert.UserTokenFromDTO}.decode(data)
}
