// Package convert maps the snake_case REST wire shapes to domain models.
package convert

import (
	"fmt"
	"time"

	u "github.com/gofrs/uuid/v5"

	model "github.com/and161185/bookshelf/internal/model"
)

// DateLayout is the wire format of calendar dates such as published_at.
const DateLayout = "2006-01-02"

// timestamp layouts accepted from the API; naive values are read as UTC.
var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999Z07:00",
	"2006-01-02 15:04:05.999999999",
}

// --- wire types ---

type TagDTO struct {
	ID    string `json:"id,omitempty"`
	TagID string `json:"tag_id,omitempty"`
	Name  string `json:"name"`
}

type BookDTO struct {
	BookID      string   `json:"book_id"`
	ISBN13      string   `json:"isbn13"`
	Title       string   `json:"title"`
	Publisher   string   `json:"publisher"`
	Authors     []string `json:"authors"`
	PublishedAt string   `json:"published_at"`
	Tags        []TagDTO `json:"tags"`
}

type BookFindDTO struct {
	Books []BookDTO `json:"books"`
}

type BookCreateDTO struct {
	ISBN13      string   `json:"isbn13"`
	Title       string   `json:"title"`
	Publisher   string   `json:"publisher"`
	Authors     []string `json:"authors"`
	PublishedAt string   `json:"published_at"`
}

type ReviewUserDTO struct {
	UserID string `json:"user_id"`
	Name   string `json:"name"`
}

// ReviewDTO covers both the nested review of book_with_reviews and the
// standalone /reviews response, which carries book_id but no user.
type ReviewDTO struct {
	ReviewID       string         `json:"review_id"`
	BookID         string         `json:"book_id,omitempty"`
	Content        string         `json:"content"`
	IsDraft        bool           `json:"is_draft"`
	State          int            `json:"state"`
	CompletedAt    *string        `json:"completed_at"`
	LastModifiedAt string         `json:"last_modified_at"`
	User           *ReviewUserDTO `json:"user,omitempty"`
}

type BookWithReviewsDTO struct {
	BookDTO
	Reviews []ReviewDTO `json:"reviews"`
}

type BooksWithReviewsDTO struct {
	BooksWithReviews []BookWithReviewsDTO `json:"books_with_reviews"`
}

type ReviewWriteDTO struct {
	BookID      string  `json:"book_id,omitempty"`
	Content     string  `json:"content"`
	IsDraft     bool    `json:"is_draft"`
	State       int     `json:"state"`
	CompletedAt *string `json:"completed_at"`
}

type TokenDTO struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	User        struct {
		UserID string   `json:"user_id"`
		Name   string   `json:"name"`
		Roles  []string `json:"roles"`
	} `json:"user"`
}

// --- helpers ---

func parseID(field, s string) (u.UUID, error) {
	id, err := u.FromString(s)
	if err != nil {
		return u.Nil, fmt.Errorf("%s: %w", field, err)
	}
	return id, nil
}

// ParseTimestamp reads an API timestamp.
func ParseTimestamp(s string) (time.Time, error) {
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("bad timestamp %q", s)
}

// FormatTimestamp writes a timestamp with its zone offset.
func FormatTimestamp(t time.Time) string { return t.Format(time.RFC3339) }

func parseDate(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("bad date %q: %w", s, err)
	}
	return t, nil
}

// --- books (server -> client) ---

// BookFromDTO converts a wire book.
func BookFromDTO(in BookDTO) (model.Book, error) {
	id, err := parseID("book_id", in.BookID)
	if err != nil {
		return model.Book{}, err
	}
	pub, err := parseDate(in.PublishedAt)
	if err != nil {
		return model.Book{}, err
	}
	b := model.Book{
		ID:          id,
		ISBN13:      in.ISBN13,
		Title:       in.Title,
		Publisher:   in.Publisher,
		Authors:     append([]string(nil), in.Authors...),
		PublishedAt: pub,
	}
	for _, t := range in.Tags {
		raw := t.ID
		if raw == "" {
			raw = t.TagID
		}
		tid, err := parseID("tag id", raw)
		if err != nil {
			return model.Book{}, err
		}
		b.Tags = append(b.Tags, model.BookTag{ID: tid, Name: t.Name})
	}
	return b, nil
}

// ReviewFromDTO converts a wire review. bookID is used when the DTO has none.
func ReviewFromDTO(in ReviewDTO, bookID u.UUID) (model.Review, error) {
	id, err := parseID("review_id", in.ReviewID)
	if err != nil {
		return model.Review{}, err
	}
	if in.BookID != "" {
		if bookID, err = parseID("book_id", in.BookID); err != nil {
			return model.Review{}, err
		}
	}
	state := model.ReviewState(in.State)
	if !state.Valid() {
		return model.Review{}, fmt.Errorf("review %s: unknown state %d", in.ReviewID, in.State)
	}
	r := model.Review{ID: id, BookID: bookID, Content: in.Content, IsDraft: in.IsDraft, State: state}
	if in.CompletedAt != nil && *in.CompletedAt != "" {
		t, err := ParseTimestamp(*in.CompletedAt)
		if err != nil {
			return model.Review{}, fmt.Errorf("completed_at: %w", err)
		}
		r.CompletedAt = &t
	}
	if in.LastModifiedAt != "" {
		if r.LastModifiedAt, err = ParseTimestamp(in.LastModifiedAt); err != nil {
			return model.Review{}, fmt.Errorf("last_modified_at: %w", err)
		}
	}
	if in.User != nil {
		uid, err := parseID("user_id", in.User.UserID)
		if err != nil {
			return model.Review{}, err
		}
		r.User = model.ReviewUser{ID: uid, Name: in.User.Name}
	}
	return r, nil
}

// BookWithReviewsFromDTO converts a book together with its reviews.
func BookWithReviewsFromDTO(in BookWithReviewsDTO) (model.BookWithReviews, error) {
	b, err := BookFromDTO(in.BookDTO)
	if err != nil {
		return model.BookWithReviews{}, err
	}
	out := model.BookWithReviews{Book: b, Reviews: make([]model.Review, 0, len(in.Reviews))}
	for _, rd := range in.Reviews {
		r, err := ReviewFromDTO(rd, b.ID)
		if err != nil {
			return model.BookWithReviews{}, err
		}
		out.Reviews = append(out.Reviews, r)
	}
	return out, nil
}

// BooksWithReviewsFromDTO converts a shelf listing.
func BooksWithReviewsFromDTO(in BooksWithReviewsDTO) ([]model.BookWithReviews, error) {
	out := make([]model.BookWithReviews, 0, len(in.BooksWithReviews))
	for _, d := range in.BooksWithReviews {
		b, err := BookWithReviewsFromDTO(d)
		if err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, nil
}

// UserTokenFromDTO converts a token response.
func UserTokenFromDTO(in TokenDTO) (model.UserToken, error) {
	if in.AccessToken == "" {
		return model.UserToken{}, fmt.Errorf("empty access_token")
	}
	uid, err := parseID("user_id", in.User.UserID)
	if err != nil {
		return model.UserToken{}, err
	}
	return model.UserToken{
		Token: in.AccessToken,
		User:  model.AuthUser{ID: uid, Name: in.User.Name, Roles: in.User.Roles},
	}, nil
}

// --- client -> server ---

// ToBookCreateDTO converts a book creation payload.
func ToBookCreateDTO(in model.BookCreate) BookCreateDTO {
	out := BookCreateDTO{
		ISBN13:    in.ISBN13,
		Title:     in.Title,
		Publisher: in.Publisher,
		Authors:   append([]string{}, in.Authors...),
	}
	if !in.PublishedAt.IsZero() {
		out.PublishedAt = in.PublishedAt.Format(DateLayout)
	}
	return out
}

// ToReviewWriteDTO converts a review payload. bookID is omitted when nil,
// as update requests do not carry it.
func ToReviewWriteDTO(bookID u.UUID, in model.ReviewInput) ReviewWriteDTO {
	out := ReviewWriteDTO{Content: in.Content, IsDraft: in.IsDraft, State: int(in.State)}
	if bookID != u.Nil {
		out.BookID = bookID.String()
	}
	if in.CompletedAt != nil {
		s := FormatTimestamp(*in.CompletedAt)
		out.CompletedAt = &s
	}
	return out
}
