package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gofrs/uuid/v5"
	"github.com/jackc/pgx/v5"

	"github.com/and161185/bookshelf/internal/errs"
	"github.com/and161185/bookshelf/internal/model"
)

// BookRepo implements repository.CatalogRepository.
type BookRepo struct{ db *DB }

// NewBookRepo constructs a catalog repository.
func NewBookRepo(db *DB) *BookRepo { return &BookRepo{db: db} }

const selectBook = `
SELECT b.id, b.isbn13, b.title, b.publisher, b.published_at,
       COALESCE((SELECT array_agg(a.name ORDER BY a.position) FROM book_authors a WHERE a.book_id = b.id), '{}')
FROM books b
WHERE b.isbn13 = $1`

const selectTags = `
SELECT bt.book_id, t.id, t.name
FROM book_tags bt JOIN tags t ON t.id = bt.tag_id
WHERE bt.book_id = ANY($1::uuid[])
ORDER BY t.name`

// FindByISBN13 returns the book registered for isbn13.
func (r *BookRepo) FindByISBN13(ctx context.Context, isbn13 string) (model.Book, error) {
	var (
		b   model.Book
		pub *time.Time
	)
	err := r.db.Pool.QueryRow(ctx, selectBook, isbn13).
		Scan(&b.ID, &b.ISBN13, &b.Title, &b.Publisher, &pub, &b.Authors)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.Book{}, errs.ErrNotFound
		}
		return model.Book{}, err
	}
	if pub != nil {
		b.PublishedAt = *pub
	}
	tags, err := loadTags(ctx, r.db.Pool, []uuid.UUID{b.ID})
	if err != nil {
		return model.Book{}, err
	}
	b.Tags = tags[b.ID]
	return b, nil
}

// Create inserts a book and its ordered authors.
func (r *BookRepo) Create(ctx context.Context, in model.BookCreate) (model.Book, error) {
	id, err := uuid.NewV4()
	if err != nil {
		return model.Book{}, err
	}
	var pub *time.Time
	if !in.PublishedAt.IsZero() {
		t := in.PublishedAt
		pub = &t
	}

	const insBook = `INSERT INTO books (id, isbn13, title, publisher, published_at) VALUES ($1,$2,$3,$4,$5)`
	const insAuthor = `INSERT INTO book_authors (book_id, position, name) VALUES ($1,$2,$3)`

	err = r.db.inTx(ctx, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, insBook, id, in.ISBN13, in.Title, in.Publisher, pub); err != nil {
			if isUniqueViolation(err) {
				return fmt.Errorf("%w: isbn %s already registered", errs.ErrBadRequest, in.ISBN13)
			}
			return err
		}
		for i, name := range in.Authors {
			if _, err := tx.Exec(ctx, insAuthor, id, i, name); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return model.Book{}, err
	}
	return model.Book{
		ID:          id,
		ISBN13:      in.ISBN13,
		Title:       in.Title,
		Publisher:   in.Publisher,
		Authors:     append([]string{}, in.Authors...),
		PublishedAt: in.PublishedAt,
	}, nil
}

type querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// loadTags returns the tags of each book, keyed by book ID.
func loadTags(ctx context.Context, q querier, ids []uuid.UUID) (map[uuid.UUID][]model.BookTag, error) {
	out := make(map[uuid.UUID][]model.BookTag, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = id.String()
	}
	rows, err := q.Query(ctx, selectTags, keys)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var (
			bookID uuid.UUID
			tag    model.BookTag
		)
		if err := rows.Scan(&bookID, &tag.ID, &tag.Name); err != nil {
			return nil, err
		}
		out[bookID] = append(out[bookID], tag)
	}
	return out, rows.Err()
}
