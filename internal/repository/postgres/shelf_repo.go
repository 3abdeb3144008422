package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/gofrs/uuid/v5"
	"github.com/jackc/pgx/v5"

	"github.com/and161185/bookshelf/internal/errs"
	"github.com/and161185/bookshelf/internal/model"
)

// ShelfRepo implements repository.ShelfRepository. Drafts are never listed.
type ShelfRepo struct {
	db     *DB
	userID uuid.UUID
}

// NewShelfRepo constructs a shelf repository; Mine lists userID's books.
func NewShelfRepo(db *DB, userID uuid.UUID) *ShelfRepo {
	return &ShelfRepo{db: db, userID: userID}
}

const shelfColumns = `
b.id, b.isbn13, b.title, b.publisher, b.published_at,
COALESCE((SELECT array_agg(a.name ORDER BY a.position) FROM book_authors a WHERE a.book_id = b.id), '{}'),
r.id, r.content, r.is_draft, r.state, r.completed_at, r.last_modified_at, u.id, u.name`

const selectByUser = `
SELECT` + shelfColumns + `
FROM reviews r
JOIN books b ON b.id = r.book_id
JOIN users u ON u.id = r.user_id
WHERE r.user_id = $1 AND NOT r.is_draft
ORDER BY b.title, b.id, r.last_modified_at DESC`

const selectLatest = `
WITH recent AS (
  SELECT book_id, MAX(last_modified_at) AS last
  FROM reviews WHERE NOT is_draft
  GROUP BY book_id
  ORDER BY last DESC
  LIMIT $1
)
SELECT` + shelfColumns + `
FROM recent
JOIN books b ON b.id = recent.book_id
JOIN reviews r ON r.book_id = b.id AND NOT r.is_draft
JOIN users u ON u.id = r.user_id
ORDER BY recent.last DESC, b.id, r.last_modified_at DESC`

func (s *ShelfRepo) Mine(ctx context.Context) ([]model.BookWithReviews, error) {
	return s.ByUser(ctx, s.userID)
}

func (s *ShelfRepo) Latest(ctx context.Context, maxCount int) ([]model.BookWithReviews, error) {
	if maxCount <= 0 {
		return nil, fmt.Errorf("%w: max count must be positive", errs.ErrInvalidInput)
	}
	return s.list(ctx, selectLatest, maxCount)
}

func (s *ShelfRepo) ByUser(ctx context.Context, userID uuid.UUID) ([]model.BookWithReviews, error) {
	return s.list(ctx, selectByUser, userID)
}

// list groups review rows by book, keeping the query's order.
func (s *ShelfRepo) list(ctx context.Context, q string, args ...any) ([]model.BookWithReviews, error) {
	rows, err := s.db.Pool.Query(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	out, err := scanShelf(rows)
	if err != nil {
		return nil, err
	}

	ids := make([]uuid.UUID, len(out))
	for i := range out {
		ids[i] = out[i].ID
	}
	tags, err := loadTags(ctx, s.db.Pool, ids)
	if err != nil {
		return nil, err
	}
	for i := range out {
		out[i].Tags = tags[out[i].ID]
	}
	return out, nil
}

func scanShelf(rows pgx.Rows) ([]model.BookWithReviews, error) {
	defer rows.Close()
	out := []model.BookWithReviews{}
	index := map[uuid.UUID]int{}
	for rows.Next() {
		var (
			b     model.Book
			pub   *time.Time
			rev   model.Review
			state int16
		)
		if err := rows.Scan(&b.ID, &b.ISBN13, &b.Title, &b.Publisher, &pub, &b.Authors,
			&rev.ID, &rev.Content, &rev.IsDraft, &state, &rev.CompletedAt, &rev.LastModifiedAt,
			&rev.User.ID, &rev.User.Name); err != nil {
			return nil, err
		}
		rev.BookID = b.ID
		rev.State = model.ReviewState(state)

		i, ok := index[b.ID]
		if !ok {
			if pub != nil {
				b.PublishedAt = *pub
			}
			i = len(out)
			index[b.ID] = i
			out = append(out, model.BookWithReviews{Book: b})
		}
		out[i].Reviews = append(out[i].Reviews, rev)
	}
	return out, rows.Err()
}
