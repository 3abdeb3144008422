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

// ReviewRepo implements repository.ReviewRepository for a single user.
type ReviewRepo struct {
	db     *DB
	userID uuid.UUID
}

// NewReviewRepo constructs a review repository scoped to userID.
func NewReviewRepo(db *DB, userID uuid.UUID) *ReviewRepo {
	return &ReviewRepo{db: db, userID: userID}
}

// ListForBook returns the user's reviews of bookID, drafts included.
func (r *ReviewRepo) ListForBook(ctx context.Context, bookID uuid.UUID) ([]model.Review, error) {
	const q = `
SELECT r.id, r.content, r.is_draft, r.state, r.completed_at, r.last_modified_at, u.id, u.name
FROM reviews r JOIN users u ON u.id = r.user_id
WHERE r.book_id = $1 AND r.user_id = $2
ORDER BY r.last_modified_at DESC`
	rows, err := r.db.Pool.Query(ctx, q, bookID, r.userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []model.Review{}
	for rows.Next() {
		rev := model.Review{BookID: bookID}
		var state int16
		if err := rows.Scan(&rev.ID, &rev.Content, &rev.IsDraft, &state, &rev.CompletedAt,
			&rev.LastModifiedAt, &rev.User.ID, &rev.User.Name); err != nil {
			return nil, err
		}
		rev.State = model.ReviewState(state)
		out = append(out, rev)
	}
	return out, rows.Err()
}

// Create stores a review of bookID owned by the repository's user.
func (r *ReviewRepo) Create(ctx context.Context, bookID uuid.UUID, in model.ReviewInput) (model.Review, error) {
	id, err := uuid.NewV4()
	if err != nil {
		return model.Review{}, err
	}
	const q = `
WITH ins AS (
  INSERT INTO reviews (id, book_id, user_id, content, is_draft, state, completed_at)
  VALUES ($1,$2,$3,$4,$5,$6,$7)
  RETURNING last_modified_at
)
SELECT ins.last_modified_at, u.name FROM ins JOIN users u ON u.id = $3`

	rev := model.Review{
		ID:          id,
		BookID:      bookID,
		Content:     in.Content,
		IsDraft:     in.IsDraft,
		State:       in.State,
		CompletedAt: in.CompletedAt,
		User:        model.ReviewUser{ID: r.userID},
	}
	err = r.db.Pool.QueryRow(ctx, q, id, bookID, r.userID, in.Content, in.IsDraft, int16(in.State), in.CompletedAt).
		Scan(&rev.LastModifiedAt, &rev.User.Name)
	switch {
	case err == nil:
		return rev, nil
	case isForeignKeyViolation(err):
		return model.Review{}, fmt.Errorf("book %s: %w", bookID, errs.ErrNotFound)
	case errors.Is(err, pgx.ErrNoRows):
		return model.Review{}, fmt.Errorf("user %s: %w", r.userID, errs.ErrNotFound)
	default:
		return model.Review{}, err
	}
}

// Update replaces the editable fields of one of the user's reviews.
func (r *ReviewRepo) Update(ctx context.Context, reviewID uuid.UUID, in model.ReviewInput) error {
	const q = `
UPDATE reviews
SET content=$3, is_draft=$4, state=$5, completed_at=$6, last_modified_at=$7
WHERE id=$1 AND user_id=$2`
	tag, err := r.db.Pool.Exec(ctx, q, reviewID, r.userID, in.Content, in.IsDraft, int16(in.State), in.CompletedAt, time.Now().UTC())
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return errs.ErrNotFound
	}
	return nil
}

// Delete removes one of the user's reviews.
func (r *ReviewRepo) Delete(ctx context.Context, reviewID uuid.UUID) error {
	const q = `DELETE FROM reviews WHERE id=$1 AND user_id=$2`
	tag, err := r.db.Pool.Exec(ctx, q, reviewID, r.userID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return errs.ErrNotFound
	}
	return nil
}
