package service

import (
	"strings"

	"github.com/gofrs/uuid/v5"

	"github.com/and161185/bookshelf/internal/errs"
	"github.com/and161185/bookshelf/internal/model"
)

// ValidateAgainst checks that storing a review in the candidate state keeps at
// most one non-completed review per (user, book). existingOthers must not
// contain the review being written. A nil result means the write may proceed.
func ValidateAgainst(candidate model.ReviewState, existingOthers []model.Review) *errs.ValidationError {
	if candidate == model.Completed {
		return nil
	}
	var states []string
	for _, r := range existingOthers {
		if r.State != model.Completed {
			states = append(states, r.State.String())
		}
	}
	if len(states) == 0 {
		return nil
	}
	return errs.NewValidationError(
		"only one state other than [%s] can be set at a time. existing states: %s",
		model.Completed.String(), strings.Join(states, ","),
	)
}

// excluding returns reviews without the one identified by id.
func excluding(reviews []model.Review, id uuid.UUID) []model.Review {
	out := make([]model.Review, 0, len(reviews))
	for _, r := range reviews {
		if r.ID != id {
			out = append(out, r)
		}
	}
	return out
}
