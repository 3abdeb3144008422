// Package aggregate derives display state from the reviews of a book: the
// representative review under a filter condition and the summary badge.
//
// Functions here never mutate their input. Reviews are cloned before any
// reordering so that callers may keep using the slices they passed in.
package aggregate

import (
	"sort"
	"time"

	"github.com/and161185/bookshelf/internal/model"
)

// ReReadingLabel is shown when an in-progress review coexists with a completed one.
const ReReadingLabel = "re-reading"

// Filter applies cond to every book of a shelf. Excluded books are dropped;
// the order of the remaining books is preserved.
func Filter(books []model.BookWithReviews, cond model.FilterCondition) model.FilteredReviews {
	out := model.FilteredReviews{
		Originals: books,
		Filtered:  make([]model.FilteredBookWithReviews, 0, len(books)),
	}
	for _, b := range books {
		if f, ok := PickRepresentative(b, cond); ok {
			out.Filtered = append(out.Filtered, f)
		}
	}
	return out
}

// PickRepresentative filters the reviews of one book and selects the review
// that summarizes it. ok is false when the book has no review matching a
// state-specific condition and must be excluded from the results.
func PickRepresentative(book model.BookWithReviews, cond model.FilterCondition) (model.FilteredBookWithReviews, bool) {
	copied := book.Clone()

	state, single := cond.State()
	if !single {
		var rep *model.Review
		if r, ok := firstNotCompleted(copied.Reviews); ok {
			rep = &r
		} else if r, ok := LatestCompleted(copied.Reviews); ok {
			rep = &r
		}
		return model.FilteredBookWithReviews{
			BookWithReviews: copied,
			FilteredReviews: cloneReviews(copied.Reviews),
			Representative:  rep,
		}, true
	}

	matched := withState(copied.Reviews, state)
	if len(matched) == 0 {
		return model.FilteredBookWithReviews{}, false
	}
	if state == model.Completed {
		sortByLatestCompleted(matched)
	}
	rep := matched[0].Clone()
	return model.FilteredBookWithReviews{
		BookWithReviews: copied,
		FilteredReviews: matched,
		Representative:  &rep,
	}, true
}

// LatestCompleted returns the completed review with the greatest CompletedAt.
// Ties are broken by the later LastModifiedAt, then by the smaller review ID.
func LatestCompleted(reviews []model.Review) (model.Review, bool) {
	comps := withState(reviews, model.Completed)
	if len(comps) == 0 {
		return model.Review{}, false
	}
	sortByLatestCompleted(comps)
	return comps[0], true
}

// BadgeFor summarizes a set of reviews for one book.
func BadgeFor(reviews []model.Review) model.Badge {
	switch len(reviews) {
	case 0:
		return model.Badge{}
	case 1:
		s := reviews[0].State
		return model.Badge{Label: s.Label(), Color: colorOf(s)}
	}

	var inProgress, notYet, completed bool
	for _, r := range reviews {
		switch r.State {
		case model.InProgress:
			inProgress = true
		case model.NotYet:
			notYet = true
		case model.Completed:
			completed = true
		}
	}
	switch {
	case inProgress && completed:
		return model.Badge{Label: ReReadingLabel, Color: model.BadgeBlue}
	case inProgress:
		return model.Badge{Label: model.InProgress.Label(), Color: model.BadgeBlue}
	case notYet:
		return model.Badge{Label: model.NotYet.Label(), Color: model.BadgeGrey}
	case completed:
		return model.Badge{Label: model.Completed.Label(), Color: model.BadgeRed}
	default:
		return model.Badge{}
	}
}

func colorOf(s model.ReviewState) model.BadgeColor {
	switch s {
	case model.NotYet:
		return model.BadgeGrey
	case model.InProgress:
		return model.BadgeBlue
	case model.Completed:
		return model.BadgeRed
	default:
		return model.BadgeNone
	}
}

func firstNotCompleted(reviews []model.Review) (model.Review, bool) {
	for _, r := range reviews {
		if r.State != model.Completed {
			return r.Clone(), true
		}
	}
	return model.Review{}, false
}

func withState(reviews []model.Review, s model.ReviewState) []model.Review {
	var out []model.Review
	for _, r := range reviews {
		if r.State == s {
			out = append(out, r.Clone())
		}
	}
	return out
}

func cloneReviews(reviews []model.Review) []model.Review {
	if reviews == nil {
		return nil
	}
	out := make([]model.Review, len(reviews))
	for i, r := range reviews {
		out[i] = r.Clone()
	}
	return out
}

// sortByLatestCompleted orders reviews newest completion first, in place.
// A missing CompletedAt sorts as the Unix epoch.
func sortByLatestCompleted(reviews []model.Review) {
	sort.SliceStable(reviews, func(i, j int) bool {
		a, b := completedAt(reviews[i]), completedAt(reviews[j])
		if !a.Equal(b) {
			return a.After(b)
		}
		if !reviews[i].LastModifiedAt.Equal(reviews[j].LastModifiedAt) {
			return reviews[i].LastModifiedAt.After(reviews[j].LastModifiedAt)
		}
		return reviews[i].ID.String() < reviews[j].ID.String()
	})
}

func completedAt(r model.Review) time.Time {
	if r.CompletedAt == nil {
		return time.Unix(0, 0)
	}
	return *r.CompletedAt
}
