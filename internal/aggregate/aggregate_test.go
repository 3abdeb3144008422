package aggregate

import (
	"testing"
	"time"

	"github.com/gofrs/uuid/v5"
	"github.com/stretchr/testify/require"

	"github.com/and161185/bookshelf/internal/model"
)

var base = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

func day(n int) *time.Time {
	t := base.AddDate(0, 0, n)
	return &t
}

func review(state model.ReviewState, completed *time.Time) model.Review {
	return model.Review{
		ID:             uuid.Must(uuid.NewV4()),
		State:          state,
		CompletedAt:    completed,
		LastModifiedAt: base,
	}
}

func book(reviews ...model.Review) model.BookWithReviews {
	return model.BookWithReviews{
		Book:    model.Book{ID: uuid.Must(uuid.NewV4()), Title: "t", Authors: []string{"a"}},
		Reviews: reviews,
	}
}

func TestPickRepresentative_All_PrefersNotCompleted(t *testing.T) {
	inProg := review(model.InProgress, nil)
	b := book(review(model.Completed, day(1)), inProg, review(model.Completed, day(5)))

	f, ok := PickRepresentative(b, model.All)
	require.True(t, ok)
	require.NotNil(t, f.Representative)
	require.Equal(t, inProg.ID, f.Representative.ID)
	require.Len(t, f.FilteredReviews, 3)
}

func TestPickRepresentative_All_LatestCompleted(t *testing.T) {
	latest := review(model.Completed, day(9))
	b := book(review(model.Completed, day(1)), latest, review(model.Completed, day(5)))

	f, ok := PickRepresentative(b, model.All)
	require.True(t, ok)
	require.Equal(t, latest.ID, f.Representative.ID)
}

func TestPickRepresentative_All_NoReviews(t *testing.T) {
	f, ok := PickRepresentative(book(), model.All)
	require.True(t, ok)
	require.Nil(t, f.Representative)
	require.Empty(t, f.FilteredReviews)
}

func TestPickRepresentative_OnlyCompleted(t *testing.T) {
	older := review(model.Completed, day(1))
	newer := review(model.Completed, day(3))
	b := book(older, review(model.InProgress, nil), newer)

	f, ok := PickRepresentative(b, model.OnlyCompleted)
	require.True(t, ok)
	require.Equal(t, newer.ID, f.Representative.ID)
	require.Len(t, f.FilteredReviews, 2)
	require.Equal(t, newer.ID, f.FilteredReviews[0].ID)
	require.Equal(t, older.ID, f.FilteredReviews[1].ID)

	_, ok = PickRepresentative(book(review(model.NotYet, nil)), model.OnlyCompleted)
	require.False(t, ok)
}

func TestPickRepresentative_SingleState(t *testing.T) {
	notYet := review(model.NotYet, nil)
	b := book(review(model.Completed, day(1)), notYet)

	f, ok := PickRepresentative(b, model.OnlyNotYet)
	require.True(t, ok)
	require.Equal(t, notYet.ID, f.Representative.ID)
	require.Len(t, f.FilteredReviews, 1)

	_, ok = PickRepresentative(b, model.OnlyInProgress)
	require.False(t, ok)
}

func TestPickRepresentative_DeterministicAndPure(t *testing.T) {
	b := book(review(model.Completed, day(2)), review(model.Completed, day(2)), review(model.Completed, day(1)))
	snapshot := b.Clone()

	for _, cond := range model.AllFilterConditions {
		first, ok1 := PickRepresentative(b, cond)
		second, ok2 := PickRepresentative(b, cond)
		require.Equal(t, ok1, ok2)
		if ok1 {
			require.Equal(t, first.Representative, second.Representative, cond.String())
		}
	}
	require.Equal(t, snapshot, b)

	f, _ := PickRepresentative(b, model.OnlyCompleted)
	*f.Representative.CompletedAt = base.AddDate(10, 0, 0)
	f.FilteredReviews[0].Content = "changed"
	require.Equal(t, snapshot, b)
}

func TestLatestCompleted_TieBreak(t *testing.T) {
	a := review(model.Completed, day(4))
	b := review(model.Completed, day(4))
	b.LastModifiedAt = base.Add(time.Hour)

	got, ok := LatestCompleted([]model.Review{a, b})
	require.True(t, ok)
	require.Equal(t, b.ID, got.ID)

	b.LastModifiedAt = a.LastModifiedAt
	want := a
	if b.ID.String() < a.ID.String() {
		want = b
	}
	got1, _ := LatestCompleted([]model.Review{a, b})
	got2, _ := LatestCompleted([]model.Review{b, a})
	require.Equal(t, want.ID, got1.ID)
	require.Equal(t, want.ID, got2.ID)

	_, ok = LatestCompleted([]model.Review{review(model.NotYet, nil)})
	require.False(t, ok)
}

func TestFilter_ExcludesBooks(t *testing.T) {
	b1 := book(review(model.Completed, day(1)), review(model.Completed, day(2)))
	b2 := book(review(model.InProgress, nil))
	shelf := []model.BookWithReviews{b1, b2}

	got := Filter(shelf, model.OnlyCompleted)
	require.Len(t, got.Filtered, 1)
	require.Equal(t, b1.ID, got.Filtered[0].ID)
	require.Len(t, got.Originals, 2)

	require.Empty(t, Filter(shelf, model.OnlyNotYet).Filtered)

	got = Filter(shelf, model.OnlyInProgress)
	require.Len(t, got.Filtered, 1)
	require.Equal(t, b2.ID, got.Filtered[0].ID)

	got = Filter(shelf, model.All)
	require.Len(t, got.Filtered, 2)
	require.Equal(t, b1.ID, got.Filtered[0].ID)
	require.Equal(t, b2.ID, got.Filtered[1].ID)
}

func TestBadgeFor(t *testing.T) {
	require.True(t, BadgeFor(nil).IsZero())

	cases := []struct {
		name   string
		states []model.ReviewState
		label  string
		color  model.BadgeColor
	}{
		{"single not yet", []model.ReviewState{model.NotYet}, "not yet", model.BadgeGrey},
		{"single in progress", []model.ReviewState{model.InProgress}, "in progress", model.BadgeBlue},
		{"single completed", []model.ReviewState{model.Completed}, "completed", model.BadgeRed},
		{"re-reading", []model.ReviewState{model.Completed, model.InProgress}, ReReadingLabel, model.BadgeBlue},
		{"in progress wins over not yet", []model.ReviewState{model.NotYet, model.InProgress}, "in progress", model.BadgeBlue},
		{"not yet with completed", []model.ReviewState{model.Completed, model.NotYet}, "not yet", model.BadgeGrey},
		{"all completed", []model.ReviewState{model.Completed, model.Completed}, "completed", model.BadgeRed},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			var rs []model.Review
			for _, s := range tc.states {
				rs = append(rs, review(s, nil))
			}
			got := BadgeFor(rs)
			require.Equal(t, tc.label, got.Label)
			require.Equal(t, tc.color, got.Color)
		})
	}
}
