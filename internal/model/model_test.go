package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestReviewInput_Normalize(t *testing.T) {
	now := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	done := time.Date(2024, 4, 1, 9, 0, 0, 0, time.UTC)

	got := ReviewInput{State: InProgress, CompletedAt: &done}.Normalize(now)
	require.Nil(t, got.CompletedAt)

	got = ReviewInput{State: Completed}.Normalize(now)
	require.NotNil(t, got.CompletedAt)
	require.Equal(t, now, *got.CompletedAt)

	in := ReviewInput{State: Completed, CompletedAt: &done}
	got = in.Normalize(now)
	require.Equal(t, done, *got.CompletedAt)
	require.NotSame(t, in.CompletedAt, got.CompletedAt)
}

func TestReview_CloneDoesNotAlias(t *testing.T) {
	done := time.Date(2024, 4, 1, 9, 0, 0, 0, time.UTC)
	r := Review{State: Completed, CompletedAt: &done}
	c := r.Clone()
	*c.CompletedAt = c.CompletedAt.Add(time.Hour)
	require.Equal(t, done, *r.CompletedAt)
}

func TestBookWithReviews_Clone(t *testing.T) {
	b := BookWithReviews{
		Book:    Book{Authors: []string{"a"}, Tags: []BookTag{{Name: "x"}}},
		Reviews: []Review{{Content: "c"}},
	}
	c := b.Clone()
	c.Authors[0] = "b"
	c.Reviews[0].Content = "d"
	c.Tags[0].Name = "y"
	require.Equal(t, "a", b.Authors[0])
	require.Equal(t, "c", b.Reviews[0].Content)
	require.Equal(t, "x", b.Tags[0].Name)
}

func TestParseReviewState(t *testing.T) {
	for in, want := range map[string]ReviewState{
		"0": NotYet, "not-yet": NotYet, "NotYet": NotYet,
		"1": InProgress, "in progress": InProgress, "InProgress": InProgress,
		"2": Completed, "Completed": Completed,
	} {
		got, err := ParseReviewState(in)
		require.NoError(t, err, in)
		require.Equal(t, want, got, in)
	}
	_, err := ParseReviewState("reading")
	require.Error(t, err)
}

func TestLabels(t *testing.T) {
	require.Equal(t, "not yet", NotYet.Label())
	require.Equal(t, "in progress", InProgress.Label())
	require.Equal(t, "completed", Completed.Label())
	require.Equal(t, "", ReviewState(9).Label())
	require.False(t, ReviewState(9).Valid())
	require.Equal(t, "InProgress", InProgress.String())

	require.Equal(t, "all", All.Label())
	require.Equal(t, "completed", OnlyCompleted.Label())
	s, ok := OnlyNotYet.State()
	require.True(t, ok)
	require.Equal(t, NotYet, s)
	_, ok = All.State()
	require.False(t, ok)

	c, err := ParseFilterCondition("in-progress")
	require.NoError(t, err)
	require.Equal(t, OnlyInProgress, c)
	_, err = ParseFilterCondition("nope")
	require.Error(t, err)
}
