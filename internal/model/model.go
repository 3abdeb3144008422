// Package model defines domain entities used by services and repositories.
package model

import (
	"fmt"
	"strings"
	"time"

	"github.com/gofrs/uuid/v5"
)

// BookTag is a free-form label attached to a book.
type BookTag struct {
	ID   uuid.UUID
	Name string
}

// Book is a locally tracked catalog entry. Books are never edited once created.
type Book struct {
	ID          uuid.UUID
	ISBN13      string   // 13-digit external identifier
	Title       string
	Publisher   string
	Authors     []string // ordered
	PublishedAt time.Time
	Tags        []BookTag
}

// Clone returns a deep copy of b.
func (b Book) Clone() Book {
	out := b
	out.Authors = append([]string(nil), b.Authors...)
	out.Tags = append([]BookTag(nil), b.Tags...)
	return out
}

// BookCreate carries the catalog fields needed to create a Book.
type BookCreate struct {
	ISBN13      string    `json:"isbn13" validate:"required,isbn13"`
	Title       string    `json:"title" validate:"required,max=255"`
	Publisher   string    `json:"publisher" validate:"max=255"`
	Authors     []string  `json:"authors" validate:"dive,max=255"`
	PublishedAt time.Time `json:"published_at"`
}

// ReviewUser is the denormalized owner of a review.
type ReviewUser struct {
	ID   uuid.UUID
	Name string
}

// ReviewState is the reading state of a review.
type ReviewState int

const (
	NotYet     ReviewState = 0
	InProgress ReviewState = 1
	Completed  ReviewState = 2
)

// AllReviewStates lists the states in display order.
var AllReviewStates = []ReviewState{NotYet, InProgress, Completed}

// Valid reports whether s is one of the defined states.
func (s ReviewState) Valid() bool {
	return s == NotYet || s == InProgress || s == Completed
}

// Label maps the state to its display label.
func (s ReviewState) Label() string {
	switch s {
	case NotYet:
		return "not yet"
	case InProgress:
		return "in progress"
	case Completed:
		return "completed"
	default:
		return ""
	}
}

func (s ReviewState) String() string {
	switch s {
	case NotYet:
		return "NotYet"
	case InProgress:
		return "InProgress"
	case Completed:
		return "Completed"
	default:
		return fmt.Sprintf("ReviewState(%d)", int(s))
	}
}

// ParseReviewState accepts the enum name, the display label, a dashed form
// ("in-progress") or the numeric wire value.
func ParseReviewState(v string) (ReviewState, error) {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "0", "notyet", "not yet", "not-yet":
		return NotYet, nil
	case "1", "inprogress", "in progress", "in-progress":
		return InProgress, nil
	case "2", "completed":
		return Completed, nil
	}
	return 0, fmt.Errorf("unknown review state %q", v)
}

// Review is a user's review of a single book.
// CompletedAt is non-nil iff State == Completed.
type Review struct {
	ID             uuid.UUID
	BookID         uuid.UUID
	Content        string
	IsDraft        bool
	State          ReviewState
	CompletedAt    *time.Time
	LastModifiedAt time.Time // set by the store on every mutation
	User           ReviewUser
}

// Clone returns a copy of r that shares no date handles with it.
func (r Review) Clone() Review {
	out := r
	if r.CompletedAt != nil {
		t := *r.CompletedAt
		out.CompletedAt = &t
	}
	return out
}

// ReviewInput is the edit payload supplied by the UI layer.
type ReviewInput struct {
	Content     string      `json:"content" validate:"max=9999"`
	IsDraft     bool        `json:"is_draft"`
	State       ReviewState `json:"state" validate:"gte=0,lte=2"`
	CompletedAt *time.Time  `json:"completed_at"`
}

// Normalize enforces the completedAt invariant. A completed input without a
// date is stamped with now; any other state drops its date.
func (in ReviewInput) Normalize(now time.Time) ReviewInput {
	out := in
	if in.State != Completed {
		out.CompletedAt = nil
		return out
	}
	if in.CompletedAt == nil {
		t := now
		out.CompletedAt = &t
		return out
	}
	t := *in.CompletedAt
	out.CompletedAt = &t
	return out
}

// InputFromReview builds an edit payload from an existing review.
func InputFromReview(r Review) ReviewInput {
	c := r.Clone()
	return ReviewInput{Content: c.Content, IsDraft: c.IsDraft, State: c.State, CompletedAt: c.CompletedAt}
}

// BookWithReviews is a book together with the reviews visible to the caller.
type BookWithReviews struct {
	Book
	Reviews []Review
}

// Clone returns a deep copy of b, reviews included.
func (b BookWithReviews) Clone() BookWithReviews {
	out := BookWithReviews{Book: b.Book.Clone()}
	if b.Reviews != nil {
		out.Reviews = make([]Review, len(b.Reviews))
		for i, r := range b.Reviews {
			out.Reviews[i] = r.Clone()
		}
	}
	return out
}

// FilterCondition selects which reviews a list screen shows.
type FilterCondition int

const (
	All            FilterCondition = 0
	OnlyCompleted  FilterCondition = 1
	OnlyInProgress FilterCondition = 2
	OnlyNotYet     FilterCondition = 3
)

// AllFilterConditions lists the conditions in display order.
var AllFilterConditions = []FilterCondition{All, OnlyCompleted, OnlyInProgress, OnlyNotYet}

// Label maps the condition to its display label.
func (c FilterCondition) Label() string {
	switch c {
	case All:
		return "all"
	case OnlyCompleted:
		return Completed.Label()
	case OnlyInProgress:
		return InProgress.Label()
	case OnlyNotYet:
		return NotYet.Label()
	default:
		return ""
	}
}

func (c FilterCondition) String() string {
	switch c {
	case All:
		return "All"
	case OnlyCompleted:
		return "OnlyCompleted"
	case OnlyInProgress:
		return "OnlyInProgress"
	case OnlyNotYet:
		return "OnlyNotYet"
	default:
		return fmt.Sprintf("FilterCondition(%d)", int(c))
	}
}

// State returns the single review state a condition selects. ok is false for All.
func (c FilterCondition) State() (ReviewState, bool) {
	switch c {
	case OnlyCompleted:
		return Completed, true
	case OnlyInProgress:
		return InProgress, true
	case OnlyNotYet:
		return NotYet, true
	default:
		return 0, false
	}
}

// ParseFilterCondition accepts "all", "completed", "in-progress", "not-yet"
// and the enum names.
func ParseFilterCondition(v string) (FilterCondition, error) {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "", "all":
		return All, nil
	case "completed", "onlycompleted":
		return OnlyCompleted, nil
	case "in-progress", "inprogress", "onlyinprogress":
		return OnlyInProgress, nil
	case "not-yet", "notyet", "onlynotyet":
		return OnlyNotYet, nil
	}
	return All, fmt.Errorf("unknown filter condition %q", v)
}

// FilteredBookWithReviews is a derived view of a book for the active filter.
type FilteredBookWithReviews struct {
	BookWithReviews
	FilteredReviews []Review
	Representative  *Review // nil only under All with no reviews
}

// FilteredReviews is the result of filtering a whole shelf.
type FilteredReviews struct {
	Originals []BookWithReviews
	Filtered  []FilteredBookWithReviews
}

// BadgeColor is the visual category of a badge.
type BadgeColor int

const (
	BadgeNone BadgeColor = iota
	BadgeGrey
	BadgeBlue
	BadgeRed
)

func (c BadgeColor) String() string {
	switch c {
	case BadgeGrey:
		return "grey"
	case BadgeBlue:
		return "blue"
	case BadgeRed:
		return "red"
	default:
		return "none"
	}
}

// Badge is a short label summarizing the reviews of one book.
type Badge struct {
	Label string
	Color BadgeColor
}

// IsZero reports whether no badge should be shown.
func (b Badge) IsZero() bool { return b.Color == BadgeNone && b.Label == "" }

// AuthUser is the signed-in user.
type AuthUser struct {
	ID    uuid.UUID
	Name  string
	Roles []string
}

// UserToken is an issued access token together with its owner.
type UserToken struct {
	Token     string
	User      AuthUser
	ExpiresAt time.Time // zero when the token carries no expiry
}

// Account is a locally stored user of the direct database mode.
type Account struct {
	ID        uuid.UUID
	Username  string
	Name      string
	PwdHash   []byte
	Salt      []byte
	CreatedAt time.Time
}
