package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"slices"
	"strings"
	"time"

	"github.com/gofrs/uuid/v5"

	"github.com/and161185/bookshelf/internal/errs"
	"github.com/and161185/bookshelf/internal/isbn"
	"github.com/and161185/bookshelf/internal/migrate"
	"github.com/and161185/bookshelf/internal/model"
	"github.com/and161185/bookshelf/internal/ndl"
	"github.com/and161185/bookshelf/internal/service"
)

// workflowTimeout bounds a whole multi-call review operation.
const workflowTimeout = 30 * time.Second

type cli struct {
	*app
	stdout io.Writer
	stderr io.Writer
}

func (c *cli) flags(name string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(c.stderr)
	return fs
}

func parseFlags(fs *flag.FlagSet, args []string) error {
	if err := fs.Parse(args); err != nil {
		return errUsage
	}
	return nil
}

func need(cond bool, msg string) error {
	if cond {
		return nil
	}
	return fmt.Errorf("%w: %s", errs.ErrInvalidInput, msg)
}

func parseID(name, v string) (uuid.UUID, error) {
	id, err := uuid.FromString(strings.TrimSpace(v))
	if err != nil {
		return uuid.Nil, fmt.Errorf("%w: -%s: %v", errs.ErrInvalidInput, name, err)
	}
	return id, nil
}

// ---- auth ----

func (c *cli) login(ctx context.Context, args []string) error {
	fs := c.flags("login")
	user := fs.String("u", "", "username")
	pass := fs.String("p", "", "password")
	if err := parseFlags(fs, args); err != nil {
		return err
	}
	if err := need(*user != "" && *pass != "", "need -u and -p"); err != nil {
		return err
	}
	u, err := c.authService().SignIn(ctx, *user, *pass)
	if err != nil {
		return err
	}
	fmt.Fprintf(c.stdout, "signed in as %s (%s)\n", u.Name, u.ID)
	return nil
}

func (c *cli) logout() error {
	if err := c.authService().SignOut(); err != nil {
		return err
	}
	fmt.Fprintln(c.stdout, "ok")
	return nil
}

func (c *cli) whoami() error {
	u, ok := c.authService().Current()
	if !ok {
		return fmt.Errorf("%w: not signed in", errs.ErrUnauthorized)
	}
	fmt.Fprintf(c.stdout, "%s (%s) roles=%s\n", u.Name, u.ID, strings.Join(u.Roles, ","))
	return nil
}

func (c *cli) useradd(ctx context.Context, args []string) error {
	fs := c.flags("useradd")
	user := fs.String("u", "", "username")
	pass := fs.String("p", "", "password")
	name := fs.String("name", "", "display name (defaults to username)")
	if err := parseFlags(fs, args); err != nil {
		return err
	}
	if c.accounts == nil {
		return errors.New("useradd requires direct mode (BOOKSHELF_DSN)")
	}
	if err := need(*user != "" && *pass != "", "need -u and -p"); err != nil {
		return err
	}
	if *name == "" {
		*name = *user
	}
	acc, err := c.accounts.Create(ctx, *user, *name, *pass)
	if err != nil {
		return err
	}
	fmt.Fprintln(c.stdout, acc.ID)
	return nil
}

// ---- catalog ----

type searchRow struct {
	ISBN13      string   `json:"isbn13"`
	Title       string   `json:"title"`
	Authors     []string `json:"authors"`
	Publisher   string   `json:"publisher"`
	PublishedAt string   `json:"published_at"`
	Thumbnail   string   `json:"thumbnail"`
}

func (c *cli) searchBooks(ctx context.Context, args []string) error {
	fs := c.flags("search")
	q := fs.String("q", "", "keyword")
	if err := parseFlags(fs, args); err != nil {
		return err
	}
	books, err := c.search.Search(ctx, *q)
	if err != nil {
		return err
	}
	rows := make([]searchRow, 0, len(books))
	for _, b := range books {
		rows = append(rows, searchRow{
			ISBN13:      b.ISBN13,
			Title:       b.Title,
			Authors:     b.Authors,
			Publisher:   b.Publisher,
			PublishedAt: b.PublishedAt.Format("2006-01-02"),
			Thumbnail:   ndl.ThumbnailURL(b.ISBN13),
		})
	}
	printJSON(c.stdout, rows)
	return nil
}

// ---- reviews ----

// reviewFlags are the editable review fields shared by add and edit.
type reviewFlags struct {
	state       string
	content     string
	draft       bool
	completedAt string
}

func (r *reviewFlags) register(fs *flag.FlagSet) {
	fs.StringVar(&r.state, "state", "", "not-yet|in-progress|completed")
	fs.StringVar(&r.content, "content", "", "review text")
	fs.BoolVar(&r.draft, "draft", false, "keep the review private")
	fs.StringVar(&r.completedAt, "completed-at", "", "completion date (YYYY-MM-DD or RFC3339)")
}

func (r reviewFlags) input() (model.ReviewInput, error) {
	if r.state == "" {
		return model.ReviewInput{}, fmt.Errorf("%w: need -state", errs.ErrInvalidInput)
	}
	st, err := model.ParseReviewState(r.state)
	if err != nil {
		return model.ReviewInput{}, fmt.Errorf("%w: %v", errs.ErrInvalidInput, err)
	}
	in := model.ReviewInput{Content: r.content, IsDraft: r.draft, State: st}
	if r.completedAt != "" {
		t, err := parseWhen(r.completedAt)
		if err != nil {
			return model.ReviewInput{}, err
		}
		in.CompletedAt = &t
	}
	return in, nil
}

// apply overrides base with only the flags set on fs.
func (r reviewFlags) apply(fs *flag.FlagSet, base model.ReviewInput) (model.ReviewInput, error) {
	in := base
	var err error
	fs.Visit(func(f *flag.Flag) {
		if err != nil {
			return
		}
		switch f.Name {
		case "state":
			st, perr := model.ParseReviewState(r.state)
			if perr != nil {
				err = fmt.Errorf("%w: %v", errs.ErrInvalidInput, perr)
				return
			}
			in.State = st
		case "content":
			in.Content = r.content
		case "draft":
			in.IsDraft = r.draft
		case "completed-at":
			t, perr := parseWhen(r.completedAt)
			if perr != nil {
				err = perr
				return
			}
			in.CompletedAt = &t
		}
	})
	return in, err
}

// parseWhen accepts RFC3339 or a local calendar date.
func parseWhen(v string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, v); err == nil {
		return t, nil
	}
	t, err := time.ParseInLocation("2006-01-02", v, time.Local)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: bad date %q", errs.ErrInvalidInput, v)
	}
	return t, nil
}

func (c *cli) add(ctx context.Context, args []string) error {
	fs := c.flags("add")
	code := fs.String("isbn", "", "ISBN-13")
	title := fs.String("title", "", "title (looked up in the catalog when empty)")
	publisher := fs.String("publisher", "", "publisher")
	authors := fs.String("authors", "", "comma separated authors")
	published := fs.String("published", "", "publication date YYYY-MM-DD")
	var rf reviewFlags
	rf.register(fs)
	if err := parseFlags(fs, args); err != nil {
		return err
	}
	if err := c.requireUser(); err != nil {
		return err
	}
	in, err := rf.input()
	if err != nil {
		return err
	}

	book := model.BookCreate{ISBN13: isbn.Clean(*code), Title: *title, Publisher: *publisher}
	if *authors != "" {
		for _, a := range strings.Split(*authors, ",") {
			book.Authors = append(book.Authors, strings.TrimSpace(a))
		}
	}
	if *published != "" {
		if book.PublishedAt, err = time.Parse("2006-01-02", *published); err != nil {
			return fmt.Errorf("%w: bad -published %q", errs.ErrInvalidInput, *published)
		}
	}
	if book.Title == "" {
		if book, err = c.lookup(ctx, book.ISBN13); err != nil {
			return err
		}
	}

	var rev model.Review
	err = detached(workflowTimeout, func(ctx context.Context) error {
		var err error
		rev, err = c.workflow().CreateBookAndReview(ctx, book, in)
		return err
	})
	if err != nil {
		return err
	}
	fmt.Fprintf(c.stdout, "review %s added to book %s\n", rev.ID, rev.BookID)
	return nil
}

// lookup fills book fields from the catalog search.
func (c *cli) lookup(ctx context.Context, code string) (model.BookCreate, error) {
	if err := isbn.Validate(code); err != nil {
		return model.BookCreate{}, err
	}
	hits, err := c.search.Search(ctx, code)
	if err != nil {
		return model.BookCreate{}, fmt.Errorf("catalog lookup: %w", err)
	}
	for _, h := range hits {
		if h.ISBN13 == code {
			return h, nil
		}
	}
	return model.BookCreate{}, fmt.Errorf("%w: isbn %s not found in catalog, pass -title", errs.ErrInvalidInput, code)
}

func (c *cli) reviewAdd(ctx context.Context, args []string) error {
	fs := c.flags("review-add")
	book := fs.String("book", "", "book id (uuid)")
	var rf reviewFlags
	rf.register(fs)
	if err := parseFlags(fs, args); err != nil {
		return err
	}
	if err := c.requireUser(); err != nil {
		return err
	}
	bookID, err := parseID("book", *book)
	if err != nil {
		return err
	}
	in, err := rf.input()
	if err != nil {
		return err
	}

	var rev model.Review
	err = detached(workflowTimeout, func(ctx context.Context) error {
		var err error
		rev, err = c.workflow().CreateReview(ctx, bookID, in)
		return err
	})
	if err != nil {
		return err
	}
	fmt.Fprintln(c.stdout, rev.ID)
	return nil
}

func (c *cli) reviewEdit(ctx context.Context, args []string) error {
	fs := c.flags("review-edit")
	book := fs.String("book", "", "book id (uuid)")
	id := fs.String("id", "", "review id (uuid)")
	var rf reviewFlags
	rf.register(fs)
	if err := parseFlags(fs, args); err != nil {
		return err
	}
	if err := c.requireUser(); err != nil {
		return err
	}
	bookID, err := parseID("book", *book)
	if err != nil {
		return err
	}
	reviewID, err := parseID("id", *id)
	if err != nil {
		return err
	}

	// unset flags keep the stored values
	existing, err := c.reviews.ListForBook(ctx, bookID)
	if err != nil {
		return fmt.Errorf("list reviews of %s: %w", bookID, err)
	}
	i := slices.IndexFunc(existing, func(r model.Review) bool { return r.ID == reviewID })
	if i < 0 {
		return fmt.Errorf("review %s of book %s: %w", reviewID, bookID, errs.ErrNotFound)
	}
	in, err := rf.apply(fs, model.InputFromReview(existing[i]))
	if err != nil {
		return err
	}

	err = detached(workflowTimeout, func(ctx context.Context) error {
		return c.workflow().UpdateReview(ctx, bookID, reviewID, in)
	})
	if err != nil {
		return err
	}
	fmt.Fprintln(c.stdout, "ok")
	return nil
}

func (c *cli) reviewRemove(ctx context.Context, args []string) error {
	fs := c.flags("review-rm")
	id := fs.String("id", "", "review id (uuid)")
	if err := parseFlags(fs, args); err != nil {
		return err
	}
	if err := c.requireUser(); err != nil {
		return err
	}
	reviewID, err := parseID("id", *id)
	if err != nil {
		return err
	}
	err = detached(workflowTimeout, func(ctx context.Context) error {
		return c.workflow().DeleteReview(ctx, reviewID)
	})
	if err != nil {
		return err
	}
	fmt.Fprintln(c.stdout, "ok")
	return nil
}

// ---- shelves ----

func filterFlag(fs *flag.FlagSet) *string {
	return fs.String("filter", "all", "all|completed|in-progress|not-yet")
}

func parseFilter(v string) (model.FilterCondition, error) {
	cond, err := model.ParseFilterCondition(v)
	if err != nil {
		return model.All, fmt.Errorf("%w: %v", errs.ErrInvalidInput, err)
	}
	return cond, nil
}

func (c *cli) mine(ctx context.Context, args []string) error {
	fs := c.flags("mine")
	filter := filterFlag(fs)
	if err := parseFlags(fs, args); err != nil {
		return err
	}
	if err := c.requireUser(); err != nil {
		return err
	}
	cond, err := parseFilter(*filter)
	if err != nil {
		return err
	}
	res, err := c.shelves().Mine(ctx, cond)
	if err != nil {
		return err
	}
	return renderShelf(c.stdout, res)
}

func (c *cli) latest(ctx context.Context, args []string) error {
	fs := c.flags("latest")
	n := fs.Int("n", service.DefaultLatestCount, "max books")
	filter := filterFlag(fs)
	if err := parseFlags(fs, args); err != nil {
		return err
	}
	cond, err := parseFilter(*filter)
	if err != nil {
		return err
	}
	res, err := c.shelves().Latest(ctx, *n, cond)
	if err != nil {
		return err
	}
	return renderShelf(c.stdout, res)
}

func (c *cli) user(ctx context.Context, args []string) error {
	fs := c.flags("user")
	id := fs.String("id", "", "user id (uuid)")
	filter := filterFlag(fs)
	if err := parseFlags(fs, args); err != nil {
		return err
	}
	userID, err := parseID("id", *id)
	if err != nil {
		return err
	}
	cond, err := parseFilter(*filter)
	if err != nil {
		return err
	}
	res, err := c.shelves().ByUser(ctx, userID, cond)
	if err != nil {
		return err
	}
	return renderShelf(c.stdout, res)
}

// ---- maintenance ----

func (c *cli) migrate(ctx context.Context) error {
	if !c.cfg.Direct() {
		return errors.New("migrate requires direct mode (BOOKSHELF_DSN)")
	}
	if err := migrate.Up(ctx, c.cfg.DSN); err != nil {
		return fmt.Errorf("migrate up: %w", err)
	}
	v, err := migrate.Version(ctx, c.cfg.DSN)
	if err != nil {
		return err
	}
	fmt.Fprintf(c.stdout, "schema version %d\n", v)
	return nil
}
