package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"unicode/utf8"

	"github.com/and161185/bookshelf/internal/aggregate"
	"github.com/and161185/bookshelf/internal/model"
)

const excerptLen = 40

func printJSON(w io.Writer, v any) {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	_ = enc.Encode(v)
}

// renderShelf prints one line per visible book with its badge, followed by
// the representative review.
func renderShelf(w io.Writer, res model.FilteredReviews) error {
	if len(res.Filtered) == 0 {
		_, err := fmt.Fprintln(w, "no books")
		return err
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	for _, b := range res.Filtered {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", badgeText(aggregate.BadgeFor(b.Reviews)), b.ISBN13, b.Title, b.ID)
		if r := b.Representative; r != nil {
			fmt.Fprintf(tw, "\t%s\t%s\t%s\n", r.State.Label(), completedText(*r), excerpt(r.Content))
		}
	}
	return tw.Flush()
}

func badgeText(b model.Badge) string {
	if b.IsZero() {
		return "-"
	}
	return fmt.Sprintf("[%s:%s]", b.Label, b.Color)
}

func completedText(r model.Review) string {
	if r.CompletedAt == nil {
		return "-"
	}
	return r.CompletedAt.Local().Format("2006-01-02")
}

func excerpt(s string) string {
	s = strings.Join(strings.Fields(s), " ")
	if utf8.RuneCountInString(s) <= excerptLen {
		return s
	}
	return string([]rune(s)[:excerptLen]) + "..."
}
