package ndl

import (
	"encoding/xml"
	"strconv"
	"strings"
	"time"

	"github.com/and161185/bookshelf/internal/isbn"
	"github.com/and161185/bookshelf/internal/model"
)

type rss struct {
	Channel struct {
		Items []item `xml:"item"`
	} `xml:"channel"`
}

type element struct {
	XMLName xml.Name
	Text    string `xml:",chardata"`
}

type identifier struct {
	Type string `xml:"http://www.w3.org/2001/XMLSchema-instance type,attr"`
	Text string `xml:",chardata"`
}

type item struct {
	Titles      []element    `xml:"title"`
	Creators    []string     `xml:"http://purl.org/dc/elements/1.1/ creator"`
	Identifiers []identifier `xml:"http://purl.org/dc/elements/1.1/ identifier"`
	Publishers  []string     `xml:"http://purl.org/dc/elements/1.1/ publisher"`
	Issued      []string     `xml:"http://purl.org/dc/terms/ issued"`
}

// title prefers the plain RSS title over dc:title.
func (it item) title() string {
	for _, t := range it.Titles {
		if t.XMLName.Space == "" {
			return strings.TrimSpace(t.Text)
		}
	}
	if len(it.Titles) > 0 {
		return strings.TrimSpace(it.Titles[0].Text)
	}
	return ""
}

func (it item) isbn13() (string, bool) {
	for _, id := range it.Identifiers {
		if id.Type == "" || id.Text == "" {
			continue
		}
		if strings.HasPrefix(strings.TrimSpace(id.Text), "978") {
			return isbn.Clean(id.Text), true
		}
	}
	for _, id := range it.Identifiers {
		if id.Type == isbnType && id.Text != "" {
			return isbn.FromISBN10(id.Text)
		}
	}
	return "", false
}

func (it item) authors() []string {
	if len(it.Creators) == 0 {
		return []string{UnknownAuthor}
	}
	out := make([]string, len(it.Creators))
	for i, a := range it.Creators {
		out[i] = strings.TrimSpace(strings.ReplaceAll(a, ",", ""))
	}
	return out
}

func (it item) publisher() string {
	if len(it.Publishers) == 0 || strings.TrimSpace(it.Publishers[0]) == "" {
		return UnknownPublisher
	}
	return strings.TrimSpace(it.Publishers[0])
}

// issued reads "YYYY.M" as the first of that month; anything else is the Unix epoch.
func (it item) issued() time.Time {
	epoch := time.Unix(0, 0).UTC()
	if len(it.Issued) == 0 {
		return epoch
	}
	parts := strings.Split(strings.TrimSpace(it.Issued[0]), ".")
	if len(parts) < 2 {
		return epoch
	}
	year, err1 := strconv.Atoi(parts[0])
	month, err2 := strconv.Atoi(parts[1])
	if err1 != nil || err2 != nil || month < 1 || month > 12 {
		return epoch
	}
	return time.Date(year, time.Month(month), 1, 0, 0, 0, 0, time.UTC)
}

func (it item) book() (model.BookCreate, bool) {
	code, ok := it.isbn13()
	if !ok || code == "" {
		return model.BookCreate{}, false
	}
	return model.BookCreate{
		ISBN13:      code,
		Title:       it.title(),
		Publisher:   it.publisher(),
		Authors:     it.authors(),
		PublishedAt: it.issued(),
	}, true
}
