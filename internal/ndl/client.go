// Package ndl searches the National Diet Library OpenSearch catalog for books.
package ndl

import (
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/and161185/bookshelf/internal/errs"
	"github.com/and161185/bookshelf/internal/limiter"
	"github.com/and161185/bookshelf/internal/model"
)

const (
	DefaultBaseURL = "https://ndlsearch.ndl.go.jp"
	MaxResults     = 500

	UnknownAuthor    = "unknown author"
	UnknownPublisher = "unknown"

	searchPath = "/api/opensearch"
	isbnType   = "dcndl:ISBN"
)

// Searcher finds candidate books by keyword.
type Searcher interface {
	Search(ctx context.Context, keyword string) ([]model.BookCreate, error)
}

// Client queries the OpenSearch endpoint.
type Client struct {
	base  string
	http  *http.Client
	limit *limiter.Outbound
	log   *zap.Logger
}

// New constructs a Client. hc and limit may be nil.
func New(baseURL string, hc *http.Client, limit *limiter.Outbound, log *zap.Logger) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if hc == nil {
		hc = &http.Client{Timeout: 10 * time.Second}
	}
	if limit == nil {
		limit = limiter.NewOutbound(0, 0)
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Client{base: strings.TrimRight(baseURL, "/"), http: hc, limit: limit, log: log}
}

// ThumbnailURL returns the cover image location of a book.
func ThumbnailURL(isbn13 string) string {
	return DefaultBaseURL + "/thumbnail/" + isbn13 + ".jpg"
}

// Search returns the books matching keyword, deduplicated by ISBN-13.
// Items without a usable ISBN are dropped.
func (c *Client) Search(ctx context.Context, keyword string) ([]model.BookCreate, error) {
	keyword = strings.TrimSpace(keyword)
	if keyword == "" {
		return nil, fmt.Errorf("%w: empty keyword", errs.ErrInvalidInput)
	}
	if err := c.limit.Wait(ctx); err != nil {
		return nil, err
	}

	q := url.Values{}
	q.Set("any", keyword)
	q.Set("cnt", strconv.Itoa(MaxResults))
	q.Set("mediatype", "books")
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.base+searchPath+"?"+q.Encode(), nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("ndl search: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<10))
		return nil, &errs.HTTPError{Method: http.MethodGet, Path: searchPath, Status: resp.StatusCode, Body: string(body)}
	}

	var doc rss
	if err := xml.NewDecoder(resp.Body).Decode(&doc); err != nil {
		return nil, fmt.Errorf("ndl search: decode: %w", err)
	}

	out := make([]model.BookCreate, 0, len(doc.Channel.Items))
	seen := make(map[string]struct{}, len(doc.Channel.Items))
	for _, it := range doc.Channel.Items {
		b, ok := it.book()
		if !ok {
			continue
		}
		if _, dup := seen[b.ISBN13]; dup {
			continue
		}
		seen[b.ISBN13] = struct{}{}
		out = append(out, b)
	}
	c.log.Debug("ndl search", zap.String("keyword", keyword),
		zap.Int("items", len(doc.Channel.Items)), zap.Int("books", len(out)))
	return out, nil
}
