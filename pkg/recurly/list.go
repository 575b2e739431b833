package recurly

import (
	"context"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	pkgerrors "github.com/angelmondragon/recurly-gateway/pkg/errors"
	"github.com/angelmondragon/recurly-gateway/pkg/pager"
)

type listResponse[T any] struct {
	HasMore bool   `json:"has_more"`
	Next    string `json:"next"`
	Data    []T    `json:"data"`
}

// List lazily walks a remote collection one gateway page at a time.
type List[T any] struct {
	client    *Client
	operation string
	path      string
	query     url.Values

	buffer  []T
	pos     int
	current T
	done    bool
	err     error
}

var _ pager.Iterator[Subscription] = (*List[Subscription])(nil)

func newList[T any](c *Client, operation, path string, query url.Values) *List[T] {
	if query == nil {
		query = url.Values{}
	}
	if query.Get("limit") == "" {
		query.Set("limit", strconv.Itoa(defaultListLimit))
	}
	return &List[T]{client: c, operation: operation, path: path, query: query}
}

// Next advances to the next item, fetching the following gateway page when needed.
func (l *List[T]) Next(ctx context.Context) bool {
	for {
		if l.err != nil {
			return false
		}
		if l.pos < len(l.buffer) {
			l.current = l.buffer[l.pos]
			l.pos++
			return true
		}
		if l.done {
			return false
		}
		if err := l.fetch(ctx); err != nil {
			l.err = err
			return false
		}
	}
}

func (l *List[T]) Item() T {
	return l.current
}

func (l *List[T]) Err() error {
	return l.err
}

func (l *List[T]) fetch(ctx context.Context) error {
	var resp listResponse[T]
	if err := l.client.do(ctx, request{
		operation: l.operation,
		method:    http.MethodGet,
		path:      l.path,
		query:     l.query,
	}, &resp); err != nil {
		return err
	}

	l.buffer = resp.Data
	l.pos = 0
	if !resp.HasMore || strings.TrimSpace(resp.Next) == "" || len(resp.Data) == 0 {
		l.done = true
		return nil
	}

	next, err := url.Parse(resp.Next)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "parse next page link")
	}
	l.path = next.Path
	l.query = next.Query()
	return nil
}

// Collect drains a list into memory. Only use it for small, bounded lists.
func Collect[T any](ctx context.Context, it pager.Iterator[T]) ([]T, error) {
	items := make([]T, 0)
	for it.Next(ctx) {
		items = append(items, it.Item())
	}
	return items, it.Err()
}
