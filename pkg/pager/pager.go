package pager

import (
	"context"
	"fmt"
)

const (
	// DefaultSize is the page size used when a caller passes zero.
	DefaultSize = 50
	// MaxSize is the largest page size a configured listing may use.
	MaxSize = 200
)

// Iterator is a one-directional cursor over a remote list. Items are only
// reachable by advancing; there is no random access.
type Iterator[T any] interface {
	Next(ctx context.Context) bool
	Item() T
	Err() error
}

// Page is one window of a remote list.
type Page[T any] struct {
	Items   []T
	Index   int
	Size    int
	HasMore bool
}

type indexKey struct{}

// WithIndex stores the requested page index on the context.
func WithIndex(ctx context.Context, index int) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	if index < 0 {
		index = 0
	}
	return context.WithValue(ctx, indexKey{}, index)
}

// IndexFromContext returns the page index seeded by the request, or 0.
func IndexFromContext(ctx context.Context) int {
	if ctx == nil {
		return 0
	}
	if v, ok := ctx.Value(indexKey{}).(int); ok && v >= 0 {
		return v
	}
	return 0
}

// NormalizeSize enforces the default and maximum page sizes for configured
// listings. Fetch does not call it, so an explicit size is never rewritten.
func NormalizeSize(size int) int {
	if size <= 0 {
		return DefaultSize
	}
	if size > MaxSize {
		return MaxSize
	}
	return size
}

// Fetch skips index*size items and collects up to size more. The cost is
// O(index*size) cursor steps, so deep pages should use a larger size instead.
// A nil index resolves from the request context. A non-positive size uses
// DefaultSize; larger sizes are honored as given.
func Fetch[T any](ctx context.Context, it Iterator[T], size int, index *int) (Page[T], error) {
	if size <= 0 {
		size = DefaultSize
	}
	resolved := IndexFromContext(ctx)
	if index != nil {
		resolved = *index
	}
	if resolved < 0 {
		return Page[T]{}, fmt.Errorf("page index must be non-negative, got %d", resolved)
	}

	page := Page[T]{Index: resolved, Size: size, Items: make([]T, 0)}
	if it == nil {
		return page, nil
	}

	start := resolved * size
	for skipped := 0; skipped < start; skipped++ {
		if !it.Next(ctx) {
			return page, it.Err()
		}
	}

	for len(page.Items) < size {
		if !it.Next(ctx) {
			return page, it.Err()
		}
		page.Items = append(page.Items, it.Item())
	}

	page.HasMore = it.Next(ctx)
	if err := it.Err(); err != nil {
		return page, err
	}
	return page, nil
}

// SliceIterator walks an in-memory slice.
type SliceIterator[T any] struct {
	items []T
	pos   int
	steps int
}

func NewSliceIterator[T any](items []T) *SliceIterator[T] {
	return &SliceIterator[T]{items: items, pos: -1}
}

func (s *SliceIterator[T]) Next(context.Context) bool {
	if s.pos+1 >= len(s.items) {
		s.pos = len(s.items)
		return false
	}
	s.pos++
	s.steps++
	return true
}

func (s *SliceIterator[T]) Item() T {
	var zero T
	if s.pos < 0 || s.pos >= len(s.items) {
		return zero
	}
	return s.items[s.pos]
}

func (s *SliceIterator[T]) Err() error { return nil }

// Steps reports how many successful advances were made.
func (s *SliceIterator[T]) Steps() int { return s.steps }

// Filter yields only the items of it for which keep returns true.
func Filter[T any](it Iterator[T], keep func(T) bool) Iterator[T] {
	return &filterIterator[T]{inner: it, keep: keep}
}

type filterIterator[T any] struct {
	inner Iterator[T]
	keep  func(T) bool
}

func (f *filterIterator[T]) Next(ctx context.Context) bool {
	for f.inner.Next(ctx) {
		if f.keep == nil || f.keep(f.inner.Item()) {
			return true
		}
	}
	return false
}

func (f *filterIterator[T]) Item() T { return f.inner.Item() }

func (f *filterIterator[T]) Err() error { return f.inner.Err() }
