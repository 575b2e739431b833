package pager

import (
	"context"
	"errors"
	"testing"
)

func numbered(n int) []int {
	items := make([]int, n)
	for i := range items {
		items[i] = i
	}
	return items
}

func TestFetchLastPartialPage(t *testing.T) {
	it := NewSliceIterator(numbered(137))
	index := 2

	page, err := Fetch[int](context.Background(), it, 50, &index)
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if len(page.Items) != 37 {
		t.Fatalf("expected 37 items, got %d", len(page.Items))
	}
	if page.Items[0] != 100 || page.Items[36] != 136 {
		t.Fatalf("unexpected window %d..%d", page.Items[0], page.Items[36])
	}
	if page.HasMore {
		t.Fatalf("last page must not report more items")
	}
	if it.Steps() != 137 {
		t.Fatalf("expected cursor to stop at list end after 137 steps, got %d", it.Steps())
	}
}

func TestFetchHonorsSizeAboveMax(t *testing.T) {
	index := 1

	page, err := Fetch[int](context.Background(), NewSliceIterator(numbered(1000)), 300, &index)
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if page.Size != 300 || len(page.Items) != 300 {
		t.Fatalf("expected 300 items at size 300, got %d at size %d", len(page.Items), page.Size)
	}
	if page.Items[0] != 300 || page.Items[299] != 599 {
		t.Fatalf("unexpected window %d..%d", page.Items[0], page.Items[299])
	}
	if !page.HasMore {
		t.Fatalf("expected more items after 599")
	}
}

func TestFetchFirstPageReportsMore(t *testing.T) {
	it := NewSliceIterator(numbered(137))
	index := 0

	page, err := Fetch[int](context.Background(), it, 50, &index)
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if len(page.Items) != 50 || page.Items[0] != 0 || page.Items[49] != 49 {
		t.Fatalf("unexpected first page %v", page.Items)
	}
	if !page.HasMore {
		t.Fatalf("expected more items after first page")
	}
}

func TestFetchIndexFromContext(t *testing.T) {
	ctx := WithIndex(context.Background(), 1)

	page, err := Fetch[int](ctx, NewSliceIterator(numbered(30)), 20, nil)
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if page.Index != 1 {
		t.Fatalf("expected index resolved from context, got %d", page.Index)
	}
	if len(page.Items) != 10 || page.Items[0] != 20 {
		t.Fatalf("unexpected items %v", page.Items)
	}
}

func TestFetchBeyondEndReturnsEmpty(t *testing.T) {
	index := 5
	page, err := Fetch[int](context.Background(), NewSliceIterator(numbered(12)), 10, &index)
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if len(page.Items) != 0 || page.HasMore {
		t.Fatalf("expected empty page, got %+v", page)
	}
}

func TestFetchRejectsNegativeIndex(t *testing.T) {
	index := -1
	if _, err := Fetch[int](context.Background(), NewSliceIterator(numbered(3)), 10, &index); err == nil {
		t.Fatalf("expected error for negative index")
	}
}

type failingIterator struct {
	calls int
	err   error
}

func (f *failingIterator) Next(context.Context) bool {
	f.calls++
	if f.calls > 3 {
		f.err = errors.New("gateway unavailable")
		return false
	}
	return true
}

func (f *failingIterator) Item() int  { return f.calls }
func (f *failingIterator) Err() error { return f.err }

func TestFetchSurfacesIteratorError(t *testing.T) {
	index := 0
	_, err := Fetch[int](context.Background(), &failingIterator{}, 10, &index)
	if err == nil || err.Error() != "gateway unavailable" {
		t.Fatalf("expected iterator error, got %v", err)
	}
}

func TestNormalizeSize(t *testing.T) {
	if NormalizeSize(0) != DefaultSize {
		t.Fatalf("expected default size")
	}
	if NormalizeSize(1000) != MaxSize {
		t.Fatalf("expected max size cap")
	}
	if NormalizeSize(20) != 20 {
		t.Fatalf("expected passthrough")
	}
}

func TestFilterSkipsRejectedItems(t *testing.T) {
	items := []int{1, 2, 3, 4, 5, 6, 7}
	it := Filter[int](NewSliceIterator(items), func(v int) bool { return v%2 == 1 })

	index := 1
	page, err := Fetch(context.Background(), it, 2, &index)
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if len(page.Items) != 2 || page.Items[0] != 5 || page.Items[1] != 7 {
		t.Fatalf("unexpected page %v", page.Items)
	}
	if page.HasMore {
		t.Fatalf("expected no further items")
	}
}
