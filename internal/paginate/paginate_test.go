package paginate

import (
	"math"
	"testing"
)

func seq(n int) []int {
	out := make([]int, n)
	for i := range out {
		out[i] = i
	}
	return out
}

func TestPaginate(t *testing.T) {
	tests := []struct {
		name        string
		total       int
		page, size  int
		wantLen     int
		wantHasMore bool
	}{
		{"first page", 25, 1, 10, 10, true},
		{"middle page", 25, 2, 10, 10, true},
		{"last partial page", 25, 3, 10, 5, false},
		{"exact fit", 20, 2, 10, 10, false},
		{"beyond end", 25, 4, 10, 0, false},
		{"far beyond end", 25, 1000, 10, 0, false},
		{"empty input", 0, 1, 10, 0, false},
		{"page below one", 25, 0, 10, 10, true},
		{"zero size", 25, 1, 0, 0, false},
		{"page product wraps to zero", 10, math.MaxInt/2 + 2, 4, 0, false},
		{"max page", 10, math.MaxInt, 4, 0, false},
		{"max size", 10, 1, math.MaxInt, 10, false},
		{"max size second page", 10, 2, math.MaxInt, 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Paginate(seq(tt.total), tt.page, tt.size)
			if len(got.Items) != tt.wantLen {
				t.Errorf("len = %d, want %d", len(got.Items), tt.wantLen)
			}
			if got.HasMore != tt.wantHasMore {
				t.Errorf("hasMore = %v, want %v", got.HasMore, tt.wantHasMore)
			}
			if got.Total != tt.total {
				t.Errorf("total = %d, want %d", got.Total, tt.total)
			}
			if got.Items == nil {
				t.Error("items must be non-nil")
			}
		})
	}
}

func TestLoadMoreCoversEverything(t *testing.T) {
	for _, size := range []int{1, 3, 7, 10, 50} {
		items := seq(23)
		var collected []int
		page := 1
		for {
			p := Paginate(items, page, size)
			collected = append(collected, p.Items...)
			if !p.HasMore {
				break
			}
			page++
		}
		if len(collected) != len(items) {
			t.Fatalf("size %d: collected %d of %d", size, len(collected), len(items))
		}
		for i, v := range collected {
			if v != items[i] {
				t.Fatalf("size %d: position %d = %d, want %d", size, i, v, items[i])
			}
		}
	}
}

func TestPaginateDoesNotAlias(t *testing.T) {
	items := seq(5)
	p := Paginate(items, 1, 2)
	p.Items[0] = 99
	if items[0] != 0 {
		t.Error("page items must not share backing array with input")
	}
}

func TestTotalPages(t *testing.T) {
	if got := TotalPages(25, 10); got != 3 {
		t.Errorf("TotalPages(25,10) = %d", got)
	}
	if got := TotalPages(20, 10); got != 2 {
		t.Errorf("TotalPages(20,10) = %d", got)
	}
	if got := TotalPages(5, 0); got != 0 {
		t.Errorf("TotalPages(5,0) = %d", got)
	}
}
