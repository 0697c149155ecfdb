package entity

import (
	"errors"
	"math"
	"strconv"
	"testing"
)

func TestNewPage_PagesIsCeiling(t *testing.T) {
	cases := []struct {
		total int64
		size  int
		pages int
	}{
		{0, 50, 0},
		{1, 50, 1},
		{50, 50, 1},
		{51, 50, 2},
		{100, 10, 10},
		{101, 10, 11},
	}
	for _, c := range cases {
		p := NewPage[int](nil, c.total, PageParams{Page: 1, Size: c.size})
		if p.Pages != c.pages {
			t.Fatalf("total=%d size=%d: pages=%d want %d", c.total, c.size, p.Pages, c.pages)
		}
		if p.Items == nil {
			t.Fatalf("items must never be nil")
		}
	}
}

func TestPageParams_Offset(t *testing.T) {
	if got := (PageParams{Page: 1, Size: 50}).Offset(); got != 0 {
		t.Fatalf("page 1 offset = %d", got)
	}
	if got := (PageParams{Page: 3, Size: 20}).Offset(); got != 40 {
		t.Fatalf("page 3 offset = %d", got)
	}
	if got := (PageParams{Page: 1<<62 + 1, Size: 2}).Offset(); got != math.MaxInt64 {
		t.Fatalf("huge page offset = %d, want saturation at MaxInt64", got)
	}
	if got := (PageParams{Page: math.MaxInt, Size: 100}).Offset(); got < 0 {
		t.Fatalf("offset wrapped negative: %d", got)
	}
}

func TestMapPage(t *testing.T) {
	src := NewPage([]int{1, 2, 3}, 3, PageParams{Page: 1, Size: 50})
	out, err := MapPage(src, func(i int) (string, error) { return strconv.Itoa(i), nil })
	if err != nil {
		t.Fatalf("MapPage: %v", err)
	}
	if len(out.Items) != 3 || out.Items[2] != "3" || out.Total != 3 || out.Pages != 1 {
		t.Fatalf("unexpected page: %+v", out)
	}

	boom := errors.New("boom")
	if _, err := MapPage(src, func(int) (string, error) { return "", boom }); !errors.Is(err, boom) {
		t.Fatalf("expected projection error, got %v", err)
	}
}
