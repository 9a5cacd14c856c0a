package pagination

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seq(from, to int) []int {
	var out []int
	for i := from; i <= to; i++ {
		out = append(out, i)
	}
	return out
}

func TestCompute_SmallTotalsShowEveryPage(t *testing.T) {
	for total := 1; total <= MaxButtons; total++ {
		for page := 1; page <= total; page++ {
			w := Compute(page, total)
			assert.Equal(t, seq(1, total), w.Pages(), "page=%d total=%d", page, total)
		}
	}
}

func TestCompute_LargeTotalsAlwaysShowFiveContiguousPages(t *testing.T) {
	for total := MaxButtons + 1; total <= 40; total++ {
		for page := 1; page <= total; page++ {
			pages := Compute(page, total).Pages()
			msg := fmt.Sprintf("page=%d total=%d pages=%v", page, total, pages)

			require.Len(t, pages, MaxButtons, msg)
			assert.GreaterOrEqual(t, pages[0], 1, msg)
			assert.LessOrEqual(t, pages[len(pages)-1], total, msg)
			for i := 1; i < len(pages); i++ {
				assert.Equal(t, pages[i-1]+1, pages[i], msg)
			}
			assert.Contains(t, pages, page, msg)
		}
	}
}

func TestCompute_Windows(t *testing.T) {
	tests := []struct {
		page, total int
		want        []int
	}{
		{page: 1, total: 10, want: []int{1, 2, 3, 4, 5}},
		{page: 3, total: 10, want: []int{1, 2, 3, 4, 5}},
		{page: 4, total: 10, want: []int{2, 3, 4, 5, 6}},
		{page: 6, total: 10, want: []int{4, 5, 6, 7, 8}},
		{page: 8, total: 10, want: []int{6, 7, 8, 9, 10}},
		{page: 10, total: 10, want: []int{6, 7, 8, 9, 10}},
		{page: 4, total: 6, want: []int{2, 3, 4, 5, 6}},
		{page: 2, total: 3, want: []int{1, 2, 3}},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("%d_of_%d", tt.page, tt.total), func(t *testing.T) {
			assert.Equal(t, tt.want, Compute(tt.page, tt.total).Pages())
		})
	}
}

func TestCompute_PrevNextDisabledOnlyAtEdges(t *testing.T) {
	for total := 1; total <= 20; total++ {
		for page := 1; page <= total; page++ {
			w := Compute(page, total)
			assert.Equal(t, page == 1, w.Prev.Disabled, "prev page=%d total=%d", page, total)
			assert.Equal(t, page == total, w.Next.Disabled, "next page=%d total=%d", page, total)

			if !w.Prev.Disabled {
				assert.True(t, w.InRange(w.Prev.Page))
			}
			if !w.Next.Disabled {
				assert.True(t, w.InRange(w.Next.Page))
			}
		}
	}
}

func TestCompute_MarksCurrentPage(t *testing.T) {
	w := Compute(4, 9)

	var current []int
	for _, b := range w.Buttons {
		if b.Current {
			current = append(current, b.Page)
		}
	}
	assert.Equal(t, []int{4}, current)
}

func TestCompute_HiddenForSinglePage(t *testing.T) {
	assert.False(t, Compute(1, 1).Visible)
	assert.True(t, Compute(1, 2).Visible)
}
