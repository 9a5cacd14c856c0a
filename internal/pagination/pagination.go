// Package pagination computes which page-number buttons the admin screen
// shows under the user list.
package pagination

// MaxButtons is the widest window of numbered buttons ever rendered.
const MaxButtons = 5

// Button is one numbered page button.
type Button struct {
	Page    int
	Current bool
}

// Control is a "previous" or "next" button. Page is only meaningful when
// the control is enabled.
type Control struct {
	Page     int
	Disabled bool
}

// Window describes the whole pagination control for one render.
type Window struct {
	Buttons    []Button
	Prev       Control
	Next       Control
	Page       int
	TotalPages int
	// Visible is false when everything fits on a single page.
	Visible bool
}

// Compute returns the pagination control for page out of totalPages.
//
// The window is centred on page and flushed against either edge when page
// is within two of it, so it is always a contiguous run of at most
// MaxButtons pages inside [1, totalPages]. Prev and Next are disabled on
// the first and last page, which keeps every reachable page in range.
//
// Compute has no state; callers derive it again on every render.
func Compute(page, totalPages int) Window {
	start := max(1, page-2)
	end := min(totalPages, page+2)

	if page <= 3 {
		start = 1
		end = min(totalPages, MaxButtons)
	} else if page >= totalPages-2 {
		start = max(1, totalPages-MaxButtons+1)
		end = totalPages
	}

	buttons := make([]Button, 0, max(0, end-start+1))
	for i := start; i <= end; i++ {
		buttons = append(buttons, Button{Page: i, Current: i == page})
	}

	return Window{
		Buttons:    buttons,
		Prev:       Control{Page: page - 1, Disabled: page == 1},
		Next:       Control{Page: page + 1, Disabled: page == totalPages},
		Page:       page,
		TotalPages: totalPages,
		Visible:    totalPages > 1,
	}
}

// Pages returns just the page numbers of the window's buttons.
func (w Window) Pages() []int {
	pages := make([]int, len(w.Buttons))
	for i, b := range w.Buttons {
		pages[i] = b.Page
	}
	return pages
}

// InRange reports whether page can be selected from this control.
func (w Window) InRange(page int) bool {
	return page >= 1 && page <= w.TotalPages
}
