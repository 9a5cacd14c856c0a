package main

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"

	"github.com/aanand-mishra/users-admin/internal/controller"
	"github.com/aanand-mishra/users-admin/internal/pagination"
)

var userHeader = table.Row{"ID", "Name", "Email"}

// renderState prints the current page of users followed by the page
// window.
func renderState(w io.Writer, st controller.State) {
	if len(st.Records) == 0 {
		fmt.Fprintln(w, "No users available")
	} else {
		t := table.NewWriter()
		t.SetOutputMirror(w)
		t.SetStyle(table.StyleLight)
		t.AppendHeader(userHeader)
		for _, u := range st.Records {
			t.AppendRow(table.Row{u.ID, u.Name, u.Email})
		}
		t.AppendFooter(table.Row{"", "Total", st.Total})
		t.Render()
	}

	fmt.Fprintf(w, "Page %d of %d\n", st.Page, st.TotalPages)
	if win := st.Window(); win.Visible {
		fmt.Fprintln(w, formatWindow(win))
	}
}

// formatWindow renders the page window on one line, e.g. "‹ 1 2 [3] 4 5 ›".
// The arrows are left out on the first and last page.
func formatWindow(win pagination.Window) string {
	parts := make([]string, 0, len(win.Buttons)+2)
	if !win.Prev.Disabled {
		parts = append(parts, "‹")
	}
	for _, b := range win.Buttons {
		if b.Current {
			parts = append(parts, "["+strconv.Itoa(b.Page)+"]")
		} else {
			parts = append(parts, strconv.Itoa(b.Page))
		}
	}
	if !win.Next.Disabled {
		parts = append(parts, "›")
	}
	return strings.Join(parts, " ")
}
