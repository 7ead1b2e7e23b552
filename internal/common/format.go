package common

import (
	"fmt"
	"io"
	"strings"
)

const (
	// Default separator widths
	DefaultWidth = 80
	WideWidth    = 100
)

// PrintSeparator writes a separator line with the specified character and width
func PrintSeparator(w io.Writer, char string, width int) {
	fmt.Fprintln(w, strings.Repeat(char, width))
}

// PrintHeader writes a title framed by separators, preceded by a blank line
func PrintHeader(w io.Writer, title string, width int) {
	fmt.Fprintln(w)
	PrintSeparator(w, "=", width)
	fmt.Fprintln(w, title)
	PrintSeparator(w, "=", width)
}

// PrintFooter writes a closing message framed by separators
func PrintFooter(w io.Writer, message string, width int) {
	fmt.Fprintln(w)
	PrintSeparator(w, "=", width)
	fmt.Fprintln(w, message)
	PrintSeparator(w, "=", width)
	fmt.Fprintln(w)
}

// PrintBoxSeparator writes a box-drawing separator line (for sub-sections)
func PrintBoxSeparator(w io.Writer, width int) {
	fmt.Fprintln(w, "├"+strings.Repeat("─", width))
}

// BoxPrefix returns the box-drawing prefix for list items
func BoxPrefix(isLast bool) string {
	if isLast {
		return "└  "
	}
	return "│  "
}
