package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
)

var (
	Brand  = color.New(color.FgHiGreen, color.Bold)
	Subtle = color.New(color.FgHiBlack)
	Info   = color.New(color.FgCyan)
	Good   = color.New(color.FgGreen)
	Bad    = color.New(color.FgRed)
)

// table prints rows aligned under their headers.
func table(w io.Writer, headers []string, rows [][]string) {
	if len(rows) == 0 {
		return
	}
	widths := make([]int, len(headers))
	for i, h := range headers {
		widths[i] = len(h)
	}
	for _, row := range rows {
		for i, cell := range row {
			if i < len(widths) && len([]rune(cell)) > widths[i] {
				widths[i] = len([]rune(cell))
			}
		}
	}

	var head, sep strings.Builder
	for i, h := range headers {
		fmt.Fprintf(&head, "%-*s  ", widths[i], h)
		sep.WriteString(strings.Repeat("─", widths[i]) + "  ")
	}
	Subtle.Fprintln(w, strings.TrimRight(head.String(), " "))
	Subtle.Fprintln(w, strings.TrimRight(sep.String(), " "))

	for _, row := range rows {
		var line strings.Builder
		for i, cell := range row {
			if i < len(widths) {
				fmt.Fprintf(&line, "%-*s  ", widths[i], cell)
			}
		}
		fmt.Fprintln(w, strings.TrimRight(line.String(), " "))
	}
}
