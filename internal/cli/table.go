package cli

import (
	"fmt"
	"io"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"

	"github.com/itchgrab/itchgrab/internal/models"
)

// Column widths for the asset table. Display-cell based, so wide CJK
// glyphs count double and emoji align correctly.
const (
	colWidthID     = 10
	colWidthAuthor = 24
	colWidthTitle  = 48
)

var headerStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#5FAFD7"))

// truncateToWidth shortens s to at most w display cells, appending an
// ellipsis when anything was cut.
func truncateToWidth(s string, w int) string {
	if runewidth.StringWidth(s) <= w {
		return s
	}
	return runewidth.Truncate(s, w, "…")
}

// padToWidth right-pads s with spaces to exactly w display cells.
func padToWidth(s string, w int) string {
	return runewidth.FillRight(truncateToWidth(s, w), w)
}

// renderAssetTable writes the catalog as a fixed-width table. Styling is
// applied only when styled is true (stdout is a terminal).
func renderAssetTable(w io.Writer, assets []models.AssetRef, styled bool) {
	header := fmt.Sprintf("%s  %s  %s",
		padToWidth("ID", colWidthID),
		padToWidth("AUTHOR", colWidthAuthor),
		padToWidth("TITLE", colWidthTitle))
	if styled {
		header = headerStyle.Render(header)
	}
	fmt.Fprintln(w, header)

	for _, a := range assets {
		fmt.Fprintf(w, "%s  %s  %s\n",
			padToWidth(fmt.Sprintf("%d", a.ID), colWidthID),
			padToWidth(a.Author, colWidthAuthor),
			padToWidth(a.Title, colWidthTitle))
	}
}
