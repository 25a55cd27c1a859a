package main

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/dgallion1/tourgest/internal/tour"
	"github.com/mattn/go-runewidth"
)

type outcome string

const (
	outcomeImported outcome = "imported"
	outcomeParsed   outcome = "parsed"
	outcomeSkipped  outcome = "skipped"
	outcomeFailed   outcome = "failed"
)

// maxTitleWidth caps the title column in display cells.
const maxTitleWidth = 40

// row is one line of the import summary.
type row struct {
	file    string
	title   string
	slug    string
	days    int
	price   float64
	itin    int
	outcome outcome
	detail  string
}

func (r *row) fill(t tour.ParsedTour) {
	r.title = t.Title
	r.slug = t.Slug
	r.days = t.Duration
	r.price = t.Price
	r.itin = len(t.Itinerary)
}

func failed(rows []row) int {
	n := 0
	for _, r := range rows {
		if r.outcome == outcomeFailed {
			n++
		}
	}
	return n
}

// writeReport prints rows as a pipe table aligned on display width, so
// titles with wide runes line up.
func writeReport(w io.Writer, rows []row) {
	header := []string{"File", "Title", "Days", "Price", "Itinerary", "Outcome"}
	table := [][]string{header}
	counts := map[outcome]int{}
	for _, r := range rows {
		counts[r.outcome]++
		result := string(r.outcome)
		if r.detail != "" {
			result += ": " + r.detail
		} else if r.outcome == outcomeImported && r.slug != "" {
			result += " (" + r.slug + ")"
		}
		table = append(table, []string{
			r.file,
			runewidth.Truncate(r.title, maxTitleWidth, "..."),
			strconv.Itoa(r.days),
			formatPrice(r.price),
			strconv.Itoa(r.itin),
			result,
		})
	}

	widths := make([]int, len(header))
	for _, cells := range table {
		for i, c := range cells {
			if cw := runewidth.StringWidth(c); cw > widths[i] {
				widths[i] = cw
			}
		}
	}

	for i, cells := range table {
		writeRow(w, cells, widths)
		if i == 0 {
			sep := make([]string, len(widths))
			for j, cw := range widths {
				sep[j] = strings.Repeat("-", cw)
			}
			writeRow(w, sep, widths)
		}
	}
	fmt.Fprintf(w, "\n%d files: %d imported, %d parsed, %d skipped, %d failed\n",
		len(rows), counts[outcomeImported], counts[outcomeParsed], counts[outcomeSkipped], counts[outcomeFailed])
}

func writeRow(w io.Writer, cells []string, widths []int) {
	var sb strings.Builder
	sb.WriteString("|")
	for i, c := range cells {
		sb.WriteString(" ")
		sb.WriteString(runewidth.FillRight(c, widths[i]))
		sb.WriteString(" |")
	}
	sb.WriteString("\n")
	io.WriteString(w, sb.String())
}

func formatPrice(p float64) string {
	if p == 0 {
		return "-"
	}
	return strconv.FormatFloat(p, 'f', -1, 64)
}
