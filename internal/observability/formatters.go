// Package observability provides formatted output utilities for the CLI.
package observability

import (
	"fmt"
	"io"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/jonathan/jobgeo/internal/db"
	"github.com/jonathan/jobgeo/internal/report"
)

const (
	// boxWidth is the default width for formatted output boxes
	boxWidth = 72
	// maxItemsToShow is the default number of items to display in lists
	maxItemsToShow = 10
)

// Printer handles formatted output for run summaries
type Printer struct {
	out io.Writer
}

// NewPrinter creates a new Printer that writes to the given writer
func NewPrinter(out io.Writer) *Printer {
	return &Printer{out: out}
}

// printBox prints a formatted box with a title and content
//
//nolint:errcheck // writing to stdout; errors are not recoverable
func (p *Printer) printBox(title string, content string) {
	border := strings.Repeat("─", boxWidth-2)
	fmt.Fprintf(p.out, "┌%s┐\n", border)
	fmt.Fprintf(p.out, "│ %s │\n", pad(title))
	fmt.Fprintf(p.out, "├%s┤\n", border)

	for _, line := range strings.Split(strings.TrimRight(content, "\n"), "\n") {
		fmt.Fprintf(p.out, "│ %s │\n", pad(line))
	}

	fmt.Fprintf(p.out, "└%s┘\n", border)
}

// pad truncates or right-pads line to the box's inner width, counting runes.
func pad(line string) string {
	width := boxWidth - 4
	n := utf8.RuneCountInString(line)
	if n > width {
		return string([]rune(line)[:width-3]) + "..."
	}
	return line + strings.Repeat(" ", width-n)
}

// PrintSummary outputs the counters of a finished run and its first failures.
func (p *Printer) PrintSummary(s report.Summary) {
	c := s.Counts
	var sb strings.Builder

	sb.WriteString(fmt.Sprintf("Run:        %s\n", s.RunID))
	sb.WriteString(fmt.Sprintf("Source:     %s\n", s.Source))
	sb.WriteString(fmt.Sprintf("Duration:   %s\n", s.Duration.Round(time.Millisecond)))
	sb.WriteString("\n")
	sb.WriteString(fmt.Sprintf("Seen:              %d\n", c.TotalSeen))
	sb.WriteString(fmt.Sprintf("Normalized:        %d (failed %d)\n", c.NormalizedOK, c.NormalizedFailed))
	sb.WriteString(fmt.Sprintf("Geolocatable:      %d (not %d)\n", c.Geolocatable, c.NotGeolocatable))
	sb.WriteString(fmt.Sprintf("Upserted:          %d (inserted %d, updated %d)\n", c.Upserted, c.Inserted, c.Updated))
	sb.WriteString(fmt.Sprintf("Write failed:      %d\n", c.WriteFailed))
	if c.PagesFetched+c.PagesFailed > 0 {
		sb.WriteString(fmt.Sprintf("Pages:             %d (failed %d)\n", c.PagesFetched, c.PagesFailed))
		sb.WriteString(fmt.Sprintf("Detail failed:     %d\n", c.FetchFailed))
		sb.WriteString(fmt.Sprintf("Detail not found:  %d\n", c.DetailNotFound))
	}

	if len(s.Failures) > 0 {
		sb.WriteString("\nFailures:\n")
		count := min(len(s.Failures), maxItemsToShow)
		for i := 0; i < count; i++ {
			sb.WriteString("  • " + formatFailure(s.Failures[i]) + "\n")
		}
		if len(s.Failures) > maxItemsToShow {
			sb.WriteString(fmt.Sprintf("  ... and %d more\n", len(s.Failures)-maxItemsToShow))
		}
	}

	p.printBox("INGESTION SUMMARY", sb.String())
}

func formatFailure(f report.Failure) string {
	id := f.Ref
	if f.ExternalID != 0 {
		id = fmt.Sprintf("job %d", f.ExternalID)
	}
	return fmt.Sprintf("[%s] %s: %s", f.Stage, id, f.Reason)
}

// PrintHealth outputs the smoke check result for table.
func (p *Printer) PrintHealth(table db.Table, h *db.Health) {
	if h == nil {
		return
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("PostGIS:          %s\n", h.PostGISVersion))
	sb.WriteString(fmt.Sprintf("Table:            %s\n", table))
	sb.WriteString(fmt.Sprintf("Jobs:             %d\n", h.Jobs))
	sb.WriteString(fmt.Sprintf("With geometry:    %d\n", h.WithGeometry))
	sb.WriteString(fmt.Sprintf("Near Stockholm:   %d (50 km)\n", h.NearbySample))

	p.printBox("STORE HEALTH", sb.String())
}
