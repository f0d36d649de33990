package main

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/ZaguanLabs/polytlai"
)

// progressLine is one stderr line for a settled entry.
func progressLine(e polytlai.ResultEntry) string {
	if e.IsSuccess() {
		suffix := ""
		if e.Cached {
			suffix = ", cached"
		}
		return fmt.Sprintf("✓ %s (%s%s)", e.Name, formatElapsed(e.Elapsed), suffix)
	}
	return fmt.Sprintf("✗ %s: %s", e.Name, failureText(e))
}

func failureText(e polytlai.ResultEntry) string {
	if e.Message == "" {
		return string(e.Failure)
	}
	return fmt.Sprintf("%s (%s)", e.Message, e.Failure)
}

func formatElapsed(d time.Duration) string {
	return fmt.Sprintf("%.2fs", d.Seconds())
}

// renderVertical prints each result in full, one section per provider.
func renderVertical(w io.Writer, outcome *polytlai.Outcome) {
	for _, e := range outcome.Entries {
		fmt.Fprintf(w, "=== %s ===\n", e.Name)
		switch {
		case e.IsSuccess() && e.Analysis:
			fmt.Fprintf(w, "%s\n(judged by %s, %s)\n\n", e.Text, e.Judge, formatElapsed(e.Elapsed))
		case e.IsSuccess():
			cached := ""
			if e.Cached {
				cached = ", cached"
			}
			fmt.Fprintf(w, "%s\n(quality %d, %s%s)\n\n", e.Text, e.Quality, formatElapsed(e.Elapsed), cached)
		case e.IsFailure():
			fmt.Fprintf(w, "[failed] %s\n\n", failureText(e))
		default:
			fmt.Fprintf(w, "[%s]\n\n", e.Status)
		}
	}
	printSummary(w, outcome)
}

// renderHorizontal prints one row per provider, followed by the analysis.
func renderHorizontal(w io.Writer, outcome *polytlai.Outcome) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "PROVIDER\tSTATUS\tQUALITY\tTIME\tTRANSLATION")
	var analysis *polytlai.ResultEntry
	for i := range outcome.Entries {
		e := outcome.Entries[i]
		if e.Analysis {
			analysis = &outcome.Entries[i]
			continue
		}
		quality, text := "-", failureText(e)
		if e.IsSuccess() {
			quality = fmt.Sprintf("%d", e.Quality)
			text = oneLine(e.Text)
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", e.Name, e.Status, quality, formatElapsed(e.Elapsed), text)
	}
	_ = tw.Flush()

	if analysis != nil {
		fmt.Fprintf(w, "\n=== %s ===\n", analysis.Name)
		if analysis.IsSuccess() {
			fmt.Fprintln(w, analysis.Text)
		} else {
			fmt.Fprintf(w, "[failed] %s\n", failureText(*analysis))
		}
	}
	fmt.Fprintln(w)
	printSummary(w, outcome)
}

func printSummary(w io.Writer, outcome *polytlai.Outcome) {
	fmt.Fprintf(w, "%d succeeded, %d failed in %s\n", outcome.Succeeded(), outcome.Failed(), formatElapsed(outcome.Elapsed))
	if outcome.Canceled {
		fmt.Fprintln(w, "run was canceled")
	}
}

func oneLine(s string) string {
	return polytlai.Truncate(strings.Join(strings.Fields(s), " "), 80)
}

// renderTips prints performance hints for the given provider count.
func renderTips(w io.Writer, selected int) {
	fmt.Fprintln(w, "Tips:")
	switch {
	case selected > 3:
		fmt.Fprintf(w, "  - %d providers selected; 2-3 providers give the best response time.\n", selected)
	case selected == 1:
		fmt.Fprintln(w, "  - Select several providers to compare translations and get an AI analysis.")
	}
	fmt.Fprintln(w, "  - Results stream as each provider finishes; slow providers do not block fast ones.")
}
