package main

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/fatih/color"

	"github.com/kirillkom/listing-analyzer/internal/core/domain"
)

var (
	successColor = color.New(color.FgGreen, color.Bold)
	errorColor   = color.New(color.FgRed, color.Bold)
	warningColor = color.New(color.FgYellow, color.Bold)
	infoColor    = color.New(color.FgCyan)
	titleColor   = color.New(color.FgMagenta, color.Bold)
)

func printSuccess(w io.Writer, format string, args ...interface{}) {
	_, _ = successColor.Fprintf(w, format+"\n", args...)
}

func printError(w io.Writer, format string, args ...interface{}) {
	_, _ = errorColor.Fprintf(w, "error: "+format+"\n", args...)
}

func printWarning(w io.Writer, format string, args ...interface{}) {
	_, _ = warningColor.Fprintf(w, format+"\n", args...)
}

func printInfo(w io.Writer, format string, args ...interface{}) {
	_, _ = infoColor.Fprintf(w, format+"\n", args...)
}

func printTitle(w io.Writer, format string, args ...interface{}) {
	_, _ = titleColor.Fprintf(w, format+"\n", args...)
}

func scoreColor(score float64) *color.Color {
	switch {
	case score >= domain.HighScoreThreshold:
		return successColor
	case score >= 60:
		return warningColor
	default:
		return errorColor
	}
}

func formatScore(score float64) string {
	return strconv.FormatFloat(score, 'f', -1, 64)
}

// progressPrinter prints only what changed between two streaming snapshots.
type progressPrinter struct {
	w    io.Writer
	last domain.StreamingState
}

func newProgressPrinter(w io.Writer) *progressPrinter {
	return &progressPrinter{w: w, last: domain.NewStreamingState()}
}

func (p *progressPrinter) Print(next domain.StreamingState) {
	if next.Summary != nil && p.last.Summary == nil {
		printTitle(p.w, "Summary")
		_, _ = fmt.Fprintln(p.w, "  "+next.Summary.Summary)
		_, _ = scoreColor(next.Summary.OverallScore).Fprintf(p.w, "  Score: %s/100\n", formatScore(next.Summary.OverallScore))
	}
	printNewItems(p.w, "Strengths", p.last.Strengths, next.Strengths)
	printNewItems(p.w, "Weaknesses", p.last.Weaknesses, next.Weaknesses)
	printNewItems(p.w, "Hidden Risks", p.last.HiddenRisks, next.HiddenRisks)
	printNewItems(p.w, "Questions", p.last.Questions, next.Questions)
	if next.Error != "" && p.last.Error == "" {
		printError(p.w, "%s", next.Error)
	}
	p.last = next.Clone()
}

func printNewItems(w io.Writer, heading string, before, after []string) {
	added := newItems(before, after)
	if len(added) == 0 {
		return
	}
	if len(before) == 0 {
		printTitle(w, heading)
	}
	for _, item := range added {
		_, _ = fmt.Fprintln(w, "  - "+item)
	}
}

func newItems(before, after []string) []string {
	seen := make(map[string]struct{}, len(before))
	for _, item := range before {
		seen[item] = struct{}{}
	}
	out := make([]string, 0)
	for _, item := range after {
		if _, ok := seen[item]; !ok {
			out = append(out, item)
		}
	}
	return out
}

func printSavedTable(w io.Writer, items []domain.SavedAnalysis) {
	if len(items) == 0 {
		printInfo(w, "No saved analyses yet.")
		return
	}
	for _, item := range items {
		title := item.PropertyTitle
		if title == "" {
			title = item.PropertyInput
		}
		_, _ = fmt.Fprintf(w, "%-36s  ", item.ID)
		_, _ = scoreColor(item.Analysis.OverallScore).Fprintf(w, "%5s", formatScore(item.Analysis.OverallScore))
		_, _ = fmt.Fprintf(w, "  %s  %s\n", item.CreatedAt.Local().Format("2006-01-02"), truncate(title, 60))
	}
}

func truncate(s string, n int) string {
	runes := []rune(strings.TrimSpace(s))
	if len(runes) <= n {
		return string(runes)
	}
	return string(runes[:n-3]) + "..."
}
