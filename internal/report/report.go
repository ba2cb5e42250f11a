// Package report renders the Markdown and plaintext analysis reports.
package report

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/olekukonko/tablewriter"

	"github.com/KaramelBytes/crimelens-cli/internal/analysis"
	"github.com/KaramelBytes/crimelens-cli/internal/chart"
	"github.com/KaramelBytes/crimelens-cli/internal/utils"
)

// Output file names.
const (
	MarkdownFile = "chicago_crime_report.md"
	TextFile     = "analysis_report.txt"
)

// Conclusion closes the Markdown report.
const Conclusion = "Based on the analysis, the government should focus on the top crime types and high-risk areas, strengthen patrols during high-crime dates, and implement targeted prevention strategies."

const dayLayout = "2006-01-02 15:04:05"

type section struct {
	num   int
	title string
	image string
	body  func(b *strings.Builder)
}

// Markdown builds the numbered report. The geographic section appears only
// when its chart was rendered.
func Markdown(res *analysis.Result, artifacts []chart.Artifact) string {
	rendered := make(map[string]bool, len(artifacts))
	for _, a := range artifacts {
		rendered[a.Name] = true
	}
	n := res.Options.TopN
	secs := []section{
		{1, fmt.Sprintf("Top %d Crime Types", n), chart.TopTypesFile, func(b *strings.Builder) {
			countTable(b, "Primary Type", res.PrimaryTypes.Top(n), res)
		}},
		{2, fmt.Sprintf("Top %d Crime Areas", n), chart.TopAreasFile, func(b *strings.Builder) {
			countTable(b, "Community Area", res.CommunityAreas.Top(n), res)
		}},
		{3, fmt.Sprintf("Top %d Crime Dates", n), chart.TopDatesFile, func(b *strings.Builder) {
			countTable(b, "Date", res.Dates.Top(n), res)
		}},
		{4, "Top Crime Types vs Top Areas", chart.TypeAreaFile, func(b *strings.Builder) {
			rows, cols := res.TopTypes(), res.TopAreas()
			pivotTable(b, rows, cols, res.TypeByArea.Sub(rows, cols))
		}},
		{5, "Top Crime Types vs Top Dates", chart.TypeDateFile, func(b *strings.Builder) {
			rows, cols := res.TopTypes(), res.TopDates()
			pivotTable(b, rows, cols, res.TypeByDate.Sub(rows, cols))
		}},
	}
	if rendered[chart.GeoFile] {
		secs = append(secs, section{6, "Crime Geographic Distribution", chart.GeoFile, func(b *strings.Builder) {
			fmt.Fprintf(b, "%s of %s incidents carry coordinates.\n\n",
				humanize.Comma(int64(len(res.Points))), humanize.Comma(int64(res.Total)))
		}})
	}
	secs = append(secs, section{7, "Monthly Crime Trend", chart.MonthlyFile, func(b *strings.Builder) {
		countTable(b, "Year-Month", res.MonthlySeries, res)
	}})

	var b strings.Builder
	b.WriteString("# Chicago Crime Data Analysis Report\n\n")
	fmt.Fprintf(&b, "Source: `%s`. Records analyzed: %s", res.Name, humanize.Comma(int64(res.Total)))
	if res.Skipped > 0 {
		fmt.Fprintf(&b, " (%s skipped)", humanize.Comma(int64(res.Skipped)))
	}
	b.WriteString(".\n\n")
	// section numbers are stable whether or not the geographic chart exists
	for _, s := range secs {
		fmt.Fprintf(&b, "## %d. %s\n", s.num, s.title)
		if rendered[s.image] {
			fmt.Fprintf(&b, "![](%s)\n\n", s.image)
		}
		s.body(&b)
	}
	b.WriteString("## 8. Conclusions & Suggestions\n")
	b.WriteString(Conclusion + "\n")
	return b.String()
}

func newMarkdownTable(b *strings.Builder, header []string) *tablewriter.Table {
	t := tablewriter.NewWriter(b)
	t.SetHeader(header)
	t.SetAutoFormatHeaders(false)
	t.SetAutoWrapText(false)
	t.SetBorders(tablewriter.Border{Left: true, Top: false, Right: true, Bottom: false})
	t.SetCenterSeparator("|")
	return t
}

func countTable(b *strings.Builder, label string, c analysis.Counts, res *analysis.Result) {
	t := newMarkdownTable(b, []string{label, "Count", "Share"})
	for _, kv := range c {
		t.Append([]string{kv.Value, humanize.Comma(int64(kv.Count)), fmt.Sprintf("%.1f%%", res.Share(kv.Count))})
	}
	t.Render()
	b.WriteString("\n")
}

func pivotTable(b *strings.Builder, rows, cols []string, cells [][]int) {
	t := newMarkdownTable(b, append([]string{"Primary Type"}, cols...))
	for i, r := range rows {
		line := make([]string, 0, len(cols)+1)
		line = append(line, r)
		for _, v := range cells[i] {
			line = append(line, humanize.Comma(int64(v)))
		}
		t.Append(line)
	}
	t.Render()
	b.WriteString("\n")
}

// Text builds the plaintext summary report.
func Text(res *analysis.Result) string {
	var b strings.Builder
	b.WriteString("=== Chicago Crime Data Analysis Report ===\n")
	fmt.Fprintf(&b, "\nTotal crimes: %s\n", humanize.Comma(int64(res.Total)))
	if res.First.IsZero() {
		b.WriteString("Date range: n/a\n")
	} else {
		fmt.Fprintf(&b, "Date range: %s to %s\n", res.First.Format(dayLayout), res.Last.Format(dayLayout))
	}
	if res.Skipped > 0 {
		fmt.Fprintf(&b, "Rows skipped: %s\n", humanize.Comma(int64(res.Skipped)))
	}
	k := res.Options.DashboardTopN

	b.WriteString("\n=== Crime Trends ===\n")
	b.WriteString("\nYearly crime trend:\n")
	series(&b, "Year", res.Yearly)

	b.WriteString("\n=== Crime Types ===\n")
	b.WriteString("\nPrimary type distribution:\n")
	series(&b, "Primary Type", res.PrimaryTypes.Top(k))

	b.WriteString("\n=== Locations ===\n")
	b.WriteString("\nHigh-crime community areas:\n")
	series(&b, "Community Area", res.CommunityAreas.Top(k))
	return b.String()
}

// series writes a two-column listing with the count right-aligned.
func series(b *strings.Builder, label string, c analysis.Counts) {
	w := len(label)
	for _, kv := range c {
		w = max(w, len(kv.Value))
	}
	fmt.Fprintf(b, "%-*s\n", w, label)
	for _, kv := range c {
		fmt.Fprintf(b, "%-*s  %10s\n", w, kv.Value, humanize.Comma(int64(kv.Count)))
	}
}

// Paths are the files written by Write.
type Paths struct {
	Markdown string
	Text     string
}

// Write renders both reports into dir.
func Write(dir string, res *analysis.Result, artifacts []chart.Artifact) (Paths, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return Paths{}, fmt.Errorf("create output dir: %w", err)
	}
	p := Paths{
		Markdown: filepath.Join(dir, MarkdownFile),
		Text:     filepath.Join(dir, TextFile),
	}
	if err := utils.SafeWriteFile(p.Markdown, []byte(Markdown(res, artifacts))); err != nil {
		return Paths{}, fmt.Errorf("write markdown report: %w", err)
	}
	if err := utils.SafeWriteFile(p.Text, []byte(Text(res))); err != nil {
		return Paths{}, fmt.Errorf("write text report: %w", err)
	}
	return p, nil
}
