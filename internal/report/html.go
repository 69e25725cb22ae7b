// Package report renders assessments for people: an HTML summary for a
// single assessment and a spreadsheet export for a history.
package report

import (
	"bytes"
	"fmt"
	"html"
	"sort"
	"strings"
	"time"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	goldmarkHTML "github.com/yuin/goldmark/renderer/html"

	"github.com/opensource-health/heron/internal/domain"
)

// markdown renders without WithUnsafe, so raw HTML in input is dropped.
var markdown = goldmark.New(
	goldmark.WithExtensions(extension.Table),
	goldmark.WithRendererOptions(
		goldmarkHTML.WithHardWraps(),
	),
)

// MarkdownToHTML converts markdown to an HTML fragment.
func MarkdownToHTML(md string) ([]byte, error) {
	var buf bytes.Buffer
	if err := markdown.Convert([]byte(md), &buf); err != nil {
		return nil, fmt.Errorf("failed to render markdown: %w", err)
	}
	return buf.Bytes(), nil
}

// Markdown summarises an assessment as markdown.
func Markdown(a *domain.Assessment) string {
	var b strings.Builder

	fmt.Fprintf(&b, "# %s risk assessment\n\n", title(string(a.Domain)))
	fmt.Fprintf(&b, "**Risk level:** %s  \n", a.RiskLevel)
	fmt.Fprintf(&b, "**Score:** %d of %d (%d%%)  \n", a.Score, a.MaxScore, a.RiskPercentage)
	if a.WellbeingScore != nil {
		fmt.Fprintf(&b, "**Wellbeing:** %d  \n", *a.WellbeingScore)
	}
	fmt.Fprintf(&b, "**Assessed:** %s\n\n", a.Timestamp.UTC().Format(time.RFC1123))

	if a.ShortCircuit != "" {
		fmt.Fprintf(&b, "Scoring was skipped: %s.\n\n", escape(a.ShortCircuit))
	}

	if len(a.Factors) > 0 {
		b.WriteString("## Contributing factors\n\n")
		b.WriteString("| Factor | Points |\n|---|---|\n")
		for _, f := range a.Factors {
			fmt.Fprintf(&b, "| %s | %d |\n", escape(f.Factor), f.Points)
		}
		b.WriteString("\n")
	}

	list(&b, "Urgent actions", a.UrgentActions)
	list(&b, "Recommendations", a.Recommendations)
	list(&b, "Preventive actions", a.PreventiveActions)

	if len(a.Observations) > 0 {
		b.WriteString("## Observations\n\n")
		keys := make([]string, 0, len(a.Observations))
		for k := range a.Observations {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			fmt.Fprintf(&b, "- %s: %s\n", escape(k), escape(fmt.Sprint(a.Observations[k])))
		}
		b.WriteString("\n")
	}

	b.WriteString("_This assessment is informational and is not a diagnosis._\n")
	return b.String()
}

// RenderHTML renders an assessment as a standalone HTML page.
func RenderHTML(a *domain.Assessment) ([]byte, error) {
	body, err := MarkdownToHTML(Markdown(a))
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	buf.WriteString("<!DOCTYPE html>\n<html lang=\"en\">\n<head>\n<meta charset=\"utf-8\">\n")
	fmt.Fprintf(&buf, "<title>%s</title>\n", html.EscapeString(title(string(a.Domain))+" assessment"))
	buf.WriteString("</head>\n<body>\n")
	buf.Write(body)
	buf.WriteString("</body>\n</html>\n")
	return buf.Bytes(), nil
}

func list(b *strings.Builder, heading string, items []string) {
	if len(items) == 0 {
		return
	}
	fmt.Fprintf(b, "## %s\n\n", heading)
	for _, item := range items {
		fmt.Fprintf(b, "- %s\n", escape(item))
	}
	b.WriteString("\n")
}

// escaper neutralises markdown control characters in free text.
var escaper = strings.NewReplacer(
	`\`, `\\`, "*", `\*`, "_", `\_`, "`", "\\`", "|", `\|`,
	"[", `\[`, "]", `\]`, "<", "&lt;", ">", "&gt;", "#", `\#`,
)

func escape(s string) string {
	return escaper.Replace(s)
}

func title(s string) string {
	switch s {
	case "pcos":
		return "PCOS"
	case "":
		return "Unknown"
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
