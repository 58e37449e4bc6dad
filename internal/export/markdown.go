package export

import (
	"bytes"
	"fmt"
	"html/template"
	"io"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"

	"github.com/letieu/strategia/internal/idea"
)

// RenderMarkdown renders doc with a title block, one section per idea and
// the analysis last.
func RenderMarkdown(doc Document) string {
	return strings.Join(sections(doc), "\n---\n\n")
}

func sections(doc Document) []string {
	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n\n", doc.Title)
	fmt.Fprintf(&b, "Generated %s · %d %s\n\n",
		doc.Generated.Format("January 2, 2006"),
		len(doc.Ideas),
		plural(len(doc.Ideas), "idea", "ideas"),
	)
	out := []string{b.String()}

	for i, it := range doc.Ideas {
		b.Reset()
		writeIdea(&b, i+1, it)
		out = append(out, b.String())
	}
	if doc.Analysis != nil {
		b.Reset()
		writeAnalysis(&b, *doc.Analysis)
		out = append(out, b.String())
	}
	return out
}

func plural(n int, one, many string) string {
	if n == 1 {
		return one
	}
	return many
}

func writeIdea(b *strings.Builder, n int, it idea.Idea) {
	fmt.Fprintf(b, "## %d. %s\n\n", n, it.Title)
	if it.Tagline != "" {
		fmt.Fprintf(b, "*%s*\n\n", it.Tagline)
	}
	if it.ImageURL != "" && !strings.HasPrefix(it.ImageURL, "data:") {
		fmt.Fprintf(b, "![%s](%s)\n\n", it.Title, it.ImageURL)
	}
	if it.Description != "" {
		fmt.Fprintf(b, "%s\n\n", it.Description)
	}
	b.WriteString("| | |\n|---|---|\n")
	fmt.Fprintf(b, "| Category | %s |\n", it.Category)
	fmt.Fprintf(b, "| Virality score | %d/100 |\n", it.ViralityScore)
	fmt.Fprintf(b, "| Ad revenue potential | %d/100 |\n", it.AdRevenuePotential)
	fmt.Fprintf(b, "| Year-one users | %s |\n", humanize.Comma(it.EstimatedYearOneUsers))
	b.WriteString("\n")
	if it.ViralMechanic != "" {
		fmt.Fprintf(b, "**Viral mechanic:** %s\n\n", it.ViralMechanic)
	}
	if it.MonetizationStrategy != "" {
		fmt.Fprintf(b, "**Monetization:** %s\n\n", it.MonetizationStrategy)
	}
}

func writeAnalysis(b *strings.Builder, a idea.Analysis) {
	b.WriteString("## Market analysis\n\n")
	fmt.Fprintf(b, "%s\n\n", a.MarketVerdict)

	for _, sec := range []struct {
		name  string
		items []string
	}{
		{"Strengths", a.SWOT.Strengths},
		{"Weaknesses", a.SWOT.Weaknesses},
		{"Opportunities", a.SWOT.Opportunities},
		{"Threats", a.SWOT.Threats},
	} {
		fmt.Fprintf(b, "### %s\n\n", sec.name)
		for _, item := range sec.items {
			fmt.Fprintf(b, "- %s\n", item)
		}
		b.WriteString("\n")
	}

	b.WriteString("### Growth projection\n\n")
	if a.ProjectionMissing {
		b.WriteString("No projection was returned for this idea.\n\n")
		return
	}
	b.WriteString("| Month | Users | Ad revenue |\n|---|---:|---:|\n")
	for _, p := range a.GrowthProjection {
		fmt.Fprintf(b, "| %s | %s | $%s |\n", p.Month, humanize.Comma(p.Users), humanize.CommafWithDigits(p.Revenue, 2))
	}
	b.WriteString("\n")
}

// Raw HTML in model output is not passed through.
var md = goldmark.New(goldmark.WithExtensions(extension.GFM))

var page = template.Must(template.New("page").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>{{.Title}}</title>
<style>
body { font-family: -apple-system, "Segoe UI", Helvetica, Arial, sans-serif; max-width: 52rem; margin: 2rem auto; color: #111; }
table { border-collapse: collapse; }
td, th { border: 1px solid #ccc; padding: .25rem .6rem; }
img { max-width: 100%; }
.page-break { page-break-after: always; break-after: page; }
@media print { body { margin: 0; } }
</style>
</head>
<body>
{{.Body}}
</body>
</html>
`))

// WriteHTML renders doc as a printable page with one idea per printed page.
func WriteHTML(w io.Writer, doc Document) error {
	var body bytes.Buffer
	for i, sec := range sections(doc) {
		if i > 0 {
			body.WriteString("<div class=\"page-break\"></div>\n")
		}
		if err := md.Convert([]byte(sec), &body); err != nil {
			return fmt.Errorf("render html: %w", err)
		}
	}
	return page.Execute(w, struct {
		Title string
		Body  template.HTML
	}{doc.Title, template.HTML(body.String())})
}
