// Package export writes ideas and their analysis as CSV, JSON, YAML,
// Markdown, printable HTML or terminal output.
package export

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/letieu/strategia/internal/idea"
)

type Format string

const (
	CSV      Format = "csv"
	JSON     Format = "json"
	YAML     Format = "yaml"
	Markdown Format = "md"
	HTML     Format = "html"
)

var Formats = []Format{CSV, JSON, YAML, Markdown, HTML}

func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "csv":
		return CSV, nil
	case "json":
		return JSON, nil
	case "yaml", "yml":
		return YAML, nil
	case "md", "markdown":
		return Markdown, nil
	case "html", "pdf", "print":
		return HTML, nil
	}
	return "", fmt.Errorf("unknown export format %q", s)
}

// ContentType is the MIME type served for f.
func (f Format) ContentType() string {
	switch f {
	case CSV:
		return "text/csv; charset=utf-8"
	case JSON:
		return "application/json"
	case YAML:
		return "application/yaml"
	case Markdown:
		return "text/markdown; charset=utf-8"
	case HTML:
		return "text/html; charset=utf-8"
	}
	return "application/octet-stream"
}

// Document is one export: a titled list of ideas and, optionally, the
// analysis of one of them.
type Document struct {
	Title     string         `json:"title" yaml:"title"`
	Generated time.Time      `json:"generated" yaml:"generated"`
	Ideas     []idea.Idea    `json:"ideas" yaml:"ideas"`
	Analysis  *idea.Analysis `json:"analysis,omitempty" yaml:"analysis,omitempty"`
}

// NewDocument keeps a only when it belongs to one of the ideas.
func NewDocument(title string, generated time.Time, ideas []idea.Idea, a *idea.Analysis) Document {
	doc := Document{Title: title, Generated: generated, Ideas: ideas}
	if doc.Ideas == nil {
		doc.Ideas = []idea.Idea{}
	}
	if a != nil {
		for _, it := range ideas {
			if it.ID == a.IdeaID {
				doc.Analysis = a
				break
			}
		}
	}
	return doc
}

// Filename is the suggested download name for doc in format f.
func (d Document) Filename(f Format) string {
	return fmt.Sprintf("%s-%s.%s", Slug(d.Title), d.Generated.Format("20060102"), f)
}

// Write encodes doc in format f.
func Write(w io.Writer, f Format, doc Document) error {
	switch f {
	case CSV:
		return WriteCSV(w, doc.Ideas)
	case JSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(doc)
	case YAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(doc); err != nil {
			return err
		}
		return enc.Close()
	case Markdown:
		_, err := io.WriteString(w, RenderMarkdown(doc))
		return err
	case HTML:
		return WriteHTML(w, doc)
	}
	return fmt.Errorf("unknown export format %q", f)
}

var csvHeader = []string{
	"ID", "Title", "Tagline", "Description", "Category", "Viral Mechanic",
	"Monetization Strategy", "Estimated Year One Users", "Virality Score",
	"Ad Revenue Potential", "Image URL",
}

// WriteCSV writes a header row and one row per idea. Every field is quoted.
func WriteCSV(w io.Writer, ideas []idea.Idea) error {
	if err := writeCSVRow(w, csvHeader); err != nil {
		return err
	}
	for _, it := range ideas {
		row := []string{
			it.ID,
			it.Title,
			it.Tagline,
			it.Description,
			string(it.Category),
			it.ViralMechanic,
			it.MonetizationStrategy,
			strconv.FormatInt(it.EstimatedYearOneUsers, 10),
			strconv.Itoa(it.ViralityScore),
			strconv.Itoa(it.AdRevenuePotential),
			it.ImageURL,
		}
		if err := writeCSVRow(w, row); err != nil {
			return err
		}
	}
	return nil
}

func writeCSVRow(w io.Writer, fields []string) error {
	var b strings.Builder
	for i, f := range fields {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteByte('"')
		b.WriteString(strings.ReplaceAll(f, `"`, `""`))
		b.WriteByte('"')
	}
	b.WriteString("\r\n")
	_, err := io.WriteString(w, b.String())
	return err
}
