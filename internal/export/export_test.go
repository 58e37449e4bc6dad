package export

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/letieu/strategia/internal/idea"
)

var generated = time.Date(2026, 10, 17, 12, 0, 0, 0, time.UTC)

func sampleIdeas() []idea.Idea {
	return []idea.Idea{
		{
			ID:                    "idea-1-0",
			Title:                 `Pet "Pals"`,
			Tagline:               "Walk, together",
			Description:           "Dog walkers meet.\nTwice a day.",
			Category:              idea.SocialUtility,
			ViralMechanic:         "Invite a neighbour",
			MonetizationStrategy:  "Banner ads",
			EstimatedYearOneUsers: 1250000,
			ViralityScore:         82,
			AdRevenuePotential:    64,
		},
		{ID: "idea-1-1", Title: "Stack Tap", Category: idea.HyperCasualGame},
	}
}

func sampleAnalysis() *idea.Analysis {
	growth := make([]idea.GrowthPoint, idea.ProjectionMonths)
	for i := range growth {
		growth[i] = idea.GrowthPoint{Month: "Month " + string(rune('A'+i)), Users: int64(i) * 1000, Revenue: float64(i) * 12.5}
	}
	return &idea.Analysis{
		IdeaID:           "idea-1-0",
		MarketVerdict:    "Likely a steady earner.",
		SWOT:             idea.SWOT{Strengths: []string{"Cheap"}, Weaknesses: []string{"Seasonal"}, Opportunities: []string{"Cities"}, Threats: []string{"Big apps"}},
		GrowthProjection: growth,
	}
}

func TestParseFormat(t *testing.T) {
	tests := map[string]Format{
		"csv": CSV, "JSON": JSON, "yml": YAML, "markdown": Markdown, "pdf": HTML, " html ": HTML,
	}
	for in, want := range tests {
		got, err := ParseFormat(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}
	_, err := ParseFormat("docx")
	assert.Error(t, err)
}

func TestNewDocument_AnalysisMustBelongToAnIdea(t *testing.T) {
	doc := NewDocument("Ideas", generated, sampleIdeas(), sampleAnalysis())
	assert.NotNil(t, doc.Analysis)

	other := sampleAnalysis()
	other.IdeaID = "idea-9-9"
	doc = NewDocument("Ideas", generated, sampleIdeas(), other)
	assert.Nil(t, doc.Analysis)

	doc = NewDocument("Ideas", generated, nil, nil)
	assert.NotNil(t, doc.Ideas)
}

func TestFilename(t *testing.T) {
	doc := NewDocument("My Saved Ideas!", generated, nil, nil)
	assert.Equal(t, "my-saved-ideas-20261017.csv", doc.Filename(CSV))
}

func TestSlug(t *testing.T) {
	assert.Equal(t, "health-wellness-apps", Slug("  Health & Wellness Apps "))
	assert.Equal(t, "strategia", Slug("!!!"))
}

func TestWriteCSV(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, sampleIdeas()))

	lines := strings.Split(strings.TrimSuffix(buf.String(), "\r\n"), "\r\n")
	require.Len(t, lines, 3)
	assert.True(t, strings.HasPrefix(lines[0], `"ID","Title","Tagline"`))
	assert.Equal(t,
		`"idea-1-0","Pet ""Pals""","Walk, together","Dog walkers meet.`+"\n"+`Twice a day.","Social Utility","Invite a neighbour","Banner ads","1250000","82","64",""`,
		lines[1])
	assert.Equal(t, `"idea-1-1","Stack Tap","","","Hyper-Casual Game","","","0","0","0",""`, lines[2])
}

func TestWriteCSV_HeaderOnly(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, nil))
	assert.Equal(t, 1, strings.Count(buf.String(), "\r\n"))
}

func TestWrite_JSON(t *testing.T) {
	doc := NewDocument("Ideas", generated, sampleIdeas(), sampleAnalysis())
	var buf bytes.Buffer
	require.NoError(t, Write(&buf, JSON, doc))

	var back Document
	require.NoError(t, json.Unmarshal(buf.Bytes(), &back))
	assert.Equal(t, doc.Ideas, back.Ideas)
	assert.Equal(t, "idea-1-0", back.Analysis.IdeaID)
	assert.Contains(t, buf.String(), "\n  \"title\": \"Ideas\"")
}

func TestWrite_YAML(t *testing.T) {
	doc := NewDocument("Ideas", generated, sampleIdeas(), nil)
	var buf bytes.Buffer
	require.NoError(t, Write(&buf, YAML, doc))

	assert.Contains(t, buf.String(), "viralityScore: 82")
	var back struct {
		Ideas []idea.Idea `yaml:"ideas"`
	}
	require.NoError(t, yaml.Unmarshal(buf.Bytes(), &back))
	assert.Equal(t, doc.Ideas, back.Ideas)
}

func TestRenderMarkdown(t *testing.T) {
	doc := NewDocument("Saved Ideas", generated, sampleIdeas(), sampleAnalysis())
	out := RenderMarkdown(doc)

	assert.True(t, strings.HasPrefix(out, "# Saved Ideas\n\nGenerated October 17, 2026 · 2 ideas\n"))
	assert.Equal(t, 3, strings.Count(out, "\n---\n"), "one break before each idea and the analysis")
	assert.Contains(t, out, "## 1. Pet \"Pals\"")
	assert.Contains(t, out, "| Year-one users | 1,250,000 |")
	assert.Contains(t, out, "## Market analysis")
	assert.Contains(t, out, "| Month L | 11,000 | $137.5 |")
}

func TestRenderMarkdown_MissingProjection(t *testing.T) {
	a := sampleAnalysis()
	a.ProjectionMissing = true
	out := RenderMarkdown(NewDocument("x", generated, sampleIdeas(), a))
	assert.Contains(t, out, "No projection was returned")
	assert.NotContains(t, out, "| Month |")
}

func TestWriteHTML(t *testing.T) {
	ideas := sampleIdeas()
	ideas[1].Description = `<script>alert(1)</script>`
	doc := NewDocument("Saved <Ideas>", generated, ideas, sampleAnalysis())

	var buf bytes.Buffer
	require.NoError(t, Write(&buf, HTML, doc))
	out := buf.String()

	assert.Contains(t, out, "<title>Saved &lt;Ideas&gt;</title>")
	assert.Equal(t, 3, strings.Count(out, `<div class="page-break"></div>`))
	assert.Contains(t, out, "<h2>1. Pet &quot;Pals&quot;</h2>")
	assert.Contains(t, out, "<table>")
	assert.NotContains(t, out, "<script>")
}

func TestTable(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Table(&buf, sampleIdeas()))
	out := buf.String()
	assert.Contains(t, out, "Stack Tap")
	assert.Contains(t, out, "1,250,000")
}

func TestTerminal_Render(t *testing.T) {
	term, err := NewTerminal("light", 80)
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, term.Document(&buf, NewDocument("Saved Ideas", generated, sampleIdeas(), nil)))
	assert.Contains(t, buf.String(), "Stack")
}

func TestArtifactMarkdown(t *testing.T) {
	names := AppNames(idea.AppNames{Names: []idea.AppName{{Name: "Wagly", Style: "Playful", Available: true}}})
	assert.Contains(t, names, "| Wagly | Playful | yes |")

	mc := MarketingCopy(idea.MarketingCopy{Taglines: []string{"Go for a walk"}})
	assert.Contains(t, mc, "- Go for a walk")

	plan := MVPPlan(idea.MVPPlan{
		MustHave:          []idea.MVPFeature{{Name: "Map", Effort: idea.Low, Impact: idea.High}},
		EstimatedMVPWeeks: 8,
		TechStack:         []string{"React Native", "Firebase"},
	})
	assert.Contains(t, plan, "| Map |  | Low | High |")
	assert.Contains(t, plan, "### Should have\n\nNone.")
	assert.Contains(t, plan, "React Native, Firebase")
}
