package export

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/dustin/go-humanize"
	"github.com/olekukonko/tablewriter"

	"github.com/letieu/strategia/internal/idea"
)

// Terminal renders Markdown for a terminal in the "dark" or "light" style.
type Terminal struct {
	renderer *glamour.TermRenderer
}

func NewTerminal(style string, width int) (*Terminal, error) {
	if style != "light" {
		style = "dark"
	}
	if width <= 0 {
		width = 100
	}
	r, err := glamour.NewTermRenderer(
		glamour.WithStylePath(style),
		glamour.WithWordWrap(width),
	)
	if err != nil {
		return nil, fmt.Errorf("create terminal renderer: %w", err)
	}
	return &Terminal{renderer: r}, nil
}

// Render writes markdown rendered for the terminal.
func (t *Terminal) Render(w io.Writer, markdown string) error {
	out, err := t.renderer.Render(markdown)
	if err != nil {
		return err
	}
	_, err = io.WriteString(w, out)
	return err
}

// Document renders a whole export document.
func (t *Terminal) Document(w io.Writer, doc Document) error {
	return t.Render(w, RenderMarkdown(doc))
}

// Table writes a compact score table of ideas.
func Table(w io.Writer, ideas []idea.Idea) error {
	table := tablewriter.NewWriter(w)
	table.Header([]string{"ID", "Title", "Category", "Virality", "Ad Revenue", "Year-One Users"})
	for _, it := range ideas {
		row := []string{
			it.ID,
			it.Title,
			string(it.Category),
			strconv.Itoa(it.ViralityScore),
			strconv.Itoa(it.AdRevenuePotential),
			humanize.Comma(it.EstimatedYearOneUsers),
		}
		if err := table.Append(row); err != nil {
			return err
		}
	}
	return table.Render()
}

// AppNames renders naming suggestions as Markdown.
func AppNames(names idea.AppNames) string {
	var b strings.Builder
	b.WriteString("## App names\n\n| Name | Style | Domain likely free |\n|---|---|---|\n")
	for _, n := range names.Names {
		avail := "no"
		if n.Available {
			avail = "yes"
		}
		fmt.Fprintf(&b, "| %s | %s | %s |\n", n.Name, n.Style, avail)
	}
	return b.String()
}

// MarketingCopy renders launch copy as Markdown.
func MarketingCopy(mc idea.MarketingCopy) string {
	var b strings.Builder
	b.WriteString("## Marketing copy\n\n### App Store\n\n")
	fmt.Fprintf(&b, "**Short:** %s\n\n%s\n\n", mc.AppStoreDescription.Short, mc.AppStoreDescription.Full)
	b.WriteString("### Taglines\n\n")
	for _, t := range mc.Taglines {
		fmt.Fprintf(&b, "- %s\n", t)
	}
	b.WriteString("\n### Social\n\n")
	fmt.Fprintf(&b, "**Twitter:** %s\n\n", mc.SocialPosts.Twitter)
	fmt.Fprintf(&b, "**Instagram:** %s\n\n", mc.SocialPosts.Instagram)
	fmt.Fprintf(&b, "**LinkedIn:** %s\n\n", mc.SocialPosts.LinkedIn)
	fmt.Fprintf(&b, "### Press release\n\n%s\n", mc.PressRelease)
	return b.String()
}

// MVPPlan renders a MoSCoW plan as Markdown.
func MVPPlan(plan idea.MVPPlan) string {
	var b strings.Builder
	b.WriteString("## MVP plan\n\n")
	for _, sec := range []struct {
		name     string
		features []idea.MVPFeature
	}{
		{"Must have", plan.MustHave},
		{"Should have", plan.ShouldHave},
		{"Nice to have", plan.NiceToHave},
	} {
		fmt.Fprintf(&b, "### %s\n\n", sec.name)
		if len(sec.features) == 0 {
			b.WriteString("None.\n\n")
			continue
		}
		b.WriteString("| Feature | Description | Effort | Impact |\n|---|---|---|---|\n")
		for _, f := range sec.features {
			fmt.Fprintf(&b, "| %s | %s | %s | %s |\n", f.Name, f.Description, f.Effort, f.Impact)
		}
		b.WriteString("\n")
	}
	fmt.Fprintf(&b, "**Estimated MVP:** %d weeks\n\n", plan.EstimatedMVPWeeks)
	fmt.Fprintf(&b, "**Tech stack:** %s\n", strings.Join(plan.TechStack, ", "))
	return b.String()
}
