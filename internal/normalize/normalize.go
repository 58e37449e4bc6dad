package normalize

import (
	"fmt"
	"strings"

	"github.com/letieu/strategia/internal/idea"
)

// Default values substituted for missing or unrecoercible fields.
const (
	DefaultTitle        = "Untitled"
	DefaultMonetization = "Free + Ads"
	DefaultCategory     = idea.Entertainment
	DefaultYearOneUsers = int64(100000)
	DefaultScore        = 50
	DefaultVerdict      = "Analysis unavailable."
	DefaultAppName      = "AppName"
	DefaultNameStyle    = "Creative"
	DefaultMVPWeeks     = 8
	MaxShortDescription = 80
	MaxTaglines         = 5
)

var (
	DefaultStrengths     = []string{"Strong concept"}
	DefaultWeaknesses    = []string{"Needs validation"}
	DefaultOpportunities = []string{"Growing market"}
	DefaultThreats       = []string{"Competition"}
	DefaultTechStack     = []string{"React Native", "Firebase"}
)

// Ideas normalizes a batch generation response. The returned ideas have no ID.
func Ideas(text string) ([]idea.Idea, error) {
	items, err := objects(text)
	if err != nil {
		return nil, err
	}
	out := make([]idea.Idea, 0, len(items))
	for _, m := range items {
		out = append(out, ideaFrom(m))
	}
	return out, nil
}

// Idea normalizes a single-idea response. The returned idea has no ID.
func Idea(text string) (idea.Idea, error) {
	m, err := object(text)
	if err != nil {
		return idea.Idea{}, err
	}
	return ideaFrom(m), nil
}

func ideaFrom(m map[string]any) idea.Idea {
	var it idea.Idea
	if strict(resolvedIdea, m, &it) {
		it.ID = ""
		it.ImageURL = ""
		return it
	}

	category := DefaultCategory
	if s, ok := asString(m["category"]); ok {
		if c, ok := idea.ParseCategory(s); ok {
			category = c
		}
	}
	return idea.Idea{
		Title:                 stringOr(m["title"], DefaultTitle, true),
		Tagline:               stringOr(m["tagline"], "", false),
		Description:           stringOr(m["description"], "", false),
		Category:              category,
		ViralMechanic:         stringOr(m["viralMechanic"], "", false),
		MonetizationStrategy:  stringOr(m["monetizationStrategy"], DefaultMonetization, true),
		EstimatedYearOneUsers: countOr(m["estimatedYearOneUsers"], DefaultYearOneUsers),
		ViralityScore:         scoreOr(m["viralityScore"], DefaultScore),
		AdRevenuePotential:    scoreOr(m["adRevenuePotential"], DefaultScore),
	}
}

// Analysis normalizes a deep-dive response. The projection always has
// idea.ProjectionMonths points; see idea.Analysis.ProjectionMissing.
func Analysis(text string) (idea.Analysis, error) {
	m, err := object(text)
	if err != nil {
		return idea.Analysis{}, err
	}

	var a idea.Analysis
	if strict(resolvedAnalysis, m, &a) {
		a.IdeaID = ""
		a.ProjectionMissing = false
		return a, nil
	}

	swot := mapOf(m["swot"])
	growth, missing := growthFrom(m["growthProjection"])
	return idea.Analysis{
		MarketVerdict: stringOr(m["marketVerdict"], DefaultVerdict, true),
		SWOT: idea.SWOT{
			Strengths:     stringsOr(swot["strengths"], DefaultStrengths),
			Weaknesses:    stringsOr(swot["weaknesses"], DefaultWeaknesses),
			Opportunities: stringsOr(swot["opportunities"], DefaultOpportunities),
			Threats:       stringsOr(swot["threats"], DefaultThreats),
		},
		GrowthProjection:  growth,
		ProjectionMissing: missing,
	}, nil
}

func monthLabel(i int) string { return fmt.Sprintf("Month %d", i+1) }

// growthFrom pads or truncates the series to ProjectionMonths. Missing values
// are zero; no estimates are invented.
func growthFrom(v any) ([]idea.GrowthPoint, bool) {
	arr, _ := v.([]any)
	points := make([]idea.GrowthPoint, idea.ProjectionMonths)
	for i := range points {
		points[i].Month = monthLabel(i)
		if i >= len(arr) {
			continue
		}
		p := mapOf(arr[i])
		points[i].Month = stringOr(p["month"], monthLabel(i), true)
		points[i].Users = countOr(p["users"], 0)
		points[i].Revenue = floatOr(p["revenue"], 0)
	}
	return points, len(arr) == 0
}

// AppNames normalizes a naming response. A response without a names array
// has no usable data.
func AppNames(text string) (idea.AppNames, error) {
	m, err := object(text)
	if err != nil {
		return idea.AppNames{}, err
	}

	var out idea.AppNames
	if strict(resolvedAppNames, m, &out) {
		return out, nil
	}

	arr, ok := m["names"].([]any)
	if !ok {
		return idea.AppNames{}, fmt.Errorf("%w: names is not an array", ErrShape)
	}
	out.Names = make([]idea.AppName, 0, len(arr))
	for _, it := range arr {
		n, ok := it.(map[string]any)
		if !ok {
			continue
		}
		out.Names = append(out.Names, idea.AppName{
			Name:      stringOr(n["name"], DefaultAppName, true),
			Style:     stringOr(n["style"], DefaultNameStyle, true),
			Available: truthy(n["available"]),
		})
	}
	return out, nil
}

func truthy(v any) bool {
	switch t := v.(type) {
	case bool:
		return t
	case string:
		return strings.EqualFold(strings.TrimSpace(t), "true")
	}
	return false
}

// MarketingCopy normalizes launch copy. Defaults are derived from base.
func MarketingCopy(text string, base idea.Idea) (idea.MarketingCopy, error) {
	m, err := object(text)
	if err != nil {
		return idea.MarketingCopy{}, err
	}

	var out idea.MarketingCopy
	if strict(resolvedMarketing, m, &out) {
		return out, nil
	}

	store := mapOf(m["appStoreDescription"])
	social := mapOf(m["socialPosts"])
	taglines := stringsOr(m["taglines"], []string{base.Tagline})
	if len(taglines) > MaxTaglines {
		taglines = taglines[:MaxTaglines]
	}
	return idea.MarketingCopy{
		AppStoreDescription: idea.AppStoreDescription{
			Short: truncateRunes(stringOr(store["short"], base.Title+" - "+base.Tagline, true), MaxShortDescription),
			Full:  stringOr(store["full"], base.Description, true),
		},
		Taglines: taglines,
		SocialPosts: idea.SocialPosts{
			Twitter:   stringOr(social["twitter"], fmt.Sprintf("Check out %s! %s #app #new", base.Title, base.Tagline), true),
			Instagram: stringOr(social["instagram"], fmt.Sprintf("Introducing %s! %s", base.Title, base.Description), true),
			LinkedIn:  stringOr(social["linkedIn"], fmt.Sprintf("Excited to announce %s - %s", base.Title, base.Description), true),
		},
		PressRelease: stringOr(m["pressRelease"], fmt.Sprintf("%s launches today, offering %s", base.Title, base.Description), true),
	}, nil
}

func truncateRunes(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}

// MVPPlan normalizes a MoSCoW feature plan.
func MVPPlan(text string) (idea.MVPPlan, error) {
	m, err := object(text)
	if err != nil {
		return idea.MVPPlan{}, err
	}

	var out idea.MVPPlan
	if strict(resolvedMVPPlan, m, &out) {
		return out, nil
	}

	weeks := DefaultMVPWeeks
	if f, ok := asNumber(m["estimatedMVPWeeks"]); ok && f >= 1 {
		weeks = Clamp(f, 1, 520)
	}
	return idea.MVPPlan{
		MustHave:          featuresFrom(m["mustHave"]),
		ShouldHave:        featuresFrom(m["shouldHave"]),
		NiceToHave:        featuresFrom(m["niceToHave"]),
		EstimatedMVPWeeks: weeks,
		TechStack:         stringsOr(m["techStack"], DefaultTechStack),
	}, nil
}

func featuresFrom(v any) []idea.MVPFeature {
	arr, _ := v.([]any)
	out := make([]idea.MVPFeature, 0, len(arr))
	for _, it := range arr {
		f := mapOf(it)
		effort, _ := asString(f["effort"])
		impact, _ := asString(f["impact"])
		out = append(out, idea.MVPFeature{
			Name:        stringOr(f["name"], "Feature", true),
			Description: stringOr(f["description"], "", false),
			Effort:      idea.ParseLevel(effort),
			Impact:      idea.ParseLevel(impact),
		})
	}
	return out
}
