package normalize

import (
	"encoding/json"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/jsonschema-go/jsonschema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/letieu/strategia/internal/idea"
)

const wellFormedIdeas = `[
  {
    "title": "PetPals",
    "tagline": "Tinder for dog walks",
    "description": "Match dogs nearby for group walks.",
    "category": "Social Utility",
    "viralMechanic": "Invite a walking buddy to unlock routes",
    "monetizationStrategy": "Rewarded video between matches",
    "estimatedYearOneUsers": 250000,
    "viralityScore": 82,
    "adRevenuePotential": 64
  },
  {
    "title": "Stack Tap",
    "tagline": "One thumb, endless towers",
    "description": "Tap to stack blocks as high as possible.",
    "category": "Hyper-Casual Game",
    "viralMechanic": "Share replays of record towers",
    "monetizationStrategy": "Interstitials after every third run",
    "estimatedYearOneUsers": 1200000,
    "viralityScore": 0,
    "adRevenuePotential": 100
  }
]`

func TestIdeas_IdentityForWellFormedInput(t *testing.T) {
	got, err := Ideas(wellFormedIdeas)
	require.NoError(t, err)

	var want []idea.Idea
	require.NoError(t, json.Unmarshal([]byte(wellFormedIdeas), &want))

	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("Ideas() mismatch (-want +got):\n%s", diff)
	}
}

func TestIdeas_ExtractsArrayFromProse(t *testing.T) {
	raw := `Sure! Here is your data: [{"title":"X","viralityScore":150,"adRevenuePotential":40}] Hope it helps.`

	got, err := Ideas(raw)
	require.NoError(t, err)
	require.Len(t, got, 1)

	assert.Equal(t, "X", got[0].Title)
	assert.Equal(t, 100, got[0].ViralityScore)
	assert.Equal(t, 40, got[0].AdRevenuePotential)
}

func TestIdeas_ScoresClampedAndTruncated(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want int
	}{
		{"above range", `150`, 100},
		{"negative", `-20`, 0},
		{"fraction", `72.9`, 72},
		{"lower bound", `0`, 0},
		{"upper bound", `100`, 100},
		{"in range", `55`, 55},
		{"numeric string", `"85%"`, 85},
		{"garbage string", `"very high"`, DefaultScore},
		{"boolean", `true`, DefaultScore},
		{"null", `null`, DefaultScore},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			raw := `[{"title":"A","viralityScore":` + tt.in + `,"adRevenuePotential":` + tt.in + `}]`
			got, err := Ideas(raw)
			require.NoError(t, err)
			require.Len(t, got, 1)
			assert.Equal(t, tt.want, got[0].ViralityScore)
			assert.Equal(t, tt.want, got[0].AdRevenuePotential)
			assert.GreaterOrEqual(t, got[0].ViralityScore, 0)
			assert.LessOrEqual(t, got[0].ViralityScore, 100)
		})
	}
}

func TestIdeas_MissingFieldsGetDefaults(t *testing.T) {
	got, err := Ideas(`[{"description":"only a description"}]`)
	require.NoError(t, err)
	require.Len(t, got, 1)

	want := idea.Idea{
		Title:                 DefaultTitle,
		Description:           "only a description",
		Category:              DefaultCategory,
		MonetizationStrategy:  DefaultMonetization,
		EstimatedYearOneUsers: DefaultYearOneUsers,
		ViralityScore:         DefaultScore,
		AdRevenuePotential:    DefaultScore,
	}
	assert.Equal(t, want, got[0])
}

func TestIdeas_CoercesLooseTypes(t *testing.T) {
	raw := `[{"title": 42, "category": "social utility", "estimatedYearOneUsers": "1,500,000", "tagline": true}]`

	got, err := Ideas(raw)
	require.NoError(t, err)
	require.Len(t, got, 1)

	assert.Equal(t, "42", got[0].Title)
	assert.Equal(t, "true", got[0].Tagline)
	assert.Equal(t, idea.SocialUtility, got[0].Category)
	assert.Equal(t, int64(1500000), got[0].EstimatedYearOneUsers)
}

func TestIdeas_UnknownCategoryFallsBack(t *testing.T) {
	got, err := Ideas(`[{"title":"A","category":"Crypto"}]`)
	require.NoError(t, err)
	assert.Equal(t, DefaultCategory, got[0].Category)
}

func TestIdeas_NegativeUsersClampToZero(t *testing.T) {
	got, err := Ideas(`[{"title":"A","estimatedYearOneUsers":-10}]`)
	require.NoError(t, err)
	assert.Equal(t, int64(0), got[0].EstimatedYearOneUsers)
}

func TestIdeas_LoneObjectIsListOfOne(t *testing.T) {
	got, err := Ideas(`Here you go: {"title":"Solo"}`)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "Solo", got[0].Title)
}

func TestIdeas_NonObjectElementsDropped(t *testing.T) {
	got, err := Ideas(`[1, "two", {"title":"Three"}]`)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "Three", got[0].Title)
}

func TestIdeas_NoResult(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want error
	}{
		{"empty", ``, ErrNoJSON},
		{"prose only", `I could not come up with anything today.`, ErrNoJSON},
		{"broken json", `here: [{"title": "A",]`, ErrNoJSON},
		{"scalar", `42`, ErrShape},
		{"array of scalars", `[1, 2, 3]`, ErrShape},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Ideas(tt.in)
			assert.ErrorIs(t, err, tt.want)
			assert.Empty(t, got)
		})
	}
}

func TestIdeas_Idempotent(t *testing.T) {
	raw := "```json\n[{\"title\":\"A\",\"viralityScore\":\"300\"}]\n```"
	first, err := Ideas(raw)
	require.NoError(t, err)
	second, err := Ideas(raw)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestIdeas_ModelSuppliedIDIgnored(t *testing.T) {
	raw := `[{"id":"evil","imageUrl":"http://x","title":"T","tagline":"","description":"","category":"Entertainment","viralMechanic":"","monetizationStrategy":"Ads","estimatedYearOneUsers":1,"viralityScore":1,"adRevenuePotential":1}]`
	got, err := Ideas(raw)
	require.NoError(t, err)
	assert.Empty(t, got[0].ID)
	assert.Empty(t, got[0].ImageURL)
}

func TestIdea_ObjectTargetIgnoresBrackets(t *testing.T) {
	raw := `The idea [draft]: {"title":"Refined","viralityScore":70} [end]`
	got, err := Idea(raw)
	require.NoError(t, err)
	assert.Equal(t, "Refined", got.Title)
	assert.Equal(t, 70, got.ViralityScore)
}

func TestIdea_ArrayIsWrongShape(t *testing.T) {
	_, err := Idea(`[{"title":"A"}]`)
	assert.ErrorIs(t, err, ErrShape)
}

func TestAnalysis_WellFormed(t *testing.T) {
	points := make([]map[string]any, idea.ProjectionMonths)
	for i := range points {
		points[i] = map[string]any{"month": monthLabel(i), "users": (i + 1) * 1000, "revenue": float64(i+1) * 12.5}
	}
	doc := map[string]any{
		"marketVerdict": "Unicorn potential.",
		"swot": map[string]any{
			"strengths":     []string{"Viral loop"},
			"weaknesses":    []string{},
			"opportunities": []string{"Gen Z"},
			"threats":       []string{"Clones", "Store policy"},
		},
		"growthProjection": points,
	}
	raw, err := json.Marshal(doc)
	require.NoError(t, err)

	got, err := Analysis(string(raw))
	require.NoError(t, err)

	assert.Equal(t, "Unicorn potential.", got.MarketVerdict)
	assert.Equal(t, []string{"Viral loop"}, got.SWOT.Strengths)
	assert.Empty(t, got.SWOT.Weaknesses)
	assert.Equal(t, []string{"Clones", "Store policy"}, got.SWOT.Threats)
	require.Len(t, got.GrowthProjection, idea.ProjectionMonths)
	assert.Equal(t, idea.GrowthPoint{Month: "Month 12", Users: 12000, Revenue: 150}, got.GrowthProjection[11])
	assert.False(t, got.ProjectionMissing)
}

func TestAnalysis_MissingPartsDefaulted(t *testing.T) {
	got, err := Analysis(`Analysis follows. {"swot": {"strengths": ["Cheap to build"]}}`)
	require.NoError(t, err)

	assert.Equal(t, DefaultVerdict, got.MarketVerdict)
	assert.Equal(t, []string{"Cheap to build"}, got.SWOT.Strengths)
	assert.Equal(t, DefaultWeaknesses, got.SWOT.Weaknesses)
	assert.Equal(t, DefaultOpportunities, got.SWOT.Opportunities)
	assert.Equal(t, DefaultThreats, got.SWOT.Threats)

	require.Len(t, got.GrowthProjection, idea.ProjectionMonths)
	assert.True(t, got.ProjectionMissing)
	for i, p := range got.GrowthProjection {
		assert.Equal(t, monthLabel(i), p.Month)
		assert.Zero(t, p.Users)
		assert.Zero(t, p.Revenue)
	}
}

func TestAnalysis_UnusableListsDefaulted(t *testing.T) {
	got, err := Analysis(`{"swot": {"strengths": [{}], "weaknesses": [null, []], "opportunities": [], "threats": ["Copycats", {}]}}`)
	require.NoError(t, err)

	assert.Equal(t, DefaultStrengths, got.SWOT.Strengths)
	assert.Equal(t, DefaultWeaknesses, got.SWOT.Weaknesses)
	assert.Empty(t, got.SWOT.Opportunities)
	assert.Equal(t, []string{"Copycats"}, got.SWOT.Threats)
}

func TestAnalysis_ShortSeriesPadded(t *testing.T) {
	got, err := Analysis(`{"marketVerdict":"ok","growthProjection":[{"month":"Jan","users":"2,000","revenue":"15.5"},{"users":-3}]}`)
	require.NoError(t, err)

	require.Len(t, got.GrowthProjection, idea.ProjectionMonths)
	assert.Equal(t, idea.GrowthPoint{Month: "Jan", Users: 2000, Revenue: 15.5}, got.GrowthProjection[0])
	assert.Equal(t, idea.GrowthPoint{Month: "Month 2"}, got.GrowthProjection[1])
	assert.Equal(t, idea.GrowthPoint{Month: "Month 12"}, got.GrowthProjection[11])
	assert.False(t, got.ProjectionMissing)
}

func TestAnalysis_LongSeriesTruncated(t *testing.T) {
	points := make([]map[string]any, 15)
	for i := range points {
		points[i] = map[string]any{"month": monthLabel(i), "users": i, "revenue": i}
	}
	raw, err := json.Marshal(map[string]any{"marketVerdict": "v", "growthProjection": points})
	require.NoError(t, err)

	got, err := Analysis(string(raw))
	require.NoError(t, err)
	assert.Len(t, got.GrowthProjection, idea.ProjectionMonths)
}

func TestAppNames(t *testing.T) {
	t.Run("well formed", func(t *testing.T) {
		got, err := AppNames(`{"names":[{"name":"Wagly","style":"Playful","available":true}]}`)
		require.NoError(t, err)
		assert.Equal(t, []idea.AppName{{Name: "Wagly", Style: "Playful", Available: true}}, got.Names)
	})

	t.Run("loose entries", func(t *testing.T) {
		got, err := AppNames(`{"names":[{"style":""}, "skip", {"name":"Zen","available":"TRUE"}]}`)
		require.NoError(t, err)
		assert.Equal(t, []idea.AppName{
			{Name: DefaultAppName, Style: DefaultNameStyle},
			{Name: "Zen", Style: DefaultNameStyle, Available: true},
		}, got.Names)
	})

	t.Run("names missing", func(t *testing.T) {
		_, err := AppNames(`{"brands":[]}`)
		assert.ErrorIs(t, err, ErrShape)
	})
}

func TestMarketingCopy_DefaultsFromBase(t *testing.T) {
	base := idea.Idea{Title: "PetPals", Tagline: "Walk together", Description: "dog walks"}
	long := make([]byte, 120)
	for i := range long {
		long[i] = 'a'
	}

	got, err := MarketingCopy(`{"appStoreDescription":{"short":"`+string(long)+`"},"taglines":["1","2","3","4","5","6"]}`, base)
	require.NoError(t, err)

	assert.Len(t, []rune(got.AppStoreDescription.Short), MaxShortDescription)
	assert.Equal(t, "dog walks", got.AppStoreDescription.Full)
	assert.Equal(t, []string{"1", "2", "3", "4", "5"}, got.Taglines)
	assert.Equal(t, "Check out PetPals! Walk together #app #new", got.SocialPosts.Twitter)
	assert.Equal(t, "PetPals launches today, offering dog walks", got.PressRelease)
}

func TestMarketingCopy_NoTaglinesUsesBase(t *testing.T) {
	got, err := MarketingCopy(`{}`, idea.Idea{Title: "T", Tagline: "Tag"})
	require.NoError(t, err)
	assert.Equal(t, []string{"Tag"}, got.Taglines)
	assert.Equal(t, "T - Tag", got.AppStoreDescription.Short)
}

func TestMVPPlan(t *testing.T) {
	got, err := MVPPlan(`{"mustHave":[{"name":"Login","effort":"Huge","impact":"High"}],"shouldHave":"none","estimatedMVPWeeks":0}`)
	require.NoError(t, err)

	assert.Equal(t, []idea.MVPFeature{{Name: "Login", Effort: idea.Medium, Impact: idea.High}}, got.MustHave)
	assert.Empty(t, got.ShouldHave)
	assert.Empty(t, got.NiceToHave)
	assert.Equal(t, DefaultMVPWeeks, got.EstimatedMVPWeeks)
	assert.Equal(t, DefaultTechStack, got.TechStack)
}

func TestExtract(t *testing.T) {
	t.Run("whole text", func(t *testing.T) {
		v, err := Extract(` {"a":1} `, false)
		require.NoError(t, err)
		assert.Equal(t, map[string]any{"a": 1.0}, v)
	})

	t.Run("array preferred for lists", func(t *testing.T) {
		v, err := Extract(`x {"wrapper": [1]} y`, true)
		require.NoError(t, err)
		assert.Equal(t, []any{1.0}, v)
	})

	t.Run("object for non lists", func(t *testing.T) {
		v, err := Extract(`x {"wrapper": [1]} y`, false)
		require.NoError(t, err)
		assert.Equal(t, map[string]any{"wrapper": []any{1.0}}, v)
	})

	t.Run("reversed delimiters", func(t *testing.T) {
		_, err := Extract(`} nothing {`, false)
		assert.ErrorIs(t, err, ErrNoJSON)
	})
}

func TestSchemasResolve(t *testing.T) {
	schemas := map[string]*jsonschema.Schema{
		"idea":      IdeaSchema,
		"ideas":     IdeaListSchema,
		"analysis":  AnalysisSchema,
		"names":     AppNamesSchema,
		"marketing": MarketingCopySchema,
		"mvp":       MVPPlanSchema,
	}
	for name, s := range schemas {
		t.Run(name, func(t *testing.T) {
			_, err := s.Resolve(nil)
			assert.NoError(t, err)
		})
	}
}

func TestMVPPlan_AllSectionsValidate(t *testing.T) {
	feature := map[string]any{"name": "Map", "description": "", "effort": "Low", "impact": "High"}
	doc := map[string]any{
		"mustHave":          []any{feature},
		"shouldHave":        []any{feature},
		"niceToHave":        []any{feature},
		"estimatedMVPWeeks": 6,
		"techStack":         []any{"Flutter"},
	}
	raw, err := json.Marshal(doc)
	require.NoError(t, err)

	var v any
	require.NoError(t, json.Unmarshal(raw, &v))
	assert.NoError(t, resolvedMVPPlan.Validate(v))
}
