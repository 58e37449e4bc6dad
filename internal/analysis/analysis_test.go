package analysis

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/letieu/strategia/internal/database"
	"github.com/letieu/strategia/internal/idea"
	"github.com/letieu/strategia/internal/library"
	"github.com/letieu/strategia/internal/license"
	"github.com/letieu/strategia/internal/llm"
)

const batchReply = `Sure! Here are your ideas:
[
  {"title": "Pet Pals", "tagline": "Walk together", "description": "Dog walkers meet.", "category": "Social Utility",
   "viralMechanic": "Invite a neighbour", "monetizationStrategy": "Banner ads", "estimatedYearOneUsers": 250000,
   "viralityScore": 150, "adRevenuePotential": 70},
  {"title": "Stack Tap", "category": "hyper-casual game", "viralityScore": "88", "adRevenuePotential": 91}
]
Hope this helps.`

// fakeModel answers by the first keyword found in the prompt.
type fakeModel struct {
	mu      sync.Mutex
	replies map[string]string
	err     error
	prompts []string
}

func (m *fakeModel) Generate(_ context.Context, req llm.Request) (*llm.Response, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.prompts = append(m.prompts, req.Prompt)
	if m.err != nil {
		return nil, m.err
	}
	for kw, reply := range m.replies {
		if strings.Contains(req.Prompt, kw) {
			return &llm.Response{Text: reply}, nil
		}
	}
	return &llm.Response{Text: "I cannot help with that."}, nil
}

type fixture struct {
	analyzer *Analyzer
	model    *fakeModel
	licenses *license.Manager
	library  *library.Library
}

func newFixture(t *testing.T, opts ...Option) *fixture {
	t.Helper()
	store := database.NewMemory()
	licenses := license.NewManager(store, zap.NewNop())
	lib := library.New(store, licenses, zap.NewNop())
	model := &fakeModel{replies: map[string]string{}}
	opts = append([]Option{WithIDSource(idea.NewIDSource(func() time.Time { return time.UnixMilli(1700000000000) }))}, opts...)
	return &fixture{
		analyzer: New(model, licenses, lib, zap.NewNop(), opts...),
		model:    model,
		licenses: licenses,
		library:  lib,
	}
}

func (f *fixture) license(t *testing.T) {
	t.Helper()
	_, err := f.licenses.Activate(context.Background(), "STGX-ABCD-EFGH-1234", "")
	require.NoError(t, err)
}

func TestGenerateIdeas(t *testing.T) {
	f := newFixture(t)
	f.model.replies["unique, high-potential"] = batchReply
	ctx := context.Background()

	ideas, err := f.analyzer.GenerateIdeas(ctx, idea.SocialUtility)
	require.NoError(t, err)
	require.Len(t, ideas, 2)

	assert.Equal(t, "idea-1700000000000-0", ideas[0].ID)
	assert.Equal(t, "idea-1700000000000-1", ideas[1].ID)
	assert.Equal(t, 100, ideas[0].ViralityScore)
	assert.Equal(t, idea.HyperCasualGame, ideas[1].Category)
	assert.Equal(t, 88, ideas[1].ViralityScore)

	assert.Contains(t, f.model.prompts[0], "Focus on the category: Social Utility")
	assert.Equal(t, 1, f.licenses.Usage(ctx).GenerationsToday)
	assert.Equal(t, ideas, f.library.Current(ctx))
}

func TestGenerateIdeas_QuotaThenDenied(t *testing.T) {
	f := newFixture(t)
	f.model.replies["unique, high-potential"] = batchReply
	ctx := context.Background()

	for range license.FreeGenerationsPerDay {
		_, err := f.analyzer.GenerateIdeas(ctx, idea.All)
		require.NoError(t, err)
	}
	_, err := f.analyzer.GenerateIdeas(ctx, idea.All)
	assert.ErrorIs(t, err, license.ErrQuotaExceeded)
	assert.Len(t, f.model.prompts, license.FreeGenerationsPerDay)

	f.license(t)
	_, err = f.analyzer.GenerateIdeas(ctx, idea.All)
	assert.NoError(t, err)
}

func TestGenerateIdeas_FailuresDegradeToEmpty(t *testing.T) {
	tests := []struct {
		name  string
		setup func(m *fakeModel)
	}{
		{"model error", func(m *fakeModel) { m.err = &llm.StatusError{Backend: "test", Code: 500} }},
		{"prose only", func(m *fakeModel) {}},
		{"wrong shape", func(m *fakeModel) { m.replies["unique, high-potential"] = `["a", "b"]` }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			tt.setup(f.model)
			ctx := context.Background()

			ideas, err := f.analyzer.GenerateIdeas(ctx, idea.All)
			require.NoError(t, err)
			assert.NotNil(t, ideas)
			assert.Empty(t, ideas)
			assert.Equal(t, 0, f.licenses.Usage(ctx).GenerationsToday)
		})
	}
}

func TestGenerateIdeas_CancelledContext(t *testing.T) {
	f := newFixture(t)
	f.model.err = context.Canceled
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := f.analyzer.GenerateIdeas(ctx, idea.All)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestRefineIdea(t *testing.T) {
	f := newFixture(t)
	f.model.replies["raw app idea"] = `{"title": "Plant Doctor", "category": "Health & Wellness", "viralityScore": 61.9}`
	ctx := context.Background()

	it, err := f.analyzer.RefineIdea(ctx, "an app that tells you why your plant is dying")
	require.NoError(t, err)
	require.NotNil(t, it)
	assert.Equal(t, "custom-1700000000000", it.ID)
	assert.Equal(t, "Plant Doctor", it.Title)
	assert.Equal(t, 61, it.ViralityScore)
	assert.Equal(t, 1, f.licenses.Usage(ctx).GenerationsToday)

	f.model.replies = map[string]string{}
	it, err = f.analyzer.RefineIdea(ctx, "???")
	require.NoError(t, err)
	assert.Nil(t, it)
}

func TestAnalyzeIdea(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	it := idea.Idea{ID: "idea-1-0", Title: "Pet Pals"}

	_, err := f.analyzer.AnalyzeIdea(ctx, it)
	assert.ErrorIs(t, err, license.ErrFeatureLocked)

	f.license(t)
	f.model.replies["market viability"] = `{"marketVerdict": "Solid.", "swot": {"strengths": ["Cheap"]}}`

	res, err := f.analyzer.AnalyzeIdea(ctx, it)
	require.NoError(t, err)
	require.NotNil(t, res)
	assert.Equal(t, "idea-1-0", res.IdeaID)
	assert.Equal(t, "Solid.", res.MarketVerdict)
	assert.True(t, res.ProjectionMissing)
	assert.Len(t, res.GrowthProjection, idea.ProjectionMonths)
	assert.Equal(t, res, f.library.SelectedAnalysis(ctx))
}

func TestArtifacts(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	it := idea.Idea{ID: "idea-1-0", Title: "Pet Pals", Tagline: "Walk together"}

	f.model.replies["10 unique app names"] = `{"names": [{"name": "Wagly", "style": "Playful", "available": true}]}`
	f.model.replies["marketing materials"] = `{"taglines": ["Go for a walk"]}`
	f.model.replies["MVP feature plan"] = `{"mustHave": [{"name": "Map", "effort": "Low"}], "estimatedMVPWeeks": 6}`

	names, err := f.analyzer.GenerateAppNames(ctx, it)
	require.NoError(t, err)
	require.NotNil(t, names)
	assert.Equal(t, "Wagly", names.Names[0].Name)

	mc, err := f.analyzer.GenerateMarketingCopy(ctx, it)
	require.NoError(t, err)
	require.NotNil(t, mc)
	assert.Equal(t, []string{"Go for a walk"}, mc.Taglines)

	plan, err := f.analyzer.GenerateMVPPlan(ctx, it)
	require.NoError(t, err)
	require.NotNil(t, plan)
	assert.Equal(t, 6, plan.EstimatedMVPWeeks)
	assert.Equal(t, idea.Low, plan.MustHave[0].Effort)
	assert.Equal(t, idea.Medium, plan.MustHave[0].Impact)

	// Artifacts are not metered.
	assert.Equal(t, 0, f.licenses.Usage(ctx).GenerationsToday)

	f.model.err = errors.New("boom")
	names, err = f.analyzer.GenerateAppNames(ctx, it)
	require.NoError(t, err)
	assert.Nil(t, names)
}

// gatedImages blocks every Generate call until release is closed.
type gatedImages struct {
	started chan string
	release chan struct{}
	fail    map[string]bool
}

func (g *gatedImages) Generate(ctx context.Context, it idea.Idea) (string, error) {
	g.started <- it.ID
	<-g.release
	if g.fail[it.ID] {
		return "", errors.New("render failed")
	}
	return "https://img.example/" + it.ID + ".png", nil
}

func TestGenerateImages(t *testing.T) {
	images := &gatedImages{
		started: make(chan string, 3),
		release: make(chan struct{}),
		fail:    map[string]bool{"c": true},
	}
	f := newFixture(t, WithImages(images))
	f.license(t)
	ctx := context.Background()

	ideas := []idea.Idea{{ID: "a"}, {ID: "b"}, {ID: "c"}}
	require.NoError(t, f.library.SetCurrent(ctx, ideas))

	done := make(chan []idea.Idea, 1)
	go func() {
		out, err := f.analyzer.GenerateImages(ctx, ideas)
		assert.NoError(t, err)
		done <- out
	}()

	for range ideas {
		id := <-images.started
		assert.True(t, f.analyzer.Busy(id))
	}
	close(images.release)

	var out []idea.Idea
	select {
	case out = <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("GenerateImages did not finish")
	}

	require.Len(t, out, 3)
	assert.Equal(t, "https://img.example/a.png", out[0].ImageURL)
	assert.Equal(t, "https://img.example/b.png", out[1].ImageURL)
	assert.Empty(t, out[2].ImageURL)
	assert.Empty(t, ideas[0].ImageURL, "input modified")

	for _, it := range ideas {
		assert.False(t, f.analyzer.Busy(it.ID))
	}
	assert.Equal(t, "https://img.example/b.png", f.library.Current(ctx)[1].ImageURL)
}

func TestGenerateImages_Gated(t *testing.T) {
	f := newFixture(t)
	_, err := f.analyzer.GenerateImages(context.Background(), []idea.Idea{{ID: "a"}})
	assert.ErrorIs(t, err, license.ErrFeatureLocked)

	f.license(t)
	_, err = f.analyzer.GenerateImages(context.Background(), []idea.Idea{{ID: "a"}})
	assert.ErrorIs(t, err, ErrImagesDisabled)
}

func TestCompare(t *testing.T) {
	a := idea.Idea{ID: "a", ViralityScore: 90, AdRevenuePotential: 40, EstimatedYearOneUsers: 100}
	b := idea.Idea{ID: "b", ViralityScore: 90, AdRevenuePotential: 80, EstimatedYearOneUsers: 50}
	c := idea.Idea{ID: "c", ViralityScore: 10, AdRevenuePotential: 20, EstimatedYearOneUsers: 900}

	got, err := Compare([]idea.Idea{a, b, c})
	require.NoError(t, err)
	assert.Equal(t, map[Metric]string{
		Virality:  "a",
		Revenue:   "b",
		YearUsers: "c",
	}, got.Winners)

	_, err = Compare([]idea.Idea{a})
	assert.ErrorIs(t, err, ErrCompareCount)
	_, err = Compare([]idea.Idea{a, a})
	assert.ErrorIs(t, err, ErrCompareCount)
	_, err = Compare([]idea.Idea{a, b, c, {ID: "d"}})
	assert.ErrorIs(t, err, ErrCompareCount)
}

func TestAnalyzer_CompareGated(t *testing.T) {
	f := newFixture(t)
	ideas := []idea.Idea{{ID: "a"}, {ID: "b"}}

	_, err := f.analyzer.Compare(context.Background(), ideas)
	assert.ErrorIs(t, err, license.ErrFeatureLocked)

	f.license(t)
	got, err := f.analyzer.Compare(context.Background(), ideas)
	require.NoError(t, err)
	assert.Len(t, got.Ideas, 2)
}
