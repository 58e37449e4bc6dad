package prompt

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/letieu/strategia/internal/idea"
	"github.com/letieu/strategia/internal/normalize"
)

var petPals = idea.Idea{
	Title:                "PetPals",
	Tagline:              "Tinder for dog walks",
	Description:          "Match dogs nearby for group walks.",
	Category:             idea.SocialUtility,
	ViralMechanic:        "Invite a walking buddy",
	MonetizationStrategy: "Rewarded video",
}

func TestIdeas(t *testing.T) {
	t.Run("focused", func(t *testing.T) {
		p, err := Ideas(idea.HealthWellness)
		require.NoError(t, err)
		assert.Contains(t, p.Text, "Generate exactly 3 unique")
		assert.Contains(t, p.Text, "Focus on the category: Health & Wellness")
		assert.NotContains(t, p.Text, "Choose diverse categories")
		assert.Same(t, normalize.IdeaListSchema, p.Schema)
		assert.Equal(t, float32(0.8), p.Temperature)
		assert.Equal(t, 2000, p.MaxTokens)
		assert.NotEmpty(t, p.System)
	})

	t.Run("all", func(t *testing.T) {
		p, err := Ideas(idea.All)
		require.NoError(t, err)
		assert.Contains(t, p.Text, "Choose diverse categories.")
		assert.NotContains(t, p.Text, "Focus on the category")
	})
}

func TestRefine_TruncatesInput(t *testing.T) {
	long := strings.Repeat("é", RefineMaxRunes+50)
	p, err := Refine("  " + long + "  ")
	require.NoError(t, err)

	assert.Contains(t, p.Text, `"`+strings.Repeat("é", RefineMaxRunes)+`"`)
	assert.NotContains(t, p.Text, strings.Repeat("é", RefineMaxRunes+1))
	assert.Same(t, normalize.IdeaSchema, p.Schema)
}

func TestRefine_ShortInputKept(t *testing.T) {
	p, err := Refine("an app that reminds me to water plants")
	require.NoError(t, err)
	assert.Contains(t, p.Text, `"an app that reminds me to water plants"`)
}

func TestIdeaPrompts(t *testing.T) {
	tests := []struct {
		name     string
		build    func(idea.Idea) (Prompt, error)
		contains []string
	}{
		{"analysis", Analysis, []string{"App Title: PetPals", "Viral Mechanic: Invite a walking buddy", "exactly 12 entries"}},
		{"names", AppNames, []string{"App Concept: PetPals", "Category: Social Utility", "10 unique app names"}},
		{"marketing", MarketingCopy, []string{"Tagline: Tinder for dog walks", "short 80-char", "5 catchy taglines"}},
		{"mvp", MVPPlan, []string{"Monetization: Rewarded video", "MoSCoW"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := tt.build(petPals)
			require.NoError(t, err)
			assert.Equal(t, tt.name, p.Name)
			assert.NotNil(t, p.Schema)
			for _, s := range tt.contains {
				assert.Contains(t, p.Text, s)
			}
		})
	}
}

func TestImage(t *testing.T) {
	text, err := Image(petPals)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(text, `Modern minimalist app store featured image for "PetPals" - Tinder for dog walks.`))
	assert.Contains(t, text, "Category: Social Utility")

	assert.Equal(t, "Modern app icon PetPals digital art gradient", ImageFallback(petPals))
}
