// Package prompt builds the model prompts for every generation task.
package prompt

import (
	"fmt"
	"strings"
	"text/template"

	"github.com/google/jsonschema-go/jsonschema"

	"github.com/letieu/strategia/internal/idea"
	"github.com/letieu/strategia/internal/normalize"
)

// Prompt is everything the invoker needs for one task.
type Prompt struct {
	Name        string
	System      string
	Text        string
	Temperature float32
	MaxTokens   int
	// Schema is sent as the response-format hint. The normalizer checks the
	// same schema on the way back.
	Schema *jsonschema.Schema
}

// RefineMaxRunes caps user input embedded in the refine prompt.
const RefineMaxRunes = 1000

// IdeasPerBatch is how many ideas one generation asks for.
const IdeasPerBatch = 3

const categoryList = "Hyper-Casual Game, Social Utility, AI Productivity, Health & Wellness, Entertainment"

const ideaFormat = `{
    "title": "App Name",
    "tagline": "Catchy one-liner",
    "description": "2-3 sentence description of the app concept",
    "category": "One of: ` + categoryList + `",
    "viralMechanic": "How users will share/invite others",
    "monetizationStrategy": "Free + Ads strategy details",
    "estimatedYearOneUsers": 500000,
    "viralityScore": 75,
    "adRevenuePotential": 80
  }`

const ideasTmpl = `Generate exactly {{.Count}} unique, high-potential free app ideas that monetize via ads.
{{if .Focus}}Focus on the category: {{.Focus}}{{else}}Choose diverse categories.{{end}}

Each idea should have high viral potential (users inviting users) and high retention for ad impressions.

IMPORTANT: Respond ONLY with a valid JSON array, no other text. Format:
[
  ` + ideaFormat + `
]

Generate {{.Count}} creative, realistic ideas with scores between 0-100. JSON only:`

const refineTmpl = `Analyze and transform this raw app idea into a structured business concept:

"{{.Input}}"

Optimize it for a "Free + Ads" revenue model. Create a catchy title and tagline. Identify the best category. Design a viral mechanic. Estimate realistic year-one users. Score virality and ad revenue potential (0-100).

If the input is vague, invent plausible details to make it viable.

IMPORTANT: Respond ONLY with valid JSON, no other text. Format:
` + ideaFormat + `

JSON only:`

const analysisTmpl = `Analyze this app idea for market viability with a "Free + Ads" revenue model:

App Title: {{.Title}}
Description: {{.Description}}
Viral Mechanic: {{.ViralMechanic}}

Provide:
1. SWOT analysis (2-3 items each)
2. {{.Months}}-month growth projection (month names, user counts, ad revenue in USD)
3. Market verdict paragraph

IMPORTANT: Respond ONLY with valid JSON, no other text. Format:
{
  "marketVerdict": "2-3 sentence assessment of whether this is a unicorn or bust",
  "swot": {
    "strengths": ["strength 1", "strength 2"],
    "weaknesses": ["weakness 1", "weakness 2"],
    "opportunities": ["opportunity 1", "opportunity 2"],
    "threats": ["threat 1", "threat 2"]
  },
  "growthProjection": [
    {"month": "Month 1", "users": 1000, "revenue": 50},
    {"month": "Month 2", "users": 2500, "revenue": 125},
    ...
    {"month": "Month {{.Months}}", "users": 400000, "revenue": 20000}
  ]
}

The growthProjection array must have exactly {{.Months}} entries.
Adjust the numbers to be realistic for this specific app idea. JSON only:`

const namesTmpl = `Generate 10 unique app names for this concept:

App Concept: {{.Title}}
Description: {{.Description}}
Category: {{.Category}}

Generate names in different styles:
- 2 Playful/Fun names (catchy, memorable)
- 2 Professional/Corporate names (trustworthy, sleek)
- 2 Techy/Modern names (innovative, cutting-edge)
- 2 Minimalist names (short, simple, 1-2 syllables)
- 2 Creative/Abstract names (unique, brandable)

IMPORTANT: Respond ONLY with valid JSON, no other text. Format:
{
  "names": [
    {"name": "AppName", "style": "Playful", "available": true},
    {"name": "AnotherName", "style": "Professional", "available": false}
  ]
}

For "available", give your best guess whether a matching .com domain is still free.
JSON only:`

const marketingTmpl = `Create compelling marketing materials for this app:

App: {{.Title}}
Tagline: {{.Tagline}}
Description: {{.Description}}
Category: {{.Category}}
Viral Mechanic: {{.ViralMechanic}}

Generate:
1. App Store description (short {{.ShortMax}}-char version AND full 500-word version)
2. {{.Taglines}} catchy taglines/slogans
3. Social media posts (Twitter 280 chars, Instagram caption, LinkedIn professional post)
4. Short press release paragraph (100 words)

IMPORTANT: Respond ONLY with valid JSON, no other text. Format:
{
  "appStoreDescription": {
    "short": "{{.ShortMax}} character short description here",
    "full": "Full detailed app store description here (2-3 paragraphs)"
  },
  "taglines": ["Catchy tagline 1", "Catchy tagline 2"],
  "socialPosts": {
    "twitter": "Engaging tweet with emoji and hashtags (280 chars max)",
    "instagram": "Instagram caption with emojis and call-to-action",
    "linkedIn": "Professional LinkedIn announcement post"
  },
  "pressRelease": "Short press release paragraph announcing the app launch"
}

JSON only:`

const mvpTmpl = `Create an MVP feature plan for this app:

App: {{.Title}}
Description: {{.Description}}
Category: {{.Category}}
Monetization: {{.MonetizationStrategy}}
Viral Mechanic: {{.ViralMechanic}}

Prioritize features using MoSCoW method:
- Must Have: Core features essential for launch (4-5 features)
- Should Have: Important but not critical (3-4 features)
- Nice to Have: Future enhancements (3-4 features)

For each feature, estimate effort (Low/Medium/High) and impact (Low/Medium/High).
Also suggest a tech stack and estimated weeks for MVP.

IMPORTANT: Respond ONLY with valid JSON, no other text. Format:
{
  "mustHave": [
    {"name": "Feature Name", "description": "Brief description", "effort": "Medium", "impact": "High"}
  ],
  "shouldHave": [
    {"name": "Feature Name", "description": "Brief description", "effort": "Low", "impact": "Medium"}
  ],
  "niceToHave": [
    {"name": "Feature Name", "description": "Brief description", "effort": "High", "impact": "Low"}
  ],
  "estimatedMVPWeeks": 8,
  "techStack": ["React Native", "Firebase", "Node.js"]
}

JSON only:`

const imageTmpl = `Modern minimalist app store featured image for "{{.Title}}" - {{.Tagline}}. Category: {{.Category}}. Style: sleek futuristic UI mockup, vibrant gradient background, high-tech digital art, 4K resolution, no text, clean professional app icon design`

const (
	strategist  = "You are an expert app strategist."
	analyst     = "You are an expert app market analyst."
	brander     = "You are a creative branding expert."
	copywriter  = "You are an expert app marketing copywriter."
	productLead = "You are an expert product manager."
)

var templates = template.Must(template.New("prompts").Parse(
	`{{define "ideas"}}` + ideasTmpl + `{{end}}` +
		`{{define "refine"}}` + refineTmpl + `{{end}}` +
		`{{define "analysis"}}` + analysisTmpl + `{{end}}` +
		`{{define "names"}}` + namesTmpl + `{{end}}` +
		`{{define "marketing"}}` + marketingTmpl + `{{end}}` +
		`{{define "mvp"}}` + mvpTmpl + `{{end}}` +
		`{{define "image"}}` + imageTmpl + `{{end}}`,
))

func render(name string, data any) (string, error) {
	var b strings.Builder
	if err := templates.ExecuteTemplate(&b, name, data); err != nil {
		return "", fmt.Errorf("render %s prompt: %w", name, err)
	}
	return b.String(), nil
}

// Ideas asks for a batch of ideas, optionally focused on one category.
func Ideas(category idea.Category) (Prompt, error) {
	focus := ""
	if category != idea.All && category != "" {
		focus = string(category)
	}
	text, err := render("ideas", struct {
		Count int
		Focus string
	}{IdeasPerBatch, focus})
	if err != nil {
		return Prompt{}, err
	}
	return Prompt{
		Name:        "ideas",
		System:      strategist,
		Text:        text,
		Temperature: 0.8,
		MaxTokens:   2000,
		Schema:      normalize.IdeaListSchema,
	}, nil
}

// Refine turns free-form user input into one structured idea. Input beyond
// RefineMaxRunes is dropped.
func Refine(input string) (Prompt, error) {
	input = strings.TrimSpace(input)
	if r := []rune(input); len(r) > RefineMaxRunes {
		input = string(r[:RefineMaxRunes])
	}
	text, err := render("refine", struct{ Input string }{input})
	if err != nil {
		return Prompt{}, err
	}
	return Prompt{
		Name:        "refine",
		System:      strategist,
		Text:        text,
		Temperature: 0.7,
		MaxTokens:   1000,
		Schema:      normalize.IdeaSchema,
	}, nil
}

func Analysis(it idea.Idea) (Prompt, error) {
	text, err := render("analysis", struct {
		idea.Idea
		Months int
	}{it, idea.ProjectionMonths})
	if err != nil {
		return Prompt{}, err
	}
	return Prompt{
		Name:        "analysis",
		System:      analyst,
		Text:        text,
		Temperature: 0.7,
		MaxTokens:   2000,
		Schema:      normalize.AnalysisSchema,
	}, nil
}

func AppNames(it idea.Idea) (Prompt, error) {
	text, err := render("names", it)
	if err != nil {
		return Prompt{}, err
	}
	return Prompt{
		Name:        "names",
		System:      brander,
		Text:        text,
		Temperature: 0.9,
		MaxTokens:   1500,
		Schema:      normalize.AppNamesSchema,
	}, nil
}

func MarketingCopy(it idea.Idea) (Prompt, error) {
	text, err := render("marketing", struct {
		idea.Idea
		ShortMax int
		Taglines int
	}{it, normalize.MaxShortDescription, normalize.MaxTaglines})
	if err != nil {
		return Prompt{}, err
	}
	return Prompt{
		Name:        "marketing",
		System:      copywriter,
		Text:        text,
		Temperature: 0.8,
		MaxTokens:   2500,
		Schema:      normalize.MarketingCopySchema,
	}, nil
}

func MVPPlan(it idea.Idea) (Prompt, error) {
	text, err := render("mvp", it)
	if err != nil {
		return Prompt{}, err
	}
	return Prompt{
		Name:        "mvp",
		System:      productLead,
		Text:        text,
		Temperature: 0.7,
		MaxTokens:   2500,
		Schema:      normalize.MVPPlanSchema,
	}, nil
}

// Image describes the concept art for an idea.
func Image(it idea.Idea) (string, error) {
	return render("image", it)
}

// ImageFallback is a shorter image prompt used when the first attempt fails.
func ImageFallback(it idea.Idea) string {
	return fmt.Sprintf("Modern app icon %s digital art gradient", it.Title)
}
