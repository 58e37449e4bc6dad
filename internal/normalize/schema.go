package normalize

import (
	"github.com/google/jsonschema-go/jsonschema"

	"github.com/letieu/strategia/internal/idea"
)

func ptr[T any](v T) *T { return &v }

func str() *jsonschema.Schema { return &jsonschema.Schema{Type: "string"} }

func nonEmpty() *jsonschema.Schema { return &jsonschema.Schema{Type: "string", MinLength: ptr(1)} }

func strList() *jsonschema.Schema {
	return &jsonschema.Schema{Type: "array", Items: str()}
}

func scoreSchema() *jsonschema.Schema {
	return &jsonschema.Schema{Type: "integer", Minimum: ptr(0.0), Maximum: ptr(100.0)}
}

func categoryEnum() []any {
	out := make([]any, len(idea.Categories))
	for i, c := range idea.Categories {
		out[i] = string(c)
	}
	return out
}

func levelSchema() *jsonschema.Schema {
	return &jsonschema.Schema{Type: "string", Enum: []any{"Low", "Medium", "High"}}
}

// IdeaSchema describes one idea as the model should emit it.
var IdeaSchema = &jsonschema.Schema{
	Type: "object",
	Properties: map[string]*jsonschema.Schema{
		"title":                 nonEmpty(),
		"tagline":               str(),
		"description":           str(),
		"category":              {Type: "string", Enum: categoryEnum()},
		"viralMechanic":         str(),
		"monetizationStrategy":  nonEmpty(),
		"estimatedYearOneUsers": {Type: "integer", Minimum: ptr(0.0)},
		"viralityScore":         scoreSchema(),
		"adRevenuePotential":    scoreSchema(),
	},
	Required: []string{
		"title", "tagline", "description", "category", "viralMechanic",
		"monetizationStrategy", "estimatedYearOneUsers", "viralityScore", "adRevenuePotential",
	},
}

// IdeaListSchema is the batch generation shape.
var IdeaListSchema = &jsonschema.Schema{Type: "array", Items: IdeaSchema}

var growthPointSchema = &jsonschema.Schema{
	Type: "object",
	Properties: map[string]*jsonschema.Schema{
		"month":   nonEmpty(),
		"users":   {Type: "integer", Minimum: ptr(0.0)},
		"revenue": {Type: "number"},
	},
	Required: []string{"month", "users", "revenue"},
}

// AnalysisSchema describes the deep-dive analysis.
var AnalysisSchema = &jsonschema.Schema{
	Type: "object",
	Properties: map[string]*jsonschema.Schema{
		"marketVerdict": nonEmpty(),
		"swot": {
			Type: "object",
			Properties: map[string]*jsonschema.Schema{
				"strengths":     strList(),
				"weaknesses":    strList(),
				"opportunities": strList(),
				"threats":       strList(),
			},
			Required: []string{"strengths", "weaknesses", "opportunities", "threats"},
		},
		"growthProjection": {
			Type:     "array",
			Items:    growthPointSchema,
			MinItems: ptr(idea.ProjectionMonths),
			MaxItems: ptr(idea.ProjectionMonths),
		},
	},
	Required: []string{"marketVerdict", "swot", "growthProjection"},
}

// AppNamesSchema describes a naming result.
var AppNamesSchema = &jsonschema.Schema{
	Type: "object",
	Properties: map[string]*jsonschema.Schema{
		"names": {
			Type: "array",
			Items: &jsonschema.Schema{
				Type: "object",
				Properties: map[string]*jsonschema.Schema{
					"name":      nonEmpty(),
					"style":     nonEmpty(),
					"available": {Type: "boolean"},
				},
				Required: []string{"name", "style", "available"},
			},
		},
	},
	Required: []string{"names"},
}

// MarketingCopySchema describes launch copy.
var MarketingCopySchema = &jsonschema.Schema{
	Type: "object",
	Properties: map[string]*jsonschema.Schema{
		"appStoreDescription": {
			Type: "object",
			Properties: map[string]*jsonschema.Schema{
				"short": {Type: "string", MinLength: ptr(1), MaxLength: ptr(80)},
				"full":  nonEmpty(),
			},
			Required: []string{"short", "full"},
		},
		"taglines": {Type: "array", Items: str(), MaxItems: ptr(5)},
		"socialPosts": {
			Type: "object",
			Properties: map[string]*jsonschema.Schema{
				"twitter":   nonEmpty(),
				"instagram": nonEmpty(),
				"linkedIn":  nonEmpty(),
			},
			Required: []string{"twitter", "instagram", "linkedIn"},
		},
		"pressRelease": nonEmpty(),
	},
	Required: []string{"appStoreDescription", "taglines", "socialPosts", "pressRelease"},
}

// featureSchema returns a fresh value per use; resolved schemas must form a tree.
func featureSchema() *jsonschema.Schema {
	return &jsonschema.Schema{
		Type: "object",
		Properties: map[string]*jsonschema.Schema{
			"name":        nonEmpty(),
			"description": str(),
			"effort":      levelSchema(),
			"impact":      levelSchema(),
		},
		Required: []string{"name", "description", "effort", "impact"},
	}
}

// MVPPlanSchema describes a MoSCoW feature plan.
var MVPPlanSchema = &jsonschema.Schema{
	Type: "object",
	Properties: map[string]*jsonschema.Schema{
		"mustHave":          {Type: "array", Items: featureSchema()},
		"shouldHave":        {Type: "array", Items: featureSchema()},
		"niceToHave":        {Type: "array", Items: featureSchema()},
		"estimatedMVPWeeks": {Type: "integer", Minimum: ptr(1.0)},
		"techStack":         strList(),
	},
	Required: []string{"mustHave", "shouldHave", "niceToHave", "estimatedMVPWeeks", "techStack"},
}

var (
	resolvedIdea      = mustResolve(IdeaSchema)
	resolvedAnalysis  = mustResolve(AnalysisSchema)
	resolvedAppNames  = mustResolve(AppNamesSchema)
	resolvedMarketing = mustResolve(MarketingCopySchema)
	resolvedMVPPlan   = mustResolve(MVPPlanSchema)
)

func mustResolve(s *jsonschema.Schema) *jsonschema.Resolved {
	r, err := s.Resolve(nil)
	if err != nil {
		panic("normalize: resolve schema: " + err.Error())
	}
	return r
}
