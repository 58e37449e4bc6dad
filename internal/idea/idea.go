package idea

import (
	"fmt"
	"strings"
	"sync"
	"time"
)

// Category is one of the fixed app categories an idea can belong to.
type Category string

const (
	HyperCasualGame Category = "Hyper-Casual Game"
	SocialUtility   Category = "Social Utility"
	AIProductivity  Category = "AI Productivity"
	HealthWellness  Category = "Health & Wellness"
	Entertainment   Category = "Entertainment"

	// All is only valid as a generation filter.
	All Category = "All"
)

// Categories lists the closed set in display order.
var Categories = []Category{
	HyperCasualGame,
	SocialUtility,
	AIProductivity,
	HealthWellness,
	Entertainment,
}

// ParseCategory matches s against the closed set, ignoring case and
// surrounding whitespace.
func ParseCategory(s string) (Category, bool) {
	s = strings.TrimSpace(s)
	for _, c := range Categories {
		if strings.EqualFold(string(c), s) {
			return c, true
		}
	}
	return "", false
}

// ParseFilter accepts any category plus All. Empty means All.
func ParseFilter(s string) (Category, error) {
	if strings.TrimSpace(s) == "" || strings.EqualFold(strings.TrimSpace(s), string(All)) {
		return All, nil
	}
	c, ok := ParseCategory(s)
	if !ok {
		return "", fmt.Errorf("unknown category %q", s)
	}
	return c, nil
}

// Idea represents one generated app-business concept.
type Idea struct {
	ID                    string   `json:"id" yaml:"id"`
	Title                 string   `json:"title" yaml:"title"`
	Tagline               string   `json:"tagline" yaml:"tagline"`
	Description           string   `json:"description" yaml:"description"`
	Category              Category `json:"category" yaml:"category"`
	ViralMechanic         string   `json:"viralMechanic" yaml:"viralMechanic"`
	MonetizationStrategy  string   `json:"monetizationStrategy" yaml:"monetizationStrategy"`
	EstimatedYearOneUsers int64    `json:"estimatedYearOneUsers" yaml:"estimatedYearOneUsers"`
	ViralityScore         int      `json:"viralityScore" yaml:"viralityScore"`
	AdRevenuePotential    int      `json:"adRevenuePotential" yaml:"adRevenuePotential"`
	ImageURL              string   `json:"imageUrl,omitempty" yaml:"imageUrl,omitempty"`
}

// GrowthPoint is one month of a growth projection.
type GrowthPoint struct {
	Month   string  `json:"month" yaml:"month"`
	Users   int64   `json:"users" yaml:"users"`
	Revenue float64 `json:"revenue" yaml:"revenue"`
}

// SWOT holds the four lists of a strengths/weaknesses/opportunities/threats analysis.
type SWOT struct {
	Strengths     []string `json:"strengths" yaml:"strengths"`
	Weaknesses    []string `json:"weaknesses" yaml:"weaknesses"`
	Opportunities []string `json:"opportunities" yaml:"opportunities"`
	Threats       []string `json:"threats" yaml:"threats"`
}

// ProjectionMonths is the fixed length of every growth projection.
const ProjectionMonths = 12

// Analysis is the deep-dive result owned by the selected idea.
type Analysis struct {
	IdeaID           string        `json:"ideaId" yaml:"ideaId"`
	MarketVerdict    string        `json:"marketVerdict" yaml:"marketVerdict"`
	SWOT             SWOT          `json:"swot" yaml:"swot"`
	GrowthProjection []GrowthPoint `json:"growthProjection" yaml:"growthProjection"`

	// ProjectionMissing is set when the model returned no growth series and
	// the projection holds zero placeholders rather than estimates.
	ProjectionMissing bool `json:"projectionMissing,omitempty" yaml:"projectionMissing,omitempty"`
}

// AppName is one branding suggestion.
type AppName struct {
	Name      string `json:"name" yaml:"name"`
	Style     string `json:"style" yaml:"style"`
	Available bool   `json:"available" yaml:"available"`
}

// AppNames is the result of a naming request.
type AppNames struct {
	Names []AppName `json:"names" yaml:"names"`
}

type AppStoreDescription struct {
	Short string `json:"short" yaml:"short"`
	Full  string `json:"full" yaml:"full"`
}

type SocialPosts struct {
	Twitter   string `json:"twitter" yaml:"twitter"`
	Instagram string `json:"instagram" yaml:"instagram"`
	LinkedIn  string `json:"linkedIn" yaml:"linkedIn"`
}

// MarketingCopy is the launch copy generated for an idea.
type MarketingCopy struct {
	AppStoreDescription AppStoreDescription `json:"appStoreDescription" yaml:"appStoreDescription"`
	Taglines            []string            `json:"taglines" yaml:"taglines"`
	SocialPosts         SocialPosts         `json:"socialPosts" yaml:"socialPosts"`
	PressRelease        string              `json:"pressRelease" yaml:"pressRelease"`
}

// Level is a coarse Low/Medium/High rating.
type Level string

const (
	Low    Level = "Low"
	Medium Level = "Medium"
	High   Level = "High"
)

// ParseLevel returns Medium for anything outside the three levels.
func ParseLevel(s string) Level {
	switch Level(strings.TrimSpace(s)) {
	case Low:
		return Low
	case High:
		return High
	case Medium:
		return Medium
	}
	return Medium
}

type MVPFeature struct {
	Name        string `json:"name" yaml:"name"`
	Description string `json:"description" yaml:"description"`
	Effort      Level  `json:"effort" yaml:"effort"`
	Impact      Level  `json:"impact" yaml:"impact"`
}

// MVPPlan is a MoSCoW-prioritised feature plan.
type MVPPlan struct {
	MustHave          []MVPFeature `json:"mustHave" yaml:"mustHave"`
	ShouldHave        []MVPFeature `json:"shouldHave" yaml:"shouldHave"`
	NiceToHave        []MVPFeature `json:"niceToHave" yaml:"niceToHave"`
	EstimatedMVPWeeks int          `json:"estimatedMVPWeeks" yaml:"estimatedMVPWeeks"`
	TechStack         []string     `json:"techStack" yaml:"techStack"`
}

// IDSource hands out idea identifiers built from a timestamp and a sequence.
// Two batches generated within the same millisecond still get distinct IDs.
type IDSource struct {
	mu   sync.Mutex
	now  func() time.Time
	last int64
}

func NewIDSource(now func() time.Time) *IDSource {
	if now == nil {
		now = time.Now
	}
	return &IDSource{now: now}
}

func (s *IDSource) stamp() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	ms := s.now().UnixMilli()
	if ms <= s.last {
		ms = s.last + 1
	}
	s.last = ms
	return ms
}

// Batch returns n identifiers of the form idea-<millis>-<index>.
func (s *IDSource) Batch(n int) []string {
	ms := s.stamp()
	ids := make([]string, n)
	for i := range ids {
		ids[i] = fmt.Sprintf("idea-%d-%d", ms, i)
	}
	return ids
}

// Custom returns an identifier for a refined user idea.
func (s *IDSource) Custom() string {
	return fmt.Sprintf("custom-%d", s.stamp())
}
