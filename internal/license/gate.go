// Package license decides what the current user may do. The free tier has a
// daily generation quota and a saved-idea ceiling; a license lifts both and
// unlocks every premium feature.
package license

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrQuotaExceeded = errors.New("free tier limit reached")
	ErrFeatureLocked = errors.New("feature requires a license")
	ErrInvalidKey    = errors.New("invalid license key")
)

const (
	FreeGenerationsPerDay = 3
	FreeSavedIdeas        = 3

	// Unlimited is what Remaining reports for licensed users.
	Unlimited = -1
)

// Feature names a premium capability.
type Feature string

const (
	UnlimitedGenerations Feature = "unlimited_generations"
	DeepAnalysis         Feature = "deep_analysis"
	ImageGeneration      Feature = "image_generation"
	Comparison           Feature = "comparison"
	Export               Feature = "export"
	UnlimitedSaves       Feature = "unlimited_saves"
)

var Features = []Feature{
	UnlimitedGenerations,
	DeepAnalysis,
	ImageGeneration,
	Comparison,
	Export,
	UnlimitedSaves,
}

// Action is what a caller wants to do: "generate", "save" or "feature:<name>".
type Action string

const (
	Generate Action = "generate"
	Save     Action = "save"
)

const featurePrefix = "feature:"

// FeatureAction returns the action that checks f.
func FeatureAction(f Feature) Action {
	return Action(featurePrefix + string(f))
}

// Gate is a snapshot of the inputs to the quota decision.
type Gate struct {
	Licensed bool
	Usage    Usage
}

// Allow reports whether action is permitted. Unknown actions are denied
// unless the user is licensed.
func (g Gate) Allow(action Action) bool {
	if g.Licensed {
		return true
	}
	switch action {
	case Generate:
		return g.Usage.GenerationsToday < FreeGenerationsPerDay
	case Save:
		return g.Usage.SavedIdeasCount < FreeSavedIdeas
	}
	return false
}

// Check is Allow with a reason: ErrQuotaExceeded for the metered actions and
// ErrFeatureLocked for premium features.
func (g Gate) Check(action Action) error {
	if g.Allow(action) {
		return nil
	}
	if f, ok := strings.CutPrefix(string(action), featurePrefix); ok {
		return fmt.Errorf("%w: %s", ErrFeatureLocked, f)
	}
	return fmt.Errorf("%w: %s", ErrQuotaExceeded, action)
}

// Remaining returns how many generations are left today, or Unlimited.
func (g Gate) Remaining() int {
	if g.Licensed {
		return Unlimited
	}
	return max(0, FreeGenerationsPerDay-g.Usage.GenerationsToday)
}
