// Package library keeps the user's ideas between runs: the saved set, the last
// generated batch, the selected analysis and display preferences.
package library

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"

	"github.com/samber/lo"
	"go.uber.org/zap"

	"github.com/letieu/strategia/internal/database"
	"github.com/letieu/strategia/internal/embeddings"
	"github.com/letieu/strategia/internal/idea"
	"github.com/letieu/strategia/internal/license"
)

// Storage keys.
const (
	SavedKey    = "savedIdeas"
	CurrentKey  = "currentIdeas"
	AnalysisKey = "selectedAnalysis"
	ThemeKey    = "theme"
)

var (
	ErrNotFound           = errors.New("idea not found")
	ErrSimilarityDisabled = errors.New("similar-idea lookup is not enabled")
)

// Sort orders a listing by score.
type Sort string

const (
	ViralityDesc Sort = "virality-desc"
	ViralityAsc  Sort = "virality-asc"
	RevenueDesc  Sort = "revenue-desc"
	RevenueAsc   Sort = "revenue-asc"
)

// DefaultSort is applied when a listing asks for none.
const DefaultSort = ViralityDesc

var Sorts = []Sort{ViralityDesc, ViralityAsc, RevenueDesc, RevenueAsc}

func ParseSort(s string) (Sort, error) {
	s = strings.TrimSpace(strings.ToLower(s))
	if s == "" {
		return DefaultSort, nil
	}
	if !slices.Contains(Sorts, Sort(s)) {
		return "", fmt.Errorf("unknown sort %q", s)
	}
	return Sort(s), nil
}

// List filters ideas by category and orders them. The input is not modified
// and ties keep their original order.
func List(ideas []idea.Idea, filter idea.Category, order Sort) []idea.Idea {
	out := lo.Filter(ideas, func(it idea.Idea, _ int) bool {
		return filter == idea.All || filter == "" || it.Category == filter
	})
	slices.SortStableFunc(out, func(a, b idea.Idea) int {
		switch order {
		case ViralityAsc:
			return a.ViralityScore - b.ViralityScore
		case RevenueDesc:
			return b.AdRevenuePotential - a.AdRevenuePotential
		case RevenueAsc:
			return a.AdRevenuePotential - b.AdRevenuePotential
		case ViralityDesc:
			return b.ViralityScore - a.ViralityScore
		}
		return 0
	})
	return out
}

type Theme string

const (
	Dark  Theme = "dark"
	Light Theme = "light"
)

func ParseTheme(s string) (Theme, error) {
	switch Theme(strings.ToLower(strings.TrimSpace(s))) {
	case Dark:
		return Dark, nil
	case Light:
		return Light, nil
	}
	return "", fmt.Errorf("theme must be dark or light, got %q", s)
}

// Match is a saved idea close to a query idea.
type Match struct {
	Idea     idea.Idea `json:"idea"`
	Distance float32   `json:"distance"`
}

// Library reads and writes the persisted idea collections.
type Library struct {
	store    database.Store
	licenses *license.Manager
	logger   *zap.Logger

	index    *database.VectorIndex
	embedder embeddings.Embedder
	limit    int

	// serialises read-modify-write of the saved set within this process
	mu sync.Mutex
}

type Option func(*Library)

// WithSimilarity indexes saved ideas so Similar can find neighbours.
func WithSimilarity(index *database.VectorIndex, embedder embeddings.Embedder, limit int) Option {
	return func(l *Library) {
		if index == nil || embedder == nil {
			return
		}
		l.index = index
		l.embedder = embedder
		if limit > 0 {
			l.limit = limit
		}
	}
}

func New(store database.Store, licenses *license.Manager, logger *zap.Logger, opts ...Option) *Library {
	l := &Library{store: store, licenses: licenses, logger: logger, limit: 5}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

func (l *Library) ideas(ctx context.Context, key string) []idea.Idea {
	var out []idea.Idea
	if _, err := database.GetJSON(ctx, l.store, key, &out); err != nil {
		l.logger.Debug("read ideas", zap.String("key", key), zap.Error(err))
		return nil
	}
	return out
}

// Saved returns the saved set in the order ideas were saved.
func (l *Library) Saved(ctx context.Context) []idea.Idea {
	return l.ideas(ctx, SavedKey)
}

func (l *Library) IsSaved(ctx context.Context, id string) bool {
	return lo.ContainsBy(l.Saved(ctx), func(it idea.Idea) bool { return it.ID == id })
}

// SavedIdea looks up one saved idea.
func (l *Library) SavedIdea(ctx context.Context, id string) (idea.Idea, error) {
	it, ok := lo.Find(l.Saved(ctx), func(it idea.Idea) bool { return it.ID == id })
	if !ok {
		return idea.Idea{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return it, nil
}

// Save adds it to the saved set. Saving an idea that is already saved is a
// no-op and does not count against the free-tier ceiling.
func (l *Library) Save(ctx context.Context, it idea.Idea) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.save(ctx, it)
}

func (l *Library) save(ctx context.Context, it idea.Idea) error {
	saved := l.Saved(ctx)
	if lo.ContainsBy(saved, func(s idea.Idea) bool { return s.ID == it.ID }) {
		return nil
	}
	if err := l.licenses.Check(ctx, license.Save); err != nil {
		return err
	}

	saved = append(saved, it)
	if err := l.putSaved(ctx, saved); err != nil {
		return err
	}
	l.indexIdea(ctx, it)
	return nil
}

// Unsave removes the idea with the given id from the saved set.
func (l *Library) Unsave(ctx context.Context, id string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.unsave(ctx, id)
}

func (l *Library) unsave(ctx context.Context, id string) error {
	saved := l.Saved(ctx)
	kept := lo.Reject(saved, func(s idea.Idea, _ int) bool { return s.ID == id })
	if len(kept) == len(saved) {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err := l.putSaved(ctx, kept); err != nil {
		return err
	}
	if l.index != nil {
		if err := l.index.Remove(ctx, id); err != nil {
			l.logger.Warn("remove embedding", zap.String("idea", id), zap.Error(err))
		}
	}
	return nil
}

// Toggle saves it when absent and removes it when present. It reports whether
// the idea is saved afterwards.
func (l *Library) Toggle(ctx context.Context, it idea.Idea) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.IsSaved(ctx, it.ID) {
		return false, l.unsave(ctx, it.ID)
	}
	if err := l.save(ctx, it); err != nil {
		return false, err
	}
	return true, nil
}

func (l *Library) putSaved(ctx context.Context, saved []idea.Idea) error {
	if err := database.PutJSON(ctx, l.store, SavedKey, saved); err != nil {
		return fmt.Errorf("store saved ideas: %w", err)
	}
	if err := l.licenses.UpdateSavedCount(ctx, len(saved)); err != nil {
		l.logger.Warn("update saved count", zap.Error(err))
	}
	return nil
}

// Current returns the most recently generated batch.
func (l *Library) Current(ctx context.Context) []idea.Idea {
	return l.ideas(ctx, CurrentKey)
}

func (l *Library) SetCurrent(ctx context.Context, ideas []idea.Idea) error {
	if ideas == nil {
		ideas = []idea.Idea{}
	}
	if err := database.PutJSON(ctx, l.store, CurrentKey, ideas); err != nil {
		return fmt.Errorf("store current ideas: %w", err)
	}
	return nil
}

// Find looks an idea up in the current batch first, then in the saved set.
func (l *Library) Find(ctx context.Context, id string) (idea.Idea, error) {
	if it, ok := lo.Find(l.Current(ctx), func(it idea.Idea) bool { return it.ID == id }); ok {
		return it, nil
	}
	return l.SavedIdea(ctx, id)
}

// Update replaces the stored copies of it in both collections, e.g. after an
// image was generated for it. Ideas that are stored nowhere are ignored.
func (l *Library) Update(ctx context.Context, updated ...idea.Idea) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	byID := lo.KeyBy(updated, func(it idea.Idea) string { return it.ID })
	replace := func(list []idea.Idea) ([]idea.Idea, bool) {
		changed := false
		for i, it := range list {
			if u, ok := byID[it.ID]; ok {
				list[i] = u
				changed = true
			}
		}
		return list, changed
	}

	if current, changed := replace(l.Current(ctx)); changed {
		if err := l.SetCurrent(ctx, current); err != nil {
			return err
		}
	}
	if saved, changed := replace(l.Saved(ctx)); changed {
		if err := database.PutJSON(ctx, l.store, SavedKey, saved); err != nil {
			return fmt.Errorf("store saved ideas: %w", err)
		}
	}
	return nil
}

// SelectedAnalysis returns the analysis last produced, or nil.
func (l *Library) SelectedAnalysis(ctx context.Context) *idea.Analysis {
	var a idea.Analysis
	ok, err := database.GetJSON(ctx, l.store, AnalysisKey, &a)
	if err != nil {
		l.logger.Debug("read selected analysis", zap.Error(err))
	}
	if !ok {
		return nil
	}
	return &a
}

func (l *Library) SetSelectedAnalysis(ctx context.Context, a *idea.Analysis) error {
	if a == nil {
		return l.store.Delete(ctx, AnalysisKey)
	}
	if err := database.PutJSON(ctx, l.store, AnalysisKey, a); err != nil {
		return fmt.Errorf("store selected analysis: %w", err)
	}
	return nil
}

// Theme returns the display theme, dark unless set otherwise.
func (l *Library) Theme(ctx context.Context) Theme {
	raw, ok, err := l.store.Get(ctx, ThemeKey)
	if err != nil {
		l.logger.Debug("read theme", zap.Error(err))
	}
	if !ok {
		return Dark
	}
	t, err := ParseTheme(raw)
	if err != nil {
		return Dark
	}
	return t
}

func (l *Library) SetTheme(ctx context.Context, t Theme) error {
	return l.store.Put(ctx, ThemeKey, string(t))
}

func (l *Library) indexIdea(ctx context.Context, it idea.Idea) {
	if l.index == nil {
		return
	}
	vec, err := l.embedder.Embed(ctx, embeddings.IdeaText(it))
	if err != nil {
		l.logger.Warn("embed idea", zap.String("idea", it.ID), zap.Error(err))
		return
	}
	if err := l.index.Upsert(ctx, it.ID, vec); err != nil {
		l.logger.Warn("index idea", zap.String("idea", it.ID), zap.Error(err))
	}
}

// Similar returns the saved ideas closest to the saved idea id, nearest
// first, excluding the idea itself.
func (l *Library) Similar(ctx context.Context, id string) ([]Match, error) {
	if l.index == nil {
		return nil, ErrSimilarityDisabled
	}
	it, err := l.SavedIdea(ctx, id)
	if err != nil {
		return nil, err
	}

	vec, ok, err := l.index.Embedding(ctx, id)
	if err != nil {
		return nil, err
	}
	if !ok {
		// Saved before similarity was enabled.
		if vec, err = l.embedder.Embed(ctx, embeddings.IdeaText(it)); err != nil {
			return nil, fmt.Errorf("embed idea: %w", err)
		}
		if err := l.index.Upsert(ctx, id, vec); err != nil {
			return nil, err
		}
	}

	neighbors, err := l.index.Nearest(ctx, vec, l.limit+1)
	if err != nil {
		return nil, err
	}

	byID := lo.KeyBy(l.Saved(ctx), func(it idea.Idea) string { return it.ID })
	matches := make([]Match, 0, len(neighbors))
	for _, n := range neighbors {
		s, ok := byID[n.Key]
		if !ok || n.Key == id {
			continue
		}
		matches = append(matches, Match{Idea: s, Distance: n.Distance})
		if len(matches) == l.limit {
			break
		}
	}
	return matches, nil
}
