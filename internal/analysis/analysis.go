// Package analysis drives every model-backed operation: idea batches, refined
// ideas, market analysis, names, marketing copy, MVP plans and concept images.
//
// Model and normalization failures are not errors. They are logged and the
// operation returns an empty batch or a nil result, so surfaces can show an
// empty state. The errors an operation does return are license denials,
// context cancellation and storage failures.
package analysis

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"

	"github.com/samber/lo"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/letieu/strategia/internal/idea"
	"github.com/letieu/strategia/internal/imagegen"
	"github.com/letieu/strategia/internal/library"
	"github.com/letieu/strategia/internal/license"
	"github.com/letieu/strategia/internal/llm"
	"github.com/letieu/strategia/internal/normalize"
	"github.com/letieu/strategia/internal/prompt"
)

var (
	ErrImagesDisabled = errors.New("image generation is not configured")
	ErrCompareCount   = errors.New("compare needs 2 or 3 distinct ideas")
)

// imageWorkers bounds concurrent image requests.
const imageWorkers = 4

type Analyzer struct {
	client   llm.Client
	licenses *license.Manager
	library  *library.Library
	images   imagegen.Generator
	ids      *idea.IDSource
	logger   *zap.Logger

	busyMu sync.Mutex
	busy   map[string]struct{}
}

type Option func(*Analyzer)

func WithImages(g imagegen.Generator) Option {
	return func(a *Analyzer) { a.images = g }
}

func WithIDSource(ids *idea.IDSource) Option {
	return func(a *Analyzer) { a.ids = ids }
}

func New(client llm.Client, licenses *license.Manager, lib *library.Library, logger *zap.Logger, opts ...Option) *Analyzer {
	a := &Analyzer{
		client:   client,
		licenses: licenses,
		library:  lib,
		ids:      idea.NewIDSource(nil),
		logger:   logger,
		busy:     map[string]struct{}{},
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// invoke runs p and returns the raw text. A failed call yields "" and is only
// logged, unless ctx itself is done.
func (a *Analyzer) invoke(ctx context.Context, p prompt.Prompt) (string, error) {
	resp, err := a.client.Generate(ctx, llm.Request{
		System:      p.System,
		Prompt:      p.Text,
		Temperature: p.Temperature,
		MaxTokens:   p.MaxTokens,
		Schema:      p.Schema,
	})
	if err != nil {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		a.logger.Warn("model call failed", zap.String("task", p.Name), zap.Error(err))
		return "", nil
	}
	return resp.Text, nil
}

func (a *Analyzer) recordGeneration(ctx context.Context) {
	if err := a.licenses.RecordGeneration(ctx); err != nil {
		a.logger.Warn("record generation", zap.Error(err))
	}
}

// GenerateIdeas asks for a fresh batch, optionally focused on one category.
// A non-empty batch counts against the daily quota and replaces the current
// set.
func (a *Analyzer) GenerateIdeas(ctx context.Context, category idea.Category) ([]idea.Idea, error) {
	if err := a.licenses.Check(ctx, license.Generate); err != nil {
		return nil, err
	}
	p, err := prompt.Ideas(category)
	if err != nil {
		return nil, err
	}
	text, err := a.invoke(ctx, p)
	if err != nil {
		return nil, err
	}

	ideas, err := normalize.Ideas(text)
	if err != nil {
		if text != "" {
			a.logger.Warn("unusable idea batch", zap.Error(err), zap.Int("chars", len(text)))
		}
		return []idea.Idea{}, nil
	}
	for i, id := range a.ids.Batch(len(ideas)) {
		ideas[i].ID = id
	}

	a.recordGeneration(ctx)
	if err := a.library.SetCurrent(ctx, ideas); err != nil {
		a.logger.Warn("store current ideas", zap.Error(err))
	}
	a.logger.Info("generated ideas",
		zap.String("category", string(category)),
		zap.Int("count", len(ideas)),
	)
	return ideas, nil
}

// RefineIdea turns free-form text into one structured idea. It returns nil
// when the model produced nothing usable.
func (a *Analyzer) RefineIdea(ctx context.Context, input string) (*idea.Idea, error) {
	if err := a.licenses.Check(ctx, license.Generate); err != nil {
		return nil, err
	}
	p, err := prompt.Refine(input)
	if err != nil {
		return nil, err
	}
	text, err := a.invoke(ctx, p)
	if err != nil {
		return nil, err
	}

	it, err := normalize.Idea(text)
	if err != nil {
		if text != "" {
			a.logger.Warn("unusable refined idea", zap.Error(err))
		}
		return nil, nil
	}
	it.ID = a.ids.Custom()

	a.recordGeneration(ctx)
	if err := a.library.SetCurrent(ctx, []idea.Idea{it}); err != nil {
		a.logger.Warn("store current ideas", zap.Error(err))
	}
	return &it, nil
}

// AnalyzeIdea produces the SWOT and growth projection for it. The result
// becomes the selected analysis.
func (a *Analyzer) AnalyzeIdea(ctx context.Context, it idea.Idea) (*idea.Analysis, error) {
	if err := a.licenses.Check(ctx, license.FeatureAction(license.DeepAnalysis)); err != nil {
		return nil, err
	}
	p, err := prompt.Analysis(it)
	if err != nil {
		return nil, err
	}
	text, err := a.invoke(ctx, p)
	if err != nil {
		return nil, err
	}

	res, err := normalize.Analysis(text)
	if err != nil {
		if text != "" {
			a.logger.Warn("unusable analysis", zap.String("idea", it.ID), zap.Error(err))
		}
		return nil, nil
	}
	res.IdeaID = it.ID
	if res.ProjectionMissing {
		a.logger.Info("analysis has no growth projection", zap.String("idea", it.ID))
	}
	if err := a.library.SetSelectedAnalysis(ctx, &res); err != nil {
		a.logger.Warn("store selected analysis", zap.Error(err))
	}
	return &res, nil
}

func (a *Analyzer) GenerateAppNames(ctx context.Context, it idea.Idea) (*idea.AppNames, error) {
	p, err := prompt.AppNames(it)
	if err != nil {
		return nil, err
	}
	text, err := a.invoke(ctx, p)
	if err != nil {
		return nil, err
	}
	names, err := normalize.AppNames(text)
	if err != nil {
		if text != "" {
			a.logger.Warn("unusable app names", zap.String("idea", it.ID), zap.Error(err))
		}
		return nil, nil
	}
	return &names, nil
}

func (a *Analyzer) GenerateMarketingCopy(ctx context.Context, it idea.Idea) (*idea.MarketingCopy, error) {
	p, err := prompt.MarketingCopy(it)
	if err != nil {
		return nil, err
	}
	text, err := a.invoke(ctx, p)
	if err != nil {
		return nil, err
	}
	mc, err := normalize.MarketingCopy(text, it)
	if err != nil {
		if text != "" {
			a.logger.Warn("unusable marketing copy", zap.String("idea", it.ID), zap.Error(err))
		}
		return nil, nil
	}
	return &mc, nil
}

func (a *Analyzer) GenerateMVPPlan(ctx context.Context, it idea.Idea) (*idea.MVPPlan, error) {
	p, err := prompt.MVPPlan(it)
	if err != nil {
		return nil, err
	}
	text, err := a.invoke(ctx, p)
	if err != nil {
		return nil, err
	}
	plan, err := normalize.MVPPlan(text)
	if err != nil {
		if text != "" {
			a.logger.Warn("unusable MVP plan", zap.String("idea", it.ID), zap.Error(err))
		}
		return nil, nil
	}
	return &plan, nil
}

// Busy reports whether an image is being generated for the idea.
func (a *Analyzer) Busy(id string) bool {
	a.busyMu.Lock()
	defer a.busyMu.Unlock()
	_, ok := a.busy[id]
	return ok
}

func (a *Analyzer) acquire(id string) bool {
	a.busyMu.Lock()
	defer a.busyMu.Unlock()
	if _, ok := a.busy[id]; ok {
		return false
	}
	a.busy[id] = struct{}{}
	return true
}

func (a *Analyzer) release(id string) {
	a.busyMu.Lock()
	defer a.busyMu.Unlock()
	delete(a.busy, id)
}

// GenerateImages attaches concept art to each idea in parallel. Ideas whose
// image already is in flight, or whose generation fails, come back unchanged.
// The updated ideas are written back to the current and saved sets.
func (a *Analyzer) GenerateImages(ctx context.Context, ideas []idea.Idea) ([]idea.Idea, error) {
	if err := a.licenses.Check(ctx, license.FeatureAction(license.ImageGeneration)); err != nil {
		return nil, err
	}
	if a.images == nil {
		return nil, ErrImagesDisabled
	}

	out := slices.Clone(ideas)
	updated := make([]bool, len(out))

	var g errgroup.Group
	g.SetLimit(imageWorkers)
	for i := range out {
		id := out[i].ID
		if !a.acquire(id) {
			a.logger.Debug("image already in progress", zap.String("idea", id))
			continue
		}
		g.Go(func() error {
			defer a.release(id)
			u, err := a.images.Generate(ctx, out[i])
			if err != nil {
				a.logger.Warn("image generation failed", zap.String("idea", id), zap.Error(err))
				return nil
			}
			out[i].ImageURL = u
			updated[i] = true
			return nil
		})
	}
	g.Wait()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	changed := lo.Filter(out, func(_ idea.Idea, i int) bool { return updated[i] })
	if err := a.library.Update(ctx, changed...); err != nil {
		a.logger.Warn("store images", zap.Error(err))
	}
	return out, nil
}

// Metric is a comparable score of an idea.
type Metric string

const (
	Virality  Metric = "virality"
	Revenue   Metric = "revenue"
	YearUsers Metric = "users"
)

var Metrics = []Metric{Virality, Revenue, YearUsers}

// MaxCompare is the most ideas one comparison holds.
const MaxCompare = 3

// Comparison lists ideas side by side with the winning idea per metric.
type Comparison struct {
	Ideas   []idea.Idea       `json:"ideas"`
	Winners map[Metric]string `json:"winners"`
}

func metricValue(it idea.Idea, m Metric) int64 {
	switch m {
	case Virality:
		return int64(it.ViralityScore)
	case Revenue:
		return int64(it.AdRevenuePotential)
	case YearUsers:
		return it.EstimatedYearOneUsers
	}
	return 0
}

// Compare puts two or three ideas side by side. Ties go to the idea listed
// first.
func (a *Analyzer) Compare(ctx context.Context, ideas []idea.Idea) (*Comparison, error) {
	if err := a.licenses.Check(ctx, license.FeatureAction(license.Comparison)); err != nil {
		return nil, err
	}
	return Compare(ideas)
}

func Compare(ideas []idea.Idea) (*Comparison, error) {
	ideas = lo.UniqBy(ideas, func(it idea.Idea) string { return it.ID })
	if len(ideas) < 2 || len(ideas) > MaxCompare {
		return nil, fmt.Errorf("%w, got %d", ErrCompareCount, len(ideas))
	}
	c := &Comparison{Ideas: ideas, Winners: make(map[Metric]string, len(Metrics))}
	for _, m := range Metrics {
		best := lo.MaxBy(ideas, func(x, y idea.Idea) bool {
			return metricValue(x, m) > metricValue(y, m)
		})
		c.Winners[m] = best.ID
	}
	return c, nil
}
