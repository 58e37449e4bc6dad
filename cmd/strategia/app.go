package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/k0kubun/pp/v3"
	"go.uber.org/zap"

	"github.com/letieu/strategia/config"
	"github.com/letieu/strategia/internal/analysis"
	"github.com/letieu/strategia/internal/database"
	"github.com/letieu/strategia/internal/embeddings"
	"github.com/letieu/strategia/internal/export"
	"github.com/letieu/strategia/internal/imagegen"
	"github.com/letieu/strategia/internal/library"
	"github.com/letieu/strategia/internal/license"
	"github.com/letieu/strategia/internal/llm"
)

// model is the LLM handle the commands need.
type model interface {
	llm.Client
	Load(ctx context.Context) error
	Close() error
}

// newModel is replaced in tests.
var newModel = func(ctx context.Context, cfg *config.Config, logger *zap.Logger, progress func(string)) (model, error) {
	g, err := llm.New(ctx, cfg, logger, progress)
	if err != nil {
		return nil, err
	}
	return g, nil
}

// app holds the services behind every command.
type app struct {
	store    database.Store
	model    model
	licenses *license.Manager
	library  *library.Library
	analyzer *analysis.Analyzer
}

// openStore opens storage only, for commands that never call the model.
func openStore(ctx context.Context) (*app, error) {
	store, err := database.Open(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	a := &app{store: store, licenses: license.NewManager(store, logger)}

	var opts []library.Option
	if cfg.Similarity.Enabled {
		opt, err := similarity(ctx, store)
		if err != nil {
			store.Close()
			return nil, err
		}
		opts = append(opts, opt)
	}
	a.library = library.New(store, a.licenses, logger, opts...)
	return a, nil
}

func similarity(ctx context.Context, store database.Store) (library.Option, error) {
	db, ok := store.(*database.DB)
	if !ok {
		return nil, errors.New("similarity needs a sqlite database")
	}
	index, err := db.Vectors(ctx, cfg.Similarity.Dimensions)
	if err != nil {
		return nil, err
	}
	embedder, err := embeddings.New(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("create embedder: %w", err)
	}
	return library.WithSimilarity(index, embedder, cfg.Similarity.Limit), nil
}

// openApp opens storage and the model.
func openApp(ctx context.Context) (*app, error) {
	a, err := openStore(ctx)
	if err != nil {
		return nil, err
	}

	m, err := newModel(ctx, cfg, logger, func(msg string) {
		logger.Info("model", zap.String("progress", msg))
	})
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("create model: %w", err)
	}
	a.model = m
	if err := m.Load(ctx); err != nil {
		a.Close()
		return nil, fmt.Errorf("load model: %w", err)
	}

	images, err := imagegen.New(cfg, m, logger)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("create image generator: %w", err)
	}
	opts := []analysis.Option{}
	if images != nil {
		opts = append(opts, analysis.WithImages(images))
	}
	a.analyzer = analysis.New(m, a.licenses, a.library, logger, opts...)
	return a, nil
}

func (a *app) Close() {
	if a.model != nil {
		if err := a.model.Close(); err != nil {
			logger.Warn("close model", zap.Error(err))
		}
	}
	if err := a.store.Close(); err != nil {
		logger.Warn("close database", zap.Error(err))
	}
}

// terminal renders Markdown in the saved theme.
func (a *app) terminal(ctx context.Context) (*export.Terminal, error) {
	return export.NewTerminal(string(a.library.Theme(ctx)), 100)
}

// emit prints v as JSON or a pp dump when asked and reports whether it did.
func emit(w io.Writer, v any) (bool, error) {
	switch {
	case asJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return true, enc.Encode(v)
	case pretty:
		printer := pp.New()
		printer.SetOutput(w)
		_, err := printer.Println(v)
		return true, err
	}
	return false, nil
}

// show prints v as JSON, a pp dump, or else rendered Markdown.
func (a *app) show(ctx context.Context, w io.Writer, v any, markdown func() string) error {
	if done, err := emit(w, v); done {
		return err
	}
	term, err := a.terminal(ctx)
	if err != nil {
		return err
	}
	return term.Render(w, markdown())
}
