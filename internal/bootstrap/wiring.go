package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"golang.org/x/time/rate"

	"github.com/at-ishikawa/cantocards/internal/assets"
	"github.com/at-ishikawa/cantocards/internal/config"
	"github.com/at-ishikawa/cantocards/internal/corpus"
	"github.com/at-ishikawa/cantocards/internal/database"
	"github.com/at-ishikawa/cantocards/internal/embedding"
	"github.com/at-ishikawa/cantocards/internal/generator"
	"github.com/at-ishikawa/cantocards/internal/inference"
	"github.com/at-ishikawa/cantocards/internal/inference/anthropic"
	"github.com/at-ishikawa/cantocards/internal/inference/gemini"
	"github.com/at-ishikawa/cantocards/internal/inference/openai"
	"github.com/at-ishikawa/cantocards/internal/pipeline"
	"github.com/at-ishikawa/cantocards/internal/record"
	"github.com/at-ishikawa/cantocards/internal/script"
)

// Closers collects resources to release when a command finishes.
type Closers []func() error

func (c Closers) Close() error {
	var errs []error
	for i := len(c) - 1; i >= 0; i-- {
		errs = append(errs, c[i]())
	}
	return errors.Join(errs...)
}

// OpenStore opens the configured result store. SQLite stores are migrated
// on open; MySQL schemas are managed with the migrate command.
func OpenStore(ctx context.Context, cfg *config.Config) (record.Repository, func() error, error) {
	if cfg.Store.Driver == "memory" {
		slog.Default().Warn("records are kept in memory and lost when the command exits")
		return record.NewMemoryRepository(), func() error { return nil }, nil
	}

	db, dialect, err := database.OpenStore(cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("database.OpenStore() > %w", err)
	}
	if dialect == database.DialectSQLite {
		if _, err := database.Migrate(ctx, db, dialect); err != nil {
			_ = db.Close()
			return nil, nil, fmt.Errorf("database.Migrate() > %w", err)
		}
	}
	return record.NewDBRepository(db), db.Close, nil
}

func NewNormalizer(cfg *config.Config) (*script.Normalizer, error) {
	table := script.DefaultTable()
	if cfg.Script.CEDICTFile == "" {
		return script.NewNormalizer(table), nil
	}

	file, err := os.Open(cfg.Script.CEDICTFile)
	if err != nil {
		return nil, fmt.Errorf("os.Open(%s) > %w", cfg.Script.CEDICTFile, err)
	}
	defer file.Close()

	added, err := table.MergeCEDICT(file)
	if err != nil {
		return nil, fmt.Errorf("table.MergeCEDICT() > %w", err)
	}
	slog.Default().Debug("merged CC-CEDICT characters", slog.Int("added", added))
	return script.NewNormalizer(table), nil
}

func NewEmbedder(ctx context.Context, cfg *config.Config) (embedding.Embedder, error) {
	switch cfg.Embedding.Provider {
	case "gemini":
		return embedding.NewGenAIEmbedder(ctx, cfg.Gemini.APIKey, cfg.Embedding.Model, cfg.Gemini.BaseURL)
	case "openai":
		if cfg.OpenAI.APIKey == "" {
			return nil, errors.New("OPENAI_API_KEY environment variable is required")
		}
		return embedding.NewOpenAIEmbedder(cfg.OpenAI.APIKey, cfg.Embedding.Model, cfg.OpenAI.BaseURL), nil
	default:
		return nil, nil
	}
}

func OpenIndex(ctx context.Context, cfg *config.Config) (*corpus.Index, error) {
	embedder, err := NewEmbedder(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("NewEmbedder() > %w", err)
	}
	index, err := corpus.Open(ctx, cfg.Corpus.IndexFile, embedder, cfg.Corpus.DistanceThreshold)
	if err != nil {
		return nil, fmt.Errorf("corpus.Open(%s) > %w", cfg.Corpus.IndexFile, err)
	}
	return index, nil
}

func NewBackend(ctx context.Context, cfg *config.Config, provider, model string) (inference.Backend, error) {
	switch provider {
	case "gemini":
		var opts []gemini.Option
		if cfg.Gemini.BlockNone {
			opts = append(opts, gemini.WithBlockNone())
		}
		return gemini.NewClient(ctx, cfg.Gemini.APIKey, model, cfg.Gemini.BaseURL, opts...)
	case "anthropic":
		if cfg.Anthropic.APIKey == "" {
			return nil, errors.New("ANTHROPIC_API_KEY environment variable is required")
		}
		return anthropic.NewClient(cfg.Anthropic.APIKey, model, cfg.Anthropic.BaseURL), nil
	case "openai":
		if cfg.OpenAI.APIKey == "" {
			return nil, errors.New("OPENAI_API_KEY environment variable is required")
		}
		return openai.NewClient(cfg.OpenAI.APIKey, model, cfg.OpenAI.BaseURL), nil
	default:
		return nil, fmt.Errorf("unknown provider: %s", provider)
	}
}

// NewLimiter spaces every generator call of the process by interval.
func NewLimiter(cfg *config.Config) *rate.Limiter {
	if cfg.Pipeline.RequestInterval <= 0 {
		return rate.NewLimiter(rate.Inf, 1)
	}
	return rate.NewLimiter(rate.Every(cfg.Pipeline.RequestInterval), 1)
}

// NewOrchestrator wires the pipeline. Closing the returned Closers releases
// the corpus index.
func NewOrchestrator(ctx context.Context, cfg *config.Config, prompts *assets.PromptSet, store record.Repository) (*pipeline.Orchestrator, Closers, error) {
	var cleanup Closers

	normalizer, err := NewNormalizer(cfg)
	if err != nil {
		return nil, cleanup, fmt.Errorf("NewNormalizer() > %w", err)
	}

	index, err := OpenIndex(ctx, cfg)
	if err != nil {
		return nil, cleanup, err
	}
	cleanup = append(cleanup, index.Close)
	if count, err := index.Count(ctx); err != nil {
		return nil, cleanup, fmt.Errorf("index.Count() > %w", err)
	} else if count == 0 {
		slog.Default().Warn("the corpus index is empty, Cantonese sentences will not be grounded",
			slog.String("index_file", cfg.Corpus.IndexFile))
	}

	limiter := NewLimiter(cfg)
	mandarinBackend, err := NewBackend(ctx, cfg, cfg.Mandarin.Provider, cfg.Mandarin.Model)
	if err != nil {
		return nil, cleanup, fmt.Errorf("NewBackend(mandarin) > %w", err)
	}
	cantoneseBackend, err := NewBackend(ctx, cfg, cfg.Cantonese.Provider, cfg.Cantonese.Model)
	if err != nil {
		return nil, cleanup, fmt.Errorf("NewBackend(cantonese) > %w", err)
	}
	mandarinThrottled := inference.NewThrottled(mandarinBackend, limiter)
	cantoneseThrottled := inference.NewThrottled(cantoneseBackend, limiter)

	var cantoneseOpts []generator.CantoneseOption
	if cfg.Cantonese.MeaningHint {
		cantoneseOpts = append(cantoneseOpts, generator.WithMeaningHint(mandarinThrottled))
	}

	return pipeline.NewOrchestrator(
		normalizer,
		index,
		generator.NewMandarin(mandarinThrottled, prompts, generator.Settings{
			Temperature: cfg.Mandarin.Temperature,
			MaxTokens:   cfg.Mandarin.MaxTokens,
		}),
		generator.NewCantonese(cantoneseThrottled, prompts, generator.Settings{
			Temperature: cfg.Cantonese.Temperature,
			MaxTokens:   cfg.Cantonese.MaxTokens,
		}, cantoneseOpts...),
		store,
		pipeline.NewSettings(cfg),
	), cleanup, nil
}

func NewPromptSet(cfg *config.Config) (*assets.PromptSet, error) {
	prompts, err := assets.NewPromptSet(assets.PromptPaths{
		Mandarin:  cfg.Templates.MandarinPrompt,
		Cantonese: cfg.Templates.CantonesePrompt,
		Meaning:   cfg.Templates.MeaningPrompt,
	})
	if err != nil {
		return nil, fmt.Errorf("assets.NewPromptSet() > %w", err)
	}
	return prompts, nil
}
