package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/avast/retry-go"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/at-ishikawa/cantocards/internal/config"
	"github.com/at-ishikawa/cantocards/internal/corpus"
	"github.com/at-ishikawa/cantocards/internal/dictionary"
	"github.com/at-ishikawa/cantocards/internal/inference"
	"github.com/at-ishikawa/cantocards/internal/record"
	"github.com/at-ishikawa/cantocards/internal/vocab"
)

// Normalizer turns a raw input token into a vocabulary word.
type Normalizer interface {
	Word(raw string) vocab.Word
}

type MandarinGenerator interface {
	Generate(ctx context.Context, word vocab.Word, entries dictionary.RetrievalResult) (string, error)
}

// CantoneseGenerator must be given the Mandarin sentence of the same word.
type CantoneseGenerator interface {
	Generate(ctx context.Context, word vocab.Word, entries dictionary.RetrievalResult, mandarin string) (string, error)
}

// Settings control retries and batch scheduling.
type Settings struct {
	TopK           int
	MaxAttempts    uint
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
	// RequestTimeout bounds every single generator call and store write.
	RequestTimeout time.Duration
	Concurrency    int
	SkipExisting   bool
}

func NewSettings(cfg *config.Config) Settings {
	return Settings{
		TopK:           cfg.Corpus.TopK,
		MaxAttempts:    cfg.Pipeline.MaxAttempts,
		InitialBackoff: cfg.Pipeline.InitialBackoff,
		MaxBackoff:     cfg.Pipeline.MaxBackoff,
		RequestTimeout: cfg.Pipeline.RequestTimeout,
		Concurrency:    cfg.Pipeline.Concurrency,
		SkipExisting:   cfg.Pipeline.SkipExisting,
	}
}

// Outcome is the result of one word.
type Outcome struct {
	Word        vocab.Word
	State       State
	FailedStage Stage
	Reason      string
	Err         error
	// Attempts counts the calls made per stage, including retries.
	Attempts map[Stage]int
	Record   *record.GenerationRecord
}

func (o Outcome) Succeeded() bool {
	return o.State == StateCantoneseDone
}

// Failure identifies a word that has to be submitted again.
type Failure struct {
	Word   string `yaml:"word" json:"word"`
	Stage  Stage  `yaml:"stage" json:"stage"`
	Reason string `yaml:"reason" json:"reason"`
}

// Report summarizes a batch run.
type Report struct {
	RunID      string
	Total      int
	Completed  int
	Skipped    int
	Duplicates int
	Failures   []Failure
	// Interrupted is set when the run was canceled before every word started.
	Interrupted bool
}

// Orchestrator runs the pipeline. Backends are expected to share one
// rate limiter, see inference.NewThrottled.
type Orchestrator struct {
	normalizer Normalizer
	retriever  corpus.Retriever
	mandarin   MandarinGenerator
	cantonese  CantoneseGenerator
	store      record.Repository
	settings   Settings
}

func NewOrchestrator(
	normalizer Normalizer,
	retriever corpus.Retriever,
	mandarin MandarinGenerator,
	cantonese CantoneseGenerator,
	store record.Repository,
	settings Settings,
) *Orchestrator {
	if settings.MaxAttempts < 1 {
		settings.MaxAttempts = 1
	}
	if settings.Concurrency < 1 {
		settings.Concurrency = 1
	}
	return &Orchestrator{
		normalizer: normalizer,
		retriever:  retriever,
		mandarin:   mandarin,
		cantonese:  cantonese,
		store:      store,
		settings:   settings,
	}
}

// ProcessWord runs every stage for one word. It never stores a record
// unless both sentences were generated.
func (o *Orchestrator) ProcessWord(ctx context.Context, raw string) Outcome {
	outcome := Outcome{
		State:    StatePending,
		Attempts: make(map[Stage]int),
	}

	outcome.Word = o.normalizer.Word(raw)
	if outcome.Word.IsZero() {
		return outcome.fail(StageNormalize, errors.New("empty word"))
	}
	outcome.State = stateAfter[StageNormalize]

	var entries dictionary.RetrievalResult
	if err := o.call(ctx, &outcome, StageRetrieve, func(ctx context.Context) error {
		var err error
		entries, err = o.retriever.Lookup(ctx, outcome.Word.Traditional, o.settings.TopK)
		return err
	}); err != nil {
		return outcome.fail(StageRetrieve, err)
	}
	outcome.State = stateAfter[StageRetrieve]

	var mandarin string
	if err := o.call(ctx, &outcome, StageMandarin, func(ctx context.Context) error {
		var err error
		mandarin, err = o.mandarin.Generate(ctx, outcome.Word, entries)
		return err
	}); err != nil {
		return outcome.fail(StageMandarin, err)
	}
	outcome.State = stateAfter[StageMandarin]

	var cantonese string
	if err := o.call(ctx, &outcome, StageCantonese, func(ctx context.Context) error {
		var err error
		cantonese, err = o.cantonese.Generate(ctx, outcome.Word, entries, mandarin)
		return err
	}); err != nil {
		return outcome.fail(StageCantonese, err)
	}

	rec := &record.GenerationRecord{
		Word:              outcome.Word,
		MandarinSentence:  mandarin,
		CantoneseSentence: cantonese,
	}
	if err := o.call(ctx, &outcome, StagePersist, func(ctx context.Context) error {
		return o.store.Upsert(ctx, rec)
	}); err != nil {
		return outcome.fail(StagePersist, err)
	}
	outcome.State = stateAfter[StageCantonese]
	outcome.Record = rec
	return outcome
}

func (o Outcome) fail(stage Stage, err error) Outcome {
	o.State = StateFailed
	o.FailedStage = stage
	o.Err = err
	o.Reason = err.Error()
	return o
}

// call runs fn with a per-call timeout and retries transient failures with
// exponential backoff.
func (o *Orchestrator) call(ctx context.Context, outcome *Outcome, stage Stage, fn func(ctx context.Context) error) error {
	return retry.Do(
		func() error {
			outcome.Attempts[stage]++

			callCtx := ctx
			if o.settings.RequestTimeout > 0 {
				var cancel context.CancelFunc
				callCtx, cancel = context.WithTimeout(ctx, o.settings.RequestTimeout)
				defer cancel()
			}
			err := fn(callCtx)
			if err == nil {
				return nil
			}
			if !isTransient(err) {
				return retry.Unrecoverable(err)
			}
			slog.Default().Warn("retrying after a transient failure",
				slog.String("word", outcome.Word.Simplified),
				slog.String("stage", string(stage)),
				slog.Int("attempt", outcome.Attempts[stage]),
				slog.Any("error", err),
			)
			return err
		},
		retry.Context(ctx),
		retry.Attempts(o.settings.MaxAttempts),
		retry.Delay(o.settings.InitialBackoff),
		retry.MaxDelay(o.settings.MaxBackoff),
		retry.DelayType(retry.BackOffDelay),
		retry.LastErrorOnly(true),
	)
}

func isTransient(err error) bool {
	return inference.IsTransient(err) || record.IsTransient(err)
}

// Run processes a batch. Each word is processed once even if it appears
// several times. Cancellation of ctx stops the run between words; a word
// that has started is always finished so the store only ever holds
// complete records.
func (o *Orchestrator) Run(ctx context.Context, batch []string) Report {
	report := Report{
		RunID: uuid.NewString(),
		Total: len(batch),
	}
	logger := slog.Default().With(slog.String("run_id", report.RunID))
	logger.Info("starting a batch", slog.Int("words", len(batch)), slog.Int("concurrency", o.settings.Concurrency))

	var (
		mu       sync.Mutex
		failures = make(map[int]Failure)
	)
	seen := make(map[string]struct{}, len(batch))

	var g errgroup.Group
	g.SetLimit(o.settings.Concurrency)
	for i, raw := range batch {
		if ctx.Err() != nil {
			mu.Lock()
			report.Interrupted = true
			mu.Unlock()
			break
		}

		key := strings.TrimSpace(raw)
		if _, ok := seen[key]; ok {
			mu.Lock()
			report.Duplicates++
			mu.Unlock()
			continue
		}
		seen[key] = struct{}{}

		g.Go(func() error {
			// The slot may have been freed after the run was canceled.
			if ctx.Err() != nil {
				mu.Lock()
				report.Interrupted = true
				mu.Unlock()
				return nil
			}
			wordCtx := context.WithoutCancel(ctx)

			if o.settings.SkipExisting {
				existing, err := o.store.Get(wordCtx, o.normalizer.Word(raw).Simplified)
				if err == nil && existing != nil {
					mu.Lock()
					report.Skipped++
					mu.Unlock()
					logger.Info("skipped an existing word", slog.String("word", existing.Word.Simplified))
					return nil
				}
			}

			outcome := o.ProcessWord(wordCtx, raw)

			mu.Lock()
			defer mu.Unlock()
			if outcome.Succeeded() {
				report.Completed++
				logger.Info("generated sentences",
					slog.String("word", outcome.Word.Simplified),
					slog.String("mandarin", outcome.Record.MandarinSentence),
					slog.String("cantonese", outcome.Record.CantoneseSentence),
				)
				return nil
			}
			failures[i] = Failure{
				Word:   key,
				Stage:  outcome.FailedStage,
				Reason: outcome.Reason,
			}
			logger.Error("failed to generate sentences",
				slog.String("word", key),
				slog.String("stage", string(outcome.FailedStage)),
				slog.String("reason", outcome.Reason),
			)
			return nil
		})
	}
	_ = g.Wait()

	indexes := make([]int, 0, len(failures))
	for i := range failures {
		indexes = append(indexes, i)
	}
	sort.Ints(indexes)
	for _, i := range indexes {
		report.Failures = append(report.Failures, failures[i])
	}

	logger.Info("finished a batch",
		slog.Int("completed", report.Completed),
		slog.Int("skipped", report.Skipped),
		slog.Int("duplicates", report.Duplicates),
		slog.Int("failed", len(report.Failures)),
		slog.Bool("interrupted", report.Interrupted),
	)
	return report
}

func (r Report) String() string {
	return fmt.Sprintf("%d of %d words completed, %d skipped, %d duplicates, %d failed",
		r.Completed, r.Total, r.Skipped, r.Duplicates, len(r.Failures))
}
