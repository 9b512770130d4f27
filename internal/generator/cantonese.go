package generator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/at-ishikawa/cantocards/internal/assets"
	"github.com/at-ishikawa/cantocards/internal/dictionary"
	"github.com/at-ishikawa/cantocards/internal/inference"
	"github.com/at-ishikawa/cantocards/internal/vocab"
)

const (
	maxUsageExamples   = 5
	meaningTemperature = 0.2
	meaningMaxTokens   = 100
)

// Grounding is the part of the retrieved context the Cantonese prompt uses.
// Entry is nil when nothing was retrieved.
type Grounding struct {
	Entry         *dictionary.DictionaryEntry
	ExactMatch    bool
	Formal        bool
	Alternatives  []string
	UsageExamples []string
}

// SelectGrounding picks the entry for the word itself when it was retrieved,
// otherwise the most relevant entry. Usage examples come from the colloquial
// senses of the chosen headword, chosen entry first.
func SelectGrounding(word vocab.Word, entries dictionary.RetrievalResult) Grounding {
	if entries.IsEmpty() {
		return Grounding{}
	}

	best := 0
	exact := false
	for i, entry := range entries {
		if entry.HasHeadword(word.Traditional) || entry.HasHeadword(word.Simplified) {
			best = i
			exact = true
			break
		}
	}
	entry := entries[best]

	g := Grounding{
		Entry:      &entry,
		ExactMatch: exact,
		Formal:     entry.IsFormal(),
	}
	g.Alternatives = appendUnique(g.Alternatives, entry.Synonyms...)

	senses := make([]dictionary.DictionaryEntry, 0, len(entries))
	senses = append(senses, entry)
	for i, other := range entries {
		if i != best && other.Headword == entry.Headword {
			senses = append(senses, other)
		}
	}
	for _, sense := range senses {
		if sense.IsFormal() {
			continue
		}
		g.UsageExamples = appendUnique(g.UsageExamples, sense.UsageExamples...)
	}
	if len(g.UsageExamples) > maxUsageExamples {
		g.UsageExamples = g.UsageExamples[:maxUsageExamples]
	}
	return g
}

func appendUnique(list []string, values ...string) []string {
	for _, v := range values {
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		seen := false
		for _, existing := range list {
			if existing == v {
				seen = true
				break
			}
		}
		if !seen {
			list = append(list, v)
		}
	}
	return list
}

// Cantonese writes one colloquial Cantonese sentence grounded on dictionary
// entries and conditioned on the Mandarin sentence.
type Cantonese struct {
	backend  inference.Backend
	prompts  *assets.PromptSet
	settings Settings
	meaning  inference.Backend
}

type CantoneseOption func(*Cantonese)

// WithMeaningHint asks backend for a short Mandarin definition when the
// dictionary has no entry for the word itself or only a formal one.
func WithMeaningHint(backend inference.Backend) CantoneseOption {
	return func(g *Cantonese) {
		g.meaning = backend
	}
}

func NewCantonese(backend inference.Backend, prompts *assets.PromptSet, settings Settings, opts ...CantoneseOption) *Cantonese {
	g := &Cantonese{
		backend:  backend,
		prompts:  prompts,
		settings: settings,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Generate returns the Cantonese sentence. An empty context is not an error:
// the prompt then asks for plain colloquial Cantonese without grounding.
func (g *Cantonese) Generate(ctx context.Context, word vocab.Word, entries dictionary.RetrievalResult, mandarin string) (string, error) {
	if strings.TrimSpace(mandarin) == "" {
		return "", errors.New("a Mandarin sentence is required")
	}

	grounding := SelectGrounding(word, entries)
	data := assets.CantonesePrompt{
		Simplified:       word.Simplified,
		Traditional:      word.Traditional,
		MandarinSentence: mandarin,
		Grounded:         grounding.Entry != nil,
		ExactMatch:       grounding.ExactMatch,
		Formal:           grounding.Formal,
		Alternatives:     grounding.Alternatives,
		UsageExamples:    grounding.UsageExamples,
	}
	if grounding.Entry != nil {
		data.EntryText = grounding.Entry.Text
	}
	if g.meaning != nil && (!grounding.ExactMatch || grounding.Formal) {
		data.MeaningHint = g.meaningHint(ctx, word)
	}

	rendered, err := g.prompts.Cantonese(data)
	if err != nil {
		return "", fmt.Errorf("prompts.Cantonese() > %w", err)
	}
	return complete(ctx, g.backend, rendered, g.settings)
}

// meaningHint returns "" when the hint cannot be generated.
func (g *Cantonese) meaningHint(ctx context.Context, word vocab.Word) string {
	rendered, err := g.prompts.Meaning(assets.MeaningPrompt{Simplified: word.Simplified})
	if err == nil {
		var hint string
		hint, err = complete(ctx, g.meaning, rendered, Settings{
			Temperature: meaningTemperature,
			MaxTokens:   meaningMaxTokens,
		})
		if err == nil {
			return hint
		}
	}
	slog.Default().Warn("failed to get a Mandarin meaning hint",
		slog.String("word", word.Simplified),
		slog.Any("error", err),
	)
	return ""
}
