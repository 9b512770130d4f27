package generator

import (
	"context"
	"fmt"
	"strings"

	"github.com/at-ishikawa/cantocards/internal/assets"
	"github.com/at-ishikawa/cantocards/internal/dictionary"
	"github.com/at-ishikawa/cantocards/internal/inference"
	"github.com/at-ishikawa/cantocards/internal/vocab"
)

// Mandarin writes one standard Mandarin sentence for a word.
type Mandarin struct {
	backend  inference.Backend
	prompts  *assets.PromptSet
	settings Settings
}

func NewMandarin(backend inference.Backend, prompts *assets.PromptSet, settings Settings) *Mandarin {
	return &Mandarin{
		backend:  backend,
		prompts:  prompts,
		settings: settings,
	}
}

// Generate returns a sentence containing the word. The dictionary context is
// only used as a hint when it has an entry for the word itself.
func (g *Mandarin) Generate(ctx context.Context, word vocab.Word, entries dictionary.RetrievalResult) (string, error) {
	data := assets.MandarinPrompt{
		Simplified:  word.Simplified,
		Traditional: word.Traditional,
	}
	for _, entry := range entries {
		if entry.HasHeadword(word.Traditional) && entry.Definition != "" {
			data.Definition = entry.Definition
			break
		}
	}

	rendered, err := g.prompts.Mandarin(data)
	if err != nil {
		return "", fmt.Errorf("prompts.Mandarin() > %w", err)
	}
	sentence, err := complete(ctx, g.backend, rendered, g.settings)
	if err != nil {
		return "", err
	}
	if !strings.Contains(sentence, word.Simplified) && !strings.Contains(sentence, word.Traditional) {
		return "", inference.NewError(inference.EmptyOutput, g.backend.Name(),
			fmt.Errorf("sentence %q does not use %s", sentence, word.Simplified))
	}
	return sentence, nil
}
