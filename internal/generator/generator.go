// Package generator produces the Mandarin and Cantonese example sentences.
package generator

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/at-ishikawa/cantocards/internal/assets"
	"github.com/at-ishikawa/cantocards/internal/inference"
)

// Settings are the sampling parameters of one generation stage.
type Settings struct {
	Temperature float64
	MaxTokens   int
}

var (
	labelPrefixes = []string{
		"output:", "output：", "输出:", "输出：", "輸出:", "輸出：",
		"cantonese:", "mandarin:", "sentence:",
		"廣東話:", "廣東話：", "粵語:", "粵語：", "普通话:", "普通话：",
	}
	quotePairs = [][2]string{
		{`"`, `"`}, {"'", "'"}, {"“", "”"}, {"‘", "’"}, {"「", "」"}, {"『", "』"}, {"[", "]"}, {"【", "】"},
	}
	trailingRomanization = regexp.MustCompile(`\s*[(（][a-zA-Z0-9 ,.;:?!'"\-]+[)）]\s*$`)
)

// Clean reduces a model reply to a single sentence. It keeps the first line
// that is not an echo of the input, drops labels such as "Output:", strips
// surrounding quotes and a trailing romanization in parentheses.
func Clean(text string) string {
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(strings.ToLower(line), "input:") {
			continue
		}
		for _, prefix := range labelPrefixes {
			if len(line) >= len(prefix) && strings.EqualFold(line[:len(prefix)], prefix) {
				line = strings.TrimSpace(line[len(prefix):])
				break
			}
		}
		line = trailingRomanization.ReplaceAllString(line, "")
		for _, pair := range quotePairs {
			if len(line) > len(pair[0])+len(pair[1]) && strings.HasPrefix(line, pair[0]) && strings.HasSuffix(line, pair[1]) {
				line = strings.TrimSpace(line[len(pair[0]) : len(line)-len(pair[1])])
			}
		}
		if line != "" {
			return line
		}
	}
	return ""
}

func complete(ctx context.Context, backend inference.Backend, rendered assets.Rendered, settings Settings) (string, error) {
	text, err := backend.Complete(ctx, inference.Prompt{
		System:      rendered.System,
		User:        rendered.User,
		Temperature: settings.Temperature,
		MaxTokens:   settings.MaxTokens,
	})
	if err != nil {
		return "", fmt.Errorf("backend.Complete() > %w", err)
	}
	sentence := Clean(text)
	if sentence == "" {
		return "", inference.NewError(inference.EmptyOutput, backend.Name(), errors.New("no sentence in the reply"))
	}
	return sentence, nil
}
