package assets

import (
	"bytes"
	"context"
	_ "embed"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"sync"
	"text/template"

	"github.com/fsnotify/fsnotify"
)

var (
	//go:embed templates/mandarin.txt.go.tmpl
	fallbackMandarinTemplate string
	//go:embed templates/cantonese.txt.go.tmpl
	fallbackCantoneseTemplate string
	//go:embed templates/meaning.txt.go.tmpl
	fallbackMeaningTemplate string
)

// MandarinPrompt is the data of the Mandarin sentence prompt.
type MandarinPrompt struct {
	Simplified  string
	Traditional string
	// Definition is an optional dictionary note about the word.
	Definition string
}

// CantonesePrompt is the data of the grounded Cantonese sentence prompt.
// Grounded is false when nothing was retrieved for the word.
type CantonesePrompt struct {
	Simplified       string
	Traditional      string
	MandarinSentence string
	Grounded         bool
	ExactMatch       bool
	Formal           bool
	MeaningHint      string
	Alternatives     []string
	UsageExamples    []string
	EntryText        string
}

// MeaningPrompt is the data of the one sentence definition prompt.
type MeaningPrompt struct {
	Simplified string
}

// Rendered is a prompt split into its system instruction and user message.
type Rendered struct {
	System string
	User   string
}

// PromptPaths are optional template files overriding the embedded prompts.
type PromptPaths struct {
	Mandarin  string
	Cantonese string
	Meaning   string
}

// PromptSet holds the parsed prompt templates. Each template defines a
// "system" and a "user" template.
type PromptSet struct {
	paths PromptPaths

	mu        sync.RWMutex
	mandarin  *template.Template
	cantonese *template.Template
	meaning   *template.Template
}

func NewPromptSet(paths PromptPaths) (*PromptSet, error) {
	p := &PromptSet{paths: paths}
	if err := p.Reload(); err != nil {
		return nil, err
	}
	return p, nil
}

// Reload parses every template again. The previous templates stay in use on error.
func (p *PromptSet) Reload() error {
	mandarin, err := parsePrompt(p.paths.Mandarin, "mandarin.txt.go.tmpl", fallbackMandarinTemplate)
	if err != nil {
		return err
	}
	cantonese, err := parsePrompt(p.paths.Cantonese, "cantonese.txt.go.tmpl", fallbackCantoneseTemplate)
	if err != nil {
		return err
	}
	meaning, err := parsePrompt(p.paths.Meaning, "meaning.txt.go.tmpl", fallbackMeaningTemplate)
	if err != nil {
		return err
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	p.mandarin = mandarin
	p.cantonese = cantonese
	p.meaning = meaning
	return nil
}

func parsePrompt(templatePath, fallbackName, fallbackTemplate string) (*template.Template, error) {
	tmpl, err := parseTemplateWithFallback(templatePath, fallbackName, fallbackTemplate)
	if err != nil {
		return nil, fmt.Errorf("parseTemplateWithFallback(%s) > %w", fallbackName, err)
	}
	for _, name := range []string{"system", "user"} {
		if tmpl.Lookup(name) == nil {
			return nil, fmt.Errorf("template %s does not define %q", tmpl.Name(), name)
		}
	}
	return tmpl, nil
}

func (p *PromptSet) Mandarin(data MandarinPrompt) (Rendered, error) {
	p.mu.RLock()
	tmpl := p.mandarin
	p.mu.RUnlock()
	return render(tmpl, data)
}

func (p *PromptSet) Cantonese(data CantonesePrompt) (Rendered, error) {
	p.mu.RLock()
	tmpl := p.cantonese
	p.mu.RUnlock()
	return render(tmpl, data)
}

func (p *PromptSet) Meaning(data MeaningPrompt) (Rendered, error) {
	p.mu.RLock()
	tmpl := p.meaning
	p.mu.RUnlock()
	return render(tmpl, data)
}

func render(tmpl *template.Template, data any) (Rendered, error) {
	var system, user bytes.Buffer
	if err := tmpl.ExecuteTemplate(&system, "system", data); err != nil {
		return Rendered{}, fmt.Errorf("tmpl.ExecuteTemplate(system) > %w", err)
	}
	if err := tmpl.ExecuteTemplate(&user, "user", data); err != nil {
		return Rendered{}, fmt.Errorf("tmpl.ExecuteTemplate(user) > %w", err)
	}
	return Rendered{
		System: strings.TrimSpace(system.String()),
		User:   strings.TrimSpace(user.String()),
	}, nil
}

// Watch reloads the prompts whenever an overriding template file changes,
// until ctx is done. Directories are watched because editors often replace
// files instead of writing them in place.
func (p *PromptSet) Watch(ctx context.Context) error {
	files := make(map[string]struct{})
	for _, path := range []string{p.paths.Mandarin, p.paths.Cantonese, p.paths.Meaning} {
		if path != "" {
			files[filepath.Clean(path)] = struct{}{}
		}
	}
	if len(files) == 0 {
		return nil
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("fsnotify.NewWatcher() > %w", err)
	}
	defer watcher.Close()

	dirs := make(map[string]struct{})
	for file := range files {
		dirs[filepath.Dir(file)] = struct{}{}
	}
	for dir := range dirs {
		if err := watcher.Add(dir); err != nil {
			return fmt.Errorf("watcher.Add(%s) > %w", dir, err)
		}
	}

	logger := slog.Default()
	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if _, watched := files[filepath.Clean(event.Name)]; !watched {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}
			if err := p.Reload(); err != nil {
				logger.Warn("failed to reload prompt templates", slog.Any("error", err))
				continue
			}
			logger.Info("reloaded prompt templates", slog.String("file", event.Name))
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logger.Warn("prompt template watcher error", slog.Any("error", err))
		}
	}
}
