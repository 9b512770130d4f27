package assets

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestParseTemplateWithFallback(t *testing.T) {
	tests := []struct {
		name         string
		templatePath func(t *testing.T) string

		wantTemplateName     string
		wantTemplateContents string
	}{
		{
			name: "uses filesystem template when available",
			templatePath: func(t *testing.T) string {
				templatePath := filepath.Join(t.TempDir(), "custom.txt.go.tmpl")
				require.NoError(t, os.WriteFile(templatePath, []byte(`custom: {{ join .Words "," }}`), 0644))
				return templatePath
			},
			wantTemplateName:     "custom.txt.go.tmpl",
			wantTemplateContents: "custom: 出路,次序",
		},
		{
			name: "uses embedded template when file doesn't exist",
			templatePath: func(t *testing.T) string {
				return "/non/existent/invalid.txt.go.tmpl"
			},
			wantTemplateName:     "fallback.txt.go.tmpl",
			wantTemplateContents: "fallback: 2",
		},
		{
			name: "uses embedded template when no path is set",
			templatePath: func(t *testing.T) string {
				return ""
			},
			wantTemplateName:     "fallback.txt.go.tmpl",
			wantTemplateContents: "fallback: 2",
		},
		{
			name: "uses embedded template when the file is invalid",
			templatePath: func(t *testing.T) string {
				templatePath := filepath.Join(t.TempDir(), "broken.txt.go.tmpl")
				require.NoError(t, os.WriteFile(templatePath, []byte(`{{ .Words `), 0644))
				return templatePath
			},
			wantTemplateName:     "fallback.txt.go.tmpl",
			wantTemplateContents: "fallback: 2",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tmpl, err := parseTemplateWithFallback(tt.templatePath(t), "fallback.txt.go.tmpl", `fallback: {{ len .Words }}`)
			require.NoError(t, err)
			assert.Equal(t, tt.wantTemplateName, tmpl.Name())

			var buf bytes.Buffer
			require.NoError(t, tmpl.Execute(&buf, struct{ Words []string }{Words: []string{"出路", "次序"}}))
			assert.Equal(t, tt.wantTemplateContents, buf.String())
		})
	}
}

func TestPromptSet_Mandarin(t *testing.T) {
	prompts, err := NewPromptSet(PromptPaths{})
	require.NoError(t, err)

	tests := []struct {
		name        string
		data        MandarinPrompt
		wantUser    string
		wantNotUser string
	}{
		{
			name:     "word only",
			data:     MandarinPrompt{Simplified: "出路", Traditional: "出路"},
			wantUser: "Input: 出路\nOutput:",
		},
		{
			name:     "with a dictionary note",
			data:     MandarinPrompt{Simplified: "责备", Traditional: "責備", Definition: "批評指摘"},
			wantUser: "Dictionary note: 批評指摘\nInput: 责备\nOutput:",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := prompts.Mandarin(tt.data)
			require.NoError(t, err)
			assert.Equal(t, tt.wantUser, got.User)
			assert.Contains(t, got.System, "Use the given word itself")
		})
	}
}

func TestPromptSet_Cantonese(t *testing.T) {
	prompts, err := NewPromptSet(PromptPaths{})
	require.NoError(t, err)

	tests := []struct {
		name            string
		data            CantonesePrompt
		wantContains    []string
		wantNotContains []string
	}{
		{
			name: "colloquial exact match with examples",
			data: CantonesePrompt{
				Simplified:       "出路",
				Traditional:      "出路",
				MandarinSentence: "投降是你唯一的出路。",
				Grounded:         true,
				ExactMatch:       true,
				UsageExamples:    []string{"我哋要為產品尋求新嘅出路。"},
				EntryText:        "67817,出路:ceot1 lou6,(pos:名詞)",
			},
			wantContains: []string{
				"Entry type: exact match",
				"Entry register: colloquial",
				"Use the Words.HK entry below as your guide",
				"Prefer the phrasing of these dictionary examples",
				"  - 我哋要為產品尋求新嘅出路。",
				"Do NOT translate the Mandarin sentence word for word",
				"  投降是你唯一的出路。",
				"Retrieved dictionary entry:\n67817,出路:ceot1 lou6,(pos:名詞)",
				"Output ONLY the Cantonese sentence",
			},
			wantNotContains: []string{"No dictionary entry was found", "Mandarin definition:"},
		},
		{
			name: "formal entry with alternatives and a meaning hint",
			data: CantonesePrompt{
				Simplified:       "责备",
				Traditional:      "責備",
				MandarinSentence: "老师责备了他。",
				Grounded:         true,
				Formal:           true,
				MeaningHint:      "指出别人的过错。",
				Alternatives:     []string{"鬧", "話"},
				EntryText:        "2001,責備:zaak3 bei6,(label:書面語)(sim:鬧)(sim:話)",
			},
			wantContains: []string{
				"Entry type: no exact match",
				"Entry register: formal/written",
				"Mandarin definition: 指出别人的过错。",
				"Do NOT use it in your sentence",
				"these colloquial alternatives instead: 鬧, 話",
			},
			wantNotContains: []string{"Use the Words.HK entry below"},
		},
		{
			name: "formal entry without alternatives",
			data: CantonesePrompt{
				Simplified:       "责备",
				Traditional:      "責備",
				MandarinSentence: "老师责备了他。",
				Grounded:         true,
				Formal:           true,
			},
			wantContains: []string{"common spoken Cantonese expressions instead"},
		},
		{
			name: "nothing retrieved",
			data: CantonesePrompt{
				Simplified:       "电脑",
				Traditional:      "電腦",
				MandarinSentence: "我的电脑坏了。",
			},
			wantContains: []string{
				"No dictionary entry was found for this word",
				"Replace bookish or Mandarin-only vocabulary",
				"  我的电脑坏了。",
			},
			wantNotContains: []string{"Entry type:", "Retrieved dictionary entry:"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := prompts.Cantonese(tt.data)
			require.NoError(t, err)
			for _, want := range tt.wantContains {
				assert.Contains(t, got.System, want)
			}
			for _, notWant := range tt.wantNotContains {
				assert.NotContains(t, got.System, notWant)
			}
			assert.Equal(t, "Input: "+tt.data.Traditional+"\nGenerate ONLY a single Cantonese sentence.", got.User)
		})
	}
}

func TestPromptSet_Meaning(t *testing.T) {
	prompts, err := NewPromptSet(PromptPaths{})
	require.NoError(t, err)

	got, err := prompts.Meaning(MeaningPrompt{Simplified: "责备"})
	require.NoError(t, err)
	assert.Equal(t, "What is the core meaning of the word '责备' in Mandarin? Give a brief 1-sentence definition.", got.User)
}

func TestNewPromptSet_Override(t *testing.T) {
	tests := []struct {
		name     string
		content  string
		wantUser string
		wantErr  bool
	}{
		{
			name:     "override with both templates",
			content:  `{{ define "system" }}sys{{ end }}{{ define "user" }}造句: {{ .Simplified }}{{ end }}`,
			wantUser: "造句: 出路",
		},
		{
			name:    "override missing the user template",
			content: `{{ define "system" }}sys{{ end }}`,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "mandarin.txt.go.tmpl")
			require.NoError(t, os.WriteFile(path, []byte(tt.content), 0644))

			prompts, err := NewPromptSet(PromptPaths{Mandarin: path})
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)

			got, err := prompts.Mandarin(MandarinPrompt{Simplified: "出路"})
			require.NoError(t, err)
			assert.Equal(t, tt.wantUser, got.User)
		})
	}
}

func TestPromptSet_Watch(t *testing.T) {
	defer goleak.VerifyNone(t)

	path := filepath.Join(t.TempDir(), "mandarin.txt.go.tmpl")
	require.NoError(t, os.WriteFile(path, []byte(`{{ define "system" }}v1{{ end }}{{ define "user" }}{{ .Simplified }}{{ end }}`), 0644))

	prompts, err := NewPromptSet(PromptPaths{Mandarin: path})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- prompts.Watch(ctx)
	}()

	require.Eventually(t, func() bool {
		// Rewrite until the watcher has started and picked the change up.
		_ = os.WriteFile(path, []byte(`{{ define "system" }}v2{{ end }}{{ define "user" }}{{ .Simplified }}{{ end }}`), 0644)
		got, err := prompts.Mandarin(MandarinPrompt{Simplified: "出路"})
		return err == nil && got.System == "v2"
	}, 5*time.Second, 50*time.Millisecond)

	cancel()
	assert.NoError(t, <-done)
}

func TestPromptSet_Watch_NoOverrides(t *testing.T) {
	prompts, err := NewPromptSet(PromptPaths{})
	require.NoError(t, err)
	assert.NoError(t, prompts.Watch(context.Background()))
}

func TestWriteStudySheet(t *testing.T) {
	var buf bytes.Buffer
	err := WriteStudySheet(&buf, "", StudySheetTemplate{
		Title: "HSK 5",
		Date:  time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC),
		Cards: []StudyCard{
			{Simplified: "出路", Traditional: "出路", Mandarin: "投降是你唯一的出路。", Cantonese: "投降係你唯一嘅出路。"},
			{Simplified: "责备", Traditional: "責備", Mandarin: "老师责备了他。", Cantonese: "老師鬧咗佢一餐。"},
		},
	})
	require.NoError(t, err)

	want := `# HSK 5

_2025-03-01_

## 1. 出路

- 普通話: 投降是你唯一的出路。
- 廣東話: 投降係你唯一嘅出路。

## 2. 责备 (責備)

- 普通話: 老师责备了他。
- 廣東話: 老師鬧咗佢一餐。

`
	assert.Equal(t, want, buf.String())
}
