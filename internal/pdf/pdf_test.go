package pdf

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testFont = "testdata/DejaVuSansCondensed.ttf"

func TestConvertMarkdownToPDF(t *testing.T) {
	tests := []struct {
		name         string
		markdownPath string
		setupFile    func(t *testing.T) string
		wantErrMsg   string
	}{
		{
			name:         "invalid extension",
			markdownPath: "study-sheet.txt",
			wantErrMsg:   "input file must have .md extension",
		},
		{
			name:         "file not found",
			markdownPath: "nonexistent.md",
			wantErrMsg:   "os.ReadFile",
		},
		{
			name: "successful conversion",
			setupFile: func(t *testing.T) string {
				mdPath := filepath.Join(t.TempDir(), "study-sheet.md")
				content := []byte("# HSK 5\n\n## 1. 出路\n\n- 普通話: 投降是你唯一的出路。\n- 廣東話: 投降係你唯一嘅出路。\n")
				require.NoError(t, os.WriteFile(mdPath, content, 0644))
				return mdPath
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mdPath := tt.markdownPath
			if tt.setupFile != nil {
				mdPath = tt.setupFile(t)
			}

			pdfPath, err := ConvertMarkdownToPDF(mdPath, testFont)
			if tt.wantErrMsg != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErrMsg)
				return
			}
			require.NoError(t, err)
			assert.True(t, filepath.IsAbs(pdfPath))
			assert.Equal(t, ".pdf", filepath.Ext(pdfPath))
			_, err = os.Stat(pdfPath)
			assert.NoError(t, err, "PDF file should be created")
		})
	}
}

func TestRender(t *testing.T) {
	tests := []struct {
		name     string
		fontFile string
		wantErr  error
		wantMsg  string
	}{
		{
			name:     "embeds the font as a unicode font",
			fontFile: testFont,
		},
		{
			name:    "no font configured",
			wantErr: ErrNoFont,
		},
		{
			name:     "missing font file",
			fontFile: "testdata/missing.ttf",
			wantMsg:  "os.ReadFile",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pdfPath := filepath.Join(t.TempDir(), "out", "study-sheet.pdf")
			err := Render([]byte("# HSK 5\n\n## 1. 出路\n\n- **廣東話**: 投降係你唯一嘅出路。\n"), pdfPath, tt.fontFile)
			switch {
			case tt.wantErr != nil:
				assert.ErrorIs(t, err, tt.wantErr)
				return
			case tt.wantMsg != "":
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantMsg)
				return
			}
			require.NoError(t, err)

			content, err := os.ReadFile(pdfPath)
			require.NoError(t, err)
			assert.Contains(t, string(content), "/Encoding /Identity-H")
			assert.Contains(t, string(content), "/FontFile2")
		})
	}
}
