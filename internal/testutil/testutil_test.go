package testutil

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/at-ishikawa/cantocards/internal/config"
	"github.com/at-ishikawa/cantocards/internal/dictionary"
)

func TestSetupTestConfig(t *testing.T) {
	tmpDir := t.TempDir()
	got := SetupTestConfig(t, tmpDir)
	assert.Equal(t, filepath.Join(tmpDir, "config.yml"), got)

	for _, d := range []string{"dictionary_entries", "dictionaries", "outputs"} {
		info, err := os.Stat(filepath.Join(tmpDir, d))
		require.NoError(t, err, "directory %s should exist", d)
		assert.True(t, info.IsDir(), "%s should be a directory", d)
	}

	loader, err := config.NewConfigLoader(got)
	require.NoError(t, err)
	cfg, err := loader.Load()
	require.NoError(t, err)
	assert.Equal(t, "sqlite", cfg.Store.Driver)
	assert.Equal(t, "none", cfg.Embedding.Provider)
	assert.Equal(t, filepath.Join(tmpDir, "dictionary_entries"), cfg.Corpus.EntriesDirectory)
}

func TestSetupTestConfigWithAPIKey(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "")
	t.Setenv("GEMINI_API_KEY", "")
	t.Setenv("ANTHROPIC_API_KEY", "")

	got := SetupTestConfigWithAPIKey(t, t.TempDir())

	loader, err := config.NewConfigLoader(got)
	require.NoError(t, err)
	cfg, err := loader.Load()
	require.NoError(t, err)
	assert.Equal(t, "fake-key-for-testing", cfg.OpenAI.APIKey)
	assert.Equal(t, "fake-key-for-testing", cfg.Gemini.APIKey)
	assert.Equal(t, "fake-key-for-testing", cfg.Anthropic.APIKey)
}

func TestCreateEntryFiles(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "entries")
	CreateEntryFiles(t, dir, ChuLouRecord, ZaakBeiRecord)

	files, err := dictionary.ListEntryFiles(dir)
	require.NoError(t, err)
	require.Len(t, files, 2)
	assert.Equal(t, int64(67817), files[0].ID)
	assert.Equal(t, int64(87223), files[1].ID)

	entries, err := dictionary.ReadDirectory(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 3)
}

func TestCreateBatchFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "input.txt")
	CreateBatchFile(t, path, "出路", "责备")

	content, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "出路\t\n责备\t\n", string(content))
}
