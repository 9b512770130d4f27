// Package testutil provides shared test helpers for creating config files and corpus fixtures.
package testutil

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/at-ishikawa/cantocards/internal/dictionary"
)

// ChuLouRecord is a colloquial Words.HK record with two senses.
const ChuLouRecord = `67817,出路:ceot1 lou6,"(pos:名詞)
<explanation>
yue:解決辦法（量詞：個／條）
eng:solution
<eg>
yue:而家市道唔好，我哋要為產品尋求新嘅出路。 (ji4 gaa1 si5 dou6 m4 hou2, ngo5 dei6 jiu3 wai6 caan2 ban2 cam4 kau4 san1 ge3 ceot1 lou6.)
eng:Now since the market is unfavourable, we have to find a new way out for our products.
----
<explanation>
yue:前途
eng:prospect; future
<eg>
yue:讀書唔係唯一嘅出路。 (duk6 syu1 m4 hai6 wai4 jat1 ge3 ceot1 lou6.)",,OK,未公開`

// ZaakBeiRecord is a formal Words.HK record with colloquial synonyms.
const ZaakBeiRecord = `87223,責備:zaak3 bei6,"(pos:動詞)(label:書面語)(sim:斥責)(sim:責罵)(sim:鬧)
<explanation>
yue:指出別人嘅過錯並加以批評
eng:to blame; to reproach",,OK,未公開`

// SetupTestConfig creates a config file whose paths all point into tmpDir,
// using a SQLite store and no embeddings so no network access is needed.
// Returns the path to the generated config file.
func SetupTestConfig(t *testing.T, tmpDir string) string {
	t.Helper()

	dirs := []string{"dictionary_entries", "dictionaries", "outputs"}
	for _, d := range dirs {
		require.NoError(t, os.MkdirAll(filepath.Join(tmpDir, d), 0755))
	}

	configContent := fmt.Sprintf(`input:
  file: %s
output:
  file: %s
  failures_file: %s
  study_sheet: %s
corpus:
  entries_directory: %s
  index_file: %s
  cache_directory: %s
embedding:
  provider: none
store:
  driver: sqlite
  path: %s
pipeline:
  initial_backoff: 1ms
  max_backoff: 10ms
  request_interval: 0s
`,
		filepath.Join(tmpDir, "input.txt"),
		filepath.Join(tmpDir, "outputs", "output.txt"),
		filepath.Join(tmpDir, "outputs", "failures.yml"),
		filepath.Join(tmpDir, "outputs", "study-sheet.md"),
		filepath.Join(tmpDir, "dictionary_entries"),
		filepath.Join(tmpDir, "dictionaries", "corpus.db"),
		filepath.Join(tmpDir, "dictionaries"),
		filepath.Join(tmpDir, "cantocards.db"),
	)

	cfgPath := filepath.Join(tmpDir, "config.yml")
	require.NoError(t, os.WriteFile(cfgPath, []byte(configContent), 0644))
	return cfgPath
}

// SetupTestConfigWithAPIKey creates a config file with fake backend keys for tests
// that construct clients without calling them.
func SetupTestConfigWithAPIKey(t *testing.T, tmpDir string) string {
	t.Helper()
	cfgPath := SetupTestConfig(t, tmpDir)

	content, err := os.ReadFile(cfgPath)
	require.NoError(t, err)
	content = append(content, []byte("openai:\n  api_key: fake-key-for-testing\n"+
		"gemini:\n  api_key: fake-key-for-testing\n"+
		"anthropic:\n  api_key: fake-key-for-testing\n")...)
	require.NoError(t, os.WriteFile(cfgPath, content, 0644))
	return cfgPath
}

// CreateEntryFiles writes each Words.HK record to its own entry file in dir,
// the way a split dump is laid out.
func CreateEntryFiles(t *testing.T, dir string, records ...string) {
	t.Helper()

	require.NoError(t, os.MkdirAll(dir, 0755))
	for _, rec := range records {
		idField, _, ok := strings.Cut(rec, ",")
		require.True(t, ok, "record without an id: %q", rec)
		var id int64
		_, err := fmt.Sscan(idField, &id)
		require.NoError(t, err)
		require.NoError(t, os.WriteFile(filepath.Join(dir, dictionary.EntryFileName(id)), []byte(rec+"\n"), 0644))
	}
}

// CreateBatchFile writes an input file with one tab separated word per line.
func CreateBatchFile(t *testing.T, path string, words ...string) {
	t.Helper()

	var sb strings.Builder
	for _, word := range words {
		sb.WriteString(word)
		sb.WriteString("\t\n")
	}
	require.NoError(t, os.WriteFile(path, []byte(sb.String()), 0644))
}
