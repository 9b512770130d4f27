package dictionary

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSplit(t *testing.T) {
	dump := strings.Join([]string{
		"Words.HK dump, license CC BY 4.0",
		"",
		chuLouRecord,
		"",
		zaakBeiRecord,
	}, "\n")

	dir := filepath.Join(t.TempDir(), "entries")
	written, err := Split(strings.NewReader(dump), dir)
	require.NoError(t, err)
	assert.Equal(t, 2, written)

	files, err := ListEntryFiles(dir)
	require.NoError(t, err)
	assert.Equal(t, []EntryFile{
		{ID: 67817, Path: filepath.Join(dir, "entry_67817.txt")},
		{ID: 87223, Path: filepath.Join(dir, "entry_87223.txt")},
	}, files)

	contents, err := os.ReadFile(filepath.Join(dir, EntryFileName(87223)))
	require.NoError(t, err)
	assert.Equal(t, zaakBeiRecord, string(contents))
}

func TestIsRecordStart(t *testing.T) {
	tests := []struct {
		line string
		want bool
	}{
		{line: "67817,出路:ceot1 lou6,\"(pos:名詞)", want: true},
		{line: "yue:解決辦法", want: false},
		{line: "2024 年", want: false},
		{line: "", want: false},
	}

	for _, tt := range tests {
		t.Run(tt.line, func(t *testing.T) {
			assert.Equal(t, tt.want, isRecordStart(tt.line))
		})
	}
}

func TestReadDirectory(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "entry_87223.txt"), []byte(zaakBeiRecord), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "entry_67817.txt"), []byte(chuLouRecord), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "entry_5.txt"), []byte("garbage"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("ignored"), 0644))
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "done"), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "done", "entry_1.txt"), []byte(zaakBeiRecord), 0644))

	entries, err := ReadDirectory(dir)
	require.NoError(t, err)
	require.Len(t, entries, 3)
	assert.Equal(t, "出路", entries[0].Headword)
	assert.Equal(t, 1, entries[1].SenseIndex)
	assert.Equal(t, "責備", entries[2].Headword)
}

func TestReadDirectory_Missing(t *testing.T) {
	_, err := ReadDirectory(filepath.Join(t.TempDir(), "missing"))
	assert.Error(t, err)
}
