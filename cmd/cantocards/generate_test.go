package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/at-ishikawa/cantocards/internal/pipeline"
	"github.com/at-ishikawa/cantocards/internal/testutil"
)

func TestReadGenerateBatch(t *testing.T) {
	tmpDir := t.TempDir()
	inputFile := filepath.Join(tmpDir, "input.txt")
	testutil.CreateBatchFile(t, inputFile, "出路", "责备")

	failuresFile := filepath.Join(tmpDir, "failures.yml")
	f, err := os.Create(failuresFile)
	require.NoError(t, err)
	require.NoError(t, pipeline.WriteFailures(f, pipeline.Report{
		RunID:    "run-1",
		Failures: []pipeline.Failure{{Word: "门口", Stage: pipeline.StageCantonese, Reason: "timeout"}},
	}))
	require.NoError(t, f.Close())

	tests := []struct {
		name          string
		args          []string
		inputFile     string
		retryFailures bool
		want          []string
		wantErr       bool
	}{
		{
			name:      "arguments win over the input file",
			args:      []string{"次序"},
			inputFile: inputFile,
			want:      []string{"次序"},
		},
		{
			name:      "input file",
			inputFile: inputFile,
			want:      []string{"出路", "责备"},
		},
		{
			name:          "failures file",
			inputFile:     inputFile,
			retryFailures: true,
			want:          []string{"门口"},
		},
		{
			name:    "no input",
			wantErr: true,
		},
		{
			name:      "missing input file",
			inputFile: filepath.Join(tmpDir, "missing.txt"),
			wantErr:   true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := readGenerateBatch(tt.args, tt.inputFile, tt.retryFailures, failuresFile)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestWriteFailuresFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "outputs", "failures.yml")

	require.NoError(t, writeFailuresFile(path, pipeline.Report{
		RunID:    "run-1",
		Failures: []pipeline.Failure{{Word: "门口", Stage: pipeline.StageMandarin, Reason: "rate limited"}},
	}))
	content, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(content), "门口")

	require.NoError(t, writeFailuresFile(path, pipeline.Report{RunID: "run-2"}))
	assert.NoFileExists(t, path)

	assert.NoError(t, writeFailuresFile("", pipeline.Report{}))
}
