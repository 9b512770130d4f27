package dictionary

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
)

const archiveDirName = "done"

// Move is one entry file moved, or to be moved, into the archive directory.
type Move struct {
	ID     int64
	Source string
	Target string
}

// Archive moves the entry files whose ids are in processed into dir/done.
// With dryRun nothing is moved and the planned moves are returned.
func Archive(dir string, processed map[int64]struct{}, dryRun bool) ([]Move, error) {
	files, err := ListEntryFiles(dir)
	if err != nil {
		return nil, fmt.Errorf("ListEntryFiles > %w", err)
	}

	doneDir := filepath.Join(dir, archiveDirName)
	var moves []Move
	for _, file := range files {
		if _, ok := processed[file.ID]; !ok {
			continue
		}
		moves = append(moves, Move{
			ID:     file.ID,
			Source: file.Path,
			Target: filepath.Join(doneDir, filepath.Base(file.Path)),
		})
	}
	if dryRun || len(moves) == 0 {
		return moves, nil
	}

	if err := os.MkdirAll(doneDir, 0755); err != nil {
		return nil, fmt.Errorf("os.MkdirAll > %w", err)
	}
	for i, move := range moves {
		if err := os.Rename(move.Source, move.Target); err != nil {
			return moves[:i], fmt.Errorf("os.Rename(%s) > %w", move.Source, err)
		}
	}
	slog.Default().Info("archived dictionary entries",
		slog.Int("moved", len(moves)),
		slog.String("dir", doneDir),
	)
	return moves, nil
}
