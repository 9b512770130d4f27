package dictionary

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
)

// EntryFile is an entry file found in a corpus directory.
type EntryFile struct {
	ID   int64
	Path string
}

// ListEntryFiles returns the entry files directly under dir, sorted by id.
// Subdirectories such as done/ are not read.
func ListEntryFiles(dir string) ([]EntryFile, error) {
	dirEntries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("os.ReadDir(%s) > %w", dir, err)
	}

	var files []EntryFile
	for _, dirEntry := range dirEntries {
		if dirEntry.IsDir() {
			continue
		}
		name := dirEntry.Name()
		if !strings.HasPrefix(name, entryFilePrefix) || !strings.HasSuffix(name, ".txt") {
			continue
		}
		id, err := strconv.ParseInt(strings.TrimSuffix(strings.TrimPrefix(name, entryFilePrefix), ".txt"), 10, 64)
		if err != nil {
			continue
		}
		files = append(files, EntryFile{ID: id, Path: filepath.Join(dir, name)})
	}
	sort.Slice(files, func(i, j int) bool {
		return files[i].ID < files[j].ID
	})
	return files, nil
}

// ReadDirectory parses every entry file under dir. Files that cannot be
// parsed are logged and skipped.
func ReadDirectory(dir string) ([]DictionaryEntry, error) {
	files, err := ListEntryFiles(dir)
	if err != nil {
		return nil, fmt.Errorf("ListEntryFiles > %w", err)
	}

	logger := slog.Default()
	var entries []DictionaryEntry
	for _, file := range files {
		contents, err := os.ReadFile(file.Path)
		if err != nil {
			return nil, fmt.Errorf("os.ReadFile(%s) > %w", file.Path, err)
		}
		parsed, err := ParseRecord(string(contents))
		if err != nil {
			logger.Warn("skip unparsable dictionary entry",
				slog.String("path", file.Path),
				slog.Any("error", err),
			)
			continue
		}
		entries = append(entries, parsed...)
	}
	return entries, nil
}
