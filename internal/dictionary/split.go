package dictionary

import (
	"bufio"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

const entryFilePrefix = "entry_"

// EntryFileName is the name of the file holding the record with id.
func EntryFileName(id int64) string {
	return entryFilePrefix + strconv.FormatInt(id, 10) + ".txt"
}

// isRecordStart reports whether a trimmed dump line starts a new record.
func isRecordStart(line string) bool {
	return line != "" && line[0] >= '0' && line[0] <= '9' && strings.Contains(line, ",")
}

// Split writes every record of a Words.HK dump into its own entry file in
// dir and returns the number of files written. Lines before the first record
// and blank lines are skipped.
func Split(r io.Reader, dir string) (int, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return 0, fmt.Errorf("os.MkdirAll > %w", err)
	}

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)

	written := 0
	var current []string
	flush := func() error {
		if len(current) == 0 {
			return nil
		}
		id, _, _ := strings.Cut(current[0], ",")
		path := filepath.Join(dir, entryFilePrefix+id+".txt")
		if err := os.WriteFile(path, []byte(strings.Join(current, "\n")), 0644); err != nil {
			return fmt.Errorf("os.WriteFile(%s) > %w", path, err)
		}
		written++
		if written%10000 == 0 {
			slog.Default().Info("split dictionary entries", slog.Int("written", written))
		}
		current = nil
		return nil
	}

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if isRecordStart(line) {
			if err := flush(); err != nil {
				return written, err
			}
			current = []string{line}
			continue
		}
		if current != nil {
			current = append(current, line)
		}
	}
	if err := scanner.Err(); err != nil {
		return written, fmt.Errorf("scanner.Err() > %w", err)
	}
	if err := flush(); err != nil {
		return written, err
	}
	return written, nil
}
