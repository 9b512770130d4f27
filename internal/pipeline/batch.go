package pipeline

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"gopkg.in/yaml.v3"
)

// ReadBatch reads one word per line. Only the first tab separated field is
// used; blank lines and lines starting with "#" are ignored.
func ReadBatch(r io.Reader) ([]string, error) {
	var batch []string
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		word, _, _ := strings.Cut(line, "\t")
		if word = strings.TrimSpace(word); word != "" {
			batch = append(batch, word)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scanner.Err() > %w", err)
	}
	return batch, nil
}

type failureFile struct {
	RunID    string    `yaml:"run_id"`
	Failures []Failure `yaml:"failures"`
}

// WriteFailures saves the failures of a run so they can be resubmitted.
func WriteFailures(w io.Writer, report Report) error {
	encoder := yaml.NewEncoder(w)
	encoder.SetIndent(2)
	if err := encoder.Encode(failureFile{
		RunID:    report.RunID,
		Failures: report.Failures,
	}); err != nil {
		return fmt.Errorf("encoder.Encode() > %w", err)
	}
	if err := encoder.Close(); err != nil {
		return fmt.Errorf("encoder.Close() > %w", err)
	}
	return nil
}

// ReadFailures reads a file written by WriteFailures.
func ReadFailures(r io.Reader) ([]Failure, error) {
	var file failureFile
	if err := yaml.NewDecoder(r).Decode(&file); err != nil {
		if err == io.EOF {
			return nil, nil
		}
		return nil, fmt.Errorf("decoder.Decode() > %w", err)
	}
	return file.Failures, nil
}

// Words returns the words of the failures, in order.
func Words(failures []Failure) []string {
	words := make([]string, 0, len(failures))
	for _, failure := range failures {
		words = append(words, failure.Word)
	}
	return words
}
