package record

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/at-ishikawa/cantocards/internal/vocab"
)

const headerLines = 2

// Import reads records back from an exported file. A line without a tab
// continues the sentences of the previous line, which lets hand edited
// files wrap long sentences. Traditional forms are not part of the file
// and are left empty.
func Import(r io.Reader) ([]GenerationRecord, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	var records []GenerationRecord
	lineNumber := 0
	for scanner.Scan() {
		lineNumber++
		if lineNumber <= headerLines {
			continue
		}
		line := strings.TrimRight(scanner.Text(), "\r")
		if strings.TrimSpace(line) == "" {
			continue
		}

		if word, sentences, ok := strings.Cut(line, "\t"); ok {
			mandarin, cantonese, _ := strings.Cut(sentences, sentenceSeparator)
			records = append(records, GenerationRecord{
				Word:              vocab.Word{Simplified: strings.TrimSpace(word)},
				MandarinSentence:  strings.TrimSpace(mandarin),
				CantoneseSentence: strings.TrimSpace(cantonese),
			})
			continue
		}

		if len(records) == 0 {
			return nil, fmt.Errorf("line %d continues a record but no record has started", lineNumber)
		}
		last := &records[len(records)-1]
		line = strings.TrimSpace(line)
		if mandarin, cantonese, ok := strings.Cut(line, sentenceSeparator); ok {
			last.MandarinSentence = joinLine(last.MandarinSentence, mandarin)
			last.CantoneseSentence = joinLine(last.CantoneseSentence, cantonese)
		} else if last.CantoneseSentence != "" {
			last.CantoneseSentence = joinLine(last.CantoneseSentence, line)
		} else {
			last.MandarinSentence = joinLine(last.MandarinSentence, line)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scanner.Err() > %w", err)
	}
	return records, nil
}

func joinLine(current, next string) string {
	next = strings.TrimSpace(next)
	if current == "" {
		return next
	}
	if next == "" {
		return current
	}
	return current + "\n" + next
}
