package dictionary

import (
	"encoding/csv"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

const senseSeparator = "----"

var (
	// ErrNotRecord is returned for text that is not a Words.HK record.
	ErrNotRecord = errors.New("not a words.hk record")

	headerTagPattern = regexp.MustCompile(`\(([a-z]+):([^)]*)\)`)
	// Example sentences end with their jyutping romanization in parentheses.
	trailingJyutpingPattern = regexp.MustCompile(`\s*\([a-z0-9 ,.;:?!'"\-]+\)\s*$`)
)

// ParseRecord parses one Words.HK CSV record into one entry per sense:
//
//	67817,出路:ceot1 lou6,"(pos:名詞)
//	<explanation>
//	yue:解決辦法
//	eng:solution
//	<eg>
//	yue:我哋要為產品尋求新嘅出路。 (ngo5 dei6 ...)
//	----
//	...",,OK,未公開
func ParseRecord(text string) ([]DictionaryEntry, error) {
	text = strings.TrimSpace(text)
	if text == "" || text[0] < '0' || text[0] > '9' {
		return nil, ErrNotRecord
	}

	reader := csv.NewReader(strings.NewReader(text))
	reader.LazyQuotes = true
	reader.FieldsPerRecord = -1
	fields, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("csv.Reader.Read() > %w", err)
	}
	if len(fields) < 3 {
		return nil, fmt.Errorf("%w: expected at least 3 fields, got %d", ErrNotRecord, len(fields))
	}

	id, err := strconv.ParseInt(strings.TrimSpace(fields[0]), 10, 64)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid id %q", ErrNotRecord, fields[0])
	}

	headwords, jyutping := parseHeadwords(fields[1])
	if len(headwords) == 0 {
		return nil, fmt.Errorf("%w: no headword in %q", ErrNotRecord, fields[1])
	}

	body := strings.ReplaceAll(fields[2], "\r\n", "\n")
	blocks := splitSenses(body)

	header := parseHeader(firstLine(body))
	var entries []DictionaryEntry
	for i, block := range blocks {
		h := header
		if i > 0 {
			if own := parseHeader(firstLine(block)); own.found {
				h = own
			}
		}
		sense := parseSense(block)
		if sense.definition == "" && len(sense.examples) == 0 && sense.english == "" {
			continue
		}

		labels := h.labels
		entryText := block
		if i > 0 && !strings.HasPrefix(strings.TrimSpace(block), "(") && header.raw != "" {
			entryText = header.raw + "\n" + block
		}
		entries = append(entries, DictionaryEntry{
			ID:            id,
			SenseIndex:    len(entries),
			Headword:      headwords[0],
			Variants:      headwords[1:],
			Jyutping:      jyutping,
			PartOfSpeech:  h.pos,
			Labels:        labels,
			Synonyms:      h.synonyms,
			Definition:    sense.definition,
			English:       sense.english,
			UsageExamples: sense.examples,
			Register:      registerOf(labels, text),
			Text:          fmt.Sprintf("%d,%s:%s,%s", id, headwords[0], jyutping, strings.TrimSpace(entryText)),
		})
	}
	if len(entries) == 0 {
		return nil, fmt.Errorf("%w: entry %d has no senses", ErrNotRecord, id)
	}
	return entries, nil
}

func parseHeadwords(field string) ([]string, string) {
	var words []string
	var jyutping string
	for _, part := range strings.Split(field, ",") {
		word, pronunciation, _ := strings.Cut(strings.TrimSpace(part), ":")
		word = strings.TrimSpace(word)
		if word == "" {
			continue
		}
		if jyutping == "" {
			jyutping = strings.TrimSpace(pronunciation)
		}
		words = append(words, word)
	}
	return words, jyutping
}

func splitSenses(body string) []string {
	var blocks []string
	var current []string
	for _, line := range strings.Split(body, "\n") {
		if strings.TrimSpace(line) == senseSeparator {
			blocks = append(blocks, strings.Join(current, "\n"))
			current = nil
			continue
		}
		current = append(current, line)
	}
	return append(blocks, strings.Join(current, "\n"))
}

func firstLine(s string) string {
	line, _, _ := strings.Cut(strings.TrimSpace(s), "\n")
	return strings.TrimSpace(line)
}

type entryHeader struct {
	found    bool
	raw      string
	pos      string
	labels   []string
	synonyms []string
}

func parseHeader(line string) entryHeader {
	if !strings.HasPrefix(line, "(") {
		return entryHeader{}
	}
	header := entryHeader{raw: line}
	for _, match := range headerTagPattern.FindAllStringSubmatch(line, -1) {
		header.found = true
		value := strings.TrimSpace(match[2])
		switch match[1] {
		case "pos":
			if header.pos == "" {
				header.pos = value
			}
		case "label":
			header.labels = append(header.labels, value)
		case "sim":
			header.synonyms = append(header.synonyms, value)
		}
	}
	return header
}

type sense struct {
	definition string
	english    string
	examples   []string
}

func parseSense(block string) sense {
	var s sense
	section := ""
	for _, raw := range strings.Split(block, "\n") {
		line := strings.TrimSpace(raw)
		switch {
		case line == "<explanation>":
			section = "explanation"
			continue
		case line == "<eg>":
			section = "eg"
			continue
		}

		lang, value, ok := strings.Cut(line, ":")
		if !ok {
			continue
		}
		value = strings.TrimSpace(value)
		if value == "" {
			continue
		}
		switch {
		case section == "explanation" && lang == "yue" && s.definition == "":
			s.definition = value
		case section == "explanation" && lang == "eng" && s.english == "":
			s.english = value
		case section == "eg" && lang == "yue":
			s.examples = append(s.examples, trailingJyutpingPattern.ReplaceAllString(value, ""))
		}
	}
	return s
}
