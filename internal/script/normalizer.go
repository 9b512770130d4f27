// Package script converts simplified Chinese input to traditional script
// with a fixed character substitution table.
package script

import (
	"bufio"
	_ "embed"
	"fmt"
	"io"
	"strings"
	"sync"
	"unicode/utf8"

	"github.com/at-ishikawa/cantocards/internal/vocab"
)

//go:embed s2t.tsv
var defaultTableData string

var (
	defaultTableOnce sync.Once
	defaultTable     *Table
)

// Table is a simplified to traditional character mapping.
type Table struct {
	mapping map[rune]rune
}

// NewTable returns an empty table.
func NewTable() *Table {
	return &Table{mapping: make(map[rune]rune)}
}

// DefaultTable returns a copy of the embedded table.
func DefaultTable() *Table {
	defaultTableOnce.Do(func() {
		table, err := ParseTable(strings.NewReader(defaultTableData))
		if err != nil {
			panic(fmt.Errorf("embedded s2t.tsv is invalid: %w", err))
		}
		defaultTable = table
	})
	return defaultTable.clone()
}

// Add registers a mapping. The first mapping registered for a character wins.
func (t *Table) Add(simplified, traditional rune) bool {
	if simplified == traditional {
		return false
	}
	if _, ok := t.mapping[simplified]; ok {
		return false
	}
	t.mapping[simplified] = traditional
	return true
}

// Len returns the number of mappings.
func (t *Table) Len() int {
	return len(t.mapping)
}

func (t *Table) clone() *Table {
	c := NewTable()
	for k, v := range t.mapping {
		c.mapping[k] = v
	}
	return c
}

// ParseTable reads "simplified<TAB>traditional" lines. Blank lines and lines
// starting with # are ignored.
func ParseTable(r io.Reader) (*Table, error) {
	table := NewTable()
	scanner := bufio.NewScanner(r)
	lineNumber := 0
	for scanner.Scan() {
		lineNumber++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) != 2 {
			return nil, fmt.Errorf("line %d: expected 2 fields, got %d", lineNumber, len(fields))
		}
		simplified, traditional := fields[0], fields[1]
		if utf8.RuneCountInString(simplified) != 1 || utf8.RuneCountInString(traditional) != 1 {
			return nil, fmt.Errorf("line %d: both fields must be a single character", lineNumber)
		}
		s, _ := utf8.DecodeRuneInString(simplified)
		tr, _ := utf8.DecodeRuneInString(traditional)
		table.Add(s, tr)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scanner.Err() > %w", err)
	}
	return table, nil
}

// MergeCEDICT adds the single character entries of a CC-CEDICT file
// ("TRAD SIMP [pinyin] /gloss/") whose forms differ. Existing mappings are kept.
func (t *Table) MergeCEDICT(r io.Reader) (int, error) {
	added := 0
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Text()
		if line == "" || line[0] == '#' {
			continue
		}
		head, _, found := strings.Cut(line, "[")
		if !found {
			continue
		}
		characters := strings.Fields(head)
		if len(characters) < 2 {
			continue
		}
		traditional, simplified := characters[0], characters[1]
		if utf8.RuneCountInString(traditional) != 1 || utf8.RuneCountInString(simplified) != 1 {
			continue
		}
		s, _ := utf8.DecodeRuneInString(simplified)
		tr, _ := utf8.DecodeRuneInString(traditional)
		if t.Add(s, tr) {
			added++
		}
	}
	if err := scanner.Err(); err != nil {
		return added, fmt.Errorf("scanner.Err() > %w", err)
	}
	return added, nil
}

// Normalizer applies a table to words. It never fails and is idempotent:
// a character produced by a substitution is never itself substituted.
type Normalizer struct {
	mapping map[rune]rune
}

// NewNormalizer builds a normalizer from the table. Mappings whose source
// character also appears as a substitution target are dropped.
func NewNormalizer(table *Table) *Normalizer {
	mapping := make(map[rune]rune, table.Len())
	targets := make(map[rune]struct{}, table.Len())
	for s, t := range table.mapping {
		mapping[s] = t
		targets[t] = struct{}{}
	}
	for t := range targets {
		delete(mapping, t)
	}
	return &Normalizer{mapping: mapping}
}

// Normalize converts every mapped character and passes the rest through.
func (n *Normalizer) Normalize(word string) string {
	var sb strings.Builder
	sb.Grow(len(word))
	for _, r := range word {
		if t, ok := n.mapping[r]; ok {
			sb.WriteRune(t)
			continue
		}
		sb.WriteRune(r)
	}
	return sb.String()
}

// Word builds a vocabulary word from a raw input token.
func (n *Normalizer) Word(raw string) vocab.Word {
	simplified := strings.TrimSpace(raw)
	return vocab.Word{
		Simplified:  simplified,
		Traditional: n.Normalize(simplified),
	}
}
