// Package dictionary reads Words.HK dictionary entries.
package dictionary

import "strings"

// Register is the formality level of an entry.
type Register string

const (
	RegisterColloquial Register = "colloquial"
	RegisterFormal     Register = "formal"
)

// Labels and markers that put an entry in the formal register.
var formalLabels = []string{"書面語", "大陸"}

const formalMarker = "!!!formal"

// DictionaryEntry is one sense of a Words.HK entry.
// An entry is identified by ID and SenseIndex.
type DictionaryEntry struct {
	ID            int64    `json:"id" db:"id"`
	SenseIndex    int      `json:"sense_index" db:"sense_index"`
	Headword      string   `json:"headword" db:"headword"`
	Variants      []string `json:"variants,omitempty"`
	Jyutping      string   `json:"jyutping,omitempty" db:"jyutping"`
	PartOfSpeech  string   `json:"pos,omitempty" db:"pos"`
	Labels        []string `json:"labels,omitempty"`
	Synonyms      []string `json:"synonyms,omitempty"`
	Definition    string   `json:"definition" db:"definition"`
	English       string   `json:"english,omitempty" db:"english"`
	UsageExamples []string `json:"usage_examples,omitempty"`
	Register      Register `json:"register" db:"register"`
	// Text is the raw record text of this sense, including the entry header.
	Text string `json:"text" db:"text"`
}

// IsFormal reports whether the entry is bookish or mainland usage.
func (e DictionaryEntry) IsFormal() bool {
	return e.Register == RegisterFormal
}

// HasHeadword reports whether word is the headword or one of its variants.
func (e DictionaryEntry) HasHeadword(word string) bool {
	if e.Headword == word {
		return true
	}
	for _, v := range e.Variants {
		if v == word {
			return true
		}
	}
	return false
}

// EmbeddingText is the text used to embed the entry for retrieval.
func (e DictionaryEntry) EmbeddingText() string {
	parts := []string{e.Headword}
	if e.Definition != "" {
		parts = append(parts, e.Definition)
	}
	if e.English != "" {
		parts = append(parts, e.English)
	}
	return strings.Join(parts, "\n")
}

func registerOf(labels []string, text string) Register {
	if strings.Contains(text, formalMarker) {
		return RegisterFormal
	}
	for _, label := range labels {
		for _, formal := range formalLabels {
			if label == formal {
				return RegisterFormal
			}
		}
	}
	return RegisterColloquial
}

// RetrievalResult is a ranked list of entries, most relevant first.
// An empty result is valid.
type RetrievalResult []DictionaryEntry

// IsEmpty reports whether nothing was retrieved.
func (r RetrievalResult) IsEmpty() bool {
	return len(r) == 0
}
