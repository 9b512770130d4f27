// Package record stores generated sentence pairs and exports them as flashcards.
package record

import (
	"fmt"
	"strings"
	"time"

	"github.com/at-ishikawa/cantocards/internal/vocab"
)

// GenerationRecord is a word with both of its sentences. It is keyed by
// Word.Simplified and is never stored with an empty sentence.
type GenerationRecord struct {
	ID                int64      `json:"-" yaml:"-"`
	Word              vocab.Word `json:"word" yaml:"word"`
	MandarinSentence  string     `json:"mandarin" yaml:"mandarin"`
	CantoneseSentence string     `json:"cantonese" yaml:"cantonese"`
	CreatedAt         time.Time  `json:"created_at" yaml:"created_at"`
	UpdatedAt         time.Time  `json:"updated_at" yaml:"updated_at"`
}

// Validate reports the first missing field.
func (r GenerationRecord) Validate() error {
	switch {
	case strings.TrimSpace(r.Word.Simplified) == "":
		return fmt.Errorf("%w: missing simplified word", ErrIncomplete)
	case strings.TrimSpace(r.MandarinSentence) == "":
		return fmt.Errorf("%w: missing Mandarin sentence for %s", ErrIncomplete, r.Word.Simplified)
	case strings.TrimSpace(r.CantoneseSentence) == "":
		return fmt.Errorf("%w: missing Cantonese sentence for %s", ErrIncomplete, r.Word.Simplified)
	}
	return nil
}

// Order is the order records are listed and exported in.
type Order string

const (
	OrderInsertion Order = "insertion"
	OrderReverse   Order = "reverse"
)

var AllOrders = []Order{OrderInsertion, OrderReverse}

func ParseOrder(s string) (Order, error) {
	for _, o := range AllOrders {
		if s == string(o) {
			return o, nil
		}
	}
	return "", fmt.Errorf("invalid order %q, valid values are %v", s, AllOrders)
}
