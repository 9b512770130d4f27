// Package corpus indexes dictionary entries for retrieval by headword.
package corpus

import (
	"context"

	"github.com/at-ishikawa/cantocards/internal/dictionary"
)

//go:generate mockgen -source=retriever.go -destination=../mocks/corpus/mock_retriever.go -package=mock_corpus

// Retriever looks up dictionary entries for a word.
// Unknown words are not an error; they yield an empty result.
type Retriever interface {
	Lookup(ctx context.Context, headword string, k int) (dictionary.RetrievalResult, error)
}
