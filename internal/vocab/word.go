// Package vocab holds the vocabulary word shared by every pipeline stage.
package vocab

// Word is a vocabulary word after script normalization.
// Simplified is the key used by the result store; Traditional is the
// retrieval key for dictionary headwords.
type Word struct {
	Simplified  string `json:"simplified" yaml:"simplified" db:"simplified"`
	Traditional string `json:"traditional" yaml:"traditional" db:"traditional"`
}

// IsZero reports whether the word has no simplified form.
func (w Word) IsZero() bool {
	return w.Simplified == ""
}

func (w Word) String() string {
	if w.Traditional == "" || w.Traditional == w.Simplified {
		return w.Simplified
	}
	return w.Simplified + " (" + w.Traditional + ")"
}
