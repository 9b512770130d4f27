// Package pipeline drives a word through normalization, retrieval, both
// generation stages and persistence.
package pipeline

// Stage is a step of the per-word pipeline.
type Stage string

const (
	StageNormalize Stage = "normalize"
	StageRetrieve  Stage = "retrieve"
	StageMandarin  Stage = "mandarin"
	StageCantonese Stage = "cantonese"
	StagePersist   Stage = "persist"
)

// State is how far a word got. Transitions are strictly sequential and any
// state may move to StateFailed.
type State string

const (
	StatePending       State = "pending"
	StateNormalized    State = "normalized"
	StateRetrieved     State = "retrieved"
	StateMandarinDone  State = "mandarin_done"
	StateCantoneseDone State = "cantonese_done"
	StateFailed        State = "failed"
)

// stateAfter is the state reached when stage succeeds.
var stateAfter = map[Stage]State{
	StageNormalize: StateNormalized,
	StageRetrieve:  StateRetrieved,
	StageMandarin:  StateMandarinDone,
	StageCantonese: StateCantoneseDone,
}
