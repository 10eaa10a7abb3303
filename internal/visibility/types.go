// Package visibility decides whether a conditional question should be shown
// to a respondent, given the answers already recorded for other questions.
//
// The engine is pure with respect to its inputs: question configuration and
// the respondent's answer set are read-only snapshots, repeated evaluation is
// idempotent, and no state is retained between calls. All I/O (loading forms
// and answers) happens before the engine runs, behind the AnswerSet and
// TypeResolver interfaces.
package visibility

import (
	"github.com/formship/formship/internal/forms"
)

// Answer is one recorded answer. Skipped is independent of value absence: a
// question can be explicitly skipped with no value ever collected, and it can
// carry a recorded-but-empty value without being marked skipped.
type Answer struct {
	Value   any  `json:"value"`
	Skipped bool `json:"skipped"`
}

// AnswerSet is the read-only snapshot of one respondent's answers, queried by
// question identifier. It must not change during a single evaluation call.
type AnswerSet interface {
	// GetAnswer returns the recorded answer for a question, and whether any
	// record exists at all.
	GetAnswer(questionID string) (Answer, bool)
}

// TypeResolver resolves the semantic answer type of a referenced question, so
// its recorded value can be normalized using its own semantics.
type TypeResolver interface {
	QuestionType(questionID string) (forms.AnswerType, bool)
}

// MapAnswerSet is an in-memory AnswerSet, convenient for tests and for
// callers that already hold the full answer map.
type MapAnswerSet map[string]Answer

// GetAnswer implements AnswerSet.
func (m MapAnswerSet) GetAnswer(questionID string) (Answer, bool) {
	a, ok := m[questionID]
	return a, ok
}

// depState classifies one rule's dependency before comparison. Non-normal
// states are resolved by the absence-policy tables instead of the comparison
// engine; the three absent states are behaviorally distinct (never-reached,
// explicitly-declined, reached-but-blank) and rule authors can write
// conditions that tell them apart.
type depState uint8

const (
	depNormal depState = iota
	depMissing
	depSkipped
	depEmpty
)

func (s depState) String() string {
	switch s {
	case depNormal:
		return "normal"
	case depMissing:
		return "missing"
	case depSkipped:
		return "skipped"
	case depEmpty:
		return "empty"
	default:
		return "unknown"
	}
}
