package visibility

import "strings"

// Absence policies: when a rule's dependency is missing, explicitly skipped,
// or present-but-empty, generic comparison cannot apply, so a fixed
// (operator, expected value) table decides the boolean outcome instead.

// skipSynonyms are the expected values a rule author can use to match an
// explicitly skipped dependency.
var skipSynonyms = map[string]struct{}{
	"skipped": {},
	"skip":    {},
	"empty":   {},
	"":        {},
}

// emptySynonyms are the expected values that match a present-but-empty
// dependency.
var emptySynonyms = map[string]struct{}{
	"empty": {},
	"":      {},
	"null":  {},
}

// missingPolicy resolves a rule whose referenced question has no answer
// record at all. Nothing exists to compare against, so only the blankness
// operators can succeed.
func missingPolicy(op Op) bool {
	switch op {
	case OpIsEmpty:
		return true
	case OpIsNotEmpty:
		return false
	default:
		// equals, not_equals, substring, ordering, pattern, and list
		// operators cannot compare against nothing.
		return false
	}
}

// skippedPolicy resolves a rule whose referenced question was explicitly
// skipped by the respondent.
func skippedPolicy(op Op, expected any) bool {
	return absentPolicy(op, expected, skipSynonyms)
}

// emptyPolicy resolves a rule whose referenced question has an answer record
// with a blank value and no skipped mark. Same operator table as skipped,
// but with the empty-synonym set.
func emptyPolicy(op Op, expected any) bool {
	return absentPolicy(op, expected, emptySynonyms)
}

func absentPolicy(op Op, expected any, synonyms map[string]struct{}) bool {
	switch op {
	case OpIsEmpty:
		return true
	case OpIsNotEmpty:
		return false
	case OpEquals:
		return isSynonym(expected, synonyms)
	case OpNotEquals:
		return !isSynonym(expected, synonyms)
	case OpInList:
		for _, candidate := range listCandidates(expected) {
			if isSynonym(candidate, synonyms) {
				return true
			}
		}
		return false
	case OpNotInList:
		for _, candidate := range listCandidates(expected) {
			if isSynonym(candidate, synonyms) {
				return false
			}
		}
		return true
	default:
		// contains, starts_with, ends_with, ordering, and pattern operators
		// have no meaningful result against an absent value.
		return false
	}
}

// targetsSkipState reports whether a rule remains meaningful against an
// explicitly skipped dependency: the blankness operators always are, and the
// equality and list operators are when the expected side names the skip state
// itself. Such rules go through skippedPolicy instead of being dropped.
func targetsSkipState(op Op, expected any) bool {
	switch op {
	case OpIsEmpty, OpIsNotEmpty:
		return true
	case OpEquals, OpNotEquals:
		return isSynonym(expected, skipSynonyms)
	case OpInList, OpNotInList:
		for _, candidate := range listCandidates(expected) {
			if isSynonym(candidate, skipSynonyms) {
				return true
			}
		}
		return false
	default:
		return false
	}
}

func isSynonym(expected any, synonyms map[string]struct{}) bool {
	token := strings.ToLower(strings.TrimSpace(stringify(expected)))
	_, ok := synonyms[token]
	return ok
}
