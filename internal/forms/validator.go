package forms

import (
	"errors"
	"fmt"
	"regexp"
)

// Sentinel errors returned by conditional-logic validation.
var (
	ErrInvalidRule       = errors.New("invalid rule")
	ErrInvalidOperator   = errors.New("invalid operator")
	ErrInvalidValueType  = errors.New("invalid value type")
	ErrInvalidPattern    = errors.New("invalid pattern")
	ErrUnknownQuestion   = errors.New("unknown question reference")
	ErrCyclicRules       = errors.New("cyclic rule reference")
	ErrInvalidAnswerType = errors.New("invalid answer type")
	ErrInvalidLogicOp    = errors.New("invalid logic operator")
)

// validOperators is the set of all recognised rule operators.
var validOperators = map[Operator]struct{}{
	OpEquals: {}, OpNotEquals: {}, OpContains: {}, OpStartsWith: {},
	OpEndsWith: {}, OpGreaterThan: {}, OpGreaterThanOrEqual: {},
	OpLessThan: {}, OpLessThanOrEqual: {}, OpIsEmpty: {}, OpIsNotEmpty: {},
	OpMatchesPattern: {}, OpInList: {}, OpNotInList: {},
}

// ValidOperator reports whether op is one of the supported rule operators.
func ValidOperator(op Operator) bool {
	_, ok := validOperators[op]
	return ok
}

// ValidateConditional performs strict validation of a question's conditional
// configuration. It is a pure function: it never mutates q and has no side
// effects. Malformed rules are configuration errors and must be rejected here
// so they never reach runtime evaluation.
func ValidateConditional(q Question) error {
	cond := q.Conditional
	if !cond.Enabled {
		return nil
	}

	switch cond.LogicOp {
	case "", "and", "or":
	default:
		return fmt.Errorf("%w: question %q logic operator %q is not supported", ErrInvalidLogicOp, q.ID, cond.LogicOp)
	}

	for i, r := range cond.Rules {
		if err := validateRule(q.ID, i, r); err != nil {
			return err
		}
		if r.QuestionID == q.ID {
			return fmt.Errorf("%w: question %q rule[%d] references itself", ErrCyclicRules, q.ID, i)
		}
	}

	return nil
}

func validateRule(questionID string, i int, r Rule) error {
	if r.QuestionID == "" {
		return fmt.Errorf("%w: question %q rule[%d] is missing question_id", ErrInvalidRule, questionID, i)
	}
	if r.Operator == "" {
		return fmt.Errorf("%w: question %q rule[%d] is missing operator", ErrInvalidRule, questionID, i)
	}
	if r.Value == nil {
		return fmt.Errorf("%w: question %q rule[%d] is missing value", ErrInvalidRule, questionID, i)
	}
	if !ValidOperator(r.Operator) {
		return fmt.Errorf("%w: question %q rule[%d] operator %q is not supported", ErrInvalidOperator, questionID, i, r.Operator)
	}
	return validateRuleValue(questionID, i, r)
}

// validateRuleValue checks that the expected value has a type compatible with
// the operator. It uses explicit type assertions, no reflection.
func validateRuleValue(questionID string, i int, r Rule) error {
	switch r.Operator {
	case OpMatchesPattern:
		pattern, ok := r.Value.(string)
		if !ok {
			return fmt.Errorf("%w: question %q rule[%d] operator %q requires a string pattern", ErrInvalidValueType, questionID, i, r.Operator)
		}
		// Patterns are applied case-insensitively at evaluation time; compile
		// the same way here so bad patterns fail at save time.
		if _, err := regexp.Compile("(?i)" + pattern); err != nil {
			return fmt.Errorf("%w: question %q rule[%d]: %v", ErrInvalidPattern, questionID, i, err)
		}

	case OpInList, OpNotInList:
		if !isListValue(r.Value) {
			return fmt.Errorf("%w: question %q rule[%d] operator %q requires an array or comma-separated string", ErrInvalidValueType, questionID, i, r.Operator)
		}

	case OpGreaterThan, OpGreaterThanOrEqual, OpLessThan, OpLessThanOrEqual:
		// Ordering operators coerce at evaluation time, so any scalar is
		// accepted here; arrays make no sense against an ordering.
		if !isScalar(r.Value) {
			return fmt.Errorf("%w: question %q rule[%d] operator %q requires a scalar value", ErrInvalidValueType, questionID, i, r.Operator)
		}

	default:
		if !isScalar(r.Value) {
			return fmt.Errorf("%w: question %q rule[%d] operator %q requires a scalar value (string, bool, or number)", ErrInvalidValueType, questionID, i, r.Operator)
		}
	}

	return nil
}

// isListValue returns true for values acceptable to in_list/not_in_list: a
// slice (as produced by JSON unmarshaling or built programmatically) or a
// comma-separated string.
func isListValue(v any) bool {
	switch v.(type) {
	case []any, []string, []int, []float64, string:
		return true
	}
	return false
}

// isScalar returns true for basic scalar types (string, bool, numeric).
func isScalar(v any) bool {
	switch v.(type) {
	case string, bool, int, int32, int64, float32, float64:
		return true
	}
	return false
}

// ValidateForm validates every question of a form: answer types, conditional
// configurations, referenced-question existence, and rule-graph acyclicity.
// Returns the first error found.
func ValidateForm(f *Form) error {
	ids := make(map[string]struct{}, len(f.Questions))
	for _, q := range f.Questions {
		if q.ID == "" {
			return fmt.Errorf("%w: form %q has a question with no id", ErrInvalidRule, f.ID)
		}
		ids[q.ID] = struct{}{}
	}

	for _, q := range f.Questions {
		if !ValidAnswerType(q.Type) {
			return fmt.Errorf("%w: question %q type %q is not supported", ErrInvalidAnswerType, q.ID, q.Type)
		}
		if err := ValidateConditional(q); err != nil {
			return err
		}
		if !q.Conditional.Enabled {
			continue
		}
		for i, r := range q.Conditional.Rules {
			if _, ok := ids[r.QuestionID]; !ok {
				return fmt.Errorf("%w: question %q rule[%d] references %q which is not on the form", ErrUnknownQuestion, q.ID, i, r.QuestionID)
			}
		}
	}

	return detectCycles(f)
}

// dfs colors for cycle detection.
const (
	colorWhite = iota // unvisited
	colorGray         // on the current path
	colorBlack        // fully explored
)

// detectCycles rejects rule graphs where a question's visibility depends,
// directly or transitively, on itself. Evaluation does not recurse, but a
// cyclic configuration can never behave the way its author intended, so it
// is refused at save time.
func detectCycles(f *Form) error {
	edges := make(map[string][]string, len(f.Questions))
	for _, q := range f.Questions {
		if !q.Conditional.Enabled {
			continue
		}
		for _, r := range q.Conditional.Rules {
			edges[q.ID] = append(edges[q.ID], r.QuestionID)
		}
	}

	color := make(map[string]int, len(f.Questions))
	var visit func(id string) error
	visit = func(id string) error {
		color[id] = colorGray
		for _, dep := range edges[id] {
			switch color[dep] {
			case colorGray:
				return fmt.Errorf("%w: question %q participates in a dependency cycle via %q", ErrCyclicRules, id, dep)
			case colorWhite:
				if err := visit(dep); err != nil {
					return err
				}
			}
		}
		color[id] = colorBlack
		return nil
	}

	for _, q := range f.Questions {
		if color[q.ID] == colorWhite {
			if err := visit(q.ID); err != nil {
				return err
			}
		}
	}
	return nil
}
