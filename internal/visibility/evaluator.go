package visibility

import (
	"github.com/formship/formship/internal/forms"
)

// Evaluator is the single public entry point for visibility decisions. It is
// stateless apart from its injected collaborators and safe for concurrent
// use across respondents.
type Evaluator struct {
	types  TypeResolver
	tracer Tracer
}

// NewEvaluator builds an evaluator. A nil tracer discards trace events.
func NewEvaluator(types TypeResolver, tracer Tracer) *Evaluator {
	if tracer == nil {
		tracer = NopTracer{}
	}
	return &Evaluator{types: types, tracer: tracer}
}

// ShouldShow reports whether the question must be shown to the respondent
// whose answers are in the given set. It is a total function: no input makes
// it panic, and repeated calls with the same inputs return the same result.
func (e *Evaluator) ShouldShow(q forms.Question, answers AnswerSet) bool {
	cond := q.Conditional

	if !cond.Enabled {
		e.tracer.Decision(DecisionTrace{QuestionID: q.ID, Visible: true, Reason: ReasonDisabled})
		return true
	}
	if len(cond.Rules) == 0 {
		e.tracer.Decision(DecisionTrace{QuestionID: q.ID, Visible: true, Reason: ReasonNoRules})
		return true
	}

	rules := cond.Rules
	cls := classifyRules(rules, answers)

	// Rules that depend on explicitly skipped questions cannot compare
	// ordinarily, so they are dropped before combination -- except rules that
	// target the skip state itself (blankness operators, or an expected value
	// that is a skip synonym), which evaluate through the skipped-dependency
	// policy. If nothing survives, all conditions depend on things that never
	// happened, so the question does not apply either.
	if cls.hasSkipped() {
		filtered := make([]forms.Rule, 0, len(rules))
		for _, r := range rules {
			if !cls.isSkipped(r.QuestionID) || targetsSkipState(parseOp(r.Operator), r.Value) {
				filtered = append(filtered, r)
			}
		}
		if len(filtered) == 0 {
			e.tracer.Decision(DecisionTrace{QuestionID: q.ID, Visible: false, Reason: ReasonAllSkipped})
			return false
		}
		rules = filtered
	}

	visible := e.combineRules(q, rules, answers)
	e.tracer.Decision(DecisionTrace{QuestionID: q.ID, Visible: visible, Reason: ReasonRulesEvaluated})
	return visible
}

// EvaluateForm runs the visibility decision for every question on the form,
// the sweep used when checking whether a response can be completed. The
// result maps question id to visibility.
func (e *Evaluator) EvaluateForm(f *forms.Form, answers AnswerSet) map[string]bool {
	results := make(map[string]bool, len(f.Questions))
	for _, q := range f.Questions {
		results[q.ID] = e.ShouldShow(q, answers)
	}
	return results
}

// combineRules evaluates every rule and combines the results with the
// question's logic operator. An unknown logic operator falls back to "and".
func (e *Evaluator) combineRules(q forms.Question, rules []forms.Rule, answers AnswerSet) bool {
	anyTrue := false
	allTrue := true
	for i, r := range rules {
		result := e.evalRule(q.ID, i, r, answers)
		anyTrue = anyTrue || result
		allTrue = allTrue && result
	}

	if q.Conditional.LogicOp == "or" {
		return anyTrue
	}
	return allTrue
}

// evalRule resolves one rule to a boolean. Normal dependencies go through
// normalization and the comparison engine; missing, skipped, and
// present-but-empty dependencies are resolved by their absence policies.
func (e *Evaluator) evalRule(questionID string, index int, r forms.Rule, answers AnswerSet) bool {
	op := parseOp(r.Operator)
	state, answer := ruleState(r, answers)

	var result bool
	var anomaly Anomaly

	switch {
	case op == OpUnknown:
		// Unknown operators resolve to false regardless of dependency state,
		// and are reported so configuration bugs do not stay invisible.
		result, anomaly = false, AnomalyUnknownOperator
	case state == depMissing:
		result = missingPolicy(op)
	case state == depSkipped:
		result = skippedPolicy(op, r.Value)
	case state == depEmpty:
		result = emptyPolicy(op, r.Value)
	default:
		result, anomaly = e.compareAnswer(r, op, answer)
	}

	e.tracer.Rule(RuleTrace{
		QuestionID: questionID,
		RuleIndex:  index,
		DependsOn:  r.QuestionID,
		Operator:   op.String(),
		State:      state.String(),
		Actual:     answer.Value,
		Expected:   r.Value,
		Result:     result,
		Anomaly:    anomaly,
	})
	return result
}

// compareAnswer normalizes both sides by the referenced question's own
// semantic type and runs the comparison engine. A referenced question whose
// type cannot be resolved normalizes with short-text semantics.
func (e *Evaluator) compareAnswer(r forms.Rule, op Op, answer Answer) (bool, Anomaly) {
	sourceType := forms.TypeShortText
	if e.types != nil {
		if t, ok := e.types.QuestionType(r.QuestionID); ok {
			sourceType = t
		}
	}

	return evalOp(comparison{
		op:           op,
		normActual:   Normalize(answer.Value, sourceType),
		normExpected: Normalize(r.Value, sourceType),
		rawActual:    answer.Value,
		rawExpected:  r.Value,
	})
}
