package visibility

import "github.com/formship/formship/internal/forms"

// classification is the pre-comparison summary of a question's full rule
// set: which referenced questions were explicitly skipped and which have no
// answer record at all. It runs before any comparison so the absence-policy
// tables, not the comparison engine, decide the outcome for non-normal rules.
type classification struct {
	skipped map[string]struct{}
	missing map[string]struct{}
}

func (c classification) hasSkipped() bool { return len(c.skipped) > 0 }
func (c classification) hasMissing() bool { return len(c.missing) > 0 }

func (c classification) isSkipped(questionID string) bool {
	_, ok := c.skipped[questionID]
	return ok
}

// classifyRules inspects every rule's referenced question once. A rule whose
// referenced question does not exist in the answer set is missing; a rule
// whose answer record carries the skipped mark is skipped; everything else is
// normal and proceeds to comparison.
func classifyRules(rules []forms.Rule, answers AnswerSet) classification {
	cls := classification{
		skipped: make(map[string]struct{}),
		missing: make(map[string]struct{}),
	}
	for _, r := range rules {
		answer, ok := answers.GetAnswer(r.QuestionID)
		switch {
		case !ok:
			cls.missing[r.QuestionID] = struct{}{}
		case answer.Skipped:
			cls.skipped[r.QuestionID] = struct{}{}
		}
	}
	return cls
}

// ruleState resolves the dependency state for a single rule at evaluation
// time. Present-but-empty is only detectable here, after the value has been
// extracted from the record.
func ruleState(r forms.Rule, answers AnswerSet) (depState, Answer) {
	answer, ok := answers.GetAnswer(r.QuestionID)
	switch {
	case !ok:
		return depMissing, Answer{}
	case answer.Skipped:
		return depSkipped, answer
	case isBlank(answer.Value):
		return depEmpty, answer
	default:
		return depNormal, answer
	}
}
