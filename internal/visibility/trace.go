package visibility

import (
	"github.com/rs/zerolog"
)

// Anomaly names a runtime condition that degraded to a safe default instead
// of raising. Anomalies never interrupt the respondent's flow; they exist so
// the embedding application can count and surface configuration bugs.
type Anomaly string

const (
	AnomalyUnknownOperator  Anomaly = "unknown_operator"
	AnomalyUnparsableNumber Anomaly = "unparsable_number"
	AnomalyInvalidPattern   Anomaly = "invalid_pattern"
)

// RuleTrace records the evaluation of a single rule as data.
type RuleTrace struct {
	QuestionID   string  `json:"question_id"`
	RuleIndex    int     `json:"rule_index"`
	DependsOn    string  `json:"depends_on"`
	Operator     string  `json:"operator"`
	State        string  `json:"state"`
	Actual       any     `json:"actual,omitempty"`
	Expected     any     `json:"expected,omitempty"`
	Result       bool    `json:"result"`
	Anomaly      Anomaly `json:"anomaly,omitempty"`
}

// DecisionTrace records the final visibility decision for a question.
type DecisionTrace struct {
	QuestionID string `json:"question_id"`
	Visible    bool   `json:"visible"`
	Reason     string `json:"reason"`
}

// Decision reasons.
const (
	ReasonDisabled        = "logic_disabled"
	ReasonNoRules         = "no_rules"
	ReasonAllSkipped      = "all_dependencies_skipped"
	ReasonRulesEvaluated  = "rules_evaluated"
)

// Tracer receives evaluation events from the engine. The engine itself never
// writes logs or touches metrics; sinks decide what to do with the events.
// Implementations must be safe for concurrent use, since evaluations for
// different respondents may run in parallel.
type Tracer interface {
	Rule(t RuleTrace)
	Decision(t DecisionTrace)
}

// NopTracer discards all events.
type NopTracer struct{}

func (NopTracer) Rule(RuleTrace)         {}
func (NopTracer) Decision(DecisionTrace) {}

// LogTracer writes evaluation events as structured debug logs.
type LogTracer struct {
	Log zerolog.Logger
}

func (t LogTracer) Rule(ev RuleTrace) {
	entry := t.Log.Debug().
		Str("question_id", ev.QuestionID).
		Int("rule_index", ev.RuleIndex).
		Str("depends_on", ev.DependsOn).
		Str("operator", ev.Operator).
		Str("state", ev.State).
		Bool("result", ev.Result)
	if ev.Anomaly != "" {
		entry = entry.Str("anomaly", string(ev.Anomaly))
	}
	entry.Msg("rule evaluated")
}

func (t LogTracer) Decision(ev DecisionTrace) {
	t.Log.Debug().
		Str("question_id", ev.QuestionID).
		Bool("visible", ev.Visible).
		Str("reason", ev.Reason).
		Msg("visibility decided")
}

// MultiTracer fans events out to several sinks.
type MultiTracer []Tracer

func (m MultiTracer) Rule(ev RuleTrace) {
	for _, t := range m {
		t.Rule(ev)
	}
}

func (m MultiTracer) Decision(ev DecisionTrace) {
	for _, t := range m {
		t.Decision(ev)
	}
}
