package visibility

import (
	"regexp"
	"strings"
	"sync"

	"github.com/formship/formship/internal/forms"
)

// Op is the closed set of comparison operators. Rules arrive with string
// operators on the wire; parseOp maps them onto this enum so that every
// dispatch site is an exhaustive switch and a mistyped operator surfaces as
// OpUnknown instead of silently matching nothing.
type Op uint8

const (
	OpUnknown Op = iota
	OpEquals
	OpNotEquals
	OpContains
	OpStartsWith
	OpEndsWith
	OpGreaterThan
	OpGreaterThanOrEqual
	OpLessThan
	OpLessThanOrEqual
	OpIsEmpty
	OpIsNotEmpty
	OpMatchesPattern
	OpInList
	OpNotInList
)

var opNames = map[Op]string{
	OpUnknown:            "unknown",
	OpEquals:             string(forms.OpEquals),
	OpNotEquals:          string(forms.OpNotEquals),
	OpContains:           string(forms.OpContains),
	OpStartsWith:         string(forms.OpStartsWith),
	OpEndsWith:           string(forms.OpEndsWith),
	OpGreaterThan:        string(forms.OpGreaterThan),
	OpGreaterThanOrEqual: string(forms.OpGreaterThanOrEqual),
	OpLessThan:           string(forms.OpLessThan),
	OpLessThanOrEqual:    string(forms.OpLessThanOrEqual),
	OpIsEmpty:            string(forms.OpIsEmpty),
	OpIsNotEmpty:         string(forms.OpIsNotEmpty),
	OpMatchesPattern:     string(forms.OpMatchesPattern),
	OpInList:             string(forms.OpInList),
	OpNotInList:          string(forms.OpNotInList),
}

func (o Op) String() string {
	if name, ok := opNames[o]; ok {
		return name
	}
	return "unknown"
}

func parseOp(op forms.Operator) Op {
	switch op {
	case forms.OpEquals:
		return OpEquals
	case forms.OpNotEquals:
		return OpNotEquals
	case forms.OpContains:
		return OpContains
	case forms.OpStartsWith:
		return OpStartsWith
	case forms.OpEndsWith:
		return OpEndsWith
	case forms.OpGreaterThan:
		return OpGreaterThan
	case forms.OpGreaterThanOrEqual:
		return OpGreaterThanOrEqual
	case forms.OpLessThan:
		return OpLessThan
	case forms.OpLessThanOrEqual:
		return OpLessThanOrEqual
	case forms.OpIsEmpty:
		return OpIsEmpty
	case forms.OpIsNotEmpty:
		return OpIsNotEmpty
	case forms.OpMatchesPattern:
		return OpMatchesPattern
	case forms.OpInList:
		return OpInList
	case forms.OpNotInList:
		return OpNotInList
	default:
		return OpUnknown
	}
}

// comparison carries both the normalized and the original values for one
// rule: substring and equality operators work on the normalized strings,
// while ordering and pattern operators need the originals.
type comparison struct {
	op           Op
	normActual   string
	normExpected string
	rawActual    any
	rawExpected  any
}

// evalOp evaluates one comparison to a boolean, per the fixed operator table.
// The returned anomaly is empty unless the comparison degraded to a safe
// default (unknown operator, invalid pattern, unparsable number).
func evalOp(c comparison) (bool, Anomaly) {
	switch c.op {
	case OpEquals:
		return c.normActual == c.normExpected, ""
	case OpNotEquals:
		return c.normActual != c.normExpected, ""
	case OpContains:
		return strings.Contains(c.normActual, c.normExpected), ""
	case OpStartsWith:
		return strings.HasPrefix(c.normActual, c.normExpected), ""
	case OpEndsWith:
		return strings.HasSuffix(c.normActual, c.normExpected), ""
	case OpGreaterThan, OpGreaterThanOrEqual, OpLessThan, OpLessThanOrEqual:
		return evalOrdering(c)
	case OpIsEmpty:
		return isBlank(c.rawActual), ""
	case OpIsNotEmpty:
		return !isBlank(c.rawActual), ""
	case OpMatchesPattern:
		return evalPattern(c)
	case OpInList:
		return listContains(c.rawExpected, c.normActual), ""
	case OpNotInList:
		return !listContains(c.rawExpected, c.normActual), ""
	case OpUnknown:
		return false, AnomalyUnknownOperator
	default:
		return false, AnomalyUnknownOperator
	}
}

// evalOrdering coerces the original values numerically and compares. A value
// that cannot be coerced counts as 0.0, which keeps evaluation total, but is
// reported so configuration bugs do not hide behind the default.
func evalOrdering(c comparison) (bool, Anomaly) {
	actual, okActual := coerceNumber(c.rawActual)
	expected, okExpected := coerceNumber(c.rawExpected)

	var anomaly Anomaly
	if !okActual || !okExpected {
		anomaly = AnomalyUnparsableNumber
	}

	switch c.op {
	case OpGreaterThan:
		return actual > expected, anomaly
	case OpGreaterThanOrEqual:
		return actual >= expected, anomaly
	case OpLessThan:
		return actual < expected, anomaly
	case OpLessThanOrEqual:
		return actual <= expected, anomaly
	default:
		return false, AnomalyUnknownOperator
	}
}

// patternCache keeps compiled case-insensitive patterns for the hot
// evaluation path. Patterns come from question configuration, not respondent
// data, so sharing the cache across evaluations is safe.
var patternCache sync.Map // pattern string -> *regexp.Regexp

func evalPattern(c comparison) (bool, Anomaly) {
	pattern := stringify(c.rawExpected)
	rx, ok := compiledPattern(pattern)
	if !ok {
		return false, AnomalyInvalidPattern
	}
	return rx.MatchString(stringify(c.rawActual)), ""
}

func compiledPattern(pattern string) (*regexp.Regexp, bool) {
	if cached, ok := patternCache.Load(pattern); ok {
		rx, ok := cached.(*regexp.Regexp)
		return rx, ok
	}
	rx, err := regexp.Compile("(?i)" + pattern)
	if err != nil {
		return nil, false
	}
	patternCache.Store(pattern, rx)
	return rx, true
}

// listCandidates expands an in_list/not_in_list expected value into its
// member strings: either an array or a comma-separated string.
func listCandidates(expected any) []string {
	switch list := expected.(type) {
	case []string:
		return list
	case []any:
		out := make([]string, 0, len(list))
		for _, item := range list {
			out = append(out, stringify(item))
		}
		return out
	case string:
		return strings.Split(list, ",")
	default:
		return []string{stringify(expected)}
	}
}

// listContains tests membership. Each candidate is normalized as a
// short-text value before the test, matching how the actual was normalized.
func listContains(expected any, normActual string) bool {
	for _, candidate := range listCandidates(expected) {
		if Normalize(candidate, forms.TypeShortText) == normActual {
			return true
		}
	}
	return false
}
