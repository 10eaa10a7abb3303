package visibility

import (
	"encoding/json"
	"strconv"
	"strings"
	"time"

	"github.com/formship/formship/internal/forms"
)

// Normalize canonicalizes a raw value into a comparable string based on the
// semantic type of the question that produced it. It is pure and total: it
// never panics for well-formed primitive inputs and never mutates its
// argument. Absent values are not normalized here; the absence-policy tables
// handle them separately.
func Normalize(value any, t forms.AnswerType) string {
	s := stringify(value)

	switch {
	case isBooleanType(t):
		return normalizeBoolean(s)
	case isNumericType(t):
		return stripNumericNoise(s)
	case isDateType(t):
		return normalizeDate(s)
	default:
		return strings.ToLower(strings.TrimSpace(s))
	}
}

func isBooleanType(t forms.AnswerType) bool {
	return t == forms.TypeYesNo || t == forms.TypeCheckbox
}

func isNumericType(t forms.AnswerType) bool {
	switch t {
	case forms.TypeNumber, forms.TypeRating, forms.TypeScale, forms.TypeNPS:
		return true
	}
	return false
}

func isDateType(t forms.AnswerType) bool {
	switch t {
	case forms.TypeDate, forms.TypeDatetime, forms.TypeTime:
		return true
	}
	return false
}

// booleanSynonyms maps the closed set of case-insensitive truthy/falsy tokens
// to their canonical form. Unrecognized tokens pass through lower-cased and
// trimmed.
var booleanSynonyms = map[string]string{
	"true": "true", "1": "true", "yes": "true", "y": "true",
	"sí": "true", "si": "true", "ok": "true", "okay": "true",
	"false": "false", "0": "false", "no": "false", "n": "false",
	"not": "false", "nope": "false",
}

func normalizeBoolean(s string) string {
	token := strings.ToLower(strings.TrimSpace(s))
	if canonical, ok := booleanSynonyms[token]; ok {
		return canonical
	}
	return token
}

// stripNumericNoise removes currency symbols, thousands separators, and
// surrounding whitespace, leaving a numeric-looking string. It deliberately
// does not coerce to a number; ordering operators do their own coercion on
// the original values.
func stripNumericNoise(s string) string {
	s = strings.TrimSpace(s)
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		switch r {
		case '$', '€', '£', '¥', ',', ' ':
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// dateLayouts are tried in order when reparsing date-ish values. The first
// match wins; US-style slashes are tried before the ambiguous short forms.
var dateLayouts = []string{
	"2006-01-02",
	time.RFC3339,
	"2006-01-02 15:04:05",
	"01/02/2006",
	"1/2/2006",
	"2006/01/02",
	"02 Jan 2006",
	"Jan 2, 2006",
	"January 2, 2006",
}

const canonicalDateLayout = "2006-01-02"

// normalizeDate reparses a calendar date into YYYY-MM-DD. On parse failure it
// falls back to the trimmed original string; it never raises.
func normalizeDate(s string) string {
	trimmed := strings.TrimSpace(s)
	if d, ok := parseDate(trimmed); ok {
		return d.Format(canonicalDateLayout)
	}
	return trimmed
}

func parseDate(s string) (time.Time, bool) {
	for _, layout := range dateLayouts {
		if d, err := time.Parse(layout, s); err == nil {
			return d, true
		}
	}
	return time.Time{}, false
}

// stringify renders a raw answer value as a string without losing numeric
// precision. Slices (multiple choice selections) join with commas so that
// substring and membership operators behave predictably.
func stringify(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case bool:
		if val {
			return "true"
		}
		return "false"
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(val), 'f', -1, 32)
	case int:
		return strconv.Itoa(val)
	case int32:
		return strconv.FormatInt(int64(val), 10)
	case int64:
		return strconv.FormatInt(val, 10)
	case json.Number:
		return val.String()
	case []string:
		return strings.Join(val, ",")
	case []any:
		parts := make([]string, 0, len(val))
		for _, item := range val {
			parts = append(parts, stringify(item))
		}
		return strings.Join(parts, ",")
	case map[string]any:
		if len(val) == 0 {
			return ""
		}
		b, err := json.Marshal(val)
		if err != nil {
			return ""
		}
		return string(b)
	default:
		b, err := json.Marshal(val)
		if err != nil {
			return ""
		}
		return strings.Trim(string(b), `"`)
	}
}

// coerceNumber converts a raw value to float64 for ordering comparisons,
// stripping currency noise from strings first. The ok result is false when
// the value is not numeric; callers treat that as 0.0 and report an anomaly.
func coerceNumber(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	case string:
		cleaned := stripNumericNoise(n)
		if cleaned == "" {
			return 0, false
		}
		f, err := strconv.ParseFloat(cleaned, 64)
		if err != nil {
			return 0, false
		}
		return f, true
	default:
		return 0, false
	}
}

// isBlank reports whether a present value is effectively empty: nil, a
// whitespace-only string, an empty collection, or an empty object.
func isBlank(v any) bool {
	switch val := v.(type) {
	case nil:
		return true
	case string:
		return strings.TrimSpace(val) == ""
	case []any:
		return len(val) == 0
	case []string:
		return len(val) == 0
	case map[string]any:
		return len(val) == 0
	default:
		return false
	}
}
