package forms

import "time"

// AnswerType is the semantic type of the value a question collects. It drives
// how recorded answers are normalized before rule comparison.
type AnswerType string

// Supported answer types (string values for clean JSON serialization).
const (
	TypeShortText      AnswerType = "short_text"
	TypeLongText       AnswerType = "long_text"
	TypeEmail          AnswerType = "email"
	TypePhone          AnswerType = "phone"
	TypeURL            AnswerType = "url"
	TypeNumber         AnswerType = "number"
	TypeSingleChoice   AnswerType = "single_choice"
	TypeMultipleChoice AnswerType = "multiple_choice"
	TypeCheckbox       AnswerType = "checkbox"
	TypeRating         AnswerType = "rating"
	TypeScale          AnswerType = "scale"
	TypeYesNo          AnswerType = "yes_no"
	TypeDate           AnswerType = "date"
	TypeDatetime       AnswerType = "datetime"
	TypeTime           AnswerType = "time"
	TypeFileUpload     AnswerType = "file_upload"
	TypeImageUpload    AnswerType = "image_upload"
	TypeAddress        AnswerType = "address"
	TypeLocation       AnswerType = "location"
	TypePayment        AnswerType = "payment"
	TypeSignature      AnswerType = "signature"
	TypeNPS            AnswerType = "nps"
	TypeMatrix         AnswerType = "matrix"
	TypeRanking        AnswerType = "ranking"
	TypeDragDrop       AnswerType = "drag_drop"
)

// validAnswerTypes is the closed set of recognised answer types.
var validAnswerTypes = map[AnswerType]struct{}{
	TypeShortText: {}, TypeLongText: {}, TypeEmail: {}, TypePhone: {},
	TypeURL: {}, TypeNumber: {}, TypeSingleChoice: {}, TypeMultipleChoice: {},
	TypeCheckbox: {}, TypeRating: {}, TypeScale: {}, TypeYesNo: {},
	TypeDate: {}, TypeDatetime: {}, TypeTime: {}, TypeFileUpload: {},
	TypeImageUpload: {}, TypeAddress: {}, TypeLocation: {}, TypePayment: {},
	TypeSignature: {}, TypeNPS: {}, TypeMatrix: {}, TypeRanking: {},
	TypeDragDrop: {},
}

// ValidAnswerType reports whether t is one of the supported answer types.
func ValidAnswerType(t AnswerType) bool {
	_, ok := validAnswerTypes[t]
	return ok
}

// Operator is the wire form of a rule comparison operator.
type Operator string

// Supported rule operators.
const (
	OpEquals             Operator = "equals"
	OpNotEquals          Operator = "not_equals"
	OpContains           Operator = "contains"
	OpStartsWith         Operator = "starts_with"
	OpEndsWith           Operator = "ends_with"
	OpGreaterThan        Operator = "greater_than"
	OpGreaterThanOrEqual Operator = "greater_than_or_equal"
	OpLessThan           Operator = "less_than"
	OpLessThanOrEqual    Operator = "less_than_or_equal"
	OpIsEmpty            Operator = "is_empty"
	OpIsNotEmpty         Operator = "is_not_empty"
	OpMatchesPattern     Operator = "matches_pattern"
	OpInList             Operator = "in_list"
	OpNotInList          Operator = "not_in_list"
)

// Rule is a single conditional clause: it references another question, names
// a comparison operator, and carries the expected value. All three fields are
// mandatory; a rule missing any of them is a configuration error caught by
// ValidateConditional, never a runtime condition.
type Rule struct {
	QuestionID string   `json:"question_id"`
	Operator   Operator `json:"operator"`
	Value      any      `json:"value"`
}

// Conditional is a question's visibility configuration. When Enabled is false
// or Rules is empty the question is always visible.
type Conditional struct {
	Enabled  bool   `json:"enabled"`
	LogicOp  string `json:"operator,omitempty"` // "and" (default) or "or"
	Rules    []Rule `json:"rules,omitempty"`
}

// Question is a single form question. Conditional logic is authored once at
// design time and treated as immutable during evaluation.
type Question struct {
	ID          string      `json:"id"`
	Label       string      `json:"label"`
	Type        AnswerType  `json:"type"`
	Required    bool        `json:"required"`
	Position    int         `json:"position"`
	Options     []string    `json:"options,omitempty"`
	Conditional Conditional `json:"conditional"`
}

// Form status values.
const (
	StatusDraft     = "draft"
	StatusPublished = "published"
	StatusClosed    = "closed"
)

// Form is an ordered collection of questions.
type Form struct {
	ID        string     `json:"id"`
	Title     string     `json:"title"`
	Status    string     `json:"status"`
	Env       string     `json:"env"`
	Questions []Question `json:"questions"`
	UpdatedAt time.Time  `json:"updatedAt"`
}

// QuestionByID returns the form question with the given id.
func (f *Form) QuestionByID(id string) (Question, bool) {
	for _, q := range f.Questions {
		if q.ID == id {
			return q, true
		}
	}
	return Question{}, false
}

// QuestionType resolves the answer type of a question on the form, so the
// visibility engine can normalize referenced answers by their own semantics.
func (f *Form) QuestionType(id string) (AnswerType, bool) {
	q, ok := f.QuestionByID(id)
	if !ok {
		return "", false
	}
	return q.Type, true
}
