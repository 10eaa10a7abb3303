package store

import (
	"context"
	"errors"
	"time"

	"github.com/formship/formship/internal/forms"
	"github.com/formship/formship/internal/visibility"
)

// Sentinel errors shared by all Store implementations.
var (
	ErrFormNotFound     = errors.New("form not found")
	ErrResponseNotFound = errors.New("response not found")
)

// Store defines the interface for form and response persistence.
// Implementations must be thread-safe and support concurrent access.
type Store interface {
	// ListForms retrieves all forms for the given environment.
	// Returns an empty slice if no forms are found.
	ListForms(ctx context.Context, env string) ([]forms.Form, error)

	// GetForm retrieves a single form by its id.
	// Returns ErrFormNotFound if the form does not exist.
	GetForm(ctx context.Context, id string) (*forms.Form, error)

	// UpsertForm creates or updates a form.
	// If a form with the same id exists, it will be replaced.
	UpsertForm(ctx context.Context, f forms.Form) error

	// DeleteForm removes a form by id and environment.
	// Returns no error if the form doesn't exist (idempotent).
	DeleteForm(ctx context.Context, id, env string) error

	// CreateResponse starts a new response session against a form.
	CreateResponse(ctx context.Context, formID string) (*Response, error)

	// GetResponse retrieves a response by its id.
	// Returns ErrResponseNotFound if the response does not exist.
	GetResponse(ctx context.Context, id string) (*Response, error)

	// ListResponses retrieves all responses recorded against a form.
	ListResponses(ctx context.Context, formID string) ([]Response, error)

	// SaveAnswer records or replaces one answer on a response. An answer
	// with Skipped set records an explicit skip regardless of its value.
	SaveAnswer(ctx context.Context, responseID, questionID string, answer visibility.Answer) error

	// CompleteResponse marks a response as submitted.
	CompleteResponse(ctx context.Context, id string) error

	// Close releases any resources held by the store.
	// After Close is called, the store should not be used.
	Close() error
}

// Response is one respondent's session against a form: the answers recorded
// so far, keyed by question id, plus completion state.
type Response struct {
	ID        string                  `json:"id"`
	FormID    string                  `json:"formId"`
	Answers   visibility.MapAnswerSet `json:"answers"`
	Completed bool                    `json:"completed"`
	CreatedAt time.Time               `json:"createdAt"`
	UpdatedAt time.Time               `json:"updatedAt"`
}
