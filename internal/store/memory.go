package store

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/formship/formship/internal/forms"
	"github.com/formship/formship/internal/visibility"
)

// MemoryStore is an in-memory implementation of the Store interface.
// It uses maps for storage and RWMutex for thread-safe concurrent access.
// This implementation is suitable for development, testing, or single-instance deployments.
type MemoryStore struct {
	mu        sync.RWMutex
	forms     map[string]forms.Form // form id -> Form
	responses map[string]Response   // response id -> Response
}

// NewMemoryStore creates a new in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		forms:     make(map[string]forms.Form),
		responses: make(map[string]Response),
	}
}

// ListForms retrieves all forms for the given environment.
func (m *MemoryStore) ListForms(ctx context.Context, env string) ([]forms.Form, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := make([]forms.Form, 0, len(m.forms))
	for _, f := range m.forms {
		if f.Env == env {
			result = append(result, f)
		}
	}
	return result, nil
}

// GetForm retrieves a single form by its id.
func (m *MemoryStore) GetForm(ctx context.Context, id string) (*forms.Form, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	f, exists := m.forms[id]
	if !exists {
		return nil, fmt.Errorf("%w: %s", ErrFormNotFound, id)
	}
	return &f, nil
}

// UpsertForm creates or updates a form in memory.
func (m *MemoryStore) UpsertForm(ctx context.Context, f forms.Form) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	f.UpdatedAt = time.Now().UTC()
	m.forms[f.ID] = f
	return nil
}

// DeleteForm removes a form from memory.
func (m *MemoryStore) DeleteForm(ctx context.Context, id, env string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	// Check the environment before deleting so one environment cannot
	// remove another's form by id.
	if f, exists := m.forms[id]; exists && f.Env == env {
		delete(m.forms, id)
	}

	// Idempotent: no error if the form doesn't exist
	return nil
}

// CreateResponse starts a new response session against a form.
func (m *MemoryStore) CreateResponse(ctx context.Context, formID string) (*Response, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.forms[formID]; !exists {
		return nil, fmt.Errorf("%w: %s", ErrFormNotFound, formID)
	}

	now := time.Now().UTC()
	r := Response{
		ID:        uuid.NewString(),
		FormID:    formID,
		Answers:   make(visibility.MapAnswerSet),
		CreatedAt: now,
		UpdatedAt: now,
	}
	m.responses[r.ID] = r
	return cloneResponse(r), nil
}

// GetResponse retrieves a response by its id.
func (m *MemoryStore) GetResponse(ctx context.Context, id string) (*Response, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	r, exists := m.responses[id]
	if !exists {
		return nil, fmt.Errorf("%w: %s", ErrResponseNotFound, id)
	}
	return cloneResponse(r), nil
}

// ListResponses retrieves all responses recorded against a form.
func (m *MemoryStore) ListResponses(ctx context.Context, formID string) ([]Response, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := make([]Response, 0)
	for _, r := range m.responses {
		if r.FormID == formID {
			result = append(result, *cloneResponse(r))
		}
	}
	return result, nil
}

// SaveAnswer records or replaces one answer on a response.
func (m *MemoryStore) SaveAnswer(ctx context.Context, responseID, questionID string, answer visibility.Answer) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	r, exists := m.responses[responseID]
	if !exists {
		return fmt.Errorf("%w: %s", ErrResponseNotFound, responseID)
	}

	answers := make(visibility.MapAnswerSet, len(r.Answers)+1)
	for k, v := range r.Answers {
		answers[k] = v
	}
	answers[questionID] = answer
	r.Answers = answers
	r.UpdatedAt = time.Now().UTC()
	m.responses[responseID] = r
	return nil
}

// CompleteResponse marks a response as submitted.
func (m *MemoryStore) CompleteResponse(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	r, exists := m.responses[id]
	if !exists {
		return fmt.Errorf("%w: %s", ErrResponseNotFound, id)
	}
	r.Completed = true
	r.UpdatedAt = time.Now().UTC()
	m.responses[id] = r
	return nil
}

// Close is a no-op for MemoryStore as there are no resources to release.
func (m *MemoryStore) Close() error {
	return nil
}

// cloneResponse copies a response so callers cannot mutate stored state
// through the returned answer map.
func cloneResponse(r Response) *Response {
	answers := make(visibility.MapAnswerSet, len(r.Answers))
	for k, v := range r.Answers {
		answers[k] = v
	}
	r.Answers = answers
	return &r
}
