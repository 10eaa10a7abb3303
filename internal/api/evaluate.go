package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/formship/formship/internal/forms"
	"github.com/formship/formship/internal/snapshot"
	"github.com/formship/formship/internal/store"
	"github.com/formship/formship/internal/visibility"
)

// visibilityRequest is the request body for POST /v1/forms/{id}/visibility.
// Answers mirror what the respondent has recorded so far; QuestionID narrows
// the evaluation to one question, otherwise the whole form is swept.
type visibilityRequest struct {
	Answers    map[string]answerRequest `json:"answers"`
	QuestionID string                   `json:"questionId,omitempty"`
}

// visibilityResponse is the response for /v1/forms/{id}/visibility.
type visibilityResponse struct {
	Visibility  map[string]bool `json:"visibility"`
	EvaluatedAt string          `json:"evaluatedAt"`
}

// handleVisibility evaluates conditional visibility for a respondent's
// answer set. POST is used to support complex JSON answer payloads while
// keeping evaluation stateless.
func (s *Server) handleVisibility(w http.ResponseWriter, r *http.Request) {
	formID := chi.URLParam(r, "id")

	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)
	defer r.Body.Close()

	var req visibilityRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			RequestTooLargeError(w, r, "request body exceeds 1MB limit")
			return
		}
		BadRequestError(w, r, ErrCodeInvalidJSON, "invalid JSON: "+err.Error())
		return
	}

	f, err := s.lookupForm(r, formID)
	if err != nil {
		if errors.Is(err, store.ErrFormNotFound) {
			NotFoundError(w, r, "form '"+formID+"' not found")
			return
		}
		InternalError(w, r, "failed to load form")
		return
	}

	answers := make(visibility.MapAnswerSet, len(req.Answers))
	for qid, a := range req.Answers {
		answers[qid] = visibility.Answer{Value: a.Value, Skipped: a.Skipped}
	}

	evaluator := visibility.NewEvaluator(f, s.tracer)

	var results map[string]bool
	if qid := strings.TrimSpace(req.QuestionID); qid != "" {
		q, ok := f.QuestionByID(qid)
		if !ok {
			NotFoundError(w, r, "question '"+qid+"' not found")
			return
		}
		results = map[string]bool{qid: evaluator.ShouldShow(q, answers)}
	} else {
		results = evaluator.EvaluateForm(f, answers)
	}

	writeJSON(w, http.StatusOK, visibilityResponse{
		Visibility:  results,
		EvaluatedAt: time.Now().UTC().Format(time.RFC3339),
	})
}

// lookupForm prefers the published snapshot (no store round-trip) and falls
// back to the store for drafts, so authors can test visibility before
// publishing.
func (s *Server) lookupForm(r *http.Request, id string) (*forms.Form, error) {
	if f, ok := snapshot.Load().Forms[id]; ok {
		return &f, nil
	}
	return s.store.GetForm(r.Context(), id)
}
