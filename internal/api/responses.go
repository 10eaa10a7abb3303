package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/formship/formship/internal/audit"
	"github.com/formship/formship/internal/forms"
	"github.com/formship/formship/internal/store"
	"github.com/formship/formship/internal/visibility"
	"github.com/formship/formship/internal/webhook"
)

// answerRequest is the body of PUT .../answers/{qid}. Skipped records an
// explicit skip; the value, if any, is kept alongside it.
type answerRequest struct {
	Value   any  `json:"value"`
	Skipped bool `json:"skipped"`
}

type completeResponse struct {
	OK         bool            `json:"ok"`
	Visibility map[string]bool `json:"visibility"`
}

// handleCreateResponse starts a response session against a published form.
func (s *Server) handleCreateResponse(w http.ResponseWriter, r *http.Request) {
	formID := chi.URLParam(r, "id")
	f, err := s.store.GetForm(r.Context(), formID)
	if err != nil {
		if errors.Is(err, store.ErrFormNotFound) {
			NotFoundError(w, r, "form '"+formID+"' not found")
			return
		}
		InternalError(w, r, "failed to load form")
		return
	}
	if f.Status != forms.StatusPublished {
		ConflictError(w, r, ErrCodeFormNotPublished, "form '"+formID+"' is not accepting responses")
		return
	}

	resp, err := s.store.CreateResponse(r.Context(), formID)
	if err != nil {
		InternalError(w, r, "failed to create response")
		return
	}
	writeJSON(w, http.StatusCreated, resp)
}

func (s *Server) handleGetResponse(w http.ResponseWriter, r *http.Request) {
	rid := chi.URLParam(r, "rid")
	resp, err := s.store.GetResponse(r.Context(), rid)
	if err != nil {
		if errors.Is(err, store.ErrResponseNotFound) {
			NotFoundError(w, r, "response not found")
			return
		}
		InternalError(w, r, "failed to load response")
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleListResponses(w http.ResponseWriter, r *http.Request) {
	formID := chi.URLParam(r, "id")
	responses, err := s.store.ListResponses(r.Context(), formID)
	if err != nil {
		InternalError(w, r, "failed to list responses")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"responses": responses})
}

// handleSaveAnswer records or replaces one answer on an open response.
func (s *Server) handleSaveAnswer(w http.ResponseWriter, r *http.Request) {
	formID := chi.URLParam(r, "id")
	rid := chi.URLParam(r, "rid")
	qid := chi.URLParam(r, "qid")

	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)
	defer r.Body.Close()

	var req answerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			RequestTooLargeError(w, r, "request body exceeds 1MB limit")
			return
		}
		BadRequestError(w, r, ErrCodeInvalidJSON, "invalid JSON: "+err.Error())
		return
	}

	f, err := s.store.GetForm(r.Context(), formID)
	if err != nil {
		if errors.Is(err, store.ErrFormNotFound) {
			NotFoundError(w, r, "form '"+formID+"' not found")
			return
		}
		InternalError(w, r, "failed to load form")
		return
	}
	if _, ok := f.QuestionByID(qid); !ok {
		BadRequestErrorWithFields(w, r, ErrCodeUnknownQuestion, "unknown question", map[string]string{
			"question_id": "question '" + qid + "' does not exist on this form",
		})
		return
	}

	resp, err := s.store.GetResponse(r.Context(), rid)
	if err != nil {
		if errors.Is(err, store.ErrResponseNotFound) {
			NotFoundError(w, r, "response not found")
			return
		}
		InternalError(w, r, "failed to load response")
		return
	}
	if resp.FormID != formID {
		NotFoundError(w, r, "response not found")
		return
	}
	if resp.Completed {
		ConflictError(w, r, ErrCodeResponseCompleted, "response is already completed")
		return
	}

	answer := visibility.Answer{Value: req.Value, Skipped: req.Skipped}
	if err := s.store.SaveAnswer(r.Context(), rid, qid, answer); err != nil {
		InternalError(w, r, "failed to save answer")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

// handleCompleteResponse runs the visibility sweep over the whole form and,
// when every visible required question has a usable answer, marks the
// response as submitted. Answers to hidden questions are ignored by the
// check: hiding a question removes its obligations.
func (s *Server) handleCompleteResponse(w http.ResponseWriter, r *http.Request) {
	formID := chi.URLParam(r, "id")
	rid := chi.URLParam(r, "rid")

	f, err := s.store.GetForm(r.Context(), formID)
	if err != nil {
		if errors.Is(err, store.ErrFormNotFound) {
			NotFoundError(w, r, "form '"+formID+"' not found")
			return
		}
		InternalError(w, r, "failed to load form")
		return
	}

	resp, err := s.store.GetResponse(r.Context(), rid)
	if err != nil {
		if errors.Is(err, store.ErrResponseNotFound) {
			NotFoundError(w, r, "response not found")
			return
		}
		InternalError(w, r, "failed to load response")
		return
	}
	if resp.FormID != formID {
		NotFoundError(w, r, "response not found")
		return
	}
	if resp.Completed {
		ConflictError(w, r, ErrCodeResponseCompleted, "response is already completed")
		return
	}

	evaluator := visibility.NewEvaluator(f, s.tracer)
	results := evaluator.EvaluateForm(f, resp.Answers)

	missing := make(map[string]string)
	for _, q := range f.Questions {
		if !q.Required || !results[q.ID] {
			continue
		}
		a, ok := resp.Answers.GetAnswer(q.ID)
		if !ok || a.Skipped {
			missing[q.ID] = "required question has no answer"
		}
	}
	if len(missing) > 0 {
		BadRequestErrorWithFields(w, r, ErrCodeIncompleteAnswers, "required questions unanswered", missing)
		return
	}

	if err := s.store.CompleteResponse(r.Context(), rid); err != nil {
		InternalError(w, r, "failed to complete response")
		return
	}

	if s.auditService != nil {
		resp.Completed = true
		s.auditService.Log(audit.NewEventBuilder(r).
			ForResource(audit.ResourceTypeResponse, rid).
			WithAction(audit.ActionSubmitted).
			WithEnvironment(f.Env).
			WithAfterState(responseToMap(resp)).
			Build())
	}
	if s.dispatcher != nil {
		s.dispatcher.Dispatch(webhook.NewEventBuilder(r).
			ForResponse(rid, f.Env).
			WithStates(nil, map[string]any{
				"form_id":      formID,
				"answer_count": len(resp.Answers),
			}).
			Build())
	}

	writeJSON(w, http.StatusOK, completeResponse{OK: true, Visibility: results})
}
