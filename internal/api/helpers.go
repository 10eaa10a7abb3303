package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/formship/formship/internal/forms"
	"github.com/formship/formship/internal/store"
)

// ===== HTTP Helpers =====

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, map[string]any{
		"error":   http.StatusText(code),
		"message": msg,
	})
}

// ===== Conversion Helpers =====

// formToMap converts a form to a map for audit logging and webhook payloads.
// Question definitions are summarised rather than embedded wholesale so audit
// rows stay small.
func formToMap(f *forms.Form) map[string]any {
	if f == nil {
		return nil
	}

	questionIDs := make([]string, 0, len(f.Questions))
	conditionalCount := 0
	for _, q := range f.Questions {
		questionIDs = append(questionIDs, q.ID)
		if q.Conditional.Enabled {
			conditionalCount++
		}
	}

	return map[string]any{
		"id":                    f.ID,
		"title":                 f.Title,
		"status":                f.Status,
		"env":                   f.Env,
		"question_count":        len(f.Questions),
		"question_ids":          questionIDs,
		"conditional_questions": conditionalCount,
		"updated_at":            f.UpdatedAt.Format(time.RFC3339),
	}
}

// responseToMap converts a response session to a map for audit logging.
// Answer values are deliberately omitted: respondent data does not belong in
// the audit trail.
func responseToMap(resp *store.Response) map[string]any {
	if resp == nil {
		return nil
	}
	return map[string]any{
		"id":           resp.ID,
		"form_id":      resp.FormID,
		"answer_count": len(resp.Answers),
		"completed":    resp.Completed,
	}
}
