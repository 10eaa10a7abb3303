package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestNewErrorResponse(t *testing.T) {
	resp := NewErrorResponse(http.StatusBadRequest, ErrCodeUnknownQuestion, "Unknown question reference")

	if resp.Error != "Bad Request" {
		t.Errorf("Expected Error 'Bad Request', got '%s'", resp.Error)
	}
	if resp.Message != "Unknown question reference" {
		t.Errorf("Expected Message 'Unknown question reference', got '%s'", resp.Message)
	}
	if resp.Code != ErrCodeUnknownQuestion {
		t.Errorf("Expected Code ErrCodeUnknownQuestion, got '%s'", resp.Code)
	}
}

func TestErrorResponse_WithFields(t *testing.T) {
	fields := map[string]string{
		"id":     "Form id is required",
		"status": "Status must be draft, published, or closed",
	}

	resp := NewErrorResponse(http.StatusBadRequest, ErrCodeValidation, "Validation failed").
		WithFields(fields)

	if len(resp.Fields) != 2 {
		t.Errorf("Expected 2 fields, got %d", len(resp.Fields))
	}
	if resp.Fields["id"] != "Form id is required" {
		t.Errorf("Expected field 'id' to be 'Form id is required', got '%s'", resp.Fields["id"])
	}
}

func TestErrorResponse_WithRequestID(t *testing.T) {
	resp := NewErrorResponse(http.StatusInternalServerError, ErrCodeInternal, "Internal error").
		WithRequestID("req-123")

	if resp.RequestID != "req-123" {
		t.Errorf("Expected RequestID 'req-123', got '%s'", resp.RequestID)
	}
}

func TestValidationError(t *testing.T) {
	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodPost, "/v1/forms", nil)

	fields := map[string]string{
		"id": "Form id is required",
	}

	ValidationError(w, r, "Validation failed", fields)

	if w.Code != http.StatusBadRequest {
		t.Errorf("Expected status 400, got %d", w.Code)
	}

	var resp ErrorResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}

	if resp.Code != ErrCodeValidation {
		t.Errorf("Expected Code ErrCodeValidation, got '%s'", resp.Code)
	}
	if resp.Fields["id"] != "Form id is required" {
		t.Errorf("Expected field 'id' error, got '%s'", resp.Fields["id"])
	}
}

func TestBadRequestError(t *testing.T) {
	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodPost, "/v1/forms", nil)

	BadRequestError(w, r, ErrCodeInvalidJSON, "Invalid JSON")

	if w.Code != http.StatusBadRequest {
		t.Errorf("Expected status 400, got %d", w.Code)
	}

	var resp ErrorResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}

	if resp.Code != ErrCodeInvalidJSON {
		t.Errorf("Expected Code ErrCodeInvalidJSON, got '%s'", resp.Code)
	}
	if resp.Message != "Invalid JSON" {
		t.Errorf("Expected message 'Invalid JSON', got '%s'", resp.Message)
	}
}

func TestUnauthorizedError(t *testing.T) {
	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodPost, "/v1/forms", nil)

	UnauthorizedError(w, r, "Missing authentication")

	if w.Code != http.StatusUnauthorized {
		t.Errorf("Expected status 401, got %d", w.Code)
	}

	var resp ErrorResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}

	if resp.Code != ErrCodeUnauthorized {
		t.Errorf("Expected Code ErrCodeUnauthorized, got '%s'", resp.Code)
	}
}

func TestForbiddenError(t *testing.T) {
	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodPost, "/v1/forms", nil)

	ForbiddenError(w, r, "Insufficient permissions")

	if w.Code != http.StatusForbidden {
		t.Errorf("Expected status 403, got %d", w.Code)
	}

	var resp ErrorResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}

	if resp.Code != ErrCodeForbidden {
		t.Errorf("Expected Code ErrCodeForbidden, got '%s'", resp.Code)
	}
}

func TestInternalError(t *testing.T) {
	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodPost, "/v1/forms", nil)

	InternalError(w, r, "Database connection failed")

	if w.Code != http.StatusInternalServerError {
		t.Errorf("Expected status 500, got %d", w.Code)
	}

	var resp ErrorResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}

	if resp.Code != ErrCodeInternal {
		t.Errorf("Expected Code ErrCodeInternal, got '%s'", resp.Code)
	}
}

func TestNotFoundError(t *testing.T) {
	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodGet, "/v1/forms/unknown", nil)

	NotFoundError(w, r, "Form not found")

	if w.Code != http.StatusNotFound {
		t.Errorf("Expected status 404, got %d", w.Code)
	}

	var resp ErrorResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}

	if resp.Code != ErrCodeNotFound {
		t.Errorf("Expected Code ErrCodeNotFound, got '%s'", resp.Code)
	}
}

func TestConflictError(t *testing.T) {
	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodPost, "/v1/forms/f1/responses", nil)

	ConflictError(w, r, ErrCodeFormNotPublished, "Form is not accepting responses")

	if w.Code != http.StatusConflict {
		t.Errorf("Expected status 409, got %d", w.Code)
	}

	var resp ErrorResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}

	if resp.Code != ErrCodeFormNotPublished {
		t.Errorf("Expected Code ErrCodeFormNotPublished, got '%s'", resp.Code)
	}
}

func TestRequestTooLargeError(t *testing.T) {
	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodPost, "/v1/forms", nil)

	RequestTooLargeError(w, r, "Request body exceeds limit")

	if w.Code != http.StatusRequestEntityTooLarge {
		t.Errorf("Expected status 413, got %d", w.Code)
	}

	var resp ErrorResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}

	if resp.Code != ErrCodeRequestTooLarge {
		t.Errorf("Expected Code ErrCodeRequestTooLarge, got '%s'", resp.Code)
	}
}

func TestErrorResponseContentType(t *testing.T) {
	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodPost, "/v1/forms", nil)

	BadRequestError(w, r, ErrCodeInvalidJSON, "Invalid JSON")

	contentType := w.Header().Get("Content-Type")
	if contentType != "application/json" {
		t.Errorf("Expected Content-Type 'application/json', got '%s'", contentType)
	}
}
