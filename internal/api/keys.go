package api

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/formship/formship/internal/audit"
	"github.com/formship/formship/internal/auth"
)

// --- API Key Management Endpoints ---

type createKeyRequest struct {
	Name      string  `json:"name"`
	Role      string  `json:"role"`
	ExpiresAt *string `json:"expires_at,omitempty"` // ISO 8601 format
}

type createKeyResponse struct {
	ID        string  `json:"id"`
	Name      string  `json:"name"`
	Key       string  `json:"key"` // Only shown once!
	Role      string  `json:"role"`
	CreatedAt string  `json:"created_at"`
	ExpiresAt *string `json:"expires_at,omitempty"`
}

type listKeysResponse struct {
	Keys []keyInfo `json:"keys"`
}

type keyInfo struct {
	ID         string  `json:"id"`
	Name       string  `json:"name"`
	Role       string  `json:"role"`
	Enabled    bool    `json:"enabled"`
	CreatedAt  string  `json:"created_at"`
	LastUsedAt *string `json:"last_used_at,omitempty"`
	ExpiresAt  *string `json:"expires_at,omitempty"`
}

// handleCreateAPIKey creates a new API key (superadmin only)
func (s *Server) handleCreateAPIKey(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)

	var req createKeyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			RequestTooLargeError(w, r, "request body too large")
			return
		}
		BadRequestError(w, r, ErrCodeInvalidJSON, "invalid JSON: expected fields 'name', 'role', and optional 'expires_at'")
		return
	}

	// Validate all fields at once
	validationErrors := make(map[string]string)

	if req.Name == "" {
		validationErrors["name"] = "name is required"
	}
	if !auth.ValidateRole(req.Role) {
		validationErrors["role"] = "role must be readonly, admin, or superadmin"
	}

	var expiresAt *time.Time
	if req.ExpiresAt != nil && *req.ExpiresAt != "" {
		t, err := time.Parse(time.RFC3339, *req.ExpiresAt)
		if err != nil {
			validationErrors["expires_at"] = "invalid format: use ISO 8601 (e.g., 2024-12-31T23:59:59Z)"
		} else {
			expiresAt = &t
		}
	}

	if len(validationErrors) > 0 {
		ValidationError(w, r, "validation failed for one or more fields", validationErrors)
		return
	}

	apiKey, plainKey, err := s.keys.CreateAPIKey(r.Context(), req.Name, auth.Role(req.Role), expiresAt)
	if err != nil {
		InternalError(w, r, "failed to create key")
		return
	}

	if s.auditService != nil {
		afterState := map[string]any{
			"id":      apiKey.ID,
			"name":    apiKey.Name,
			"role":    string(apiKey.Role),
			"enabled": apiKey.Enabled,
		}
		if apiKey.ExpiresAt != nil {
			afterState["expires_at"] = apiKey.ExpiresAt.Format(time.RFC3339)
		}
		s.auditService.Log(audit.NewEventBuilder(r).
			ForResource(audit.ResourceTypeAPIKey, apiKey.ID).
			WithAction(audit.ActionCreated).
			WithAfterState(afterState).
			Build())
	}

	resp := createKeyResponse{
		ID:        apiKey.ID,
		Name:      apiKey.Name,
		Key:       plainKey, // Only shown once!
		Role:      string(apiKey.Role),
		CreatedAt: apiKey.CreatedAt.Format(time.RFC3339),
	}
	if apiKey.ExpiresAt != nil {
		formatted := apiKey.ExpiresAt.Format(time.RFC3339)
		resp.ExpiresAt = &formatted
	}

	writeJSON(w, http.StatusOK, resp)
}

// handleListAPIKeys lists all API keys (admin+)
func (s *Server) handleListAPIKeys(w http.ResponseWriter, r *http.Request) {
	keys, err := s.keys.ListAPIKeys(r.Context())
	if err != nil {
		InternalError(w, r, "failed to list keys")
		return
	}

	// Build response (without revealing key hashes)
	resp := listKeysResponse{
		Keys: make([]keyInfo, 0, len(keys)),
	}
	for _, key := range keys {
		info := keyInfo{
			ID:        key.ID,
			Name:      key.Name,
			Role:      string(key.Role),
			Enabled:   key.Enabled,
			CreatedAt: key.CreatedAt.Format(time.RFC3339),
		}
		if key.LastUsedAt != nil {
			formatted := key.LastUsedAt.Format(time.RFC3339)
			info.LastUsedAt = &formatted
		}
		if key.ExpiresAt != nil {
			formatted := key.ExpiresAt.Format(time.RFC3339)
			info.ExpiresAt = &formatted
		}
		resp.Keys = append(resp.Keys, info)
	}

	writeJSON(w, http.StatusOK, resp)
}

// handleRevokeAPIKey revokes an API key (superadmin only)
func (s *Server) handleRevokeAPIKey(w http.ResponseWriter, r *http.Request) {
	keyID := chi.URLParam(r, "id")
	if keyID == "" {
		BadRequestErrorWithFields(w, r, ErrCodeMissingField, "missing required parameter", map[string]string{
			"id": "key id is required",
		})
		return
	}

	if err := s.keys.RevokeAPIKey(r.Context(), keyID); err != nil {
		NotFoundError(w, r, "key not found")
		return
	}

	if s.auditService != nil {
		s.auditService.Log(audit.NewEventBuilder(r).
			ForResource(audit.ResourceTypeAPIKey, keyID).
			WithAction(audit.ActionDeleted).
			WithAfterState(map[string]any{"id": keyID, "enabled": false}).
			Build())
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"ok":      true,
		"message": "API key revoked successfully",
	})
}

// --- Audit Log Endpoints ---

type listAuditLogsResponse struct {
	Logs       []audit.AuditEvent `json:"logs"`
	Pagination paginationInfo     `json:"pagination"`
}

type paginationInfo struct {
	Page  int `json:"page"`
	Limit int `json:"limit"`
	Total int `json:"total"`
	Pages int `json:"pages"`
}

// auditFilterFromQuery builds an audit filter from list/export query params.
func auditFilterFromQuery(r *http.Request) audit.Filter {
	q := r.URL.Query()
	f := audit.Filter{
		ResourceType: q.Get("resourceType"),
		ResourceID:   q.Get("resourceId"),
		Action:       q.Get("action"),
	}
	if sd := q.Get("startDate"); sd != "" {
		if t, err := time.Parse(time.RFC3339, sd); err == nil {
			f.Since = t
		}
	}
	if ed := q.Get("endDate"); ed != "" {
		if t, err := time.Parse(time.RFC3339, ed); err == nil {
			f.Until = t
		}
	}
	return f
}

// handleListAuditLogs lists audit events with pagination and filtering (admin+)
func (s *Server) handleListAuditLogs(w http.ResponseWriter, r *http.Request) {
	if s.auditReader == nil {
		InternalError(w, r, "audit trail is not queryable")
		return
	}

	page := 1
	limit := 20
	if pageStr := r.URL.Query().Get("page"); pageStr != "" {
		if p, err := strconv.Atoi(pageStr); err == nil && p > 0 {
			page = p
		}
	}
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		if l, err := strconv.Atoi(limitStr); err == nil && l > 0 && l <= 100 {
			limit = l
		}
	}
	offset := (page - 1) * limit

	logs, total, err := s.auditReader.List(r.Context(), auditFilterFromQuery(r), limit, offset)
	if err != nil {
		InternalError(w, r, "failed to list audit logs")
		return
	}

	pages := (total + limit - 1) / limit
	if pages == 0 {
		pages = 1
	}

	writeJSON(w, http.StatusOK, listAuditLogsResponse{
		Logs: logs,
		Pagination: paginationInfo{
			Page:  page,
			Limit: limit,
			Total: total,
			Pages: pages,
		},
	})
}

// handleExportAuditLogs exports audit events in csv, json, or jsonl (admin+)
func (s *Server) handleExportAuditLogs(w http.ResponseWriter, r *http.Request) {
	if s.auditReader == nil {
		InternalError(w, r, "audit trail is not queryable")
		return
	}

	format := r.URL.Query().Get("format")
	if format == "" {
		BadRequestErrorWithFields(w, r, ErrCodeMissingField, "missing required parameter", map[string]string{
			"format": "format parameter is required (csv, json, or jsonl)",
		})
		return
	}
	if format != "csv" && format != "json" && format != "jsonl" {
		BadRequestErrorWithFields(w, r, ErrCodeValidation, "invalid format", map[string]string{
			"format": "format must be csv, json, or jsonl",
		})
		return
	}

	logs, _, err := s.auditReader.List(r.Context(), auditFilterFromQuery(r), maxAuditExportLimit, 0)
	if err != nil {
		InternalError(w, r, "failed to list audit logs")
		return
	}

	switch format {
	case "csv":
		exportCSV(w, logs)
	case "json":
		exportJSON(w, logs)
	case "jsonl":
		exportJSONL(w, logs)
	}
}

// exportCSV exports audit events as CSV using proper CSV encoding
func exportCSV(w http.ResponseWriter, logs []audit.AuditEvent) {
	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", "attachment; filename=audit-logs.csv")

	csvWriter := csv.NewWriter(w)
	defer csvWriter.Flush()

	if err := csvWriter.Write([]string{
		"OccurredAt", "RequestID", "Actor", "Action", "ResourceType",
		"ResourceID", "Environment", "IPAddress", "UserAgent", "Status",
		"ErrorMessage",
	}); err != nil {
		// header already sent, nothing useful to report
		return
	}

	for _, e := range logs {
		env := ""
		if e.Environment != nil {
			env = *e.Environment
		}
		errMsg := ""
		if e.ErrorMessage != nil {
			errMsg = *e.ErrorMessage
		}
		if err := csvWriter.Write([]string{
			e.OccurredAt.Format(time.RFC3339),
			e.RequestID,
			e.Actor.Display,
			e.Action,
			e.ResourceType,
			e.ResourceID,
			env,
			e.Source.IPAddress,
			e.Source.UserAgent,
			e.Status,
			errMsg,
		}); err != nil {
			return
		}
	}
}

// exportJSON exports audit events as a JSON array
func exportJSON(w http.ResponseWriter, logs []audit.AuditEvent) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Content-Disposition", "attachment; filename=audit-logs.json")

	_ = json.NewEncoder(w).Encode(logs)
}

// exportJSONL exports audit events as JSON Lines (one object per line)
func exportJSONL(w http.ResponseWriter, logs []audit.AuditEvent) {
	w.Header().Set("Content-Type", "application/x-ndjson")
	w.Header().Set("Content-Disposition", "attachment; filename=audit-logs.jsonl")

	encoder := json.NewEncoder(w)
	for _, e := range logs {
		if err := encoder.Encode(e); err != nil {
			return
		}
	}
}
