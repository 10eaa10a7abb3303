package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/formship/formship/internal/webhook"
)

// CreateWebhookRequest represents the request body for creating a webhook
type CreateWebhookRequest struct {
	URL            string   `json:"url"`
	Description    string   `json:"description,omitempty"`
	Events         []string `json:"events"`
	Environments   []string `json:"environments,omitempty"`
	MaxRetries     int32    `json:"max_retries,omitempty"`
	TimeoutSeconds int32    `json:"timeout_seconds,omitempty"`
}

// UpdateWebhookRequest represents the request body for updating a webhook
type UpdateWebhookRequest struct {
	URL            string   `json:"url"`
	Description    string   `json:"description,omitempty"`
	Enabled        bool     `json:"enabled"`
	Events         []string `json:"events"`
	Environments   []string `json:"environments,omitempty"`
	MaxRetries     int32    `json:"max_retries,omitempty"`
	TimeoutSeconds int32    `json:"timeout_seconds,omitempty"`
}

// WebhookResponse represents the response for a webhook
type WebhookResponse struct {
	ID              string     `json:"id"`
	URL             string     `json:"url"`
	Description     string     `json:"description,omitempty"`
	Enabled         bool       `json:"enabled"`
	Events          []string   `json:"events"`
	Environments    []string   `json:"environments,omitempty"`
	Secret          string     `json:"secret"`
	MaxRetries      int32      `json:"max_retries"`
	TimeoutSeconds  int32      `json:"timeout_seconds"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
	LastTriggeredAt *time.Time `json:"last_triggered_at,omitempty"`
}

// PaginatedDeliveriesResponse represents paginated webhook deliveries
type PaginatedDeliveriesResponse struct {
	Deliveries []webhook.Delivery `json:"deliveries"`
	Pagination PaginationInfo     `json:"pagination"`
}

// PaginationInfo contains pagination metadata
type PaginationInfo struct {
	Page  int `json:"page"`
	Limit int `json:"limit"`
	Total int `json:"total"`
}

// requireWebhooks writes an error and returns nil when no registry is wired.
func (s *Server) requireWebhooks(w http.ResponseWriter, r *http.Request) WebhookRegistry {
	if s.webhooks == nil {
		InternalError(w, r, "webhooks are not configured")
		return nil
	}
	return s.webhooks
}

// handleCreateWebhook creates a new webhook
func (s *Server) handleCreateWebhook(w http.ResponseWriter, r *http.Request) {
	registry := s.requireWebhooks(w, r)
	if registry == nil {
		return
	}

	var req CreateWebhookRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		BadRequestError(w, r, ErrCodeInvalidJSON, "invalid JSON: "+err.Error())
		return
	}

	fieldErrors := make(map[string]string)
	if req.URL == "" {
		fieldErrors["url"] = "url is required"
	}
	if len(req.Events) == 0 {
		fieldErrors["events"] = "at least one event type is required"
	}
	if len(fieldErrors) > 0 {
		ValidationError(w, r, "validation failed", fieldErrors)
		return
	}

	created, err := registry.CreateWebhook(r.Context(), webhook.Registration{
		Webhook: webhook.Webhook{
			URL:            req.URL,
			Events:         req.Events,
			Environments:   req.Environments,
			MaxRetries:     req.MaxRetries,
			TimeoutSeconds: req.TimeoutSeconds,
		},
		Description: req.Description,
	})
	if err != nil {
		InternalError(w, r, "failed to create webhook")
		return
	}

	writeJSON(w, http.StatusCreated, webhookToResponse(created))
}

// handleListWebhooks lists all webhooks
func (s *Server) handleListWebhooks(w http.ResponseWriter, r *http.Request) {
	registry := s.requireWebhooks(w, r)
	if registry == nil {
		return
	}

	webhooks, err := registry.ListWebhooks(r.Context())
	if err != nil {
		InternalError(w, r, "failed to list webhooks")
		return
	}

	response := make([]WebhookResponse, len(webhooks))
	for i, reg := range webhooks {
		response[i] = webhookToResponse(reg)
	}
	writeJSON(w, http.StatusOK, response)
}

// handleGetWebhook gets a specific webhook by ID
func (s *Server) handleGetWebhook(w http.ResponseWriter, r *http.Request) {
	registry := s.requireWebhooks(w, r)
	if registry == nil {
		return
	}

	reg, err := registry.GetWebhook(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		NotFoundError(w, r, "webhook not found")
		return
	}
	writeJSON(w, http.StatusOK, webhookToResponse(reg))
}

// handleUpdateWebhook updates a webhook
func (s *Server) handleUpdateWebhook(w http.ResponseWriter, r *http.Request) {
	registry := s.requireWebhooks(w, r)
	if registry == nil {
		return
	}
	id := chi.URLParam(r, "id")

	var req UpdateWebhookRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		BadRequestError(w, r, ErrCodeInvalidJSON, "invalid JSON: "+err.Error())
		return
	}

	fieldErrors := make(map[string]string)
	if req.URL == "" {
		fieldErrors["url"] = "url is required"
	}
	if len(req.Events) == 0 {
		fieldErrors["events"] = "at least one event type is required"
	}
	if len(fieldErrors) > 0 {
		ValidationError(w, r, "validation failed", fieldErrors)
		return
	}

	updated, err := registry.UpdateWebhook(r.Context(), id, webhook.Registration{
		Webhook: webhook.Webhook{
			URL:            req.URL,
			Enabled:        req.Enabled,
			Events:         req.Events,
			Environments:   req.Environments,
			MaxRetries:     req.MaxRetries,
			TimeoutSeconds: req.TimeoutSeconds,
		},
		Description: req.Description,
	})
	if err != nil {
		if errors.Is(err, webhook.ErrWebhookNotFound) {
			NotFoundError(w, r, "webhook not found")
			return
		}
		InternalError(w, r, "failed to update webhook")
		return
	}

	writeJSON(w, http.StatusOK, webhookToResponse(updated))
}

// handleDeleteWebhook deletes a webhook
func (s *Server) handleDeleteWebhook(w http.ResponseWriter, r *http.Request) {
	registry := s.requireWebhooks(w, r)
	if registry == nil {
		return
	}

	if err := registry.DeleteWebhook(r.Context(), chi.URLParam(r, "id")); err != nil {
		InternalError(w, r, "failed to delete webhook")
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

// handleListWebhookDeliveries lists webhook delivery attempts
func (s *Server) handleListWebhookDeliveries(w http.ResponseWriter, r *http.Request) {
	registry := s.requireWebhooks(w, r)
	if registry == nil {
		return
	}
	id := chi.URLParam(r, "id")

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

	deliveries, total, err := registry.ListDeliveries(r.Context(), id, limit, (page-1)*limit)
	if err != nil {
		InternalError(w, r, "failed to list deliveries")
		return
	}

	writeJSON(w, http.StatusOK, PaginatedDeliveriesResponse{
		Deliveries: deliveries,
		Pagination: PaginationInfo{
			Page:  page,
			Limit: limit,
			Total: total,
		},
	})
}

// handleTestWebhook manually triggers a test webhook
func (s *Server) handleTestWebhook(w http.ResponseWriter, r *http.Request) {
	registry := s.requireWebhooks(w, r)
	if registry == nil {
		return
	}
	id := chi.URLParam(r, "id")

	reg, err := registry.GetWebhook(r.Context(), id)
	if err != nil {
		NotFoundError(w, r, "webhook not found")
		return
	}

	if s.dispatcher != nil {
		s.dispatcher.Dispatch(webhook.Event{
			Type:        "webhook.test",
			Timestamp:   time.Now(),
			Environment: s.env,
			Resource: webhook.Resource{
				Type: "webhook",
				ID:   reg.ID,
			},
			Data: webhook.EventData{
				After: map[string]any{
					"message": "This is a test webhook delivery",
				},
			},
			Metadata: webhook.Metadata{
				RequestID: middleware.GetReqID(r.Context()),
			},
		})
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"ok":      true,
		"message": "test webhook dispatched",
	})
}

// webhookToResponse converts a registration to its API representation
func webhookToResponse(reg webhook.Registration) WebhookResponse {
	return WebhookResponse{
		ID:              reg.ID,
		URL:             reg.URL,
		Description:     reg.Description,
		Enabled:         reg.Enabled,
		Events:          reg.Events,
		Environments:    reg.Environments,
		Secret:          reg.Secret,
		MaxRetries:      reg.MaxRetries,
		TimeoutSeconds:  reg.TimeoutSeconds,
		CreatedAt:       reg.CreatedAt,
		UpdatedAt:       reg.UpdatedAt,
		LastTriggeredAt: reg.LastTriggeredAt,
	}
}
