package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/httprate"

	"github.com/formship/formship/internal/audit"
	"github.com/formship/formship/internal/auth"
	"github.com/formship/formship/internal/forms"
	"github.com/formship/formship/internal/snapshot"
	"github.com/formship/formship/internal/store"
	"github.com/formship/formship/internal/telemetry"
	"github.com/formship/formship/internal/visibility"
	"github.com/formship/formship/internal/webhook"
)

// maxRequestBodySize limits mutation request bodies (1 MB).
const maxRequestBodySize = 1 << 20

// maxAuditExportLimit caps how many audit rows one export can pull.
const maxAuditExportLimit = 10000

// KeyManager is the management surface for API keys, implemented by
// auth.MemoryKeyStore (and by the postgres key store when one is configured).
type KeyManager interface {
	auth.KeyStore
	CreateAPIKey(ctx context.Context, name string, role auth.Role, expiresAt *time.Time) (auth.APIKey, string, error)
	RevokeAPIKey(ctx context.Context, id string) error
}

// WebhookRegistry is the management surface for webhook registrations,
// implemented by webhook.MemoryRegistry.
type WebhookRegistry interface {
	CreateWebhook(ctx context.Context, reg webhook.Registration) (webhook.Registration, error)
	GetWebhook(ctx context.Context, id string) (webhook.Registration, error)
	ListWebhooks(ctx context.Context) ([]webhook.Registration, error)
	UpdateWebhook(ctx context.Context, id string, upd webhook.Registration) (webhook.Registration, error)
	DeleteWebhook(ctx context.Context, id string) error
	ListDeliveries(ctx context.Context, webhookID string, limit, offset int) ([]webhook.Delivery, int, error)
}

// AuditReader is the query side of the audit trail, implemented by
// audit.MemorySink.
type AuditReader interface {
	List(ctx context.Context, f audit.Filter, limit, offset int) ([]audit.AuditEvent, int, error)
}

type Server struct {
	store          store.Store
	env            string
	auth           *auth.Authenticator
	tracer         visibility.Tracer
	auditService   *audit.Service
	auditReader    AuditReader
	dispatcher     *webhook.Dispatcher
	webhooks       WebhookRegistry
	keys           KeyManager
	rateLimitPerIP int
}

// NewServer builds a server with the in-memory key store and the metrics
// tracer. Optional collaborators (audit, webhooks, rate limits) are attached
// with the With* methods before Router is called.
func NewServer(st store.Store, env, adminKey string) *Server {
	keys := auth.NewMemoryKeyStore()
	return &Server{
		store:  st,
		env:    env,
		auth:   auth.NewAuthenticator(keys, adminKey),
		keys:   keys,
		tracer: telemetry.Tracer{},
	}
}

// WithTracer replaces the visibility tracer used for evaluations.
func (s *Server) WithTracer(t visibility.Tracer) *Server {
	s.tracer = t
	return s
}

// WithAudit attaches the async audit service and, when the sink is
// queryable, the reader behind the audit endpoints.
func (s *Server) WithAudit(svc *audit.Service, reader AuditReader) *Server {
	s.auditService = svc
	s.auditReader = reader
	return s
}

// WithWebhooks attaches the webhook dispatcher and registry.
func (s *Server) WithWebhooks(d *webhook.Dispatcher, reg WebhookRegistry) *Server {
	s.dispatcher = d
	s.webhooks = reg
	return s
}

// WithRateLimit enables per-IP rate limiting on public routes.
func (s *Server) WithRateLimit(perIP int) *Server {
	s.rateLimitPerIP = perIP
	return s
}

func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.RealIP, middleware.Recoverer)
	r.Use(telemetry.Middleware)

	// health
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	// SSE stream lives outside the timeout group: it is long-lived by design.
	r.Get("/v1/forms/stream", s.handleStream)

	// public: snapshot + respondent flow
	r.Group(func(r chi.Router) {
		r.Use(middleware.Timeout(10 * time.Second))
		if s.rateLimitPerIP > 0 {
			r.Use(httprate.LimitByIP(s.rateLimitPerIP, time.Minute))
		}

		r.Get("/v1/forms/snapshot", s.handleSnapshot)
		r.Post("/v1/forms/{id}/visibility", s.handleVisibility)
		r.Post("/v1/forms/{id}/responses", s.handleCreateResponse)
		r.Get("/v1/responses/{rid}", s.handleGetResponse)
		r.Put("/v1/forms/{id}/responses/{rid}/answers/{qid}", s.handleSaveAnswer)
		r.Post("/v1/forms/{id}/responses/{rid}/complete", s.handleCompleteResponse)
	})

	// admin (protected)
	r.Group(func(r chi.Router) {
		r.Use(middleware.Timeout(10 * time.Second))
		r.Use(s.auth.RequireAuth(auth.RoleAdmin))

		r.Get("/v1/forms", s.handleListForms)
		r.Post("/v1/forms", s.handleUpsertForm)
		r.Get("/v1/forms/{id}", s.handleGetForm)
		r.Put("/v1/forms/{id}", s.handleUpdateForm)
		r.Delete("/v1/forms/{id}", s.handleDeleteForm)
		r.Post("/v1/forms/{id}/publish", s.handlePublishForm)
		r.Get("/v1/forms/{id}/responses", s.handleListResponses)

		r.Get("/v1/keys", s.handleListAPIKeys)
		r.Get("/v1/audit", s.handleListAuditLogs)
		r.Get("/v1/audit/export", s.handleExportAuditLogs)

		r.Post("/v1/webhooks", s.handleCreateWebhook)
		r.Get("/v1/webhooks", s.handleListWebhooks)
		r.Get("/v1/webhooks/{id}", s.handleGetWebhook)
		r.Put("/v1/webhooks/{id}", s.handleUpdateWebhook)
		r.Delete("/v1/webhooks/{id}", s.handleDeleteWebhook)
		r.Get("/v1/webhooks/{id}/deliveries", s.handleListWebhookDeliveries)
		r.Post("/v1/webhooks/{id}/test", s.handleTestWebhook)
	})

	// superadmin only
	r.Group(func(r chi.Router) {
		r.Use(middleware.Timeout(10 * time.Second))
		r.Use(s.auth.RequireAuth(auth.RoleSuperadmin))

		r.Post("/v1/keys", s.handleCreateAPIKey)
		r.Delete("/v1/keys/{id}", s.handleRevokeAPIKey)
	})

	return r
}

// ---- snapshot ----

func (s *Server) handleSnapshot(w http.ResponseWriter, req *http.Request) {
	snap := snapshot.Load()
	if inm := req.Header.Get("If-None-Match"); inm != "" && inm == snap.ETag {
		w.WriteHeader(http.StatusNotModified)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("ETag", snap.ETag)
	w.Header().Set("Cache-Control", "no-cache, no-store, must-revalidate")
	w.Header().Set("Pragma", "no-cache")
	w.Header().Set("Expires", "0")
	_ = json.NewEncoder(w).Encode(snap)
}

// RebuildSnapshot loads forms for env and swaps the atomic snapshot.
func (s *Server) RebuildSnapshot(ctx context.Context, env string) error {
	all, err := s.store.ListForms(ctx, env)
	if err != nil {
		return err
	}
	snap := snapshot.BuildFromForms(all)
	snapshot.Update(snap)
	telemetry.SnapshotForms.Set(float64(len(snap.Forms)))
	return nil
}

// ---- form handlers ----

type upsertResponse struct {
	OK   bool   `json:"ok"`
	ETag string `json:"etag"`
}

type listFormsResponse struct {
	Forms []forms.Form `json:"forms"`
}

func (s *Server) handleListForms(w http.ResponseWriter, r *http.Request) {
	env := strings.TrimSpace(r.URL.Query().Get("env"))
	if env == "" {
		env = s.env
	}

	all, err := s.store.ListForms(r.Context(), env)
	if err != nil {
		InternalError(w, r, "failed to list forms")
		return
	}
	writeJSON(w, http.StatusOK, listFormsResponse{Forms: all})
}

func (s *Server) handleGetForm(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	f, err := s.store.GetForm(r.Context(), id)
	if err != nil {
		if errors.Is(err, store.ErrFormNotFound) {
			NotFoundError(w, r, "form '"+id+"' not found")
			return
		}
		InternalError(w, r, "failed to load form")
		return
	}
	writeJSON(w, http.StatusOK, f)
}

func (s *Server) handleUpsertForm(w http.ResponseWriter, r *http.Request) {
	s.upsertForm(w, r, "")
}

func (s *Server) handleUpdateForm(w http.ResponseWriter, r *http.Request) {
	s.upsertForm(w, r, chi.URLParam(r, "id"))
}

// upsertForm is the shared create/update path. When pathID is non-empty the
// form id comes from the URL and any id in the body must match.
func (s *Server) upsertForm(w http.ResponseWriter, r *http.Request, pathID string) {
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)
	defer r.Body.Close()

	var f forms.Form
	if err := json.NewDecoder(r.Body).Decode(&f); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			RequestTooLargeError(w, r, "request body exceeds 1MB limit")
			return
		}
		BadRequestError(w, r, ErrCodeInvalidJSON, "invalid JSON: "+err.Error())
		return
	}

	if pathID != "" {
		if f.ID != "" && f.ID != pathID {
			BadRequestErrorWithFields(w, r, ErrCodeValidation, "form id mismatch", map[string]string{
				"id": "body id must match URL id",
			})
			return
		}
		f.ID = pathID
	}

	if strings.TrimSpace(f.ID) == "" {
		BadRequestErrorWithFields(w, r, ErrCodeMissingField, "missing required field", map[string]string{
			"id": "form id is required",
		})
		return
	}
	if f.Env == "" {
		f.Env = s.env
	}
	if f.Status == "" {
		f.Status = forms.StatusDraft
	}
	if f.Status != forms.StatusDraft && f.Status != forms.StatusPublished && f.Status != forms.StatusClosed {
		BadRequestErrorWithFields(w, r, ErrCodeValidation, "invalid status", map[string]string{
			"status": "status must be draft, published, or closed",
		})
		return
	}

	// Save-time validation: conditional logic that survives this gate is
	// trusted at evaluation time.
	if err := forms.ValidateForm(&f); err != nil {
		BadRequestErrorWithFields(w, r, ErrCodeValidation, "invalid form definition", map[string]string{
			"questions": err.Error(),
		})
		return
	}

	// before state for audit/webhooks (nil on create)
	var before map[string]any
	if prev, err := s.store.GetForm(r.Context(), f.ID); err == nil {
		before = formToMap(prev)
	}

	f.UpdatedAt = time.Now().UTC()
	if err := s.store.UpsertForm(r.Context(), f); err != nil {
		s.auditForm(r, audit.ActionUpdated, &f, before, audit.StatusFailure, "store upsert failed")
		InternalError(w, r, "store upsert failed")
		return
	}

	if err := s.RebuildSnapshot(r.Context(), f.Env); err != nil {
		InternalError(w, r, "snapshot rebuild failed")
		return
	}

	after := formToMap(&f)
	action := audit.ActionUpdated
	if before == nil {
		action = audit.ActionCreated
	}
	s.auditForm(r, action, &f, before, audit.StatusSuccess, "")
	s.dispatchFormEvent(r, f.ID, f.Env, before, after, "")

	writeJSON(w, http.StatusOK, upsertResponse{
		OK:   true,
		ETag: snapshot.Load().ETag,
	})
}

func (s *Server) handleDeleteForm(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	env := strings.TrimSpace(r.URL.Query().Get("env"))
	if env == "" {
		env = s.env
	}

	var before map[string]any
	if prev, err := s.store.GetForm(r.Context(), id); err == nil {
		before = formToMap(prev)
	}

	// idempotent: deleting an absent form succeeds
	if err := s.store.DeleteForm(r.Context(), id, env); err != nil {
		InternalError(w, r, "store delete failed")
		return
	}

	if err := s.RebuildSnapshot(r.Context(), env); err != nil {
		InternalError(w, r, "snapshot rebuild failed")
		return
	}

	if before != nil {
		if s.auditService != nil {
			s.auditService.Log(audit.NewEventBuilder(r).
				ForResource(audit.ResourceTypeForm, id).
				WithAction(audit.ActionDeleted).
				WithEnvironment(env).
				WithBeforeState(before).
				Build())
		}
		s.dispatchFormEvent(r, id, env, before, nil, "")
	}

	writeJSON(w, http.StatusOK, upsertResponse{
		OK:   true,
		ETag: snapshot.Load().ETag,
	})
}

func (s *Server) handlePublishForm(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	f, err := s.store.GetForm(r.Context(), id)
	if err != nil {
		if errors.Is(err, store.ErrFormNotFound) {
			NotFoundError(w, r, "form '"+id+"' not found")
			return
		}
		InternalError(w, r, "failed to load form")
		return
	}

	before := formToMap(f)
	f.Status = forms.StatusPublished
	f.UpdatedAt = time.Now().UTC()

	if err := s.store.UpsertForm(r.Context(), *f); err != nil {
		s.auditForm(r, audit.ActionPublished, f, before, audit.StatusFailure, "store upsert failed")
		InternalError(w, r, "store upsert failed")
		return
	}
	if err := s.RebuildSnapshot(r.Context(), f.Env); err != nil {
		InternalError(w, r, "snapshot rebuild failed")
		return
	}

	s.auditForm(r, audit.ActionPublished, f, before, audit.StatusSuccess, "")
	s.dispatchFormEvent(r, f.ID, f.Env, before, formToMap(f), webhook.EventFormPublished)

	writeJSON(w, http.StatusOK, upsertResponse{
		OK:   true,
		ETag: snapshot.Load().ETag,
	})
}

// ---- audit & webhook emission ----

func (s *Server) auditForm(r *http.Request, action string, f *forms.Form, before map[string]any, status, errMsg string) {
	if s.auditService == nil {
		return
	}
	after := formToMap(f)
	b := audit.NewEventBuilder(r).
		ForResource(audit.ResourceTypeForm, f.ID).
		WithAction(action).
		WithEnvironment(f.Env).
		WithBeforeState(before).
		WithAfterState(after).
		WithChanges(audit.ComputeChanges(before, after))
	if status == audit.StatusFailure {
		b.Failure(errMsg)
	}
	s.auditService.Log(b.Build())
}

// dispatchFormEvent queues a webhook event for a form mutation. eventType
// overrides the created/updated/deleted inference (used for publish).
func (s *Server) dispatchFormEvent(r *http.Request, id, env string, before, after map[string]any, eventType string) {
	if s.dispatcher == nil {
		return
	}
	b := webhook.NewEventBuilder(r).
		ForForm(id, env).
		WithStates(before, after).
		WithChanges(audit.ComputeChanges(before, after))
	if eventType != "" {
		b.WithEventType(eventType)
	}
	s.dispatcher.Dispatch(b.Build())
}
