package webhook

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
)

// ErrWebhookNotFound is returned when a webhook id does not exist.
var ErrWebhookNotFound = errors.New("webhook not found")

// defaults applied when a webhook is registered without explicit values
const (
	defaultMaxRetries     = 3
	defaultTimeoutSeconds = 10
)

// Registration is the full record kept for a registered webhook, including
// bookkeeping the dispatcher does not need.
type Registration struct {
	Webhook
	Description     string     `json:"description,omitempty"`
	CreatedAt       time.Time  `json:"createdAt"`
	UpdatedAt       time.Time  `json:"updatedAt"`
	LastTriggeredAt *time.Time `json:"lastTriggeredAt,omitempty"`
}

// MemoryRegistry is an in-memory webhook registry. It implements both the
// management operations used by the admin API and the WebhookStore interface
// consumed by the Dispatcher.
type MemoryRegistry struct {
	mu         sync.RWMutex
	webhooks   map[string]Registration
	deliveries map[string][]Delivery // keyed by webhook id, newest first
}

// NewMemoryRegistry creates an empty registry.
func NewMemoryRegistry() *MemoryRegistry {
	return &MemoryRegistry{
		webhooks:   make(map[string]Registration),
		deliveries: make(map[string][]Delivery),
	}
}

// CreateWebhook registers a new webhook and generates its signing secret.
func (m *MemoryRegistry) CreateWebhook(ctx context.Context, reg Registration) (Registration, error) {
	secret, err := GenerateSecret()
	if err != nil {
		return Registration{}, err
	}

	now := time.Now().UTC()
	reg.ID = uuid.NewString()
	reg.Secret = secret
	reg.Enabled = true
	reg.CreatedAt = now
	reg.UpdatedAt = now
	if reg.MaxRetries == 0 {
		reg.MaxRetries = defaultMaxRetries
	}
	if reg.TimeoutSeconds == 0 {
		reg.TimeoutSeconds = defaultTimeoutSeconds
	}

	m.mu.Lock()
	m.webhooks[reg.ID] = reg
	m.mu.Unlock()
	return reg, nil
}

// GetWebhook returns one registration by id.
func (m *MemoryRegistry) GetWebhook(ctx context.Context, id string) (Registration, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	reg, ok := m.webhooks[id]
	if !ok {
		return Registration{}, ErrWebhookNotFound
	}
	return reg, nil
}

// ListWebhooks returns all registrations.
func (m *MemoryRegistry) ListWebhooks(ctx context.Context) ([]Registration, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]Registration, 0, len(m.webhooks))
	for _, reg := range m.webhooks {
		out = append(out, reg)
	}
	return out, nil
}

// UpdateWebhook replaces the mutable fields of a registration. The id,
// secret, and creation timestamp are preserved.
func (m *MemoryRegistry) UpdateWebhook(ctx context.Context, id string, upd Registration) (Registration, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	existing, ok := m.webhooks[id]
	if !ok {
		return Registration{}, ErrWebhookNotFound
	}

	existing.URL = upd.URL
	existing.Description = upd.Description
	existing.Enabled = upd.Enabled
	existing.Events = upd.Events
	existing.Environments = upd.Environments
	if upd.MaxRetries > 0 {
		existing.MaxRetries = upd.MaxRetries
	}
	if upd.TimeoutSeconds > 0 {
		existing.TimeoutSeconds = upd.TimeoutSeconds
	}
	existing.UpdatedAt = time.Now().UTC()

	m.webhooks[id] = existing
	return existing, nil
}

// DeleteWebhook removes a registration and its delivery history. Deleting a
// missing webhook is not an error.
func (m *MemoryRegistry) DeleteWebhook(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.webhooks, id)
	delete(m.deliveries, id)
	return nil
}

// ListDeliveries returns up to limit delivery records for a webhook, newest
// first, skipping offset records.
func (m *MemoryRegistry) ListDeliveries(ctx context.Context, webhookID string, limit, offset int) ([]Delivery, int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	all := m.deliveries[webhookID]
	total := len(all)
	if offset >= total {
		return []Delivery{}, total, nil
	}
	end := offset + limit
	if end > total {
		end = total
	}
	out := make([]Delivery, end-offset)
	copy(out, all[offset:end])
	return out, total, nil
}

// --- WebhookStore (dispatcher side) ---

// GetActiveWebhooks returns all enabled webhooks.
func (m *MemoryRegistry) GetActiveWebhooks(ctx context.Context) ([]Webhook, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]Webhook, 0, len(m.webhooks))
	for _, reg := range m.webhooks {
		if reg.Enabled {
			out = append(out, reg.Webhook)
		}
	}
	return out, nil
}

// UpdateWebhookLastTriggered stamps the last successful delivery time.
func (m *MemoryRegistry) UpdateWebhookLastTriggered(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	reg, ok := m.webhooks[id]
	if !ok {
		return ErrWebhookNotFound
	}
	now := time.Now().UTC()
	reg.LastTriggeredAt = &now
	m.webhooks[id] = reg
	return nil
}

// CreateWebhookDelivery prepends a delivery record to the webhook's history.
func (m *MemoryRegistry) CreateWebhookDelivery(ctx context.Context, delivery Delivery) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.deliveries[delivery.WebhookID] = append([]Delivery{delivery}, m.deliveries[delivery.WebhookID]...)
	return nil
}
