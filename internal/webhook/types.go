package webhook

import (
	"encoding/json"
	"time"
)

// Event types that can trigger webhooks
const (
	EventFormCreated       = "form.created"
	EventFormUpdated       = "form.updated"
	EventFormDeleted       = "form.deleted"
	EventFormPublished     = "form.published"
	EventResponseSubmitted = "response.submitted"
)

// Webhook is a registered webhook endpoint with its event filters and
// delivery policy.
type Webhook struct {
	ID             string   `json:"id"`
	URL            string   `json:"url"`
	Secret         string   `json:"secret"`
	Enabled        bool     `json:"enabled"`
	Events         []string `json:"events"`
	Environments   []string `json:"environments,omitempty"`
	MaxRetries     int32    `json:"maxRetries"`
	TimeoutSeconds int32    `json:"timeoutSeconds"`
}

// Delivery records one delivery attempt against a webhook endpoint.
type Delivery struct {
	WebhookID    string `json:"webhookId"`
	EventType    string `json:"eventType"`
	Payload      []byte `json:"payload"`
	StatusCode   int32  `json:"statusCode,omitempty"`
	ResponseBody string `json:"responseBody,omitempty"`
	ErrorMessage string `json:"errorMessage,omitempty"`
	DurationMs   int32  `json:"durationMs,omitempty"`
	Success      bool   `json:"success"`
	RetryCount   int32  `json:"retryCount"`
}

// Event represents a webhook event that will be sent to subscribed webhooks
type Event struct {
	Type        string    `json:"event"`
	Timestamp   time.Time `json:"timestamp"`
	Environment string    `json:"environment"`
	Resource    Resource  `json:"resource"`
	Data        EventData `json:"data"`
	Metadata    Metadata  `json:"metadata"`
}

// MarshalJSON implements json.Marshaler
func (e Event) MarshalJSON() ([]byte, error) {
	type Alias Event
	return json.Marshal(&struct {
		Alias
	}{
		Alias: (Alias)(e),
	})
}

// UnmarshalJSON implements json.Unmarshaler
func (e *Event) UnmarshalJSON(data []byte) error {
	type Alias Event
	aux := &struct {
		*Alias
	}{
		Alias: (*Alias)(e),
	}
	return json.Unmarshal(data, &aux)
}

// Resource identifies the resource that triggered the event
type Resource struct {
	Type string `json:"type"` // e.g., "form" or "response"
	ID   string `json:"id"`   // e.g., form id
}

// EventData contains the before/after state and changes
type EventData struct {
	Before  map[string]any `json:"before,omitempty"`
	After   map[string]any `json:"after,omitempty"`
	Changes map[string]any `json:"changes,omitempty"`
}

// Metadata contains additional context about the event
type Metadata struct {
	APIKeyID  string `json:"apiKeyId,omitempty"`
	IPAddress string `json:"ipAddress,omitempty"`
	RequestID string `json:"requestId,omitempty"`
}
