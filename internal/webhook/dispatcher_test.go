package webhook

import (
	"encoding/json"
	"testing"
)

func TestDispatcher_matches(t *testing.T) {
	d := &Dispatcher{}

	tests := []struct {
		name    string
		webhook Webhook
		event   Event
		want    bool
	}{
		{
			name: "matches event type",
			webhook: Webhook{
				Events: []string{EventFormCreated, EventFormUpdated},
			},
			event: Event{
				Type: EventFormUpdated,
			},
			want: true,
		},
		{
			name: "does not match event type",
			webhook: Webhook{
				Events: []string{EventFormCreated},
			},
			event: Event{
				Type: EventFormDeleted,
			},
			want: false,
		},
		{
			name: "matches environment filter",
			webhook: Webhook{
				Events:       []string{EventFormUpdated},
				Environments: []string{"prod", "staging"},
			},
			event: Event{
				Type:        EventFormUpdated,
				Environment: "prod",
			},
			want: true,
		},
		{
			name: "does not match environment filter",
			webhook: Webhook{
				Events:       []string{EventFormUpdated},
				Environments: []string{"prod"},
			},
			event: Event{
				Type:        EventFormUpdated,
				Environment: "dev",
			},
			want: false,
		},
		{
			name: "no environment filter matches all",
			webhook: Webhook{
				Events:       []string{EventFormUpdated},
				Environments: []string{},
			},
			event: Event{
				Type:        EventFormUpdated,
				Environment: "any-env",
			},
			want: true,
		},
		{
			name: "response submission event",
			webhook: Webhook{
				Events: []string{EventResponseSubmitted},
			},
			event: Event{
				Type: EventResponseSubmitted,
			},
			want: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := d.matches(tt.webhook, tt.event)
			if got != tt.want {
				t.Errorf("matches() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestEvent_JSONMarshaling(t *testing.T) {
	event := Event{
		Type:        EventFormUpdated,
		Environment: "prod",
		Resource: Resource{
			Type: "form",
			ID:   "customer-survey",
		},
		Data: EventData{
			Before: map[string]any{
				"status": "draft",
			},
			After: map[string]any{
				"status": "published",
			},
			Changes: map[string]any{
				"status": map[string]any{
					"before": "draft",
					"after":  "published",
				},
			},
		},
		Metadata: Metadata{
			APIKeyID:  "key-123",
			IPAddress: "192.168.1.100",
			RequestID: "req-456",
		},
	}

	// Marshal to JSON using standard json.Marshal
	data, err := json.Marshal(event)
	if err != nil {
		t.Fatalf("Failed to marshal event: %v", err)
	}

	// Check that marshaled data is not empty
	if len(data) == 0 {
		t.Errorf("Marshaled event is empty")
	}

	// Unmarshal back using standard json.Unmarshal
	var decoded Event
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("Failed to unmarshal event: %v", err)
	}

	// Check key fields
	if decoded.Type != event.Type {
		t.Errorf("Event type mismatch: got %v, want %v", decoded.Type, event.Type)
	}
	if decoded.Environment != event.Environment {
		t.Errorf("Environment mismatch: got %v, want %v", decoded.Environment, event.Environment)
	}
	if decoded.Resource.ID != event.Resource.ID {
		t.Errorf("Resource id mismatch: got %v, want %v", decoded.Resource.ID, event.Resource.ID)
	}
}
