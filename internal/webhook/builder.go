package webhook

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5/middleware"

	"github.com/formship/formship/internal/auth"
)

// EventBuilder provides a fluent API for constructing webhook events.
// It simplifies event creation by determining event type automatically and providing defaults.
//
// Usage:
//
//	event := webhook.NewEventBuilder(r).
//		ForForm(formID, env).
//		WithStates(beforeState, afterState).
//		WithChanges(changes).
//		Build()
//
//	dispatcher.Dispatch(event)
type EventBuilder struct {
	event Event
}

// NewEventBuilder creates a new builder initialized with request context.
// It automatically extracts request ID, IP address, and API key from the HTTP request.
func NewEventBuilder(r *http.Request) *EventBuilder {
	metadata := Metadata{
		RequestID: middleware.GetReqID(r.Context()),
		IPAddress: auth.GetIPAddress(r),
	}

	if apiKeyID, ok := auth.GetAPIKeyIDFromContext(r.Context()); ok && apiKeyID != "" {
		metadata.APIKeyID = apiKeyID
	}

	return &EventBuilder{
		event: Event{
			Timestamp: time.Now(),
			Metadata:  metadata,
		},
	}
}

// ForForm sets the resource to a form with the given id and environment.
func (b *EventBuilder) ForForm(id, env string) *EventBuilder {
	b.event.Resource = Resource{
		Type: "form",
		ID:   id,
	}
	b.event.Environment = env
	return b
}

// ForResponse sets the resource to a response with the given id and marks the
// event as a submission.
func (b *EventBuilder) ForResponse(id, env string) *EventBuilder {
	b.event.Resource = Resource{
		Type: "response",
		ID:   id,
	}
	b.event.Environment = env
	b.event.Type = EventResponseSubmitted
	return b
}

// WithEventType overrides the event type, e.g. for form.published.
func (b *EventBuilder) WithEventType(eventType string) *EventBuilder {
	b.event.Type = eventType
	return b
}

// WithStates sets the before and after states for the event.
// If no event type is set yet, it is determined from the states:
//   - before=nil, after!=nil → created
//   - before!=nil, after=nil → deleted
//   - both non-nil → updated
//   - both nil → no event type set (caller should set explicitly if needed)
func (b *EventBuilder) WithStates(before, after map[string]any) *EventBuilder {
	b.event.Data.Before = before
	b.event.Data.After = after

	if b.event.Type == "" {
		if before == nil && after != nil {
			b.event.Type = EventFormCreated
		} else if before != nil && after == nil {
			b.event.Type = EventFormDeleted
		} else if before != nil && after != nil {
			b.event.Type = EventFormUpdated
		}
	}

	return b
}

// WithChanges sets the changes for the event.
func (b *EventBuilder) WithChanges(changes map[string]any) *EventBuilder {
	b.event.Data.Changes = changes
	return b
}

// Build returns the constructed Event.
// The returned event is ready to be dispatched via dispatcher.Dispatch().
func (b *EventBuilder) Build() Event {
	return b.event
}
