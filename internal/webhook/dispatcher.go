package webhook

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"math"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

const (
	// queueSize is the buffer size for the event queue
	queueSize = 1000

	// maxResponseBodySize limits how much of the response body we store (1KB)
	maxResponseBodySize = 1024
)

// WebhookStore defines the interface for webhook persistence operations
type WebhookStore interface {
	GetActiveWebhooks(ctx context.Context) ([]Webhook, error)
	UpdateWebhookLastTriggered(ctx context.Context, id string) error
	CreateWebhookDelivery(ctx context.Context, delivery Delivery) error
}

// Dispatcher manages webhook event dispatching and delivery
type Dispatcher struct {
	store  WebhookStore
	client *http.Client
	queue  chan Event
	done   chan struct{}
	closed int32 // atomic flag to prevent double-close
}

// NewDispatcher creates a new webhook dispatcher
func NewDispatcher(store WebhookStore) *Dispatcher {
	return &Dispatcher{
		store: store,
		client: &http.Client{
			// Default timeout, will be overridden per-webhook
			Timeout: 10 * time.Second,
		},
		queue: make(chan Event, queueSize),
		done:  make(chan struct{}),
	}
}

// Start begins processing events from the queue
func (d *Dispatcher) Start() {
	go d.worker()
}

// Stop stops the dispatcher and waits for pending events to be processed.
// Deprecated: Use Close() instead for consistent lifecycle management.
func (d *Dispatcher) Stop() {
	_ = d.Close()
}

// Close gracefully shuts down the webhook dispatcher.
// It closes the event queue and waits for all pending deliveries to complete.
// After Close is called, no new events should be dispatched.
//
// Close is safe to call multiple times - subsequent calls are no-ops.
func (d *Dispatcher) Close() error {
	// Atomically check if already closed
	if !atomic.CompareAndSwapInt32(&d.closed, 0, 1) {
		return nil // Already closed
	}
	close(d.queue)
	<-d.done
	return nil
}

// Dispatch queues an event for webhook delivery
// This is non-blocking and will not slow down the caller
func (d *Dispatcher) Dispatch(event Event) {
	select {
	case d.queue <- event:
		log.Printf("[webhook] event queued: type=%s resource=%s/%s env=%s queue_size=%d",
			event.Type, event.Resource.Type, event.Resource.ID, event.Environment, len(d.queue))
	default:
		// Queue is full, drop event and log warning
		log.Printf("[webhook] CRITICAL: queue full (size=%d), dropping event: type=%s resource=%s/%s env=%s",
			queueSize, event.Type, event.Resource.Type, event.Resource.ID, event.Environment)
	}
}

// worker processes events from the queue
func (d *Dispatcher) worker() {
	defer close(d.done)

	for event := range d.queue {
		log.Printf("[webhook] processing event: type=%s resource=%s/%s env=%s",
			event.Type, event.Resource.Type, event.Resource.ID, event.Environment)

		webhooks, err := d.getMatchingWebhooks(context.Background(), event)
		if err != nil {
			log.Printf("[webhook] failed to fetch webhooks for event: type=%s resource=%s/%s env=%s error=%v",
				event.Type, event.Resource.Type, event.Resource.ID, event.Environment, err)
			continue
		}

		log.Printf("[webhook] found %d matching webhook(s) for event: type=%s resource=%s/%s",
			len(webhooks), event.Type, event.Resource.Type, event.Resource.ID)

		for _, webhook := range webhooks {
			d.deliverWithRetry(context.Background(), webhook, event)
		}
	}
}

// getMatchingWebhooks finds all webhooks that should receive this event
func (d *Dispatcher) getMatchingWebhooks(ctx context.Context, event Event) ([]Webhook, error) {
	// Get all active webhooks
	allWebhooks, err := d.store.GetActiveWebhooks(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get active webhooks: %w", err)
	}

	var matching []Webhook
	for _, webhook := range allWebhooks {
		if d.matches(webhook, event) {
			matching = append(matching, webhook)
		}
	}

	return matching, nil
}

// matches checks if a webhook should receive this event based on filters
func (d *Dispatcher) matches(webhook Webhook, event Event) bool {
	// Check if event type matches
	eventMatches := false
	for _, e := range webhook.Events {
		if e == event.Type {
			eventMatches = true
			break
		}
	}
	if !eventMatches {
		return false
	}

	// Check environment filter (if specified)
	if len(webhook.Environments) > 0 {
		envMatches := false
		for _, env := range webhook.Environments {
			if env == event.Environment {
				envMatches = true
				break
			}
		}
		if !envMatches {
			return false
		}
	}

	return true
}

// deliverWithRetry attempts to deliver an event to a webhook with retry logic
func (d *Dispatcher) deliverWithRetry(ctx context.Context, webhook Webhook, event Event) {
	payload, err := json.Marshal(event)
	if err != nil {
		// This should not happen, but if it does, log delivery failure
		log.Printf("[webhook] failed to marshal event payload: webhook_id=%s event_type=%s error=%v",
			webhook.ID, event.Type, err)
		d.logDelivery(ctx, webhook.ID, event.Type, payload, 0, "", err.Error(), 0, false, 0)
		return
	}

	deliveryID := uuid.New().String()

	for attempt := 0; attempt <= int(webhook.MaxRetries); attempt++ {
		start := time.Now()

		log.Printf("[webhook] delivering: webhook_id=%s url=%s event_type=%s attempt=%d/%d",
			webhook.ID, webhook.URL, event.Type, attempt+1, webhook.MaxRetries+1)

		req, err := http.NewRequest("POST", webhook.URL, bytes.NewReader(payload))
		if err != nil {
			log.Printf("[webhook] failed to create request: webhook_id=%s url=%s error=%v",
				webhook.ID, webhook.URL, err)
			d.logDelivery(ctx, webhook.ID, event.Type, payload, 0, "", err.Error(), 0, false, attempt)
			return
		}

		SignRequest(req, payload, webhook.Secret, event.Type, deliveryID)

		// Create context with timeout for this request
		reqCtx, cancel := context.WithTimeout(ctx, time.Duration(webhook.TimeoutSeconds)*time.Second)

		resp, err := d.client.Do(req.WithContext(reqCtx))
		duration := time.Since(start)

		var statusCode int
		var responseBody string
		var errorMsg string

		if err != nil {
			errorMsg = err.Error()
		} else {
			statusCode = resp.StatusCode
			// Read response body (limited size)
			bodyBytes, _ := io.ReadAll(io.LimitReader(resp.Body, maxResponseBodySize))
			responseBody = string(bodyBytes)
			resp.Body.Close()
		}

		// Cancel context immediately after request completes
		cancel()

		success := (err == nil && statusCode >= 200 && statusCode < 300)

		// Log this delivery attempt
		d.logDelivery(ctx, webhook.ID, event.Type, payload, statusCode, responseBody, errorMsg, int(duration.Milliseconds()), success, attempt)

		if success {
			log.Printf("[webhook] delivery succeeded: webhook_id=%s status=%d duration=%dms attempt=%d/%d",
				webhook.ID, statusCode, duration.Milliseconds(), attempt+1, webhook.MaxRetries+1)
			// Update last triggered timestamp
			_ = d.store.UpdateWebhookLastTriggered(ctx, webhook.ID)
			return // Success, no retry needed
		}

		// Delivery failed
		if attempt < int(webhook.MaxRetries) {
			backoffDuration := time.Duration(math.Pow(2, float64(attempt))) * time.Second
			log.Printf("[webhook] delivery failed: webhook_id=%s status=%d error=%q attempt=%d/%d retry_in=%s",
				webhook.ID, statusCode, errorMsg, attempt+1, webhook.MaxRetries+1, backoffDuration)
			time.Sleep(backoffDuration)
		} else {
			log.Printf("[webhook] delivery failed permanently: webhook_id=%s status=%d error=%q attempts=%d/%d",
				webhook.ID, statusCode, errorMsg, attempt+1, webhook.MaxRetries+1)
		}
	}
}

// logDelivery records a webhook delivery attempt
func (d *Dispatcher) logDelivery(ctx context.Context, webhookID, eventType string, payload []byte, statusCode int, responseBody string, errorMsg string, durationMs int, success bool, retryCount int) {
	// Fire and forget, don't fail the delivery if logging fails
	_ = d.store.CreateWebhookDelivery(ctx, Delivery{
		WebhookID:    webhookID,
		EventType:    eventType,
		Payload:      payload,
		StatusCode:   int32(statusCode),
		ResponseBody: responseBody,
		ErrorMessage: errorMsg,
		DurationMs:   int32(durationMs),
		Success:      success,
		RetryCount:   int32(retryCount),
	})
}
