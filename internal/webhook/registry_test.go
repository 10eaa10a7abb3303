package webhook

import (
	"context"
	"errors"
	"strings"
	"testing"
)

func TestMemoryRegistry_CreateAndGet(t *testing.T) {
	reg := NewMemoryRegistry()
	ctx := context.Background()

	created, err := reg.CreateWebhook(ctx, Registration{
		Webhook: Webhook{
			URL:    "https://example.com/hook",
			Events: []string{EventFormPublished},
		},
		Description: "publish notifications",
	})
	if err != nil {
		t.Fatalf("CreateWebhook failed: %v", err)
	}

	if created.ID == "" {
		t.Error("Expected generated id")
	}
	if !strings.HasPrefix(created.Secret, "whsec_") {
		t.Errorf("Expected whsec_ secret, got %q", created.Secret)
	}
	if !created.Enabled {
		t.Error("Expected new webhook to be enabled")
	}
	if created.MaxRetries != defaultMaxRetries {
		t.Errorf("Expected default max retries %d, got %d", defaultMaxRetries, created.MaxRetries)
	}
	if created.TimeoutSeconds != defaultTimeoutSeconds {
		t.Errorf("Expected default timeout %d, got %d", defaultTimeoutSeconds, created.TimeoutSeconds)
	}

	got, err := reg.GetWebhook(ctx, created.ID)
	if err != nil {
		t.Fatalf("GetWebhook failed: %v", err)
	}
	if got.URL != "https://example.com/hook" {
		t.Errorf("URL mismatch: got %s", got.URL)
	}
}

func TestMemoryRegistry_GetMissing(t *testing.T) {
	reg := NewMemoryRegistry()
	if _, err := reg.GetWebhook(context.Background(), "nope"); !errors.Is(err, ErrWebhookNotFound) {
		t.Errorf("Expected ErrWebhookNotFound, got %v", err)
	}
}

func TestMemoryRegistry_UpdatePreservesSecret(t *testing.T) {
	reg := NewMemoryRegistry()
	ctx := context.Background()

	created, err := reg.CreateWebhook(ctx, Registration{
		Webhook: Webhook{URL: "https://old.example.com", Events: []string{EventFormCreated}},
	})
	if err != nil {
		t.Fatalf("CreateWebhook failed: %v", err)
	}

	updated, err := reg.UpdateWebhook(ctx, created.ID, Registration{
		Webhook: Webhook{
			URL:     "https://new.example.com",
			Enabled: false,
			Events:  []string{EventResponseSubmitted},
		},
	})
	if err != nil {
		t.Fatalf("UpdateWebhook failed: %v", err)
	}

	if updated.URL != "https://new.example.com" {
		t.Errorf("URL not updated: got %s", updated.URL)
	}
	if updated.Enabled {
		t.Error("Expected webhook to be disabled after update")
	}
	if updated.Secret != created.Secret {
		t.Error("Expected secret to be preserved across updates")
	}
	if updated.ID != created.ID {
		t.Error("Expected id to be preserved across updates")
	}
}

func TestMemoryRegistry_DeleteIdempotent(t *testing.T) {
	reg := NewMemoryRegistry()
	ctx := context.Background()

	created, _ := reg.CreateWebhook(ctx, Registration{
		Webhook: Webhook{URL: "https://example.com", Events: []string{EventFormDeleted}},
	})

	if err := reg.DeleteWebhook(ctx, created.ID); err != nil {
		t.Fatalf("DeleteWebhook failed: %v", err)
	}
	if err := reg.DeleteWebhook(ctx, created.ID); err != nil {
		t.Fatalf("Second DeleteWebhook failed: %v", err)
	}
	if _, err := reg.GetWebhook(ctx, created.ID); !errors.Is(err, ErrWebhookNotFound) {
		t.Error("Expected webhook to be gone after delete")
	}
}

func TestMemoryRegistry_ActiveWebhooksFilterDisabled(t *testing.T) {
	reg := NewMemoryRegistry()
	ctx := context.Background()

	enabled, _ := reg.CreateWebhook(ctx, Registration{
		Webhook: Webhook{URL: "https://a.example.com", Events: []string{EventFormUpdated}},
	})
	disabled, _ := reg.CreateWebhook(ctx, Registration{
		Webhook: Webhook{URL: "https://b.example.com", Events: []string{EventFormUpdated}},
	})
	if _, err := reg.UpdateWebhook(ctx, disabled.ID, Registration{
		Webhook: Webhook{URL: disabled.URL, Enabled: false, Events: disabled.Events},
	}); err != nil {
		t.Fatalf("UpdateWebhook failed: %v", err)
	}

	active, err := reg.GetActiveWebhooks(ctx)
	if err != nil {
		t.Fatalf("GetActiveWebhooks failed: %v", err)
	}
	if len(active) != 1 || active[0].ID != enabled.ID {
		t.Errorf("Expected only the enabled webhook, got %+v", active)
	}
}

func TestMemoryRegistry_DeliveriesPagination(t *testing.T) {
	reg := NewMemoryRegistry()
	ctx := context.Background()

	created, _ := reg.CreateWebhook(ctx, Registration{
		Webhook: Webhook{URL: "https://example.com", Events: []string{EventFormUpdated}},
	})

	for i := 0; i < 5; i++ {
		_ = reg.CreateWebhookDelivery(ctx, Delivery{
			WebhookID:  created.ID,
			EventType:  EventFormUpdated,
			StatusCode: int32(200 + i),
			Success:    true,
		})
	}

	page, total, err := reg.ListDeliveries(ctx, created.ID, 2, 0)
	if err != nil {
		t.Fatalf("ListDeliveries failed: %v", err)
	}
	if total != 5 {
		t.Errorf("Expected total 5, got %d", total)
	}
	if len(page) != 2 {
		t.Fatalf("Expected page of 2, got %d", len(page))
	}
	// newest first
	if page[0].StatusCode != 204 {
		t.Errorf("Expected newest delivery first, got status %d", page[0].StatusCode)
	}

	tail, _, err := reg.ListDeliveries(ctx, created.ID, 10, 4)
	if err != nil {
		t.Fatalf("ListDeliveries failed: %v", err)
	}
	if len(tail) != 1 {
		t.Errorf("Expected 1 remaining delivery, got %d", len(tail))
	}

	empty, _, err := reg.ListDeliveries(ctx, created.ID, 10, 99)
	if err != nil {
		t.Fatalf("ListDeliveries failed: %v", err)
	}
	if len(empty) != 0 {
		t.Errorf("Expected empty page past the end, got %d", len(empty))
	}
}
