package audit

import (
	"context"
	"fmt"
	"testing"
	"time"
)

func TestMemorySink_ListNewestFirst(t *testing.T) {
	sink := NewMemorySink(100)
	ctx := context.Background()

	base := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	for i := 0; i < 3; i++ {
		_ = sink.Write(ctx, AuditEvent{
			OccurredAt:   base.Add(time.Duration(i) * time.Minute),
			Action:       ActionUpdated,
			ResourceType: ResourceTypeForm,
			ResourceID:   fmt.Sprintf("form-%d", i),
			Status:       StatusSuccess,
		})
	}

	events, total, err := sink.List(ctx, Filter{}, 10, 0)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if total != 3 {
		t.Errorf("Expected total 3, got %d", total)
	}
	if events[0].ResourceID != "form-2" {
		t.Errorf("Expected newest event first, got %s", events[0].ResourceID)
	}
}

func TestMemorySink_Filter(t *testing.T) {
	sink := NewMemorySink(100)
	ctx := context.Background()

	_ = sink.Write(ctx, AuditEvent{Action: ActionCreated, ResourceType: ResourceTypeForm, ResourceID: "survey"})
	_ = sink.Write(ctx, AuditEvent{Action: ActionDeleted, ResourceType: ResourceTypeForm, ResourceID: "survey"})
	_ = sink.Write(ctx, AuditEvent{Action: ActionCreated, ResourceType: ResourceTypeAPIKey, ResourceID: "key-1"})

	events, total, err := sink.List(ctx, Filter{ResourceType: ResourceTypeForm, Action: ActionCreated}, 10, 0)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if total != 1 || len(events) != 1 {
		t.Fatalf("Expected 1 matching event, got %d", total)
	}
	if events[0].ResourceID != "survey" {
		t.Errorf("Unexpected event: %+v", events[0])
	}
}

func TestMemorySink_CapEvictsOldest(t *testing.T) {
	sink := NewMemorySink(2)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_ = sink.Write(ctx, AuditEvent{ResourceID: fmt.Sprintf("ev-%d", i)})
	}

	events, total, _ := sink.List(ctx, Filter{}, 10, 0)
	if total != 2 {
		t.Errorf("Expected cap of 2, got %d", total)
	}
	if events[0].ResourceID != "ev-2" || events[1].ResourceID != "ev-1" {
		t.Errorf("Expected newest two events, got %+v", events)
	}
}

func TestMemorySink_Pagination(t *testing.T) {
	sink := NewMemorySink(100)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		_ = sink.Write(ctx, AuditEvent{ResourceID: fmt.Sprintf("ev-%d", i)})
	}

	page, total, _ := sink.List(ctx, Filter{}, 2, 2)
	if total != 5 {
		t.Errorf("Expected total 5, got %d", total)
	}
	if len(page) != 2 || page[0].ResourceID != "ev-2" {
		t.Errorf("Unexpected page: %+v", page)
	}

	empty, _, _ := sink.List(ctx, Filter{}, 2, 10)
	if len(empty) != 0 {
		t.Errorf("Expected empty page past the end, got %+v", empty)
	}
}
