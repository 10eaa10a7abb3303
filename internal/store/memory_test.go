package store

import (
	"context"
	"errors"
	"testing"

	"github.com/formship/formship/internal/forms"
	"github.com/formship/formship/internal/visibility"
)

func sampleForm(id, env string) forms.Form {
	return forms.Form{
		ID:     id,
		Title:  "Sample form",
		Status: forms.StatusDraft,
		Env:    env,
		Questions: []forms.Question{
			{ID: "q1", Label: "Do you have a budget?", Type: forms.TypeYesNo},
			{
				ID:    "q2",
				Label: "What is your budget?",
				Type:  forms.TypeNumber,
				Conditional: forms.Conditional{
					Enabled: true,
					Rules: []forms.Rule{
						{QuestionID: "q1", Operator: forms.OpEquals, Value: "yes"},
					},
				},
			},
		},
	}
}

func TestMemoryStore_UpsertAndGet(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	if err := store.UpsertForm(ctx, sampleForm("f1", "prod")); err != nil {
		t.Fatalf("UpsertForm failed: %v", err)
	}

	f, err := store.GetForm(ctx, "f1")
	if err != nil {
		t.Fatalf("GetForm failed: %v", err)
	}

	if f.ID != "f1" {
		t.Errorf("Expected id 'f1', got '%s'", f.ID)
	}
	if len(f.Questions) != 2 {
		t.Errorf("Expected 2 questions, got %d", len(f.Questions))
	}
	if f.UpdatedAt.IsZero() {
		t.Error("Expected UpdatedAt to be set on upsert")
	}
}

func TestMemoryStore_ListForms(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	for _, f := range []forms.Form{
		sampleForm("f1", "prod"),
		sampleForm("f2", "prod"),
		sampleForm("f3", "dev"),
	} {
		if err := store.UpsertForm(ctx, f); err != nil {
			t.Fatalf("UpsertForm failed: %v", err)
		}
	}

	prod, err := store.ListForms(ctx, "prod")
	if err != nil {
		t.Fatalf("ListForms failed: %v", err)
	}
	if len(prod) != 2 {
		t.Errorf("Expected 2 forms for prod, got %d", len(prod))
	}

	dev, err := store.ListForms(ctx, "dev")
	if err != nil {
		t.Fatalf("ListForms failed: %v", err)
	}
	if len(dev) != 1 {
		t.Errorf("Expected 1 form for dev, got %d", len(dev))
	}
}

func TestMemoryStore_Update(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	f := sampleForm("f1", "prod")
	if err := store.UpsertForm(ctx, f); err != nil {
		t.Fatalf("Initial UpsertForm failed: %v", err)
	}

	f.Title = "Updated title"
	f.Status = forms.StatusPublished
	if err := store.UpsertForm(ctx, f); err != nil {
		t.Fatalf("Update UpsertForm failed: %v", err)
	}

	got, err := store.GetForm(ctx, "f1")
	if err != nil {
		t.Fatalf("GetForm failed: %v", err)
	}
	if got.Title != "Updated title" {
		t.Errorf("Expected title 'Updated title', got '%s'", got.Title)
	}
	if got.Status != forms.StatusPublished {
		t.Errorf("Expected status published, got '%s'", got.Status)
	}
}

func TestMemoryStore_Delete(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	if err := store.UpsertForm(ctx, sampleForm("f1", "prod")); err != nil {
		t.Fatalf("UpsertForm failed: %v", err)
	}

	if err := store.DeleteForm(ctx, "f1", "prod"); err != nil {
		t.Fatalf("DeleteForm failed: %v", err)
	}

	if _, err := store.GetForm(ctx, "f1"); !errors.Is(err, ErrFormNotFound) {
		t.Errorf("Expected ErrFormNotFound after delete, got %v", err)
	}

	// Delete again (idempotent)
	if err := store.DeleteForm(ctx, "f1", "prod"); err != nil {
		t.Fatalf("Second DeleteForm failed: %v", err)
	}
}

func TestMemoryStore_DeleteWrongEnv(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	if err := store.UpsertForm(ctx, sampleForm("f1", "prod")); err != nil {
		t.Fatalf("UpsertForm failed: %v", err)
	}

	if err := store.DeleteForm(ctx, "f1", "dev"); err != nil {
		t.Fatalf("DeleteForm failed: %v", err)
	}

	f, err := store.GetForm(ctx, "f1")
	if err != nil {
		t.Fatalf("GetForm failed: %v", err)
	}
	if f.Env != "prod" {
		t.Errorf("Expected env 'prod', got '%s'", f.Env)
	}
}

func TestMemoryStore_ResponseLifecycle(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	if err := store.UpsertForm(ctx, sampleForm("f1", "prod")); err != nil {
		t.Fatalf("UpsertForm failed: %v", err)
	}

	r, err := store.CreateResponse(ctx, "f1")
	if err != nil {
		t.Fatalf("CreateResponse failed: %v", err)
	}
	if r.ID == "" {
		t.Fatal("Expected a generated response id")
	}
	if r.Completed {
		t.Error("New response should not be completed")
	}

	err = store.SaveAnswer(ctx, r.ID, "q1", visibility.Answer{Value: "yes"})
	if err != nil {
		t.Fatalf("SaveAnswer failed: %v", err)
	}
	err = store.SaveAnswer(ctx, r.ID, "q2", visibility.Answer{Skipped: true})
	if err != nil {
		t.Fatalf("SaveAnswer (skip) failed: %v", err)
	}

	got, err := store.GetResponse(ctx, r.ID)
	if err != nil {
		t.Fatalf("GetResponse failed: %v", err)
	}
	if a, ok := got.Answers.GetAnswer("q1"); !ok || a.Value != "yes" {
		t.Errorf("Expected q1 answer 'yes', got (%+v, %v)", a, ok)
	}
	if a, ok := got.Answers.GetAnswer("q2"); !ok || !a.Skipped {
		t.Errorf("Expected q2 to be recorded as skipped, got (%+v, %v)", a, ok)
	}

	if err := store.CompleteResponse(ctx, r.ID); err != nil {
		t.Fatalf("CompleteResponse failed: %v", err)
	}
	got, err = store.GetResponse(ctx, r.ID)
	if err != nil {
		t.Fatalf("GetResponse failed: %v", err)
	}
	if !got.Completed {
		t.Error("Expected response to be completed")
	}

	all, err := store.ListResponses(ctx, "f1")
	if err != nil {
		t.Fatalf("ListResponses failed: %v", err)
	}
	if len(all) != 1 {
		t.Errorf("Expected 1 response, got %d", len(all))
	}
}

func TestMemoryStore_ResponseAgainstMissingForm(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	if _, err := store.CreateResponse(ctx, "ghost"); !errors.Is(err, ErrFormNotFound) {
		t.Errorf("Expected ErrFormNotFound, got %v", err)
	}
}

func TestMemoryStore_SaveAnswerMissingResponse(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	err := store.SaveAnswer(ctx, "nope", "q1", visibility.Answer{Value: "x"})
	if !errors.Is(err, ErrResponseNotFound) {
		t.Errorf("Expected ErrResponseNotFound, got %v", err)
	}
}

func TestMemoryStore_ReturnedResponseIsIsolated(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	if err := store.UpsertForm(ctx, sampleForm("f1", "prod")); err != nil {
		t.Fatalf("UpsertForm failed: %v", err)
	}
	r, err := store.CreateResponse(ctx, "f1")
	if err != nil {
		t.Fatalf("CreateResponse failed: %v", err)
	}

	// Mutating the returned map must not leak into stored state.
	r.Answers["q1"] = visibility.Answer{Value: "tampered"}

	got, err := store.GetResponse(ctx, r.ID)
	if err != nil {
		t.Fatalf("GetResponse failed: %v", err)
	}
	if _, ok := got.Answers.GetAnswer("q1"); ok {
		t.Error("Stored response should not see mutations of a returned copy")
	}
}

func TestMemoryStore_GetNonExistent(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	if _, err := store.GetForm(ctx, "non-existent"); err == nil {
		t.Error("Expected error when getting non-existent form, got nil")
	}
}

func TestMemoryStore_Close(t *testing.T) {
	store := NewMemoryStore()

	if err := store.Close(); err != nil {
		t.Errorf("Close() returned error: %v", err)
	}
}
