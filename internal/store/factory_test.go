package store

import (
	"context"
	"testing"
)

func TestOpen_Memory(t *testing.T) {
	ctx := context.Background()
	backend, err := Open(ctx, "memory", "")
	if err != nil {
		t.Fatalf("Open('memory') failed: %v", err)
	}
	if backend.Store == nil {
		t.Fatal("Expected non-nil store")
	}
	if backend.Pool != nil {
		t.Error("Memory backend must not expose a postgres pool")
	}

	// Verify it's a working store by round-tripping a form
	if err := backend.Store.UpsertForm(ctx, sampleForm("f1", "test")); err != nil {
		t.Fatalf("UpsertForm failed: %v", err)
	}

	all, err := backend.Store.ListForms(ctx, "test")
	if err != nil {
		t.Fatalf("ListForms failed: %v", err)
	}
	if len(all) != 1 {
		t.Errorf("Expected 1 form, got %d", len(all))
	}

	backend.Store.Close()
}

func TestOpen_UnsupportedType(t *testing.T) {
	ctx := context.Background()
	_, err := Open(ctx, "invalid-type", "")
	if err == nil {
		t.Fatal("Expected error for unsupported store type")
	}
	expectedMsg := "unsupported store type: invalid-type"
	if err.Error() != expectedMsg {
		t.Errorf("Expected error message '%s', got '%s'", expectedMsg, err.Error())
	}
}

func TestOpen_PostgresWithInvalidDSN(t *testing.T) {
	ctx := context.Background()
	// Invalid DSN should fail during pool creation, before any ping
	if _, err := Open(ctx, "postgres", "not a dsn \x00"); err == nil {
		t.Fatal("Expected error for invalid DSN")
	}
}

func TestOpen_CaseSensitivity(t *testing.T) {
	ctx := context.Background()

	// Store type is case-sensitive (lowercase expected)
	if _, err := Open(ctx, "Memory", ""); err == nil {
		t.Error("Expected error for 'Memory' (capital M)")
	}

	backend, err := Open(ctx, "memory", "")
	if err != nil {
		t.Fatalf("Open('memory') should work: %v", err)
	}
	backend.Store.Close()
}
