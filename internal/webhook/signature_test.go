package webhook

import (
	"net/http/httptest"
	"strings"
	"testing"
)

func TestSignPayload(t *testing.T) {
	tests := []struct {
		name    string
		payload string
		secret  string
	}{
		{
			name:    "response completed event",
			payload: `{"type":"response.submitted","form_id":"customer_survey"}`,
			secret:  "whsec_test",
		},
		{
			name:    "empty payload",
			payload: "",
			secret:  "whsec_test",
		},
		{
			name:    "form published event",
			payload: `{"type":"form.published","form_id":"onboarding"}`,
			secret:  "another-secret",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := SignPayload([]byte(tt.payload), tt.secret)
			if !strings.HasPrefix(result, "sha256=") {
				t.Errorf("SignPayload() result does not have 'sha256=' prefix: %v", result)
			}
			// sha256 hex digest is 64 chars
			hexPart := strings.TrimPrefix(result, "sha256=")
			if len(hexPart) != 64 {
				t.Errorf("SignPayload() hex part length = %v, want 64", len(hexPart))
			}
		})
	}
}

func TestSignRequest_StampsDeliveryHeaders(t *testing.T) {
	payload := []byte(`{"type":"response.submitted","form_id":"customer_survey"}`)
	req := httptest.NewRequest("POST", "https://hooks.example.com/formship", nil)

	SignRequest(req, payload, "whsec_test", EventResponseSubmitted, "delivery-123")

	if got := req.Header.Get("Content-Type"); got != "application/json" {
		t.Errorf("Content-Type = %q, want application/json", got)
	}
	if got := req.Header.Get(HeaderSignature); got != SignPayload(payload, "whsec_test") {
		t.Errorf("%s = %q does not match the payload signature", HeaderSignature, got)
	}
	if got := req.Header.Get(HeaderEvent); got != EventResponseSubmitted {
		t.Errorf("%s = %q, want %q", HeaderEvent, got, EventResponseSubmitted)
	}
	if got := req.Header.Get(HeaderDelivery); got != "delivery-123" {
		t.Errorf("%s = %q, want delivery-123", HeaderDelivery, got)
	}
}

func TestVerifySignature(t *testing.T) {
	payload := []byte(`{"type":"form.published","form_id":"onboarding"}`)

	t.Run("valid signature", func(t *testing.T) {
		signature := SignPayload(payload, "my-secret")
		if !VerifySignature(payload, signature, "my-secret") {
			t.Error("VerifySignature() rejected a valid signature")
		}
	})

	t.Run("wrong secret", func(t *testing.T) {
		signature := SignPayload(payload, "different-secret")
		if VerifySignature(payload, signature, "my-secret") {
			t.Error("VerifySignature() accepted a signature from a different secret")
		}
	})

	t.Run("tampered payload", func(t *testing.T) {
		signature := SignPayload(payload, "my-secret")
		tampered := []byte(`{"type":"form.published","form_id":"other_form"}`)
		if VerifySignature(tampered, signature, "my-secret") {
			t.Error("VerifySignature() accepted a signature for a tampered payload")
		}
	})

	t.Run("invalid signature", func(t *testing.T) {
		if VerifySignature(payload, "sha256=invalid", "my-secret") {
			t.Error("VerifySignature() with invalid signature should return false")
		}
	})

	t.Run("empty signature", func(t *testing.T) {
		if VerifySignature(payload, "", "my-secret") {
			t.Error("VerifySignature() with empty signature should return false")
		}
	})
}

func TestGenerateSecret(t *testing.T) {
	secret1, err := GenerateSecret()
	if err != nil {
		t.Fatalf("GenerateSecret() error = %v", err)
	}

	if !strings.HasPrefix(secret1, secretPrefix) {
		t.Errorf("GenerateSecret() secret does not have %q prefix: %v", secretPrefix, secret1)
	}

	// prefix + base64 of 32 random bytes
	if len(secret1) < 20 {
		t.Errorf("GenerateSecret() secret too short: %v", len(secret1))
	}

	secret2, err := GenerateSecret()
	if err != nil {
		t.Fatalf("GenerateSecret() error = %v", err)
	}
	if secret1 == secret2 {
		t.Errorf("GenerateSecret() generated identical secrets, should be random")
	}
}

func TestSignatureRoundTrip(t *testing.T) {
	payload := []byte(`{"type":"form.updated","form_id":"customer_survey","timestamp":"2026-01-15T10:30:00Z"}`)
	secret, err := GenerateSecret()
	if err != nil {
		t.Fatalf("GenerateSecret() error = %v", err)
	}

	signature := SignPayload(payload, secret)
	if !VerifySignature(payload, signature, secret) {
		t.Errorf("Failed to verify signature that was just computed")
	}
}
