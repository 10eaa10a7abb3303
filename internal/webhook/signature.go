package webhook

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"net/http"
)

// Delivery headers stamped on every outgoing webhook request. Receivers
// verify HeaderSignature against the raw body before trusting the payload.
const (
	HeaderSignature = "X-Formship-Signature"
	HeaderEvent     = "X-Formship-Event"
	HeaderDelivery  = "X-Formship-Delivery"
)

// secretPrefix marks formship-issued webhook signing secrets.
const secretPrefix = "whsec_"

// SignPayload computes the sha256=<hex> HMAC of the payload under the
// webhook's signing secret.
func SignPayload(payload []byte, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(payload)
	return "sha256=" + hex.EncodeToString(mac.Sum(nil))
}

// SignRequest frames an outgoing delivery: content type, payload signature,
// event type, and delivery id.
func SignRequest(req *http.Request, payload []byte, secret, eventType, deliveryID string) {
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(HeaderSignature, SignPayload(payload, secret))
	req.Header.Set(HeaderEvent, eventType)
	req.Header.Set(HeaderDelivery, deliveryID)
}

// VerifySignature reports whether the signature matches the payload under the
// secret. The comparison is constant-time.
func VerifySignature(payload []byte, signature string, secret string) bool {
	expected := SignPayload(payload, secret)
	return hmac.Equal([]byte(signature), []byte(expected))
}

// GenerateSecret returns a fresh random signing secret for a webhook
// subscription, carrying the whsec_ prefix so secrets are recognizable in
// config and logs.
func GenerateSecret() (string, error) {
	raw := make([]byte, 32)
	if _, err := rand.Read(raw); err != nil {
		return "", fmt.Errorf("failed to generate random secret: %w", err)
	}
	return secretPrefix + base64.URLEncoding.EncodeToString(raw), nil
}
