package auth

import (
	"context"
	"net/http"
	"time"
)

// contextKey is a custom type for context keys to avoid collisions
type contextKey string

const (
	// ContextKeyAPIKey is the context key for storing the API key ID
	ContextKeyAPIKey contextKey = "api_key_id"
	// ContextKeyRole is the context key for storing the user role
	ContextKeyRole contextKey = "role"
)

// APIKey is a stored API key. Only the bcrypt hash of the key material is
// kept; the plain key is shown once at creation time.
type APIKey struct {
	ID         string
	Name       string
	KeyHash    string
	Role       Role
	Enabled    bool
	ExpiresAt  *time.Time
	LastUsedAt *time.Time
	CreatedAt  time.Time
}

// KeyStore defines the interface for API key storage operations
type KeyStore interface {
	ListAPIKeys(ctx context.Context) ([]APIKey, error)
	UpdateAPIKeyLastUsed(ctx context.Context, id string) error
}

// Authenticator handles authentication for API requests
type Authenticator struct {
	keyStore       KeyStore
	legacyAdminKey string // For backward compatibility
}

// NewAuthenticator creates a new Authenticator
func NewAuthenticator(keyStore KeyStore, legacyAdminKey string) *Authenticator {
	return &Authenticator{
		keyStore:       keyStore,
		legacyAdminKey: legacyAdminKey,
	}
}

// AuthResult contains the result of an authentication attempt
type AuthResult struct {
	Authenticated bool
	Role          Role
	APIKeyID      string
	Error         string
}

// Authenticate authenticates a request using the Authorization header
// It supports both legacy ADMIN_API_KEY and stored API keys
func (a *Authenticator) Authenticate(ctx context.Context, authHeader string) AuthResult {
	// Extract bearer token
	token := ExtractBearerToken(authHeader)
	if token == "" {
		return AuthResult{
			Authenticated: false,
			Error:         "missing bearer token",
		}
	}

	// First, try the configured bootstrap admin key
	if a.legacyAdminKey != "" && VerifyAPIKeyConstantTime(token, a.legacyAdminKey) {
		return AuthResult{
			Authenticated: true,
			Role:          RoleSuperadmin,
		}
	}

	// Only tokens shaped like minted keys can match a stored hash; anything
	// else fails without the bcrypt scan.
	if !HasKeyShape(token) {
		return AuthResult{
			Authenticated: false,
			Error:         "invalid token",
		}
	}

	// Try stored keys.
	// We need to check all enabled keys and verify each hash.
	// This is the only way with bcrypt since hashes are non-deterministic.
	// For better performance, consider implementing a cache layer.
	keys, err := a.keyStore.ListAPIKeys(ctx)
	if err != nil {
		return AuthResult{
			Authenticated: false,
			Error:         "authentication service unavailable",
		}
	}

	var apiKey *APIKey
	for i := range keys {
		if keys[i].Enabled && VerifyAPIKey(token, keys[i].KeyHash) {
			apiKey = &keys[i]
			break
		}
	}

	if apiKey == nil {
		return AuthResult{
			Authenticated: false,
			Error:         "invalid token",
		}
	}

	// Check if key is expired
	if apiKey.ExpiresAt != nil && time.Now().After(*apiKey.ExpiresAt) {
		return AuthResult{
			Authenticated: false,
			Error:         "api key expired",
		}
	}

	// Update last used timestamp (async, ignore errors)
	go func() {
		_ = a.keyStore.UpdateAPIKeyLastUsed(context.Background(), apiKey.ID)
	}()

	return AuthResult{
		Authenticated: true,
		Role:          apiKey.Role,
		APIKeyID:      apiKey.ID,
	}
}

// RequireAuth is a middleware that requires authentication
func (a *Authenticator) RequireAuth(requiredRole Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			result := a.Authenticate(r.Context(), authHeader)

			if !result.Authenticated {
				http.Error(w, result.Error, http.StatusUnauthorized)
				return
			}

			// Check if user has required permission
			if !HasPermission(result.Role, requiredRole) {
				http.Error(w, "insufficient permissions", http.StatusForbidden)
				return
			}

			// Add auth info to context
			ctx := context.WithValue(r.Context(), ContextKeyRole, result.Role)
			if result.APIKeyID != "" {
				ctx = context.WithValue(ctx, ContextKeyAPIKey, result.APIKeyID)
			}

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// GetRoleFromContext extracts the role from the request context
func GetRoleFromContext(ctx context.Context) (Role, bool) {
	role, ok := ctx.Value(ContextKeyRole).(Role)
	return role, ok
}

// GetAPIKeyIDFromContext extracts the API key ID from the request context
func GetAPIKeyIDFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(ContextKeyAPIKey).(string)
	return id, ok
}
