package auth

import (
	"context"
	"strings"
	"testing"
)

func TestGenerateAPIKey_MintedShape(t *testing.T) {
	key, err := GenerateAPIKey()
	if err != nil {
		t.Fatalf("GenerateAPIKey() error = %v", err)
	}

	if !strings.HasPrefix(key, KeyPrefix) {
		t.Errorf("GenerateAPIKey() = %v, want prefix %v", key, KeyPrefix)
	}

	// fmk_ + base64url of 32 bytes without padding -> 43 characters
	expectedLen := len(KeyPrefix) + 43
	if len(key) != expectedLen {
		t.Errorf("GenerateAPIKey() length = %v, want %v", len(key), expectedLen)
	}

	if !HasKeyShape(key) {
		t.Errorf("minted key %v must satisfy HasKeyShape", key)
	}
}

func TestHasKeyShape(t *testing.T) {
	tests := []struct {
		name  string
		token string
		want  bool
	}{
		{"minted key", "fmk_abc123def456", true},
		{"bare prefix", "fmk_", false},
		{"bootstrap admin key", "admin-123", false},
		{"foreign prefix", "sk_live_abc123", false},
		{"empty", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := HasKeyShape(tt.token); got != tt.want {
				t.Errorf("HasKeyShape(%q) = %v, want %v", tt.token, got, tt.want)
			}
		})
	}
}

func TestHashAndVerifyMintedKey(t *testing.T) {
	key, err := GenerateAPIKey()
	if err != nil {
		t.Fatalf("GenerateAPIKey() error = %v", err)
	}

	hash, err := HashAPIKey(key)
	if err != nil {
		t.Fatalf("HashAPIKey() error = %v", err)
	}

	if !VerifyAPIKey(key, hash) {
		t.Error("VerifyAPIKey() failed for the key that was hashed")
	}

	other, _ := GenerateAPIKey()
	if VerifyAPIKey(other, hash) {
		t.Error("VerifyAPIKey() succeeded for a different minted key")
	}
}

func TestVerifyAPIKeyConstantTime(t *testing.T) {
	tests := []struct {
		name     string
		got      string
		expected string
		want     bool
	}{
		{"equal", "admin-123", "admin-123", true},
		{"not equal", "admin-456", "admin-123", false},
		{"empty got", "", "admin-123", false},
		{"empty expected", "admin-123", "", false},
		{"both empty", "", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := VerifyAPIKeyConstantTime(tt.got, tt.expected); got != tt.want {
				t.Errorf("VerifyAPIKeyConstantTime() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestExtractBearerToken(t *testing.T) {
	tests := []struct {
		name       string
		authHeader string
		want       string
	}{
		{"with Bearer prefix", "Bearer fmk_token123", "fmk_token123"},
		{"with bearer lowercase", "bearer fmk_token456", "fmk_token456"},
		{"with extra spaces", "Bearer  fmk_token789  ", "fmk_token789"},
		{"without Bearer prefix", "fmk_token999", "fmk_token999"},
		{"empty", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ExtractBearerToken(tt.authHeader); got != tt.want {
				t.Errorf("ExtractBearerToken() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestValidateRole(t *testing.T) {
	tests := []struct {
		name string
		role string
		want bool
	}{
		{"readonly", "readonly", true},
		{"admin", "admin", true},
		{"superadmin", "superadmin", true},
		{"invalid", "invalid", false},
		{"empty", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ValidateRole(tt.role); got != tt.want {
				t.Errorf("ValidateRole() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestHasPermission_RoleOrdering(t *testing.T) {
	tests := []struct {
		name         string
		userRole     Role
		requiredRole Role
		want         bool
	}{
		{"superadmin manages keys", RoleSuperadmin, RoleSuperadmin, true},
		{"superadmin writes forms", RoleSuperadmin, RoleAdmin, true},
		{"superadmin reads forms", RoleSuperadmin, RoleReadonly, true},
		{"admin writes forms", RoleAdmin, RoleAdmin, true},
		{"admin reads forms", RoleAdmin, RoleReadonly, true},
		{"admin cannot manage keys", RoleAdmin, RoleSuperadmin, false},
		{"readonly reads forms", RoleReadonly, RoleReadonly, true},
		{"readonly cannot write forms", RoleReadonly, RoleAdmin, false},
		{"readonly cannot manage keys", RoleReadonly, RoleSuperadmin, false},
		{"unknown role has no rank", Role("owner"), RoleReadonly, false},
		{"unknown requirement never passes", RoleSuperadmin, Role("owner"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := HasPermission(tt.userRole, tt.requiredRole); got != tt.want {
				t.Errorf("HasPermission() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestAuthenticate_TokenPaths(t *testing.T) {
	ctx := context.Background()
	ks := NewMemoryKeyStore()

	stored, plain, err := ks.CreateAPIKey(ctx, "ci-pipeline", RoleAdmin, nil)
	if err != nil {
		t.Fatalf("CreateAPIKey() error = %v", err)
	}

	a := NewAuthenticator(ks, "bootstrap-key")

	t.Run("bootstrap admin key", func(t *testing.T) {
		res := a.Authenticate(ctx, "Bearer bootstrap-key")
		if !res.Authenticated || res.Role != RoleSuperadmin {
			t.Fatalf("bootstrap key must authenticate as superadmin, got %+v", res)
		}
	})

	t.Run("minted key", func(t *testing.T) {
		res := a.Authenticate(ctx, "Bearer "+plain)
		if !res.Authenticated || res.Role != RoleAdmin || res.APIKeyID != stored.ID {
			t.Fatalf("minted key must authenticate with its stored role, got %+v", res)
		}
	})

	t.Run("token without key shape skips stored keys", func(t *testing.T) {
		res := a.Authenticate(ctx, "Bearer not-a-formship-key")
		if res.Authenticated {
			t.Fatal("unshaped token must not authenticate")
		}
		if res.Error != "invalid token" {
			t.Fatalf("expected invalid token error, got %q", res.Error)
		}
	})

	t.Run("revoked key", func(t *testing.T) {
		if err := ks.RevokeAPIKey(ctx, stored.ID); err != nil {
			t.Fatalf("RevokeAPIKey() error = %v", err)
		}
		if res := a.Authenticate(ctx, "Bearer "+plain); res.Authenticated {
			t.Fatal("revoked key must not authenticate")
		}
	})
}
