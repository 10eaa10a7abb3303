package auth

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"fmt"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

const (
	// KeyPrefix marks formship-issued API keys. Tokens without it never hit
	// the stored-key verification path.
	KeyPrefix = "fmk_"
	// KeyLength is the length of the random part of the key (32 bytes = 256 bits)
	KeyLength = 32
	// BCryptCost is the cost factor for bcrypt hashing
	BCryptCost = 12
)

// Role represents the access level of an API key
type Role string

const (
	RoleReadonly   Role = "readonly"
	RoleAdmin      Role = "admin"
	RoleSuperadmin Role = "superadmin"
)

// roleRank orders roles by capability. A key may act at or below its rank:
// readonly reads forms and responses, admin additionally writes them,
// superadmin additionally manages keys.
var roleRank = map[Role]int{
	RoleReadonly:   1,
	RoleAdmin:      2,
	RoleSuperadmin: 3,
}

// GenerateAPIKey mints a new formship API key: the fmk_ prefix followed by
// 256 bits of randomness, base64url-encoded without padding.
func GenerateAPIKey() (string, error) {
	randomBytes := make([]byte, KeyLength)
	if _, err := rand.Read(randomBytes); err != nil {
		return "", fmt.Errorf("failed to generate random bytes: %w", err)
	}
	return KeyPrefix + base64.RawURLEncoding.EncodeToString(randomBytes), nil
}

// HasKeyShape reports whether a presented token even looks like a formship
// API key. Used to skip the bcrypt scan over stored keys for tokens that
// cannot possibly match one.
func HasKeyShape(token string) bool {
	return strings.HasPrefix(token, KeyPrefix) && len(token) > len(KeyPrefix)
}

// HashAPIKey hashes an API key using bcrypt
func HashAPIKey(key string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(key), BCryptCost)
	if err != nil {
		return "", fmt.Errorf("failed to hash key: %w", err)
	}
	return string(hash), nil
}

// VerifyAPIKey verifies an API key against its stored bcrypt hash
func VerifyAPIKey(key, hash string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(key))
	return err == nil
}

// VerifyAPIKeyConstantTime compares a presented token against a plain
// configured key in constant time. Used for the bootstrap ADMIN_API_KEY,
// which is configured rather than minted.
func VerifyAPIKeyConstantTime(got, expected string) bool {
	return subtle.ConstantTimeCompare([]byte(got), []byte(expected)) == 1
}

// ExtractBearerToken extracts the bearer token from an Authorization header
func ExtractBearerToken(authHeader string) string {
	// Remove "Bearer " prefix (case-insensitive)
	token := strings.TrimSpace(authHeader)
	if strings.HasPrefix(strings.ToLower(token), "bearer ") {
		token = strings.TrimSpace(token[7:])
	}
	return token
}

// ValidateRole checks if a given role string is valid
func ValidateRole(role string) bool {
	_, ok := roleRank[Role(role)]
	return ok
}

// HasPermission reports whether a key's role covers the required role.
func HasPermission(userRole Role, requiredRole Role) bool {
	ur, ok := roleRank[userRole]
	rr, okReq := roleRank[requiredRole]
	return ok && okReq && ur >= rr
}
