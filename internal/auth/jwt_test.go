package auth

import (
	"testing"
	"time"
)

func TestGenerateAndParseToken(t *testing.T) {
	// Initialize JWT secret
	InitJWT("test-secret-key")

	uid := 1
	email := "operator@acme-trade.example"
	roles := []string{"Member"}
	expireAt := time.Now().Add(24 * time.Hour)
	issuer := "ctn_registry"

	// Generate token
	token, err := GenerateToken(uid, email, roles, expireAt, issuer)
	if err != nil {
		t.Fatalf("GenerateToken() failed: %v", err)
	}

	if token == "" {
		t.Error("Expected non-empty token")
	}

	// Parse token
	claims, err := ParseToken(token)
	if err != nil {
		t.Fatalf("ParseToken() failed: %v", err)
	}

	// Verify claims
	if claims.UID != uid {
		t.Errorf("Expected UID %d, got %d", uid, claims.UID)
	}

	if claims.Email != email {
		t.Errorf("Expected email %s, got %s", email, claims.Email)
	}

	if len(claims.Roles) != 1 || claims.Roles[0] != "Member" {
		t.Errorf("Expected roles [Member], got %v", claims.Roles)
	}

	if claims.Issuer != issuer {
		t.Errorf("Expected issuer %s, got %s", issuer, claims.Issuer)
	}
}

func TestParseToken_InvalidToken(t *testing.T) {
	InitJWT("test-secret-key")

	// Test with invalid token
	_, err := ParseToken("invalid.token.string")
	if err == nil {
		t.Error("ParseToken() should fail for invalid token")
	}
}

func TestParseToken_Expired(t *testing.T) {
	InitJWT("test-secret-key")

	token, err := GenerateToken(1, "x@example.com", []string{"Member"}, time.Now().Add(-time.Hour), "ctn_registry")
	if err != nil {
		t.Fatalf("GenerateToken() failed: %v", err)
	}

	if _, err := ParseToken(token); err == nil {
		t.Error("ParseToken() should fail for expired token")
	}
}

func TestParseToken_WrongSecret(t *testing.T) {
	InitJWT("secret-a")
	token, err := GenerateToken(1, "x@example.com", []string{"Member"}, time.Now().Add(time.Hour), "ctn_registry")
	if err != nil {
		t.Fatalf("GenerateToken() failed: %v", err)
	}

	InitJWT("secret-b")
	if _, err := ParseToken(token); err == nil {
		t.Error("ParseToken() should fail when secret changed")
	}
}
