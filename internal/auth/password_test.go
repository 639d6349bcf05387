package auth

import (
	"testing"
)

func TestValidatePassword(t *testing.T) {
	if err := ValidatePassword("short"); err == nil {
		t.Error("ValidatePassword() should reject passwords below the minimum length")
	}

	if err := ValidatePassword("long-enough-password"); err != nil {
		t.Errorf("ValidatePassword() rejected a valid password: %v", err)
	}
}

func TestHashAndComparePassword(t *testing.T) {
	plain := "registry-portal-pass"

	hash, err := HashPassword(plain)
	if err != nil {
		t.Fatalf("HashPassword() failed: %v", err)
	}
	if hash == "" || hash == plain {
		t.Fatal("Expected a non-empty hash distinct from the plain text")
	}

	if err := ComparePassword(hash, plain); err != nil {
		t.Errorf("ComparePassword() failed for correct password: %v", err)
	}
	if err := ComparePassword(hash, "wrong-password"); err == nil {
		t.Error("ComparePassword() should fail for wrong password")
	}
}

func TestHashPassword_Salted(t *testing.T) {
	plain := "registry-portal-pass"

	hash1, _ := HashPassword(plain)
	hash2, _ := HashPassword(plain)

	// Bcrypt salts, so equal inputs never hash equal
	if hash1 == hash2 {
		t.Error("Expected different hashes for the same password")
	}
	if err := ComparePassword(hash2, plain); err != nil {
		t.Error("Second hash should validate")
	}
}
