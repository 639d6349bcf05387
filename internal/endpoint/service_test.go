package endpoint

import (
	"encoding/hex"
	"testing"
)

func TestNewChallenge(t *testing.T) {
	c1, err := newChallenge()
	if err != nil {
		t.Fatalf("newChallenge() error: %v", err)
	}
	if len(c1) != 64 {
		t.Errorf("Expected 64 hex characters, got %d", len(c1))
	}
	if _, err := hex.DecodeString(c1); err != nil {
		t.Errorf("Challenge is not valid hex: %v", err)
	}

	c2, err := newChallenge()
	if err != nil {
		t.Fatalf("newChallenge() error: %v", err)
	}
	if c1 == c2 {
		t.Error("Consecutive challenges must not repeat")
	}
}
