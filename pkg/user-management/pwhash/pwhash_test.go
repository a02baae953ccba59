package pwhash

import (
	"strings"
	"testing"
)

func TestHashAndComparePassword(t *testing.T) {
	hash, err := HashPassword("s3cretPassw0rd!")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.HasPrefix(hash, "$argon2id$") {
		t.Errorf("unexpected hash format: %s", hash)
	}

	t.Run("with matching password", func(t *testing.T) {
		match, err := ComparePasswordWithHash(hash, "s3cretPassw0rd!")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !match {
			t.Error("should match")
		}
	})

	t.Run("with wrong password", func(t *testing.T) {
		match, err := ComparePasswordWithHash(hash, "s3cretPassw0rd?")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if match {
			t.Error("should not match")
		}
	})

	t.Run("same password hashes differently", func(t *testing.T) {
		hash2, err := HashPassword("s3cretPassw0rd!")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if hash == hash2 {
			t.Error("salts should differ")
		}
	})
}

func TestComparePasswordWithBadHash(t *testing.T) {
	if _, err := ComparePasswordWithHash("not-a-hash", "pw"); err == nil {
		t.Error("expected error for malformed hash")
	}

	if _, err := ComparePasswordWithHash("$bcrypt$v=19$m=65536,t=4,p=2$c2FsdA$aGFzaA", "pw"); err == nil {
		t.Error("expected error for wrong algorithm")
	}
}
