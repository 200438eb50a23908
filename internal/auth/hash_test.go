// ABOUTME: Tests for argon2id password hashing and verification.
// ABOUTME: Covers correct password, wrong password, salt uniqueness, garbage hashes.
package auth_test

import (
	"testing"

	"github.com/healertrix/taskmaster/internal/auth"
)

func TestHashAndVerifyPassword(t *testing.T) {
	t.Parallel()
	hash, err := auth.HashPassword("correct-horse-battery-staple")
	if err != nil {
		t.Fatalf("hash: %v", err)
	}

	ok, err := auth.VerifyPassword("correct-horse-battery-staple", hash)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if !ok {
		t.Error("correct password should verify")
	}

	ok, err = auth.VerifyPassword("not-the-password", hash)
	if err != nil {
		t.Fatalf("verify wrong: %v", err)
	}
	if ok {
		t.Error("wrong password should not verify")
	}
}

func TestHashPasswordUniqueSalts(t *testing.T) {
	t.Parallel()
	h1, err := auth.HashPassword("same-password")
	if err != nil {
		t.Fatalf("hash1: %v", err)
	}
	h2, err := auth.HashPassword("same-password")
	if err != nil {
		t.Fatalf("hash2: %v", err)
	}
	if h1 == h2 {
		t.Error("two hashes of the same password should differ (different salts)")
	}
}

func TestVerifyPasswordMalformedHash(t *testing.T) {
	t.Parallel()
	if _, err := auth.VerifyPassword("anything", "not-a-phc-hash"); err == nil {
		t.Error("malformed hash should error")
	}
	if _, err := auth.VerifyPassword("anything", "$bcrypt$whatever$x$y$z"); err == nil {
		t.Error("non-argon2id hash should error")
	}
}
