package auth

import (
	"strings"
	"testing"
)

// cost 4 is bcrypt's minimum — fast enough for tests.
func testPasswords() *PasswordService {
	return NewPasswordServiceForTest(4)
}

func TestPasswordHashAndVerify(t *testing.T) {
	ps := testPasswords()

	hash, err := ps.Hash("correct horse battery staple")
	if err != nil {
		t.Fatalf("Hash() error = %v", err)
	}
	if hash == "correct horse battery staple" {
		t.Fatal("Hash() returned the plaintext")
	}

	if err := ps.Verify(hash, "correct horse battery staple"); err != nil {
		t.Errorf("Verify() with correct password error = %v", err)
	}
	if err := ps.Verify(hash, "wrong password"); err == nil {
		t.Error("Verify() with wrong password should fail")
	}
}

func TestPasswordHash_UniqueSalts(t *testing.T) {
	ps := testPasswords()

	h1, err := ps.Hash("same password")
	if err != nil {
		t.Fatalf("Hash() error = %v", err)
	}
	h2, err := ps.Hash("same password")
	if err != nil {
		t.Fatalf("Hash() error = %v", err)
	}
	if h1 == h2 {
		t.Error("two hashes of the same password should differ (random salt)")
	}
}

func TestPasswordHash_RejectsOverlongPassword(t *testing.T) {
	ps := testPasswords()

	if _, err := ps.Hash(strings.Repeat("x", 73)); err == nil {
		t.Fatal("Hash() should reject passwords over 72 bytes")
	}
}
