package auth_test

import (
	"errors"
	"testing"

	"github.com/dalemusser/clubhub/internal/app/system/auth"
)

func TestHashPassword_RoundTrip(t *testing.T) {
	hash, err := auth.HashPassword("s3cret-pass")
	if err != nil {
		t.Fatalf("HashPassword failed: %v", err)
	}
	if hash == "s3cret-pass" {
		t.Fatal("hash equals plaintext")
	}
	if err := auth.CheckPassword(hash, "s3cret-pass"); err != nil {
		t.Errorf("CheckPassword(correct) = %v, want nil", err)
	}
	if err := auth.CheckPassword(hash, "wrong"); !errors.Is(err, auth.ErrPasswordMismatch) {
		t.Errorf("CheckPassword(wrong) = %v, want ErrPasswordMismatch", err)
	}
}

func TestHashPassword_Salted(t *testing.T) {
	a, _ := auth.HashPassword("same")
	b, _ := auth.HashPassword("same")
	if a == b {
		t.Error("two hashes of the same password are identical")
	}
}

func TestCheckPassword_MalformedHash(t *testing.T) {
	err := auth.CheckPassword("not-a-bcrypt-hash", "anything")
	if err == nil {
		t.Fatal("expected error for malformed hash")
	}
	if errors.Is(err, auth.ErrPasswordMismatch) {
		t.Error("malformed hash reported as a plain mismatch")
	}
}
