package identity

import "testing"

func TestHashAndVerify_OK(t *testing.T) {
	h, err := HashPassword("this is a strong password 123!", DefaultArgon2idParams())
	if err != nil {
		t.Fatalf("HashPassword: %v", err)
	}

	ok, err := VerifyPassword("this is a strong password 123!", h)
	if err != nil {
		t.Fatalf("VerifyPassword: %v", err)
	}
	if !ok {
		t.Fatalf("expected match")
	}
}

func TestVerify_WrongPassword(t *testing.T) {
	h, err := HashPassword("this is a strong password 123!", DefaultArgon2idParams())
	if err != nil {
		t.Fatalf("HashPassword: %v", err)
	}

	ok, err := VerifyPassword("wrong password", h)
	if err != nil {
		t.Fatalf("VerifyPassword: %v", err)
	}
	if ok {
		t.Fatalf("expected mismatch")
	}
}

func TestHash_ShortPassword(t *testing.T) {
	// No lower length bound: a three-character password hashes and verifies.
	h, err := HashPassword("pw1", DefaultArgon2idParams())
	if err != nil {
		t.Fatalf("HashPassword: %v", err)
	}
	ok, err := VerifyPassword("pw1", h)
	if err != nil {
		t.Fatalf("VerifyPassword: %v", err)
	}
	if !ok {
		t.Fatalf("expected match")
	}
}

func TestHash_TooLong(t *testing.T) {
	long := make([]byte, maxPasswordLen+1)
	for i := range long {
		long[i] = 'a'
	}
	if _, err := HashPassword(string(long), DefaultArgon2idParams()); err != ErrPasswordTooLong {
		t.Fatalf("expected ErrPasswordTooLong, got %v", err)
	}
}

func TestVerify_InvalidHash(t *testing.T) {
	ok, err := VerifyPassword("whatever", "not-a-hash")
	if err != ErrInvalidHash {
		t.Fatalf("expected ErrInvalidHash, got %v", err)
	}
	if ok {
		t.Fatalf("expected no match")
	}
}
