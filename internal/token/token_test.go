package token

import (
	"errors"
	"testing"
	"time"

	paseto "aidanwoods.dev/go-paseto"
)

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.AccessSecretKeyHex = paseto.NewV4AsymmetricSecretKey().ExportHex()
	cfg.RefreshSecretKeyHex = paseto.NewV4AsymmetricSecretKey().ExportHex()
	return cfg
}

func TestIssueAndVerify_RoundTrip(t *testing.T) {
	svc, err := NewService(testConfig())
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}

	now := time.Now().UTC()
	tok, exp, err := svc.IssueAccessToken("01HZZZZZZZZZZZZZZZZZZZZZZZ", now)
	if err != nil {
		t.Fatalf("IssueAccessToken: %v", err)
	}
	if !exp.After(now) {
		t.Fatalf("expected exp after now")
	}

	claims, err := svc.Verify(tok, KindAccess, now.Add(time.Second))
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if claims.Subject != "01HZZZZZZZZZZZZZZZZZZZZZZZ" {
		t.Fatalf("unexpected subject: %q", claims.Subject)
	}
}

func TestVerify_WrongKindFails(t *testing.T) {
	svc, err := NewService(testConfig())
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}

	now := time.Now().UTC()
	access, _, err := svc.IssueAccessToken("user-1", now)
	if err != nil {
		t.Fatalf("IssueAccessToken: %v", err)
	}

	// Signed with the access key, so the refresh public key must reject it.
	if _, err := svc.Verify(access, KindRefresh, now); err != ErrInvalidToken {
		t.Fatalf("expected ErrInvalidToken, got %v", err)
	}

	refresh, _, err := svc.IssueRefreshToken("user-1", now)
	if err != nil {
		t.Fatalf("IssueRefreshToken: %v", err)
	}
	if _, err := svc.Verify(refresh, KindAccess, now); err != ErrInvalidToken {
		t.Fatalf("expected ErrInvalidToken, got %v", err)
	}
}

func TestVerify_Expired(t *testing.T) {
	svc, err := NewService(testConfig())
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}

	now := time.Now().UTC()
	tok, _, err := svc.IssueAccessToken("user-1", now)
	if err != nil {
		t.Fatalf("IssueAccessToken: %v", err)
	}

	late := now.Add(time.Hour + time.Minute)
	if _, err := svc.Verify(tok, KindAccess, late); err != ErrExpired {
		t.Fatalf("expected ErrExpired, got %v", err)
	}
}

func TestVerify_StaleTokenIsExpiredNotInvalid(t *testing.T) {
	svc, err := NewService(testConfig())
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}

	// Issued three hours ago, so it is stale by wall-clock time too. The
	// verdict must still be ErrExpired: the signature is good, only the
	// lifetime ran out.
	issued := time.Now().UTC().Add(-3 * time.Hour)
	tok, _, err := svc.IssueAccessToken("user-1", issued)
	if err != nil {
		t.Fatalf("IssueAccessToken: %v", err)
	}

	_, err = svc.Verify(tok, KindAccess, time.Now().UTC())
	if !errors.Is(err, ErrExpired) {
		t.Fatalf("expected ErrExpired, got %v", err)
	}
}

func TestVerify_Malformed(t *testing.T) {
	svc, err := NewService(testConfig())
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}

	if _, err := svc.Verify("v4.public.garbage", KindAccess, time.Now().UTC()); err != ErrInvalidToken {
		t.Fatalf("expected ErrInvalidToken, got %v", err)
	}
}

func TestRotate_PreservesSubject(t *testing.T) {
	svc, err := NewService(testConfig())
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}

	now := time.Now().UTC()
	refresh, _, err := svc.IssueRefreshToken("user-42", now)
	if err != nil {
		t.Fatalf("IssueRefreshToken: %v", err)
	}

	access, _, err := svc.Rotate(refresh, now.Add(time.Minute))
	if err != nil {
		t.Fatalf("Rotate: %v", err)
	}

	claims, err := svc.Verify(access, KindAccess, now.Add(2*time.Minute))
	if err != nil {
		t.Fatalf("Verify rotated access: %v", err)
	}
	if claims.Subject != "user-42" {
		t.Fatalf("unexpected subject: %q", claims.Subject)
	}
}

func TestRotate_RejectsAccessToken(t *testing.T) {
	svc, err := NewService(testConfig())
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}

	now := time.Now().UTC()
	access, _, err := svc.IssueAccessToken("user-1", now)
	if err != nil {
		t.Fatalf("IssueAccessToken: %v", err)
	}
	if _, _, err := svc.Rotate(access, now); err != ErrInvalidToken {
		t.Fatalf("expected ErrInvalidToken, got %v", err)
	}
}

func TestNewService_RejectsSharedKey(t *testing.T) {
	cfg := DefaultConfig()
	key := paseto.NewV4AsymmetricSecretKey().ExportHex()
	cfg.AccessSecretKeyHex = key
	cfg.RefreshSecretKeyHex = key

	if _, err := NewService(cfg); err != ErrConfig {
		t.Fatalf("expected ErrConfig, got %v", err)
	}
}
