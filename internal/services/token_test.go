package services

import (
	"errors"
	"testing"
	"time"

	"github.com/clearlane/inspection-backend/internal/types"
)

func TestTokenIssueAndValidate(t *testing.T) {
	ts := NewTokenService(testLog(t), DefaultTokenTTL).(*tokenService)

	issuedAt := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	ts.now = func() time.Time { return issuedAt }

	token, hash, expiry, err := ts.Issue()
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	if token == "" || hash == "" {
		t.Fatalf("Issue: empty token or hash")
	}
	if token == hash {
		t.Fatalf("Issue: plaintext equals stored hash")
	}
	if want := issuedAt.Add(48 * time.Hour); !expiry.Equal(want) {
		t.Fatalf("Issue: expiry = %v, want %v", expiry, want)
	}

	inspection := &types.Inspection{TokenHash: hash, TokenExpiresAt: expiry}

	if err := ts.Validate(inspection, token); err != nil {
		t.Fatalf("Validate: %v", err)
	}
	// Tokens stay valid until expiry so one link covers a whole photo session.
	if err := ts.Validate(inspection, token); err != nil {
		t.Fatalf("Validate (reuse): %v", err)
	}
}

func TestTokenValidateFailsClosed(t *testing.T) {
	ts := NewTokenService(testLog(t), DefaultTokenTTL).(*tokenService)
	token, hash, expiry, err := ts.Issue()
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	inspection := &types.Inspection{TokenHash: hash, TokenExpiresAt: expiry}

	if err := ts.Validate(nil, token); !errors.Is(err, ErrNotFound) {
		t.Fatalf("nil inspection: got %v, want ErrNotFound", err)
	}
	if err := ts.Validate(inspection, ""); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("empty token: got %v, want ErrInvalidToken", err)
	}
	if err := ts.Validate(&types.Inspection{TokenExpiresAt: expiry}, token); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("missing hash: got %v, want ErrInvalidToken", err)
	}
	if err := ts.Validate(inspection, "not-the-token"); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("wrong token: got %v, want ErrInvalidToken", err)
	}
}

func TestTokenValidateExpiry(t *testing.T) {
	ts := NewTokenService(testLog(t), DefaultTokenTTL).(*tokenService)
	token, hash, expiry, err := ts.Issue()
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	inspection := &types.Inspection{TokenHash: hash, TokenExpiresAt: expiry}

	ts.now = func() time.Time { return expiry.Add(time.Second) }
	if err := ts.Validate(inspection, token); !errors.Is(err, ErrTokenExpired) {
		t.Fatalf("expired: got %v, want ErrTokenExpired", err)
	}
	// Expiry wins over hash correctness.
	if err := ts.Validate(inspection, "not-the-token"); !errors.Is(err, ErrTokenExpired) {
		t.Fatalf("expired with wrong token: got %v, want ErrTokenExpired", err)
	}

	ts.now = func() time.Time { return expiry }
	if err := ts.Validate(inspection, token); err != nil {
		t.Fatalf("at expiry instant: got %v, want success", err)
	}
}
