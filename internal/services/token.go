package services

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/clearlane/inspection-backend/internal/logger"
	"github.com/clearlane/inspection-backend/internal/types"
)

// DefaultTokenTTL is the fixed validity window for upload tokens.
const DefaultTokenTTL = 48 * time.Hour

const tokenByteLen = 32

type TokenService interface {
	// Issue generates a fresh upload credential. The plaintext token is
	// returned exactly once and never persisted; only its bcrypt hash is.
	Issue() (token string, tokenHash string, expiry time.Time, err error)

	// Validate checks a presented token against the inspection's stored hash
	// and expiry. It is side-effect-free: tokens are reusable until expiry so
	// a seller can submit a whole photo session against one link.
	Validate(inspection *types.Inspection, presented string) error
}

type tokenService struct {
	log *logger.Logger
	ttl time.Duration
	now func() time.Time
}

func NewTokenService(baseLog *logger.Logger, ttl time.Duration) TokenService {
	serviceLog := baseLog.With("service", "TokenService")
	if ttl <= 0 {
		ttl = DefaultTokenTTL
	}
	return &tokenService{log: serviceLog, ttl: ttl, now: time.Now}
}

func (ts *tokenService) Issue() (string, string, time.Time, error) {
	raw := make([]byte, tokenByteLen)
	if _, err := rand.Read(raw); err != nil {
		return "", "", time.Time{}, fmt.Errorf("failed to generate token: %w", err)
	}
	token := base64.RawURLEncoding.EncodeToString(raw)

	// bcrypt salts per token, so two inspections never share a hash even for
	// a (never-occurring) colliding plaintext.
	hash, err := bcrypt.GenerateFromPassword([]byte(token), bcrypt.DefaultCost)
	if err != nil {
		return "", "", time.Time{}, fmt.Errorf("failed to hash token: %w", err)
	}

	expiry := ts.now().Add(ts.ttl).UTC()
	return token, string(hash), expiry, nil
}

func (ts *tokenService) Validate(inspection *types.Inspection, presented string) error {
	// Fail closed: absence, mismatch and expiry all reject.
	if inspection == nil {
		return ErrNotFound
	}
	if inspection.TokenHash == "" || presented == "" {
		return ErrInvalidToken
	}
	if ts.now().After(inspection.TokenExpiresAt) {
		return ErrTokenExpired
	}
	if err := bcrypt.CompareHashAndPassword([]byte(inspection.TokenHash), []byte(presented)); err != nil {
		return ErrInvalidToken
	}
	return nil
}
