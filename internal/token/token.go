// Package token issues and verifies courier's dual tokens: short-lived access
// tokens and longer-lived refresh tokens, signed with two distinct keys so a
// compromise of one secret cannot forge the other class of token.
package token

import (
	"time"

	paseto "aidanwoods.dev/go-paseto"
)

// Kind selects which token class an operation applies to.
type Kind string

const (
	KindAccess  Kind = "access"
	KindRefresh Kind = "refresh"
)

// Claims is the minimal identity envelope carried by both token kinds.
type Claims struct {
	Subject   string
	ExpiresAt time.Time
	IssuedAt  time.Time
	Issuer    string
}

// Service signs and verifies PASETO v4.public tokens.
type Service struct {
	issuer     string
	accessTTL  time.Duration
	refreshTTL time.Duration
	clockSkew  time.Duration

	accessSecret  paseto.V4AsymmetricSecretKey
	accessPublic  paseto.V4AsymmetricPublicKey
	refreshSecret paseto.V4AsymmetricSecretKey
	refreshPublic paseto.V4AsymmetricPublicKey
}

// NewService builds a token Service from configuration.
// Access and refresh keys must be distinct; this is enforced here, not assumed.
func NewService(cfg Config) (*Service, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	accessSecret, err := paseto.NewV4AsymmetricSecretKeyFromHex(cfg.AccessSecretKeyHex)
	if err != nil {
		return nil, ErrConfig
	}
	refreshSecret, err := paseto.NewV4AsymmetricSecretKeyFromHex(cfg.RefreshSecretKeyHex)
	if err != nil {
		return nil, ErrConfig
	}
	if cfg.AccessSecretKeyHex == cfg.RefreshSecretKeyHex {
		return nil, ErrConfig
	}

	return &Service{
		issuer:        cfg.Issuer,
		accessTTL:     cfg.AccessTTL,
		refreshTTL:    cfg.RefreshTTL,
		clockSkew:     cfg.ClockSkew,
		accessSecret:  accessSecret,
		accessPublic:  accessSecret.Public(),
		refreshSecret: refreshSecret,
		refreshPublic: refreshSecret.Public(),
	}, nil
}

// IssueAccessToken signs {sub: identity, exp: now+accessTTL} with the access key.
func (s *Service) IssueAccessToken(identity string, now time.Time) (string, time.Time, error) {
	return s.issue(identity, now, s.accessTTL, s.accessSecret)
}

// IssueRefreshToken signs {sub: identity, exp: now+refreshTTL} with the refresh key.
func (s *Service) IssueRefreshToken(identity string, now time.Time) (string, time.Time, error) {
	return s.issue(identity, now, s.refreshTTL, s.refreshSecret)
}

func (s *Service) issue(identity string, now time.Time, ttl time.Duration, key paseto.V4AsymmetricSecretKey) (string, time.Time, error) {
	if identity == "" {
		return "", time.Time{}, ErrInvalidToken
	}
	if now.IsZero() {
		now = time.Now().UTC()
	}
	exp := now.Add(ttl)

	tok := paseto.NewToken()
	tok.SetIssuer(s.issuer)
	tok.SetIssuedAt(now)
	tok.SetNotBefore(now)
	tok.SetExpiration(exp)
	tok.SetSubject(identity)

	return tok.V4Sign(key, nil), exp, nil
}

// Verify checks a token of the given kind and returns its claims.
// Signature or structural failures map to ErrInvalidToken; a well-signed but
// stale token maps to ErrExpired so callers can tell the two apart in logs.
func (s *Service) Verify(tokenStr string, kind Kind, now time.Time) (Claims, error) {
	if now.IsZero() {
		now = time.Now().UTC()
	}

	var public paseto.V4AsymmetricPublicKey
	switch kind {
	case KindAccess:
		public = s.accessPublic
	case KindRefresh:
		public = s.refreshPublic
	default:
		return Claims{}, ErrInvalidToken
	}

	// The default parser rejects stale tokens before the claims are even
	// readable. Expiry is checked explicitly below instead, so the caller can
	// distinguish an expired token from a forged or malformed one.
	p := paseto.NewParserWithoutExpiryCheck()
	p.AddRule(paseto.IssuedBy(s.issuer))

	parsed, err := p.ParseV4Public(public, tokenStr, nil)
	if err != nil {
		return Claims{}, ErrInvalidToken
	}

	sub, err := parsed.GetSubject()
	if err != nil || sub == "" {
		return Claims{}, ErrInvalidToken
	}
	exp, err := parsed.GetExpiration()
	if err != nil {
		return Claims{}, ErrInvalidToken
	}
	iat, _ := parsed.GetIssuedAt()
	iss, _ := parsed.GetIssuer()

	// Clock-skew tolerance on the expiry edge only.
	if !exp.After(now.Add(-s.clockSkew)) {
		return Claims{}, ErrExpired
	}

	return Claims{
		Subject:   sub,
		ExpiresAt: exp,
		IssuedAt:  iat,
		Issuer:    iss,
	}, nil
}

// VerifyAccess checks an access token and returns its subject identity.
func (s *Service) VerifyAccess(tokenStr string, now time.Time) (string, error) {
	claims, err := s.Verify(tokenStr, KindAccess, now)
	if err != nil {
		return "", err
	}
	return claims.Subject, nil
}

// Rotate verifies a refresh token and mints a fresh access token for the same
// subject. It does not issue a new refresh token; rotation is access-only in
// this design and the presented refresh token stays valid until its expiry.
func (s *Service) Rotate(refreshToken string, now time.Time) (string, time.Time, error) {
	claims, err := s.Verify(refreshToken, KindRefresh, now)
	if err != nil {
		return "", time.Time{}, err
	}
	return s.IssueAccessToken(claims.Subject, now)
}
