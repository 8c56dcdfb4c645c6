package transport

import (
	"context"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/jonwraymond/reqcache/method"
)

// TokenSource supplies the bearer token for a request.
type TokenSource interface {
	Token(ctx context.Context, m *method.Method) (string, error)
}

// JWTConfig configures a JWTSigner.
type JWTConfig struct {
	// Key is the HMAC signing key. Required.
	Key []byte

	// Issuer is the iss claim.
	Issuer string

	// Subject is the sub claim. Default: the method's owner id.
	Subject string

	// Audience is the aud claim.
	Audience string

	// TTL is the token lifetime.
	// Default: 5 minutes
	TTL time.Duration
}

// JWTSigner issues short-lived HS256 tokens per request.
type JWTSigner struct {
	config JWTConfig
	now    func() time.Time
}

// NewJWTSigner creates a signer.
func NewJWTSigner(config JWTConfig) (*JWTSigner, error) {
	if len(config.Key) == 0 {
		return nil, ErrMissingSigningKey
	}
	if config.TTL <= 0 {
		config.TTL = 5 * time.Minute
	}
	return &JWTSigner{config: config, now: time.Now}, nil
}

// Token signs a token for m.
func (s *JWTSigner) Token(_ context.Context, m *method.Method) (string, error) {
	now := s.now()
	claims := jwt.RegisteredClaims{
		Issuer:    s.config.Issuer,
		Subject:   s.config.Subject,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(s.config.TTL)),
	}
	if claims.Subject == "" && m != nil {
		claims.Subject = m.OwnerID
	}
	if s.config.Audience != "" {
		claims.Audience = jwt.ClaimStrings{s.config.Audience}
	}

	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.config.Key)
}

var _ TokenSource = (*JWTSigner)(nil)
