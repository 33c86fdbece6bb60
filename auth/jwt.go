package auth

import (
	"context"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// JWTConfig configures self-signed bearer tokens.
type JWTConfig struct {
	// Method is the signing method.
	// Default: jwt.SigningMethodHS256
	Method jwt.SigningMethod

	// Key is the signing key: []byte for HMAC, *rsa.PrivateKey for RS*,
	// *ecdsa.PrivateKey for ES*.
	Key any

	// KeyID is placed in the "kid" header when set.
	KeyID string

	// Issuer, Subject and Audience fill the registered claims.
	Issuer   string
	Subject  string
	Audience []string

	// TTL is the token lifetime.
	// Default: 5 minutes
	TTL time.Duration

	// Claims are extra claims. Registered claims set above take precedence.
	Claims map[string]any
}

// JWTSigner mints a new signed token on every call.
type JWTSigner struct {
	config JWTConfig
	now    func() time.Time
}

// NewJWTSigner validates config and creates a signer.
func NewJWTSigner(config JWTConfig) (*JWTSigner, error) {
	if config.Key == nil {
		return nil, ErrNoSigningKey
	}
	if b, ok := config.Key.([]byte); ok && len(b) == 0 {
		return nil, ErrNoSigningKey
	}
	if config.Method == nil {
		config.Method = jwt.SigningMethodHS256
	}
	if config.TTL <= 0 {
		config.TTL = 5 * time.Minute
	}
	return &JWTSigner{config: config, now: time.Now}, nil
}

// Token signs a token valid from now for TTL. Each token carries a
// random "jti".
func (s *JWTSigner) Token(_ context.Context) (*Token, error) {
	now := s.now()
	expiresAt := now.Add(s.config.TTL)

	claims := jwt.MapClaims{}
	for k, v := range s.config.Claims {
		claims[k] = v
	}
	claims["iat"] = jwt.NewNumericDate(now)
	claims["nbf"] = jwt.NewNumericDate(now)
	claims["exp"] = jwt.NewNumericDate(expiresAt)
	claims["jti"] = uuid.NewString()
	if s.config.Issuer != "" {
		claims["iss"] = s.config.Issuer
	}
	if s.config.Subject != "" {
		claims["sub"] = s.config.Subject
	}
	if len(s.config.Audience) > 0 {
		claims["aud"] = jwt.ClaimStrings(s.config.Audience)
	}

	token := jwt.NewWithClaims(s.config.Method, claims)
	if s.config.KeyID != "" {
		token.Header["kid"] = s.config.KeyID
	}

	signed, err := token.SignedString(s.config.Key)
	if err != nil {
		return nil, fmt.Errorf("auth: sign token: %w", err)
	}

	// Round down so Fresh never outlives the exp claim.
	return &Token{Value: signed, ExpiresAt: expiresAt.Truncate(time.Second)}, nil
}

// NewJWTBearer returns a provider that sends self-signed JWTs, reusing each
// token until refreshBefore ahead of its expiry.
func NewJWTBearer(config JWTConfig, refreshBefore time.Duration) (*Bearer, error) {
	signer, err := NewJWTSigner(config)
	if err != nil {
		return nil, err
	}
	return NewBearer(ReuseTokenSource(signer, refreshBefore)), nil
}
