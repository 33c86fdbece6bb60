package auth

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

func TestNewJWTSigner_RequiresKey(t *testing.T) {
	if _, err := NewJWTSigner(JWTConfig{}); !errors.Is(err, ErrNoSigningKey) {
		t.Errorf("NewJWTSigner() error = %v, want ErrNoSigningKey", err)
	}
	if _, err := NewJWTSigner(JWTConfig{Key: []byte{}}); !errors.Is(err, ErrNoSigningKey) {
		t.Errorf("NewJWTSigner(empty key) error = %v, want ErrNoSigningKey", err)
	}
}

func TestJWTSigner_HS256Claims(t *testing.T) {
	secret := []byte("test-secret-key")
	signer, err := NewJWTSigner(JWTConfig{
		Key:      secret,
		KeyID:    "k1",
		Issuer:   "web",
		Subject:  "user-1",
		Audience: []string{"api"},
		TTL:      time.Minute,
		Claims:   map[string]any{"role": "admin", "sub": "ignored"},
	})
	if err != nil {
		t.Fatalf("NewJWTSigner() error = %v", err)
	}

	tok, err := signer.Token(context.Background())
	if err != nil {
		t.Fatalf("Token() error = %v", err)
	}

	parsed, err := jwt.Parse(tok.Value, func(token *jwt.Token) (any, error) {
		if token.Header["kid"] != "k1" {
			t.Errorf("kid = %v, want k1", token.Header["kid"])
		}
		return secret, nil
	}, jwt.WithValidMethods([]string{"HS256"}), jwt.WithIssuer("web"), jwt.WithAudience("api"))
	if err != nil {
		t.Fatalf("jwt.Parse() error = %v", err)
	}

	claims := parsed.Claims.(jwt.MapClaims)
	if claims["sub"] != "user-1" {
		t.Errorf("sub = %v, want user-1", claims["sub"])
	}
	if claims["role"] != "admin" {
		t.Errorf("role = %v, want admin", claims["role"])
	}
	if jti, _ := claims["jti"].(string); jti == "" {
		t.Error("jti missing")
	}

	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		t.Fatalf("GetExpirationTime() = %v, %v", exp, err)
	}
	if tok.ExpiresAt.After(exp.Time) {
		t.Errorf("Token.ExpiresAt %v after exp claim %v", tok.ExpiresAt, exp.Time)
	}
}

func TestJWTSigner_RS256(t *testing.T) {
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("GenerateKey() error = %v", err)
	}
	signer, err := NewJWTSigner(JWTConfig{Method: jwt.SigningMethodRS256, Key: key})
	if err != nil {
		t.Fatalf("NewJWTSigner() error = %v", err)
	}

	tok, err := signer.Token(context.Background())
	if err != nil {
		t.Fatalf("Token() error = %v", err)
	}
	if _, err := jwt.Parse(tok.Value, func(*jwt.Token) (any, error) {
		return &key.PublicKey, nil
	}, jwt.WithValidMethods([]string{"RS256"})); err != nil {
		t.Errorf("jwt.Parse() error = %v", err)
	}
}

func TestJWTSigner_WrongKeyType(t *testing.T) {
	signer, err := NewJWTSigner(JWTConfig{Method: jwt.SigningMethodRS256, Key: []byte("not-rsa")})
	if err != nil {
		t.Fatalf("NewJWTSigner() error = %v", err)
	}
	if _, err := signer.Token(context.Background()); err == nil {
		t.Error("Token() error = nil for an HMAC key with RS256")
	}
}

func TestNewJWTBearer_ReusesToken(t *testing.T) {
	bearer, err := NewJWTBearer(JWTConfig{Key: []byte("secret"), TTL: time.Hour}, time.Minute)
	if err != nil {
		t.Fatalf("NewJWTBearer() error = %v", err)
	}
	ctx := context.Background()

	h1, err := bearer.Headers(ctx)
	if err != nil {
		t.Fatalf("Headers() error = %v", err)
	}
	h2, _ := bearer.Headers(ctx)

	auth := h1.Get("Authorization")
	if !strings.HasPrefix(auth, "Bearer ") {
		t.Fatalf("Authorization = %q, want Bearer prefix", auth)
	}
	if auth != h2.Get("Authorization") {
		t.Error("token not reused between calls")
	}
}
