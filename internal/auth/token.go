package auth

import (
	"crypto/rsa"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ErrInvalidToken is returned for tokens that fail verification.
var ErrInvalidToken = errors.New("invalid token")

// Config configures token signing.
type Config struct {
	Secret         string        // HS256 shared secret
	PrivateKeyPath string        // RS256 PEM key; used when Secret is empty
	TTL            time.Duration // Token lifetime
	Issuer         string
}

// Tokens issues and verifies access tokens.
type Tokens struct {
	method  jwt.SigningMethod
	signKey any
	verify  any
	ttl     time.Duration
	issuer  string
	now     func() time.Time
}

// NewTokens builds a Tokens from cfg.
func NewTokens(cfg Config) (*Tokens, error) {
	t := &Tokens{ttl: cfg.TTL, issuer: cfg.Issuer, now: time.Now}

	switch {
	case cfg.Secret != "":
		t.method = jwt.SigningMethodHS256
		t.signKey = []byte(cfg.Secret)
		t.verify = []byte(cfg.Secret)
	case cfg.PrivateKeyPath != "":
		key, err := LoadPrivateKey(cfg.PrivateKeyPath)
		if err != nil {
			return nil, fmt.Errorf("load signing key: %w", err)
		}
		t.useRSA(key)
	default:
		return nil, errors.New("auth: secret or private key path is required")
	}

	return t, nil
}

// NewRSATokens builds an RS256 Tokens from an in-memory key.
func NewRSATokens(key *rsa.PrivateKey, ttl time.Duration, issuer string) *Tokens {
	t := &Tokens{ttl: ttl, issuer: issuer, now: time.Now}
	t.useRSA(key)
	return t
}

func (t *Tokens) useRSA(key *rsa.PrivateKey) {
	t.method = jwt.SigningMethodRS256
	t.signKey = key
	t.verify = &key.PublicKey
}

// Issue returns a signed token for the user.
func (t *Tokens) Issue(userUUID string) (string, error) {
	now := t.now()
	claims := jwt.RegisteredClaims{
		Subject:   userUUID,
		Issuer:    t.issuer,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(t.ttl)),
	}

	signed, err := jwt.NewWithClaims(t.method, claims).SignedString(t.signKey)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// Verify checks signature, expiry and issuer and returns the user UUID.
func (t *Tokens) Verify(token string) (string, error) {
	var claims jwt.RegisteredClaims
	_, err := jwt.ParseWithClaims(token, &claims,
		func(*jwt.Token) (any, error) { return t.verify, nil },
		jwt.WithValidMethods([]string{t.method.Alg()}),
		jwt.WithIssuer(t.issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(t.now),
	)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if claims.Subject == "" {
		return "", fmt.Errorf("%w: missing subject", ErrInvalidToken)
	}
	return claims.Subject, nil
}
