package auth

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeKey(t *testing.T, block *pem.Block) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test-key.pem")
	if err := os.WriteFile(path, pem.EncodeToMemory(block), 0600); err != nil {
		t.Fatalf("failed to write temp file: %v", err)
	}
	return path
}

func generateKey(t *testing.T) *rsa.PrivateKey {
	t.Helper()
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("failed to generate test key: %v", err)
	}
	return key
}

func TestLoadPrivateKey_PKCS8(t *testing.T) {
	privateKey := generateKey(t)

	pkcs8Bytes, err := x509.MarshalPKCS8PrivateKey(privateKey)
	if err != nil {
		t.Fatalf("failed to marshal PKCS#8: %v", err)
	}
	path := writeKey(t, &pem.Block{Type: "PRIVATE KEY", Bytes: pkcs8Bytes})

	loadedKey, err := LoadPrivateKey(path)
	if err != nil {
		t.Fatalf("LoadPrivateKey failed: %v", err)
	}
	if loadedKey.N.Cmp(privateKey.N) != 0 {
		t.Error("loaded key does not match original")
	}
}

func TestLoadPrivateKey_PKCS1(t *testing.T) {
	privateKey := generateKey(t)
	path := writeKey(t, &pem.Block{Type: "RSA PRIVATE KEY", Bytes: x509.MarshalPKCS1PrivateKey(privateKey)})

	loadedKey, err := LoadPrivateKey(path)
	if err != nil {
		t.Fatalf("LoadPrivateKey failed: %v", err)
	}
	if loadedKey.N.Cmp(privateKey.N) != 0 {
		t.Error("loaded key does not match original")
	}
}

func TestLoadPrivateKey_Errors(t *testing.T) {
	if _, err := LoadPrivateKey("/nonexistent/path/to/key.pem"); err == nil {
		t.Error("expected error for nonexistent file")
	}

	invalid := filepath.Join(t.TempDir(), "invalid.pem")
	if err := os.WriteFile(invalid, []byte("not a pem file"), 0600); err != nil {
		t.Fatalf("failed to write temp file: %v", err)
	}
	if _, err := LoadPrivateKey(invalid); err == nil {
		t.Error("expected error for invalid PEM")
	}
}

func TestPassword(t *testing.T) {
	hash, err := HashPassword("hunter2")
	if err != nil {
		t.Fatalf("HashPassword failed: %v", err)
	}
	if hash == "hunter2" || !strings.HasPrefix(hash, "$2") {
		t.Errorf("hash = %q, want bcrypt hash", hash)
	}

	if err := CheckPassword(hash, "hunter2"); err != nil {
		t.Errorf("CheckPassword(correct) = %v", err)
	}
	if err := CheckPassword(hash, "wrong"); !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("CheckPassword(wrong) = %v, want ErrInvalidCredentials", err)
	}
	if err := CheckPassword("not-a-hash", "x"); err == nil || errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("CheckPassword(garbage hash) = %v, want non-credential error", err)
	}
}

func TestTokens_HS256(t *testing.T) {
	tokens, err := NewTokens(Config{Secret: "s3cret", TTL: time.Hour, Issuer: "peerlink"})
	if err != nil {
		t.Fatalf("NewTokens failed: %v", err)
	}

	token, err := tokens.Issue("user-1")
	if err != nil {
		t.Fatalf("Issue failed: %v", err)
	}
	if strings.Count(token, ".") != 2 {
		t.Errorf("token = %q, want JWT", token)
	}

	sub, err := tokens.Verify(token)
	if err != nil {
		t.Fatalf("Verify failed: %v", err)
	}
	if sub != "user-1" {
		t.Errorf("subject = %q, want user-1", sub)
	}
}

func TestTokens_RS256FromFile(t *testing.T) {
	key := generateKey(t)
	pkcs8Bytes, _ := x509.MarshalPKCS8PrivateKey(key)
	path := writeKey(t, &pem.Block{Type: "PRIVATE KEY", Bytes: pkcs8Bytes})

	tokens, err := NewTokens(Config{PrivateKeyPath: path, TTL: time.Hour, Issuer: "peerlink"})
	if err != nil {
		t.Fatalf("NewTokens failed: %v", err)
	}

	token, err := tokens.Issue("user-2")
	if err != nil {
		t.Fatalf("Issue failed: %v", err)
	}
	if sub, err := tokens.Verify(token); err != nil || sub != "user-2" {
		t.Errorf("Verify = (%q, %v), want (user-2, nil)", sub, err)
	}
}

func TestTokens_Rejects(t *testing.T) {
	tokens, _ := NewTokens(Config{Secret: "s3cret", TTL: time.Hour, Issuer: "peerlink"})
	other, _ := NewTokens(Config{Secret: "other", TTL: time.Hour, Issuer: "peerlink"})
	foreign, _ := NewTokens(Config{Secret: "s3cret", TTL: time.Hour, Issuer: "someone-else"})
	rsaTokens := NewRSATokens(generateKey(t), time.Hour, "peerlink")

	expired, _ := NewTokens(Config{Secret: "s3cret", TTL: time.Hour, Issuer: "peerlink"})
	expired.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }

	tests := []struct {
		name   string
		issuer *Tokens
	}{
		{"wrong secret", other},
		{"wrong issuer", foreign},
		{"wrong algorithm", rsaTokens},
		{"expired", expired},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			token, err := tt.issuer.Issue("user-1")
			if err != nil {
				t.Fatalf("Issue failed: %v", err)
			}
			if _, err := tokens.Verify(token); !errors.Is(err, ErrInvalidToken) {
				t.Errorf("Verify = %v, want ErrInvalidToken", err)
			}
		})
	}

	if _, err := tokens.Verify("garbage"); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("Verify(garbage) = %v, want ErrInvalidToken", err)
	}
}

func TestNewTokens_RequiresKey(t *testing.T) {
	if _, err := NewTokens(Config{TTL: time.Hour}); err == nil {
		t.Error("expected error without secret or key")
	}
	if _, err := NewTokens(Config{PrivateKeyPath: "/nonexistent.pem"}); err == nil {
		t.Error("expected error for missing key file")
	}
}
