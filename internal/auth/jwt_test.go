package auth

import (
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

func testConfig() *JWTConfig {
	return &JWTConfig{
		Secret:   []byte("test-secret-change-me"),
		Issuer:   "test",
		Audience: "test",
		TTL:      time.Hour,
	}
}

func TestGenerateAndValidate(t *testing.T) {
	cfg := testConfig()

	token, err := GenerateToken(cfg, "alice")
	if err != nil {
		t.Fatalf("generate: %v", err)
	}

	claims, err := ValidateToken(cfg, token)
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	if claims.Identity() != "alice" {
		t.Fatalf("expected alice, got %q", claims.Identity())
	}
}

func TestValidateRejects(t *testing.T) {
	cfg := testConfig()

	expired, _ := GenerateToken(&JWTConfig{Secret: cfg.Secret, Issuer: "test", Audience: "test", TTL: -time.Minute}, "alice")
	wrongSecret, _ := GenerateToken(&JWTConfig{Secret: []byte("other"), Issuer: "test", Audience: "test", TTL: time.Hour}, "alice")
	wrongIssuer, _ := GenerateToken(&JWTConfig{Secret: cfg.Secret, Issuer: "evil", Audience: "test", TTL: time.Hour}, "alice")
	wrongAudience, _ := GenerateToken(&JWTConfig{Secret: cfg.Secret, Issuer: "test", Audience: "other", TTL: time.Hour}, "alice")
	noIdentity, _ := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"iss": "test",
		"aud": "test",
		"exp": time.Now().Add(time.Hour).Unix(),
	}).SignedString(cfg.Secret)

	tests := []struct {
		name  string
		token string
		want  error
	}{
		{name: "empty", token: "", want: ErrMissingToken},
		{name: "garbage", token: "not-a-jwt", want: ErrInvalidToken},
		{name: "expired", token: expired, want: ErrInvalidToken},
		{name: "wrong secret", token: wrongSecret, want: ErrInvalidToken},
		{name: "wrong issuer", token: wrongIssuer, want: ErrInvalidToken},
		{name: "wrong audience", token: wrongAudience, want: ErrInvalidToken},
		{name: "no identity", token: noIdentity, want: ErrInvalidToken},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := ValidateToken(cfg, tt.token); !errors.Is(err, tt.want) {
				t.Fatalf("expected %v, got %v", tt.want, err)
			}
		})
	}
}

func TestSubjectIsIdentityFallback(t *testing.T) {
	cfg := testConfig()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": "bob",
		"iss": "test",
		"aud": "test",
		"exp": time.Now().Add(time.Hour).Unix(),
	}).SignedString(cfg.Secret)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}

	claims, err := ValidateToken(cfg, token)
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	if claims.Identity() != "bob" {
		t.Fatalf("expected bob, got %q", claims.Identity())
	}
}

func TestBearerToken(t *testing.T) {
	tests := map[string]string{
		"Bearer abc":   "abc",
		"bearer abc":   "abc",
		"Basic abc":    "",
		"Bearer":       "",
		"":             "",
		"Bearer  abc ": "abc",
	}
	for header, want := range tests {
		if got := BearerToken(header); got != want {
			t.Errorf("BearerToken(%q) = %q, want %q", header, got, want)
		}
	}
}
