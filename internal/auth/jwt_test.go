package auth

import (
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const testSecret = "test-secret-at-least-16-chars!!"

func newTestTokenService(t *testing.T) *TokenService {
	t.Helper()
	ts, err := NewTokenService(testSecret)
	if err != nil {
		t.Fatalf("NewTokenService: %v", err)
	}
	return ts
}

// =========================================================================
// CONSTRUCTION
// =========================================================================

func TestNewTokenService_ShortSecret(t *testing.T) {
	if _, err := NewTokenService("short"); err == nil {
		t.Fatal("NewTokenService() should reject secrets shorter than 16 chars")
	}
}

func TestNewTokenService_ValidSecret(t *testing.T) {
	if _, err := NewTokenService("this-is-16-chars"); err != nil {
		t.Fatalf("NewTokenService() unexpected error for valid secret: %v", err)
	}
}

// =========================================================================
// Generate / Validate
// =========================================================================

func TestGenerate_ProducesThreePartToken(t *testing.T) {
	ts := newTestTokenService(t)

	token, err := ts.Generate(7, "session-a", time.Hour)
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	if got := strings.Count(token, "."); got != 2 {
		t.Errorf("token has %d dots, want 2 (header.payload.signature)", got)
	}
}

func TestGenerate_RequiresSessionID(t *testing.T) {
	ts := newTestTokenService(t)

	if _, err := ts.Generate(7, "", time.Hour); err == nil {
		t.Fatal("Generate() should reject an empty session id")
	}
}

func TestValidate_RoundTrip(t *testing.T) {
	ts := newTestTokenService(t)

	token, err := ts.Generate(42, "2b1f0c8e-session", time.Hour)
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}

	claims, err := ts.Validate(token)
	if err != nil {
		t.Fatalf("Validate() error = %v", err)
	}
	if claims.UserID != 42 {
		t.Errorf("UserID = %d, want 42", claims.UserID)
	}
	if claims.SessionID != "2b1f0c8e-session" {
		t.Errorf("SessionID = %q, want %q", claims.SessionID, "2b1f0c8e-session")
	}
	if time.Until(claims.ExpiresAt) <= 0 {
		t.Errorf("ExpiresAt = %v, want a future time", claims.ExpiresAt)
	}
}

func TestValidate_ExpiredToken(t *testing.T) {
	ts := newTestTokenService(t)

	token, err := ts.Generate(1, "s", -time.Minute)
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}

	_, err = ts.Validate(token)
	if err == nil {
		t.Fatal("Validate() should reject an expired token")
	}
	if !strings.Contains(err.Error(), "expired") {
		t.Errorf("error = %q, want it to mention expiry", err)
	}
}

func TestValidate_WrongSecret(t *testing.T) {
	ts := newTestTokenService(t)
	other, _ := NewTokenService("a-completely-different-secret")

	token, _ := other.Generate(1, "s", time.Hour)

	if _, err := ts.Validate(token); err == nil {
		t.Fatal("Validate() should reject a token signed with another secret")
	}
}

func TestValidate_TamperedPayload(t *testing.T) {
	ts := newTestTokenService(t)

	token, _ := ts.Generate(1, "s", time.Hour)
	parts := strings.Split(token, ".")
	// Swap in the payload of a token for a different user, keep the signature.
	forged, _ := ts.Generate(2, "s", time.Hour)
	parts[1] = strings.Split(forged, ".")[1]

	if _, err := ts.Validate(strings.Join(parts, ".")); err == nil {
		t.Fatal("Validate() should reject a token whose payload was swapped")
	}
}

func TestValidate_WrongIssuer(t *testing.T) {
	ts := newTestTokenService(t)

	c := jwt.RegisteredClaims{
		Subject:   "1",
		ID:        "s",
		Issuer:    "someone-else",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, c).SignedString([]byte(testSecret))
	if err != nil {
		t.Fatalf("signing: %v", err)
	}

	if _, err := ts.Validate(token); err == nil {
		t.Fatal("Validate() should reject a token from another issuer")
	}
}

func TestValidate_MissingClaims(t *testing.T) {
	ts := newTestTokenService(t)

	tests := []struct {
		name   string
		claims jwt.RegisteredClaims
	}{
		{
			name: "no session id",
			claims: jwt.RegisteredClaims{
				Subject: "1", Issuer: issuer,
				ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
			},
		},
		{
			name: "non-numeric subject",
			claims: jwt.RegisteredClaims{
				Subject: "alice", ID: "s", Issuer: issuer,
				ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
			},
		},
		{
			name: "no expiry",
			claims: jwt.RegisteredClaims{
				Subject: "1", ID: "s", Issuer: issuer,
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, tt.claims).SignedString([]byte(testSecret))
			if err != nil {
				t.Fatalf("signing: %v", err)
			}
			if _, err := ts.Validate(token); err == nil {
				t.Errorf("Validate() accepted a token with %s", tt.name)
			}
		})
	}
}

func TestValidate_GarbageInput(t *testing.T) {
	ts := newTestTokenService(t)

	for _, input := range []string{"", "not-a-jwt", "a.b.c"} {
		if _, err := ts.Validate(input); err == nil {
			t.Errorf("Validate(%q) should fail", input)
		}
	}
}
