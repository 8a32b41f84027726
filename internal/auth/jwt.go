package auth

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// issuer is checked on every Validate so tokens minted by another app sharing
// the secret are rejected.
const issuer = "miniblog"

// TokenService signs and verifies the session cookie.
//
// WHAT IS A JWT?
// Three base64url parts joined by dots: header.payload.signature. The
// header names the algorithm, the payload carries the claims, and the
// signature is HMAC-SHA256(header + "." + payload, secret). Anyone can
// READ the payload; only a holder of the secret can produce a valid
// signature, so a client cannot forge or edit its own token.
//
// The token is HS256 over:
//
//	{"iss":"miniblog","sub":"<user id>","jti":"<session id>","iat":...,"exp":...}
//
// The signature only proves the cookie was issued by this server. Whether the
// session is still live (not logged out) is answered by the sessions table.
type TokenService struct {
	secret []byte
}

// NewTokenService creates a TokenService with the given secret.
//
// Secrets shorter than 16 characters are refused at startup; a guessable
// HS256 secret lets anyone mint a cookie for any user.
// Example: JWT_SECRET=$(openssl rand -hex 32)
func NewTokenService(secret string) (*TokenService, error) {
	if len(secret) < 16 {
		return nil, errors.New("auth: JWT secret must be at least 16 characters")
	}
	return &TokenService{secret: []byte(secret)}, nil
}

// Claims is what a valid token tells the caller.
//
// It is deliberately not jwt.RegisteredClaims: callers get typed fields
// and never depend on the JWT library.
type Claims struct {
	UserID    int64
	SessionID string
	ExpiresAt time.Time
}

// Generate signs a token for the given user and session that expires after ttl.
//
// CLAIM MAPPING:
//   - sub: the user ID (JWT subjects are strings, hence FormatInt)
//   - jti: the session ID, the row AuthService revokes on logout
//   - iat / exp: issued-at and expiry as Unix seconds
//   - iss: always "miniblog"
func (s *TokenService) Generate(userID int64, sessionID string, ttl time.Duration) (string, error) {
	if sessionID == "" {
		return "", errors.New("auth: session id is required")
	}
	now := time.Now()

	c := jwt.RegisteredClaims{
		Subject:   strconv.FormatInt(userID, 10),
		ID:        sessionID,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		Issuer:    issuer,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, c)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("auth: signing token: %w", err)
	}
	return signed, nil
}

// Validate parses tokenStr and checks signature, algorithm, issuer and expiry.
//
// The keyfunc passed to ParseWithClaims is called after the header is
// decoded and before the signature is checked; it returns the key to
// verify with, or an error to reject the token outright.
// jwt.WithValidMethods keeps "alg":"none" and RS/HS confusion tokens out.
func (s *TokenService) Validate(tokenStr string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(
		tokenStr,
		&jwt.RegisteredClaims{},
		func(token *jwt.Token) (any, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("auth: unexpected signing method: %v", token.Header["alg"])
			}
			return s.secret, nil
		},
		jwt.WithValidMethods([]string{"HS256"}),
		jwt.WithIssuer(issuer),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, fmt.Errorf("auth: token expired")
		}
		return nil, fmt.Errorf("auth: invalid token: %w", err)
	}

	rc, ok := token.Claims.(*jwt.RegisteredClaims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("auth: invalid token claims")
	}

	userID, err := strconv.ParseInt(rc.Subject, 10, 64)
	if err != nil || userID <= 0 {
		return nil, fmt.Errorf("auth: token has no valid subject")
	}
	if rc.ID == "" {
		return nil, fmt.Errorf("auth: token has no session id")
	}

	return &Claims{
		UserID:    userID,
		SessionID: rc.ID,
		ExpiresAt: rc.ExpiresAt.Time,
	}, nil
}
