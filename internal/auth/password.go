// Package auth holds the credential primitives: bcrypt password hashing,
// signed session tokens, the cookie middleware that resolves the current
// user, and the GitHub OAuth provider.
//
// WHY BCRYPT?
// A password hash has to be SLOW. If a copy of the users table leaks, the
// attacker has to guess each password by hashing candidates; a fast hash
// (MD5, SHA-256) lets a GPU try billions per second, bcrypt at cost 12
// allows a few per second per core.
//
// bcrypt generates a random salt for every hash and embeds it, together
// with the cost, in the output:
//
//	$2a$12$<22-char salt><31-char hash>
//	 ^   ^
//	 |   cost: 2^12 rounds
//	 version
//
// so the users table needs only the one password_hash column. Two users
// with the same password still get different hashes, which keeps the
// UNIQUE constraint on password_hash from ever rejecting a legitimate
// registration.
package auth

import (
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"

	"github.com/sakif/miniblog/internal/apperror"
)

// defaultCost is the bcrypt work factor used in production (~250ms/hash).
//
// COST TUNING:
// Each +1 doubles the time. Pick the value that takes a couple of hundred
// milliseconds on the production machine: slow enough to hurt an attacker,
// fast enough that a login does not feel sluggish.
const defaultCost = 12

// maxPasswordBytes is bcrypt's input limit. bcrypt ignores everything past
// byte 72, so two long passwords sharing a 72-byte prefix would verify as
// equal. Longer inputs are rejected instead of being silently truncated.
const maxPasswordBytes = 72

// ErrPasswordMismatch is returned by Verify when the password is wrong.
//
// It is a sentinel error: callers compare with errors.Is and treat it as
// "bad credentials", while any OTHER error from Verify means the stored
// hash itself is broken.
var ErrPasswordMismatch = errors.New("auth: invalid password")

// PasswordService provides bcrypt hashing and verification.
//
// It's a struct (not free functions) so that the cost can be injected:
// tests run at bcrypt.MinCost (4), which is thousands of times faster and
// exercises exactly the same code.
type PasswordService struct {
	cost int
}

// NewPasswordService creates a PasswordService with the default cost (12).
func NewPasswordService() *PasswordService {
	return &PasswordService{cost: defaultCost}
}

// NewPasswordServiceForTest creates a PasswordService with the given cost.
// Use bcrypt.MinCost (4) from tests in other packages. Never in production.
func NewPasswordServiceForTest(cost int) *PasswordService {
	return &PasswordService{cost: cost}
}

// Hash returns the bcrypt hash of plaintext, ready to store as-is.
//
// The result is a string (bcrypt output is printable ASCII) so it can go
// straight into the password_hash column.
func (p *PasswordService) Hash(plaintext string) (string, error) {
	// len() counts bytes, not characters, which is what bcrypt limits.
	if len(plaintext) > maxPasswordBytes {
		return "", apperror.ValidationFailed("password",
			fmt.Sprintf("password must be %d bytes or fewer", maxPasswordBytes))
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(plaintext), p.cost)
	if err != nil {
		return "", fmt.Errorf("auth: hashing password: %w", err)
	}
	return string(hashed), nil
}

// Verify returns nil when plaintext matches hash and ErrPasswordMismatch when
// it doesn't. Any other error means the stored hash is unusable.
//
// HOW VERIFICATION WORKS:
// bcrypt reads the cost and salt out of the stored hash, hashes plaintext
// with them, and compares the two results in constant time. There is no
// "decrypt": a bcrypt hash cannot be turned back into the password.
func (p *PasswordService) Verify(hash, plaintext string) error {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(plaintext))
	if err != nil {
		if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			return ErrPasswordMismatch
		}
		return fmt.Errorf("auth: comparing password hash: %w", err)
	}
	return nil
}
