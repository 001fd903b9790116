package auth

import (
	"crypto/subtle"

	"golang.org/x/crypto/bcrypt"
)

// PasswordVerifier checks host password candidates. It is configured with
// either a bcrypt hash or a plaintext password; the hash wins when both are
// set. With neither, hosting is disabled and every check fails.
type PasswordVerifier struct {
	plaintext string
	hash      string
}

// NewPasswordVerifier builds a verifier from config values.
func NewPasswordVerifier(plaintext, hash string) *PasswordVerifier {
	return &PasswordVerifier{plaintext: plaintext, hash: hash}
}

// HostingEnabled reports whether any host password is configured at all.
func (v *PasswordVerifier) HostingEnabled() bool {
	return v.plaintext != "" || v.hash != ""
}

// Verify compares a candidate in constant time. bcrypt comparison is
// constant-time by construction; the plaintext path uses subtle.
func (v *PasswordVerifier) Verify(candidate string) bool {
	if candidate == "" {
		return false
	}
	if v.hash != "" {
		return bcrypt.CompareHashAndPassword([]byte(v.hash), []byte(candidate)) == nil
	}
	if v.plaintext == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(candidate), []byte(v.plaintext)) == 1
}
