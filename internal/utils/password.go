package utils

import (
	"crypto/subtle"

	"golang.org/x/crypto/bcrypt"
)

// VerifyAdminSecret compares the typed secret against the configured
// gate.  When a bcrypt hash is configured it wins; otherwise the plain
// secret is compared in constant time.  An empty configuration never
// matches, so an unset gate locks the admin surface instead of opening
// it.
func VerifyAdminSecret(plainSecret, hashedSecret, typed string) bool {
	if hashedSecret != "" {
		return bcrypt.CompareHashAndPassword([]byte(hashedSecret), []byte(typed)) == nil
	}
	if plainSecret == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(plainSecret), []byte(typed)) == 1
}

// HashAdminSecret returns a bcrypt hash suitable for ADMIN_PASS_HASH.
func HashAdminSecret(plain string, cost int) (string, error) {
	b, err := bcrypt.GenerateFromPassword([]byte(plain), cost)
	if err != nil {
		return "", err
	}
	return string(b), nil
}
