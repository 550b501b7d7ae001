// Package crypto provides hashing helpers for API keys and webhook signatures.
package crypto

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"

	"golang.org/x/crypto/bcrypt"
)

// HashAsBcrypt generates a bcrypt hash of the given secret.
func HashAsBcrypt(secret string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(secret), bcrypt.DefaultCost)
	return string(hash), err
}

// CheckBcryptHash verifies that the given secret matches the bcrypt hash.
func CheckBcryptHash(hash, secret string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(secret))
	return err == nil
}

// SignHMAC returns the hex-encoded HMAC-SHA256 of body under key.
func SignHMAC(key string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(key))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

// VerifyHMAC compares a hex-encoded signature against the expected
// HMAC-SHA256 of body under key, in constant time.
func VerifyHMAC(key string, body []byte, signature string) bool {
	expected, err := hex.DecodeString(signature)
	if err != nil {
		return false
	}
	mac := hmac.New(sha256.New, []byte(key))
	mac.Write(body)
	return hmac.Equal(mac.Sum(nil), expected)
}
