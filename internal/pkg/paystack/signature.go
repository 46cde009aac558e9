package paystack

import (
	"crypto/hmac"
	"crypto/sha512"
	"encoding/hex"
	"strings"
)

// ValidSignature verifies the x-paystack-signature header against the exact
// raw payload bytes: lowercase-hex HMAC-SHA512 keyed by the webhook secret.
//
// The comparison is constant time. A signature of the wrong length is
// compared against a zero-filled buffer of the expected length instead of
// short-circuiting, so response timing does not leak length information.
func ValidSignature(payload []byte, signature, secret string) bool {
	sig := strings.TrimSpace(signature)
	if sig == "" || secret == "" {
		return false
	}

	mac := hmac.New(sha512.New, []byte(secret))
	mac.Write(payload)
	expected := mac.Sum(nil)

	provided, err := hex.DecodeString(strings.ToLower(sig))
	if err != nil {
		provided = nil
	}

	candidate := provided
	if len(candidate) != len(expected) {
		candidate = make([]byte, len(expected))
	}

	return hmac.Equal(expected, candidate) && len(provided) == len(expected)
}
