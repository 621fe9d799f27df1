package payment

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// CalculateChecksum returns the SHA-256 checksum the processor expects:
// the given values joined with "&", with the source-system secret
// appended as the last element, hex encoded. The caller owns the value
// order; it must be the exact field order of the message the checksum
// covers.
func CalculateChecksum(values []string, secret string) string {
	parts := make([]string, 0, len(values)+1)
	parts = append(parts, values...)
	parts = append(parts, secret)

	sum := sha256.Sum256([]byte(strings.Join(parts, "&")))
	return hex.EncodeToString(sum[:])
}

// VerifyChecksum recomputes the checksum over values and compares it to
// the received digest in constant time, so a caller probing the
// callback endpoints learns nothing from response timing.
func VerifyChecksum(received string, values []string, secret string) bool {
	expected := CalculateChecksum(values, secret)
	return hmac.Equal([]byte(received), []byte(expected))
}
