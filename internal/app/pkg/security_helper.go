package pkg

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
)

// SignData computes an HMAC-SHA256 signature over the JSON serialization
// of data. Callers must sign a deterministic structure (not a map) so the
// serialized bytes are stable between signer and verifier.
func SignData(data interface{}, secret string) (string, error) {
	payload, err := json.Marshal(data)
	if err != nil {
		return "", fmt.Errorf("failed to marshal signing payload: %w", err)
	}

	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(payload)
	return hex.EncodeToString(mac.Sum(nil)), nil
}

// VerifyData reports whether signature matches the expected signature for
// data. The comparison is constant-time.
func VerifyData(data interface{}, signature, secret string) bool {
	expected, err := SignData(data, secret)
	if err != nil {
		return false
	}

	got, err := hex.DecodeString(signature)
	if err != nil {
		return false
	}
	want, err := hex.DecodeString(expected)
	if err != nil {
		return false
	}

	return hmac.Equal(got, want)
}
