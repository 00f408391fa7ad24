package webhook

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"strings"

	"github.com/storefront/fulfillment/internal/domain/shared"
)

// VerifyHMAC checks body against any of the candidate signatures. Each
// candidate may be the base64 or hex form of HMAC-SHA256(secret, body) and
// may carry a "<scheme>=" prefix. An empty secret never verifies.
func VerifyHMAC(secret string, body []byte, candidates ...string) error {
	if secret == "" {
		return shared.ErrInvalidSignature
	}
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	expected := mac.Sum(nil)

	for _, candidate := range candidates {
		candidate = strings.TrimSpace(candidate)
		// base64 padding is at most two trailing "=", anything longer is a scheme prefix
		if i := strings.Index(candidate, "="); i > 0 && len(candidate)-i > 2 {
			candidate = candidate[i+1:]
		}
		if candidate == "" {
			continue
		}
		for _, decoded := range decodeDigest(candidate) {
			if hmac.Equal(decoded, expected) {
				return nil
			}
		}
	}
	return shared.ErrInvalidSignature
}

func decodeDigest(s string) [][]byte {
	var out [][]byte
	if b, err := hex.DecodeString(s); err == nil {
		out = append(out, b)
	}
	if b, err := base64.StdEncoding.DecodeString(s); err == nil {
		out = append(out, b)
	}
	return out
}
