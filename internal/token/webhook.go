package token

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// SignRailNotification HMAC-signs a simulated payment-rail settlement
// notification body, mirroring the teacher's webhook signing idiom
// (pkg/webhooks/security.go SignBody) adapted to confirm an off-chain
// top-up of the Memory token double in tests.
func SignRailNotification(secret string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	_, _ = mac.Write(body)
	return "sha256=" + hex.EncodeToString(mac.Sum(nil))
}

// VerifyRailNotification checks an HMAC-signed rail notification, the
// same constant-time-compare shape as pkg/webhooks/security.go
// VerifySignature.
func VerifyRailNotification(secret string, body []byte, signatureHeader string) bool {
	sig := strings.TrimSpace(signatureHeader)
	if sig == "" || secret == "" {
		return false
	}
	if strings.HasPrefix(strings.ToLower(sig), "sha256=") {
		sig = sig[len("sha256="):]
	}
	got, err := hex.DecodeString(sig)
	if err != nil {
		return false
	}
	mac := hmac.New(sha256.New, []byte(secret))
	_, _ = mac.Write(body)
	expected := mac.Sum(nil)
	return hmac.Equal(got, expected)
}
