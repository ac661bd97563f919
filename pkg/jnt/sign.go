package jnt

import (
	"crypto/md5"
	"crypto/subtle"
	"encoding/base64"
	"encoding/hex"
	"strings"
)

// HeaderWebhookSignature carries the signature on inbound tracking callbacks.
const HeaderWebhookSignature = "x-jnt-signature"

// Sign returns upper(hex(md5(apiKey + body + timestamp + secret))).
func Sign(apiKey string, body []byte, timestamp, secret string) string {
	h := md5.New()
	h.Write([]byte(apiKey))
	h.Write(body)
	h.Write([]byte(timestamp))
	h.Write([]byte(secret))
	return strings.ToUpper(hex.EncodeToString(h.Sum(nil)))
}

// Digest returns base64(md5(body)).
func Digest(body []byte) string {
	sum := md5.Sum(body)
	return base64.StdEncoding.EncodeToString(sum[:])
}

// WebhookSignature returns upper(hex(md5(body + secret))).
func WebhookSignature(body []byte, secret string) string {
	h := md5.New()
	h.Write(body)
	h.Write([]byte(secret))
	return strings.ToUpper(hex.EncodeToString(h.Sum(nil)))
}

// VerifyWebhookSignature compares the provided signature against the expected
// one in constant time. Empty secrets or signatures never verify.
func VerifyWebhookSignature(body []byte, secret, provided string) bool {
	provided = strings.TrimSpace(provided)
	if secret == "" || provided == "" {
		return false
	}
	expected := WebhookSignature(body, secret)
	return subtle.ConstantTimeCompare([]byte(expected), []byte(strings.ToUpper(provided))) == 1
}
