// Package crypto provides the stateless signature checks the provider
// verifiers build on: detached ed25519 verification, keyed hashing, and
// HMAC-signed opaque tokens. All comparisons are constant time.
package crypto

import (
	"crypto/ed25519"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"strings"

	"github.com/mr-tron/base58"

	dErrors "trustgate/pkg/domain-errors"
)

// VerifyEd25519 checks a detached signature over message with a base58
// public key and base58 signature.
func VerifyEd25519(publicKey, signature string, message []byte) error {
	pub, err := base58.Decode(publicKey)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInvalidProof, "public key is not valid base58")
	}
	if len(pub) != ed25519.PublicKeySize {
		return dErrors.New(dErrors.CodeInvalidProof, "public key has wrong length")
	}
	sig, err := base58.Decode(signature)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInvalidProof, "signature is not valid base58")
	}
	if len(sig) != ed25519.SignatureSize {
		return dErrors.New(dErrors.CodeInvalidProof, "signature has wrong length")
	}
	if !ed25519.Verify(ed25519.PublicKey(pub), message, sig) {
		return dErrors.New(dErrors.CodeInvalidProof, "signature does not match message")
	}
	return nil
}

// KeyedHash computes HMAC-SHA256 of message under key.
func KeyedHash(key, message []byte) []byte {
	mac := hmac.New(sha256.New, key)
	mac.Write(message)
	return mac.Sum(nil)
}

// EqualMAC compares two MACs in constant time.
func EqualMAC(a, b []byte) bool {
	return hmac.Equal(a, b)
}

// SignToken produces an HMAC-signed opaque token:
// base64url(payload) + "." + base64url(HMAC-SHA256(base64url(payload))).
func SignToken(payload, secret []byte) string {
	data := base64.RawURLEncoding.EncodeToString(payload)
	mac := KeyedHash(secret, []byte(data))
	return data + "." + base64.RawURLEncoding.EncodeToString(mac)
}

// VerifyToken checks the token's HMAC in constant time and returns the
// decoded payload. Any tampering with either segment is an invalid proof.
func VerifyToken(token string, secret []byte) ([]byte, error) {
	data, sig, ok := strings.Cut(token, ".")
	if !ok {
		return nil, dErrors.New(dErrors.CodeInvalidProof, "token is missing its signature segment")
	}
	got, err := base64.RawURLEncoding.DecodeString(sig)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInvalidProof, "token signature is not valid base64url")
	}
	want := KeyedHash(secret, []byte(data))
	if !EqualMAC(got, want) {
		return nil, dErrors.New(dErrors.CodeInvalidProof, "token signature mismatch")
	}
	payload, err := base64.RawURLEncoding.DecodeString(data)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInvalidProof, "token payload is not valid base64url")
	}
	return payload, nil
}
