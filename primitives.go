package rsapq

import (
	"fmt"
	"unicode/utf8"

	"github.com/rsapq/rsapq-go/internal/cert"
	"github.com/rsapq/rsapq-go/internal/crypto"
)

// PublicKey is the public half (n, e) of a key pair.
type PublicKey = crypto.PublicKey

// PrivateKey is the private half (n, d) of a key pair.
type PrivateKey = crypto.PrivateKey

// KeyPair holds both halves of a key and the requested modulus size.
type KeyPair = crypto.KeyPair

// Certificate is a decoded certificate record.
type Certificate = cert.Certificate

// CertificateSummary is the unverified descriptive view returned by
// InspectCertificate.
type CertificateSummary = cert.Summary

// MACKeyDerivation turns a private key into MAC key material.
type MACKeyDerivation = crypto.MACKeyDerivation

var (
	// LegacyMACKey uses the decimal text of the private exponent as the MAC
	// key. The signing secret then doubles as the MAC secret.
	LegacyMACKey MACKeyDerivation = crypto.LegacyMACKey

	// HKDFMACKey derives a separate 32-byte MAC key with HKDF-SHA-256.
	HKDFMACKey MACKeyDerivation = crypto.HKDFMACKey
)

// KeyID returns a short printable identifier for pub.
func KeyID(pub *PublicKey) string {
	return crypto.KeyID(pub)
}

// Encrypt encrypts plaintext for pub and returns the ciphertext in transport
// encoding. Encryption is unpadded and deterministic: equal plaintexts under
// the same key give equal ciphertexts.
func Encrypt(pub *PublicKey, plaintext string) (string, error) {
	c, err := crypto.Encrypt(pub, []byte(plaintext))
	if err != nil {
		return "", wrapError("encrypt", err)
	}
	return crypto.EncodeInt(c), nil
}

// Decrypt reverses Encrypt. Leading NUL characters of the original plaintext
// are not recovered.
func Decrypt(priv *PrivateKey, ciphertext string) (string, error) {
	if priv == nil || priv.N == nil || priv.D == nil {
		return "", wrapError("decrypt", ErrKeysNotGenerated)
	}

	c, err := crypto.DecodeInt(ciphertext)
	if err != nil {
		return "", wrapError("decrypt", fmt.Errorf("%w: %w", ErrInvalidCiphertext, err))
	}

	m, err := crypto.Decrypt(priv, c)
	if err != nil {
		return "", wrapError("decrypt", err)
	}
	if !utf8.Valid(m) {
		return "", wrapError("decrypt", fmt.Errorf("%w: plaintext is not valid UTF-8", ErrInvalidCiphertext))
	}
	return string(m), nil
}

// Sign signs message with priv and returns the signature in transport
// encoding.
func Sign(priv *PrivateKey, message string) (string, error) {
	s, err := crypto.Sign(priv, []byte(message))
	if err != nil {
		return "", wrapError("sign", err)
	}
	return crypto.EncodeInt(s), nil
}

// VerifySignature reports whether signature is a valid signature of message
// under pub. A malformed signature verifies as false; the error is non-nil
// only when pub is missing.
func VerifySignature(pub *PublicKey, message, signature string) (bool, error) {
	if pub == nil || pub.N == nil || pub.E == nil {
		return false, wrapError("verify signature", ErrVerificationKeyMissing)
	}

	s, err := crypto.DecodeInt(signature)
	if err != nil {
		return false, nil
	}

	ok, err := crypto.Verify(pub, []byte(message), s)
	if err != nil {
		return false, wrapError("verify signature", err)
	}
	return ok, nil
}

// ComputeMAC returns the lowercase hex HMAC-SHA-256 of data under key.
func ComputeMAC(key []byte, data string) string {
	return crypto.ComputeMAC(key, []byte(data))
}

// VerifyMAC reports whether tag is the MAC of data under key.
func VerifyMAC(key []byte, data, tag string) bool {
	return crypto.VerifyMAC(key, []byte(data), tag)
}
