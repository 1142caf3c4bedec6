package crypto

import (
	"crypto/sha256"
	"fmt"
	"io"

	"golang.org/x/crypto/hkdf"
)

// DeriveKey derives a key using HKDF-SHA-256.
func DeriveKey(secret, salt, info []byte, length int) ([]byte, error) {
	if len(salt) == 0 {
		salt = make([]byte, sha256.Size)
	}

	reader := hkdf.New(sha256.New, secret, salt, info)
	key := make([]byte, length)

	if _, err := io.ReadFull(reader, key); err != nil {
		return nil, fmt.Errorf("failed to derive key: %w", err)
	}

	return key, nil
}

// HKDFMACKey derives a dedicated MAC key from the private exponent, bound to
// the modulus through the salt.
func HKDFMACKey(priv *PrivateKey) ([]byte, error) {
	if priv == nil || priv.D == nil || priv.N == nil {
		return nil, ErrMACKeyUnavailable
	}
	return DeriveKey(priv.D.Bytes(), priv.N.Bytes(), []byte(MACContext), MACKeySize)
}
