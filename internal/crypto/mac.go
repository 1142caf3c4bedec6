package crypto

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
)

// MACKeyDerivation turns a private key into MAC key material.
type MACKeyDerivation func(priv *PrivateKey) ([]byte, error)

// LegacyMACKey uses the decimal text of the private exponent as the MAC key.
// The same secret then serves both signing and MAC computation.
func LegacyMACKey(priv *PrivateKey) ([]byte, error) {
	if priv == nil || priv.D == nil {
		return nil, ErrMACKeyUnavailable
	}
	return []byte(priv.D.String()), nil
}

// ComputeMAC returns the lowercase hex HMAC-SHA-256 of data under key.
func ComputeMAC(key, data []byte) string {
	mac := hmac.New(sha256.New, key)
	mac.Write(data)
	return hex.EncodeToString(mac.Sum(nil))
}

// VerifyMAC reports whether tag equals ComputeMAC(key, data), comparing in
// constant time.
func VerifyMAC(key, data []byte, tag string) bool {
	expected := ComputeMAC(key, data)
	return hmac.Equal([]byte(tag), []byte(expected))
}
