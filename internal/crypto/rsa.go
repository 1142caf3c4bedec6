package crypto

import (
	"crypto/sha256"
	"math/big"
)

// Encrypt returns plaintext^e mod n where plaintext is read as a big-endian
// unsigned integer.
func Encrypt(pub *PublicKey, plaintext []byte) (*big.Int, error) {
	if pub == nil || pub.N == nil || pub.E == nil {
		return nil, ErrKeysNotGenerated
	}

	m := new(big.Int).SetBytes(plaintext)
	if m.Cmp(pub.N) >= 0 {
		return nil, ErrPlaintextTooLarge
	}

	return m.Exp(m, pub.E, pub.N), nil
}

// Decrypt returns the minimal big-endian encoding of ciphertext^d mod n.
// Leading zero bytes of the original plaintext are not recoverable.
func Decrypt(priv *PrivateKey, ciphertext *big.Int) ([]byte, error) {
	if priv == nil || priv.N == nil || priv.D == nil {
		return nil, ErrKeysNotGenerated
	}
	if ciphertext == nil || ciphertext.Sign() < 0 || ciphertext.Cmp(priv.N) >= 0 {
		return nil, ErrInvalidCiphertext
	}

	m := new(big.Int).Exp(ciphertext, priv.D, priv.N)
	return m.Bytes(), nil
}

// Digest returns the SHA-256 digest of message as an integer, reduced modulo
// floor(n/2) when it is not below n.
func Digest(message []byte, n *big.Int) *big.Int {
	sum := sha256.Sum256(message)
	h := new(big.Int).SetBytes(sum[:])
	if h.Cmp(n) >= 0 {
		half := new(big.Int).Rsh(n, 1)
		if half.Sign() <= 0 {
			return h.SetInt64(0)
		}
		h.Mod(h, half)
	}
	return h
}

// Sign returns Digest(message)^d mod n.
func Sign(priv *PrivateKey, message []byte) (*big.Int, error) {
	if priv == nil || priv.N == nil || priv.D == nil {
		return nil, ErrKeysNotGenerated
	}

	h := Digest(message, priv.N)
	return h.Exp(h, priv.D, priv.N), nil
}

// Verify reports whether signature^e mod n equals the reduced digest of
// message. Signatures outside [0, n) never verify. The error is non-nil only
// when pub is missing.
func Verify(pub *PublicKey, message []byte, signature *big.Int) (bool, error) {
	if pub == nil || pub.N == nil || pub.E == nil {
		return false, ErrVerificationKeyMissing
	}
	if signature == nil || signature.Sign() < 0 || signature.Cmp(pub.N) >= 0 {
		return false, nil
	}

	recovered := new(big.Int).Exp(signature, pub.E, pub.N)
	return recovered.Cmp(Digest(message, pub.N)) == 0, nil
}
