package crypto

import "errors"

var (
	// ErrKeysNotGenerated is returned when an operation needs a key that has
	// not been generated or supplied.
	ErrKeysNotGenerated = errors.New("keys not generated")

	// ErrInvalidKeySize is returned for modulus sizes that are odd or below
	// MinKeyBits.
	ErrInvalidKeySize = errors.New("invalid key size")

	// ErrNoValidExponent is returned when neither 65537 nor 3 is coprime to
	// phi(n).
	ErrNoValidExponent = errors.New("no valid public exponent")

	// ErrPlaintextTooLarge is returned when the plaintext integer is not
	// below the modulus.
	ErrPlaintextTooLarge = errors.New("plaintext too large for modulus")

	// ErrInvalidCiphertext is returned when a ciphertext cannot be decoded or
	// does not decrypt to valid UTF-8 text.
	ErrInvalidCiphertext = errors.New("invalid ciphertext")

	// ErrInvalidEncoding is returned when transport text is not base64 of a
	// non-negative decimal integer.
	ErrInvalidEncoding = errors.New("invalid encoding")

	// ErrSignatureVerificationFailed is returned when a signature does not
	// match its message.
	ErrSignatureVerificationFailed = errors.New("signature verification failed")

	// ErrVerificationKeyMissing is returned when no verification key is
	// available.
	ErrVerificationKeyMissing = errors.New("verification key missing")

	// ErrMACKeyUnavailable is returned when a MAC key cannot be derived.
	ErrMACKeyUnavailable = errors.New("MAC key unavailable")

	// ErrMACVerificationFailed is returned when a MAC tag does not match.
	ErrMACVerificationFailed = errors.New("MAC verification failed")
)
