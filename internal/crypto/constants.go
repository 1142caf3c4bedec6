package crypto

const (
	// DefaultPublicExponent is tried first during key generation.
	DefaultPublicExponent = 65537
	// FallbackPublicExponent is used when 65537 shares a factor with phi(n).
	FallbackPublicExponent = 3

	// MinKeyBits is the smallest modulus size accepted by GenerateKeyPair.
	MinKeyBits = 16

	// PublicKeyAlgorithm names the key type embedded in certificates.
	PublicKeyAlgorithm = "RSA-PQ"
	// SignatureAlgorithm names the digest-then-exponentiate signature scheme.
	SignatureAlgorithm = "RSA-PQ-SHA256"

	// MACContext is the HKDF info label for derived MAC keys.
	MACContext = "rsapq:mac:v1"
	// MACKeySize is the length of HKDF-derived MAC keys in bytes.
	MACKeySize = 32

	// KeyIDPrefix starts every textual key identifier.
	KeyIDPrefix = "rpq1"

	// maxDistinctPrimeRetries bounds the redraws of q while it equals p.
	maxDistinctPrimeRetries = 64
)
