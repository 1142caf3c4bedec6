package crypto

import (
	"fmt"
	"math/big"

	"github.com/rsapq/rsapq-go/internal/numtheory"
	"github.com/rsapq/rsapq-go/internal/prng"
)

var bigOne = big.NewInt(1)

// PublicKey is the public half (n, e) of an RSA key pair.
type PublicKey struct {
	N *big.Int
	E *big.Int
}

// PrivateKey is the private half (n, d) of an RSA key pair.
type PrivateKey struct {
	N *big.Int
	D *big.Int
}

// KeyPair holds both halves of a generated key together with the requested
// modulus size.
type KeyPair struct {
	Public  *PublicKey
	Private *PrivateKey
	// Bits is the modulus size requested at generation time.
	Bits int
}

// Size returns the bit length of the modulus.
func (k *PublicKey) Size() int {
	if k == nil || k.N == nil {
		return 0
	}
	return k.N.BitLen()
}

// Equal reports whether k and other hold the same modulus and exponent.
func (k *PublicKey) Equal(other *PublicKey) bool {
	if k == nil || other == nil {
		return k == other
	}
	return k.N.Cmp(other.N) == 0 && k.E.Cmp(other.E) == 0
}

// Clone returns a deep copy of the public key.
func (k *PublicKey) Clone() *PublicKey {
	return &PublicKey{N: new(big.Int).Set(k.N), E: new(big.Int).Set(k.E)}
}

// GenerateKeyPair draws two distinct bits/2-wide primes from src and derives
// an RSA key pair. The public exponent is 65537, or 3 when 65537 shares a
// factor with phi(n). Options are forwarded to the prime search.
func GenerateKeyPair(src prng.Source, bits int, opts ...numtheory.PrimeOption) (*KeyPair, error) {
	if bits < MinKeyBits || bits%2 != 0 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidKeySize, bits)
	}

	p, err := numtheory.GeneratePrime(src, bits/2, opts...)
	if err != nil {
		return nil, fmt.Errorf("generate p: %w", err)
	}

	q, err := numtheory.GeneratePrime(src, bits/2, opts...)
	if err != nil {
		return nil, fmt.Errorf("generate q: %w", err)
	}
	for i := 0; p.Cmp(q) == 0; i++ {
		if i >= maxDistinctPrimeRetries {
			return nil, fmt.Errorf("%w: q kept colliding with p", numtheory.ErrPrimeGenerationExhausted)
		}
		if q, err = numtheory.GeneratePrime(src, bits/2, opts...); err != nil {
			return nil, fmt.Errorf("generate q: %w", err)
		}
	}

	return keyPairFromPrimes(p, q, bits)
}

func keyPairFromPrimes(p, q *big.Int, bits int) (*KeyPair, error) {
	n := new(big.Int).Mul(p, q)
	phi := new(big.Int).Mul(
		new(big.Int).Sub(p, bigOne),
		new(big.Int).Sub(q, bigOne),
	)

	e, err := choosePublicExponent(phi)
	if err != nil {
		return nil, err
	}

	d, err := numtheory.ModInverse(e, phi)
	if err != nil {
		return nil, fmt.Errorf("private exponent: %w", err)
	}

	return &KeyPair{
		Public:  &PublicKey{N: n, E: e},
		Private: &PrivateKey{N: new(big.Int).Set(n), D: d},
		Bits:    bits,
	}, nil
}

func choosePublicExponent(phi *big.Int) (*big.Int, error) {
	for _, candidate := range []int64{DefaultPublicExponent, FallbackPublicExponent} {
		e := big.NewInt(candidate)
		if numtheory.GCD(e, phi).Cmp(bigOne) == 0 {
			return e, nil
		}
	}
	return nil, ErrNoValidExponent
}
