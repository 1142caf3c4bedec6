// Package numtheory provides the modular arithmetic behind RSA key
// generation: Bezout coefficients, modular inverses, Miller-Rabin primality
// testing and bounded prime search over a prng.Source.
package numtheory

import (
	"errors"
	"math/big"
)

var (
	// ErrNoInverse is returned when gcd(a, m) != 1.
	ErrNoInverse = errors.New("modular inverse does not exist")

	// ErrPrimeGenerationExhausted is returned when no prime is found within
	// the attempt bound.
	ErrPrimeGenerationExhausted = errors.New("prime generation exhausted")

	// ErrInvalidBitLength is returned for prime widths below 2 bits.
	ErrInvalidBitLength = errors.New("invalid prime bit length")
)

var (
	bigOne   = big.NewInt(1)
	bigTwo   = big.NewInt(2)
	bigThree = big.NewInt(3)
)

// ExtendedGCD returns g = gcd(a, b) together with x, y such that a*x + b*y = g.
// ExtendedGCD(a, 0) is (a, 1, 0).
func ExtendedGCD(a, b *big.Int) (g, x, y *big.Int) {
	oldR, r := new(big.Int).Set(a), new(big.Int).Set(b)
	oldS, s := big.NewInt(1), big.NewInt(0)
	oldT, t := big.NewInt(0), big.NewInt(1)

	q := new(big.Int)
	for r.Sign() != 0 {
		q.Div(oldR, r)
		oldR, r = r, new(big.Int).Sub(oldR, new(big.Int).Mul(q, r))
		oldS, s = s, new(big.Int).Sub(oldS, new(big.Int).Mul(q, s))
		oldT, t = t, new(big.Int).Sub(oldT, new(big.Int).Mul(q, t))
	}

	return oldR, oldS, oldT
}

// ModInverse returns the unique d in [0, m) with a*d = 1 (mod m).
func ModInverse(a, m *big.Int) (*big.Int, error) {
	if m.Sign() <= 0 {
		return nil, ErrNoInverse
	}

	g, x, _ := ExtendedGCD(a, m)
	if g.Cmp(bigOne) != 0 {
		return nil, ErrNoInverse
	}

	return x.Mod(x, m), nil
}

// GCD returns gcd(a, b).
func GCD(a, b *big.Int) *big.Int {
	g, _, _ := ExtendedGCD(a, b)
	return g
}
