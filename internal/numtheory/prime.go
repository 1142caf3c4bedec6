package numtheory

import (
	"fmt"
	"math/big"

	"github.com/rsapq/rsapq-go/internal/prng"
)

const (
	// DefaultRounds is the number of Miller-Rabin witnesses per test.
	DefaultRounds = 20

	// DefaultMaxAttempts bounds the candidates drawn by GeneratePrime.
	DefaultMaxAttempts = 10000

	// witnessBits is the width of each raw witness draw.
	witnessBits = 32
)

// IsProbablePrime runs the Miller-Rabin test with rounds witnesses of the
// form 2 + (bits mod (n-3)) drawn from src. A rounds value below 1 selects
// DefaultRounds. A single failing witness proves n composite.
func IsProbablePrime(src prng.Source, n *big.Int, rounds int) bool {
	if n.Cmp(bigTwo) < 0 {
		return false
	}
	if n.Cmp(bigTwo) == 0 || n.Cmp(bigThree) == 0 {
		return true
	}
	if n.Bit(0) == 0 {
		return false
	}
	if rounds < 1 {
		rounds = DefaultRounds
	}

	// n-1 = 2^r * d with d odd
	nMinusOne := new(big.Int).Sub(n, bigOne)
	r := nMinusOne.TrailingZeroBits()
	d := new(big.Int).Rsh(nMinusOne, r)

	span := new(big.Int).Sub(n, bigThree)
	a := new(big.Int)
	x := new(big.Int)

	for i := 0; i < rounds; i++ {
		a.Mod(src.Bits(witnessBits), span)
		a.Add(a, bigTwo)

		x.Exp(a, d, n)
		if x.Cmp(bigOne) == 0 || x.Cmp(nMinusOne) == 0 {
			continue
		}

		witnessed := false
		for j := uint(0); j+1 < r; j++ {
			x.Exp(x, bigTwo, n)
			if x.Cmp(nMinusOne) == 0 {
				witnessed = true
				break
			}
		}
		if !witnessed {
			return false
		}
	}

	return true
}

type primeConfig struct {
	rounds      int
	maxAttempts int
	onCandidate func(candidate *big.Int)
}

// PrimeOption configures GeneratePrime.
type PrimeOption func(*primeConfig)

// WithRounds sets the Miller-Rabin witness count.
func WithRounds(rounds int) PrimeOption {
	return func(c *primeConfig) {
		c.rounds = rounds
	}
}

// WithMaxAttempts sets the candidate bound.
func WithMaxAttempts(n int) PrimeOption {
	return func(c *primeConfig) {
		c.maxAttempts = n
	}
}

// WithCandidateHook registers fn to observe every candidate before testing.
func WithCandidateHook(fn func(candidate *big.Int)) PrimeOption {
	return func(c *primeConfig) {
		c.onCandidate = fn
	}
}

// GeneratePrime draws bits-wide candidates from src, clamps each into
// [2^(bits-1), 2^bits - 1], forces it odd and returns the first that passes
// IsProbablePrime.
func GeneratePrime(src prng.Source, bits int, opts ...PrimeOption) (*big.Int, error) {
	if bits < 2 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidBitLength, bits)
	}

	cfg := &primeConfig{
		rounds:      DefaultRounds,
		maxAttempts: DefaultMaxAttempts,
	}
	for _, opt := range opts {
		opt(cfg)
	}
	if cfg.maxAttempts < 1 {
		cfg.maxAttempts = DefaultMaxAttempts
	}

	minValue := new(big.Int).Lsh(bigOne, uint(bits-1))
	maxValue := new(big.Int).Lsh(bigOne, uint(bits))
	maxValue.Sub(maxValue, bigOne)

	for attempt := 0; attempt < cfg.maxAttempts; attempt++ {
		candidate := src.Bits(bits)
		if candidate.Cmp(minValue) < 0 {
			candidate.Set(minValue)
		}
		if candidate.Cmp(maxValue) > 0 {
			candidate.Set(maxValue)
		}
		candidate.SetBit(candidate, 0, 1)

		if cfg.onCandidate != nil {
			cfg.onCandidate(candidate)
		}

		if IsProbablePrime(src, candidate, cfg.rounds) {
			return candidate, nil
		}
	}

	return nil, fmt.Errorf("%w: no %d-bit prime after %d attempts",
		ErrPrimeGenerationExhausted, bits, cfg.maxAttempts)
}

