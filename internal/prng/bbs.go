package prng

import "math/big"

var (
	bigOne   = big.NewInt(1)
	bigTwo   = big.NewInt(2)
	bigThree = big.NewInt(3)
	bigFour  = big.NewInt(4)
)

// BlumBlumShub is the quadratic-residue bit generator x(i+1) = x(i)^2 mod n.
type BlumBlumShub struct {
	modulus *big.Int
	state   *big.Int
}

// NewBlumBlumShub creates a generator over n = p*q. Both primes must be
// congruent to 3 mod 4. The initial state is seed^2 mod n; a state of 0 or 1
// would make the sequence constant and is replaced by 2.
func NewBlumBlumShub(p, q, seed *big.Int) (*BlumBlumShub, error) {
	if !isBlumPrime(p) || !isBlumPrime(q) {
		return nil, ErrInvalidModulus
	}
	if seed == nil {
		seed = new(big.Int)
	}

	modulus := new(big.Int).Mul(p, q)
	state := new(big.Int).Mul(seed, seed)
	state.Mod(state, modulus)
	if state.Cmp(bigOne) <= 0 {
		state.Set(bigTwo)
	}

	return &BlumBlumShub{modulus: modulus, state: state}, nil
}

func isBlumPrime(p *big.Int) bool {
	if p == nil || p.Cmp(bigThree) < 0 {
		return false
	}
	return new(big.Int).Mod(p, bigFour).Cmp(bigThree) == 0
}

// Modulus returns a copy of n.
func (b *BlumBlumShub) Modulus() *big.Int {
	return new(big.Int).Set(b.modulus)
}

// NextBit advances the state by one squaring and returns its low bit.
func (b *BlumBlumShub) NextBit() uint {
	b.state.Mul(b.state, b.state)
	b.state.Mod(b.state, b.modulus)
	return b.state.Bit(0)
}

// Bits composes width successive bits, most significant first.
func (b *BlumBlumShub) Bits(width int) *big.Int {
	result := new(big.Int)
	for i := width - 1; i >= 0; i-- {
		if b.NextBit() == 1 {
			result.SetBit(result, i, 1)
		}
	}
	return result
}
