package prng

import (
	"crypto/rand"
	"fmt"
	"io"
	"math/big"
	"sync"

	"github.com/cloudflare/circl/xof"
)

// xofDomain separates SHAKE256 streams produced here from other uses of the
// same seed.
const xofDomain = "rsapq:prng:v1"

// Source produces unsigned integers drawn uniformly from [0, 2^width).
type Source interface {
	Bits(width int) *big.Int
}

// Blum primes of the default fixed modulus. Both are safe primes congruent to
// 3 mod 4, which keeps the squaring cycle long enough for 1024-bit primes.
const (
	defaultBlumP = "2305843009213699919"
	defaultBlumQ = "2305844108725322447"
)

// Legacy Blum primes. Their product has a squaring cycle of at most 492
// states, which caps prime search well below 256 bits.
const (
	legacyBlumP = 499
	legacyBlumQ = 547
)

// DefaultBlumPrimes returns fresh copies of the default fixed Blum primes.
func DefaultBlumPrimes() (p, q *big.Int) {
	p, _ = new(big.Int).SetString(defaultBlumP, 10)
	q, _ = new(big.Int).SetString(defaultBlumQ, 10)
	return p, q
}

// LegacyBlumPrimes returns the small Blum primes 499 and 547.
func LegacyBlumPrimes() (p, q *big.Int) {
	return big.NewInt(legacyBlumP), big.NewInt(legacyBlumQ)
}

// NewSeededSource mixes seed through MT19937 and seeds a Blum-Blum-Shub
// generator over p*q with the first output word.
func NewSeededSource(seed uint32, p, q *big.Int) (*BlumBlumShub, error) {
	mixed := NewMersenneTwister(seed).Next()
	return NewBlumBlumShub(p, q, new(big.Int).SetUint64(uint64(mixed)))
}

// SystemSource draws bits from an io.Reader, crypto/rand by default.
type SystemSource struct {
	r io.Reader
}

// NewSystemSource returns a source reading from r. A nil reader selects
// crypto/rand.Reader.
func NewSystemSource(r io.Reader) *SystemSource {
	if r == nil {
		r = rand.Reader
	}
	return &SystemSource{r: r}
}

// Bits implements Source. It panics if the underlying reader fails, matching
// crypto/rand's own behaviour on entropy failure.
func (s *SystemSource) Bits(width int) *big.Int {
	v, err := readBits(s.r, width)
	if err != nil {
		panic(fmt.Sprintf("prng: system source read failed: %v", err))
	}
	return v
}

// XOFSource is a deterministic source expanding a seed with SHAKE256.
type XOFSource struct {
	x xof.XOF
}

// NewXOFSource absorbs seed and returns a source squeezing from it. Equal
// seeds yield equal output streams.
func NewXOFSource(seed []byte) *XOFSource {
	x := xof.SHAKE256.New()
	_, _ = x.Write([]byte(xofDomain))
	_, _ = x.Write(seed)
	return &XOFSource{x: x}
}

// Bits implements Source.
func (s *XOFSource) Bits(width int) *big.Int {
	// squeezing a SHAKE state never fails
	v, _ := readBits(s.x, width)
	return v
}

func readBits(r io.Reader, width int) (*big.Int, error) {
	if width <= 0 {
		return new(big.Int), nil
	}

	buf := make([]byte, (width+7)/8)
	if _, err := io.ReadFull(r, buf); err != nil {
		return nil, err
	}

	v := new(big.Int).SetBytes(buf)
	return v.Rsh(v, uint(len(buf)*8-width)), nil
}

// Locked serializes access to a Source.
type Locked struct {
	mu  sync.Mutex
	src Source
}

// NewLocked wraps src. Wrapping an already locked source returns it as is.
func NewLocked(src Source) *Locked {
	if l, ok := src.(*Locked); ok {
		return l
	}
	return &Locked{src: src}
}

// Bits implements Source.
func (l *Locked) Bits(width int) *big.Int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.src.Bits(width)
}

// Do runs fn with exclusive use of the wrapped source, so a multi-step
// consumer such as prime search sees an uninterleaved stream.
func (l *Locked) Do(fn func(src Source)) {
	l.mu.Lock()
	defer l.mu.Unlock()
	fn(l.src)
}
