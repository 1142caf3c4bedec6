package prng

const (
	mtSize      = 624
	mtShift     = 397
	mtMatrixA   = 0x9908b0df
	mtUpperMask = 0x80000000
	mtLowerMask = 0x7fffffff
	mtInitMult  = 1812433253
)

// MersenneTwister is the 32-bit MT19937 generator.
type MersenneTwister struct {
	state [mtSize]uint32
	index int
}

// NewMersenneTwister seeds a generator with the reference initialization.
func NewMersenneTwister(seed uint32) *MersenneTwister {
	mt := &MersenneTwister{index: mtSize}
	mt.state[0] = seed
	for i := 1; i < mtSize; i++ {
		prev := mt.state[i-1]
		mt.state[i] = mtInitMult*(prev^(prev>>30)) + uint32(i)
	}
	return mt
}

// Next returns the next tempered 32-bit output. The state is regenerated
// every 624 extractions.
func (mt *MersenneTwister) Next() uint32 {
	if mt.index >= mtSize {
		mt.twist()
	}

	y := mt.state[mt.index]
	y ^= y >> 11
	y ^= (y << 7) & 0x9d2c5680
	y ^= (y << 15) & 0xefc60000
	y ^= y >> 18

	mt.index++
	return y
}

func (mt *MersenneTwister) twist() {
	for i := 0; i < mtSize; i++ {
		y := (mt.state[i] & mtUpperMask) | (mt.state[(i+1)%mtSize] & mtLowerMask)
		mt.state[i] = mt.state[(i+mtShift)%mtSize] ^ (y >> 1)
		if y&1 != 0 {
			mt.state[i] ^= mtMatrixA
		}
	}
	mt.index = 0
}
