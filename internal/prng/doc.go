// Package prng implements the pseudo-random chain that feeds prime search.
//
// The chain has two stages:
//
//   - [MersenneTwister] (MT19937) mixes a coarse time seed into a single
//     32-bit word. It is never used for key material directly.
//
//   - [BlumBlumShub] squares a residue modulo a fixed Blum integer and emits
//     the low bit of each new state. [NewSeededSource] wires the two together.
//
// The construction is predictable to anyone who can factor the fixed modulus
// or guess the seed. [SystemSource] (crypto/rand) and [XOFSource] (SHAKE256)
// implement the same [Source] interface for callers that need real entropy or
// reproducible output.
//
// Sources are not safe for concurrent use. Wrap a source in [Locked] when it
// is shared.
package prng
