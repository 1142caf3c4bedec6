package prng

import "errors"

// ErrInvalidModulus is returned when a Blum-Blum-Shub prime is not congruent
// to 3 modulo 4.
var ErrInvalidModulus = errors.New("invalid modulus: primes must be congruent to 3 mod 4")
