package crypto

import (
	"encoding/binary"

	"github.com/mr-tron/base58/base58"
	"golang.org/x/crypto/blake2b"
)

// KeyID returns "rpq1" followed by the base58 BLAKE2b-256 digest of the
// length-prefixed modulus and exponent.
func KeyID(pub *PublicKey) string {
	if pub == nil || pub.N == nil || pub.E == nil {
		return ""
	}

	n, e := pub.N.Bytes(), pub.E.Bytes()
	buf := make([]byte, 0, 8+len(n)+len(e))
	buf = binary.BigEndian.AppendUint32(buf, uint32(len(n)))
	buf = append(buf, n...)
	buf = binary.BigEndian.AppendUint32(buf, uint32(len(e)))
	buf = append(buf, e...)

	sum := blake2b.Sum256(buf)
	return KeyIDPrefix + base58.Encode(sum[:])
}
