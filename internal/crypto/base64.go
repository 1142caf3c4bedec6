package crypto

import (
	"encoding/base64"
	"fmt"
	"math/big"
)

// EncodeInt renders v as decimal text and encodes that text with standard
// padded base64.
func EncodeInt(v *big.Int) string {
	return ToBase64([]byte(v.String()))
}

// DecodeInt reverses EncodeInt. The base64 must be canonical and the decoded
// text must consist of decimal digits only.
func DecodeInt(s string) (*big.Int, error) {
	raw, err := base64.StdEncoding.Strict().DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidEncoding, err)
	}
	if len(raw) == 0 {
		return nil, fmt.Errorf("%w: empty integer", ErrInvalidEncoding)
	}
	for _, c := range raw {
		if c < '0' || c > '9' {
			return nil, fmt.Errorf("%w: non-decimal integer text", ErrInvalidEncoding)
		}
	}

	v, ok := new(big.Int).SetString(string(raw), 10)
	if !ok {
		return nil, fmt.Errorf("%w: non-decimal integer text", ErrInvalidEncoding)
	}
	return v, nil
}

// ToBase64 encodes bytes to standard base64 with padding.
func ToBase64(data []byte) string {
	return base64.StdEncoding.EncodeToString(data)
}

// FromBase64 decodes standard base64 (with padding) to bytes.
func FromBase64(s string) ([]byte, error) {
	return base64.StdEncoding.DecodeString(s)
}
