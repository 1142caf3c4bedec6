package cert

import "github.com/rsapq/rsapq-go/internal/crypto"

// Summary is the unverified descriptive view of a certificate.
type Summary struct {
	Subject            string `json:"subject"`
	Issuer             string `json:"issuer"`
	SerialNumber       string `json:"serial_number"`
	NotBefore          string `json:"not_before"`
	NotAfter           string `json:"not_after"`
	Fingerprint        string `json:"fingerprint"`
	KeySize            int    `json:"key_size"`
	Algorithm          string `json:"algorithm"`
	SignatureAlgorithm string `json:"signature_algorithm"`
	KeyID              string `json:"key_id,omitempty"`
}

// Summary reads the descriptive fields of c. Nothing is verified; KeyID is
// empty when the embedded key does not parse.
func (c *Certificate) Summary() Summary {
	s := Summary{
		Subject:            c.Subject,
		Issuer:             c.Issuer,
		SerialNumber:       c.SerialNumber,
		NotBefore:          c.NotBefore,
		NotAfter:           c.NotAfter,
		Fingerprint:        c.Fingerprint,
		KeySize:            c.PublicKey.KeySize,
		Algorithm:          c.PublicKey.Algorithm,
		SignatureAlgorithm: c.SignatureAlgorithm,
	}
	if key, err := c.Key(); err == nil {
		s.KeyID = crypto.KeyID(key)
	}
	return s
}
