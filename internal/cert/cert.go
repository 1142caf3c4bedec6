package cert

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"math/big"
	"strconv"
	"strings"
	"time"

	"github.com/rsapq/rsapq-go/internal/crypto"
)

// Version is the certificate format version written at issuance.
const Version = 3

// PublicKeyInfo is the embedded public key. The integers are kept as decimal
// text.
type PublicKeyInfo struct {
	Algorithm string `json:"algorithm"`
	KeySize   int    `json:"key_size"`
	N         string `json:"n"`
	E         string `json:"e"`
}

// Certificate is the decoded certificate record. Field order matches the
// armored JSON layout.
type Certificate struct {
	Version            int           `json:"version"`
	SerialNumber       string        `json:"serial_number"`
	Subject            string        `json:"subject"`
	Issuer             string        `json:"issuer"`
	NotBefore          string        `json:"not_before"`
	NotAfter           string        `json:"not_after"`
	PublicKey          PublicKeyInfo `json:"public_key"`
	SignatureAlgorithm string        `json:"signature_algorithm"`
	Signature          string        `json:"signature"`
	Fingerprint        string        `json:"fingerprint"`
}

// Template describes a certificate to be issued.
type Template struct {
	SerialNumber string
	Subject      string
	Issuer       string
	NotBefore    time.Time
	NotAfter     time.Time
	PublicKey    *crypto.PublicKey
	KeySize      int
	TimeStyle    TimeStyle
}

// New builds an unsigned certificate from t. An empty issuer makes the
// certificate self-signed.
func New(t Template) (*Certificate, error) {
	if t.PublicKey == nil || t.PublicKey.N == nil || t.PublicKey.E == nil {
		return nil, crypto.ErrKeysNotGenerated
	}
	if !t.NotAfter.After(t.NotBefore) {
		return nil, fmt.Errorf("%w: not_after %s is not after not_before %s",
			ErrInvalidValidity, FormatTime(t.NotAfter), FormatTime(t.NotBefore))
	}

	issuer := t.Issuer
	if issuer == "" {
		issuer = t.Subject
	}

	return &Certificate{
		Version:      Version,
		SerialNumber: t.SerialNumber,
		Subject:      t.Subject,
		Issuer:       issuer,
		NotBefore:    t.TimeStyle.Format(t.NotBefore),
		NotAfter:     t.TimeStyle.Format(t.NotAfter),
		PublicKey: PublicKeyInfo{
			Algorithm: crypto.PublicKeyAlgorithm,
			KeySize:   t.KeySize,
			N:         t.PublicKey.N.String(),
			E:         t.PublicKey.E.String(),
		},
		SignatureAlgorithm: crypto.SignatureAlgorithm,
	}, nil
}

// SignedPayload returns the canonical byte string covered by both the
// signature and the fingerprint.
func (c *Certificate) SignedPayload() []byte {
	return []byte(strings.Join([]string{
		strconv.Itoa(c.Version),
		c.SerialNumber,
		c.Subject,
		c.Issuer,
		c.NotBefore,
		c.NotAfter,
		c.PublicKey.N,
		c.PublicKey.E,
		c.SignatureAlgorithm,
	}, "|"))
}

// Fingerprint returns the lowercase hex SHA-256 of payload.
func Fingerprint(payload []byte) string {
	sum := sha256.Sum256(payload)
	return hex.EncodeToString(sum[:])
}

// Sign signs the canonical payload with priv and records the transport
// encoded signature together with the payload fingerprint.
func (c *Certificate) Sign(priv *crypto.PrivateKey) error {
	payload := c.SignedPayload()

	sig, err := crypto.Sign(priv, payload)
	if err != nil {
		return err
	}

	c.Signature = crypto.EncodeInt(sig)
	c.Fingerprint = Fingerprint(payload)
	return nil
}

// VerifySignature checks the signature over the canonical payload rebuilt
// from the current field values. The fingerprint is not consulted.
func (c *Certificate) VerifySignature(pub *crypto.PublicKey) error {
	if pub == nil || pub.N == nil || pub.E == nil {
		return crypto.ErrVerificationKeyMissing
	}

	sig, err := crypto.DecodeInt(c.Signature)
	if err != nil {
		return fmt.Errorf("%w: signature: %w", ErrMalformedCertificate, err)
	}

	ok, err := crypto.Verify(pub, c.SignedPayload(), sig)
	if err != nil {
		return err
	}
	if !ok {
		return crypto.ErrSignatureVerificationFailed
	}
	return nil
}

// Key parses the embedded public key.
func (c *Certificate) Key() (*crypto.PublicKey, error) {
	n, err := parseDecimal(c.PublicKey.N)
	if err != nil {
		return nil, fmt.Errorf("%w: public key n: %w", ErrMalformedCertificate, err)
	}
	e, err := parseDecimal(c.PublicKey.E)
	if err != nil {
		return nil, fmt.Errorf("%w: public key e: %w", ErrMalformedCertificate, err)
	}
	if n.Sign() == 0 || e.Sign() == 0 {
		return nil, fmt.Errorf("%w: zero public key component", ErrMalformedCertificate)
	}
	return &crypto.PublicKey{N: n, E: e}, nil
}

// Validity parses the validity window.
func (c *Certificate) Validity() (notBefore, notAfter time.Time, err error) {
	if notBefore, err = ParseTime(c.NotBefore); err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("%w: not_before: %w", ErrMalformedCertificate, err)
	}
	if notAfter, err = ParseTime(c.NotAfter); err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("%w: not_after: %w", ErrMalformedCertificate, err)
	}
	return notBefore, notAfter, nil
}

// CheckValidity reports whether now falls inside [not_before, not_after).
func (c *Certificate) CheckValidity(now time.Time) error {
	notBefore, notAfter, err := c.Validity()
	if err != nil {
		return err
	}
	if now.Before(notBefore) {
		return fmt.Errorf("%w: valid from %s", ErrCertificateNotYetValid, c.NotBefore)
	}
	if !now.Before(notAfter) {
		return fmt.Errorf("%w: valid until %s", ErrCertificateExpired, c.NotAfter)
	}
	return nil
}

// IsSelfSigned reports whether the issuer names the subject.
func (c *Certificate) IsSelfSigned() bool {
	return c.Issuer == c.Subject
}

func parseDecimal(s string) (*big.Int, error) {
	if s == "" {
		return nil, fmt.Errorf("empty integer")
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return nil, fmt.Errorf("non-decimal integer %q", s)
		}
	}
	v, ok := new(big.Int).SetString(s, 10)
	if !ok {
		return nil, fmt.Errorf("non-decimal integer %q", s)
	}
	return v, nil
}
