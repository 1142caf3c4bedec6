package cert

import (
	"errors"
	"math/big"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rsapq/rsapq-go/internal/crypto"
	"github.com/rsapq/rsapq-go/internal/prng"
)

var (
	issuedAt = time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	keyOnce sync.Once
	key     *crypto.KeyPair
	keyErr  error
)

// textbookKey is the p=61, q=53 key pair (e=65537, d=2753).
func textbookKey() *crypto.KeyPair {
	return &crypto.KeyPair{
		Public:  &crypto.PublicKey{N: big.NewInt(3233), E: big.NewInt(65537)},
		Private: &crypto.PrivateKey{N: big.NewInt(3233), D: big.NewInt(2753)},
		Bits:    12,
	}
}

func testKey(t *testing.T) *crypto.KeyPair {
	t.Helper()
	keyOnce.Do(func() {
		key, keyErr = crypto.GenerateKeyPair(prng.NewXOFSource([]byte("cert package tests")), 512)
	})
	if keyErr != nil {
		t.Fatalf("GenerateKeyPair() error = %v", keyErr)
	}
	return key
}

func textbookCertificate(t *testing.T) *Certificate {
	t.Helper()
	kp := textbookKey()

	c, err := New(Template{
		SerialNumber: "00112233445566778899aabbccddeeff",
		Subject:      "CN=Test",
		NotBefore:    issuedAt,
		NotAfter:     issuedAt.AddDate(0, 0, 30),
		PublicKey:    kp.Public,
		KeySize:      kp.Bits,
		TimeStyle:    OffsetUTC,
	})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if err := c.Sign(kp.Private); err != nil {
		t.Fatalf("Sign() error = %v", err)
	}
	return c
}

func signedCertificate(t *testing.T, subject string) (*Certificate, *crypto.KeyPair) {
	t.Helper()
	kp := testKey(t)

	c, err := New(Template{
		SerialNumber: "0f0e0d0c0b0a09080706050403020100",
		Subject:      subject,
		NotBefore:    issuedAt,
		NotAfter:     issuedAt.AddDate(0, 0, 30),
		PublicKey:    kp.Public,
		KeySize:      kp.Bits,
	})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if err := c.Sign(kp.Private); err != nil {
		t.Fatalf("Sign() error = %v", err)
	}
	return c, kp
}

func TestNew_Fields(t *testing.T) {
	c := textbookCertificate(t)

	if c.Version != Version {
		t.Errorf("Version = %d, want %d", c.Version, Version)
	}
	if c.Issuer != "CN=Test" || !c.IsSelfSigned() {
		t.Errorf("Issuer = %q, want self-signed", c.Issuer)
	}
	if c.NotBefore != "2026-01-01T00:00:00.000000+00:00" {
		t.Errorf("NotBefore = %q", c.NotBefore)
	}
	if c.NotAfter != "2026-01-31T00:00:00.000000+00:00" {
		t.Errorf("NotAfter = %q", c.NotAfter)
	}
	want := PublicKeyInfo{Algorithm: "RSA-PQ", KeySize: 12, N: "3233", E: "65537"}
	if c.PublicKey != want {
		t.Errorf("PublicKey = %+v, want %+v", c.PublicKey, want)
	}
	if c.SignatureAlgorithm != "RSA-PQ-SHA256" {
		t.Errorf("SignatureAlgorithm = %q", c.SignatureAlgorithm)
	}
}

func TestNew_NaiveLocalTimes(t *testing.T) {
	c, _ := signedCertificate(t, "CN=Naive")

	for name, got := range map[string]string{"NotBefore": c.NotBefore, "NotAfter": c.NotAfter} {
		if strings.ContainsAny(got, "Z+") || strings.Count(got, "-") != 2 {
			t.Errorf("%s = %q, want a naive timestamp without offset", name, got)
		}
	}
	if want := issuedAt.In(time.Local).Format("2006-01-02T15:04:05"); c.NotBefore != want {
		t.Errorf("NotBefore = %q, want %q", c.NotBefore, want)
	}

	notBefore, notAfter, err := c.Validity()
	if err != nil {
		t.Fatalf("Validity() error = %v", err)
	}
	if !notBefore.Equal(issuedAt) || !notAfter.Equal(issuedAt.AddDate(0, 0, 30)) {
		t.Errorf("Validity() = %v, %v, want the issued instants", notBefore, notAfter)
	}
	if err := c.CheckValidity(issuedAt); err != nil {
		t.Errorf("CheckValidity(not_before) error = %v", err)
	}
	if err := c.VerifySignature(testKey(t).Public); err != nil {
		t.Errorf("VerifySignature() error = %v", err)
	}
}

func TestNew_ExplicitIssuer(t *testing.T) {
	c, err := New(Template{
		Subject:   "CN=Leaf",
		Issuer:    "CN=Root",
		NotBefore: issuedAt,
		NotAfter:  issuedAt.Add(time.Hour),
		PublicKey: textbookKey().Public,
	})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if c.Issuer != "CN=Root" || c.IsSelfSigned() {
		t.Errorf("Issuer = %q, IsSelfSigned = %v", c.Issuer, c.IsSelfSigned())
	}
}

func TestNew_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		tmpl    Template
		wantErr error
	}{
		{
			name:    "missing key",
			tmpl:    Template{Subject: "CN=x", NotBefore: issuedAt, NotAfter: issuedAt.Add(time.Hour)},
			wantErr: crypto.ErrKeysNotGenerated,
		},
		{
			name:    "empty window",
			tmpl:    Template{Subject: "CN=x", NotBefore: issuedAt, NotAfter: issuedAt, PublicKey: textbookKey().Public},
			wantErr: ErrInvalidValidity,
		},
		{
			name:    "inverted window",
			tmpl:    Template{Subject: "CN=x", NotBefore: issuedAt, NotAfter: issuedAt.Add(-time.Hour), PublicKey: textbookKey().Public},
			wantErr: ErrInvalidValidity,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(tt.tmpl)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("New() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestSignedPayload(t *testing.T) {
	c := textbookCertificate(t)

	want := "3|00112233445566778899aabbccddeeff|CN=Test|CN=Test|" +
		"2026-01-01T00:00:00.000000+00:00|2026-01-31T00:00:00.000000+00:00|" +
		"3233|65537|RSA-PQ-SHA256"
	if got := string(c.SignedPayload()); got != want {
		t.Errorf("SignedPayload() =\n%s\nwant\n%s", got, want)
	}
}

func TestSign_TextbookVector(t *testing.T) {
	c := textbookCertificate(t)

	if c.Signature != "MjUyOA==" {
		t.Errorf("Signature = %q, want %q", c.Signature, "MjUyOA==")
	}
	if c.Fingerprint != "5e28f4895356a7cb7e2042b6d99b1646dbae58d2af190774c144aa0ff24bc063" {
		t.Errorf("Fingerprint = %q", c.Fingerprint)
	}
	if c.Fingerprint != Fingerprint(c.SignedPayload()) {
		t.Error("fingerprint does not cover the signed payload")
	}
	if err := c.VerifySignature(textbookKey().Public); err != nil {
		t.Errorf("VerifySignature() error = %v", err)
	}
}

func TestVerifySignature_FieldMutations(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(c *Certificate)
	}{
		{"subject", func(c *Certificate) { c.Subject = "CN=Mallory" }},
		{"issuer", func(c *Certificate) { c.Issuer = "CN=Mallory" }},
		{"serial", func(c *Certificate) { c.SerialNumber = "ffffffffffffffffffffffffffffffff" }},
		{"not_before", func(c *Certificate) { c.NotBefore = "2025-01-01T00:00:00.000000+00:00" }},
		{"not_after", func(c *Certificate) { c.NotAfter = "2099-01-01T00:00:00.000000+00:00" }},
		{"modulus", func(c *Certificate) { c.PublicKey.N = "12345" }},
		{"exponent", func(c *Certificate) { c.PublicKey.E = "3" }},
		{"version", func(c *Certificate) { c.Version = 4 }},
		{"signature algorithm", func(c *Certificate) { c.SignatureAlgorithm = "RSA-PQ-SHA512" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, kp := signedCertificate(t, "CN=Test")
			if err := c.VerifySignature(kp.Public); err != nil {
				t.Fatalf("VerifySignature() before mutation error = %v", err)
			}

			tt.mutate(c)
			err := c.VerifySignature(kp.Public)
			if !errors.Is(err, crypto.ErrSignatureVerificationFailed) {
				t.Errorf("VerifySignature() error = %v, want ErrSignatureVerificationFailed", err)
			}
		})
	}
}

func TestVerifySignature_IgnoresFingerprint(t *testing.T) {
	c, kp := signedCertificate(t, "CN=Test")
	c.Fingerprint = strings.Repeat("0", 64)

	if err := c.VerifySignature(kp.Public); err != nil {
		t.Errorf("VerifySignature() error = %v", err)
	}
}

func TestVerifySignature_Errors(t *testing.T) {
	c, kp := signedCertificate(t, "CN=Test")

	if err := c.VerifySignature(nil); !errors.Is(err, crypto.ErrVerificationKeyMissing) {
		t.Errorf("VerifySignature(nil) error = %v, want ErrVerificationKeyMissing", err)
	}

	if err := c.VerifySignature(textbookKey().Public); !errors.Is(err, crypto.ErrSignatureVerificationFailed) {
		t.Errorf("VerifySignature(wrong key) error = %v, want ErrSignatureVerificationFailed", err)
	}

	c.Signature = "not base64!"
	if err := c.VerifySignature(kp.Public); !errors.Is(err, ErrMalformedCertificate) {
		t.Errorf("VerifySignature(garbage) error = %v, want ErrMalformedCertificate", err)
	}
}

func TestKey(t *testing.T) {
	c, kp := signedCertificate(t, "CN=Test")

	got, err := c.Key()
	if err != nil {
		t.Fatalf("Key() error = %v", err)
	}
	if !got.Equal(kp.Public) {
		t.Error("Key() does not match the issuing key")
	}

	for _, n := range []string{"", "-5", "0x10", "12 3", "0"} {
		c.PublicKey.N = n
		if _, err := c.Key(); !errors.Is(err, ErrMalformedCertificate) {
			t.Errorf("Key() with n=%q error = %v, want ErrMalformedCertificate", n, err)
		}
	}
}

func TestCheckValidity(t *testing.T) {
	c := textbookCertificate(t)
	notAfter := issuedAt.AddDate(0, 0, 30)

	tests := []struct {
		name    string
		now     time.Time
		wantErr error
	}{
		{"at not_before", issuedAt, nil},
		{"inside window", issuedAt.Add(24 * time.Hour), nil},
		{"just before not_after", notAfter.Add(-time.Microsecond), nil},
		{"at not_after", notAfter, ErrCertificateExpired},
		{"31 days later", issuedAt.AddDate(0, 0, 31), ErrCertificateExpired},
		{"before not_before", issuedAt.Add(-time.Second), ErrCertificateNotYetValid},
		{"other zone inside window", issuedAt.In(time.FixedZone("UTC+5", 5*3600)).Add(time.Hour), nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := c.CheckValidity(tt.now)
			if tt.wantErr == nil {
				if err != nil {
					t.Errorf("CheckValidity() error = %v", err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("CheckValidity() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestCheckValidity_MalformedTime(t *testing.T) {
	c := textbookCertificate(t)
	c.NotAfter = "next tuesday"

	if err := c.CheckValidity(issuedAt); !errors.Is(err, ErrMalformedCertificate) {
		t.Errorf("CheckValidity() error = %v, want ErrMalformedCertificate", err)
	}
}

func TestSummary(t *testing.T) {
	c := textbookCertificate(t)

	s := c.Summary()
	want := Summary{
		Subject:            "CN=Test",
		Issuer:             "CN=Test",
		SerialNumber:       "00112233445566778899aabbccddeeff",
		NotBefore:          "2026-01-01T00:00:00.000000+00:00",
		NotAfter:           "2026-01-31T00:00:00.000000+00:00",
		Fingerprint:        "5e28f4895356a7cb7e2042b6d99b1646dbae58d2af190774c144aa0ff24bc063",
		KeySize:            12,
		Algorithm:          "RSA-PQ",
		SignatureAlgorithm: "RSA-PQ-SHA256",
		KeyID:              "rpq18Rv9E6CcJQvB3gvjX4x2adSEScpGp9Bkdza3MVZRTwaq",
	}
	if s != want {
		t.Errorf("Summary() =\n%+v\nwant\n%+v", s, want)
	}

	c.PublicKey.N = "garbage"
	if got := c.Summary().KeyID; got != "" {
		t.Errorf("Summary().KeyID = %q for unparseable key, want empty", got)
	}
}
