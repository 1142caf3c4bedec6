package rsapq

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/rsapq/rsapq-go/internal/cert"
)

type envelopeFixture struct {
	engine *Engine
	clock  *fakeClock
	alice  *Identity
	bob    *Identity
	macKey []byte
}

func newEnvelopeFixture(t *testing.T) *envelopeFixture {
	t.Helper()

	clock := newFakeClock(epoch)
	e, err := New(
		WithKeySize(512),
		WithDeterministicSeed([]byte("envelope")),
		WithClock(clock.Now),
	)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	t.Cleanup(func() { e.Close() })

	ctx := context.Background()
	alice, err := e.InitializeIdentity(ctx, "alice")
	if err != nil {
		t.Fatalf("InitializeIdentity(alice) error = %v", err)
	}
	bob, err := e.InitializeIdentity(ctx, "bob")
	if err != nil {
		t.Fatalf("InitializeIdentity(bob) error = %v", err)
	}

	macKey, err := e.DeriveMACKey(alice.Keys.Private)
	if err != nil {
		t.Fatalf("DeriveMACKey() error = %v", err)
	}

	return &envelopeFixture{engine: e, clock: clock, alice: alice, bob: bob, macKey: macKey}
}

func (f *envelopeFixture) seal(t *testing.T, plaintext string) *SecureEnvelope {
	t.Helper()
	env, err := f.engine.Seal(f.alice, "bob", f.bob.PublicKey(), plaintext, nil)
	if err != nil {
		t.Fatalf("Seal() error = %v", err)
	}
	return env
}

func TestInitializeIdentity(t *testing.T) {
	f := newEnvelopeFixture(t)

	if f.engine.KeyPair() != nil {
		t.Error("InitializeIdentity bound a key to the engine")
	}
	if f.alice.PublicKey().Equal(f.bob.PublicKey()) {
		t.Error("identities share a key")
	}
	if f.alice.Keys.Bits != 512 {
		t.Errorf("Bits = %d, want 512", f.alice.Keys.Bits)
	}

	s, err := InspectCertificate(f.alice.Certificate)
	if err != nil {
		t.Fatalf("InspectCertificate() error = %v", err)
	}
	if s.Subject != "CN=alice" || s.Issuer != "CN=alice" {
		t.Errorf("Subject/Issuer = %q/%q", s.Subject, s.Issuer)
	}
	if s.NotAfter != cert.FormatTime(epoch.Add(90*24*time.Hour)) {
		t.Errorf("NotAfter = %s, want 90 days after issuance", s.NotAfter)
	}
	if s.KeyID != KeyID(f.alice.PublicKey()) {
		t.Error("certificate does not embed the identity key")
	}

	all, err := f.engine.Certificates(context.Background())
	if err != nil {
		t.Fatalf("Certificates() error = %v", err)
	}
	if len(all) != 2 {
		t.Errorf("Certificates() = %d, want 2", len(all))
	}
}

func TestIdentity_NilPublicKey(t *testing.T) {
	var id *Identity
	if id.PublicKey() != nil {
		t.Error("nil identity returned a key")
	}
	if (&Identity{Name: "x"}).PublicKey() != nil {
		t.Error("identity without keys returned a key")
	}
}

func TestSeal_Open(t *testing.T) {
	f := newEnvelopeFixture(t)
	env := f.seal(t, "meet at noon")

	if env.Sender != "alice" || env.Recipient != "bob" {
		t.Errorf("Sender/Recipient = %q/%q", env.Sender, env.Recipient)
	}
	if env.Timestamp != cert.FormatTime(epoch) {
		t.Errorf("Timestamp = %s", env.Timestamp)
	}
	if env.SenderCertificate != f.alice.Certificate {
		t.Error("envelope does not carry the sender certificate")
	}
	if env.MAC != ComputeMAC(f.macKey, env.Ciphertext) {
		t.Error("MAC is not computed over the ciphertext with the derived key")
	}

	got, err := f.engine.Open(f.bob, f.alice.PublicKey(), env, f.macKey)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	if got != "meet at noon" {
		t.Errorf("Open() = %q, want %q", got, "meet at noon")
	}
}

func TestSeal_ExplicitMACKey(t *testing.T) {
	f := newEnvelopeFixture(t)
	shared := []byte("pre-shared")

	env, err := f.engine.Seal(f.alice, "bob", f.bob.PublicKey(), "hi", shared)
	if err != nil {
		t.Fatalf("Seal() error = %v", err)
	}
	if _, err := f.engine.Open(f.bob, f.alice.PublicKey(), env, f.macKey); !errors.Is(err, ErrMACInvalid) {
		t.Errorf("Open(derived key) error = %v, want ErrMACInvalid", err)
	}
	if got, err := f.engine.Open(f.bob, f.alice.PublicKey(), env, shared); err != nil || got != "hi" {
		t.Errorf("Open(shared key) = %q, %v", got, err)
	}
}

func TestSeal_Errors(t *testing.T) {
	f := newEnvelopeFixture(t)

	if _, err := f.engine.Seal(nil, "bob", f.bob.PublicKey(), "x", nil); !errors.Is(err, ErrKeysNotGenerated) {
		t.Errorf("Seal(nil sender) error = %v, want ErrKeysNotGenerated", err)
	}
	if _, err := f.engine.Seal(f.alice, "bob", nil, "x", nil); !errors.Is(err, ErrKeysNotGenerated) {
		t.Errorf("Seal(nil recipient key) error = %v, want ErrKeysNotGenerated", err)
	}
	long := strings.Repeat("z", 80)
	if _, err := f.engine.Seal(f.alice, "bob", f.bob.PublicKey(), long, nil); !errors.Is(err, ErrPlaintextTooLarge) {
		t.Errorf("Seal(oversized) error = %v, want ErrPlaintextTooLarge", err)
	}
}

func TestOpen_Rejections(t *testing.T) {
	f := newEnvelopeFixture(t)
	ctx := context.Background()

	mallory, err := f.engine.InitializeIdentity(ctx, "mallory")
	if err != nil {
		t.Fatalf("InitializeIdentity(mallory) error = %v", err)
	}

	// A certificate signed by alice that embeds bob's key.
	swapped, err := cert.New(cert.Template{
		SerialNumber: "00ff",
		Subject:      "CN=alice",
		NotBefore:    epoch,
		NotAfter:     epoch.Add(time.Hour),
		PublicKey:    f.bob.PublicKey(),
		KeySize:      512,
	})
	if err != nil {
		t.Fatalf("cert.New() error = %v", err)
	}
	if err := swapped.Sign(f.alice.Keys.Private); err != nil {
		t.Fatalf("Sign() error = %v", err)
	}
	swappedText, err := EncodeCertificate(swapped)
	if err != nil {
		t.Fatalf("EncodeCertificate() error = %v", err)
	}

	otherSig, err := Sign(f.alice.Keys.Private, "something else")
	if err != nil {
		t.Fatalf("Sign() error = %v", err)
	}
	// Encrypted for bob and MACed correctly, but the plaintext differs from
	// what was signed.
	forged, err := Encrypt(f.bob.PublicKey(), "forged")
	if err != nil {
		t.Fatalf("Encrypt() error = %v", err)
	}

	tests := []struct {
		name      string
		senderKey *PublicKey
		mutate    func(env *SecureEnvelope)
		wantErr   error
		wantKind  Kind
	}{
		{
			name:      "wrong sender key",
			senderKey: mallory.PublicKey(),
			wantErr:   ErrSignatureInvalid,
			wantKind:  KindVerification,
		},
		{
			name:      "certificate embeds another key",
			senderKey: f.alice.PublicKey(),
			mutate:    func(env *SecureEnvelope) { env.SenderCertificate = swappedText },
			wantErr:   ErrKeyMismatch,
			wantKind:  KindVerification,
		},
		{
			name:      "malformed certificate",
			senderKey: f.alice.PublicKey(),
			mutate:    func(env *SecureEnvelope) { env.SenderCertificate = "garbage" },
			wantErr:   ErrMalformedCertificate,
			wantKind:  KindEncoding,
		},
		{
			name:      "tampered ciphertext",
			senderKey: f.alice.PublicKey(),
			mutate:    func(env *SecureEnvelope) { env.Ciphertext = forged },
			wantErr:   ErrMACInvalid,
			wantKind:  KindVerification,
		},
		{
			name:      "tampered MAC",
			senderKey: f.alice.PublicKey(),
			mutate:    func(env *SecureEnvelope) { env.MAC = ComputeMAC(f.macKey, "x") },
			wantErr:   ErrMACInvalid,
			wantKind:  KindVerification,
		},
		{
			name:      "signature over another message",
			senderKey: f.alice.PublicKey(),
			mutate:    func(env *SecureEnvelope) { env.Signature = otherSig },
			wantErr:   ErrSignatureInvalid,
			wantKind:  KindVerification,
		},
		{
			name:      "forged plaintext with valid MAC",
			senderKey: f.alice.PublicKey(),
			mutate: func(env *SecureEnvelope) {
				env.Ciphertext = forged
				env.MAC = ComputeMAC(f.macKey, forged)
			},
			wantErr:  ErrSignatureInvalid,
			wantKind: KindVerification,
		},
		{
			name:     "missing sender key",
			wantErr:  ErrVerificationKeyMissing,
			wantKind: KindConfiguration,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := f.seal(t, "the real message")
			if tt.mutate != nil {
				tt.mutate(env)
			}

			_, err := f.engine.Open(f.bob, tt.senderKey, env, f.macKey)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("Open() error = %v, want %v", err, tt.wantErr)
			}
			if KindOf(err) != tt.wantKind {
				t.Errorf("KindOf() = %v, want %v", KindOf(err), tt.wantKind)
			}
		})
	}
}

func TestOpen_ExpiredSenderCertificate(t *testing.T) {
	f := newEnvelopeFixture(t)
	env := f.seal(t, "late")

	f.clock.Advance(91 * 24 * time.Hour)

	_, err := f.engine.Open(f.bob, f.alice.PublicKey(), env, f.macKey)
	if !errors.Is(err, ErrCertificateExpired) {
		t.Errorf("Open() error = %v, want ErrCertificateExpired", err)
	}
}

func TestOpen_MissingInputs(t *testing.T) {
	f := newEnvelopeFixture(t)
	env := f.seal(t, "x")

	tests := []struct {
		name      string
		recipient *Identity
		env       *SecureEnvelope
		macKey    []byte
		wantErr   error
	}{
		{"nil recipient", nil, env, f.macKey, ErrKeysNotGenerated},
		{"nil envelope", f.bob, nil, f.macKey, ErrInvalidEncoding},
		{"nil MAC key", f.bob, env, nil, ErrMACKeyUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.engine.Open(tt.recipient, f.alice.PublicKey(), tt.env, tt.macKey)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Open() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestSecureEnvelope_JSON(t *testing.T) {
	f := newEnvelopeFixture(t)
	env := f.seal(t, "wire")

	data, err := json.Marshal(env)
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}

	var fields map[string]string
	if err := json.Unmarshal(data, &fields); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	for _, key := range []string{"sender", "recipient", "timestamp", "encrypted_message", "signature", "mac", "sender_certificate"} {
		if fields[key] == "" {
			t.Errorf("JSON field %q missing", key)
		}
	}

	var decoded SecureEnvelope
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	got, err := f.engine.Open(f.bob, f.alice.PublicKey(), &decoded, f.macKey)
	if err != nil || got != "wire" {
		t.Errorf("Open(decoded) = %q, %v", got, err)
	}
}
