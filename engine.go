package rsapq

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math/big"
	"strings"
	"sync"
	"time"

	"github.com/rsapq/rsapq-go/internal/cert"
	"github.com/rsapq/rsapq-go/internal/crypto"
	"github.com/rsapq/rsapq-go/internal/logging"
	"github.com/rsapq/rsapq-go/internal/prng"
	"github.com/rsapq/rsapq-go/internal/store"
)

// Engine owns one key pair, the bit source used to generate it and the
// certificate table of everything it issues. It is safe for concurrent use:
// bit extraction and serial reads are serialized, and each key generation
// draws its whole candidate stream under one lock.
type Engine struct {
	cfg     *engineConfig
	src     *prng.Locked
	store   CertificateStore
	logger  *slog.Logger
	metrics *metrics

	serialMu sync.Mutex
	serials  io.Reader

	mu     sync.RWMutex
	keys   *KeyPair
	closed bool
}

// New creates an engine. No key is bound until GenerateKeys is called.
func New(opts ...Option) (*Engine, error) {
	cfg := defaultEngineConfig()
	for _, opt := range opts {
		opt(cfg)
	}
	return newEngine(cfg)
}

func newEngine(cfg *engineConfig) (*Engine, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	src, err := cfg.newBitSource()
	if err != nil {
		return nil, wrapError("new engine", err)
	}

	m, err := newMetrics(cfg.registerer)
	if err != nil {
		return nil, wrapError("new engine", fmt.Errorf("register metrics: %w", err))
	}

	e := &Engine{
		cfg:     cfg,
		src:     prng.NewLocked(src),
		serials: cfg.serialReader,
		store:   cfg.store,
		logger:  logging.Discard(),
		metrics: m,
		keys:    cfg.keys,
	}
	if e.serials == nil {
		e.serials = rand.Reader
	}
	if e.store == nil {
		e.store = store.NewMemory()
	}
	if cfg.logger != nil {
		e.logger = slog.New(logging.WrapHandler(cfg.logger.Handler()))
	}
	return e, nil
}

func (c *engineConfig) newBitSource() (prng.Source, error) {
	if c.bitSource != nil {
		return c.bitSource, nil
	}

	switch c.sourceKind {
	case SourceSystem:
		return prng.NewSystemSource(c.systemReader), nil
	case SourceSHAKE256:
		return prng.NewXOFSource(c.xofSeed), nil
	default:
		seed := uint32(c.clock().Unix())
		if c.seed != nil {
			seed = *c.seed
		}
		return prng.NewSeededSource(seed, c.blumP, c.blumQ)
	}
}

// Close releases the certificate store when the engine opened it.
func (e *Engine) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed {
		return nil
	}
	e.closed = true
	if e.cfg.ownsStore {
		return e.store.Close()
	}
	return nil
}

// GenerateKeys generates a key pair of bits (the configured key size when
// bits is 0) and binds it to the engine, replacing any previous pair.
// Certificates issued under the old pair stay in the store.
func (e *Engine) GenerateKeys(bits int) (*KeyPair, error) {
	kp, err := e.generateKeyPair(bits)
	if err != nil {
		return nil, wrapError("generate keys", err)
	}

	e.mu.Lock()
	e.keys = kp
	e.mu.Unlock()
	return kp, nil
}

func (e *Engine) generateKeyPair(bits int) (*KeyPair, error) {
	if bits == 0 {
		bits = e.cfg.keySize
	}

	var candidates int
	opts := e.cfg.primeOptions(func(*big.Int) {
		candidates++
		e.metrics.candidate()
	})

	start := time.Now()
	var (
		kp  *KeyPair
		err error
	)
	e.src.Do(func(src prng.Source) {
		kp, err = crypto.GenerateKeyPair(src, bits, opts...)
	})
	elapsed := time.Since(start)

	if err != nil {
		e.logger.Error("key generation failed", "bits", bits, "candidates", candidates, "error", err)
		return nil, err
	}

	e.metrics.observeKeyGeneration(elapsed.Seconds())
	e.logger.Info("key pair generated",
		"bits", bits,
		"duration", elapsed,
		"public_exponent", kp.Public.E.Int64(),
		"key_id", crypto.KeyID(kp.Public),
		"candidates", candidates,
	)
	return kp, nil
}

// KeyPair returns the bound key pair, or nil before GenerateKeys.
func (e *Engine) KeyPair() *KeyPair {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.keys
}

// PublicKey returns a copy of the bound public key.
func (e *Engine) PublicKey() (*PublicKey, error) {
	kp, err := e.boundKeys("public key")
	if err != nil {
		return nil, err
	}
	return kp.Public.Clone(), nil
}

func (e *Engine) boundKeys(op string) (*KeyPair, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if e.keys == nil {
		return nil, wrapError(op, ErrKeysNotGenerated)
	}
	return e.keys, nil
}

// Encrypt encrypts plaintext for recipient, or for the bound key when
// recipient is nil.
func (e *Engine) Encrypt(plaintext string, recipient *PublicKey) (string, error) {
	if recipient == nil {
		kp, err := e.boundKeys("encrypt")
		if err != nil {
			return "", err
		}
		recipient = kp.Public
	}
	return Encrypt(recipient, plaintext)
}

// Decrypt decrypts ciphertext with the bound private key.
func (e *Engine) Decrypt(ciphertext string) (string, error) {
	kp, err := e.boundKeys("decrypt")
	if err != nil {
		return "", err
	}
	return Decrypt(kp.Private, ciphertext)
}

// Sign signs message with the bound private key.
func (e *Engine) Sign(message string) (string, error) {
	kp, err := e.boundKeys("sign")
	if err != nil {
		return "", err
	}
	return Sign(kp.Private, message)
}

// Verify checks signature against pub, or against the bound key when pub is
// nil. Mismatches return false; the error reports only a missing key.
func (e *Engine) Verify(message, signature string, pub *PublicKey) (bool, error) {
	if pub == nil {
		kp, err := e.boundKeys("verify signature")
		if err != nil {
			return false, wrapError("verify signature", ErrVerificationKeyMissing)
		}
		pub = kp.Public
	}

	ok, err := VerifySignature(pub, message, signature)
	if err == nil && !ok {
		e.logger.Debug("signature rejected", "key_id", crypto.KeyID(pub))
	}
	return ok, err
}

// DeriveMACKey applies the configured MAC key derivation to priv, or to the
// bound private key when priv is nil.
func (e *Engine) DeriveMACKey(priv *PrivateKey) ([]byte, error) {
	if priv == nil {
		kp, err := e.boundKeys("derive MAC key")
		if err != nil {
			return nil, wrapError("derive MAC key", fmt.Errorf("%w: %w", ErrMACKeyUnavailable, err))
		}
		priv = kp.Private
	}

	key, err := e.cfg.macKey(priv)
	if err != nil {
		return nil, wrapError("derive MAC key", err)
	}
	return key, nil
}

// ComputeMAC returns the MAC of data under key, deriving the key from the
// bound private key when key is nil.
func (e *Engine) ComputeMAC(data string, key []byte) (string, error) {
	if key == nil {
		var err error
		if key, err = e.DeriveMACKey(nil); err != nil {
			return "", err
		}
	}
	return ComputeMAC(key, data), nil
}

// VerifyMAC reports whether tag is the MAC of data under key, deriving the
// key as ComputeMAC does.
func (e *Engine) VerifyMAC(data, tag string, key []byte) (bool, error) {
	if key == nil {
		var err error
		if key, err = e.DeriveMACKey(nil); err != nil {
			return false, err
		}
	}

	ok := VerifyMAC(key, data, tag)
	if !ok {
		e.logger.Debug("MAC rejected")
	}
	return ok, nil
}

// IssueCertificate issues a certificate for subject over the bound public
// key, signs it with the bound private key, stores it and returns its
// armored text.
func (e *Engine) IssueCertificate(ctx context.Context, subject string, opts ...CertificateOption) (string, error) {
	kp, err := e.boundKeys("issue certificate")
	if err != nil {
		return "", err
	}

	cc := &certificateConfig{validity: e.cfg.defaultValidity}
	for _, opt := range opts {
		opt(cc)
	}

	_, text, err := e.issue(ctx, kp, subject, cc)
	if err != nil {
		return "", wrapError("issue certificate", err)
	}
	return text, nil
}

func (e *Engine) issue(ctx context.Context, kp *KeyPair, subject string, cc *certificateConfig) (*Certificate, string, error) {
	if err := e.checkOpen(); err != nil {
		return nil, "", err
	}
	if strings.TrimSpace(subject) == "" {
		return nil, "", fmt.Errorf("%w: empty subject", ErrInvalidConfig)
	}
	if cc.validity <= 0 {
		return nil, "", fmt.Errorf("%w: %s", ErrInvalidValidity, cc.validity)
	}

	notBefore := e.cfg.clock()
	notAfter := notBefore.Add(cc.validity)

	var lastErr error
	for attempt := 0; attempt < maxSerialAttempts; attempt++ {
		serial, err := e.newSerial()
		if err != nil {
			return nil, "", err
		}

		c, err := cert.New(cert.Template{
			SerialNumber: serial,
			Subject:      subject,
			Issuer:       cc.issuer,
			NotBefore:    notBefore,
			NotAfter:     notAfter,
			PublicKey:    kp.Public,
			KeySize:      kp.Bits,
			TimeStyle:    e.cfg.timeStyle,
		})
		if err != nil {
			return nil, "", err
		}
		if err := c.Sign(kp.Private); err != nil {
			return nil, "", err
		}

		err = e.store.Put(ctx, c)
		if errors.Is(err, store.ErrDuplicateSerial) {
			lastErr = err
			e.logger.Warn("serial collision, reissuing", "serial_number", serial, "attempt", attempt+1)
			continue
		}
		if err != nil {
			return nil, "", err
		}

		text, err := cert.Encode(c)
		if err != nil {
			return nil, "", err
		}

		e.metrics.issued()
		e.logger.Info("certificate issued",
			"subject", c.Subject,
			"serial_number", c.SerialNumber,
			"not_after", c.NotAfter,
			"key_id", crypto.KeyID(kp.Public),
		)
		return c, text, nil
	}
	return nil, "", lastErr
}

func (e *Engine) newSerial() (string, error) {
	buf := make([]byte, serialBytes)

	e.serialMu.Lock()
	_, err := io.ReadFull(e.serials, buf)
	e.serialMu.Unlock()
	if err != nil {
		return "", fmt.Errorf("read serial entropy: %w", err)
	}
	return hex.EncodeToString(buf), nil
}

func (e *Engine) checkOpen() error {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if e.closed {
		return ErrEngineClosed
	}
	return nil
}

// CheckCertificate decodes an armored certificate, checks its validity
// window against the engine clock and verifies its signature. The signature
// is checked against key, or against the bound public key when key is nil
// and the certificate is self-signed. The decoded certificate is returned
// only when every check passes.
func (e *Engine) CheckCertificate(text string, key *PublicKey) (*Certificate, error) {
	c, err := cert.Decode(text)
	if err != nil {
		return nil, wrapError("check certificate", err)
	}

	if err := c.CheckValidity(e.cfg.clock()); err != nil {
		return nil, wrapError("check certificate", err)
	}

	if key == nil {
		if !c.IsSelfSigned() {
			return nil, wrapError("check certificate",
				fmt.Errorf("%w: issuer %q is not the subject", ErrVerificationKeyMissing, c.Issuer))
		}
		kp, err := e.boundKeys("check certificate")
		if err != nil {
			return nil, wrapError("check certificate", ErrVerificationKeyMissing)
		}
		key = kp.Public
	}

	if err := c.VerifySignature(key); err != nil {
		return nil, wrapError("check certificate", err)
	}
	return c, nil
}

// VerifyCertificate reports whether CheckCertificate accepts text. Every
// failure, including malformed input, is logged and returned as false.
func (e *Engine) VerifyCertificate(text string, key *PublicKey) bool {
	_, err := e.CheckCertificate(text, key)
	if err == nil {
		e.metrics.verified(resultValid)
		return true
	}

	result := resultInvalid
	switch {
	case errors.Is(err, ErrCertificateExpired):
		result = resultExpired
	case errors.Is(err, ErrCertificateNotYetValid):
		result = resultNotYetValid
	case errors.Is(err, ErrMalformedCertificate):
		result = resultMalformed
	}
	e.metrics.verified(result)
	e.logger.Warn("certificate rejected", "reason", err.Error(), "result", result)
	return false
}

// InspectCertificate reads the descriptive fields of an armored certificate
// without verifying anything.
func (e *Engine) InspectCertificate(text string) (*CertificateSummary, error) {
	return InspectCertificate(text)
}

// InspectCertificate reads the descriptive fields of an armored certificate
// without verifying anything.
func InspectCertificate(text string) (*CertificateSummary, error) {
	c, err := cert.Decode(text)
	if err != nil {
		return nil, wrapError("inspect certificate", err)
	}
	s := c.Summary()
	return &s, nil
}

// Certificate returns the stored certificate with the given serial.
func (e *Engine) Certificate(ctx context.Context, serial string) (*Certificate, error) {
	if err := e.checkOpen(); err != nil {
		return nil, wrapError("get certificate", err)
	}
	c, err := e.store.Get(ctx, serial)
	if err != nil {
		return nil, wrapError("get certificate", err)
	}
	return c, nil
}

// Certificates returns every stored certificate in issuance order.
func (e *Engine) Certificates(ctx context.Context) ([]*Certificate, error) {
	if err := e.checkOpen(); err != nil {
		return nil, wrapError("list certificates", err)
	}
	cs, err := e.store.List(ctx)
	if err != nil {
		return nil, wrapError("list certificates", err)
	}
	return cs, nil
}

// DecodeCertificate parses armored certificate text without verifying it.
func DecodeCertificate(text string) (*Certificate, error) {
	c, err := cert.Decode(text)
	if err != nil {
		return nil, wrapError("decode certificate", err)
	}
	return c, nil
}

// EncodeCertificate returns the armored text of c.
func EncodeCertificate(c *Certificate) (string, error) {
	text, err := cert.Encode(c)
	if err != nil {
		return "", wrapError("encode certificate", err)
	}
	return text, nil
}
