package rsapq

import (
	"io"
	"log/slog"
	"math/big"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/rsapq/rsapq-go/internal/cert"
	"github.com/rsapq/rsapq-go/internal/crypto"
	"github.com/rsapq/rsapq-go/internal/numtheory"
	"github.com/rsapq/rsapq-go/internal/prng"
	"github.com/rsapq/rsapq-go/internal/store"
)

// RandomSource selects the bit source used for prime candidates.
type RandomSource string

const (
	// SourceBlumBlumShub seeds Blum-Blum-Shub from MT19937 seeded with the
	// clock. It is fully predictable to anyone who knows the seed and is kept
	// for compatibility with existing key material.
	SourceBlumBlumShub RandomSource = "blum-blum-shub"
	// SourceSystem reads the operating system CSPRNG.
	SourceSystem RandomSource = "system"
	// SourceSHAKE256 expands a caller-supplied seed with SHAKE256. Equal
	// seeds give equal keys.
	SourceSHAKE256 RandomSource = "shake256"
)

const (
	defaultKeySize          = 2048
	defaultValidity         = 365 * 24 * time.Hour
	defaultIdentityValidity = 90 * 24 * time.Hour
	maxSerialAttempts       = 3
	serialBytes             = 16
)

// BitSource produces uniformly distributed integers of a requested bit
// width.
type BitSource = prng.Source

// CertificateStore is the certificate table an Engine writes to.
type CertificateStore = store.Store

// engineConfig holds configuration for the engine.
type engineConfig struct {
	keySize          int
	primeRounds      int
	maxPrimeAttempts int
	defaultValidity  time.Duration
	identityValidity time.Duration

	sourceKind   RandomSource
	seed         *uint32
	blumP, blumQ *big.Int
	systemReader io.Reader
	xofSeed      []byte
	bitSource    BitSource

	keys         *KeyPair
	serialReader io.Reader
	timeStyle    cert.TimeStyle
	clock        func() time.Time
	logger       *slog.Logger
	macKey       crypto.MACKeyDerivation
	store        CertificateStore
	ownsStore    bool
	registerer   prometheus.Registerer
}

// certificateConfig holds configuration for a single issuance.
type certificateConfig struct {
	issuer   string
	validity time.Duration
}

// Option configures the engine.
type Option func(*engineConfig)

// CertificateOption configures certificate issuance.
type CertificateOption func(*certificateConfig)

func defaultEngineConfig() *engineConfig {
	p, q := prng.DefaultBlumPrimes()
	return &engineConfig{
		keySize:          defaultKeySize,
		primeRounds:      numtheory.DefaultRounds,
		maxPrimeAttempts: numtheory.DefaultMaxAttempts,
		defaultValidity:  defaultValidity,
		identityValidity: defaultIdentityValidity,
		sourceKind:       SourceBlumBlumShub,
		blumP:            p,
		blumQ:            q,
		clock:            time.Now,
		macKey:           crypto.LegacyMACKey,
	}
}

// WithKeySize sets the modulus size used when GenerateKeys is called with
// zero bits and for identities.
// Default: 2048
func WithKeySize(bits int) Option {
	return func(c *engineConfig) {
		c.keySize = bits
	}
}

// WithPrimeRounds sets the Miller-Rabin witness count per candidate.
// Default: 20
func WithPrimeRounds(rounds int) Option {
	return func(c *engineConfig) {
		c.primeRounds = rounds
	}
}

// WithMaxPrimeAttempts bounds the candidates drawn per prime.
// Default: 10000
func WithMaxPrimeAttempts(n int) Option {
	return func(c *engineConfig) {
		c.maxPrimeAttempts = n
	}
}

// WithSeed fixes the MT19937 seed of the Blum-Blum-Shub source instead of
// deriving it from the clock.
func WithSeed(seed uint32) Option {
	return func(c *engineConfig) {
		c.seed = &seed
	}
}

// WithBlumPrimes sets the two primes (each 3 mod 4) whose product is the
// Blum-Blum-Shub modulus. WithBlumPrimes(big.NewInt(499), big.NewInt(547))
// reproduces the legacy parameters, which cannot supply primes of 256 bits
// or more.
func WithBlumPrimes(p, q *big.Int) Option {
	return func(c *engineConfig) {
		c.blumP, c.blumQ = p, q
	}
}

// WithRandomSource supplies a bit source directly, overriding the other
// source options.
func WithRandomSource(src BitSource) Option {
	return func(c *engineConfig) {
		c.bitSource = src
	}
}

// WithSystemRandom draws prime candidates from r, or from crypto/rand when r
// is nil.
func WithSystemRandom(r io.Reader) Option {
	return func(c *engineConfig) {
		c.sourceKind = SourceSystem
		c.systemReader = r
	}
}

// WithDeterministicSeed draws prime candidates from SHAKE256 over seed.
func WithDeterministicSeed(seed []byte) Option {
	return func(c *engineConfig) {
		c.sourceKind = SourceSHAKE256
		c.xofSeed = append([]byte(nil), seed...)
	}
}

// WithKeyPair binds an existing key pair at construction, as if it had been
// returned by GenerateKeys.
func WithKeyPair(kp *KeyPair) Option {
	return func(c *engineConfig) {
		c.keys = kp
	}
}

// WithSerialReader sets the entropy for certificate serial numbers.
// Default: crypto/rand
func WithSerialReader(r io.Reader) Option {
	return func(c *engineConfig) {
		c.serialReader = r
	}
}

// WithClock sets the time source for issuance and validity checks.
// Default: time.Now
func WithClock(clock func() time.Time) Option {
	return func(c *engineConfig) {
		c.clock = clock
	}
}

// WithLogger sets the logger. Its handler is wrapped so that private key
// material is never written. Default: no logging.
func WithLogger(logger *slog.Logger) Option {
	return func(c *engineConfig) {
		c.logger = logger
	}
}

// WithMACKeyDerivation sets how a MAC key is derived from a private key when
// the caller supplies none.
// Default: LegacyMACKey
func WithMACKeyDerivation(fn MACKeyDerivation) Option {
	return func(c *engineConfig) {
		c.macKey = fn
	}
}

// WithStore sets the certificate table. The engine does not close a store
// supplied this way.
// Default: an in-memory store
func WithStore(s CertificateStore) Option {
	return func(c *engineConfig) {
		c.store = s
		c.ownsStore = false
	}
}

// WithMetricsRegisterer registers the engine's Prometheus collectors with
// reg. Without it no metrics are collected.
func WithMetricsRegisterer(reg prometheus.Registerer) Option {
	return func(c *engineConfig) {
		c.registerer = reg
	}
}

// WithDefaultValidity sets the validity period of issued certificates.
// Default: 365 days
func WithDefaultValidity(d time.Duration) Option {
	return func(c *engineConfig) {
		c.defaultValidity = d
	}
}

// WithIdentityValidity sets the validity period of identity certificates.
// Default: 90 days
func WithIdentityValidity(d time.Duration) Option {
	return func(c *engineConfig) {
		c.identityValidity = d
	}
}

// WithOffsetTimestamps writes certificate validity and envelope timestamps
// in UTC with a "+00:00" offset instead of naive local time. Verifiers that
// compare against a naive local clock reject the offset form.
// Default: naive local time
func WithOffsetTimestamps() Option {
	return func(c *engineConfig) {
		c.timeStyle = cert.OffsetUTC
	}
}

// WithIssuer names the issuer recorded in the certificate. The certificate
// is still signed with the engine's own key.
// Default: the subject (self-signed)
func WithIssuer(issuer string) CertificateOption {
	return func(c *certificateConfig) {
		c.issuer = issuer
	}
}

// WithValidityDays sets the validity period in whole days.
func WithValidityDays(days int) CertificateOption {
	return func(c *certificateConfig) {
		c.validity = time.Duration(days) * 24 * time.Hour
	}
}

// WithValidity sets the validity period.
func WithValidity(d time.Duration) CertificateOption {
	return func(c *certificateConfig) {
		c.validity = d
	}
}

func (c *engineConfig) validate() error {
	var errs []string
	if c.keySize < crypto.MinKeyBits || c.keySize%2 != 0 {
		errs = append(errs, "key size must be an even number of at least 16 bits")
	}
	if c.primeRounds < 1 {
		errs = append(errs, "prime rounds must be at least 1")
	}
	if c.maxPrimeAttempts < 1 {
		errs = append(errs, "max prime attempts must be at least 1")
	}
	if c.defaultValidity <= 0 {
		errs = append(errs, "default validity must be positive")
	}
	if c.identityValidity <= 0 {
		errs = append(errs, "identity validity must be positive")
	}
	if c.clock == nil {
		errs = append(errs, "clock must not be nil")
	}
	if c.macKey == nil {
		errs = append(errs, "MAC key derivation must not be nil")
	}
	if c.keys != nil && !completeKeyPair(c.keys) {
		errs = append(errs, "key pair must carry n, e and d")
	}
	if c.bitSource == nil {
		switch c.sourceKind {
		case SourceBlumBlumShub:
			if c.blumP == nil || c.blumQ == nil {
				errs = append(errs, "Blum primes must not be nil")
			}
		case SourceSystem:
		case SourceSHAKE256:
			if len(c.xofSeed) == 0 {
				errs = append(errs, "deterministic seed must not be empty")
			}
		default:
			errs = append(errs, "unknown random source "+string(c.sourceKind))
		}
	}
	if len(errs) > 0 {
		return &ValidationError{Errors: errs}
	}
	return nil
}

func completeKeyPair(kp *KeyPair) bool {
	return kp.Public != nil && kp.Private != nil &&
		kp.Public.N != nil && kp.Public.E != nil &&
		kp.Private.N != nil && kp.Private.D != nil
}

func (c *engineConfig) primeOptions(onCandidate func(*big.Int)) []numtheory.PrimeOption {
	opts := []numtheory.PrimeOption{
		numtheory.WithRounds(c.primeRounds),
		numtheory.WithMaxAttempts(c.maxPrimeAttempts),
	}
	if onCandidate != nil {
		opts = append(opts, numtheory.WithCandidateHook(onCandidate))
	}
	return opts
}
