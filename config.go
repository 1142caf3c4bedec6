package rsapq

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"math/big"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/rsapq/rsapq-go/internal/cert"
	"github.com/rsapq/rsapq-go/internal/logging"
	"github.com/rsapq/rsapq-go/internal/numtheory"
	"github.com/rsapq/rsapq-go/internal/store"
)

// MAC key derivation names accepted in configuration.
const (
	MACDerivationLegacy = "legacy"
	MACDerivationHKDF   = "hkdf"
)

// Config is the file and environment form of the engine options.
type Config struct {
	KeySize           int           `yaml:"keySize"`
	PrimeRounds       int           `yaml:"primeRounds"`
	MaxPrimeAttempts  int           `yaml:"maxPrimeAttempts"`
	RandomSource      RandomSource  `yaml:"randomSource"`
	Seed              *uint32       `yaml:"seed"`
	DeterministicSeed string        `yaml:"deterministicSeed"`
	BlumPrimes        []string      `yaml:"blumPrimes"`
	MACKeyDerivation  string        `yaml:"macKeyDerivation"`
	DefaultValidity   time.Duration `yaml:"defaultValidity"`
	IdentityValidity  time.Duration `yaml:"identityValidity"`
	OffsetTimestamps  bool          `yaml:"offsetTimestamps"`
	Store             StoreConfig   `yaml:"store"`
	Log               LogConfig     `yaml:"log"`
}

// StoreConfig selects the certificate table.
type StoreConfig struct {
	Driver string `yaml:"driver"`
	DSN    string `yaml:"dsn"`
}

// LogConfig enables logging to stderr. An empty level disables logging.
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// DefaultConfig returns the configuration equivalent to New with no options.
func DefaultConfig() Config {
	return Config{
		KeySize:          defaultKeySize,
		PrimeRounds:      numtheory.DefaultRounds,
		MaxPrimeAttempts: numtheory.DefaultMaxAttempts,
		RandomSource:     SourceBlumBlumShub,
		MACKeyDerivation: MACDerivationLegacy,
		DefaultValidity:  defaultValidity,
		IdentityValidity: defaultIdentityValidity,
		Store:            StoreConfig{Driver: store.DriverMemory},
		Log:              LogConfig{Format: logging.FormatText},
	}
}

// LoadConfig reads YAML configuration from path, or from the first of
// rsapq.yaml and configs/rsapq.yaml that exists when path is empty, merges
// it onto DefaultConfig and applies RSAPQ_* environment overrides. A missing
// default file is not an error.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()

	candidates := []string{path}
	if path == "" {
		candidates = []string{"rsapq.yaml", "configs/rsapq.yaml"}
	}

	for _, candidate := range candidates {
		data, err := os.ReadFile(candidate)
		if errors.Is(err, fs.ErrNotExist) && path == "" {
			continue
		}
		if err != nil {
			return Config{}, wrapError("load config", fmt.Errorf("%w: %w", ErrInvalidConfig, err))
		}

		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, wrapError("load config", fmt.Errorf("%w: %s: %w", ErrInvalidConfig, candidate, err))
		}
		break
	}

	if err := ApplyEnvOverrides(&cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// ApplyEnvOverrides overwrites cfg from RSAPQ_KEY_SIZE, RSAPQ_RANDOM_SOURCE,
// RSAPQ_SEED, RSAPQ_DETERMINISTIC_SEED, RSAPQ_OFFSET_TIMESTAMPS,
// RSAPQ_MAC_KEY_DERIVATION, RSAPQ_STORE_DRIVER, RSAPQ_STORE_DSN,
// RSAPQ_LOG_LEVEL and RSAPQ_LOG_FORMAT.
// Unset or blank variables are ignored.
func ApplyEnvOverrides(cfg *Config) error {
	var errs []string

	if raw := env("RSAPQ_KEY_SIZE"); raw != "" {
		if v, err := strconv.Atoi(raw); err != nil {
			errs = append(errs, "RSAPQ_KEY_SIZE: "+err.Error())
		} else {
			cfg.KeySize = v
		}
	}
	if raw := env("RSAPQ_RANDOM_SOURCE"); raw != "" {
		cfg.RandomSource = RandomSource(strings.ToLower(raw))
	}
	if raw := env("RSAPQ_SEED"); raw != "" {
		if v, err := strconv.ParseUint(raw, 10, 32); err != nil {
			errs = append(errs, "RSAPQ_SEED: "+err.Error())
		} else {
			seed := uint32(v)
			cfg.Seed = &seed
		}
	}
	if raw := env("RSAPQ_DETERMINISTIC_SEED"); raw != "" {
		cfg.DeterministicSeed = raw
	}
	if raw := env("RSAPQ_OFFSET_TIMESTAMPS"); raw != "" {
		if v, err := strconv.ParseBool(raw); err != nil {
			errs = append(errs, "RSAPQ_OFFSET_TIMESTAMPS: "+err.Error())
		} else {
			cfg.OffsetTimestamps = v
		}
	}
	if raw := env("RSAPQ_MAC_KEY_DERIVATION"); raw != "" {
		cfg.MACKeyDerivation = strings.ToLower(raw)
	}
	if raw := env("RSAPQ_STORE_DRIVER"); raw != "" {
		cfg.Store.Driver = strings.ToLower(raw)
	}
	if raw := env("RSAPQ_STORE_DSN"); raw != "" {
		cfg.Store.DSN = raw
	}
	if raw := env("RSAPQ_LOG_LEVEL"); raw != "" {
		cfg.Log.Level = raw
	}
	if raw := env("RSAPQ_LOG_FORMAT"); raw != "" {
		cfg.Log.Format = raw
	}

	if len(errs) > 0 {
		return &ValidationError{Errors: errs}
	}
	return nil
}

func env(key string) string {
	return strings.TrimSpace(os.Getenv(key))
}

// openStore opens the store named in configuration. Tests replace it.
var openStore = store.Open

// NewFromConfig builds an engine from cfg. The store named by cfg.Store is
// opened here and closed by Engine.Close. opts are applied after cfg and
// take precedence.
func NewFromConfig(ctx context.Context, cfg Config, opts ...Option) (*Engine, error) {
	ec := defaultEngineConfig()
	if err := cfg.apply(ec); err != nil {
		return nil, err
	}
	for _, opt := range opts {
		opt(ec)
	}
	if err := ec.validate(); err != nil {
		return nil, err
	}

	if ec.store == nil {
		s, err := openStore(ctx, cfg.Store.Driver, cfg.Store.DSN)
		if err != nil {
			return nil, wrapError("new engine", err)
		}
		ec.store = s
		ec.ownsStore = true
	}

	e, err := newEngine(ec)
	if err != nil {
		if ec.ownsStore {
			if cerr := ec.store.Close(); cerr != nil {
				err = errors.Join(err, fmt.Errorf("close store: %w", cerr))
			}
		}
		return nil, err
	}
	return e, nil
}

func (cfg Config) apply(ec *engineConfig) error {
	var errs []string

	ec.keySize = cfg.KeySize
	ec.primeRounds = cfg.PrimeRounds
	ec.maxPrimeAttempts = cfg.MaxPrimeAttempts
	ec.defaultValidity = cfg.DefaultValidity
	ec.identityValidity = cfg.IdentityValidity
	ec.seed = cfg.Seed
	if cfg.OffsetTimestamps {
		ec.timeStyle = cert.OffsetUTC
	}

	switch cfg.RandomSource {
	case "", SourceBlumBlumShub:
		ec.sourceKind = SourceBlumBlumShub
	case SourceSystem:
		ec.sourceKind = SourceSystem
	case SourceSHAKE256:
		ec.sourceKind = SourceSHAKE256
		ec.xofSeed = []byte(cfg.DeterministicSeed)
	default:
		errs = append(errs, "unknown random source "+string(cfg.RandomSource))
	}

	if len(cfg.BlumPrimes) > 0 {
		p, q, err := parseBlumPrimes(cfg.BlumPrimes)
		if err != nil {
			errs = append(errs, err.Error())
		} else {
			ec.blumP, ec.blumQ = p, q
		}
	}

	switch cfg.MACKeyDerivation {
	case "", MACDerivationLegacy:
		ec.macKey = LegacyMACKey
	case MACDerivationHKDF:
		ec.macKey = HKDFMACKey
	default:
		errs = append(errs, "unknown MAC key derivation "+cfg.MACKeyDerivation)
	}

	if cfg.Log.Level != "" {
		level, err := logging.ParseLevel(cfg.Log.Level)
		if err != nil {
			errs = append(errs, err.Error())
		} else {
			ec.logger = logging.New(os.Stderr, level, cfg.Log.Format)
		}
	}

	if len(errs) > 0 {
		return &ValidationError{Errors: errs}
	}
	return nil
}

func parseBlumPrimes(raw []string) (p, q *big.Int, err error) {
	if len(raw) != 2 {
		return nil, nil, fmt.Errorf("blumPrimes needs exactly two values, got %d", len(raw))
	}
	var ok bool
	if p, ok = new(big.Int).SetString(strings.TrimSpace(raw[0]), 10); !ok {
		return nil, nil, fmt.Errorf("blumPrimes: %q is not a decimal integer", raw[0])
	}
	if q, ok = new(big.Int).SetString(strings.TrimSpace(raw[1]), 10); !ok {
		return nil, nil, fmt.Errorf("blumPrimes: %q is not a decimal integer", raw[1])
	}
	return p, q, nil
}
