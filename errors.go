package rsapq

import (
	"errors"
	"fmt"
	"strings"

	"github.com/rsapq/rsapq-go/internal/cert"
	"github.com/rsapq/rsapq-go/internal/crypto"
	"github.com/rsapq/rsapq-go/internal/numtheory"
	"github.com/rsapq/rsapq-go/internal/prng"
	"github.com/rsapq/rsapq-go/internal/store"
)

// Sentinel errors for errors.Is() checks. Most alias the internal package
// errors so that wrapped internal failures match the public names.
var (
	// ErrInvalidModulus is returned when a Blum prime is not 3 mod 4.
	ErrInvalidModulus = prng.ErrInvalidModulus

	// ErrNoInverse is returned when a modular inverse does not exist.
	ErrNoInverse = numtheory.ErrNoInverse

	// ErrPrimeGenerationExhausted is returned when the prime search hits its
	// attempt bound.
	ErrPrimeGenerationExhausted = numtheory.ErrPrimeGenerationExhausted

	// ErrKeysNotGenerated is returned when an operation needs a key that has
	// not been generated.
	ErrKeysNotGenerated = crypto.ErrKeysNotGenerated

	// ErrInvalidKeySize is returned for odd key sizes or sizes below 16 bits.
	ErrInvalidKeySize = crypto.ErrInvalidKeySize

	// ErrNoValidExponent is returned when neither 65537 nor 3 is usable.
	ErrNoValidExponent = crypto.ErrNoValidExponent

	// ErrPlaintextTooLarge is returned when the plaintext does not fit below
	// the modulus.
	ErrPlaintextTooLarge = crypto.ErrPlaintextTooLarge

	// ErrInvalidCiphertext is returned for undecodable ciphertexts and for
	// plaintexts that are not valid UTF-8.
	ErrInvalidCiphertext = crypto.ErrInvalidCiphertext

	// ErrInvalidEncoding is returned for malformed transport text.
	ErrInvalidEncoding = crypto.ErrInvalidEncoding

	// ErrSignatureInvalid is returned when a signature does not verify.
	ErrSignatureInvalid = crypto.ErrSignatureVerificationFailed

	// ErrVerificationKeyMissing is returned when no verification key is
	// supplied or bound.
	ErrVerificationKeyMissing = crypto.ErrVerificationKeyMissing

	// ErrMACKeyUnavailable is returned when no MAC key can be derived.
	ErrMACKeyUnavailable = crypto.ErrMACKeyUnavailable

	// ErrMACInvalid is returned when a MAC tag does not match.
	ErrMACInvalid = crypto.ErrMACVerificationFailed

	// ErrMalformedCertificate is returned for undecodable certificates.
	ErrMalformedCertificate = cert.ErrMalformedCertificate

	// ErrCertificateExpired is returned when a certificate's not_after has
	// passed.
	ErrCertificateExpired = cert.ErrCertificateExpired

	// ErrCertificateNotYetValid is returned before a certificate's not_before.
	ErrCertificateNotYetValid = cert.ErrCertificateNotYetValid

	// ErrInvalidValidity is returned for empty or negative validity periods.
	ErrInvalidValidity = cert.ErrInvalidValidity

	// ErrCertificateNotFound is returned when no stored certificate has the
	// requested serial.
	ErrCertificateNotFound = store.ErrNotFound

	// ErrDuplicateSerial is returned when a serial number is already stored.
	ErrDuplicateSerial = store.ErrDuplicateSerial

	// ErrUnknownStoreDriver is returned for unsupported store drivers.
	ErrUnknownStoreDriver = store.ErrUnknownDriver

	// ErrKeyMismatch is returned when a certificate does not embed the key
	// it is presented with.
	ErrKeyMismatch = errors.New("certificate key mismatch")

	// ErrInvalidConfig is returned when engine configuration is invalid.
	ErrInvalidConfig = errors.New("invalid configuration")

	// ErrEngineClosed is returned when operations are attempted on a closed
	// engine.
	ErrEngineClosed = errors.New("engine has been closed")
)

// RSAPQError is implemented by all errors returned from this package.
type RSAPQError interface {
	error
	RSAPQError() // marker method
}

// Kind classifies a failure.
type Kind int

const (
	// KindUnknown is any failure not covered below.
	KindUnknown Kind = iota
	// KindConfiguration covers invalid parameters and missing keys.
	KindConfiguration
	// KindGenerationExhausted covers bounded searches that gave up.
	KindGenerationExhausted
	// KindEncoding covers oversized plaintexts and malformed transport text
	// or certificates.
	KindEncoding
	// KindTemporalValidity covers certificates outside their validity
	// window.
	KindTemporalValidity
	// KindVerification covers signature, MAC and key binding mismatches.
	KindVerification
	// KindStorage covers certificate table lookups and conflicts.
	KindStorage
)

func (k Kind) String() string {
	switch k {
	case KindConfiguration:
		return "configuration"
	case KindGenerationExhausted:
		return "generation_exhausted"
	case KindEncoding:
		return "encoding"
	case KindTemporalValidity:
		return "temporal_validity"
	case KindVerification:
		return "verification"
	case KindStorage:
		return "storage"
	default:
		return "unknown"
	}
}

// Error carries the failing operation and its Kind.
type Error struct {
	Kind Kind
	Op   string
	Err  error
}

func (e *Error) Error() string {
	if e.Op == "" {
		return fmt.Sprintf("rsapq: %v", e.Err)
	}
	return fmt.Sprintf("rsapq: %s: %v", e.Op, e.Err)
}

// Unwrap returns the underlying error.
func (e *Error) Unwrap() error {
	return e.Err
}

// RSAPQError implements the RSAPQError interface.
func (e *Error) RSAPQError() {}

// ValidationError contains multiple configuration failures.
type ValidationError struct {
	Errors []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed: %s", strings.Join(e.Errors, "; "))
}

// Is implements errors.Is for sentinel error matching.
func (e *ValidationError) Is(target error) bool {
	return target == ErrInvalidConfig
}

// RSAPQError implements the RSAPQError interface.
func (e *ValidationError) RSAPQError() {}

// KindOf returns the Kind of err, classifying unwrapped errors by the
// sentinels they match.
func KindOf(err error) Kind {
	if err == nil {
		return KindUnknown
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return classify(err)
}

var kindTable = []struct {
	kind      Kind
	sentinels []error
}{
	{KindTemporalValidity, []error{ErrCertificateExpired, ErrCertificateNotYetValid}},
	{KindVerification, []error{ErrSignatureInvalid, ErrMACInvalid, ErrKeyMismatch}},
	{KindEncoding, []error{ErrPlaintextTooLarge, ErrInvalidCiphertext, ErrInvalidEncoding, ErrMalformedCertificate}},
	{KindGenerationExhausted, []error{ErrPrimeGenerationExhausted, ErrNoValidExponent}},
	{KindStorage, []error{ErrCertificateNotFound, ErrDuplicateSerial}},
	{KindConfiguration, []error{
		ErrInvalidModulus, ErrNoInverse, ErrKeysNotGenerated, ErrInvalidKeySize,
		numtheory.ErrInvalidBitLength, ErrVerificationKeyMissing, ErrMACKeyUnavailable,
		ErrInvalidValidity, ErrUnknownStoreDriver, ErrInvalidConfig, ErrEngineClosed,
	}},
}

func classify(err error) Kind {
	for _, row := range kindTable {
		for _, sentinel := range row.sentinels {
			if errors.Is(err, sentinel) {
				return row.kind
			}
		}
	}
	return KindUnknown
}

// wrapError attaches op and a Kind to err. Errors that already carry a Kind
// are returned unchanged.
func wrapError(op string, err error) error {
	if err == nil {
		return nil
	}

	var e *Error
	if errors.As(err, &e) {
		return err
	}
	var v *ValidationError
	if errors.As(err, &v) {
		return err
	}

	return &Error{Kind: classify(err), Op: op, Err: err}
}
