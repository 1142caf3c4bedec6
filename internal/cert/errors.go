package cert

import "errors"

var (
	// ErrMalformedCertificate is returned when armored text, its base64 body
	// or the embedded JSON cannot be decoded into a complete certificate.
	ErrMalformedCertificate = errors.New("malformed certificate")

	// ErrCertificateExpired is returned when the check time is at or after
	// not_after.
	ErrCertificateExpired = errors.New("certificate expired")

	// ErrCertificateNotYetValid is returned when the check time is before
	// not_before.
	ErrCertificateNotYetValid = errors.New("certificate not yet valid")

	// ErrInvalidValidity is returned when a validity window is empty or
	// inverted.
	ErrInvalidValidity = errors.New("invalid validity period")
)
