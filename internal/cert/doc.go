// Package cert implements the self-describing certificate record: its JSON
// layout, the canonical pipe-delimited payload that is both signed and
// fingerprinted, the armored text framing and the validity window check.
//
// A certificate binds a subject name to an RSA public key. Only self-signed
// certificates are issued (issuer equals subject); there are no chains, no
// revocation and no ASN.1 encoding.
//
// The canonical payload is
//
//	version|serial_number|subject|issuer|not_before|not_after|n|e|signature_algorithm
//
// built from the textual fields exactly as they appear in the JSON, so a
// certificate produced by another implementation verifies byte-for-byte
// regardless of how it rendered its timestamps.
package cert
