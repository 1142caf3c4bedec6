// Package crypto provides the raw RSA primitives of the toolkit: key pair
// generation over a caller-supplied random source, textbook encryption and
// signatures, keyed-hash MACs and the text encodings used to transport them.
//
// # Primitives
//
//   - Confidentiality: [Encrypt] computes m^e mod n for the big-endian integer
//     m of the plaintext; [Decrypt] reverses it with d. There is no padding, so
//     encrypting the same plaintext under the same key always yields the same
//     ciphertext.
//
//   - Authentication: [Sign] raises the SHA-256 digest of the message to d. A
//     digest that does not fit below n is first reduced modulo floor(n/2), which
//     weakens the binding between signature and digest for moduli under 256
//     bits. [Verify] recomputes the reduced digest and compares.
//
//   - Integrity: [ComputeMAC] and [VerifyMAC] implement HMAC-SHA-256 with
//     lowercase hex tags.
//
// # MAC Keys
//
// Callers that do not hold a dedicated MAC key derive one from a private key
// through a [MACKeyDerivation]. [LegacyMACKey] uses the decimal text of the
// private exponent itself, reusing signing key material for a second
// primitive. [HKDFMACKey] derives a separate key with HKDF-SHA-256 under the
// [MACContext] label and should be preferred when compatibility with
// existing tags is not required.
//
// # Transport Encoding
//
// Ciphertexts and signatures travel as the decimal text of the integer,
// base64-encoded with the standard padded alphabet ([EncodeInt],
// [DecodeInt]). Decoding is strict: non-zero padding bits, non-digit text and
// empty payloads are rejected.
//
// # Key Identifiers
//
// [KeyID] condenses a public key into a short printable identifier for logs
// and certificate summaries. It is not a substitute for comparing keys.
package crypto
