package rsapq

import (
	"context"
	"fmt"
)

// Identity is a named key pair with its self-signed certificate.
type Identity struct {
	Name        string
	Keys        *KeyPair
	Certificate string
}

// PublicKey returns the identity's public key.
func (id *Identity) PublicKey() *PublicKey {
	if id == nil || id.Keys == nil {
		return nil
	}
	return id.Keys.Public
}

// SecureEnvelope carries a message encrypted for the recipient, signed by the
// sender and MACed over the ciphertext, together with the sender's
// certificate.
type SecureEnvelope struct {
	Sender            string `json:"sender"`
	Recipient         string `json:"recipient"`
	Timestamp         string `json:"timestamp"`
	Ciphertext        string `json:"encrypted_message"`
	Signature         string `json:"signature"`
	MAC               string `json:"mac"`
	SenderCertificate string `json:"sender_certificate"`
}

// InitializeIdentity generates a fresh key pair for name and issues it a
// self-signed "CN=<name>" certificate. The engine's bound key is not
// touched.
func (e *Engine) InitializeIdentity(ctx context.Context, name string) (*Identity, error) {
	kp, err := e.generateKeyPair(0)
	if err != nil {
		return nil, wrapError("initialize identity", err)
	}

	_, text, err := e.issue(ctx, kp, "CN="+name, &certificateConfig{validity: e.cfg.identityValidity})
	if err != nil {
		return nil, wrapError("initialize identity", err)
	}

	return &Identity{Name: name, Keys: kp, Certificate: text}, nil
}

// Seal encrypts plaintext for recipientKey, signs the plaintext with the
// sender's private key and MACs the ciphertext under macKey. A nil macKey is
// derived from the sender's private key with the configured derivation.
func (e *Engine) Seal(sender *Identity, recipient string, recipientKey *PublicKey, plaintext string, macKey []byte) (*SecureEnvelope, error) {
	if sender == nil || sender.Keys == nil {
		return nil, wrapError("seal", ErrKeysNotGenerated)
	}

	if macKey == nil {
		var err error
		if macKey, err = e.DeriveMACKey(sender.Keys.Private); err != nil {
			return nil, err
		}
	}

	ciphertext, err := Encrypt(recipientKey, plaintext)
	if err != nil {
		return nil, err
	}
	signature, err := Sign(sender.Keys.Private, plaintext)
	if err != nil {
		return nil, err
	}

	return &SecureEnvelope{
		Sender:            sender.Name,
		Recipient:         recipient,
		Timestamp:         e.cfg.timeStyle.Format(e.cfg.clock()),
		Ciphertext:        ciphertext,
		Signature:         signature,
		MAC:               ComputeMAC(macKey, ciphertext),
		SenderCertificate: sender.Certificate,
	}, nil
}

// Open checks the sender certificate against senderKey, then the MAC, then
// decrypts with the recipient's private key and finally verifies the
// signature over the plaintext. The first failing step is returned.
func (e *Engine) Open(recipient *Identity, senderKey *PublicKey, env *SecureEnvelope, macKey []byte) (string, error) {
	const op = "open envelope"

	if recipient == nil || recipient.Keys == nil {
		return "", wrapError(op, ErrKeysNotGenerated)
	}
	if env == nil {
		return "", wrapError(op, fmt.Errorf("%w: nil envelope", ErrInvalidEncoding))
	}
	if senderKey == nil {
		return "", wrapError(op, ErrVerificationKeyMissing)
	}
	if macKey == nil {
		return "", wrapError(op, ErrMACKeyUnavailable)
	}

	c, err := e.CheckCertificate(env.SenderCertificate, senderKey)
	if err != nil {
		return "", err
	}
	embedded, err := c.Key()
	if err != nil {
		return "", wrapError(op, err)
	}
	if !embedded.Equal(senderKey) {
		return "", wrapError(op, fmt.Errorf("%w: sender certificate for %s", ErrKeyMismatch, c.Subject))
	}

	if !VerifyMAC(macKey, env.Ciphertext, env.MAC) {
		return "", wrapError(op, ErrMACInvalid)
	}

	plaintext, err := Decrypt(recipient.Keys.Private, env.Ciphertext)
	if err != nil {
		return "", err
	}

	ok, err := VerifySignature(senderKey, plaintext, env.Signature)
	if err != nil {
		return "", err
	}
	if !ok {
		return "", wrapError(op, ErrSignatureInvalid)
	}

	e.logger.Debug("envelope opened", "sender", env.Sender, "recipient", env.Recipient)
	return plaintext, nil
}
