// Command rsapq exposes the toolkit over JSON on stdin and stdout so that
// other implementations can exchange keys, certificates and messages with it.
//
// Every command reads one JSON Request from stdin and writes one JSON object
// to stdout. Engine settings come from the file named by RSAPQ_CONFIG (or
// rsapq.yaml) and RSAPQ_* variables, which may also be set in a .env file.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math/big"
	"os"
	"time"

	"github.com/joho/godotenv"

	"github.com/rsapq/rsapq-go"
)

// Config holds I/O streams for the command.
type Config struct {
	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer
}

// DefaultConfig returns a Config wired to the process streams.
func DefaultConfig() *Config {
	return &Config{
		Stdin:  os.Stdin,
		Stdout: os.Stdout,
		Stderr: os.Stderr,
	}
}

// KeyJSON is a key in decimal text. Public keys omit D; private keys may omit
// E.
type KeyJSON struct {
	N     string `json:"n"`
	E     string `json:"e,omitempty"`
	D     string `json:"d,omitempty"`
	Bits  int    `json:"bits,omitempty"`
	KeyID string `json:"key_id,omitempty"`
}

// Request is the union of every command's input.
type Request struct {
	Bits         int      `json:"bits,omitempty"`
	Key          *KeyJSON `json:"key,omitempty"`
	Subject      string   `json:"subject,omitempty"`
	Issuer       string   `json:"issuer,omitempty"`
	ValidityDays int      `json:"validity_days,omitempty"`
	Certificate  string   `json:"certificate,omitempty"`
	Message      string   `json:"message,omitempty"`
	Plaintext    string   `json:"plaintext,omitempty"`
	Ciphertext   string   `json:"ciphertext,omitempty"`
	Signature    string   `json:"signature,omitempty"`
	Data         string   `json:"data,omitempty"`
	MAC          string   `json:"mac,omitempty"`
	MACKey       string   `json:"mac_key,omitempty"`
}

// VerifyOutput reports a verification result. Reason is set when Valid is
// false and the cause is known.
type VerifyOutput struct {
	Valid  bool   `json:"valid"`
	Reason string `json:"reason,omitempty"`
	Kind   string `json:"kind,omitempty"`
}

// IssueOutput is the result of the issue command.
type IssueOutput struct {
	Certificate string                    `json:"certificate"`
	Summary     *rsapq.CertificateSummary `json:"summary"`
	Key         *KeyJSON                  `json:"key,omitempty"`
}

var commandTimeout = 5 * time.Minute

// engineFactory builds the engine used by keygen, issue and verify. Tests
// replace it.
var engineFactory = func(ctx context.Context, opts ...rsapq.Option) (*rsapq.Engine, error) {
	cfg, err := rsapq.LoadConfig(os.Getenv("RSAPQ_CONFIG"))
	if err != nil {
		return nil, err
	}
	return rsapq.NewFromConfig(ctx, cfg, opts...)
}

// exitFunc is called by fatal. Tests replace it.
var exitFunc = os.Exit

const usage = "usage: rsapq <keygen|issue|verify|inspect|encrypt|decrypt|sign|verify-signature|mac|verify-mac>"

func run(args []string, cfg *Config) error {
	if len(args) < 2 {
		return fmt.Errorf("%s", usage)
	}

	// A missing .env is normal.
	_ = godotenv.Load()

	ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
	defer cancel()

	switch args[1] {
	case "keygen":
		return runKeygen(ctx, cfg)
	case "issue":
		return runIssue(ctx, cfg)
	case "verify":
		return runVerify(ctx, cfg)
	case "inspect":
		return runInspect(cfg)
	case "encrypt":
		return runEncrypt(cfg)
	case "decrypt":
		return runDecrypt(cfg)
	case "sign":
		return runSign(cfg)
	case "verify-signature":
		return runVerifySignature(cfg)
	case "mac":
		return runMAC(cfg)
	case "verify-mac":
		return runVerifyMAC(cfg)
	default:
		return fmt.Errorf("unknown command: %s\n%s", args[1], usage)
	}
}

func readRequest(r io.Reader) (*Request, error) {
	if r == nil {
		return &Request{}, nil
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read stdin: %w", err)
	}

	var req Request
	if len(data) == 0 {
		return &req, nil
	}
	if err := json.Unmarshal(data, &req); err != nil {
		return nil, fmt.Errorf("parse request: %w", err)
	}
	return &req, nil
}

func writeJSON(w io.Writer, v any) error {
	if err := json.NewEncoder(w).Encode(v); err != nil {
		return fmt.Errorf("encode output: %w", err)
	}
	return nil
}

func parseInt(name, s string) (*big.Int, error) {
	if s == "" {
		return nil, fmt.Errorf("key.%s is required", name)
	}
	v, ok := new(big.Int).SetString(s, 10)
	if !ok || v.Sign() <= 0 {
		return nil, fmt.Errorf("key.%s: %q is not a positive decimal integer", name, s)
	}
	return v, nil
}

func (k *KeyJSON) public() (*rsapq.PublicKey, error) {
	if k == nil {
		return nil, fmt.Errorf("key is required")
	}
	n, err := parseInt("n", k.N)
	if err != nil {
		return nil, err
	}
	e, err := parseInt("e", k.E)
	if err != nil {
		return nil, err
	}
	return &rsapq.PublicKey{N: n, E: e}, nil
}

func (k *KeyJSON) private() (*rsapq.PrivateKey, error) {
	if k == nil {
		return nil, fmt.Errorf("key is required")
	}
	n, err := parseInt("n", k.N)
	if err != nil {
		return nil, err
	}
	d, err := parseInt("d", k.D)
	if err != nil {
		return nil, err
	}
	return &rsapq.PrivateKey{N: n, D: d}, nil
}

func (k *KeyJSON) pair() (*rsapq.KeyPair, error) {
	pub, err := k.public()
	if err != nil {
		return nil, err
	}
	priv, err := k.private()
	if err != nil {
		return nil, err
	}
	bits := k.Bits
	if bits == 0 {
		bits = pub.Size()
	}
	return &rsapq.KeyPair{Public: pub, Private: priv, Bits: bits}, nil
}

func keyJSON(kp *rsapq.KeyPair) *KeyJSON {
	return &KeyJSON{
		N:     kp.Public.N.String(),
		E:     kp.Public.E.String(),
		D:     kp.Private.D.String(),
		Bits:  kp.Bits,
		KeyID: rsapq.KeyID(kp.Public),
	}
}

func verifyOutput(err error) VerifyOutput {
	if err == nil {
		return VerifyOutput{Valid: true}
	}
	return VerifyOutput{Reason: err.Error(), Kind: rsapq.KindOf(err).String()}
}

func runKeygen(ctx context.Context, cfg *Config) error {
	req, err := readRequest(cfg.Stdin)
	if err != nil {
		return err
	}

	engine, err := engineFactory(ctx)
	if err != nil {
		return fmt.Errorf("create engine: %w", err)
	}
	defer engine.Close()

	kp, err := engine.GenerateKeys(req.Bits)
	if err != nil {
		return err
	}
	return writeJSON(cfg.Stdout, keyJSON(kp))
}

// runIssue issues a certificate under req.Key, or under a freshly generated
// key (returned in the output) when req.Key is absent.
func runIssue(ctx context.Context, cfg *Config) error {
	req, err := readRequest(cfg.Stdin)
	if err != nil {
		return err
	}

	var opts []rsapq.Option
	if req.Key != nil {
		kp, err := req.Key.pair()
		if err != nil {
			return err
		}
		opts = append(opts, rsapq.WithKeyPair(kp))
	}

	engine, err := engineFactory(ctx, opts...)
	if err != nil {
		return fmt.Errorf("create engine: %w", err)
	}
	defer engine.Close()

	out := &IssueOutput{}
	if req.Key == nil {
		kp, err := engine.GenerateKeys(req.Bits)
		if err != nil {
			return err
		}
		out.Key = keyJSON(kp)
	}

	var certOpts []rsapq.CertificateOption
	if req.Issuer != "" {
		certOpts = append(certOpts, rsapq.WithIssuer(req.Issuer))
	}
	if req.ValidityDays != 0 {
		certOpts = append(certOpts, rsapq.WithValidityDays(req.ValidityDays))
	}

	if out.Certificate, err = engine.IssueCertificate(ctx, req.Subject, certOpts...); err != nil {
		return err
	}
	if out.Summary, err = rsapq.InspectCertificate(out.Certificate); err != nil {
		return err
	}
	return writeJSON(cfg.Stdout, out)
}

// runVerify checks req.Certificate against req.Key, or against the key it
// embeds when req.Key is absent.
func runVerify(ctx context.Context, cfg *Config) error {
	req, err := readRequest(cfg.Stdin)
	if err != nil {
		return err
	}

	var key *rsapq.PublicKey
	if req.Key != nil {
		if key, err = req.Key.public(); err != nil {
			return err
		}
	}

	engine, err := engineFactory(ctx)
	if err != nil {
		return fmt.Errorf("create engine: %w", err)
	}
	defer engine.Close()

	if key == nil {
		c, err := rsapq.DecodeCertificate(req.Certificate)
		if err != nil {
			return writeJSON(cfg.Stdout, verifyOutput(err))
		}
		if !c.IsSelfSigned() {
			err := fmt.Errorf("%w: issuer %q differs from subject", rsapq.ErrVerificationKeyMissing, c.Issuer)
			return writeJSON(cfg.Stdout, verifyOutput(err))
		}
		if key, err = c.Key(); err != nil {
			return writeJSON(cfg.Stdout, verifyOutput(err))
		}
	}

	_, err = engine.CheckCertificate(req.Certificate, key)
	return writeJSON(cfg.Stdout, verifyOutput(err))
}

func runInspect(cfg *Config) error {
	req, err := readRequest(cfg.Stdin)
	if err != nil {
		return err
	}
	s, err := rsapq.InspectCertificate(req.Certificate)
	if err != nil {
		return err
	}
	return writeJSON(cfg.Stdout, s)
}

func runEncrypt(cfg *Config) error {
	req, err := readRequest(cfg.Stdin)
	if err != nil {
		return err
	}
	pub, err := req.Key.public()
	if err != nil {
		return err
	}
	ct, err := rsapq.Encrypt(pub, req.Plaintext)
	if err != nil {
		return err
	}
	return writeJSON(cfg.Stdout, map[string]string{"ciphertext": ct})
}

func runDecrypt(cfg *Config) error {
	req, err := readRequest(cfg.Stdin)
	if err != nil {
		return err
	}
	priv, err := req.Key.private()
	if err != nil {
		return err
	}
	pt, err := rsapq.Decrypt(priv, req.Ciphertext)
	if err != nil {
		return err
	}
	return writeJSON(cfg.Stdout, map[string]string{"plaintext": pt})
}

func runSign(cfg *Config) error {
	req, err := readRequest(cfg.Stdin)
	if err != nil {
		return err
	}
	priv, err := req.Key.private()
	if err != nil {
		return err
	}
	sig, err := rsapq.Sign(priv, req.Message)
	if err != nil {
		return err
	}
	return writeJSON(cfg.Stdout, map[string]string{"signature": sig})
}

func runVerifySignature(cfg *Config) error {
	req, err := readRequest(cfg.Stdin)
	if err != nil {
		return err
	}
	pub, err := req.Key.public()
	if err != nil {
		return err
	}
	ok, err := rsapq.VerifySignature(pub, req.Message, req.Signature)
	if err != nil {
		return err
	}
	return writeJSON(cfg.Stdout, VerifyOutput{Valid: ok})
}

// macKey returns req.MACKey, or the legacy key derived from req.Key.
func macKey(req *Request) ([]byte, error) {
	if req.MACKey != "" {
		return []byte(req.MACKey), nil
	}
	priv, err := req.Key.private()
	if err != nil {
		return nil, fmt.Errorf("mac_key or key.d is required: %w", err)
	}
	return rsapq.LegacyMACKey(priv)
}

func runMAC(cfg *Config) error {
	req, err := readRequest(cfg.Stdin)
	if err != nil {
		return err
	}
	key, err := macKey(req)
	if err != nil {
		return err
	}
	return writeJSON(cfg.Stdout, map[string]string{"mac": rsapq.ComputeMAC(key, req.Data)})
}

func runVerifyMAC(cfg *Config) error {
	req, err := readRequest(cfg.Stdin)
	if err != nil {
		return err
	}
	key, err := macKey(req)
	if err != nil {
		return err
	}
	return writeJSON(cfg.Stdout, VerifyOutput{Valid: rsapq.VerifyMAC(key, req.Data, req.MAC)})
}

func fatal(format string, args ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	exitFunc(1)
}
