package cert

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strings"
)

const (
	// BeginMarker opens an armored certificate.
	BeginMarker = "-----BEGIN RSA-PQ CERTIFICATE-----"
	// EndMarker closes an armored certificate.
	EndMarker = "-----END RSA-PQ CERTIFICATE-----"

	lineWidth = 64
)

// Encode renders c as two-space indented JSON, base64-encodes it and frames
// the result between the markers in 64-character lines. The output has no
// trailing newline.
func Encode(c *Certificate) (string, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	if err := enc.Encode(c); err != nil {
		return "", fmt.Errorf("marshal certificate: %w", err)
	}

	body := base64.StdEncoding.EncodeToString(bytes.TrimSuffix(buf.Bytes(), []byte("\n")))

	var sb strings.Builder
	sb.Grow(len(body) + len(body)/lineWidth + len(BeginMarker) + len(EndMarker) + 2)
	sb.WriteString(BeginMarker)
	sb.WriteByte('\n')
	for len(body) > 0 {
		n := min(lineWidth, len(body))
		sb.WriteString(body[:n])
		sb.WriteByte('\n')
		body = body[n:]
	}
	sb.WriteString(EndMarker)
	return sb.String(), nil
}

// Decode parses armored text produced by Encode. Text before the begin
// marker and after the end marker is ignored, as is surrounding whitespace on
// every body line.
func Decode(text string) (*Certificate, error) {
	var (
		body   strings.Builder
		inBody bool
		closed bool
	)
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		switch {
		case strings.Contains(line, BeginMarker):
			inBody = true
		case strings.Contains(line, EndMarker):
			closed = inBody
		case inBody:
			body.WriteString(line)
			continue
		default:
			continue
		}
		if closed {
			break
		}
	}
	if !inBody {
		return nil, fmt.Errorf("%w: missing %s", ErrMalformedCertificate, BeginMarker)
	}
	if !closed {
		return nil, fmt.Errorf("%w: missing %s", ErrMalformedCertificate, EndMarker)
	}

	raw, err := base64.StdEncoding.DecodeString(body.String())
	if err != nil {
		return nil, fmt.Errorf("%w: body: %w", ErrMalformedCertificate, err)
	}

	var c Certificate
	if err := json.Unmarshal(raw, &c); err != nil {
		return nil, fmt.Errorf("%w: json: %w", ErrMalformedCertificate, err)
	}
	if err := c.validateFields(); err != nil {
		return nil, err
	}
	return &c, nil
}

func (c *Certificate) validateFields() error {
	required := []struct {
		name  string
		value string
	}{
		{"serial_number", c.SerialNumber},
		{"subject", c.Subject},
		{"issuer", c.Issuer},
		{"not_before", c.NotBefore},
		{"not_after", c.NotAfter},
		{"public_key.n", c.PublicKey.N},
		{"public_key.e", c.PublicKey.E},
		{"signature_algorithm", c.SignatureAlgorithm},
		{"signature", c.Signature},
	}
	for _, f := range required {
		if f.value == "" {
			return fmt.Errorf("%w: missing %s", ErrMalformedCertificate, f.name)
		}
	}
	return nil
}
