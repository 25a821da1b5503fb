package pagination

import (
	"bytes"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

var _encoder = base64.RawURLEncoding

// Codec performs lossless, versionless serialization of a CursorDescriptor to
// an opaque URL-safe token and back. It is a pure data transformation with no
// network or storage side effects.
//
// Tokens are readable by anyone who base64-decodes them. When a signing key is
// configured, an HMAC-SHA256 signature is appended and verified on decode, so
// tampered tokens are rejected as malformed.
type Codec struct {
	signingKey []byte
}

func NewCodec() *Codec {
	return new(Codec)
}

// WithSigningKey enables HMAC signing of tokens with the given key.
// An empty key disables signing.
func (c *Codec) WithSigningKey(key []byte) *Codec {
	if c == nil {
		c = new(Codec)
	}

	c.signingKey = key

	return c
}

// Encode serializes a descriptor into an opaque token. Temporal values inside
// CursorValues marshal as RFC 3339 text since JSON has no native date type.
func (c *Codec) Encode(d *CursorDescriptor) (string, error) {
	if err := d.validate(); err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidDescriptor, err)
	}

	jTok, err := json.Marshal(d)
	if err != nil {
		return "", fmt.Errorf("cannot marshal cursor descriptor: %w", err)
	}

	var buf bytes.Buffer
	if err = json.Compact(&buf, jTok); err != nil {
		return "", fmt.Errorf("cannot compact cursor descriptor: %w", err)
	}

	token := _encoder.EncodeToString(buf.Bytes())
	if len(c.signingKey) > 0 {
		token += "." + _encoder.EncodeToString(c.sign(buf.Bytes()))
	}

	return token, nil
}

// Decode is the reverse of Encode. Failures are classified:
//   - ErrMalformedToken: not validly encoded (bad base64, broken JSON, bad
//     signature).
//   - ErrInvalidStructure: decodes fine but violates the descriptor schema.
//
// Strings among CursorValues that look like RFC 3339 timestamps are
// reconstituted into time.Time. This is a heuristic: a column whose legitimate
// string values resemble timestamps will be revived as well.
func (c *Codec) Decode(token string) (*CursorDescriptor, error) {
	if len(token) == 0 {
		return nil, fmt.Errorf("%w: empty token", ErrMalformedToken)
	}

	payload, signature, signed := strings.Cut(token, ".")
	if err := c.verify(payload, signature, signed); err != nil {
		return nil, err
	}

	jsonData, err := _encoder.DecodeString(payload)
	if err != nil {
		return nil, fmt.Errorf("%w: base64 decode: %v", ErrMalformedToken, err)
	}

	var d CursorDescriptor
	if err = json.Unmarshal(jsonData, &d); err != nil {
		var typeErr *json.UnmarshalTypeError
		if errors.As(err, &typeErr) {
			return nil, fmt.Errorf("%w: field '%s': %v", ErrInvalidStructure, typeErr.Field, err)
		}

		return nil, fmt.Errorf("%w: json decode: %v", ErrMalformedToken, err)
	}

	if err = d.validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidStructure, err)
	}

	for column, value := range d.CursorValues {
		d.CursorValues[column] = parseAnyValue(value)
	}

	return &d, nil
}

func (c *Codec) sign(payload []byte) []byte {
	mac := hmac.New(sha256.New, c.signingKey)
	mac.Write(payload)

	return mac.Sum(nil)
}

func (c *Codec) verify(payload, signature string, signed bool) error {
	if len(c.signingKey) == 0 {
		if signed {
			return fmt.Errorf("%w: unexpected signature", ErrMalformedToken)
		}

		return nil
	}

	if !signed {
		return fmt.Errorf("%w: missing signature", ErrMalformedToken)
	}

	sigBytes, err := _encoder.DecodeString(signature)
	if err != nil {
		return fmt.Errorf("%w: signature decode: %v", ErrMalformedToken, err)
	}

	payloadBytes, err := _encoder.DecodeString(payload)
	if err != nil {
		return fmt.Errorf("%w: base64 decode: %v", ErrMalformedToken, err)
	}

	if !hmac.Equal(sigBytes, c.sign(payloadBytes)) {
		return fmt.Errorf("%w: signature mismatch", ErrMalformedToken)
	}

	return nil
}

// EncodeCursor encodes a descriptor using an unsigned codec.
func EncodeCursor(d *CursorDescriptor) (string, error) {
	return NewCodec().Encode(d)
}

// DecodeCursor decodes a token using an unsigned codec.
func DecodeCursor(token string) (*CursorDescriptor, error) {
	return NewCodec().Decode(token)
}
