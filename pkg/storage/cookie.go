package storage

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/stepwise/formwizard/pkg/api"
)

// CookieCodec signs and serializes wizard state for transport in a browser
// cookie. The payload is HMAC-SHA256 signed so a client cannot tamper with
// stored step data. The HTTP layer owns reading and writing the cookie
// itself
type CookieCodec struct {
	secret  []byte
	maxSize int
}

const (
	// MaxCookiePayload caps encoded state size; browsers drop cookies
	// larger than 4KiB
	MaxCookiePayload = 4096

	cookieSeparator = ":"
)

var (
	ErrSecretEmpty    = errors.New("cookie secret empty")
	ErrBadSignature   = errors.New("cookie signature mismatch")
	ErrMalformedValue = errors.New("malformed cookie value")
	ErrCookieTooLarge = errors.New("wizard state exceeds cookie size limit")
)

// NewCookieCodec creates a codec signing with the given secret
func NewCookieCodec(secret string) (*CookieCodec, error) {
	if secret == "" {
		return nil, ErrSecretEmpty
	}
	return &CookieCodec{
		secret:  []byte(secret),
		maxSize: MaxCookiePayload,
	}, nil
}

// Encode serializes and signs st into a cookie-safe string
func (c *CookieCodec) Encode(st *api.WizardState) (string, error) {
	data, err := json.Marshal(st)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrEncodeState, err)
	}

	payload := base64.RawURLEncoding.EncodeToString(data)
	value := c.sign(payload) + cookieSeparator + payload
	if len(value) > c.maxSize {
		return "", fmt.Errorf("%w: %d bytes", ErrCookieTooLarge, len(value))
	}
	return value, nil
}

// Decode verifies the signature and deserializes a cookie value produced by
// Encode
func (c *CookieCodec) Decode(value string) (*api.WizardState, error) {
	sig, payload, ok := strings.Cut(value, cookieSeparator)
	if !ok {
		return nil, ErrMalformedValue
	}

	if !hmac.Equal([]byte(sig), []byte(c.sign(payload))) {
		return nil, ErrBadSignature
	}

	data, err := base64.RawURLEncoding.DecodeString(payload)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformedValue, err)
	}

	var st api.WizardState
	if err := json.Unmarshal(data, &st); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDecodeState, err)
	}
	return &st, nil
}

func (c *CookieCodec) sign(payload string) string {
	mac := hmac.New(sha256.New, c.secret)
	mac.Write([]byte(payload))
	return hex.EncodeToString(mac.Sum(nil))
}
