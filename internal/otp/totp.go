package otp

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha1"
	"encoding/binary"
	"fmt"
	"net/url"
	"time"
)

const secretLength = 20

// TOTP derives and verifies time-based one-time passwords per RFC 4226 and
// RFC 6238, interoperable with the usual authenticator apps.
type TOTP struct {
	period time.Duration
	digits int
	skew   int
	now    func() time.Time
}

func New(opts ...Option) *TOTP {
	t := &TOTP{
		period: 30 * time.Second,
		digits: 6,
		skew:   1,
		now:    time.Now,
	}

	for _, opt := range opts {
		opt(t)
	}

	return t
}

type Option func(t *TOTP)

func WithPeriod(period time.Duration) Option {
	return func(t *TOTP) {
		t.period = period
	}
}

func WithDigits(digits int) Option {
	return func(t *TOTP) {
		t.digits = digits
	}
}

// WithSkew sets how many adjacent time steps Verify accepts in each
// direction.
func WithSkew(skew int) Option {
	return func(t *TOTP) {
		t.skew = skew
	}
}

// WithClock replaces the wall clock, used by tests to pin the time step.
func WithClock(now func() time.Time) Option {
	return func(t *TOTP) {
		t.now = now
	}
}

func (t *TOTP) Period() time.Duration {
	return t.period
}

func (t *TOTP) Digits() int {
	return t.digits
}

// Generate derives the code for the current time step shifted by stepOffset.
// The secret is a base32-encoded shared key.
func (t *TOTP) Generate(secret string, stepOffset int) string {
	counter := t.now().Unix()/int64(t.period.Seconds()) + int64(stepOffset)

	msg := make([]byte, 8)
	binary.BigEndian.PutUint64(msg, uint64(counter))

	mac := hmac.New(sha1.New, Decode(secret))
	mac.Write(msg)
	digest := mac.Sum(nil)

	// RFC 4226 dynamic truncation: the low nibble of the last byte picks a
	// 31-bit window.
	offset := digest[len(digest)-1] & 0x0F

	truncated := uint32(digest[offset]&0x7F)<<24 |
		uint32(digest[offset+1])<<16 |
		uint32(digest[offset+2])<<8 |
		uint32(digest[offset+3])

	mod := uint32(1)
	for i := 0; i < t.digits; i++ {
		mod *= 10
	}

	return fmt.Sprintf("%0*d", t.digits, truncated%mod)
}

// Verify reports whether code matches the secret within the configured skew
// window. Replay of a still-valid code is not detected.
func (t *TOTP) Verify(secret, code string) bool {
	if len(code) != t.digits {
		return false
	}

	for _, c := range code {
		if c < '0' || c > '9' {
			return false
		}
	}

	for offset := -t.skew; offset <= t.skew; offset++ {
		if hmac.Equal([]byte(t.Generate(secret, offset)), []byte(code)) {
			return true
		}
	}

	return false
}

// ProvisioningURI renders the otpauth URI consumed by authenticator apps.
func (t *TOTP) ProvisioningURI(secret, issuer, account string) string {
	params := url.Values{}
	params.Set("secret", secret)
	params.Set("issuer", issuer)
	params.Set("digits", fmt.Sprintf("%d", t.digits))
	params.Set("period", fmt.Sprintf("%d", int(t.period.Seconds())))

	return fmt.Sprintf("otpauth://totp/%s:%s?%s",
		url.PathEscape(issuer), url.PathEscape(account), params.Encode())
}

// NewSecret returns a fresh base32-encoded 160-bit shared secret.
func NewSecret() (string, error) {
	buf := make([]byte, secretLength)

	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("rand.Read: %w", err)
	}

	return Encode(buf), nil
}
