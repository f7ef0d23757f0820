package websocket

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strconv"
	"time"

	"github.com/cryptowatch/clock"
	"github.com/juju/errors"
)

// defaultAuthExpiry is how long a signed auth request stays valid.
const defaultAuthExpiry = 10 * time.Second

// CredentialProvider supplies the signed credential sent as the single auth
// frame of a private session, right after the connection is established and
// before any subscription. The returned strings become the "args" of the auth
// frame as is.
type CredentialProvider interface {
	AuthArgs() ([]string, error)
}

// Credentials is an API key pair. It implements CredentialProvider by
// signing "GET/realtime<expires>" with HMAC-SHA256. The secret is never
// printed, see String.
type Credentials struct {
	APIKey    string
	SecretKey string

	// Expiry is how long the signature stays valid; defaults to 10 seconds.
	Expiry time.Duration

	// clock is only set by tests.
	clock clock.Clock
}

// NewCredentials returns credentials for the given key pair.
func NewCredentials(apiKey, secretKey string) *Credentials {
	return &Credentials{
		APIKey:    apiKey,
		SecretKey: secretKey,
	}
}

// AuthArgs returns the api key, the expiry timestamp in unix milliseconds and
// the hex signature.
func (c *Credentials) AuthArgs() ([]string, error) {
	if c.APIKey == "" || c.SecretKey == "" {
		return nil, errors.Trace(ErrNoCredentials)
	}

	clk := c.clock
	if clk == nil {
		clk = clock.New()
	}

	expiry := c.Expiry
	if expiry <= 0 {
		expiry = defaultAuthExpiry
	}

	expires := clk.Now().Add(expiry).UnixNano() / int64(time.Millisecond)
	expiresStr := strconv.FormatInt(expires, 10)

	return []string{c.APIKey, expiresStr, c.sign("GET/realtime" + expiresStr)}, nil
}

func (c *Credentials) sign(payload string) string {
	h := hmac.New(sha256.New, []byte(c.SecretKey))
	h.Write([]byte(payload))
	return hex.EncodeToString(h.Sum(nil))
}

func (c Credentials) String() string {
	return fmt.Sprintf("Credentials{APIKey: %s, SecretKey: [redacted]}", maskKey(c.APIKey))
}

// GoString keeps %#v from printing the secret too.
func (c Credentials) GoString() string {
	return c.String()
}

// Format implements fmt.Formatter, so that no verb prints the fields.
func (c Credentials) Format(f fmt.State, verb rune) {
	fmt.Fprint(f, c.String())
}

// maskKey keeps only the first few characters of the key.
func maskKey(key string) string {
	const shown = 4
	if len(key) <= shown {
		return "****"
	}
	return key[:shown] + "****"
}
