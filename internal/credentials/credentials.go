// Package credentials loads the YouTube account credentials from the
// environment. Values are never logged in plaintext; use Masked
// representations anywhere output is involved.
package credentials

import (
	"errors"
	"fmt"
	"os"
	"regexp"
	"strings"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

const (
	EnvEmail    = "YOUTUBE_EMAIL"
	EnvPassword = "YOUTUBE_PASSWORD"

	minPasswordLength = 8
)

// ErrMissing reports that one or both credential variables are unset.
var ErrMissing = errors.New("credentials: YOUTUBE_EMAIL and YOUTUBE_PASSWORD must be set")

var emailPattern = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)

// Credentials holds the account secrets. The zero value is invalid.
type Credentials struct {
	Email    string
	Password string
}

// Load reads an optional .env file, then the environment. A missing
// .env is fine; malformed values are not.
func Load(logger *zap.Logger) (*Credentials, error) {
	if err := godotenv.Load(); err == nil {
		logger.Debug("Loaded credentials from .env file")
	}

	c := &Credentials{
		Email:    strings.TrimSpace(os.Getenv(EnvEmail)),
		Password: os.Getenv(EnvPassword),
	}
	if c.Email == "" || c.Password == "" {
		return nil, ErrMissing
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	logger.Info("Credentials loaded", zap.String("email", c.MaskedEmail()))
	return c, nil
}

// Validate checks shape only, never correctness.
func (c *Credentials) Validate() error {
	if !emailPattern.MatchString(c.Email) {
		return fmt.Errorf("credentials: %s does not look like an email address: %s", EnvEmail, c.MaskedEmail())
	}
	if len(c.Password) < minPasswordLength {
		return fmt.Errorf("credentials: %s must be at least %d characters", EnvPassword, minPasswordLength)
	}
	return nil
}

// MaskedEmail keeps the first two characters and the domain.
func (c *Credentials) MaskedEmail() string {
	at := strings.IndexByte(c.Email, '@')
	if at <= 0 {
		return "***"
	}
	local := c.Email[:at]
	if len(local) <= 2 {
		return "**" + c.Email[at:]
	}
	return local[:2] + strings.Repeat("*", len(local)-2) + c.Email[at:]
}

// MaskedPassword is always fully opaque.
func (c *Credentials) MaskedPassword() string {
	return strings.Repeat("*", 8)
}
