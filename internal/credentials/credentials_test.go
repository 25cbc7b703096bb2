package credentials

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func TestLoadFromEnv(t *testing.T) {
	t.Setenv(EnvEmail, "someone@example.com")
	t.Setenv(EnvPassword, "hunter2hunter2")

	c, err := Load(zaptest.NewLogger(t))
	require.NoError(t, err)
	assert.Equal(t, "someone@example.com", c.Email)
	assert.Equal(t, "hunter2hunter2", c.Password)
}

func TestLoadMissing(t *testing.T) {
	t.Setenv(EnvEmail, "")
	t.Setenv(EnvPassword, "")

	_, err := Load(zaptest.NewLogger(t))
	assert.ErrorIs(t, err, ErrMissing)
}

func TestValidate(t *testing.T) {
	cases := []struct {
		name  string
		creds Credentials
		ok    bool
	}{
		{"valid", Credentials{Email: "a@b.com", Password: "longenough"}, true},
		{"bad email", Credentials{Email: "not-an-email", Password: "longenough"}, false},
		{"short password", Credentials{Email: "a@b.com", Password: "short"}, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.creds.Validate()
			if tc.ok {
				assert.NoError(t, err)
			} else {
				assert.Error(t, err)
			}
		})
	}
}

func TestMaskedEmailHidesLocalPart(t *testing.T) {
	c := Credentials{Email: "someone@example.com"}
	masked := c.MaskedEmail()
	assert.Equal(t, "so*****@example.com", masked)
	assert.NotContains(t, masked, "someone")

	short := Credentials{Email: "ab@example.com"}
	assert.Equal(t, "**@example.com", short.MaskedEmail())
}

func TestMaskedPasswordRevealsNothing(t *testing.T) {
	c := Credentials{Password: "supersecretvalue"}
	assert.Equal(t, "********", c.MaskedPassword())
	assert.NotContains(t, c.MaskedPassword(), "supersecret")
}
