package main

import (
	"os"
	"testing"

	"github.com/juju/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseCreds(t *testing.T) {
	cr, err := parseCreds("testdata/creds.json")
	require.NoError(t, err, errors.ErrorStack(err))
	assert.Equal(t, "foofoofoofoo", cr.APIKey)
	assert.Equal(t, "YmFyYmFyYmFyYmFy", cr.SecretKey)

	_, err = parseCreds("testdata/config.yaml")
	assert.Error(t, err)

	_, err = parseCreds("testdata/nope.json")
	assert.Error(t, err)
}

func TestCredsFromEnv(t *testing.T) {
	// godotenv never overrides variables which are already set.
	t.Setenv(envAPIKey, "")
	t.Setenv(envSecretKey, "")
	os.Unsetenv(envAPIKey)
	os.Unsetenv(envSecretKey)

	cr, err := credsFromEnv("")
	require.NoError(t, err)
	assert.True(t, cr.empty())

	cr, err = credsFromEnv("testdata/bybit.env")
	require.NoError(t, err, errors.ErrorStack(err))
	assert.Equal(t, "envkey", cr.APIKey)
	assert.Equal(t, "envsecret", cr.SecretKey)

	_, err = credsFromEnv("testdata/nope.env")
	assert.Error(t, err)
}

func TestLoadCredsPriority(t *testing.T) {
	t.Setenv(envAPIKey, "envkey")
	t.Setenv(envSecretKey, "envsecret")

	flagCreds := &creds{APIKey: "flagkey", SecretKey: "flagsecret"}

	cr, err := loadCreds(&Config{CredsFile: "testdata/creds.json"}, flagCreds)
	require.NoError(t, err)
	assert.Equal(t, "flagkey", cr.APIKey)

	cr, err = loadCreds(&Config{CredsFile: "testdata/creds.json"}, &creds{})
	require.NoError(t, err)
	assert.Equal(t, "foofoofoofoo", cr.APIKey)

	cr, err = loadCreds(&Config{}, &creds{})
	require.NoError(t, err)
	assert.Equal(t, "envkey", cr.APIKey)
}
