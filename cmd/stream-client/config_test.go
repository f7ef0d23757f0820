package main

import (
	"os"
	"testing"
	"time"

	"github.com/juju/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"y3sh-bybit-sdk-go/common"
)

func TestLoadConfig(t *testing.T) {
	cfg, err := LoadConfig("testdata/config.yaml")
	require.NoError(t, err, errors.ErrorStack(err))

	cfg.ApplyDefaults()
	require.NoError(t, cfg.Validate())

	assert.Equal(t, common.CategoryPrivate, cfg.category())
	assert.True(t, cfg.Testnet)
	assert.Equal(t, []string{"order", "execution"}, cfg.Subs)
	assert.Equal(t, 20*time.Second, cfg.PingInterval)
	assert.Equal(t, time.Minute, cfg.IdleTimeout)
	assert.Equal(t, formatText, cfg.Format)
	assert.Equal(t, time.Second, cfg.Reconnect.InitialInterval)
	assert.Equal(t, 10*time.Second, cfg.Reconnect.MaxInterval)

	_, err = LoadConfig("testdata/unknown-field.yaml")
	assert.Error(t, err)

	_, err = LoadConfig("testdata/missing.yaml")
	assert.True(t, os.IsNotExist(errors.Cause(err)))
}

func TestConfigDefaults(t *testing.T) {
	cfg := &Config{Subs: []string{"tickers.BTCUSDT"}}
	cfg.ApplyDefaults()
	require.NoError(t, cfg.Validate())

	assert.Equal(t, common.CategoryLinear, cfg.category())
	assert.Equal(t, formatJSON, cfg.Format)
	assert.Equal(t, 500*time.Millisecond, cfg.Reconnect.InitialInterval)
	assert.Equal(t, 30*time.Second, cfg.Reconnect.MaxInterval)

	// An explicit URL needs no category.
	cfg = &Config{URL: "ws://localhost:1234", Subs: []string{"tickers.BTCUSDT"}}
	cfg.ApplyDefaults()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, common.Category(""), cfg.category())
}

func TestConfigValidate(t *testing.T) {
	for name, tweak := range map[string]func(c *Config){
		"bad category":     func(c *Config) { c.Category = "futures" },
		"bad format":       func(c *Config) { c.Format = "xml" },
		"no subs":          func(c *Config) { c.Subs = nil },
		"negative timeout": func(c *Config) { c.IdleTimeout = -time.Second },
		"bad intervals": func(c *Config) {
			c.Reconnect.InitialInterval = time.Minute
			c.Reconnect.MaxInterval = time.Second
		},
	} {
		cfg := &Config{Category: "spot", Subs: []string{"tickers.BTCUSDT"}}
		cfg.ApplyDefaults()
		tweak(cfg)

		assert.Error(t, cfg.Validate(), name)
	}
}
