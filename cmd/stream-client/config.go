package main

import (
	"os"
	"time"

	"github.com/juju/errors"
	"gopkg.in/yaml.v2"
	"y3sh-bybit-sdk-go/common"
)

// Config is what can be given in the YAML config file; every field can be
// overridden by the flag of the same name. Example:
//
//	category: linear
//	testnet: true
//	subs:
//	  - orderbook.50.ETHUSDT
//	  - publicTrade.ETHUSDT
//	ping_interval: 20s
//	idle_timeout: 1m
//	reconnect:
//	  max_interval: 30s
type Config struct {
	Category string   `yaml:"category"`
	Testnet  bool     `yaml:"testnet"`
	URL      string   `yaml:"url"`
	Subs     []string `yaml:"subs"`

	IdleTimeout  time.Duration `yaml:"idle_timeout"`
	PingInterval time.Duration `yaml:"ping_interval"`
	PollInterval time.Duration `yaml:"poll_interval"`

	Format      string `yaml:"format"`
	Verbose     bool   `yaml:"verbose"`
	MetricsAddr string `yaml:"metrics_addr"`

	// CredsFile is a JSON file with credentials, see parseCreds; EnvFile is a
	// dotenv file with BYBIT_API_KEY and BYBIT_SECRET.
	CredsFile string `yaml:"creds_file"`
	EnvFile   string `yaml:"env_file"`

	Reconnect ReconnectConfig `yaml:"reconnect"`
}

// ReconnectConfig tunes the exponential backoff between sessions.
type ReconnectConfig struct {
	Disabled        bool          `yaml:"disabled"`
	InitialInterval time.Duration `yaml:"initial_interval"`
	MaxInterval     time.Duration `yaml:"max_interval"`

	// MaxElapsedTime is how long to keep trying without a successful
	// connection; zero means forever.
	MaxElapsedTime time.Duration `yaml:"max_elapsed_time"`
}

const (
	formatJSON = "json"
	formatText = "text"
)

func LoadConfig(filename string) (*Config, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, errors.Trace(err)
	}

	var cfg Config

	if err := yaml.UnmarshalStrict(data, &cfg); err != nil {
		return nil, errors.Annotatef(err, "parsing %q", filename)
	}

	return &cfg, nil
}

func (c *Config) ApplyDefaults() {
	if c.Category == "" && c.URL == "" {
		c.Category = string(common.CategoryLinear)
	}
	if c.Format == "" {
		c.Format = formatJSON
	}
	if c.Reconnect.InitialInterval <= 0 {
		c.Reconnect.InitialInterval = 500 * time.Millisecond
	}
	if c.Reconnect.MaxInterval <= 0 {
		c.Reconnect.MaxInterval = 30 * time.Second
	}
}

func (c *Config) Validate() error {
	if c.Category != "" {
		if _, err := common.ParseCategory(c.Category); err != nil {
			return errors.Trace(err)
		}
	}

	if c.Format != formatJSON && c.Format != formatText {
		return errors.Errorf("invalid data format %q", c.Format)
	}

	if len(c.Subs) == 0 {
		return errors.Errorf("no subscriptions given")
	}

	if c.IdleTimeout < 0 || c.PingInterval < 0 || c.PollInterval < 0 {
		return errors.Errorf("durations must not be negative")
	}

	if c.Reconnect.MaxInterval < c.Reconnect.InitialInterval {
		return errors.Errorf(
			"reconnect max_interval %s is less than initial_interval %s",
			c.Reconnect.MaxInterval, c.Reconnect.InitialInterval,
		)
	}

	return nil
}

// category returns the parsed category, or an empty one if only a URL is
// configured.
func (c *Config) category() common.Category {
	cat, err := common.ParseCategory(c.Category)
	if err != nil {
		return ""
	}
	return cat
}
