package main

import (
	"encoding/json"
	"os"

	"github.com/joho/godotenv"
	"github.com/juju/errors"
)

const (
	envAPIKey    = "BYBIT_API_KEY"
	envSecretKey = "BYBIT_SECRET"
)

type creds struct {
	APIKey    string `json:"api_key"`
	SecretKey string `json:"secret_key"`
}

func (c *creds) empty() bool {
	return c.APIKey == "" && c.SecretKey == ""
}

// parseCreds tries to parse a JSON file with creds; example file contents:
//
//	{
//	  "api_key": "foofoofoofoo",
//	  "secret_key": "YmFyYmFyYmFyYmFy"
//	}
func parseCreds(filename string) (*creds, error) {
	f, err := os.Open(filename)
	if err != nil {
		return nil, errors.Annotatef(err, "opening creds file %q", filename)
	}
	defer f.Close()

	d := json.NewDecoder(f)

	ret := creds{}
	if err := d.Decode(&ret); err != nil {
		return nil, errors.Annotatef(err, "parsing JSON from %q", filename)
	}

	return &ret, nil
}

// credsFromEnv reads BYBIT_API_KEY and BYBIT_SECRET from the environment,
// after loading envFile (if any) into it. Variables already set win over the
// ones in the file.
func credsFromEnv(envFile string) (*creds, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil {
			return nil, errors.Annotatef(err, "loading env file %q", envFile)
		}
	}

	return &creds{
		APIKey:    os.Getenv(envAPIKey),
		SecretKey: os.Getenv(envSecretKey),
	}, nil
}

// loadCreds picks the credentials by priority: --apikey/--secretkey, then the
// creds file, then the environment.
func loadCreds(cfg *Config, flagCreds *creds) (*creds, error) {
	if !flagCreds.empty() {
		return flagCreds, nil
	}

	if cfg.CredsFile != "" {
		cr, err := parseCreds(cfg.CredsFile)
		if err != nil {
			return nil, errors.Trace(err)
		}
		return cr, nil
	}

	cr, err := credsFromEnv(cfg.EnvFile)
	if err != nil {
		return nil, errors.Trace(err)
	}

	return cr, nil
}
