package config

import (
	"net/url"
	"os"

	"github.com/joho/godotenv"
	"github.com/pkg/errors"
)

type Config interface {
	EnvConfig
	ClientConfig
	LoggingConfig
}

type EnvConfig interface {
	GetAppName() string
	GetEnv() string
	GetFakeBackendPort() string
}

type mainConfig struct {
	EnvVars
	Client
	Logging
}

func New() Config {
	return mainConfig{}
}

// Load reads the optional env files into the process environment and
// returns a validated Config. Missing files are skipped, variables already
// set in the environment take precedence.
func Load(envFiles ...string) (Config, error) {
	for _, f := range envFiles {
		if _, err := os.Stat(f); err != nil {
			continue
		}
		if err := godotenv.Load(f); err != nil {
			return nil, errors.Wrapf(err, "[config.Load] reading %s", f)
		}
	}

	c := New()
	if err := Validate(c); err != nil {
		return nil, err
	}
	return c, nil
}

// Validate checks the values that the client cannot run without.
func Validate(c Config) error {
	u, err := url.Parse(c.GetBaseURL())
	if err != nil {
		return errors.Wrap(err, "[config.Validate] invalid "+BaseURLVar)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return errors.Errorf("[config.Validate] %s must use http or https, got %q", BaseURLVar, c.GetBaseURL())
	}
	if u.Host == "" {
		return errors.Errorf("[config.Validate] %s has no host", BaseURLVar)
	}
	if c.GetHTTPTimeout() <= 0 {
		return errors.Errorf("[config.Validate] %s must be positive", httpTimeoutVar)
	}
	if c.GetMinExitBalance() < 0 {
		return errors.Errorf("[config.Validate] %s must not be negative", minExitBalanceVar)
	}
	switch c.GetExitLockPolicy() {
	case ExitLockPerBicycle, ExitLockGlobal:
	default:
		return errors.Errorf("[config.Validate] %s must be %q or %q", exitLockVar, ExitLockPerBicycle, ExitLockGlobal)
	}
	return nil
}
