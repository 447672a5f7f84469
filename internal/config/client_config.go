package config

import (
	"strings"
	"time"
)

// BaseURLVar names the environment variable holding the API root. Setting it
// before Load overrides any value from an env file.
const BaseURLVar = "BIKEPARK_BASE_URL"

const (
	httpTimeoutVar    = "BIKEPARK_HTTP_TIMEOUT"
	minExitBalanceVar = "BIKEPARK_MIN_EXIT_BALANCE"
	exitLockVar       = "BIKEPARK_EXIT_LOCK"
)

// Exit lock policies
const (
	ExitLockPerBicycle = "per-bicycle"
	ExitLockGlobal     = "global"
)

// DefaultMinExitBalance is the balance a wallet must hold before an exit is attempted.
const DefaultMinExitBalance = 20.0

type ClientConfig interface {
	GetBaseURL() string
	GetHTTPTimeout() time.Duration
	GetMinExitBalance() float64
	GetExitLockPolicy() string
}

type Client struct{}

var _ ClientConfig = Client{}

// GetBaseURL returns the API root every backend path is appended to,
// without a trailing slash (e.g. "https://parking.example.com/api").
func (Client) GetBaseURL() string {
	return strings.TrimRight(GetEnv(BaseURLVar, "http://localhost:3000/api"), "/")
}

func (Client) GetHTTPTimeout() time.Duration {
	return time.Duration(GetEnvInt(httpTimeoutVar, 30)) * time.Second
}

func (Client) GetMinExitBalance() float64 {
	return GetEnvFloat(minExitBalanceVar, DefaultMinExitBalance)
}

func (Client) GetExitLockPolicy() string {
	return strings.ToLower(GetEnv(exitLockVar, ExitLockPerBicycle))
}
