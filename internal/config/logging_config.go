package config

import "strings"

type LoggingConfig interface {
	GetLogLevel() string
	GetLogFormat() string
}

type Logging struct{}

var _ LoggingConfig = Logging{}

// GetLogLevel returns one of debug, info, warn, error.
func (Logging) GetLogLevel() string {
	return strings.ToLower(GetEnv("LOG_LEVEL", "info"))
}

// GetLogFormat returns "json" or "console".
func (Logging) GetLogFormat() string {
	return strings.ToLower(GetEnv("LOG_FORMAT", "console"))
}
