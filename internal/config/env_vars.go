package config

import (
	"os"
	"strconv"
	"strings"
)

const (
	appNameVar         = "APP_NAME"
	fakeBackendPortVar = "FAKE_BACKEND_PORT"
)

type EnvVars struct{}

var _ EnvConfig = EnvVars{}

func (EnvVars) GetAppName() string {
	return GetEnv(appNameVar, "Bike Park")
}

func (EnvVars) GetEnv() string {
	env := os.Getenv("ENV")
	if env == "" {
		return "DEV"
	}
	return env
}

// GetFakeBackendPort returns the listen address of the in-memory backend
// started by cmd/fakebackend (e.g. ":3000").
func (EnvVars) GetFakeBackendPort() string {
	port := GetEnv(fakeBackendPortVar, "3000")
	if !strings.HasPrefix(port, ":") {
		port = ":" + port
	}
	return port
}

func GetEnv(envVar, defaultValue string) string {
	value := os.Getenv(envVar)
	if value == "" {
		return defaultValue
	}
	return value
}

func GetEnvInt(envVar string, defaultValue int) int {
	if value := os.Getenv(envVar); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func GetEnvFloat(envVar string, defaultValue float64) float64 {
	if value := os.Getenv(envVar); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}
