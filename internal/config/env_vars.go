package config

import (
	"os"
	"strconv"
	"strings"
)

const (
	appNameVar = "APP_NAME"

	// SecretKeyEnvVar holds the HMAC secret used to sign session tokens.
	SecretKeyEnvVar = "BETTER_AUTH_SECRET"
	// AnonTokenEnvVar holds the token used when no user is signed in.
	AnonTokenEnvVar = "NEXT_PUBLIC_TRIPLIT_ANON_TOKEN"

	debugLogsEnvVar      = "AUTH_ADAPTER_DEBUG"
	usePluralEnvVar      = "AUTH_ADAPTER_USE_PLURAL"
	maxConcurrencyEnvVar = "AUTH_ADAPTER_MAX_CONCURRENCY"

	// DefaultMaxConcurrency bounds per-entity mutations issued by batch operations.
	DefaultMaxConcurrency = 8
)

type EnvVars struct{}

var _ EnvConfig = EnvVars{}

func (EnvVars) GetAppName() string {
	return GetEnv(appNameVar, "Auth Triplit")
}

// GetSecretKey returns the token signing secret, empty when unset.
func (EnvVars) GetSecretKey() string {
	return GetEnv(SecretKeyEnvVar, "")
}

// GetAnonToken returns the anonymous session token, empty when unset.
func (EnvVars) GetAnonToken() string {
	return GetEnv(AnonTokenEnvVar, "")
}

type Adapter struct{}

var _ AdapterConfig = Adapter{}

func (Adapter) GetDebugLogs() bool {
	return GetBool(debugLogsEnvVar, false)
}

func (Adapter) GetUsePlural() bool {
	return GetBool(usePluralEnvVar, true)
}

func (Adapter) GetMaxConcurrency() int {
	n, err := strconv.Atoi(GetEnv(maxConcurrencyEnvVar, ""))
	if err != nil || n <= 0 {
		return DefaultMaxConcurrency
	}
	return n
}

func GetEnv(envVar, defaultValue string) string {
	value := os.Getenv(envVar)
	if value == "" {
		return defaultValue
	}
	return value
}

func GetBool(envVar string, defaultValue bool) bool {
	value, err := strconv.ParseBool(strings.TrimSpace(os.Getenv(envVar)))
	if err != nil {
		return defaultValue
	}
	return value
}
