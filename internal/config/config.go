package config

// Config groups the settings shared by the adapter, the session synchronizer and the CLI.
type Config interface {
	EnvConfig
	AdapterConfig
}

type EnvConfig interface {
	GetAppName() string
	GetSecretKey() string
	GetAnonToken() string
}

type AdapterConfig interface {
	GetDebugLogs() bool
	GetUsePlural() bool
	GetMaxConcurrency() int
}

type mainConfig struct {
	EnvVars
	Adapter
}

func New() Config {
	return mainConfig{}
}
