package config

type Config interface {
	EnvConfig
	CorsConfig
	ParConfig
	StoreConfig
}

type EnvConfig interface {
	GetPort() string
	GetAppName() string
	GetEnv() string
	GetBaseURL() string
	GetConfigFile() string
}

type CorsConfig interface {
	GetAllowedOrigins() AllowedOrigins
	GetAllowedMethods() string
	GetAllowedHeaders() string
}

type mainConfig struct {
	EnvVars
	Cors
	Par
	Store
}

// New returns the server configuration. file may be nil when no config file is used;
// when present its values take precedence over environment variables.
func New(file *FileConfig) Config {
	return mainConfig{Par: Par{file: file}}
}
