package config

type Config interface {
	EnvConfig
	EndpointsConfig
	SessionConfig
}

type EnvConfig interface {
	GetAppName() string
	GetEnv() string
	GetLogLevel() string
	GetSessionDir() string
}

// EndpointsConfig holds the base URLs of the remote collaborators.
type EndpointsConfig interface {
	GetGatewayURL() string
	GetAuthURL() string
	GetStorageURL() string
	GetChatURL() string
}

type mainConfig struct {
	EnvVars
	Endpoints
	Session
}

func New() Config {
	return mainConfig{}
}
