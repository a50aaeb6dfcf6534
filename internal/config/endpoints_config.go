package config

import "strings"

const (
	gatewayURLVar = "OPENLABS_GATEWAY_URL"
	authURLVar    = "OPENLABS_AUTH_URL"
	storageURLVar = "OPENLABS_STORAGE_URL"
	chatURLVar    = "OPENLABS_CHAT_URL"
)

type Endpoints struct{}

var _ EndpointsConfig = Endpoints{}

// GetGatewayURL returns the API gateway base including the version prefix.
func (Endpoints) GetGatewayURL() string {
	return trimSlash(GetEnv(gatewayURLVar, "http://localhost:8080/api/v1"))
}

func (Endpoints) GetAuthURL() string {
	return trimSlash(GetEnv(authURLVar, "http://localhost:8080/api/v1/auth"))
}

// GetStorageURL returns the object storage endpoint (MinIO in development).
func (Endpoints) GetStorageURL() string {
	return trimSlash(GetEnv(storageURLVar, "http://localhost:9000"))
}

// GetChatURL returns the lab assistant service, which is not behind the gateway.
func (Endpoints) GetChatURL() string {
	return trimSlash(GetEnv(chatURLVar, "http://localhost:8083"))
}

func trimSlash(u string) string {
	return strings.TrimRight(u, "/")
}
