package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	yamlv3 "gopkg.in/yaml.v3"
)

const envPrefix = "OPENLABS_"

// Settings is a fully resolved configuration, usually produced by Load.
type Settings struct {
	AppName               string        `koanf:"app_name" yaml:"app_name"`
	Env                   string        `koanf:"env" yaml:"env"`
	LogLevel              string        `koanf:"log_level" yaml:"log_level"`
	SessionDir            string        `koanf:"session_dir" yaml:"session_dir"`
	GatewayURL            string        `koanf:"gateway_url" yaml:"gateway_url"`
	AuthURL               string        `koanf:"auth_url" yaml:"auth_url"`
	StorageURL            string        `koanf:"storage_url" yaml:"storage_url"`
	ChatURL               string        `koanf:"chat_url" yaml:"chat_url"`
	RefreshInterval       time.Duration `koanf:"refresh_interval" yaml:"refresh_interval"`
	RequestTimeout        time.Duration `koanf:"request_timeout" yaml:"request_timeout"`
	DownloadDelay         time.Duration `koanf:"download_delay" yaml:"download_delay"`
	ImageProbeConcurrency int           `koanf:"image_probe_concurrency" yaml:"image_probe_concurrency"`
}

var _ Config = (*Settings)(nil)

// Defaults snapshots a Config into Settings.
func Defaults(c Config) *Settings {
	return &Settings{
		AppName:               c.GetAppName(),
		Env:                   c.GetEnv(),
		LogLevel:              c.GetLogLevel(),
		SessionDir:            c.GetSessionDir(),
		GatewayURL:            c.GetGatewayURL(),
		AuthURL:               c.GetAuthURL(),
		StorageURL:            c.GetStorageURL(),
		ChatURL:               c.GetChatURL(),
		RefreshInterval:       c.GetRefreshInterval(),
		RequestTimeout:        c.GetRequestTimeout(),
		DownloadDelay:         c.GetDownloadDelay(),
		ImageProbeConcurrency: c.GetImageProbeConcurrency(),
	}
}

// Load starts from the environment defaults, overlays the YAML file at path
// when it exists, then overlays OPENLABS_* environment variables.
func Load(path string) (*Settings, error) {
	k := koanf.New(".")
	s := Defaults(New())

	if path != "" {
		if _, err := os.Stat(path); err == nil {
			if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
				return nil, fmt.Errorf("reading config %s: %w", path, err)
			}
		} else if !os.IsNotExist(err) {
			return nil, fmt.Errorf("accessing config %s: %w", path, err)
		}
	}

	if err := k.Load(env.Provider(envPrefix, ".", func(s string) string {
		return strings.ToLower(strings.TrimPrefix(s, envPrefix))
	}), nil); err != nil {
		return nil, fmt.Errorf("loading env overrides: %w", err)
	}

	if err := k.Unmarshal("", s); err != nil {
		return nil, fmt.Errorf("unmarshalling config: %w", err)
	}
	s.GatewayURL = trimSlash(s.GatewayURL)
	s.AuthURL = trimSlash(s.AuthURL)
	s.StorageURL = trimSlash(s.StorageURL)
	s.ChatURL = trimSlash(s.ChatURL)

	return s, s.Validate()
}

// Save writes the settings to path as YAML.
func (s *Settings) Save(path string) error {
	data, err := yamlv3.Marshal(s)
	if err != nil {
		return fmt.Errorf("marshalling config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("writing config to %s: %w", path, err)
	}
	return nil
}

func (s *Settings) Validate() error {
	if s.GatewayURL == "" {
		return fmt.Errorf("gateway_url is required")
	}
	if s.AuthURL == "" {
		return fmt.Errorf("auth_url is required")
	}
	if s.StorageURL == "" {
		return fmt.Errorf("storage_url is required")
	}
	if s.ChatURL == "" {
		return fmt.Errorf("chat_url is required")
	}
	if s.RefreshInterval <= 0 {
		return fmt.Errorf("refresh_interval must be positive")
	}
	if s.DownloadDelay < 0 {
		return fmt.Errorf("download_delay must be non-negative")
	}
	if s.ImageProbeConcurrency < 1 {
		return fmt.Errorf("image_probe_concurrency must be at least 1")
	}
	return nil
}

func (s *Settings) GetAppName() string                { return s.AppName }
func (s *Settings) GetEnv() string                    { return s.Env }
func (s *Settings) GetLogLevel() string               { return s.LogLevel }
func (s *Settings) GetSessionDir() string             { return s.SessionDir }
func (s *Settings) GetGatewayURL() string             { return s.GatewayURL }
func (s *Settings) GetAuthURL() string                { return s.AuthURL }
func (s *Settings) GetStorageURL() string             { return s.StorageURL }
func (s *Settings) GetChatURL() string                { return s.ChatURL }
func (s *Settings) GetRefreshInterval() time.Duration { return s.RefreshInterval }
func (s *Settings) GetRequestTimeout() time.Duration  { return s.RequestTimeout }
func (s *Settings) GetDownloadDelay() time.Duration   { return s.DownloadDelay }
func (s *Settings) GetImageProbeConcurrency() int     { return s.ImageProbeConcurrency }
