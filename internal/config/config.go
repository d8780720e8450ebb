package config

import (
	"fmt"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

type Config interface {
	EnvConfig
	CorsConfig
	SessionConfig
	BackendConfig
}

type EnvConfig interface {
	GetPort() string
	GetAppName() string
	GetDataFolder() string
	GetEnv() string
	IsProduction() bool
}

type CorsConfig interface {
	GetAllowedOrigins() AllowedOrigins
	GetAllowedMethods() string
	GetAllowedHeaders() string
}

type BackendConfig interface {
	GetBackendURL() string
	GetBackendTimeout() time.Duration
}

type mainConfig struct {
	EnvVars
	Cors
	Session
	Backend
}

// New reads the environment into a Config. Unset variables fall back to their env-default tags.
func New() (Config, error) {
	var vars EnvVars
	if err := cleanenv.ReadEnv(&vars); err != nil {
		return nil, fmt.Errorf("[config New] failed to read environment: %w", err)
	}
	return mainConfig{
		EnvVars: vars,
		Cors:    Cors{origins: parseOrigins(vars.AllowedOrigins)},
		Session: Session{vars: vars},
		Backend: Backend{vars: vars},
	}, nil
}
