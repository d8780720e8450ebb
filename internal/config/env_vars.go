package config

import (
	"fmt"
	"strings"
	"time"
)

// EnvVars is populated by cleanenv from the process environment.
type EnvVars struct {
	Port           string        `env:"PORT" env-default:"8080"`
	AppName        string        `env:"APP_NAME" env-default:"Clinic Portal"`
	DataFolder     string        `env:"FOLDER" env-default:"./data"`
	Env            string        `env:"ENV" env-default:"DEV"`
	BackendURL     string        `env:"BACKEND_URL" env-default:"http://localhost:4000"`
	BackendTimeout time.Duration `env:"BACKEND_TIMEOUT" env-default:"15s"`
	SnapshotStore  string        `env:"SNAPSHOT_STORE" env-default:"memory"`
	SnapshotKey    string        `env:"SNAPSHOT_KEY"`
	LoginPerMinute int           `env:"LOGIN_RATE_PER_MINUTE" env-default:"10"`
	LoginBurst     int           `env:"LOGIN_RATE_BURST" env-default:"5"`
	AllowedOrigins string        `env:"ALLOWED_ORIGINS"`
}

var _ EnvConfig = EnvVars{}

func (e EnvVars) GetPort() string {
	port := e.Port
	if port != "" && port[0] != ':' {
		port = fmt.Sprintf(":%s", port)
	}
	return port
}

func (e EnvVars) GetAppName() string {
	return e.AppName
}

func (e EnvVars) GetDataFolder() string {
	return e.DataFolder
}

func (e EnvVars) GetEnv() string {
	if e.Env == "" {
		return "DEV"
	}
	return strings.ToUpper(e.Env)
}

// IsProduction reports whether the portal runs with production cookie attributes.
func (e EnvVars) IsProduction() bool {
	env := e.GetEnv()
	return env == "PROD" || env == "PRODUCTION"
}
