package config

import (
	"fmt"
	"strings"
)

type EnvVars struct {
	Port         string `env:"PORT,default=8080"`
	AppName      string `env:"APP_NAME,default=Verishda"`
	Env          string `env:"ENV,default=DEV"`
	LogLevel     string `env:"LOG_LEVEL,default=info"`
	OTLPEndpoint string `env:"OTEL_EXPORTER_OTLP_ENDPOINT"`
}

var _ EnvConfig = EnvVars{}

func (e EnvVars) GetPort() string {
	port := e.Port
	if !strings.HasPrefix(port, ":") {
		port = fmt.Sprintf(":%s", port)
	}
	return port
}

func (e EnvVars) GetAppName() string {
	return e.AppName
}

func (e EnvVars) GetEnv() string {
	return e.Env
}

func (e EnvVars) GetLogLevel() string {
	return e.LogLevel
}

// GetOTLPEndpoint returns the OTLP collector endpoint. Empty disables tracing.
func (e EnvVars) GetOTLPEndpoint() string {
	return e.OTLPEndpoint
}
