package config

import (
	"context"
	"errors"
	"io/fs"

	"github.com/joho/godotenv"
	"github.com/sethvargo/go-envconfig"
)

// Config is the configuration of the backend server.
type Config interface {
	EnvConfig
	RendezvousConfig
	SecurityConfig
}

type EnvConfig interface {
	GetPort() string
	GetAppName() string
	GetEnv() string
	GetLogLevel() string
	GetOTLPEndpoint() string
}

type mainConfig struct {
	EnvVars
	Rendezvous
	Security
}

// New loads the server configuration from the environment. A .env file in the
// working directory is read first when present.
func New(ctx context.Context) (Config, error) {
	return NewWithLookuper(ctx, nil)
}

// NewWithLookuper loads the server configuration from l instead of the
// process environment. A nil l falls back to the environment.
func NewWithLookuper(ctx context.Context, l envconfig.Lookuper) (Config, error) {
	var c mainConfig
	if err := process(ctx, &c, l); err != nil {
		return nil, err
	}
	return c, nil
}

func process(ctx context.Context, target any, l envconfig.Lookuper) error {
	if l == nil {
		if err := loadDotEnv(); err != nil {
			return err
		}
		l = envconfig.OsLookuper()
	}
	return envconfig.ProcessWith(ctx, &envconfig.Config{
		Target:   target,
		Lookuper: l,
	})
}

func loadDotEnv() error {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return nil
}
