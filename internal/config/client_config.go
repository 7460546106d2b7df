package config

import (
	"context"
	"time"

	"github.com/sethvargo/go-envconfig"
)

// Client is the configuration of the native client.
type Client struct {
	IssuerURL               string        `env:"ISSUER_URL,default=https://lemur-5.cloud-iam.com/auth/realms/verishda"`
	ClientID                string        `env:"CLIENT_ID,default=verishda-windows"`
	APIBaseURL              string        `env:"API_BASE_URL,default=https://verishda-lkej.shuttle.app"`
	LocationPollInterval    time.Duration `env:"LOCATION_POLL_INTERVAL,default=5s"`
	SiteRefreshInterval     time.Duration `env:"SITE_REFRESH_INTERVAL,default=5m"`
	PresenceRefreshInterval time.Duration `env:"PRESENCE_REFRESH_INTERVAL,default=1m"`
	ReconnectInterval       time.Duration `env:"RECONNECT_INTERVAL,default=10s"`
	GeofenceRadiusMeters    float64       `env:"GEOFENCE_RADIUS_METERS,default=100"`
	LogLevel                string        `env:"LOG_LEVEL,default=info"`
}

// NewClient loads the client configuration from the environment and an
// optional .env file.
func NewClient(ctx context.Context) (Client, error) {
	return NewClientWithLookuper(ctx, nil)
}

func NewClientWithLookuper(ctx context.Context, l envconfig.Lookuper) (Client, error) {
	var c Client
	if err := process(ctx, &c, l); err != nil {
		return Client{}, err
	}
	return c, nil
}
