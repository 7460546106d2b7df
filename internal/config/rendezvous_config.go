package config

import "time"

type RendezvousConfig interface {
	GetPendingLoginTTL() time.Duration
	GetPendingLoginSweepInterval() time.Duration
}

// Rendezvous bounds how long a native client may wait for the browser half of
// a login.
type Rendezvous struct {
	PendingLoginTTL           time.Duration `env:"PENDING_LOGIN_TTL,default=10m"`
	PendingLoginSweepInterval time.Duration `env:"PENDING_LOGIN_SWEEP_INTERVAL,default=1m"`
}

var _ RendezvousConfig = Rendezvous{}

func (r Rendezvous) GetPendingLoginTTL() time.Duration {
	return r.PendingLoginTTL
}

func (r Rendezvous) GetPendingLoginSweepInterval() time.Duration {
	return r.PendingLoginSweepInterval
}
