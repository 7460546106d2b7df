package server

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the Prometheus collectors of the login rendezvous.
type Metrics struct {
	PendingLogins   prometheus.Gauge
	LoginRequests   *prometheus.CounterVec
	LoginDeliveries *prometheus.CounterVec
	LoginsExpired   prometheus.Counter
}

// NewMetrics creates and registers all metrics with the given registry.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	return &Metrics{
		PendingLogins: promauto.With(reg).NewGauge(
			prometheus.GaugeOpts{
				Namespace: "verishda",
				Name:      "pending_logins",
				Help:      "Number of login requests waiting for a code",
			},
		),
		LoginRequests: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "verishda",
				Name:      "login_requests_total",
				Help:      "Login request streams by outcome",
			},
			[]string{"result"}, // result=delivered/conflict/abandoned/closed/invalid
		),
		LoginDeliveries: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "verishda",
				Name:      "login_deliveries_total",
				Help:      "Login target redirects by outcome",
			},
			[]string{"result"}, // result=ok/not_found/receiver_gone/provider_error/invalid
		),
		LoginsExpired: promauto.With(reg).NewCounter(
			prometheus.CounterOpts{
				Namespace: "verishda",
				Name:      "login_expired_total",
				Help:      "Pending logins removed by the expiry sweep",
			},
		),
	}
}
