package server

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func (s *Server) initRoutes() {
	// Login rendezvous
	s.RegisterRouteHandler("GET "+RouteLoginRequest, ChainMiddleware(s.LoginRequestHandler(), s.PublicAPIMiddleware("login-request")...))
	s.RegisterRouteHandler("GET "+RouteLoginTarget, ChainMiddleware(s.LoginTargetHandler(), s.PublicAPIMiddleware("login-target")...))

	// Operational
	s.RegisterRouteFunc("GET "+RouteHealth, s.HealthHandler())
	s.RegisterRouteHandler("GET "+RouteMetrics, promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))
}

// HealthHandler reports liveness.
func (s *Server) HealthHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	}
}
