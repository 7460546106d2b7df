package server

import "github.com/verishda/verishda/rendezvous"

// Route path constants
// All application routes are defined here to ensure consistency and prevent typos
const (
	// Public login rendezvous routes, shared with the native client
	RouteLoginRequest = rendezvous.LoginRequestsPath + "{correlationId}"
	RouteLoginTarget  = rendezvous.LoginTargetPath

	// Operational routes
	RouteHealth  = "/healthz"
	RouteMetrics = "/metrics"
)
