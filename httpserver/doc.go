// Package httpserver wraps a consent API handler with the operational
// endpoints a deployment needs: liveness and readiness probes, drain
// control for load-balancer rotation, optional pprof, and graceful
// shutdown. The API handler itself is supplied by the caller; the server
// only owns routing and lifecycle.
package httpserver
