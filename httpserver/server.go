package httpserver

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/flashbots/go-utils/httplogger"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/atomic"
)

// ConsentAPI is the set of consent endpoints the server exposes. It is
// implemented by consentclient.StubService; a production handler with the
// same route semantics can be dropped in without touching the server.
type ConsentAPI interface {
	HandleMintOwnerToken(w http.ResponseWriter, r *http.Request)
	HandleRequestGrant(w http.ResponseWriter, r *http.Request)
	HandleApproveGrant(w http.ResponseWriter, r *http.Request)
	HandleDenyGrant(w http.ResponseWriter, r *http.Request)
	HandleCancelGrant(w http.ResponseWriter, r *http.Request)
	HandleListGrants(w http.ResponseWriter, r *http.Request)
	HandleRevoke(w http.ResponseWriter, r *http.Request)
	HandleRevocationCheck(w http.ResponseWriter, r *http.Request)
}

// HTTPServerConfig contains configuration for the HTTP server.
type HTTPServerConfig struct {
	ListenAddr  string
	EnablePprof bool
	Log         *slog.Logger

	DrainDuration            time.Duration
	GracefulShutdownDuration time.Duration
	ReadTimeout              time.Duration
	WriteTimeout             time.Duration
}

// Server hosts a ConsentAPI together with health, drain and diagnostic
// endpoints.
type Server struct {
	cfg     *HTTPServerConfig
	isReady atomic.Bool
	log     *slog.Logger

	api ConsentAPI
	srv *http.Server
}

// New creates a Server for the given API handler. The server starts in
// the ready state.
func New(cfg *HTTPServerConfig, api ConsentAPI) (*Server, error) {
	if api == nil {
		return nil, errors.New("httpserver: api handler is required")
	}

	srv := &Server{
		cfg: cfg,
		log: cfg.Log,
		api: api,
	}
	srv.isReady.Store(true)

	srv.srv = &http.Server{
		Addr:         cfg.ListenAddr,
		Handler:      srv.getRouter(),
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}

	return srv, nil
}

func (srv *Server) getRouter() http.Handler {
	mux := chi.NewRouter()

	mux.With(srv.httpLogger).Post("/api/v1/owner-token", srv.api.HandleMintOwnerToken)
	mux.With(srv.httpLogger).Post("/api/v1/grants", srv.api.HandleRequestGrant)
	mux.With(srv.httpLogger).Post("/api/v1/grants/{grant_id}/approve", srv.api.HandleApproveGrant)
	mux.With(srv.httpLogger).Post("/api/v1/grants/{grant_id}/deny", srv.api.HandleDenyGrant)
	mux.With(srv.httpLogger).Post("/api/v1/grants/{grant_id}/cancel", srv.api.HandleCancelGrant)
	mux.With(srv.httpLogger).Get("/api/v1/grants", srv.api.HandleListGrants)
	mux.With(srv.httpLogger).Post("/api/v1/revocations", srv.api.HandleRevoke)
	mux.With(srv.httpLogger).Post("/api/v1/revocations/check", srv.api.HandleRevocationCheck)

	// Health and diagnostic endpoints
	mux.With(srv.httpLogger).Get("/livez", srv.handleLivenessCheck)
	mux.With(srv.httpLogger).Get("/readyz", srv.handleReadinessCheck)
	mux.With(srv.httpLogger).Get("/drain", srv.handleDrain)
	mux.With(srv.httpLogger).Get("/undrain", srv.handleUndrain)

	if srv.cfg.EnablePprof {
		srv.log.Info("pprof API enabled")
		mux.Mount("/debug", middleware.Profiler())
	}
	return mux
}

func (srv *Server) httpLogger(next http.Handler) http.Handler {
	return httplogger.LoggingMiddlewareSlog(srv.log, next)
}

func (srv *Server) handleLivenessCheck(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"alive"}`))
}

func (srv *Server) handleReadinessCheck(w http.ResponseWriter, r *http.Request) {
	if !srv.isReady.Load() {
		w.WriteHeader(http.StatusServiceUnavailable)
		w.Write([]byte(`{"status":"not ready"}`))
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"ready"}`))
}

func (srv *Server) handleDrain(w http.ResponseWriter, r *http.Request) {
	if !srv.isReady.Swap(false) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"already draining"}`))
		return
	}

	srv.log.Info("Server marked as not ready")

	go func() {
		// Wait for the drain duration so load balancers notice the
		// readiness flip before shutdown proceeds.
		time.Sleep(srv.cfg.DrainDuration)
		srv.log.Info("Drain period completed")
	}()

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"draining"}`))
}

func (srv *Server) handleUndrain(w http.ResponseWriter, r *http.Request) {
	if srv.isReady.Swap(true) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"already ready"}`))
		return
	}

	srv.log.Info("Server marked as ready")

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"ready"}`))
}

// RunInBackground starts the HTTP server in a goroutine.
func (srv *Server) RunInBackground() {
	go func() {
		srv.log.Info("Starting HTTP server", "listenAddress", srv.cfg.ListenAddr)
		if err := srv.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			srv.log.Error("HTTP server failed", "err", err)
		}
	}()
}

// Shutdown stops the server, waiting up to GracefulShutdownDuration for
// in-flight requests to finish.
func (srv *Server) Shutdown() {
	ctx, cancel := context.WithTimeout(context.Background(), srv.cfg.GracefulShutdownDuration)
	defer cancel()
	if err := srv.srv.Shutdown(ctx); err != nil {
		srv.log.Error("Graceful HTTP server shutdown failed", "err", err)
	} else {
		srv.log.Info("HTTP server gracefully stopped")
	}
}
