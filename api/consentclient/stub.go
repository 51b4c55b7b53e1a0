package consentclient

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sort"
	"sync"
	"time"

	"github.com/flashbots/go-utils/httplogger"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/atomic"

	"github.com/hushh-labs/consent-core/api"
	"github.com/hushh-labs/consent-core/consent"
	"github.com/hushh-labs/consent-core/identity"
	"github.com/hushh-labs/consent-core/interfaces"
	"github.com/hushh-labs/consent-core/revocation"
)

// StubOwnerTokenTTL is the lifetime of owner tokens minted by the stub.
const StubOwnerTokenTTL = time.Hour

// StubService is an in-process consent service for development and tests.
// It issues real signed tokens through a consent.Issuer and verifies real
// identity credentials, so everything downstream of the HTTP boundary
// behaves exactly as it would against a production deployment.
type StubService struct {
	issuer   *consent.Issuer
	verifier *identity.LocalIssuer
	registry *revocation.MemoryRegistry
	log      *slog.Logger
	now      func() time.Time

	mu     sync.RWMutex
	grants map[string]api.GrantRecord

	mintCount atomic.Int64
}

// NewStubService wires a stub service around a real token issuer and a
// local credential verifier.
func NewStubService(issuer *consent.Issuer, verifier *identity.LocalIssuer, log *slog.Logger) (*StubService, error) {
	if issuer == nil || verifier == nil || log == nil {
		return nil, errors.New("issuer, verifier and logger are all required")
	}
	return &StubService{
		issuer:   issuer,
		verifier: verifier,
		registry: revocation.NewMemoryRegistry(),
		log:      log,
		now:      time.Now,
		grants:   make(map[string]api.GrantRecord),
	}, nil
}

// WithClock overrides the time source used for grant timestamps. Call it
// before the stub serves requests.
func (s *StubService) WithClock(now func() time.Time) *StubService {
	s.now = now
	return s
}

// Registry exposes the stub's revocation state so a validator running in
// the same process can share it.
func (s *StubService) Registry() interfaces.RevocationRegistry {
	return s.registry
}

// MintCount reports how many owner tokens the stub has minted so far. Tests
// use it to prove that session caching and mint deduplication reach the
// service exactly once.
func (s *StubService) MintCount() int64 {
	return s.mintCount.Load()
}

// Router returns the stub's HTTP handler.
func (s *StubService) Router() http.Handler {
	mux := chi.NewRouter()

	mux.With(s.httpLogger).Post("/api/v1/owner-token", s.HandleMintOwnerToken)
	mux.With(s.httpLogger).Post("/api/v1/grants", s.HandleRequestGrant)
	mux.With(s.httpLogger).Post("/api/v1/grants/{grant_id}/approve", s.HandleApproveGrant)
	mux.With(s.httpLogger).Post("/api/v1/grants/{grant_id}/deny", s.HandleDenyGrant)
	mux.With(s.httpLogger).Post("/api/v1/grants/{grant_id}/cancel", s.HandleCancelGrant)
	mux.With(s.httpLogger).Get("/api/v1/grants", s.HandleListGrants)
	mux.With(s.httpLogger).Post("/api/v1/revocations", s.HandleRevoke)
	mux.With(s.httpLogger).Post("/api/v1/revocations/check", s.HandleRevocationCheck)

	mux.With(s.httpLogger).Get("/livez", s.handleLivenessCheck)

	return mux
}

func (s *StubService) httpLogger(next http.Handler) http.Handler {
	return httplogger.LoggingMiddlewareSlog(s.log, next)
}

// HandleMintOwnerToken verifies the caller's identity credential and mints
// an owner-scoped consent token for the matching user.
func (s *StubService) HandleMintOwnerToken(w http.ResponseWriter, r *http.Request) {
	var req api.MintOwnerTokenRequest
	if err := api.DecodeStrict(r.Body, &req); err != nil {
		s.writeError(w, http.StatusBadRequest, err)
		return
	}
	if req.UserID == "" || req.Credential == "" {
		s.writeError(w, http.StatusBadRequest, fmt.Errorf("userId and credential are required"))
		return
	}

	subject, err := s.verifier.Verify(req.Credential)
	if err != nil {
		s.writeError(w, http.StatusUnauthorized, fmt.Errorf("could not verify credential: %w", err))
		return
	}
	if subject != req.UserID {
		s.writeError(w, http.StatusUnauthorized, fmt.Errorf("credential subject does not match user %s", req.UserID))
		return
	}

	token, err := s.issuer.Issue(req.UserID, req.UserID, interfaces.OwnerScope, StubOwnerTokenTTL)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, fmt.Errorf("could not issue owner token: %w", err))
		return
	}

	s.mintCount.Inc()
	s.writeJSON(w, api.MintOwnerTokenResponse{Token: consent.EncodeToken(token)})
}

// HandleRequestGrant records a pending grant request. No token exists
// until the subject approves it.
func (s *StubService) HandleRequestGrant(w http.ResponseWriter, r *http.Request) {
	var req api.RequestGrantRequest
	if err := api.DecodeStrict(r.Body, &req); err != nil {
		s.writeError(w, http.StatusBadRequest, err)
		return
	}
	if req.SubjectID == "" || req.GranteeID == "" || req.Scope == "" {
		s.writeError(w, http.StatusBadRequest, fmt.Errorf("subjectId, granteeId and scope are required"))
		return
	}
	if req.TTLMillis < 0 {
		s.writeError(w, http.StatusBadRequest, fmt.Errorf("ttlMillis must not be negative"))
		return
	}

	grant := api.GrantRecord{
		ID:        uuid.NewString(),
		SubjectID: req.SubjectID,
		GranteeID: req.GranteeID,
		Scope:     req.Scope,
		Status:    api.GrantStatusPending,
		TTLMillis: req.TTLMillis,
		CreatedAt: s.now().UnixMilli(),
	}

	s.mu.Lock()
	s.grants[grant.ID] = grant
	s.mu.Unlock()

	s.writeJSON(w, api.GrantResponse{Grant: grant})
}

// HandleApproveGrant approves a pending grant and mints its consent token.
func (s *StubService) HandleApproveGrant(w http.ResponseWriter, r *http.Request) {
	s.decideGrant(w, r, api.GrantStatusApproved)
}

// HandleDenyGrant denies a pending grant.
func (s *StubService) HandleDenyGrant(w http.ResponseWriter, r *http.Request) {
	s.decideGrant(w, r, api.GrantStatusDenied)
}

// HandleCancelGrant cancels a pending grant on behalf of the requester.
func (s *StubService) HandleCancelGrant(w http.ResponseWriter, r *http.Request) {
	s.decideGrant(w, r, api.GrantStatusCancelled)
}

// decideGrant moves a pending grant into a terminal state. Approval mints
// the consent token; denial and cancellation never do.
func (s *StubService) decideGrant(w http.ResponseWriter, r *http.Request, status string) {
	grantID := r.PathValue("grant_id")

	s.mu.Lock()
	defer s.mu.Unlock()

	grant, ok := s.grants[grantID]
	if !ok {
		s.writeError(w, http.StatusNotFound, fmt.Errorf("grant %s not found", grantID))
		return
	}
	if grant.Status != api.GrantStatusPending {
		s.writeError(w, http.StatusConflict, fmt.Errorf("grant %s already %s", grantID, grant.Status))
		return
	}

	if status == api.GrantStatusApproved {
		ttl := consent.DefaultTokenTTL
		if grant.TTLMillis > 0 {
			ttl = time.Duration(grant.TTLMillis) * time.Millisecond
		}
		token, err := s.issuer.Issue(grant.SubjectID, grant.GranteeID, grant.Scope, ttl)
		if err != nil {
			s.writeError(w, http.StatusInternalServerError, fmt.Errorf("could not issue consent token: %w", err))
			return
		}
		grant.Token = consent.EncodeToken(token)
	}

	grant.Status = status
	grant.DecidedAt = s.now().UnixMilli()
	s.grants[grantID] = grant

	s.writeJSON(w, api.GrantResponse{Grant: grant})
}

// HandleListGrants returns the grants a user participates in, as subject
// or as grantee, optionally filtered by status.
func (s *StubService) HandleListGrants(w http.ResponseWriter, r *http.Request) {
	user := r.URL.Query().Get("user")
	if user == "" {
		s.writeError(w, http.StatusBadRequest, fmt.Errorf("user query parameter is required"))
		return
	}
	status := r.URL.Query().Get("status")

	s.mu.RLock()
	grants := make([]api.GrantRecord, 0)
	for _, grant := range s.grants {
		if grant.SubjectID != user && grant.GranteeID != user {
			continue
		}
		if status != "" && grant.Status != status {
			continue
		}
		grants = append(grants, grant)
	}
	s.mu.RUnlock()

	sort.Slice(grants, func(i, j int) bool {
		if grants[i].CreatedAt != grants[j].CreatedAt {
			return grants[i].CreatedAt < grants[j].CreatedAt
		}
		return grants[i].ID < grants[j].ID
	})

	s.writeJSON(w, api.ListGrantsResponse{Grants: grants})
}

// HandleRevoke marks a credential as revoked.
func (s *StubService) HandleRevoke(w http.ResponseWriter, r *http.Request) {
	var req api.RevocationRequest
	if err := api.DecodeStrict(r.Body, &req); err != nil {
		s.writeError(w, http.StatusBadRequest, err)
		return
	}
	if req.Credential == "" {
		s.writeError(w, http.StatusBadRequest, fmt.Errorf("credential is required"))
		return
	}

	if err := s.registry.Revoke(r.Context(), req.Credential); err != nil {
		s.writeError(w, http.StatusInternalServerError, fmt.Errorf("could not revoke credential: %w", err))
		return
	}

	s.writeJSON(w, api.RevocationResponse{Revoked: true})
}

// HandleRevocationCheck reports whether a credential has been revoked.
func (s *StubService) HandleRevocationCheck(w http.ResponseWriter, r *http.Request) {
	var req api.RevocationRequest
	if err := api.DecodeStrict(r.Body, &req); err != nil {
		s.writeError(w, http.StatusBadRequest, err)
		return
	}
	if req.Credential == "" {
		s.writeError(w, http.StatusBadRequest, fmt.Errorf("credential is required"))
		return
	}

	revoked, err := s.registry.IsRevoked(r.Context(), req.Credential)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, fmt.Errorf("could not check revocation: %w", err))
		return
	}

	s.writeJSON(w, api.RevocationResponse{Revoked: revoked})
}

func (s *StubService) handleLivenessCheck(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"alive"}`))
}

func (s *StubService) writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.log.Error("could not encode response", "err", err)
	}
}

func (s *StubService) writeError(w http.ResponseWriter, status int, err error) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if encodeErr := json.NewEncoder(w).Encode(api.ErrorResponse{Error: err.Error()}); encodeErr != nil {
		s.log.Error("could not encode error response", "err", encodeErr)
	}
}
