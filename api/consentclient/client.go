package consentclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/hushh-labs/consent-core/api"
	"github.com/hushh-labs/consent-core/interfaces"
)

// DefaultMintTimeout bounds a single owner-token mint call.
const DefaultMintTimeout = 30 * time.Second

// RequestIDHeader carries a caller-generated id on every request so client
// calls can be correlated with service logs.
const RequestIDHeader = "X-Request-ID"

// Client talks to the consent service HTTP API. It implements
// interfaces.TokenMinter and interfaces.RevocationRegistry, so a vault
// session manager and a token validator can be pointed at a remote service
// without knowing about HTTP.
type Client struct {
	// BaseURL is the consent service root, without a trailing slash.
	BaseURL string

	// Client is the HTTP client used for all calls. Defaults to
	// http.DefaultClient.
	Client *http.Client

	// MintTimeout bounds MintOwnerToken calls. Defaults to
	// DefaultMintTimeout.
	MintTimeout time.Duration
}

// NewClient returns a client for the consent service at baseURL.
func NewClient(baseURL string) *Client {
	return &Client{
		BaseURL:     strings.TrimRight(baseURL, "/"),
		Client:      http.DefaultClient,
		MintTimeout: DefaultMintTimeout,
	}
}

// MintOwnerToken exchanges an identity credential for a VAULT_OWNER consent
// token. The call is bounded by MintTimeout; a timeout or transport failure
// surfaces as *interfaces.NetworkError, never as an empty token.
func (c *Client) MintOwnerToken(ctx context.Context, userID string, credential string) (string, error) {
	timeout := c.MintTimeout
	if timeout <= 0 {
		timeout = DefaultMintTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var resp api.MintOwnerTokenResponse
	err := c.do(ctx, http.MethodPost, "/api/v1/owner-token", api.MintOwnerTokenRequest{
		UserID:     userID,
		Credential: credential,
	}, &resp)
	if err != nil {
		if isTimeout(err) {
			return "", &interfaces.NetworkError{Op: "mint owner token", Timeout: true, Err: err}
		}
		var urlErr *url.Error
		if errors.As(err, &urlErr) {
			return "", &interfaces.NetworkError{Op: "mint owner token", Err: err}
		}
		return "", err
	}
	if resp.Token == "" {
		return "", fmt.Errorf("consent service returned an empty token")
	}
	return resp.Token, nil
}

// RequestGrant opens a pending consent request naming the subject whose data
// is wanted, the agent asking, and the scope. A zero ttl leaves the token
// lifetime to the service default.
func (c *Client) RequestGrant(ctx context.Context, subjectID, granteeID string, scope interfaces.Scope, ttl time.Duration) (api.GrantRecord, error) {
	req := api.RequestGrantRequest{
		SubjectID: subjectID,
		GranteeID: granteeID,
		Scope:     scope,
	}
	if ttl > 0 {
		req.TTLMillis = ttl.Milliseconds()
	}

	var resp api.GrantResponse
	if err := c.do(ctx, http.MethodPost, "/api/v1/grants", req, &resp); err != nil {
		return api.GrantRecord{}, err
	}
	return resp.Grant, nil
}

// ApproveGrant approves a pending grant on behalf of its subject. The
// returned record carries the freshly minted consent token.
func (c *Client) ApproveGrant(ctx context.Context, grantID string) (api.GrantRecord, error) {
	return c.decideGrant(ctx, grantID, "approve")
}

// DenyGrant denies a pending grant. The grantee never receives a token.
func (c *Client) DenyGrant(ctx context.Context, grantID string) (api.GrantRecord, error) {
	return c.decideGrant(ctx, grantID, "deny")
}

// CancelGrant withdraws a pending grant on behalf of the agent that opened
// it.
func (c *Client) CancelGrant(ctx context.Context, grantID string) (api.GrantRecord, error) {
	return c.decideGrant(ctx, grantID, "cancel")
}

func (c *Client) decideGrant(ctx context.Context, grantID, verb string) (api.GrantRecord, error) {
	var resp api.GrantResponse
	path := fmt.Sprintf("/api/v1/grants/%s/%s", url.PathEscape(grantID), verb)
	if err := c.do(ctx, http.MethodPost, path, nil, &resp); err != nil {
		return api.GrantRecord{}, err
	}
	return resp.Grant, nil
}

// ListGrants returns every grant in which userID appears as subject or as
// grantee.
func (c *Client) ListGrants(ctx context.Context, userID string) ([]api.GrantRecord, error) {
	var resp api.ListGrantsResponse
	if err := c.do(ctx, http.MethodGet, "/api/v1/grants?user="+url.QueryEscape(userID), nil, &resp); err != nil {
		return nil, err
	}
	return resp.Grants, nil
}

// Revoke marks a credential as revoked service-side. The credential travels
// in the request body so bearer material never appears in URLs or access
// logs.
func (c *Client) Revoke(ctx context.Context, credential string) error {
	return c.do(ctx, http.MethodPost, "/api/v1/revocations", api.RevocationRequest{Credential: credential}, nil)
}

// IsRevoked reports whether a credential has been revoked service-side.
func (c *Client) IsRevoked(ctx context.Context, credential string) (bool, error) {
	var resp api.RevocationResponse
	if err := c.do(ctx, http.MethodPost, "/api/v1/revocations/check", api.RevocationRequest{Credential: credential}, &resp); err != nil {
		return false, err
	}
	return resp.Revoked, nil
}

func (c *Client) do(ctx context.Context, method, path string, body any, out any) error {
	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("could not encode request: %w", err)
		}
		reader = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, reader)
	if err != nil {
		return fmt.Errorf("could not initialize request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set(RequestIDHeader, uuid.NewString())

	client := c.Client
	if client == nil {
		client = http.DefaultClient
	}

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("could not request consent service: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("could not read consent service response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		var errResp api.ErrorResponse
		if json.Unmarshal(raw, &errResp) == nil && errResp.Error != "" {
			return fmt.Errorf("consent service returned %d: %s", resp.StatusCode, errResp.Error)
		}
		return fmt.Errorf("consent service returned %d: %s", resp.StatusCode, string(raw))
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("could not parse consent service response: %w", err)
	}
	return nil
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
