package vault

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"go.uber.org/atomic"
	"golang.org/x/sync/singleflight"

	"github.com/hushh-labs/consent-core/consent"
	"github.com/hushh-labs/consent-core/cryptoutils"
	"github.com/hushh-labs/consent-core/interfaces"
)

const (
	// DefaultRefreshBuffer is how long before expiry a cached owner session
	// stops being served and a fresh mint is triggered instead.
	DefaultRefreshBuffer = 5 * time.Minute

	// DefaultMintTimeout bounds a single owner-token mint exchange.
	DefaultMintTimeout = 30 * time.Second
)

// State is the lifecycle state of a SessionManager.
type State int32

const (
	StateLocked State = iota
	StateUnlocking
	StateUnlocked
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case StateLocked:
		return "locked"
	case StateUnlocking:
		return "unlocking"
	case StateUnlocked:
		return "unlocked"
	default:
		return "unknown"
	}
}

// SessionManager holds an unlocked master key and a cache of VAULT_OWNER
// sessions. It is safe for concurrent use. The master key lives only inside
// the manager between Unlock and Lock; sealing and opening of domain blobs
// happen through the manager so the key never crosses its boundary.
type SessionManager struct {
	identity interfaces.IdentityProvider
	minter   interfaces.TokenMinter
	log      *slog.Logger

	refreshBuffer time.Duration
	mintTimeout   time.Duration
	now           func() time.Time

	state     atomic.Int32
	mintGroup singleflight.Group

	mu        sync.RWMutex
	masterKey []byte
	sessions  map[string]interfaces.OwnerSession
}

// NewSessionManager creates a locked session manager. The identity provider
// supplies per-user credentials and the minter exchanges them for owner
// tokens; both are required.
func NewSessionManager(identity interfaces.IdentityProvider, minter interfaces.TokenMinter, log *slog.Logger) (*SessionManager, error) {
	if identity == nil || minter == nil || log == nil {
		return nil, errors.New("identity provider, token minter and logger are all required")
	}
	return &SessionManager{
		identity:      identity,
		minter:        minter,
		log:           log,
		refreshBuffer: DefaultRefreshBuffer,
		mintTimeout:   DefaultMintTimeout,
		now:           time.Now,
		sessions:      make(map[string]interfaces.OwnerSession),
	}, nil
}

// WithClock overrides the time source. Call it before the manager is shared
// between goroutines.
func (m *SessionManager) WithClock(now func() time.Time) *SessionManager {
	m.now = now
	return m
}

// WithRefreshBuffer overrides how long before expiry a cached session stops
// being served.
func (m *SessionManager) WithRefreshBuffer(buffer time.Duration) *SessionManager {
	m.refreshBuffer = buffer
	return m
}

// WithMintTimeout overrides the per-mint deadline.
func (m *SessionManager) WithMintTimeout(timeout time.Duration) *SessionManager {
	m.mintTimeout = timeout
	return m
}

// State reports the manager's lifecycle state.
func (m *SessionManager) State() State {
	return State(m.state.Load())
}

// Unlock opens the primary envelope of the key material and arms the
// manager with the master key. Wrong passphrase and tampered material fail
// identically; a failed unlock on an already-unlocked manager keeps the
// current key.
func (m *SessionManager) Unlock(material interfaces.VaultKeyMaterial, passphrase string) error {
	return m.unlock(func() ([]byte, error) { return Unlock(material, passphrase) })
}

// UnlockWithRecovery arms the manager through the recovery envelope.
func (m *SessionManager) UnlockWithRecovery(material interfaces.VaultKeyMaterial, code string) error {
	return m.unlock(func() ([]byte, error) { return UnlockWithRecovery(material, code) })
}

func (m *SessionManager) unlock(open func() ([]byte, error)) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	wasLocked := m.masterKey == nil
	if wasLocked {
		m.state.Store(int32(StateUnlocking))
	}

	masterKey, err := open()
	if err != nil {
		if wasLocked {
			m.state.Store(int32(StateLocked))
		}
		return err
	}

	if m.masterKey != nil {
		cryptoutils.Zero(m.masterKey)
	}
	m.masterKey = masterKey
	m.state.Store(int32(StateUnlocked))
	m.log.Debug("vault unlocked")
	return nil
}

// Lock zeroizes the master key and clears every cached owner session. The
// manager can be unlocked again afterwards.
func (m *SessionManager) Lock() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.masterKey != nil {
		cryptoutils.Zero(m.masterKey)
		m.masterKey = nil
	}
	m.sessions = make(map[string]interfaces.OwnerSession)
	m.state.Store(int32(StateLocked))
	m.log.Debug("vault locked")
}

// GetOrIssueOwnerToken returns the cached owner session for userID while it
// has more than the refresh buffer left, with no network or crypto work.
// Otherwise it obtains an identity credential and exchanges it for a fresh
// VAULT_OWNER token. Concurrent callers for the same user share one
// in-flight mint.
func (m *SessionManager) GetOrIssueOwnerToken(ctx context.Context, userID string) (interfaces.OwnerSession, error) {
	if userID == "" {
		return interfaces.OwnerSession{}, errors.New("user id must not be empty")
	}
	if m.State() != StateUnlocked {
		return interfaces.OwnerSession{}, interfaces.ErrVaultLocked
	}

	if session, ok := m.cachedSession(userID); ok {
		return session, nil
	}

	result, err, _ := m.mintGroup.Do(userID, func() (any, error) {
		return m.mintSession(ctx, userID)
	})
	if err != nil {
		return interfaces.OwnerSession{}, err
	}
	return result.(interfaces.OwnerSession), nil
}

func (m *SessionManager) cachedSession(userID string) (interfaces.OwnerSession, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	session, ok := m.sessions[userID]
	if !ok {
		return interfaces.OwnerSession{}, false
	}
	if m.now().UnixMilli() >= session.ExpiresAt-m.refreshBuffer.Milliseconds() {
		return interfaces.OwnerSession{}, false
	}
	return session, true
}

func (m *SessionManager) mintSession(ctx context.Context, userID string) (interfaces.OwnerSession, error) {
	// A caller that queued behind a completed flight may find the cache
	// already fresh.
	if session, ok := m.cachedSession(userID); ok {
		return session, nil
	}

	credential, err := m.identity.Credential(ctx, userID)
	if err != nil {
		return interfaces.OwnerSession{}, fmt.Errorf("could not obtain identity credential: %w", err)
	}

	mintCtx, cancel := context.WithTimeout(ctx, m.mintTimeout)
	defer cancel()

	wire, err := m.minter.MintOwnerToken(mintCtx, userID, credential)
	if err != nil {
		var netErr *interfaces.NetworkError
		if errors.As(err, &netErr) {
			return interfaces.OwnerSession{}, err
		}
		if errors.Is(err, context.DeadlineExceeded) {
			return interfaces.OwnerSession{}, &interfaces.NetworkError{Op: "mint owner token", Timeout: true, Err: err}
		}
		return interfaces.OwnerSession{}, fmt.Errorf("could not mint owner token: %w", err)
	}

	// Never cache a token the service handed back malformed or mis-scoped.
	token, err := consent.DecodeToken(wire)
	if err != nil {
		return interfaces.OwnerSession{}, fmt.Errorf("minted token is not well formed: %w", err)
	}
	if token.Scope != interfaces.OwnerScope {
		return interfaces.OwnerSession{}, fmt.Errorf("minted token carries scope %q instead of %q", token.Scope, interfaces.OwnerScope)
	}
	if token.SubjectID != userID {
		return interfaces.OwnerSession{}, fmt.Errorf("minted token subject %q does not match user %q", token.SubjectID, userID)
	}
	if !token.ExpiresTime().After(m.now()) {
		return interfaces.OwnerSession{}, errors.New("minted token is already expired")
	}

	session := interfaces.OwnerSession{
		UserID:    userID,
		Raw:       wire,
		Token:     token,
		ExpiresAt: token.ExpiresAt,
	}

	m.mu.Lock()
	if m.masterKey == nil {
		m.mu.Unlock()
		return interfaces.OwnerSession{}, interfaces.ErrVaultLocked
	}
	m.sessions[userID] = session
	m.mu.Unlock()

	m.log.Debug("minted owner session",
		slog.String("user", userID),
		slog.String("token", interfaces.Fingerprint(wire)),
		slog.String("expires", token.ExpiresTime().Format(time.RFC3339)))

	return session, nil
}
