package carrier

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/shopkart/fulfillment/internal/domain/fulfillment"
)

const (
	// tokenExpirySafetyBuffer is subtracted from the expiry when judging
	// validity, so a token is refreshed before it can expire mid-request.
	tokenExpirySafetyBuffer = 5 * time.Minute

	// defaultTokenTTL applies when the carrier omits expires_in
	defaultTokenTTL = 20 * time.Hour

	maxAuthResponseSize = 1 * 1024 * 1024
)

// TokenStore is the persistent tier of the token cache. It survives process
// restarts and is shared across instances. All methods are best-effort from
// the TokenManager's point of view: a freshly obtained token is usable even
// when the store write fails.
type TokenStore interface {
	Get(ctx context.Context) (*CachedToken, error)
	PutWithTTL(ctx context.Context, token CachedToken, ttl time.Duration) error
	Clear(ctx context.Context) error
}

// TokenManager acquires and caches a bearer token for the carrier API.
// Resolution order: valid in-process cache, valid token in the persistent
// store, then the carrier login endpoint. Concurrent callers that all observe
// a missing or expired token coalesce into a single in-flight login.
type TokenManager struct {
	config     *Config
	store      TokenStore
	httpClient *http.Client
	logger     *zap.Logger
	clock      func() time.Time

	mu     sync.RWMutex
	cached CachedToken

	group singleflight.Group
}

// NewTokenManager creates a TokenManager. The store may be nil, in which case
// only the in-process cache tier is used.
func NewTokenManager(config *Config, store TokenStore, logger *zap.Logger) (*TokenManager, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &TokenManager{
		config:     config,
		store:      store,
		httpClient: &http.Client{Timeout: time.Duration(config.TimeoutSeconds) * time.Second},
		logger:     logger,
		clock:      time.Now,
	}, nil
}

// SetClock replaces the time source, for deterministic tests.
func (m *TokenManager) SetClock(clock func() time.Time) {
	m.clock = clock
}

// Authenticate returns a valid bearer token, logging in only when neither
// cache tier has one.
func (m *TokenManager) Authenticate(ctx context.Context) (string, error) {
	m.mu.RLock()
	cached := m.cached
	m.mu.RUnlock()
	if cached.ValidAt(m.clock()) {
		return cached.Token, nil
	}

	result, err, _ := m.group.Do("token", func() (any, error) {
		return m.resolveToken(ctx)
	})
	if err != nil {
		return "", err
	}
	return result.(string), nil
}

// ForceRefresh clears both cache tiers and obtains a fresh token. Called
// whenever a downstream request is rejected with an authorization error, so
// one stale token cannot repeatedly fail every caller.
func (m *TokenManager) ForceRefresh(ctx context.Context) (string, error) {
	result, err, _ := m.group.Do("refresh", func() (any, error) {
		m.mu.Lock()
		m.cached = CachedToken{}
		m.mu.Unlock()

		if m.store != nil {
			if err := m.store.Clear(ctx); err != nil {
				// Best-effort: a failed clear only means the stale
				// token lingers in the store until its TTL.
				m.logger.Warn("failed to clear persisted carrier token", zap.Error(err))
			}
		}

		return m.login(ctx)
	})
	if err != nil {
		return "", err
	}
	return result.(string), nil
}

// resolveToken runs inside the singleflight group
func (m *TokenManager) resolveToken(ctx context.Context) (string, error) {
	now := m.clock()

	// Re-check under the flight: another caller may have refreshed while
	// we waited to enter.
	m.mu.RLock()
	cached := m.cached
	m.mu.RUnlock()
	if cached.ValidAt(now) {
		return cached.Token, nil
	}

	// Adopt a valid token from the persistent store
	if m.store != nil {
		stored, err := m.store.Get(ctx)
		if err != nil {
			m.logger.Warn("failed to read persisted carrier token", zap.Error(err))
		} else if stored != nil && stored.ValidAt(now) {
			m.mu.Lock()
			m.cached = *stored
			m.mu.Unlock()
			return stored.Token, nil
		}
	}

	return m.login(ctx)
}

// login calls the carrier auth endpoint and caches the result in both tiers
func (m *TokenManager) login(ctx context.Context) (string, error) {
	if m.config.Email == "" || m.config.Password == "" {
		return "", &fulfillment.AuthenticationError{Reason: "carrier credentials are not configured"}
	}

	body, err := json.Marshal(loginRequest{Email: m.config.Email, Password: m.config.Password})
	if err != nil {
		return "", fmt.Errorf("carrier: failed to marshal login request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, m.config.authURL(), bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("carrier: failed to create login request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := m.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("carrier: login request failed: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxAuthResponseSize))
	if err != nil {
		return "", fmt.Errorf("carrier: failed to read login response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return "", &fulfillment.AuthenticationError{
			Reason: fmt.Sprintf("login rejected with HTTP %d: %s", resp.StatusCode, string(raw)),
		}
	}

	var login loginResponse
	if err := json.Unmarshal(raw, &login); err != nil {
		return "", fmt.Errorf("carrier: failed to parse login response: %w", err)
	}
	if login.Token == "" {
		return "", &fulfillment.AuthenticationError{Reason: "login response contained no token"}
	}

	ttl := defaultTokenTTL
	if login.ExpiresIn > 0 {
		ttl = time.Duration(login.ExpiresIn) * time.Second
	}
	token := CachedToken{Token: login.Token, Expiry: m.clock().Add(ttl)}

	m.mu.Lock()
	m.cached = token
	m.mu.Unlock()

	if m.store != nil {
		if err := m.store.PutWithTTL(ctx, token, ttl); err != nil {
			// Non-fatal: the fresh token is still usable for this call.
			m.logger.Warn("failed to persist carrier token", zap.Error(err))
		}
	}

	m.logger.Info("obtained carrier token", zap.Time("expiry", token.Expiry))
	return token.Token, nil
}
