package auth

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	errs "socialcrawl/pkg/errors"
	"socialcrawl/pkg/logger"
)

// Credential is a short-lived bearer token. It is held in memory only.
type Credential struct {
	AccessToken string
	TokenType   string
	ExpiresIn   time.Duration
	ObtainedAt  time.Time
}

// IsZero reports whether no token has been obtained yet
func (c Credential) IsZero() bool {
	return c.AccessToken == ""
}

// AuthorizationHeader returns the value for the Authorization header
func (c Credential) AuthorizationHeader() string {
	tokenType := c.TokenType
	if tokenType == "" || tokenType == "bearer" {
		tokenType = "Bearer"
	}
	return tokenType + " " + c.AccessToken
}

// Exchanger trades application credentials for an access token
type Exchanger interface {
	Exchange(ctx context.Context) (Credential, error)
}

// ExchangerFunc adapts a function to the Exchanger interface
type ExchangerFunc func(ctx context.Context) (Credential, error)

// Exchange calls f
func (f ExchangerFunc) Exchange(ctx context.Context) (Credential, error) {
	return f(ctx)
}

// TokenManager owns the current access token. Refresh is its only writer.
type TokenManager struct {
	mu        sync.RWMutex
	current   Credential
	exchanger Exchanger
	platform  string
	logger    logger.Logger
}

// NewTokenManager creates a manager that has not yet obtained a token
func NewTokenManager(platform string, exchanger Exchanger, log logger.Logger) *TokenManager {
	if log == nil {
		log = logger.GetLogger()
	}
	return &TokenManager{
		exchanger: exchanger,
		platform:  platform,
		logger:    log,
	}
}

// Current returns the most recently obtained credential
func (m *TokenManager) Current() Credential {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.current
}

// Refresh performs a synchronous exchange and replaces the stored token.
// Any failure is reported as a credential error.
func (m *TokenManager) Refresh(ctx context.Context) (Credential, error) {
	if m.exchanger == nil {
		return Credential{}, &errs.Error{
			Type:    errs.ErrorTypeCredential,
			Message: m.platform + ": no token exchanger configured",
		}
	}

	cred, err := m.exchanger.Exchange(ctx)
	if err != nil {
		var apiErr *errs.Error
		if errors.As(err, &apiErr) && apiErr.Type == errs.ErrorTypeCredential {
			return Credential{}, err
		}
		return Credential{}, &errs.Error{
			Type:    errs.ErrorTypeCredential,
			Message: fmt.Sprintf("%s: token exchange failed", m.platform),
			Code:    errs.StatusOf(err),
			Err:     err,
		}
	}
	if cred.AccessToken == "" {
		return Credential{}, &errs.Error{
			Type:    errs.ErrorTypeCredential,
			Message: fmt.Sprintf("%s: token exchange returned no access token", m.platform),
		}
	}
	if cred.ObtainedAt.IsZero() {
		cred.ObtainedAt = time.Now()
	}

	m.mu.Lock()
	m.current = cred
	m.mu.Unlock()

	m.logger.InfoWithFields("access token obtained", map[string]interface{}{
		"platform":   m.platform,
		"expires_in": cred.ExpiresIn.String(),
	})

	return cred, nil
}

// Ensure obtains a token if none is held yet
func (m *TokenManager) Ensure(ctx context.Context) (Credential, error) {
	if cur := m.Current(); !cur.IsZero() {
		return cur, nil
	}
	return m.Refresh(ctx)
}
