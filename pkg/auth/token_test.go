package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	errs "socialcrawl/pkg/errors"
	"socialcrawl/pkg/logger"
)

func TestTokenManagerRefreshReplacesCredential(t *testing.T) {
	calls := 0
	ex := ExchangerFunc(func(ctx context.Context) (Credential, error) {
		calls++
		return Credential{AccessToken: []string{"", "tok-1", "tok-2"}[calls], ExpiresIn: 2 * time.Hour}, nil
	})
	m := NewTokenManager(PlatformTikTok, ex, logger.NewNopLogger())

	assert.True(t, m.Current().IsZero())

	cred, err := m.Ensure(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "tok-1", cred.AccessToken)
	assert.False(t, cred.ObtainedAt.IsZero())

	_, err = m.Ensure(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, calls, "Ensure reuses a held token")

	cred, err = m.Refresh(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "tok-2", cred.AccessToken)
	assert.Equal(t, "tok-2", m.Current().AccessToken)
}

func TestTokenManagerRefreshFailureIsCredentialError(t *testing.T) {
	ex := ExchangerFunc(func(ctx context.Context) (Credential, error) {
		return Credential{}, errors.New("connection refused")
	})
	m := NewTokenManager(PlatformReddit, ex, logger.NewNopLogger())

	_, err := m.Refresh(context.Background())
	require.Error(t, err)
	assert.True(t, errs.Is(err, errs.ErrorTypeCredential))
	assert.Contains(t, err.Error(), "connection refused")
	assert.True(t, m.Current().IsZero())
}

func TestTokenManagerKeepsOldTokenOnFailure(t *testing.T) {
	fail := false
	ex := ExchangerFunc(func(ctx context.Context) (Credential, error) {
		if fail {
			return Credential{}, &errs.Error{Type: errs.ErrorTypeCredential, Message: "bad secret", Code: 401}
		}
		return Credential{AccessToken: "first"}, nil
	})
	m := NewTokenManager(PlatformTikTok, ex, logger.NewNopLogger())

	_, err := m.Refresh(context.Background())
	require.NoError(t, err)

	fail = true
	_, err = m.Refresh(context.Background())
	require.Error(t, err)
	assert.Equal(t, 401, errs.StatusOf(err))
	assert.Equal(t, "first", m.Current().AccessToken)
}

func TestTokenManagerRejectsEmptyToken(t *testing.T) {
	ex := ExchangerFunc(func(ctx context.Context) (Credential, error) {
		return Credential{TokenType: "bearer"}, nil
	})
	m := NewTokenManager(PlatformTikTok, ex, logger.NewNopLogger())

	_, err := m.Refresh(context.Background())
	assert.True(t, errs.Is(err, errs.ErrorTypeCredential))
}

func TestAuthorizationHeader(t *testing.T) {
	assert.Equal(t, "Bearer abc", Credential{AccessToken: "abc"}.AuthorizationHeader())
	assert.Equal(t, "Bearer abc", Credential{AccessToken: "abc", TokenType: "bearer"}.AuthorizationHeader())
	assert.Equal(t, "MAC abc", Credential{AccessToken: "abc", TokenType: "MAC"}.AuthorizationHeader())
}
