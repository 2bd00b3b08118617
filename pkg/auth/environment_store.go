package auth

import (
	"os"
	"time"
)

// EnvironmentStore reads credentials from environment variables. It is
// read-only.
type EnvironmentStore struct{}

// NewEnvironmentStore creates a new environment-based credential store
func NewEnvironmentStore() *EnvironmentStore {
	return &EnvironmentStore{}
}

// Store is not supported for environment variables
func (e *EnvironmentStore) Store(*ClientCredentials) error {
	return ErrStoreUnavailable
}

// Retrieve gets credentials from environment variables
func (e *EnvironmentStore) Retrieve(platform string) (*ClientCredentials, error) {
	var creds *ClientCredentials

	switch platform {
	case PlatformTikTok:
		creds = &ClientCredentials{
			Platform:     PlatformTikTok,
			ClientID:     firstEnv("SOCIALCRAWL_TIKTOK_CLIENT_KEY", "TIKTOK_CLIENT_KEY"),
			ClientSecret: firstEnv("SOCIALCRAWL_TIKTOK_CLIENT_SECRET", "TIKTOK_CLIENT_SECRET"),
		}
	case PlatformReddit:
		creds = &ClientCredentials{
			Platform:     PlatformReddit,
			ClientID:     firstEnv("SOCIALCRAWL_REDDIT_CLIENT_ID", "REDDIT_CLIENT_ID"),
			ClientSecret: firstEnv("SOCIALCRAWL_REDDIT_CLIENT_SECRET", "REDDIT_CLIENT_SECRET"),
			UserAgent:    firstEnv("SOCIALCRAWL_REDDIT_USER_AGENT", "REDDIT_USER_AGENT"),
		}
	default:
		return nil, ErrInvalidCredentials
	}

	if creds.ClientID == "" || creds.ClientSecret == "" {
		return nil, ErrCredentialsNotFound
	}
	creds.LastModified = time.Now()

	return creds, nil
}

// List returns every platform whose variables are set
func (e *EnvironmentStore) List() ([]*ClientCredentials, error) {
	var all []*ClientCredentials
	for _, platform := range Platforms {
		if creds, err := e.Retrieve(platform); err == nil {
			all = append(all, creds)
		}
	}
	return all, nil
}

// Delete is not supported for environment variables
func (e *EnvironmentStore) Delete(string) error {
	return ErrStoreUnavailable
}

// Exists checks if environment credentials exist
func (e *EnvironmentStore) Exists(platform string) bool {
	_, err := e.Retrieve(platform)
	return err == nil
}

func firstEnv(keys ...string) string {
	for _, key := range keys {
		if v := os.Getenv(key); v != "" {
			return v
		}
	}
	return ""
}
