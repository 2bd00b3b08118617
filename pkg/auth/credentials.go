package auth

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strings"
	"time"
)

// Supported platforms
const (
	PlatformTikTok = "tiktok"
	PlatformReddit = "reddit"
)

// Platforms lists every platform a credential can be stored for
var Platforms = []string{PlatformTikTok, PlatformReddit}

// ClientCredentials are the long-lived application credentials used to
// obtain short-lived access tokens. For TikTok ClientID is the client key.
type ClientCredentials struct {
	Platform     string    `json:"platform"`
	ClientID     string    `json:"client_id"`
	ClientSecret string    `json:"client_secret"`
	UserAgent    string    `json:"user_agent,omitempty"`
	LastModified time.Time `json:"last_modified"`
}

// Validate checks the fields required for the platform
func (c *ClientCredentials) Validate() error {
	if c == nil {
		return ErrInvalidCredentials
	}
	if !IsSupportedPlatform(c.Platform) {
		return fmt.Errorf("unsupported platform %q", c.Platform)
	}
	if c.ClientID == "" || c.ClientSecret == "" {
		return fmt.Errorf("%s: client id and secret are required", c.Platform)
	}
	if c.Platform == PlatformReddit && c.UserAgent == "" {
		return errors.New("reddit: user agent is required")
	}
	return nil
}

// IsSupportedPlatform reports whether platform is known
func IsSupportedPlatform(platform string) bool {
	for _, p := range Platforms {
		if p == platform {
			return true
		}
	}
	return false
}

// CredentialStore is the interface for storing and retrieving credentials
type CredentialStore interface {
	// Store saves credentials for their platform
	Store(creds *ClientCredentials) error

	// Retrieve gets credentials for a platform
	Retrieve(platform string) (*ClientCredentials, error)

	// List returns all stored credentials
	List() ([]*ClientCredentials, error)

	// Delete removes credentials for a platform
	Delete(platform string) error

	// Exists checks if credentials exist for a platform
	Exists(platform string) bool
}

// Manager handles credential storage with fallback mechanisms
type Manager struct {
	stores []CredentialStore
}

// NewManager creates a credential manager backed by the system keychain,
// an encrypted file and finally the environment
func NewManager() (*Manager, error) {
	var stores []CredentialStore

	if keyringStore, err := NewKeyringStore(); err == nil {
		stores = append(stores, keyringStore)
	}

	configDir, err := getConfigDir()
	if err != nil {
		return nil, fmt.Errorf("failed to get config directory: %w", err)
	}

	encryptedStore, err := NewEncryptedFileStore(filepath.Join(configDir, "credentials.enc"))
	if err != nil {
		return nil, fmt.Errorf("failed to create encrypted store: %w", err)
	}
	stores = append(stores, encryptedStore)

	stores = append(stores, NewEnvironmentStore())

	return &Manager{stores: stores}, nil
}

// NewManagerWithStores creates a Manager over explicit stores, in priority order
func NewManagerWithStores(stores ...CredentialStore) *Manager {
	return &Manager{stores: stores}
}

// Store saves credentials using the first store that accepts them
func (m *Manager) Store(creds *ClientCredentials) error {
	if err := creds.Validate(); err != nil {
		return err
	}

	creds.LastModified = time.Now()

	var lastErr error
	for _, store := range m.stores {
		err := store.Store(creds)
		if err == nil {
			return nil
		}
		lastErr = err
	}

	if lastErr != nil {
		return fmt.Errorf("failed to store credentials: %w", lastErr)
	}
	return errors.New("no available credential stores")
}

// Retrieve gets credentials from the first store that has them
func (m *Manager) Retrieve(platform string) (*ClientCredentials, error) {
	for _, store := range m.stores {
		if creds, err := store.Retrieve(platform); err == nil && creds != nil {
			return creds, nil
		}
	}
	return nil, fmt.Errorf("%w for platform: %s", ErrCredentialsNotFound, platform)
}

// List returns the newest credentials per platform across all stores
func (m *Manager) List() ([]*ClientCredentials, error) {
	byPlatform := make(map[string]*ClientCredentials)

	for _, store := range m.stores {
		all, err := store.List()
		if err != nil {
			continue
		}
		for _, creds := range all {
			if existing, ok := byPlatform[creds.Platform]; !ok || creds.LastModified.After(existing.LastModified) {
				byPlatform[creds.Platform] = creds
			}
		}
	}

	result := make([]*ClientCredentials, 0, len(byPlatform))
	for _, creds := range byPlatform {
		result = append(result, creds)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Platform < result[j].Platform })

	return result, nil
}

// Delete removes credentials from all stores
func (m *Manager) Delete(platform string) error {
	var deleted bool
	var lastErr error

	for _, store := range m.stores {
		if err := store.Delete(platform); err == nil {
			deleted = true
		} else {
			lastErr = err
		}
	}

	if !deleted && lastErr != nil {
		return fmt.Errorf("failed to delete credentials: %w", lastErr)
	}
	if !deleted {
		return fmt.Errorf("%w for platform: %s", ErrCredentialsNotFound, platform)
	}

	return nil
}

// getConfigDir returns the configuration directory path
func getConfigDir() (string, error) {
	var configDir string

	switch runtime.GOOS {
	case "darwin":
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		configDir = filepath.Join(home, "Library", "Application Support", "socialcrawl")
	case "windows":
		configDir = filepath.Join(os.Getenv("APPDATA"), "socialcrawl")
	default:
		if xdgConfig := os.Getenv("XDG_CONFIG_HOME"); xdgConfig != "" {
			configDir = filepath.Join(xdgConfig, "socialcrawl")
		} else {
			home, err := os.UserHomeDir()
			if err != nil {
				return "", err
			}
			configDir = filepath.Join(home, ".config", "socialcrawl")
		}
	}

	if err := os.MkdirAll(configDir, 0700); err != nil {
		return "", fmt.Errorf("failed to create config directory: %w", err)
	}

	return configDir, nil
}

// Sanitize returns a copy with the secret masked, for display
func Sanitize(creds *ClientCredentials) *ClientCredentials {
	if creds == nil {
		return nil
	}

	return &ClientCredentials{
		Platform:     creds.Platform,
		ClientID:     creds.ClientID,
		ClientSecret: maskString(creds.ClientSecret),
		UserAgent:    creds.UserAgent,
		LastModified: creds.LastModified,
	}
}

// maskString masks all but the first 4 and last 4 characters of a string
func maskString(s string) string {
	if len(s) <= 8 {
		return strings.Repeat("*", 8)
	}
	return s[:4] + "..." + s[len(s)-4:]
}

// Errors
var (
	ErrCredentialsNotFound = errors.New("credentials not found")
	ErrInvalidCredentials  = errors.New("invalid credentials")
	ErrStoreUnavailable    = errors.New("credential store unavailable")
)
