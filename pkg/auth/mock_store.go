package auth

import "sync"

// MockStore is an in-memory CredentialStore with error injection, for tests
type MockStore struct {
	entries map[string]*ClientCredentials
	mu      sync.RWMutex

	StoreError    error
	RetrieveError error
	ListError     error
	DeleteError   error
}

// NewMockStore creates a new mock credential store
func NewMockStore() *MockStore {
	return &MockStore{
		entries: make(map[string]*ClientCredentials),
	}
}

// Store saves a copy of creds
func (m *MockStore) Store(creds *ClientCredentials) error {
	if m.StoreError != nil {
		return m.StoreError
	}
	if creds == nil || creds.Platform == "" {
		return ErrInvalidCredentials
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	c := *creds
	m.entries[creds.Platform] = &c
	return nil
}

// Retrieve returns a copy of the stored credentials
func (m *MockStore) Retrieve(platform string) (*ClientCredentials, error) {
	if m.RetrieveError != nil {
		return nil, m.RetrieveError
	}
	if platform == "" {
		return nil, ErrInvalidCredentials
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	creds, ok := m.entries[platform]
	if !ok {
		return nil, ErrCredentialsNotFound
	}
	c := *creds
	return &c, nil
}

// List returns copies of all stored credentials
func (m *MockStore) List() ([]*ClientCredentials, error) {
	if m.ListError != nil {
		return nil, m.ListError
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	all := make([]*ClientCredentials, 0, len(m.entries))
	for _, creds := range m.entries {
		c := *creds
		all = append(all, &c)
	}
	return all, nil
}

// Delete removes credentials for platform
func (m *MockStore) Delete(platform string) error {
	if m.DeleteError != nil {
		return m.DeleteError
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.entries[platform]; !ok {
		return ErrCredentialsNotFound
	}
	delete(m.entries, platform)
	return nil
}

// Exists checks if credentials exist in the mock store
func (m *MockStore) Exists(platform string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()

	_, ok := m.entries[platform]
	return ok
}

// Count returns the number of stored entries
func (m *MockStore) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return len(m.entries)
}

// NewMockManager creates a Manager over a single mock store
func NewMockManager() (*Manager, *MockStore) {
	store := NewMockStore()
	return NewManagerWithStores(store), store
}
