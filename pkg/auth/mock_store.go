package auth

import "sync"

// MockStore is an in-memory TokenStore for tests.
type MockStore struct {
	mu    sync.RWMutex
	creds map[string]Credential
	// FailStore makes Store return an error, to exercise fallback.
	FailStore bool
}

// NewMockStore creates an empty MockStore.
func NewMockStore() *MockStore {
	return &MockStore{creds: make(map[string]Credential)}
}

func (m *MockStore) Store(cred *Credential) error {
	if m.FailStore {
		return ErrStoreReadOnly
	}
	if cred == nil || cred.Provider == "" {
		return ErrInvalidToken
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.creds[cred.Provider] = *cred
	return nil
}

func (m *MockStore) Retrieve(provider string) (*Credential, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	cred, ok := m.creds[provider]
	if !ok {
		return nil, ErrTokenNotFound
	}
	return &cred, nil
}

func (m *MockStore) Delete(provider string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.creds[provider]; !ok {
		return ErrTokenNotFound
	}
	delete(m.creds, provider)
	return nil
}

func (m *MockStore) Exists(provider string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.creds[provider]
	return ok
}
