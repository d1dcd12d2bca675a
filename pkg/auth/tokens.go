// Package auth stores the API tokens the tool depends on (Apify, OpenAI,
// SMTP sender password) in the most secure backend available: the system
// keychain first, an encrypted file second, plain environment variables as
// a read-only last resort.
package auth

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"time"
)

// Provider names for stored tokens.
const (
	ProviderApify  = "apify"
	ProviderOpenAI = "openai"
	ProviderSMTP   = "smtp"
)

var (
	ErrTokenNotFound  = errors.New("token not found")
	ErrInvalidToken   = errors.New("invalid token")
	ErrStoreReadOnly  = errors.New("store is read-only")
	ErrStoreCorrupted = errors.New("token store corrupted")
)

// Credential is one stored API token.
type Credential struct {
	Provider     string    `json:"provider"`
	Token        string    `json:"token"`
	LastModified time.Time `json:"last_modified"`
}

// TokenStore is a single token storage backend.
type TokenStore interface {
	Store(cred *Credential) error
	Retrieve(provider string) (*Credential, error)
	Delete(provider string) error
	Exists(provider string) bool
}

// Manager resolves tokens across a chain of stores.
type Manager struct {
	stores []TokenStore
}

// NewManager builds the default store chain: keyring when available, then
// the encrypted file, then the environment.
func NewManager() (*Manager, error) {
	var stores []TokenStore

	if keyringStore, err := NewKeyringStore(); err == nil {
		stores = append(stores, keyringStore)
	}

	configDir, err := ConfigDir()
	if err != nil {
		return nil, fmt.Errorf("resolving config directory: %w", err)
	}
	encryptedStore, err := NewEncryptedFileStore(filepath.Join(configDir, "tokens.enc"))
	if err != nil {
		return nil, fmt.Errorf("creating encrypted store: %w", err)
	}
	stores = append(stores, encryptedStore)
	stores = append(stores, NewEnvironmentStore())

	return &Manager{stores: stores}, nil
}

// NewManagerWithStores builds a Manager over an explicit chain, used in
// tests.
func NewManagerWithStores(stores ...TokenStore) *Manager {
	return &Manager{stores: stores}
}

// Store saves a token in the first store that accepts it.
func (m *Manager) Store(provider, token string) error {
	if provider == "" || token == "" {
		return ErrInvalidToken
	}

	cred := &Credential{
		Provider:     provider,
		Token:        token,
		LastModified: time.Now(),
	}

	var lastErr error
	for _, store := range m.stores {
		if err := store.Store(cred); err == nil {
			return nil
		} else {
			lastErr = err
		}
	}
	if lastErr != nil {
		return fmt.Errorf("storing token: %w", lastErr)
	}
	return errors.New("no available token stores")
}

// Retrieve returns the token for a provider from the first store that has
// it.
func (m *Manager) Retrieve(provider string) (string, error) {
	for _, store := range m.stores {
		if cred, err := store.Retrieve(provider); err == nil && cred != nil {
			return cred.Token, nil
		}
	}
	return "", fmt.Errorf("%w: %s", ErrTokenNotFound, provider)
}

// Delete removes a provider's token from every store that has it.
func (m *Manager) Delete(provider string) error {
	found := false
	for _, store := range m.stores {
		if store.Exists(provider) {
			if err := store.Delete(provider); err != nil && !errors.Is(err, ErrStoreReadOnly) {
				return err
			}
			found = true
		}
	}
	if !found {
		return fmt.Errorf("%w: %s", ErrTokenNotFound, provider)
	}
	return nil
}

// Exists reports whether any store holds a token for the provider.
func (m *Manager) Exists(provider string) bool {
	for _, store := range m.stores {
		if store.Exists(provider) {
			return true
		}
	}
	return false
}

// ConfigDir returns the platform config directory for this tool.
func ConfigDir() (string, error) {
	var baseDir string
	switch runtime.GOOS {
	case "windows":
		baseDir = os.Getenv("APPDATA")
		if baseDir == "" {
			return "", errors.New("APPDATA not set")
		}
	case "darwin":
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		baseDir = filepath.Join(home, "Library", "Application Support")
	default:
		baseDir = os.Getenv("XDG_CONFIG_HOME")
		if baseDir == "" {
			home, err := os.UserHomeDir()
			if err != nil {
				return "", err
			}
			baseDir = filepath.Join(home, ".config")
		}
	}

	configDir := filepath.Join(baseDir, "igleads")
	if err := os.MkdirAll(configDir, 0700); err != nil {
		return "", fmt.Errorf("creating config directory: %w", err)
	}
	return configDir, nil
}
