package auth

import (
	"os"
	"time"
)

// envVars maps providers to the environment variables that may carry
// their tokens.
var envVars = map[string]string{
	ProviderApify:  "APIFY_TOKEN",
	ProviderOpenAI: "OPENAI_API_KEY",
	ProviderSMTP:   "SENDER_PASSWORD",
}

// EnvironmentStore resolves tokens from environment variables. It is
// read-only and sits last in the chain.
type EnvironmentStore struct{}

// NewEnvironmentStore creates an EnvironmentStore.
func NewEnvironmentStore() *EnvironmentStore {
	return &EnvironmentStore{}
}

func (e *EnvironmentStore) Store(cred *Credential) error {
	return ErrStoreReadOnly
}

func (e *EnvironmentStore) Retrieve(provider string) (*Credential, error) {
	envVar, ok := envVars[provider]
	if !ok {
		return nil, ErrTokenNotFound
	}
	token := os.Getenv(envVar)
	if token == "" {
		return nil, ErrTokenNotFound
	}
	return &Credential{
		Provider:     provider,
		Token:        token,
		LastModified: time.Now(),
	}, nil
}

func (e *EnvironmentStore) Delete(provider string) error {
	return ErrStoreReadOnly
}

func (e *EnvironmentStore) Exists(provider string) bool {
	envVar, ok := envVars[provider]
	return ok && os.Getenv(envVar) != ""
}
