package auth

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestManagerStoreRetrieveDelete(t *testing.T) {
	m := NewManagerWithStores(NewMockStore())

	require.NoError(t, m.Store(ProviderApify, "apify_token_123"))
	token, err := m.Retrieve(ProviderApify)
	require.NoError(t, err)
	assert.Equal(t, "apify_token_123", token)
	assert.True(t, m.Exists(ProviderApify))

	require.NoError(t, m.Delete(ProviderApify))
	assert.False(t, m.Exists(ProviderApify))
	_, err = m.Retrieve(ProviderApify)
	assert.ErrorIs(t, err, ErrTokenNotFound)
}

func TestManagerFallsBackAcrossStores(t *testing.T) {
	failing := NewMockStore()
	failing.FailStore = true
	working := NewMockStore()
	m := NewManagerWithStores(failing, working)

	require.NoError(t, m.Store(ProviderOpenAI, "sk-test"))
	assert.False(t, failing.Exists(ProviderOpenAI))
	assert.True(t, working.Exists(ProviderOpenAI))

	token, err := m.Retrieve(ProviderOpenAI)
	require.NoError(t, err)
	assert.Equal(t, "sk-test", token)
}

func TestManagerRejectsEmptyInputs(t *testing.T) {
	m := NewManagerWithStores(NewMockStore())
	assert.ErrorIs(t, m.Store("", "token"), ErrInvalidToken)
	assert.ErrorIs(t, m.Store(ProviderApify, ""), ErrInvalidToken)
}

func TestEnvironmentStoreReadOnly(t *testing.T) {
	t.Setenv("APIFY_TOKEN", "from-env")

	store := NewEnvironmentStore()
	cred, err := store.Retrieve(ProviderApify)
	require.NoError(t, err)
	assert.Equal(t, "from-env", cred.Token)
	assert.True(t, store.Exists(ProviderApify))

	assert.ErrorIs(t, store.Store(&Credential{Provider: ProviderApify, Token: "x"}), ErrStoreReadOnly)
	assert.ErrorIs(t, store.Delete(ProviderApify), ErrStoreReadOnly)

	_, err = store.Retrieve("unknown_provider")
	assert.ErrorIs(t, err, ErrTokenNotFound)
}

func TestEncryptedFileStoreRoundTrip(t *testing.T) {
	t.Setenv("IGLEADS_PASSPHRASE", "test-passphrase")
	path := filepath.Join(t.TempDir(), "tokens.enc")

	store, err := NewEncryptedFileStore(path)
	require.NoError(t, err)

	require.NoError(t, store.Store(&Credential{Provider: ProviderApify, Token: "secret_token"}))
	require.NoError(t, store.Store(&Credential{Provider: ProviderSMTP, Token: "mail_password"}))

	// The file on disk must not contain the plaintext token.
	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.NotContains(t, string(raw), "secret_token")

	// A fresh store over the same file decrypts both tokens.
	reopened, err := NewEncryptedFileStore(path)
	require.NoError(t, err)
	cred, err := reopened.Retrieve(ProviderApify)
	require.NoError(t, err)
	assert.Equal(t, "secret_token", cred.Token)

	require.NoError(t, reopened.Delete(ProviderApify))
	_, err = reopened.Retrieve(ProviderApify)
	assert.ErrorIs(t, err, ErrTokenNotFound)
	assert.True(t, reopened.Exists(ProviderSMTP))
}

func TestEncryptedFileStoreWrongPassphrase(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tokens.enc")

	t.Setenv("IGLEADS_PASSPHRASE", "right")
	store, err := NewEncryptedFileStore(path)
	require.NoError(t, err)
	require.NoError(t, store.Store(&Credential{Provider: ProviderApify, Token: "secret"}))

	t.Setenv("IGLEADS_PASSPHRASE", "wrong")
	attacker, err := NewEncryptedFileStore(path)
	require.NoError(t, err)
	_, err = attacker.Retrieve(ProviderApify)
	assert.Error(t, err)
}

func TestEncryptedFileStoreRemovesEmptyFile(t *testing.T) {
	t.Setenv("IGLEADS_PASSPHRASE", "p")
	path := filepath.Join(t.TempDir(), "tokens.enc")

	store, err := NewEncryptedFileStore(path)
	require.NoError(t, err)
	require.NoError(t, store.Store(&Credential{Provider: ProviderApify, Token: "x"}))
	require.NoError(t, store.Delete(ProviderApify))

	_, err = os.Stat(path)
	assert.True(t, os.IsNotExist(err))
}
