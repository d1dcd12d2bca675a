package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, 100, cfg.Discovery.ResultsLimit)
	assert.Equal(t, 30*time.Minute, cfg.Discovery.CacheTTL)
	assert.Equal(t, 3, cfg.Discovery.MaxAttempts)
	assert.Equal(t, 3000, cfg.Influencer.ViewThreshold)
	assert.Equal(t, "influencers.db", cfg.Database.Path)
	assert.False(t, cfg.Outreach.Enabled)

	// Defaults alone are not runnable: credentials must come from env,
	// file, flags, or the token store.
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Apify token is required")
	assert.Contains(t, err.Error(), "OpenAI API key is required")
}

func TestDefaultConfigValidWithCredentials(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Apify.Token = "apify_api_test"
	cfg.OpenAI.APIKey = "sk-test"

	assert.NoError(t, cfg.Validate())
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("APIFY_TOKEN", "env-token")
	t.Setenv("OPENAI_API_KEY", "env-key")
	t.Setenv("HASHTAGS", "golf, golftips,,golfdrills")
	t.Setenv("RESULTS_LIMIT", "250")
	t.Setenv("IGLEADS_DB_PATH", "/tmp/leads.db")
	t.Setenv("IGLEADS_LOG_LEVEL", "debug")

	cfg := DefaultConfig()
	require.NoError(t, cfg.LoadFromEnv())

	assert.Equal(t, "env-token", cfg.Apify.Token)
	assert.Equal(t, "env-key", cfg.OpenAI.APIKey)
	assert.Equal(t, []string{"golf", "golftips", "golfdrills"}, cfg.Discovery.Hashtags)
	assert.Equal(t, 250, cfg.Discovery.ResultsLimit)
	assert.Equal(t, "/tmp/leads.db", cfg.Database.Path)
	assert.Equal(t, "debug", cfg.Logging.Level)
}

func TestLoadFromEnvIgnoresBadNumbers(t *testing.T) {
	t.Setenv("RESULTS_LIMIT", "not-a-number")
	t.Setenv("SMTP_PORT", "-1")

	cfg := DefaultConfig()
	require.NoError(t, cfg.LoadFromEnv())

	assert.Equal(t, 100, cfg.Discovery.ResultsLimit)
	assert.Equal(t, 587, cfg.Outreach.SMTPPort)
}

func TestValidateCollectsAllErrors(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Discovery.Hashtags = nil
	cfg.Discovery.ResultsLimit = 0
	cfg.Logging.Level = "loud"

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "at least one hashtag is required")
	assert.Contains(t, err.Error(), "results limit must be positive")
	assert.Contains(t, err.Error(), "invalid log level")
}

func TestValidateOutreachRequirements(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Apify.Token = "t"
	cfg.OpenAI.APIKey = "k"
	cfg.Outreach.Enabled = true
	cfg.Outreach.SenderEmail = ""
	cfg.Outreach.SMTPServer = ""

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "sender email is required when outreach is enabled")
	assert.Contains(t, err.Error(), "SMTP server is required when outreach is enabled")
}

func TestValidateInfluencerSampling(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Apify.Token = "t"
	cfg.OpenAI.APIKey = "k"
	cfg.Influencer.SampleReels = 3
	cfg.Influencer.MinQualified = 4

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "min qualified reels cannot exceed sample size")
}

func TestMergeCommandLineFlags(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MergeCommandLineFlags(map[string]interface{}{
		"hashtags":      []string{"golfpro"},
		"results-limit": 40,
		"db":            "custom.db",
		"apify-token":   "flag-token",
		"openai-key":    "flag-key",
		"outreach":      true,
		"log-level":     "warn",
	})

	assert.Equal(t, []string{"golfpro"}, cfg.Discovery.Hashtags)
	assert.Equal(t, 40, cfg.Discovery.ResultsLimit)
	assert.Equal(t, "custom.db", cfg.Database.Path)
	assert.Equal(t, "flag-token", cfg.Apify.Token)
	assert.Equal(t, "flag-key", cfg.OpenAI.APIKey)
	assert.True(t, cfg.Outreach.Enabled)
	assert.Equal(t, "warn", cfg.Logging.Level)
}

func TestMergeCommandLineFlagsIgnoresZeroValues(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MergeCommandLineFlags(map[string]interface{}{
		"hashtags":      []string{},
		"results-limit": 0,
		"db":            "",
	})

	assert.Equal(t, []string{"golf", "golfswing"}, cfg.Discovery.Hashtags)
	assert.Equal(t, 100, cfg.Discovery.ResultsLimit)
	assert.Equal(t, "influencers.db", cfg.Database.Path)
}

func TestSaveAndLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")

	cfg := DefaultConfig()
	cfg.Discovery.Hashtags = []string{"golfcoach"}
	cfg.Discovery.ResultsLimit = 75
	cfg.Outreach.SendDelay = 5 * time.Second
	require.NoError(t, cfg.Save(path))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())

	loaded := DefaultConfig()
	require.NoError(t, loaded.LoadFromFile(path))
	assert.Equal(t, []string{"golfcoach"}, loaded.Discovery.Hashtags)
	assert.Equal(t, 75, loaded.Discovery.ResultsLimit)
	assert.Equal(t, 5*time.Second, loaded.Outreach.SendDelay)
}

func TestLoadFromFileMissingPath(t *testing.T) {
	cfg := DefaultConfig()
	err := cfg.LoadFromFile(filepath.Join(t.TempDir(), "absent.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read config file")
}

func TestSplitHashtags(t *testing.T) {
	assert.Equal(t, []string{"a", "b"}, splitHashtags("a,b"))
	assert.Equal(t, []string{"a", "b"}, splitHashtags(" a , , b "))
	assert.Nil(t, splitHashtags(""))
	assert.Nil(t, splitHashtags(" , ,"))
}
