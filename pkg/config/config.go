package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds all configuration options for the lead discovery engine
type Config struct {
	// Hashtag discovery settings
	Discovery DiscoveryConfig `yaml:"discovery" json:"discovery"`

	// Apify scraping provider
	Apify ApifyConfig `yaml:"apify" json:"apify"`

	// OpenAI extraction / generation settings
	OpenAI OpenAIConfig `yaml:"openai" json:"openai"`

	// Influencer qualification thresholds
	Influencer InfluencerConfig `yaml:"influencer" json:"influencer"`

	// Outreach transport settings
	Outreach OutreachConfig `yaml:"outreach" json:"outreach"`

	// Persistent store settings
	Database DatabaseConfig `yaml:"database" json:"database"`

	// Rate limiting configuration
	RateLimit RateLimitConfig `yaml:"rate_limit" json:"rate_limit"`

	// Retry behavior for collaborator calls
	Retry RetryConfig `yaml:"retry" json:"retry"`

	// Logging configuration
	Logging LoggingConfig `yaml:"logging" json:"logging"`
}

// DiscoveryConfig holds hashtag discovery and cache settings
type DiscoveryConfig struct {
	Hashtags     []string      `yaml:"hashtags" json:"hashtags"`
	ResultsLimit int           `yaml:"results_limit" json:"results_limit"`
	CacheTTL     time.Duration `yaml:"cache_ttl" json:"cache_ttl"`
	MaxAttempts  int           `yaml:"max_attempts" json:"max_attempts"`
}

// ApifyConfig holds Apify actor settings
type ApifyConfig struct {
	Token                 string        `yaml:"token" json:"token"`
	BaseURL               string        `yaml:"base_url" json:"base_url"`
	HashtagScraperID      string        `yaml:"hashtag_scraper_id" json:"hashtag_scraper_id"`
	ProfileScraperID      string        `yaml:"profile_scraper_id" json:"profile_scraper_id"`
	PostScraperID         string        `yaml:"post_scraper_id" json:"post_scraper_id"`
	RequestTimeout        time.Duration `yaml:"request_timeout" json:"request_timeout"`
	MaxResultsPerHashtag  int           `yaml:"max_results_per_hashtag" json:"max_results_per_hashtag"`
	UseResidentialProxies bool          `yaml:"use_residential_proxies" json:"use_residential_proxies"`
}

// OpenAIConfig holds LLM extraction and message generation settings
type OpenAIConfig struct {
	APIKey         string        `yaml:"api_key" json:"api_key"`
	BaseURL        string        `yaml:"base_url" json:"base_url"`
	ExtractModel   string        `yaml:"extract_model" json:"extract_model"`
	GenerateModel  string        `yaml:"generate_model" json:"generate_model"`
	RequestTimeout time.Duration `yaml:"request_timeout" json:"request_timeout"`
}

// InfluencerConfig holds reels-based qualification thresholds
type InfluencerConfig struct {
	ViewThreshold int `yaml:"view_threshold" json:"view_threshold"`
	SkipReels     int `yaml:"skip_reels" json:"skip_reels"`
	SampleReels   int `yaml:"sample_reels" json:"sample_reels"`
	MinQualified  int `yaml:"min_qualified" json:"min_qualified"`
}

// OutreachConfig holds email/DM transport settings
type OutreachConfig struct {
	Enabled        bool          `yaml:"enabled" json:"enabled"`
	SMTPServer     string        `yaml:"smtp_server" json:"smtp_server"`
	SMTPPort       int           `yaml:"smtp_port" json:"smtp_port"`
	SenderEmail    string        `yaml:"sender_email" json:"sender_email"`
	SenderPassword string        `yaml:"sender_password" json:"sender_password"`
	SendDelay      time.Duration `yaml:"send_delay" json:"send_delay"`
	ProductName    string        `yaml:"product_name" json:"product_name"`
	ProductPitch   string        `yaml:"product_pitch" json:"product_pitch"`
}

// DatabaseConfig holds persistent store settings
type DatabaseConfig struct {
	Path string `yaml:"path" json:"path"`
}

// RateLimitConfig holds rate limiting configuration
type RateLimitConfig struct {
	RequestsPerMinute int `yaml:"requests_per_minute" json:"requests_per_minute"`
	BurstSize         int `yaml:"burst_size" json:"burst_size"`
}

// RetryConfig holds retry behavior for collaborator calls
type RetryConfig struct {
	MaxAttempts int           `yaml:"max_attempts" json:"max_attempts"`
	BaseDelay   time.Duration `yaml:"base_delay" json:"base_delay"`
	MaxDelay    time.Duration `yaml:"max_delay" json:"max_delay"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level string `yaml:"level" json:"level"`
	File  string `yaml:"file" json:"file"`
}

// DefaultConfig returns a Config instance with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Discovery: DiscoveryConfig{
			Hashtags:     []string{"golf", "golfswing"},
			ResultsLimit: 100,
			CacheTTL:     30 * time.Minute,
			MaxAttempts:  3,
		},
		Apify: ApifyConfig{
			BaseURL:               "https://api.apify.com",
			HashtagScraperID:      "apify~instagram-hashtag-scraper",
			ProfileScraperID:      "apify~instagram-profile-scraper",
			PostScraperID:         "apify~instagram-post-scraper",
			RequestTimeout:        5 * time.Minute,
			MaxResultsPerHashtag:  500,
			UseResidentialProxies: true,
		},
		OpenAI: OpenAIConfig{
			BaseURL:        "https://api.openai.com/v1",
			ExtractModel:   "gpt-4o-mini",
			GenerateModel:  "gpt-4o-mini",
			RequestTimeout: 60 * time.Second,
		},
		Influencer: InfluencerConfig{
			ViewThreshold: 3000,
			SkipReels:     3,
			SampleReels:   6,
			MinQualified:  4,
		},
		Outreach: OutreachConfig{
			Enabled:      false,
			SMTPServer:   "smtp.gmail.com",
			SMTPPort:     587,
			SendDelay:    2 * time.Second,
			ProductName:  "Ace Trace",
			ProductPitch: "Golf shot tracking app. 15% commission on sales, free app access, 10% discount for followers.",
		},
		Database: DatabaseConfig{
			Path: "influencers.db",
		},
		RateLimit: RateLimitConfig{
			RequestsPerMinute: 30,
			BurstSize:         5,
		},
		Retry: RetryConfig{
			MaxAttempts: 3,
			BaseDelay:   1 * time.Second,
			MaxDelay:    60 * time.Second,
		},
		Logging: LoggingConfig{
			Level: "info",
			File:  "",
		},
	}
}

// LoadFromEnv loads configuration from environment variables
func (c *Config) LoadFromEnv() error {
	if token := os.Getenv("APIFY_TOKEN"); token != "" {
		c.Apify.Token = token
	}
	if key := os.Getenv("OPENAI_API_KEY"); key != "" {
		c.OpenAI.APIKey = key
	}
	if hashtags := os.Getenv("HASHTAGS"); hashtags != "" {
		c.Discovery.Hashtags = splitHashtags(hashtags)
	}
	if limit := os.Getenv("RESULTS_LIMIT"); limit != "" {
		if val, err := strconv.Atoi(limit); err == nil && val > 0 {
			c.Discovery.ResultsLimit = val
		}
	}
	if dbPath := os.Getenv("IGLEADS_DB_PATH"); dbPath != "" {
		c.Database.Path = dbPath
	}
	if sender := os.Getenv("SENDER_EMAIL"); sender != "" {
		c.Outreach.SenderEmail = sender
	}
	if password := os.Getenv("SENDER_PASSWORD"); password != "" {
		c.Outreach.SenderPassword = password
	}
	if server := os.Getenv("SMTP_SERVER"); server != "" {
		c.Outreach.SMTPServer = server
	}
	if port := os.Getenv("SMTP_PORT"); port != "" {
		if val, err := strconv.Atoi(port); err == nil && val > 0 {
			c.Outreach.SMTPPort = val
		}
	}
	if rpm := os.Getenv("IGLEADS_REQUESTS_PER_MINUTE"); rpm != "" {
		if val, err := strconv.Atoi(rpm); err == nil && val > 0 {
			c.RateLimit.RequestsPerMinute = val
		}
	}
	if logLevel := os.Getenv("IGLEADS_LOG_LEVEL"); logLevel != "" {
		c.Logging.Level = logLevel
	}

	return nil
}

// splitHashtags parses a comma-separated hashtag list, trimming blanks
func splitHashtags(s string) []string {
	var tags []string
	for _, tag := range strings.Split(s, ",") {
		tag = strings.TrimSpace(tag)
		if tag != "" {
			tags = append(tags, tag)
		}
	}
	return tags
}

// LoadFromFile loads configuration from a YAML file
func (c *Config) LoadFromFile(path string) error {
	// If path is empty, try default locations
	if path == "" {
		path = c.findConfigFile()
		if path == "" {
			return nil // No config file found, not an error
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config file: %w", err)
	}

	return nil
}

// findConfigFile searches for config file in standard locations
func (c *Config) findConfigFile() string {
	locations := []string{
		".igleads.yaml",
		".igleads.yml",
		filepath.Join(os.Getenv("HOME"), ".config", "igleads", "config.yaml"),
		filepath.Join(os.Getenv("HOME"), ".config", "igleads", "config.yml"),
		filepath.Join(os.Getenv("HOME"), ".igleads.yaml"),
	}

	for _, loc := range locations {
		if _, err := os.Stat(loc); err == nil {
			return loc
		}
	}

	return ""
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	var errs []error

	if len(c.Discovery.Hashtags) == 0 {
		errs = append(errs, errors.New("at least one hashtag is required"))
	}
	if c.Discovery.ResultsLimit <= 0 {
		errs = append(errs, errors.New("results limit must be positive"))
	}
	if c.Discovery.CacheTTL <= 0 {
		errs = append(errs, errors.New("cache TTL must be positive"))
	}
	if c.Discovery.MaxAttempts <= 0 {
		errs = append(errs, errors.New("discovery max attempts must be positive"))
	}

	if c.Apify.Token == "" {
		errs = append(errs, errors.New("Apify token is required"))
	}
	if c.Apify.MaxResultsPerHashtag <= 0 {
		errs = append(errs, errors.New("max results per hashtag must be positive"))
	}

	if c.OpenAI.APIKey == "" {
		errs = append(errs, errors.New("OpenAI API key is required"))
	}

	if c.Influencer.ViewThreshold <= 0 {
		errs = append(errs, errors.New("view threshold must be positive"))
	}
	if c.Influencer.MinQualified > c.Influencer.SampleReels {
		errs = append(errs, errors.New("min qualified reels cannot exceed sample size"))
	}

	if c.Outreach.Enabled {
		if c.Outreach.SenderEmail == "" {
			errs = append(errs, errors.New("sender email is required when outreach is enabled"))
		}
		if c.Outreach.SMTPServer == "" {
			errs = append(errs, errors.New("SMTP server is required when outreach is enabled"))
		}
	}

	if c.Database.Path == "" {
		errs = append(errs, errors.New("database path is required"))
	}

	if c.RateLimit.RequestsPerMinute <= 0 {
		errs = append(errs, errors.New("requests per minute must be positive"))
	}
	if c.Retry.MaxAttempts < 0 {
		errs = append(errs, errors.New("retry max attempts cannot be negative"))
	}

	validLogLevels := map[string]bool{
		"debug": true, "info": true, "warn": true, "error": true,
	}
	if !validLogLevels[strings.ToLower(c.Logging.Level)] {
		errs = append(errs, errors.New("invalid log level"))
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}

	return nil
}

// Save saves the configuration to a file
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// MergeCommandLineFlags merges command line flags into the configuration
func (c *Config) MergeCommandLineFlags(flags map[string]interface{}) {
	if hashtags, ok := flags["hashtags"].([]string); ok && len(hashtags) > 0 {
		c.Discovery.Hashtags = hashtags
	}
	if limit, ok := flags["results-limit"].(int); ok && limit > 0 {
		c.Discovery.ResultsLimit = limit
	}
	if dbPath, ok := flags["db"].(string); ok && dbPath != "" {
		c.Database.Path = dbPath
	}
	if token, ok := flags["apify-token"].(string); ok && token != "" {
		c.Apify.Token = token
	}
	if key, ok := flags["openai-key"].(string); ok && key != "" {
		c.OpenAI.APIKey = key
	}
	if enabled, ok := flags["outreach"].(bool); ok {
		c.Outreach.Enabled = enabled
	}
	if logLevel, ok := flags["log-level"].(string); ok && logLevel != "" {
		c.Logging.Level = logLevel
	}
}

// Load loads configuration from all sources with proper precedence
// Precedence order: Command line flags > Environment variables > .env file > Config file > Defaults
func Load(configPath string, flags map[string]interface{}) (*Config, error) {
	// Try to load .env files (don't fail if they don't exist)
	_ = godotenv.Load(".env")
	_ = godotenv.Load(filepath.Join(os.Getenv("HOME"), ".igleads.env"))

	config := DefaultConfig()

	if err := config.LoadFromFile(configPath); err != nil {
		return nil, fmt.Errorf("failed to load config file: %w", err)
	}

	if err := config.LoadFromEnv(); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	config.MergeCommandLineFlags(flags)

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return config, nil
}
