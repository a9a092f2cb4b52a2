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

// EnvPrefix is the prefix of every environment variable the crawler reads
const EnvPrefix = "SUNOCRAWL_"

// Config holds all configuration options for the crawler
type Config struct {
	// API endpoint and fixed request headers
	API APIConfig `yaml:"api" json:"api"`

	// Credential store backend
	Credentials CredentialsConfig `yaml:"credentials" json:"credentials"`

	// Pagination and filtering
	Crawl CrawlConfig `yaml:"crawl" json:"crawl"`

	// Retry, rate limit and refresh policy
	Retry RetryConfig `yaml:"retry" json:"retry"`

	// Output settings
	Output OutputConfig `yaml:"output" json:"output"`

	// Credential refresh watcher
	Watcher WatcherConfig `yaml:"watcher" json:"watcher"`

	// Notification preferences
	Notifications NotificationConfig `yaml:"notifications" json:"notifications"`

	// Logging configuration
	Logging LoggingConfig `yaml:"logging" json:"logging"`
}

// APIConfig holds the remote origin and the fixed header values
type APIConfig struct {
	BaseURL   string        `yaml:"base_url" json:"base_url"`
	UserAgent string        `yaml:"user_agent" json:"user_agent"`
	Origin    string        `yaml:"origin" json:"origin"`
	Referer   string        `yaml:"referer" json:"referer"`
	Timeout   time.Duration `yaml:"timeout" json:"timeout"`
}

// CredentialsConfig selects where the credential tuple lives
type CredentialsConfig struct {
	// Backend is one of "file", "encrypted" or "keyring"
	Backend         string `yaml:"backend" json:"backend"`
	File            string `yaml:"file" json:"file"`
	DeleteOnSuccess bool   `yaml:"delete_on_success" json:"delete_on_success"`
}

// CrawlConfig holds pagination and filter settings
type CrawlConfig struct {
	PageSize          int           `yaml:"page_size" json:"page_size"`
	HideDisliked      bool          `yaml:"hide_disliked" json:"hide_disliked"`
	HideStudioClips   bool          `yaml:"hide_studio_clips" json:"hide_studio_clips"`
	HideGenStems      bool          `yaml:"hide_gen_stems" json:"hide_gen_stems"`
	PageDelay         time.Duration `yaml:"page_delay" json:"page_delay"`
	RequestsPerMinute int           `yaml:"requests_per_minute" json:"requests_per_minute"`
	BurstSize         int           `yaml:"burst_size" json:"burst_size"`
	Workspaces        []string      `yaml:"workspaces" json:"workspaces"`
}

// RetryConfig holds the transient retry, rate limit and refresh policy
type RetryConfig struct {
	MaxAttempts         int           `yaml:"max_attempts" json:"max_attempts"`
	BaseDelay           time.Duration `yaml:"base_delay" json:"base_delay"`
	MaxDelay            time.Duration `yaml:"max_delay" json:"max_delay"`
	Multiplier          float64       `yaml:"multiplier" json:"multiplier"`
	JitterFactor        float64       `yaml:"jitter_factor" json:"jitter_factor"`
	RateLimitFloor      time.Duration `yaml:"rate_limit_floor" json:"rate_limit_floor"`
	RateLimitMaxWait    time.Duration `yaml:"rate_limit_max_wait" json:"rate_limit_max_wait"`
	RefreshPollInterval time.Duration `yaml:"refresh_poll_interval" json:"refresh_poll_interval"`
}

// OutputConfig holds output directory configuration
type OutputConfig struct {
	BaseDirectory     string `yaml:"base_directory" json:"base_directory"`
	SavePages         bool   `yaml:"save_pages" json:"save_pages"`
	WorkbookDirectory string `yaml:"workbook_directory" json:"workbook_directory"`
	BuildWorkbook     bool   `yaml:"build_workbook" json:"build_workbook"`
	OpenWorkbook      bool   `yaml:"open_workbook" json:"open_workbook"`
}

// WatcherConfig holds the credential refresh watcher settings
type WatcherConfig struct {
	Enabled bool `yaml:"enabled" json:"enabled"`
	// Mode is "clipboard" or "stdin"
	Mode         string        `yaml:"mode" json:"mode"`
	PollInterval time.Duration `yaml:"poll_interval" json:"poll_interval"`
}

// NotificationConfig holds notification preferences
type NotificationConfig struct {
	Enabled bool `yaml:"enabled" json:"enabled"`
	Bell    bool `yaml:"bell" json:"bell"`
	Desktop bool `yaml:"desktop" json:"desktop"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level string `yaml:"level" json:"level"`
	// File is an explicit log file; when empty and Directory is set, a
	// run_<timestamp>.log file is created there.
	File      string `yaml:"file" json:"file"`
	Directory string `yaml:"directory" json:"directory"`
	RunID     string `yaml:"-" json:"-"`
}

// DefaultConfig returns a Config instance with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		API: APIConfig{
			BaseURL:   "https://studio-api.prod.suno.com",
			UserAgent: "Mozilla/5.0",
			Origin:    "https://suno.com",
			Referer:   "https://suno.com/",
			Timeout:   45 * time.Second,
		},
		Credentials: CredentialsConfig{
			Backend:         "file",
			File:            "auth.json",
			DeleteOnSuccess: true,
		},
		Crawl: CrawlConfig{
			PageSize:          250,
			HideDisliked:      true,
			HideStudioClips:   true,
			HideGenStems:      true,
			PageDelay:         300 * time.Millisecond,
			RequestsPerMinute: 120,
			BurstSize:         5,
		},
		Retry: RetryConfig{
			MaxAttempts:         8,
			BaseDelay:           1500 * time.Millisecond,
			MaxDelay:            60 * time.Second,
			Multiplier:          2.0,
			JitterFactor:        0.1,
			RateLimitFloor:      30 * time.Second,
			RateLimitMaxWait:    10 * time.Minute,
			RefreshPollInterval: 2 * time.Second,
		},
		Output: OutputConfig{
			BaseDirectory:     "suno_api_dump",
			SavePages:         true,
			WorkbookDirectory: ".",
			BuildWorkbook:     true,
			OpenWorkbook:      true,
		},
		Watcher: WatcherConfig{
			Enabled:      true,
			Mode:         "clipboard",
			PollInterval: 2 * time.Second,
		},
		Notifications: NotificationConfig{
			Enabled: true,
			Bell:    true,
			Desktop: false,
		},
		Logging: LoggingConfig{
			Level:     "info",
			Directory: "logs",
		},
	}
}

// LoadFromEnv loads configuration from environment variables
func (c *Config) LoadFromEnv() error {
	var errs []error

	if v := getEnv("BASE_URL"); v != "" {
		c.API.BaseURL = v
	}
	if v := getEnv("USER_AGENT"); v != "" {
		c.API.UserAgent = v
	}
	if v := getEnv("CREDENTIALS_BACKEND"); v != "" {
		c.Credentials.Backend = v
	}
	if v := getEnv("AUTH_FILE"); v != "" {
		c.Credentials.File = v
	}
	if v := getEnv("OUTPUT_DIR"); v != "" {
		c.Output.BaseDirectory = v
	}
	if v := getEnv("WORKSPACES"); v != "" {
		c.Crawl.Workspaces = splitList(v)
	}
	if v := getEnv("LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
	if v := getEnv("LOG_DIR"); v != "" {
		c.Logging.Directory = v
	}
	if v := getEnv("WATCHER_MODE"); v != "" {
		c.Watcher.Mode = v
	}

	if v := getEnv("PAGE_SIZE"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			errs = append(errs, fmt.Errorf("%sPAGE_SIZE: %w", EnvPrefix, err))
		} else if n > 0 {
			c.Crawl.PageSize = n
		}
	}
	if v := getEnv("REQUESTS_PER_MINUTE"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			errs = append(errs, fmt.Errorf("%sREQUESTS_PER_MINUTE: %w", EnvPrefix, err))
		} else if n > 0 {
			c.Crawl.RequestsPerMinute = n
		}
	}
	if v := getEnv("MAX_RETRIES"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			errs = append(errs, fmt.Errorf("%sMAX_RETRIES: %w", EnvPrefix, err))
		} else {
			c.Retry.MaxAttempts = n
		}
	}

	if v := getEnv("NOTIFICATIONS_ENABLED"); v != "" {
		c.Notifications.Enabled = strings.ToLower(v) == "true"
	}
	if v := getEnv("WATCHER_ENABLED"); v != "" {
		c.Watcher.Enabled = strings.ToLower(v) == "true"
	}
	if v := getEnv("OPEN_WORKBOOK"); v != "" {
		c.Output.OpenWorkbook = strings.ToLower(v) == "true"
	}

	return errors.Join(errs...)
}

func getEnv(name string) string {
	return strings.TrimSpace(os.Getenv(EnvPrefix + name))
}

func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
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
	home := os.Getenv("HOME")
	locations := []string{
		".sunocrawl.yaml",
		".sunocrawl.yml",
		filepath.Join(home, ".config", "sunocrawl", "config.yaml"),
		filepath.Join(home, ".config", "sunocrawl", "config.yml"),
		filepath.Join(home, ".sunocrawl.yaml"),
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

	if c.API.BaseURL == "" {
		errs = append(errs, errors.New("API base URL is required"))
	}
	if c.API.Timeout <= 0 {
		errs = append(errs, errors.New("API timeout must be positive"))
	}

	validBackends := map[string]bool{"file": true, "encrypted": true, "keyring": true}
	if !validBackends[strings.ToLower(c.Credentials.Backend)] {
		errs = append(errs, fmt.Errorf("invalid credentials backend %q", c.Credentials.Backend))
	}
	if c.Credentials.Backend != "keyring" && c.Credentials.File == "" {
		errs = append(errs, errors.New("credentials file is required"))
	}

	if c.Crawl.PageSize <= 0 {
		errs = append(errs, errors.New("page size must be positive"))
	}
	if c.Crawl.PageDelay < 0 {
		errs = append(errs, errors.New("page delay cannot be negative"))
	}
	if c.Crawl.RequestsPerMinute <= 0 {
		errs = append(errs, errors.New("requests per minute must be positive"))
	}
	if c.Crawl.BurstSize <= 0 {
		errs = append(errs, errors.New("burst size must be positive"))
	}

	if c.Retry.MaxAttempts <= 0 {
		errs = append(errs, errors.New("max retry attempts must be positive"))
	}
	if c.Retry.BaseDelay <= 0 || c.Retry.MaxDelay < c.Retry.BaseDelay {
		errs = append(errs, errors.New("retry delays must be positive and max delay must not be below base delay"))
	}
	if c.Retry.RateLimitFloor <= 0 {
		errs = append(errs, errors.New("rate limit floor must be positive"))
	}
	if c.Retry.RateLimitMaxWait < c.Retry.RateLimitFloor {
		errs = append(errs, errors.New("rate limit max wait must not be below the floor"))
	}
	if c.Retry.RefreshPollInterval <= 0 {
		errs = append(errs, errors.New("refresh poll interval must be positive"))
	}

	if c.Output.BaseDirectory == "" {
		errs = append(errs, errors.New("output directory is required"))
	}

	validModes := map[string]bool{"clipboard": true, "stdin": true}
	if !validModes[strings.ToLower(c.Watcher.Mode)] {
		errs = append(errs, fmt.Errorf("invalid watcher mode %q", c.Watcher.Mode))
	}
	if c.Watcher.PollInterval <= 0 {
		errs = append(errs, errors.New("watcher poll interval must be positive"))
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
	if outputDir, ok := flags["output"].(string); ok && outputDir != "" {
		c.Output.BaseDirectory = outputDir
	}
	if authFile, ok := flags["auth-file"].(string); ok && authFile != "" {
		c.Credentials.File = authFile
	}
	if backend, ok := flags["credentials-backend"].(string); ok && backend != "" {
		c.Credentials.Backend = backend
	}
	if workspaces, ok := flags["workspace"].([]string); ok && len(workspaces) > 0 {
		c.Crawl.Workspaces = workspaces
	}
	if pageSize, ok := flags["page-size"].(int); ok && pageSize > 0 {
		c.Crawl.PageSize = pageSize
	}
	if rpm, ok := flags["requests-per-minute"].(int); ok && rpm > 0 {
		c.Crawl.RequestsPerMinute = rpm
	}
	if maxRetries, ok := flags["max-retries"].(int); ok && maxRetries > 0 {
		c.Retry.MaxAttempts = maxRetries
	}
	if logLevel, ok := flags["log-level"].(string); ok && logLevel != "" {
		c.Logging.Level = logLevel
	}
	if logDir, ok := flags["log-dir"].(string); ok && logDir != "" {
		c.Logging.Directory = logDir
	}
	if noWatcher, ok := flags["no-watcher"].(bool); ok && noWatcher {
		c.Watcher.Enabled = false
	}
	if mode, ok := flags["watcher-mode"].(string); ok && mode != "" {
		c.Watcher.Mode = mode
	}
	if open, ok := flags["open-workbook"].(bool); ok {
		c.Output.OpenWorkbook = open
	}
	if savePages, ok := flags["save-pages"].(bool); ok {
		c.Output.SavePages = savePages
	}
	if notify, ok := flags["notifications"].(bool); ok {
		c.Notifications.Enabled = notify
	}
}

// Load loads configuration from all sources with proper precedence
// Precedence order: Command line flags > Environment variables > .env file > Config file > Defaults
func Load(configPath string, flags map[string]interface{}) (*Config, error) {
	// Missing .env files are fine
	_ = godotenv.Load(".env")
	_ = godotenv.Load(filepath.Join(os.Getenv("HOME"), ".sunocrawl.env"))

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
